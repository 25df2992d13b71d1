// Package special evaluates the cylindrical Bessel functions needed by the
// step-index mode solver: J_n of the first kind, K_n the modified function of
// the second kind, and their first derivatives, for integer order and real
// argument.
package special

import "math"

const (
	// quadrature step for the K_ν integral; the trapezoidal rule converges
	// double-exponentially here, so the error is far below float64 precision.
	kStep = 0.05
	// hard cap on quadrature nodes
	kMaxNodes = 20000
	kRelTol   = 1e-18
)

// Jn returns J_n(x). Negative orders follow J_{-n} = (-1)^n J_n.
func Jn(n int, x float64) float64 {
	return math.Jn(n, x)
}

// JnPrime returns dJ_n/dx = (J_{n-1} - J_{n+1}) / 2.
func JnPrime(n int, x float64) float64 {
	return 0.5 * (math.Jn(n-1, x) - math.Jn(n+1, x))
}

// Kn returns K_n(x). K is even in its order. Kn(0) is +Inf and negative
// arguments yield NaN.
func Kn(n int, x float64) float64 {
	_, k, _ := KnTriple(n, x)
	return k
}

// KnPrime returns dK_n/dx = -(K_{n-1} + K_{n+1}) / 2.
func KnPrime(n int, x float64) float64 {
	km, _, kp := KnTriple(n, x)
	return -0.5 * (km + kp)
}

// KnTriple returns K_{n-1}(x), K_n(x) and K_{n+1}(x) from a single sweep of
//
//	K_ν(x) = ∫₀^∞ exp(-x cosh t) cosh(νt) dt.
//
// The integrand is scaled by e^{x} during the sweep so large arguments do not
// underflow before the final rescale.
func KnTriple(n int, x float64) (km1, k, kp1 float64) {
	switch {
	case math.IsNaN(x) || x < 0:
		nan := math.NaN()
		return nan, nan, nan
	case x == 0:
		inf := math.Inf(1)
		return inf, inf, inf
	case math.IsInf(x, 1):
		return 0, 0, 0
	}

	orders := [3]float64{
		math.Abs(float64(n - 1)),
		math.Abs(float64(n)),
		math.Abs(float64(n + 1)),
	}
	nuMax := math.Max(orders[0], math.Max(orders[1], orders[2]))

	var sums [3]float64
	for i := range sums {
		sums[i] = 0.5 // t = 0 node: exp(0)·cosh(0), halved by the trapezoidal rule
	}

	for j := 1; j < kMaxNodes; j++ {
		t := float64(j) * kStep
		base := math.Exp(-x * (math.Cosh(t) - 1))
		if base == 0 {
			break
		}

		small := true
		for i, nu := range orders {
			term := base * math.Cosh(nu*t)
			sums[i] += term
			if term > kRelTol*sums[i] {
				small = false
			}
		}

		// past the integrand's peak (x sinh t > ν) and below tolerance
		if small && x*math.Sinh(t) > nuMax {
			break
		}
	}

	scale := kStep * math.Exp(-x)
	return sums[0] * scale, sums[1] * scale, sums[2] * scale
}

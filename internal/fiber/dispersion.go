package fiber

import (
	"math"

	"github.com/san-kum/fiberpol/internal/special"
)

// Dispersion evaluates the hybrid-mode eigenvalue equation in its
// cross-multiplied form
//
//	F(U) = DenomR²·NumerL1·NumerL2 − DenomL²·NumerR1·NumerR2
//
// with W = √(V²−U²). The form carries no divisions, so it stays finite where
// J_n(U) or K_n(W) vanish and keeps the root locations of the ratio form.
// Non-finite inputs (U ≥ V, W → 0) return NaN or ±Inf rather than panicking.
func Dispersion(u, v float64, n int, nco, ncl float64) float64 {
	w := math.Sqrt(v*v - u*u)
	r := (ncl / nco) * (ncl / nco)

	jn := special.Jn(n, u)
	jp := special.JnPrime(n, u)
	km, kn, kp := special.KnTriple(n, w)
	kpr := -0.5 * (km + kp)

	numerL1 := w*kn*jp + u*jn*kpr
	numerL2 := w*kn*jp + r*u*jn*kpr
	denomL := u * w * jn * kn

	nf := float64(n)
	numerR1 := nf * nf * (w*w + u*u)
	numerR2 := w*w + r*u*u
	denomR := u * u * w * w

	return denomR*denomR*numerL1*numerL2 - denomL*denomL*numerR1*numerR2
}

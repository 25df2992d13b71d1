package fiber

import (
	"fmt"
	"math"

	"github.com/san-kum/fiberpol/internal/optics"
)

// brentRoot refines a sign-change bracket [xa, xb] of f with Brent's method
// (inverse quadratic interpolation with bisection fallback). It returns the
// root and the number of function evaluations, or an error wrapping
// optics.ErrRootBracket when the bracket is invalid or maxIter is exhausted.
func brentRoot(f func(float64) float64, xa, xb, xtol, rtol float64, maxIter int) (float64, int, error) {
	xpre, xcur := xa, xb
	fpre, fcur := f(xpre), f(xcur)
	evals := 2

	var xblk, fblk, spre, scur float64

	if math.IsNaN(fpre) || math.IsNaN(fcur) {
		return 0, evals, fmt.Errorf("%w: non-finite endpoint in [%g, %g]", optics.ErrRootBracket, xa, xb)
	}
	if fpre*fcur > 0 {
		return 0, evals, fmt.Errorf("%w: no sign change in [%g, %g]", optics.ErrRootBracket, xa, xb)
	}
	if fpre == 0 {
		return xpre, evals, nil
	}
	if fcur == 0 {
		return xcur, evals, nil
	}

	for i := 0; i < maxIter; i++ {
		if fpre != 0 && fcur != 0 && math.Signbit(fpre) != math.Signbit(fcur) {
			xblk, fblk = xpre, fpre
			spre = xcur - xpre
			scur = spre
		}
		if math.Abs(fblk) < math.Abs(fcur) {
			xpre, xcur, xblk = xcur, xblk, xcur
			fpre, fcur, fblk = fcur, fblk, fcur
		}

		delta := (xtol + rtol*math.Abs(xcur)) / 2
		sbis := (xblk - xcur) / 2
		if fcur == 0 || math.Abs(sbis) < delta {
			return xcur, evals, nil
		}

		if math.Abs(spre) > delta && math.Abs(fcur) < math.Abs(fpre) {
			var stry float64
			if xpre == xblk {
				// secant
				stry = -fcur * (xcur - xpre) / (fcur - fpre)
			} else {
				// inverse quadratic
				dpre := (fpre - fcur) / (xpre - xcur)
				dblk := (fblk - fcur) / (xblk - xcur)
				stry = -fcur * (fblk*dblk - fpre*dpre) / (dblk * dpre * (fblk - fpre))
			}

			if 2*math.Abs(stry) < math.Min(math.Abs(spre), 3*math.Abs(sbis)-delta) {
				spre, scur = scur, stry
			} else {
				spre, scur = sbis, sbis
			}
		} else {
			spre, scur = sbis, sbis
		}

		xpre, fpre = xcur, fcur
		if math.Abs(scur) > delta {
			xcur += scur
		} else if sbis > 0 {
			xcur += delta
		} else {
			xcur -= delta
		}

		fcur = f(xcur)
		evals++
		if math.IsNaN(fcur) {
			return 0, evals, fmt.Errorf("%w: non-finite value at %g", optics.ErrRootBracket, xcur)
		}
	}

	return 0, evals, fmt.Errorf("%w: no convergence in %d iterations on [%g, %g]", optics.ErrRootBracket, maxIter, xa, xb)
}

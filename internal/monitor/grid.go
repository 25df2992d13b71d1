package monitor

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/fiberpol/internal/optics"
)

// Grid is a combined measurement in the frame where the scattered light
// travels along +z': x' = u_y, y' = −u_z.
type Grid struct {
	D  int
	XP []float64 // column coordinate
	YP []float64 // row coordinate
	Es [][]complex128
	Ep [][]complex128
}

// Combine merges the four exports of one measurement. The direction cosines
// are taken from the Ep real export. Each complex grid is transposed and
// row-reversed relative to the file.
func Combine(esRe, esIm, epRe, epIm *File) (*Grid, error) {
	d := epRe.Divisions()
	for i, f := range []*File{esRe, esIm, epIm} {
		if f.Divisions() != d {
			return nil, fmt.Errorf("%w: export %d has %d divisions, want %d", ErrMalformed, i, f.Divisions(), d)
		}
	}

	g := &Grid{
		D:  d,
		XP: append([]float64(nil), epRe.UY...),
		YP: make([]float64, d),
		Es: arrange(esRe.Values, esIm.Values),
		Ep: arrange(epRe.Values, epIm.Values),
	}
	for i, u := range epRe.UZ {
		g.YP[i] = -u
	}
	return g, nil
}

// arrange builds (re + i·im)ᵀ with its rows reversed.
func arrange(re, im [][]float64) [][]complex128 {
	d := len(re)
	out := make([][]complex128, d)
	for k := 0; k < d; k++ {
		row := make([]complex128, d)
		src := d - 1 - k
		for m := 0; m < d; m++ {
			row[m] = complex(re[m][src], im[m][src])
		}
		out[k] = row
	}
	return out
}

// Angles returns the polar angle Θ and azimuth Φ of grid point (k, m).
// Points outside the unit sphere have NaN Θ.
func (g *Grid) Angles(k, m int) (theta, phi float64) {
	x, y := g.XP[m], g.YP[k]
	z := math.Sqrt(1 - x*x - y*y)
	return math.Atan2(math.Hypot(x, y), z), math.Atan2(y, x)
}

// Sample is the field at one grid point projected onto the analyzer axes.
type Sample struct {
	Row, Col int
	Theta    float64
	Phi      float64
	Es, Ep   complex128
	Ey, Ez   complex128
}

// At projects the spherical components at (k, m) onto y and z:
//
//	Ey = Ep cosΘ cosΦ − Es sinΦ
//	Ez = −(Ep cosΘ sinΦ + Es cosΦ)
func (g *Grid) At(k, m int) Sample {
	theta, phi := g.Angles(k, m)
	es, ep := g.Es[k][m], g.Ep[k][m]

	ct := complex(math.Cos(theta), 0)
	sp, cp := math.Sincos(phi)
	csp, ccp := complex(sp, 0), complex(cp, 0)

	return Sample{
		Row:   k,
		Col:   m,
		Theta: theta,
		Phi:   phi,
		Es:    es,
		Ep:    ep,
		Ey:    ep*ct*ccp - es*csp,
		Ez:    -(ep*ct*csp + es*ccp),
	}
}

// CenterIndex is the index of the origin, or of the nearest point past it
// when D is even.
func (g *Grid) CenterIndex() int {
	return g.D / 2
}

// OnAxis returns the sample on the optical axis.
func (g *Grid) OnAxis() Sample {
	c := g.CenterIndex()
	return g.At(c, c)
}

// Side is where the monitor sits relative to the incident beam.
type Side int

const (
	Opposite Side = iota
	Same
)

func (s Side) String() string {
	if s == Same {
		return "same"
	}
	return "opposite"
}

// Direction is the propagation direction of the guided mode that reaches a
// monitor on this side.
func (s Side) Direction() optics.Direction {
	if s == Same {
		return optics.Forward
	}
	return optics.Backward
}

func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "opposite":
		return Opposite, nil
	case "same":
		return Same, nil
	}
	return Opposite, fmt.Errorf("%w: unknown monitor side %q", optics.ErrInvalidConfig, s)
}

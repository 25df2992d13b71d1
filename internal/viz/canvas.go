package viz

import (
	"math"
	"strings"

	"github.com/san-kum/fiberpol/internal/optics"
)

const brailleBlank = 0x2800

// Braille cell dot bits, indexed [row][col] within the 2x4 cell.
var dotBits = [4][2]rune{
	{0x01, 0x08},
	{0x02, 0x10},
	{0x04, 0x20},
	{0x40, 0x80},
}

// Canvas is a character grid where every cell holds 2x4 Braille dots, so the
// addressable resolution is (2*Width) x (4*Height).
type Canvas struct {
	Width, Height int
	cells         [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{Width: w, Height: h, cells: make([][]rune, h)}
	for i := range c.cells {
		c.cells[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

// Set lights the dot at sub-cell coordinates (x, y); out of range is ignored.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	c.cells[row][col] |= dotBits[y%4][x%2]
}

// IsSet reports whether the dot at (x, y) is lit.
func (c *Canvas) IsSet(x, y int) bool {
	if x < 0 || y < 0 || x/2 >= c.Width || y/4 >= c.Height {
		return false
	}
	return c.cells[y/4][x/2]&dotBits[y%4][x%2] != 0
}

func (c *Canvas) Clear() {
	for i := range c.cells {
		for j := range c.cells[i] {
			c.cells[i][j] = brailleBlank
		}
	}
}

// Line draws from (x0, y0) to (x1, y1) with Bresenham's algorithm.
func (c *Canvas) Line(x0, y0, x1, y1 int) {
	dx, dy := absInt(x1-x0), absInt(y1-y0)
	sx, sy := -1, -1
	if x0 < x1 {
		sx = 1
	}
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy
	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for i, row := range c.cells {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(string(row))
	}
	return b.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Ellipse draws the polarization ellipse of s on a w x h cell canvas with
// the z axis horizontal and y vertical. Orientation is ½·atan2(s2, s1) and
// ellipticity ½·asin(s3); a dimmed cross marks the axes.
func Ellipse(s optics.Stokes, w, h int) string {
	c := NewCanvas(w, h)
	pw, ph := 2*w, 4*h
	cx, cy := float64(pw-1)/2, float64(ph-1)/2
	r := math.Min(cx, cy) * 0.9

	for x := 0; x < pw; x += 4 {
		c.Set(x, int(cy+0.5))
	}
	for y := 0; y < ph; y += 4 {
		c.Set(int(cx+0.5), y)
	}

	psi := 0.5 * math.Atan2(s.S2, s.S1)
	chi := 0.5 * math.Asin(math.Max(-1, math.Min(1, s.S3)))
	sp, cp := math.Sincos(psi)
	a, b := math.Cos(chi), math.Sin(chi)

	const steps = 96
	var px, py int
	for i := 0; i <= steps; i++ {
		st, ct := math.Sincos(2 * math.Pi * float64(i) / steps)
		u, v := a*ct, b*st
		x := int(cx + r*(u*cp-v*sp) + 0.5)
		y := int(cy - r*(u*sp+v*cp) + 0.5)
		if i > 0 {
			c.Line(px, py, x, y)
		}
		px, py = x, y
	}
	return c.String()
}

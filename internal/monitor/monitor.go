// Package monitor reads far-field monitor exports from an FDTD solver and
// extracts the transverse field on the optical axis.
//
// Each export is a text file with a fixed positional layout for a monitor of
// D divisions (line numbers 1-based):
//
//	1..3           header
//	4..3+D         u_z direction cosines, one per line
//	4+D..5+D       header
//	6+D..5+2D      u_y direction cosines, one per line
//	6+2D..7+2D     header
//	8+2D..7+3D     D rows of D whitespace-separated values
//
// A complete measurement is four exports: the real and imaginary parts of
// the s- and p-polarized components.
package monitor

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultDivisions is the monitor resolution used when none is configured.
const DefaultDivisions = 201

// ErrMalformed indicates an export that does not match the expected layout.
var ErrMalformed = errors.New("monitor: malformed export")

// File is one parsed export.
type File struct {
	UZ     []float64
	UY     []float64
	Values [][]float64 // rows as they appear in the file
}

func (f *File) Divisions() int { return len(f.UZ) }

// Parse reads an export with d divisions.
func Parse(r io.Reader, d int) (*File, error) {
	if d < 1 {
		return nil, fmt.Errorf("%w: division count must be positive, got %d", ErrMalformed, d)
	}

	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		lines = append(lines, strings.TrimSpace(sc.Text()))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read monitor export: %w", err)
	}

	need := 7 + 3*d
	if len(lines) < need {
		return nil, fmt.Errorf("%w: %d lines, need %d for %d divisions", ErrMalformed, len(lines), need, d)
	}

	uz, err := readColumn(lines, 4, d)
	if err != nil {
		return nil, err
	}
	uy, err := readColumn(lines, 6+d, d)
	if err != nil {
		return nil, err
	}

	values := make([][]float64, d)
	for i := 0; i < d; i++ {
		lineNo := 8 + 2*d + i
		fields := strings.Fields(lines[lineNo-1])
		if len(fields) != d {
			return nil, fmt.Errorf("%w: line %d has %d values, want %d", ErrMalformed, lineNo, len(fields), d)
		}
		row := make([]float64, d)
		for j, s := range fields {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, lineNo, err)
			}
			row[j] = v
		}
		values[i] = row
	}

	return &File{UZ: uz, UY: uy, Values: values}, nil
}

// ParseString parses export content held in memory.
func ParseString(s string, d int) (*File, error) {
	return Parse(strings.NewReader(s), d)
}

// readColumn reads d single-value lines starting at 1-based line start.
func readColumn(lines []string, start, d int) ([]float64, error) {
	out := make([]float64, d)
	for i := 0; i < d; i++ {
		lineNo := start + i
		v, err := strconv.ParseFloat(lines[lineNo-1], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, lineNo, err)
		}
		out[i] = v
	}
	return out, nil
}

// FileNames names the four exports of one measurement inside a directory.
type FileNames struct {
	EsReal string `yaml:"es_real" json:"EsRealName"`
	EsImag string `yaml:"es_imag" json:"EsImagName"`
	EpReal string `yaml:"ep_real" json:"EpRealName"`
	EpImag string `yaml:"ep_imag" json:"EpImagName"`
}

func DefaultFileNames() FileNames {
	return FileNames{
		EsReal: "Es_real.txt",
		EsImag: "Es_imag.txt",
		EpReal: "Ep_real.txt",
		EpImag: "Ep_imag.txt",
	}
}

// Contents is the raw text of the four exports.
type Contents struct {
	EsReal, EsImag, EpReal, EpImag string
}

// ParseContents parses four in-memory exports and combines them.
func ParseContents(c Contents, d int) (*Grid, error) {
	parts := [4]string{c.EsReal, c.EsImag, c.EpReal, c.EpImag}
	names := [4]string{"Es real", "Es imag", "Ep real", "Ep imag"}

	var files [4]*File
	for i, s := range parts {
		f, err := ParseString(s, d)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", names[i], err)
		}
		files[i] = f
	}
	return Combine(files[0], files[1], files[2], files[3])
}

// LoadDir reads the four exports named by names from dir.
func LoadDir(dir string, names FileNames, d int) (*Grid, error) {
	paths := [4]string{names.EsReal, names.EsImag, names.EpReal, names.EpImag}

	var c [4]string
	for i, name := range paths {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read monitor export: %w", err)
		}
		c[i] = string(data)
	}
	return ParseContents(Contents{EsReal: c[0], EsImag: c[1], EpReal: c[2], EpImag: c[3]}, d)
}

package fiber

import (
	"fmt"
	"sync"
)

// ModeCache memoizes eigenvalues per ModeKey. A changed wavelength or radius
// changes V and therefore the key, so stale roots are never reused. Safe for
// concurrent use.
type ModeCache struct {
	mu      sync.Mutex
	solver  *Solver
	entries map[ModeKey]float64
}

func NewModeCache(solver *Solver) *ModeCache {
	if solver == nil {
		solver = NewSolver()
	}
	return &ModeCache{
		solver:  solver,
		entries: make(map[ModeKey]float64),
	}
}

// Eigenvalue returns U for the guide, solving on first use of its key.
func (c *ModeCache) Eigenvalue(w Waveguide) (float64, error) {
	if err := w.Validate(); err != nil {
		return 0, err
	}

	key := w.Key()

	c.mu.Lock()
	defer c.mu.Unlock()

	if u, ok := c.entries[key]; ok {
		return u, nil
	}

	u, err := c.solver.Solve(key.V, key.N, key.L, key.CoreIndex, key.CladIndex)
	if err != nil {
		return 0, fmt.Errorf("solve eigenvalue: %w", err)
	}
	c.entries[key] = u
	return u, nil
}

// Mode solves (or recalls) the eigenvalue and builds the field evaluator.
func (c *ModeCache) Mode(w Waveguide) (Mode, error) {
	u, err := c.Eigenvalue(w)
	if err != nil {
		return Mode{}, err
	}
	return NewMode(w, u), nil
}

func (c *ModeCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

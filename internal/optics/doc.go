// Package optics provides the shared primitives of the nanofiber scattering
// pipeline.
//
// The package defines the value types that flow between the solver, the field
// evaluator, the Jones-calculus analyzer and the fitter:
//
//   - [FieldVector]: complex electric field (Ex, Ey, Ez) at one point
//   - [PolarField]: the same field in the local polar frame (Er, Eθ, Ez)
//   - [Stokes]: normalized Stokes parameters of a pure state
//   - [Trace]: rotating quarter-wave-plate intensity versus plate angle
//   - [FitResult]: best-fit scatterer angle and the state it predicts
//
// It also holds the domain errors shared by every stage and [ParallelFor],
// the chunked worker helper used for sample sweeps.
//
// # Units
//
// Lengths are in metres and angles in radians. Degree conversion belongs to
// the caller (the HTTP layer converts at its own boundary).
//
// # Thread Safety
//
// Every type here is a plain value. Functions are safe for concurrent use.
package optics

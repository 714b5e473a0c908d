// Package boolean wraps kernel.Kernel's boolean operations and Offset
// into timeout-bounded, fuzzy-tolerance-aware calls. It is the layer
// pkg/classify and pkg/imprint build on; neither of those packages talks
// to kernel.Kernel directly.
package boolean

import (
	"context"
	"fmt"
	"time"

	"github.com/chazu/solidprep/pkg/errs"
	"github.com/chazu/solidprep/pkg/geom"
	"github.com/chazu/solidprep/pkg/kernel"
)

// negativeVolumeRatio bounds how negative a common-volume computation may
// come back before it is treated as a kernel/mesh defect rather than a
// touching-solids signal. Pinned at 10% of the smaller cut volume,
// matching the workaround in this pipeline's original implementation.
const negativeVolumeRatio = 0.1

// Result is the outcome of one driver call.
type Result struct {
	Shape      kernel.Solid
	FuzzyValue float64
	Elapsed    time.Duration
	Warnings   []string
}

// Driver performs fuzzy-tolerance-aware boolean operations against a
// single kernel.Kernel backend.
type Driver struct {
	Kernel kernel.Kernel
}

// New returns a Driver backed by k.
func New(k kernel.Kernel) *Driver {
	return &Driver{Kernel: k}
}

// callResult carries the outcome of one goroutine-bound kernel call back
// to the timeout select.
type callResult struct {
	solid kernel.Solid
	err   error
}

// withTimeout runs fn in its own goroutine and races it against ctx's
// deadline. If the deadline wins, the goroutine's eventual result (if
// any) is discarded: kernel tessellation is not itself interruptible, so
// the driver does not attempt to cancel it, only to stop waiting on it.
func withTimeout(ctx context.Context, fn func() (kernel.Solid, error)) (kernel.Solid, error) {
	ch := make(chan callResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- callResult{err: fmt.Errorf("panic during kernel call: %v", r)}
			}
		}()
		s, err := fn()
		ch <- callResult{solid: s, err: err}
	}()

	select {
	case r := <-ch:
		return r.solid, r.err
	case <-ctx.Done():
		return nil, fmt.Errorf("boolean op timed out: %w", ctx.Err())
	}
}

// Intersection computes the fuzzy-tolerance-adjusted intersection of a
// and b: both are grown by fuzzy/2 (simulating a shared pave-fill
// precomputation) before intersecting, so that the "fuzzy" value behaves
// symmetrically regardless of which solid is the shape and which is the
// tool.
func (d *Driver) Intersection(ctx context.Context, a, b kernel.Solid, fuzzy float64) (Result, error) {
	start := time.Now()
	s, err := withTimeout(ctx, func() (kernel.Solid, error) {
		ga := d.Kernel.Offset(a, fuzzy/2)
		gb := d.Kernel.Offset(b, fuzzy/2)
		return d.Kernel.Intersection(ga, gb), nil
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Shape: s, FuzzyValue: fuzzy, Elapsed: time.Since(start)}, nil
}

// Difference computes Difference(a, b) under the same fuzzy growth as
// Intersection, so volumes computed from paired Intersection/Difference
// calls are directly comparable.
func (d *Driver) Difference(ctx context.Context, a, b kernel.Solid, fuzzy float64) (Result, error) {
	start := time.Now()
	s, err := withTimeout(ctx, func() (kernel.Solid, error) {
		ga := d.Kernel.Offset(a, fuzzy/2)
		gb := d.Kernel.Offset(b, fuzzy/2)
		return d.Kernel.Difference(ga, gb), nil
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Shape: s, FuzzyValue: fuzzy, Elapsed: time.Since(start)}, nil
}

// Union computes Union(a, b) with no fuzzy growth: by the time a caller
// wants to fuse two solids together (pkg/imprint), the overlap between
// them has already been resolved and growing them further would just
// reintroduce slack this driver is supposed to remove.
func (d *Driver) Union(ctx context.Context, a, b kernel.Solid) (Result, error) {
	start := time.Now()
	s, err := withTimeout(ctx, func() (kernel.Solid, error) {
		return d.Kernel.Union(a, b), nil
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Shape: s, Elapsed: time.Since(start)}, nil
}

// CommonVolume computes the intersection of a and b at fuzzy and returns
// its volume together with the (fuzzy-grown) difference volumes of each
// operand against the other. It applies the negative-common-volume
// workaround: a common volume that comes back small and negative (within
// negativeVolumeRatio of the smaller cut volume) is clamped to zero
// rather than treated as an error, because marching-cubes tessellation
// can produce a thin inverted patch when two faces sit inside the same
// fuzzy band.
func (d *Driver) CommonVolume(ctx context.Context, a, b kernel.Solid, fuzzy float64) (volCommon, volCutA, volCutB float64, warnings []string, err error) {
	common, err := d.Intersection(ctx, a, b, fuzzy)
	if err != nil {
		return 0, 0, 0, nil, err
	}
	cutA, err := d.Difference(ctx, a, b, fuzzy)
	if err != nil {
		return 0, 0, 0, nil, err
	}
	cutB, err := d.Difference(ctx, b, a, fuzzy)
	if err != nil {
		return 0, 0, 0, nil, err
	}

	volCommon, err = geom.Volume(d.Kernel, common.Shape)
	if err != nil {
		return 0, 0, 0, nil, err
	}
	volCutA, err = geom.Volume(d.Kernel, cutA.Shape)
	if err != nil {
		return 0, 0, 0, nil, err
	}
	volCutB, err = geom.Volume(d.Kernel, cutB.Shape)
	if err != nil {
		return 0, 0, 0, nil, err
	}

	if volCutA < 0 || volCutB < 0 {
		return 0, 0, 0, nil, fmt.Errorf("negative cut volume (cutA=%g cutB=%g): %w", volCutA, volCutB, errs.ErrVolumeAnomaly)
	}

	if volCommon < 0 {
		limit := negativeVolumeRatio * min(volCutA, volCutB)
		if -volCommon <= limit {
			warnings = append(warnings, fmt.Sprintf("clamped small negative common volume %g within %g of zero", volCommon, limit))
			volCommon = 0
		} else {
			return 0, 0, 0, nil, fmt.Errorf("common volume %g more negative than limit %g: %w", volCommon, limit, errs.ErrVolumeAnomaly)
		}
	}

	return volCommon, volCutA, volCutB, warnings, nil
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

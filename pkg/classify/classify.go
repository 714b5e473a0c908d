// Package classify implements the intersection classifier (this
// pipeline's decision procedure for "what is the relationship between
// these two solids"), built on pkg/boolean's fuzzy-tolerance-aware
// driver. It is a state machine per pair: try the first fuzzy value in a
// caller-supplied ladder, retry with the next on failure, and only
// declare Failed once the ladder is exhausted.
package classify

import (
	"context"
	"errors"
	"fmt"

	"github.com/chazu/solidprep/pkg/boolean"
	"github.com/chazu/solidprep/pkg/errs"
	"github.com/chazu/solidprep/pkg/geom"
	"github.com/chazu/solidprep/pkg/kernel"
)

// Status is the outcome of classifying one pair.
type Status int

const (
	Failed Status = iota
	Timeout
	Distinct
	Touching
	Overlap
)

func (s Status) String() string {
	switch s {
	case Failed:
		return "failed"
	case Timeout:
		return "timeout"
	case Distinct:
		return "distinct"
	case Touching:
		return "touching"
	case Overlap:
		return "overlap"
	default:
		return "unknown"
	}
}

// Result is the full classification outcome for one pair.
type Result struct {
	Status             Status
	VolCommon          float64
	VolCutShape        float64
	VolCutTool         float64
	FuzzyValueResolved float64
	Warnings           []string
}

// touchGrowth is the amount both solids are grown by when testing
// whether a pair that reads as Distinct at fuzzy=0 is actually Touching:
// a pair that only intersects after growing is touching, not distinct.
const touchGrowth = 1e-4

// Classify decides the relationship between shape and tool, retrying
// through ladder (an ordered list of fuzzy values, largest first by
// convention though this function does not require that order — it
// simply tries each entry until one does not fail).
func Classify(ctx context.Context, driver *boolean.Driver, shape, tool kernel.Solid, ladder []float64) Result {
	if len(ladder) == 0 {
		ladder = []float64{0}
	}

	var lastErr error
	for _, fuzzy := range ladder {
		res, err := classifyAt(ctx, driver, shape, tool, fuzzy)
		if err == nil {
			return res
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return Result{Status: Timeout}
		}
		lastErr = err
	}
	return Result{Status: Failed, Warnings: []string{fmt.Sprintf("exhausted tolerance ladder: %v", lastErr)}}
}

func classifyAt(ctx context.Context, driver *boolean.Driver, shape, tool kernel.Solid, fuzzy float64) (Result, error) {
	volCommon, volCutShape, volCutTool, warnings, err := driver.CommonVolume(ctx, shape, tool, fuzzy)
	if err != nil {
		if errors.Is(err, errs.ErrVolumeAnomaly) {
			return Result{}, err
		}
		return Result{}, err
	}

	noiseFloor := touchGrowth * touchGrowth * touchGrowth
	if volCommon > noiseFloor {
		return Result{
			Status:             Overlap,
			VolCommon:          volCommon,
			VolCutShape:        volCutShape,
			VolCutTool:         volCutTool,
			FuzzyValueResolved: fuzzy,
			Warnings:           warnings,
		}, nil
	}

	touching, terr := isTouching(ctx, driver, shape, tool)
	if terr != nil {
		return Result{}, terr
	}
	if touching {
		return Result{Status: Touching, FuzzyValueResolved: fuzzy, Warnings: warnings}, nil
	}
	return Result{Status: Distinct, FuzzyValueResolved: fuzzy, Warnings: warnings}, nil
}

// isTouching offsets both solids outward by touchGrowth and checks
// whether they now intersect. A pair whose surfaces meet exactly (shared
// vertex, edge, or face, but zero common volume) only starts to overlap
// once grown; a genuinely distinct pair still does not.
func isTouching(ctx context.Context, driver *boolean.Driver, shape, tool kernel.Solid) (bool, error) {
	grownShape := driver.Kernel.Offset(shape, touchGrowth)
	grownTool := driver.Kernel.Offset(tool, touchGrowth)

	res, err := driver.Intersection(ctx, grownShape, grownTool, 0)
	if err != nil {
		return false, err
	}
	v, err := geom.Volume(driver.Kernel, res.Shape)
	if err != nil {
		return false, err
	}
	return v > 0, nil
}

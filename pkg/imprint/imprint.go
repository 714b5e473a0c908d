// Package imprint rewrites pairs of overlapping solids so that their
// overlap region becomes a shared sub-solid of the larger of the two,
// following the fixed recipe this pipeline's original implementation
// used: intersect, cut both ways, then fuse the intersection back into
// whichever operand had the larger cut volume.
package imprint

import (
	"context"
	"fmt"

	"github.com/chazu/solidprep/pkg/boolean"
	"github.com/chazu/solidprep/pkg/kernel"
)

// Status is the outcome of imprinting one pair.
type Status int

const (
	Failed Status = iota
	Distinct
	MergedIntoShape
	MergedIntoTool
)

func (s Status) String() string {
	switch s {
	case Failed:
		return "failed"
	case Distinct:
		return "distinct"
	case MergedIntoShape:
		return "merged_into_shape"
	case MergedIntoTool:
		return "merged_into_tool"
	default:
		return "unknown"
	}
}

// Result is the outcome of imprinting one pair.
type Result struct {
	Status Status
	Shape  kernel.Solid // replacement for the first operand
	Tool   kernel.Solid // replacement for the second operand
}

// noiseFloor below which an intersection volume is treated as zero.
const noiseFloor = 1e-9

// Imprint intersects shape and tool at fuzzy, and if the intersection has
// non-trivial volume, fuses it into the larger of the two (the one with
// the smaller complementary cut volume is the "smaller" solid, so the
// fuse target is chosen by comparing cut volumes, not the raw input
// volumes — a thin solid overlapping a small fraction of a huge one
// still "loses" to the huge one here). Both original solids are left
// untouched; replacements are returned by value.
func Imprint(ctx context.Context, driver *boolean.Driver, shape, tool kernel.Solid, fuzzy float64) (Result, error) {
	volCommon, volCutShape, volCutTool, _, err := driver.CommonVolume(ctx, shape, tool, fuzzy)
	if err != nil {
		return Result{}, fmt.Errorf("imprint: %w", err)
	}

	if volCommon <= noiseFloor {
		return Result{Status: Distinct, Shape: shape, Tool: tool}, nil
	}

	commonRes, err := driver.Intersection(ctx, shape, tool, fuzzy)
	if err != nil {
		return Result{}, fmt.Errorf("imprint: recompute common: %w", err)
	}

	if volCutShape >= volCutTool {
		// tool is the smaller solid; fuse common into shape.
		fused, err := driver.Union(ctx, shape, commonRes.Shape)
		if err != nil {
			return Result{}, fmt.Errorf("imprint: fuse into shape: %w", err)
		}
		cutTool, err := driver.Difference(ctx, tool, shape, fuzzy)
		if err != nil {
			return Result{}, fmt.Errorf("imprint: cut tool: %w", err)
		}
		return Result{Status: MergedIntoShape, Shape: fused.Shape, Tool: cutTool.Shape}, nil
	}

	fused, err := driver.Union(ctx, tool, commonRes.Shape)
	if err != nil {
		return Result{}, fmt.Errorf("imprint: fuse into tool: %w", err)
	}
	cutShape, err := driver.Difference(ctx, shape, tool, fuzzy)
	if err != nil {
		return Result{}, fmt.Errorf("imprint: cut shape: %w", err)
	}
	return Result{Status: MergedIntoTool, Shape: cutShape.Shape, Tool: fused.Shape}, nil
}

package imprint

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/chazu/solidprep/pkg/boolean"
	"github.com/chazu/solidprep/pkg/geom"
	"github.com/chazu/solidprep/pkg/kernel"
	"github.com/chazu/solidprep/pkg/kernel/sdfx"
)

func withCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestImprintDistinctCubesUnchanged(t *testing.T) {
	k := sdfx.New()
	d := boolean.New(k)
	shape := k.Box(10, 10, 10)
	tool := k.Translate(k.Box(10, 10, 10), 100, 0, 0)

	r, err := Imprint(withCtx(t), d, shape, tool, 0.001)
	if err != nil {
		t.Fatalf("Imprint() error = %v", err)
	}
	if r.Status != Distinct {
		t.Fatalf("Status = %v, want Distinct", r.Status)
	}
}

func TestImprintCornerOverlapMergesIntoLarger(t *testing.T) {
	k := sdfx.New()
	d := boolean.New(k)
	big := k.Box(10, 10, 10)
	// Small corner-overlapping cube: mostly outside big, small sliver inside.
	small := k.Translate(k.Box(4, 4, 4), 8, 8, 8)

	r, err := Imprint(withCtx(t), d, big, small, 0.001)
	if err != nil {
		t.Fatalf("Imprint() error = %v", err)
	}
	if r.Status != MergedIntoShape && r.Status != MergedIntoTool {
		t.Fatalf("Status = %v, want a merge outcome", r.Status)
	}

	volBig, err := geom.Volume(k, big)
	if err != nil {
		t.Fatalf("Volume(big) error = %v", err)
	}
	volShape, err := geom.Volume(k, r.Shape)
	if err != nil {
		t.Fatalf("Volume(shape') error = %v", err)
	}
	volTool, err := geom.Volume(k, r.Tool)
	if err != nil {
		t.Fatalf("Volume(tool') error = %v", err)
	}

	// Monotonic total volume: shape' + tool' should be close to the
	// pre-imprint total once accounting for the shared overlap only
	// being counted once.
	preTotal := math.Abs(volBig) + 64 // small cube nominal volume
	postTotal := math.Abs(volShape) + math.Abs(volTool)
	if math.Abs(postTotal-preTotal) > 0.1*preTotal {
		t.Errorf("post-imprint total volume %f too far from pre-imprint total %f", postTotal, preTotal)
	}
}

func TestImprintMiddleOverlapNoVolumeCreatedOrDestroyed(t *testing.T) {
	k := sdfx.New()
	d := boolean.New(k)
	a := k.Box(10, 10, 10)
	b := k.Translate(k.Box(10, 10, 10), 5, 0, 0)

	volA, _ := geom.Volume(k, a)
	volB, _ := geom.Volume(k, b)

	r, err := Imprint(withCtx(t), d, a, b, 0.001)
	if err != nil {
		t.Fatalf("Imprint() error = %v", err)
	}
	if r.Status == Failed {
		t.Fatal("Status = Failed")
	}

	var total float64
	if r.Status != Distinct {
		vs, _ := geom.Volume(k, r.Shape)
		vt, _ := geom.Volume(k, r.Tool)
		total = math.Abs(vs) + math.Abs(vt)
		preTotal := math.Abs(volA) + math.Abs(volB)
		if math.Abs(total-preTotal) > 0.1*preTotal {
			t.Errorf("post total %f too far from pre total %f", total, preTotal)
		}
	}
}

var _ kernel.Kernel = sdfx.New()

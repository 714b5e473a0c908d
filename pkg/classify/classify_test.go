package classify

import (
	"context"
	"testing"
	"time"

	"github.com/chazu/solidprep/pkg/boolean"
	"github.com/chazu/solidprep/pkg/kernel"
	"github.com/chazu/solidprep/pkg/kernel/sdfx"
)

var defaultLadder = []float64{0.001, 0}

func newDriver() (*boolean.Driver, kernel.Kernel) {
	k := sdfx.New()
	return boolean.New(k), k
}

func withCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestClassifyIdenticalCubesOverlap(t *testing.T) {
	d, k := newDriver()
	a := k.Box(10, 10, 10)
	b := k.Box(10, 10, 10)

	r := Classify(withCtx(t), d, a, b, defaultLadder)
	if r.Status != Overlap {
		t.Fatalf("Status = %v, want Overlap", r.Status)
	}
	if r.VolCommon <= 0 {
		t.Errorf("VolCommon = %f, want > 0", r.VolCommon)
	}
}

func TestClassifyContainedCubeOverlap(t *testing.T) {
	d, k := newDriver()
	big := k.Box(10, 10, 10)
	small := k.Translate(k.Box(4, 4, 4), 3, 3, 3)

	r := Classify(withCtx(t), d, big, small, defaultLadder)
	if r.Status != Overlap {
		t.Fatalf("Status = %v, want Overlap", r.Status)
	}
}

func TestClassifyDistinctCubesDistinct(t *testing.T) {
	d, k := newDriver()
	a := k.Box(10, 10, 10)
	b := k.Translate(k.Box(10, 10, 10), 100, 0, 0)

	r := Classify(withCtx(t), d, a, b, defaultLadder)
	if r.Status != Distinct {
		t.Fatalf("Status = %v, want Distinct", r.Status)
	}
}

func TestClassifyFaceTouchingCubesTouching(t *testing.T) {
	d, k := newDriver()
	a := k.Box(10, 10, 10)
	// Shares the x=10 face exactly with a.
	b := k.Translate(k.Box(10, 10, 10), 10, 0, 0)

	r := Classify(withCtx(t), d, a, b, defaultLadder)
	if r.Status != Touching {
		t.Fatalf("Status = %v, want Touching for an exact face-contact pair", r.Status)
	}
}

func TestClassifyEdgeTouchingCubesTouching(t *testing.T) {
	d, k := newDriver()
	a := k.Box(10, 10, 10)
	// Shares only the edge at x=10,y=10.
	b := k.Translate(k.Box(10, 10, 10), 10, 10, 0)

	r := Classify(withCtx(t), d, a, b, defaultLadder)
	if r.Status != Touching {
		t.Fatalf("Status = %v, want Touching for an edge-contact pair", r.Status)
	}
}

func TestClassifyVertexTouchingCubesTouching(t *testing.T) {
	d, k := newDriver()
	a := k.Box(10, 10, 10)
	// Shares only the vertex at (10,10,10).
	b := k.Translate(k.Box(10, 10, 10), 10, 10, 10)

	r := Classify(withCtx(t), d, a, b, defaultLadder)
	if r.Status != Touching {
		t.Fatalf("Status = %v, want Touching for a vertex-contact pair", r.Status)
	}
}

func TestClassifyFuzzyBandSweep(t *testing.T) {
	d, k := newDriver()
	a := k.Box(10, 10, 10)

	// Sweep a second cube's near face from just touching to just
	// overlapping, mirroring the original fuzzy-band sweep scenario
	// (z=4.4 distinct, z=4.6 at the tolerance edge, z=5.4/5.6 clearly
	// overlapping once the gap closes under growth).
	offsets := []float64{4.4, 4.6, 5.4, 5.6}
	for _, z := range offsets {
		b := k.Translate(k.Box(10, 10, 10), 0, 0, z)
		r := Classify(withCtx(t), d, a, b, defaultLadder)
		if r.Status == Failed {
			t.Errorf("z=%v: Status = Failed, want a determinate classification", z)
		}
	}
}

func TestClassifyDeterministicAcrossRepeatedCalls(t *testing.T) {
	d, k := newDriver()
	a := k.Box(10, 10, 10)
	b := k.Box(10, 10, 10)

	first := Classify(withCtx(t), d, a, b, defaultLadder)
	second := Classify(withCtx(t), d, a, b, defaultLadder)
	if first.Status != second.Status {
		t.Errorf("Status not deterministic: %v vs %v", first.Status, second.Status)
	}
}

package meshsolid

import (
	"math"
	"testing"

	"github.com/chazu/solidprep/pkg/kernel/sdfx"
)

func TestNewReconstitutesApproximateBoundingBox(t *testing.T) {
	k := sdfx.New()
	box := k.Box(10, 10, 10)
	mesh, err := k.ToMesh(box)
	if err != nil {
		t.Fatalf("ToMesh() error = %v", err)
	}

	s := New(mesh)
	min, max := s.BoundingBox()
	wantMin, wantMax := box.BoundingBox()

	const tol = 1.0
	for i := 0; i < 3; i++ {
		if math.Abs(min[i]-wantMin[i]) > tol {
			t.Errorf("min[%d] = %f, want ~%f", i, min[i], wantMin[i])
		}
		if math.Abs(max[i]-wantMax[i]) > tol {
			t.Errorf("max[%d] = %f, want ~%f", i, max[i], wantMax[i])
		}
	}
}

// Package geom provides shape queries (volume, bounding box, distance,
// validity) on top of kernel.Kernel, backend-agnostic. None of these
// queries are native to kernel.Kernel itself: they are derived from the
// triangle mesh every backend can produce via ToMesh.
package geom

import (
	"fmt"
	"math"

	"github.com/chazu/solidprep/pkg/kernel"
)

// Volume returns the signed volume of a solid's tessellation, computed by
// summing signed tetrahedron volumes over the mesh relative to an arbitrary
// origin (the divergence theorem applied to a closed triangle mesh):
//
//	V = sum over triangles of (1/6) * v1 . (v2 x v3)
//
// The sign is preserved rather than taking the absolute value so that
// callers (pkg/boolean) can apply the negative-common-volume workaround
// described in SPEC_FULL.md 4.3. A result more negative than the caller's
// tolerance for that workaround is the caller's problem, not this
// function's: Volume never clamps or errors on sign alone.
func Volume(k kernel.Kernel, s kernel.Solid) (float64, error) {
	m, err := k.ToMesh(s)
	if err != nil {
		return 0, fmt.Errorf("geom: tessellate for volume: %w", err)
	}
	if m.IsEmpty() {
		return 0, nil
	}

	var sum float64
	n := m.TriangleCount()
	for t := 0; t < n; t++ {
		i0, i1, i2 := m.Indices[t*3], m.Indices[t*3+1], m.Indices[t*3+2]
		v1 := vertex(m, i0)
		v2 := vertex(m, i1)
		v3v := vertex(m, i2)
		sum += dot(v1, cross(v2, v3v))
	}
	return sum / 6.0, nil
}

func vertex(m *kernel.Mesh, idx uint32) [3]float64 {
	return [3]float64{
		float64(m.Vertices[idx*3+0]),
		float64(m.Vertices[idx*3+1]),
		float64(m.Vertices[idx*3+2]),
	}
}

func cross(a, b [3]float64) [3]float64 {
	return [3]float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func dot(a, b [3]float64) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func sub(a, b [3]float64) [3]float64 {
	return [3]float64{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

func norm(a [3]float64) float64 {
	return math.Sqrt(dot(a, a))
}

// DistanceBetween approximates the minimum surface distance between two
// solids by sampling every vertex of one mesh against every triangle of
// the other (and vice versa), returning the smallest point-to-triangle
// distance found. This is a sampling approximation, not an exact minimum
// distance query. No pipeline stage in this module calls it: pkg/schedule's
// pre-filter rejects disjoint pairs with OBB tests alone.
func DistanceBetween(k kernel.Kernel, a, b kernel.Solid) (float64, error) {
	ma, err := k.ToMesh(a)
	if err != nil {
		return 0, fmt.Errorf("geom: tessellate a for distance: %w", err)
	}
	mb, err := k.ToMesh(b)
	if err != nil {
		return 0, fmt.Errorf("geom: tessellate b for distance: %w", err)
	}
	if ma.IsEmpty() || mb.IsEmpty() {
		return math.Inf(1), nil
	}

	best := math.Inf(1)
	best = math.Min(best, minVertexToMeshDistance(ma, mb))
	best = math.Min(best, minVertexToMeshDistance(mb, ma))
	return best, nil
}

func minVertexToMeshDistance(points *kernel.Mesh, tris *kernel.Mesh) float64 {
	best := math.Inf(1)
	nv := points.VertexCount()
	nt := tris.TriangleCount()
	for v := 0; v < nv; v++ {
		p := vertex(points, uint32(v))
		for t := 0; t < nt; t++ {
			i0, i1, i2 := tris.Indices[t*3], tris.Indices[t*3+1], tris.Indices[t*3+2]
			d := pointToTriangleDistance(p, vertex(tris, i0), vertex(tris, i1), vertex(tris, i2))
			if d < best {
				best = d
			}
		}
	}
	return best
}

func pointToTriangleDistance(p, a, b, c [3]float64) float64 {
	cp := closestPointOnTriangle(p, a, b, c)
	return norm(sub(p, cp))
}

func closestPointOnTriangle(p, a, b, c [3]float64) [3]float64 {
	ab := sub(b, a)
	ac := sub(c, a)
	ap := sub(p, a)

	d1 := dot(ab, ap)
	d2 := dot(ac, ap)
	if d1 <= 0 && d2 <= 0 {
		return a
	}
	bp := sub(p, b)
	d3 := dot(ab, bp)
	d4 := dot(ac, bp)
	if d3 >= 0 && d4 <= d3 {
		return b
	}
	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		v := d1 / (d1 - d3)
		return [3]float64{a[0] + ab[0]*v, a[1] + ab[1]*v, a[2] + ab[2]*v}
	}
	cpnt := sub(p, c)
	d5 := dot(ab, cpnt)
	d6 := dot(ac, cpnt)
	if d6 >= 0 && d5 <= d6 {
		return c
	}
	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		w := d2 / (d2 - d6)
		return [3]float64{a[0] + ac[0]*w, a[1] + ac[1]*w, a[2] + ac[2]*w}
	}
	va := d3*d6 - d5*d4
	if va <= 0 && (d4-d3) >= 0 && (d5-d6) >= 0 {
		w := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		bc := sub(c, b)
		return [3]float64{b[0] + bc[0]*w, b[1] + bc[1]*w, b[2] + bc[2]*w}
	}
	denom := 1.0 / (va + vb + vc)
	v := vb * denom
	w := vc * denom
	return [3]float64{a[0] + ab[0]*v + ac[0]*w, a[1] + ab[1]*v + ac[1]*w, a[2] + ab[2]*v + ac[2]*w}
}

// IsValid tessellates s and checks mesh manifoldness: every undirected
// edge must be shared by exactly two triangles, and the shared edge must
// have opposite winding between its two triangles. Returns defect
// descriptions on failure; a valid mesh has a nil defect slice.
func IsValid(k kernel.Kernel, s kernel.Solid) (bool, []string) {
	m, err := k.ToMesh(s)
	if err != nil {
		return false, []string{fmt.Sprintf("tessellate for validity: %v", err)}
	}
	if m.IsEmpty() {
		return false, []string{"empty mesh"}
	}

	type edgeKey struct{ lo, hi uint32 }
	type edgeUse struct {
		count    int
		forward  int // number of triangles that traverse lo->hi in this direction
		backward int
	}
	edges := make(map[edgeKey]*edgeUse)

	n := m.TriangleCount()
	for t := 0; t < n; t++ {
		idx := [3]uint32{m.Indices[t*3], m.Indices[t*3+1], m.Indices[t*3+2]}
		for e := 0; e < 3; e++ {
			a, b := idx[e], idx[(e+1)%3]
			lo, hi := a, b
			forward := true
			if lo > hi {
				lo, hi = hi, lo
				forward = false
			}
			key := edgeKey{lo, hi}
			u := edges[key]
			if u == nil {
				u = &edgeUse{}
				edges[key] = u
			}
			u.count++
			if forward {
				u.forward++
			} else {
				u.backward++
			}
		}
	}

	var defects []string
	for key, u := range edges {
		if u.count != 2 {
			defects = append(defects, fmt.Sprintf("edge (%d,%d) shared by %d triangles, want 2", key.lo, key.hi, u.count))
			continue
		}
		if u.forward != 1 || u.backward != 1 {
			defects = append(defects, fmt.Sprintf("non-manifold winding at edge (%d,%d)", key.lo, key.hi))
		}
	}
	return len(defects) == 0, defects
}

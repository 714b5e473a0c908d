// Package meshsolid reconstitutes a kernel.Solid from a plain triangle
// mesh, the representation a solid-set file stores on disk. It has no
// boolean-operation machinery of its own: it builds a signed-distance
// field over the mesh and hands that to the sdfx backend, so that a
// loaded solid can be used in Union/Difference/Intersection/Offset calls
// exactly like any primitive created by kernel.Kernel.Box/Cylinder.
package meshsolid

import (
	"math"

	"github.com/chazu/solidprep/pkg/kernel"
	"github.com/chazu/solidprep/pkg/kernel/sdfx"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// meshSDF3 implements sdf.SDF3 by evaluating the signed distance to the
// nearest triangle of a fixed mesh. The sign is determined by the dot
// product between the query-to-closest-point vector and the triangle's
// face normal, which is reliable away from sharp concave features and
// adequate for the small offsets this system applies.
type meshSDF3 struct {
	tris   [][3]v3.Vec
	normal []v3.Vec
	bb     sdf.Box3
}

// New builds a kernel.Solid from a triangle mesh loaded from a solid-set
// file. Degenerate triangles (zero-area) are skipped.
func New(m *kernel.Mesh) kernel.Solid {
	n := m.TriangleCount()
	tris := make([][3]v3.Vec, 0, n)
	normals := make([]v3.Vec, 0, n)

	var bbMin, bbMax v3.Vec
	first := true

	for t := 0; t < n; t++ {
		i0, i1, i2 := m.Indices[t*3], m.Indices[t*3+1], m.Indices[t*3+2]
		a := vertexAt(m, i0)
		b := vertexAt(m, i1)
		c := vertexAt(m, i2)

		e1 := b.Sub(a)
		e2 := c.Sub(a)
		nrm := e1.Cross(e2)
		if nrm.Length() < 1e-12 {
			continue
		}
		nrm = nrm.Normalize()

		tris = append(tris, [3]v3.Vec{a, b, c})
		normals = append(normals, nrm)

		for _, p := range [3]v3.Vec{a, b, c} {
			if first {
				bbMin, bbMax = p, p
				first = false
				continue
			}
			bbMin = v3.Vec{X: math.Min(bbMin.X, p.X), Y: math.Min(bbMin.Y, p.Y), Z: math.Min(bbMin.Z, p.Z)}
			bbMax = v3.Vec{X: math.Max(bbMax.X, p.X), Y: math.Max(bbMax.Y, p.Y), Z: math.Max(bbMax.Z, p.Z)}
		}
	}

	s := &meshSDF3{tris: tris, normal: normals, bb: sdf.Box3{Min: bbMin, Max: bbMax}}
	return sdfx.WrapSDF3(s)
}

func vertexAt(m *kernel.Mesh, idx uint32) v3.Vec {
	return v3.Vec{
		X: float64(m.Vertices[idx*3+0]),
		Y: float64(m.Vertices[idx*3+1]),
		Z: float64(m.Vertices[idx*3+2]),
	}
}

// BoundingBox returns the precomputed mesh bounding box.
func (s *meshSDF3) BoundingBox() sdf.Box3 {
	return s.bb
}

// Evaluate returns the approximate signed distance from p to the mesh
// surface: negative inside, positive outside.
func (s *meshSDF3) Evaluate(p v3.Vec) float64 {
	best := math.Inf(1)
	var bestSign float64 = 1

	for i, tri := range s.tris {
		cp := closestPointOnTriangle(p, tri[0], tri[1], tri[2])
		d := p.Sub(cp).Length()
		if d < best {
			best = d
			sign := p.Sub(cp).Dot(s.normal[i])
			if sign < 0 {
				bestSign = -1
			} else {
				bestSign = 1
			}
		}
	}
	if math.IsInf(best, 1) {
		return math.Inf(1)
	}
	return best * bestSign
}

// closestPointOnTriangle finds the nearest point to p lying on triangle
// (a, b, c), clamped to the triangle's edges and interior via barycentric
// projection.
func closestPointOnTriangle(p, a, b, c v3.Vec) v3.Vec {
	ab := b.Sub(a)
	ac := c.Sub(a)
	ap := p.Sub(a)

	d1 := ab.Dot(ap)
	d2 := ac.Dot(ap)
	if d1 <= 0 && d2 <= 0 {
		return a
	}

	bp := p.Sub(b)
	d3 := ab.Dot(bp)
	d4 := ac.Dot(bp)
	if d3 >= 0 && d4 <= d3 {
		return b
	}

	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		v := d1 / (d1 - d3)
		return a.Add(ab.MulScalar(v))
	}

	cp := p.Sub(c)
	d5 := ab.Dot(cp)
	d6 := ac.Dot(cp)
	if d6 >= 0 && d5 <= d6 {
		return c
	}

	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		w := d2 / (d2 - d6)
		return a.Add(ac.MulScalar(w))
	}

	va := d3*d6 - d5*d4
	if va <= 0 && (d4-d3) >= 0 && (d5-d6) >= 0 {
		w := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		return b.Add(c.Sub(b).MulScalar(w))
	}

	denom := 1 / (va + vb + vc)
	v := vb * denom
	w := vc * denom
	return a.Add(ab.MulScalar(v)).Add(ac.MulScalar(w))
}

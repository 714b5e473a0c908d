package geom

import (
	"math"

	"github.com/chazu/solidprep/pkg/kernel"
)

// OBB is an oriented bounding box: a center, three orthonormal axes, and
// three non-negative half-extents along those axes.
type OBB struct {
	Center     [3]float64
	Axes       [3][3]float64
	HalfExtent [3]float64
}

// OrientedBoundingBox tessellates s and fits an oriented bounding box to
// its vertices via principal component analysis: the centroid and
// covariance matrix of the vertex cloud are computed, the covariance
// matrix is diagonalized with a cyclic Jacobi eigenvalue sweep (fine for
// the fixed 3x3 case), and vertices are projected onto the resulting
// eigenvectors to obtain half-extents along each axis.
func OrientedBoundingBox(k kernel.Kernel, s kernel.Solid) (OBB, error) {
	m, err := k.ToMesh(s)
	if err != nil {
		return OBB{}, err
	}
	nv := m.VertexCount()
	if nv == 0 {
		return OBB{}, nil
	}

	var centroid [3]float64
	for v := 0; v < nv; v++ {
		p := vertex(m, uint32(v))
		centroid[0] += p[0]
		centroid[1] += p[1]
		centroid[2] += p[2]
	}
	centroid[0] /= float64(nv)
	centroid[1] /= float64(nv)
	centroid[2] /= float64(nv)

	var cov [3][3]float64
	for v := 0; v < nv; v++ {
		p := sub(vertex(m, uint32(v)), centroid)
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				cov[i][j] += p[i] * p[j]
			}
		}
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			cov[i][j] /= float64(nv)
		}
	}

	axes := jacobiEigenvectors(cov)

	var half [3]float64
	for v := 0; v < nv; v++ {
		p := sub(vertex(m, uint32(v)), centroid)
		for a := 0; a < 3; a++ {
			proj := math.Abs(dot(p, axes[a]))
			if proj > half[a] {
				half[a] = proj
			}
		}
	}

	return OBB{Center: centroid, Axes: axes, HalfExtent: half}, nil
}

// jacobiEigenvectors diagonalizes a symmetric 3x3 matrix with a fixed
// number of cyclic Jacobi sweeps, returning its three eigenvectors. A
// handful of sweeps is sufficient for a 3x3 system to converge well past
// the precision this system's tolerances require.
func jacobiEigenvectors(a [3][3]float64) [3][3]float64 {
	v := [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}

	for sweep := 0; sweep < 20; sweep++ {
		p, q := 0, 1
		maxOff := math.Abs(a[0][1])
		if math.Abs(a[0][2]) > maxOff {
			p, q, maxOff = 0, 2, math.Abs(a[0][2])
		}
		if math.Abs(a[1][2]) > maxOff {
			p, q, maxOff = 1, 2, math.Abs(a[1][2])
		}
		if maxOff < 1e-12 {
			break
		}

		theta := (a[q][q] - a[p][p]) / (2 * a[p][q])
		t := sign(theta) / (math.Abs(theta) + math.Sqrt(theta*theta+1))
		c := 1 / math.Sqrt(t*t+1)
		s := t * c

		app, aqq, apq := a[p][p], a[q][q], a[p][q]
		a[p][p] = c*c*app - 2*s*c*apq + s*s*aqq
		a[q][q] = s*s*app + 2*s*c*apq + c*c*aqq
		a[p][q] = 0
		a[q][p] = 0

		for r := 0; r < 3; r++ {
			if r != p && r != q {
				arp, arq := a[r][p], a[r][q]
				a[r][p] = c*arp - s*arq
				a[p][r] = a[r][p]
				a[r][q] = s*arp + c*arq
				a[q][r] = a[r][q]
			}
		}

		for r := 0; r < 3; r++ {
			vrp, vrq := v[r][p], v[r][q]
			v[r][p] = c*vrp - s*vrq
			v[r][q] = s*vrp + c*vrq
		}
	}

	return [3][3]float64{
		{v[0][0], v[1][0], v[2][0]},
		{v[0][1], v[1][1], v[2][1]},
		{v[0][2], v[1][2], v[2][2]},
	}
}

func sign(x float64) float64 {
	if x < 0 {
		return -1
	}
	return 1
}

// Enlarge inflates the box symmetrically along each axis by eps.
func (b OBB) Enlarge(eps float64) OBB {
	out := b
	out.HalfExtent[0] += eps
	out.HalfExtent[1] += eps
	out.HalfExtent[2] += eps
	return out
}

// DisjointFrom runs the separating-axis test between two oriented
// bounding boxes: candidate separating axes are each box's three face
// normals plus the nine pairwise cross products of their axes.
func (b OBB) DisjointFrom(other OBB) bool {
	axes := make([][3]float64, 0, 15)
	axes = append(axes, b.Axes[:]...)
	axes = append(axes, other.Axes[:]...)
	for _, ba := range b.Axes {
		for _, oa := range other.Axes {
			c := cross(ba, oa)
			if norm(c) > 1e-9 {
				axes = append(axes, c)
			}
		}
	}

	d := sub(other.Center, b.Center)
	for _, axis := range axes {
		axis = normalize(axis)
		dist := math.Abs(dot(d, axis))
		ra := projectedRadius(b, axis)
		rb := projectedRadius(other, axis)
		if dist > ra+rb {
			return true
		}
	}
	return false
}

func projectedRadius(b OBB, axis [3]float64) float64 {
	var r float64
	for i := 0; i < 3; i++ {
		r += b.HalfExtent[i] * math.Abs(dot(b.Axes[i], axis))
	}
	return r
}

func normalize(a [3]float64) [3]float64 {
	l := norm(a)
	if l < 1e-12 {
		return a
	}
	return [3]float64{a[0] / l, a[1] / l, a[2] / l}
}

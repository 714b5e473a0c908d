// Package merge implements the merger (C7): detecting geometrically
// coincident vertices, edges, and faces across an assembly's solids and
// rebuilding their tessellations so that coincident sub-shapes become a
// single shared entity. This system's solids are triangle meshes with no
// parametric WIRE/SHELL/COMSOLID tier, so the fixed rebuild order named
// in SPEC_FULL.md collapses to VERTEX -> EDGE -> FACE -> SOLID ->
// COMPOUND, operating directly on mesh vertices, triangle edges, and
// triangles.
package merge

import (
	"fmt"
	"sort"

	"github.com/dhconnelly/rtreego"

	"github.com/chazu/solidprep/pkg/document"
	"github.com/chazu/solidprep/pkg/kernel"
	"github.com/chazu/solidprep/pkg/kernel/meshsolid"
)

// globalVertex identifies one vertex of one solid's mesh before merging.
type globalVertex struct {
	solid int
	index uint32
	pos   [3]float64
}

func (v *globalVertex) Bounds() rtreego.Rect {
	const eps = 1e-9
	r, _ := rtreego.NewRect(
		rtreego.Point{v.pos[0] - eps, v.pos[1] - eps, v.pos[2] - eps},
		[]float64{2 * eps, 2 * eps, 2 * eps},
	)
	return r
}

// Report summarizes what the merge pass did, for the CLI to log.
type Report struct {
	VertexClusters int
	EdgeGroups     int
	FaceGroups     int
	Warnings       []string
}

// triRef names one triangle of one solid's mesh.
type triRef struct {
	solid int
	tri   int
}

// Merge clusters coincident vertices across every solid in doc within
// tolerance (M1), then rebuilds each solid's mesh so that vertices bound
// to the same representative are numerically identical (M4) and
// triangles that coincide across the assembly are emitted only once
// (M2+M3, collapsed to a single face-key dedup pass since this system's
// meshes have no separate WIRE/SHELL tier to bucket independently of
// their vertices). An assembly with no coincident sub-shapes is returned
// unchanged; that is not an error.
func Merge(k kernel.Kernel, doc *document.Document, tolerance float64) (Report, error) {
	meshes := make([]*kernel.Mesh, doc.Len())
	for i, s := range doc.Solids {
		m, err := k.ToMesh(s)
		if err != nil {
			return Report{}, fmt.Errorf("merge: tessellate shape %d: %w", i, err)
		}
		meshes[i] = m
	}

	clusterCount, origin := clusterVertices(meshes, tolerance)
	if clusterCount == 0 {
		return Report{}, nil
	}

	remapped := make([][]float32, len(meshes))
	for i, m := range meshes {
		remapped[i] = applyOrigin(m, i, origin)
	}

	edgeGroups := countSharedEdges(meshes, remapped)
	faceGroups, removeFaces := findSharedFaces(meshes, remapped)

	rebuilt := make([]*kernel.Mesh, len(meshes))
	var warnings []string
	for i, m := range meshes {
		nm, degenerate := rebuildMesh(m, remapped[i], removeFaces[i])
		rebuilt[i] = nm
		if degenerate > 0 {
			warnings = append(warnings, fmt.Sprintf("shape %d: dropped %d degenerate triangles after merge", i, degenerate))
		}
	}

	for i, m := range rebuilt {
		doc.Solids[i] = meshsolid.New(m)
	}

	return Report{
		VertexClusters: clusterCount,
		EdgeGroups:     edgeGroups,
		FaceGroups:     faceGroups,
		Warnings:       warnings,
	}, nil
}

// clusterVertices performs stage M1: a tolerance-expanded R-tree query
// per vertex followed by flood-fill grouping, electing each cluster's
// representative per electRepresentative. origin maps (solid, index) ->
// representative position; vertices absent from origin are unclustered
// (members of a singleton cluster of size one — never entered into the
// map at all, since a singleton needs no remapping). A cluster whose
// members all belong to one solid (a tessellation repeats a vertex once
// per triangle that uses it) is neither counted nor entered into origin.
func clusterVertices(meshes []*kernel.Mesh, tolerance float64) (clusterCount int, origin map[[2]int][3]float64) {
	origin = make(map[[2]int][3]float64)

	tree := rtreego.NewTree(3, 25, 50)
	var all []*globalVertex
	for s, m := range meshes {
		nv := m.VertexCount()
		for i := 0; i < nv; i++ {
			gv := &globalVertex{solid: s, index: uint32(i), pos: [3]float64{
				float64(m.Vertices[i*3]), float64(m.Vertices[i*3+1]), float64(m.Vertices[i*3+2]),
			}}
			all = append(all, gv)
			tree.Insert(gv)
		}
	}

	visited := make(map[*globalVertex]bool, len(all))
	for _, gv := range all {
		if visited[gv] {
			continue
		}
		cluster := floodFill(gv, tree, tolerance, visited)
		if len(cluster) < 2 {
			continue
		}
		multiSolid := false
		for _, m := range cluster[1:] {
			if m.solid != cluster[0].solid {
				multiSolid = true
				break
			}
		}
		if !multiSolid {
			continue
		}
		clusterCount++

		repPos := electRepresentative(cluster)
		for _, m := range cluster {
			origin[[2]int{m.solid, int(m.index)}] = repPos
		}
	}
	return clusterCount, origin
}

// electRepresentative picks a cluster's representative position: if one
// exact position within the cluster is already shared by strictly more
// distinct solids than every other position in the cluster, that
// position is used verbatim (it minimizes downstream remapping, since
// the solids already agreeing on it need no coordinate change at all).
// Otherwise the coordinate-wise mean of all members is used.
func electRepresentative(cluster []*globalVertex) [3]float64 {
	solidsByPos := make(map[[3]float64]map[int]bool)
	for _, m := range cluster {
		set := solidsByPos[m.pos]
		if set == nil {
			set = make(map[int]bool)
			solidsByPos[m.pos] = set
		}
		set[m.solid] = true
	}

	var bestPos [3]float64
	bestCount := 0
	tie := false
	for pos, solids := range solidsByPos {
		switch {
		case len(solids) > bestCount:
			bestCount, bestPos, tie = len(solids), pos, false
		case len(solids) == bestCount:
			tie = true
		}
	}
	if !tie && bestCount > 1 {
		return bestPos
	}

	var sum [3]float64
	for _, m := range cluster {
		sum[0] += m.pos[0]
		sum[1] += m.pos[1]
		sum[2] += m.pos[2]
	}
	n := float64(len(cluster))
	return [3]float64{sum[0] / n, sum[1] / n, sum[2] / n}
}

func floodFill(start *globalVertex, tree *rtreego.Rtree, tolerance float64, visited map[*globalVertex]bool) []*globalVertex {
	var cluster []*globalVertex
	stack := []*globalVertex{start}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[cur] {
			continue
		}
		visited[cur] = true
		cluster = append(cluster, cur)

		rect, err := rtreego.NewRect(
			rtreego.Point{cur.pos[0] - tolerance, cur.pos[1] - tolerance, cur.pos[2] - tolerance},
			[]float64{2 * tolerance, 2 * tolerance, 2 * tolerance},
		)
		if err != nil {
			continue
		}
		for _, hit := range tree.SearchIntersect(rect) {
			nb := hit.(*globalVertex)
			if !visited[nb] {
				stack = append(stack, nb)
			}
		}
	}
	return cluster
}

// applyOrigin returns m's vertex array with every vertex bound in origin
// replaced by its representative coordinate (M4's exact-coordinate
// reconciliation happens for free here since every member writes the
// same representative value).
func applyOrigin(m *kernel.Mesh, solidIdx int, origin map[[2]int][3]float64) []float32 {
	verts := make([]float32, len(m.Vertices))
	copy(verts, m.Vertices)

	nv := m.VertexCount()
	for i := 0; i < nv; i++ {
		if pos, ok := origin[[2]int{solidIdx, i}]; ok {
			verts[i*3+0] = float32(pos[0])
			verts[i*3+1] = float32(pos[1])
			verts[i*3+2] = float32(pos[2])
		}
	}
	return verts
}

// findSharedFaces performs stage M2's face grouping and stage M3's
// topology rebuild decision in one pass: every triangle is keyed by its
// three (already vertex-remapped) corner positions, triangles that share
// a key are a coincidence group, and every group member after the first
// is marked for removal so the shared face survives in the rebuilt
// assembly exactly once.
func findSharedFaces(meshes []*kernel.Mesh, remapped [][]float32) (faceGroups int, remove map[int]map[int]bool) {
	type faceKey [3][3]float32
	groups := make(map[faceKey][]triRef)

	for s, m := range meshes {
		verts := remapped[s]
		nt := m.TriangleCount()
		for t := 0; t < nt; t++ {
			i0, i1, i2 := m.Indices[t*3], m.Indices[t*3+1], m.Indices[t*3+2]
			pts := [3][3]float32{vertexAt(verts, i0), vertexAt(verts, i1), vertexAt(verts, i2)}
			key := orderedFaceKey(pts)
			groups[key] = append(groups[key], triRef{solid: s, tri: t})
		}
	}

	remove = make(map[int]map[int]bool)
	for _, refs := range groups {
		if len(refs) < 2 {
			continue
		}
		faceGroups++
		sort.Slice(refs, func(i, j int) bool {
			if refs[i].solid != refs[j].solid {
				return refs[i].solid < refs[j].solid
			}
			return refs[i].tri < refs[j].tri
		})
		for _, r := range refs[1:] {
			if remove[r.solid] == nil {
				remove[r.solid] = make(map[int]bool)
			}
			remove[r.solid][r.tri] = true
		}
	}
	return faceGroups, remove
}

// rebuildMesh performs stage M3's per-solid topology rebuild: triangles
// marked in removeTri (coincident with an earlier-indexed solid's
// triangle) are dropped so the shared face is kept only once across the
// assembly, and triangles that degenerate after vertex remapping (two or
// more corners collapsing to the same position) are dropped as well.
func rebuildMesh(m *kernel.Mesh, verts []float32, removeTri map[int]bool) (*kernel.Mesh, int) {
	var indices []uint32
	degenerate := 0
	nt := m.TriangleCount()
	for t := 0; t < nt; t++ {
		if removeTri[t] {
			continue
		}
		i0, i1, i2 := m.Indices[t*3], m.Indices[t*3+1], m.Indices[t*3+2]
		if samePosition(verts, i0, i1) || samePosition(verts, i1, i2) || samePosition(verts, i0, i2) {
			degenerate++
			continue
		}
		indices = append(indices, i0, i1, i2)
	}

	return &kernel.Mesh{
		Vertices: verts,
		Normals:  m.Normals,
		Indices:  indices,
		PartName: m.PartName,
	}, degenerate
}

func samePosition(verts []float32, a, b uint32) bool {
	return verts[a*3] == verts[b*3] && verts[a*3+1] == verts[b*3+1] && verts[a*3+2] == verts[b*3+2]
}

// countSharedEdges reports, for logging purposes only, how many distinct
// undirected edges (by vertex-position key, after vertex remapping) now
// have more than one reference across the whole assembly.
func countSharedEdges(meshes []*kernel.Mesh, remapped [][]float32) int {
	type key [2][3]float32
	edgeCount := make(map[key]int)

	for s, m := range meshes {
		verts := remapped[s]
		nt := m.TriangleCount()
		for t := 0; t < nt; t++ {
			idx := [3]uint32{m.Indices[t*3], m.Indices[t*3+1], m.Indices[t*3+2]}
			pts := [3][3]float32{vertexAt(verts, idx[0]), vertexAt(verts, idx[1]), vertexAt(verts, idx[2])}
			for e := 0; e < 3; e++ {
				a, b := pts[e], pts[(e+1)%3]
				edgeCount[orderedEdgeKey(a, b)]++
			}
		}
	}

	groups := 0
	for _, c := range edgeCount {
		if c > 1 {
			groups++
		}
	}
	return groups
}

func vertexAt(verts []float32, idx uint32) [3]float32 {
	return [3]float32{verts[idx*3], verts[idx*3+1], verts[idx*3+2]}
}

func orderedEdgeKey(a, b [3]float32) [2][3]float32 {
	if lessPoint(a, b) {
		return [2][3]float32{a, b}
	}
	return [2][3]float32{b, a}
}

func orderedFaceKey(pts [3][3]float32) [3][3]float32 {
	out := make([][3]float32, 3)
	copy(out, pts[:])
	sort.Slice(out, func(i, j int) bool { return lessPoint(out[i], out[j]) })
	return [3][3]float32{out[0], out[1], out[2]}
}

func lessPoint(a, b [3]float32) bool {
	if a[0] != b[0] {
		return a[0] < b[0]
	}
	if a[1] != b[1] {
		return a[1] < b[1]
	}
	return a[2] < b[2]
}

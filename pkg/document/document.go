// Package document implements the Document abstraction (C8): an ordered,
// fixed-length list of solids that flows through every pipeline stage,
// plus the on-disk solid-set container format used to read and write it.
// The container is a CBOR-encoded envelope of one mesh per top-level
// solid, in document order — this system's analogue of a BREP file.
package document

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/solidprep/pkg/errs"
	"github.com/chazu/solidprep/pkg/kernel"
	"github.com/chazu/solidprep/pkg/kernel/meshsolid"
)

// Document is the ordered list of solids every pipeline stage operates
// on. The ordinal position of a solid is its identifier throughout a
// run: stages overwrite Solids[i], they never reorder or resize it.
type Document struct {
	Solids []kernel.Solid

	meshCache map[int]*kernel.Mesh
}

// container is the on-disk envelope: one mesh per top-level solid, in
// document order.
type container struct {
	Meshes []kernel.Mesh `cbor:"meshes"`
}

// Load reads a solid-set file from r, reconstituting each stored mesh as
// a kernel.Solid via kernel/meshsolid.
func Load(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("document: read: %w", errs.ErrIO)
	}

	var c container
	if err := cbor.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("document: decode: %w", errs.ErrIO)
	}

	if len(c.Meshes) == 0 {
		return nil, fmt.Errorf("document: solid-set contains zero shapes: %w", errs.ErrStructural)
	}

	doc := &Document{
		Solids:    make([]kernel.Solid, len(c.Meshes)),
		meshCache: make(map[int]*kernel.Mesh, len(c.Meshes)),
	}
	for i := range c.Meshes {
		m := c.Meshes[i]
		if m.IsEmpty() || m.TriangleCount() == 0 {
			return nil, fmt.Errorf("document: shape %d decodes to a degenerate mesh: %w", i, errs.ErrStructural)
		}
		doc.Solids[i] = meshsolid.New(&m)
		doc.meshCache[i] = &m
	}
	return doc, nil
}

// Save tessellates every current solid and writes the CBOR-encoded
// envelope to w.
func Save(w io.Writer, k kernel.Kernel, doc *Document) error {
	c := container{Meshes: make([]kernel.Mesh, len(doc.Solids))}
	for i, s := range doc.Solids {
		m, err := k.ToMesh(s)
		if err != nil {
			return fmt.Errorf("document: tessellate shape %d: %w", i, err)
		}
		c.Meshes[i] = *m
	}

	data, err := cbor.Marshal(c)
	if err != nil {
		return fmt.Errorf("document: encode: %w", errs.ErrIO)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("document: write: %w", errs.ErrIO)
	}
	return nil
}

// Len returns the number of solid slots in the document.
func (d *Document) Len() int {
	return len(d.Solids)
}

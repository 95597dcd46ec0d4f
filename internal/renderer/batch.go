package renderer

import (
	"sort"

	"github.com/Faultbox/meshtex/internal/projector"
	"github.com/Faultbox/meshtex/pkg/mesh"
)

// Vertex is the interleaved GPU vertex layout: position, normal, texture coordinate.
type Vertex struct {
	Position [3]float32
	Normal   [3]float32
	TexCoord [2]float32
}

// vertexSize is the byte stride of Vertex.
const vertexSize = 8 * 4

// Batch holds every textured triangle that samples one source image.
type Batch struct {
	Image    int
	Vertices []Vertex
}

// BuildBatches groups the projector's assignments by image, three vertices per
// (triangle, image) pair, in triangle order. Untextured triangles are skipped.
// Batches are ordered by image index.
func BuildBatches(m *mesh.Mesh, res projector.Result) []Batch {
	byImage := make(map[int]*Batch)

	for i, list := range res.Triangles {
		if len(list) == 0 {
			continue
		}
		p0, p1, p2 := m.Vertices(i)
		normal := outwardNormal(m, i)
		corners := [3][3]float32{p0.Array(), p1.Array(), p2.Array()}

		for _, a := range list {
			b, ok := byImage[a.Image]
			if !ok {
				b = &Batch{Image: a.Image}
				byImage[a.Image] = b
			}
			for k := 0; k < 3; k++ {
				b.Vertices = append(b.Vertices, Vertex{
					Position: corners[k],
					Normal:   normal,
					TexCoord: [2]float32{a.UV[k].X, a.UV[k].Y},
				})
			}
		}
	}

	batches := make([]Batch, 0, len(byImage))
	for _, b := range byImage {
		batches = append(batches, *b)
	}
	sort.Slice(batches, func(i, j int) bool { return batches[i].Image < batches[j].Image })
	return batches
}

// FlatVertices returns every non-degenerate triangle for untextured drawing.
func FlatVertices(m *mesh.Mesh) []Vertex {
	out := make([]Vertex, 0, m.NumTriangles()*3)
	for i := 0; i < m.NumTriangles(); i++ {
		p0, p1, p2 := m.Vertices(i)
		if _, ok := projector.FaceNormal(p0, p1, p2); !ok {
			continue
		}
		normal := outwardNormal(m, i)
		for _, p := range [3][3]float32{p0.Array(), p1.Array(), p2.Array()} {
			out = append(out, Vertex{Position: p, Normal: normal})
		}
	}
	return out
}

// outwardNormal is the lighting normal, opposite to the projector's facing normal
// so that counter-clockwise triangles light from their front side.
func outwardNormal(m *mesh.Mesh, i int) [3]float32 {
	n, _ := projector.FaceNormal(m.Vertices(i))
	return n.Scale(-1).Array()
}

// Package mesh provides the immutable triangle mesh snapshot shared between the
// reconstruction producer and the renderer.
package mesh

import (
	"errors"
	"fmt"

	"github.com/Faultbox/meshtex/pkg/math"
)

// Mesh errors.
var (
	ErrIndexOutOfRange = errors.New("triangle vertex index out of range")
)

// Triangle holds three indices into a mesh's point sequence.
type Triangle [3]uint32

// Bounds is an axis-aligned bounding box.
type Bounds struct {
	Min math.Vec3
	Max math.Vec3
}

// Center returns the midpoint of the box.
func (b Bounds) Center() math.Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Size returns the extent of the box along each axis.
func (b Bounds) Size() math.Vec3 {
	return b.Max.Sub(b.Min)
}

// Mesh is a point sequence plus triangles indexing into it.
// A Mesh never changes after construction; build a new one instead.
type Mesh struct {
	points    []math.Vec3
	triangles []Triangle
}

var empty = &Mesh{}

// Empty returns the mesh with no points and no triangles.
func Empty() *Mesh {
	return empty
}

// New validates and copies points and triangles into a new Mesh.
// Every triangle index must be less than len(points).
func New(points []math.Vec3, triangles []Triangle) (*Mesh, error) {
	n := uint32(len(points))
	for i, tri := range triangles {
		for _, idx := range tri {
			if idx >= n {
				return nil, fmt.Errorf("triangle %d: index %d with %d points: %w", i, idx, n, ErrIndexOutOfRange)
			}
		}
	}

	return &Mesh{
		points:    append([]math.Vec3(nil), points...),
		triangles: append([]Triangle(nil), triangles...),
	}, nil
}

// MustNew is like New but panics on invalid input. Intended for tests and literals.
func MustNew(points []math.Vec3, triangles []Triangle) *Mesh {
	m, err := New(points, triangles)
	if err != nil {
		panic(err)
	}
	return m
}

// NumPoints returns the number of points.
func (m *Mesh) NumPoints() int {
	return len(m.points)
}

// NumTriangles returns the number of triangles.
func (m *Mesh) NumTriangles() int {
	return len(m.triangles)
}

// Point returns point i.
func (m *Mesh) Point(i int) math.Vec3 {
	return m.points[i]
}

// Triangle returns triangle i.
func (m *Mesh) Triangle(i int) Triangle {
	return m.triangles[i]
}

// Vertices returns the three corner points of triangle i in index order.
func (m *Mesh) Vertices(i int) (p0, p1, p2 math.Vec3) {
	tri := m.triangles[i]
	return m.points[tri[0]], m.points[tri[1]], m.points[tri[2]]
}

// Points returns the point sequence. The slice is shared and must not be modified.
func (m *Mesh) Points() []math.Vec3 {
	return m.points
}

// Triangles returns the triangle sequence. The slice is shared and must not be modified.
func (m *Mesh) Triangles() []Triangle {
	return m.triangles
}

// IsEmpty reports whether the mesh has neither points nor triangles.
func (m *Mesh) IsEmpty() bool {
	return len(m.points) == 0 && len(m.triangles) == 0
}

// Bounds returns the bounding box of all points. The zero Bounds is returned for
// a mesh without points.
func (m *Mesh) Bounds() Bounds {
	if len(m.points) == 0 {
		return Bounds{}
	}
	b := Bounds{Min: m.points[0], Max: m.points[0]}
	for _, p := range m.points[1:] {
		b.Min = b.Min.Min(p)
		b.Max = b.Max.Max(p)
	}
	return b
}

// Equal reports whether both meshes have identical points and triangles.
func (m *Mesh) Equal(other *Mesh) bool {
	if m == other {
		return true
	}
	if m == nil || other == nil {
		return false
	}
	if len(m.points) != len(other.points) || len(m.triangles) != len(other.triangles) {
		return false
	}
	for i := range m.points {
		if m.points[i] != other.points[i] {
			return false
		}
	}
	for i := range m.triangles {
		if m.triangles[i] != other.triangles[i] {
			return false
		}
	}
	return true
}

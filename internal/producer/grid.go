package producer

import (
	"context"
	"time"

	"github.com/chewxy/math32"

	"github.com/Faultbox/meshtex/pkg/math"
	"github.com/Faultbox/meshtex/pkg/mesh"
)

// GridSource produces a rippled height-field surface in the XY plane that gains
// resolution with every build, standing in for an incremental reconstruction.
// Triangles wind counter-clockwise seen from +Z.
type GridSource struct {
	Size      float32       // side length of the square surface
	Amplitude float32       // ripple height along Z
	Start     int           // cells per side on the first build
	Max       int           // cells per side cap
	Delay     time.Duration // simulated reconstruction time per build

	builds int
}

// NewGridSource returns a GridSource with demo defaults.
func NewGridSource() *GridSource {
	return &GridSource{
		Size:      2,
		Amplitude: 0.1,
		Start:     4,
		Max:       64,
	}
}

// Build returns the next surface. It is not safe for concurrent use; the
// producer calls it from a single goroutine.
func (g *GridSource) Build(ctx context.Context) (*mesh.Mesh, error) {
	if g.Delay > 0 {
		t := time.NewTimer(g.Delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}

	cells := g.Start + g.builds
	if cells > g.Max {
		cells = g.Max
	}
	if cells < 1 {
		cells = 1
	}
	g.builds++

	return Grid(cells, g.Size, g.Amplitude), nil
}

// Grid builds a cells x cells height field centred on the origin.
func Grid(cells int, size, amplitude float32) *mesh.Mesh {
	side := cells + 1
	step := size / float32(cells)
	half := size / 2

	points := make([]math.Vec3, 0, side*side)
	for j := 0; j < side; j++ {
		for i := 0; i < side; i++ {
			x := float32(i)*step - half
			y := float32(j)*step - half
			z := amplitude * math32.Sin(3*x) * math32.Cos(3*y)
			points = append(points, math.Vec3{X: x, Y: y, Z: z})
		}
	}

	tris := make([]mesh.Triangle, 0, cells*cells*2)
	for j := 0; j < cells; j++ {
		for i := 0; i < cells; i++ {
			a := uint32(j*side + i)
			b := a + 1
			c := a + uint32(side) + 1
			d := a + uint32(side)
			tris = append(tris, mesh.Triangle{a, b, c}, mesh.Triangle{a, c, d})
		}
	}

	return mesh.MustNew(points, tris)
}

package projector

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/meshtex/pkg/math"
	"github.com/Faultbox/meshtex/pkg/mesh"
)

// stubSample projects orthographically onto XY, scaled by the image size.
type stubSample struct {
	w, h    int
	orient  math.Vec3
	reject  func(p math.Vec3) bool
	calls   int
	tracked bool
}

func (s *stubSample) Size() (int, int) { return s.w, s.h }
func (s *stubSample) Orientation() math.Vec3 { return s.orient }

func (s *stubSample) Project(p math.Vec3, w, h int) (math.Vec2, bool) {
	if s.tracked {
		s.calls++
	}
	if s.reject != nil && s.reject(p) {
		return math.Vec2{}, false
	}
	return math.Vec2{X: p.X / float32(w), Y: p.Y / float32(h)}, true
}

func facing(orient math.Vec3) *stubSample {
	return &stubSample{w: 4, h: 8, orient: orient}
}

// unitTriangle has normal (0,0,-1): FaceNormal is cross(P2-P0, P1-P0), so a
// triangle wound counter-clockwise seen from +Z faces -Z. Cameras that texture it
// therefore look along -Z.
func unitTriangle() *mesh.Mesh {
	return mesh.MustNew(
		[]math.Vec3{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}},
		[]mesh.Triangle{{0, 1, 2}},
	)
}

func TestFaceNormal(t *testing.T) {
	n, ok := FaceNormal(math.Vec3{}, math.Vec3{X: 1}, math.Vec3{Y: 1})
	require.True(t, ok)
	assert.Equal(t, math.Vec3{X: 0, Y: 0, Z: -1}, n)

	n, ok = FaceNormal(math.Vec3{}, math.Vec3{Y: 1}, math.Vec3{X: 1})
	require.True(t, ok)
	assert.Equal(t, math.Vec3{X: 0, Y: 0, Z: 1}, n)

	_, ok = FaceNormal(math.Vec3{X: 1}, math.Vec3{X: 2}, math.Vec3{X: 3})
	assert.False(t, ok, "collinear points have no normal")
}

func TestProject_FacingImageAssigned(t *testing.T) {
	img := facing(math.Vec3{Z: -1})

	res := New().Project(unitTriangle(), []ImageSample{img})

	require.Len(t, res.Triangles, 1)
	require.Len(t, res.Triangles[0], 1)
	a := res.Triangles[0][0]
	assert.Equal(t, 0, a.Image)
	assert.Equal(t, [3]math.Vec2{{X: 0, Y: 0}, {X: 0.25, Y: 0}, {X: 0, Y: 0.125}}, a.UV)
	assert.Equal(t, 1, res.Textured())
}

func TestProject_BackFacingImageRejected(t *testing.T) {
	img := facing(math.Vec3{Z: 1})
	img.tracked = true

	res := New().Project(unitTriangle(), []ImageSample{img})

	require.Len(t, res.Triangles, 1)
	assert.Empty(t, res.Triangles[0])
	assert.Zero(t, img.calls, "back-facing images must not be projected")
}

func TestProject_EdgeOnImageRejected(t *testing.T) {
	res := New().Project(unitTriangle(), []ImageSample{facing(math.Vec3{X: 1})})
	assert.Empty(t, res.Triangles[0])
}

func TestProject_ProjectionMissDiscardsImage(t *testing.T) {
	for corner := 0; corner < 3; corner++ {
		m := unitTriangle()
		miss := m.Point(corner)
		img := facing(math.Vec3{Z: -1})
		img.reject = func(p math.Vec3) bool { return p == miss }

		res := New().Project(m, []ImageSample{img})
		assert.Empty(t, res.Triangles[0], "corner %d outside image", corner)
	}
}

func TestProject_OverlayKeepsBatchOrder(t *testing.T) {
	images := []ImageSample{
		facing(math.Vec3{Z: -0.2, X: 0.9}),
		facing(math.Vec3{Z: 1}), // back-facing
		facing(math.Vec3{Z: -1}),
		&stubSample{w: 4, h: 4, orient: math.Vec3{Z: -1}, reject: func(math.Vec3) bool { return true }},
		facing(math.Vec3{Z: -0.5, Y: 0.5}),
	}

	res := New().Project(unitTriangle(), images)

	var got []int
	for _, a := range res.Triangles[0] {
		got = append(got, a.Image)
	}
	assert.Equal(t, []int{0, 2, 4}, got)
}

func TestProject_EmptyBatch(t *testing.T) {
	m := mesh.MustNew(
		[]math.Vec3{{}, {X: 1}, {Y: 1}, {Z: 1}},
		[]mesh.Triangle{{0, 1, 2}, {0, 2, 3}, {0, 3, 1}},
	)

	res := New().Project(m, nil)

	require.Len(t, res.Triangles, 3)
	for i, a := range res.Triangles {
		assert.Empty(t, a, "triangle %d", i)
	}
	assert.Zero(t, res.Textured())
}

func TestProject_EmptyMesh(t *testing.T) {
	res := New().Project(mesh.Empty(), []ImageSample{facing(math.Vec3{Z: -1})})
	assert.Empty(t, res.Triangles)
	assert.Zero(t, res.Degenerate)
}

func TestProject_DegenerateTriangle(t *testing.T) {
	m := mesh.MustNew(
		[]math.Vec3{{}, {X: 1}, {Y: 1}, {X: 2}},
		[]mesh.Triangle{{0, 1, 3}, {0, 1, 2}, {2, 2, 2}},
	)

	res := New().Project(m, []ImageSample{facing(math.Vec3{Z: -1})})

	assert.Empty(t, res.Triangles[0])
	assert.Len(t, res.Triangles[1], 1)
	assert.Empty(t, res.Triangles[2])
	assert.Equal(t, 2, res.Degenerate)
}

func TestProject_BestFacing(t *testing.T) {
	t.Run("highest dot wins", func(t *testing.T) {
		images := []ImageSample{
			facing(math.Vec3{Z: -0.3, X: 0.95}),
			facing(math.Vec3{Z: -1}),
			facing(math.Vec3{Z: -0.7, Y: 0.7}),
		}
		res := New(WithPolicy(BestFacing)).Project(unitTriangle(), images)
		require.Len(t, res.Triangles[0], 1)
		assert.Equal(t, 1, res.Triangles[0][0].Image)
	})

	t.Run("falls back when best misses", func(t *testing.T) {
		images := []ImageSample{
			facing(math.Vec3{Z: -0.3, X: 0.95}),
			&stubSample{w: 4, h: 4, orient: math.Vec3{Z: -1}, reject: func(math.Vec3) bool { return true }},
			facing(math.Vec3{Z: -0.7, Y: 0.7}),
		}
		res := New(WithPolicy(BestFacing)).Project(unitTriangle(), images)
		require.Len(t, res.Triangles[0], 1)
		assert.Equal(t, 2, res.Triangles[0][0].Image)
	})

	t.Run("nothing facing", func(t *testing.T) {
		res := New(WithPolicy(BestFacing)).Project(unitTriangle(), []ImageSample{facing(math.Vec3{Z: 1})})
		assert.Empty(t, res.Triangles[0])
	})
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		name string
		want Policy
		ok   bool
	}{
		{"overlay", Overlay, true},
		{"", Overlay, true},
		{"best_facing", BestFacing, true},
		{"closest", Overlay, false},
	}
	for _, tt := range tests {
		got, ok := ParsePolicy(tt.name)
		assert.Equal(t, tt.want, got, tt.name)
		assert.Equal(t, tt.ok, ok, tt.name)
	}
	assert.Equal(t, "best_facing", BestFacing.String())
}

func randomMesh(r *rand.Rand, numPoints, numTris int) *mesh.Mesh {
	pts := make([]math.Vec3, numPoints)
	for i := range pts {
		pts[i] = math.Vec3{X: r.Float32()*2 - 1, Y: r.Float32()*2 - 1, Z: r.Float32()*2 - 1}
	}
	tris := make([]mesh.Triangle, numTris)
	for i := range tris {
		tris[i] = mesh.Triangle{uint32(r.Intn(numPoints)), uint32(r.Intn(numPoints)), uint32(r.Intn(numPoints))}
	}
	return mesh.MustNew(pts, tris)
}

func randomImages(r *rand.Rand, n int) []ImageSample {
	images := make([]ImageSample, n)
	for i := range images {
		o := math.Vec3{X: r.Float32()*2 - 1, Y: r.Float32()*2 - 1, Z: r.Float32()*2 - 1}.Normalize()
		img := facing(o)
		if i%3 == 0 {
			img.reject = func(p math.Vec3) bool { return p.X > 0.5 }
		}
		images[i] = img
	}
	return images
}

func TestProject_NeverAssignsNonFacingImages(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	m := randomMesh(r, 64, 300)
	images := randomImages(r, 12)

	res := New().Project(m, images)

	for i, list := range res.Triangles {
		p0, p1, p2 := m.Vertices(i)
		normal, ok := FaceNormal(p0, p1, p2)
		if !ok {
			assert.Empty(t, list)
			continue
		}

		seen := map[int]bool{}
		for _, a := range list {
			assert.Greater(t, normal.Dot(images[a.Image].Orientation()), float32(0), "triangle %d image %d", i, a.Image)
			assert.False(t, seen[a.Image], "image %d listed twice for triangle %d", a.Image, i)
			seen[a.Image] = true
		}
	}
}

func TestProject_WorkersMatchSequential(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	m := randomMesh(r, 500, 3000)
	images := randomImages(r, 8)

	for _, policy := range []Policy{Overlay, BestFacing} {
		seq := New(WithPolicy(policy)).Project(m, images)
		par := New(WithPolicy(policy), WithWorkers(4)).Project(m, images)

		assert.Equal(t, seq.Degenerate, par.Degenerate, policy.String())
		assert.Equal(t, seq.Triangles, par.Triangles, policy.String())
	}
}

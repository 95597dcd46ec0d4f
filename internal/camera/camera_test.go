package camera

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/meshtex/pkg/math"
	"github.com/Faultbox/meshtex/pkg/mesh"
)

const eps = 1e-4

func lookDownZ() *Pinhole {
	c, err := NewPinhole(math.Vec3{Z: 5}, math.Vec3{}, math.Vec3{Y: 1}, math32.Pi/2)
	if err != nil {
		panic(err)
	}
	return c
}

func TestNewPinhole_Basis(t *testing.T) {
	c := lookDownZ()

	assert.InDelta(t, -1, c.Orientation().Z, eps)
	assert.InDelta(t, 1, c.Right.X, eps)
	assert.InDelta(t, 1, c.Up.Y, eps)
}

func TestNewPinhole_DegeneratePose(t *testing.T) {
	tests := []struct {
		name            string
		pos, target, up math.Vec3
	}{
		{"looking straight down with up along Y", math.Vec3{Y: 5}, math.Vec3{}, math.Vec3{Y: 1}},
		{"up opposite the view axis", math.Vec3{Z: 5}, math.Vec3{}, math.Vec3{Z: 3}},
		{"zero up", math.Vec3{Z: 5}, math.Vec3{}, math.Vec3{}},
		{"target at position", math.Vec3{X: 1}, math.Vec3{X: 1}, math.Vec3{Y: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewPinhole(tt.pos, tt.target, tt.up, 1)
			assert.ErrorIs(t, err, ErrDegeneratePose)
			assert.Nil(t, c)
		})
	}
}

func TestNewPinhole_TopDownWithValidUp(t *testing.T) {
	c, err := NewPinhole(math.Vec3{Y: 5}, math.Vec3{}, math.Vec3{Z: -1}, math32.Pi/2)
	require.NoError(t, err)

	// Off-axis points must not collapse onto the image centre.
	_, ok := c.Project(math.Vec3{X: 100, Z: -100}, 640, 480)
	assert.False(t, ok, "far outside the frustum")

	uv, ok := c.Project(math.Vec3{X: 1}, 640, 480)
	require.True(t, ok)
	assert.Greater(t, uv.X, float32(0.5))
	assert.InDelta(t, 0.5, uv.Y, eps)
}

func TestPinholeProject(t *testing.T) {
	c := lookDownZ()

	tests := []struct {
		name    string
		p       math.Vec3
		want    math.Vec2
		visible bool
	}{
		{"on axis hits center", math.Vec3{}, math.Vec2{X: 0.5, Y: 0.5}, true},
		{"up is toward row zero", math.Vec3{Y: 2.5}, math.Vec2{X: 0.5, Y: 0.25}, true},
		{"right is toward last column", math.Vec3{X: 2.5}, math.Vec2{X: 0.75, Y: 0.5}, true},
		{"behind camera", math.Vec3{Z: 6}, math.Vec2{}, false},
		{"on camera plane", math.Vec3{X: 1, Z: 5}, math.Vec2{}, false},
		{"outside image", math.Vec3{X: 6}, math.Vec2{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uv, ok := c.Project(tt.p, 100, 100)
			require.Equal(t, tt.visible, ok)
			if ok {
				assert.InDelta(t, tt.want.X, uv.X, eps)
				assert.InDelta(t, tt.want.Y, uv.Y, eps)
			}
		})
	}
}

func TestPinholeProject_ZeroSizeImage(t *testing.T) {
	_, ok := lookDownZ().Project(math.Vec3{}, 0, 10)
	assert.False(t, ok)
}

func TestPinholeProject_RoundTrip(t *testing.T) {
	c, err := NewPinhole(math.Vec3{X: 1, Y: 2, Z: 3}, math.Vec3{X: -1, Y: 0.5, Z: 0}, math.Vec3{Y: 1}, 1.0)
	require.NoError(t, err)
	const w, h = 640, 480

	for _, px := range [][2]int{{0, 0}, {320, 240}, {17, 400}, {639, 1}} {
		uv := math.Vec2{X: (float32(px[0]) + 0.5) / w, Y: (float32(px[1]) + 0.5) / h}
		for _, depth := range []float32{0.5, 3, 40} {
			p := c.Unproject(uv, depth, w, h)

			got, ok := c.Project(p, w, h)
			require.True(t, ok, "pixel %v depth %v", px, depth)
			assert.InDelta(t, uv.X, got.X, eps)
			assert.InDelta(t, uv.Y, got.Y, eps)

			again, _ := c.Project(p, w, h)
			assert.Equal(t, got, again, "projection must be deterministic")
		}
	}
}

func TestOrbitCamera_FitToBounds(t *testing.T) {
	c := NewOrbitCamera()
	c.FitToBounds(mesh.Bounds{Min: math.Vec3{X: -1, Y: -1, Z: -1}, Max: math.Vec3{X: 3, Y: 1, Z: 1}})

	assert.Equal(t, math.Vec3{X: 1, Y: 0, Z: 0}, c.Center)
	assert.Greater(t, c.Distance, float32(4))

	before := *c
	c.FitToBounds(mesh.Bounds{})
	assert.Equal(t, before, *c, "empty bounds leave the camera alone")
}

func TestOrbitCamera_Clamps(t *testing.T) {
	c := NewOrbitCamera()

	c.HandleDrag(0, 1e6)
	assert.Equal(t, c.MaxPitch, c.RotationX)

	c.HandleZoom(1e6)
	assert.Equal(t, c.MinDistance, c.Distance)

	pos := c.Position()
	assert.InDelta(t, c.Distance, pos.Sub(c.Center).Length(), eps)
}

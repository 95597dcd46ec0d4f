// Package camera provides the pinhole model of the cameras that captured source
// images, and the orbit camera used to inspect the mesh.
package camera

import (
	"errors"

	"github.com/chewxy/math32"

	"github.com/Faultbox/meshtex/pkg/math"
)

// DefaultNear is the closest distance along the viewing axis that still projects.
const DefaultNear = 1e-3

// ErrDegeneratePose is returned when position, target and up do not define a
// camera frame: the camera looks at itself or up is parallel to the view axis.
var ErrDegeneratePose = errors.New("camera pose has no well-defined image plane")

// minRightLength is the smallest |forward x up|/|up| accepted as non-parallel.
const minRightLength = 1e-6

// Pinhole is an ideal perspective camera with square pixels and a centered
// principal point. It implements projector.ImageSample together with an image size.
type Pinhole struct {
	Position math.Vec3
	Forward  math.Vec3 // unit viewing axis
	Right    math.Vec3
	Up       math.Vec3
	FovY     float32 // vertical field of view, radians
	Near     float32
}

// NewPinhole creates a camera at position looking at target. up must not be
// parallel to the viewing axis but need not be perpendicular to it.
func NewPinhole(position, target, up math.Vec3, fovY float32) (*Pinhole, error) {
	forward, ok := target.Sub(position).TryNormalize()
	if !ok {
		return nil, ErrDegeneratePose
	}
	cross := forward.Cross(up)
	if cross.Length() <= minRightLength*up.Length() {
		return nil, ErrDegeneratePose
	}
	right, ok := cross.TryNormalize()
	if !ok {
		return nil, ErrDegeneratePose
	}
	return &Pinhole{
		Position: position,
		Forward:  forward,
		Right:    right,
		Up:       right.Cross(forward),
		FovY:     fovY,
		Near:     DefaultNear,
	}, nil
}

// Orientation returns the unit viewing axis.
func (c *Pinhole) Orientation() math.Vec3 {
	return c.Forward
}

// focal returns the focal length in pixels for an image of the given height.
func (c *Pinhole) focal(height int) float32 {
	return float32(height) / 2 / math32.Tan(c.FovY/2)
}

// Project maps p to normalized texture coordinates (pixel / size, v growing
// downward with image rows). Points behind the near plane or outside the image
// are not visible.
func (c *Pinhole) Project(p math.Vec3, width, height int) (math.Vec2, bool) {
	if width <= 0 || height <= 0 {
		return math.Vec2{}, false
	}

	d := p.Sub(c.Position)
	z := d.Dot(c.Forward)
	if z <= c.Near {
		return math.Vec2{}, false
	}

	f := c.focal(height)
	px := float32(width)/2 + f*d.Dot(c.Right)/z
	py := float32(height)/2 - f*d.Dot(c.Up)/z
	if px < 0 || py < 0 || px > float32(width) || py > float32(height) {
		return math.Vec2{}, false
	}

	return math.Vec2{X: px / float32(width), Y: py / float32(height)}, true
}

// Unproject returns the world point at the given depth along the ray through
// texture coordinate uv. It is the inverse of Project for visible points.
func (c *Pinhole) Unproject(uv math.Vec2, depth float32, width, height int) math.Vec3 {
	f := c.focal(height)
	x := (uv.X*float32(width) - float32(width)/2) * depth / f
	y := (float32(height)/2 - uv.Y*float32(height)) * depth / f
	return c.Position.
		Add(c.Forward.Scale(depth)).
		Add(c.Right.Scale(x)).
		Add(c.Up.Scale(y))
}

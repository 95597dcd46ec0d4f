// Package imagery loads the source photographs used to texture the mesh and
// pairs each with the pinhole camera that captured it.
package imagery

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/Faultbox/meshtex/internal/camera"
	"github.com/Faultbox/meshtex/internal/projector"
	"github.com/Faultbox/meshtex/pkg/math"
)

// Image errors.
var (
	ErrEmptyImage = errors.New("image has no pixels")
)

// Load decodes an image file (PNG, JPEG, GIF, BMP, TIFF or WebP) into RGBA.
// Images larger than maxSize on either side are scaled down to fit; maxSize <= 0
// disables scaling.
func Load(path string, maxSize int) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("%s (%s): %w", path, format, ErrEmptyImage)
	}

	return ToRGBA(img, maxSize), nil
}

// ToRGBA converts img to an RGBA image with origin (0,0), scaling it down with a
// bilinear filter when a side exceeds maxSize.
func ToRGBA(img image.Image, maxSize int) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	if maxSize > 0 && (w > maxSize || h > maxSize) {
		if w >= h {
			h = max(1, h*maxSize/w)
			w = maxSize
		} else {
			w = max(1, w*maxSize/h)
			h = maxSize
		}
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
		return dst
	}

	if rgba, ok := img.(*image.RGBA); ok && b.Min == (image.Point{}) {
		return rgba
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// Frame is one source image with the camera that captured it. It satisfies
// projector.ImageSample.
type Frame struct {
	Name   string
	Image  *image.RGBA
	Camera *camera.Pinhole
}

// Size returns the image dimensions in pixels.
func (f *Frame) Size() (int, int) {
	b := f.Image.Bounds()
	return b.Dx(), b.Dy()
}

// Orientation returns the camera's viewing axis.
func (f *Frame) Orientation() math.Vec3 {
	return f.Camera.Orientation()
}

// Project maps a world point into the frame's texture coordinates.
func (f *Frame) Project(p math.Vec3, width, height int) (math.Vec2, bool) {
	return f.Camera.Project(p, width, height)
}

// Samples returns frames as a projector batch; index i of the batch is frames[i].
func Samples(frames []*Frame) []projector.ImageSample {
	out := make([]projector.ImageSample, len(frames))
	for i, f := range frames {
		out[i] = f
	}
	return out
}

// Images returns the pixel data of frames in batch order.
func Images(frames []*Frame) []*image.RGBA {
	out := make([]*image.RGBA, len(frames))
	for i, f := range frames {
		out[i] = f.Image
	}
	return out
}

package imagery

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chewxy/math32"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/meshtex/internal/camera"
	"github.com/Faultbox/meshtex/pkg/math"
)

// Manifest errors.
var (
	ErrNoImagePath    = errors.New("frame has no image path")
	ErrBadFieldOfView = errors.New("field of view must be in (0, 180) degrees")
	ErrLooksAtSelf    = errors.New("camera target equals its position")
	ErrUpParallel     = errors.New("camera up is parallel to its viewing axis")
)

// Manifest lists source images and their camera poses.
type Manifest struct {
	Frames []FrameSpec `yaml:"frames"`
}

// FrameSpec describes one image and the pose of the camera that took it.
type FrameSpec struct {
	Image    string     `yaml:"image"`
	Position [3]float32 `yaml:"position"`
	Target   [3]float32 `yaml:"target"`
	Up       [3]float32 `yaml:"up"`
	FovDeg   float32    `yaml:"fov_deg"`
}

// defaultFovDeg is used when a frame omits fov_deg.
const defaultFovDeg = 60

// ParseManifest decodes and validates manifest YAML.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}

	for i := range m.Frames {
		fs := &m.Frames[i]
		if fs.Image == "" {
			return nil, fmt.Errorf("frame %d: %w", i, ErrNoImagePath)
		}
		if fs.FovDeg == 0 {
			fs.FovDeg = defaultFovDeg
		}
		if fs.FovDeg <= 0 || fs.FovDeg >= 180 {
			return nil, fmt.Errorf("frame %d: %w", i, ErrBadFieldOfView)
		}
		if fs.Up == ([3]float32{}) {
			fs.Up = [3]float32{0, 1, 0}
		}
		if fs.Position == fs.Target {
			return nil, fmt.Errorf("frame %d: %w", i, ErrLooksAtSelf)
		}
		if _, err := fs.Camera(); err != nil {
			return nil, fmt.Errorf("frame %d: %w (up %v)", i, ErrUpParallel, fs.Up)
		}
	}
	return &m, nil
}

// Camera builds the pinhole camera described by fs.
func (fs FrameSpec) Camera() (*camera.Pinhole, error) {
	return camera.NewPinhole(vec3(fs.Position), vec3(fs.Target), vec3(fs.Up), fs.FovDeg*math32.Pi/180)
}

// LoadManifest reads a manifest file and loads every frame it lists. Image paths
// are relative to the manifest's directory.
func LoadManifest(path string, maxSize int) ([]*Frame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	frames := make([]*Frame, 0, len(m.Frames))
	for _, fs := range m.Frames {
		imgPath := fs.Image
		if !filepath.IsAbs(imgPath) {
			imgPath = filepath.Join(dir, imgPath)
		}
		cam, err := fs.Camera()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", fs.Image, err)
		}
		img, err := Load(imgPath, maxSize)
		if err != nil {
			return nil, err
		}
		frames = append(frames, &Frame{
			Name:   fs.Image,
			Image:  img,
			Camera: cam,
		})
	}
	return frames, nil
}

func vec3(a [3]float32) math.Vec3 {
	return math.Vec3{X: a[0], Y: a[1], Z: a[2]}
}

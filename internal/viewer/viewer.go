// Package viewer runs the render-thread side of meshtex: it consumes meshes
// from the model buffer, projects the source images onto them and draws the
// result in an orbitable window.
package viewer

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/sqweek/dialog"
	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/meshtex/internal/camera"
	"github.com/Faultbox/meshtex/internal/imagery"
	"github.com/Faultbox/meshtex/internal/input"
	"github.com/Faultbox/meshtex/internal/logger"
	"github.com/Faultbox/meshtex/internal/modelbuffer"
	"github.com/Faultbox/meshtex/internal/projector"
	"github.com/Faultbox/meshtex/internal/renderer"
	"github.com/Faultbox/meshtex/internal/window"
	"github.com/Faultbox/meshtex/pkg/math"
)

const (
	fovY  = 0.8
	zNear = 0.01
	zFar  = 1000
)

var lightDir = math.Vec3{X: 0.4, Y: 1, Z: 0.6}

// Config holds viewer configuration.
type Config struct {
	Window        window.Config
	Alpha         float32
	Textured      bool
	ExportPath    string
	ScreenshotDir string
}

// Viewer owns the window, the GL renderer and the consumer scene.
type Viewer struct {
	config   Config
	running  bool
	textured bool

	window   *window.Window
	renderer *renderer.GL
	input    *input.Input
	camera   *camera.OrbitCamera
	scene    *Scene
	shots    *renderer.Screenshots
	log      *zap.Logger

	// capture is set by the P key and served after the next frame is drawn.
	capture  bool
	// exportAs receives paths chosen in the save dialog.
	exportAs chan string
}

// New creates the window and renderer and uploads the source images.
// It must be called on the main thread.
func New(cfg Config, buf *modelbuffer.Buffer, p *projector.Projector, frames []*imagery.Frame) (*Viewer, error) {
	log := logger.Named("viewer")
	log.Info("initializing viewer",
		zap.String("title", cfg.Window.Title),
		zap.Int("width", cfg.Window.Width),
		zap.Int("height", cfg.Window.Height),
		zap.Int("images", len(frames)),
	)

	v := &Viewer{
		config:   cfg,
		textured: cfg.Textured,
		input:    input.New(),
		camera:   camera.NewOrbitCamera(),
		scene:    NewScene(buf, p, imagery.Samples(frames), log),
		shots:    renderer.NewScreenshots(cfg.ScreenshotDir, "meshtex"),
		log:      log,
		exportAs: make(chan string, 1),
	}

	var err error
	v.window, err = window.New(cfg.Window)
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	// The renderer needs the GL context the window just created.
	width, height := v.window.DrawableSize()
	v.renderer, err = renderer.NewGL(renderer.Config{
		Width:  width,
		Height: height,
		Alpha:  cfg.Alpha,
	})
	if err != nil {
		v.window.Close()
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}
	v.renderer.UploadImages(imagery.Images(frames))

	log.Info("viewer initialized")
	return v, nil
}

// Run drives the frame loop until the window closes, ESC is pressed or ctx is
// cancelled.
func (v *Viewer) Run(ctx context.Context) error {
	v.running = true

	frameCount := 0
	fpsTimer := time.Now()

	v.log.Info("starting frame loop")

	for v.running {
		if ctx.Err() != nil {
			break
		}

		if v.input.Update() {
			break
		}
		v.handleEvents()

		select {
		case path := <-v.exportAs:
			v.export(path)
		default:
		}

		upd, changed := v.scene.Refresh()
		if changed {
			v.renderer.UploadBatches(upd.Batches)
			v.renderer.UploadFlat(upd.Flat)
			v.window.SetTitle(fmt.Sprintf("%s - %d triangles, %d textured",
				v.config.Window.Title, upd.Mesh.NumTriangles(), upd.Result.Textured()))
		}
		if v.scene.NeedsFit() {
			v.camera.FitToBounds(upd.Mesh.Bounds())
		}

		v.render()
		if v.capture {
			v.capture = false
			v.screenshot()
		}
		v.window.SwapBuffers()

		frameCount++
		if time.Since(fpsTimer) >= time.Second {
			v.log.Debug("fps", zap.Int("count", frameCount), zap.Uint64("generation", upd.Generation))
			frameCount = 0
			fpsTimer = time.Now()
		}
	}

	return nil
}

func (v *Viewer) handleEvents() {
	for _, event := range v.input.Events() {
		switch event.Type {
		case input.EventWindowResize:
			width, height := v.window.DrawableSize()
			v.renderer.Resize(width, height)
		case input.EventMouseDrag:
			v.camera.HandleDrag(event.DX, event.DY)
		case input.EventMouseWheel:
			v.camera.HandleZoom(event.DY)
		case input.EventKeyDown:
			switch event.Key {
			case sdl.SCANCODE_ESCAPE:
				v.running = false
			case sdl.SCANCODE_T:
				v.textured = !v.textured
				v.log.Info("display mode", zap.Bool("textured", v.textured))
			case sdl.SCANCODE_P:
				v.capture = true
			case sdl.SCANCODE_S:
				v.export(v.config.ExportPath)
			case sdl.SCANCODE_E:
				v.openExportDialog()
			}
		}
	}
}

// render draws the shaded surface and, in textured mode, blends the image
// passes over it. Untextured triangles stay visible as flat geometry.
func (v *Viewer) render() {
	v.renderer.Begin()

	proj := math.Perspective(fovY, v.renderer.Aspect(), zNear, zFar)
	viewProj := proj.Mul(v.camera.ViewMatrix())

	v.renderer.DrawFlat(viewProj, lightDir)
	if v.textured {
		v.renderer.Draw(viewProj)
	}
}

func (v *Viewer) export(path string) {
	if err := v.scene.Export(path); err != nil {
		v.log.Error("export failed", zap.Error(err))
	}
}

// openExportDialog asks for an export path without blocking the frame loop.
// The chosen path is exported on the render thread.
func (v *Viewer) openExportDialog() {
	go func() {
		path, err := dialog.File().
			Filter("Wavefront OBJ", "obj").
			Title("Export mesh").
			SetStartDir(filepath.Dir(v.config.ExportPath)).
			Save()
		if err != nil {
			if err != dialog.ErrCancelled {
				v.log.Warn("file dialog error", zap.Error(err))
			}
			return
		}
		select {
		case v.exportAs <- path:
		default:
		}
	}()
}

func (v *Viewer) screenshot() {
	pixels, width, height := v.renderer.ReadPixels()
	path, err := v.shots.Save(pixels, width, height)
	if err != nil {
		v.log.Error("screenshot failed", zap.Error(err))
		return
	}
	v.log.Info("screenshot saved", zap.String("path", path))
}

// Close releases the renderer and the window.
func (v *Viewer) Close() {
	v.log.Info("closing viewer")

	if v.renderer != nil {
		v.renderer.Close()
	}
	if v.window != nil {
		v.window.Close()
	}
}

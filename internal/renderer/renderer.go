// Package renderer turns projector output into GPU draw batches and draws them
// with OpenGL 4.1 core.
package renderer

import (
	"fmt"
	"image"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/meshtex/internal/logger"
	"github.com/Faultbox/meshtex/pkg/math"
)

// Config holds renderer configuration.
type Config struct {
	Width  int
	Height int

	// Alpha applied to every textured pass. Overlapping images blend with it.
	Alpha float32
}

// span is a contiguous range of the shared vertex buffer drawn with one texture.
type span struct {
	image int
	first int32
	count int32
}

// GL draws the textured mesh. It must be created and used on the thread that
// owns the GL context.
type GL struct {
	config Config

	program     uint32
	locViewProj int32
	locTexture  int32
	locTextured int32
	locAlpha    int32
	locLightDir int32

	textures []uint32

	texturedVAO, texturedVBO uint32
	spans                    []span

	flatVAO, flatVBO uint32
	flatCount        int32
}

// NewGL initialises OpenGL and compiles the mesh program.
// It must be called after the GL context exists.
func NewGL(cfg Config) (*GL, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	logger.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
	)

	if cfg.Alpha <= 0 || cfg.Alpha > 1 {
		cfg.Alpha = 1
	}
	r := &GL{config: cfg}

	program, err := compileProgram(meshVertexShader, meshFragmentShader)
	if err != nil {
		return nil, fmt.Errorf("mesh shader: %w", err)
	}
	r.program = program
	r.locViewProj = uniform(program, "uViewProj")
	r.locTexture = uniform(program, "uTexture")
	r.locTextured = uniform(program, "uTextured")
	r.locAlpha = uniform(program, "uAlpha")
	r.locLightDir = uniform(program, "uLightDir")

	r.texturedVAO, r.texturedVBO = newVertexArray()
	r.flatVAO, r.flatVBO = newVertexArray()

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LEQUAL)
	gl.ClearColor(0.1, 0.1, 0.15, 1.0)
	gl.Viewport(0, 0, int32(cfg.Width), int32(cfg.Height))

	return r, nil
}

func newVertexArray() (vao, vbo uint32) {
	gl.GenVertexArrays(1, &vao)
	gl.BindVertexArray(vao)

	gl.GenBuffers(1, &vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)

	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, vertexSize, 0)
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointerWithOffset(1, 3, gl.FLOAT, false, vertexSize, 3*4)
	gl.EnableVertexAttribArray(2)
	gl.VertexAttribPointerWithOffset(2, 2, gl.FLOAT, false, vertexSize, 6*4)

	gl.BindVertexArray(0)
	return vao, vbo
}

// UploadImages replaces the source-image textures. Texture i backs image index i.
func (r *GL) UploadImages(images []*image.RGBA) {
	r.deleteTextures()

	r.textures = make([]uint32, len(images))
	if len(images) == 0 {
		return
	}
	gl.GenTextures(int32(len(images)), &r.textures[0])

	for i, img := range images {
		gl.BindTexture(gl.TEXTURE_2D, r.textures[i])
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
		gl.PixelStorei(gl.UNPACK_ROW_LENGTH, int32(img.Stride/4))
		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA,
			int32(img.Bounds().Dx()), int32(img.Bounds().Dy()), 0,
			gl.RGBA, gl.UNSIGNED_BYTE, unsafe.Pointer(&img.Pix[0]))
	}
	gl.PixelStorei(gl.UNPACK_ROW_LENGTH, 0)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	logger.Debug("source images uploaded", zap.Int("count", len(images)))
}

// UploadBatches stores the textured geometry for subsequent Draw calls.
func (r *GL) UploadBatches(batches []Batch) {
	var all []Vertex
	r.spans = r.spans[:0]
	for _, b := range batches {
		if len(b.Vertices) == 0 {
			continue
		}
		r.spans = append(r.spans, span{
			image: b.Image,
			first: int32(len(all)),
			count: int32(len(b.Vertices)),
		})
		all = append(all, b.Vertices...)
	}
	uploadVertices(r.texturedVBO, all)
}

// UploadFlat stores untextured geometry for DrawFlat.
func (r *GL) UploadFlat(vertices []Vertex) {
	r.flatCount = int32(len(vertices))
	uploadVertices(r.flatVBO, vertices)
}

func uploadVertices(vbo uint32, vertices []Vertex) {
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
	if len(vertices) == 0 {
		gl.BufferData(gl.ARRAY_BUFFER, 0, nil, gl.DYNAMIC_DRAW)
	} else {
		gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*vertexSize, unsafe.Pointer(&vertices[0]), gl.DYNAMIC_DRAW)
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
}

// Begin clears the frame.
func (r *GL) Begin() {
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

// Draw renders the uploaded batches, one pass per source image, alpha blended
// in image order.
func (r *GL) Draw(viewProj math.Mat4) {
	if len(r.spans) == 0 {
		return
	}

	gl.UseProgram(r.program)
	gl.UniformMatrix4fv(r.locViewProj, 1, false, viewProj.Ptr())
	gl.Uniform1i(r.locTexture, 0)
	gl.Uniform1i(r.locTextured, 1)
	gl.Uniform1f(r.locAlpha, r.config.Alpha)

	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindVertexArray(r.texturedVAO)

	for _, s := range r.spans {
		if s.image >= len(r.textures) {
			continue
		}
		gl.BindTexture(gl.TEXTURE_2D, r.textures[s.image])
		gl.DrawArrays(gl.TRIANGLES, s.first, s.count)
	}

	gl.BindVertexArray(0)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	gl.Disable(gl.BLEND)
}

// DrawFlat renders the uploaded untextured geometry with directional lighting.
func (r *GL) DrawFlat(viewProj math.Mat4, lightDir math.Vec3) {
	if r.flatCount == 0 {
		return
	}
	l := lightDir.Normalize()

	gl.UseProgram(r.program)
	gl.UniformMatrix4fv(r.locViewProj, 1, false, viewProj.Ptr())
	gl.Uniform1i(r.locTextured, 0)
	gl.Uniform3f(r.locLightDir, l.X, l.Y, l.Z)

	gl.BindVertexArray(r.flatVAO)
	gl.DrawArrays(gl.TRIANGLES, 0, r.flatCount)
	gl.BindVertexArray(0)
}

// ReadPixels returns the current framebuffer as bottom-up RGBA rows.
func (r *GL) ReadPixels() (pixels []byte, width, height int) {
	width, height = r.config.Width, r.config.Height
	pixels = make([]byte, width*height*4)
	if len(pixels) == 0 {
		return pixels, width, height
	}
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, int32(width), int32(height), gl.RGBA, gl.UNSIGNED_BYTE, unsafe.Pointer(&pixels[0]))
	return pixels, width, height
}

// Resize updates the viewport.
func (r *GL) Resize(width, height int) {
	r.config.Width = width
	r.config.Height = height
	gl.Viewport(0, 0, int32(width), int32(height))
	logger.Debug("renderer resized", zap.Int("width", width), zap.Int("height", height))
}

// Aspect returns the viewport aspect ratio.
func (r *GL) Aspect() float32 {
	if r.config.Height == 0 {
		return 1
	}
	return float32(r.config.Width) / float32(r.config.Height)
}

func (r *GL) deleteTextures() {
	if len(r.textures) > 0 {
		gl.DeleteTextures(int32(len(r.textures)), &r.textures[0])
	}
	r.textures = nil
}

// Close releases GPU resources.
func (r *GL) Close() {
	logger.Info("closing renderer")
	r.deleteTextures()
	for _, vbo := range []*uint32{&r.texturedVBO, &r.flatVBO} {
		if *vbo != 0 {
			gl.DeleteBuffers(1, vbo)
		}
	}
	for _, vao := range []*uint32{&r.texturedVAO, &r.flatVAO} {
		if *vao != 0 {
			gl.DeleteVertexArrays(1, vao)
		}
	}
	if r.program != 0 {
		gl.DeleteProgram(r.program)
	}
}

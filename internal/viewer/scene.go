package viewer

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/meshtex/internal/modelbuffer"
	"github.com/Faultbox/meshtex/internal/projector"
	"github.com/Faultbox/meshtex/internal/renderer"
	"github.com/Faultbox/meshtex/pkg/mesh"
)

// Update is the GPU-ready geometry derived from one mesh generation.
type Update struct {
	Generation uint64
	Mesh       *mesh.Mesh
	Result     projector.Result
	Batches    []renderer.Batch
	Flat       []renderer.Vertex
}

// Scene is the consumer side of the buffer handoff. It runs once per frame on
// the render thread and re-projects only when a new mesh has been swapped in.
type Scene struct {
	buf       *modelbuffer.Buffer
	projector *projector.Projector
	images    []projector.ImageSample
	log       *zap.Logger

	built  bool
	last   Update
	fitted bool
}

// NewScene creates a scene that consumes buf and projects onto images.
func NewScene(buf *modelbuffer.Buffer, p *projector.Projector, images []projector.ImageSample, log *zap.Logger) *Scene {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scene{
		buf:       buf,
		projector: p,
		images:    images,
		log:       log,
	}
}

// Refresh reconciles the buffer and returns fresh geometry when the current
// mesh changed since the previous call. The first call always reports a change.
func (s *Scene) Refresh() (Update, bool) {
	s.buf.Reconcile()

	gen := s.buf.Generation()
	if s.built && gen == s.last.Generation {
		return s.last, false
	}

	m := s.buf.CurrentMesh()
	res := s.projector.Project(m, s.images)
	s.last = Update{
		Generation: gen,
		Mesh:       m,
		Result:     res,
		Batches:    renderer.BuildBatches(m, res),
		Flat:       renderer.FlatVertices(m),
	}
	s.built = true

	s.log.Debug("mesh generation rebuilt",
		zap.Uint64("generation", gen),
		zap.Int("triangles", m.NumTriangles()),
		zap.Int("textured", res.Textured()),
		zap.Int("batches", len(s.last.Batches)),
	)
	return s.last, true
}

// NeedsFit reports, once, that the first non-empty mesh has arrived and the
// view should be framed around it.
func (s *Scene) NeedsFit() bool {
	if s.fitted || !s.built || s.last.Mesh.IsEmpty() {
		return false
	}
	s.fitted = true
	return true
}

// Export writes the mesh currently on display to path as OBJ.
func (s *Scene) Export(path string) error {
	m := s.buf.CurrentMesh()
	if err := mesh.SaveOBJ(path, m); err != nil {
		return fmt.Errorf("export %s: %w", path, err)
	}
	s.log.Info("mesh exported",
		zap.String("path", path),
		zap.Int("vertices", m.NumPoints()),
		zap.Int("triangles", m.NumTriangles()),
	)
	return nil
}

// Package producer runs the background side of the mesh handoff: it polls the
// model buffer for a build request, builds a mesh from a Source and publishes it.
package producer

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/meshtex/pkg/mesh"
)

// Source builds a complete new mesh each time it is asked.
type Source interface {
	Build(ctx context.Context) (*mesh.Mesh, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (*mesh.Mesh, error)

// Build calls f.
func (f SourceFunc) Build(ctx context.Context) (*mesh.Mesh, error) {
	return f(ctx)
}

// Handoff is the producer-side view of the model buffer.
type Handoff interface {
	IsUpdateRequested() bool
	TryPublish(m *mesh.Mesh) error
}

// DefaultInterval is the poll period used when none is configured.
const DefaultInterval = 20 * time.Millisecond

// Stats counts producer activity.
type Stats struct {
	Published uint64
	Failed    uint64
}

// Producer polls a Handoff and feeds it meshes from a Source.
type Producer struct {
	buf      Handoff
	src      Source
	interval time.Duration
	log      *zap.Logger

	published atomic.Uint64
	failed    atomic.Uint64
}

// New creates a producer. interval <= 0 selects DefaultInterval; a nil logger
// disables logging.
func New(buf Handoff, src Source, interval time.Duration, log *zap.Logger) *Producer {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Producer{
		buf:      buf,
		src:      src,
		interval: interval,
		log:      log,
	}
}

// Run polls until ctx is cancelled and returns ctx.Err().
func (p *Producer) Run(ctx context.Context) error {
	p.log.Info("producer started", zap.Duration("interval", p.interval))

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.Poll(ctx)

		select {
		case <-ctx.Done():
			st := p.Stats()
			p.log.Info("producer stopped",
				zap.Uint64("published", st.Published),
				zap.Uint64("failed", st.Failed),
			)
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Poll performs one iteration: when a build is requested it builds and
// publishes. It reports whether a mesh was published. A failed build leaves the
// request pending so the next poll retries it.
func (p *Producer) Poll(ctx context.Context) bool {
	if !p.buf.IsUpdateRequested() {
		return false
	}

	start := time.Now()
	m, err := p.src.Build(ctx)
	if err != nil {
		p.failed.Add(1)
		if ctx.Err() == nil {
			p.log.Warn("mesh build failed", zap.Error(err))
		}
		return false
	}

	if err := p.buf.TryPublish(m); err != nil {
		p.failed.Add(1)
		p.log.Error("mesh publish rejected", zap.Error(err))
		return false
	}

	p.published.Add(1)
	p.log.Debug("mesh published",
		zap.Int("points", m.NumPoints()),
		zap.Int("triangles", m.NumTriangles()),
		zap.Duration("build", time.Since(start)),
	)
	return true
}

// Stats returns a snapshot of the counters.
func (p *Producer) Stats() Stats {
	return Stats{
		Published: p.published.Load(),
		Failed:    p.failed.Load(),
	}
}

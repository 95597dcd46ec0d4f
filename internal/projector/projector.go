// Package projector decides, per triangle and per source image, whether the image
// can texture the triangle and computes the texture coordinates of its corners.
//
// Visibility is a front-face test against each camera's viewing direction plus a
// projection check of all three corners. It does not cull occluded triangles.
package projector

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/meshtex/pkg/math"
	"github.com/Faultbox/meshtex/pkg/mesh"
)

// ImageSample is a candidate source image: its pixel size, the unit viewing axis
// of the camera that took it, and a projection from world space into it.
// Project must be pure; with WithWorkers it is called from several goroutines.
type ImageSample interface {
	Size() (width, height int)
	Orientation() math.Vec3
	// Project maps a world point to texture coordinates for an image of the given
	// size. It returns false when the point is not visible in the image.
	Project(p math.Vec3, width, height int) (math.Vec2, bool)
}

// Assignment says image Image textures a triangle with UV[k] at corner k.
type Assignment struct {
	Image int
	UV    [3]math.Vec2
}

// Result holds the assignment list of every triangle, indexed like the mesh triangles.
type Result struct {
	Triangles [][]Assignment

	// Degenerate counts zero-area triangles that were left untextured.
	Degenerate int
}

// Textured returns the number of triangles with at least one assignment.
func (r Result) Textured() int {
	n := 0
	for _, a := range r.Triangles {
		if len(a) > 0 {
			n++
		}
	}
	return n
}

// Policy selects which facing images are kept for a triangle.
type Policy int

const (
	// Overlay keeps every facing image whose projection covers the triangle, in batch order.
	Overlay Policy = iota
	// BestFacing keeps only the facing image with the highest dot product whose
	// projection covers the triangle.
	BestFacing
)

// String returns the policy name used in configuration.
func (p Policy) String() string {
	switch p {
	case Overlay:
		return "overlay"
	case BestFacing:
		return "best_facing"
	default:
		return "unknown"
	}
}

// ParsePolicy converts a configuration name to a Policy.
func ParsePolicy(name string) (Policy, bool) {
	switch name {
	case "overlay", "":
		return Overlay, true
	case "best_facing":
		return BestFacing, true
	default:
		return Overlay, false
	}
}

// minParallelTriangles is the mesh size below which workers are not started.
const minParallelTriangles = 512

// Projector computes per-triangle texture assignments.
type Projector struct {
	policy  Policy
	workers int
	log     *zap.Logger
}

// Option configures a Projector.
type Option func(*Projector)

// WithPolicy sets the selection policy. The default is Overlay.
func WithPolicy(p Policy) Option {
	return func(pr *Projector) { pr.policy = p }
}

// WithWorkers splits large meshes across n goroutines. Values below 2 run sequentially.
func WithWorkers(n int) Option {
	return func(pr *Projector) { pr.workers = n }
}

// WithLogger sets the logger used for per-call debug summaries.
func WithLogger(l *zap.Logger) Option {
	return func(pr *Projector) {
		if l != nil {
			pr.log = l
		}
	}
}

// New creates a Projector.
func New(opts ...Option) *Projector {
	p := &Projector{
		policy:  Overlay,
		workers: 1,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Policy returns the configured selection policy.
func (p *Projector) Policy() Policy {
	return p.policy
}

// candidate caches the per-call values of one image.
type candidate struct {
	sample        ImageSample
	orientation   math.Vec3
	width, height int
}

// Project computes the assignment list of every triangle of m against images.
// An empty batch yields an empty list for every triangle.
func (p *Projector) Project(m *mesh.Mesh, images []ImageSample) Result {
	n := m.NumTriangles()
	res := Result{Triangles: make([][]Assignment, n)}
	if n == 0 {
		return res
	}

	cands := make([]candidate, len(images))
	for i, img := range images {
		w, h := img.Size()
		cands[i] = candidate{sample: img, orientation: img.Orientation(), width: w, height: h}
	}

	workers := p.workers
	if workers < 2 || n < minParallelTriangles {
		workers = 1
	}
	if workers > n {
		workers = n
	}

	degenerate := make([]int, workers)
	chunk := (n + workers - 1) / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		lo, hi := w*chunk, min((w+1)*chunk, n)
		if lo >= hi {
			continue
		}
		wg.Add(1)
		go func(w, lo, hi int) {
			defer wg.Done()
			var ranked []rankedCandidate
			for i := lo; i < hi; i++ {
				var ok bool
				res.Triangles[i], ranked, ok = p.assign(m, i, cands, ranked)
				if !ok {
					degenerate[w]++
				}
			}
		}(w, lo, hi)
	}
	wg.Wait()

	for _, d := range degenerate {
		res.Degenerate += d
	}

	p.log.Debug("projected textures",
		zap.Int("triangles", n),
		zap.Int("images", len(images)),
		zap.Int("textured", res.Textured()),
		zap.Int("degenerate", res.Degenerate),
		zap.Stringer("policy", p.policy),
	)

	return res
}

// FaceNormal returns normalize(cross(p2-p0, p1-p0)). The second result is false
// for zero-area triangles, which have no normal.
func FaceNormal(p0, p1, p2 math.Vec3) (math.Vec3, bool) {
	return p2.Sub(p0).Cross(p1.Sub(p0)).TryNormalize()
}

type rankedCandidate struct {
	index int
	dot   float32
}

// assign computes the list for triangle i. ranked is scratch space reused across
// calls by one goroutine. ok is false when the triangle is degenerate.
func (p *Projector) assign(m *mesh.Mesh, i int, cands []candidate, ranked []rankedCandidate) ([]Assignment, []rankedCandidate, bool) {
	p0, p1, p2 := m.Vertices(i)
	normal, ok := FaceNormal(p0, p1, p2)
	if !ok {
		return nil, ranked, false
	}

	if p.policy == BestFacing {
		ranked = ranked[:0]
		for idx := range cands {
			if d := normal.Dot(cands[idx].orientation); d > 0 {
				ranked = append(ranked, rankedCandidate{index: idx, dot: d})
			}
		}
		sort.SliceStable(ranked, func(a, b int) bool { return ranked[a].dot > ranked[b].dot })

		for _, r := range ranked {
			if uv, ok := projectCorners(&cands[r.index], p0, p1, p2); ok {
				return []Assignment{{Image: r.index, UV: uv}}, ranked, true
			}
		}
		return nil, ranked, true
	}

	var out []Assignment
	for idx := range cands {
		c := &cands[idx]
		if normal.Dot(c.orientation) <= 0 {
			continue
		}
		if uv, ok := projectCorners(c, p0, p1, p2); ok {
			out = append(out, Assignment{Image: idx, UV: uv})
		}
	}
	return out, ranked, true
}

func projectCorners(c *candidate, p0, p1, p2 math.Vec3) ([3]math.Vec2, bool) {
	var uv [3]math.Vec2
	for k, pt := range [3]math.Vec3{p0, p1, p2} {
		coord, ok := c.sample.Project(pt, c.width, c.height)
		if !ok {
			return uv, false
		}
		uv[k] = coord
	}
	return uv, true
}

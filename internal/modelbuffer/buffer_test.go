package modelbuffer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/meshtex/pkg/math"
	"github.com/Faultbox/meshtex/pkg/mesh"
)

func triangleMesh(offset float32) *mesh.Mesh {
	return mesh.MustNew(
		[]math.Vec3{{X: offset}, {X: offset + 1}, {X: offset, Y: 1}},
		[]mesh.Triangle{{0, 1, 2}},
	)
}

func TestNew_StartsIdleWithEmptyMesh(t *testing.T) {
	b := New()

	assert.Equal(t, Idle, b.Phase())
	assert.False(t, b.IsUpdateRequested())
	assert.True(t, b.CurrentMesh().IsEmpty())
	assert.Zero(t, b.Generation())
}

func TestReconcile_IdleRequestsBuild(t *testing.T) {
	b := New()
	before := b.CurrentMesh()

	swapped := b.Reconcile()

	assert.False(t, swapped)
	assert.Equal(t, Waiting, b.Phase())
	assert.True(t, b.IsUpdateRequested())
	assert.Same(t, before, b.CurrentMesh(), "current mesh must be untouched by a request")
}

func TestReconcile_WaitingIsNoop(t *testing.T) {
	b := New()
	b.Reconcile()

	for i := 0; i < 3; i++ {
		assert.False(t, b.Reconcile())
		assert.Equal(t, Waiting, b.Phase())
	}
	assert.True(t, b.CurrentMesh().IsEmpty())
}

func TestPublishThenReconcile_SwapsExactMesh(t *testing.T) {
	b := New()
	m := triangleMesh(5)

	b.Reconcile()
	b.PublishUpdate(m)

	assert.Equal(t, ReadyToSwap, b.Phase())
	assert.False(t, b.IsUpdateRequested())
	assert.True(t, b.CurrentMesh().IsEmpty(), "published mesh must not be visible before reconcile")

	require.True(t, b.Reconcile())
	assert.Same(t, m, b.CurrentMesh())
	assert.Equal(t, Idle, b.Phase())
	assert.Equal(t, uint64(1), b.Generation())

	// The next reconcile starts a fresh cycle and keeps the swapped mesh readable.
	assert.False(t, b.Reconcile())
	assert.Equal(t, Waiting, b.Phase())
	assert.Same(t, m, b.CurrentMesh())
}

func TestPublishUpdate_OutsideWaitingPanics(t *testing.T) {
	t.Run("idle", func(t *testing.T) {
		b := New()
		assert.Panics(t, func() { b.PublishUpdate(triangleMesh(0)) })
	})

	t.Run("ready to swap", func(t *testing.T) {
		b := New()
		b.Reconcile()
		b.PublishUpdate(triangleMesh(0))
		assert.Panics(t, func() { b.PublishUpdate(triangleMesh(1)) })
	})
}

func TestTryPublish(t *testing.T) {
	b := New()

	err := b.TryPublish(triangleMesh(0))
	assert.ErrorIs(t, err, ErrNotWaiting)
	assert.Equal(t, Idle, b.Phase())

	b.Reconcile()
	assert.Error(t, b.TryPublish(nil))
	assert.Equal(t, Waiting, b.Phase())

	require.NoError(t, b.TryPublish(triangleMesh(0)))
	assert.Equal(t, ReadyToSwap, b.Phase())
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "Idle", Idle.String())
	assert.Equal(t, "Waiting", Waiting.String())
	assert.Equal(t, "ReadyToSwap", ReadyToSwap.String())
	assert.Equal(t, "Phase(7)", Phase(7).String())
}

// taggedMesh builds a mesh whose points and triangles both encode n, so a mix of
// two publications is detectable.
func taggedMesh(n int) *mesh.Mesh {
	pts := make([]math.Vec3, n+3)
	for i := range pts {
		pts[i] = math.Vec3{X: float32(n), Y: float32(i)}
	}
	return mesh.MustNew(pts, []mesh.Triangle{{0, 1, uint32(n + 2)}})
}

func TestConcurrentHandoff_NeverMixesPublications(t *testing.T) {
	b := New()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	const builds = 200

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for n := 1; n <= builds; {
			if ctx.Err() != nil {
				return
			}
			if !b.IsUpdateRequested() {
				time.Sleep(10 * time.Microsecond)
				continue
			}
			b.PublishUpdate(taggedMesh(n))
			n++
		}
	}()

	last := 0
	for last < builds && ctx.Err() == nil {
		b.Reconcile()
		m := b.CurrentMesh()
		if m.IsEmpty() {
			continue
		}

		tag := int(m.Point(0).X)
		require.Equal(t, tag+3, m.NumPoints(), "points from build %d", tag)
		require.Equal(t, uint32(tag+2), m.Triangle(0)[2], "triangles from a different build than points")
		for i := 0; i < m.NumPoints(); i++ {
			require.Equal(t, float32(tag), m.Point(i).X)
		}
		require.GreaterOrEqual(t, tag, last, "current mesh went backwards")
		last = tag
	}

	cancel()
	wg.Wait()
	assert.Equal(t, builds, last)
	assert.Equal(t, uint64(builds), b.Generation())
}

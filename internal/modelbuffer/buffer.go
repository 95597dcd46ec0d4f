// Package modelbuffer hands finished meshes from one producer goroutine to one
// render consumer without exposing partially written meshes.
//
// The handshake has three phases:
//
//	Idle         requested=false            no build in flight
//	Waiting      requested=true, ready=false producer should build and publish
//	ReadyToSwap  requested=true, ready=true  staging holds a mesh not yet swapped in
//
// The consumer drives the cycle with Reconcile once per frame; the producer polls
// IsUpdateRequested and answers with PublishUpdate. All state sits behind a single
// mutex, so a flag transition is never observed before the mesh it refers to.
package modelbuffer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Faultbox/meshtex/pkg/mesh"
)

// ErrNotWaiting is returned (or panicked with) when a producer publishes while no
// build was requested or a result is already staged.
var ErrNotWaiting = errors.New("modelbuffer: publish outside Waiting phase")

// Phase is the handshake state of a Buffer.
type Phase int

const (
	Idle Phase = iota
	Waiting
	ReadyToSwap
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case Idle:
		return "Idle"
	case Waiting:
		return "Waiting"
	case ReadyToSwap:
		return "ReadyToSwap"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Buffer is the double-buffered mesh store shared by a producer and a consumer.
// Construct it once with New and pass the same pointer to both sides.
type Buffer struct {
	mu sync.Mutex

	requested bool
	ready     bool

	current *mesh.Mesh
	staging *mesh.Mesh

	generation uint64
}

// New returns a Buffer in the Idle phase holding the empty mesh.
func New() *Buffer {
	return &Buffer{
		ready:   true,
		current: mesh.Empty(),
	}
}

// Reconcile advances the handshake from the consumer side. In Idle it requests a
// new build; in ReadyToSwap it swaps the staged mesh in and returns to Idle; in
// Waiting it does nothing. It reports whether the current mesh was replaced.
func (b *Buffer) Reconcile() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.phaseLocked() {
	case Waiting:
		return false

	case ReadyToSwap:
		b.current = b.staging
		b.staging = nil
		b.requested = false
		// ready stays set: the last requested build has been delivered.
		b.generation++
		return true

	default:
		b.requested = true
		b.ready = false
		return false
	}
}

// PublishUpdate stages m as the next mesh and marks it ready. It must only be
// called while the buffer is Waiting; anything else is a producer bug and panics.
func (b *Buffer) PublishUpdate(m *mesh.Mesh) {
	if err := b.TryPublish(m); err != nil {
		panic(err)
	}
}

// TryPublish is PublishUpdate returning ErrNotWaiting instead of panicking.
func (b *Buffer) TryPublish(m *mesh.Mesh) error {
	if m == nil {
		return errors.New("modelbuffer: publish of nil mesh")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if phase := b.phaseLocked(); phase != Waiting {
		return fmt.Errorf("%w (phase %s)", ErrNotWaiting, phase)
	}
	b.staging = m
	b.ready = true
	return nil
}

// IsUpdateRequested reports whether the producer should build and publish a mesh.
func (b *Buffer) IsUpdateRequested() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.phaseLocked() == Waiting
}

// CurrentMesh returns the most recently reconciled mesh. Before the first swap
// this is the empty mesh.
func (b *Buffer) CurrentMesh() *mesh.Mesh {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// Phase returns the current handshake phase.
func (b *Buffer) Phase() Phase {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.phaseLocked()
}

// Generation counts completed swaps. Consumers compare it between frames to
// detect a new current mesh without comparing mesh contents.
func (b *Buffer) Generation() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.generation
}

func (b *Buffer) phaseLocked() Phase {
	switch {
	case !b.requested:
		return Idle
	case !b.ready:
		return Waiting
	default:
		return ReadyToSwap
	}
}

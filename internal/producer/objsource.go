package producer

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/Faultbox/meshtex/pkg/mesh"
)

// OBJSource serves the mesh stored in an OBJ file. The file is parsed on the
// first build and again only after fsnotify reports it changed, so an external
// reconstruction process can rewrite it at its own pace.
type OBJSource struct {
	path    string
	watcher *fsnotify.Watcher
	log     *zap.Logger

	dirty atomic.Bool
	done  chan struct{}
	wg    sync.WaitGroup

	cached *mesh.Mesh
}

// NewOBJSource watches path's directory and returns a source for the file.
func NewOBJSource(path string, log *zap.Logger) (*OBJSource, error) {
	if log == nil {
		log = zap.NewNop()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	// Watch the directory: editors and exporters often replace the file by rename.
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	s := &OBJSource{
		path:    abs,
		watcher: w,
		log:     log,
		done:    make(chan struct{}),
	}
	s.dirty.Store(true)

	s.wg.Add(1)
	go s.watch()

	return s, nil
}

func (s *OBJSource) watch() {
	defer s.wg.Done()

	for {
		select {
		case <-s.done:
			return

		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != s.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				s.dirty.Store(true)
				s.log.Debug("mesh file changed", zap.String("path", s.path), zap.Stringer("op", event.Op))
			}

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.log.Warn("mesh file watcher error", zap.Error(err))
		}
	}
}

// Build returns the file's mesh, re-parsing it when it changed since the last
// successful build. A parse failure keeps the file marked dirty.
func (s *OBJSource) Build(ctx context.Context) (*mesh.Mesh, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.cached != nil && !s.dirty.Load() {
		return s.cached, nil
	}

	s.dirty.Store(false)
	m, err := mesh.LoadOBJ(s.path)
	if err != nil {
		s.dirty.Store(true)
		return nil, err
	}

	s.cached = m
	s.log.Info("mesh file loaded",
		zap.String("path", s.path),
		zap.Int("points", m.NumPoints()),
		zap.Int("triangles", m.NumTriangles()),
	)
	return m, nil
}

// Close stops watching the file.
func (s *OBJSource) Close() error {
	close(s.done)
	err := s.watcher.Close()
	s.wg.Wait()
	return err
}

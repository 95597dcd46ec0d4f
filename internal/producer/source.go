package producer

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/meshtex/internal/config"
)

// NewSource creates the Source selected by cfg. The returned close function
// releases any watcher the source holds and is never nil.
func NewSource(cfg config.ProducerConfig, log *zap.Logger) (Source, func() error, error) {
	switch cfg.Source {
	case config.SourceGrid:
		g := NewGridSource()
		g.Delay = cfg.BuildDelay
		if cfg.GridMax > 0 {
			g.Max = cfg.GridMax
		}
		return g, func() error { return nil }, nil

	case config.SourceOBJ:
		s, err := NewOBJSource(cfg.OBJPath, log)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil

	default:
		return nil, nil, fmt.Errorf("%w: %q", config.ErrUnknownSource, cfg.Source)
	}
}

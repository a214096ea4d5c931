package tts

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/tts-handler/internal/config"
	"github.com/book-expert/tts-handler/internal/core"
)

// ErrNilEngine is returned when a factory reports success without an engine.
var ErrNilEngine = errors.New("engine factory returned a nil engine")

// Factory builds the synthesis engine. It is called at most once successfully.
type Factory func(ctx context.Context) (core.Engine, error)

// EngineHandle builds the engine on first use and hands the same instance to
// every later caller. A failed build is not cached, so the next caller retries it.
type EngineHandle struct {
	mu      sync.Mutex
	factory Factory
	engine  core.Engine
}

// NewEngineHandle wraps factory in an initialize-once handle.
func NewEngineHandle(factory Factory) *EngineHandle {
	return &EngineHandle{mu: sync.Mutex{}, factory: factory, engine: nil}
}

// Get returns the engine, building it if no build has succeeded yet.
func (h *EngineHandle) Get(ctx context.Context) (core.Engine, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.engine != nil {
		return h.engine, nil
	}

	engine, err := h.factory(ctx)
	if err != nil {
		return nil, err
	}

	if engine == nil {
		return nil, ErrNilEngine
	}

	h.engine = engine

	return engine, nil
}

// Ready reports whether the engine has been built.
func (h *EngineHandle) Ready() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.engine != nil
}

// FactoryFromConfig returns the factory for the engine kind named in cfg.
func FactoryFromConfig(cfg config.EngineConfig, timeout time.Duration, log *logger.Logger) (Factory, error) {
	switch cfg.Kind {
	case config.EngineCLI:
		return func(_ context.Context) (core.Engine, error) {
			return NewCLIEngine(cfg, log)
		}, nil
	case config.EngineHTTP:
		return func(ctx context.Context) (core.Engine, error) {
			return NewHTTPEngine(ctx, cfg, timeout, log)
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownEngineKind, cfg.Kind)
	}
}

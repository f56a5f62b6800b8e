// Package render owns the single long-lived rendering engine per container
// and decides between full initialization and incremental in-place updates.
package render

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/maolala233/smart-brain/api/schemas"
)

// ErrHandleDetached is returned when a handle is used after Detach.
var ErrHandleDetached = errors.New("render handle already detached")

// Handle binds one container to at most one live engine instance. The engine
// is constructed lazily on the first update and is never reconstructed for
// the lifetime of the handle; reconstructing it would reset camera position,
// zoom and the physics warm-start.
type Handle struct {
	id        string
	container string

	mu       sync.Mutex
	engine   schemas.RenderEngine
	pending  *schemas.GraphSnapshot
	detached bool
}

// ID returns the handle's identity, stable across updates.
func (h *Handle) ID() string { return h.id }

// Container returns the container this handle is bound to.
func (h *Handle) Container() string { return h.container }

// Engine exposes the live engine for identity checks and reads. May be nil
// before the first successful update.
func (h *Handle) Engine() schemas.RenderEngine {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.engine
}

// Sync is the only component allowed to mutate rendering engines. It tracks
// every live handle so shutdown can release them all.
type Sync struct {
	factory  schemas.EngineFactory
	nodeSize int
	log      *zap.Logger

	mu      sync.Mutex
	handles map[string]*Handle
}

// NewSync creates the render synchronizer over an engine factory.
func NewSync(factory schemas.EngineFactory, nodeSize int, logger *zap.Logger) *Sync {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sync{
		factory:  factory,
		nodeSize: nodeSize,
		log:      logger.Named("rendersync"),
		handles:  make(map[string]*Handle),
	}
}

// Attach registers a container and returns its handle. No engine exists
// until the first update delivers data.
func (s *Sync) Attach(container string) (*Handle, error) {
	if container == "" {
		return nil, fmt.Errorf("container must not be empty")
	}
	h := &Handle{
		id:        uuid.New().String(),
		container: container,
	}
	s.mu.Lock()
	s.handles[h.id] = h
	s.mu.Unlock()

	s.log.Debug("Handle attached", zap.String("handle_id", h.id), zap.String("container", container))
	return h, nil
}

// Update pushes a snapshot into the handle's engine. The first update
// constructs the engine and performs a full SetData; every later update
// replaces the node and edge collections in place, preserving engine
// identity. If the container is not mounted yet the snapshot is cached on
// the handle and replayed by the next update or Flush.
func (s *Sync) Update(h *Handle, snapshot schemas.GraphSnapshot) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.detached {
		return ErrHandleDetached
	}

	// Always remember the latest snapshot so a not-yet-mounted container
	// loses nothing.
	snap := snapshot
	h.pending = &snap

	return s.flushLocked(h)
}

// Flush retries delivery of the cached snapshot, if any. Used after the
// container becomes available.
func (s *Sync) Flush(h *Handle) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.detached {
		return ErrHandleDetached
	}
	if h.pending == nil {
		return nil
	}
	return s.flushLocked(h)
}

// flushLocked delivers h.pending into the engine. Caller holds h.mu.
func (s *Sync) flushLocked(h *Handle) error {
	nodes, edges := mapSnapshot(*h.pending, s.nodeSize)

	if h.engine == nil {
		engine, err := s.factory.New(h.container)
		if errors.Is(err, schemas.ErrContainerNotMounted) {
			// Not a failure: keep the snapshot cached for replay.
			s.log.Debug("Container not mounted, snapshot cached",
				zap.String("handle_id", h.id),
				zap.String("container", h.container),
			)
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to construct engine for container %q: %w", h.container, err)
		}
		if err := engine.SetData(nodes, edges); err != nil {
			// The engine never served a snapshot; release it so the next
			// update starts clean.
			_ = engine.Destroy()
			return fmt.Errorf("initial engine load failed: %w", err)
		}
		h.engine = engine
		h.pending = nil
		s.log.Debug("Engine initialized",
			zap.String("handle_id", h.id),
			zap.Int("nodes", len(nodes)),
			zap.Int("edges", len(edges)),
		)
		return nil
	}

	if err := h.engine.ReplaceData(nodes, edges); err != nil {
		return fmt.Errorf("engine data replace failed: %w", err)
	}
	h.pending = nil
	s.log.Debug("Engine data replaced",
		zap.String("handle_id", h.id),
		zap.Int("nodes", len(nodes)),
		zap.Int("edges", len(edges)),
	)
	return nil
}

// Detach destroys the handle's engine and forgets the handle. Idempotent;
// must be called on every unmount or container swap, including error paths.
func (s *Sync) Detach(h *Handle) error {
	if h == nil {
		return nil
	}

	h.mu.Lock()
	if h.detached {
		h.mu.Unlock()
		return nil
	}
	h.detached = true
	engine := h.engine
	h.engine = nil
	h.pending = nil
	h.mu.Unlock()

	s.mu.Lock()
	delete(s.handles, h.id)
	s.mu.Unlock()

	if engine != nil {
		if err := engine.Destroy(); err != nil {
			s.log.Warn("Engine destroy failed", zap.String("handle_id", h.id), zap.Error(err))
			return err
		}
	}
	s.log.Debug("Handle detached", zap.String("handle_id", h.id))
	return nil
}

// Shutdown releases every live handle. Individual detach errors are logged,
// not returned; shutdown always completes.
func (s *Sync) Shutdown(ctx context.Context) {
	s.mu.Lock()
	handles := make([]*Handle, 0, len(s.handles))
	for _, h := range s.handles {
		handles = append(handles, h)
	}
	s.handles = make(map[string]*Handle)
	s.mu.Unlock()

	for _, h := range handles {
		select {
		case <-ctx.Done():
			s.log.Warn("Shutdown interrupted", zap.Int("remaining", len(handles)))
			return
		default:
		}
		done := make(chan struct{})
		go func(h *Handle) {
			defer close(done)
			_ = s.Detach(h)
		}(h)
		select {
		case <-done:
		case <-time.After(10 * time.Second):
			s.log.Warn("Timed out detaching handle", zap.String("handle_id", h.id))
		}
	}
	s.log.Info("Render sync shutdown complete", zap.Int("handles_released", len(handles)))
}

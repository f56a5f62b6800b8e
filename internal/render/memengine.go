package render

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/maolala233/smart-brain/api/schemas"
)

// ErrEngineDestroyed is returned by any call on a destroyed engine.
var ErrEngineDestroyed = errors.New("render engine destroyed")

// MemoryEngine is a fast, in-process implementation of the RenderEngine
// interface. It holds render records the way a browser engine would but
// performs no drawing. Headless runs and tests.
type MemoryEngine struct {
	mu        sync.RWMutex
	nodes     map[string]schemas.RenderNode
	edges     []schemas.RenderEdge
	destroyed bool
	resets    int
	log       *zap.Logger
}

// Compile-time interface checks.
var (
	_ schemas.RenderEngine  = (*MemoryEngine)(nil)
	_ schemas.EngineFactory = (*MemoryFactory)(nil)
)

// MemoryFactory constructs MemoryEngines. Containers listed in Unmounted are
// reported as not mounted, which lets tests exercise the replay path.
type MemoryFactory struct {
	mu        sync.Mutex
	unmounted map[string]bool
	created   []*MemoryEngine
	log       *zap.Logger
}

// NewMemoryFactory creates a factory whose containers are all mounted.
func NewMemoryFactory(logger *zap.Logger) *MemoryFactory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryFactory{
		unmounted: make(map[string]bool),
		log:       logger.Named("memengine"),
	}
}

// SetMounted flips whether a container can host an engine.
func (f *MemoryFactory) SetMounted(containerID string, mounted bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unmounted[containerID] = !mounted
}

// Created returns every engine this factory has constructed, in order.
func (f *MemoryFactory) Created() []*MemoryEngine {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*MemoryEngine(nil), f.created...)
}

// New implements schemas.EngineFactory.
func (f *MemoryFactory) New(containerID string) (schemas.RenderEngine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unmounted[containerID] {
		return nil, schemas.ErrContainerNotMounted
	}
	engine := &MemoryEngine{
		nodes: make(map[string]schemas.RenderNode),
		log:   f.log,
	}
	f.created = append(f.created, engine)
	return engine, nil
}

// SetData performs the initial full load.
func (e *MemoryEngine) SetData(nodes []schemas.RenderNode, edges []schemas.RenderEdge) error {
	return e.replace(nodes, edges)
}

// ReplaceData clears and bulk-inserts the collections without touching any
// other engine state. Reset count is tracked so tests can assert identity
// semantics.
func (e *MemoryEngine) ReplaceData(nodes []schemas.RenderNode, edges []schemas.RenderEdge) error {
	e.mu.Lock()
	e.resets++
	e.mu.Unlock()
	return e.replace(nodes, edges)
}

func (e *MemoryEngine) replace(nodes []schemas.RenderNode, edges []schemas.RenderEdge) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return ErrEngineDestroyed
	}

	e.nodes = make(map[string]schemas.RenderNode, len(nodes))
	for _, n := range nodes {
		e.nodes[n.ID] = n
	}
	// Edges are a plain list: parallel relationships must not collapse.
	e.edges = append([]schemas.RenderEdge(nil), edges...)

	e.log.Debug("Engine collections replaced",
		zap.Int("nodes", len(e.nodes)),
		zap.Int("edges", len(e.edges)),
	)
	return nil
}

// Counts implements schemas.RenderEngine.
func (e *MemoryEngine) Counts() (int, int) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.nodes), len(e.edges)
}

// Nodes returns a copy of the currently held node records.
func (e *MemoryEngine) Nodes() []schemas.RenderNode {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]schemas.RenderNode, 0, len(e.nodes))
	for _, n := range e.nodes {
		out = append(out, n)
	}
	return out
}

// Edges returns a copy of the currently held edge records.
func (e *MemoryEngine) Edges() []schemas.RenderEdge {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]schemas.RenderEdge(nil), e.edges...)
}

// Resets reports how many in-place replacements this engine has served.
func (e *MemoryEngine) Resets() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.resets
}

// Destroy implements schemas.RenderEngine. Idempotent.
func (e *MemoryEngine) Destroy() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.destroyed = true
	e.nodes = nil
	e.edges = nil
	return nil
}

// Destroyed reports whether Destroy has been called.
func (e *MemoryEngine) Destroyed() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.destroyed
}

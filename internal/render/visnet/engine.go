// Package visnet renders knowledge graphs with vis-network inside a real
// browser page driven over the Chrome DevTools Protocol. The page-side
// network object is created exactly once per engine; subsequent data pushes
// go through DataSet.clear()/add() so camera, zoom and physics warm-start
// survive every refresh.
package visnet

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/maolala233/smart-brain/api/schemas"
	"github.com/maolala233/smart-brain/internal/config"
)

// Factory owns the browser allocator and creates one tab per engine.
type Factory struct {
	cfg    config.RenderConfig
	logger *zap.Logger

	allocatorCtx    context.Context
	allocatorCancel context.CancelFunc

	mu      sync.Mutex
	engines map[string]*Engine
}

var _ schemas.EngineFactory = (*Factory)(nil)

// NewFactory starts the browser allocator. The browser executable itself is
// launched lazily with the first tab.
func NewFactory(ctx context.Context, cfg config.RenderConfig, logger *zap.Logger) *Factory {
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if cfg.Headless {
		opts = append(opts, chromedp.Headless)
	}
	opts = append(opts,
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-gpu", cfg.Headless),
	)

	f := &Factory{
		cfg:     cfg,
		logger:  logger.Named("visnet"),
		engines: make(map[string]*Engine),
	}
	f.allocatorCtx, f.allocatorCancel = chromedp.NewExecAllocator(ctx, opts...)
	return f
}

// New opens a tab hosting an empty container div plus the vis-network
// library and returns the engine bound to it.
func (f *Factory) New(containerID string) (schemas.RenderEngine, error) {
	tabCtx, tabCancel := chromedp.NewContext(f.allocatorCtx,
		chromedp.WithLogf(f.logger.Sugar().Debugf),
		chromedp.WithErrorf(f.logger.Sugar().Errorf),
	)

	page := fmt.Sprintf(
		`<!DOCTYPE html><html><head><script src=%q></script></head>`+
			`<body style="margin:0"><div id=%q style="width:100vw;height:100vh"></div></body></html>`,
		f.cfg.VisLibraryURL, containerID,
	)

	timeout := f.cfg.AttachTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	runCtx, cancel := context.WithTimeout(tabCtx, timeout)
	defer cancel()

	err := chromedp.Run(runCtx,
		chromedp.Navigate("data:text/html,"+url.PathEscape(page)),
		chromedp.Poll(
			fmt.Sprintf("typeof window.vis !== 'undefined' && document.getElementById(%q) !== null", containerID),
			nil,
		),
	)
	if err != nil {
		tabCancel()
		return nil, fmt.Errorf("failed to mount vis-network container %q: %w", containerID, err)
	}

	e := &Engine{
		container: containerID,
		ctx:       tabCtx,
		cancel:    tabCancel,
		physics:   f.cfg.Physics,
		log:       f.logger,
	}
	f.mu.Lock()
	f.engines[containerID] = e
	f.mu.Unlock()

	f.logger.Debug("Browser engine tab opened", zap.String("container", containerID))
	return e, nil
}

// Shutdown destroys every live engine and then the browser itself.
func (f *Factory) Shutdown(ctx context.Context) error {
	f.mu.Lock()
	engines := make([]*Engine, 0, len(f.engines))
	for _, e := range f.engines {
		engines = append(engines, e)
	}
	f.engines = make(map[string]*Engine)
	f.mu.Unlock()

	for _, e := range engines {
		if err := e.Destroy(); err != nil {
			f.logger.Warn("Engine destroy during shutdown failed",
				zap.String("container", e.container), zap.Error(err))
		}
	}
	if f.allocatorCancel != nil {
		f.allocatorCancel()
	}
	f.logger.Info("Browser renderer shutdown complete", zap.Int("engines_closed", len(engines)))
	return nil
}

// Engine drives one vis-network instance in one browser tab.
type Engine struct {
	container string
	ctx       context.Context
	cancel    context.CancelFunc
	physics   bool
	log       *zap.Logger

	mu          sync.Mutex
	initialized bool
	destroyed   bool
}

var _ schemas.RenderEngine = (*Engine)(nil)

// SetData constructs the page-side DataSets and the network object. Called
// exactly once per engine.
func (e *Engine) SetData(nodes []schemas.RenderNode, edges []schemas.RenderEdge) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return fmt.Errorf("engine for container %q already destroyed", e.container)
	}
	if e.initialized {
		// In-place update instead; the network must never be rebuilt.
		return e.replaceLocked(nodes, edges)
	}

	nodesJSON, edgesJSON, err := marshalData(nodes, edges)
	if err != nil {
		return err
	}

	js := fmt.Sprintf(`
		window.__sbNodes = new vis.DataSet(%s);
		window.__sbEdges = new vis.DataSet(%s);
		window.__sbNetwork = new vis.Network(
			document.getElementById(%q),
			{ nodes: window.__sbNodes, edges: window.__sbEdges },
			{ physics: { enabled: %t }, edges: { arrows: 'to' } }
		);
		true;
	`, nodesJSON, edgesJSON, e.container, e.physics)

	if err := chromedp.Run(e.ctx, chromedp.Evaluate(js, nil)); err != nil {
		return fmt.Errorf("failed to initialize vis network: %w", err)
	}
	e.initialized = true
	e.log.Debug("Vis network constructed",
		zap.String("container", e.container),
		zap.Int("nodes", len(nodes)),
		zap.Int("edges", len(edges)),
	)
	return nil
}

// ReplaceData swaps both DataSets in place, leaving the network object and
// its view state untouched.
func (e *Engine) ReplaceData(nodes []schemas.RenderNode, edges []schemas.RenderEdge) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return fmt.Errorf("engine for container %q already destroyed", e.container)
	}
	if !e.initialized {
		return fmt.Errorf("engine for container %q has no data yet", e.container)
	}
	return e.replaceLocked(nodes, edges)
}

func (e *Engine) replaceLocked(nodes []schemas.RenderNode, edges []schemas.RenderEdge) error {
	nodesJSON, edgesJSON, err := marshalData(nodes, edges)
	if err != nil {
		return err
	}

	js := fmt.Sprintf(`
		window.__sbNodes.clear();
		window.__sbNodes.add(%s);
		window.__sbEdges.clear();
		window.__sbEdges.add(%s);
		true;
	`, nodesJSON, edgesJSON)

	if err := chromedp.Run(e.ctx, chromedp.Evaluate(js, nil)); err != nil {
		return fmt.Errorf("failed to replace vis datasets: %w", err)
	}
	e.log.Debug("Vis datasets replaced",
		zap.String("container", e.container),
		zap.Int("nodes", len(nodes)),
		zap.Int("edges", len(edges)),
	)
	return nil
}

// Counts reads the live DataSet lengths from the page.
func (e *Engine) Counts() (int, int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed || !e.initialized {
		return 0, 0
	}

	var counts [2]int
	js := `[window.__sbNodes.length, window.__sbEdges.length]`
	if err := chromedp.Run(e.ctx, chromedp.Evaluate(js, &counts)); err != nil {
		e.log.Warn("Failed to read dataset counts", zap.Error(err))
		return 0, 0
	}
	return counts[0], counts[1]
}

// Destroy closes the tab. Idempotent.
func (e *Engine) Destroy() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return nil
	}
	e.destroyed = true
	e.cancel()
	e.log.Debug("Browser engine tab closed", zap.String("container", e.container))
	return nil
}

func marshalData(nodes []schemas.RenderNode, edges []schemas.RenderEdge) (string, string, error) {
	nodesJSON, err := json.Marshal(nodes)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal nodes: %w", err)
	}
	edgesJSON, err := json.Marshal(edges)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal edges: %w", err)
	}
	return string(nodesJSON), string(edgesJSON), nil
}

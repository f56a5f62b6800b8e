package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/maolala233/smart-brain/api/schemas"
	"github.com/maolala233/smart-brain/internal/apiclient"
	"github.com/maolala233/smart-brain/internal/config"
	"github.com/maolala233/smart-brain/internal/graphstore"
	"github.com/maolala233/smart-brain/internal/ingest"
	"github.com/maolala233/smart-brain/internal/observability"
	"github.com/maolala233/smart-brain/internal/qa"
	"github.com/maolala233/smart-brain/internal/render"
	"github.com/maolala233/smart-brain/internal/render/visnet"
	"github.com/maolala233/smart-brain/internal/subgraph"
)

// Components holds the initialized services a command needs. Centralizes
// lifecycle so every command tears down in the same order.
type Components struct {
	API       schemas.GraphAPI
	Store     *graphstore.Store
	Render    *render.Sync
	Subgraphs *subgraph.Manager
	Ingest    *ingest.Pipeline
	QA        *qa.Session

	// Main view handle, wired to store updates. Nil until a command
	// attaches the main container.
	mainHandle *render.Handle

	browser *visnet.Factory
	log     *zap.Logger
}

// NewComponents builds the component graph from the loaded configuration.
func NewComponents(ctx context.Context) (*Components, error) {
	cfg := config.Get()
	logger := observability.GetLogger()

	api := apiclient.New(cfg.API, logger)

	store, err := graphstore.New(api, cfg.Render.SnapshotCache, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build graph store: %w", err)
	}

	c := &Components{
		API:   api,
		Store: store,
		log:   logger,
	}

	var factory schemas.EngineFactory
	switch cfg.Render.Engine {
	case config.EngineBrowser:
		c.browser = visnet.NewFactory(ctx, cfg.Render, logger)
		factory = c.browser
	default:
		factory = render.NewMemoryFactory(logger)
	}

	c.Render = render.NewSync(factory, cfg.Render.NodeSize, logger)
	c.Subgraphs = subgraph.NewManager(api, store, logger)
	c.Ingest = ingest.NewPipeline(api, store, logger)
	c.QA = qa.NewSession(api, c.Render, cfg.QA.HistoryWindow, logger)

	return c, nil
}

// AttachMainView binds the main graph container and forwards every store
// publish into it. The engine handle survives all subsequent updates.
func (c *Components) AttachMainView(container string) error {
	handle, err := c.Render.Attach(container)
	if err != nil {
		return err
	}
	c.mainHandle = handle
	c.Store.Subscribe(func(snapshot schemas.GraphSnapshot) {
		if err := c.Render.Update(handle, snapshot); err != nil {
			c.log.Warn("Main view update failed", zap.Error(err))
		}
	})
	return nil
}

// MainHandle returns the main view handle, nil when not attached.
func (c *Components) MainHandle() *render.Handle {
	return c.mainHandle
}

// Shutdown releases everything in reverse dependency order.
func (c *Components) Shutdown(ctx context.Context) {
	c.log.Debug("Beginning components shutdown sequence")

	if c.QA != nil {
		if err := c.QA.CloseEvidence(); err != nil {
			c.log.Warn("Failed to close evidence view", zap.Error(err))
		}
	}
	if c.Render != nil {
		c.Render.Shutdown(ctx)
	}
	if c.browser != nil {
		if err := c.browser.Shutdown(ctx); err != nil {
			c.log.Warn("Browser renderer shutdown failed", zap.Error(err))
		}
	}
	observability.Sync()
}

// Package ingest collects files and free text, submits them as one
// multipart unit bound to a single subgraph, and refreshes the graph store
// once the backend accepts the batch.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/maolala233/smart-brain/api/schemas"
	"github.com/maolala233/smart-brain/internal/graphstore"
)

// ErrBusy is returned when a submit for this pipeline is already in flight.
// A second submit is rejected, not queued: parallel uploads would spawn
// duplicate graph-construction jobs for the same subgraph.
var ErrBusy = errors.New("upload already in flight")

// Target names the user and subgraph an upload feeds.
type Target struct {
	UserID     int64
	SubgraphID int64
}

// stagedFile is one pending file. Content is buffered at staging time so a
// failed submit can be retried without re-reading the source.
type stagedFile struct {
	name    string
	content []byte
}

// Pipeline accumulates pending inputs and performs the submit.
type Pipeline struct {
	api   schemas.GraphAPI
	store *graphstore.Store
	log   *zap.Logger

	mu    sync.Mutex
	files []stagedFile
	text  string
	busy  bool
}

// NewPipeline creates an empty pipeline.
func NewPipeline(api schemas.GraphAPI, store *graphstore.Store, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		api:   api,
		store: store,
		log:   logger.Named("ingest"),
	}
}

// StageFile appends a file to the pending set. Files keep their staging
// order and duplicates by name are allowed.
func (p *Pipeline) StageFile(name string, r io.Reader) error {
	content, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read %q: %w", name, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.files = append(p.files, stagedFile{name: name, content: content})
	p.log.Debug("File staged", zap.String("name", name), zap.Int("bytes", len(content)))
	return nil
}

// StageText sets the free-text blob. A single replaceable value, not a list.
func (p *Pipeline) StageText(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.text = text
}

// Unstage removes the pending file at index i.
func (p *Pipeline) Unstage(i int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if i < 0 || i >= len(p.files) {
		return fmt.Errorf("no staged file at index %d", i)
	}
	p.files = append(p.files[:i], p.files[i+1:]...)
	return nil
}

// FileNames returns the names of the pending files in staging order.
func (p *Pipeline) FileNames() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, len(p.files))
	for i, f := range p.files {
		names[i] = f.name
	}
	return names
}

// Pending reports whether anything is staged: at least one file or a
// non-blank text blob.
func (p *Pipeline) Pending() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pendingLocked()
}

func (p *Pipeline) pendingLocked() bool {
	return len(p.files) > 0 || strings.TrimSpace(p.text) != ""
}

// Submit uploads the pending set to the target. Rejected locally, with no
// network call, when nothing is staged, the subgraph is missing, or another
// submit is still in flight. On success the pending set is cleared and the
// graph store reloaded for the target; on failure the pending set is
// preserved for retry.
func (p *Pipeline) Submit(ctx context.Context, target Target) error {
	if target.SubgraphID == 0 {
		return schemas.NewValidationError("subgraph", "no subgraph selected")
	}
	if target.UserID == 0 {
		return schemas.NewValidationError("user", "no user selected")
	}

	p.mu.Lock()
	if p.busy {
		p.mu.Unlock()
		return ErrBusy
	}
	if !p.pendingLocked() {
		p.mu.Unlock()
		return schemas.NewValidationError("upload", "nothing staged")
	}
	p.busy = true
	files := make([]schemas.UploadFile, len(p.files))
	for i, f := range p.files {
		files[i] = schemas.UploadFile{Name: f.name, Reader: bytes.NewReader(f.content)}
	}
	text := strings.TrimSpace(p.text)
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.busy = false
		p.mu.Unlock()
	}()

	result, err := p.api.Upload(ctx, target.UserID, target.SubgraphID, files, text)
	if err != nil {
		p.log.Warn("Upload failed, pending set preserved",
			zap.Int64("subgraph_id", target.SubgraphID),
			zap.Error(err),
		)
		return err
	}

	p.mu.Lock()
	p.files = nil
	p.text = ""
	p.mu.Unlock()

	p.log.Info("Upload accepted",
		zap.Int64("subgraph_id", target.SubgraphID),
		zap.Int("nodes", result.NodesCount),
		zap.Int("relationships", result.RelationshipsCount),
	)

	// The backend builds the graph asynchronously; this reload is how the
	// client observes whatever has landed so far.
	if _, err := p.store.Load(ctx, target.UserID, target.SubgraphID); err != nil {
		return err
	}
	return nil
}

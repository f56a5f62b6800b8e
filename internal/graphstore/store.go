// Package graphstore holds the normalized in-memory snapshot of the
// currently displayed subgraph and enforces fetch ordering for it.
package graphstore

import (
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/maolala233/smart-brain/api/schemas"
)

// Subscriber receives every snapshot the store publishes.
type Subscriber func(schemas.GraphSnapshot)

// viewKey identifies one logical view: a subgraph of a user.
type viewKey struct {
	userID     int64
	subgraphID int64
}

// Store is the single source of truth for the displayed graph. Two loads for
// the same view may overlap; only the most recently issued one is allowed to
// publish, regardless of completion order.
type Store struct {
	api schemas.GraphAPI
	log *zap.Logger

	mu       sync.Mutex
	snapshot schemas.GraphSnapshot
	seq      uint64
	subs     []Subscriber
	lastGood *lru.Cache[viewKey, schemas.GraphSnapshot]
}

// New creates a store backed by the given API. cacheSize bounds the per-view
// last-good snapshot cache.
func New(api schemas.GraphAPI, cacheSize int, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cache, err := lru.New[viewKey, schemas.GraphSnapshot](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot cache: %w", err)
	}
	return &Store{
		api:      api,
		log:      logger.Named("graphstore"),
		lastGood: cache,
	}, nil
}

// Subscribe registers a callback invoked on every successful Load and Clear.
// The callback runs synchronously under the publish path; it must not call
// back into the store.
func (s *Store) Subscribe(sub Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, sub)
}

// Snapshot returns the currently published snapshot.
func (s *Store) Snapshot() schemas.GraphSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

// LastGood returns the most recent successfully loaded snapshot for a view,
// if one is cached. Lets the UI repaint instantly on view switches while the
// fresh load is in flight.
func (s *Store) LastGood(userID, subgraphID int64) (schemas.GraphSnapshot, bool) {
	return s.lastGood.Get(viewKey{userID: userID, subgraphID: subgraphID})
}

// Load fetches the snapshot for a view and publishes it, unless a newer load
// was issued while this one was in flight. A superseded result is discarded
// silently. A failed load leaves the published snapshot untouched and
// returns a *FetchError.
func (s *Store) Load(ctx context.Context, userID, subgraphID int64) (schemas.GraphSnapshot, error) {
	s.mu.Lock()
	s.seq++
	token := s.seq
	s.mu.Unlock()

	snapshot, err := s.api.GetGraph(ctx, userID, subgraphID)
	if err != nil {
		s.log.Warn("Graph load failed",
			zap.Int64("user_id", userID),
			zap.Int64("subgraph_id", subgraphID),
			zap.Error(err),
		)
		return schemas.GraphSnapshot{}, err
	}

	s.mu.Lock()
	if token != s.seq {
		// A newer load was issued while this one was in flight.
		s.mu.Unlock()
		s.log.Debug("Discarding superseded graph load",
			zap.Uint64("token", token),
			zap.Uint64("latest", s.seq),
		)
		return snapshot, nil
	}
	s.snapshot = snapshot
	subs := append([]Subscriber(nil), s.subs...)
	s.mu.Unlock()

	s.lastGood.Add(viewKey{userID: userID, subgraphID: subgraphID}, snapshot)
	s.publish(subs, snapshot)

	s.log.Debug("Graph snapshot published",
		zap.Int64("user_id", userID),
		zap.Int64("subgraph_id", subgraphID),
		zap.Int("nodes", len(snapshot.Nodes)),
		zap.Int("relationships", len(snapshot.Relationships)),
	)
	return snapshot, nil
}

// Clear resets the store to an empty snapshot and publishes it. Used after a
// destructive delete of the displayed subgraph.
func (s *Store) Clear() {
	s.mu.Lock()
	// Bump the sequence so any load still in flight resolves superseded and
	// cannot resurrect the deleted graph.
	s.seq++
	s.snapshot = schemas.GraphSnapshot{}
	subs := append([]Subscriber(nil), s.subs...)
	s.mu.Unlock()

	s.publish(subs, schemas.GraphSnapshot{})
	s.log.Debug("Graph snapshot cleared")
}

func (s *Store) publish(subs []Subscriber, snapshot schemas.GraphSnapshot) {
	for _, sub := range subs {
		sub(snapshot)
	}
}

// Package subgraph drives the subgraph lifecycle for one user context:
// listing, selection, create/rename/delete, and the cascading resets that
// keep the displayed graph consistent with the selection.
package subgraph

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/maolala233/smart-brain/api/schemas"
	"github.com/maolala233/smart-brain/internal/graphstore"
)

// ErrBusy is returned when a mutating call is already in flight. Callers
// disable the triggering control rather than queueing.
var ErrBusy = errors.New("subgraph operation already in flight")

// State is the explicit selection state. Tagged states instead of boolean
// flags keep the "empty subgraph after user change" rule checkable.
type State int

const (
	// StateNoUser: nothing selected, no list loaded.
	StateNoUser State = iota
	// StateUserOnly: a user is selected, the list is loaded, no subgraph.
	StateUserOnly
	// StateSubgraph: a subgraph of the selected user is active.
	StateSubgraph
)

func (s State) String() string {
	switch s {
	case StateNoUser:
		return "NoUserSelected"
	case StateUserOnly:
		return "UserSelected"
	case StateSubgraph:
		return "SubgraphSelected"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Manager owns the per-user subgraph list and selection.
type Manager struct {
	api   schemas.GraphAPI
	store *graphstore.Store
	log   *zap.Logger

	mu        sync.Mutex
	state     State
	userID    int64
	subgraphs []schemas.Subgraph
	selected  int64
	busy      bool
}

// NewManager creates a manager in StateNoUser.
func NewManager(api schemas.GraphAPI, store *graphstore.Store, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		api:   api,
		store: store,
		log:   logger.Named("subgraphs"),
	}
}

// State returns the current selection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// UserID returns the selected user, zero when none.
func (m *Manager) UserID() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.userID
}

// Subgraphs returns a copy of the loaded list.
func (m *Manager) Subgraphs() []schemas.Subgraph {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]schemas.Subgraph(nil), m.subgraphs...)
}

// Selected returns the active subgraph id, or false when no subgraph is
// selected.
func (m *Manager) Selected() (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selected, m.state == StateSubgraph
}

// SelectUser switches the user context. The subgraph list is fetched, the
// subgraph selection is forced empty, then the first subgraph (if any) is
// auto-selected, which triggers the graph load. On fetch failure the
// previous list and selection are left exactly as they were.
func (m *Manager) SelectUser(ctx context.Context, userID int64) error {
	if err := m.acquire(); err != nil {
		return err
	}
	defer m.release()

	list, err := m.api.ListSubgraphs(ctx, userID)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.userID = userID
	m.subgraphs = list
	m.selected = 0
	m.state = StateUserOnly
	m.mu.Unlock()

	m.log.Debug("User selected",
		zap.Int64("user_id", userID),
		zap.Int("subgraphs", len(list)),
	)

	if len(list) == 0 {
		return nil
	}
	return m.doSelect(ctx, list[0].ID)
}

// Select activates one subgraph of the current user and triggers a graph
// load for it. The load failing does not undo the selection; retry is a
// manual user action.
func (m *Manager) Select(ctx context.Context, subgraphID int64) error {
	if err := m.acquire(); err != nil {
		return err
	}
	defer m.release()
	return m.doSelect(ctx, subgraphID)
}

func (m *Manager) doSelect(ctx context.Context, subgraphID int64) error {
	m.mu.Lock()
	if m.state == StateNoUser {
		m.mu.Unlock()
		return schemas.NewValidationError("user", "no user selected")
	}
	if !m.inListLocked(subgraphID) {
		m.mu.Unlock()
		return schemas.NewValidationError("subgraph", fmt.Sprintf("subgraph %d does not belong to user %d", subgraphID, m.userID))
	}
	m.selected = subgraphID
	m.state = StateSubgraph
	userID := m.userID
	m.mu.Unlock()

	if _, err := m.store.Load(ctx, userID, subgraphID); err != nil {
		return err
	}
	return nil
}

// Create makes a new subgraph for the current user, appends it to the list
// and auto-selects it. Empty (trimmed) names are rejected before any
// network call.
func (m *Manager) Create(ctx context.Context, name, description string) (schemas.Subgraph, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return schemas.Subgraph{}, schemas.NewValidationError("name", "must not be empty")
	}

	if err := m.acquire(); err != nil {
		return schemas.Subgraph{}, err
	}
	defer m.release()

	m.mu.Lock()
	if m.state == StateNoUser {
		m.mu.Unlock()
		return schemas.Subgraph{}, schemas.NewValidationError("user", "no user selected")
	}
	userID := m.userID
	m.mu.Unlock()

	created, err := m.api.CreateSubgraph(ctx, schemas.SubgraphCreate{
		UserID:      userID,
		Name:        name,
		Description: description,
	})
	if err != nil {
		return schemas.Subgraph{}, err
	}

	m.mu.Lock()
	m.subgraphs = append(m.subgraphs, created)
	m.mu.Unlock()

	m.log.Info("Subgraph created", zap.Int64("id", created.ID), zap.String("name", created.Name))
	if err := m.doSelect(ctx, created.ID); err != nil {
		return created, err
	}
	return created, nil
}

// Rename updates a subgraph's name and description in place. Selection and
// the displayed graph are untouched; no refetch happens.
func (m *Manager) Rename(ctx context.Context, subgraphID int64, name, description string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return schemas.NewValidationError("name", "must not be empty")
	}

	if err := m.acquire(); err != nil {
		return err
	}
	defer m.release()

	m.mu.Lock()
	if !m.inListLocked(subgraphID) {
		m.mu.Unlock()
		return schemas.NewValidationError("subgraph", fmt.Sprintf("unknown subgraph %d", subgraphID))
	}
	m.mu.Unlock()

	updated, err := m.api.UpdateSubgraph(ctx, subgraphID, schemas.SubgraphUpdate{
		Name:        name,
		Description: description,
	})
	if err != nil {
		return err
	}

	m.mu.Lock()
	for i := range m.subgraphs {
		if m.subgraphs[i].ID == subgraphID {
			m.subgraphs[i].Name = updated.Name
			m.subgraphs[i].Description = updated.Description
			break
		}
	}
	m.mu.Unlock()
	return nil
}

// Delete removes a subgraph. Deleting the active one clears the displayed
// graph and drops back to UserSelected; deleting any other only shrinks the
// list. On backend rejection nothing changes.
func (m *Manager) Delete(ctx context.Context, subgraphID int64) error {
	if err := m.acquire(); err != nil {
		return err
	}
	defer m.release()

	m.mu.Lock()
	if !m.inListLocked(subgraphID) {
		m.mu.Unlock()
		return schemas.NewValidationError("subgraph", fmt.Sprintf("unknown subgraph %d", subgraphID))
	}
	m.mu.Unlock()

	if err := m.api.DeleteSubgraph(ctx, subgraphID); err != nil {
		return err
	}

	m.mu.Lock()
	kept := m.subgraphs[:0]
	for _, sg := range m.subgraphs {
		if sg.ID != subgraphID {
			kept = append(kept, sg)
		}
	}
	m.subgraphs = kept
	wasSelected := m.state == StateSubgraph && m.selected == subgraphID
	if wasSelected {
		m.selected = 0
		m.state = StateUserOnly
	}
	m.mu.Unlock()

	if wasSelected {
		m.store.Clear()
	}
	m.log.Info("Subgraph deleted",
		zap.Int64("id", subgraphID),
		zap.Bool("was_selected", wasSelected),
	)
	return nil
}

// inListLocked reports membership of an id in the loaded list. Caller holds
// the mutex.
func (m *Manager) inListLocked(subgraphID int64) bool {
	for _, sg := range m.subgraphs {
		if sg.ID == subgraphID {
			return true
		}
	}
	return false
}

func (m *Manager) acquire() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.busy {
		return ErrBusy
	}
	m.busy = true
	return nil
}

func (m *Manager) release() {
	m.mu.Lock()
	m.busy = false
	m.mu.Unlock()
}

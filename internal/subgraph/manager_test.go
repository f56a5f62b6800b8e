package subgraph

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/maolala233/smart-brain/api/schemas"
	"github.com/maolala233/smart-brain/internal/graphstore"
	"github.com/maolala233/smart-brain/internal/mocks"
)

// -- Test Fixture Setup --

type managerTestFixture struct {
	Logger *zap.Logger
}

var globalFixture *managerTestFixture

func TestMain(m *testing.M) {
	logger, _ := zap.NewDevelopment()
	globalFixture = &managerTestFixture{Logger: logger}

	exitCode := m.Run()

	_ = globalFixture.Logger.Sync()
	os.Exit(exitCode)
}

// -- Test Helper Functions --

func newTestManager(t *testing.T, api *mocks.MockGraphAPI) (*Manager, *graphstore.Store) {
	t.Helper()
	store, err := graphstore.New(api, 8, globalFixture.Logger)
	require.NoError(t, err)
	return NewManager(api, store, globalFixture.Logger), store
}

func testList(ids ...int64) []schemas.Subgraph {
	list := make([]schemas.Subgraph, 0, len(ids))
	for _, id := range ids {
		list = append(list, schemas.Subgraph{ID: id, UserID: 1, Name: "sg"})
	}
	return list
}

func graphWith(nodeID string) schemas.GraphSnapshot {
	return schemas.GraphSnapshot{Nodes: []schemas.Node{{ID: nodeID, Label: "Concept", Name: nodeID}}}
}

// -- Test Cases --

func TestManagerInitialState(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t, new(mocks.MockGraphAPI))
	assert.Equal(t, StateNoUser, m.State())
	_, ok := m.Selected()
	assert.False(t, ok)
}

func TestManagerSelectUserAutoSelectsFirstSubgraph(t *testing.T) {
	t.Parallel()

	api := new(mocks.MockGraphAPI)
	api.On("ListSubgraphs", mock.Anything, int64(1)).Return(testList(10, 11), nil).Once()
	api.On("GetGraph", mock.Anything, int64(1), int64(10)).Return(graphWith("a"), nil).Once()

	m, store := newTestManager(t, api)
	require.NoError(t, m.SelectUser(context.Background(), 1))

	assert.Equal(t, StateSubgraph, m.State())
	selected, ok := m.Selected()
	require.True(t, ok)
	assert.Equal(t, int64(10), selected)
	assert.Len(t, m.Subgraphs(), 2)
	assert.Len(t, store.Snapshot().Nodes, 1, "Auto-selection must load the graph")

	api.AssertExpectations(t)
}

func TestManagerSelectUserWithEmptyList(t *testing.T) {
	t.Parallel()

	api := new(mocks.MockGraphAPI)
	api.On("ListSubgraphs", mock.Anything, int64(2)).Return(testList(), nil).Once()

	m, _ := newTestManager(t, api)
	require.NoError(t, m.SelectUser(context.Background(), 2))

	assert.Equal(t, StateUserOnly, m.State())
	_, ok := m.Selected()
	assert.False(t, ok)
	api.AssertNotCalled(t, "GetGraph", mock.Anything, mock.Anything, mock.Anything)
}

// TestManagerSelectUserFailureKeepsContext verifies the no-partial-mutation
// rule: a failed list fetch leaves the previous user context fully intact.
func TestManagerSelectUserFailureKeepsContext(t *testing.T) {
	t.Parallel()

	api := new(mocks.MockGraphAPI)
	api.On("ListSubgraphs", mock.Anything, int64(1)).Return(testList(10), nil).Once()
	api.On("GetGraph", mock.Anything, int64(1), int64(10)).Return(graphWith("a"), nil).Once()
	api.On("ListSubgraphs", mock.Anything, int64(2)).
		Return(nil, &schemas.FetchError{Op: "list subgraphs", Status: 500}).Once()

	m, _ := newTestManager(t, api)
	require.NoError(t, m.SelectUser(context.Background(), 1))

	err := m.SelectUser(context.Background(), 2)
	require.Error(t, err)

	assert.Equal(t, int64(1), m.UserID(), "The previous user must survive a failed switch")
	assert.Equal(t, StateSubgraph, m.State())
	selected, ok := m.Selected()
	require.True(t, ok)
	assert.Equal(t, int64(10), selected)
}

func TestManagerSelectValidation(t *testing.T) {
	t.Parallel()

	api := new(mocks.MockGraphAPI)
	api.On("ListSubgraphs", mock.Anything, int64(1)).Return(testList(10), nil).Once()
	api.On("GetGraph", mock.Anything, int64(1), int64(10)).Return(graphWith("a"), nil).Once()

	m, _ := newTestManager(t, api)

	var vErr *schemas.ValidationError
	err := m.Select(context.Background(), 10)
	require.Error(t, err, "Selecting before a user is chosen must fail")
	assert.ErrorAs(t, err, &vErr)

	require.NoError(t, m.SelectUser(context.Background(), 1))

	err = m.Select(context.Background(), 99)
	require.Error(t, err, "A foreign subgraph id must be rejected")
	assert.ErrorAs(t, err, &vErr)
	api.AssertNumberOfCalls(t, "GetGraph", 1)
}

// TestManagerSelectLoadFailureKeepsSelection: the selection commits before
// the graph load, and a failed load does not roll it back.
func TestManagerSelectLoadFailureKeepsSelection(t *testing.T) {
	t.Parallel()

	api := new(mocks.MockGraphAPI)
	api.On("ListSubgraphs", mock.Anything, int64(1)).Return(testList(10, 11), nil).Once()
	api.On("GetGraph", mock.Anything, int64(1), int64(10)).Return(graphWith("a"), nil).Once()
	api.On("GetGraph", mock.Anything, int64(1), int64(11)).
		Return(nil, &schemas.FetchError{Op: "get graph", Status: 502}).Once()

	m, _ := newTestManager(t, api)
	require.NoError(t, m.SelectUser(context.Background(), 1))

	err := m.Select(context.Background(), 11)
	require.Error(t, err)

	selected, ok := m.Selected()
	require.True(t, ok)
	assert.Equal(t, int64(11), selected, "A failed load must not undo the selection")
}

func TestManagerCreate(t *testing.T) {
	t.Parallel()

	created := schemas.Subgraph{ID: 42, UserID: 1, Name: "research"}

	api := new(mocks.MockGraphAPI)
	api.On("ListSubgraphs", mock.Anything, int64(1)).Return(testList(), nil).Once()
	api.On("CreateSubgraph", mock.Anything, schemas.SubgraphCreate{UserID: 1, Name: "research", Description: "notes"}).
		Return(created, nil).Once()
	api.On("GetGraph", mock.Anything, int64(1), int64(42)).Return(schemas.GraphSnapshot{}, nil).Once()

	m, _ := newTestManager(t, api)
	require.NoError(t, m.SelectUser(context.Background(), 1))

	got, err := m.Create(context.Background(), "  research  ", "notes")
	require.NoError(t, err)
	assert.Equal(t, created, got)

	selected, ok := m.Selected()
	require.True(t, ok)
	assert.Equal(t, int64(42), selected, "A created subgraph becomes the active one")
	assert.Len(t, m.Subgraphs(), 1)

	api.AssertExpectations(t)
}

func TestManagerCreateRejectsBlankName(t *testing.T) {
	t.Parallel()

	api := new(mocks.MockGraphAPI)
	m, _ := newTestManager(t, api)

	_, err := m.Create(context.Background(), "   ", "")
	var vErr *schemas.ValidationError
	require.ErrorAs(t, err, &vErr)
	api.AssertNotCalled(t, "CreateSubgraph", mock.Anything, mock.Anything)
}

func TestManagerRenameUpdatesInPlace(t *testing.T) {
	t.Parallel()

	api := new(mocks.MockGraphAPI)
	api.On("ListSubgraphs", mock.Anything, int64(1)).Return(testList(10, 11), nil).Once()
	api.On("GetGraph", mock.Anything, int64(1), int64(10)).Return(graphWith("a"), nil).Once()
	api.On("UpdateSubgraph", mock.Anything, int64(11), schemas.SubgraphUpdate{Name: "renamed", Description: "d"}).
		Return(schemas.Subgraph{ID: 11, UserID: 1, Name: "renamed", Description: "d"}, nil).Once()

	m, _ := newTestManager(t, api)
	require.NoError(t, m.SelectUser(context.Background(), 1))

	require.NoError(t, m.Rename(context.Background(), 11, "renamed", "d"))

	list := m.Subgraphs()
	require.Len(t, list, 2)
	assert.Equal(t, "renamed", list[1].Name)

	// Rename never refetches the list or the graph.
	api.AssertNumberOfCalls(t, "ListSubgraphs", 1)
	api.AssertNumberOfCalls(t, "GetGraph", 1)
}

func TestManagerDeleteSelectedClearsGraph(t *testing.T) {
	t.Parallel()

	api := new(mocks.MockGraphAPI)
	api.On("ListSubgraphs", mock.Anything, int64(1)).Return(testList(10, 11), nil).Once()
	api.On("GetGraph", mock.Anything, int64(1), int64(10)).Return(graphWith("a"), nil).Once()
	api.On("DeleteSubgraph", mock.Anything, int64(10)).Return(nil).Once()

	m, store := newTestManager(t, api)
	require.NoError(t, m.SelectUser(context.Background(), 1))
	require.False(t, store.Snapshot().Empty())

	require.NoError(t, m.Delete(context.Background(), 10))

	assert.Equal(t, StateUserOnly, m.State())
	_, ok := m.Selected()
	assert.False(t, ok)
	assert.True(t, store.Snapshot().Empty(), "Deleting the active subgraph clears the display")
	assert.Len(t, m.Subgraphs(), 1)
}

func TestManagerDeleteOtherKeepsSelection(t *testing.T) {
	t.Parallel()

	api := new(mocks.MockGraphAPI)
	api.On("ListSubgraphs", mock.Anything, int64(1)).Return(testList(10, 11), nil).Once()
	api.On("GetGraph", mock.Anything, int64(1), int64(10)).Return(graphWith("a"), nil).Once()
	api.On("DeleteSubgraph", mock.Anything, int64(11)).Return(nil).Once()

	m, store := newTestManager(t, api)
	require.NoError(t, m.SelectUser(context.Background(), 1))

	require.NoError(t, m.Delete(context.Background(), 11))

	selected, ok := m.Selected()
	require.True(t, ok)
	assert.Equal(t, int64(10), selected)
	assert.False(t, store.Snapshot().Empty(), "Deleting another subgraph leaves the display alone")
}

func TestManagerDeleteBackendRejection(t *testing.T) {
	t.Parallel()

	api := new(mocks.MockGraphAPI)
	api.On("ListSubgraphs", mock.Anything, int64(1)).Return(testList(10), nil).Once()
	api.On("GetGraph", mock.Anything, int64(1), int64(10)).Return(graphWith("a"), nil).Once()
	api.On("DeleteSubgraph", mock.Anything, int64(10)).
		Return(&schemas.RequestError{Op: "delete subgraph", Status: 409}).Once()

	m, store := newTestManager(t, api)
	require.NoError(t, m.SelectUser(context.Background(), 1))

	err := m.Delete(context.Background(), 10)
	require.Error(t, err)

	assert.Len(t, m.Subgraphs(), 1, "A rejected delete must not shrink the list")
	selected, ok := m.Selected()
	require.True(t, ok)
	assert.Equal(t, int64(10), selected)
	assert.False(t, store.Snapshot().Empty())
}

// TestManagerBusyRejection holds the manager busy with a slow list fetch and
// verifies a concurrent mutation is rejected instead of queued.
func TestManagerBusyRejection(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})

	api := new(mocks.MockGraphAPI)
	api.On("ListSubgraphs", mock.Anything, int64(1)).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(testList(), nil).Once()

	m, _ := newTestManager(t, api)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, m.SelectUser(context.Background(), 1))
	}()

	<-started
	err := m.SelectUser(context.Background(), 2)
	assert.ErrorIs(t, err, ErrBusy)
	_, err = m.Create(context.Background(), "blocked", "")
	assert.ErrorIs(t, err, ErrBusy)

	close(release)
	wg.Wait()

	// The manager is usable again once the in-flight call finishes.
	assert.Equal(t, StateUserOnly, m.State())
}

package render

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/maolala233/smart-brain/api/schemas"
)

// -- Test Fixture Setup --

type renderTestFixture struct {
	Logger *zap.Logger
}

var globalFixture *renderTestFixture

func TestMain(m *testing.M) {
	logger, _ := zap.NewDevelopment()
	globalFixture = &renderTestFixture{Logger: logger}

	exitCode := m.Run()

	_ = globalFixture.Logger.Sync()
	os.Exit(exitCode)
}

// -- Test Helper Functions --

func newTestSync(t *testing.T) (*Sync, *MemoryFactory) {
	t.Helper()
	factory := NewMemoryFactory(globalFixture.Logger)
	return NewSync(factory, 25, globalFixture.Logger), factory
}

func testSnapshot(nodeIDs []string, edges []schemas.Edge) schemas.GraphSnapshot {
	var snap schemas.GraphSnapshot
	for _, id := range nodeIDs {
		snap.Nodes = append(snap.Nodes, schemas.Node{ID: id, Label: "Person", Name: id})
	}
	snap.Relationships = edges
	return snap
}

// -- Test Cases --

func TestSyncFirstUpdateConstructsEngine(t *testing.T) {
	t.Parallel()

	sync, factory := newTestSync(t)
	h, err := sync.Attach("graph-view")
	require.NoError(t, err)

	require.Nil(t, h.Engine(), "No engine should exist before the first update")

	snap := testSnapshot([]string{"a", "b"}, []schemas.Edge{{From: "a", To: "b", Type: "KNOWS"}})
	require.NoError(t, sync.Update(h, snap))

	engine := h.Engine()
	require.NotNil(t, engine)
	require.Len(t, factory.Created(), 1)

	nodes, edgeCount := engine.Counts()
	assert.Equal(t, 2, nodes)
	assert.Equal(t, 1, edgeCount)
}

// TestSyncUpdatePreservesEngineIdentity pushes several snapshots through one
// handle and checks that the same engine instance serves all of them with
// in-place replacements.
func TestSyncUpdatePreservesEngineIdentity(t *testing.T) {
	t.Parallel()

	sync, factory := newTestSync(t)
	h, err := sync.Attach("graph-view")
	require.NoError(t, err)

	first := testSnapshot([]string{"a", "b", "c"}, []schemas.Edge{
		{From: "a", To: "b", Type: "KNOWS"},
		{From: "b", To: "c", Type: "WORKS_AT"},
	})
	require.NoError(t, sync.Update(h, first))
	engine := h.Engine()

	second := testSnapshot([]string{"x"}, nil)
	require.NoError(t, sync.Update(h, second))

	assert.Same(t, engine, h.Engine(), "Updates must never reconstruct the engine")
	require.Len(t, factory.Created(), 1, "Exactly one engine per handle lifetime")

	mem := factory.Created()[0]
	nodes, edges := mem.Counts()
	assert.Equal(t, 1, nodes, "The engine must hold exactly the second snapshot")
	assert.Equal(t, 0, edges)
	assert.Equal(t, 1, mem.Resets(), "The second update must be an in-place replace")
}

// TestSyncParallelEdgesStayDistinct feeds two relationships between the same
// node pair and expects both to reach the engine.
func TestSyncParallelEdgesStayDistinct(t *testing.T) {
	t.Parallel()

	sync, factory := newTestSync(t)
	h, err := sync.Attach("graph-view")
	require.NoError(t, err)

	snap := testSnapshot([]string{"a", "b"}, []schemas.Edge{
		{From: "a", To: "b", Type: "KNOWS"},
		{From: "a", To: "b", Type: "MANAGES"},
	})
	require.NoError(t, sync.Update(h, snap))

	mem := factory.Created()[0]
	edges := mem.Edges()
	require.Len(t, edges, 2)
	assert.NotEqual(t, edges[0].ID, edges[1].ID, "Parallel edges need distinct ids")
}

// TestSyncReplayAfterMount updates a handle whose container is not mounted
// yet, then mounts it and flushes. The cached snapshot must be delivered.
func TestSyncReplayAfterMount(t *testing.T) {
	t.Parallel()

	sync, factory := newTestSync(t)
	factory.SetMounted("late-view", false)

	h, err := sync.Attach("late-view")
	require.NoError(t, err)

	snap := testSnapshot([]string{"a"}, nil)
	require.NoError(t, sync.Update(h, snap), "An unmounted container is not an error")
	require.Nil(t, h.Engine())
	require.Empty(t, factory.Created())

	factory.SetMounted("late-view", true)
	require.NoError(t, sync.Flush(h))

	engine := h.Engine()
	require.NotNil(t, engine, "Flush after mount must construct the engine")
	nodes, _ := engine.Counts()
	assert.Equal(t, 1, nodes)

	// A second flush with nothing pending is a no-op.
	require.NoError(t, sync.Flush(h))
	require.Len(t, factory.Created(), 1)
}

func TestSyncDetach(t *testing.T) {
	t.Parallel()

	sync, factory := newTestSync(t)
	h, err := sync.Attach("graph-view")
	require.NoError(t, err)
	require.NoError(t, sync.Update(h, testSnapshot([]string{"a"}, nil)))

	require.NoError(t, sync.Detach(h))
	assert.True(t, factory.Created()[0].Destroyed(), "Detach must destroy the engine")

	// Idempotent: a second detach is a no-op.
	require.NoError(t, sync.Detach(h))
	require.NoError(t, sync.Detach(nil))

	err = sync.Update(h, testSnapshot([]string{"b"}, nil))
	assert.ErrorIs(t, err, ErrHandleDetached)
	assert.ErrorIs(t, sync.Flush(h), ErrHandleDetached)
}

// TestSyncIndependentHandles attaches two containers and verifies their
// engines never interfere, the way a main view and an evidence modal coexist.
func TestSyncIndependentHandles(t *testing.T) {
	t.Parallel()

	sync, factory := newTestSync(t)

	main, err := sync.Attach("graph-main")
	require.NoError(t, err)
	modal, err := sync.Attach("evidence-modal")
	require.NoError(t, err)
	assert.NotEqual(t, main.ID(), modal.ID())

	require.NoError(t, sync.Update(main, testSnapshot([]string{"a", "b", "c"}, nil)))
	require.NoError(t, sync.Update(modal, testSnapshot([]string{"x"}, nil)))

	require.Len(t, factory.Created(), 2)
	assert.NotSame(t, main.Engine(), modal.Engine())

	// Destroying the modal leaves the main view intact.
	require.NoError(t, sync.Detach(modal))
	mainNodes, _ := main.Engine().Counts()
	assert.Equal(t, 3, mainNodes)
	assert.False(t, factory.Created()[0].Destroyed())
}

func TestSyncShutdownReleasesAllHandles(t *testing.T) {
	t.Parallel()

	sync, factory := newTestSync(t)
	h1, err := sync.Attach("view-1")
	require.NoError(t, err)
	h2, err := sync.Attach("view-2")
	require.NoError(t, err)
	require.NoError(t, sync.Update(h1, testSnapshot([]string{"a"}, nil)))
	require.NoError(t, sync.Update(h2, testSnapshot([]string{"b"}, nil)))

	sync.Shutdown(context.Background())

	for _, engine := range factory.Created() {
		assert.True(t, engine.Destroyed())
	}
	assert.ErrorIs(t, sync.Update(h1, testSnapshot(nil, nil)), ErrHandleDetached)
}

func TestSyncAttachRejectsEmptyContainer(t *testing.T) {
	t.Parallel()

	sync, _ := newTestSync(t)
	_, err := sync.Attach("")
	require.Error(t, err)
}

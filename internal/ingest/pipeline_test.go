package ingest

import (
	"context"
	"os"
	"strings"
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

type pipelineTestFixture struct {
	Logger *zap.Logger
}

var globalFixture *pipelineTestFixture

func TestMain(m *testing.M) {
	logger, _ := zap.NewDevelopment()
	globalFixture = &pipelineTestFixture{Logger: logger}

	exitCode := m.Run()

	_ = globalFixture.Logger.Sync()
	os.Exit(exitCode)
}

// -- Test Helper Functions --

func newTestPipeline(t *testing.T, api *mocks.MockGraphAPI) (*Pipeline, *graphstore.Store) {
	t.Helper()
	store, err := graphstore.New(api, 8, globalFixture.Logger)
	require.NoError(t, err)
	return NewPipeline(api, store, globalFixture.Logger), store
}

var testTarget = Target{UserID: 1, SubgraphID: 10}

// -- Test Cases --

func TestPipelineStaging(t *testing.T) {
	t.Parallel()

	p, _ := newTestPipeline(t, new(mocks.MockGraphAPI))
	assert.False(t, p.Pending())

	require.NoError(t, p.StageFile("notes.txt", strings.NewReader("alpha")))
	require.NoError(t, p.StageFile("paper.pdf", strings.NewReader("beta")))
	require.NoError(t, p.StageFile("notes.txt", strings.NewReader("gamma")))

	assert.True(t, p.Pending())
	assert.Equal(t, []string{"notes.txt", "paper.pdf", "notes.txt"}, p.FileNames(),
		"Staging order is kept and duplicate names are allowed")

	require.NoError(t, p.Unstage(1))
	assert.Equal(t, []string{"notes.txt", "notes.txt"}, p.FileNames())
	require.Error(t, p.Unstage(5))
}

func TestPipelineTextOnlyPending(t *testing.T) {
	t.Parallel()

	p, _ := newTestPipeline(t, new(mocks.MockGraphAPI))

	p.StageText("   ")
	assert.False(t, p.Pending(), "Blank text does not count as staged input")

	p.StageText("some raw knowledge")
	assert.True(t, p.Pending())

	p.StageText("")
	assert.False(t, p.Pending(), "The text blob is replaceable, not cumulative")
}

func TestPipelineSubmitValidation(t *testing.T) {
	t.Parallel()

	api := new(mocks.MockGraphAPI)
	p, _ := newTestPipeline(t, api)
	require.NoError(t, p.StageFile("notes.txt", strings.NewReader("alpha")))

	var vErr *schemas.ValidationError

	err := p.Submit(context.Background(), Target{UserID: 1})
	require.ErrorAs(t, err, &vErr)

	err = p.Submit(context.Background(), Target{SubgraphID: 10})
	require.ErrorAs(t, err, &vErr)

	api.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPipelineSubmitNothingStaged(t *testing.T) {
	t.Parallel()

	api := new(mocks.MockGraphAPI)
	p, _ := newTestPipeline(t, api)

	var vErr *schemas.ValidationError
	err := p.Submit(context.Background(), testTarget)
	require.ErrorAs(t, err, &vErr)
	api.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPipelineSubmitSuccessClearsPending(t *testing.T) {
	t.Parallel()

	api := new(mocks.MockGraphAPI)
	api.On("Upload", mock.Anything, int64(1), int64(10), mock.Anything, "extra context").
		Return(schemas.UploadResult{Message: "ok", NodesCount: 3, RelationshipsCount: 2}, nil).Once()
	api.On("GetGraph", mock.Anything, int64(1), int64(10)).
		Return(schemas.GraphSnapshot{Nodes: []schemas.Node{{ID: "n1", Label: "Concept"}}}, nil).Once()

	p, store := newTestPipeline(t, api)
	require.NoError(t, p.StageFile("notes.txt", strings.NewReader("alpha")))
	p.StageText("extra context")

	require.NoError(t, p.Submit(context.Background(), testTarget))

	assert.False(t, p.Pending(), "An accepted upload clears the pending set")
	assert.Len(t, store.Snapshot().Nodes, 1, "An accepted upload refreshes the graph store")
	api.AssertExpectations(t)
}

// TestPipelineSubmitFailurePreservesPending fails the upload and then retries
// it successfully, proving the staged content survived.
func TestPipelineSubmitFailurePreservesPending(t *testing.T) {
	t.Parallel()

	api := new(mocks.MockGraphAPI)
	api.On("Upload", mock.Anything, int64(1), int64(10), mock.Anything, "").
		Return(nil, &schemas.RequestError{Op: "upload", Status: 500}).Once()
	api.On("Upload", mock.Anything, int64(1), int64(10), mock.Anything, "").
		Return(schemas.UploadResult{Message: "ok"}, nil).Once()
	api.On("GetGraph", mock.Anything, int64(1), int64(10)).Return(schemas.GraphSnapshot{}, nil).Once()

	p, _ := newTestPipeline(t, api)
	require.NoError(t, p.StageFile("notes.txt", strings.NewReader("alpha")))

	err := p.Submit(context.Background(), testTarget)
	require.Error(t, err)
	assert.True(t, p.Pending(), "A failed upload keeps the staged set for retry")
	assert.Equal(t, []string{"notes.txt"}, p.FileNames())

	require.NoError(t, p.Submit(context.Background(), testTarget))
	assert.False(t, p.Pending())
	api.AssertExpectations(t)
}

// TestPipelineBusyRejection blocks one submit inside the upload call and
// verifies a concurrent submit is rejected with ErrBusy.
func TestPipelineBusyRejection(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})

	api := new(mocks.MockGraphAPI)
	api.On("Upload", mock.Anything, int64(1), int64(10), mock.Anything, "").
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(schemas.UploadResult{}, nil).Once()
	api.On("GetGraph", mock.Anything, int64(1), int64(10)).Return(schemas.GraphSnapshot{}, nil).Once()

	p, _ := newTestPipeline(t, api)
	require.NoError(t, p.StageFile("notes.txt", strings.NewReader("alpha")))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, p.Submit(context.Background(), testTarget))
	}()

	<-started
	err := p.Submit(context.Background(), testTarget)
	assert.ErrorIs(t, err, ErrBusy)

	close(release)
	wg.Wait()
}

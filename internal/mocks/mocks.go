// Package mocks provides testify mocks for the schema interfaces shared by
// the component test suites.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/maolala233/smart-brain/api/schemas"
)

// -- Graph API Mock --

// MockGraphAPI mocks the schemas.GraphAPI interface.
type MockGraphAPI struct {
	mock.Mock
}

var _ schemas.GraphAPI = (*MockGraphAPI)(nil)

func (m *MockGraphAPI) ListUsers(ctx context.Context) ([]schemas.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]schemas.User), args.Error(1)
}

func (m *MockGraphAPI) GetUser(ctx context.Context, userID int64) (schemas.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return schemas.User{}, args.Error(1)
	}
	return args.Get(0).(schemas.User), args.Error(1)
}

func (m *MockGraphAPI) ListSubgraphs(ctx context.Context, userID int64) ([]schemas.Subgraph, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]schemas.Subgraph), args.Error(1)
}

func (m *MockGraphAPI) CreateSubgraph(ctx context.Context, req schemas.SubgraphCreate) (schemas.Subgraph, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return schemas.Subgraph{}, args.Error(1)
	}
	return args.Get(0).(schemas.Subgraph), args.Error(1)
}

func (m *MockGraphAPI) UpdateSubgraph(ctx context.Context, subgraphID int64, req schemas.SubgraphUpdate) (schemas.Subgraph, error) {
	args := m.Called(ctx, subgraphID, req)
	if args.Get(0) == nil {
		return schemas.Subgraph{}, args.Error(1)
	}
	return args.Get(0).(schemas.Subgraph), args.Error(1)
}

func (m *MockGraphAPI) DeleteSubgraph(ctx context.Context, subgraphID int64) error {
	return m.Called(ctx, subgraphID).Error(0)
}

func (m *MockGraphAPI) GetGraph(ctx context.Context, userID, subgraphID int64) (schemas.GraphSnapshot, error) {
	args := m.Called(ctx, userID, subgraphID)
	if args.Get(0) == nil {
		return schemas.GraphSnapshot{}, args.Error(1)
	}
	return args.Get(0).(schemas.GraphSnapshot), args.Error(1)
}

func (m *MockGraphAPI) ClearGraph(ctx context.Context, userID int64) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *MockGraphAPI) CreateNode(ctx context.Context, userID int64, node schemas.NodeInput) error {
	return m.Called(ctx, userID, node).Error(0)
}

func (m *MockGraphAPI) DeleteNode(ctx context.Context, userID int64, nodeID string, subgraphID int64) error {
	return m.Called(ctx, userID, nodeID, subgraphID).Error(0)
}

func (m *MockGraphAPI) CreateRelationship(ctx context.Context, userID int64, edge schemas.EdgeInput) error {
	return m.Called(ctx, userID, edge).Error(0)
}

func (m *MockGraphAPI) DeleteRelationship(ctx context.Context, userID int64, edge schemas.EdgeInput) error {
	return m.Called(ctx, userID, edge).Error(0)
}

func (m *MockGraphAPI) Undo(ctx context.Context, subgraphID int64) error {
	return m.Called(ctx, subgraphID).Error(0)
}

func (m *MockGraphAPI) Upload(ctx context.Context, userID, subgraphID int64, files []schemas.UploadFile, text string) (schemas.UploadResult, error) {
	args := m.Called(ctx, userID, subgraphID, files, text)
	if args.Get(0) == nil {
		return schemas.UploadResult{}, args.Error(1)
	}
	return args.Get(0).(schemas.UploadResult), args.Error(1)
}

func (m *MockGraphAPI) SmartQA(ctx context.Context, userID int64, req schemas.QARequest) (schemas.QAResponse, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return schemas.QAResponse{}, args.Error(1)
	}
	return args.Get(0).(schemas.QAResponse), args.Error(1)
}

// -- Render Engine Mock --

// MockRenderEngine mocks the schemas.RenderEngine interface.
type MockRenderEngine struct {
	mock.Mock
}

var _ schemas.RenderEngine = (*MockRenderEngine)(nil)

func (m *MockRenderEngine) SetData(nodes []schemas.RenderNode, edges []schemas.RenderEdge) error {
	return m.Called(nodes, edges).Error(0)
}

func (m *MockRenderEngine) ReplaceData(nodes []schemas.RenderNode, edges []schemas.RenderEdge) error {
	return m.Called(nodes, edges).Error(0)
}

func (m *MockRenderEngine) Counts() (int, int) {
	args := m.Called()
	return args.Int(0), args.Int(1)
}

func (m *MockRenderEngine) Destroy() error {
	return m.Called().Error(0)
}

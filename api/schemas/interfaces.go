package schemas

import (
	"context"
	"io"
)

// UploadFile is one staged file handed to the multipart upload endpoint.
type UploadFile struct {
	Name   string
	Reader io.Reader
}

// UploadResult reports what the backend extracted from an upload. Graph
// construction itself is asynchronous server-side; completion is observed
// only by a later graph fetch.
type UploadResult struct {
	Message            string `json:"msg"`
	NodesCount         int    `json:"nodes_count"`
	RelationshipsCount int    `json:"relationships_count"`
}

// GraphAPI is the full backend surface consumed by the client core. All
// read failures surface as *FetchError, all mutating failures as
// *RequestError.
type GraphAPI interface {
	// Users (read-only to this core).
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, userID int64) (User, error)

	// Subgraph lifecycle.
	ListSubgraphs(ctx context.Context, userID int64) ([]Subgraph, error)
	CreateSubgraph(ctx context.Context, req SubgraphCreate) (Subgraph, error)
	UpdateSubgraph(ctx context.Context, subgraphID int64, req SubgraphUpdate) (Subgraph, error)
	DeleteSubgraph(ctx context.Context, subgraphID int64) error

	// Graph payloads.
	GetGraph(ctx context.Context, userID, subgraphID int64) (GraphSnapshot, error)
	ClearGraph(ctx context.Context, userID int64) error

	// Single-element editing.
	CreateNode(ctx context.Context, userID int64, node NodeInput) error
	DeleteNode(ctx context.Context, userID int64, nodeID string, subgraphID int64) error
	CreateRelationship(ctx context.Context, userID int64, edge EdgeInput) error
	DeleteRelationship(ctx context.Context, userID int64, edge EdgeInput) error
	Undo(ctx context.Context, subgraphID int64) error

	// Ingestion and question answering.
	Upload(ctx context.Context, userID, subgraphID int64, files []UploadFile, text string) (UploadResult, error)
	SmartQA(ctx context.Context, userID int64, req QARequest) (QAResponse, error)
}

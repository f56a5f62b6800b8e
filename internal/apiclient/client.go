// Package apiclient is the HTTP implementation of the backend surface the
// client core consumes. All other components talk to the backend only
// through schemas.GraphAPI.
package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/maolala233/smart-brain/api/schemas"
	"github.com/maolala233/smart-brain/internal/config"
)

// Connection pool default tuned for an interactive client: few hosts, many
// small JSON calls.
const defaultIdleConnTimeout = 30 * time.Second

// Client implements schemas.GraphAPI over resty.
type Client struct {
	http *resty.Client
	log  *zap.Logger
}

// Compile-time check that Client satisfies the full backend surface.
var _ schemas.GraphAPI = (*Client)(nil)

// New builds a client for the configured backend base URL.
func New(cfg config.APIConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	transport := &http.Transport{
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		ForceAttemptHTTP2:   true,
	}
	if transport.IdleConnTimeout == 0 {
		transport.IdleConnTimeout = defaultIdleConnTimeout
	}

	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetTransport(transport).
		SetHeader("Accept", "application/json")

	return &Client{
		http: httpClient,
		log:  logger.Named("apiclient"),
	}
}

// fetchErr converts a failed read into the *FetchError taxonomy.
func fetchErr(op string, resp *resty.Response, err error) error {
	if err != nil {
		return &schemas.FetchError{Op: op, Err: err}
	}
	return &schemas.FetchError{Op: op, Status: resp.StatusCode(), Err: fmt.Errorf("%s", resp.Status())}
}

// requestErr converts a failed mutation into the *RequestError taxonomy.
func requestErr(op string, resp *resty.Response, err error) error {
	if err != nil {
		return &schemas.RequestError{Op: op, Err: err}
	}
	return &schemas.RequestError{Op: op, Status: resp.StatusCode(), Err: fmt.Errorf("%s", resp.Status())}
}

// -- Users --

func (c *Client) ListUsers(ctx context.Context) ([]schemas.User, error) {
	var users []schemas.User
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&users).
		Get("/users/list/all")
	if err != nil || resp.IsError() {
		return nil, fetchErr("users/list", resp, err)
	}
	return users, nil
}

func (c *Client) GetUser(ctx context.Context, userID int64) (schemas.User, error) {
	var user schemas.User
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&user).
		Get(fmt.Sprintf("/users/%d", userID))
	if err != nil || resp.IsError() {
		return schemas.User{}, fetchErr("users/get", resp, err)
	}
	return user, nil
}

// -- Subgraphs --

func (c *Client) ListSubgraphs(ctx context.Context, userID int64) ([]schemas.Subgraph, error) {
	var subgraphs []schemas.Subgraph
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&subgraphs).
		Get(fmt.Sprintf("/kg/subgraph/list/%d", userID))
	if err != nil || resp.IsError() {
		return nil, fetchErr("subgraph/list", resp, err)
	}
	return subgraphs, nil
}

func (c *Client) CreateSubgraph(ctx context.Context, req schemas.SubgraphCreate) (schemas.Subgraph, error) {
	var created schemas.Subgraph
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&created).
		Post("/kg/subgraph")
	if err != nil || resp.IsError() {
		return schemas.Subgraph{}, requestErr("subgraph/create", resp, err)
	}
	c.log.Debug("Subgraph created", zap.Int64("id", created.ID), zap.String("name", created.Name))
	return created, nil
}

func (c *Client) UpdateSubgraph(ctx context.Context, subgraphID int64, req schemas.SubgraphUpdate) (schemas.Subgraph, error) {
	var updated schemas.Subgraph
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&updated).
		Put(fmt.Sprintf("/kg/subgraph/%d", subgraphID))
	if err != nil || resp.IsError() {
		return schemas.Subgraph{}, requestErr("subgraph/update", resp, err)
	}
	return updated, nil
}

func (c *Client) DeleteSubgraph(ctx context.Context, subgraphID int64) error {
	resp, err := c.http.R().
		SetContext(ctx).
		Delete(fmt.Sprintf("/kg/subgraph/%d", subgraphID))
	if err != nil || resp.IsError() {
		return requestErr("subgraph/delete", resp, err)
	}
	c.log.Debug("Subgraph deleted", zap.Int64("id", subgraphID))
	return nil
}

// -- Graph payloads --

func (c *Client) GetGraph(ctx context.Context, userID, subgraphID int64) (schemas.GraphSnapshot, error) {
	var snapshot schemas.GraphSnapshot
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("subgraph_id", strconv.FormatInt(subgraphID, 10)).
		SetResult(&snapshot).
		Get(fmt.Sprintf("/kg/%d", userID))
	if err != nil || resp.IsError() {
		return schemas.GraphSnapshot{}, fetchErr("kg/get", resp, err)
	}
	return snapshot, nil
}

// ClearGraph wipes every subgraph of a user. Legacy endpoint kept for the
// whole-graph reset action.
func (c *Client) ClearGraph(ctx context.Context, userID int64) error {
	resp, err := c.http.R().
		SetContext(ctx).
		Delete(fmt.Sprintf("/kg/%d", userID))
	if err != nil || resp.IsError() {
		return requestErr("kg/clear", resp, err)
	}
	return nil
}

// -- Single-element editing --

func (c *Client) CreateNode(ctx context.Context, userID int64, node schemas.NodeInput) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(node).
		Post(fmt.Sprintf("/kg/node/%d", userID))
	if err != nil || resp.IsError() {
		return requestErr("node/create", resp, err)
	}
	return nil
}

func (c *Client) DeleteNode(ctx context.Context, userID int64, nodeID string, subgraphID int64) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("subgraph_id", strconv.FormatInt(subgraphID, 10)).
		Delete(fmt.Sprintf("/kg/node/%d/%s", userID, nodeID))
	if err != nil || resp.IsError() {
		return requestErr("node/delete", resp, err)
	}
	return nil
}

func (c *Client) CreateRelationship(ctx context.Context, userID int64, edge schemas.EdgeInput) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(edge).
		Post(fmt.Sprintf("/kg/relationship/%d", userID))
	if err != nil || resp.IsError() {
		return requestErr("relationship/create", resp, err)
	}
	return nil
}

func (c *Client) DeleteRelationship(ctx context.Context, userID int64, edge schemas.EdgeInput) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(edge).
		Delete(fmt.Sprintf("/kg/relationship/%d", userID))
	if err != nil || resp.IsError() {
		return requestErr("relationship/delete", resp, err)
	}
	return nil
}

// Undo reverts the last ingestion operation recorded for a subgraph.
func (c *Client) Undo(ctx context.Context, subgraphID int64) error {
	resp, err := c.http.R().
		SetContext(ctx).
		Post(fmt.Sprintf("/kg/undo/%d", subgraphID))
	if err != nil || resp.IsError() {
		return requestErr("kg/undo", resp, err)
	}
	return nil
}

// -- Ingestion and question answering --

// Upload submits staged files and free text as one multipart unit. The
// backend kicks off graph construction asynchronously; the caller observes
// completion only through a later GetGraph.
func (c *Client) Upload(ctx context.Context, userID, subgraphID int64, files []schemas.UploadFile, text string) (schemas.UploadResult, error) {
	var result schemas.UploadResult

	req := c.http.R().
		SetContext(ctx).
		SetMultipartFormData(map[string]string{
			"subgraph_id": strconv.FormatInt(subgraphID, 10),
		}).
		SetResult(&result)

	for _, f := range files {
		req.SetFileReader("files", f.Name, f.Reader)
	}
	if text != "" {
		req.SetMultipartFormData(map[string]string{"text_input": text})
	}

	resp, err := req.Post(fmt.Sprintf("/kg/upload/%d", userID))
	if err != nil || resp.IsError() {
		return schemas.UploadResult{}, requestErr("kg/upload", resp, err)
	}
	c.log.Info("Upload accepted",
		zap.Int64("user_id", userID),
		zap.Int64("subgraph_id", subgraphID),
		zap.Int("nodes", result.NodesCount),
		zap.Int("relationships", result.RelationshipsCount),
	)
	return result, nil
}

func (c *Client) SmartQA(ctx context.Context, userID int64, req schemas.QARequest) (schemas.QAResponse, error) {
	var answer schemas.QAResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&answer).
		Post(fmt.Sprintf("/kg/smart-qa/%d", userID))
	if err != nil || resp.IsError() {
		return schemas.QAResponse{}, requestErr("kg/smart-qa", resp, err)
	}
	return answer, nil
}

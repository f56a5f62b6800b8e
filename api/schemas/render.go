package schemas

import "errors"

// ErrContainerNotMounted is returned by an EngineFactory when the target
// container cannot host an engine yet. Callers treat the update as a no-op
// and replay the cached snapshot later.
var ErrContainerNotMounted = errors.New("render container not mounted")

// RenderNode is the render-ready form of a graph node.
type RenderNode struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Group string `json:"group"`
	Shape string `json:"shape"`
	Size  int    `json:"size"`
	Color string `json:"color"`
}

// RenderEdge is the render-ready form of a graph edge. ID is generated per
// update so parallel relationships stay distinct in the engine.
type RenderEdge struct {
	ID     string `json:"id"`
	From   string `json:"from"`
	To     string `json:"to"`
	Label  string `json:"label"`
	Arrows string `json:"arrows"`
}

// RenderEngine is the live force-directed rendering instance bound to one
// container. The engine is a foreign mutable resource: it is constructed
// once per container and must survive data refreshes so camera position,
// zoom and physics warm-start are preserved.
type RenderEngine interface {
	// SetData performs the initial full load of the engine.
	SetData(nodes []RenderNode, edges []RenderEdge) error
	// ReplaceData swaps the node and edge collections in place without
	// reconstructing the engine: clear, then bulk insert.
	ReplaceData(nodes []RenderNode, edges []RenderEdge) error
	// Counts returns the number of nodes and edges currently held.
	Counts() (nodes int, edges int)
	// Destroy releases all engine resources. The engine is unusable after.
	Destroy() error
}

// EngineFactory constructs engines bound to a named container. Returns
// ErrContainerNotMounted when the container is not available yet.
type EngineFactory interface {
	New(containerID string) (RenderEngine, error)
}

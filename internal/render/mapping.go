package render

import (
	"github.com/google/uuid"

	"github.com/maolala233/smart-brain/api/schemas"
)

// Style buckets keyed by the node's grouping label. Unrecognized labels fall
// through to defaultColor so new entity types render without code changes.
var groupColors = map[string]string{
	"Person":       "#f39c12",
	"Company":      "#3498db",
	"Organization": "#3498db",
	"Concept":      "#2ecc71",
	"Event":        "#e74c3c",
	"Location":     "#9b59b6",
	"Product":      "#1abc9c",
	"Document":     "#95a5a6",
}

const (
	defaultColor = "#7f8c8d"
	nodeShape    = "dot"
)

// mapSnapshot converts a wire snapshot into render-ready records. Every edge
// gets a fresh id so parallel relationships between the same pair stay
// distinct in the engine; the rendered edge count always equals the
// relationship count.
func mapSnapshot(snapshot schemas.GraphSnapshot, nodeSize int) ([]schemas.RenderNode, []schemas.RenderEdge) {
	nodes := make([]schemas.RenderNode, 0, len(snapshot.Nodes))
	for _, n := range snapshot.Nodes {
		display := n.Name
		if display == "" {
			display = n.Label
		}
		nodes = append(nodes, schemas.RenderNode{
			ID:    n.ID,
			Label: display,
			Group: n.Label,
			Shape: nodeShape,
			Size:  nodeSize,
			Color: colorFor(n.Label),
		})
	}

	edges := make([]schemas.RenderEdge, 0, len(snapshot.Relationships))
	for _, e := range snapshot.Relationships {
		edges = append(edges, schemas.RenderEdge{
			ID:     uuid.New().String(),
			From:   e.From,
			To:     e.To,
			Label:  e.Type,
			Arrows: "to",
		})
	}
	return nodes, edges
}

func colorFor(group string) string {
	if c, ok := groupColors[group]; ok {
		return c
	}
	return defaultColor
}

package schemas

// -- Core Graph Models --
// These types mirror the wire format of the knowledge-graph backend exactly.
// A GraphSnapshot is always a complete replacement of the displayed graph,
// never a server-side patch.

// Node is a single entity in a knowledge subgraph. Identity is ID; Label is a
// type tag (Person, Company, Concept, ...) used only for visual grouping.
type Node struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Name  string `json:"name"`
}

// Edge is a directed, typed relationship between two nodes. Parallel edges
// between the same pair are legal and must stay distinct.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
	Type string `json:"type"`
}

// GraphSnapshot is the unit returned by a graph fetch.
type GraphSnapshot struct {
	Nodes         []Node `json:"nodes"`
	Relationships []Edge `json:"relationships"`
}

// Empty reports whether the snapshot carries no data at all.
func (s GraphSnapshot) Empty() bool {
	return len(s.Nodes) == 0 && len(s.Relationships) == 0
}

// -- Graph Input Models --
// Inputs for the single-element editing endpoints.

// NodeInput creates or updates one node in a subgraph.
type NodeInput struct {
	ID         string `json:"id"`
	Label      string `json:"label"`
	Name       string `json:"name"`
	SubgraphID int64  `json:"subgraph_id"`
}

// EdgeInput creates one relationship in a subgraph.
type EdgeInput struct {
	From       string `json:"from"`
	To         string `json:"to"`
	Type       string `json:"type"`
	SubgraphID int64  `json:"subgraph_id"`
}

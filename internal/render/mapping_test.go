package render

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maolala233/smart-brain/api/schemas"
)

func TestMapSnapshotNodes(t *testing.T) {
	t.Parallel()

	snap := schemas.GraphSnapshot{
		Nodes: []schemas.Node{
			{ID: "n1", Label: "Person", Name: "Ada Lovelace"},
			{ID: "n2", Label: "Mystery", Name: ""},
		},
	}

	nodes, edges := mapSnapshot(snap, 25)
	require.Empty(t, edges)

	want := []schemas.RenderNode{
		{ID: "n1", Label: "Ada Lovelace", Group: "Person", Shape: "dot", Size: 25, Color: groupColors["Person"]},
		{ID: "n2", Label: "Mystery", Group: "Mystery", Shape: "dot", Size: 25, Color: defaultColor},
	}
	if diff := cmp.Diff(want, nodes); diff != "" {
		t.Errorf("mapped nodes mismatch (-want +got):\n%s", diff)
	}
}

func TestMapSnapshotEdges(t *testing.T) {
	t.Parallel()

	snap := schemas.GraphSnapshot{
		Relationships: []schemas.Edge{
			{From: "n1", To: "n2", Type: "KNOWS"},
			{From: "n1", To: "n2", Type: "KNOWS"},
		},
	}

	_, edges := mapSnapshot(snap, 25)
	require.Len(t, edges, 2, "Duplicate relationships must not collapse")
	assert.NotEqual(t, edges[0].ID, edges[1].ID)

	want := []schemas.RenderEdge{
		{From: "n1", To: "n2", Label: "KNOWS", Arrows: "to"},
		{From: "n1", To: "n2", Label: "KNOWS", Arrows: "to"},
	}
	if diff := cmp.Diff(want, edges, cmpopts.IgnoreFields(schemas.RenderEdge{}, "ID")); diff != "" {
		t.Errorf("mapped edges mismatch (-want +got):\n%s", diff)
	}
}

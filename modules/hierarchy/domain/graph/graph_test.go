package graph_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/orghierarchy/modules/hierarchy/domain/graph"
)

func TestMarker(t *testing.T) {
	var m graph.Marker
	id := m.NewID()
	assert.True(t, m.IsPlaceholder(id))
	assert.False(t, m.IsPlaceholder("42"))

	custom := graph.Marker("tmp:")
	assert.True(t, custom.IsPlaceholder(custom.NewID()))
	assert.False(t, custom.IsPlaceholder(id))
}

func TestRoots(t *testing.T) {
	g := graph.Graph{
		Nodes: []graph.Node{{ID: "A"}, {ID: "B"}, {ID: "C"}},
		Edges: []graph.Edge{{Source: "A", Target: "B"}},
	}
	roots := g.Roots()
	require.Len(t, roots, 2)
	assert.Equal(t, "A", roots[0].ID)
	assert.Equal(t, "C", roots[1].ID)
	assert.Equal(t, []string{"A"}, g.ParentsOf("B"))
}

func TestValidate(t *testing.T) {
	var m graph.Marker
	newID := m.NewID()

	cases := []struct {
		name  string
		g     graph.Graph
		opts  graph.ValidateOptions
		kinds []graph.IssueKind
	}{
		{
			name: "valid",
			g: graph.Graph{
				Nodes: []graph.Node{{ID: "1", Label: "CTO"}, {ID: newID, Label: "Lead"}},
				Edges: []graph.Edge{{Source: "1", Target: newID}},
			},
		},
		{
			name:  "self loop rejected",
			g:     graph.Graph{Nodes: []graph.Node{{ID: "X"}}, Edges: []graph.Edge{{Source: "X", Target: "X"}}},
			kinds: []graph.IssueKind{graph.IssueSelfLoop},
		},
		{
			name: "self loop allowed",
			g:    graph.Graph{Nodes: []graph.Node{{ID: "X"}}, Edges: []graph.Edge{{Source: "X", Target: "X"}}},
			opts: graph.ValidateOptions{AllowSelfLoops: true},
		},
		{
			name: "duplicate parent allowed by default",
			g: graph.Graph{
				Nodes: []graph.Node{{ID: "A"}, {ID: "B"}, {ID: "C"}},
				Edges: []graph.Edge{{Source: "A", Target: "C"}, {Source: "B", Target: "C"}},
			},
		},
		{
			name: "duplicate parent rejected",
			g: graph.Graph{
				Nodes: []graph.Node{{ID: "A"}, {ID: "B"}, {ID: "C"}},
				Edges: []graph.Edge{{Source: "A", Target: "C"}, {Source: "B", Target: "C"}},
			},
			opts:  graph.ValidateOptions{RejectDuplicateParents: true},
			kinds: []graph.IssueKind{graph.IssueDuplicateParent},
		},
		{
			name:  "empty label and duplicate id",
			g:     graph.Graph{Nodes: []graph.Node{{ID: newID, Label: "  "}, {ID: newID, Label: "x"}}},
			kinds: []graph.IssueKind{graph.IssueEmptyLabel, graph.IssueDuplicateNode},
		},
		{
			name: "real endpoint outside nodes passes through",
			g:    graph.Graph{Nodes: []graph.Node{{ID: "7"}}, Edges: []graph.Edge{{Source: "42", Target: "7"}}},
		},
		{
			name:  "empty endpoint",
			g:     graph.Graph{Nodes: []graph.Node{{ID: "A"}}, Edges: []graph.Edge{{Source: " ", Target: "A"}}},
			kinds: []graph.IssueKind{graph.IssueEmptyEndpoint},
		},
		{
			name: "unknown placeholder endpoint left to caller",
			g:    graph.Graph{Nodes: []graph.Node{{ID: "A"}}, Edges: []graph.Edge{{Source: "A", Target: m.NewID()}}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.g.Validate(tc.opts)
			if len(tc.kinds) == 0 {
				require.NoError(t, err)
				return
			}
			var verr *graph.ValidationError
			require.True(t, errors.As(err, &verr))
			got := make([]graph.IssueKind, 0, len(verr.Issues))
			for _, is := range verr.Issues {
				got = append(got, is.Kind)
			}
			assert.ElementsMatch(t, tc.kinds, got)
		})
	}
}

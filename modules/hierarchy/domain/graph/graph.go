// Package graph models an edited designation hierarchy as nodes joined by
// parent-to-child edges.
package graph

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const DefaultPlaceholderPrefix = "new-"

type Node struct {
	ID    string `json:"id" validate:"required"`
	Label string `json:"label"`
	Level int    `json:"level" validate:"gte=0"`
}

// Edge says Source is the parent of Target.
type Edge struct {
	Source string `json:"source" validate:"required"`
	Target string `json:"target" validate:"required"`
}

type Graph struct {
	Nodes []Node `json:"nodes" validate:"dive"`
	Edges []Edge `json:"edges" validate:"dive"`
}

// Marker recognizes placeholder ids produced by the editor for nodes that
// have not been persisted yet.
type Marker string

func (m Marker) prefix() string {
	if m == "" {
		return DefaultPlaceholderPrefix
	}
	return string(m)
}

func (m Marker) NewID() string {
	return m.prefix() + uuid.NewString()
}

func (m Marker) IsPlaceholder(id string) bool {
	return strings.HasPrefix(id, m.prefix())
}

// NewNode builds a node carrying a fresh placeholder id.
func (m Marker) NewNode(label string, level int) Node {
	return Node{ID: m.NewID(), Label: label, Level: level}
}

func (g Graph) Node(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// IncomingTargets returns the set of node ids that are the target of at least one edge.
func (g Graph) IncomingTargets() map[string]struct{} {
	out := make(map[string]struct{}, len(g.Edges))
	for _, e := range g.Edges {
		out[e.Target] = struct{}{}
	}
	return out
}

// Roots returns the nodes without an incoming edge, in node order.
func (g Graph) Roots() []Node {
	targets := g.IncomingTargets()
	out := make([]Node, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		if _, ok := targets[n.ID]; !ok {
			out = append(out, n)
		}
	}
	return out
}

// ParentsOf lists the sources of every edge pointing at id, in edge order.
func (g Graph) ParentsOf(id string) []string {
	var out []string
	for _, e := range g.Edges {
		if e.Target == id {
			out = append(out, e.Source)
		}
	}
	return out
}

type IssueKind string

const (
	IssueEmptyID         IssueKind = "empty_id"
	IssueDuplicateNode   IssueKind = "duplicate_node"
	IssueEmptyLabel      IssueKind = "empty_label"
	IssueEmptyEndpoint   IssueKind = "empty_endpoint"
	IssueSelfLoop        IssueKind = "self_loop"
	IssueDuplicateParent IssueKind = "duplicate_parent"
)

type Issue struct {
	Kind    IssueKind `json:"kind"`
	NodeID  string    `json:"node_id,omitempty"`
	Message string    `json:"message"`
}

type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		parts = append(parts, is.Message)
	}
	return "invalid graph: " + strings.Join(parts, "; ")
}

type ValidateOptions struct {
	Marker                 Marker
	AllowSelfLoops         bool
	RejectDuplicateParents bool
}

// Validate reports structural problems. Edge endpoints need not be listed in
// Nodes: real ids pass through to the store as-is, and placeholders that match
// no node are left to the caller, which decides how unresolved placeholders
// are handled.
func (g Graph) Validate(opts ValidateOptions) error {
	var issues []Issue
	seen := make(map[string]struct{}, len(g.Nodes))
	for i, n := range g.Nodes {
		if strings.TrimSpace(n.ID) == "" {
			issues = append(issues, Issue{Kind: IssueEmptyID, Message: fmt.Sprintf("node #%d has an empty id", i)})
			continue
		}
		if _, dup := seen[n.ID]; dup {
			issues = append(issues, Issue{Kind: IssueDuplicateNode, NodeID: n.ID, Message: fmt.Sprintf("node %q is listed twice", n.ID)})
		}
		seen[n.ID] = struct{}{}
		if opts.Marker.IsPlaceholder(n.ID) && strings.TrimSpace(n.Label) == "" {
			issues = append(issues, Issue{Kind: IssueEmptyLabel, NodeID: n.ID, Message: fmt.Sprintf("new node %q has an empty label", n.ID)})
		}
	}

	parents := make(map[string]string, len(g.Edges))
	for _, e := range g.Edges {
		if strings.TrimSpace(e.Source) == "" || strings.TrimSpace(e.Target) == "" {
			issues = append(issues, Issue{Kind: IssueEmptyEndpoint, Message: fmt.Sprintf("edge %q->%q has an empty endpoint", e.Source, e.Target)})
			continue
		}
		if e.Source == e.Target && !opts.AllowSelfLoops {
			issues = append(issues, Issue{Kind: IssueSelfLoop, NodeID: e.Target, Message: fmt.Sprintf("node %q is its own parent", e.Target)})
		}
		if prev, ok := parents[e.Target]; ok && opts.RejectDuplicateParents && prev != e.Source {
			issues = append(issues, Issue{Kind: IssueDuplicateParent, NodeID: e.Target, Message: fmt.Sprintf("node %q has parents %q and %q", e.Target, prev, e.Source)})
		}
		parents[e.Target] = e.Source
	}

	if len(issues) == 0 {
		return nil
	}
	return &ValidationError{Issues: issues}
}

package services

import (
	"sort"
	"strings"

	"github.com/iota-uz/orghierarchy/modules/hierarchy/domain/aggregates/designation"
)

type TreeNode struct {
	Designation designation.Designation
	Depth       int
	Children    []*TreeNode
}

func lessDesignation(a, b designation.Designation) bool {
	if a.Level != b.Level {
		return a.Level < b.Level
	}
	an, bn := designation.NameKey(a.Name), designation.NameKey(b.Name)
	if an != bn {
		return an < bn
	}
	return a.ID < b.ID
}

// BuildTree arranges designations into a forest. Designations whose parent is
// missing become roots. A cycle is broken at its smallest member, which is
// promoted to a root.
func BuildTree(items []designation.Designation) []*TreeNode {
	byID := make(map[string]designation.Designation, len(items))
	for _, d := range items {
		byID[d.ID] = d
	}

	children := make(map[string][]designation.Designation, len(items))
	var roots []designation.Designation
	for _, d := range items {
		if d.ParentID == nil {
			roots = append(roots, d)
			continue
		}
		if _, ok := byID[*d.ParentID]; !ok {
			roots = append(roots, d)
			continue
		}
		children[*d.ParentID] = append(children[*d.ParentID], d)
	}
	for id := range children {
		sort.Slice(children[id], func(i, j int) bool { return lessDesignation(children[id][i], children[id][j]) })
	}
	sort.Slice(roots, func(i, j int) bool { return lessDesignation(roots[i], roots[j]) })

	visited := make(map[string]struct{}, len(items))
	var build func(d designation.Designation, depth int) *TreeNode
	build = func(d designation.Designation, depth int) *TreeNode {
		visited[d.ID] = struct{}{}
		node := &TreeNode{Designation: d, Depth: depth}
		for _, c := range children[d.ID] {
			if _, seen := visited[c.ID]; seen {
				continue
			}
			node.Children = append(node.Children, build(c, depth+1))
		}
		return node
	}

	out := make([]*TreeNode, 0, len(roots))
	for _, r := range roots {
		out = append(out, build(r, 0))
	}

	if len(visited) < len(items) {
		rest := make([]designation.Designation, 0, len(items)-len(visited))
		for _, d := range items {
			if _, ok := visited[d.ID]; !ok {
				rest = append(rest, d)
			}
		}
		sort.Slice(rest, func(i, j int) bool { return lessDesignation(rest[i], rest[j]) })
		for _, d := range rest {
			if _, ok := visited[d.ID]; ok {
				continue
			}
			out = append(out, build(d, 0))
		}
	}
	return out
}

type FlatRow struct {
	Designation designation.Designation
	Depth       int
	ParentName  string
	Path        string
}

// Flatten walks the forest depth first.
func Flatten(forest []*TreeNode) []FlatRow {
	var out []FlatRow
	var walk func(n *TreeNode, parent string, path []string)
	walk = func(n *TreeNode, parent string, path []string) {
		path = append(path, n.Designation.Name)
		out = append(out, FlatRow{
			Designation: n.Designation,
			Depth:       n.Depth,
			ParentName:  parent,
			Path:        strings.Join(path, " / "),
		})
		for _, c := range n.Children {
			walk(c, n.Designation.Name, path)
		}
	}
	for _, root := range forest {
		walk(root, "", nil)
	}
	return out
}

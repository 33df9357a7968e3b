package mappers

import (
	"time"

	"github.com/iota-uz/orghierarchy/modules/hierarchy/domain/aggregates/designation"
	"github.com/iota-uz/orghierarchy/modules/hierarchy/presentation/dtos"
	"github.com/iota-uz/orghierarchy/modules/hierarchy/presentation/viewmodels"
	"github.com/iota-uz/orghierarchy/modules/hierarchy/services"
)

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func DesignationToResponse(d designation.Designation) dtos.DesignationResponse {
	return dtos.DesignationResponse{
		ID:                  d.ID,
		Name:                d.Name,
		Level:               d.Level,
		ParentDesignationID: d.ParentID,
		CreatedAt:           formatTime(d.CreatedAt),
		UpdatedAt:           formatTime(d.UpdatedAt),
	}
}

func DesignationsToResponse(items []designation.Designation) dtos.DesignationListResponse {
	out := make([]dtos.DesignationResponse, 0, len(items))
	for _, d := range items {
		out = append(out, DesignationToResponse(d))
	}
	return dtos.DesignationListResponse{Designations: out}
}

func ForestToTree(forest []*services.TreeNode) *viewmodels.DesignationTree {
	tree := &viewmodels.DesignationTree{}
	var convert func(n *services.TreeNode) *viewmodels.DesignationTreeNode
	convert = func(n *services.TreeNode) *viewmodels.DesignationTreeNode {
		tree.Count++
		vm := &viewmodels.DesignationTreeNode{
			ID:    n.Designation.ID,
			Name:  n.Designation.Name,
			Level: n.Designation.Level,
			Depth: n.Depth,
		}
		for _, c := range n.Children {
			vm.Children = append(vm.Children, convert(c))
		}
		return vm
	}
	for _, root := range forest {
		tree.Roots = append(tree.Roots, convert(root))
	}
	return tree
}

func TreeToResponse(tree *viewmodels.DesignationTree) dtos.TreeResponse {
	var convert func(n *viewmodels.DesignationTreeNode) *dtos.TreeNodeResponse
	convert = func(n *viewmodels.DesignationTreeNode) *dtos.TreeNodeResponse {
		out := &dtos.TreeNodeResponse{
			ID:       n.ID,
			Name:     n.Name,
			Level:    n.Level,
			Depth:    n.Depth,
			Children: []*dtos.TreeNodeResponse{},
		}
		for _, c := range n.Children {
			out.Children = append(out.Children, convert(c))
		}
		return out
	}
	resp := dtos.TreeResponse{Roots: []*dtos.TreeNodeResponse{}}
	for _, r := range tree.Roots {
		resp.Roots = append(resp.Roots, convert(r))
	}
	return resp
}

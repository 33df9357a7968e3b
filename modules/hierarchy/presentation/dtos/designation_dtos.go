package dtos

import (
	"bytes"
	"encoding/json"

	"github.com/iota-uz/orghierarchy/modules/hierarchy/domain/aggregates/designation"
	"github.com/iota-uz/orghierarchy/modules/hierarchy/domain/graph"
	"github.com/iota-uz/orghierarchy/modules/hierarchy/services"
)

type DesignationResponse struct {
	ID                  string  `json:"id"`
	Name                string  `json:"name"`
	Level               int     `json:"level"`
	ParentDesignationID *string `json:"parent_designation_id"`
	CreatedAt           string  `json:"created_at,omitempty"`
	UpdatedAt           string  `json:"updated_at,omitempty"`
}

type DesignationListResponse struct {
	Designations []DesignationResponse `json:"designations"`
}

type CreateDesignationRequest struct {
	Name  string `json:"name"`
	Level int    `json:"level"`
}

func (r CreateDesignationRequest) ToDTO() *designation.CreateDTO {
	return &designation.CreateDTO{Name: r.Name, Level: r.Level}
}

// OptionalString distinguishes an absent field from an explicit null.
type OptionalString struct {
	Set   bool
	Value *string
}

func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

type UpdateDesignationRequest struct {
	Level               *int           `json:"level"`
	ParentDesignationID OptionalString `json:"parent_designation_id"`
}

func (r UpdateDesignationRequest) ToDTO() *designation.UpdateDTO {
	return &designation.UpdateDTO{
		Level:     r.Level,
		ParentSet: r.ParentDesignationID.Set,
		ParentID:  r.ParentDesignationID.Value,
	}
}

type ReconcileRequest struct {
	Nodes  []graph.Node `json:"nodes" validate:"dive"`
	Edges  []graph.Edge `json:"edges" validate:"dive"`
	DryRun bool         `json:"dry_run"`
}

func (r ReconcileRequest) Graph() graph.Graph {
	return graph.Graph{Nodes: r.Nodes, Edges: r.Edges}
}

type ReconcileResponse struct {
	DryRun bool             `json:"dry_run"`
	Plan   *services.Plan   `json:"plan,omitempty"`
	Result *services.Result `json:"result,omitempty"`
}

type TreeResponse struct {
	Roots []*TreeNodeResponse `json:"roots"`
}

type TreeNodeResponse struct {
	ID       string              `json:"id"`
	Name     string              `json:"name"`
	Level    int                 `json:"level"`
	Depth    int                 `json:"depth"`
	Children []*TreeNodeResponse `json:"children"`
}

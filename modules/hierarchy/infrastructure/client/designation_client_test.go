package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/orghierarchy/modules/hierarchy/domain/aggregates/designation"
	"github.com/iota-uz/orghierarchy/modules/hierarchy/infrastructure/client"
)

func newClient(t *testing.T, h http.HandlerFunc) (*client.DesignationClient, uuid.UUID) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	tenant := uuid.New()
	c, err := client.NewDesignationClient(client.Options{
		BaseURL:       srv.URL,
		Authorization: "Bearer token",
		TenantID:      tenant,
	})
	require.NoError(t, err)
	return c, tenant
}

func TestDesignationClient_List(t *testing.T) {
	var tenantHeader, auth string
	c, tenant := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		tenantHeader = r.Header.Get("X-Tenant-ID")
		auth = r.Header.Get("Authorization")
		assert.Equal(t, "/hierarchy/api/designations", r.URL.Path)
		_, _ = w.Write([]byte(`{"designations":[
			{"id":42,"name":"CTO","level":1,"parent_designation_id":null},
			{"id":"43","name":"Engineering Lead","level":3,"parent_designation_id":42}
		]}`))
	})

	items, err := c.ListDesignations(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "42", items[0].ID)
	assert.Nil(t, items[0].ParentID)
	require.NotNil(t, items[1].ParentID)
	assert.Equal(t, "42", *items[1].ParentID)
	assert.Equal(t, tenant.String(), tenantHeader)
	assert.Equal(t, "Bearer token", auth)
}

func TestDesignationClient_RejectsMalformedPayload(t *testing.T) {
	c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"designations":[{"name":"CTO"}]}`))
	})

	_, err := c.ListDesignations(context.Background())
	require.ErrorIs(t, err, client.ErrMalformedResponse)
}

func TestDesignationClient_UpdateSendsExplicitNull(t *testing.T) {
	var body map[string]any
	c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/hierarchy/api/designations/7", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(`{"id":"7","name":"CTO","level":1,"parent_designation_id":null}`))
	})

	d, err := c.UpdateDesignation(context.Background(), "7", designation.Patch{}.WithParent(nil))
	require.NoError(t, err)
	assert.Equal(t, "7", d.ID)

	v, ok := body["parent_designation_id"]
	assert.True(t, ok, "explicit null must be sent")
	assert.Nil(t, v)
	_, hasLevel := body["level"]
	assert.False(t, hasLevel)
}

func TestDesignationClient_APIErrorMatchesDomainErrors(t *testing.T) {
	c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"code":"DESIGNATION_NAME_TAKEN","message":"designation name already exists","meta":{"request_id":"r1"}}`))
	})

	_, err := c.CreateDesignation(context.Background(), "CTO", 1)
	require.ErrorIs(t, err, designation.ErrNameTaken)

	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "r1", apiErr.Meta["request_id"])
}

func TestDesignationClient_NonJSONError(t *testing.T) {
	c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	})

	_, err := c.ListDesignations(context.Background())
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "bad gateway", apiErr.Message)
}

func TestNewDesignationClient_InvalidURL(t *testing.T) {
	_, err := client.NewDesignationClient(client.Options{BaseURL: "not a url"})
	require.Error(t, err)
}

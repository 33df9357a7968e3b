package controllers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/iota-uz/orghierarchy/modules/hierarchy/infrastructure/persistence"
	"github.com/iota-uz/orghierarchy/modules/hierarchy/presentation/dtos"
	"github.com/iota-uz/orghierarchy/modules/hierarchy/services"
	"github.com/iota-uz/orghierarchy/pkg/application"
	"github.com/iota-uz/orghierarchy/pkg/composables"
	"github.com/iota-uz/orghierarchy/pkg/httpapi"
)

type apiFixture struct {
	router *mux.Router
	tenant uuid.UUID
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	logger, _ := test.NewNullLogger()
	app := application.New(&application.ApplicationOptions{Logger: logger})
	svc := services.NewDesignationService(persistence.NewInmemDesignationRepository(), app.EventPublisher(), services.AllowAll())
	app.RegisterServices(
		svc,
		services.NewReconciler(svc, services.ReconcilerOptions{Logger: logrus.NewEntry(logger)}),
		services.NewHierarchyExportService(svc),
	)

	f := &apiFixture{router: mux.NewRouter(), tenant: uuid.New()}
	f.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := composables.WithTenantID(r.Context(), f.tenant)
			ctx = composables.WithRequestID(ctx, "req-1")
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	NewDesignationAPIController(app).Register(f.router)
	return f
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestDesignationAPI_CRUD(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/hierarchy/api/designations", map[string]any{"name": "CEO", "level": 0})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	ceo := decode[dtos.DesignationResponse](t, rec)
	require.NotEmpty(t, ceo.ID)
	require.Nil(t, ceo.ParentDesignationID)

	rec = f.do(t, http.MethodPost, "/hierarchy/api/designations", map[string]any{"name": "CTO", "level": 1})
	require.Equal(t, http.StatusCreated, rec.Code)
	cto := decode[dtos.DesignationResponse](t, rec)

	rec = f.do(t, http.MethodPatch, "/hierarchy/api/designations/"+cto.ID, map[string]any{"parent_designation_id": ceo.ID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[dtos.DesignationResponse](t, rec)
	require.NotNil(t, updated.ParentDesignationID)
	require.Equal(t, ceo.ID, *updated.ParentDesignationID)

	rec = f.do(t, http.MethodPatch, "/hierarchy/api/designations/"+cto.ID, `{"parent_designation_id":null}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Nil(t, decode[dtos.DesignationResponse](t, rec).ParentDesignationID)

	rec = f.do(t, http.MethodGet, "/hierarchy/api/designations", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode[dtos.DesignationListResponse](t, rec).Designations, 2)

	rec = f.do(t, http.MethodDelete, "/hierarchy/api/designations/"+cto.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/hierarchy/api/designations/"+cto.ID, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	env := decode[httpapi.ErrorEnvelope](t, rec)
	require.Equal(t, "DESIGNATION_NOT_FOUND", env.Code)
	require.Equal(t, "req-1", env.Meta["request_id"])
}

func TestDesignationAPI_CreateErrors(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/hierarchy/api/designations", map[string]any{"name": "CEO", "level": 0})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, http.MethodPost, "/hierarchy/api/designations", map[string]any{"name": " ceo ", "level": 2})
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodPost, "/hierarchy/api/designations", map[string]any{"name": "", "level": 0})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "HIERARCHY_VALIDATION", decode[httpapi.ErrorEnvelope](t, rec).Code)

	rec = f.do(t, http.MethodPost, "/hierarchy/api/designations", `{"name":"CTO","level":1,"color":"red"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "HIERARCHY_INVALID_BODY", decode[httpapi.ErrorEnvelope](t, rec).Code)

	rec = f.do(t, http.MethodPatch, "/hierarchy/api/designations/1", map[string]any{"parent_designation_id": "999"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestDesignationAPI_ReconcileAndTree(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/hierarchy/api/designations", map[string]any{"name": "CEO", "level": 0})
	require.Equal(t, http.StatusCreated, rec.Code)
	ceo := decode[dtos.DesignationResponse](t, rec)

	body := map[string]any{
		"nodes": []map[string]any{
			{"id": ceo.ID, "label": "CEO", "level": 0},
			{"id": "new-1", "label": "VP Sales", "level": 1},
		},
		"edges": []map[string]any{{"source": ceo.ID, "target": "new-1"}},
	}

	rec = f.do(t, http.MethodPost, "/hierarchy/api/reconcile", map[string]any{
		"nodes": body["nodes"], "edges": body["edges"], "dry_run": true,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	dry := decode[dtos.ReconcileResponse](t, rec)
	require.True(t, dry.DryRun)
	require.NotNil(t, dry.Plan)
	require.Len(t, dry.Plan.Materializations, 1)

	rec = f.do(t, http.MethodGet, "/hierarchy/api/designations", nil)
	require.Len(t, decode[dtos.DesignationListResponse](t, rec).Designations, 1)

	rec = f.do(t, http.MethodPost, "/hierarchy/api/reconcile", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[dtos.ReconcileResponse](t, rec)
	require.NotNil(t, res.Result)
	require.Len(t, res.Result.Created, 1)

	rec = f.do(t, http.MethodGet, "/hierarchy/api/tree", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	tree := decode[dtos.TreeResponse](t, rec)
	require.Len(t, tree.Roots, 1)
	require.Equal(t, "CEO", tree.Roots[0].Name)
	require.Len(t, tree.Roots[0].Children, 1)
	require.Equal(t, "VP Sales", tree.Roots[0].Children[0].Name)
	require.Equal(t, 1, tree.Roots[0].Children[0].Depth)
}

func TestDesignationAPI_ReconcileRejectsInvalidGraph(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/hierarchy/api/reconcile", map[string]any{
		"nodes": []map[string]any{{"id": "new-1", "label": "Lead", "level": 1}},
		"edges": []map[string]any{{"source": "new-1", "target": "new-1"}},
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	env := decode[httpapi.ErrorEnvelope](t, rec)
	require.Equal(t, "HIERARCHY_INVALID_GRAPH", env.Code)
	require.Equal(t, "validate", env.Meta["op"])
	require.Equal(t, "self_loop", env.Meta["issue"])

	rec = f.do(t, http.MethodPost, "/hierarchy/api/reconcile", map[string]any{
		"nodes": []map[string]any{{"id": "", "label": "Lead", "level": 1}},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDesignationAPI_Export(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(t, http.MethodPost, "/hierarchy/api/designations", map[string]any{"name": "CEO", "level": 0})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, http.MethodGet, "/hierarchy/api/export.xlsx", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))

	book, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer func() { _ = book.Close() }()
	name, err := book.GetCellValue("Hierarchy", "B2")
	require.NoError(t, err)
	require.Equal(t, "CEO", name)
}

func TestResultLabel(t *testing.T) {
	require.Equal(t, "2xx", resultLabel(http.StatusCreated))
	require.Equal(t, "4xx", resultLabel(http.StatusConflict))
	require.Equal(t, "5xx", resultLabel(http.StatusGatewayTimeout))
}

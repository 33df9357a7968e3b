package controllers

import (
	"bytes"
	"context"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/iota-uz/orghierarchy/modules/hierarchy/domain/aggregates/designation"
	"github.com/iota-uz/orghierarchy/modules/hierarchy/domain/graph"
	"github.com/iota-uz/orghierarchy/modules/hierarchy/presentation/dtos"
	"github.com/iota-uz/orghierarchy/modules/hierarchy/presentation/mappers"
	"github.com/iota-uz/orghierarchy/modules/hierarchy/services"
	"github.com/iota-uz/orghierarchy/pkg/application"
	"github.com/iota-uz/orghierarchy/pkg/composables"
	"github.com/iota-uz/orghierarchy/pkg/constants"
	"github.com/iota-uz/orghierarchy/pkg/httpapi"
	"github.com/iota-uz/orghierarchy/pkg/serrors"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type DesignationAPIController struct {
	designations *services.DesignationService
	reconciler   *services.Reconciler
	exports      *services.HierarchyExportService
	apiPrefix    string
}

func NewDesignationAPIController(app application.Application) application.Controller {
	return &DesignationAPIController{
		designations: app.Service(services.DesignationService{}).(*services.DesignationService),
		reconciler:   app.Service(services.Reconciler{}).(*services.Reconciler),
		exports:      app.Service(services.HierarchyExportService{}).(*services.HierarchyExportService),
		apiPrefix:    "/hierarchy/api",
	}
}

func (c *DesignationAPIController) Key() string {
	return c.apiPrefix
}

func (c *DesignationAPIController) Register(r *mux.Router) {
	api := r.PathPrefix(c.apiPrefix).Subrouter()

	api.HandleFunc("/designations", instrumentAPI("designations.list", c.List)).Methods(http.MethodGet)
	api.HandleFunc("/designations", instrumentAPI("designations.create", c.Create)).Methods(http.MethodPost)
	api.HandleFunc("/designations/{id}", instrumentAPI("designations.get", c.Get)).Methods(http.MethodGet)
	api.HandleFunc("/designations/{id}", instrumentAPI("designations.update", c.Update)).Methods(http.MethodPatch)
	api.HandleFunc("/designations/{id}", instrumentAPI("designations.delete", c.Delete)).Methods(http.MethodDelete)

	api.HandleFunc("/tree", instrumentAPI("tree", c.Tree)).Methods(http.MethodGet)
	api.HandleFunc("/export.xlsx", instrumentAPI("export", c.Export)).Methods(http.MethodGet)
	api.HandleFunc("/reconcile", instrumentAPI("reconcile", c.Reconcile)).Methods(http.MethodPost)
}

func (c *DesignationAPIController) List(w http.ResponseWriter, r *http.Request) {
	requestID := composables.UseRequestID(r.Context())
	items, err := c.designations.GetAll(r.Context())
	if err != nil {
		writeServiceError(w, requestID, err)
		return
	}
	writeJSON(w, http.StatusOK, mappers.DesignationsToResponse(items))
}

func (c *DesignationAPIController) Get(w http.ResponseWriter, r *http.Request) {
	requestID := composables.UseRequestID(r.Context())
	d, err := c.designations.GetByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, requestID, err)
		return
	}
	writeJSON(w, http.StatusOK, mappers.DesignationToResponse(d))
}

func (c *DesignationAPIController) Create(w http.ResponseWriter, r *http.Request) {
	requestID := composables.UseRequestID(r.Context())
	var req dtos.CreateDesignationRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		writeAPIError(w, http.StatusBadRequest, requestID, "HIERARCHY_INVALID_BODY", "invalid json body")
		return
	}
	d, err := c.designations.Create(r.Context(), req.ToDTO())
	if err != nil {
		writeServiceError(w, requestID, err)
		return
	}
	writeJSON(w, http.StatusCreated, mappers.DesignationToResponse(d))
}

func (c *DesignationAPIController) Update(w http.ResponseWriter, r *http.Request) {
	requestID := composables.UseRequestID(r.Context())
	var req dtos.UpdateDesignationRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		writeAPIError(w, http.StatusBadRequest, requestID, "HIERARCHY_INVALID_BODY", "invalid json body")
		return
	}
	d, err := c.designations.Update(r.Context(), mux.Vars(r)["id"], req.ToDTO())
	if err != nil {
		writeServiceError(w, requestID, err)
		return
	}
	writeJSON(w, http.StatusOK, mappers.DesignationToResponse(d))
}

func (c *DesignationAPIController) Delete(w http.ResponseWriter, r *http.Request) {
	requestID := composables.UseRequestID(r.Context())
	d, err := c.designations.Delete(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, requestID, err)
		return
	}
	writeJSON(w, http.StatusOK, mappers.DesignationToResponse(d))
}

func (c *DesignationAPIController) Tree(w http.ResponseWriter, r *http.Request) {
	requestID := composables.UseRequestID(r.Context())
	items, err := c.designations.GetAll(r.Context())
	if err != nil {
		writeServiceError(w, requestID, err)
		return
	}
	tree := mappers.ForestToTree(services.BuildTree(items))
	writeJSON(w, http.StatusOK, mappers.TreeToResponse(tree))
}

func (c *DesignationAPIController) Export(w http.ResponseWriter, r *http.Request) {
	requestID := composables.UseRequestID(r.Context())
	var buf bytes.Buffer
	if err := c.exports.WriteXLSX(r.Context(), &buf); err != nil {
		writeServiceError(w, requestID, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="hierarchy.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (c *DesignationAPIController) Reconcile(w http.ResponseWriter, r *http.Request) {
	requestID := composables.UseRequestID(r.Context())
	var req dtos.ReconcileRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		writeAPIError(w, http.StatusBadRequest, requestID, "HIERARCHY_INVALID_BODY", "invalid json body")
		return
	}
	if err := constants.Validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			writeValidationError(w, requestID, serrors.ProcessValidatorErrors(verrs, nil))
			return
		}
		writeAPIError(w, http.StatusBadRequest, requestID, "HIERARCHY_INVALID_BODY", err.Error())
		return
	}

	g := req.Graph()
	if req.DryRun {
		plan, err := c.reconciler.DryRun(r.Context(), g)
		if err != nil {
			writeServiceError(w, requestID, err)
			return
		}
		writeJSON(w, http.StatusOK, dtos.ReconcileResponse{DryRun: true, Plan: plan})
		return
	}

	res, err := atomically(r.Context(), func(ctx context.Context) (*services.Result, error) {
		return c.reconciler.Reconcile(ctx, g)
	})
	if err != nil {
		writeServiceError(w, requestID, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.ReconcileResponse{Result: res})
}

// atomically runs fn in one transaction when the request carries a pool.
func atomically[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	if _, err := composables.UsePool(ctx); err != nil && !composables.HasTx(ctx) {
		return fn(ctx)
	}
	return composables.InTxResult(ctx, fn)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, designation.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, designation.ErrNameTaken):
		return http.StatusConflict
	case errors.Is(err, designation.ErrParentNotFound),
		errors.Is(err, services.ErrInvalidGraph),
		errors.Is(err, services.ErrUnresolvedPlaceholder):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrReconciliationTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeServiceError(w http.ResponseWriter, requestID string, err error) {
	var verrs serrors.ValidationErrors
	if errors.As(err, &verrs) {
		writeValidationError(w, requestID, verrs)
		return
	}

	status := statusFor(err)
	code := serrors.Code(err)
	if code == "" {
		code = "HIERARCHY_INTERNAL"
	}
	meta := map[string]string{}
	var recErr *services.ReconciliationError
	if errors.As(err, &recErr) {
		meta["op"] = string(recErr.Op)
		if recErr.NodeID != "" {
			meta["node_id"] = recErr.NodeID
		}
		var gErr *graph.ValidationError
		if errors.As(err, &gErr) && len(gErr.Issues) > 0 {
			meta["issue"] = string(gErr.Issues[0].Kind)
		}
	}
	writeAPIErrorMeta(w, status, requestID, code, err.Error(), meta)
}

func writeValidationError(w http.ResponseWriter, requestID string, verrs serrors.ValidationErrors) {
	meta := make(map[string]string, len(verrs))
	for field, msg := range verrs {
		meta["field."+field] = msg
	}
	writeAPIErrorMeta(w, http.StatusBadRequest, requestID, "HIERARCHY_VALIDATION", verrs.Error(), meta)
}

func writeAPIError(w http.ResponseWriter, status int, requestID, code, message string) {
	writeAPIErrorMeta(w, status, requestID, code, message, map[string]string{})
}

func writeAPIErrorMeta(w http.ResponseWriter, status int, requestID, code, message string, meta map[string]string) {
	if requestID != "" {
		meta["request_id"] = requestID
	}
	_ = httpapi.WriteError(w, status, code, message, meta)
}

func writeJSON[T any](w http.ResponseWriter, status int, payload T) {
	if err := httpapi.WriteJSON(w, status, payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

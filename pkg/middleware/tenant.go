package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/iota-uz/orghierarchy/pkg/composables"
	"github.com/iota-uz/orghierarchy/pkg/httpapi"
)

// ProvideTenant resolves the tenant from header, falling back to defaultTenant.
func ProvideTenant(header string, defaultTenant uuid.UUID) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenantID := defaultTenant
			if raw := strings.TrimSpace(r.Header.Get(header)); raw != "" {
				parsed, err := uuid.Parse(raw)
				if err != nil {
					_ = httpapi.WriteError(w, http.StatusBadRequest, "TENANT_INVALID", "invalid tenant id", map[string]string{
						"request_id": composables.UseRequestID(r.Context()),
					})
					return
				}
				tenantID = parsed
			}
			if tenantID == uuid.Nil {
				_ = httpapi.WriteError(w, http.StatusBadRequest, "TENANT_REQUIRED", "tenant id is required", map[string]string{
					"request_id": composables.UseRequestID(r.Context()),
				})
				return
			}
			next.ServeHTTP(w, r.WithContext(composables.WithTenantID(r.Context(), tenantID)))
		})
	}
}

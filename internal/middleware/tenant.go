package middleware

import (
	"context"
	"net/http"
	"regexp"
)

var tenantRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{1,63}$`)

// TenantMiddleware scopes every request to exactly one organization.
// Authentication itself lives in the upstream gateway; by the time a
// request reaches this service the tenant header is trusted, but its
// format is still checked so malformed values never reach SQL or cache
// keys.
func TenantMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenant := r.Header.Get("X-Tenant-ID")
		if tenant == "" {
			http.Error(w, "X-Tenant-ID header required", http.StatusUnauthorized)
			return
		}

		if !tenantRegex.MatchString(tenant) {
			http.Error(w, "Invalid tenant identifier", http.StatusBadRequest)
			return
		}

		ctx := context.WithValue(r.Context(), "tenant", tenant)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

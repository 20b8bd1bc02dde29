package middleware

import (
	"context"
	"net/http"
	"strings"

	"storecopy-api/pkg/apierror"
	"storecopy-api/pkg/response"
)

// ShopDomainKey is the context key for the authenticated shop domain.
const ShopDomainKey contextKey = "shop_domain"

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	APIKey string
}

// NewAuthMiddleware validates the X-API-Key header and binds the X-Shop-Domain
// header into the request context. All credit and job operations are scoped to
// that shop. Health endpoints skip auth so probes stay unauthenticated.
func NewAuthMiddleware(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/api/v1/health" || r.URL.Path == "/api/v1/ready" || r.URL.Path == "/api/v1/status" {
				next.ServeHTTP(w, r)
				return
			}

			if cfg.APIKey != "" {
				if r.Header.Get("X-API-Key") != cfg.APIKey {
					response.Error(w, apierror.Unauthorized("Invalid or missing API key"))
					return
				}
			}

			shopDomain := strings.ToLower(strings.TrimSpace(r.Header.Get("X-Shop-Domain")))
			if shopDomain == "" {
				response.Error(w, apierror.BadRequest("X-Shop-Domain header is required"))
				return
			}

			ctx := context.WithValue(r.Context(), ShopDomainKey, shopDomain)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetShopDomain retrieves the authenticated shop domain from context.
func GetShopDomain(ctx context.Context) string {
	if shop, ok := ctx.Value(ShopDomainKey).(string); ok {
		return shop
	}
	return ""
}

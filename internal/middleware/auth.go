package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/jdorantes1987/aapn-nc/internal/auth"
	"github.com/jdorantes1987/aapn-nc/internal/http/respond"
)

const principalKey contextKey = "principal"

// RequireAuth validates the bearer token and stores the principal in the
// request context. Requests without a valid token get 401 and must return to
// the login flow.
func RequireAuth(tokens *auth.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			tokenString, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(tokenString) == "" {
				respond.Error(w, http.StatusUnauthorized, "sesión no iniciada; vuelve a la pantalla de ingreso")
				return
			}
			principal, err := tokens.Parse(strings.TrimSpace(tokenString))
			if err != nil {
				respond.Error(w, http.StatusUnauthorized, "sesión inválida o expirada; vuelve a la pantalla de ingreso")
				return
			}
			ctx := context.WithValue(r.Context(), principalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetPrincipal returns the authenticated principal stored by RequireAuth.
func GetPrincipal(ctx context.Context) (auth.Principal, bool) {
	p, ok := ctx.Value(principalKey).(auth.Principal)
	return p, ok
}

// RequirePermission gates a route on the principal's role granting the given
// action on the given resource. Denials are user-visible, never silent.
func RequirePermission(mgr *auth.Manager, resource, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := GetPrincipal(r.Context())
			if !ok {
				respond.Error(w, http.StatusUnauthorized, "sesión no iniciada; vuelve a la pantalla de ingreso")
				return
			}
			role, err := mgr.LoadRoleByName(r.Context(), principal.Role)
			if err != nil {
				respond.Error(w, http.StatusInternalServerError, "no se pudo verificar los permisos")
				return
			}
			if !role.HasPermission(resource, action) {
				respond.Error(w, http.StatusForbidden, "no tienes permiso para esta operación")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"task-management-api/internal/security"
	userrepo "task-management-api/internal/user/repository"
)

const bearerPrefix = "bearer "

// TokenVerifier validates an access token and returns its claims.
// Implemented by the auth service.
type TokenVerifier interface {
	VerifyAccessToken(token string) (*security.AccessClaims, error)
}

// RequireAuth returns middleware that validates the Bearer (access) token
// from the Authorization header and sets the user id in the request
// context. The user must still exist in the directory; tokens of deleted
// accounts are rejected.
func RequireAuth(verifier TokenVerifier, users userrepo.Repository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearer(r)
			if token == "" {
				unauthorized(w, "missing or invalid authorization")
				return
			}
			claims, err := verifier.VerifyAccessToken(token)
			if err != nil {
				unauthorized(w, "invalid or expired access token")
				return
			}
			if users != nil {
				u, err := users.GetByID(r.Context(), claims.UserID)
				if err != nil {
					http.Error(w, "internal error", http.StatusInternalServerError)
					return
				}
				if u == nil {
					unauthorized(w, "user not found or has been deleted")
					return
				}
			}
			ctx := WithUserID(r.Context(), claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractBearer returns the Bearer token from the Authorization header, or "" if missing or malformed.
func extractBearer(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  http.StatusUnauthorized,
		"message": message,
	})
}

// ClientIP returns the client IP for the request: the first hop of
// X-Forwarded-For when present, otherwise the remote address host.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		if ip := strings.TrimSpace(fwd); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// A RemoteAddr without a port is kept as-is.
		host = strings.Trim(r.RemoteAddr, "[]")
	}
	if host == "" {
		return "unknown"
	}
	return host
}

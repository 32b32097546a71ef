// Package server wires the HTTP routes and middleware.
package server

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	authhandler "task-management-api/internal/auth/handler"
	"task-management-api/internal/server/middleware"
	userrepo "task-management-api/internal/user/repository"
)

// Deps carries everything the router needs.
type Deps struct {
	Auth     *authhandler.Handler
	Verifier middleware.TokenVerifier
	Users    userrepo.Repository
	DB       *sql.DB
	Tracer   trace.Tracer
	Meter    metric.Meter
}

// New builds the HTTP handler with all routes and middleware attached.
func New(deps Deps) http.Handler {
	mux := http.NewServeMux()

	requireAuth := middleware.RequireAuth(deps.Verifier, deps.Users)

	mux.HandleFunc("POST /api/auth/login", deps.Auth.Login)
	mux.HandleFunc("POST /api/auth/refresh", deps.Auth.Refresh)
	mux.Handle("POST /api/auth/logout", requireAuth(http.HandlerFunc(deps.Auth.Logout)))
	mux.Handle("POST /api/auth/logout-all", requireAuth(http.HandlerFunc(deps.Auth.LogoutAll)))
	mux.Handle("GET /api/auth/me", requireAuth(http.HandlerFunc(deps.Auth.Me)))
	mux.Handle("GET /api/auth/sessions", requireAuth(http.HandlerFunc(deps.Auth.Sessions)))
	mux.Handle("DELETE /api/auth/sessions/{id}", requireAuth(http.HandlerFunc(deps.Auth.RevokeSession)))
	mux.Handle("GET /api/auth/audit-logs", requireAuth(http.HandlerFunc(deps.Auth.AuditLogs)))

	mux.HandleFunc("GET /healthz", healthz(deps.DB))

	telemetry := middleware.Telemetry(deps.Tracer, deps.Meter, map[string]bool{"/healthz": true})
	return telemetry(mux)
}

// healthz reports liveness. With a DB handle it also pings the database.
func healthz(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"unavailable"}`))
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}

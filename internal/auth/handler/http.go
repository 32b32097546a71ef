// Package handler exposes the authentication endpoints over HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	auditrepo "task-management-api/internal/audit/repository"
	authservice "task-management-api/internal/auth/service"
	"task-management-api/internal/server/middleware"
	sessionrepo "task-management-api/internal/session/repository"
	userrepo "task-management-api/internal/user/repository"
)

// refreshCookieName is the cookie carrying the refresh token between
// the browser and the refresh/logout endpoints.
const refreshCookieName = "refreshToken"

// Handler serves the auth endpoints.
type Handler struct {
	svc        *authservice.AuthService
	users      userrepo.Repository
	auditLogs  auditrepo.Repository
	refreshTTL time.Duration
	secure     bool
}

// NewHandler builds an auth Handler. auditLogs may be nil, which disables
// the audit-logs endpoint. secure controls the Secure flag on the refresh
// cookie and should be true in production.
func NewHandler(svc *authservice.AuthService, users userrepo.Repository, auditLogs auditrepo.Repository, refreshTTL time.Duration, secure bool) *Handler {
	return &Handler{svc: svc, users: users, auditLogs: auditLogs, refreshTTL: refreshTTL, secure: secure}
}

type envelope struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Login handles POST /api/auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	result, err := h.svc.Login(r.Context(), req.Email, req.Password, middleware.ClientIP(r), r.UserAgent())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.setRefreshCookie(w, result.RefreshToken)
	writeJSON(w, http.StatusOK, envelope{
		Status:  http.StatusOK,
		Message: "login successful",
		Data: map[string]interface{}{
			"accessToken":  result.AccessToken,
			"refreshToken": result.RefreshToken,
			"expiresAt":    result.AccessExpiresAt.UTC().Format(time.RFC3339),
			"user":         result.User,
		},
	})
}

// Refresh handles POST /api/auth/refresh. The refresh token is read from
// the cookie first, falling back to the JSON body.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	token := h.refreshTokenFrom(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "refresh token is required")
		return
	}

	result, err := h.svc.Refresh(r.Context(), token, middleware.ClientIP(r), r.UserAgent())
	if err != nil {
		if errors.Is(err, authservice.ErrAllSessionsRevoked) {
			h.clearRefreshCookie(w)
		}
		writeServiceError(w, err)
		return
	}

	h.setRefreshCookie(w, result.RefreshToken)
	writeJSON(w, http.StatusOK, envelope{
		Status:  http.StatusOK,
		Message: "token refreshed",
		Data: map[string]interface{}{
			"accessToken":  result.AccessToken,
			"refreshToken": result.RefreshToken,
			"expiresAt":    result.AccessExpiresAt.UTC().Format(time.RFC3339),
		},
	})
}

// Logout handles POST /api/auth/logout. Requires authentication.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	if err := h.svc.Logout(r.Context(), userID, h.refreshTokenFrom(r)); err != nil {
		writeServiceError(w, err)
		return
	}

	h.clearRefreshCookie(w)
	writeJSON(w, http.StatusOK, envelope{Status: http.StatusOK, Message: "logged out"})
}

// LogoutAll handles POST /api/auth/logout-all. Requires authentication.
func (h *Handler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	if err := h.svc.LogoutAll(r.Context(), userID); err != nil {
		writeServiceError(w, err)
		return
	}

	h.clearRefreshCookie(w)
	writeJSON(w, http.StatusOK, envelope{Status: http.StatusOK, Message: "logged out from all devices"})
}

// Sessions handles GET /api/auth/sessions. Requires authentication.
func (h *Handler) Sessions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	sessions, err := h.svc.ListSessions(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{
		Status:  http.StatusOK,
		Message: "ok",
		Data:    map[string]interface{}{"sessions": sessions},
	})
}

// RevokeSession handles DELETE /api/auth/sessions/{id}. Requires
// authentication; only the caller's own sessions can be revoked.
func (h *Handler) RevokeSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	sessionID := r.PathValue("id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "session id is required")
		return
	}

	if err := h.svc.RevokeSession(r.Context(), userID, sessionID); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{Status: http.StatusOK, Message: "session revoked"})
}

type auditLogView struct {
	ID        string `json:"id"`
	Action    string `json:"action"`
	IP        string `json:"ip"`
	UserAgent string `json:"userAgent"`
	Metadata  string `json:"metadata,omitempty"`
	CreatedAt string `json:"createdAt"`
}

// AuditLogs handles GET /api/auth/audit-logs: the caller's own security
// events, newest first. Supports limit and offset query parameters.
func (h *Handler) AuditLogs(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if h.auditLogs == nil {
		writeError(w, http.StatusNotFound, "audit logs are not available")
		return
	}

	limit := queryInt(r, "limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	logs, err := h.auditLogs.ListByUser(r.Context(), userID, int32(limit), int32(offset))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load audit logs")
		return
	}

	out := make([]auditLogView, 0, len(logs))
	for _, entry := range logs {
		out = append(out, auditLogView{
			ID:        entry.ID,
			Action:    entry.Action,
			IP:        entry.IP,
			UserAgent: entry.UserAgent,
			Metadata:  entry.Metadata,
			CreatedAt: entry.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, envelope{
		Status:  http.StatusOK,
		Message: "ok",
		Data:    map[string]interface{}{"auditLogs": out},
	})
}

func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// Me handles GET /api/auth/me. Requires authentication.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	writeJSON(w, http.StatusOK, envelope{
		Status:  http.StatusOK,
		Message: "ok",
		Data:    map[string]interface{}{"user": user.Public()},
	})
}

func (h *Handler) refreshTokenFrom(r *http.Request) string {
	if c, err := r.Cookie(refreshCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	var req refreshRequest
	if r.Body != nil {
		// Decode errors are ignored; an empty token is handled by the caller.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	return req.RefreshToken
}

func (h *Handler) setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.refreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *Handler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// writeServiceError maps service errors to HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, authservice.ErrInvalidCredentials),
		errors.Is(err, authservice.ErrInvalidToken),
		errors.Is(err, authservice.ErrExpiredToken),
		errors.Is(err, authservice.ErrRevokedToken),
		errors.Is(err, authservice.ErrAllSessionsRevoked):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, authservice.ErrUserNotFound),
		errors.Is(err, authservice.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, sessionrepo.ErrHashConflict):
		writeError(w, http.StatusConflict, "session conflict, please login again")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Status: status, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

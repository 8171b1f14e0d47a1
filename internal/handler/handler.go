package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	_ "github.com/mtlprog/taskhub/docs" // Import generated docs
	"github.com/mtlprog/taskhub/internal/domain"
	"github.com/mtlprog/taskhub/internal/handler/dto"
	"github.com/mtlprog/taskhub/internal/middleware"
	"github.com/mtlprog/taskhub/internal/service"
	"github.com/mtlprog/taskhub/internal/static"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	db             Pinger
	taskService    *service.TaskService
	userService    *service.UserService
	authMiddleware *middleware.AuthMiddleware
	realtime       http.Handler
}

// New creates a new Handler. realtime may be nil, in which case /ws is not served.
func New(db Pinger, taskService *service.TaskService, userService *service.UserService, realtime http.Handler) *Handler {
	return &Handler{
		db:             db,
		taskService:    taskService,
		userService:    userService,
		authMiddleware: middleware.NewAuthMiddleware(userService),
		realtime:       realtime,
	}
}

// RegisterRoutes registers all HTTP routes.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.handleHealthz)
	mux.HandleFunc("GET /{$}", h.handleIndex)

	// Swagger UI
	mux.HandleFunc("GET /swagger/", httpSwagger.Handler())

	if h.realtime != nil {
		mux.Handle("GET /ws", h.realtime)
	}

	// Tasks
	mux.Handle("GET /api/v1/tasks", h.authed(h.handleListTasks))
	mux.Handle("POST /api/v1/tasks", h.admin(h.handleCreateTask))
	mux.Handle("GET /api/v1/tasks/{id}", h.authed(h.handleGetTask))
	mux.Handle("PATCH /api/v1/tasks/{id}", h.admin(h.handleUpdateTask))
	mux.Handle("DELETE /api/v1/tasks/{id}", h.admin(h.handleDeleteTask))
	mux.Handle("GET /api/v1/tasks/{id}/events", h.authed(h.handleTaskHistory))

	// Users
	mux.Handle("GET /api/v1/users", h.admin(h.handleListUsers))
	mux.Handle("POST /api/v1/users", h.admin(h.handleCreateUser))
	mux.Handle("GET /api/v1/users/list", h.authed(h.handleListUsers))
	mux.Handle("GET /api/v1/users/profile", h.authed(h.handleGetProfile))
	mux.Handle("PUT /api/v1/users/profile", h.authed(h.handleUpdateProfile))
	mux.Handle("PUT /api/v1/users/{id}", h.admin(h.handleUpdateUser))
	mux.Handle("DELETE /api/v1/users/{id}", h.admin(h.handleDeleteUser))
}

func (h *Handler) authed(fn http.HandlerFunc) http.Handler {
	return h.authMiddleware.Authenticate(fn)
}

func (h *Handler) admin(fn http.HandlerFunc) http.Handler {
	return h.authMiddleware.Authenticate(middleware.RequireAdmin(fn))
}

// handleHealthz returns 200 OK if the database is reachable.
// @Summary Health check
// @Tags system
// @Success 200
// @Failure 503 {string} string
// @Router /healthz [get]
func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		slog.Error("database health check failed", "error", err)
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// handleIndex serves the embedded landing page.
func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(static.IndexHTML)); err != nil {
		slog.Error("failed to write index page", "error", err)
	}
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// respondError writes a standard error response.
func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, dto.NewErrorResponse(code, message))
}

// respondDomainError maps err onto the API error format.
func respondDomainError(w http.ResponseWriter, err error) {
	status, code, message := dto.MapDomainError(err)
	respondError(w, status, code, message)
}

// extractID extracts and validates the id path parameter.
// Returns (id, true) if valid, ("", false) if invalid (error already sent to client).
func extractID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "id is required")
		return "", false
	}

	if _, err := uuid.Parse(id); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "id must be a valid UUID")
		return "", false
	}

	return id, true
}

// currentUser returns the authenticated user or writes a 401.
func currentUser(w http.ResponseWriter, r *http.Request) (*domain.User, bool) {
	user, err := middleware.GetUserFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "INVALID_TOKEN", "Authentication required")
		return nil, false
	}
	return user, true
}

// decodeJSON decodes the request body or writes a 400.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return false
	}
	return true
}

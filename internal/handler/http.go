package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/gamecrate-api/internal/coordinator"
	"github.com/gamecrate-api/internal/domain"
	"github.com/gamecrate-api/internal/sessiontoken"
	"github.com/gamecrate-api/internal/websocket"
)

type contextKey string

const userIDKey contextKey = "user_id"

// Handler provides HTTP handlers for the catalogue API
type Handler struct {
	coordinator *coordinator.Coordinator
	verifier    *sessiontoken.Verifier
	hub         *websocket.Hub
	logger      *slog.Logger
}

// NewHandler creates a new HTTP handler. verifier may be nil, in which
// case the X-User-ID header identifies the caller (development only).
func NewHandler(coord *coordinator.Coordinator, verifier *sessiontoken.Verifier, hub *websocket.Hub, logger *slog.Logger) *Handler {
	return &Handler{
		coordinator: coord,
		verifier:    verifier,
		hub:         hub,
		logger:      logger,
	}
}

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Router creates and configures the HTTP router
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(corsMiddleware)

	// Health check
	r.Get("/health", h.HealthCheck)
	r.Get("/ready", h.ReadyCheck)

	// WebSocket endpoint
	r.Get("/ws", h.HandleWebSocket)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/stats", h.GetGlobalStats)
		r.Post("/maintenance/run", h.RunMaintenance)
		r.Get("/ws/stats", h.GetWebSocketStats)

		// Public user reads
		r.Post("/users", h.RegisterUser)
		r.Get("/users/by-username/{username}", h.GetUserProfileByUsername)
		r.Route("/users/{userID}", func(r chi.Router) {
			r.Get("/", h.GetUserProfile)
			r.Get("/followers", h.GetFollowers)
			r.Get("/following", h.GetFollowing)
			r.Get("/likes", h.GetUserLikes)
			r.Get("/lists", h.GetUserLists)
			r.Get("/activity", h.GetUserActivity)
		})

		// Game data
		r.Route("/games/{gameID}", func(r chi.Router) {
			r.Get("/comments", h.GetGameComments)
			r.Get("/cache/{source}", h.GetCachedGameData)
			r.Put("/cache/{source}", h.CacheGameData)
		})

		// Operations acting as the authenticated caller
		r.Group(func(r chi.Router) {
			r.Use(h.sessionAuth)

			r.Route("/me", func(r chi.Router) {
				r.Patch("/profile", h.UpdateProfile)
				r.Delete("/", h.DeleteAccount)
				r.Post("/follow/{targetID}", h.Follow)
				r.Delete("/follow/{targetID}", h.Unfollow)
				r.Post("/likes/{gameID}", h.ToggleLike)
				r.Post("/lists/{listName}/games", h.AddGameToList)
				r.Post("/subscription", h.UpgradeSubscription)
				r.Delete("/subscription", h.CancelSubscription)
			})
			r.Post("/games/{gameID}/comments", h.PostComment)
			r.Post("/activities", h.RecordActivity)
		})
	})

	return r
}

// corsMiddleware adds CORS headers
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// sessionAuth resolves the calling user from the session token issued by
// the authentication provider. Without a configured verifier the
// X-User-ID header is trusted instead, for local development.
func (h *Handler) sessionAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var userID string

		if h.verifier != nil {
			token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if token == "" {
				h.writeJSON(w, http.StatusUnauthorized, APIResponse{Success: false, Error: "missing session token"})
				return
			}
			subject, err := h.verifier.VerifySubject(token)
			if err != nil {
				h.writeJSON(w, http.StatusUnauthorized, APIResponse{Success: false, Error: "invalid session token"})
				return
			}
			userID = subject
		} else {
			userID = r.Header.Get("X-User-ID")
			if userID == "" {
				h.writeJSON(w, http.StatusUnauthorized, APIResponse{Success: false, Error: "missing X-User-ID header"})
				return
			}
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func callerID(r *http.Request) string {
	userID, _ := r.Context().Value(userIDKey).(string)
	return userID
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeSuccess writes a successful JSON response
func (h *Handler) writeSuccess(w http.ResponseWriter, data interface{}) {
	h.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

// writeError writes an error JSON response
func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, APIResponse{
		Success: false,
		Error:   err.Error(),
	})
}

// writeDomainError maps a domain error to an HTTP status
func (h *Handler) writeDomainError(w http.ResponseWriter, op string, err error) {
	switch {
	case domain.IsNotFoundError(err):
		h.writeError(w, http.StatusNotFound, err)
	case domain.IsConflict(err):
		h.writeError(w, http.StatusConflict, err)
	case errors.Is(err, domain.ErrInvalidRequest) || errors.Is(err, domain.ErrInvalidActivity):
		h.writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, domain.ErrStoreDisabled) || errors.Is(err, domain.ErrStoreUnavailable):
		h.writeError(w, http.StatusServiceUnavailable, err)
	default:
		h.logger.Error("request failed", "op", op, "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
	}
}

// HandleWebSocket handles WebSocket upgrade requests
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.ServeWs(h.hub, h.logger, w, r)
}

// GetWebSocketStats returns WebSocket connection statistics
func (h *Handler) GetWebSocketStats(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]interface{}{
		"total_connections": h.hub.GetTotalConnections(),
	})
}

// HealthCheck reports per-store reachability. Returns 200 while at least
// one store answers, 503 when both are down.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := h.coordinator.HealthCheck(r.Context())
	code := http.StatusOK
	if !status.Overall {
		code = http.StatusServiceUnavailable
	}
	h.writeJSON(w, code, APIResponse{Success: status.Overall, Data: status})
}

// ReadyCheck returns service readiness status
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]string{"status": "ready"})
}

// GetGlobalStats returns the aggregate counts snapshot
func (h *Handler) GetGlobalStats(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, h.coordinator.GetGlobalStats(r.Context()))
}

// RunMaintenance triggers a single maintenance pass
func (h *Handler) RunMaintenance(w http.ResponseWriter, r *http.Request) {
	report, err := h.coordinator.RunMaintenance(r.Context())
	if err != nil {
		h.writeDomainError(w, "run maintenance", err)
		return
	}
	h.writeSuccess(w, report)
}

// RegisterUser handles user registration
func (h *Handler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var user domain.UserRecord
	if err := json.NewDecoder(r.Body).Decode(&user); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	created, err := h.coordinator.RegisterUser(r.Context(), &user)
	if err != nil {
		h.writeDomainError(w, "register user", err)
		return
	}

	h.writeJSON(w, http.StatusCreated, APIResponse{Success: true, Data: created})
}

// GetUserProfile returns a user's record and active subscription
func (h *Handler) GetUserProfile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	profile, err := h.coordinator.GetUserProfile(r.Context(), userID)
	if err != nil {
		h.writeDomainError(w, "get user profile", err)
		return
	}
	h.writeSuccess(w, profile)
}

// GetUserProfileByUsername resolves a username to its profile
func (h *Handler) GetUserProfileByUsername(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if username == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	profile, err := h.coordinator.GetUserProfileByUsername(r.Context(), username)
	if err != nil {
		h.writeDomainError(w, "get user profile by username", err)
		return
	}
	h.writeSuccess(w, profile)
}

// UpdateProfile applies a partial profile update to the caller
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var update domain.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	user, err := h.coordinator.UpdateProfile(r.Context(), callerID(r), update)
	if err != nil {
		h.writeDomainError(w, "update profile", err)
		return
	}
	h.writeSuccess(w, user)
}

// DeleteAccount erases the caller's data across both stores. A partial
// failure returns the per-side report with a non-2xx status so the
// client can retry.
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	report, err := h.coordinator.DeleteAllUserData(r.Context(), callerID(r))
	if err != nil {
		h.logger.Error("account erasure incomplete", "user_id", report.UserID, "error", err)
		h.writeJSON(w, http.StatusInternalServerError, APIResponse{
			Success: false,
			Data:    report,
			Error:   err.Error(),
		})
		return
	}
	h.writeSuccess(w, report)
}

// Follow creates a follow edge from the caller to the target
func (h *Handler) Follow(w http.ResponseWriter, r *http.Request) {
	targetID := chi.URLParam(r, "targetID")
	if targetID == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	if err := h.coordinator.Follow(r.Context(), callerID(r), targetID); err != nil {
		h.writeDomainError(w, "follow", err)
		return
	}
	h.writeSuccess(w, map[string]string{"status": "following"})
}

// Unfollow removes a follow edge from the caller to the target
func (h *Handler) Unfollow(w http.ResponseWriter, r *http.Request) {
	targetID := chi.URLParam(r, "targetID")
	if targetID == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	if err := h.coordinator.Unfollow(r.Context(), callerID(r), targetID); err != nil {
		h.writeDomainError(w, "unfollow", err)
		return
	}
	h.writeSuccess(w, map[string]string{"status": "unfollowed"})
}

// GetFollowers returns the users following userID
func (h *Handler) GetFollowers(w http.ResponseWriter, r *http.Request) {
	edges, err := h.coordinator.GetFollowers(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.writeDomainError(w, "get followers", err)
		return
	}
	h.writeSuccess(w, edges)
}

// GetFollowing returns the users userID follows
func (h *Handler) GetFollowing(w http.ResponseWriter, r *http.Request) {
	edges, err := h.coordinator.GetFollowing(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.writeDomainError(w, "get following", err)
		return
	}
	h.writeSuccess(w, edges)
}

// ToggleLike flips the caller's like of a game
func (h *Handler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "gameID")
	if gameID == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	liked, err := h.coordinator.ToggleLike(r.Context(), callerID(r), gameID)
	if err != nil {
		h.writeDomainError(w, "toggle like", err)
		return
	}
	h.writeSuccess(w, map[string]bool{"liked": liked})
}

// GetUserLikes returns a user's likes, most recent first
func (h *Handler) GetUserLikes(w http.ResponseWriter, r *http.Request) {
	likes, err := h.coordinator.GetUserLikes(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.writeDomainError(w, "get user likes", err)
		return
	}
	h.writeSuccess(w, likes)
}

// PostComment stores a comment by the caller on a game
func (h *Handler) PostComment(w http.ResponseWriter, r *http.Request) {
	var comment domain.CommentRecord
	if err := json.NewDecoder(r.Body).Decode(&comment); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}
	comment.UserID = callerID(r)
	comment.GameID = chi.URLParam(r, "gameID")

	created, err := h.coordinator.PostComment(r.Context(), &comment)
	if err != nil {
		h.writeDomainError(w, "post comment", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, APIResponse{Success: true, Data: created})
}

// GetGameComments returns the comments on a game, newest first
func (h *Handler) GetGameComments(w http.ResponseWriter, r *http.Request) {
	comments, err := h.coordinator.GetGameComments(r.Context(), chi.URLParam(r, "gameID"))
	if err != nil {
		h.writeDomainError(w, "get game comments", err)
		return
	}
	h.writeSuccess(w, comments)
}

// AddGameToList appends a game to the caller's named list
func (h *Handler) AddGameToList(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GameID string `json:"game_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	list, added, err := h.coordinator.AddGameToUserList(r.Context(), callerID(r), chi.URLParam(r, "listName"), req.GameID)
	if err != nil {
		h.writeDomainError(w, "add game to list", err)
		return
	}
	h.writeSuccess(w, map[string]interface{}{
		"list":  list,
		"added": added,
	})
}

// GetUserLists returns all of a user's lists
func (h *Handler) GetUserLists(w http.ResponseWriter, r *http.Request) {
	lists, err := h.coordinator.GetUserLists(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.writeDomainError(w, "get user lists", err)
		return
	}
	h.writeSuccess(w, lists)
}

// GetCachedGameData returns cached external metadata for a game. A miss
// or an expired entry is a 404.
func (h *Handler) GetCachedGameData(w http.ResponseWriter, r *http.Request) {
	entry, err := h.coordinator.GetCachedGameData(r.Context(), chi.URLParam(r, "gameID"), chi.URLParam(r, "source"))
	if err != nil {
		h.writeDomainError(w, "get cached game data", err)
		return
	}
	if entry == nil {
		h.writeJSON(w, http.StatusNotFound, APIResponse{Success: false, Error: "cache miss"})
		return
	}
	h.writeSuccess(w, entry)
}

// CacheGameData stores externally fetched metadata for a game. An
// optional ttl_hours query parameter overrides the configured TTL.
func (h *Handler) CacheGameData(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil || len(payload) == 0 {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	ttlHours := -1
	if raw := r.URL.Query().Get("ttl_hours"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
			return
		}
		ttlHours = parsed
	}

	if err := h.coordinator.CacheGameData(r.Context(), chi.URLParam(r, "gameID"), chi.URLParam(r, "source"), payload, ttlHours); err != nil {
		h.writeDomainError(w, "cache game data", err)
		return
	}
	h.writeSuccess(w, map[string]string{"status": "cached"})
}

// RecordActivity appends an activity event for the caller
func (h *Handler) RecordActivity(w http.ResponseWriter, r *http.Request) {
	var event domain.ActivityEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}
	event.UserID = callerID(r)

	entry, err := h.coordinator.RecordActivity(r.Context(), event)
	if err != nil {
		h.writeDomainError(w, "record activity", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, APIResponse{Success: true, Data: entry})
}

// GetUserActivity returns a user's activity entries, newest first
func (h *Handler) GetUserActivity(w http.ResponseWriter, r *http.Request) {
	entries, err := h.coordinator.GetUserActivity(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.writeDomainError(w, "get user activity", err)
		return
	}
	h.writeSuccess(w, entries)
}

// UpgradeSubscription moves the caller to the premium plan
func (h *Handler) UpgradeSubscription(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BillingRef string `json:"billing_ref"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	record, err := h.coordinator.UpgradeSubscription(r.Context(), callerID(r), req.BillingRef)
	if err != nil {
		h.writeDomainError(w, "upgrade subscription", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, APIResponse{Success: true, Data: record})
}

// CancelSubscription ends the caller's active subscription
func (h *Handler) CancelSubscription(w http.ResponseWriter, r *http.Request) {
	if err := h.coordinator.CancelSubscription(r.Context(), callerID(r)); err != nil {
		h.writeDomainError(w, "cancel subscription", err)
		return
	}
	h.writeSuccess(w, map[string]string{"status": "cancelled"})
}

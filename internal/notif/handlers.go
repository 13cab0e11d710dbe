package notif

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"evently/internal/common"
	"evently/internal/config"
	"evently/internal/dbpg"
	"evently/internal/feed"
)

// Handler exposes the notification subsystem over HTTP: the client
// notification view and preferences under /api/v1, the live feed under /ws,
// and the caller-invoked hooks plus the cron trigger under /internal.
type Handler struct {
	service   *Service
	scheduler *Scheduler
	liveFeed  *feed.Feed
	cfg       *config.Config
	logger    *zap.Logger
	upgrader  websocket.Upgrader
}

func NewHandler(
	cfg *config.Config,
	service *Service,
	scheduler *Scheduler,
	liveFeed *feed.Feed,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		service:   service,
		scheduler: scheduler,
		liveFeed:  liveFeed,
		cfg:       cfg,
		logger:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (h *Handler) Router() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", h.health).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(common.AuthMiddleware)
	api.HandleFunc("/notifications", h.list).Methods("GET")
	api.HandleFunc("/notifications", h.clearAll).Methods("DELETE")
	api.HandleFunc("/notifications/unread-count", h.unreadCount).Methods("GET")
	api.HandleFunc("/notifications/read-all", h.markAllRead).Methods("POST")
	api.HandleFunc("/notifications/{id}/read", h.markRead).Methods("POST")
	api.HandleFunc("/notifications/{id}", h.deleteOne).Methods("DELETE")
	api.HandleFunc("/preferences", h.getPreferences).Methods("GET")
	api.HandleFunc("/preferences", h.updatePreferences).Methods("PUT")

	ws := router.PathPrefix("/ws").Subrouter()
	ws.Use(common.AuthMiddleware)
	ws.HandleFunc("/notifications", h.subscribe).Methods("GET")

	internal := router.PathPrefix("/internal").Subrouter()
	internal.Use(common.InternalAuthMiddleware(h.cfg.Server.ServiceToken))
	internal.HandleFunc("/hooks/event-changed", h.eventChanged).Methods("POST")
	internal.HandleFunc("/hooks/rsvp", h.rsvpChanged).Methods("POST")
	internal.HandleFunc("/scheduler/run", h.runScheduler).Methods("POST")

	return router
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "evently-notifications",
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	opts := dbpg.ListOptions{
		Limit:      queryInt(r, "limit", 20),
		Offset:     queryInt(r, "offset", 0),
		UnreadOnly: r.URL.Query().Get("unread") == "true",
	}
	if t := r.URL.Query().Get("type"); t != "" {
		nt := common.NotificationType(t)
		if !nt.Valid() {
			writeError(w, http.StatusBadRequest, "unknown notification type")
			return
		}
		opts.Type = nt
	}

	notifications, err := h.service.List(r.Context(), userID, opts)
	if err != nil {
		h.logger.Error("failed to list notifications", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load notifications")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": notifications,
		"limit":         opts.Limit,
		"offset":        opts.Offset,
	})
}

func (h *Handler) unreadCount(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	count, err := h.service.UnreadCount(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to get unread count", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load unread count")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"unread": count})
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	id := mux.Vars(r)["id"]

	if err := h.service.MarkRead(r.Context(), id, userID); err != nil {
		h.respondServiceError(w, err, "failed to mark notification as read")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) markAllRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	count, err := h.service.MarkAllRead(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, err, "failed to mark all as read")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "updated": count})
}

func (h *Handler) deleteOne(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	id := mux.Vars(r)["id"]

	if err := h.service.Delete(r.Context(), id, userID); err != nil {
		h.respondServiceError(w, err, "failed to delete notification")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) clearAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	count, err := h.service.ClearAll(r.Context(), userID)
	if err != nil {
		h.respondServiceError(w, err, "failed to clear notifications")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "deleted": count})
}

func (h *Handler) getPreferences(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	pref, err := h.service.Preferences(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to get preferences", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load preferences")
		return
	}
	writeJSON(w, http.StatusOK, pref)
}

func (h *Handler) updatePreferences(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var patch PreferencePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pref, err := h.service.UpdatePreferences(r.Context(), userID, patch)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) || errors.Is(err, common.ErrForbidden) {
			h.respondServiceError(w, err, "failed to update preferences")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, pref)
}

// subscribe bridges the redis-backed live feed onto a websocket. The
// subscription is released when the socket closes, whichever side closes it.
func (h *Handler) subscribe(w http.ResponseWriter, r *http.Request) {
	if h.liveFeed == nil {
		writeError(w, http.StatusServiceUnavailable, "live feed is not enabled")
		return
	}
	userID, ok := common.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sub, err := h.liveFeed.Subscribe(ctx, userID)
	if err != nil {
		h.logger.Error("feed subscription failed",
			zap.String("user_id", userID),
			zap.Error(err))
		return
	}
	defer sub.Close()

	// Read pump: the client sends nothing meaningful, but reading is how we
	// notice the socket closing.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	for change := range sub.Changes() {
		if err := conn.WriteJSON(change); err != nil {
			return
		}
	}
}

func (h *Handler) eventChanged(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Before common.EventSnapshot `json:"before"`
		After  common.EventSnapshot `json:"after"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.After.ID == "" {
		writeError(w, http.StatusBadRequest, "event id is required")
		return
	}

	if err := h.service.EventChanged(r.Context(), payload.Before, payload.After); err != nil {
		h.logger.Error("event-change fan-out failed",
			zap.String("event_id", payload.After.ID),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "event-change fan-out failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) rsvpChanged(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		EventID string            `json:"event_id"`
		UserID  string            `json:"user_id"`
		Action  common.RSVPAction `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.EventID == "" || payload.UserID == "" {
		writeError(w, http.StatusBadRequest, "event_id and user_id are required")
		return
	}
	if payload.Action != common.RSVPCreated && payload.Action != common.RSVPCancelled {
		writeError(w, http.StatusBadRequest, "action must be rsvp or cancel")
		return
	}

	if err := h.service.RSVPChanged(r.Context(), payload.EventID, payload.UserID, payload.Action); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		h.logger.Error("rsvp confirmation failed",
			zap.String("event_id", payload.EventID),
			zap.String("user_id", payload.UserID),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "rsvp confirmation failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// runScheduler lets an external cron drive the reminder pass. An optional
// "now" in the body pins the pass to a given instant, mainly for staging.
func (h *Handler) runScheduler(w http.ResponseWriter, r *http.Request) {
	now := time.Now()

	var payload struct {
		Now *time.Time `json:"now"`
	}
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&payload); err == nil && payload.Now != nil {
			now = *payload.Now
		}
	}

	if err := h.scheduler.RunOnce(r.Context(), now); err != nil {
		h.logger.Error("triggered reminder pass failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "reminder pass failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, common.ErrNotFound):
		writeError(w, http.StatusNotFound, "notification not found")
	case errors.Is(err, common.ErrForbidden):
		writeError(w, http.StatusForbidden, "not your notification")
	default:
		h.logger.Error(fallback, zap.Error(err))
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

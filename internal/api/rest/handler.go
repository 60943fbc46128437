// Package rest exposes the attack log over HTTP/JSON.
package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/attacklog/attacklog/internal/analytics"
	"github.com/attacklog/attacklog/internal/api/websocket"
	"github.com/attacklog/attacklog/internal/audit"
	"github.com/attacklog/attacklog/internal/db"
	"github.com/attacklog/attacklog/internal/metrics"
	"github.com/attacklog/attacklog/internal/store"
)

// AnalyticsDefaults carries the window sizes applied when a request
// omits the corresponding query parameter.
type AnalyticsDefaults struct {
	FrequencyWindowDays int
	HeatmapWindowDays   int
	TopTagsLimit        int
}

// Handler holds the dependencies shared by all HTTP handlers.
type Handler struct {
	store    *store.Store
	database db.Store
	engine   *analytics.Engine
	hub      *websocket.Hub
	audit    audit.Logger
	logger   *zap.Logger

	mu       sync.RWMutex
	defaults AnalyticsDefaults
}

// NewHandler creates the REST handler. hub and auditLogger may be nil;
// broadcasting and audit logging are then skipped.
func NewHandler(st *store.Store, database db.Store, engine *analytics.Engine, hub *websocket.Hub, auditLogger audit.Logger, logger *zap.Logger, defaults AnalyticsDefaults) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaults.FrequencyWindowDays <= 0 {
		defaults.FrequencyWindowDays = analytics.DefaultFrequencyWindowDays
	}
	if defaults.HeatmapWindowDays <= 0 {
		defaults.HeatmapWindowDays = analytics.DefaultHeatmapWindowDays
	}
	if defaults.TopTagsLimit <= 0 {
		defaults.TopTagsLimit = analytics.DefaultTopTagsLimit
	}
	return &Handler{
		store:    st,
		database: database,
		engine:   engine,
		hub:      hub,
		audit:    auditLogger,
		logger:   logger,
		defaults: defaults,
	}
}

// UpdateAnalyticsDefaults swaps in new default windows, typically after a
// config reload. Zero values keep the previous setting.
func (h *Handler) UpdateAnalyticsDefaults(defaults AnalyticsDefaults) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if defaults.FrequencyWindowDays > 0 {
		h.defaults.FrequencyWindowDays = defaults.FrequencyWindowDays
	}
	if defaults.HeatmapWindowDays > 0 {
		h.defaults.HeatmapWindowDays = defaults.HeatmapWindowDays
	}
	if defaults.TopTagsLimit > 0 {
		h.defaults.TopTagsLimit = defaults.TopTagsLimit
	}
}

func (h *Handler) analyticsDefaults() AnalyticsDefaults {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.defaults
}

// SetupRoutes configures all API routes.
func SetupRoutes(router *mux.Router, h *Handler) {
	api := router.PathPrefix("/api/v1").Subrouter()

	// Attack lifecycle
	api.HandleFunc("/attacks", h.ListAttacks).Methods("GET")
	api.HandleFunc("/attacks", h.StartAttack).Methods("POST")
	api.HandleFunc("/attacks/active", h.GetActiveAttack).Methods("GET")
	api.HandleFunc("/attacks/active/mitigations", h.RecordMitigation).Methods("POST")
	api.HandleFunc("/attacks/active/end", h.EndAttack).Methods("POST")

	// Vocabularies. Suggestions must register before the {tag} route so
	// "suggestions" is not captured as a tag name.
	api.HandleFunc("/tags/{vocabulary}", h.ListVocabulary).Methods("GET")
	api.HandleFunc("/tags/{vocabulary}", h.AddVocabularyTag).Methods("POST")
	api.HandleFunc("/tags/{vocabulary}/suggestions", h.SuggestVocabularyTags).Methods("GET")
	api.HandleFunc("/tags/{vocabulary}/{tag}", h.RemoveVocabularyTag).Methods("DELETE")

	// Analytics
	api.HandleFunc("/analytics/frequency", h.AttackFrequency).Methods("GET")
	api.HandleFunc("/analytics/heatmap", h.HeatmapSeverity).Methods("GET")
	api.HandleFunc("/analytics/top-tags", h.TopTags).Methods("GET")

	router.HandleFunc("/healthz", h.Health).Methods("GET")
}

// Health reports liveness plus database reachability.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if h.database != nil {
		if err := h.database.Ping(r.Context()); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
	}
	respondJSON(w, code, map[string]string{"status": status})
}

// persist writes the current snapshot through and records the outcome.
// The in-memory mutation has already happened; a failed write is
// surfaced to the caller so it can retry, but state is not rolled back.
func (h *Handler) persist(r *http.Request) error {
	if h.database == nil {
		return nil
	}
	if err := h.database.SaveSnapshot(r.Context(), h.store.Snapshot()); err != nil {
		metrics.SnapshotSaveFailures.Inc()
		h.logger.Error("snapshot save failed", zap.Error(err))
		if h.audit != nil {
			h.audit.LogSnapshotSaveFailed(r.Context(), err)
		}
		return err
	}
	metrics.SnapshotSaves.Inc()
	return nil
}

func (h *Handler) broadcast(changeType string, payload interface{}) {
	if h.hub == nil {
		return
	}
	if err := h.hub.BroadcastChange(changeType, payload); err != nil {
		h.logger.Warn("websocket broadcast failed",
			zap.String("type", changeType),
			zap.Error(err))
	}
}

// respondStoreError maps store errors onto HTTP statuses and counts
// the rejection. operation labels the store operation that failed.
func (h *Handler) respondStoreError(w http.ResponseWriter, operation string, err error) {
	var (
		valErr *store.ValidationError
		dupErr *store.DuplicateTagError
	)
	switch {
	case errors.As(err, &valErr):
		metrics.StoreOperationErrors.WithLabelValues(operation, "validation").Inc()
		respondError(w, http.StatusBadRequest, valErr.Error())
	case errors.As(err, &dupErr):
		metrics.StoreOperationErrors.WithLabelValues(operation, "duplicate_tag").Inc()
		respondError(w, http.StatusConflict, dupErr.Error())
	case errors.Is(err, store.ErrNoActiveAttack):
		metrics.StoreOperationErrors.WithLabelValues(operation, "no_active").Inc()
		respondError(w, http.StatusConflict, err.Error())
	default:
		metrics.StoreOperationErrors.WithLabelValues(operation, "internal").Inc()
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

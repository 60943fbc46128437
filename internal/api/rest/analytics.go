package rest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/attacklog/attacklog/internal/analytics"
)

// Analytics query parameters:
//
//	now    - RFC 3339 reference time; defaults to the server clock
//	days   - window size in calendar days (frequency, heatmap)
//	limit  - maximum entries returned (top-tags)
//	field  - "triggers" or "mitigations" (top-tags, default triggers)

func parseNowParam(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("now")
	if raw == "" {
		return time.Now(), nil
	}
	return time.Parse(time.RFC3339, raw)
}

func parsePositiveIntParam(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, &paramError{name: name, value: raw}
	}
	return n, nil
}

type paramError struct {
	name  string
	value string
}

func (e *paramError) Error() string {
	return "invalid " + e.name + " parameter: " + e.value
}

// AttackFrequency returns the daily attack-count series for the window
// ending today.
func (h *Handler) AttackFrequency(w http.ResponseWriter, r *http.Request) {
	now, err := parseNowParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid now parameter: expected RFC 3339 timestamp")
		return
	}
	days, err := parsePositiveIntParam(r, "days", h.analyticsDefaults().FrequencyWindowDays)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	series := h.engine.FrequencySeries(h.store.HistoricalAttacks(), now, days)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"windowDays": days,
		"series":     series,
	})
}

// HeatmapSeverity returns the daily average-initial-severity series for
// the window ending today.
func (h *Handler) HeatmapSeverity(w http.ResponseWriter, r *http.Request) {
	now, err := parseNowParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid now parameter: expected RFC 3339 timestamp")
		return
	}
	days, err := parsePositiveIntParam(r, "days", h.analyticsDefaults().HeatmapWindowDays)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	buckets := h.engine.SeverityHeatmap(h.store.HistoricalAttacks(), now, days)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"windowDays": days,
		"buckets":    buckets,
	})
}

// TopTags returns the most frequent trigger or mitigation tags across
// all ended attacks.
func (h *Handler) TopTags(w http.ResponseWriter, r *http.Request) {
	field := analytics.TagField(r.URL.Query().Get("field"))
	if field == "" {
		field = analytics.TagFieldTriggers
	}
	if !field.Valid() {
		respondError(w, http.StatusBadRequest, "invalid field parameter: expected triggers or mitigations")
		return
	}
	limit, err := parsePositiveIntParam(r, "limit", h.analyticsDefaults().TopTagsLimit)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	tags := h.engine.TopTags(h.store.HistoricalAttacks(), field, limit)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"field": field,
		"limit": limit,
		"tags":  tags,
	})
}

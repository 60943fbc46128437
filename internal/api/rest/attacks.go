package rest

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/attacklog/attacklog/internal/api/websocket"
	"github.com/attacklog/attacklog/internal/metrics"
)

// Timestamps on the wire are Unix epoch milliseconds, matching the
// persisted snapshot format. A missing or zero value is invalid; the
// client always knows when its event happened.

type startAttackRequest struct {
	StartTime        int64    `json:"startTime"`
	InitialSeverity  int      `json:"initialSeverity"`
	LocationTriggers []string `json:"locationTriggers"`
}

type mitigationRequest struct {
	Timestamp     int64    `json:"timestamp"`
	Tags          []string `json:"tags"`
	SeverityAfter int      `json:"severityAfter"`
}

type endAttackRequest struct {
	EndTime int64 `json:"endTime"`
}

func msToTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// ListAttacks returns every recorded attack, historical first, the
// active one (if any) last.
func (h *Handler) ListAttacks(w http.ResponseWriter, r *http.Request) {
	attacks := h.store.HistoricalAttacks()
	if active := h.store.ActiveAttack(); active != nil {
		attacks = append(attacks, *active)
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"attacks": attacks,
		"count":   len(attacks),
	})
}

// GetActiveAttack returns the ongoing attack, or 404 when none is active.
func (h *Handler) GetActiveAttack(w http.ResponseWriter, r *http.Request) {
	active := h.store.ActiveAttack()
	if active == nil {
		respondError(w, http.StatusNotFound, "no active attack")
		return
	}
	respondJSON(w, http.StatusOK, active)
}

// StartAttack opens a new attack episode.
func (h *Handler) StartAttack(w http.ResponseWriter, r *http.Request) {
	var req startAttackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	attack, err := h.store.StartAttack(msToTime(req.StartTime), req.InitialSeverity, req.LocationTriggers)
	if err != nil {
		h.respondStoreError(w, "start_attack", err)
		return
	}

	if err := h.persist(r); err != nil {
		respondError(w, http.StatusInternalServerError, "attack started but snapshot write failed")
		return
	}

	metrics.AttacksStarted.Inc()
	if h.audit != nil {
		h.audit.LogAttackStarted(r.Context(), attack.ID, attack.InitialSeverity)
	}
	h.broadcast(websocket.TypeAttackStarted, attack)

	respondJSON(w, http.StatusCreated, attack)
}

// RecordMitigation appends a mitigation attempt to the active attack and
// updates its current severity.
func (h *Handler) RecordMitigation(w http.ResponseWriter, r *http.Request) {
	var req mitigationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	attempt, err := h.store.RecordMitigation(msToTime(req.Timestamp), req.Tags, req.SeverityAfter)
	if err != nil {
		h.respondStoreError(w, "record_mitigation", err)
		return
	}

	if err := h.persist(r); err != nil {
		respondError(w, http.StatusInternalServerError, "mitigation recorded but snapshot write failed")
		return
	}

	active := h.store.ActiveAttack()
	metrics.MitigationsRecorded.Inc()
	if h.audit != nil && active != nil {
		h.audit.LogMitigationRecorded(r.Context(), active.ID, attempt.SeverityAfter)
	}
	h.broadcast(websocket.TypeMitigationRecorded, active)

	respondJSON(w, http.StatusCreated, attempt)
}

// EndAttack closes the active attack and moves it to history.
func (h *Handler) EndAttack(w http.ResponseWriter, r *http.Request) {
	var req endAttackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	attack, err := h.store.EndActiveAttack(msToTime(req.EndTime))
	if err != nil {
		h.respondStoreError(w, "end_attack", err)
		return
	}

	if err := h.persist(r); err != nil {
		respondError(w, http.StatusInternalServerError, "attack ended but snapshot write failed")
		return
	}

	metrics.AttacksEnded.Inc()
	if attack.EndTime != nil {
		metrics.AttackDurationHours.Observe(attack.EndTime.Sub(attack.StartTime).Hours())
	}
	if h.audit != nil {
		h.audit.LogAttackEnded(r.Context(), attack.ID, attack.CurrentSeverity)
	}
	h.broadcast(websocket.TypeAttackEnded, attack)

	respondJSON(w, http.StatusOK, attack)
}

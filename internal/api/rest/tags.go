package rest

import (
	"encoding/json"
	"math"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/attacklog/attacklog/internal/analytics"
	"github.com/attacklog/attacklog/internal/api/websocket"
	"github.com/attacklog/attacklog/internal/models"
)

type addTagRequest struct {
	Tag string `json:"tag"`
}

func vocabularyFromRequest(r *http.Request) (models.Vocabulary, bool) {
	vocab := models.Vocabulary(mux.Vars(r)["vocabulary"])
	return vocab, vocab.Valid()
}

func (h *Handler) vocabularyTags(vocab models.Vocabulary) []string {
	if vocab == models.VocabularyTriggers {
		return h.store.Triggers()
	}
	return h.store.Mitigations()
}

// ListVocabulary returns all tags of one vocabulary.
func (h *Handler) ListVocabulary(w http.ResponseWriter, r *http.Request) {
	vocab, ok := vocabularyFromRequest(r)
	if !ok {
		respondError(w, http.StatusNotFound, "unknown vocabulary")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"vocabulary": vocab,
		"tags":       h.vocabularyTags(vocab),
	})
}

// AddVocabularyTag adds a tag to a vocabulary. Duplicates are rejected
// with 409.
func (h *Handler) AddVocabularyTag(w http.ResponseWriter, r *http.Request) {
	vocab, ok := vocabularyFromRequest(r)
	if !ok {
		respondError(w, http.StatusNotFound, "unknown vocabulary")
		return
	}

	var req addTagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.store.AddVocabularyTag(vocab, req.Tag); err != nil {
		h.respondStoreError(w, "add_vocabulary_tag", err)
		return
	}

	if err := h.persist(r); err != nil {
		respondError(w, http.StatusInternalServerError, "tag added but snapshot write failed")
		return
	}

	if h.audit != nil {
		h.audit.LogVocabularyTagAdded(r.Context(), string(vocab), req.Tag)
	}
	h.broadcast(websocket.TypeVocabularyUpdated, map[string]interface{}{
		"vocabulary": vocab,
		"tags":       h.vocabularyTags(vocab),
	})

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"vocabulary": vocab,
		"tags":       h.vocabularyTags(vocab),
	})
}

// RemoveVocabularyTag removes a tag from a vocabulary. Removing a tag
// that is not present succeeds; historical attacks referencing the tag
// are untouched.
func (h *Handler) RemoveVocabularyTag(w http.ResponseWriter, r *http.Request) {
	vocab, ok := vocabularyFromRequest(r)
	if !ok {
		respondError(w, http.StatusNotFound, "unknown vocabulary")
		return
	}
	tag := mux.Vars(r)["tag"]

	if err := h.store.RemoveVocabularyTag(vocab, tag); err != nil {
		h.respondStoreError(w, "remove_vocabulary_tag", err)
		return
	}

	if err := h.persist(r); err != nil {
		respondError(w, http.StatusInternalServerError, "tag removed but snapshot write failed")
		return
	}

	if h.audit != nil {
		h.audit.LogVocabularyTagRemoved(r.Context(), string(vocab), tag)
	}
	h.broadcast(websocket.TypeVocabularyUpdated, map[string]interface{}{
		"vocabulary": vocab,
		"tags":       h.vocabularyTags(vocab),
	})

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"vocabulary": vocab,
		"tags":       h.vocabularyTags(vocab),
	})
}

// SuggestVocabularyTags returns vocabulary tags matching the q query
// parameter, most-used first. An empty query returns the whole
// vocabulary in usage order.
func (h *Handler) SuggestVocabularyTags(w http.ResponseWriter, r *http.Request) {
	vocab, ok := vocabularyFromRequest(r)
	if !ok {
		respondError(w, http.StatusNotFound, "unknown vocabulary")
		return
	}
	query := r.URL.Query().Get("q")

	field := analytics.TagFieldTriggers
	if vocab == models.VocabularyMitigations {
		field = analytics.TagFieldMitigations
	}
	usage := h.engine.TopTags(h.store.HistoricalAttacks(), field, math.MaxInt)

	suggestions := analytics.SuggestTags(query, h.vocabularyTags(vocab), usage)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"vocabulary":  vocab,
		"query":       query,
		"suggestions": suggestions,
	})
}

package store

// Package store holds the canonical in-memory state: both tag vocabularies,
// the historical attacks, and the single active attack. It enforces the
// lifecycle invariants across mutations and across a reload:
//
//   - at most one attack is active at any time,
//   - attack IDs never collide across historical and active sets,
//   - an ended attack's current severity equals the severityAfter of its
//     last mitigation attempt (or its initial severity with none),
//   - ending is a one-way transition; historical attacks never re-enter
//     the active slot.
//
// Every operation either fully applies or fails before any mutation. The
// store does not persist anything itself; callers read Snapshot() after a
// successful mutation and hand it to the persistence layer.

import (
	"sync"
	"time"

	"github.com/attacklog/attacklog/internal/models"
)

// Store is the single-user state aggregate. The conceptual model is one
// logical actor issuing sequential operations, but operations arrive on
// HTTP server goroutines, so all state is guarded by one mutex.
type Store struct {
	mu sync.RWMutex

	triggers    []string
	mitigations []string
	historical  []models.Attack
	active      *models.Attack

	// lastID is the highest attack ID ever observed, used to keep
	// creation-time-derived IDs strictly monotonic.
	lastID int64
}

// New returns a store seeded with the starter vocabularies and no attacks.
func New() *Store {
	return &Store{
		triggers:    models.DefaultLocationTriggers(),
		mitigations: models.DefaultMitigations(),
	}
}

// Load replaces the store state with persisted records. The first attack
// without an end time becomes the active attack; any further such records
// are demoted to historical as-is and reported via DataInconsistencyError
// (non-fatal: the store is fully usable afterwards). A nil vocabulary means
// the record was absent or unparseable and falls back to the starter set;
// an explicitly empty vocabulary stays empty.
func (s *Store) Load(snap models.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.historical = s.historical[:0]
	s.active = nil
	s.lastID = 0

	extra := 0
	for _, a := range snap.Attacks {
		a = a.Clone()
		if a.ID > s.lastID {
			s.lastID = a.ID
		}
		if a.Active() {
			if s.active == nil {
				s.active = &a
				continue
			}
			extra++
		}
		s.historical = append(s.historical, a)
	}

	if snap.LocationTriggers != nil {
		s.triggers = append([]string(nil), snap.LocationTriggers...)
	} else {
		s.triggers = models.DefaultLocationTriggers()
	}
	if snap.Mitigations != nil {
		s.mitigations = append([]string(nil), snap.Mitigations...)
	} else {
		s.mitigations = models.DefaultMitigations()
	}

	if extra > 0 {
		return &DataInconsistencyError{ExtraActive: extra}
	}
	return nil
}

// StartAttack creates a new attack and installs it as active.
func (s *Store) StartAttack(startTime time.Time, initialSeverity int, triggerTags []string) (models.Attack, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if startTime.IsZero() {
		return models.Attack{}, &ValidationError{Field: "startTime", Reason: "timestamp is required"}
	}
	if initialSeverity < models.SeverityMin || initialSeverity > models.SeverityMax {
		return models.Attack{}, &ValidationError{Field: "initialSeverity", Reason: "severity must be between 1 and 10"}
	}
	if len(triggerTags) == 0 {
		return models.Attack{}, &ValidationError{Field: "locationTriggers", Reason: "at least one trigger tag is required"}
	}
	if s.active != nil {
		return models.Attack{}, &ValidationError{Field: "active", Reason: "an attack is already in progress"}
	}

	attack := models.Attack{
		ID:                 s.nextID(),
		StartTime:          startTime,
		InitialSeverity:    initialSeverity,
		CurrentSeverity:    initialSeverity,
		LocationTriggers:   append([]string(nil), triggerTags...),
		MitigationAttempts: []models.MitigationAttempt{},
	}
	s.active = &attack
	return attack.Clone(), nil
}

// RecordMitigation appends a mitigation attempt to the active attack and
// updates its current severity.
func (s *Store) RecordMitigation(timestamp time.Time, tags []string, severityAfter int) (models.MitigationAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil {
		return models.MitigationAttempt{}, ErrNoActiveAttack
	}
	if timestamp.IsZero() {
		return models.MitigationAttempt{}, &ValidationError{Field: "timestamp", Reason: "timestamp is required"}
	}
	if severityAfter < models.SeverityMin || severityAfter > models.SeverityMax {
		return models.MitigationAttempt{}, &ValidationError{Field: "severityAfter", Reason: "severity must be between 1 and 10"}
	}
	if len(tags) == 0 {
		return models.MitigationAttempt{}, &ValidationError{Field: "tags", Reason: "at least one mitigation tag is required"}
	}

	attempt := models.MitigationAttempt{
		Timestamp:     timestamp,
		Tags:          append([]string(nil), tags...),
		SeverityAfter: severityAfter,
	}
	s.active.MitigationAttempts = append(s.active.MitigationAttempts, attempt)
	s.active.CurrentSeverity = severityAfter

	attempt.Tags = append([]string(nil), attempt.Tags...)
	return attempt, nil
}

// EndActiveAttack sets the end time, freezes the current severity, moves
// the attack into the historical collection, and clears the active slot.
// Ending before the recorded start time is rejected.
func (s *Store) EndActiveAttack(endTime time.Time) (models.Attack, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil {
		return models.Attack{}, ErrNoActiveAttack
	}
	if endTime.IsZero() {
		return models.Attack{}, &ValidationError{Field: "endTime", Reason: "timestamp is required"}
	}
	if endTime.Before(s.active.StartTime) {
		return models.Attack{}, &ValidationError{Field: "endTime", Reason: "end time must not be before start time"}
	}

	ended := *s.active
	end := endTime
	ended.EndTime = &end
	s.historical = append(s.historical, ended)
	s.active = nil
	return ended.Clone(), nil
}

// AddVocabularyTag appends a tag to a vocabulary, preserving insertion
// order. Adding a tag that is already present fails without touching the
// vocabulary.
func (s *Store) AddVocabularyTag(vocab models.Vocabulary, tag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.vocabulary(vocab)
	if err != nil {
		return err
	}
	if tag == "" {
		return &ValidationError{Field: "tag", Reason: "tag must not be empty"}
	}
	for _, t := range *list {
		if t == tag {
			return &DuplicateTagError{Vocabulary: vocab, Tag: tag}
		}
	}
	*list = append(*list, tag)
	return nil
}

// RemoveVocabularyTag removes a tag from a vocabulary. Removal is
// idempotent and never touches tags already recorded on attacks.
func (s *Store) RemoveVocabularyTag(vocab models.Vocabulary, tag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.vocabulary(vocab)
	if err != nil {
		return err
	}
	for i, t := range *list {
		if t == tag {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return nil
		}
	}
	return nil
}

// ActiveAttack returns a copy of the attack in progress, or nil.
func (s *Store) ActiveAttack() *models.Attack {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.active == nil {
		return nil
	}
	a := s.active.Clone()
	return &a
}

// HistoricalAttacks returns copies of the ended attacks in end order.
func (s *Store) HistoricalAttacks() []models.Attack {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Attack, len(s.historical))
	for i, a := range s.historical {
		out[i] = a.Clone()
	}
	return out
}

// Triggers returns a copy of the trigger vocabulary in insertion order.
func (s *Store) Triggers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.triggers...)
}

// Mitigations returns a copy of the mitigation vocabulary in insertion order.
func (s *Store) Mitigations() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.mitigations...)
}

// Snapshot returns the serializable whole-state view: historical attacks
// followed by the active attack if present, plus both vocabularies. Load
// applied to this snapshot reconstructs the same state.
func (s *Store) Snapshot() models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	attacks := make([]models.Attack, 0, len(s.historical)+1)
	for _, a := range s.historical {
		attacks = append(attacks, a.Clone())
	}
	if s.active != nil {
		attacks = append(attacks, s.active.Clone())
	}
	return models.Snapshot{
		Attacks:          attacks,
		LocationTriggers: append([]string(nil), s.triggers...),
		Mitigations:      append([]string(nil), s.mitigations...),
	}
}

// nextID derives a creation-time ID, bumping past the last observed ID so
// two starts within the same millisecond cannot collide.
func (s *Store) nextID() int64 {
	id := time.Now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}

func (s *Store) vocabulary(vocab models.Vocabulary) (*[]string, error) {
	switch vocab {
	case models.VocabularyTriggers:
		return &s.triggers, nil
	case models.VocabularyMitigations:
		return &s.mitigations, nil
	default:
		return nil, &ValidationError{Field: "vocabulary", Reason: "unknown vocabulary"}
	}
}

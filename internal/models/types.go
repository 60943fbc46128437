package models

// Package models defines the core data types used throughout attacklog.
//
// These types are shared by the event store, the aggregation engine, the
// persistence layer, and the REST API. The JSON shapes match the persisted
// record layout: timestamps are Unix milliseconds and an attack's endTime
// is serialized as null while the attack is active.

import (
	"encoding/json"
	"time"
)

// Severity bounds for both initial and post-mitigation severity.
const (
	SeverityMin = 1
	SeverityMax = 10
)

// Vocabulary identifies one of the two user-managed tag vocabularies.
type Vocabulary string

const (
	VocabularyTriggers    Vocabulary = "triggers"
	VocabularyMitigations Vocabulary = "mitigations"
)

// Valid reports whether v names a known vocabulary.
func (v Vocabulary) Valid() bool {
	return v == VocabularyTriggers || v == VocabularyMitigations
}

// MitigationAttempt is one attempt to mitigate an active attack.
// Immutable once recorded; owned exclusively by the attack it belongs to.
type MitigationAttempt struct {
	Timestamp     time.Time
	Tags          []string
	SeverityAfter int
}

// Attack represents one episode, either in progress (EndTime nil) or ended.
type Attack struct {
	ID                 int64
	StartTime          time.Time
	EndTime            *time.Time
	InitialSeverity    int
	CurrentSeverity    int
	LocationTriggers   []string
	MitigationAttempts []MitigationAttempt
}

// Active reports whether the attack is still in progress.
func (a *Attack) Active() bool { return a.EndTime == nil }

// Clone returns a deep copy so callers cannot mutate store-owned state.
func (a Attack) Clone() Attack {
	c := a
	if a.EndTime != nil {
		end := *a.EndTime
		c.EndTime = &end
	}
	c.LocationTriggers = append([]string(nil), a.LocationTriggers...)
	c.MitigationAttempts = make([]MitigationAttempt, len(a.MitigationAttempts))
	for i, m := range a.MitigationAttempts {
		m.Tags = append([]string(nil), m.Tags...)
		c.MitigationAttempts[i] = m
	}
	return c
}

// Snapshot is the serializable whole-state view: all attacks (historical
// first, active last if present) plus both vocabularies. It is exactly the
// shape the store's Load consumes and the persistence layer writes.
type Snapshot struct {
	Attacks          []Attack `json:"attacks"`
	LocationTriggers []string `json:"locationTriggers"`
	Mitigations      []string `json:"mitigations"`
}

// ─── JSON shapes ──────────────────────────────────────────────────────────────

type mitigationAttemptJSON struct {
	Timestamp     int64    `json:"timestamp"`
	Tags          []string `json:"tags"`
	SeverityAfter int      `json:"severityAfter"`
}

// MarshalJSON encodes the timestamp as Unix milliseconds.
func (m MitigationAttempt) MarshalJSON() ([]byte, error) {
	return json.Marshal(mitigationAttemptJSON{
		Timestamp:     m.Timestamp.UnixMilli(),
		Tags:          m.Tags,
		SeverityAfter: m.SeverityAfter,
	})
}

// UnmarshalJSON decodes a Unix-millisecond timestamp.
func (m *MitigationAttempt) UnmarshalJSON(data []byte) error {
	var raw mitigationAttemptJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.Timestamp = time.UnixMilli(raw.Timestamp)
	m.Tags = raw.Tags
	m.SeverityAfter = raw.SeverityAfter
	return nil
}

type attackJSON struct {
	ID                 int64               `json:"id"`
	StartTime          int64               `json:"startTime"`
	EndTime            *int64              `json:"endTime"`
	InitialSeverity    int                 `json:"initialSeverity"`
	CurrentSeverity    int                 `json:"currentSeverity"`
	LocationTriggers   []string            `json:"locationTriggers"`
	MitigationAttempts []MitigationAttempt `json:"mitigationAttempts"`
}

// MarshalJSON always emits endTime, null while the attack is active.
func (a Attack) MarshalJSON() ([]byte, error) {
	raw := attackJSON{
		ID:                 a.ID,
		StartTime:          a.StartTime.UnixMilli(),
		InitialSeverity:    a.InitialSeverity,
		CurrentSeverity:    a.CurrentSeverity,
		LocationTriggers:   a.LocationTriggers,
		MitigationAttempts: a.MitigationAttempts,
	}
	if raw.MitigationAttempts == nil {
		raw.MitigationAttempts = []MitigationAttempt{}
	}
	if a.EndTime != nil {
		ms := a.EndTime.UnixMilli()
		raw.EndTime = &ms
	}
	return json.Marshal(raw)
}

// UnmarshalJSON decodes Unix-millisecond timestamps; a null or missing
// endTime marks the attack as active.
func (a *Attack) UnmarshalJSON(data []byte) error {
	var raw attackJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	a.ID = raw.ID
	a.StartTime = time.UnixMilli(raw.StartTime)
	a.EndTime = nil
	if raw.EndTime != nil {
		end := time.UnixMilli(*raw.EndTime)
		a.EndTime = &end
	}
	a.InitialSeverity = raw.InitialSeverity
	a.CurrentSeverity = raw.CurrentSeverity
	a.LocationTriggers = raw.LocationTriggers
	a.MitigationAttempts = raw.MitigationAttempts
	return nil
}

// ─── Starter vocabularies ─────────────────────────────────────────────────────

// DefaultLocationTriggers returns the built-in trigger vocabulary used when
// no trigger record has ever been persisted.
func DefaultLocationTriggers() []string {
	return []string{"alone", "phone call", "driving", "work", "social gathering"}
}

// DefaultMitigations returns the built-in mitigation vocabulary used when
// no mitigation record has ever been persisted.
func DefaultMitigations() []string {
	return []string{"drinking tea", "going for a walk", "playing a game", "deep breathing", "talking to a friend"}
}

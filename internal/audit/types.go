package audit

import "time"

// EventType represents the type of audit event
type EventType string

const (
	// Attack lifecycle events
	EventAttackStarted   EventType = "attack.started"
	EventAttackMitigated EventType = "attack.mitigation_recorded"
	EventAttackEnded     EventType = "attack.ended"

	// Vocabulary events
	EventVocabularyTagAdded   EventType = "vocabulary.tag_added"
	EventVocabularyTagRemoved EventType = "vocabulary.tag_removed"

	// Persistence events
	EventSnapshotSaveFailed EventType = "persistence.snapshot_save_failed"
	EventDataInconsistency  EventType = "persistence.data_inconsistency"

	// System events
	EventServerStarted  EventType = "system.server_started"
	EventServerShutdown EventType = "system.server_shutdown"
)

// Result represents the outcome of an audited action
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
)

// Event represents a single audit event
type Event struct {
	// Core fields
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id"`
	EventType     EventType `json:"event_type"`
	Result        Result    `json:"result"`

	// Subject information
	AttackID   int64  `json:"attack_id,omitempty"`
	Vocabulary string `json:"vocabulary,omitempty"`
	Tag        string `json:"tag,omitempty"`
	Severity   int    `json:"severity,omitempty"`

	// Details
	Description string                 `json:"description,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`

	// Error information
	Error string `json:"error,omitempty"`
}

// NewEvent creates a new audit event with default values
func NewEvent(eventType EventType) *Event {
	return &Event{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Result:    ResultSuccess,
		Metadata:  make(map[string]interface{}),
	}
}

// WithCorrelationID sets the correlation ID for event tracking
func (e *Event) WithCorrelationID(id string) *Event {
	e.CorrelationID = id
	return e
}

// WithAttack sets the attack the event refers to
func (e *Event) WithAttack(id int64) *Event {
	e.AttackID = id
	return e
}

// WithVocabulary sets the vocabulary and tag being changed
func (e *Event) WithVocabulary(vocabulary, tag string) *Event {
	e.Vocabulary = vocabulary
	e.Tag = tag
	return e
}

// WithSeverity sets the severity involved in the event
func (e *Event) WithSeverity(severity int) *Event {
	e.Severity = severity
	return e
}

// WithDescription sets a human-readable description
func (e *Event) WithDescription(desc string) *Event {
	e.Description = desc
	return e
}

// WithResult sets the result of the event
func (e *Event) WithResult(result Result) *Event {
	e.Result = result
	return e
}

// WithMetadata adds a metadata key/value pair
func (e *Event) WithMetadata(key string, value interface{}) *Event {
	e.Metadata[key] = value
	return e
}

// WithError attaches error information and marks the event failed
func (e *Event) WithError(err error) *Event {
	if err != nil {
		e.Error = err.Error()
		e.Result = ResultFailure
	}
	return e
}

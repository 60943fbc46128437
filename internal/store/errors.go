package store

import (
	"errors"
	"fmt"

	"github.com/attacklog/attacklog/internal/models"
)

// ErrNoActiveAttack is returned when a mitigation or end is requested while
// no attack is in progress.
var ErrNoActiveAttack = errors.New("no active attack")

// ValidationError reports rejected input: out-of-range severity, an empty
// tag selection, a missing timestamp, an end before the start, or starting
// while another attack is active. The store state is untouched.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// DuplicateTagError reports an attempt to add a tag already present in its
// vocabulary (case-sensitive comparison).
type DuplicateTagError struct {
	Vocabulary models.Vocabulary
	Tag        string
}

func (e *DuplicateTagError) Error() string {
	return fmt.Sprintf("tag %q already exists in %s vocabulary", e.Tag, e.Vocabulary)
}

// DataInconsistencyError reports that more than one persisted attack had no
// end time on load. The store recovers by keeping the first as active and
// demoting the rest to historical; the condition is surfaced so the caller
// can report it, never silently swallowed.
type DataInconsistencyError struct {
	ExtraActive int
}

func (e *DataInconsistencyError) Error() string {
	return fmt.Sprintf("data inconsistency: %d extra attack(s) without end time demoted to historical", e.ExtraActive)
}

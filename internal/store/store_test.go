package store

import (
	"errors"
	"testing"
	"time"

	"github.com/attacklog/attacklog/internal/models"
)

func mustStart(t *testing.T, s *Store, start time.Time, severity int, triggers []string) models.Attack {
	t.Helper()
	attack, err := s.StartAttack(start, severity, triggers)
	if err != nil {
		t.Fatalf("StartAttack failed: %v", err)
	}
	return attack
}

func TestStartAttack(t *testing.T) {
	s := New()
	start := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)

	attack := mustStart(t, s, start, 5, []string{"work"})

	if attack.ID == 0 {
		t.Error("expected a non-zero attack ID")
	}
	if !attack.Active() {
		t.Error("expected started attack to be active")
	}
	if attack.CurrentSeverity != 5 {
		t.Errorf("expected current severity 5, got %d", attack.CurrentSeverity)
	}
	if attack.MitigationAttempts == nil || len(attack.MitigationAttempts) != 0 {
		t.Error("expected an empty (non-nil) mitigation attempt list")
	}

	active := s.ActiveAttack()
	if active == nil || active.ID != attack.ID {
		t.Fatal("expected the started attack to be the active attack")
	}
}

func TestStartAttackValidation(t *testing.T) {
	start := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		start    time.Time
		severity int
		triggers []string
	}{
		{"zero timestamp", time.Time{}, 5, []string{"work"}},
		{"severity too low", start, 0, []string{"work"}},
		{"severity too high", start, 11, []string{"work"}},
		{"no triggers", start, 5, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			_, err := s.StartAttack(tt.start, tt.severity, tt.triggers)
			var valErr *ValidationError
			if !errors.As(err, &valErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if s.ActiveAttack() != nil {
				t.Error("rejected start must not install an active attack")
			}
		})
	}
}

func TestStartAttackWhileActive(t *testing.T) {
	s := New()
	start := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)
	first := mustStart(t, s, start, 5, []string{"work"})

	_, err := s.StartAttack(start.Add(time.Hour), 3, []string{"alone"})
	var valErr *ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError for second start, got %v", err)
	}

	active := s.ActiveAttack()
	if active == nil || active.ID != first.ID {
		t.Error("active attack must be unchanged after rejected start")
	}
}

func TestAttackLifecycle(t *testing.T) {
	s := New()
	start := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)
	attack := mustStart(t, s, start, 5, []string{"work", "phone call"})

	attempt, err := s.RecordMitigation(start.Add(10*time.Minute), []string{"deep breathing"}, 3)
	if err != nil {
		t.Fatalf("RecordMitigation failed: %v", err)
	}
	if attempt.SeverityAfter != 3 {
		t.Errorf("expected severityAfter 3, got %d", attempt.SeverityAfter)
	}

	active := s.ActiveAttack()
	if active.CurrentSeverity != 3 {
		t.Errorf("expected current severity 3 after mitigation, got %d", active.CurrentSeverity)
	}
	if len(active.MitigationAttempts) != 1 {
		t.Fatalf("expected 1 mitigation attempt, got %d", len(active.MitigationAttempts))
	}

	end := start.Add(45 * time.Minute)
	ended, err := s.EndActiveAttack(end)
	if err != nil {
		t.Fatalf("EndActiveAttack failed: %v", err)
	}
	if ended.ID != attack.ID {
		t.Errorf("expected ended attack %d, got %d", attack.ID, ended.ID)
	}
	if ended.Active() {
		t.Error("ended attack must not be active")
	}
	if !ended.EndTime.Equal(end) {
		t.Errorf("expected end time %v, got %v", end, ended.EndTime)
	}
	if ended.CurrentSeverity != 3 {
		t.Errorf("severity must freeze at the last mitigation value, got %d", ended.CurrentSeverity)
	}

	if s.ActiveAttack() != nil {
		t.Error("active slot must be empty after ending")
	}
	hist := s.HistoricalAttacks()
	if len(hist) != 1 || hist[0].ID != attack.ID {
		t.Error("ended attack must move to the historical collection")
	}
}

func TestRecordMitigationWithoutActive(t *testing.T) {
	s := New()
	_, err := s.RecordMitigation(time.Now(), []string{"deep breathing"}, 3)
	if !errors.Is(err, ErrNoActiveAttack) {
		t.Fatalf("expected ErrNoActiveAttack, got %v", err)
	}
}

func TestRecordMitigationValidation(t *testing.T) {
	now := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		ts       time.Time
		tags     []string
		severity int
	}{
		{"zero timestamp", time.Time{}, []string{"deep breathing"}, 3},
		{"no tags", now, nil, 3},
		{"severity too low", now, []string{"deep breathing"}, 0},
		{"severity too high", now, []string{"deep breathing"}, 11},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			mustStart(t, s, now.Add(-time.Hour), 5, []string{"work"})

			_, err := s.RecordMitigation(tt.ts, tt.tags, tt.severity)
			var valErr *ValidationError
			if !errors.As(err, &valErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if n := len(s.ActiveAttack().MitigationAttempts); n != 0 {
				t.Errorf("rejected mitigation must not be recorded, got %d attempts", n)
			}
		})
	}
}

func TestEndActiveAttackValidation(t *testing.T) {
	s := New()
	start := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)
	mustStart(t, s, start, 5, []string{"work"})

	if _, err := s.EndActiveAttack(time.Time{}); err == nil {
		t.Error("expected error for zero end time")
	}
	_, err := s.EndActiveAttack(start.Add(-time.Minute))
	var valErr *ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError for end before start, got %v", err)
	}
	if s.ActiveAttack() == nil {
		t.Error("attack must stay active after rejected end")
	}

	if _, err := s.EndActiveAttack(start); err != nil {
		t.Errorf("ending exactly at the start time must succeed: %v", err)
	}
	if _, err := s.EndActiveAttack(start.Add(time.Hour)); !errors.Is(err, ErrNoActiveAttack) {
		t.Errorf("expected ErrNoActiveAttack on second end, got %v", err)
	}
}

func TestAttackIDsMonotonic(t *testing.T) {
	s := New()
	start := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)

	var lastID int64
	for i := 0; i < 5; i++ {
		attack := mustStart(t, s, start.Add(time.Duration(i)*time.Hour), 5, []string{"work"})
		if attack.ID <= lastID {
			t.Fatalf("attack ID %d not greater than previous %d", attack.ID, lastID)
		}
		lastID = attack.ID
		if _, err := s.EndActiveAttack(start.Add(time.Duration(i)*time.Hour + time.Minute)); err != nil {
			t.Fatalf("EndActiveAttack failed: %v", err)
		}
	}
}

func TestVocabularyAddRemove(t *testing.T) {
	s := New()

	if err := s.AddVocabularyTag(models.VocabularyTriggers, "crowded train"); err != nil {
		t.Fatalf("AddVocabularyTag failed: %v", err)
	}
	triggers := s.Triggers()
	if triggers[len(triggers)-1] != "crowded train" {
		t.Error("new tag must append at the end of the vocabulary")
	}

	// Duplicate add leaves the vocabulary unchanged.
	before := s.Triggers()
	err := s.AddVocabularyTag(models.VocabularyTriggers, "crowded train")
	var dupErr *DuplicateTagError
	if !errors.As(err, &dupErr) {
		t.Fatalf("expected DuplicateTagError, got %v", err)
	}
	after := s.Triggers()
	if len(after) != len(before) {
		t.Error("duplicate add must not change the vocabulary")
	}

	if err := s.RemoveVocabularyTag(models.VocabularyTriggers, "crowded train"); err != nil {
		t.Fatalf("RemoveVocabularyTag failed: %v", err)
	}
	// Removing an absent tag is a no-op.
	if err := s.RemoveVocabularyTag(models.VocabularyTriggers, "crowded train"); err != nil {
		t.Errorf("removing an absent tag must succeed: %v", err)
	}

	if err := s.AddVocabularyTag(models.VocabularyTriggers, ""); err == nil {
		t.Error("expected error for empty tag")
	}
	if err := s.AddVocabularyTag("bogus", "x"); err == nil {
		t.Error("expected error for unknown vocabulary")
	}
}

func TestRemoveTagKeepsHistoricalReferences(t *testing.T) {
	s := New()
	start := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)
	mustStart(t, s, start, 5, []string{"work"})
	if _, err := s.EndActiveAttack(start.Add(time.Hour)); err != nil {
		t.Fatalf("EndActiveAttack failed: %v", err)
	}

	if err := s.RemoveVocabularyTag(models.VocabularyTriggers, "work"); err != nil {
		t.Fatalf("RemoveVocabularyTag failed: %v", err)
	}
	hist := s.HistoricalAttacks()
	if len(hist[0].LocationTriggers) != 1 || hist[0].LocationTriggers[0] != "work" {
		t.Error("removing a vocabulary tag must not touch recorded attacks")
	}
}

func TestDefaultVocabularies(t *testing.T) {
	s := New()
	if got, want := len(s.Triggers()), 5; got != want {
		t.Errorf("expected %d starter triggers, got %d", want, got)
	}
	if got, want := len(s.Mitigations()), 5; got != want {
		t.Errorf("expected %d starter mitigations, got %d", want, got)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := New()
	start := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)
	mustStart(t, s, start, 7, []string{"driving"})
	if _, err := s.RecordMitigation(start.Add(5*time.Minute), []string{"going for a walk"}, 4); err != nil {
		t.Fatalf("RecordMitigation failed: %v", err)
	}
	if _, err := s.EndActiveAttack(start.Add(30 * time.Minute)); err != nil {
		t.Fatalf("EndActiveAttack failed: %v", err)
	}
	active := mustStart(t, s, start.Add(2*time.Hour), 3, []string{"alone"})
	if err := s.AddVocabularyTag(models.VocabularyMitigations, "cold shower"); err != nil {
		t.Fatalf("AddVocabularyTag failed: %v", err)
	}

	snap := s.Snapshot()
	if len(snap.Attacks) != 2 {
		t.Fatalf("expected 2 attacks in snapshot, got %d", len(snap.Attacks))
	}
	if snap.Attacks[len(snap.Attacks)-1].ID != active.ID {
		t.Error("active attack must come last in the snapshot")
	}

	restored := New()
	if err := restored.Load(snap); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	got := restored.ActiveAttack()
	if got == nil || got.ID != active.ID {
		t.Fatal("round trip must restore the active attack")
	}
	if len(restored.HistoricalAttacks()) != 1 {
		t.Error("round trip must restore historical attacks")
	}
	mits := restored.Mitigations()
	if mits[len(mits)-1] != "cold shower" {
		t.Error("round trip must restore vocabulary additions")
	}
}

func TestLoadDemotesExtraActive(t *testing.T) {
	start := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)
	snap := models.Snapshot{
		Attacks: []models.Attack{
			{ID: 1, StartTime: start, InitialSeverity: 5, CurrentSeverity: 5, LocationTriggers: []string{"work"}},
			{ID: 2, StartTime: start.Add(time.Hour), InitialSeverity: 4, CurrentSeverity: 4, LocationTriggers: []string{"alone"}},
		},
		LocationTriggers: []string{"work", "alone"},
		Mitigations:      []string{},
	}

	s := New()
	err := s.Load(snap)
	var incErr *DataInconsistencyError
	if !errors.As(err, &incErr) {
		t.Fatalf("expected DataInconsistencyError, got %v", err)
	}
	if incErr.ExtraActive != 1 {
		t.Errorf("expected 1 demoted attack, got %d", incErr.ExtraActive)
	}

	// First active record wins; the store remains fully usable.
	active := s.ActiveAttack()
	if active == nil || active.ID != 1 {
		t.Fatal("first active record must win")
	}
	hist := s.HistoricalAttacks()
	if len(hist) != 1 || hist[0].ID != 2 {
		t.Fatal("extra active record must be demoted to historical")
	}
	if _, err := s.RecordMitigation(start.Add(2*time.Hour), []string{"deep breathing"}, 2); err != nil {
		t.Errorf("store must stay usable after inconsistency: %v", err)
	}
}

func TestLoadNilVersusEmptyVocabulary(t *testing.T) {
	s := New()
	if err := s.Load(models.Snapshot{LocationTriggers: nil, Mitigations: []string{}}); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(s.Triggers()) != 5 {
		t.Error("nil vocabulary must fall back to the starter set")
	}
	if len(s.Mitigations()) != 0 {
		t.Error("explicitly empty vocabulary must stay empty")
	}
}

func TestAccessorsReturnCopies(t *testing.T) {
	s := New()
	start := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)
	mustStart(t, s, start, 5, []string{"work"})

	active := s.ActiveAttack()
	active.LocationTriggers[0] = "mutated"
	active.CurrentSeverity = 9

	fresh := s.ActiveAttack()
	if fresh.LocationTriggers[0] != "work" || fresh.CurrentSeverity != 5 {
		t.Error("mutating a returned attack must not affect store state")
	}

	triggers := s.Triggers()
	triggers[0] = "mutated"
	if s.Triggers()[0] == "mutated" {
		t.Error("mutating a returned vocabulary must not affect store state")
	}
}

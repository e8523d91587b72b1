package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"eventcast/internal/errorutil"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return s
}

func validEvent() Event {
	return Event{
		Name:             "Company picnic",
		Date:             "2026-09-20",
		Location:         "Central Park",
		Weather:          "sunny",
		TemperatureRange: [2]float64{18, 26},
		Unit:             "C",
	}
}

func TestCreateAndGetEvent(t *testing.T) {
	s := newTestStore(t)

	created, err := s.CreateEvent(validEvent())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.ID == "" {
		t.Fatal("created event must have an ID")
	}
	if created.Favorability != nil {
		t.Error("new events start without a favorability rating")
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("timestamps must be set")
	}

	got, err := s.GetEvent(created.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Name != "Company picnic" || got.Location != "Central Park" {
		t.Errorf("unexpected event: %+v", got)
	}
}

func TestListEventsSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	if _, err := s.CreateEvent(validEvent()); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	reopened, err := New(dir)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	events, err := reopened.ListEvents()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event after reopen, got %d", len(events))
	}
}

func TestUpdateEventClearsFavorability(t *testing.T) {
	s := newTestStore(t)

	created, err := s.CreateEvent(validEvent())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := s.SetFavorability(created.ID, FavorabilityGood); err != nil {
		t.Fatalf("set favorability failed: %v", err)
	}

	update := validEvent()
	update.Date = "2026-10-01"
	updated, err := s.UpdateEvent(created.ID, update)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}

	if updated.Date != "2026-10-01" {
		t.Errorf("date not updated, got %q", updated.Date)
	}
	if updated.Favorability != nil {
		t.Error("updating an event must clear its stale favorability")
	}
}

func TestSetFavorability(t *testing.T) {
	s := newTestStore(t)

	created, err := s.CreateEvent(validEvent())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := s.SetFavorability(created.ID, FavorabilityFair); err != nil {
		t.Fatalf("set favorability failed: %v", err)
	}

	got, err := s.GetEvent(created.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Favorability == nil || *got.Favorability != FavorabilityFair {
		t.Errorf("expected favorability %q, got %v", FavorabilityFair, got.Favorability)
	}
}

func TestDeleteEvent(t *testing.T) {
	s := newTestStore(t)

	created, err := s.CreateEvent(validEvent())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := s.DeleteEvent(created.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if _, err := s.GetEvent(created.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.DeleteEvent(created.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("double delete must report ErrNotFound, got %v", err)
	}
}

func TestCreateEventValidation(t *testing.T) {
	s := newTestStore(t)

	tests := []struct {
		name   string
		mutate func(*Event)
	}{
		{"empty name", func(e *Event) { e.Name = " " }},
		{"bad date", func(e *Event) { e.Date = "20-09-2026" }},
		{"single letter location", func(e *Event) { e.Location = "x" }},
		{"inverted temperature range", func(e *Event) { e.TemperatureRange = [2]float64{30, 10} }},
		{"bogus unit", func(e *Event) { e.Unit = "R" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := validEvent()
			tt.mutate(&event)
			_, err := s.CreateEvent(event)
			if err == nil {
				t.Fatal("expected validation error")
			}
			var vErrs *errorutil.ValidationErrors
			if !errors.As(err, &vErrs) {
				t.Errorf("expected ValidationErrors, got %T", err)
			}
		})
	}

	events, err := s.ListEvents()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("rejected events must not be stored, found %d", len(events))
	}
}

func TestSettingsDefaultsAndRoundTrip(t *testing.T) {
	s := newTestStore(t)

	settings, err := s.GetSettings()
	if err != nil {
		t.Fatalf("get settings failed: %v", err)
	}
	if settings.Theme != "light" || settings.Unit != "C" {
		t.Errorf("unexpected defaults: %+v", settings)
	}

	if err := s.SaveSettings(Settings{Theme: "dark", Unit: "F"}); err != nil {
		t.Fatalf("save settings failed: %v", err)
	}
	settings, err = s.GetSettings()
	if err != nil {
		t.Fatalf("get settings failed: %v", err)
	}
	if settings.Theme != "dark" || settings.Unit != "F" {
		t.Errorf("settings did not round-trip: %+v", settings)
	}
}

func TestSaveSettingsValidation(t *testing.T) {
	s := newTestStore(t)

	if err := s.SaveSettings(Settings{Theme: "sepia", Unit: "C"}); err == nil {
		t.Error("expected validation error for unknown theme")
	}
	if err := s.SaveSettings(Settings{Theme: "dark", Unit: "X"}); err == nil {
		t.Error("expected validation error for unknown unit")
	}
}

func TestNoTempFileLeftBehind(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	if _, err := s.CreateEvent(validEvent()); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir failed: %v", err)
	}
	for _, entry := range entries {
		if filepath.Ext(entry.Name()) == ".tmp" {
			t.Errorf("temp file %s left behind", entry.Name())
		}
	}
}

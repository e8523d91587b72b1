// Package store persists planned events and user settings as JSON files on
// disk. Writes go through a temp file and rename so a crash never leaves a
// half-written document behind.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"eventcast/internal/errorutil"
	"eventcast/internal/logger"
)

const (
	eventsFile   = "events.json"
	settingsFile = "settings.json"

	schemaVersion = 1
)

// Favorability labels assigned by the scheduled re-evaluation.
const (
	FavorabilityGood    = "Good"
	FavorabilityFair    = "Fair"
	FavorabilityPoor    = "Poor"
	FavorabilityUnknown = "Unknown"
)

// Event is a planned outdoor event with the conditions its owner hopes for.
type Event struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Date             string     `json:"date"` // YYYY-MM-DD
	Location         string     `json:"location"`
	Weather          string     `json:"weather"` // desired condition, e.g. "sunny"
	TemperatureRange [2]float64 `json:"temperatureRange"`
	Unit             string     `json:"unit"`
	Favorability     *string    `json:"favorability"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// Settings are the user's display preferences.
type Settings struct {
	Theme string `json:"theme"`
	Unit  string `json:"unit"`
}

// DefaultSettings returns the settings used before the user changes
// anything.
func DefaultSettings() Settings {
	return Settings{Theme: "light", Unit: "C"}
}

// eventsDocument is the on-disk shape of the events file.
type eventsDocument struct {
	SchemaVersion int     `json:"schemaVersion"`
	Events        []Event `json:"events"`
}

// ErrNotFound is returned when an event ID does not exist.
var ErrNotFound = fmt.Errorf("event not found")

// Store reads and writes the data directory. Safe for concurrent use.
type Store struct {
	mu  sync.Mutex
	dir string
}

// New opens a store rooted at dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// ListEvents returns all stored events, oldest first.
func (s *Store) ListEvents() ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadEvents()
	if err != nil {
		return nil, err
	}
	return doc.Events, nil
}

// GetEvent returns one event by ID.
func (s *Store) GetEvent(id string) (*Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadEvents()
	if err != nil {
		return nil, err
	}
	for i := range doc.Events {
		if doc.Events[i].ID == id {
			event := doc.Events[i]
			return &event, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// CreateEvent validates and stores a new event, assigning it an ID.
func (s *Store) CreateEvent(event Event) (*Event, error) {
	if err := validateEvent(&event); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadEvents()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	event.ID = uuid.NewString()
	event.CreatedAt = now
	event.UpdatedAt = now
	event.Favorability = nil

	doc.Events = append(doc.Events, event)
	if err := s.saveEvents(doc); err != nil {
		return nil, err
	}

	logger.Info("Created event %s (%s on %s at %s)", event.ID, event.Name, event.Date, event.Location)
	return &event, nil
}

// UpdateEvent replaces the mutable fields of an existing event.
func (s *Store) UpdateEvent(id string, update Event) (*Event, error) {
	if err := validateEvent(&update); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadEvents()
	if err != nil {
		return nil, err
	}

	for i := range doc.Events {
		if doc.Events[i].ID != id {
			continue
		}
		existing := &doc.Events[i]
		existing.Name = update.Name
		existing.Date = update.Date
		existing.Location = update.Location
		existing.Weather = update.Weather
		existing.TemperatureRange = update.TemperatureRange
		existing.Unit = update.Unit
		// A changed date or place invalidates the last evaluation.
		existing.Favorability = nil
		existing.UpdatedAt = time.Now().UTC()

		if err := s.saveEvents(doc); err != nil {
			return nil, err
		}
		event := *existing
		return &event, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// SetFavorability records the outcome of a favorability evaluation.
func (s *Store) SetFavorability(id, favorability string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadEvents()
	if err != nil {
		return err
	}
	for i := range doc.Events {
		if doc.Events[i].ID != id {
			continue
		}
		doc.Events[i].Favorability = &favorability
		doc.Events[i].UpdatedAt = time.Now().UTC()
		return s.saveEvents(doc)
	}
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

// DeleteEvent removes an event by ID.
func (s *Store) DeleteEvent(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadEvents()
	if err != nil {
		return err
	}
	for i := range doc.Events {
		if doc.Events[i].ID != id {
			continue
		}
		doc.Events = append(doc.Events[:i], doc.Events[i+1:]...)
		return s.saveEvents(doc)
	}
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

// GetSettings returns the stored settings, or the defaults when none have
// been saved yet.
func (s *Store) GetSettings() (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, settingsFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultSettings(), nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read settings: %w", err)
	}

	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return Settings{}, fmt.Errorf("failed to parse settings: %w", err)
	}
	if settings.Theme == "" {
		settings.Theme = DefaultSettings().Theme
	}
	if settings.Unit == "" {
		settings.Unit = DefaultSettings().Unit
	}
	return settings, nil
}

// SaveSettings validates and persists the settings.
func (s *Store) SaveSettings(settings Settings) error {
	errs := &errorutil.ValidationErrors{}
	if vErr := errorutil.ValidateEnum("theme", settings.Theme, []string{"light", "dark"}); vErr != nil {
		errs.Errors = append(errs.Errors, *vErr)
	}
	if vErr := errorutil.ValidateEnum("unit", settings.Unit, []string{"C", "F", "K"}); vErr != nil {
		errs.Errors = append(errs.Errors, *vErr)
	}
	if errs.HasErrors() {
		return errs
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.writeAtomic(filepath.Join(s.dir, settingsFile), settings)
}

// validateEvent checks the fields clients control.
func validateEvent(event *Event) error {
	errs := &errorutil.ValidationErrors{}

	if vErr := errorutil.ValidateRequired("name", event.Name); vErr != nil {
		errs.Errors = append(errs.Errors, *vErr)
	}
	if vErr := errorutil.ValidateLocationName("location", event.Location); vErr != nil {
		errs.Errors = append(errs.Errors, *vErr)
	}
	if _, vErr := errorutil.ValidateISODate("date", event.Date); vErr != nil {
		errs.Errors = append(errs.Errors, *vErr)
	}
	if event.TemperatureRange[0] > event.TemperatureRange[1] {
		errs.Add("temperatureRange", "range_order",
			fmt.Sprintf("lower bound %.1f exceeds upper bound %.1f", event.TemperatureRange[0], event.TemperatureRange[1]),
			event.TemperatureRange)
	}
	if event.Unit == "" {
		event.Unit = "C"
	} else if vErr := errorutil.ValidateEnum("unit", event.Unit, []string{"C", "F", "K"}); vErr != nil {
		errs.Errors = append(errs.Errors, *vErr)
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func (s *Store) loadEvents() (*eventsDocument, error) {
	path := filepath.Join(s.dir, eventsFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &eventsDocument{SchemaVersion: schemaVersion}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read events file: %w", err)
	}

	var doc eventsDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse events file: %w", err)
	}
	if doc.SchemaVersion != schemaVersion {
		return nil, fmt.Errorf("unsupported events schema version: %d", doc.SchemaVersion)
	}
	return &doc, nil
}

func (s *Store) saveEvents(doc *eventsDocument) error {
	doc.SchemaVersion = schemaVersion
	return s.writeAtomic(filepath.Join(s.dir, eventsFile), doc)
}

// writeAtomic marshals v and writes it through a temp file and rename.
func (s *Store) writeAtomic(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}

	tempFile := path + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to finalize %s: %w", filepath.Base(path), err)
	}
	return nil
}

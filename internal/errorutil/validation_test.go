package errorutil

import (
	"strings"
	"testing"
	"time"
)

func TestValidateLocationName(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		wantError bool
	}{
		{"real city", "San Francisco", false},
		{"two characters", "NY", false},
		{"trims surrounding space", "  Tokyo  ", false},
		{"empty string", "", true},
		{"whitespace only", "   ", true},
		{"single letter", "a", true},
		{"single uppercase letter", "Z", true},
		{"single digit", "7", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLocationName("location", tt.value)
			if (err != nil) != tt.wantError {
				t.Errorf("ValidateLocationName(%q) error = %v, wantError %v", tt.value, err, tt.wantError)
			}
			if err != nil && !strings.Contains(err.Message, "is not a valid place name") {
				t.Errorf("unexpected message: %s", err.Message)
			}
		})
	}
}

func TestValidateISODate(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		wantError bool
	}{
		{"valid date", "2026-09-14", false},
		{"valid with surrounding space", " 2026-09-14 ", false},
		{"wrong separator", "2026/09/14", true},
		{"missing day", "2026-09", true},
		{"not a date", "tomorrow", true},
		{"impossible date", "2026-02-30", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := ValidateISODate("date", tt.value)
			if (err != nil) != tt.wantError {
				t.Fatalf("ValidateISODate(%q) error = %v, wantError %v", tt.value, err, tt.wantError)
			}
			if err == nil {
				want := time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)
				if !parsed.Equal(want) {
					t.Errorf("parsed = %v, want %v", parsed, want)
				}
			}
		})
	}
}

func TestValidateCoordinate(t *testing.T) {
	tests := []struct {
		name       string
		value      float64
		isLatitude bool
		wantError  bool
	}{
		{"valid latitude", 51.5074, true, false},
		{"latitude at boundary", 90.0, true, false},
		{"latitude beyond boundary", 90.0001, true, true},
		{"valid longitude", -0.1278, false, false},
		{"longitude at boundary", -180.0, false, false},
		{"longitude beyond boundary", 180.5, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCoordinate("coord", tt.value, tt.isLatitude)
			if (err != nil) != tt.wantError {
				t.Errorf("ValidateCoordinate(%v, lat=%v) error = %v, wantError %v",
					tt.value, tt.isLatitude, err, tt.wantError)
			}
		})
	}
}

func TestValidateAPICredentialRedactsValue(t *testing.T) {
	err := ValidateAPICredential("api_key", "your-api-key-here")
	if err == nil {
		t.Fatal("expected placeholder to be rejected")
	}
	if err.Value != "[REDACTED]" {
		t.Errorf("Value = %v, credential must not appear in the error", err.Value)
	}
	if err.Rule != "placeholder" {
		t.Errorf("Rule = %s, want placeholder", err.Rule)
	}

	if err := ValidateAPICredential("api_key", "sk-real-credential-value"); err != nil {
		t.Errorf("real credential rejected: %v", err)
	}
}

func TestValidationErrorsAggregation(t *testing.T) {
	errs := &ValidationErrors{}
	if errs.HasErrors() {
		t.Error("empty collection reports errors")
	}

	errs.Add("name", "required", "field is required", "")
	errs.Add("date", "iso_date", "bad date", "nope")

	if !errs.HasErrors() {
		t.Error("collection with entries reports no errors")
	}
	if !strings.Contains(errs.Error(), "2 errors") {
		t.Errorf("Error() = %q, want mention of 2 errors", errs.Error())
	}
}

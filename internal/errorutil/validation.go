package errorutil

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ValidationError represents a validation error with field context.
// Validation failures are detected before any network call is made and are
// never retried.
type ValidationError struct {
	Field       string      // The field that failed validation
	Value       interface{} // The value that was being validated
	Rule        string      // The validation rule that failed
	Message     string      // Human-readable error message
	Suggestions []string    // Suggested corrections
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("validation failed for field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed for field '%s' with rule '%s'", e.Field, e.Rule)
}

// ValidationErrors represents multiple validation errors
type ValidationErrors struct {
	Errors []ValidationError
}

func (e *ValidationErrors) Error() string {
	if len(e.Errors) == 0 {
		return "validation failed"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("validation failed with %d errors: %s", len(e.Errors), e.Errors[0].Error())
}

// Add adds a validation error to the collection
func (e *ValidationErrors) Add(field, rule, message string, value interface{}, suggestions ...string) {
	e.Errors = append(e.Errors, ValidationError{
		Field:       field,
		Value:       value,
		Rule:        rule,
		Message:     message,
		Suggestions: suggestions,
	})
}

// HasErrors returns true if there are validation errors
func (e *ValidationErrors) HasErrors() bool {
	return len(e.Errors) > 0
}

// ValidateRequired checks if a field has a non-empty value
func ValidateRequired(field string, value string) *ValidationError {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{
			Field:   field,
			Value:   value,
			Rule:    "required",
			Message: "field is required and cannot be empty",
		}
	}
	return nil
}

// ValidateRange checks if a numeric value is within a specified range
func ValidateRange(field string, value float64, min, max float64) *ValidationError {
	if value < min || value > max {
		return &ValidationError{
			Field:   field,
			Value:   value,
			Rule:    "range",
			Message: fmt.Sprintf("value must be between %.2f and %.2f, got %.2f", min, max, value),
			Suggestions: []string{
				fmt.Sprintf("Try a value between %.2f and %.2f", min, max),
			},
		}
	}
	return nil
}

// ValidateEnum checks if a value is one of the allowed enum values
func ValidateEnum(field string, value string, allowedValues []string) *ValidationError {
	value = strings.TrimSpace(strings.ToLower(value))
	for _, allowed := range allowedValues {
		if strings.ToLower(allowed) == value {
			return nil
		}
	}

	return &ValidationError{
		Field:       field,
		Value:       value,
		Rule:        "enum",
		Message:     fmt.Sprintf("value must be one of: %s, got '%s'", strings.Join(allowedValues, ", "), value),
		Suggestions: allowedValues,
	}
}

// ValidateCoordinate checks if a coordinate is within valid range
func ValidateCoordinate(field string, value float64, isLatitude bool) *ValidationError {
	var min, max float64
	var coordType string

	if isLatitude {
		min, max = -90.0, 90.0
		coordType = "latitude"
	} else {
		min, max = -180.0, 180.0
		coordType = "longitude"
	}

	if value < min || value > max {
		return &ValidationError{
			Field:   field,
			Value:   value,
			Rule:    "coordinate",
			Message: fmt.Sprintf("%s must be between %.1f and %.1f, got %.6f", coordType, min, max, value),
			Suggestions: []string{
				fmt.Sprintf("Valid %s range is %.1f to %.1f", coordType, min, max),
				"Check coordinate format (decimal degrees)",
			},
		}
	}

	return nil
}

// singleLetterPattern matches a lone alphabetic character, which is never a
// resolvable place name.
var singleLetterPattern = regexp.MustCompile(`^[a-zA-Z]$`)

// ValidateLocationName checks that a free-text location name is plausible
// enough to attempt geocoding. It rejects empty strings, names shorter than
// two characters, and single alphabetic characters.
func ValidateLocationName(field string, value string) *ValidationError {
	trimmed := strings.TrimSpace(value)

	if trimmed == "" || len(trimmed) < 2 || singleLetterPattern.MatchString(trimmed) {
		return &ValidationError{
			Field:   field,
			Value:   value,
			Rule:    "location_name",
			Message: fmt.Sprintf("%q is not a valid place name. Please enter a real city, country, or location.", value),
			Suggestions: []string{
				"Use a full place name, e.g. \"San Francisco\" or \"Tokyo\"",
			},
		}
	}

	return nil
}

// ValidateISODate checks that a date string is a parseable YYYY-MM-DD
// calendar date and returns the parsed value.
func ValidateISODate(field string, value string) (time.Time, *ValidationError) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, &ValidationError{
			Field:   field,
			Value:   value,
			Rule:    "iso_date",
			Message: fmt.Sprintf("date must be a calendar date in YYYY-MM-DD form, got %q", value),
			Suggestions: []string{
				"Use ISO format, e.g. 2026-09-14",
			},
		}
	}
	return t, nil
}

// ValidateAPICredential checks that a credential is present and not a
// placeholder left over from a sample configuration file
func ValidateAPICredential(field string, value string) *ValidationError {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{
			Field:   field,
			Value:   "[REDACTED]",
			Rule:    "required",
			Message: "credential is required",
			Suggestions: []string{
				"Obtain credentials from the service provider",
				"Check configuration file for missing value",
			},
		}
	}

	placeholders := []string{
		"your-api-key-here",
		"your-key-here",
		"your-username-here",
		"your-password-here",
		"replace-with-your-key",
		"example",
	}

	lowerValue := strings.ToLower(value)
	for _, placeholder := range placeholders {
		if strings.Contains(lowerValue, placeholder) {
			return &ValidationError{
				Field:   field,
				Value:   "[REDACTED]",
				Rule:    "placeholder",
				Message: "credential appears to be a placeholder value",
				Suggestions: []string{
					"Replace placeholder with the real credential",
				},
			}
		}
	}

	return nil
}

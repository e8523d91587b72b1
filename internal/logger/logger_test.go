package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewFileLogger(t *testing.T) {
	tests := []struct {
		name      string
		config    Config
		wantError bool
	}{
		{
			name: "console-only config",
			config: Config{
				Enabled:       false,
				ConsoleOutput: true,
				Level:         "info",
			},
			wantError: false,
		},
		{
			name: "file logging config",
			config: Config{
				Enabled:         true,
				Directory:       t.TempDir(),
				FilenamePattern: "test-YYYYMMDD.log",
				Level:           "debug",
			},
			wantError: false,
		},
		{
			name: "unknown level falls back to info",
			config: Config{
				ConsoleOutput: true,
				Level:         "chatty",
			},
			wantError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := NewFileLogger(tt.config)
			if (err != nil) != tt.wantError {
				t.Fatalf("NewFileLogger error = %v, wantError %v", err, tt.wantError)
			}
			if l != nil {
				l.Close()
			}
		})
	}
}

func TestFileLoggerWritesToFile(t *testing.T) {
	dir := t.TempDir()
	l, err := NewFileLogger(Config{
		Enabled:         true,
		Directory:       dir,
		FilenamePattern: "test-YYYYMMDD.log",
		Level:           "debug",
	})
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	defer l.Close()

	l.Info("hello from the logger", "key", "value")

	path := filepath.Join(dir, generateLogFilename("test-YYYYMMDD.log"))
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "hello from the logger") {
		t.Errorf("log file does not contain the message: %s", data)
	}
	if !strings.Contains(string(data), "key=value") {
		t.Errorf("log file does not contain attributes: %s", data)
	}
}

func TestGenerateLogFilename(t *testing.T) {
	now := time.Now()
	want := fmt.Sprintf("test-%04d%02d%02d.log", now.Year(), now.Month(), now.Day())

	if got := generateLogFilename("test-YYYYMMDD.log"); got != want {
		t.Errorf("generateLogFilename = %s, want %s", got, want)
	}
	if got := generateLogFilename(""); !strings.HasPrefix(got, "eventcast-") {
		t.Errorf("default pattern = %s, want eventcast- prefix", got)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input     string
		want      Level
		wantError bool
	}{
		{"debug", DebugLevel, false},
		{"INFO", InfoLevel, false},
		{"Warn", WarnLevel, false},
		{"error", ErrorLevel, false},
		{"verbose", InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if (err != nil) != tt.wantError {
				t.Fatalf("ParseLevel(%q) error = %v, wantError %v", tt.input, err, tt.wantError)
			}
			if err == nil && got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected slog.Level
	}{
		{"debug level", "debug", slog.LevelDebug},
		{"info level", "info", slog.LevelInfo},
		{"warn level", "warn", slog.LevelWarn},
		{"warning level", "warning", slog.LevelWarn},
		{"error level", "error", slog.LevelError},
		{"uppercase DEBUG", "DEBUG", slog.LevelDebug},
		{"mixed case Info", "Info", slog.LevelInfo},
		{"invalid level", "invalid", slog.LevelInfo}, // defaults to info
		{"empty string", "", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseLevel(tt.input)
			if result != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != slog.LevelInfo {
		t.Errorf("Default level = %v, want %v", cfg.Level, slog.LevelInfo)
	}
	if cfg.Format != FormatText {
		t.Errorf("Default Format = %q, want %q", cfg.Format, FormatText)
	}
	if cfg.FilePath != "" {
		t.Errorf("Default FilePath = %q, want empty", cfg.FilePath)
	}
	if cfg.MaxSize != 100 {
		t.Errorf("Default MaxSize = %d, want 100", cfg.MaxSize)
	}
	if cfg.MaxBackups != 5 {
		t.Errorf("Default MaxBackups = %d, want 5", cfg.MaxBackups)
	}
	if !cfg.Console {
		t.Errorf("Default Console = %v, want true", cfg.Console)
	}
}

func TestNewLogger(t *testing.T) {
	t.Run("text to console", func(t *testing.T) {
		var buf bytes.Buffer
		logger, closer, err := NewLogger(Config{Level: slog.LevelInfo, Format: FormatText, Console: true, Output: &buf})
		if err != nil {
			t.Fatalf("NewLogger failed: %v", err)
		}
		defer closer.Close()

		logger.Info("page fetched", "url", "https://ics.uci.edu/")
		logger.Debug("hidden")

		out := buf.String()
		if !strings.Contains(out, "msg=\"page fetched\"") || !strings.Contains(out, "url=https://ics.uci.edu/") {
			t.Errorf("Unexpected text output: %q", out)
		}
		if strings.Contains(out, "hidden") {
			t.Error("Debug record should be filtered at info level")
		}
	})

	t.Run("json to console", func(t *testing.T) {
		var buf bytes.Buffer
		logger, closer, err := NewLogger(Config{Level: slog.LevelDebug, Format: FormatJSON, Console: true, Output: &buf})
		if err != nil {
			t.Fatalf("NewLogger failed: %v", err)
		}
		defer closer.Close()

		logger.Debug("claimed", "id", 7)

		var record map[string]any
		if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
			t.Fatalf("Output is not JSON: %v (%q)", err, buf.String())
		}
		if record["msg"] != "claimed" || record["id"] != float64(7) {
			t.Errorf("Unexpected record: %v", record)
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		if _, _, err := NewLogger(Config{Format: "xml", Console: true}); err == nil {
			t.Error("Expected error for unknown format")
		}
	})

	t.Run("file output", func(t *testing.T) {
		logFile := filepath.Join(t.TempDir(), "logs", "crawl.log")

		logger, closer, err := NewLogger(Config{
			Level:      slog.LevelDebug,
			FilePath:   logFile,
			MaxSize:    10,
			MaxBackups: 3,
			Console:    false,
		})
		if err != nil {
			t.Fatalf("NewLogger failed: %v", err)
		}

		logger.Info("test message")
		if err := closer.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}

		content, err := os.ReadFile(logFile)
		if err != nil {
			t.Fatalf("Log file was not created at %s: %v", logFile, err)
		}
		if !strings.Contains(string(content), "test message") {
			t.Errorf("Log file missing message: %q", content)
		}
	})

	t.Run("both console and file", func(t *testing.T) {
		var buf bytes.Buffer
		logFile := filepath.Join(t.TempDir(), "crawl.log")

		logger, closer, err := NewLogger(Config{
			Level:      slog.LevelInfo,
			FilePath:   logFile,
			MaxSize:    10,
			MaxBackups: 3,
			Console:    true,
			Output:     &buf,
		})
		if err != nil {
			t.Fatalf("NewLogger failed: %v", err)
		}
		defer closer.Close()

		logger.Info("both")
		if !strings.Contains(buf.String(), "both") {
			t.Error("Console output missing message")
		}
	})

	t.Run("no outputs configured defaults to console", func(t *testing.T) {
		var buf bytes.Buffer
		logger, closer, err := NewLogger(Config{Level: slog.LevelInfo, Console: false, Output: &buf})
		if err != nil {
			t.Fatalf("NewLogger failed: %v", err)
		}
		defer closer.Close()

		logger.Info("fallback")
		if !strings.Contains(buf.String(), "fallback") {
			t.Error("Expected fallback to console output")
		}
	})
}

func TestSetDefault(t *testing.T) {
	previous := slog.Default()
	defer slog.SetDefault(previous)

	logFile := filepath.Join(t.TempDir(), "crawl.log")

	closer, err := SetDefault(Config{
		Level:      slog.LevelDebug,
		FilePath:   logFile,
		MaxSize:    10,
		MaxBackups: 3,
		Console:    false,
	})
	if err != nil {
		t.Fatalf("SetDefault failed: %v", err)
	}
	defer closer.Close()

	slog.Info("test message from default logger")

	if _, err := os.Stat(logFile); os.IsNotExist(err) {
		t.Errorf("Log file was not created at %s", logFile)
	}
}

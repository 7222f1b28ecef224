package logging_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"beatwatch/internal/config"
	"beatwatch/internal/logging"
)

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(t.TempDir(), "logs")
	cfg.Logging.Format = "json"

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig failed: %v", err)
	}
	logger.Info("hello", logging.String(logging.FieldKind, "submission"))

	data, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "beatwatch.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"kind":"submission"`) {
		t.Fatalf("expected structured kind field in log output, got %s", data)
	}
}

func TestNewComponentLoggerToleratesNilBase(t *testing.T) {
	logger := logging.NewComponentLogger(nil, "watcher")
	logger.Info("should not panic")
}

func TestArgsAttachSessionField(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(t.TempDir(), "logs")
	cfg.Logging.Format = "json"

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig failed: %v", err)
	}
	logger = logger.With(logging.String(logging.FieldSessionID, "run-1234"))
	logger.Info("started", logging.Args(
		logging.String(logging.FieldEventType, "startup"),
	)...)

	data, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "beatwatch.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"session_id":"run-1234"`) {
		t.Fatalf("expected session id in log output, got %s", data)
	}
	if !strings.Contains(string(data), `"event_type":"startup"`) {
		t.Fatalf("expected event type from Args in log output, got %s", data)
	}
}

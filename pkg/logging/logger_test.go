package logging

import (
	"testing"

	"github.com/clout9/backend/pkg/config"
)

func TestInitLogger(t *testing.T) {
	cfg := &config.LoggingConfig{
		Level:  "INFO",
		Format: "json",
	}

	if err := InitLogger(cfg); err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}

	if Logger == nil {
		t.Fatal("Expected Logger to be set")
	}
}

func TestInitLoggerTextFormat(t *testing.T) {
	cfg := &config.LoggingConfig{
		Level:  "DEBUG",
		Format: "text",
	}

	if err := InitLogger(cfg); err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}
}

func TestInitLoggerBadLevelFallsBack(t *testing.T) {
	cfg := &config.LoggingConfig{
		Level:  "NOT_A_LEVEL",
		Format: "json",
	}

	if err := InitLogger(cfg); err != nil {
		t.Fatalf("Expected fallback to info level, got error: %v", err)
	}
}

func TestGetLoggerFallback(t *testing.T) {
	oldLogger := Logger
	defer func() { Logger = oldLogger }()

	Logger = nil
	if GetLogger() == nil {
		t.Fatal("Expected fallback logger")
	}
}

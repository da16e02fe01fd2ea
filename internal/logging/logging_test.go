package logging

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
)

func TestSetup_Level(t *testing.T) {
	if err := Setup("warn", ""); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if got := log.GetLevel(); got != log.WarnLevel {
		t.Errorf("level = %v, want warn", got)
	}

	if err := Setup("loud", ""); err == nil {
		t.Error("Setup() error = nil for unknown level")
	}
}

func TestSetup_File(t *testing.T) {
	file := filepath.Join(t.TempDir(), "coursedl.log")
	if err := Setup("info", file); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	defer Setup("info", "")

	log.WithField("course", "go-fundamentals").Info("course done")

	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"course":"go-fundamentals"`) {
		t.Errorf("log file = %s, want JSON entry with course field", data)
	}
}

func TestPrettyCaller(t *testing.T) {
	fn, file := prettyCaller(&runtime.Frame{
		Function: "github.com/cwygoda/coursedl/internal/orchestrator.(*Orchestrator).Run",
		File:     "/src/internal/orchestrator/orchestrator.go",
		Line:     42,
	})
	if fn != "Run()" || file != "orchestrator.go:42" {
		t.Errorf("prettyCaller() = %q, %q", fn, file)
	}
}

package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestInit_WritesConsoleAndFile(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer

	path, err := Init(Options{Verbose: true, Dir: dir, Console: &console})
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if path != filepath.Join(dir, FileName) {
		t.Errorf("expected log file in %s, got %s", dir, path)
	}
	if zerolog.GlobalLevel() != zerolog.DebugLevel {
		t.Errorf("expected debug level, got %s", zerolog.GlobalLevel())
	}

	log.Debug().Str("entity", "WF-1").Msg("fit selected")

	if !strings.Contains(console.String(), "fit selected") {
		t.Errorf("console output missing message: %q", console.String())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), `"entity":"WF-1"`) {
		t.Errorf("log file is not structured JSON: %q", data)
	}
}

func TestInit_LogsFolderFromEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LOGS_FOLDER", dir)

	path, err := Init(Options{Console: &bytes.Buffer{}})
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Errorf("expected LOGS_FOLDER %s, got %s", dir, filepath.Dir(path))
	}
	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Errorf("expected info level, got %s", zerolog.GlobalLevel())
	}
}

func TestInit_UnwritableDirectory(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Init(Options{Dir: filepath.Join(blocker, "logs"), Console: &bytes.Buffer{}}); err == nil {
		t.Error("expected an error for a log directory below a regular file")
	}
}

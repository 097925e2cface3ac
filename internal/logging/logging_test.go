package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestLevelForVerbosity(t *testing.T) {
	tests := []struct {
		v    int
		want zerolog.Level
	}{
		{-1, zerolog.WarnLevel},
		{0, zerolog.WarnLevel},
		{1, zerolog.InfoLevel},
		{2, zerolog.DebugLevel},
		{3, zerolog.DebugLevel},
		{7, zerolog.DebugLevel},
	}
	for _, tt := range tests {
		if got := LevelForVerbosity(tt.v); got != tt.want {
			t.Errorf("verbosity %d: got %v want %v", tt.v, got, tt.want)
		}
	}

	if LogReads(2) || !LogReads(3) {
		t.Error("LogReads should switch on at -vvv")
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, 1, FormatJSON)
	if err != nil {
		t.Fatal(err)
	}

	log.Debug().Msg("hidden")
	log.Info().Str("phase", "connect").Msg("shown")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines: %q", len(lines), buf.String())
	}
	var ev map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &ev); err != nil {
		t.Fatal(err)
	}
	if ev["phase"] != "connect" || ev["message"] != "shown" || ev["level"] != "info" {
		t.Fatalf("unexpected event %v", ev)
	}
	if _, ok := ev["time"]; !ok {
		t.Fatalf("missing timestamp in %v", ev)
	}
}

func TestNewLevelsAreIndependent(t *testing.T) {
	var quiet, loud bytes.Buffer
	q, _ := New(&quiet, 0, FormatJSON)
	l, _ := New(&loud, 2, FormatJSON)

	q.Info().Msg("x")
	l.Debug().Msg("x")

	if quiet.Len() != 0 {
		t.Fatalf("quiet logger wrote %q", quiet.String())
	}
	if loud.Len() == 0 {
		t.Fatal("loud logger wrote nothing")
	}
}

func TestNewConsole(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, 0, FormatConsole)
	if err != nil {
		t.Fatal(err)
	}
	log.Warn().Str("outcome", "refused").Msg("session failed")
	if !strings.Contains(buf.String(), "session failed") || !strings.Contains(buf.String(), "outcome=refused") {
		t.Fatalf("unexpected console output %q", buf.String())
	}
}

func TestNewUnknownFormat(t *testing.T) {
	if _, err := New(&bytes.Buffer{}, 0, "xml"); err == nil {
		t.Fatal("expected error")
	}
}

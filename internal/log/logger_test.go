package log

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestInitWriterTextAndComponent(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf, Options{Level: "debug"})
	defer Close()

	WithComponent("detect").Debug("tick", "candidates", 4)
	out := buf.String()
	if !strings.Contains(out, "component=detect") || !strings.Contains(out, "candidates=4") {
		t.Fatalf("unexpected log output: %q", out)
	}
}

func TestInitWriterFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf, Options{Level: "warn"})
	defer Close()

	L().Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info record should be filtered at warn level, got %q", buf.String())
	}
}

func TestInitWriterFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bookfold.log")
	var buf bytes.Buffer
	InitWriter(&buf, Options{Level: "info", File: path})

	L().Info("calibrated", "pixels_per_cm", 12.5)
	if err := Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"calibrated"`) {
		t.Fatalf("file log missing json record: %s", data)
	}
	if !strings.Contains(buf.String(), "calibrated") {
		t.Fatalf("console log missing record: %q", buf.String())
	}
}

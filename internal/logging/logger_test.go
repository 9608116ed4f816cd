package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"derush/internal/services"
)

func TestNewJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "info", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("pipeline started", String("asset", "clip.mov"))

	out := buf.String()
	if !strings.Contains(out, `"msg":"pipeline started"`) {
		t.Errorf("missing message in %q", out)
	}
	if !strings.Contains(out, `"asset":"clip.mov"`) {
		t.Errorf("missing attr in %q", out)
	}
	if !strings.Contains(out, `"ts":`) {
		t.Errorf("expected remapped timestamp key in %q", out)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestConsoleHandlerComponentPrefix(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "debug", Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	NewComponentLogger(logger, "beat-detector").Info("tempo locked", Float64("bpm", 120))

	line := buf.String()
	if !strings.Contains(line, "beat-detector: tempo locked") {
		t.Errorf("expected component prefix in %q", line)
	}
	if !strings.Contains(line, "bpm=120") {
		t.Errorf("expected key=value attr in %q", line)
	}
	if strings.Contains(line, "component=") {
		t.Errorf("component should be folded into the prefix, got %q", line)
	}
}

func TestConsoleHandlerQuotesValues(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("probe complete", String("container", "mov, m4a"))

	if !strings.Contains(buf.String(), `container="mov, m4a"`) {
		t.Errorf("expected quoted value in %q", buf.String())
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "warn", Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("should be dropped")
	logger.Warn("should appear")

	out := buf.String()
	if strings.Contains(out, "should be dropped") {
		t.Error("info record leaked past warn filter")
	}
	if !strings.Contains(out, "should appear") {
		t.Error("warn record missing")
	}
}

func TestWithContextAddsStageFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := services.WithStage(context.Background(), "extracting")
	ctx = services.WithAsset(ctx, "take1.mov")
	WithContext(ctx, logger).Info("windows flowing")

	out := buf.String()
	if !strings.Contains(out, "stage=extracting") {
		t.Errorf("missing stage field in %q", out)
	}
	if !strings.Contains(out, "asset=take1.mov") {
		t.Errorf("missing asset field in %q", out)
	}
}

func TestNoopLoggerDiscards(t *testing.T) {
	logger := NewNop()
	logger.Error("nothing should happen", Error(nil))
}

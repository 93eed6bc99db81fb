package logutil

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNewLoggerTrace(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, LevelTrace)

	logger.Log(t.Context(), LevelTrace, "native message", "category", "onnxruntime")

	out := buf.String()
	if !strings.Contains(out, "level=TRACE") {
		t.Errorf("erwartet level=TRACE, bekommen %q", out)
	}
	if !strings.Contains(out, "source=logutil_test.go:") {
		t.Errorf("erwartet kurzen Quelldateinamen, bekommen %q", out)
	}
}

func TestTraceFiltered(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	slog.SetDefault(NewLogger(&buf, slog.LevelInfo))
	Trace("hidden")
	if buf.Len() != 0 {
		t.Errorf("TRACE sollte bei INFO unterdrueckt werden, bekommen %q", buf.String())
	}

	slog.SetDefault(NewLogger(&buf, LevelTrace))
	Trace("visible", "n", 1)
	if !strings.Contains(buf.String(), "msg=visible") {
		t.Errorf("TRACE fehlt: %q", buf.String())
	}
}

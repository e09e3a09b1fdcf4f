package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	level := new(slog.LevelVar)
	level.Set(slog.LevelWarn)
	l := New(&buf, level)
	l.Info("hidden")
	l.Warn("shown")
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "level=WARN msg=shown")

	buf.Reset()
	level.Set(slog.LevelDebug)
	l.With("run", "abc").Debug("now visible")
	assert.Contains(t, buf.String(), "level=DEBUG msg=\"now visible\" run=abc")
}

func TestLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, slog.LevelDebug).With("run", "abc")
	l.Error("parse failed", "file", "doe.pdf", "err", errors.New("bad xref"), "n", 3)

	line := strings.TrimSpace(buf.String())
	assert.Contains(t, line, `level=ERROR msg="parse failed" run=abc file=doe.pdf err="bad xref" n=3`)
}

func TestDiscard(t *testing.T) {
	l := Discard()
	assert.False(t, l.Enabled(context.Background(), slog.LevelError))
	l.Error("dropped")

	assert.Same(t, l, OrDiscard(l))
	assert.NotNil(t, OrDiscard(nil))
}

package log

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, slog.LevelInfo)

	l.Debug("hidden", "k", 1)
	l.Info("shown", "tokens", 4)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=shown")
	assert.Contains(t, out, "tokens=4")
	assert.NotContains(t, out, "time=")

	l.SetLevel(slog.LevelDebug)
	l.Debug("now visible")
	assert.Contains(t, buf.String(), "now visible")
}

func TestWithAddsContext(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, slog.LevelDebug).With("file", "a.b")
	l.Warn("careful")

	assert.Contains(t, buf.String(), "file=a.b")
}

func TestSetDefault(t *testing.T) {
	prev := Root()
	defer SetDefault(prev)

	var buf bytes.Buffer
	SetDefault(New(&buf, slog.LevelDebug))
	Debug("through root", "n", 2)

	assert.Contains(t, buf.String(), "through root")
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

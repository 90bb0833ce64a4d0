package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initBuffer(t *testing.T, cfg Config) *bytes.Buffer {
	t.Helper()
	prev := slog.Default()
	prevLog := Logger()
	t.Cleanup(func() {
		slog.SetDefault(prev)
		mu.Lock()
		log = prevLog
		mu.Unlock()
	})

	buf := &bytes.Buffer{}
	cfg.Output = buf
	require.NoError(t, Init(cfg))
	return buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

func TestInitInstallsSlogDefault(t *testing.T) {
	buf := initBuffer(t, Config{Level: "info", Format: "json"})

	slog.Info("page appended", "index", 2, "exhausted", false, "signature", "abc")
	slog.Debug("filtered out")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, "page appended", lines[0]["message"])
	assert.Equal(t, float64(2), lines[0]["index"])
	assert.Equal(t, false, lines[0]["exhausted"])
	assert.Equal(t, "abc", lines[0]["signature"])
	assert.NotContains(t, lines[0], "time")
}

func TestDebugLevel(t *testing.T) {
	buf := initBuffer(t, Config{Level: "debug", Timestamp: true})

	slog.Debug("fetching page", "index", 0)

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "debug", lines[0]["level"])
	assert.Contains(t, lines[0], "time")
}

func TestGroupsAndAttrs(t *testing.T) {
	buf := initBuffer(t, Config{Level: "info"})

	logger := slog.Default().With("component", "likes").WithGroup("toggle")
	logger.Warn("like toggle failed",
		"listing", "l-1",
		"error", errors.New("remote unavailable"),
		slog.Group("state", "liked", true, "count", 3))

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	line := lines[0]
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "likes", line["component"])
	assert.Equal(t, "l-1", line["toggle.listing"])
	assert.Equal(t, "remote unavailable", line["toggle.error"])
	assert.Equal(t, true, line["toggle.state.liked"])
	assert.Equal(t, float64(3), line["toggle.state.count"])
}

func TestInitRejectsUnknownValues(t *testing.T) {
	assert.ErrorContains(t, Init(Config{Level: "loud"}), `unknown log level "loud"`)
	assert.ErrorContains(t, Init(Config{Format: "xml"}), `unknown log format "xml"`)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"", zerolog.InfoLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"warning", zerolog.WarnLevel},
		{"off", zerolog.Disabled},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConsoleFormat(t *testing.T) {
	buf := initBuffer(t, Config{Level: "info", Format: "console"})
	slog.Info("seeded", "count", 3)
	assert.Contains(t, buf.String(), "seeded")
}

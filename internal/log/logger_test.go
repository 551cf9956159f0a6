package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T, level LogLevel) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prevLevel := GetLevel()
	prevOut := output.Load()
	SetOutput(&buf)
	SetLevel(level)
	t.Cleanup(func() {
		output.Store(prevOut)
		SetLevel(prevLevel)
	})
	return &buf
}

func lines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
		ok   bool
	}{
		{"debug", LevelDebug, true},
		{"INFO", LevelInfo, true},
		{"warning", LevelWarn, true},
		{" error ", LevelError, true},
		{"fatal", LevelFatal, true},
		{"verbose", LevelInfo, false},
	}
	for _, tt := range tests {
		got, ok := ParseLevel(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
	}
}

func TestLevelGating(t *testing.T) {
	buf := capture(t, LevelWarn)

	l := With("processor")
	l.Debugf("hidden %d", 1)
	l.Infof("hidden %d", 2)
	l.Warnf("switch failed: %s", "busy")
	l.Error(errors.New("boom"), "stream error")

	got := lines(t, buf)
	require.Len(t, got, 2)
	assert.Equal(t, "warn", got[0]["level"])
	assert.Equal(t, "processor", got[0]["component"])
	assert.Equal(t, "switch failed: busy", got[0]["message"])
	assert.Equal(t, "error", got[1]["level"])
	assert.Equal(t, "boom", got[1]["error"])
}

func TestPackageLevelFunctions(t *testing.T) {
	buf := capture(t, LevelDebug)

	Debugf("a=%d", 1)
	Info("plain ", "message")

	got := lines(t, buf)
	require.Len(t, got, 2)
	assert.Equal(t, "debug", got[0]["level"])
	assert.Equal(t, "plain message", got[1]["message"])
	assert.NotContains(t, got[1], "component")
}

func TestFatalfExits(t *testing.T) {
	buf := capture(t, LevelError)
	code := 0
	orig := exit
	exit = func(c int) { code = c }
	defer func() { exit = orig }()

	Fatalf("cannot continue: %s", "no config")

	assert.Equal(t, 1, code)
	assert.Contains(t, buf.String(), "cannot continue: no config")
}

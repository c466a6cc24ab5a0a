package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeTo_JSONLevels(t *testing.T) {
	var buf bytes.Buffer
	InitializeTo(&buf, "warn", "json")
	defer Initialize("info", "text")

	Info("hidden")
	CacheResult("SET", errors.New("redis down"), "key", "room:1")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "WARN", rec["level"])
	assert.Equal(t, "SET", rec["operation"])
	assert.Equal(t, "room:1", rec["key"])
	assert.Equal(t, "redis down", rec["error"])
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	InitializeTo(&buf, "debug", "text")
	defer Initialize("info", "text")

	WithComponent("relay").Info("listening")
	assert.Contains(t, buf.String(), "component=relay")
	assert.Equal(t, parseLevel("warning"), parseLevel("WARN"))
}

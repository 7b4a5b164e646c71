package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stdout) })
	return &buf
}

func lines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		out = append(out, entry)
	}
	return out
}

func TestHelpersFormatMessages(t *testing.T) {
	Init(Config{Level: "debug", ServiceName: "soulcircle"})
	buf := capture(t)

	Info("joined %s", "g1")
	Warn("slow %dms", 40)

	entries := lines(t, buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "info", entries[0]["level"])
	assert.Equal(t, "joined g1", entries[0]["message"])
	assert.Equal(t, "soulcircle", entries[0]["service"])
	assert.Equal(t, "warn", entries[1]["level"])
}

func TestLevelFiltersDebug(t *testing.T) {
	Init(Config{Level: "info"})
	buf := capture(t)

	Debug("hidden")
	Error("shown")

	entries := lines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "shown", entries[0]["message"])
}

func TestWithUserTagsEntries(t *testing.T) {
	Init(Config{Level: "info"})
	buf := capture(t)

	log := WithUser("u1")
	log.Info().Msg("login")

	entries := lines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "u1", entries[0]["user_id"])
}

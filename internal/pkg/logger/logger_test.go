package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]string {
	t.Helper()
	var out []map[string]string
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]string
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, WARN, false)

	l.Info("dropped")
	l.Warn("kept", "order_id", "1001")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "WARN", lines[0]["level"])
	assert.Equal(t, "kept", lines[0]["msg"])
	assert.Equal(t, "1001", lines[0]["order_id"])
}

func TestLogger_WithCarriesFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, DEBUG, false).With("component", "reconciler")

	l.With("order_id", "42").Debug("derived")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "reconciler", lines[0]["component"])
	assert.Equal(t, "42", lines[0]["order_id"])
}

func TestLogger_RedactsEmails(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, INFO, true)

	l.Info("blocked", "to", "john.doe@example.com", "note", "sent by ab@example.org today")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "jo***@example.com", lines[0]["to"])
	assert.Equal(t, "sent by ***@example.org today", lines[0]["note"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel("Warning"))
	assert.Equal(t, ERROR, ParseLevel(" error "))
	assert.Equal(t, INFO, ParseLevel("verbose"))
}

func TestRedactEmail(t *testing.T) {
	assert.Equal(t, "jo***@example.com", RedactEmail("john.doe@example.com"))
	assert.Equal(t, "***@example.com", RedactEmail("ab@example.com"))
	assert.Equal(t, "***@***", RedactEmail("not-an-email"))
}

func TestRedactName(t *testing.T) {
	assert.Equal(t, "J. M.", RedactName("Jane Member"))
	assert.Equal(t, "É.", RedactName("Élodie"))
	assert.Equal(t, "", RedactName("  "))
}

func TestLogger_RedactsNames(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, INFO, true)
	l.Info("member", "name", "Jane Member", "member_id", "42")

	var line map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "J. M.", line["name"])
	assert.Equal(t, "42", line["member_id"])
}

package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	persistlog "estateempire.io/internal/persistence/log"
	"estateempire.io/internal/sim/engine"
)

func TestTailLog_KeepsLastEntriesInOrder(t *testing.T) {
	dir := t.TempDir()
	dl := persistlog.NewDayLogger(dir, persistlog.WriterOptions{})
	for day := 2; day <= 6; day++ {
		require.NoError(t, dl.WriteDay(engine.DayLogEntry{Day: day, Digest: "d"}))
	}
	require.NoError(t, dl.Close())

	var buf bytes.Buffer
	require.NoError(t, tailLog[engine.DayLogEntry](&buf, dir+"/days", "days", 2))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	var got []int
	for _, l := range lines {
		var e engine.DayLogEntry
		require.NoError(t, json.Unmarshal([]byte(l), &e))
		got = append(got, e.Day)
	}
	assert.Equal(t, []int{5, 6}, got)
}

func TestTailLog_EmptyDir(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, tailLog[engine.ActionLogEntry](&buf, t.TempDir(), "actions", 10))
	assert.Empty(t, buf.String())
}

package log

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estateempire.io/internal/sim/engine"
)

func TestDayLogger_RotatesAndReadsBack(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 3, 1, 10, 59, 0, 0, time.UTC)
	var closed []string
	l := NewDayLogger(dir, WriterOptions{
		Clock:   func() time.Time { return now },
		OnClose: func(p string) { closed = append(closed, p) },
	})

	require.NoError(t, l.WriteDay(engine.DayLogEntry{Day: 2, Money: 100, Digest: "a"}))
	require.NoError(t, l.WriteDay(engine.DayLogEntry{Day: 3, Money: 90, Digest: "b"}))
	now = now.Add(2 * time.Minute)
	require.NoError(t, l.WriteDay(engine.DayLogEntry{Day: 4, Money: 80, Digest: "c", EventID: "heatwave"}))
	require.NoError(t, l.Close())

	files, err := Files(filepath.Join(dir, "days"), "days")
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(dir, "days", "days-2024-03-01-10.jsonl.zst"),
		filepath.Join(dir, "days", "days-2024-03-01-11.jsonl.zst"),
	}, files)
	assert.Equal(t, files, closed)

	var got []engine.DayLogEntry
	for _, f := range files {
		require.NoError(t, ReadJSONL(f, func(e engine.DayLogEntry) error {
			got = append(got, e)
			return nil
		}))
	}
	require.Len(t, got, 3)
	assert.Equal(t, 2, got[0].Day)
	assert.Equal(t, "b", got[1].Digest)
	assert.Equal(t, "heatwave", got[2].EventID)
}

func TestActionLogger_YearlyLayout(t *testing.T) {
	dir := t.TempDir()
	l := NewActionLogger(dir, WriterOptions{RotateLayout: "2006"})

	require.NoError(t, l.WriteAction(engine.ActionLogEntry{
		Seq:     1,
		Day:     3,
		Action:  engine.Action{Kind: engine.ActPurchase, PropertyID: "suburbs-0"},
		Outcome: engine.Outcome{Applied: true, Cost: 15000},
	}))
	require.NoError(t, l.Close())

	files, err := Files(filepath.Join(dir, "actions"), "actions")
	require.NoError(t, err)
	require.Len(t, files, 1)

	var got []engine.ActionLogEntry
	require.NoError(t, ReadJSONL(files[0], func(e engine.ActionLogEntry) error {
		got = append(got, e)
		return nil
	}))
	require.Len(t, got, 1)
	assert.Equal(t, "suburbs-0", got[0].Action.PropertyID)
	assert.True(t, got[0].Outcome.Applied)
}

package tuning

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ShippedFileMatchesDefaults(t *testing.T) {
	got, err := Load(filepath.Join("..", "..", "..", "configs", "tuning.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), got)
}

func TestLoad_PartialOverride(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(p, []byte("tick_interval_ms: 250\nstart:\n  money: 1234\n"), 0o644))

	got, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, 250, got.TickIntervalMs)
	assert.Equal(t, 1234.0, got.Start.Money)
	assert.Equal(t, 1000, got.Start.XPToNextLevel)
	assert.Equal(t, 0.03, got.Events.GlobalChance)
}

func TestLoad_RejectsBadProbability(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	require.NoError(t, os.WriteFile(p, []byte("events:\n  local_chance: 1.5\n"), 0o644))

	_, err := Load(p)
	require.Error(t, err)
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	got, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), got)
}

func TestAmenityCeiling(t *testing.T) {
	e := Defaults().Economy
	assert.Equal(t, 2, e.MaxTier())
	assert.Equal(t, 5, e.AmenityCeiling(1))
	assert.Equal(t, 10, e.AmenityCeiling(2))
	assert.Equal(t, 10, e.AmenityCeiling(7))
	assert.Equal(t, 5, e.AmenityCeiling(0))
}

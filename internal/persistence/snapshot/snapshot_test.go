package snapshot

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estateempire.io/internal/sim/catalogs"
	"estateempire.io/internal/sim/state"
)

var ceilings = []int{5, 10}

func sampleWorld() *state.World {
	return &state.World{
		Money: 42000, Reputation: 77.5, Day: 31, Level: 3, XP: 120, XPToNextLevel: 2250, TimeScale: 2,
		UnlockedDistricts: []string{"suburbs"},
		Properties: []state.Property{
			{
				ID: "suburbs-0", Name: "Plot 1", District: "suburbs", PurchaseCost: 17000, Owned: true,
				Building: state.BuildingResidential, RentMode: state.RentLongTerm, TenantName: "Lisa Chang",
				TenantStayDuration: 12, LastRentPaidDay: 29, Condition: 64, Tier: 2,
				Amenities: []state.Amenity{{ID: "f1", Name: "Bed", Level: 7, BaseCost: 500, BaseUpkeep: 2, BaseComfort: 5, UnlockLevel: 1}},
				ActiveLocalEventID: "pipe_suburbs-0",
			},
			{ID: "suburbs-1", Name: "Plot 2", District: "suburbs", PurchaseCost: 18000, Building: state.BuildingEmptyLot, RentMode: state.RentNone, Condition: 100, Tier: 1},
		},
		ActiveEvent: &state.ActiveEvent{ID: "pipe_suburbs-0", TemplateID: "pipe", Scope: catalogs.ScopeLocal, TargetPropertyID: "suburbs-0"},
		LevelUp:     &state.LevelUp{From: 2, To: 3},
	}
}

func TestWriteLoad_StripsPendingState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slot_1.save.zst")
	w := sampleWorld()
	require.NoError(t, w.Validate(ceilings))

	require.NoError(t, Write(path, FromWorld(w, Header{Slot: 1, SavedAt: 1700000000000, SaveID: "abc"})))

	got, h, err := Load(path, ceilings)
	require.NoError(t, err)
	assert.Equal(t, Header{Version: 1, Slot: 1, Day: 31, Money: 42000, Level: 3, SavedAt: 1700000000000, SaveID: "abc"}, h)

	assert.Zero(t, got.TimeScale)
	assert.Nil(t, got.ActiveEvent)
	assert.Nil(t, got.LevelUp)
	assert.Empty(t, got.Properties[0].ActiveLocalEventID)

	want := w.Clone()
	want.TimeScale = 0
	want.ActiveEvent = nil
	want.LevelUp = nil
	want.Properties[0].ActiveLocalEventID = ""
	want.Properties[1].Amenities = []state.Amenity{}
	assert.Equal(t, want, got)
	require.NoError(t, got.Validate(ceilings))

	// the source world is untouched
	assert.Equal(t, "pipe_suburbs-0", w.Properties[0].ActiveLocalEventID)

	hdr, err := ReadHeader(path)
	require.NoError(t, err)
	assert.Equal(t, h, hdr)
}

func TestLoad_CorruptFiles(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.save.zst")
	require.NoError(t, Write(good, FromWorld(sampleWorld(), Header{Slot: 1})))
	raw, err := os.ReadFile(good)
	require.NoError(t, err)

	cases := map[string][]byte{
		"truncated": raw[:len(raw)/2],
		"garbage":   []byte("definitely not zstd"),
		"empty":     {},
	}
	for name, b := range cases {
		t.Run(name, func(t *testing.T) {
			p := filepath.Join(dir, name+".save.zst")
			require.NoError(t, os.WriteFile(p, b, 0o644))
			_, _, err := Load(p, ceilings)
			assert.ErrorIs(t, err, ErrCorrupt)
		})
	}

	t.Run("missing is not corrupt", func(t *testing.T) {
		_, _, err := Load(filepath.Join(dir, "nope.save.zst"), ceilings)
		assert.ErrorIs(t, err, os.ErrNotExist)
		assert.NotErrorIs(t, err, ErrCorrupt)
	})
}

func TestLoad_InvalidWorld(t *testing.T) {
	mutate := map[string]func(s *SaveV1){
		"reputation": func(s *SaveV1) { s.Reputation = 140 },
		"condition":  func(s *SaveV1) { s.Properties[0].Condition = -3 },
		"tier":       func(s *SaveV1) { s.Properties[0].Tier = 3 },
		"ceiling":    func(s *SaveV1) { s.Properties[1].Amenities = []AmenityV1{{ID: "f1", Level: 6}} },
		"rent mode":  func(s *SaveV1) { s.Properties[0].RentMode = "TIMESHARE" },
		"dup id":     func(s *SaveV1) { s.Properties[1].ID = "suburbs-0" },
		"xp":         func(s *SaveV1) { s.XPToNextLevel = 0 },
		"header":     func(s *SaveV1) { s.Header.Day = 1 },
	}
	for name, m := range mutate {
		t.Run(name, func(t *testing.T) {
			s := FromWorld(sampleWorld(), Header{Slot: 2})
			m(&s)
			var buf bytes.Buffer
			require.NoError(t, Encode(&buf, s))
			dec, err := Decode(&buf)
			require.NoError(t, err)
			assert.ErrorIs(t, dec.Validate(ceilings), ErrCorrupt)
		})
	}
}

func TestDecode_RejectsOtherVersion(t *testing.T) {
	s := FromWorld(sampleWorld(), Header{Slot: 1})
	s.Header.Version = 9
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, s))
	_, err := Decode(&buf)
	assert.ErrorIs(t, err, ErrCorrupt)
}

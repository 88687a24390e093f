package slots

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estateempire.io/internal/persistence/snapshot"
	"estateempire.io/internal/sim/catalogs"
	"estateempire.io/internal/sim/state"
)

func world(day int) *state.World {
	return &state.World{
		Money: 1234.5, Reputation: 60, Day: day, Level: 2, XP: 10, XPToNextLevel: 1500, TimeScale: 1,
		UnlockedDistricts: []string{"suburbs"},
		Properties: []state.Property{
			{ID: "suburbs-0", Name: "Plot 1", District: "suburbs", PurchaseCost: 15000, Owned: true,
				Building: state.BuildingResidential, RentMode: state.RentHotel, Condition: 88, Tier: 1},
		},
	}
}

func newStore(t *testing.T, onSaved func(Saved)) *Store {
	t.Helper()
	return New(t.TempDir(), Options{
		Slots:    3,
		Ceilings: []int{5, 10},
		Clock:    func() time.Time { return time.UnixMilli(1700000000000) },
		OnSaved:  onSaved,
	})
}

func TestSaveLoadMeta(t *testing.T) {
	var saved []Saved
	s := newStore(t, func(sv Saved) { saved = append(saved, sv) })

	m, err := s.Save(2, world(12))
	require.NoError(t, err)
	assert.Equal(t, 2, m.Slot)
	assert.Equal(t, 12, m.Day)
	assert.Equal(t, 1234.5, m.Money)
	assert.Equal(t, 2, m.Level)
	assert.Equal(t, int64(1700000000000), m.Timestamp)
	assert.NotEmpty(t, m.SaveID)

	require.Len(t, saved, 1)
	assert.Equal(t, s.SavePath(2), saved[0].SavePath)
	assert.FileExists(t, saved[0].MetaPath)

	got, lm, err := s.Load(2)
	require.NoError(t, err)
	assert.Equal(t, m, lm)
	assert.Zero(t, got.TimeScale, "loaded games start paused")
	assert.Equal(t, 12, got.Day)

	mm, err := s.Meta(2)
	require.NoError(t, err)
	assert.Equal(t, m, mm)

	// sidecar gone: header still answers
	require.NoError(t, os.Remove(s.MetaPath(2)))
	mm, err = s.Meta(2)
	require.NoError(t, err)
	assert.Equal(t, m, mm)
}

func TestEmptyAndBadSlots(t *testing.T) {
	s := newStore(t, nil)

	_, _, err := s.Load(1)
	assert.ErrorIs(t, err, ErrEmptySlot)
	_, err = s.Meta(3)
	assert.ErrorIs(t, err, ErrEmptySlot)
	assert.ErrorIs(t, s.Delete(1), ErrEmptySlot)

	_, err = s.Save(0, world(1))
	assert.ErrorIs(t, err, ErrBadSlot)
	_, _, err = s.Load(4)
	assert.ErrorIs(t, err, ErrBadSlot)
}

func TestLoad_CorruptSlotFailsClosed(t *testing.T) {
	s := newStore(t, nil)
	_, err := s.Save(1, world(5))
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(s.SavePath(1), []byte("junk"), 0o644))
	w, _, err := s.Load(1)
	assert.ErrorIs(t, err, snapshot.ErrCorrupt)
	assert.Nil(t, w)
}

func TestLoad_RejectsSaveFromOtherSlot(t *testing.T) {
	s := newStore(t, nil)
	_, err := s.Save(1, world(5))
	require.NoError(t, err)
	require.NoError(t, os.Rename(s.SavePath(1), s.SavePath(3)))

	_, _, err = s.Load(3)
	assert.ErrorIs(t, err, snapshot.ErrCorrupt)
}

func TestLoad_RejectsIDsUnknownToCatalogs(t *testing.T) {
	dir := t.TempDir()
	cats := &catalogs.Catalogs{
		Districts: catalogs.DistrictCatalog{ByID: map[string]catalogs.DistrictDef{"suburbs": {ID: "suburbs"}}},
		Amenities: catalogs.AmenityCatalog{ByID: map[string]catalogs.AmenityDef{"bed": {ID: "bed"}}},
	}
	s := New(dir, Options{Slots: 3, Ceilings: []int{5, 10}, Catalogs: cats})

	w := world(5)
	w.Properties[0].Amenities = []state.Amenity{{ID: "bed", Level: 1}}
	_, err := s.Save(1, w)
	require.NoError(t, err)
	_, _, err = s.Load(1)
	require.NoError(t, err)

	cases := map[string]func(w *state.World){
		"district": func(w *state.World) { w.UnlockedDistricts = append(w.UnlockedDistricts, "atlantis") },
		"plot":     func(w *state.World) { w.Properties[0].District = "" },
		"amenity":  func(w *state.World) { w.Properties[0].Amenities[0].ID = "jacuzzi" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			w := world(5)
			w.Properties[0].Amenities = []state.Amenity{{ID: "bed", Level: 1}}
			mutate(w)
			_, err := s.Save(2, w)
			require.NoError(t, err)
			_, _, err = s.Load(2)
			assert.ErrorIs(t, err, snapshot.ErrCorrupt)
		})
	}
}

func TestListAndDelete(t *testing.T) {
	s := newStore(t, nil)
	_, err := s.Save(1, world(3))
	require.NoError(t, err)
	_, err = s.Save(3, world(9))
	require.NoError(t, err)

	list := s.List()
	require.Len(t, list, 3)
	require.NotNil(t, list[0].Meta)
	assert.Equal(t, 3, list[0].Meta.Day)
	assert.Nil(t, list[1].Meta)
	assert.Empty(t, list[1].Err)
	require.NotNil(t, list[2].Meta)
	assert.Equal(t, 9, list[2].Meta.Day)

	require.NoError(t, s.Delete(1))
	_, _, err = s.Load(1)
	assert.ErrorIs(t, err, ErrEmptySlot)
	assert.Nil(t, s.List()[0].Meta)
}

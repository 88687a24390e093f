package economy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"estateempire.io/internal/sim/state"
	"estateempire.io/internal/sim/tuning"
)

func prop(mode state.RentMode, levels ...int) *state.Property {
	base := []state.Amenity{
		{ID: "f1", BaseCost: 500, BaseUpkeep: 2, BaseComfort: 5},
		{ID: "f2", BaseCost: 200, BaseUpkeep: 5, BaseComfort: 8},
	}
	for i, l := range levels {
		base[i].Level = l
	}
	return &state.Property{ID: "p", Owned: true, RentMode: mode, Condition: 100, Tier: 1, Amenities: base}
}

func TestUpkeepAndComfort(t *testing.T) {
	p := prop(state.RentLongTerm, 2, 1)
	assert.Equal(t, 9.0, Upkeep(p))
	assert.Equal(t, 18.0, Comfort(p))
	assert.Zero(t, Upkeep(prop(state.RentNone)))
}

func TestNominalRent(t *testing.T) {
	e := tuning.Defaults().Economy
	assert.Equal(t, 290.0, NominalRent(e, state.RentLongTerm, 18))
	assert.Equal(t, 86.0, NominalRent(e, state.RentHotel, 18))
	assert.Equal(t, 870.0, NominalRent(e, state.RentCommercial, 18))
	assert.Zero(t, NominalRent(e, state.RentNone, 18))
}

func TestPeriodRent_ConditionPenalty(t *testing.T) {
	e := tuning.Defaults().Economy
	p := prop(state.RentLongTerm)

	c := PeriodRent(e, p, 100)
	assert.Equal(t, 200.0, c.Income)
	assert.False(t, c.Penalized)

	c = PeriodRent(e, p, 30)
	assert.InDelta(t, 200*0.3*0.2, c.Income, 1e-9)
	assert.True(t, c.Penalized)

	c = PeriodRent(e, p, 40)
	assert.False(t, c.Penalized)
}

func TestNightlyRate(t *testing.T) {
	e := tuning.Defaults().Economy
	assert.InDelta(t, 86*0.5, NightlyRate(e, prop(state.RentHotel, 2, 1), 50), 1e-9)
}

func TestUpgradeCost_Exponential(t *testing.T) {
	e := tuning.Defaults().Economy
	a := &state.Amenity{BaseCost: 500}
	assert.Equal(t, 500.0, UpgradeCost(e, a))
	a.Level = 1
	assert.Equal(t, 750.0, UpgradeCost(e, a))
	a.Level = 3
	assert.Equal(t, 1687.0, UpgradeCost(e, a))
}

func TestRepairCost(t *testing.T) {
	e := tuning.Defaults().Economy
	p := prop(state.RentNone)
	assert.Zero(t, RepairCost(e, p))
	p.Condition = 62.5
	assert.Equal(t, 1125.0, RepairCost(e, p))
}

func TestCanUseMode(t *testing.T) {
	e := tuning.Defaults().Economy
	assert.True(t, CanUseMode(e, state.RentHotel, 1))
	assert.False(t, CanUseMode(e, state.RentCommercial, 4))
	assert.True(t, CanUseMode(e, state.RentCommercial, 5))
	assert.False(t, CanUseMode(e, state.RentNone, 9))
}

func TestDailyCashFlow(t *testing.T) {
	e := tuning.Defaults().Economy
	lt := prop(state.RentLongTerm, 2, 1) // (200+90)/7 - 9
	hotel := prop(state.RentHotel)       // 50*0.5
	blocked := prop(state.RentCommercial, 1)
	blocked.ActiveLocalEventID = "pipe_x"
	unowned := prop(state.RentHotel, 3)
	unowned.Owned = false

	w := &state.World{Properties: []state.Property{*lt, *hotel, *blocked, *unowned}}
	want := 290.0/7 - 9 + 25 - 2
	assert.Equal(t, float64(int(want)), DailyCashFlow(e, w))
}

package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estateempire.io/internal/sim/events"
	"estateempire.io/internal/sim/rng"
	"estateempire.io/internal/sim/state"
)

func TestPurchase(t *testing.T) {
	e := testEngine(t)
	w := newWorld(e)
	w.Reputation = 50
	p, _ := w.Property("suburbs-0")
	cost := p.PurchaseCost

	next, out := e.Purchase(w, "suburbs-0")
	require.True(t, out.Applied)
	assert.Equal(t, cost, out.Cost)
	assert.Equal(t, 50000-cost, next.Money)
	assert.Equal(t, 52.0, next.Reputation)
	assert.Equal(t, 100, next.XP)
	np, _ := next.Property("suburbs-0")
	assert.True(t, np.Owned)
	assert.Equal(t, state.BuildingResidential, np.Building)
	assert.Equal(t, state.RentNone, np.RentMode)

	assert.False(t, p.Owned, "input world must not change")

	_, out = e.Purchase(next, "suburbs-0")
	assert.Equal(t, ReasonAlreadyOwned, out.Reason)

	_, out = e.Purchase(next, "downtown-0")
	assert.Equal(t, ReasonDistrictLocked, out.Reason)

	_, out = e.Purchase(next, "nowhere-9")
	assert.Equal(t, ReasonNotFound, out.Reason)

	poor := next.Clone()
	poor.Money = 100
	same, out := e.Purchase(poor, "suburbs-1")
	assert.Equal(t, ReasonInsufficientFunds, out.Reason)
	assert.Same(t, poor, same)
}

func TestPurchase_LevelUpFromXP(t *testing.T) {
	e := testEngine(t)
	w := newWorld(e)
	w.XP = 950

	next, out := e.Purchase(w, "suburbs-0")
	require.True(t, out.Applied)
	assert.Equal(t, 1, out.LevelsGained)
	assert.Equal(t, 2, next.Level)
	assert.Equal(t, 50, next.XP)
	assert.Equal(t, 1500, next.XPToNextLevel)
	require.NotNil(t, next.LevelUp)
	assert.True(t, next.Suspended())
}

func TestSetRentMode(t *testing.T) {
	e := testEngine(t)
	w := newWorld(e)
	own(w, "suburbs-0")

	_, out := e.SetRentMode(w, "suburbs-0", state.RentCommercial)
	assert.Equal(t, ReasonLevelTooLow, out.Reason)

	_, out = e.SetRentMode(w, "suburbs-0", state.RentLongTerm)
	assert.Equal(t, ReasonUnchanged, out.Reason)

	_, out = e.SetRentMode(w, "suburbs-0", state.RentNone)
	assert.Equal(t, ReasonBadMode, out.Reason)

	_, out = e.SetRentMode(w, "suburbs-1", state.RentHotel)
	assert.Equal(t, ReasonNotOwned, out.Reason)

	next, out := e.SetRentMode(w, "suburbs-0", state.RentHotel)
	require.True(t, out.Applied)
	np, _ := next.Property("suburbs-0")
	assert.Equal(t, state.RentHotel, np.RentMode)
	assert.False(t, np.Occupied(), "switching mode evicts the tenant")

	w.Level = 5
	next, out = e.SetRentMode(w, "suburbs-0", state.RentCommercial)
	require.True(t, out.Applied)
	np, _ = next.Property("suburbs-0")
	assert.Equal(t, state.BuildingCommercial, np.Building)
}

func TestUpgradeAmenity(t *testing.T) {
	e := testEngine(t)
	w := newWorld(e)
	w.Reputation = 50
	own(w, "suburbs-0")

	next, out := e.UpgradeAmenity(w, "suburbs-0", "f1")
	require.True(t, out.Applied)
	assert.Equal(t, 500.0, out.Cost)
	assert.Equal(t, 25, out.XP)
	assert.Equal(t, 49500.0, next.Money)
	assert.Equal(t, 51.0, next.Reputation)
	np, _ := next.Property("suburbs-0")
	bed, _ := np.Amenity("f1")
	assert.Equal(t, 1, bed.Level)

	// second level costs 500 * 1.5
	_, out = e.UpgradeAmenity(next, "suburbs-0", "f1")
	assert.Equal(t, 750.0, out.Cost)

	_, out = e.UpgradeAmenity(w, "suburbs-0", "f3")
	assert.Equal(t, ReasonAmenityLocked, out.Reason)

	_, out = e.UpgradeAmenity(w, "suburbs-0", "f99")
	assert.Equal(t, ReasonNotFound, out.Reason)

	capped := w.Clone()
	cp, _ := capped.Property("suburbs-0")
	cb, _ := cp.Amenity("f1")
	cb.Level = 5
	_, out = e.UpgradeAmenity(capped, "suburbs-0", "f1")
	assert.Equal(t, ReasonCeilingReached, out.Reason)

	cp.Tier = 2
	_, out = e.UpgradeAmenity(capped, "suburbs-0", "f1")
	require.True(t, out.Applied)
	assert.Equal(t, math.Floor(500*math.Pow(1.5, 5)), out.Cost)
}

func TestUpgradeTier(t *testing.T) {
	e := testEngine(t)
	w := newWorld(e)
	own(w, "suburbs-0")

	next, out := e.UpgradeTier(w, "suburbs-0")
	require.True(t, out.Applied)
	assert.Equal(t, 35000.0, next.Money)
	assert.Equal(t, 500, next.XP)
	np, _ := next.Property("suburbs-0")
	assert.Equal(t, 2, np.Tier)

	_, out = e.UpgradeTier(next, "suburbs-0")
	assert.Equal(t, ReasonMaxTier, out.Reason)
}

func TestRepair(t *testing.T) {
	e := testEngine(t)
	w := newWorld(e)
	p := own(w, "suburbs-0")

	_, out := e.Repair(w, "suburbs-0")
	assert.Equal(t, ReasonPristine, out.Reason)

	p.Condition = 60
	next, out := e.Repair(w, "suburbs-0")
	require.True(t, out.Applied)
	assert.Equal(t, 1200.0, out.Cost)
	assert.Equal(t, 48800.0, next.Money)
	assert.Equal(t, 15, next.XP)
	np, _ := next.Property("suburbs-0")
	assert.Equal(t, 100.0, np.Condition)
}

func TestResolveEvent_Affordability(t *testing.T) {
	e := testEngine(t)
	w := newWorld(e)
	own(w, "suburbs-0")
	p, _ := w.Property("suburbs-0")
	ev := events.Instantiate(e.Catalogs().Events.ByID["pipe"], p)
	p.ActiveLocalEventID = ev.ID
	w.ActiveEvent = ev

	_, out := e.ResolveEvent(w, 5, rng.NewScript(0))
	assert.Equal(t, ReasonBadOption, out.Reason)

	w.Money = 500
	same, out := e.ResolveEvent(w, 0, rng.NewScript(0))
	assert.Equal(t, ReasonInsufficientFunds, out.Reason)
	assert.Same(t, w, same)

	// the cheapest option is always accepted, even into debt
	w.Money = 10
	next, out := e.ResolveEvent(w, 1, rng.NewScript(0.2))
	require.True(t, out.Applied)
	assert.Equal(t, -40.0, next.Money)
	assert.Nil(t, next.ActiveEvent)
	np, _ := next.Property("suburbs-0")
	assert.Empty(t, np.ActiveLocalEventID)
	assert.Equal(t, 80.0, np.Condition)

	_, out = e.ResolveEvent(next, 0, rng.NewScript(0))
	assert.Equal(t, ReasonNoEvent, out.Reason)
}

func TestSetTimeScaleAndAck(t *testing.T) {
	e := testEngine(t)
	w := newWorld(e)

	for _, bad := range []float64{-1, math.NaN(), math.Inf(1)} {
		_, out := e.SetTimeScale(w, bad)
		assert.Equal(t, ReasonBadTimeScale, out.Reason)
	}
	next, out := e.SetTimeScale(w, 0)
	require.True(t, out.Applied)
	assert.True(t, next.Suspended())

	_, out = e.AcknowledgeLevelUp(w)
	assert.Equal(t, ReasonUnchanged, out.Reason)
}

func TestApply_Dispatch(t *testing.T) {
	e := testEngine(t)
	w := newWorld(e)

	next, out := e.Apply(w, Action{Kind: ActPurchase, PropertyID: "suburbs-2"}, rng.NewScript(0))
	require.True(t, out.Applied)
	np, _ := next.Property("suburbs-2")
	assert.True(t, np.Owned)

	same, out := e.Apply(w, Action{Kind: "DEMOLISH"}, rng.NewScript(0))
	assert.Equal(t, ReasonUnknownAction, out.Reason)
	assert.Same(t, w, same)
}

package events

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estateempire.io/internal/sim/catalogs"
	"estateempire.io/internal/sim/rng"
	"estateempire.io/internal/sim/state"
	"estateempire.io/internal/sim/tuning"
)

func loadCatalogs(t *testing.T) *catalogs.Catalogs {
	t.Helper()
	c, err := catalogs.Load(filepath.Join("..", "..", "..", "configs"), filepath.Join("..", "..", "..", "schemas"))
	require.NoError(t, err)
	return c
}

func world() *state.World {
	return &state.World{
		Money: 10000, Reputation: 50, Day: 10, Level: 1, XPToNextLevel: 1000, TimeScale: 1,
		Properties: []state.Property{
			{ID: "suburbs-0", Name: "Plot 1", Owned: true, RentMode: state.RentLongTerm, TenantName: "Lisa Chang", Condition: 90, Tier: 1},
			{ID: "suburbs-1", Name: "Plot 2", Owned: true, RentMode: state.RentHotel, TenantName: "Emily Davis", Condition: 70, Tier: 1},
			{ID: "suburbs-2", Name: "Plot 3", Condition: 100, Tier: 1, RentMode: state.RentNone},
		},
	}
}

func option(t *testing.T, c *catalogs.Catalogs, id, labelPrefix string) catalogs.OptionDef {
	t.Helper()
	for _, o := range c.Events.ByID[id].Options {
		if strings.HasPrefix(o.Label, labelPrefix) {
			return o
		}
	}
	t.Fatalf("no option %q on %s", labelPrefix, id)
	return catalogs.OptionDef{}
}

func TestInstantiate_LocalBindsProperty(t *testing.T) {
	c := loadCatalogs(t)
	w := world()
	ev := Instantiate(c.Events.ByID["pipe"], &w.Properties[0])
	assert.Equal(t, "pipe_suburbs-0", ev.ID)
	assert.Equal(t, "suburbs-0", ev.TargetPropertyID)
	assert.Equal(t, "A pipe burst at Plot 1! Water is flooding the unit.", ev.Description)
	assert.True(t, ev.Local())

	g := Instantiate(c.Events.ByID["heatwave"], nil)
	assert.Equal(t, "heatwave", g.ID)
	assert.Empty(t, g.TargetPropertyID)
}

func TestInject_GlobalAfterDayFive(t *testing.T) {
	c := loadCatalogs(t)
	te := tuning.Defaults().Events

	w := world()
	// global draw hits, pick index 0.5*4 = 2 -> market_crash
	ev := Inject(te, &c.Events, w, rng.NewScript(0.99, 0.01, 0.5))
	require.NotNil(t, ev)
	assert.Equal(t, "market_crash", ev.ID)
	assert.Same(t, ev, w.ActiveEvent)

	w = world()
	w.Day = 5
	ev = Inject(te, &c.Events, w, rng.NewScript(0.99, 0.01))
	assert.Nil(t, ev)
	assert.Nil(t, w.ActiveEvent)
}

func TestInject_FirstLocalHitWins(t *testing.T) {
	c := loadCatalogs(t)
	te := tuning.Defaults().Events
	w := world()

	// global misses; property 0 misses; property 1 hits and picks noise (0.0 of 3).
	s := rng.NewScript(0.0, 0.5, 0.9, 0.001, 0.0)
	ev := Inject(te, &c.Events, w, s)
	require.NotNil(t, ev)
	assert.Equal(t, "noise_suburbs-1", ev.ID)
	assert.Equal(t, "noise_suburbs-1", w.Properties[1].ActiveLocalEventID)
	assert.Empty(t, w.Properties[0].ActiveLocalEventID)
	assert.Equal(t, 4, s.Used())
}

func TestInject_SkipsVacantAndBlocked(t *testing.T) {
	c := loadCatalogs(t)
	te := tuning.Defaults().Events
	w := world()
	w.Properties[0].TenantName = ""
	w.Properties[1].ActiveLocalEventID = "x"

	s := rng.NewScript(0.0, 0.5)
	assert.Nil(t, Inject(te, &c.Events, w, s))
	assert.Equal(t, 1, s.Used())
}

func TestInject_NoopWhilePending(t *testing.T) {
	c := loadCatalogs(t)
	w := world()
	w.ActiveEvent = &state.ActiveEvent{ID: "heatwave"}
	s := rng.NewScript(0.0)
	assert.Nil(t, Inject(tuning.Defaults().Events, &c.Events, w, s))
	assert.Zero(t, s.Used())
}

func TestResolve_GlobalOptions(t *testing.T) {
	c := loadCatalogs(t)

	t.Run("heatwave subsidize caps reputation", func(t *testing.T) {
		w := world()
		w.Reputation = 98
		w.Apply(Resolve(w, "", option(t, c, "heatwave", "Subsidize").Effects, rng.NewScript(0)))
		assert.Equal(t, 8500.0, w.Money)
		assert.Equal(t, 100.0, w.Reputation)
	})

	t.Run("heatwave ignore damages every property", func(t *testing.T) {
		w := world()
		w.Apply(Resolve(w, "", option(t, c, "heatwave", "Ignore").Effects, rng.NewScript(0)))
		assert.Equal(t, 30.0, w.Reputation)
		assert.Equal(t, 85.0, w.Properties[0].Condition)
		assert.Equal(t, 65.0, w.Properties[1].Condition)
		assert.Equal(t, 95.0, w.Properties[2].Condition)
		assert.Equal(t, 10000.0, w.Money)
	})

	t.Run("market crash evicts per property", func(t *testing.T) {
		w := world()
		s := rng.NewScript(0.9, 0.1, 0.5, 0.2)
		w.Apply(Resolve(w, "", option(t, c, "market_crash", "Do Nothing").Effects, s))
		assert.Equal(t, 40.0, w.Reputation)
		assert.False(t, w.Properties[0].Occupied())
		assert.True(t, w.Properties[1].Occupied())
		assert.Equal(t, 3, s.Used())
	})

	t.Run("tax audit fine and refund", func(t *testing.T) {
		w := world()
		w.Apply(Resolve(w, "", option(t, c, "tax_audit", "Submit").Effects, rng.NewScript(0.5)))
		assert.Equal(t, 2000.0, w.Money)
		assert.Equal(t, 45.0, w.Reputation)

		w = world()
		w.Apply(Resolve(w, "", option(t, c, "tax_audit", "Submit").Effects, rng.NewScript(0.7)))
		assert.Equal(t, 10500.0, w.Money)
		assert.Equal(t, 50.0, w.Reputation)
	})

	t.Run("celebrity do nothing is empty", func(t *testing.T) {
		w := world()
		p := Resolve(w, "", option(t, c, "celebrity", "Do Nothing").Effects, rng.NewScript(0))
		assert.True(t, p.Empty())
	})
}

func TestResolve_LocalOptions(t *testing.T) {
	c := loadCatalogs(t)

	t.Run("diy success", func(t *testing.T) {
		w := world()
		w.Apply(Resolve(w, "suburbs-1", option(t, c, "pipe", "DIY").Effects, rng.NewScript(0.2)))
		assert.Equal(t, 9950.0, w.Money)
		assert.Equal(t, 80.0, w.Properties[1].Condition)
		assert.Equal(t, 50.0, w.Reputation)
	})

	t.Run("diy failure", func(t *testing.T) {
		w := world()
		w.Apply(Resolve(w, "suburbs-1", option(t, c, "pipe", "DIY").Effects, rng.NewScript(0.8)))
		assert.Equal(t, 9950.0, w.Money)
		assert.Equal(t, 30.0, w.Properties[1].Condition)
		assert.Equal(t, 40.0, w.Reputation)
		assert.Equal(t, 90.0, w.Properties[0].Condition)
	})

	t.Run("bug spray tenant leaves", func(t *testing.T) {
		w := world()
		w.Apply(Resolve(w, "suburbs-0", option(t, c, "pests", "Bug").Effects, rng.NewScript(0.5)))
		assert.False(t, w.Properties[0].Occupied())
		assert.Equal(t, 45.0, w.Reputation)
	})

	t.Run("evict always", func(t *testing.T) {
		w := world()
		s := rng.NewScript(0.99)
		w.Apply(Resolve(w, "suburbs-0", option(t, c, "noise", "Evict").Effects, s))
		assert.False(t, w.Properties[0].Occupied())
		assert.Equal(t, 52.0, w.Reputation)
		assert.Zero(t, s.Used())
	})
}

func TestResolve_DoesNotMutateInput(t *testing.T) {
	c := loadCatalogs(t)
	w := world()
	_ = Resolve(w, "suburbs-0", option(t, c, "pests", "Full").Effects, rng.NewScript(0))
	assert.Equal(t, 10000.0, w.Money)
	assert.Equal(t, 90.0, w.Properties[0].Condition)
}

func TestAffordable(t *testing.T) {
	ev := &state.ActiveEvent{Options: []catalogs.OptionDef{{Cost: 800}, {Cost: 50}}}
	assert.True(t, Affordable(ev, 0, 800))
	assert.False(t, Affordable(ev, 0, 799))
	assert.True(t, Affordable(ev, 1, -100))
	assert.False(t, Affordable(ev, 2, 1e9))
}

func TestResolve_EvictChanceIsMonotonic(t *testing.T) {
	evict := func(chance *float64, draw float64) bool {
		w := world()
		p := Resolve(w, "suburbs-0", []catalogs.Effect{{Kind: catalogs.EffectEvict, Chance: chance}}, rng.NewScript(draw))
		return p.Property("suburbs-0").Evict
	}
	f := func(v float64) *float64 { return &v }

	assert.True(t, evict(nil, 0.99), "no chance always evicts")
	assert.False(t, evict(f(0), 0), "chance 0 never evicts")
	assert.False(t, evict(f(0.01), 0.99))
	assert.True(t, evict(f(0.01), 0.005))
	assert.True(t, evict(f(1), 0.99))
}

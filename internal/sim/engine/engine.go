// Package engine advances a state.World one simulated day at a time and applies
// player actions between days. Step and the action methods are pure: they never
// modify their input and return a new world. Driver runs them on a wall clock.
package engine

import (
	"estateempire.io/internal/sim/catalogs"
	"estateempire.io/internal/sim/economy"
	"estateempire.io/internal/sim/events"
	"estateempire.io/internal/sim/occupancy"
	"estateempire.io/internal/sim/progression"
	"estateempire.io/internal/sim/rng"
	"estateempire.io/internal/sim/state"
	"estateempire.io/internal/sim/tuning"
)

type Engine struct {
	tune tuning.Tuning
	cats *catalogs.Catalogs
}

func New(t tuning.Tuning, cats *catalogs.Catalogs) *Engine {
	return &Engine{tune: t, cats: cats}
}

func (e *Engine) Tuning() tuning.Tuning        { return e.tune }
func (e *Engine) Catalogs() *catalogs.Catalogs { return e.cats }

// DayReport summarizes one Step.
type DayReport struct {
	Day      int
	Advanced bool

	Income float64
	Upkeep float64
	XP     int

	ReputationBefore float64
	ReputationAfter  float64

	Arrivals    int
	Departures  int
	Collections int
	Penalties   int
	Decays      int

	LevelsGained      int
	UnlockedDistricts []string
	UnlockedAmenities []string
	Event             *state.ActiveEvent
}

// Step advances w by one day. A suspended world is returned as is.
//
// Order within the day: passive XP, then per owned property upkeep followed
// (unless blocked by a local event) by decay and occupancy, then reputation
// drift, then level-ups, then the event roll.
func (e *Engine) Step(w *state.World, r rng.Source) (*state.World, DayReport) {
	if w.Suspended() {
		return w, DayReport{Day: w.Day}
	}
	next := w.Clone()
	rep := DayReport{ReputationBefore: w.Reputation}

	next.Day++
	rep.Day = next.Day

	passive := progression.PassiveXP(e.tune.Progression, w.Reputation)
	next.XP += passive
	rep.XP += passive

	oc := occupancy.Context{
		Economy:     e.tune.Economy,
		Occupancy:   e.tune.Occupancy,
		Progression: e.tune.Progression,
		Reputation:  w.Reputation,
		Day:         next.Day,
		Tenants:     e.cats.Tenants.Names,
	}
	for i := range next.Properties {
		p := &next.Properties[i]
		if !p.Owned {
			continue
		}
		upkeep := economy.Upkeep(p)
		next.Money -= upkeep
		rep.Upkeep += upkeep
		if p.Blocked() {
			continue
		}

		d := occupancy.Advance(oc, p, r)
		next.Money += d.Income
		next.AddReputation(d.Reputation)
		next.XP += d.XP
		rep.Income += d.Income
		rep.XP += d.XP
		rep.tally(d)
	}

	next.AddReputation(occupancy.Drift(e.tune.Occupancy, next))

	lv := e.settle(next)
	rep.LevelsGained = lv.LevelsGained
	rep.UnlockedDistricts = lv.UnlockedDistricts
	rep.UnlockedAmenities = lv.UnlockedAmenities

	if next.ActiveEvent == nil {
		rep.Event = events.Inject(e.tune.Events, &e.cats.Events, next, r)
	}

	rep.ReputationAfter = next.Reputation
	rep.Advanced = true
	return next, rep
}

type levelResult struct {
	progression.Result
	UnlockedAmenities []string
}

// settle runs the level cascade and records amenities that became available.
func (e *Engine) settle(w *state.World) levelResult {
	from := w.Level
	res := levelResult{Result: progression.Settle(e.tune.Progression, e.cats.Districts.Defs, w)}
	if res.LevelsGained == 0 {
		return res
	}
	for _, a := range e.cats.AmenitiesUnlockedAt(from, w.Level) {
		res.UnlockedAmenities = append(res.UnlockedAmenities, a.ID)
	}
	w.LevelUp.UnlockedAmenities = append(w.LevelUp.UnlockedAmenities, res.UnlockedAmenities...)
	return res
}

func (r *DayReport) tally(d occupancy.Delta) {
	if d.Arrived {
		r.Arrivals++
	}
	if d.Departed {
		r.Departures++
	}
	if d.Collected {
		r.Collections++
	}
	if d.Penalized {
		r.Penalties++
	}
	if d.Decayed {
		r.Decays++
	}
}

// Advance runs up to days steps, stopping early once the world suspends itself
// (an event or level-up awaiting the player).
func (e *Engine) Advance(w *state.World, days int, r rng.Source) (*state.World, []DayReport) {
	var reports []DayReport
	for i := 0; i < days; i++ {
		next, rep := e.Step(w, r)
		if !rep.Advanced {
			break
		}
		w = next
		reports = append(reports, rep)
	}
	return w, reports
}

// DailyCashFlow is the HUD projection for w.
func (e *Engine) DailyCashFlow(w *state.World) float64 {
	return economy.DailyCashFlow(e.tune.Economy, w)
}

package main

import (
	"sort"

	"estateempire.io/internal/sim/engine"
	"estateempire.io/internal/sim/rng"
	"estateempire.io/internal/sim/state"
	"estateempire.io/internal/sim/worldgen"
)

type runConfig struct {
	Seed    uint64
	Days    int
	Reserve float64

	DayLogger    engine.DayLogger
	ActionLogger engine.ActionLogger
}

type summary struct {
	Seed        uint64  `json:"seed"`
	Days        int     `json:"days"`
	FinalDay    int     `json:"final_day"`
	Money       float64 `json:"money"`
	Reputation  float64 `json:"reputation"`
	Level       int     `json:"level"`
	Owned       int     `json:"owned"`
	Occupied    int     `json:"occupied"`
	CashFlow    float64 `json:"daily_cash_flow"`
	Income      float64 `json:"income_total"`
	Upkeep      float64 `json:"upkeep_total"`
	Events      int     `json:"events"`
	Actions     int     `json:"actions"`
	Rejected    int     `json:"rejected"`
	LevelsTotal int     `json:"levels_gained"`
	Digest      string  `json:"digest"`
	Stalled     bool    `json:"stalled,omitempty"`
	Verified    bool    `json:"verified,omitempty"`
	SaveID      string  `json:"save_id,omitempty"`
}

type runResult struct {
	World   *state.World
	Digests []string
	Summary summary
}

// run plays cfg.Days days from a fresh world. Actions come from the policy
// before each day; one rng stream feeds both days and actions.
func run(eng *engine.Engine, cfg runConfig) runResult {
	r := rng.New(cfg.Seed)
	w := worldgen.New(eng.Tuning(), eng.Catalogs(), rng.New(cfg.Seed))
	res := runResult{Summary: summary{Seed: cfg.Seed, Days: cfg.Days}}
	var seq uint64

	apply := func(a engine.Action) {
		next, out := eng.Apply(w, a, r)
		seq++
		res.Summary.Actions++
		if !out.Applied {
			res.Summary.Rejected++
		}
		w = next
		if cfg.ActionLogger != nil {
			_ = cfg.ActionLogger.WriteAction(engine.ActionLogEntry{Seq: seq, Day: w.Day, Action: a, Outcome: out, Digest: w.Digest()})
		}
	}

	if w.TimeScale <= 0 {
		apply(engine.Action{Kind: engine.ActSetTimeScale, TimeScale: 1})
	}

	for i := 0; i < cfg.Days; i++ {
		for _, a := range plan(w, cfg.Reserve) {
			apply(a)
		}
		// A purchase, repair or upgrade in the plan can itself level up.
		if w.LevelUp != nil {
			apply(engine.Action{Kind: engine.ActAckLevelUp})
		}
		next, rep := eng.Step(w, r)
		if !rep.Advanced {
			res.Summary.Stalled = true
			break
		}
		w = next
		digest := w.Digest()
		res.Digests = append(res.Digests, digest)
		res.Summary.Income += rep.Income
		res.Summary.Upkeep += rep.Upkeep
		res.Summary.LevelsTotal += rep.LevelsGained
		if rep.Event != nil {
			res.Summary.Events++
		}
		if cfg.DayLogger != nil {
			_ = cfg.DayLogger.WriteDay(engine.DayLogEntry{
				Day: w.Day, Money: w.Money, Reputation: w.Reputation, Level: w.Level, XP: w.XP,
				Income: rep.Income, Upkeep: rep.Upkeep,
				Arrivals: rep.Arrivals, Departures: rep.Departures,
				Collections: rep.Collections, Penalties: rep.Penalties, Decays: rep.Decays,
				LevelsGained: rep.LevelsGained, EventID: eventID(rep.Event), Digest: digest,
			})
		}
	}

	res.World = w
	s := &res.Summary
	s.FinalDay = w.Day
	s.Money = w.Money
	s.Reputation = w.Reputation
	s.Level = w.Level
	s.Owned = w.OwnedCount()
	for i := range w.Properties {
		if w.Properties[i].Owned && w.Properties[i].Occupied() {
			s.Occupied++
		}
	}
	s.CashFlow = eng.DailyCashFlow(w)
	s.Digest = w.Digest()
	return res
}

func eventID(ev *state.ActiveEvent) string {
	if ev == nil {
		return ""
	}
	return ev.ID
}

// plan is the landlord policy for one day: clear level-ups, settle the
// pending event with its cheapest option, put idle properties on long-term
// rent, repair worn ones, then buy the cheapest lot that leaves reserve cash.
func plan(w *state.World, reserve float64) []engine.Action {
	var acts []engine.Action
	if w.LevelUp != nil {
		acts = append(acts, engine.Action{Kind: engine.ActAckLevelUp})
	}
	if ev := w.ActiveEvent; ev != nil && len(ev.Options) > 0 {
		acts = append(acts, engine.Action{Kind: engine.ActResolveEvent, Option: cheapestOption(ev)})
	}

	money := w.Money
	for i := range w.Properties {
		p := &w.Properties[i]
		if !p.Owned {
			continue
		}
		if p.RentMode == state.RentNone {
			acts = append(acts, engine.Action{Kind: engine.ActSetRentMode, PropertyID: p.ID, Mode: state.RentLongTerm})
		}
		if p.Condition < state.MaxCondition/2 {
			acts = append(acts, engine.Action{Kind: engine.ActRepair, PropertyID: p.ID})
		}
	}

	var lots []*state.Property
	for i := range w.Properties {
		p := &w.Properties[i]
		if !p.Owned && w.DistrictUnlocked(p.District) && money-p.PurchaseCost >= reserve {
			lots = append(lots, p)
		}
	}
	sort.SliceStable(lots, func(i, j int) bool { return lots[i].PurchaseCost < lots[j].PurchaseCost })
	if len(lots) > 0 {
		acts = append(acts,
			engine.Action{Kind: engine.ActPurchase, PropertyID: lots[0].ID},
			engine.Action{Kind: engine.ActSetRentMode, PropertyID: lots[0].ID, Mode: state.RentLongTerm},
		)
	}
	return acts
}

func cheapestOption(ev *state.ActiveEvent) int {
	best := 0
	for i, o := range ev.Options {
		if o.Cost < ev.Options[best].Cost {
			best = i
		}
	}
	return best
}

// sameRun reports the first day whose digest differs, or ok when a and b match.
func sameRun(a, b runResult) (int, bool) {
	n := len(a.Digests)
	if len(b.Digests) < n {
		n = len(b.Digests)
	}
	for i := 0; i < n; i++ {
		if a.Digests[i] != b.Digests[i] {
			return i + 2, false
		}
	}
	if len(a.Digests) != len(b.Digests) {
		return n + 2, false
	}
	return 0, true
}

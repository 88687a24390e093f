// Package worldgen builds the starting world for a new game.
package worldgen

import (
	"fmt"

	"estateempire.io/internal/sim/catalogs"
	"estateempire.io/internal/sim/progression"
	"estateempire.io/internal/sim/rng"
	"estateempire.io/internal/sim/state"
	"estateempire.io/internal/sim/tuning"
)

// New lays out every district's plots up front. Plots keep catalog order,
// which is also the order the engine scans them in.
func New(t tuning.Tuning, cat *catalogs.Catalogs, r rng.Source) *state.World {
	w := &state.World{
		Money:         t.Start.Money,
		Reputation:    state.Clamp(t.Start.Reputation, 0, state.MaxReputation),
		Day:           t.Start.Day,
		Level:         t.Start.Level,
		XPToNextLevel: t.Start.XPToNextLevel,
		TimeScale:     t.Start.TimeScale,
	}
	for _, d := range cat.Districts.Defs {
		for i := 0; i < d.Plots; i++ {
			w.Properties = append(w.Properties, Plot(t.Start, cat, d, i, r))
		}
	}
	progression.UnlockDistricts(cat.Districts.Defs, w)
	return w
}

// Plot builds the i-th lot of district d.
func Plot(s tuning.Start, cat *catalogs.Catalogs, d catalogs.DistrictDef, i int, r rng.Source) state.Property {
	cost := d.BaseCost
	if s.PlotCostJitter > 0 {
		cost += float64(r.IntN(s.PlotCostJitter))
	}
	return state.Property{
		ID:           fmt.Sprintf("%s-%d", d.ID, i),
		Name:         fmt.Sprintf("Plot %d", i+1),
		District:     d.ID,
		PurchaseCost: cost,
		Building:     state.BuildingEmptyLot,
		RentMode:     state.RentNone,
		Condition:    state.MaxCondition,
		Tier:         1,
		Amenities:    Amenities(cat),
	}
}

// Amenities returns the full catalog at level 0.
func Amenities(cat *catalogs.Catalogs) []state.Amenity {
	out := make([]state.Amenity, 0, len(cat.Amenities.Defs))
	for _, a := range cat.Amenities.Defs {
		out = append(out, state.Amenity{
			ID:          a.ID,
			Name:        a.Name,
			BaseCost:    a.BaseCost,
			BaseUpkeep:  a.BaseUpkeep,
			BaseComfort: a.BaseComfort,
			UnlockLevel: a.UnlockLevel,
		})
	}
	return out
}

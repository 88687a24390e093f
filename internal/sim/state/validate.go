package state

import (
	"fmt"
	"math"
)

// Validate checks the structural invariants every persisted or published world must hold.
// ceilings[t-1] is the highest amenity level allowed at tier t.
func (w *World) Validate(ceilings []int) error {
	if len(ceilings) == 0 {
		return fmt.Errorf("no tier ceilings")
	}
	if !finite(w.Money) || !finite(w.Reputation) || !finite(w.TimeScale) {
		return fmt.Errorf("non-finite scalar")
	}
	if w.Reputation < 0 || w.Reputation > MaxReputation {
		return fmt.Errorf("reputation %v out of range", w.Reputation)
	}
	if w.Day < 1 {
		return fmt.Errorf("day %d < 1", w.Day)
	}
	if w.Level < 1 {
		return fmt.Errorf("level %d < 1", w.Level)
	}
	if w.XP < 0 || w.XPToNextLevel <= 0 || w.XP >= w.XPToNextLevel {
		return fmt.Errorf("bad xp %d/%d", w.XP, w.XPToNextLevel)
	}
	if w.TimeScale < 0 {
		return fmt.Errorf("negative time scale")
	}

	if len(w.UnlockedDistricts) == 0 {
		return fmt.Errorf("no unlocked district")
	}
	districts := make(map[string]struct{}, len(w.UnlockedDistricts))
	for _, d := range w.UnlockedDistricts {
		if d == "" {
			return fmt.Errorf("empty district id")
		}
		if _, dup := districts[d]; dup {
			return fmt.Errorf("duplicate district %q", d)
		}
		districts[d] = struct{}{}
	}

	blocked := 0
	seen := make(map[string]struct{}, len(w.Properties))
	for i := range w.Properties {
		p := &w.Properties[i]
		if p.ID == "" {
			return fmt.Errorf("property %d: empty id", i)
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("duplicate property id %q", p.ID)
		}
		seen[p.ID] = struct{}{}

		if !finite(p.Condition) || p.Condition < 0 || p.Condition > MaxCondition {
			return fmt.Errorf("%s: condition %v out of range", p.ID, p.Condition)
		}
		if !finite(p.PurchaseCost) || p.PurchaseCost < 0 {
			return fmt.Errorf("%s: bad purchase cost", p.ID)
		}
		if p.Tier < 1 || p.Tier > len(ceilings) {
			return fmt.Errorf("%s: tier %d out of range", p.ID, p.Tier)
		}
		if !p.RentMode.Valid() {
			return fmt.Errorf("%s: unknown rent mode %q", p.ID, p.RentMode)
		}
		if !p.Owned && (p.RentMode != RentNone || p.Occupied()) {
			return fmt.Errorf("%s: unowned property is rented", p.ID)
		}
		if p.Owned && p.District != "" {
			if _, ok := districts[p.District]; !ok {
				return fmt.Errorf("%s: owned in locked district %q", p.ID, p.District)
			}
		}
		if p.TenantStayDuration < 0 {
			return fmt.Errorf("%s: negative stay duration", p.ID)
		}
		for _, a := range p.Amenities {
			if a.Level < 0 || a.Level > ceilings[p.Tier-1] {
				return fmt.Errorf("%s/%s: level %d above tier ceiling", p.ID, a.ID, a.Level)
			}
		}
		if p.Blocked() {
			blocked++
			if w.ActiveEvent == nil || !w.ActiveEvent.Local() || w.ActiveEvent.TargetPropertyID != p.ID || w.ActiveEvent.ID != p.ActiveLocalEventID {
				return fmt.Errorf("%s: local event %q has no matching active event", p.ID, p.ActiveLocalEventID)
			}
		}
	}
	if w.ActiveEvent != nil && w.ActiveEvent.Local() && blocked != 1 {
		return fmt.Errorf("local event %q correlates with %d properties", w.ActiveEvent.ID, blocked)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

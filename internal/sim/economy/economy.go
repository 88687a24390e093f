// Package economy prices properties: upkeep, comfort, rent, upgrades and repairs.
// Everything here is a pure function of its arguments.
package economy

import (
	"math"

	"estateempire.io/internal/sim/state"
	"estateempire.io/internal/sim/tuning"
)

func Upkeep(p *state.Property) float64 {
	var sum float64
	for _, a := range p.Amenities {
		sum += float64(a.Level) * a.BaseUpkeep
	}
	return sum
}

func Comfort(p *state.Property) float64 {
	var sum float64
	for _, a := range p.Amenities {
		sum += float64(a.Level) * a.BaseComfort
	}
	return sum
}

// NominalRent is one payment before condition modulation: a night for hotels,
// a rent period for long-term and commercial. NONE earns nothing.
func NominalRent(e tuning.Economy, mode state.RentMode, comfort float64) float64 {
	switch mode {
	case state.RentLongTerm:
		return e.LongTermBase + e.LongTermPerComfort*comfort
	case state.RentHotel:
		return e.HotelBase + e.HotelPerComfort*comfort
	case state.RentCommercial:
		return e.CommercialBase + e.CommercialPerComfort*comfort
	}
	return 0
}

// NightlyRate is the hotel income for one occupied night at the given condition.
func NightlyRate(e tuning.Economy, p *state.Property, condition float64) float64 {
	return NominalRent(e, state.RentHotel, Comfort(p)) * condition / state.MaxCondition
}

// Collection is the outcome of one periodic rent payment.
type Collection struct {
	Income    float64
	Penalized bool
}

// PeriodRent computes a long-term or commercial payment. Below the penalty
// threshold the payment shrinks to PenaltyIncomeFactor of its value and the
// caller owes a reputation hit.
func PeriodRent(e tuning.Economy, p *state.Property, condition float64) Collection {
	income := NominalRent(e, p.RentMode, Comfort(p)) * condition / state.MaxCondition
	if condition < e.PenaltyConditionBelow {
		return Collection{Income: income * e.PenaltyIncomeFactor, Penalized: true}
	}
	return Collection{Income: income}
}

// RentDue reports whether a full rent period has elapsed since the last payment.
func RentDue(e tuning.Economy, p *state.Property, day int) bool {
	return day-p.LastRentPaidDay >= e.RentPeriodDays
}

// UpgradeCost is the price of raising a at its current level by one.
func UpgradeCost(e tuning.Economy, a *state.Amenity) float64 {
	return math.Floor(a.BaseCost * math.Pow(e.UpgradeCostGrowth, float64(a.Level)))
}

func RepairCost(e tuning.Economy, p *state.Property) float64 {
	missing := state.MaxCondition - p.Condition
	if missing <= 0 {
		return 0
	}
	return math.Floor(missing * e.RepairCostPerUnit)
}

// CanUseMode reports whether a player at level may select mode.
func CanUseMode(e tuning.Economy, mode state.RentMode, level int) bool {
	switch mode {
	case state.RentLongTerm, state.RentHotel:
		return true
	case state.RentCommercial:
		return level >= e.CommercialMinLevel
	}
	return false
}

// ProjectedDailyIncome is the expected daily income of p ignoring condition and
// randomness. Hotels assume HotelProjectedOccupancy; periodic modes are spread
// across their period.
func ProjectedDailyIncome(e tuning.Economy, p *state.Property) float64 {
	nominal := NominalRent(e, p.RentMode, Comfort(p))
	switch p.RentMode {
	case state.RentHotel:
		return nominal * e.HotelProjectedOccupancy
	case state.RentLongTerm, state.RentCommercial:
		return nominal / float64(e.RentPeriodDays)
	}
	return 0
}

// DailyCashFlow is the HUD projection: expected income of unblocked owned
// properties minus the upkeep of every owned property, floored.
// Blocked properties still pay upkeep during the tick, so they still count here.
func DailyCashFlow(e tuning.Economy, w *state.World) float64 {
	var income, expense float64
	for i := range w.Properties {
		p := &w.Properties[i]
		if !p.Owned {
			continue
		}
		expense += Upkeep(p)
		if p.Blocked() {
			continue
		}
		income += ProjectedDailyIncome(e, p)
	}
	return math.Floor(income - expense)
}

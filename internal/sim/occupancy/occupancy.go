// Package occupancy advances one owned property by one day: condition decay,
// tenant arrival and departure, and rent collection.
package occupancy

import (
	"estateempire.io/internal/sim/economy"
	"estateempire.io/internal/sim/rng"
	"estateempire.io/internal/sim/state"
	"estateempire.io/internal/sim/tuning"
)

type Context struct {
	Economy     tuning.Economy
	Occupancy   tuning.Occupancy
	Progression tuning.Progression

	// Reputation is read as of the start of the day so property order does not skew chances.
	Reputation float64
	Day        int
	Tenants    []string
}

// Delta is what a property contributed to the world during the day.
type Delta struct {
	Income     float64
	Reputation float64
	XP         int

	Collected bool
	Penalized bool
	Arrived   bool
	Departed  bool
	Decayed   bool
}

// Advance runs the day for p, which must be owned and not blocked.
// Income and departure odds use the condition the property started the day with.
func Advance(c Context, p *state.Property, r rng.Source) Delta {
	var d Delta
	condition := p.Condition

	if r.Float64() < c.Occupancy.DecayChance {
		p.Condition = state.Clamp(p.Condition-c.Occupancy.DecayAmount, 0, state.MaxCondition)
		d.Decayed = true
	}

	switch p.RentMode {
	case state.RentHotel:
		hotelNight(c, p, condition, r, &d)
	case state.RentLongTerm, state.RentCommercial:
		if !p.Occupied() {
			findTenant(c, p, r, &d)
		} else {
			stay(c, p, condition, r, &d)
		}
	}
	return d
}

// HotelChance is the probability a hotel is booked for one night.
func HotelChance(o tuning.Occupancy, reputation, comfort float64) float64 {
	return (reputation / state.MaxReputation) * (o.HotelBaseChance + comfort/o.HotelComfortDivisor)
}

// FindTenantChance is the probability a vacant long-term or commercial unit is let.
func FindTenantChance(o tuning.Occupancy, reputation float64) float64 {
	return (reputation / state.MaxReputation) * o.FindTenantChance
}

func LeaveChance(o tuning.Occupancy, condition float64) float64 {
	if condition < o.PoorConditionBelow {
		return o.LeaveChancePoor
	}
	return o.LeaveChanceNormal
}

func hotelNight(c Context, p *state.Property, condition float64, r rng.Source, d *Delta) {
	if r.Float64() < HotelChance(c.Occupancy, c.Reputation, economy.Comfort(p)) {
		d.Income += economy.NightlyRate(c.Economy, p, condition)
		p.TenantName = pickTenant(c.Tenants, r)
		p.TenantStayDuration = 1
		d.Arrived = true
		return
	}
	p.TenantName = ""
	p.TenantStayDuration = 0
}

func findTenant(c Context, p *state.Property, r rng.Source, d *Delta) {
	if r.Float64() < FindTenantChance(c.Occupancy, c.Reputation) {
		p.TenantName = pickTenant(c.Tenants, r)
		p.TenantStayDuration = 0
		p.LastRentPaidDay = c.Day
		d.Arrived = true
	}
}

func stay(c Context, p *state.Property, condition float64, r rng.Source, d *Delta) {
	p.TenantStayDuration++

	if economy.RentDue(c.Economy, p, c.Day) {
		col := economy.PeriodRent(c.Economy, p, condition)
		d.Income += col.Income
		if col.Penalized {
			d.Reputation -= c.Economy.PenaltyReputation
			d.Penalized = true
		}
		p.LastRentPaidDay = c.Day
		d.XP += c.Progression.XPRent
		d.Collected = true
	}

	if r.Float64() < LeaveChance(c.Occupancy, condition) {
		p.Evict()
		d.Reputation -= c.Occupancy.LeaveReputation
		d.Departed = true
	}
}

func pickTenant(names []string, r rng.Source) string {
	if len(names) == 0 {
		return "Tenant"
	}
	return names[r.IntN(len(names))]
}

// Drift is the daily reputation change implied by the average condition of owned properties.
func Drift(o tuning.Occupancy, w *state.World) float64 {
	var sum float64
	n := 0
	for i := range w.Properties {
		if w.Properties[i].Owned {
			sum += w.Properties[i].Condition
			n++
		}
	}
	if n == 0 {
		return 0
	}
	avg := sum / float64(n)
	switch {
	case avg > o.DriftHighAbove:
		return o.DriftHighGain
	case avg < o.DriftLowBelow:
		return -o.DriftLowLoss
	}
	return 0
}

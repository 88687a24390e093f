package engine

import (
	"math"

	"estateempire.io/internal/sim/economy"
	"estateempire.io/internal/sim/events"
	"estateempire.io/internal/sim/progression"
	"estateempire.io/internal/sim/rng"
	"estateempire.io/internal/sim/state"
)

type ActionKind string

const (
	ActPurchase       ActionKind = "PURCHASE"
	ActSetRentMode    ActionKind = "SET_RENT_MODE"
	ActUpgradeAmenity ActionKind = "UPGRADE_AMENITY"
	ActUpgradeTier    ActionKind = "UPGRADE_TIER"
	ActRepair         ActionKind = "REPAIR"
	ActResolveEvent   ActionKind = "RESOLVE_EVENT"
	ActSetTimeScale   ActionKind = "SET_TIME_SCALE"
	ActAckLevelUp     ActionKind = "ACK_LEVEL_UP"
)

type Action struct {
	Kind       ActionKind     `json:"kind"`
	PropertyID string         `json:"property_id,omitempty"`
	AmenityID  string         `json:"amenity_id,omitempty"`
	Mode       state.RentMode `json:"mode,omitempty"`
	Option     int            `json:"option,omitempty"`
	TimeScale  float64        `json:"time_scale,omitempty"`
}

// Rejection reasons. A rejected action leaves the world untouched.
const (
	ReasonUnknownAction     = "unknown_action"
	ReasonNotFound          = "not_found"
	ReasonAlreadyOwned      = "already_owned"
	ReasonNotOwned          = "not_owned"
	ReasonDistrictLocked    = "district_locked"
	ReasonInsufficientFunds = "insufficient_funds"
	ReasonLevelTooLow       = "level_too_low"
	ReasonAmenityLocked     = "amenity_locked"
	ReasonCeilingReached    = "ceiling_reached"
	ReasonMaxTier           = "max_tier"
	ReasonBadMode           = "bad_mode"
	ReasonUnchanged         = "unchanged"
	ReasonPristine          = "pristine"
	ReasonNoEvent           = "no_event"
	ReasonBadOption         = "bad_option"
	ReasonBadTimeScale      = "bad_time_scale"
)

// Outcome reports whether an action changed the world.
type Outcome struct {
	Applied bool   `json:"applied"`
	Reason  string `json:"reason,omitempty"`

	Cost         float64 `json:"cost,omitempty"`
	XP           int     `json:"xp,omitempty"`
	LevelsGained int     `json:"levels_gained,omitempty"`
	EventID      string  `json:"event_id,omitempty"`
}

func rejected(reason string) Outcome { return Outcome{Reason: reason} }

// Apply dispatches a to the matching action. r is only drawn from by RESOLVE_EVENT.
func (e *Engine) Apply(w *state.World, a Action, r rng.Source) (*state.World, Outcome) {
	switch a.Kind {
	case ActPurchase:
		return e.Purchase(w, a.PropertyID)
	case ActSetRentMode:
		return e.SetRentMode(w, a.PropertyID, a.Mode)
	case ActUpgradeAmenity:
		return e.UpgradeAmenity(w, a.PropertyID, a.AmenityID)
	case ActUpgradeTier:
		return e.UpgradeTier(w, a.PropertyID)
	case ActRepair:
		return e.Repair(w, a.PropertyID)
	case ActResolveEvent:
		return e.ResolveEvent(w, a.Option, r)
	case ActSetTimeScale:
		return e.SetTimeScale(w, a.TimeScale)
	case ActAckLevelUp:
		return e.AcknowledgeLevelUp(w)
	}
	return w, rejected(ReasonUnknownAction)
}

func (e *Engine) Purchase(w *state.World, propertyID string) (*state.World, Outcome) {
	p, ok := w.Property(propertyID)
	switch {
	case !ok:
		return w, rejected(ReasonNotFound)
	case p.Owned:
		return w, rejected(ReasonAlreadyOwned)
	case !w.DistrictUnlocked(p.District):
		return w, rejected(ReasonDistrictLocked)
	case w.Money < p.PurchaseCost:
		return w, rejected(ReasonInsufficientFunds)
	}

	next := w.Clone()
	np, _ := next.Property(propertyID)
	next.Money -= np.PurchaseCost
	np.Owned = true
	np.Building = state.BuildingResidential
	next.AddReputation(e.tune.Economy.PurchaseReputation)

	out := Outcome{Applied: true, Cost: np.PurchaseCost}
	e.grantXP(next, e.tune.Progression.XPPurchase, &out)
	return next, out
}

// SetRentMode switches an owned property's business model. The sitting tenant
// leaves; a vacant property starts looking for tenants on the next day.
func (e *Engine) SetRentMode(w *state.World, propertyID string, mode state.RentMode) (*state.World, Outcome) {
	p, ok := w.Property(propertyID)
	switch {
	case !ok:
		return w, rejected(ReasonNotFound)
	case !p.Owned:
		return w, rejected(ReasonNotOwned)
	case mode == state.RentNone || !mode.Valid():
		return w, rejected(ReasonBadMode)
	case !economy.CanUseMode(e.tune.Economy, mode, w.Level):
		return w, rejected(ReasonLevelTooLow)
	case p.RentMode == mode:
		return w, rejected(ReasonUnchanged)
	}

	next := w.Clone()
	np, _ := next.Property(propertyID)
	np.RentMode = mode
	np.Evict()
	if mode == state.RentCommercial {
		np.Building = state.BuildingCommercial
	} else {
		np.Building = state.BuildingResidential
	}
	return next, Outcome{Applied: true}
}

func (e *Engine) UpgradeAmenity(w *state.World, propertyID, amenityID string) (*state.World, Outcome) {
	p, ok := w.Property(propertyID)
	if !ok {
		return w, rejected(ReasonNotFound)
	}
	if !p.Owned {
		return w, rejected(ReasonNotOwned)
	}
	a, ok := p.Amenity(amenityID)
	switch {
	case !ok:
		return w, rejected(ReasonNotFound)
	case w.Level < a.UnlockLevel:
		return w, rejected(ReasonAmenityLocked)
	case a.Level >= e.tune.Economy.AmenityCeiling(p.Tier):
		return w, rejected(ReasonCeilingReached)
	}
	cost := economy.UpgradeCost(e.tune.Economy, a)
	if w.Money < cost {
		return w, rejected(ReasonInsufficientFunds)
	}

	next := w.Clone()
	np, _ := next.Property(propertyID)
	na, _ := np.Amenity(amenityID)
	next.Money -= cost
	na.Level++
	next.AddReputation(e.tune.Economy.UpgradeReputation)

	out := Outcome{Applied: true, Cost: cost}
	e.grantXP(next, progression.UpgradeXP(e.tune.Progression, cost), &out)
	return next, out
}

func (e *Engine) UpgradeTier(w *state.World, propertyID string) (*state.World, Outcome) {
	p, ok := w.Property(propertyID)
	cost := e.tune.Economy.TierUpgradeCost
	switch {
	case !ok:
		return w, rejected(ReasonNotFound)
	case !p.Owned:
		return w, rejected(ReasonNotOwned)
	case p.Tier >= e.tune.Economy.MaxTier():
		return w, rejected(ReasonMaxTier)
	case w.Money < cost:
		return w, rejected(ReasonInsufficientFunds)
	}

	next := w.Clone()
	np, _ := next.Property(propertyID)
	next.Money -= cost
	np.Tier++

	out := Outcome{Applied: true, Cost: cost}
	e.grantXP(next, e.tune.Progression.XPTierUpgrade, &out)
	return next, out
}

// Repair restores condition to full in one go. A pristine property is rejected
// so repairs cannot be farmed for XP.
func (e *Engine) Repair(w *state.World, propertyID string) (*state.World, Outcome) {
	p, ok := w.Property(propertyID)
	if !ok {
		return w, rejected(ReasonNotFound)
	}
	if !p.Owned {
		return w, rejected(ReasonNotOwned)
	}
	if p.Condition >= state.MaxCondition {
		return w, rejected(ReasonPristine)
	}
	cost := economy.RepairCost(e.tune.Economy, p)
	if w.Money < cost {
		return w, rejected(ReasonInsufficientFunds)
	}

	next := w.Clone()
	np, _ := next.Property(propertyID)
	next.Money -= cost
	np.Condition = state.MaxCondition

	out := Outcome{Applied: true, Cost: cost}
	e.grantXP(next, e.tune.Progression.XPRepair, &out)
	return next, out
}

// ResolveEvent applies option i of the pending event. The event is cleared and,
// for a local event, the target property is released whatever the option did.
func (e *Engine) ResolveEvent(w *state.World, option int, r rng.Source) (*state.World, Outcome) {
	ev := w.ActiveEvent
	if ev == nil {
		return w, rejected(ReasonNoEvent)
	}
	if option < 0 || option >= len(ev.Options) {
		return w, rejected(ReasonBadOption)
	}
	if !events.Affordable(ev, option, w.Money) {
		return w, rejected(ReasonInsufficientFunds)
	}

	patch := events.Resolve(w, ev.TargetPropertyID, ev.Options[option].Effects, r)
	next := w.Clone()
	next.Apply(patch)
	if ev.TargetPropertyID != "" {
		if np, ok := next.Property(ev.TargetPropertyID); ok && np.ActiveLocalEventID == ev.ID {
			np.ActiveLocalEventID = ""
		}
	}
	next.ActiveEvent = nil

	return next, Outcome{Applied: true, Cost: ev.Options[option].Cost, EventID: ev.ID}
}

func (e *Engine) SetTimeScale(w *state.World, scale float64) (*state.World, Outcome) {
	if scale < 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return w, rejected(ReasonBadTimeScale)
	}
	if scale == w.TimeScale {
		return w, rejected(ReasonUnchanged)
	}
	next := w.Clone()
	next.TimeScale = scale
	return next, Outcome{Applied: true}
}

func (e *Engine) AcknowledgeLevelUp(w *state.World) (*state.World, Outcome) {
	if w.LevelUp == nil {
		return w, rejected(ReasonUnchanged)
	}
	next := w.Clone()
	next.LevelUp = nil
	return next, Outcome{Applied: true}
}

func (e *Engine) grantXP(w *state.World, xp int, out *Outcome) {
	w.XP += xp
	out.XP = xp
	out.LevelsGained = e.settle(w).LevelsGained
}

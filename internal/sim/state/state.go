// Package state holds the world value the engine transforms one day at a time.
// A World is plain data: the engine clones it, mutates the clone and publishes the result.
package state

import (
	"estateempire.io/internal/sim/catalogs"
)

type RentMode string

const (
	RentNone       RentMode = "NONE"
	RentLongTerm   RentMode = "LONG_TERM"
	RentHotel      RentMode = "HOTEL"
	RentCommercial RentMode = "COMMERCIAL"
)

func (m RentMode) Valid() bool {
	switch m {
	case RentNone, RentLongTerm, RentHotel, RentCommercial:
		return true
	}
	return false
}

// Building is the lot's visual class, derived from ownership and rent mode.
type Building string

const (
	BuildingEmptyLot    Building = "EMPTY_LOT"
	BuildingResidential Building = "RESIDENTIAL_SMALL"
	BuildingCommercial  Building = "COMMERCIAL_OFFICE"
)

const (
	MaxCondition  = 100.0
	MaxReputation = 100.0
)

type Amenity struct {
	ID          string
	Name        string
	Level       int
	BaseCost    float64
	BaseUpkeep  float64
	BaseComfort float64
	UnlockLevel int
}

type Property struct {
	ID           string
	Name         string
	District     string
	PurchaseCost float64
	Owned        bool
	Building     Building

	RentMode           RentMode
	TenantName         string // empty when vacant
	TenantStayDuration int
	LastRentPaidDay    int

	Condition float64
	Tier      int
	Amenities []Amenity

	// ActiveLocalEventID blocks income while a local event targeting this property is pending.
	ActiveLocalEventID string
}

func (p *Property) Occupied() bool { return p.TenantName != "" }
func (p *Property) Blocked() bool  { return p.ActiveLocalEventID != "" }

func (p *Property) Amenity(id string) (*Amenity, bool) {
	for i := range p.Amenities {
		if p.Amenities[i].ID == id {
			return &p.Amenities[i], true
		}
	}
	return nil, false
}

func (p *Property) Evict() {
	p.TenantName = ""
	p.TenantStayDuration = 0
}

// ActiveEvent is an instantiated catalog event awaiting the player's choice.
type ActiveEvent struct {
	ID               string
	TemplateID       string
	Scope            string
	TargetPropertyID string
	Title            string
	Description      string
	Options          []catalogs.OptionDef
}

func (e *ActiveEvent) Local() bool { return e.Scope == catalogs.ScopeLocal }

// LevelUp records levels gained since the player last acknowledged.
type LevelUp struct {
	From              int
	To                int
	UnlockedDistricts []string
	UnlockedAmenities []string
}

type World struct {
	Money         float64
	Reputation    float64
	Day           int
	Level         int
	XP            int
	XPToNextLevel int

	Properties        []Property
	UnlockedDistricts []string

	// TimeScale multiplies the driver cadence; 0 pauses.
	TimeScale float64

	ActiveEvent *ActiveEvent
	LevelUp     *LevelUp
}

// Suspended reports whether the world itself forbids advancing a day.
// UI modals are tracked by the driver, not here.
func (w *World) Suspended() bool {
	return w.TimeScale <= 0 || w.ActiveEvent != nil || w.LevelUp != nil
}

func (w *World) Property(id string) (*Property, bool) {
	for i := range w.Properties {
		if w.Properties[i].ID == id {
			return &w.Properties[i], true
		}
	}
	return nil, false
}

func (w *World) DistrictUnlocked(id string) bool {
	for _, d := range w.UnlockedDistricts {
		if d == id {
			return true
		}
	}
	return false
}

func (w *World) OwnedCount() int {
	n := 0
	for i := range w.Properties {
		if w.Properties[i].Owned {
			n++
		}
	}
	return n
}

// AddReputation applies d and saturates to [0,100].
func (w *World) AddReputation(d float64) {
	w.Reputation = Clamp(w.Reputation+d, 0, MaxReputation)
}

func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clone returns a deep copy; the result shares no slices or pointers with w.
func (w *World) Clone() *World {
	if w == nil {
		return nil
	}
	out := *w
	out.Properties = make([]Property, len(w.Properties))
	for i, p := range w.Properties {
		p.Amenities = append([]Amenity(nil), p.Amenities...)
		out.Properties[i] = p
	}
	out.UnlockedDistricts = append([]string(nil), w.UnlockedDistricts...)
	if w.ActiveEvent != nil {
		ev := *w.ActiveEvent
		ev.Options = cloneOptions(ev.Options)
		out.ActiveEvent = &ev
	}
	if w.LevelUp != nil {
		lu := *w.LevelUp
		lu.UnlockedDistricts = append([]string(nil), lu.UnlockedDistricts...)
		lu.UnlockedAmenities = append([]string(nil), lu.UnlockedAmenities...)
		out.LevelUp = &lu
	}
	return &out
}

func cloneOptions(in []catalogs.OptionDef) []catalogs.OptionDef {
	if in == nil {
		return nil
	}
	out := make([]catalogs.OptionDef, len(in))
	for i, o := range in {
		o.Effects = cloneEffects(o.Effects)
		out[i] = o
	}
	return out
}

func cloneEffects(in []catalogs.Effect) []catalogs.Effect {
	if in == nil {
		return nil
	}
	out := make([]catalogs.Effect, len(in))
	for i, e := range in {
		if e.Chance != nil {
			c := *e.Chance
			e.Chance = &c
		}
		e.Then = cloneEffects(e.Then)
		e.Else = cloneEffects(e.Else)
		out[i] = e
	}
	return out
}

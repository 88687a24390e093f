// Package events injects catalog events into a world and turns a chosen option
// into a state.Patch. Option outcomes are data (catalogs.Effect) read by one resolver.
package events

import (
	"strings"

	"estateempire.io/internal/sim/catalogs"
	"estateempire.io/internal/sim/rng"
	"estateempire.io/internal/sim/state"
	"estateempire.io/internal/sim/tuning"
)

const propertyPlaceholder = "{{property}}"

// Instantiate binds a template to a world. target is nil for global events.
func Instantiate(tpl catalogs.EventTemplate, target *state.Property) *state.ActiveEvent {
	ev := &state.ActiveEvent{
		ID:          tpl.ID,
		TemplateID:  tpl.ID,
		Scope:       tpl.Scope,
		Title:       tpl.Title,
		Description: tpl.Description,
		Options:     append([]catalogs.OptionDef(nil), tpl.Options...),
	}
	if target != nil {
		ev.ID = tpl.ID + "_" + target.ID
		ev.TargetPropertyID = target.ID
		ev.Description = strings.ReplaceAll(tpl.Description, propertyPlaceholder, target.Name)
	}
	return ev
}

// Inject rolls for a new event at the end of a day. It returns the injected
// event or nil; the caller has already ruled out a pending event.
//
// The global roll always consumes one draw. Only if it misses are owned,
// occupied, unblocked properties scanned in order, one draw each, and the
// first hit takes the local event.
func Inject(t tuning.Events, cat *catalogs.EventCatalog, w *state.World, r rng.Source) *state.ActiveEvent {
	if w.ActiveEvent != nil {
		return nil
	}
	if r.Float64() < t.GlobalChance && w.Day > t.GlobalAfterDay && len(cat.Global) > 0 {
		ev := Instantiate(cat.Global[r.IntN(len(cat.Global))], nil)
		w.ActiveEvent = ev
		return ev
	}
	if len(cat.Local) == 0 {
		return nil
	}
	for i := range w.Properties {
		p := &w.Properties[i]
		if !p.Owned || !p.Occupied() || p.Blocked() {
			continue
		}
		if r.Float64() < t.LocalChance {
			ev := Instantiate(cat.Local[r.IntN(len(cat.Local))], p)
			p.ActiveLocalEventID = ev.ID
			w.ActiveEvent = ev
			return ev
		}
	}
	return nil
}

// Affordable reports whether option i can be chosen with money in hand.
// The cheapest option is always allowed so a pending event cannot stall the game.
func Affordable(ev *state.ActiveEvent, i int, money float64) bool {
	if i < 0 || i >= len(ev.Options) {
		return false
	}
	cost := ev.Options[i].Cost
	if cost <= money {
		return true
	}
	for _, o := range ev.Options {
		if o.Cost < cost {
			return false
		}
	}
	return true
}

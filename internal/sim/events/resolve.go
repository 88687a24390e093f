package events

import (
	"estateempire.io/internal/sim/catalogs"
	"estateempire.io/internal/sim/rng"
	"estateempire.io/internal/sim/state"
)

type propWork struct {
	condition float64
	condSet   bool
	evict     bool
}

type resolver struct {
	w      *state.World
	target string
	r      rng.Source

	money      float64
	moneySet   bool
	reputation float64
	repSet     bool
	props      map[string]*propWork
	order      []string
}

// Resolve folds effects left to right against w and returns the patch they produce.
// w is not modified. target is the property a local event is bound to, or "".
// Each chance effect, and each evict with a chance, consumes one draw per roll.
func Resolve(w *state.World, target string, effects []catalogs.Effect, r rng.Source) state.Patch {
	rs := &resolver{
		w:          w,
		target:     target,
		r:          r,
		money:      w.Money,
		reputation: w.Reputation,
		props:      map[string]*propWork{},
	}
	rs.run(effects)
	return rs.patch()
}

func (rs *resolver) run(effects []catalogs.Effect) {
	for _, e := range effects {
		switch e.Kind {
		case catalogs.EffectMoney:
			rs.money += e.Amount
			rs.moneySet = true
		case catalogs.EffectReputation:
			rs.reputation = state.Clamp(rs.reputation+e.Amount, 0, state.MaxReputation)
			rs.repSet = true
		case catalogs.EffectCondition:
			for _, id := range rs.scope(e.Scope) {
				pw := rs.prop(id)
				pw.condition = state.Clamp(pw.condition+e.Amount, 0, state.MaxCondition)
				pw.condSet = true
			}
		case catalogs.EffectSetCondition:
			for _, id := range rs.scope(e.Scope) {
				pw := rs.prop(id)
				pw.condition = state.Clamp(e.Value, 0, state.MaxCondition)
				pw.condSet = true
			}
		case catalogs.EffectEvict:
			for _, id := range rs.scope(e.Scope) {
				if p, ok := e.Probability(); ok && rs.r.Float64() >= p {
					continue
				}
				rs.prop(id).evict = true
			}
		case catalogs.EffectChance:
			p, _ := e.Probability()
			if rs.r.Float64() < p {
				rs.run(e.Then)
			} else {
				rs.run(e.Else)
			}
		}
	}
}

func (rs *resolver) scope(scope string) []string {
	if scope == catalogs.EffectScopeAll {
		ids := make([]string, len(rs.w.Properties))
		for i := range rs.w.Properties {
			ids[i] = rs.w.Properties[i].ID
		}
		return ids
	}
	if rs.target == "" {
		return nil
	}
	return []string{rs.target}
}

func (rs *resolver) prop(id string) *propWork {
	if pw, ok := rs.props[id]; ok {
		return pw
	}
	pw := &propWork{}
	if p, ok := rs.w.Property(id); ok {
		pw.condition = p.Condition
	}
	rs.props[id] = pw
	rs.order = append(rs.order, id)
	return pw
}

func (rs *resolver) patch() state.Patch {
	var p state.Patch
	if rs.moneySet {
		p.SetMoney(rs.money)
	}
	if rs.repSet {
		p.SetReputation(rs.reputation)
	}
	for _, id := range rs.order {
		pw := rs.props[id]
		pp := state.PropertyPatch{Evict: pw.evict}
		if pw.condSet {
			c := pw.condition
			pp.Condition = &c
		}
		p.SetProperty(id, pp)
	}
	return p
}

package state

// Patch is a partial world update. Nil fields are left untouched.
type Patch struct {
	Money      *float64
	Reputation *float64
	Properties map[string]PropertyPatch
}

type PropertyPatch struct {
	Condition *float64
	Evict     bool
}

func (p *Patch) SetMoney(v float64)      { p.Money = &v }
func (p *Patch) SetReputation(v float64) { p.Reputation = &v }

func (p *Patch) Property(id string) PropertyPatch {
	return p.Properties[id]
}

func (p *Patch) SetProperty(id string, pp PropertyPatch) {
	if p.Properties == nil {
		p.Properties = map[string]PropertyPatch{}
	}
	p.Properties[id] = pp
}

// Empty reports whether applying p would change nothing.
func (p *Patch) Empty() bool {
	return p.Money == nil && p.Reputation == nil && len(p.Properties) == 0
}

// Apply merges p into w, clamping reputation and condition.
func (w *World) Apply(p Patch) {
	if p.Money != nil {
		w.Money = *p.Money
	}
	if p.Reputation != nil {
		w.Reputation = Clamp(*p.Reputation, 0, MaxReputation)
	}
	for id, pp := range p.Properties {
		prop, ok := w.Property(id)
		if !ok {
			continue
		}
		if pp.Condition != nil {
			prop.Condition = Clamp(*pp.Condition, 0, MaxCondition)
		}
		if pp.Evict {
			prop.Evict()
		}
	}
}

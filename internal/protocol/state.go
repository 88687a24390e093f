package protocol

import (
	"estateempire.io/internal/sim/catalogs"
	"estateempire.io/internal/sim/state"
)

// STATE (server -> client): the full world after every committed change.
type StateMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`

	Money         float64 `json:"money"`
	Reputation    float64 `json:"reputation"`
	Day           int     `json:"day"`
	Level         int     `json:"level"`
	XP            int     `json:"xp"`
	XPToNextLevel int     `json:"xp_to_next_level"`
	TimeScale     float64 `json:"time_scale"`
	CashFlow      float64 `json:"daily_cash_flow"`
	ModalOpen     bool    `json:"modal_open"`

	UnlockedDistricts []string       `json:"unlocked_districts"`
	Properties        []PropertyView `json:"properties"`
	ActiveEvent       *EventView     `json:"active_event,omitempty"`
	LevelUp           *LevelUpView   `json:"level_up,omitempty"`
}

type PropertyView struct {
	ID                 string        `json:"id"`
	Name               string        `json:"name"`
	District           string        `json:"district"`
	PurchaseCost       float64       `json:"purchase_cost"`
	Owned              bool          `json:"owned"`
	Building           string        `json:"building"`
	RentMode           string        `json:"rent_mode"`
	TenantName         string        `json:"tenant_name,omitempty"`
	TenantStayDuration int           `json:"tenant_stay_duration"`
	LastRentPaidDay    int           `json:"last_rent_paid_day"`
	Condition          float64       `json:"condition"`
	Tier               int           `json:"tier"`
	Amenities          []AmenityView `json:"amenities"`
	ActiveLocalEventID string        `json:"active_local_event_id,omitempty"`
}

type AmenityView struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Level       int     `json:"level"`
	BaseCost    float64 `json:"base_cost"`
	BaseUpkeep  float64 `json:"base_upkeep"`
	BaseComfort float64 `json:"base_comfort"`
	UnlockLevel int     `json:"unlock_level"`
}

type EventView struct {
	ID               string       `json:"id"`
	TemplateID       string       `json:"template_id"`
	Scope            string       `json:"scope"`
	TargetPropertyID string       `json:"target_property_id,omitempty"`
	Title            string       `json:"title"`
	Description      string       `json:"description"`
	Options          []OptionView `json:"options"`
}

// OptionView hides effects; the player chooses on label, cost and risk only.
type OptionView struct {
	Label       string  `json:"label"`
	Description string  `json:"description,omitempty"`
	Risk        string  `json:"risk,omitempty"`
	Cost        float64 `json:"cost"`
}

type LevelUpView struct {
	From              int      `json:"from"`
	To                int      `json:"to"`
	UnlockedDistricts []string `json:"unlocked_districts"`
	UnlockedAmenities []string `json:"unlocked_amenities"`
}

func NewStateMsg(w *state.World, cashFlow float64, modalOpen bool) StateMsg {
	m := StateMsg{
		Type:              TypeState,
		ProtocolVersion:   Version,
		Money:             w.Money,
		Reputation:        w.Reputation,
		Day:               w.Day,
		Level:             w.Level,
		XP:                w.XP,
		XPToNextLevel:     w.XPToNextLevel,
		TimeScale:         w.TimeScale,
		CashFlow:          cashFlow,
		ModalOpen:         modalOpen,
		UnlockedDistricts: nonNil(w.UnlockedDistricts),
		Properties:        make([]PropertyView, 0, len(w.Properties)),
	}
	for i := range w.Properties {
		m.Properties = append(m.Properties, propertyView(&w.Properties[i]))
	}
	if ev := w.ActiveEvent; ev != nil {
		m.ActiveEvent = &EventView{
			ID:               ev.ID,
			TemplateID:       ev.TemplateID,
			Scope:            ev.Scope,
			TargetPropertyID: ev.TargetPropertyID,
			Title:            ev.Title,
			Description:      ev.Description,
			Options:          optionViews(ev.Options),
		}
	}
	if lu := w.LevelUp; lu != nil {
		m.LevelUp = &LevelUpView{
			From:              lu.From,
			To:                lu.To,
			UnlockedDistricts: nonNil(lu.UnlockedDistricts),
			UnlockedAmenities: nonNil(lu.UnlockedAmenities),
		}
	}
	return m
}

func propertyView(p *state.Property) PropertyView {
	v := PropertyView{
		ID:                 p.ID,
		Name:               p.Name,
		District:           p.District,
		PurchaseCost:       p.PurchaseCost,
		Owned:              p.Owned,
		Building:           string(p.Building),
		RentMode:           string(p.RentMode),
		TenantName:         p.TenantName,
		TenantStayDuration: p.TenantStayDuration,
		LastRentPaidDay:    p.LastRentPaidDay,
		Condition:          p.Condition,
		Tier:               p.Tier,
		Amenities:          make([]AmenityView, 0, len(p.Amenities)),
		ActiveLocalEventID: p.ActiveLocalEventID,
	}
	for _, a := range p.Amenities {
		v.Amenities = append(v.Amenities, AmenityView(a))
	}
	return v
}

func optionViews(opts []catalogs.OptionDef) []OptionView {
	out := make([]OptionView, 0, len(opts))
	for _, o := range opts {
		out = append(out, OptionView{Label: o.Label, Description: o.Description, Risk: o.Risk, Cost: o.Cost})
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

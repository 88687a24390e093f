package tuning

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	// TickIntervalMs is the wall-clock length of one simulated day at timeScale 1.
	TickIntervalMs     int `yaml:"tick_interval_ms"`
	AutosaveIntervalMs int `yaml:"autosave_interval_ms"`
	SaveSlots          int `yaml:"save_slots"`

	Start       Start       `yaml:"start"`
	Economy     Economy     `yaml:"economy"`
	Occupancy   Occupancy   `yaml:"occupancy"`
	Progression Progression `yaml:"progression"`
	Events      Events      `yaml:"events"`
}

type Start struct {
	Money         float64 `yaml:"money"`
	Reputation    float64 `yaml:"reputation"`
	Day           int     `yaml:"day"`
	Level         int     `yaml:"level"`
	XPToNextLevel int     `yaml:"xp_to_next_level"`
	TimeScale     float64 `yaml:"time_scale"`
	// PlotCostJitter is the exclusive upper bound of the random amount added to a district's base plot cost.
	PlotCostJitter int `yaml:"plot_cost_jitter"`
}

type Economy struct {
	LongTermBase         float64 `yaml:"long_term_base"`
	LongTermPerComfort   float64 `yaml:"long_term_per_comfort"`
	HotelBase            float64 `yaml:"hotel_base"`
	HotelPerComfort      float64 `yaml:"hotel_per_comfort"`
	CommercialBase       float64 `yaml:"commercial_base"`
	CommercialPerComfort float64 `yaml:"commercial_per_comfort"`
	CommercialMinLevel   int     `yaml:"commercial_min_level"`
	RentPeriodDays       int     `yaml:"rent_period_days"`

	// HotelProjectedOccupancy is the occupancy assumed by the daily cash-flow projection.
	HotelProjectedOccupancy float64 `yaml:"hotel_projected_occupancy"`

	PenaltyConditionBelow float64 `yaml:"penalty_condition_below"`
	PenaltyIncomeFactor   float64 `yaml:"penalty_income_factor"`
	PenaltyReputation     float64 `yaml:"penalty_reputation"`

	UpgradeCostGrowth  float64 `yaml:"upgrade_cost_growth"`
	RepairCostPerUnit  float64 `yaml:"repair_cost_per_unit"`
	TierUpgradeCost    float64 `yaml:"tier_upgrade_cost"`
	MaxAmenityLevel    []int   `yaml:"max_amenity_level"` // indexed by tier-1
	PurchaseReputation float64 `yaml:"purchase_reputation"`
	UpgradeReputation  float64 `yaml:"upgrade_reputation"`
}

type Occupancy struct {
	HotelBaseChance     float64 `yaml:"hotel_base_chance"`
	HotelComfortDivisor float64 `yaml:"hotel_comfort_divisor"`
	FindTenantChance    float64 `yaml:"find_tenant_chance"`
	LeaveChancePoor     float64 `yaml:"leave_chance_poor"`
	LeaveChanceNormal   float64 `yaml:"leave_chance_normal"`
	LeaveReputation     float64 `yaml:"leave_reputation"`
	PoorConditionBelow  float64 `yaml:"poor_condition_below"`

	DecayChance float64 `yaml:"decay_chance"`
	DecayAmount float64 `yaml:"decay_amount"`

	DriftHighAbove float64 `yaml:"drift_high_above"`
	DriftHighGain  float64 `yaml:"drift_high_gain"`
	DriftLowBelow  float64 `yaml:"drift_low_below"`
	DriftLowLoss   float64 `yaml:"drift_low_loss"`
}

type Progression struct {
	XPPurchase           int     `yaml:"xp_purchase"`
	XPRent               int     `yaml:"xp_rent"`
	XPRepair             int     `yaml:"xp_repair"`
	XPTierUpgrade        int     `yaml:"xp_tier_upgrade"`
	XPUpgradeFactor      float64 `yaml:"xp_upgrade_factor"`
	XPPassive            int     `yaml:"xp_passive"`
	PassiveMinReputation float64 `yaml:"passive_min_reputation"`
	ThresholdGrowth      float64 `yaml:"threshold_growth"`
}

type Events struct {
	GlobalChance   float64 `yaml:"global_chance"`
	GlobalAfterDay int     `yaml:"global_after_day"`
	LocalChance    float64 `yaml:"local_chance"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:    "1.0",
		TickIntervalMs:     5000,
		AutosaveIntervalMs: 5000,
		SaveSlots:          3,
		Start: Start{
			Money:          50000,
			Reputation:     100,
			Day:            1,
			Level:          1,
			XPToNextLevel:  1000,
			TimeScale:      1,
			PlotCostJitter: 5000,
		},
		Economy: Economy{
			LongTermBase:         200,
			LongTermPerComfort:   5,
			HotelBase:            50,
			HotelPerComfort:      2,
			CommercialBase:       600,
			CommercialPerComfort: 15,
			CommercialMinLevel:   5,
			RentPeriodDays:       7,

			HotelProjectedOccupancy: 0.5,

			PenaltyConditionBelow: 40,
			PenaltyIncomeFactor:   0.2,
			PenaltyReputation:     2,
			UpgradeCostGrowth:     1.5,
			RepairCostPerUnit:     30,
			TierUpgradeCost:       15000,
			MaxAmenityLevel:       []int{5, 10},
			PurchaseReputation:    2,
			UpgradeReputation:     1,
		},
		Occupancy: Occupancy{
			HotelBaseChance:     0.4,
			HotelComfortDivisor: 200,
			FindTenantChance:    0.3,
			LeaveChancePoor:     0.2,
			LeaveChanceNormal:   0.01,
			LeaveReputation:     5,
			PoorConditionBelow:  40,
			DecayChance:         0.05,
			DecayAmount:         1,
			DriftHighAbove:      80,
			DriftHighGain:       0.2,
			DriftLowBelow:       50,
			DriftLowLoss:        1.5,
		},
		Progression: Progression{
			XPPurchase:           100,
			XPRent:               20,
			XPRepair:             15,
			XPTierUpgrade:        500,
			XPUpgradeFactor:      0.05,
			XPPassive:            10,
			PassiveMinReputation: 90,
			ThresholdGrowth:      1.5,
		},
		Events: Events{
			GlobalChance:   0.03,
			GlobalAfterDay: 5,
			LocalChance:    0.005,
		},
	}
}

// Load reads a tuning file on top of Defaults, so a file only needs the keys it overrides.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

// LoadOrDefault is Load, except a missing file yields Defaults.
func LoadOrDefault(path string) (Tuning, error) {
	if path == "" {
		return Defaults(), nil
	}
	t, err := Load(path)
	if err != nil && errors.Is(err, os.ErrNotExist) {
		return Defaults(), nil
	}
	return t, err
}

func (t Tuning) Validate() error {
	if t.TickIntervalMs <= 0 {
		return fmt.Errorf("tick_interval_ms must be > 0")
	}
	if t.SaveSlots <= 0 {
		return fmt.Errorf("save_slots must be > 0")
	}
	if t.Start.Level < 1 || t.Start.XPToNextLevel <= 0 {
		return fmt.Errorf("start level/xp_to_next_level must be positive")
	}
	if len(t.Economy.MaxAmenityLevel) == 0 {
		return fmt.Errorf("max_amenity_level must list at least one tier")
	}
	if t.Economy.RentPeriodDays <= 0 {
		return fmt.Errorf("rent_period_days must be > 0")
	}
	if t.Progression.ThresholdGrowth < 1 {
		return fmt.Errorf("threshold_growth must be >= 1")
	}
	probs := map[string]float64{
		"occupancy.find_tenant_chance":  t.Occupancy.FindTenantChance,
		"occupancy.leave_chance_poor":   t.Occupancy.LeaveChancePoor,
		"occupancy.leave_chance_normal": t.Occupancy.LeaveChanceNormal,
		"occupancy.decay_chance":        t.Occupancy.DecayChance,
		"events.global_chance":          t.Events.GlobalChance,
		"events.local_chance":           t.Events.LocalChance,
	}
	for k, p := range probs {
		if p < 0 || p > 1 {
			return fmt.Errorf("%s out of [0,1]: %v", k, p)
		}
	}
	return nil
}

// MaxTier is the highest renovation tier a property can reach.
func (e Economy) MaxTier() int { return len(e.MaxAmenityLevel) }

// AmenityCeiling returns the maximum amenity level allowed at tier (1-based).
func (e Economy) AmenityCeiling(tier int) int {
	if tier < 1 {
		tier = 1
	}
	if tier > len(e.MaxAmenityLevel) {
		tier = len(e.MaxAmenityLevel)
	}
	return e.MaxAmenityLevel[tier-1]
}

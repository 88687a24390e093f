package catalogs

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

type Catalogs struct {
	Amenities AmenityCatalog
	Districts DistrictCatalog
	Tenants   TenantCatalog
	Events    EventCatalog
}

type AmenityCatalog struct {
	// Defs keeps file order; the UI lists amenities in this order.
	Defs   []AmenityDef
	ByID   map[string]AmenityDef
	Digest string
}

type AmenityDef struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Icon        string  `json:"icon,omitempty"`
	BaseCost    float64 `json:"base_cost"`
	BaseUpkeep  float64 `json:"base_upkeep"`
	BaseComfort float64 `json:"base_comfort"`
	UnlockLevel int     `json:"unlock_level"`
}

type DistrictCatalog struct {
	Defs   []DistrictDef
	ByID   map[string]DistrictDef
	Digest string
}

type DistrictDef struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	UnlockLevel int     `json:"unlock_level"`
	BaseCost    float64 `json:"base_cost"`
	Plots       int     `json:"plots"`
	Color       string  `json:"color,omitempty"`
	Description string  `json:"description,omitempty"`
}

type TenantCatalog struct {
	Names  []string `json:"names"`
	Digest string   `json:"-"`
}

type EventCatalog struct {
	// Global and Local are sorted by id so uniform selection is reproducible for a given seed.
	Global []EventTemplate
	Local  []EventTemplate
	ByID   map[string]EventTemplate
	Digest string
}

const (
	ScopeGlobal = "GLOBAL"
	ScopeLocal  = "LOCAL"
)

type EventTemplate struct {
	ID          string      `json:"id"`
	Scope       string      `json:"scope"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Options     []OptionDef `json:"options"`
}

type OptionDef struct {
	Label       string   `json:"label"`
	Description string   `json:"description,omitempty"`
	Risk        string   `json:"risk,omitempty"`
	Cost        float64  `json:"cost,omitempty"`
	Effects     []Effect `json:"effects"`
}

// Effect kinds.
const (
	EffectMoney        = "money"
	EffectReputation   = "reputation"
	EffectCondition    = "condition"
	EffectSetCondition = "set_condition"
	EffectEvict        = "evict"
	EffectChance       = "chance"
)

// Effect scopes. An empty scope means the event's target property.
const (
	EffectScopeTarget = "target"
	EffectScopeAll    = "all"
)

// Effect is one step of an option's outcome. Kind selects which fields are read.
type Effect struct {
	Kind   string   `json:"kind"`
	Amount float64  `json:"amount,omitempty"`
	Value  float64  `json:"value,omitempty"`
	Scope  string   `json:"scope,omitempty"`
	Chance *float64 `json:"chance,omitempty"`
	Then   []Effect `json:"then,omitempty"`
	Else   []Effect `json:"else,omitempty"`
}

// Probability returns Chance and whether it was given. An evict without a
// chance always applies; with chance 0 it never does.
func (e Effect) Probability() (float64, bool) {
	if e.Chance == nil {
		return 0, false
	}
	return *e.Chance, true
}

// Load reads every catalog under configDir. When schemaDir is non-empty, event
// files are validated against event.schema.json before they are decoded.
func Load(configDir, schemaDir string) (*Catalogs, error) {
	var c Catalogs

	if err := loadAmenities(filepath.Join(configDir, "amenities.json"), &c.Amenities); err != nil {
		return nil, err
	}
	if err := loadDistricts(filepath.Join(configDir, "districts.json"), &c.Districts); err != nil {
		return nil, err
	}
	if err := loadTenants(filepath.Join(configDir, "tenants.json"), &c.Tenants); err != nil {
		return nil, err
	}

	var schema *jsonschema.Schema
	if schemaDir != "" {
		s, err := jsonschema.Compile(filepath.Join(schemaDir, "event.schema.json"))
		if err != nil {
			return nil, fmt.Errorf("event.schema.json: %w", err)
		}
		schema = s
	}
	if err := loadEvents(filepath.Join(configDir, "events"), schema, &c.Events); err != nil {
		return nil, err
	}
	return &c, nil
}

// Digests is the catalog fingerprint set sent to clients and recorded in the index.
func (c *Catalogs) Digests() map[string]string {
	return map[string]string{
		"amenities": c.Amenities.Digest,
		"districts": c.Districts.Digest,
		"tenants":   c.Tenants.Digest,
		"events":    c.Events.Digest,
	}
}

// AmenitiesUnlockedAt lists amenities whose unlock level lies in (from, to].
func (c *Catalogs) AmenitiesUnlockedAt(from, to int) []AmenityDef {
	var out []AmenityDef
	for _, a := range c.Amenities.Defs {
		if a.UnlockLevel > from && a.UnlockLevel <= to {
			out = append(out, a)
		}
	}
	return out
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadAmenities(path string, out *AmenityCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []AmenityDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("amenities.json: %w", err)
	}
	out.ByID = make(map[string]AmenityDef, len(defs))
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("amenities.json: empty id")
		}
		if _, dup := out.ByID[d.ID]; dup {
			return fmt.Errorf("amenities.json: duplicate id %q", d.ID)
		}
		if d.BaseCost <= 0 {
			return fmt.Errorf("amenities.json: %s: base_cost must be > 0", d.ID)
		}
		out.ByID[d.ID] = d
	}
	out.Defs = defs
	return nil
}

func loadDistricts(path string, out *DistrictCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []DistrictDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("districts.json: %w", err)
	}
	out.ByID = make(map[string]DistrictDef, len(defs))
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("districts.json: empty id")
		}
		if _, dup := out.ByID[d.ID]; dup {
			return fmt.Errorf("districts.json: duplicate id %q", d.ID)
		}
		if d.Plots < 0 || d.UnlockLevel < 1 {
			return fmt.Errorf("districts.json: %s: bad plots/unlock_level", d.ID)
		}
		out.ByID[d.ID] = d
	}
	out.Defs = defs
	return nil
}

func loadTenants(path string, out *TenantCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("tenants.json: %w", err)
	}
	if len(out.Names) == 0 {
		return fmt.Errorf("tenants.json: no names")
	}
	out.Digest = sha256Hex(raw)
	return nil
}

func loadEvents(dir string, schema *jsonschema.Schema, out *EventCatalog) error {
	out.ByID = map[string]EventTemplate{}

	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("events: %w", err)
	}
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".json") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return err
	}
	sort.Strings(files)

	var concat bytes.Buffer
	for _, p := range files {
		b, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		concat.Write(b)
		concat.WriteByte('\n')

		if schema != nil {
			var doc any
			if err := json.Unmarshal(b, &doc); err != nil {
				return fmt.Errorf("event %s: %w", filepath.Base(p), err)
			}
			if err := schema.Validate(doc); err != nil {
				return fmt.Errorf("event %s: %w", filepath.Base(p), err)
			}
		}

		var ev EventTemplate
		if err := json.Unmarshal(b, &ev); err != nil {
			return fmt.Errorf("event %s: %w", filepath.Base(p), err)
		}
		if err := checkEvent(ev); err != nil {
			return fmt.Errorf("event %s: %w", filepath.Base(p), err)
		}
		if _, dup := out.ByID[ev.ID]; dup {
			return fmt.Errorf("event %s: duplicate id %q", filepath.Base(p), ev.ID)
		}
		out.ByID[ev.ID] = ev
		if ev.Scope == ScopeGlobal {
			out.Global = append(out.Global, ev)
		} else {
			out.Local = append(out.Local, ev)
		}
	}
	sort.Slice(out.Global, func(i, j int) bool { return out.Global[i].ID < out.Global[j].ID })
	sort.Slice(out.Local, func(i, j int) bool { return out.Local[i].ID < out.Local[j].ID })
	out.Digest = sha256Hex(concat.Bytes())
	return nil
}

func checkEvent(ev EventTemplate) error {
	if ev.ID == "" {
		return fmt.Errorf("missing id")
	}
	if ev.Scope != ScopeGlobal && ev.Scope != ScopeLocal {
		return fmt.Errorf("bad scope %q", ev.Scope)
	}
	if len(ev.Options) == 0 {
		return fmt.Errorf("no options")
	}
	for i, o := range ev.Options {
		if o.Cost < 0 {
			return fmt.Errorf("option %d: negative cost", i)
		}
		if err := checkEffects(o.Effects, ev.Scope); err != nil {
			return fmt.Errorf("option %d: %w", i, err)
		}
	}
	return nil
}

func checkEffects(effs []Effect, scope string) error {
	for _, e := range effs {
		switch e.Kind {
		case EffectMoney, EffectReputation:
		case EffectCondition, EffectSetCondition, EffectEvict:
			if p, ok := e.Probability(); ok && (e.Kind != EffectEvict || p < 0 || p > 1) {
				return fmt.Errorf("%s: chance %v not allowed", e.Kind, p)
			}
			if e.Scope != EffectScopeAll && scope == ScopeGlobal {
				return fmt.Errorf("%s needs scope %q in a global event", e.Kind, EffectScopeAll)
			}
			if e.Scope != "" && e.Scope != EffectScopeTarget && e.Scope != EffectScopeAll {
				return fmt.Errorf("%s: bad scope %q", e.Kind, e.Scope)
			}
		case EffectChance:
			p, ok := e.Probability()
			if !ok {
				return fmt.Errorf("chance effect without chance")
			}
			if p < 0 || p > 1 {
				return fmt.Errorf("chance out of [0,1]: %v", p)
			}
			if err := checkEffects(e.Then, scope); err != nil {
				return err
			}
			if err := checkEffects(e.Else, scope); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown effect kind %q", e.Kind)
		}
	}
	return nil
}

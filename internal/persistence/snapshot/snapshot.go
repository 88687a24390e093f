package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"estateempire.io/internal/sim/state"
)

const Version = 1

// ErrCorrupt wraps every failure to turn file bytes into a valid world.
var ErrCorrupt = errors.New("snapshot: corrupt save")

type Header struct {
	Version int     `json:"version"`
	Slot    int     `json:"slot"`
	Day     int     `json:"day"`
	Money   float64 `json:"money"`
	Level   int     `json:"level"`
	SavedAt int64   `json:"saved_at"` // unix ms
	SaveID  string  `json:"save_id"`
}

// SaveV1 is the stored form of a world. Pending prompts (events, level-up
// acknowledgements) are not part of it and a loaded game always starts paused.
type SaveV1 struct {
	Header Header `json:"header"`

	Money         float64 `json:"money"`
	Reputation    float64 `json:"reputation"`
	Day           int     `json:"day"`
	Level         int     `json:"level"`
	XP            int     `json:"xp"`
	XPToNextLevel int     `json:"xp_to_next_level"`

	UnlockedDistricts []string     `json:"unlocked_districts"`
	Properties        []PropertyV1 `json:"properties"`

	// CatalogDigests records the catalogs the save was made with.
	CatalogDigests map[string]string `json:"catalog_digests,omitempty"`
}

type PropertyV1 struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	District     string  `json:"district"`
	PurchaseCost float64 `json:"purchase_cost"`
	Owned        bool    `json:"owned"`
	Building     string  `json:"building"`

	RentMode           string `json:"rent_mode"`
	TenantName         string `json:"tenant_name,omitempty"`
	TenantStayDuration int    `json:"tenant_stay_duration,omitempty"`
	LastRentPaidDay    int    `json:"last_rent_paid_day,omitempty"`

	Condition float64     `json:"condition"`
	Tier      int         `json:"tier"`
	Amenities []AmenityV1 `json:"amenities"`
}

type AmenityV1 struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Level       int     `json:"level"`
	BaseCost    float64 `json:"base_cost"`
	BaseUpkeep  float64 `json:"base_upkeep"`
	BaseComfort float64 `json:"base_comfort"`
	UnlockLevel int     `json:"unlock_level"`
}

// FromWorld captures w. Any pending local event's block on its property is
// released, matching the dropped event.
func FromWorld(w *state.World, h Header) SaveV1 {
	h.Version = Version
	h.Day = w.Day
	h.Money = w.Money
	h.Level = w.Level
	s := SaveV1{
		Header:            h,
		Money:             w.Money,
		Reputation:        w.Reputation,
		Day:               w.Day,
		Level:             w.Level,
		XP:                w.XP,
		XPToNextLevel:     w.XPToNextLevel,
		UnlockedDistricts: append([]string(nil), w.UnlockedDistricts...),
		Properties:        make([]PropertyV1, 0, len(w.Properties)),
	}
	for _, p := range w.Properties {
		pv := PropertyV1{
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
			Amenities:          make([]AmenityV1, 0, len(p.Amenities)),
		}
		for _, a := range p.Amenities {
			pv.Amenities = append(pv.Amenities, AmenityV1(a))
		}
		s.Properties = append(s.Properties, pv)
	}
	return s
}

// World rebuilds a paused world from s.
func (s SaveV1) World() *state.World {
	w := &state.World{
		Money:             s.Money,
		Reputation:        s.Reputation,
		Day:               s.Day,
		Level:             s.Level,
		XP:                s.XP,
		XPToNextLevel:     s.XPToNextLevel,
		UnlockedDistricts: append([]string(nil), s.UnlockedDistricts...),
		Properties:        make([]state.Property, 0, len(s.Properties)),
	}
	for _, pv := range s.Properties {
		p := state.Property{
			ID:                 pv.ID,
			Name:               pv.Name,
			District:           pv.District,
			PurchaseCost:       pv.PurchaseCost,
			Owned:              pv.Owned,
			Building:           state.Building(pv.Building),
			RentMode:           state.RentMode(pv.RentMode),
			TenantName:         pv.TenantName,
			TenantStayDuration: pv.TenantStayDuration,
			LastRentPaidDay:    pv.LastRentPaidDay,
			Condition:          pv.Condition,
			Tier:               pv.Tier,
			Amenities:          make([]state.Amenity, 0, len(pv.Amenities)),
		}
		for _, a := range pv.Amenities {
			p.Amenities = append(p.Amenities, state.Amenity(a))
		}
		w.Properties = append(w.Properties, p)
	}
	return w
}

// Validate checks s against the world invariants. ceilings are the per-tier amenity caps.
func (s SaveV1) Validate(ceilings []int) error {
	if s.Header.Version != Version {
		return fmt.Errorf("%w: version %d", ErrCorrupt, s.Header.Version)
	}
	if s.Header.Day != s.Day || s.Header.Level != s.Level {
		return fmt.Errorf("%w: header does not match body", ErrCorrupt)
	}
	if err := s.World().Validate(ceilings); err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return nil
}

func Encode(out io.Writer, s SaveV1) error {
	enc, err := zstd.NewWriter(out, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 64*1024)

	hb, _ := json.Marshal(s.Header)
	if _, err := bw.Write(hb); err != nil {
		_ = enc.Close()
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		_ = enc.Close()
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&s); err != nil {
		_ = enc.Close()
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

func Decode(in io.Reader) (SaveV1, error) {
	var s SaveV1
	dec, err := zstd.NewReader(in)
	if err != nil {
		return s, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 64*1024)
	line, err := br.ReadBytes('\n')
	if err != nil {
		return s, fmt.Errorf("%w: header: %v", ErrCorrupt, err)
	}
	var h Header
	if err := json.Unmarshal(line, &h); err != nil {
		return s, fmt.Errorf("%w: header: %v", ErrCorrupt, err)
	}
	if h.Version != Version {
		return s, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, h.Version)
	}
	if err := gob.NewDecoder(br).Decode(&s); err != nil {
		return s, fmt.Errorf("%w: gob decode: %v", ErrCorrupt, err)
	}
	if s.Header != h {
		return s, fmt.Errorf("%w: header mismatch", ErrCorrupt)
	}
	return s, nil
}

// Write stores s at path. The file is replaced atomically so a crash mid-write
// leaves the previous save intact.
func Write(path string, s SaveV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := Encode(tmp, s); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Read decodes the save at path without checking world invariants.
// A missing file is reported as is, not as corruption.
func Read(path string) (SaveV1, error) {
	f, err := os.Open(path)
	if err != nil {
		return SaveV1{}, err
	}
	defer f.Close()
	return Decode(f)
}

// ReadHeader decodes only the first line of the save at path.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("%w: header: %v", ErrCorrupt, err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("%w: header: %v", ErrCorrupt, err)
	}
	return h, nil
}

// Load reads and fully validates the save at path.
func Load(path string, ceilings []int) (*state.World, Header, error) {
	s, err := Read(path)
	if err != nil {
		return nil, Header{}, err
	}
	if err := s.Validate(ceilings); err != nil {
		return nil, s.Header, err
	}
	return s.World(), s.Header, nil
}

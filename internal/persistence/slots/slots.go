// Package slots stores numbered save games on disk: a zstd save file plus a
// small JSON meta sidecar per slot, so slot pickers never decode whole saves.
package slots

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"estateempire.io/internal/persistence/snapshot"
	"estateempire.io/internal/sim/catalogs"
	"estateempire.io/internal/sim/state"
)

var (
	ErrEmptySlot = errors.New("slots: empty slot")
	ErrBadSlot   = errors.New("slots: slot out of range")
)

type Meta struct {
	Slot      int     `json:"slot"`
	Day       int     `json:"day"`
	Money     float64 `json:"money"`
	Level     int     `json:"level"`
	Timestamp int64   `json:"timestamp"` // unix ms
	SaveID    string  `json:"save_id,omitempty"`
}

// Saved describes a completed write. Paths are absolute or relative to the process cwd.
type Saved struct {
	Meta     Meta
	SavePath string
	MetaPath string
}

type Options struct {
	Slots    int
	Ceilings []int

	// Catalogs, when set, rejects saves naming districts or amenities they do not define.
	Catalogs *catalogs.Catalogs

	// CatalogDigests are stamped into every save.
	CatalogDigests map[string]string

	Clock func() time.Time

	// OnSaved runs after both files are on disk. It must not block.
	OnSaved func(Saved)
}

type Store struct {
	dir  string
	opts Options

	mu sync.Mutex
}

func New(dir string, opts Options) *Store {
	if opts.Slots <= 0 {
		opts.Slots = 3
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Store{dir: dir, opts: opts}
}

func (s *Store) Dir() string { return s.dir }
func (s *Store) Slots() int  { return s.opts.Slots }

func (s *Store) SavePath(slot int) string {
	return filepath.Join(s.dir, fmt.Sprintf("slot_%d.save.zst", slot))
}

func (s *Store) MetaPath(slot int) string {
	return filepath.Join(s.dir, fmt.Sprintf("slot_%d.meta.json", slot))
}

func (s *Store) check(slot int) error {
	if slot < 1 || slot > s.opts.Slots {
		return fmt.Errorf("%w: %d", ErrBadSlot, slot)
	}
	return nil
}

// Save writes w to slot, replacing whatever was there.
func (s *Store) Save(slot int, w *state.World) (Meta, error) {
	if err := s.check(slot); err != nil {
		return Meta{}, err
	}
	now := s.opts.Clock()
	save := snapshot.FromWorld(w, snapshot.Header{
		Slot:    slot,
		SavedAt: now.UnixMilli(),
		SaveID:  uuid.NewString(),
	})
	save.CatalogDigests = s.opts.CatalogDigests
	meta := Meta{
		Slot:      slot,
		Day:       save.Day,
		Money:     save.Money,
		Level:     save.Level,
		Timestamp: save.Header.SavedAt,
		SaveID:    save.Header.SaveID,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := snapshot.Write(s.SavePath(slot), save); err != nil {
		return Meta{}, fmt.Errorf("write save: %w", err)
	}
	if err := writeMeta(s.MetaPath(slot), meta); err != nil {
		return Meta{}, fmt.Errorf("write meta: %w", err)
	}
	if s.opts.OnSaved != nil {
		s.opts.OnSaved(Saved{Meta: meta, SavePath: s.SavePath(slot), MetaPath: s.MetaPath(slot)})
	}
	return meta, nil
}

// Load returns the paused world stored in slot. It never returns a partially
// valid world: any decode or invariant failure is snapshot.ErrCorrupt.
func (s *Store) Load(slot int) (*state.World, Meta, error) {
	if err := s.check(slot); err != nil {
		return nil, Meta{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	w, h, err := snapshot.Load(s.SavePath(slot), s.opts.Ceilings)
	if errors.Is(err, os.ErrNotExist) {
		return nil, Meta{}, fmt.Errorf("%w: %d", ErrEmptySlot, slot)
	}
	if err != nil {
		return nil, Meta{}, err
	}
	if h.Slot != slot {
		return nil, Meta{}, fmt.Errorf("%w: save belongs to slot %d", snapshot.ErrCorrupt, h.Slot)
	}
	if err := knownIDs(w, s.opts.Catalogs); err != nil {
		return nil, Meta{}, fmt.Errorf("%w: %v", snapshot.ErrCorrupt, err)
	}
	return w, metaFromHeader(h), nil
}

func knownIDs(w *state.World, cats *catalogs.Catalogs) error {
	if cats == nil {
		return nil
	}
	for _, d := range w.UnlockedDistricts {
		if _, ok := cats.Districts.ByID[d]; !ok {
			return fmt.Errorf("unknown district %q", d)
		}
	}
	for i := range w.Properties {
		p := &w.Properties[i]
		if _, ok := cats.Districts.ByID[p.District]; !ok {
			return fmt.Errorf("%s: unknown district %q", p.ID, p.District)
		}
		for _, a := range p.Amenities {
			if _, ok := cats.Amenities.ByID[a.ID]; !ok {
				return fmt.Errorf("%s: unknown amenity %q", p.ID, a.ID)
			}
		}
	}
	return nil
}

// Meta reads the slot summary, falling back to the save header when the
// sidecar is missing or unreadable.
func (s *Store) Meta(slot int) (Meta, error) {
	if err := s.check(slot); err != nil {
		return Meta{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if m, err := readMeta(s.MetaPath(slot)); err == nil && m.Slot == slot {
		return m, nil
	}
	h, err := snapshot.ReadHeader(s.SavePath(slot))
	if errors.Is(err, os.ErrNotExist) {
		return Meta{}, fmt.Errorf("%w: %d", ErrEmptySlot, slot)
	}
	if err != nil {
		return Meta{}, err
	}
	return metaFromHeader(h), nil
}

// SlotInfo is one row of List. Meta is nil for an empty slot.
type SlotInfo struct {
	Slot int    `json:"slot"`
	Meta *Meta  `json:"meta,omitempty"`
	Err  string `json:"error,omitempty"`
}

func (s *Store) List() []SlotInfo {
	out := make([]SlotInfo, 0, s.opts.Slots)
	for i := 1; i <= s.opts.Slots; i++ {
		info := SlotInfo{Slot: i}
		m, err := s.Meta(i)
		switch {
		case err == nil:
			info.Meta = &m
		case errors.Is(err, ErrEmptySlot):
		default:
			info.Err = err.Error()
		}
		out = append(out, info)
	}
	return out
}

func (s *Store) Delete(slot int) error {
	if err := s.check(slot); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	err1 := os.Remove(s.SavePath(slot))
	err2 := os.Remove(s.MetaPath(slot))
	if errors.Is(err1, os.ErrNotExist) && errors.Is(err2, os.ErrNotExist) {
		return fmt.Errorf("%w: %d", ErrEmptySlot, slot)
	}
	for _, err := range []error{err1, err2} {
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

func metaFromHeader(h snapshot.Header) Meta {
	return Meta{Slot: h.Slot, Day: h.Day, Money: h.Money, Level: h.Level, Timestamp: h.SavedAt, SaveID: h.SaveID}
}

func writeMeta(path string, m Meta) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func readMeta(path string) (Meta, error) {
	var m Meta
	b, err := os.ReadFile(path)
	if err != nil {
		return m, err
	}
	err = json.Unmarshal(b, &m)
	return m, err
}

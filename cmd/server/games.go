package main

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"estateempire.io/internal/persistence/slots"
	"estateempire.io/internal/sim/engine"
	"estateempire.io/internal/sim/rng"
	"estateempire.io/internal/sim/state"
	"estateempire.io/internal/sim/worldgen"
)

// games implements ws.Games and the autosave loop on top of one driver and
// one slot store. The active slot is where autosave writes.
type games struct {
	drv   *engine.Driver
	store *slots.Store
	log   *log.Logger
	now   func() time.Time

	mu         sync.Mutex
	slot       int
	lastDigest string
}

func newGames(drv *engine.Driver, store *slots.Store, slot int, logger *log.Logger) *games {
	return &games{drv: drv, store: store, slot: slot, log: logger, now: time.Now}
}

func (g *games) ActiveSlot() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.slot
}

func (g *games) Save(_ context.Context, slot int) (slots.Meta, error) {
	w := g.drv.Latest()
	meta, err := g.store.Save(slot, w)
	if err != nil {
		return slots.Meta{}, err
	}
	g.mu.Lock()
	g.slot = slot
	g.lastDigest = w.Digest()
	g.mu.Unlock()
	return meta, nil
}

// Load replaces the running game only after the save decoded and validated.
func (g *games) Load(ctx context.Context, slot int) error {
	w, meta, err := g.store.Load(slot)
	if err != nil {
		return err
	}
	if err := g.drv.Replace(ctx, w, fmt.Sprintf("Loaded slot %d, day %d.", meta.Slot, meta.Day)); err != nil {
		return err
	}
	g.mu.Lock()
	g.slot = slot
	g.lastDigest = w.Digest()
	g.mu.Unlock()
	g.printf("loaded slot=%d day=%d save_id=%s", meta.Slot, meta.Day, meta.SaveID)
	return nil
}

// NewGame starts over in the active slot. seed 0 picks one from the clock.
func (g *games) NewGame(ctx context.Context, seed uint64) error {
	if seed == 0 {
		seed = uint64(g.now().UnixNano())
	}
	eng := g.drv.Engine()
	w := worldgen.New(eng.Tuning(), eng.Catalogs(), rng.New(seed))
	if err := g.drv.Replace(ctx, w, fmt.Sprintf("New game started (seed %d).", seed)); err != nil {
		return err
	}
	g.mu.Lock()
	g.lastDigest = ""
	g.mu.Unlock()
	g.printf("new game seed=%d", seed)
	return nil
}

// Autosave writes the latest world to the active slot unless nothing changed
// since the last save.
func (g *games) Autosave() (slots.Meta, bool, error) {
	w := g.drv.Latest()
	digest := w.Digest()

	g.mu.Lock()
	slot := g.slot
	unchanged := digest == g.lastDigest
	g.mu.Unlock()
	if unchanged || !active(w) {
		return slots.Meta{}, false, nil
	}

	meta, err := g.store.Save(slot, w)
	if err != nil {
		return slots.Meta{}, false, err
	}
	g.mu.Lock()
	g.lastDigest = digest
	g.mu.Unlock()
	return meta, true, nil
}

// active is false for a world nobody has touched yet.
func active(w *state.World) bool {
	return w.Day > 1 || w.OwnedCount() > 0
}

func (g *games) runAutosave(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			if meta, ok, err := g.Autosave(); err != nil {
				g.printf("final autosave err=%v", err)
			} else if ok {
				g.printf("final autosave slot=%d day=%d", meta.Slot, meta.Day)
			}
			return
		case <-t.C:
			if _, _, err := g.Autosave(); err != nil {
				g.printf("autosave slot=%d err=%v", g.ActiveSlot(), err)
			}
		}
	}
}

func (g *games) printf(format string, args ...any) {
	if g.log != nil {
		g.log.Printf(format, args...)
	}
}

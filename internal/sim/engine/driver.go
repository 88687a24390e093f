package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"estateempire.io/internal/sim/rng"
	"estateempire.io/internal/sim/state"
)

var ErrStopped = errors.New("engine: driver stopped")

type DayLogger interface {
	WriteDay(entry DayLogEntry) error
}

type ActionLogger interface {
	WriteAction(entry ActionLogEntry) error
}

type DayLogEntry struct {
	Day        int     `json:"day"`
	Money      float64 `json:"money"`
	Reputation float64 `json:"reputation"`
	Level      int     `json:"level"`
	XP         int     `json:"xp"`

	Income      float64 `json:"income"`
	Upkeep      float64 `json:"upkeep"`
	Arrivals    int     `json:"arrivals,omitempty"`
	Departures  int     `json:"departures,omitempty"`
	Collections int     `json:"collections,omitempty"`
	Penalties   int     `json:"penalties,omitempty"`
	Decays      int     `json:"decays,omitempty"`

	LevelsGained int    `json:"levels_gained,omitempty"`
	EventID      string `json:"event_id,omitempty"`
	Digest       string `json:"digest"`
}

// ActionLogEntry records one action in the order the driver applied it.
// Day is the world day the action landed on, before the next Step.
type ActionLogEntry struct {
	Seq     uint64  `json:"seq"`
	Day     int     `json:"day"`
	Action  Action  `json:"action"`
	Outcome Outcome `json:"outcome"`
	Digest  string  `json:"digest"`
}

type DriverConfig struct {
	// TickInterval is the wall time of one day at time scale 1.
	TickInterval time.Duration

	// Rand is shared by days and actions. Nil seeds from the clock.
	Rand rng.Source

	DayLogger    DayLogger
	ActionLogger ActionLogger

	Clock func() time.Time
}

// Update is pushed to subscribers after every change to the published world.
type Update struct {
	World     *state.World
	CashFlow  float64
	ModalOpen bool

	Report  *DayReport
	Action  *Action
	Outcome *Outcome
	Notices []Notice
}

type DriverMetrics struct {
	Day           int     `json:"day"`
	Money         float64 `json:"money"`
	Reputation    float64 `json:"reputation"`
	Level         int     `json:"level"`
	Owned         int     `json:"owned"`
	Occupied      int     `json:"occupied"`
	TimeScale     float64 `json:"time_scale"`
	Suspended     bool    `json:"suspended"`
	ModalOpen     bool    `json:"modal_open"`
	ActiveEventID string  `json:"active_event_id,omitempty"`
	CashFlow      float64 `json:"cash_flow"`

	DaysTotal     uint64 `json:"days_total"`
	ActionsTotal  uint64 `json:"actions_total"`
	RejectedTotal uint64 `json:"rejected_total"`
	Subscribers   int    `json:"subscribers"`

	StepMS float64 `json:"step_ms"`
}

type actReq struct {
	Action Action
	Resp   chan Outcome
}

type replaceReq struct {
	World *state.World
	Note  string
	Resp  chan struct{}
}

type modalReq struct {
	Open bool
	Resp chan struct{}
}

// Driver owns a world and advances it on a wall clock. All mutation happens on
// the Run goroutine; other goroutines talk to it through request channels and
// read the immutable world published by Latest.
type Driver struct {
	eng *Engine
	cfg DriverConfig
	r   rng.Source

	// Loop goroutine only.
	world     *state.World
	modalOpen bool
	seq       uint64
	days      uint64
	actions   uint64
	rejected  uint64
	stepMS    float64

	acts    chan actReq
	replace chan replaceReq
	modal   chan modalReq
	stop    chan struct{}
	stopped sync.Once

	latest  atomic.Pointer[state.World]
	metrics atomic.Value

	subMu   sync.Mutex
	subs    map[uint64]chan Update
	nextSub uint64
}

func NewDriver(eng *Engine, w *state.World, cfg DriverConfig) *Driver {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Duration(eng.tune.TickIntervalMs) * time.Millisecond
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Rand == nil {
		cfg.Rand = rng.New(uint64(cfg.Clock().UnixNano()))
	}
	d := &Driver{
		eng:     eng,
		cfg:     cfg,
		r:       cfg.Rand,
		world:   w,
		acts:    make(chan actReq, 64),
		replace: make(chan replaceReq, 1),
		modal:   make(chan modalReq, 8),
		stop:    make(chan struct{}),
		subs:    map[uint64]chan Update{},
	}
	d.latest.Store(w)
	d.publishMetrics()
	return d
}

func (d *Driver) Engine() *Engine { return d.eng }

// Latest returns the most recently published world. Callers must not modify it.
func (d *Driver) Latest() *state.World { return d.latest.Load() }

// Run owns the world until ctx is done or Stop is called. Once it returns,
// pending and later requests fail with ErrStopped.
func (d *Driver) Run(ctx context.Context) error {
	defer d.Stop()
	cur := d.interval()
	ticker := time.NewTicker(cur)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.stop:
			return nil
		case req := <-d.acts:
			req.Resp <- d.ApplyOnce(req.Action)
		case req := <-d.modal:
			d.modalOpen = req.Open
			d.publishMetrics()
			close(req.Resp)
		case req := <-d.replace:
			d.handleReplace(req)
		case <-ticker.C:
			d.tick()
		}
		if iv := d.interval(); iv != cur {
			cur = iv
			ticker.Reset(cur)
		}
	}
}

func (d *Driver) Stop() { d.stopped.Do(func() { close(d.stop) }) }

// interval is the wall time per day at the current time scale. A paused world
// still ticks at the base rate so metrics stay fresh.
func (d *Driver) interval() time.Duration {
	base := d.cfg.TickInterval
	if d.world.TimeScale <= 0 {
		return base
	}
	iv := time.Duration(float64(base) / d.world.TimeScale)
	if iv < time.Millisecond {
		iv = time.Millisecond
	}
	return iv
}

func (d *Driver) tick() {
	if d.modalOpen || d.world.Suspended() {
		return
	}
	d.StepOnce()
}

// StepOnce advances one day regardless of modal state, using the same path as
// the clock. Intended for tests and headless runs; never call it concurrently with Run.
func (d *Driver) StepOnce() DayReport {
	start := time.Now()
	next, rep := d.eng.Step(d.world, d.r)
	d.stepMS = float64(time.Since(start).Microseconds()) / 1000
	if !rep.Advanced {
		return rep
	}
	d.world = next
	d.days++

	if d.cfg.DayLogger != nil {
		_ = d.cfg.DayLogger.WriteDay(dayLogEntry(next, rep))
	}
	d.publish(Update{Report: &rep, Notices: dayNotices(rep, d.cfg.Clock())})
	return rep
}

// ApplyOnce applies a synchronously. Same goroutine rules as StepOnce.
func (d *Driver) ApplyOnce(a Action) Outcome {
	next, out := d.eng.Apply(d.world, a, d.r)
	d.seq++
	d.actions++
	if out.Applied {
		d.world = next
	} else {
		d.rejected++
	}
	if d.cfg.ActionLogger != nil {
		_ = d.cfg.ActionLogger.WriteAction(ActionLogEntry{
			Seq:     d.seq,
			Day:     d.world.Day,
			Action:  a,
			Outcome: out,
			Digest:  d.world.Digest(),
		})
	}
	d.publish(Update{Action: &a, Outcome: &out, Notices: actionNotices(a, out, d.cfg.Clock())})
	return out
}

func (d *Driver) handleReplace(req replaceReq) {
	d.world = req.World
	d.modalOpen = false
	var ns []Notice
	if req.Note != "" {
		ns = append(ns, newNotice(d.cfg.Clock(), NoticeInfo, "Game Loaded", req.Note))
	}
	d.publish(Update{Notices: ns})
	close(req.Resp)
}

// Do submits a to the loop and waits for its outcome.
// It is safe to call from other goroutines (e.g. websocket sessions).
func (d *Driver) Do(ctx context.Context, a Action) (Outcome, error) {
	resp := make(chan Outcome, 1)
	select {
	case d.acts <- actReq{Action: a, Resp: resp}:
	case <-d.stop:
		return Outcome{}, ErrStopped
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
	select {
	case out := <-resp:
		return out, nil
	case <-d.stop:
		return Outcome{}, ErrStopped
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// SetModalOpen holds the clock while a UI modal is up. It does not touch the world.
func (d *Driver) SetModalOpen(ctx context.Context, open bool) error {
	resp := make(chan struct{})
	select {
	case d.modal <- modalReq{Open: open, Resp: resp}:
	case <-d.stop:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	return d.await(ctx, resp)
}

// Replace swaps in w, typically a freshly loaded save. w is owned by the driver afterwards.
func (d *Driver) Replace(ctx context.Context, w *state.World, note string) error {
	resp := make(chan struct{})
	select {
	case d.replace <- replaceReq{World: w, Note: note, Resp: resp}:
	case <-d.stop:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	return d.await(ctx, resp)
}

func (d *Driver) await(ctx context.Context, resp chan struct{}) error {
	select {
	case <-resp:
		return nil
	case <-d.stop:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe registers for updates. Slow subscribers lose the oldest pending
// update rather than stalling the loop. Call cancel to unsubscribe.
func (d *Driver) Subscribe() (<-chan Update, func()) {
	ch := make(chan Update, 16)
	d.subMu.Lock()
	id := d.nextSub
	d.nextSub++
	d.subs[id] = ch
	d.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			d.subMu.Lock()
			delete(d.subs, id)
			d.subMu.Unlock()
		})
	}
}

func (d *Driver) publish(u Update) {
	d.latest.Store(d.world)
	d.publishMetrics()

	u.World = d.world
	u.CashFlow = d.eng.DailyCashFlow(d.world)
	u.ModalOpen = d.modalOpen

	d.subMu.Lock()
	defer d.subMu.Unlock()
	for _, ch := range d.subs {
		sendLatest(ch, u)
	}
}

func sendLatest(ch chan Update, u Update) {
	select {
	case ch <- u:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- u:
	default:
	}
}

func (d *Driver) Metrics() DriverMetrics {
	v := d.metrics.Load()
	if v == nil {
		return DriverMetrics{}
	}
	m, _ := v.(DriverMetrics)
	return m
}

func (d *Driver) publishMetrics() {
	w := d.world
	m := DriverMetrics{
		Day:           w.Day,
		Money:         w.Money,
		Reputation:    w.Reputation,
		Level:         w.Level,
		Owned:         w.OwnedCount(),
		TimeScale:     w.TimeScale,
		Suspended:     w.Suspended(),
		ModalOpen:     d.modalOpen,
		CashFlow:      d.eng.DailyCashFlow(w),
		DaysTotal:     d.days,
		ActionsTotal:  d.actions,
		RejectedTotal: d.rejected,
		StepMS:        d.stepMS,
	}
	for i := range w.Properties {
		if w.Properties[i].Owned && w.Properties[i].Occupied() {
			m.Occupied++
		}
	}
	if w.ActiveEvent != nil {
		m.ActiveEventID = w.ActiveEvent.ID
	}
	d.subMu.Lock()
	m.Subscribers = len(d.subs)
	d.subMu.Unlock()
	d.metrics.Store(m)
}

func dayLogEntry(w *state.World, rep DayReport) DayLogEntry {
	e := DayLogEntry{
		Day:          w.Day,
		Money:        w.Money,
		Reputation:   w.Reputation,
		Level:        w.Level,
		XP:           w.XP,
		Income:       rep.Income,
		Upkeep:       rep.Upkeep,
		Arrivals:     rep.Arrivals,
		Departures:   rep.Departures,
		Collections:  rep.Collections,
		Penalties:    rep.Penalties,
		Decays:       rep.Decays,
		LevelsGained: rep.LevelsGained,
		Digest:       w.Digest(),
	}
	if rep.Event != nil {
		e.EventID = rep.Event.ID
	}
	return e
}

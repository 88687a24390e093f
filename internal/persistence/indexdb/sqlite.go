package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"estateempire.io/internal/persistence/slots"
	"estateempire.io/internal/sim/catalogs"
	"estateempire.io/internal/sim/engine"
	"estateempire.io/internal/sim/tuning"
)

// SQLiteIndex is a queryable secondary copy of the day and action logs plus
// the slot table. Writes are queued to one goroutine and dropped under
// backpressure; the JSONL logs and save files stay authoritative.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropDay    atomic.Uint64
	dropAction atomic.Uint64
	dropSlot   atomic.Uint64
}

type reqKind int

const (
	reqDay reqKind = iota + 1
	reqAction
	reqSlot
	reqSlotDelete
)

type req struct {
	kind reqKind

	day    engine.DayLogEntry
	action engine.ActionLogEntry
	slot   slots.Saved
	slotID int

	done chan struct{}
}

type Stats struct {
	QueueDepth      int    `json:"queue_depth"`
	QueueCapacity   int    `json:"queue_capacity"`
	DropDayTotal    uint64 `json:"drop_day_total"`
	DropActionTotal uint64 `json:"drop_action_total"`
	DropSlotTotal   uint64 `json:"drop_slot_total"`
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{db: db, ch: make(chan req, 8192)}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS slots (
			slot INTEGER PRIMARY KEY,
			day INTEGER NOT NULL,
			money REAL NOT NULL,
			level INTEGER NOT NULL,
			saved_at INTEGER NOT NULL,
			save_id TEXT NOT NULL,
			path TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS days (
			day INTEGER PRIMARY KEY,
			money REAL NOT NULL,
			reputation REAL NOT NULL,
			level INTEGER NOT NULL,
			income REAL NOT NULL,
			upkeep REAL NOT NULL,
			arrivals INTEGER NOT NULL,
			departures INTEGER NOT NULL,
			event_id TEXT,
			digest TEXT NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS actions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			day INTEGER NOT NULL,
			kind TEXT NOT NULL,
			property_id TEXT,
			applied INTEGER NOT NULL,
			reason TEXT,
			cost REAL NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_actions_property_day ON actions(property_id, day);`,
		`CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			day INTEGER NOT NULL,
			event_id TEXT NOT NULL,
			phase TEXT NOT NULL,
			option INTEGER
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_event_id ON events(event_id);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) DB() *sql.DB { return s.db }

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:      len(s.ch),
		QueueCapacity:   cap(s.ch),
		DropDayTotal:    s.dropDay.Load(),
		DropActionTotal: s.dropAction.Load(),
		DropSlotTotal:   s.dropSlot.Load(),
	}
}

func (s *SQLiteIndex) enqueue(r req, drops *atomic.Uint64) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- r:
	default:
		drops.Add(1)
	}
}

func (s *SQLiteIndex) WriteDay(entry engine.DayLogEntry) error {
	s.enqueue(req{kind: reqDay, day: entry}, &s.dropDay)
	return nil
}

func (s *SQLiteIndex) WriteAction(entry engine.ActionLogEntry) error {
	s.enqueue(req{kind: reqAction, action: entry}, &s.dropAction)
	return nil
}

// RecordSave matches slots.Options.OnSaved.
func (s *SQLiteIndex) RecordSave(sv slots.Saved) {
	s.enqueue(req{kind: reqSlot, slot: sv}, &s.dropSlot)
}

func (s *SQLiteIndex) ForgetSlot(slot int) {
	s.enqueue(req{kind: reqSlotDelete, slotID: slot}, &s.dropSlot)
}

// Flush blocks until everything queued before the call is committed.
func (s *SQLiteIndex) Flush(ctx context.Context) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	done := make(chan struct{})
	select {
	case s.ch <- req{done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// UpsertCatalogs stores the catalogs and tuning the process runs with.
func (s *SQLiteIndex) UpsertCatalogs(cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	add := func(name, digest string, v any) {
		b, err := json.Marshal(v)
		if err != nil || len(b) == 0 {
			return
		}
		if digest == "" {
			sum := sha256.Sum256(b)
			digest = hex.EncodeToString(sum[:])
		}
		rows = append(rows, kv{name: name, digest: digest, json: b})
	}
	add("amenities", cats.Amenities.Digest, cats.Amenities.Defs)
	add("districts", cats.Districts.Digest, cats.Districts.Defs)
	add("tenants", cats.Tenants.Digest, cats.Tenants.Names)
	evs := append(append([]catalogs.EventTemplate(nil), cats.Events.Global...), cats.Events.Local...)
	add("events", cats.Events.Digest, evs)
	add("tuning", "", tune)

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for r := range s.ch {
		if r.done != nil {
			commit()
			close(r.done)
			continue
		}
		begin()
		if tx == nil {
			continue
		}
		if err := s.apply(tx, r); err != nil {
			rollback()
			continue
		}
		opCount++
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}
	commit()
}

func (s *SQLiteIndex) apply(tx *sql.Tx, r req) error {
	switch r.kind {
	case reqDay:
		d := r.day
		raw, _ := json.Marshal(d)
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO days(day,money,reputation,level,income,upkeep,arrivals,departures,event_id,digest,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?,?)`,
			d.Day, d.Money, d.Reputation, d.Level, d.Income, d.Upkeep, d.Arrivals, d.Departures, nullable(d.EventID), d.Digest, string(raw),
		); err != nil {
			return err
		}
		if d.EventID != "" {
			if _, err := tx.Exec(`INSERT INTO events(day,event_id,phase,option) VALUES(?,?,'injected',NULL)`, d.Day, d.EventID); err != nil {
				return err
			}
		}

	case reqAction:
		a := r.action
		raw, _ := json.Marshal(a)
		if _, err := tx.Exec(
			`INSERT INTO actions(day,kind,property_id,applied,reason,cost,raw_json) VALUES(?,?,?,?,?,?,?)`,
			a.Day, string(a.Action.Kind), nullable(a.Action.PropertyID), a.Outcome.Applied, nullable(a.Outcome.Reason), a.Outcome.Cost, string(raw),
		); err != nil {
			return err
		}
		if a.Action.Kind == engine.ActResolveEvent && a.Outcome.Applied {
			if _, err := tx.Exec(`INSERT INTO events(day,event_id,phase,option) VALUES(?,?,'resolved',?)`, a.Day, a.Outcome.EventID, a.Action.Option); err != nil {
				return err
			}
		}

	case reqSlot:
		m := r.slot.Meta
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO slots(slot,day,money,level,saved_at,save_id,path) VALUES(?,?,?,?,?,?,?)`,
			m.Slot, m.Day, m.Money, m.Level, m.Timestamp, m.SaveID, r.slot.SavePath,
		); err != nil {
			return err
		}

	case reqSlotDelete:
		if _, err := tx.Exec(`DELETE FROM slots WHERE slot=?`, r.slotID); err != nil {
			return err
		}
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

package indexdb

import (
	"context"
	"database/sql"
)

type SlotRow struct {
	Slot    int     `json:"slot"`
	Day     int     `json:"day"`
	Money   float64 `json:"money"`
	Level   int     `json:"level"`
	SavedAt int64   `json:"saved_at"`
	SaveID  string  `json:"save_id"`
	Path    string  `json:"path"`
}

type DayRow struct {
	Day        int     `json:"day"`
	Money      float64 `json:"money"`
	Reputation float64 `json:"reputation"`
	Level      int     `json:"level"`
	Income     float64 `json:"income"`
	Upkeep     float64 `json:"upkeep"`
	Arrivals   int     `json:"arrivals"`
	Departures int     `json:"departures"`
	EventID    string  `json:"event_id,omitempty"`
	Digest     string  `json:"digest"`
}

type ActionRow struct {
	Day        int     `json:"day"`
	Kind       string  `json:"kind"`
	PropertyID string  `json:"property_id,omitempty"`
	Applied    bool    `json:"applied"`
	Reason     string  `json:"reason,omitempty"`
	Cost       float64 `json:"cost"`
}

type EventRow struct {
	Day     int    `json:"day"`
	EventID string `json:"event_id"`
	Phase   string `json:"phase"`
	Option  *int   `json:"option,omitempty"`
}

// The query helpers take a plain *sql.DB so cmd/admin can use them on a
// database opened read-only, without starting a writer.

func QuerySlots(ctx context.Context, db *sql.DB) ([]SlotRow, error) {
	rows, err := db.QueryContext(ctx, `SELECT slot,day,money,level,saved_at,save_id,path FROM slots ORDER BY slot`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SlotRow
	for rows.Next() {
		var r SlotRow
		if err := rows.Scan(&r.Slot, &r.Day, &r.Money, &r.Level, &r.SavedAt, &r.SaveID, &r.Path); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// QueryDays returns the most recent days first.
func QueryDays(ctx context.Context, db *sql.DB, limit int) ([]DayRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.QueryContext(ctx, `SELECT day,money,reputation,level,income,upkeep,arrivals,departures,COALESCE(event_id,''),digest FROM days ORDER BY day DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []DayRow
	for rows.Next() {
		var r DayRow
		if err := rows.Scan(&r.Day, &r.Money, &r.Reputation, &r.Level, &r.Income, &r.Upkeep, &r.Arrivals, &r.Departures, &r.EventID, &r.Digest); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func QueryEvents(ctx context.Context, db *sql.DB, limit int) ([]EventRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.QueryContext(ctx, `SELECT day,event_id,phase,option FROM events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []EventRow
	for rows.Next() {
		var (
			r   EventRow
			opt sql.NullInt64
		)
		if err := rows.Scan(&r.Day, &r.EventID, &r.Phase, &opt); err != nil {
			return nil, err
		}
		if opt.Valid {
			v := int(opt.Int64)
			r.Option = &v
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func QueryActions(ctx context.Context, db *sql.DB, limit int) ([]ActionRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.QueryContext(ctx, `SELECT day,kind,COALESCE(property_id,''),applied,COALESCE(reason,''),cost FROM actions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ActionRow
	for rows.Next() {
		var r ActionRow
		if err := rows.Scan(&r.Day, &r.Kind, &r.PropertyID, &r.Applied, &r.Reason, &r.Cost); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

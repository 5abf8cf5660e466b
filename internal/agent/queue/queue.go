// Package queue is the device-local durable store: the pending punch queue
// plus the read caches that stand in for the server while offline.
package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // cgo-free SQLite driver

	"punchclock.service/internal/agent"
	"punchclock.service/internal/core/model"
)

// schemaVersion is stamped into PRAGMA user_version so a future layout
// change can migrate instead of silently misreading old rows.
const schemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS pending_punches (
    seq         INTEGER PRIMARY KEY AUTOINCREMENT,
    id          INTEGER NOT NULL UNIQUE,
    employee_id INTEGER NOT NULL,
    type        TEXT    NOT NULL,
    timestamp   TEXT    NOT NULL,
    latitude    REAL    NOT NULL,
    longitude   REAL    NOT NULL,
    note        TEXT    NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS device_cache (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);`

const (
	cacheKeyPunches     = "cachedPunches"
	cacheKeyWeeklyHours = "cachedWeeklyHours"
)

// Store owns the agent's SQLite database. The queue is ordered by enqueue
// order (seq), not by punch timestamp, so records created out of order by a
// skewed clock still drain in the order they were captured.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the agent database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %v", agent.ErrStorage, err)
	}
	// SQLite handles one writer at a time; a single connection avoids
	// SQLITE_BUSY between the capture flow and the sync pass.
	db.SetMaxOpenConns(1)

	var version int
	if err := db.QueryRow(`PRAGMA user_version`).Scan(&version); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: read schema version: %v", agent.ErrStorage, err)
	}
	switch version {
	case 0:
		if _, err := db.Exec(schema); err != nil {
			db.Close()
			return nil, fmt.Errorf("%w: create schema: %v", agent.ErrStorage, err)
		}
		if _, err := db.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, schemaVersion)); err != nil {
			db.Close()
			return nil, fmt.Errorf("%w: stamp schema version: %v", agent.ErrStorage, err)
		}
	case schemaVersion:
		// Up to date.
	default:
		db.Close()
		return nil, fmt.Errorf("%w: unsupported schema version %d", agent.ErrStorage, version)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Enqueue persists a punch with its client-generated id. The row is durable
// once Enqueue returns.
func (s *Store) Enqueue(ctx context.Context, p model.Punch) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pending_punches (id, employee_id, type, timestamp, latitude, longitude, note)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.EmployeeID, string(p.Type), p.Timestamp.UTC().Format(time.RFC3339Nano), p.Latitude, p.Longitude, p.Note)
	if err != nil {
		return fmt.Errorf("%w: enqueue punch: %v", agent.ErrStorage, err)
	}
	return nil
}

// ListPending returns all queued punches in enqueue order.
func (s *Store) ListPending(ctx context.Context) ([]model.Punch, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, employee_id, type, timestamp, latitude, longitude, note
		 FROM pending_punches ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("%w: list pending punches: %v", agent.ErrStorage, err)
	}
	defer rows.Close()

	var punches []model.Punch
	for rows.Next() {
		var p model.Punch
		var typ, ts string
		if err := rows.Scan(&p.ID, &p.EmployeeID, &typ, &ts, &p.Latitude, &p.Longitude, &p.Note); err != nil {
			return nil, fmt.Errorf("%w: scan pending punch: %v", agent.ErrStorage, err)
		}
		p.Type = model.PunchType(typ)
		p.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("%w: parse pending punch timestamp: %v", agent.ErrStorage, err)
		}
		p.SyncStatus = model.StatusPending
		punches = append(punches, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list pending punches: %v", agent.ErrStorage, err)
	}
	return punches, nil
}

// Remove deletes the punch with the given client-generated id. Removing an
// id that is no longer queued is a no-op, which keeps retries idempotent
// when an earlier removal succeeded without the caller learning about it.
func (s *Store) Remove(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM pending_punches WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%w: remove punch %d: %v", agent.ErrStorage, id, err)
	}
	return nil
}

// SavePunchCache replaces the last-known punch list used for offline reads.
func (s *Store) SavePunchCache(ctx context.Context, punches []model.Punch) error {
	payload, err := json.Marshal(punches)
	if err != nil {
		return fmt.Errorf("%w: encode punch cache: %v", agent.ErrStorage, err)
	}
	return s.putCache(ctx, cacheKeyPunches, string(payload))
}

// LoadPunchCache returns the last-known punch list, or nil when none was
// ever saved.
func (s *Store) LoadPunchCache(ctx context.Context) ([]model.Punch, error) {
	val, ok, err := s.getCache(ctx, cacheKeyPunches)
	if err != nil || !ok {
		return nil, err
	}
	var punches []model.Punch
	if err := json.Unmarshal([]byte(val), &punches); err != nil {
		return nil, fmt.Errorf("%w: decode punch cache: %v", agent.ErrStorage, err)
	}
	return punches, nil
}

// SaveWeeklyHours stores the last successfully fetched weekly total.
func (s *Store) SaveWeeklyHours(ctx context.Context, total string) error {
	return s.putCache(ctx, cacheKeyWeeklyHours, total)
}

// LoadWeeklyHours returns the last-known weekly total and whether one exists.
func (s *Store) LoadWeeklyHours(ctx context.Context) (string, bool, error) {
	return s.getCache(ctx, cacheKeyWeeklyHours)
}

func (s *Store) putCache(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO device_cache (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("%w: write cache %q: %v", agent.ErrStorage, key, err)
	}
	return nil
}

func (s *Store) getCache(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM device_cache WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: read cache %q: %v", agent.ErrStorage, key, err)
	}
	return value, true, nil
}

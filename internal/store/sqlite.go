package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/sweeney/egg-incubator/internal/logic"
)

const schema = `
CREATE TABLE IF NOT EXISTS observations (
	seq            INTEGER PRIMARY KEY AUTOINCREMENT,
	id             TEXT    NOT NULL UNIQUE,
	ts             INTEGER NOT NULL,
	temperature_f  REAL    NOT NULL,
	humidity_pct   REAL    NOT NULL,
	heat_relay     TEXT    NOT NULL,
	humidity_relay TEXT    NOT NULL,
	last_egg_turn  INTEGER,
	day_in_cycle   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS observations_ts ON observations (ts);
`

const selectColumns = `id, ts, temperature_f, humidity_pct, heat_relay, humidity_relay, last_egg_turn, day_in_cycle`

// SQLite is a Log backed by a SQLite database file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and applies the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// SQLite serialises writers; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Append(ctx context.Context, obs logic.Observation) error {
	var lastTurn sql.NullInt64
	if !obs.LastEggTurn.IsZero() {
		lastTurn = sql.NullInt64{Int64: obs.LastEggTurn.UnixNano(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO observations (id, ts, temperature_f, humidity_pct, heat_relay, humidity_relay, last_egg_turn, day_in_cycle)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		obs.ID.String(), obs.Timestamp.UnixNano(), obs.TemperatureF, obs.HumidityPct,
		string(obs.HeatRelay), string(obs.HumidityRelay), lastTurn, obs.DayInCycle,
	)
	if err != nil {
		return fmt.Errorf("%w: insert observation: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *SQLite) Latest(ctx context.Context) (logic.Observation, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM observations ORDER BY seq DESC LIMIT 1`)
	obs, err := scanObservation(row)
	if err == sql.ErrNoRows {
		return logic.Observation{}, false, nil
	}
	if err != nil {
		return logic.Observation{}, false, fmt.Errorf("%w: latest observation: %v", ErrUnavailable, err)
	}
	return obs, true, nil
}

func (s *SQLite) Recent(ctx context.Context, n int) ([]logic.Observation, error) {
	if n <= 0 {
		n = -1
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM observations ORDER BY seq DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("%w: recent observations: %v", ErrUnavailable, err)
	}
	return collect(rows)
}

func (s *SQLite) All(ctx context.Context) ([]logic.Observation, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM observations ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("%w: all observations: %v", ErrUnavailable, err)
	}
	return collect(rows)
}

func (s *SQLite) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM observations`); err != nil {
		return fmt.Errorf("%w: clear observations: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanObservation(sc scanner) (logic.Observation, error) {
	var (
		obs         logic.Observation
		id          string
		ts          int64
		heat, humid string
		lastTurn    sql.NullInt64
	)
	if err := sc.Scan(&id, &ts, &obs.TemperatureF, &obs.HumidityPct, &heat, &humid, &lastTurn, &obs.DayInCycle); err != nil {
		return logic.Observation{}, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return logic.Observation{}, fmt.Errorf("parse id %q: %w", id, err)
	}
	obs.ID = parsed
	obs.Timestamp = time.Unix(0, ts)
	obs.HeatRelay = logic.State(heat)
	obs.HumidityRelay = logic.State(humid)
	if lastTurn.Valid {
		obs.LastEggTurn = time.Unix(0, lastTurn.Int64)
	}
	return obs, nil
}

func collect(rows *sql.Rows) ([]logic.Observation, error) {
	defer rows.Close()
	var out []logic.Observation
	for rows.Next() {
		obs, err := scanObservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		out = append(out, obs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate observations: %v", ErrUnavailable, err)
	}
	return out, nil
}

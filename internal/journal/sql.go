package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

var schemas = map[string]string{
	DriverPostgres: `CREATE TABLE IF NOT EXISTS events (
		id BIGSERIAL PRIMARY KEY,
		time TIMESTAMPTZ NOT NULL,
		type TEXT NOT NULL,
		description TEXT NOT NULL,
		data JSONB
	)`,
	DriverSQLite: `CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		time DATETIME NOT NULL,
		type TEXT NOT NULL,
		description TEXT NOT NULL,
		data TEXT
	)`,
}

// SQLJournal stores events in an "events" table on Postgres or SQLite.
type SQLJournal struct {
	db     *sql.DB
	driver string
}

// OpenSQL connects to the database and creates the events table if needed.
func OpenSQL(ctx context.Context, driver, dsn string) (*SQLJournal, error) {
	schema, ok := schemas[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported journal driver: %s", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s journal: %w", driver, err)
	}
	if driver == DriverSQLite {
		// SQLite allows a single writer; an in-memory database also lives
		// and dies with its only connection.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s journal: %w", driver, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create events table: %w", err)
	}

	return &SQLJournal{db: db, driver: driver}, nil
}

// rebind turns ? placeholders into $n for Postgres.
func (j *SQLJournal) rebind(query string) string {
	if j.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (j *SQLJournal) LogEvent(ctx context.Context, event Event) error {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("failed to encode event data: %w", err)
	}

	_, err = j.db.ExecContext(ctx, j.rebind(`INSERT INTO events (time, type, description, data) VALUES (?, ?, ?, ?)`),
		event.Time.UTC(), event.Type, event.Description, string(data))
	if err != nil {
		return fmt.Errorf("failed to log event: %w", err)
	}
	return nil
}

// GetEvents returns events of eventType with start <= time <= end, oldest
// first. A zero end means now.
func (j *SQLJournal) GetEvents(ctx context.Context, eventType string, start, end time.Time) ([]Event, error) {
	if end.IsZero() {
		end = time.Now()
	}

	rows, err := j.db.QueryContext(ctx, j.rebind(`SELECT time, type, description, data FROM events WHERE type = ? AND time >= ? AND time <= ? ORDER BY time ASC, id ASC`),
		eventType, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var data sql.NullString
		if err := rows.Scan(&e.Time, &e.Type, &e.Description, &data); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if data.Valid && data.String != "" {
			if err := json.Unmarshal([]byte(data.String), &e.Data); err != nil {
				return nil, fmt.Errorf("failed to decode event data: %w", err)
			}
		}
		e.Time = e.Time.UTC()
		events = append(events, e)
	}
	return events, rows.Err()
}

func (j *SQLJournal) Close() error {
	return j.db.Close()
}

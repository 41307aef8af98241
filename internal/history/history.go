package history

import (
	"fmt"
	"time"

	"github.com/nerrad567/virtual-devices-core/internal/infrastructure/database"
)

// schema creates the history table and its indexes. Idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS property_history (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	instance   INTEGER NOT NULL,
	property   TEXT    NOT NULL,
	value      REAL    NOT NULL,
	origin     TEXT    NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_history_instance_time
	ON property_history(instance, created_at);
CREATE INDEX IF NOT EXISTS idx_history_time
	ON property_history(created_at);
`

// Entry is one recorded property change.
type Entry struct {
	Instance  int
	Property  string
	Value     float64
	Origin    string
	CreatedAt time.Time
}

// Recorder appends applied property changes to SQLite and serves queries
// over them.
//
// Recording is best-effort from the engine's point of view: a failed
// insert is logged upstream and never blocks synchronization.
type Recorder struct {
	db *database.DB
}

// New creates a recorder on the given database, creating the schema if it
// does not exist yet.
//
// Returns:
//   - *Recorder: Ready recorder
//   - error: If schema creation fails
func New(db *database.DB) (*Recorder, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("creating history schema: %w", err)
	}
	return &Recorder{db: db}, nil
}

// Record appends one property change.
//
// Parameters:
//   - instance: Device instance id
//   - property: Property key
//   - value: Applied value (booleans as 0/1)
//   - origin: "telemetry" or "gui"
//
// Returns:
//   - error: If the insert fails
func (r *Recorder) Record(instance int, property string, value float64, origin string) error {
	_, err := r.db.Exec(
		`INSERT INTO property_history (instance, property, value, origin, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		instance, property, value, origin, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("recording property change: %w", err)
	}
	return nil
}

// History returns the most recent changes for a device, newest first.
//
// Parameters:
//   - instance: Device instance id
//   - limit: Maximum number of entries (values below 1 default to 100)
//
// Returns:
//   - []Entry: Matching entries, newest first
//   - error: If the query fails
func (r *Recorder) History(instance int, limit int) ([]Entry, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := r.db.Query(
		`SELECT instance, property, value, origin, created_at
		 FROM property_history
		 WHERE instance = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		instance, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only cursor

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Instance, &e.Property, &e.Value, &e.Origin, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating history rows: %w", err)
	}

	return entries, nil
}

// Prune deletes entries older than the cutoff.
//
// Returns:
//   - int64: Number of deleted entries
//   - error: If the delete fails
func (r *Recorder) Prune(olderThan time.Time) (int64, error) {
	res, err := r.db.Exec(
		`DELETE FROM property_history WHERE created_at < ?`,
		olderThan.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("pruning history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting pruned rows: %w", err)
	}
	return n, nil
}

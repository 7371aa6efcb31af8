package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/back2basic/qosmon/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS class_samples (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    hostname TEXT,
    class INTEGER,
    packets INTEGER,
    bytes INTEGER,
    dropped INTEGER,
    timestamp INTEGER
);
CREATE INDEX IF NOT EXISTS class_samples_ts ON class_samples (timestamp);
`

// History stores per-class traffic deltas in SQLite.
type History struct {
	db *sql.DB
}

func OpenHistory(path string) (*History, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("history dir: %w", err)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	return &History{db: db}, nil
}

func (h *History) Close() error {
	return h.db.Close()
}

// Record inserts one row per class in a single transaction. Empty rows are
// skipped.
func (h *History) Record(hostname string, at time.Time, rows []model.ClassUsage) error {
	tx, err := h.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
        INSERT INTO class_samples (
            hostname, class, packets, bytes, dropped, timestamp
        ) VALUES (?, ?, ?, ?, ?, ?)
    `)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		if r.Empty() {
			continue
		}
		_, err = stmt.Exec(hostname, uint32(r.Class), r.Packets, r.Bytes, r.Dropped, at.Unix())
		if err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// DailyTotals sums every row recorded on day's UTC date.
func (h *History) DailyTotals(day time.Time) ([]model.ClassUsage, error) {
	start := day.UTC().Truncate(24 * time.Hour)
	end := start.Add(24 * time.Hour)

	rows, err := h.db.Query(`
        SELECT class,
               SUM(packets),
               SUM(bytes),
               SUM(dropped)
        FROM class_samples
        WHERE timestamp >= ? AND timestamp < ?
        GROUP BY class
        ORDER BY class
    `, start.Unix(), end.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ClassUsage
	for rows.Next() {
		var (
			class uint32
			u     model.ClassUsage
		)
		if err := rows.Scan(&class, &u.Packets, &u.Bytes, &u.Dropped); err != nil {
			return nil, err
		}
		u.Class = model.TrafficClass(class)
		out = append(out, u)
	}
	return out, rows.Err()
}

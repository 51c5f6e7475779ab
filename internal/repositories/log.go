package repositories

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// LogEntry is one line of a task's log.
type LogEntry struct {
	ID         int64
	DownloadID int64
	Level      string
	Message    string
	CreatedAt  time.Time
}

// String formats the entry as a single log line.
func (e LogEntry) String() string {
	return fmt.Sprintf("%s [%s] %s", e.CreatedAt.Format(time.TimeOnly), strings.ToUpper(e.Level), e.Message)
}

// LogRepository stores append-only log lines per task.
type LogRepository struct {
	db *sql.DB
}

// NewLogRepository creates a new LogRepository with the given database connection
func NewLogRepository(db *sql.DB) *LogRepository {
	return &LogRepository{db: db}
}

// Append adds a line to the log of downloadID
func (r *LogRepository) Append(downloadID int64, level, message string) error {
	if level == "" {
		level = "info"
	}

	query := `
		INSERT INTO download_logs (download_id, level, message, created_at)
		VALUES (?, ?, ?, ?)
	`

	if _, err := r.db.Exec(query, downloadID, level, message, time.Now()); err != nil {
		return fmt.Errorf("failed to append log: %w", err)
	}
	return nil
}

// List returns the log of downloadID in write order
func (r *LogRepository) List(downloadID int64) ([]LogEntry, error) {
	query := `
		SELECT id, download_id, level, message, created_at
		FROM download_logs
		WHERE download_id = ?
		ORDER BY id ASC
	`

	rows, err := r.db.Query(query, downloadID)
	if err != nil {
		return nil, fmt.Errorf("failed to query logs: %w", err)
	}
	defer rows.Close()

	var entries []LogEntry
	for rows.Next() {
		var e LogEntry
		if err := rows.Scan(&e.ID, &e.DownloadID, &e.Level, &e.Message, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan log: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return entries, nil
}

// Text renders the log of downloadID as newline separated lines
func (r *LogRepository) Text(downloadID int64) (string, error) {
	entries, err := r.List(downloadID)
	if err != nil {
		return "", err
	}

	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = e.String()
	}
	return strings.Join(lines, "\n"), nil
}

// Clear removes every line of downloadID
func (r *LogRepository) Clear(downloadID int64) error {
	if _, err := r.db.Exec(`DELETE FROM download_logs WHERE download_id = ?`, downloadID); err != nil {
		return fmt.Errorf("failed to clear logs: %w", err)
	}
	return nil
}

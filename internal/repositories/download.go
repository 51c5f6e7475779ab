package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/vidx/internal/models"
	"github.com/desertthunder/vidx/internal/shared"
)

const downloadColumns = `id, name, url, headers, type, status, exist, is_live`

// DownloadRepository persists [models.DownloadItem] records.
//
// Ids come from SQLite's AUTOINCREMENT and are never reused, which keeps progress samples keyed by id from
// attaching to a different task.
type DownloadRepository struct {
	db *sql.DB
}

// NewDownloadRepository creates a new DownloadRepository with the given database connection
func NewDownloadRepository(db *sql.DB) *DownloadRepository {
	return &DownloadRepository{db: db}
}

// Create inserts a new task in the ready state and returns it with its id
func (r *DownloadRepository) Create(item models.NewDownloadItem) (models.DownloadItem, error) {
	if err := item.Validate(); err != nil {
		return models.DownloadItem{}, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	if item.Type == "" {
		item.Type = models.TypeM3U8
	}

	now := time.Now()
	query := `
		INSERT INTO downloads (name, url, headers, type, status, exist, is_live, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 0, 0, ?, ?)
	`

	result, err := r.db.Exec(query, item.Name, item.URL, item.Headers, item.Type, models.StatusReady, now, now)
	if err != nil {
		return models.DownloadItem{}, fmt.Errorf("failed to insert download: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return models.DownloadItem{}, fmt.Errorf("failed to read download id: %w", err)
	}

	return models.DownloadItem{
		ID:      id,
		Name:    item.Name,
		URL:     item.URL,
		Headers: item.Headers,
		Type:    item.Type,
		Status:  models.StatusReady,
	}, nil
}

// Get retrieves a task by id, excluding soft-deleted tasks
func (r *DownloadRepository) Get(id int64) (models.DownloadItem, error) {
	query := `SELECT ` + downloadColumns + ` FROM downloads WHERE id = ? AND deleted_at IS NULL`
	return r.scanOne(r.db.QueryRow(query, id), id)
}

// Update replaces the user-editable metadata of a task
func (r *DownloadRepository) Update(item models.EditDownloadItem) error {
	if err := item.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	if item.Type == "" {
		item.Type = models.TypeM3U8
	}

	query := `
		UPDATE downloads
		SET name = ?, url = ?, headers = ?, type = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, item.Name, item.URL, item.Headers, item.Type, time.Now(), item.ID)
	if err != nil {
		return fmt.Errorf("failed to update download: %w", err)
	}
	return requireAffected(result, notFound(item.ID))
}

// SetStatus moves a task to status
func (r *DownloadRepository) SetStatus(id int64, status models.DownloadStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", shared.ErrInvalidInput, status)
	}
	return r.set(id, "status", status)
}

// SetExist records whether the task's artifact is on disk
func (r *DownloadRepository) SetExist(id int64, exist bool) error {
	return r.set(id, "exist", exist)
}

// SetLive records whether the task's source is live and reports whether the flag changed
func (r *DownloadRepository) SetLive(id int64, live bool) (bool, error) {
	query := `
		UPDATE downloads
		SET is_live = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL AND is_live != ?
	`

	result, err := r.db.Exec(query, live, time.Now(), id, live)
	if err != nil {
		return false, fmt.Errorf("failed to update download: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows > 0 {
		return true, nil
	}

	if _, err := r.Get(id); err != nil {
		return false, err
	}
	return false, nil
}

// set updates one column; column is always a literal from this file.
func (r *DownloadRepository) set(id int64, column string, value any) error {
	query := fmt.Sprintf(`UPDATE downloads SET %s = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`, column)

	result, err := r.db.Exec(query, value, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update download: %w", err)
	}
	return requireAffected(result, notFound(id))
}

// Delete soft-deletes a task by id
func (r *DownloadRepository) Delete(id int64) error {
	query := `
		UPDATE downloads
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete download: %w", err)
	}
	return requireAffected(result, notFound(id))
}

// Page returns one page of the filtered view, newest first.
//
// The list view holds every task that has not finished; the done view holds finished ones.
func (r *DownloadRepository) Page(req models.PageRequest) (models.Page, error) {
	where := `deleted_at IS NULL AND status != ?`
	if req.Filter == models.FilterDone {
		where = `deleted_at IS NULL AND status = ?`
	}

	var total int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM downloads WHERE `+where, models.StatusSuccess).Scan(&total); err != nil {
		return models.Page{}, fmt.Errorf("failed to count downloads: %w", err)
	}

	size := req.PageSize
	if size <= 0 {
		size = 50
	}
	offset := (max(req.Current, 1) - 1) * size

	query := `SELECT ` + downloadColumns + ` FROM downloads WHERE ` + where + ` ORDER BY id DESC LIMIT ? OFFSET ?`
	rows, err := r.db.Query(query, models.StatusSuccess, size, offset)
	if err != nil {
		return models.Page{}, fmt.Errorf("failed to query downloads: %w", err)
	}
	defer rows.Close()

	page := models.Page{Total: total, List: []models.DownloadItem{}}
	for rows.Next() {
		item, err := r.scanRow(rows)
		if err != nil {
			return models.Page{}, err
		}
		page.List = append(page.List, item)
	}

	if err := rows.Err(); err != nil {
		return models.Page{}, fmt.Errorf("row iteration error: %w", err)
	}

	return page, nil
}

// ListByStatus returns every task in status, oldest first
func (r *DownloadRepository) ListByStatus(status models.DownloadStatus) ([]models.DownloadItem, error) {
	query := `SELECT ` + downloadColumns + ` FROM downloads WHERE deleted_at IS NULL AND status = ? ORDER BY id ASC`

	rows, err := r.db.Query(query, status)
	if err != nil {
		return nil, fmt.Errorf("failed to query downloads: %w", err)
	}
	defer rows.Close()

	var items []models.DownloadItem
	for rows.Next() {
		item, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return items, nil
}

// ResetRunning moves tasks left in downloading by a previous process to stopped
func (r *DownloadRepository) ResetRunning() (int64, error) {
	result, err := r.db.Exec(
		`UPDATE downloads SET status = ?, updated_at = ? WHERE status = ? AND deleted_at IS NULL`,
		models.StatusStopped, time.Now(), models.StatusDownloading,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to reset downloads: %w", err)
	}
	return result.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDownload(s scanner) (models.DownloadItem, error) {
	var item models.DownloadItem
	err := s.Scan(&item.ID, &item.Name, &item.URL, &item.Headers, &item.Type, &item.Status, &item.Exist, &item.IsLive)
	return item, err
}

// scanOne scans a single [sql.Row] into a [models.DownloadItem]
func (r *DownloadRepository) scanOne(row *sql.Row, id int64) (models.DownloadItem, error) {
	item, err := scanDownload(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DownloadItem{}, notFound(id)()
	}
	if err != nil {
		return models.DownloadItem{}, fmt.Errorf("failed to scan download: %w", err)
	}
	return item, nil
}

// scanRow scans a row from [sql.Rows] into a [models.DownloadItem]
func (r *DownloadRepository) scanRow(rows *sql.Rows) (models.DownloadItem, error) {
	item, err := scanDownload(rows)
	if err != nil {
		return models.DownloadItem{}, fmt.Errorf("failed to scan download: %w", err)
	}
	return item, nil
}

func notFound(id int64) func() error {
	return func() error { return fmt.Errorf("%w: %d", shared.ErrTaskNotFound, id) }
}

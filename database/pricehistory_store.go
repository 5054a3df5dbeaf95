package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// CreateUpload создаёт запись загрузки прайса в статусе in_progress
func (db *DB) CreateUpload(ctx context.Context, u *Upload) error {
	if u.Status == "" {
		u.Status = UploadStatusInProgress
	}
	now := time.Now().UTC()
	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO price_uploads (run_id, filename, source_date, status, uploaded_at)
		VALUES (?, ?, ?, ?, ?)`,
		toNullString(u.RunID), toNullString(u.Filename), u.SourceDate, u.Status, now)
	if err != nil {
		return fmt.Errorf("failed to create upload: %w", err)
	}
	u.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get upload id: %w", err)
	}
	u.UploadedAt = now
	return nil
}

// FinishUpload переводит загрузку в терминальный статус и фиксирует счётчики
func (db *DB) FinishUpload(ctx context.Context, u *Upload) error {
	now := time.Now().UTC()
	_, err := db.conn.ExecContext(ctx,
		`UPDATE price_uploads SET status = ?, total_rows = ?, added_count = ?,
			up_count = ?, down_count = ?, unchanged_count = ?, removed_count = ?,
			duplicate_count = ?, error_count = ?, apply_error_count = ?, finished_at = ?
		WHERE id = ?`,
		u.Status, u.TotalRows, u.AddedCount, u.UpCount, u.DownCount,
		u.UnchangedCount, u.RemovedCount, u.DuplicateCount, u.ErrorCount,
		u.ApplyErrorCount, now, u.ID)
	if err != nil {
		return fmt.Errorf("failed to finish upload %d: %w", u.ID, err)
	}
	u.FinishedAt = &now
	return nil
}

// GetUpload возвращает загрузку по идентификатору
func (db *DB) GetUpload(ctx context.Context, id int64) (*Upload, error) {
	var u Upload
	var runID, filename sql.NullString
	var sourceDate, uploadedAt, finishedAt sql.NullTime

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, run_id, filename, source_date, status, total_rows,
			added_count, up_count, down_count, unchanged_count, removed_count,
			duplicate_count, error_count, apply_error_count, uploaded_at, finished_at
		FROM price_uploads WHERE id = ?`, id).
		Scan(&u.ID, &runID, &filename, &sourceDate, &u.Status, &u.TotalRows,
			&u.AddedCount, &u.UpCount, &u.DownCount, &u.UnchangedCount,
			&u.RemovedCount, &u.DuplicateCount, &u.ErrorCount, &u.ApplyErrorCount,
			&uploadedAt, &finishedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get upload %d: %w", id, err)
	}

	u.RunID = nullString(runID)
	u.Filename = nullString(filename)
	u.SourceDate = sourceDate.Time
	u.UploadedAt = uploadedAt.Time
	if finishedAt.Valid {
		t := finishedAt.Time
		u.FinishedAt = &t
	}
	return &u, nil
}

// InsertHistory дописывает запись истории цен
func (db *DB) InsertHistory(ctx context.Context, e *PriceHistoryEntry) error {
	if e.Currency == "" {
		e.Currency = "RUB"
	}
	if e.ChangedAt.IsZero() {
		e.ChangedAt = time.Now().UTC()
	}
	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO price_history (listing_id, price_upload_id, old_price,
			new_price, currency, source_date, source_filename, change_type, changed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ListingID, e.UploadID, priceString(e.OldPrice), priceString(e.NewPrice),
		e.Currency, e.SourceDate, toNullString(e.SourceFilename), e.ChangeType, e.ChangedAt)
	if err != nil {
		return fmt.Errorf("failed to insert price history: %w", err)
	}
	e.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get history id: %w", err)
	}
	return nil
}

// HistoryCountByType возвращает количество записей истории по типу
// изменения для указанной загрузки
func (db *DB) HistoryCountByType(ctx context.Context, uploadID int64, changeType string) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM price_history WHERE price_upload_id = ? AND change_type = ?`,
		uploadID, changeType).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count history rows: %w", err)
	}
	return count, nil
}

// LookupUsage хранилище журнала обращений к внешнему сервису поиска
// брендов; реализует websearch.UsageStore
type LookupUsage struct {
	db *DB
}

// LookupUsage возвращает журнал обращений к внешнему сервису
func (db *DB) LookupUsage() *LookupUsage {
	return &LookupUsage{db: db}
}

// CountSince считает обращения начиная с указанного момента
func (lu *LookupUsage) CountSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := lu.db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM lookup_usage_log WHERE created_at >= ?`, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count lookup usage: %w", err)
	}
	return count, nil
}

// Log фиксирует обращение к внешнему сервису
func (lu *LookupUsage) Log(ctx context.Context, endpoint string, success bool, errMessage string) error {
	_, err := lu.db.conn.ExecContext(ctx,
		`INSERT INTO lookup_usage_log (endpoint, success, error_message, created_at)
		VALUES (?, ?, ?, ?)`,
		endpoint, success, toNullString(errMessage), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to log lookup usage: %w", err)
	}
	return nil
}

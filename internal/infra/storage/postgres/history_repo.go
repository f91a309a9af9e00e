package postgres

import (
	"context"
	"time"
)

// DownloadRecord is one archived completed download.
type DownloadRecord struct {
	ID        int64     `db:"id" json:"id"`
	JobID     string    `db:"job_id" json:"job_id"`
	VideoID   string    `db:"video_id" json:"video_id"`
	Title     string    `db:"title" json:"title"`
	Filename  string    `db:"filename" json:"filename"`
	FilePath  string    `db:"file_path" json:"file_path"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// HistoryRepo persists completed downloads for later browsing. The broker's
// result keys expire; this table is the durable record.
type HistoryRepo struct {
	db *DB
}

func NewHistoryRepo(db *DB) *HistoryRepo {
	return &HistoryRepo{db: db}
}

// Insert archives a completed download.
func (r *HistoryRepo) Insert(ctx context.Context, rec DownloadRecord) error {
	query := `
		INSERT INTO download_history (job_id, video_id, title, filename, file_path, created_at)
		VALUES (:job_id, :video_id, :title, :filename, :file_path, NOW())
	`
	_, err := r.db.NamedExecContext(ctx, query, rec)
	return err
}

// Recent returns the most recently archived downloads, newest first.
func (r *HistoryRepo) Recent(ctx context.Context, limit int) ([]DownloadRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, job_id, video_id, title, filename, file_path, created_at
		FROM download_history
		ORDER BY created_at DESC
		LIMIT $1
	`
	var recs []DownloadRecord
	if err := r.db.SelectContext(ctx, &recs, query, limit); err != nil {
		return nil, err
	}
	return recs, nil
}

package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/scraper-service/internal/entity"
)

// RecordArchiveRepoImpl persists produced records to the
// `extracted_records` PostgreSQL table. Fields are stored as JSONB since
// the column set is operator-configured.
type RecordArchiveRepoImpl struct {
	db *pgxpool.Pool
}

// NewRecordArchiveRepo creates a new instance of RecordArchiveRepoImpl.
func NewRecordArchiveRepo(db *pgxpool.Pool) *RecordArchiveRepoImpl {
	return &RecordArchiveRepoImpl{db: db}
}

// Save stores or updates the record for a URL.
func (r *RecordArchiveRepoImpl) Save(ctx context.Context, record *entity.ExtractedRecord) error {
	fieldsJSON, err := json.Marshal(record.Fields)
	if err != nil {
		return fmt.Errorf("failed to marshal record fields: %w", err)
	}

	query := `
		INSERT INTO extracted_records (source_url, status, fields, scraped_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (source_url) DO UPDATE SET
			status = EXCLUDED.status,
			fields = EXCLUDED.fields,
			scraped_at = EXCLUDED.scraped_at;
	`
	_, err = r.db.Exec(ctx, query,
		record.SourceURL,
		record.Status,
		fieldsJSON,
		record.ScrapedAt,
	)
	return err
}

// FindBySourceURL retrieves the archived record for a URL.
func (r *RecordArchiveRepoImpl) FindBySourceURL(ctx context.Context, url string) (*entity.ExtractedRecord, error) {
	query := `
		SELECT source_url, status, fields, scraped_at
		FROM extracted_records
		WHERE source_url = $1;
	`
	row := r.db.QueryRow(ctx, query, url)

	var record entity.ExtractedRecord
	var fieldsJSON []byte
	err := row.Scan(
		&record.SourceURL,
		&record.Status,
		&fieldsJSON,
		&record.ScrapedAt,
	)
	if err != nil {
		return nil, err // pgx.ErrNoRows when not found
	}

	if err := json.Unmarshal(fieldsJSON, &record.Fields); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record fields: %w", err)
	}
	return &record, nil
}

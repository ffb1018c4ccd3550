package mediastore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"clapper/internal/services"
)

// ErrRecordVanished indicates a duration write matched zero rows: the media
// record was deleted between claim and persist. Distinct from store
// unavailability so operators know to check the media file, not the database.
var ErrRecordVanished = errors.New("media record vanished")

// MediaFile represents an uploaded media asset row.
//
// The media_files table is owned by the upstream course platform; this worker
// only reads records and writes extracted durations.
type MediaFile struct {
	ID              string
	Name            string
	OriginalName    string
	BackblazeURL    string
	CDNURL          string
	FileType        string
	UploadedBy      string
	DurationSeconds *int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// StorageRef returns the reference to probe: the private storage URL when
// present, otherwise the CDN URL. Empty when the record has neither.
func (m *MediaFile) StorageRef() string {
	if ref := strings.TrimSpace(m.BackblazeURL); ref != "" {
		return ref
	}
	return strings.TrimSpace(m.CDNURL)
}

// Store reads and writes media records in the shared Postgres database.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps the process-wide connection pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const mediaColumns = `id, COALESCE(name, ''), COALESCE(original_name, ''),
    COALESCE(backblaze_url, ''), COALESCE(cdn_url, ''), COALESCE(file_type, ''),
    uploaded_by, duration_seconds, created_at, updated_at`

// GetByID fetches a media record. A missing row is a not-found error, kept
// distinct from connectivity failures.
func (s *Store) GetByID(ctx context.Context, id string) (*MediaFile, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+mediaColumns+` FROM media_files WHERE id = $1`, id)

	var file MediaFile
	err := row.Scan(
		&file.ID,
		&file.Name,
		&file.OriginalName,
		&file.BackblazeURL,
		&file.CDNURL,
		&file.FileType,
		&file.UploadedBy,
		&file.DurationSeconds,
		&file.CreatedAt,
		&file.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "mediastore", "get", fmt.Sprintf("media file %s", id), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get media file: %w", err)
	}
	return &file, nil
}

// UpdateDuration writes the extracted duration and bumps updated_at in one
// atomic statement. Returns ErrRecordVanished when no row matched.
func (s *Store) UpdateDuration(ctx context.Context, id string, seconds int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE media_files
         SET duration_seconds = $2, updated_at = now()
         WHERE id = $1`,
		id, seconds,
	)
	if err != nil {
		return fmt.Errorf("update media duration: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: media file %s", ErrRecordVanished, id)
	}
	return nil
}

package viewrecord

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/orgball2608/story-playback-engine/internal/domain"
	"github.com/orgball2608/story-playback-engine/pkg/logger"
)

var sqBuilder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type PgxRepository struct {
	pool   *pgxpool.Pool
	logger logger.Logger
}

func NewPgxRepository(pool *pgxpool.Pool, logger logger.Logger) *PgxRepository {
	return &PgxRepository{
		pool:   pool,
		logger: logger,
	}
}

var _ Repository = (*PgxRepository)(nil)

func (r *PgxRepository) Upsert(ctx context.Context, record domain.ViewRecord) error {
	query, args, err := sqBuilder.
		Insert("view_records").
		Columns("story_id", "viewer_id", "watched_seconds", "completed", "viewed_at").
		Values(record.StoryID, record.ViewerID, record.WatchedSeconds, record.Completed, record.Timestamp).
		Suffix(`ON CONFLICT (story_id, viewer_id) DO UPDATE
			SET watched_seconds = EXCLUDED.watched_seconds,
			    completed = EXCLUDED.completed,
			    viewed_at = EXCLUDED.viewed_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build upsert query: %w", err)
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: %v", ErrCannotUpsert, err)
	}

	return nil
}

func (r *PgxRepository) Get(ctx context.Context, storyID, viewerID string) (*domain.ViewRecord, error) {
	query, args, err := sqBuilder.
		Select("story_id", "viewer_id", "watched_seconds", "completed", "viewed_at").
		From("view_records").
		Where(sq.Eq{"story_id": storyID, "viewer_id": viewerID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	var record domain.ViewRecord
	err = r.pool.QueryRow(ctx, query, args...).Scan(
		&record.StoryID,
		&record.ViewerID,
		&record.WatchedSeconds,
		&record.Completed,
		&record.Timestamp,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get view record: %w", err)
	}

	return &record, nil
}

func (r *PgxRepository) ListByViewer(ctx context.Context, viewerID string) ([]*domain.ViewRecord, error) {
	query, args, err := sqBuilder.
		Select("story_id", "viewer_id", "watched_seconds", "completed", "viewed_at").
		From("view_records").
		Where(sq.Eq{"viewer_id": viewerID}).
		OrderBy("viewed_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query view records: %w", err)
	}
	defer rows.Close()

	var records []*domain.ViewRecord
	for rows.Next() {
		var record domain.ViewRecord
		err := rows.Scan(
			&record.StoryID,
			&record.ViewerID,
			&record.WatchedSeconds,
			&record.Completed,
			&record.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan view record row: %w", err)
		}
		records = append(records, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating view record rows: %w", err)
	}

	return records, nil
}

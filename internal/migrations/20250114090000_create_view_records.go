package migrations

import (
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigration(upCreateViewRecords, downCreateViewRecords)
}

func upCreateViewRecords(tx *sql.Tx) error {
	_, err := tx.Exec(`
	CREATE TABLE view_records (
		story_id        VARCHAR NOT NULL,
		viewer_id       VARCHAR NOT NULL,
		watched_seconds DOUBLE PRECISION NOT NULL DEFAULT 0,
		completed       BOOLEAN NOT NULL DEFAULT FALSE,
		viewed_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (story_id, viewer_id)
	);
	CREATE INDEX idx_view_records_viewer ON view_records (viewer_id, viewed_at DESC);
	`)
	if err != nil {
		return err
	}
	return nil
}

func downCreateViewRecords(tx *sql.Tx) error {
	_, err := tx.Exec(`
	DROP TABLE view_records;
	`)
	if err != nil {
		return err
	}
	return nil
}

package repository

import (
	"context"
	"fmt"

	"bikeshare-platform/pkg/database"
)

// schemaUp is valid for both postgres and sqlite3
const schemaUp = `
CREATE TABLE IF NOT EXISTS datasets (
	city           TEXT PRIMARY KEY,
	has_gender     BOOLEAN NOT NULL,
	has_birth_year BOOLEAN NOT NULL,
	created_at     TIMESTAMP NOT NULL,
	updated_at     TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS trips (
	city          TEXT NOT NULL REFERENCES datasets (city) ON DELETE CASCADE,
	seq           INTEGER NOT NULL,
	start_time    TIMESTAMP NOT NULL,
	end_time      TIMESTAMP NOT NULL,
	start_station TEXT NOT NULL,
	end_station   TEXT NOT NULL,
	user_type     TEXT NOT NULL,
	gender        TEXT,
	birth_year    INTEGER,
	PRIMARY KEY (city, seq)
);
`

const schemaDown = `
DROP TABLE IF EXISTS trips;
DROP TABLE IF EXISTS datasets;
`

// Migrate creates ("up") or drops ("down") the trip store tables
func Migrate(ctx context.Context, db *database.DB, direction string) error {
	var ddl string
	switch direction {
	case "up":
		ddl = schemaUp
	case "down":
		ddl = schemaDown
	default:
		return fmt.Errorf("unknown migration direction %q", direction)
	}

	if _, err := db.ExecContext(ctx, "migrate_"+direction, ddl); err != nil {
		return fmt.Errorf("failed to migrate %s: %w", direction, err)
	}
	return nil
}

package store

import (
	"context"
	"fmt"
)

// The schema sticks to types both PostgreSQL and SQLite accept. Tags, filters and id
// sets are stored as JSON text; position keeps insertion order stable.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS contacts (
	id TEXT PRIMARY KEY,
	position BIGINT NOT NULL,
	name TEXT NOT NULL,
	email TEXT NOT NULL DEFAULT '',
	phone TEXT NOT NULL DEFAULT '',
	tags TEXT NOT NULL DEFAULT '[]',
	vehicle_age INTEGER,
	mileage INTEGER,
	warranty_status TEXT NOT NULL DEFAULT '',
	loyalty_tier TEXT NOT NULL DEFAULT ''
)`,
	`CREATE INDEX IF NOT EXISTS idx_contacts_position ON contacts (position)`,
	`CREATE TABLE IF NOT EXISTS saved_lists (
	id TEXT PRIMARY KEY,
	position BIGINT NOT NULL,
	name TEXT NOT NULL UNIQUE,
	filters TEXT NOT NULL,
	contact_ids TEXT NOT NULL,
	created_at TEXT NOT NULL
)`,
}

// Migrate creates the tables if they do not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

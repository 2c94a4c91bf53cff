package sqldb

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// The id default produces a random version 4 UUID so rows inserted from the
// query console get the same kind of id as rows created by the service.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS patients (
	id TEXT PRIMARY KEY NOT NULL DEFAULT (
		lower(hex(randomblob(4))) || '-' ||
		lower(hex(randomblob(2))) || '-4' ||
		substr(lower(hex(randomblob(2))), 2) || '-' ||
		substr('89ab', 1 + (abs(random()) % 4), 1) ||
		substr(lower(hex(randomblob(2))), 2) || '-' ||
		lower(hex(randomblob(6)))
	),
	first_name TEXT NOT NULL,
	last_name TEXT NOT NULL,
	email TEXT UNIQUE,
	phone TEXT,
	date_of_birth TEXT,
	gender TEXT,
	address TEXT,
	emergency_contact_name TEXT,
	emergency_contact_phone TEXT,
	medical_history TEXT,
	allergies TEXT,
	medications TEXT,
	insurance_provider TEXT,
	insurance_policy_number TEXT,
	created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now')),
	updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
);

CREATE INDEX IF NOT EXISTS idx_patients_created_at ON patients (created_at);

DROP TRIGGER IF EXISTS patients_touch_updated_at;

-- Runs for every update, including ones that assign updated_at themselves.
-- recursive_triggers is off, so the inner UPDATE does not fire it again.
CREATE TRIGGER patients_touch_updated_at
AFTER UPDATE ON patients
FOR EACH ROW
BEGIN
	UPDATE patients
	SET updated_at = CASE
		WHEN strftime('%Y-%m-%dT%H:%M:%fZ', 'now') > OLD.updated_at
			THEN strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
		ELSE strftime('%Y-%m-%dT%H:%M:%fZ', OLD.updated_at, '+0.001 seconds')
	END
	WHERE id = NEW.id;
END;
`

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS patients (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		first_name VARCHAR(100) NOT NULL,
		last_name VARCHAR(100) NOT NULL,
		email VARCHAR(255) UNIQUE,
		phone VARCHAR(20),
		date_of_birth DATE,
		gender VARCHAR(20),
		address TEXT,
		emergency_contact_name VARCHAR(100),
		emergency_contact_phone VARCHAR(20),
		medical_history TEXT,
		allergies TEXT,
		medications TEXT,
		insurance_provider VARCHAR(100),
		insurance_policy_number VARCHAR(100),
		created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_patients_created_at ON patients (created_at)`,
	// GREATEST keeps updated_at moving forward even when two updates share a
	// transaction timestamp.
	`CREATE OR REPLACE FUNCTION update_updated_at_column()
	RETURNS TRIGGER AS $$
	BEGIN
		NEW.updated_at = GREATEST(CURRENT_TIMESTAMP, OLD.updated_at + INTERVAL '1 microsecond');
		RETURN NEW;
	END;
	$$ LANGUAGE plpgsql`,
	`DROP TRIGGER IF EXISTS update_patients_updated_at ON patients`,
	`CREATE TRIGGER update_patients_updated_at
		BEFORE UPDATE ON patients
		FOR EACH ROW
		EXECUTE FUNCTION update_updated_at_column()`,
}

// ApplySchema creates the patients table and its update trigger. Running it
// against an initialized database changes nothing.
func ApplySchema(ctx context.Context, db *sqlx.DB) error {
	var statements []string
	switch db.DriverName() {
	case DriverSQLite:
		statements = []string{sqliteSchema}
	case DriverPostgres:
		statements = postgresSchema
	default:
		return fmt.Errorf("no schema for driver %q", db.DriverName())
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema: %w", err)
	}
	return nil
}

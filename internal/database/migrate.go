package database

import (
	"database/sql"
	"fmt"
	"log"
)

// schemaVersion reads the PRAGMA user_version stamp.
func schemaVersion(conn *sql.DB) (int, error) {
	var version int
	if err := conn.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return version, nil
}

// migrate applies every migration newer than the database's user_version
// stamp, in order. A fresh database is stamped 0 and receives all of them;
// a fully stamped database is left untouched.
func migrate(conn *sql.DB) error {
	current, err := schemaVersion(conn)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		if err := applyMigration(conn, m); err != nil {
			return err
		}
		current = m.Version
	}
	return nil
}

// applyMigration runs one migration in its own transaction, then stamps the
// new version. The stamp must happen outside the transaction (the driver
// rejects PRAGMA writes inside one); the DDL is idempotent, so a crash
// between commit and stamp just re-runs the migration harmlessly.
func applyMigration(conn *sql.DB, m Migration) error {
	log.Printf("Applying schema migration %d: %s", m.Version, m.Description)

	tx, err := conn.Begin()
	if err != nil {
		return fmt.Errorf("migration %d: %w", m.Version, err)
	}
	if err := m.Up(tx); err != nil {
		tx.Rollback()
		return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migration %d: %w", m.Version, err)
	}

	if _, err := conn.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.Version)); err != nil {
		return fmt.Errorf("stamping schema version %d: %w", m.Version, err)
	}
	return nil
}

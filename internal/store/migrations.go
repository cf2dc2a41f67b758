package store

import (
	"database/sql"
	"fmt"

	"porkvision/internal/logging"
)

// Migration adds a column that older databases lack.
type Migration struct {
	Table  string
	Column string
	Def    string
}

// pendingMigrations lists columns added after the first release.
var pendingMigrations = []Migration{
	{"reports", "degraded", "INTEGER NOT NULL DEFAULT 0"},
}

// RunMigrations adds any missing columns. Tables that do not exist are skipped.
func RunMigrations(db *sql.DB) error {
	timer := logging.StartTimer(logging.CategoryStore, "RunMigrations")
	defer timer.Stop()

	applied := 0
	for _, m := range pendingMigrations {
		if !tableExists(db, m.Table) {
			logging.StoreDebug("Table missing, skipping migration: %s.%s", m.Table, m.Column)
			continue
		}
		if columnExists(db, m.Table, m.Column) {
			continue
		}
		query := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", m.Table, m.Column, m.Def)
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("migration %s.%s: %w", m.Table, m.Column, err)
		}
		logging.Store("Migration applied: added %s.%s", m.Table, m.Column)
		applied++
	}

	logging.StoreDebug("Schema migrations complete: applied=%d", applied)
	return nil
}

// columnExists checks a column via PRAGMA table_info.
func columnExists(db *sql.DB, table, column string) bool {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		logging.StoreDebug("PRAGMA table_info(%s) failed: %v", table, err)
		return false
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid         int
			name, ctype string
			notnull, pk int
			dfltValue   interface{}
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			continue
		}
		if name == column {
			return true
		}
	}
	return false
}

func tableExists(db *sql.DB, table string) bool {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
	return err == nil && count > 0
}

package shared

import (
	"database/sql"
	"testing"
)

func newMigratedDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ConfigureDatabase(db, 1, 1)

	if err := RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return db
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&count)
	if err != nil {
		t.Fatalf("failed to query sqlite_master: %v", err)
	}
	return count > 0
}

func TestMigrations(t *testing.T) {
	t.Run("RunMigrations creates the schema", func(t *testing.T) {
		db := newMigratedDB(t)

		for _, table := range []string{"tracks", "albums", "artists", "users", "listens", "schema_migrations"} {
			if !tableExists(t, db, table) {
				t.Errorf("expected table %s to exist", table)
			}
		}
	})

	t.Run("RunMigrations is idempotent", func(t *testing.T) {
		db := newMigratedDB(t)

		if err := RunMigrations(db); err != nil {
			t.Fatalf("second run failed: %v", err)
		}

		var applied int
		if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&applied); err != nil {
			t.Fatalf("failed to count migrations: %v", err)
		}
		if applied != 1 {
			t.Errorf("expected 1 applied migration, got %d", applied)
		}
	})

	t.Run("RollbackMigration drops the schema", func(t *testing.T) {
		db := newMigratedDB(t)

		if err := RollbackMigration(db); err != nil {
			t.Fatalf("rollback failed: %v", err)
		}

		if tableExists(t, db, "tracks") {
			t.Error("expected tracks table dropped")
		}

		if err := RollbackMigration(db); err == nil {
			t.Error("expected error with nothing to rollback")
		}
	})

	t.Run("loadMigrations pairs up and down scripts", func(t *testing.T) {
		migrations, err := loadMigrations()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(migrations) == 0 {
			t.Fatal("expected at least one migration")
		}
		for _, m := range migrations {
			if m.Up == "" || m.Down == "" {
				t.Errorf("migration %d missing a script", m.Version)
			}
		}
	})

	t.Run("stripSQLComments", func(t *testing.T) {
		stmt := "-- leading comment\nCREATE TABLE x (\n  id TEXT -- trailing\n)\n\n"
		got := stripSQLComments(stmt)
		want := "CREATE TABLE x (\nid TEXT\n)"
		if got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	})
}

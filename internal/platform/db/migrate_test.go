package db

import (
	"os"
	"path/filepath"
	"testing"
)

func writeMigrationFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func TestLoadMigrations(t *testing.T) {
	dir := writeMigrationFiles(t, map[string]string{
		"001_billing.sql":   "CREATE TABLE bill (id UUID PRIMARY KEY);",
		"002_templates.sql": "CREATE TABLE bill_template (id UUID PRIMARY KEY);",
		"003_indexes.sql":   "CREATE INDEX bill_patient_id_idx ON bill (patient_id);",
	})

	migrations, err := NewMigrator(nil, dir).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}
	if len(migrations) != 3 {
		t.Fatalf("got %d migrations, want 3", len(migrations))
	}

	if migrations[0].Version != 1 || migrations[0].Name != "001_billing.sql" {
		t.Errorf("first migration = %d %q, want 1 %q", migrations[0].Version, migrations[0].Name, "001_billing.sql")
	}
	if migrations[0].SQL != "CREATE TABLE bill (id UUID PRIMARY KEY);" {
		t.Errorf("unexpected SQL body: %s", migrations[0].SQL)
	}
	for i, want := range []int{1, 2, 3} {
		if migrations[i].Version != want {
			t.Errorf("migration[%d].Version = %d, want %d", i, migrations[i].Version, want)
		}
	}
}

func TestLoadMigrationsSortsByVersion(t *testing.T) {
	// Written out of order; versions must come back sorted regardless of
	// directory iteration order.
	dir := writeMigrationFiles(t, map[string]string{
		"010_receipts.sql": "SELECT 10;",
		"002_items.sql":    "SELECT 2;",
		"001_billing.sql":  "SELECT 1;",
		"005_payments.sql": "SELECT 5;",
	})

	migrations, err := NewMigrator(nil, dir).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}
	want := []int{1, 2, 5, 10}
	if len(migrations) != len(want) {
		t.Fatalf("got %d migrations, want %d", len(migrations), len(want))
	}
	for i, v := range want {
		if migrations[i].Version != v {
			t.Errorf("migration[%d].Version = %d, want %d", i, migrations[i].Version, v)
		}
	}
}

func TestLoadMigrationsSkipsUnversionedFiles(t *testing.T) {
	dir := writeMigrationFiles(t, map[string]string{
		"001_billing.sql":  "SELECT 1;",
		"002_items.sql":    "SELECT 2;",
		"readme.sql":       "-- no version prefix",
		"notes.txt":        "not sql at all",
		"abc_invalid.sql":  "-- non-numeric prefix",
	})

	migrations, err := NewMigrator(nil, dir).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("got %d migrations, want 2", len(migrations))
	}
	if migrations[0].Version != 1 || migrations[1].Version != 2 {
		t.Errorf("versions = %d, %d, want 1, 2", migrations[0].Version, migrations[1].Version)
	}
}

func TestLoadMigrationsEmptyDir(t *testing.T) {
	migrations, err := NewMigrator(nil, t.TempDir()).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}
	if len(migrations) != 0 {
		t.Errorf("got %d migrations from empty dir, want 0", len(migrations))
	}
}

func TestLoadMigrationsMissingDir(t *testing.T) {
	_, err := NewMigrator(nil, "/no/such/migrations/dir").LoadMigrations()
	if err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestParseVersion(t *testing.T) {
	cases := []struct {
		name    string
		version int
		ok      bool
	}{
		{"001_billing.sql", 1, true},
		{"042_receipts.sql", 42, true},
		{"10_no_padding.sql", 10, true},
		{"billing.sql", 0, false},
		{"abc_letters.sql", 0, false},
		{"_leading_underscore.sql", 0, false},
	}
	for _, tc := range cases {
		v, ok := parseVersion(tc.name)
		if v != tc.version || ok != tc.ok {
			t.Errorf("parseVersion(%q) = %d, %v, want %d, %v", tc.name, v, ok, tc.version, tc.ok)
		}
	}
}

func TestStatusShapeFromLoadedMigrations(t *testing.T) {
	// Status against a live schema needs a database; here we check the
	// applied/pending split it builds from LoadMigrations plus a recorded set.
	dir := writeMigrationFiles(t, map[string]string{
		"001_billing.sql":   "CREATE TABLE bill (id UUID);",
		"002_templates.sql": "CREATE TABLE bill_template (id UUID);",
		"003_indexes.sql":   "CREATE INDEX bill_date_idx ON bill (bill_date);",
	})

	migrations, err := NewMigrator(nil, dir).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}

	applied := map[int]bool{1: true}
	var statuses []MigrationStatus
	for _, mig := range migrations {
		statuses = append(statuses, MigrationStatus{
			Version: mig.Version,
			Name:    mig.Name,
			Applied: applied[mig.Version],
		})
	}

	if len(statuses) != 3 {
		t.Fatalf("got %d statuses, want 3", len(statuses))
	}
	if !statuses[0].Applied {
		t.Error("001_billing.sql should report applied")
	}
	if statuses[1].Applied || statuses[2].Applied {
		t.Error("002 and 003 should report pending")
	}
	if statuses[1].AppliedAt != nil || statuses[2].AppliedAt != nil {
		t.Error("pending migrations must carry a nil AppliedAt")
	}
	if statuses[1].Name != "002_templates.sql" {
		t.Errorf("statuses[1].Name = %q, want 002_templates.sql", statuses[1].Name)
	}
}

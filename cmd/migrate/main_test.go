package main

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"testing/fstest"

	"google.golang.org/api/googleapi"
)

func TestMigrationFilenamePattern(t *testing.T) {
	tests := []struct {
		filename string
		valid    bool
		version  string
		name     string
	}{
		{"0001_init_schema_migrations.sql", true, "0001", "init_schema_migrations"},
		{"0012_create_view.sql", true, "0012", "create_view"},
		{"001_invalid.sql", false, "", ""},
		{"0001_test", false, "", ""},
		{"0001.sql", false, "", ""},
		{"invalid_0001_test.sql", false, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			matches := migrationPattern.FindStringSubmatch(tt.filename)
			if (matches != nil) != tt.valid {
				t.Fatalf("match = %v, want %v", matches != nil, tt.valid)
			}
			if !tt.valid {
				return
			}
			if matches[1] != tt.version || matches[2] != tt.name {
				t.Errorf("got version %q name %q, want %q %q", matches[1], matches[2], tt.version, tt.name)
			}
		})
	}
}

func TestReadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/0002_b.sql":   {Data: []byte("CREATE TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.b` (id INT64);")},
		"migrations/0001_a.sql":   {Data: []byte("CREATE TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.a` (id INT64);")},
		"migrations/README.md":    {Data: []byte("ignored")},
		"migrations/01_short.sql": {Data: []byte("ignored")},
	}

	migrations, err := readMigrations(fsys, "proj", "ds")
	if err != nil {
		t.Fatalf("readMigrations() error = %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("got %d migrations, want 2", len(migrations))
	}
	if migrations[0].Version != 1 || migrations[1].Version != 2 {
		t.Errorf("versions = %d, %d; want 1, 2", migrations[0].Version, migrations[1].Version)
	}
	if want := "CREATE TABLE `proj.ds.a` (id INT64);"; migrations[0].SQL != want {
		t.Errorf("SQL = %q, want %q", migrations[0].SQL, want)
	}

	// The checksum is taken before placeholders are filled in.
	other, err := readMigrations(fsys, "other-proj", "other-ds")
	if err != nil {
		t.Fatalf("readMigrations() error = %v", err)
	}
	if other[0].Checksum != migrations[0].Checksum {
		t.Error("checksum depends on the target project")
	}
	if migrations[0].Checksum == migrations[1].Checksum {
		t.Error("different files share a checksum")
	}
}

func TestReadMigrations_DuplicateVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/0001_a.sql": {Data: []byte("SELECT 1;")},
		"migrations/0001_b.sql": {Data: []byte("SELECT 2;")},
	}
	if _, err := readMigrations(fsys, "p", "d"); err == nil {
		t.Error("expected error for duplicate version")
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	migrations, err := readMigrations(embedded, "proj", "ds")
	if err != nil {
		t.Fatalf("readMigrations() error = %v", err)
	}
	if len(migrations) == 0 {
		t.Fatal("no embedded migrations")
	}
	for i, m := range migrations {
		if m.Version != i+1 {
			t.Errorf("migration %s has version %d, want %d", m.Filename, m.Version, i+1)
		}
		if strings.Contains(m.SQL, "{{") {
			t.Errorf("migration %s has unfilled placeholders", m.Filename)
		}
	}
	if migrations[0].Name != "init_schema_migrations" {
		t.Errorf("first migration = %s, want init_schema_migrations", migrations[0].Name)
	}
}

func TestPendingMigrations(t *testing.T) {
	migrations := []Migration{
		{Version: 1, Name: "a", Checksum: "c1"},
		{Version: 2, Name: "b", Checksum: "c2"},
		{Version: 3, Name: "c", Checksum: "c3"},
	}

	tests := []struct {
		name        string
		applied     []AppliedMigration
		wantPending []int
		wantErr     bool
	}{
		{name: "fresh dataset", applied: nil, wantPending: []int{1, 2, 3}},
		{name: "partly applied", applied: []AppliedMigration{{Version: 1, Checksum: "c1"}}, wantPending: []int{2, 3}},
		{name: "up to date", applied: []AppliedMigration{{Version: 1, Checksum: "c1"}, {Version: 2, Checksum: "c2"}, {Version: 3, Checksum: "c3"}}},
		{name: "missing checksum is trusted", applied: []AppliedMigration{{Version: 1}}, wantPending: []int{2, 3}},
		{name: "changed file", applied: []AppliedMigration{{Version: 2, Checksum: "old"}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pending, err := pendingMigrations(migrations, tt.applied)
			if (err != nil) != tt.wantErr {
				t.Fatalf("pendingMigrations() error = %v, wantErr %v", err, tt.wantErr)
			}
			var got []int
			for _, m := range pending {
				got = append(got, m.Version)
			}
			if fmt.Sprint(got) != fmt.Sprint(tt.wantPending) {
				t.Errorf("pending = %v, want %v", got, tt.wantPending)
			}
		})
	}
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "googleapi 404", err: fmt.Errorf("wrapped: %w", &googleapi.Error{Code: 404}), want: true},
		{name: "googleapi 403", err: &googleapi.Error{Code: 403}, want: false},
		{name: "message", err: errors.New("Error 404: Not found: Table p:d.schema_migrations"), want: true},
		{name: "other", err: errors.New("boom"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isNotFound(tt.err); got != tt.want {
				t.Errorf("isNotFound() = %v, want %v", got, tt.want)
			}
		})
	}
}

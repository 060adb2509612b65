package db

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/onnwee/habbo-verify/testutil"
	"github.com/onnwee/habbo-verify/verify"
)

func tableExists(t *testing.T, db *sql.DB, table string) bool {
	t.Helper()
	var exists bool
	err := db.QueryRow(`SELECT EXISTS (
		SELECT FROM information_schema.tables
		WHERE table_name = $1
	)`, table).Scan(&exists)
	if err != nil {
		t.Fatalf("failed to check table %s: %v", table, err)
	}
	return exists
}

func TestRunMigrations(t *testing.T) {
	db := testutil.OpenTestDB(t)

	if err := RunMigrations(db); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}
	if !tableExists(t, db, "verification_outcomes") {
		t.Error("verification_outcomes does not exist after migration")
	}
	version, dirty, err := GetMigrationVersion(db)
	if err != nil {
		t.Fatalf("GetMigrationVersion() error = %v", err)
	}
	if dirty {
		t.Error("migration version is dirty")
	}
	if version != 2 {
		t.Errorf("migration version = %d, want 2", version)
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	db := testutil.OpenTestDB(t)

	if err := RunMigrations(db); err != nil {
		t.Fatalf("first RunMigrations() error = %v", err)
	}
	v1, _, err := GetMigrationVersion(db)
	if err != nil {
		t.Fatal(err)
	}
	if err := RunMigrations(db); err != nil {
		t.Fatalf("second RunMigrations() error = %v", err)
	}
	v2, _, err := GetMigrationVersion(db)
	if err != nil {
		t.Fatal(err)
	}
	if v1 != v2 {
		t.Errorf("version changed: %d -> %d (should be stable)", v1, v2)
	}
}

func TestMigrationUpDown(t *testing.T) {
	db := testutil.OpenTestDB(t)

	if err := RunMigrations(db); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}
	if err := MigrateDown(db); err != nil {
		t.Fatalf("MigrateDown() error = %v", err)
	}
	version, dirty, err := GetMigrationVersion(db)
	if err != nil {
		t.Fatal(err)
	}
	if dirty || version != 1 {
		t.Errorf("after down: version=%d dirty=%v, want 1 clean", version, dirty)
	}
	if !tableExists(t, db, "verification_outcomes") {
		t.Error("rolling back the index migration dropped the table")
	}
	if err := RunMigrations(db); err != nil {
		t.Fatalf("RunMigrations() after rollback error = %v", err)
	}
}

func TestRecorder(t *testing.T) {
	db := testutil.OpenTestDB(t)
	if err := RunMigrations(db); err != nil {
		t.Fatal(err)
	}
	rec := NewRecorder(db)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour).UTC().Truncate(time.Second)

	if p, err := rec.LastProfile(ctx, "42"); err != nil || p != "" {
		t.Fatalf("LastProfile() on empty table = %q, %v", p, err)
	}

	entries := []verify.Record{
		{SessionID: uuid.NewString(), UserID: "42", GuildID: "g1", Profile: "Ghost", State: verify.StateNotFound, StartedAt: base, FinishedAt: base.Add(time.Second)},
		{SessionID: uuid.NewString(), UserID: "42", GuildID: "g1", Profile: "alice", ResolvedName: "Alice", State: verify.StateMatched, StartedAt: base.Add(time.Minute), FinishedAt: base.Add(2 * time.Minute)},
		{SessionID: uuid.NewString(), UserID: "7", GuildID: "g2", Profile: "Bob", State: verify.StateExpired, StartedAt: base, FinishedAt: base.Add(5 * time.Minute)},
	}
	for _, e := range entries {
		if err := rec.RecordOutcome(ctx, e); err != nil {
			t.Fatalf("RecordOutcome() error = %v", err)
		}
	}
	// duplicate session ids are ignored
	if err := rec.RecordOutcome(ctx, entries[0]); err != nil {
		t.Fatalf("RecordOutcome() duplicate error = %v", err)
	}

	p, err := rec.LastProfile(ctx, "42")
	if err != nil {
		t.Fatal(err)
	}
	if p != "alice" {
		t.Errorf("LastProfile() = %q, want alice", p)
	}

	sum, err := rec.Summary(ctx, "g1", base.Add(-time.Minute))
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	want := []OutcomeCount{{Outcome: "matched", Count: 1}, {Outcome: "not_found", Count: 1}}
	if len(sum) != len(want) {
		t.Fatalf("Summary() = %+v, want %+v", sum, want)
	}
	for i := range want {
		if sum[i] != want[i] {
			t.Errorf("Summary()[%d] = %+v, want %+v", i, sum[i], want[i])
		}
	}

	all, err := rec.Summary(ctx, "", base.Add(-time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("Summary(all guilds) = %+v, want 3 outcomes", all)
	}
}

func TestConnectRejectsEmptyDSN(t *testing.T) {
	if _, err := Connect(context.Background(), ""); err == nil {
		t.Fatal("Connect(\"\") want error")
	}
}

package database

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLedger(t *testing.T) *DB {
	t.Helper()

	db, err := New(Config{
		Path:    filepath.Join(t.TempDir(), "ledger.db"),
		Profile: ProfileLedger,
		Name:    "ledger",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Migrate())
	return db
}

func TestNew_AppliesLedgerSchema(t *testing.T) {
	db := newLedger(t)

	for _, table := range []string{"profiles", "categories", "transactions", "legacy_transactions"} {
		var name string
		err := db.Conn().QueryRow(
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
	}

	assert.Equal(t, "ledger", db.Name())
	assert.Equal(t, ProfileLedger, db.Profile())
}

func TestMigrate_IsIdempotent(t *testing.T) {
	db := newLedger(t)
	assert.NoError(t, db.Migrate())
	assert.NoError(t, db.Migrate())
}

func TestMigrate_UnknownNameIsSkipped(t *testing.T) {
	db, err := New(Config{Path: filepath.Join(t.TempDir(), "other.db"), Name: "other"})
	require.NoError(t, err)
	defer db.Close()

	assert.NoError(t, db.Migrate())
	assert.Equal(t, ProfileStandard, db.Profile())
}

func TestBuildConnectionString(t *testing.T) {
	ledger := buildConnectionString("/tmp/ledger.db", ProfileLedger)
	assert.True(t, strings.HasPrefix(ledger, "/tmp/ledger.db?_pragma=journal_mode(WAL)"))
	assert.Contains(t, ledger, "synchronous(FULL)")

	standard := buildConnectionString("file:x?mode=memory", ProfileStandard)
	assert.Contains(t, standard, "file:x?mode=memory&_pragma=journal_mode(WAL)")
	assert.Contains(t, standard, "synchronous(NORMAL)")
}

func TestWithTransaction_RollsBackOnError(t *testing.T) {
	db := newLedger(t)

	err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		_, execErr := tx.Exec(
			"INSERT INTO profiles (user_id, default_currency, created_at, updated_at) VALUES ('u1', 'USD', 1, 1)",
		)
		require.NoError(t, execErr)
		return assert.AnError
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)

	var count int
	require.NoError(t, db.Conn().QueryRow("SELECT COUNT(*) FROM profiles").Scan(&count))
	assert.Zero(t, count)
}

func TestWithTransaction_RecoversPanic(t *testing.T) {
	db := newLedger(t)

	err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		panic("boom")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic in transaction")
}

func TestWithTransaction_NilDB(t *testing.T) {
	err := WithTransaction(nil, func(tx *sql.Tx) error { return nil })
	assert.Error(t, err)
}

func TestHealthAndMaintenance(t *testing.T) {
	db := newLedger(t)
	ctx := context.Background()

	assert.NoError(t, db.QuickCheck(ctx))
	assert.NoError(t, db.HealthCheck(ctx))
	assert.NoError(t, db.WALCheckpoint(""))
	assert.Error(t, db.WALCheckpoint("DROP TABLE"))

	stats, err := db.GetStats()
	require.NoError(t, err)
	assert.Positive(t, stats.PageSize)
}

func TestVacuumInto(t *testing.T) {
	db := newLedger(t)
	dest := filepath.Join(t.TempDir(), "copy.db")

	require.NoError(t, db.VacuumInto(context.Background(), dest))

	info, err := os.Stat(dest)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

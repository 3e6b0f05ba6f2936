package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"testing"

	"github.com/Ahmed-aleryani/coinmind/internal/database"
	"github.com/Ahmed-aleryani/coinmind/internal/modules/transactions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate keeps config.Load away from the developer's environment and the network
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("COINMIND_DATA_DIR", dir)
	t.Setenv("RATE_PROVIDER_URL", "http://127.0.0.1:1")
	t.Setenv("RATE_FETCH_TIMEOUT", "1s")
	t.Setenv("BACKUP_BUCKET", "")
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCmd(t *testing.T) {
	cmd := newRootCmd()
	assert.Equal(t, "coinctl", cmd.Use)

	for _, name := range []string{"config", "data-dir", "log-level"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}
	assert.Equal(t, "info", cmd.PersistentFlags().Lookup("log-level").DefValue)

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"reconvert", "migrate-legacy", "rate", "backup", "seed", "check"}, names)
}

func TestSubcommandFlags(t *testing.T) {
	a := &app{}

	reconvert := reconvertCmd(a)
	assert.Equal(t, "", reconvert.Flag("user").DefValue)
	assert.Equal(t, "false", reconvert.Flag("all").DefValue)

	rate := rateCmd(a)
	assert.Equal(t, "1", rate.Flag("amount").DefValue)

	backup := backupCmd(a)
	assert.Equal(t, "true", backup.Flag("rotate").DefValue)
	assert.Equal(t, "false", backup.Flag("list").DefValue)
}

func TestSelectScope(t *testing.T) {
	assert.NoError(t, selectScope("alice", false))
	assert.NoError(t, selectScope("", true))
	assert.ErrorIs(t, selectScope("", false), errUserOrAll)
	assert.ErrorIs(t, selectScope("alice", true), errUserOrAll)
}

func TestSeed(t *testing.T) {
	isolate(t)

	out, err := execute(t, "seed")
	require.NoError(t, err)
	// Wiring already seeds, so an explicit run has nothing left to add
	assert.Contains(t, out, "seeded 0 default categories")
}

func TestDataDirFlag(t *testing.T) {
	isolate(t)
	dir := filepath.Join(t.TempDir(), "override")

	_, err := execute(t, "--data-dir", dir, "seed")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "ledger.db"))
}

func TestCheck(t *testing.T) {
	isolate(t)

	out, err := execute(t, "check")
	require.NoError(t, err)
	assert.Contains(t, out, "ledger: ok")
}

func TestRate_SameCurrency(t *testing.T) {
	isolate(t)

	out, err := execute(t, "rate", "usd", "USD", "--amount", "12.5")
	require.NoError(t, err)
	assert.Contains(t, out, "1 USD = 1 USD")
	assert.Contains(t, out, "12.5 USD = 12.50 USD")
}

func TestRate_ProviderDown(t *testing.T) {
	isolate(t)

	_, err := execute(t, "rate", "USD", "EUR")
	assert.Error(t, err)

	_, err = execute(t, "rate", "USD")
	assert.Error(t, err, "two currencies are required")
}

func TestBackup_NotConfigured(t *testing.T) {
	isolate(t)

	_, err := execute(t, "backup")
	assert.ErrorIs(t, err, errBackupDisabled)
}

func TestReconvert_RequiresScope(t *testing.T) {
	isolate(t)

	_, err := execute(t, "reconvert")
	assert.ErrorIs(t, err, errUserOrAll)
}

func TestReconvert_EmptyLedger(t *testing.T) {
	isolate(t)

	out, err := execute(t, "reconvert", "--all")
	require.NoError(t, err)

	var report transactions.MigrationReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Zero(t, report.Scanned)
}

func TestMigrateLegacy(t *testing.T) {
	dir := isolate(t)

	db, err := database.New(database.Config{
		Path:    filepath.Join(dir, "ledger.db"),
		Profile: database.ProfileLedger,
		Name:    "ledger",
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	_, err = db.Conn().Exec(`INSERT INTO legacy_transactions (user_id, date, amount, currency, category, description)
		VALUES ('alice', '2024-03-01', 2500, 'EUR', 'Salary', 'March pay'),
		       ('alice', '2024-03-02', -40, 'EUR', 'Food', 'Groceries')`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	out, err := execute(t, "migrate-legacy", "--user", "alice")
	require.NoError(t, err)

	var report transactions.MigrationReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 2, report.Scanned)
	assert.Equal(t, 2, report.Updated)
	assert.Zero(t, report.Failed)

	out, err = execute(t, "migrate-legacy", "--all")
	require.NoError(t, err)

	report = transactions.MigrationReport{}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Zero(t, report.Updated, "migrated rows are not copied twice")
}

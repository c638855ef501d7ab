package database

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T, profile Profile) *DB {
	t.Helper()
	db, err := New(Config{
		Path:    filepath.Join(t.TempDir(), "test.db"),
		Profile: profile,
		Name:    "test",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestNewAndHealthCheck(t *testing.T) {
	db := newTestDB(t, ProfileLedger)
	assert.NoError(t, db.HealthCheck(context.Background()))
	assert.Equal(t, "test", db.Name())
}

func TestBuildConnectionString(t *testing.T) {
	ledger := buildConnectionString("/tmp/x.db", ProfileLedger)
	assert.Contains(t, ledger, "?_pragma=journal_mode(WAL)")
	assert.Contains(t, ledger, "synchronous(FULL)")
	assert.Contains(t, ledger, "auto_vacuum(NONE)")

	standard := buildConnectionString("/tmp/x.db", ProfileStandard)
	assert.Contains(t, standard, "synchronous(NORMAL)")

	// file: URIs with existing query parameters keep a single "?".
	uri := buildConnectionString("file:mem?mode=memory", ProfileStandard)
	assert.Equal(t, 1, strings.Count(uri, "?"))
	assert.Contains(t, uri, "&_pragma=journal_mode(WAL)")
}

func TestExecQueryRoundTrip(t *testing.T) {
	db := newTestDB(t, ProfileStandard)

	_, err := db.Exec("CREATE TABLE t (id INTEGER PRIMARY KEY, v TEXT)")
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO t (v) VALUES (?)", "hello")
	require.NoError(t, err)

	var v string
	require.NoError(t, db.QueryRow("SELECT v FROM t WHERE id = 1").Scan(&v))
	assert.Equal(t, "hello", v)
}

func TestWALCheckpoint(t *testing.T) {
	db := newTestDB(t, ProfileLedger)
	assert.NoError(t, db.WALCheckpoint(""))
	assert.NoError(t, db.WALCheckpoint("PASSIVE"))
}

func TestWithTransaction(t *testing.T) {
	db := newTestDB(t, ProfileStandard)
	_, err := db.Exec("CREATE TABLE t (id INTEGER PRIMARY KEY, v TEXT)")
	require.NoError(t, err)

	t.Run("commit", func(t *testing.T) {
		err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
			_, err := tx.Exec("INSERT INTO t (v) VALUES (?)", "committed")
			return err
		})
		require.NoError(t, err)

		var count int
		require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM t WHERE v = 'committed'").Scan(&count))
		assert.Equal(t, 1, count)
	})

	t.Run("rollback on error", func(t *testing.T) {
		err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
			if _, err := tx.Exec("INSERT INTO t (v) VALUES (?)", "doomed"); err != nil {
				return err
			}
			return fmt.Errorf("abort")
		})
		require.Error(t, err)

		var count int
		require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM t WHERE v = 'doomed'").Scan(&count))
		assert.Equal(t, 0, count)
	})

	t.Run("nil connection", func(t *testing.T) {
		assert.Error(t, WithTransaction(nil, func(tx *sql.Tx) error { return nil }))
	})
}

package journal

import (
	"path/filepath"
	"testing"

	"github.com/aristath/darwin-agent/internal/database"
	"github.com/aristath/darwin-agent/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), "journal.db"),
		Profile: database.ProfileLedger,
		Name:    "journal-test",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := NewRepository(db.Conn())
	require.NoError(t, repo.Migrate())
	return repo
}

func TestMigrateIsIdempotent(t *testing.T) {
	repo := newTestRepository(t)
	assert.NoError(t, repo.Migrate())
}

func TestDecisionRoundTrip(t *testing.T) {
	repo := newTestRepository(t)

	stop := 66.5
	require.NoError(t, repo.RecordDecision(21, &domain.TradeDecision{
		Side:     domain.SideBuy,
		Symbol:   "AAA",
		Amount:   100,
		Tags:     []string{"zscore_reversion", "mean_reversion"},
		Reason:   "z=-4.25",
		StopLoss: &stop,
	}))
	require.NoError(t, repo.RecordDecision(22, &domain.TradeDecision{
		Side:   domain.SideSell,
		Symbol: "AAA",
		Amount: 85.7,
		Tags:   []string{"stop_loss"},
		Reason: "stop_loss at 60",
	}))
	require.NoError(t, repo.RecordDecision(0, nil), "nil decisions are ignored")

	records, err := repo.RecentDecisions(10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Newest first.
	assert.Equal(t, int64(22), records[0].Tick)
	assert.Equal(t, domain.SideSell, records[0].Side)
	assert.Equal(t, []string{"stop_loss"}, records[0].Tags)

	assert.Equal(t, int64(21), records[1].Tick)
	assert.Equal(t, "AAA", records[1].Symbol)
	assert.Equal(t, 100.0, records[1].Amount)
	assert.Equal(t, []string{"zscore_reversion", "mean_reversion"}, records[1].Tags)
	assert.NotEmpty(t, records[1].ID)
}

func TestRecordFill(t *testing.T) {
	repo := newTestRepository(t)
	assert.NoError(t, repo.RecordFill(21, "AAA", domain.SideBuy, 100, 70))
}

func TestEpochRoundTrip(t *testing.T) {
	repo := newTestRepository(t)

	require.NoError(t, repo.RecordEpoch(1, 20, "excellent", "held the line"))
	require.NoError(t, repo.RecordEpoch(15, 20, "poor", "rotated too late"))

	records, err := repo.Epochs()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 1, records[0].Rank)
	assert.Equal(t, "excellent", records[0].Label)
	assert.Equal(t, "rotated too late", records[1].Reflection)
	assert.Equal(t, 20, records[1].Total)
}

package statestore

import (
	"path/filepath"
	"testing"

	"github.com/aristath/darwin-agent/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingSnapshot(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "state.msgpack"))

	snapshot, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, snapshot)
}

func TestSaveRejectsNilState(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "state.msgpack"))
	assert.Error(t, store.Save(nil, nil))
}

func TestSnapshotRoundTrip(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "state.msgpack"))

	stop := 66.5
	state := domain.NewStrategyState(1000)
	state.Balance = 812.5
	state.Tick = 42
	state.Positions["AAA"] = &domain.Position{
		Symbol:    "AAA",
		AvgPrice:  70,
		Quantity:  1.5,
		DCALevel:  1,
		PeakPrice: 75,
		AgeTicks:  7,
		StopLoss:  &stop,
		EntryTags: []string{"zscore_reversion"},
	}
	state.Cooldowns["BBB"] = 3
	state.BannedTags["dca"] = true
	state.BoostedTags["mean_reversion"] = true

	history := map[string][]domain.PricePoint{
		"AAA": {{Symbol: "AAA", Price: 70}, {Symbol: "AAA", Price: 71}},
	}

	require.NoError(t, store.Save(state, history))

	snapshot, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.False(t, snapshot.SavedAt.IsZero())

	got := snapshot.State
	assert.Equal(t, 812.5, got.Balance)
	assert.Equal(t, 1000.0, got.InitialBalance)
	assert.Equal(t, int64(42), got.Tick)
	assert.Equal(t, 3, got.Cooldowns["BBB"])
	assert.True(t, got.BannedTags["dca"])
	assert.True(t, got.BoostedTags["mean_reversion"])

	pos := got.Positions["AAA"]
	require.NotNil(t, pos)
	assert.Equal(t, 1.5, pos.Quantity)
	assert.Equal(t, 1, pos.DCALevel)
	require.NotNil(t, pos.StopLoss)
	assert.Equal(t, 66.5, *pos.StopLoss)
	assert.Equal(t, []string{"zscore_reversion"}, pos.EntryTags)

	require.Len(t, snapshot.History["AAA"], 2)
	assert.Equal(t, 71.0, snapshot.History["AAA"][1].Price)
}

func TestSaveOverwritesAtomically(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "state.msgpack"))

	first := domain.NewStrategyState(1000)
	first.Tick = 1
	require.NoError(t, store.Save(first, nil))

	second := domain.NewStrategyState(1000)
	second.Tick = 2
	require.NoError(t, store.Save(second, nil))

	snapshot, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, int64(2), snapshot.State.Tick)
}

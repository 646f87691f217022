package redis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/pharosbet/internal/domain"
)

func TestSnapshotEncoding(t *testing.T) {
	resolved := domain.OutcomeYes
	markets := []domain.Market{
		{ID: "chain-0xa1", IsOnChain: true, Question: "Q", Category: domain.CategoryTech, Tags: []string{}, YesPrice: 61, NoPrice: 39, Status: domain.MarketStatusActive},
		{ID: "chain-0xa2", IsOnChain: true, Question: "R", Category: domain.CategoryOther, Tags: []string{}, YesPrice: 100, NoPrice: 0, Status: domain.MarketStatusResolved, Resolution: &resolved},
	}
	now := time.UnixMilli(1_770_000_000_123)

	data, storedAt, err := encodeSnapshot(markets, now)
	require.NoError(t, err)

	got, at, err := decodeSnapshot(map[string]string{"data": string(data), "stored_at": storedAt})
	require.NoError(t, err)
	assert.True(t, at.Equal(now))
	require.Len(t, got, 2)
	assert.Equal(t, markets[0].ID, got[0].ID)
	assert.Equal(t, 61, got[0].YesPrice)
	require.NotNil(t, got[1].Resolution)
	assert.Equal(t, domain.OutcomeYes, *got[1].Resolution)
}

func TestSnapshotEncoding_Empty(t *testing.T) {
	data, _, err := encodeSnapshot(nil, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestDecodeSnapshot_Missing(t *testing.T) {
	_, _, err := decodeSnapshot(map[string]string{})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, _, err = decodeSnapshot(map[string]string{"data": "{", "stored_at": "1"})
	assert.Error(t, err)
}

func TestClientKey(t *testing.T) {
	c := newClient(nil, "")
	assert.Equal(t, "pharosbet:snapshot:onchain", c.Key("snapshot", "onchain"))
	assert.Equal(t, "pharosbet:", c.Key(""))

	c = newClient(nil, "staging:")
	assert.Equal(t, "staging:markets", c.Key("markets"))
	assert.Equal(t, "staging:snapshot:onchain", NewSnapshotCache(c, 0).key)
	assert.Equal(t, "staging:", NewSignalBus(c).prefix)
}

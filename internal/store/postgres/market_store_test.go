package postgres

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/pharosbet/internal/domain"
)

// argsRow replays values as a pgx.Row would scan them.
type argsRow struct {
	values []any
	err    error
}

func (r argsRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return errors.New("column count mismatch")
	}
	for i, d := range dest {
		reflect.ValueOf(d).Elem().Set(reflect.ValueOf(r.values[i]))
	}
	return nil
}

func sampleMarket() domain.Market {
	r := domain.OutcomeYes
	return domain.Market{
		ID:             "local-1",
		Question:       "Q?",
		Description:    "D",
		Category:       domain.CategorySports,
		Tags:           []string{"a", "b"},
		Creator:        "0xabc",
		CreatedAt:      time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		EndDate:        1_800_000_000_000,
		YesPrice:       70,
		NoPrice:        30,
		TotalYesShares: 7,
		TotalNoShares:  3,
		Volume:         10,
		Participants:   2,
		Status:         domain.MarketStatusResolved,
		Resolution:     &r,
	}
}

func TestScanMarket_RoundTripsArgs(t *testing.T) {
	want := sampleMarket()
	args := marketArgs(want)

	got, err := scanMarket(argsRow{values: args})
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestMarketArgs_NilTagsAndResolution(t *testing.T) {
	m := sampleMarket()
	m.Tags = nil
	m.Resolution = nil
	m.Status = domain.MarketStatusActive

	args := marketArgs(m)
	assert.Equal(t, []string{}, args[4])
	assert.Nil(t, args[15])
}

func TestScanMarket_BadResolution(t *testing.T) {
	args := marketArgs(sampleMarket())
	bad := "maybe"
	args[15] = &bad

	_, err := scanMarket(argsRow{values: args})
	assert.ErrorIs(t, err, domain.ErrMalformedMarket)
}

func TestDSN(t *testing.T) {
	assert.Equal(t, "postgres://u:p@db:5432/pharos?sslmode=disable",
		DSN(ClientConfig{User: "u", Password: "p", Host: "db", Database: "pharos"}))
	assert.Equal(t, "postgres://x", DSN(ClientConfig{DSN: "postgres://x", Host: "ignored"}))
	assert.Equal(t, "postgres://u:p%40ss%2Fword@db:6432/pharos?sslmode=require",
		DSN(ClientConfig{User: "u", Password: "p@ss/word", Host: "db", Port: 6432, Database: "pharos", SSLMode: "require"}))
}

func TestMigrationNames(t *testing.T) {
	names, err := migrationNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"001_markets.sql"}, names)
}

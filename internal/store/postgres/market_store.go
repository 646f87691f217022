package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/pharosbet/internal/domain"
)

// MarketStore implements domain.MarketStore for off-chain markets.
type MarketStore struct {
	pool *pgxpool.Pool
}

// NewMarketStore creates a MarketStore backed by pool.
func NewMarketStore(pool *pgxpool.Pool) *MarketStore {
	return &MarketStore{pool: pool}
}

const marketCols = `id, question, description, category, tags, creator, end_date_ms,
	yes_price, no_price, total_yes_shares, total_no_shares, volume, liquidity,
	participants, status, resolution, created_at`

// Upsert inserts or updates m. On-chain markets are rejected.
func (s *MarketStore) Upsert(ctx context.Context, m domain.Market) error {
	if m.IsOnChain {
		return fmt.Errorf("postgres: upsert market %s: on-chain markets are not stored", m.ID)
	}
	const query = `
		INSERT INTO markets (` + marketCols + `, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, NOW())
		ON CONFLICT (id) DO UPDATE SET
			yes_price        = EXCLUDED.yes_price,
			no_price         = EXCLUDED.no_price,
			total_yes_shares = EXCLUDED.total_yes_shares,
			total_no_shares  = EXCLUDED.total_no_shares,
			volume           = EXCLUDED.volume,
			liquidity        = EXCLUDED.liquidity,
			participants     = EXCLUDED.participants,
			status           = EXCLUDED.status,
			resolution       = EXCLUDED.resolution,
			updated_at       = NOW()`

	_, err := s.pool.Exec(ctx, query, marketArgs(m)...)
	if err != nil {
		return fmt.Errorf("postgres: upsert market %s: %w", m.ID, err)
	}
	return nil
}

// ListOffChain returns every stored market, newest first.
func (s *MarketStore) ListOffChain(ctx context.Context) ([]domain.Market, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+marketCols+` FROM markets ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list markets: %w", err)
	}
	defer rows.Close()

	var out []domain.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan market: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list markets: %w", err)
	}
	return out, nil
}

func marketArgs(m domain.Market) []any {
	var resolution *string
	if m.Resolution != nil {
		r := string(*m.Resolution)
		resolution = &r
	}
	tags := m.Tags
	if tags == nil {
		tags = []string{}
	}
	return []any{
		m.ID, m.Question, m.Description, string(m.Category), tags, m.Creator, m.EndDate,
		m.YesPrice, m.NoPrice, m.TotalYesShares, m.TotalNoShares, m.Volume, m.Liquidity,
		m.Participants, string(m.Status), resolution, m.CreatedAt,
	}
}

func scanMarket(row pgx.Row) (domain.Market, error) {
	var (
		m          domain.Market
		category   string
		status     string
		resolution *string
	)
	err := row.Scan(
		&m.ID, &m.Question, &m.Description, &category, &m.Tags, &m.Creator, &m.EndDate,
		&m.YesPrice, &m.NoPrice, &m.TotalYesShares, &m.TotalNoShares, &m.Volume, &m.Liquidity,
		&m.Participants, &status, &resolution, &m.CreatedAt,
	)
	if err != nil {
		return domain.Market{}, err
	}
	m.Category = domain.ParseCategory(category)
	m.Status = domain.MarketStatus(status)
	if resolution != nil {
		r, ok := domain.ParseOutcome(*resolution)
		if !ok {
			return domain.Market{}, fmt.Errorf("market %s has resolution %q: %w", m.ID, *resolution, domain.ErrMalformedMarket)
		}
		m.Resolution = &r
	}
	return m, nil
}

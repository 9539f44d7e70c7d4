package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/trackaship/alarmsender/internal/domain"
	"github.com/trackaship/alarmsender/internal/repo"
)

var _ repo.PositionStore = (*Store)(nil)

// Store reads vessel positions from the AIS ingest database.
type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Store{pool: pool, log: log}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Latest returns the most recent observation for a target, or nil, nil when
// the target has never reported.
func (s *Store) Latest(ctx context.Context, target domain.TargetID) (*domain.Position, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT lat, lon, observed_at
		   FROM positions
		  WHERE target_id = $1
		  ORDER BY observed_at DESC
		  LIMIT 1`, string(target))

	p := domain.Position{Target: target}
	if err := row.Scan(&p.Lat, &p.Lon, &p.ObservedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("latest position %s: %w", target, err)
	}
	return &p, nil
}

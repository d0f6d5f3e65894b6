package recorder

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// DBPool abstracts the pgxpool.Pool so the store can be mocked in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Close()
}

const createSamplesTable = `
CREATE TABLE IF NOT EXISTS comm_decision_samples (
	robot_id             TEXT        NOT NULL,
	cycle                BIGINT      NOT NULL,
	state                TEXT        NOT NULL,
	decision             DOUBLE PRECISION NOT NULL,
	selected_topology_id INTEGER     NOT NULL,
	recorded_at          TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (robot_id, cycle)
)`

const insertSample = `
INSERT INTO comm_decision_samples
	(robot_id, cycle, state, decision, selected_topology_id, recorded_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (robot_id, cycle) DO UPDATE SET
	state = EXCLUDED.state,
	decision = EXCLUDED.decision,
	selected_topology_id = EXCLUDED.selected_topology_id,
	recorded_at = EXCLUDED.recorded_at`

// Store is a PostgreSQL-backed Recorder for long experiment campaigns.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// NewStore verifies the connection and ensures the samples table exists.
func NewStore(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, createSamplesTable); err != nil {
		return nil, fmt.Errorf("failed to ensure samples table: %w", err)
	}
	return &Store{
		pool: pool,
		log:  logger.Named("recorder_store"),
	}, nil
}

// Record implements Recorder. One row per robot per cycle; re-recording a
// cycle overwrites it, which keeps restarted runs idempotent.
func (s *Store) Record(ctx context.Context, sample Sample) error {
	_, err := s.pool.Exec(ctx, insertSample,
		sample.RobotID,
		sample.Cycle,
		sample.State,
		sample.Decision,
		sample.SelectedTopologyID,
		sample.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert sample for %s cycle %d: %w", sample.RobotID, sample.Cycle, err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.log.Debug("closing sample store")
	s.pool.Close()
	return nil
}

var _ Recorder = (*Store)(nil)

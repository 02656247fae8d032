package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/scribe/internal/pkg/persistence"
	"github.com/airenas/scribe/internal/pkg/status"
)

// AbandonedMsg is saved as error of swept jobs
const AbandonedMsg = "abandoned"

// StaleJobs provides IDs of jobs stuck in processing
type StaleJobs struct {
	pool         dbPool
	expiresAfter time.Duration
}

// NewStaleJobs creates provider
func NewStaleJobs(pool dbPool, expiresAfter time.Duration) (*StaleJobs, error) {
	if expiresAfter <= 0 {
		return nil, fmt.Errorf("wrong expire duration %v", expiresAfter)
	}
	return &StaleJobs{pool: pool, expiresAfter: expiresAfter}, nil
}

// GetExpired returns processing jobs older than expire duration
func (db *StaleJobs) GetExpired(ctx context.Context) ([]string, error) {
	exp := time.Now().Add(-db.expiresAfter)
	goapp.Log.Info().Time("older than", exp).Msg("selecting stale jobs...")
	rows, err := db.pool.Query(ctx, `SELECT id FROM jobs WHERE status = $1 AND created < $2`, status.Processing.String(), exp)
	if err != nil {
		return nil, fmt.Errorf("can't select IDs: %w", err)
	}
	defer rows.Close()

	res := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("can't retrieve IDs: %w", err)
		}
		res = append(res, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("can't retrieve IDs: %w", err)
	}
	return res, nil
}

// ReleaseChats drops queued chat states older than expire duration,
// so users of a crashed worker can send a new file
func (db *StaleJobs) ReleaseChats(ctx context.Context) (int64, error) {
	cmd, err := db.pool.Exec(ctx, `DELETE FROM chat_state WHERE state = $1 AND updated < $2`,
		persistence.ChatStateQueued, time.Now().Add(-db.expiresAfter))
	if err != nil {
		return 0, fmt.Errorf("can't release chats: %w", err)
	}
	return cmd.RowsAffected(), nil
}

// JobSweeper fails abandoned jobs
type JobSweeper struct {
	pool dbPool
}

// NewJobSweeper creates sweeper
func NewJobSweeper(pool dbPool) (*JobSweeper, error) {
	return &JobSweeper{pool: pool}, nil
}

// Clean marks job failed if it is still processing
func (db *JobSweeper) Clean(ctx context.Context, id string) error {
	cmd, err := db.pool.Exec(ctx, `UPDATE jobs SET status = $2, error_message = $3, completed = now()
	WHERE id = $1 AND status = $4`, id, status.Failed.String(), AbandonedMsg, status.Processing.String())
	if err != nil {
		return fmt.Errorf("can't sweep %s: %w", id, err)
	}
	goapp.Log.Info().Str("ID", id).Int64("rows", cmd.RowsAffected()).Msg("swept")
	return nil
}

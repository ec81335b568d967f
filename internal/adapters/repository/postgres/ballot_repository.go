package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rankedpoll/api/internal/core/domain"
	"github.com/rankedpoll/api/internal/core/ports"
)

// uniqueViolation is the postgres error code for a unique constraint hit.
const uniqueViolation = "23505"

type ballotRepository struct {
	db *sql.DB
}

func NewBallotRepository(db *sql.DB) ports.BallotRepository {
	return &ballotRepository{
		db: db,
	}
}

// SaveBallot inserts the vote token and the ballot in one transaction. The
// UNIQUE (poll_id, token) constraint is the admission decision: losing the
// race surfaces as domain.ErrAlreadyVoted and the ballot insert is rolled
// back with it, so a token row never exists without its ballot.
func (r *ballotRepository) SaveBallot(ctx context.Context, ballot *domain.Ballot, token *domain.VoteToken) error {
	ranking, err := json.Marshal(ballot.Ranking)
	if err != nil {
		return fmt.Errorf("failed to encode ranking: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	queryToken := `
		INSERT INTO vote_tokens (poll_id, token, voted_at)
		VALUES ($1, $2, $3)
	`
	_, err = tx.ExecContext(ctx, queryToken, token.PollID, token.Token, token.VotedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return domain.ErrAlreadyVoted
		}
		return fmt.Errorf("failed to insert vote token: %w", err)
	}

	queryBallot := `
		INSERT INTO ballots (id, poll_id, ranking, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err = tx.ExecContext(ctx, queryBallot, ballot.ID, ballot.PollID, ranking, ballot.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert ballot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *ballotRepository) ListRankings(ctx context.Context, pollID uuid.UUID) ([][]uuid.UUID, error) {
	query := `
		SELECT ranking
		FROM ballots
		WHERE poll_id = $1
		ORDER BY created_at, id
	`
	rows, err := r.db.QueryContext(ctx, query, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ballots: %w", err)
	}
	defer rows.Close()

	var rankings [][]uuid.UUID
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan ballot: %w", err)
		}
		var ranking []uuid.UUID
		if err := json.Unmarshal(raw, &ranking); err != nil {
			return nil, fmt.Errorf("failed to decode ranking: %w", err)
		}
		rankings = append(rankings, ranking)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ballots: %w", err)
	}
	return rankings, nil
}

func (r *ballotRepository) CountBallots(ctx context.Context, pollID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM ballots WHERE poll_id = $1`
	var count int
	if err := r.db.QueryRowContext(ctx, query, pollID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count ballots: %w", err)
	}
	return count, nil
}

func (r *ballotRepository) HasVoted(ctx context.Context, pollID uuid.UUID, token string) (bool, error) {
	query := `SELECT 1 FROM vote_tokens WHERE poll_id = $1 AND token = $2 LIMIT 1`
	var exists int
	err := r.db.QueryRowContext(ctx, query, pollID, token).Scan(&exists)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("failed to check existing vote: %w", err)
	}
	return true, nil
}

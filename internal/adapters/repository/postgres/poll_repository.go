package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rankedpoll/api/internal/core/domain"
	"github.com/rankedpoll/api/internal/core/ports"
)

type pollRepository struct {
	db *sql.DB
}

func NewPollRepository(db *sql.DB) ports.PollRepository {
	return &pollRepository{
		db: db,
	}
}

func (r *pollRepository) Save(ctx context.Context, poll *domain.Poll) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	queryPoll := `
		INSERT INTO polls (id, title, is_open, creator_token, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	creatorToken := sql.NullString{String: poll.CreatorToken, Valid: poll.CreatorToken != ""}
	_, err = tx.ExecContext(ctx, queryPoll, poll.ID, poll.Title, poll.IsOpen, creatorToken, poll.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert poll: %w", err)
	}

	queryOption := `
		INSERT INTO poll_options (id, poll_id, text, position, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	stmt, err := tx.PrepareContext(ctx, queryOption)
	if err != nil {
		return fmt.Errorf("failed to prepare option statement: %w", err)
	}
	defer stmt.Close()

	for _, opt := range poll.Options {
		_, err = stmt.ExecContext(ctx, opt.ID, opt.PollID, opt.Text, opt.Position, opt.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert option: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *pollRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Poll, error) {
	queryPoll := `
		SELECT id, title, is_open, creator_token, final_tally, created_at, closed_at
		FROM polls
		WHERE id = $1
	`

	var poll domain.Poll
	var creatorToken sql.NullString
	var finalTally []byte
	err := r.db.QueryRowContext(ctx, queryPoll, id).Scan(
		&poll.ID, &poll.Title, &poll.IsOpen, &creatorToken, &finalTally, &poll.CreatedAt, &poll.ClosedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrPollNotFound
		}
		return nil, fmt.Errorf("failed to get poll: %w", err)
	}
	poll.CreatorToken = creatorToken.String

	if len(finalTally) > 0 {
		var result domain.TallyResult
		if err := json.Unmarshal(finalTally, &result); err != nil {
			return nil, fmt.Errorf("failed to decode final tally: %w", err)
		}
		poll.FinalTally = &result
	}

	options, err := r.fetchOptions(ctx, poll.ID)
	if err != nil {
		return nil, err
	}
	poll.Options = options

	return &poll, nil
}

func (r *pollRepository) Close(ctx context.Context, id uuid.UUID, result *domain.TallyResult) error {
	tally, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode final tally: %w", err)
	}

	query := `
		UPDATE polls
		SET is_open = FALSE, final_tally = $2, closed_at = NOW()
		WHERE id = $1 AND is_open = TRUE
	`
	res, err := r.db.ExecContext(ctx, query, id, tally)
	if err != nil {
		return fmt.Errorf("failed to close poll: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check close result: %w", err)
	}
	if affected == 0 {
		return domain.ErrPollNotFound
	}

	return nil
}

func (r *pollRepository) fetchOptions(ctx context.Context, pollID uuid.UUID) ([]domain.Option, error) {
	queryOptions := `
		SELECT id, poll_id, text, position, created_at
		FROM poll_options
		WHERE poll_id = $1
		ORDER BY position
	`
	rows, err := r.db.QueryContext(ctx, queryOptions, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to get poll options: %w", err)
	}
	defer rows.Close()

	var options []domain.Option
	for rows.Next() {
		var opt domain.Option
		if err := rows.Scan(&opt.ID, &opt.PollID, &opt.Text, &opt.Position, &opt.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan option: %w", err)
		}
		options = append(options, opt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating options: %w", err)
	}
	return options, nil
}

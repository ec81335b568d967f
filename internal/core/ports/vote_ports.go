package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/rankedpoll/api/internal/core/domain"
)

type BallotRepository interface {
	// SaveBallot records a ballot together with its vote token in a single
	// atomic operation: either both rows exist afterwards or neither does.
	// A (poll id, token) uniqueness violation is reported as
	// domain.ErrAlreadyVoted.
	SaveBallot(ctx context.Context, ballot *domain.Ballot, token *domain.VoteToken) error
	ListRankings(ctx context.Context, pollID uuid.UUID) ([][]uuid.UUID, error)
	CountBallots(ctx context.Context, pollID uuid.UUID) (int, error)
	HasVoted(ctx context.Context, pollID uuid.UUID, token string) (bool, error)
}

type VoteInput struct {
	PollID     uuid.UUID
	Ranking    []uuid.UUID
	VoterToken string
}

type VoteService interface {
	Submit(ctx context.Context, input VoteInput) error
}

package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/rankedpoll/api/internal/core/domain"
)

type PollRepository interface {
	Save(ctx context.Context, poll *domain.Poll) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Poll, error)
	// Close flips is_open exactly once and records the final tally.
	// Returns domain.ErrPollNotFound for unknown polls.
	Close(ctx context.Context, id uuid.UUID, result *domain.TallyResult) error
}

type CreatePollInput struct {
	Title        string
	Options      []string
	CreatorToken string
}

// PollDetails is the read model for a single poll: the poll with its
// options plus how many ballots have been accepted so far.
type PollDetails struct {
	Poll        *domain.Poll `json:"poll"`
	BallotCount int          `json:"ballot_count"`
}

type PollService interface {
	Create(ctx context.Context, input CreatePollInput) (*domain.Poll, error)
	GetPoll(ctx context.Context, id string) (*PollDetails, error)
	ClosePoll(ctx context.Context, id string, requesterToken string) (*domain.TallyResult, error)
}

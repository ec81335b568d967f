package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Ballot is one voter's ranked preference over a poll's options, first
// preference first. Append-only: never mutated or deleted once accepted.
type Ballot struct {
	ID        uuid.UUID   `json:"id"`
	PollID    uuid.UUID   `json:"poll_id"`
	Ranking   []uuid.UUID `json:"ranking"`
	CreatedAt time.Time   `json:"created_at"`
}

// VoteToken marks that an opaque voter token has voted in a poll. Its
// existence is the "already voted" predicate; it is created in the same
// transaction as its ballot.
type VoteToken struct {
	PollID  uuid.UUID `json:"poll_id"`
	Token   string    `json:"token"`
	VotedAt time.Time `json:"voted_at"`
}

// InvalidRankingError reports ranking entries that are not options of the
// poll being voted on.
type InvalidRankingError struct {
	InvalidIDs []uuid.UUID
}

func (e *InvalidRankingError) Error() string {
	return fmt.Sprintf("ranking contains invalid option ids: %v", e.InvalidIDs)
}

// ValidateRanking checks a submitted ranking against a poll's option set.
// Empty rankings and unknown ids are rejected. Duplicates and partial
// rankings are accepted: the tally counts the first valid preference per
// round, so listing fewer than all options just means the ballot can
// exhaust early.
func ValidateRanking(ranking []uuid.UUID, options []Option) error {
	if len(ranking) == 0 {
		return ErrEmptyRanking
	}

	valid := make(map[uuid.UUID]struct{}, len(options))
	for _, opt := range options {
		valid[opt.ID] = struct{}{}
	}

	var invalid []uuid.UUID
	for _, id := range ranking {
		if _, ok := valid[id]; !ok {
			invalid = append(invalid, id)
		}
	}
	if len(invalid) > 0 {
		return &InvalidRankingError{InvalidIDs: invalid}
	}

	return nil
}

package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rankedpoll/api/internal/core/domain"
	"github.com/rankedpoll/api/internal/core/ports"
)

const (
	EventNewVote    = "new-vote"
	EventPollClosed = "poll-closed"
)

// NewVotePayload is broadcast to a poll's subscribers after every accepted
// ballot.
type NewVotePayload struct {
	TotalVotes int                `json:"total_votes"`
	Tally      domain.TallyResult `json:"tally"`
	Timestamp  time.Time          `json:"timestamp"`
}

// ClosedPayload carries the final tally when a poll closes.
type ClosedPayload struct {
	Tally     domain.TallyResult `json:"tally"`
	Timestamp time.Time          `json:"timestamp"`
}

type voteService struct {
	pollRepo    ports.PollRepository
	ballotRepo  ports.BallotRepository
	broadcaster ports.Broadcaster
	locks       *PollLocks
}

func NewVoteService(pollRepo ports.PollRepository, ballotRepo ports.BallotRepository, broadcaster ports.Broadcaster, locks *PollLocks) ports.VoteService {
	return &voteService{
		pollRepo:    pollRepo,
		ballotRepo:  ballotRepo,
		broadcaster: broadcaster,
		locks:       locks,
	}
}

// Submit admits one ballot. The open check, ranking validation and the
// atomic ballot+token write all happen under the poll's lock so a vote
// racing a close lands cleanly on one side of the flip. The broadcast goes
// out after the lock is released; subscribers only ever see fully admitted
// votes.
func (s *voteService) Submit(ctx context.Context, input ports.VoteInput) error {
	if input.VoterToken == "" {
		return domain.ErrMissingVoterToken
	}
	if len(input.Ranking) == 0 {
		return domain.ErrEmptyRanking
	}

	payload, err := s.admit(ctx, input)
	if err != nil {
		return err
	}

	s.broadcaster.Publish(input.PollID, EventNewVote, *payload)
	return nil
}

func (s *voteService) admit(ctx context.Context, input ports.VoteInput) (*NewVotePayload, error) {
	unlock := s.locks.Lock(input.PollID)
	defer unlock()

	poll, err := s.pollRepo.GetByID(ctx, input.PollID)
	if err != nil {
		return nil, err
	}
	if !poll.IsOpen {
		return nil, domain.ErrPollClosed
	}

	if err := domain.ValidateRanking(input.Ranking, poll.Options); err != nil {
		return nil, err
	}

	now := time.Now()
	ballot := &domain.Ballot{
		ID:        uuid.New(),
		PollID:    input.PollID,
		Ranking:   input.Ranking,
		CreatedAt: now,
	}
	token := &domain.VoteToken{
		PollID:  input.PollID,
		Token:   input.VoterToken,
		VotedAt: now,
	}

	if err := s.ballotRepo.SaveBallot(ctx, ballot, token); err != nil {
		return nil, err
	}

	count, err := s.ballotRepo.CountBallots(ctx, input.PollID)
	if err != nil {
		return nil, err
	}
	rankings, err := s.ballotRepo.ListRankings(ctx, input.PollID)
	if err != nil {
		return nil, err
	}

	return &NewVotePayload{
		TotalVotes: count,
		Tally:      domain.Tally(poll.OptionIDs(), rankings),
		Timestamp:  now,
	}, nil
}

package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rankedpoll/api/internal/core/domain"
	"github.com/rankedpoll/api/internal/core/ports"
)

type pollService struct {
	repo        ports.PollRepository
	ballotRepo  ports.BallotRepository
	broadcaster ports.Broadcaster
	locks       *PollLocks
}

func NewPollService(repo ports.PollRepository, ballotRepo ports.BallotRepository, broadcaster ports.Broadcaster, locks *PollLocks) ports.PollService {
	return &pollService{
		repo:        repo,
		ballotRepo:  ballotRepo,
		broadcaster: broadcaster,
		locks:       locks,
	}
}

func (s *pollService) Create(ctx context.Context, input ports.CreatePollInput) (*domain.Poll, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, domain.ErrTitleRequired
	}

	pollID := uuid.New()
	now := time.Now()

	poll := &domain.Poll{
		ID:           pollID,
		Title:        title,
		IsOpen:       true,
		CreatorToken: input.CreatorToken,
		CreatedAt:    now,
	}

	for _, optText := range input.Options {
		optText = strings.TrimSpace(optText)
		if optText == "" {
			continue
		}
		poll.Options = append(poll.Options, domain.Option{
			ID:        uuid.New(),
			PollID:    pollID,
			Text:      optText,
			Position:  len(poll.Options),
			CreatedAt: now,
		})
	}

	if len(poll.Options) < 2 {
		return nil, domain.ErrTooFewOptions
	}

	err := s.repo.Save(ctx, poll)
	if err != nil {
		return nil, err
	}

	return poll, nil
}

func (s *pollService) GetPoll(ctx context.Context, id string) (*ports.PollDetails, error) {
	pollID, err := uuid.Parse(id)
	if err != nil {
		return nil, domain.ErrInvalidPollID
	}

	poll, err := s.repo.GetByID(ctx, pollID)
	if err != nil {
		return nil, err
	}

	count, err := s.ballotRepo.CountBallots(ctx, pollID)
	if err != nil {
		return nil, err
	}

	return &ports.PollDetails{Poll: poll, BallotCount: count}, nil
}

// ClosePoll flips the poll closed and runs the one authoritative tally over
// the ballots accepted up to that point. The result is persisted with the
// flip; a second close returns it as-is instead of recomputing.
func (s *pollService) ClosePoll(ctx context.Context, id string, requesterToken string) (*domain.TallyResult, error) {
	pollID, err := uuid.Parse(id)
	if err != nil {
		return nil, domain.ErrInvalidPollID
	}

	result, alreadyClosed, err := s.closeLocked(ctx, pollID, requesterToken)
	if err != nil {
		return nil, err
	}

	if !alreadyClosed {
		s.broadcaster.Publish(pollID, EventPollClosed, ClosedPayload{
			Tally:     *result,
			Timestamp: time.Now(),
		})
	}

	return result, nil
}

func (s *pollService) closeLocked(ctx context.Context, pollID uuid.UUID, requesterToken string) (*domain.TallyResult, bool, error) {
	unlock := s.locks.Lock(pollID)
	defer unlock()

	poll, err := s.repo.GetByID(ctx, pollID)
	if err != nil {
		return nil, false, err
	}

	if poll.CreatorToken != "" && poll.CreatorToken != requesterToken {
		return nil, false, domain.ErrForbidden
	}

	if !poll.IsOpen {
		if poll.FinalTally != nil {
			return poll.FinalTally, true, nil
		}
		return nil, false, domain.ErrPollClosed
	}

	rankings, err := s.ballotRepo.ListRankings(ctx, pollID)
	if err != nil {
		return nil, false, err
	}

	result := domain.Tally(poll.OptionIDs(), rankings)
	if err := s.repo.Close(ctx, pollID, &result); err != nil {
		return nil, false, err
	}

	return &result, false, nil
}

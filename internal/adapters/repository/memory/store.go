// Package memory holds in-memory implementations of the repository ports,
// used by service-level tests. Admission atomicity is provided by the
// store mutex instead of a database constraint.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rankedpoll/api/internal/core/domain"
)

type voteKey struct {
	pollID uuid.UUID
	token  string
}

type Store struct {
	mu      sync.RWMutex
	polls   map[uuid.UUID]domain.Poll
	ballots map[uuid.UUID][]domain.Ballot
	tokens  map[voteKey]domain.VoteToken
}

func NewStore() *Store {
	return &Store{
		polls:   make(map[uuid.UUID]domain.Poll),
		ballots: make(map[uuid.UUID][]domain.Ballot),
		tokens:  make(map[voteKey]domain.VoteToken),
	}
}

func (s *Store) Save(_ context.Context, poll *domain.Poll) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.polls[poll.ID] = clonePoll(poll)
	return nil
}

func (s *Store) GetByID(_ context.Context, id uuid.UUID) (*domain.Poll, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	poll, ok := s.polls[id]
	if !ok {
		return nil, domain.ErrPollNotFound
	}
	copied := clonePoll(&poll)
	return &copied, nil
}

func (s *Store) Close(_ context.Context, id uuid.UUID, result *domain.TallyResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	poll, ok := s.polls[id]
	if !ok {
		return domain.ErrPollNotFound
	}
	poll.IsOpen = false
	copied := *result
	poll.FinalTally = &copied
	s.polls[id] = poll
	return nil
}

func (s *Store) SaveBallot(_ context.Context, ballot *domain.Ballot, token *domain.VoteToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := voteKey{pollID: token.PollID, token: token.Token}
	if _, exists := s.tokens[key]; exists {
		return domain.ErrAlreadyVoted
	}
	s.tokens[key] = *token
	s.ballots[ballot.PollID] = append(s.ballots[ballot.PollID], *ballot)
	return nil
}

func (s *Store) ListRankings(_ context.Context, pollID uuid.UUID) ([][]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ballots := s.ballots[pollID]
	rankings := make([][]uuid.UUID, 0, len(ballots))
	for _, b := range ballots {
		ranking := make([]uuid.UUID, len(b.Ranking))
		copy(ranking, b.Ranking)
		rankings = append(rankings, ranking)
	}
	return rankings, nil
}

func (s *Store) CountBallots(_ context.Context, pollID uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ballots[pollID]), nil
}

func (s *Store) HasVoted(_ context.Context, pollID uuid.UUID, token string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.tokens[voteKey{pollID: pollID, token: token}]
	return ok, nil
}

func clonePoll(poll *domain.Poll) domain.Poll {
	copied := *poll
	copied.Options = make([]domain.Option, len(poll.Options))
	copy(copied.Options, poll.Options)
	if poll.FinalTally != nil {
		tally := *poll.FinalTally
		copied.FinalTally = &tally
	}
	return copied
}

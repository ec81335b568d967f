package services

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rankedpoll/api/internal/adapters/repository/memory"
	"github.com/rankedpoll/api/internal/core/domain"
	"github.com/rankedpoll/api/internal/core/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedEvent struct {
	PollID  uuid.UUID
	Name    string
	Payload any
}

// recordingBroadcaster captures published events for assertions.
type recordingBroadcaster struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (b *recordingBroadcaster) Subscribe(uuid.UUID) *ports.Subscriber {
	return &ports.Subscriber{C: make(chan ports.Event, 1)}
}

func (b *recordingBroadcaster) Unsubscribe(uuid.UUID, *ports.Subscriber) {}

func (b *recordingBroadcaster) Publish(pollID uuid.UUID, event string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, recordedEvent{PollID: pollID, Name: event, Payload: payload})
}

func (b *recordingBroadcaster) Events() []recordedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]recordedEvent(nil), b.events...)
}

type testEnv struct {
	store       *memory.Store
	broadcaster *recordingBroadcaster
	polls       ports.PollService
	votes       ports.VoteService
}

func newTestEnv() *testEnv {
	store := memory.NewStore()
	broadcaster := &recordingBroadcaster{}
	locks := NewPollLocks()
	return &testEnv{
		store:       store,
		broadcaster: broadcaster,
		polls:       NewPollService(store, store, broadcaster, locks),
		votes:       NewVoteService(store, store, broadcaster, locks),
	}
}

func (e *testEnv) createPoll(t *testing.T, creatorToken string) *domain.Poll {
	t.Helper()
	poll, err := e.polls.Create(context.Background(), ports.CreatePollInput{
		Title:        "Lunch spot",
		Options:      []string{"Ramen", "Tacos", "Pizza"},
		CreatorToken: creatorToken,
	})
	require.NoError(t, err)
	return poll
}

func TestSubmitVoteBroadcastsTally(t *testing.T) {
	env := newTestEnv()
	poll := env.createPoll(t, "")

	err := env.votes.Submit(context.Background(), ports.VoteInput{
		PollID:     poll.ID,
		Ranking:    []uuid.UUID{poll.Options[0].ID, poll.Options[1].ID},
		VoterToken: "voter-1",
	})
	require.NoError(t, err)

	events := env.broadcaster.Events()
	require.Len(t, events, 1)
	assert.Equal(t, EventNewVote, events[0].Name)
	assert.Equal(t, poll.ID, events[0].PollID)

	payload, ok := events[0].Payload.(NewVotePayload)
	require.True(t, ok)
	assert.Equal(t, 1, payload.TotalVotes)
	assert.NotEmpty(t, payload.Tally.Rounds)
	assert.False(t, payload.Timestamp.IsZero())
}

func TestSubmitVoteDuplicateToken(t *testing.T) {
	env := newTestEnv()
	poll := env.createPoll(t, "")

	input := ports.VoteInput{
		PollID:     poll.ID,
		Ranking:    []uuid.UUID{poll.Options[0].ID},
		VoterToken: "voter-1",
	}

	require.NoError(t, env.votes.Submit(context.Background(), input))
	err := env.votes.Submit(context.Background(), input)
	assert.ErrorIs(t, err, domain.ErrAlreadyVoted)

	count, err := env.store.CountBallots(context.Background(), poll.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Len(t, env.broadcaster.Events(), 1)
}

func TestSubmitVoteDedupUnderConcurrency(t *testing.T) {
	env := newTestEnv()
	poll := env.createPoll(t, "")

	const attempts = 16
	errs := make(chan error, attempts)
	var wg sync.WaitGroup

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- env.votes.Submit(context.Background(), ports.VoteInput{
				PollID:     poll.ID,
				Ranking:    []uuid.UUID{poll.Options[1].ID},
				VoterToken: "contested-token",
			})
		}()
	}
	wg.Wait()
	close(errs)

	successes, duplicates := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			successes++
		case err == domain.ErrAlreadyVoted:
			duplicates++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, duplicates)

	count, err := env.store.CountBallots(context.Background(), poll.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	voted, err := env.store.HasVoted(context.Background(), poll.ID, "contested-token")
	require.NoError(t, err)
	assert.True(t, voted)
}

func TestSubmitVoteRejectsClosedPoll(t *testing.T) {
	env := newTestEnv()
	poll := env.createPoll(t, "")

	_, err := env.polls.ClosePoll(context.Background(), poll.ID.String(), "")
	require.NoError(t, err)

	err = env.votes.Submit(context.Background(), ports.VoteInput{
		PollID:     poll.ID,
		Ranking:    []uuid.UUID{poll.Options[0].ID},
		VoterToken: "late-voter",
	})
	assert.ErrorIs(t, err, domain.ErrPollClosed)

	count, err := env.store.CountBallots(context.Background(), poll.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestSubmitVoteValidation(t *testing.T) {
	env := newTestEnv()
	poll := env.createPoll(t, "")

	err := env.votes.Submit(context.Background(), ports.VoteInput{
		PollID:     poll.ID,
		Ranking:    []uuid.UUID{poll.Options[0].ID},
		VoterToken: "",
	})
	assert.ErrorIs(t, err, domain.ErrMissingVoterToken)

	err = env.votes.Submit(context.Background(), ports.VoteInput{
		PollID:     poll.ID,
		Ranking:    nil,
		VoterToken: "voter-1",
	})
	assert.ErrorIs(t, err, domain.ErrEmptyRanking)

	stranger := uuid.New()
	err = env.votes.Submit(context.Background(), ports.VoteInput{
		PollID:     poll.ID,
		Ranking:    []uuid.UUID{stranger},
		VoterToken: "voter-1",
	})
	var invalidErr *domain.InvalidRankingError
	require.ErrorAs(t, err, &invalidErr)
	assert.Equal(t, []uuid.UUID{stranger}, invalidErr.InvalidIDs)

	assert.Empty(t, env.broadcaster.Events())
}

func TestSubmitVoteUnknownPoll(t *testing.T) {
	env := newTestEnv()

	err := env.votes.Submit(context.Background(), ports.VoteInput{
		PollID:     uuid.New(),
		Ranking:    []uuid.UUID{uuid.New()},
		VoterToken: "voter-1",
	})
	assert.ErrorIs(t, err, domain.ErrPollNotFound)
}

package services

import (
	"sync"

	"github.com/google/uuid"
)

// PollLocks hands out one mutex per poll id. Ballot admission and poll
// closure for the same poll serialize on it, so a vote racing a close
// deterministically lands on one side of the is_open flip. Locks are never
// released back; poll counts are small and bounded by the poll lifetime.
type PollLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewPollLocks() *PollLocks {
	return &PollLocks{locks: make(map[uuid.UUID]*sync.Mutex)}
}

func (l *PollLocks) Lock(pollID uuid.UUID) func() {
	l.mu.Lock()
	m, ok := l.locks[pollID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[pollID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}

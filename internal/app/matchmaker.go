package app

import (
	"errors"
	"sync"
	"time"
)

var (
	ErrAlreadyQueued = errors.New("participant already waiting")
	ErrNotQueued     = errors.New("participant is not waiting")
)

// Waiting is a queued participant.
type Waiting struct {
	ParticipantID string
	DisplayName   string
	Since         time.Time
}

// Matchmaker pairs waiting participants first come, first served.
type Matchmaker struct {
	mu             sync.Mutex
	queue          []Waiting
	allowDuplicate bool
}

// NewMatchmaker creates an empty queue. With allowDuplicate a repeat join of
// a queued participant refreshes its display name and keeps its place.
func NewMatchmaker(allowDuplicate bool) *Matchmaker {
	return &Matchmaker{allowDuplicate: allowDuplicate}
}

// Enqueue adds w to the queue. Once two participants wait, the two longest
// waiting ones are removed and returned as a pair.
func (m *Matchmaker) Enqueue(w Waiting) ([]Waiting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if i := m.indexOf(w.ParticipantID); i >= 0 {
		if !m.allowDuplicate {
			return nil, ErrAlreadyQueued
		}
		m.queue[i].DisplayName = w.DisplayName
		return nil, nil
	}

	m.queue = append(m.queue, w)
	if len(m.queue) < 2 {
		return nil, nil
	}
	pair := []Waiting{m.queue[0], m.queue[1]}
	m.queue = append([]Waiting(nil), m.queue[2:]...)
	return pair, nil
}

// Take removes participantID from the queue and returns its entry.
func (m *Matchmaker) Take(participantID string) (Waiting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(participantID)
	if i < 0 {
		return Waiting{}, ErrNotQueued
	}
	w := m.queue[i]
	m.queue = append(m.queue[:i:i], m.queue[i+1:]...)
	return w, nil
}

// Remove drops participantID from the queue, reporting whether it was queued.
func (m *Matchmaker) Remove(participantID string) bool {
	_, err := m.Take(participantID)
	return err == nil
}

// Contains reports whether participantID is waiting.
func (m *Matchmaker) Contains(participantID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.indexOf(participantID) >= 0
}

// Waiting returns the queue in arrival order.
func (m *Matchmaker) Waiting() []Waiting {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Waiting{}, m.queue...)
}

// Len returns the number of waiting participants.
func (m *Matchmaker) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

func (m *Matchmaker) indexOf(participantID string) int {
	for i, w := range m.queue {
		if w.ParticipantID == participantID {
			return i
		}
	}
	return -1
}

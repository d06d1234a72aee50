package app

import (
	"errors"
	"sort"
	"sync"
	"time"

	"durak/internal/domain"
)

var (
	ErrDuplicateSession = errors.New("session already registered")
	ErrParticipantBusy  = errors.New("participant already belongs to a session")
)

// Registry indexes live sessions by id and by participant.
type Registry struct {
	mu            sync.Mutex
	sessions      map[string]*domain.Session
	byParticipant map[string]string
	members       map[string][]string // session id -> attached participant ids
	retireAt      map[string]time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		sessions:      make(map[string]*domain.Session),
		byParticipant: make(map[string]string),
		members:       make(map[string][]string),
		retireAt:      make(map[string]time.Time),
	}
}

// Register adds s and attaches all of its participants.
func (r *Registry) Register(s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[s.ID()]; ok {
		return ErrDuplicateSession
	}
	participants := s.Participants()
	for _, p := range participants {
		if _, busy := r.byParticipant[p.ID]; busy {
			return ErrParticipantBusy
		}
	}

	r.sessions[s.ID()] = s
	ids := make([]string, 0, len(participants))
	for _, p := range participants {
		r.byParticipant[p.ID] = s.ID()
		ids = append(ids, p.ID)
	}
	r.members[s.ID()] = ids
	return nil
}

// FindByParticipant returns the session participantID is attached to.
func (r *Registry) FindByParticipant(participantID string) (*domain.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byParticipant[participantID]
	if !ok {
		return nil, false
	}
	s, ok := r.sessions[id]
	return s, ok
}

// Get returns the session with the given id.
func (r *Registry) Get(sessionID string) (*domain.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	return s, ok
}

// Retire removes a session and detaches everyone still attached to it.
func (r *Registry) Retire(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.retire(sessionID)
}

// ScheduleRetire marks a session for removal by the first Sweep at or after at.
func (r *Registry) ScheduleRetire(sessionID string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[sessionID]; ok {
		r.retireAt[sessionID] = at
	}
}

// Sweep retires every session whose grace deadline is not after now and
// returns their ids in sorted order.
func (r *Registry) Sweep(now time.Time) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var retired []string
	for id, at := range r.retireAt {
		if !at.After(now) {
			retired = append(retired, id)
		}
	}
	sort.Strings(retired)
	for _, id := range retired {
		r.retire(id)
	}
	return retired
}

// Detach releases participantID from its session. Once the last participant
// of an ended session detaches, the session is retired immediately; its id is
// returned with true.
func (r *Registry) Detach(participantID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byParticipant[participantID]
	if !ok {
		return "", false
	}
	delete(r.byParticipant, participantID)

	remaining := r.members[id][:0:0]
	for _, pid := range r.members[id] {
		if pid != participantID {
			remaining = append(remaining, pid)
		}
	}
	r.members[id] = remaining

	s := r.sessions[id]
	if len(remaining) == 0 && s != nil && s.Ended() {
		r.retire(id)
		return id, true
	}
	return "", false
}

// IDs returns the registered session ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Active returns the number of registered sessions.
func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) retire(sessionID string) bool {
	if _, ok := r.sessions[sessionID]; !ok {
		return false
	}
	for _, pid := range r.members[sessionID] {
		if r.byParticipant[pid] == sessionID {
			delete(r.byParticipant, pid)
		}
	}
	delete(r.sessions, sessionID)
	delete(r.members, sessionID)
	delete(r.retireAt, sessionID)
	return true
}

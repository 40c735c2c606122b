package bot

import (
	"sync"

	"kartoteka.org/internal/person"
)

// Step is the current wizard state, strictly linear; the only cycle is the
// self-loop on validation failure.
type Step int

const (
	StepName Step = iota
	StepPhone
	StepBirth
	StepCar
	StepAddress
	StepPassport
)

func (s Step) String() string {
	switch s {
	case StepName:
		return "awaiting_name"
	case StepPhone:
		return "awaiting_phone"
	case StepBirth:
		return "awaiting_birth"
	case StepCar:
		return "awaiting_car"
	case StepAddress:
		return "awaiting_address"
	case StepPassport:
		return "awaiting_passport"
	default:
		return "unknown"
	}
}

type sessionMode int

const (
	modeAdd sessionMode = iota
	modeSearch
)

// session is the per-user FSM state: the wizard step plus the draft being
// filled, or a pending search prompt.
type session struct {
	mode  sessionMode
	step  Step
	draft person.Draft
}

// sessions maps user identifier → active session. The map itself is guarded;
// the transport serializes messages per user, so a looked-up session is only
// mutated by that user's handler.
type sessions struct {
	mu sync.RWMutex
	m  map[int64]*session
}

func newSessions() *sessions {
	return &sessions{m: make(map[int64]*session)}
}

func (s *sessions) get(userID int64) (*session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.m[userID]
	return sess, ok
}

// startAdd opens a fresh wizard session. A second add while one is already
// open overwrites the draft.
func (s *sessions) startAdd(userID int64) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := &session{mode: modeAdd, step: StepName}
	s.m[userID] = sess
	return sess
}

// startSearch opens an awaiting-query session.
func (s *sessions) startSearch(userID int64) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := &session{mode: modeSearch}
	s.m[userID] = sess
	return sess
}

// end discards the session on completion, cancellation or failure.
func (s *sessions) end(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, userID)
}

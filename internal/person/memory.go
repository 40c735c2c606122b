package person

import (
	"context"
	"sync"
	"time"
)

// InMemory is a Store kept entirely in process memory. It backs tests and
// local runs without a database; semantics mirror the Postgres adapter.
type InMemory struct {
	mu      sync.RWMutex
	persons []Person
	logs    []LogEntry
	nextID  int64
	nextLog int64
}

var _ Store = (*InMemory)(nil)

// NewInMemory creates an empty store.
func NewInMemory() *InMemory {
	return &InMemory{nextID: 1, nextLog: 1}
}

func (s *InMemory) PersonByPhone(ctx context.Context, phone string) (Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.persons {
		if p.Phone == phone {
			return p, nil
		}
	}
	return Person{}, ErrNotFound
}

func (s *InMemory) Search(ctx context.Context, query string, limit int) ([]Person, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	q := ClassifyQuery(query)

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Person
	for _, p := range s.persons {
		if q.Matches(p) {
			out = append(out, p)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (s *InMemory) Save(ctx context.Context, draft Draft) (Person, error) {
	if !draft.Complete() {
		return Person{}, ErrInvalidDraft
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.persons {
		if p.Phone == draft.Phone {
			return Person{}, ErrDuplicatePhone
		}
	}
	p := Person{
		ID:        s.nextID,
		FIO:       draft.FIO,
		Phone:     draft.Phone,
		Birth:     draft.Birth,
		CarNumber: draft.CarNumber,
		Address:   draft.Address,
		Passport:  draft.Passport,
	}
	s.nextID++
	s.persons = append(s.persons, p)
	return p, nil
}

func (s *InMemory) AppendLog(ctx context.Context, entry LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.ID = s.nextLog
	s.nextLog++
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	s.logs = append(s.logs, entry)
	return nil
}

func (s *InMemory) RecentLogs(ctx context.Context, limit int) ([]LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.newestFirst(limit, func(LogEntry) bool { return true }), nil
}

func (s *InMemory) FailedAuthLogs(ctx context.Context, limit int) ([]LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.newestFirst(limit, func(e LogEntry) bool { return e.Action == ActionAuthFailed }), nil
}

// newestFirst walks the append-only log backwards; callers hold the lock.
func (s *InMemory) newestFirst(limit int, keep func(LogEntry) bool) []LogEntry {
	if limit <= 0 {
		limit = 10
	}
	var out []LogEntry
	for i := len(s.logs) - 1; i >= 0 && len(out) < limit; i-- {
		if keep(s.logs[i]) {
			out = append(out, s.logs[i])
		}
	}
	return out
}

func (s *InMemory) Stats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Stats{
		TotalPersons: int64(len(s.persons)),
		TotalLogs:    int64(len(s.logs)),
	}
	for _, e := range s.logs {
		if e.Action == ActionAuthFailed {
			st.FailedAuths++
		}
	}
	return st, nil
}

package person

import "context"

// DefaultSearchLimit caps result sets when the caller does not supply a limit.
const DefaultSearchLimit = 100

// Store is the persistence collaborator for records and audit entries.
// Two adapters exist: the in-memory store below and the Postgres store in
// internal/store/pg.
type Store interface {
	// PersonByPhone looks a record up by its normalized phone.
	// Returns ErrNotFound when no record carries the phone.
	PersonByPhone(ctx context.Context, phone string) (Person, error)

	// Search matches query against all searchable fields (see ClassifyQuery)
	// and returns at most limit records in store-defined order.
	Search(ctx context.Context, query string, limit int) ([]Person, error)

	// Save persists a completed draft and assigns its identifier.
	// Returns ErrDuplicatePhone when the phone is already taken and
	// ErrInvalidDraft when required fields are missing.
	Save(ctx context.Context, draft Draft) (Person, error)

	// AppendLog stores one audit entry. Callers treat failures as
	// best-effort: an audit write must never abort the action it describes.
	AppendLog(ctx context.Context, entry LogEntry) error

	// RecentLogs returns the newest entries first.
	RecentLogs(ctx context.Context, limit int) ([]LogEntry, error)

	// FailedAuthLogs returns the newest AUTH_FAILED entries first.
	FailedAuthLogs(ctx context.Context, limit int) ([]LogEntry, error)

	// Stats returns aggregate counters.
	Stats(ctx context.Context) (Stats, error)
}

package person

import (
	"errors"
	"time"
)

// Person is a single card in the kartoteka.
// Birth is kept as a YYYY-MM-DD string: the record is display-oriented and
// the store never does date arithmetic on it.
type Person struct {
	ID        int64  `json:"id"`
	FIO       string `json:"fio"`
	Phone     string `json:"phone"` // normalized, 11 digits, leading 7
	Birth     string `json:"birth"`
	CarNumber string `json:"car_number,omitempty"`
	Address   string `json:"address,omitempty"`
	Passport  string `json:"passport,omitempty"`
}

// Draft is a record under construction by the add wizard, before the store
// assigns an identifier. Optional fields may be empty.
type Draft struct {
	FIO       string
	Phone     string
	Birth     string
	CarNumber string
	Address   string
	Passport  string
}

// Complete reports whether all required fields are filled.
func (d Draft) Complete() bool {
	return d.FIO != "" && d.Phone != "" && d.Birth != ""
}

// LogEntry is one append-only audit record of a user-facing action.
type LogEntry struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username,omitempty"`
	Action    string    `json:"action"`
	Details   string    `json:"details,omitempty"`
}

// Action tags written to the audit log.
const (
	ActionStartCommand    = "START_COMMAND"
	ActionAuthSuccess     = "AUTH_SUCCESS"
	ActionAuthFailed      = "AUTH_FAILED"
	ActionSearchSuccess   = "SEARCH_SUCCESS"
	ActionSearchNoResults = "SEARCH_NO_RESULTS"
	ActionSearchError     = "SEARCH_ERROR"
	ActionTextSearch      = "TEXT_SEARCH"
	ActionAddCommand      = "ADD_COMMAND"
	ActionAddStart        = "ADD_START"
	ActionAddSuccess      = "ADD_SUCCESS"
	ActionAddError        = "ADD_ERROR"
	ActionAddCancelled    = "ADD_CANCELLED"
	ActionFindCommand     = "FIND_COMMAND"
	ActionLogsCommand     = "LOGS_COMMAND"
	ActionLogsButton      = "LOGS_BUTTON"
	ActionUnknownCommand  = "UNKNOWN_COMMAND"
)

// Stats are aggregate counters over the store.
type Stats struct {
	TotalPersons int64 `json:"total_persons"`
	TotalLogs    int64 `json:"total_logs"`
	FailedAuths  int64 `json:"failed_auths"`
}

var (
	ErrNotFound       = errors.New("person: not found")
	ErrDuplicatePhone = errors.New("person: phone already exists")
	ErrInvalidDraft   = errors.New("person: draft is missing required fields")
)

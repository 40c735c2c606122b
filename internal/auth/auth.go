// Package auth holds the process-wide authorization table. Roles are granted
// by shared-secret access codes and live only in memory: a restart
// deauthorizes everyone.
package auth

import (
	"sync"

	"golang.org/x/time/rate"
)

// Role is the access tier of a chat user.
type Role string

const (
	RoleUnauthorized Role = "unauthorized"
	RoleUser         Role = "user"
	RoleAdmin        Role = "admin"
)

// Throttle bounds for access-code attempts per user.
const (
	attemptsPerSecond = 1
	attemptBurst      = 5
)

// Manager owns the user→role sets. All methods are safe for concurrent use
// from independent chat sessions.
type Manager struct {
	mu        sync.RWMutex
	users     map[int64]struct{}
	admins    map[int64]struct{}
	usernames map[string]struct{}
	limiters  map[int64]*rate.Limiter

	userCode  string
	adminCode string
}

// NewManager creates an empty authorization table with the two shared-secret
// codes.
func NewManager(userCode, adminCode string) *Manager {
	return &Manager{
		users:     make(map[int64]struct{}),
		admins:    make(map[int64]struct{}),
		usernames: make(map[string]struct{}),
		limiters:  make(map[int64]*rate.Limiter),
		userCode:  userCode,
		adminCode: adminCode,
	}
}

// Authorize checks code against the two access codes and, on success,
// records the user under the matching role. The username is remembered
// best-effort to silence duplicate auth-log noise across identifier changes.
// The caller emits the audit entry.
func (m *Manager) Authorize(userID int64, username, code string) (bool, Role) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch code {
	case m.userCode:
		m.users[userID] = struct{}{}
	case m.adminCode:
		m.admins[userID] = struct{}{}
	default:
		return false, RoleUnauthorized
	}
	if username != "" {
		m.usernames[username] = struct{}{}
	}
	if _, ok := m.admins[userID]; ok {
		return true, RoleAdmin
	}
	return true, RoleUser
}

// IsAuthorized reports whether the user holds any role.
func (m *Manager) IsAuthorized(userID int64) bool {
	return m.RoleOf(userID) != RoleUnauthorized
}

// IsAdmin reports whether the user holds the admin role.
func (m *Manager) IsAdmin(userID int64) bool {
	return m.RoleOf(userID) == RoleAdmin
}

// RoleOf returns the user's role; admin wins over user.
func (m *Manager) RoleOf(userID int64) Role {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.admins[userID]; ok {
		return RoleAdmin
	}
	if _, ok := m.users[userID]; ok {
		return RoleUser
	}
	return RoleUnauthorized
}

// Deauthorize removes the user from every role. Not exposed to end users;
// kept for administrative use.
func (m *Manager) Deauthorize(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, userID)
	delete(m.admins, userID)
}

// KnownUsername reports whether the username already passed authorization
// under any user identifier.
func (m *Manager) KnownUsername(username string) bool {
	if username == "" {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.usernames[username]
	return ok
}

// AllowAttempt applies a per-user token bucket to access-code attempts so a
// flood of wrong codes cannot spam the audit log.
func (m *Manager) AllowAttempt(userID int64) bool {
	m.mu.Lock()
	lim, ok := m.limiters[userID]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(attemptsPerSecond), attemptBurst)
		m.limiters[userID] = lim
	}
	m.mu.Unlock()
	return lim.Allow()
}

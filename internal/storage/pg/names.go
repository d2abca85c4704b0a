package pg

import (
	"strings"

	"github.com/waveboard-dev/waveboard/shared/logger"
)

// IsReserved reports whether a guest display name collides with a member
// account or an explicitly reserved word. Lookups are case-insensitive.
func (s *Storage) IsReserved(name string) bool {
	var exists bool
	err := s.db.QueryRow(`
	SELECT EXISTS(
		SELECT 1 FROM members WHERE LOWER(name) = LOWER($1)
		UNION ALL
		SELECT 1 FROM reserved_names WHERE LOWER(word) = LOWER($1)
	)`, strings.TrimSpace(name)).Scan(&exists)
	if err != nil {
		logger.Log.Warn("reserved name lookup failed", "err", err)
		// Fail closed: an unverifiable name is treated as taken.
		return true
	}
	return exists
}

// IsBannedEmail reports whether an email address is banned from posting.
func (s *Storage) IsBannedEmail(email string) bool {
	var exists bool
	err := s.db.QueryRow(`
	SELECT EXISTS(SELECT 1 FROM banned_emails WHERE LOWER(email) = LOWER($1))`,
		strings.TrimSpace(email)).Scan(&exists)
	if err != nil {
		logger.Log.Warn("banned email lookup failed", "err", err)
		return false
	}
	return exists
}

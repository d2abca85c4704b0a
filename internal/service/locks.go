package service

import (
	"github.com/waveboard-dev/waveboard/internal/perm"
	"github.com/waveboard-dev/waveboard/shared/domain"
)

// resolveLock decides what lock level, if any, a submission writes.
// Returns nil when the request is ignored or changes nothing.
//
//	capability        existing   requested   result
//	lock_any          any        set/clear   1 or 0
//	lock_own, author  0 or 2     toggle      2 or 0
//	lock_own, author  1          any         ignored, cannot override
//	none              -          -           ignored
func resolveLock(mode domain.Mode, req domain.TriState, existing domain.LockMode, actorIsStarter, canLockAny, canLockOwn bool) *domain.LockMode {
	if req == domain.NoChange {
		return nil
	}
	wantLocked := req == domain.Set

	if mode == domain.NewTopic {
		// New topics start unlocked; only a set intent matters.
		if !wantLocked || (!canLockAny && !canLockOwn) {
			return nil
		}
		// A moderator lock can override a user lock, so lock_any holders
		// get level 1 from the start.
		result := domain.LockAuthor
		if canLockAny {
			result = domain.LockModerator
		}
		return &result
	}

	// Nothing changes: already in the requested state.
	if wantLocked == existing.Locked() {
		return nil
	}
	if !canLockAny && !canLockOwn {
		return nil
	}
	if !canLockAny && !actorIsStarter {
		return nil
	}
	if !canLockAny {
		// lock_own only: a moderator lock cannot be overridden.
		if existing == domain.LockModerator {
			return nil
		}
		result := domain.LockNone
		if wantLocked {
			result = domain.LockAuthor
		}
		return &result
	}
	result := domain.LockNone
	if wantLocked {
		result = domain.LockModerator
	}
	return &result
}

// resolveSticky decides whether the sticky flag flips. A request equal
// to the current state is a no-op and produces nothing to log.
func resolveSticky(mode domain.Mode, req domain.TriState, existing bool, canSticky, stickyEnabled bool) *bool {
	if req == domain.NoChange || !stickyEnabled || !canSticky {
		return nil
	}
	want := req == domain.Set
	if mode == domain.NewTopic {
		existing = false
	}
	if want == existing {
		return nil
	}
	return &want
}

// lockCaps reads the actor's lock capabilities once so the decision
// table stays a pure function.
func lockCaps(o perm.Oracle, actor *domain.AuthContext, board domain.BoardShortName) (canLockAny, canLockOwn bool) {
	return o.Allowed(actor, board, perm.CapLockAny), o.Allowed(actor, board, perm.CapLockOwn)
}

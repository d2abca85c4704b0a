package perm

import (
	"sync"

	"github.com/waveboard-dev/waveboard/shared/domain"
)

// StaticOracle is an in-memory capability matrix. Production wiring loads
// it from the board capability table at startup; tests build it inline.
// Grants keyed by "" apply to every board.
type StaticOracle struct {
	mu sync.RWMutex
	// board -> capability -> granted
	boardGrants map[domain.BoardShortName]map[Capability]bool
	// per-user overrides, e.g. moderators of one board
	userGrants map[domain.UserId]map[domain.BoardShortName]map[Capability]bool
	// capabilities guests hold, per board ("" = all boards)
	guestGrants map[domain.BoardShortName]map[Capability]bool
}

func NewStaticOracle() *StaticOracle {
	return &StaticOracle{
		boardGrants: make(map[domain.BoardShortName]map[Capability]bool),
		userGrants:  make(map[domain.UserId]map[domain.BoardShortName]map[Capability]bool),
		guestGrants: make(map[domain.BoardShortName]map[Capability]bool),
	}
}

// GrantBoard grants cap to every member on board ("" = all boards).
func (s *StaticOracle) GrantBoard(board domain.BoardShortName, caps ...Capability) *StaticOracle {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.boardGrants[board]
	if m == nil {
		m = make(map[Capability]bool)
		s.boardGrants[board] = m
	}
	for _, c := range caps {
		m[c] = true
	}
	return s
}

// GrantUser grants cap to one member on board ("" = all boards).
func (s *StaticOracle) GrantUser(id domain.UserId, board domain.BoardShortName, caps ...Capability) *StaticOracle {
	s.mu.Lock()
	defer s.mu.Unlock()
	byBoard := s.userGrants[id]
	if byBoard == nil {
		byBoard = make(map[domain.BoardShortName]map[Capability]bool)
		s.userGrants[id] = byBoard
	}
	m := byBoard[board]
	if m == nil {
		m = make(map[Capability]bool)
		byBoard[board] = m
	}
	for _, c := range caps {
		m[c] = true
	}
	return s
}

// GrantGuest grants cap to guests on board ("" = all boards).
func (s *StaticOracle) GrantGuest(board domain.BoardShortName, caps ...Capability) *StaticOracle {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.guestGrants[board]
	if m == nil {
		m = make(map[Capability]bool)
		s.guestGrants[board] = m
	}
	for _, c := range caps {
		m[c] = true
	}
	return s
}

func (s *StaticOracle) Allowed(actor *domain.AuthContext, board domain.BoardShortName, cap Capability) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Admins hold everything.
	if actor != nil && actor.User != nil && actor.User.Admin {
		return true
	}

	if actor == nil || actor.IsGuest() {
		return s.guestGrants[board][cap] || s.guestGrants[""][cap]
	}

	if byBoard := s.userGrants[actor.User.Id]; byBoard != nil {
		if byBoard[board][cap] || byBoard[""][cap] {
			return true
		}
	}
	return s.boardGrants[board][cap] || s.boardGrants[""][cap]
}

var _ Oracle = (*StaticOracle)(nil)

package domain

type User struct {
	Id    UserId
	Name  string
	Email string
	Admin bool
}

// AuthContext describes who is submitting. User is nil for guests; guests
// identify themselves per-post through the composition request.
type AuthContext struct {
	User      *User
	SessionId string

	// Mirrors the "no_new_reply_warning" user option: suppresses the
	// advisory shown when replies arrived while the form was open.
	NoNewReplyWarning bool
}

func (a *AuthContext) IsGuest() bool {
	return a.User == nil
}

func (a *AuthContext) UserId() UserId {
	if a.User == nil {
		return 0
	}
	return a.User.Id
}

func (a *AuthContext) UserName() string {
	if a.User == nil {
		return ""
	}
	return a.User.Name
}

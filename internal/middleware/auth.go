package middleware

import (
	"context"
	"net/http"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/waveboard-dev/waveboard/shared/domain"
	"github.com/waveboard-dev/waveboard/shared/jwt"
	"github.com/waveboard-dev/waveboard/shared/token"
)

// Key to store the actor in the request context
type key int

// ActorKey is exported so handler tests can inject an actor directly.
const ActorKey key = 0

const sessionCookie = "sessionId"

// Auth decodes the access token cookie into an AuthContext. When
// required is false a missing or invalid token degrades to a guest
// actor instead of a 401, so the same chain serves guest posting.
func Auth(jwtService jwt.JwtService, required bool) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			actor := authenticate(jwtService, r)
			if actor == nil {
				if required {
					http.Error(w, "Please sign-in", http.StatusUnauthorized)
					return
				}
				actor = &domain.AuthContext{SessionId: ensureSession(w, r)}
			}

			ctx := context.WithValue(r.Context(), ActorKey, actor)
			next(w, r.WithContext(ctx))
		}
	}
}

func authenticate(jwtService jwt.JwtService, r *http.Request) *domain.AuthContext {
	accessCookie, err := r.Cookie("accessToken")
	if err != nil {
		return nil
	}
	decoded, err := jwtService.DecodeToken(accessCookie.Value)
	if err != nil {
		return nil
	}
	claims, ok := decoded.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil
	}

	uid, ok := claims["uid"].(float64)
	if !ok {
		return nil
	}
	name, _ := claims["name"].(string)
	email, _ := claims["email"].(string)
	admin, _ := claims["admin"].(bool)
	sid, _ := claims["sid"].(string)

	return &domain.AuthContext{
		User: &domain.User{
			Id:    int64(uid),
			Name:  name,
			Email: email,
			Admin: admin,
		},
		SessionId: sid,
	}
}

// ensureSession gives guests a stable session id so their staged
// attachments and submission tokens survive a round-trip.
func ensureSession(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	sid, err := token.Generate()
	if err != nil {
		return ""
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sid
}

// NeedAuth rejects guests outright.
func NeedAuth(jwtService jwt.JwtService) func(http.HandlerFunc) http.HandlerFunc {
	return Auth(jwtService, true)
}

// AllowGuests lets unauthenticated requests through as guest actors.
func AllowGuests(jwtService jwt.JwtService) func(http.HandlerFunc) http.HandlerFunc {
	return Auth(jwtService, false)
}

// GetActorFromContext retrieves the actor placed by Auth. Nil means the
// request skipped the auth chain entirely.
func GetActorFromContext(r *http.Request) *domain.AuthContext {
	actor, ok := r.Context().Value(ActorKey).(*domain.AuthContext)
	if !ok {
		return nil
	}
	return actor
}

package middleware

import (
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/waveboard-dev/waveboard/internal/middleware/ratelimiter"
)

func RateLimit(rl *ratelimiter.UserRateLimiter, getIdentity func(r *http.Request) (string, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if actor := GetActorFromContext(r); actor != nil && actor.User != nil && actor.User.Admin {
				next.ServeHTTP(w, r)
				return
			}

			identity, err := getIdentity(r)
			if err != nil {
				http.Error(w, "Bad request", http.StatusBadRequest)
				return
			}
			if !rl.Allow(identity) {
				http.Error(w, "Rate limit exceeded, try again later", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func GlobalRateLimit(rl *ratelimiter.UserRateLimiter) func(http.Handler) http.Handler {
	return RateLimit(rl, func(r *http.Request) (string, error) { return "global", nil })
}

// GetActorIdentity limits members by user id and guests by session, so
// one flooding guest doesn't starve every guest behind the same NAT.
func GetActorIdentity(r *http.Request) (string, error) {
	actor := GetActorFromContext(r)
	if actor == nil {
		return "", errors.New("can't identify actor")
	}
	if actor.User != nil {
		return fmt.Sprintf("user_%d", actor.User.Id), nil
	}
	return "session_" + actor.SessionId, nil
}

// GetIP extracts the client IP from RemoteAddr. Forwarding headers are
// not trusted.
func GetIP(r *http.Request) (string, error) {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr, nil
	}
	return ip, nil
}

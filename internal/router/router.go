package router

import (
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	mw "github.com/waveboard-dev/waveboard/internal/middleware"
	rl "github.com/waveboard-dev/waveboard/internal/middleware/ratelimiter"
	"github.com/waveboard-dev/waveboard/internal/setup"
)

// New creates and configures a new mux router with all the routes.
// IMPORTANT! ratelimiters set with .Use limit request for all endpoints combined in that subrouter
func New(deps *setup.Dependencies) *mux.Router {
	r := mux.NewRouter()

	// Enable gzip compression for all responses
	r.Use(handlers.CompressHandler)

	r.Use(handlers.CORS(
		handlers.AllowedOrigins([]string{"http://localhost:8081"}),
		handlers.AllowedMethods([]string{"GET", "POST", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		handlers.AllowCredentials(),
	))

	r.Use(mw.Metrics)

	// Add a wildcard OPTIONS handler to avoid 404s for preflight requests
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	r.HandleFunc("/health", deps.Handler.Health).Methods("GET")

	h := deps.Handler
	allowGuests := mw.AllowGuests(deps.Jwt)
	needAuth := mw.NeedAuth(deps.Jwt)

	v1 := r.PathPrefix("/v1").Subrouter()

	// Compose form context and staged uploads. Guests participate, so
	// per-actor limits key on user id or guest session.
	compose := v1.NewRoute().Subrouter()
	compose.Use(mw.GlobalRateLimit(rl.Rps100()))
	compose.HandleFunc("/{board}/compose", allowGuests(h.GetComposeContext)).Methods("GET")
	compose.HandleFunc("/{board}/attachments", allowGuests(h.UploadAttachments)).Methods("POST")
	compose.HandleFunc("/{board}/attachments/{key}", allowGuests(h.DeleteAttachment)).Methods("DELETE")

	// Submit: 1 per second per actor on top of the global cap.
	submit := v1.NewRoute().Subrouter()
	submit.Use(mw.RateLimit(rl.OnceInSecond(), mw.GetActorIdentity))
	submit.Use(mw.RateLimit(rl.New(10, 10, 1*time.Hour), mw.GetIP))
	submit.Use(mw.GlobalRateLimit(rl.Rps100()))
	submit.HandleFunc("/{board}/submit", allowGuests(h.Submit)).Methods("POST")

	// Draft listing is member-only.
	v1.HandleFunc("/drafts", needAuth(h.ListDrafts)).Methods("GET")

	return r
}

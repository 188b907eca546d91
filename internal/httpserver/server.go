// internal/httpserver/server.go
//
// HTTP server wiring for the codebreaker backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs,
//     access logging).
//   - Public endpoints: "/", "/health", "/decks".
//   - Lobby endpoints: create/join/view games, join QR code, live feed.
//   - Play endpoints (require a player token): round setup, turns, clues,
//     guesses.
//
// Notes:
//   - Handlers translate JSON to engine calls and engine errors to status
//     codes; they hold no game rules themselves.
//   - The websocket route sits outside the timeout group so long-lived
//     connections are not cut off.

package httpserver

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/codebreaker/internal/engine"
	"github.com/robalobadob/codebreaker/internal/identity"
	"github.com/robalobadob/codebreaker/internal/words"
)

// DeckLister lists the decks games can be created with.
type DeckLister interface {
	Decks() []words.DeckInfo
}

// Options tune the transport.
type Options struct {
	ClientOrigin   string        // CORS origin allowed to send credentials
	PublicURL      string        // base URL encoded in join QR codes; derived from the request when empty
	RequestTimeout time.Duration // per-request handler budget
	SecureCookies  bool
}

// Server bundles router, engine and identity.
type Server struct {
	r      *chi.Mux
	eng    *engine.Engine
	ids    *identity.Issuer
	decks  DeckLister
	hub    *Hub
	opts   Options
	cancel func()
	srv    *http.Server
}

// New constructs a Server, installs middleware, and registers routes.
func New(eng *engine.Engine, ids *identity.Issuer, decks DeckLister, opts Options) *Server {
	if opts.ClientOrigin == "" {
		opts.ClientOrigin = "http://localhost:5173"
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}
	s := &Server{r: chi.NewRouter(), eng: eng, ids: ids, decks: decks, hub: NewHub(), opts: opts}
	s.srv = &http.Server{Handler: s.r, ReadHeaderTimeout: 5 * time.Second}
	s.cancel = eng.Subscribe(s.hub.Publish)

	// --- middleware ---
	s.r.Use(chimw.RequestID) // add X-Request-ID
	s.r.Use(chimw.RealIP)    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(requestLogger()...)
	s.r.Use(chimw.Recoverer) // recover from panics
	s.r.Use(jsonContentType) // default JSON responses
	s.r.Use(cors(opts.ClientOrigin))

	// live feed; no timeout
	s.r.With(ids.Optional).Get("/games/{id}/ws", s.handleWS)

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(opts.RequestTimeout)) // bound handler time

		// --- diagnostics ---
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"service":"codebreaker","endpoints":["/health","/decks","POST /games","/games/{id}/*","/rounds/{id}/*","/turns/{id}/*"]}`))
		})
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"ok":true}`))
		})
		r.Get("/decks", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"decks": s.decks.Decks()})
		})

		// Lobby: OPTIONAL AUTH (anyone may look at or join a game)
		r.Post("/games", s.handleCreateGame)
		r.With(ids.Optional).Get("/games/{id}", s.handleGetGame)
		r.Post("/games/{id}/join", s.handleJoin)
		r.Get("/games/{id}/qr", s.handleQR)

		// Play: REQUIRE AUTH
		r.Group(func(r chi.Router) {
			r.Use(ids.Require)
			s.mountLobbyRoutes(r)
			s.mountRoundRoutes(r)
			s.mountTurnRoutes(r)
		})
	})

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not_found","path":"`+r.URL.Path+`"}`, http.StatusNotFound)
	})

	return s
}

// Start begins serving HTTP on addr until Shutdown.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	log.Info().Str("addr", ln.Addr().String()).Msg("listening")
	return s.srv.Serve(ln)
}

// Shutdown stops accepting requests and closes live connections.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	s.hub.Close()
	return s.srv.Shutdown(ctx)
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

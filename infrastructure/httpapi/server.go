// Package httpapi is the transport adapter: a REST request surface and a
// WebSocket channel surface, both dispatching into the same session
// engine.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"helpdesk/auth"
	"helpdesk/contract"
	"helpdesk/domain"
	"helpdesk/repositories"
)

type Server struct {
	log       *slog.Logger
	engine    contract.IEngine
	directory repositories.IParticipantRepository
	registry  contract.IRegistry
	tokens    auth.Tokens

	connectionBufferSize int
	writeTimeout         time.Duration
}

func NewServer(log *slog.Logger, engine contract.IEngine,
	directory repositories.IParticipantRepository, registry contract.IRegistry,
	tokens auth.Tokens, connectionBufferSize int, writeTimeout time.Duration) *Server {
	return &Server{
		log:                  log,
		engine:               engine,
		directory:            directory,
		registry:             registry,
		tokens:               tokens,
		connectionBufferSize: connectionBufferSize,
		writeTimeout:         writeTimeout,
	}
}

// Router assembles the request surface and the channel surface.
//
// Queue position and message history stay token-free: guests hold no
// credential, only an unguessable session id. Everything agent-scoped
// sits behind the JWT middleware plus a role gate.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	r.Get("/ws", s.handleWebSocket)

	r.Route("/api", func(r chi.Router) {
		r.Route("/chat", func(r chi.Router) {
			r.Get("/session/{sessionID}/messages", s.handleGetMessages)
			r.Get("/queue-position/{sessionID}", s.handleQueuePosition)

			r.Group(func(r chi.Router) {
				r.Use(auth.Middleware(s.tokens))
				r.Use(auth.RequireRole(domain.RoleAgent))
				r.Post("/accept/{sessionID}", s.handleAccept)
				r.Get("/waiting-customers", s.handleWaitingCustomers)
			})
		})

		r.Route("/agent", func(r chi.Router) {
			r.Use(auth.Middleware(s.tokens))
			r.Use(auth.RequireRole(domain.RoleAgent))
			r.Get("/status", s.handleGetAgentStatus)
			r.Post("/status", s.handleSetAgentStatus)
		})
	})

	return r
}

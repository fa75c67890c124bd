package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/isdelr/notes-be/internal/api/handlers"
	"github.com/isdelr/notes-be/internal/auth"
	"github.com/isdelr/notes-be/internal/services"
	"github.com/isdelr/notes-be/internal/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
)

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	Users         services.UserServiceProvider
	Notes         services.NoteServiceProvider
	Tokens        *auth.TokenManager
	Hub           *websocket.Hub
	Store         handlers.StoreStatus
	CORSOrigins   []string
	SecureCookies bool
}

// NewRouter creates and configures a new Chi router.
func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(log.Logger))
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	userHandler := handlers.NewUserHandler(d.Users, d.SecureCookies)
	noteHandler := handlers.NewNoteHandler(d.Notes)
	healthHandler := handlers.NewHealthHandler(d.Store)
	wsHandler := handlers.NewWebSocketHandler(d.Hub, d.CORSOrigins)

	r.Get("/", healthHandler.Root)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler.Health)

		r.Post("/register", userHandler.Register)
		r.Post("/login", userHandler.Login)
		r.Get("/profile", userHandler.Profile)
		r.Get("/verify", userHandler.Verify)
		r.Get("/users", userHandler.List)
		r.Post("/logout", userHandler.Logout)

		r.Get("/getNotes", noteHandler.GetAll)
		r.Post("/getNote", noteHandler.Create)
		r.Route("/getNote/{id}", func(r chi.Router) {
			r.Get("/", noteHandler.Get)
			r.Put("/", noteHandler.Update)
			r.Delete("/", noteHandler.Delete)
		})

		// Live note feed
		r.With(d.Tokens.Middleware()).Get("/ws", wsHandler.Serve)
	})

	return r
}

// requestLogger writes one access log line per request, tagged with the
// chi request id.
func requestLogger(next http.Handler) http.Handler {
	return hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		var event *zerolog.Event
		switch {
		case status >= http.StatusInternalServerError:
			event = hlog.FromRequest(r).Error()
		case status >= http.StatusBadRequest:
			event = hlog.FromRequest(r).Warn()
		default:
			event = hlog.FromRequest(r).Info()
		}
		event.
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("HTTP request")
	})(next)
}

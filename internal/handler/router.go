package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	authhandler "github.com/eargai/earg-backend/internal/handler/auth"
	chathandler "github.com/eargai/earg-backend/internal/handler/chat"
	streamhandler "github.com/eargai/earg-backend/internal/handler/stream"
	"github.com/eargai/earg-backend/internal/middleware"
	"github.com/eargai/earg-backend/internal/repository"
	authservice "github.com/eargai/earg-backend/internal/service/auth"
	"github.com/eargai/earg-backend/internal/service/turn"
	"github.com/eargai/earg-backend/pkg/utils"
)

// Deps bundles everything the router wires together. Orchestrator may be nil
// when the generation provider is not configured.
type Deps struct {
	AuthService   *authservice.Service
	Chats         *repository.ChatRepository
	Orchestrator  *turn.Orchestrator
	SessionSecret []byte
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("earg backend alive"))
	})
	r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})

	authhandler.New(deps.AuthService).RegisterRoutes(r)

	r.Group(func(protected chi.Router) {
		protected.Use(middleware.Session(deps.SessionSecret))
		chathandler.New(deps.Chats, deps.Orchestrator).RegisterRoutes(protected)
		streamhandler.New(deps.Chats, deps.Orchestrator).RegisterRoutes(protected)
	})

	return r
}

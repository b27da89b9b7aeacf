package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"chatbot-kit/internal/handlers"
	"chatbot-kit/internal/middleware"
)

// New builds the HTTP surface. jwtAuth may be nil, which leaves /api open.
func New(
	jwtAuth *middleware.JWTAuth,
	completionHandler *handlers.CompletionHandler,
	socketHandler *handlers.SocketHandler,
	renderHandler *handlers.RenderHandler,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		if jwtAuth != nil {
			r.Use(jwtAuth.Middleware)
		}

		r.Post("/completion", completionHandler.Complete)
		r.Get("/completion/ws", socketHandler.HandleWebSocket)
		r.Post("/render", renderHandler.Render)
	})

	return r
}

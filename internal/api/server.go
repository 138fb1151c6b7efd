// It defines the API server, sets up the routes (endpoints)
// using chi, and links them to the handler functions.

package api

import (
	"io"
	"io/fs"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/bookdl/bookdl-go/internal/assets"
	"github.com/bookdl/bookdl-go/internal/core"
)

// Server holds the dependencies for the management UI API.
type Server struct {
	app *core.App
}

// NewServer creates a new Server instance.
func NewServer(app *core.App) *Server {
	return &Server{app: app}
}

// Router sets up and returns the main router for the application.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/api", func(r chi.Router) {
		r.Get("/authors", s.handleGetAuthors)
		r.Post("/authors", s.handleAddAuthors)
		r.Delete("/authors/cleanup", s.handleCleanupAuthors)
		r.Delete("/authors/all", s.handleDeleteAllAuthors)
		r.Delete("/authors/{slug}", s.handleDeleteAuthor)

		r.Get("/books", s.handleGetBooks)
		r.Post("/downloads", s.handleSubmitDownloads)

		r.Get("/queue", s.handleGetQueue)
		r.Post("/queue/refresh", s.handleRefreshQueue)
		r.Delete("/queue/completed", s.handleClearCompletedQueue)
		r.Delete("/queue/pending", s.handleClearPendingQueue)
		r.Delete("/queue", s.handleClearAllQueue)
		r.Delete("/queue/{id}", s.handleCancelQueueItem)

		r.Get("/health", s.handleHealth)
		r.Get("/version", s.handleGetVersion)
	})

	// WebSocket route: queue snapshots pushed on every applied refresh.
	r.Get("/ws/queue", func(w http.ResponseWriter, r *http.Request) {
		s.app.WsHub.ServeWs(w, r)
	})

	// Frontend: the embedded single-page UI.
	webFS, err := fs.Sub(assets.WebFS, "web")
	if err != nil {
		log.Fatalf("Failed to create web sub-filesystem: %v", err)
	}
	serveHTML := func(fileName string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			file, err := webFS.Open(fileName)
			if err != nil {
				http.NotFound(w, r)
				log.Printf("Error serving embedded file %s: %v", fileName, err)
				return
			}
			defer file.Close()
			http.ServeContent(w, r, fileName, time.Time{}, file.(io.ReadSeeker))
		}
	}
	r.Get("/", serveHTML("index.html"))
	r.Get("/queue", serveHTML("queue.html"))

	return r
}

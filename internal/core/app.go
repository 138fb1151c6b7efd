package core

import (
	"log"

	"github.com/bookdl/bookdl-go/internal/backend"
	"github.com/bookdl/bookdl-go/internal/config"
	"github.com/bookdl/bookdl-go/internal/downloader"
	"github.com/bookdl/bookdl-go/internal/models"
	"github.com/bookdl/bookdl-go/internal/queue"
	"github.com/bookdl/bookdl-go/internal/websocket"
)

// App holds the core components shared between the server and tests: the
// gateway to the scraper backend, the download orchestrator, the queue
// poller and the websocket hub.
type App struct {
	Config       *config.Config
	Client       *backend.Client
	Orchestrator *downloader.Orchestrator
	Poller       *queue.Poller
	WsHub        *websocket.Hub
	Version      string
}

// New sets up and returns a new App instance: loads configuration, builds
// the backend gateway and wires queue updates into the websocket hub.
func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return NewWithConfig(cfg), nil
}

// NewWithConfig wires an App from an existing configuration. Tests use this
// to point the gateway at a fake backend.
func NewWithConfig(cfg *config.Config) *App {
	client := backend.New(cfg.Backend.URL)
	hub := websocket.NewHub()
	poller := queue.New(client, cfg.Queue.PollInterval)

	// Every applied queue refresh is pushed to connected browsers.
	poller.OnUpdate(func(items []models.QueueItem) {
		hub.BroadcastJSON(map[string]interface{}{"type": "queue", "items": items})
	})

	return &App{
		Config:       cfg,
		Client:       client,
		Orchestrator: downloader.New(client),
		Poller:       poller,
		WsHub:        hub,
	}
}

// Start launches the background pieces: the hub loop and the periodic queue
// poll.
func (a *App) Start() {
	go a.WsHub.Run()
	a.Poller.Start()
	log.Println("Core application setup complete.")
}

// Close stops background work.
func (a *App) Close() {
	a.Poller.Stop()
}

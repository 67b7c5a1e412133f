package api

import (
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"vrpga/internal/config"
	"vrpga/internal/store"
	"vrpga/internal/webhooks"
)

type Server struct {
	Store   store.Store
	Pub     *webhooks.Publisher
	Broker  EventBroker
	Cfg     config.Config
	limiter *solveLimiter
}

// NewServer creates a Server. With no database URL configured it uses the
// in-memory store; with no Redis URL the in-process broker.
func NewServer(cfg config.Config) (*Server, error) {
	var s store.Store
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		s = store.NewMemory()
	} else {
		sp, err := store.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		s = sp
	}
	var broker EventBroker
	if cfg.RedisURL != "" {
		if rb, err := NewRedisBroker(cfg.RedisURL); err == nil {
			broker = rb
		} else {
			broker = NewBroker()
		}
	} else {
		broker = NewBroker()
	}
	return &Server{
		Store:   s,
		Pub:     webhooks.NewPublisher(s),
		Broker:  broker,
		Cfg:     cfg,
		limiter: newSolveLimiter(rate.Limit(2), 5),
	}, nil
}

// Routes registers all handlers on mux.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/datasets", s.DatasetsHandler)
	mux.HandleFunc("/v1/datasets/import", s.DatasetImportHandler)
	mux.HandleFunc("/v1/datasets/", s.DatasetByIDHandler)

	mux.HandleFunc("/v1/solve", s.rateLimited(s.SolveHandler))
	mux.HandleFunc("/v1/solve/stream", s.SolveStreamHandler)
	mux.HandleFunc("/v1/progress/ws", s.ProgressWSHandler)

	mux.HandleFunc("/v1/runs", s.RunsHandler)
	mux.HandleFunc("/v1/runs/", s.RunByIDHandler) // includes /export, /routes

	mux.HandleFunc("/v1/subscriptions", s.SubscriptionsHandler)
	mux.HandleFunc("/v1/subscriptions/", s.SubscriptionByIDHandler)
	mux.HandleFunc("/v1/webhooks/deliveries", s.WebhookDeliveriesHandler)

	mux.HandleFunc("/healthz", s.HealthHandler)
	mux.HandleFunc("/readyz", s.ReadyHandler)
	mux.HandleFunc("/v1/version", s.VersionHandler)
}

// NewWebhookWorker creates a background worker for webhook deliveries.
func (s *Server) NewWebhookWorker() *webhooks.Worker {
	return webhooks.NewWorker(s.Store)
}

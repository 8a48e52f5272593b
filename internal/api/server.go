package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"irrigation-gateway/internal/ml"
	"irrigation-gateway/internal/models"
	"irrigation-gateway/internal/services"
)

// PumpDispatcher forwards pump commands
type PumpDispatcher interface {
	Dispatch(ctx context.Context, req models.PumpControlRequest) (models.ActuationOutcome, error)
}

// CommandReader returns the last pump command
type CommandReader interface {
	Get() models.LastCommandState
}

// PredictionRecorder stores prediction rows (e.g. ClickHouse)
type PredictionRecorder interface {
	SavePredictions(ctx context.Context, records []models.PredictionRecord) error
}

// PredictionObserver receives prediction metrics
type PredictionObserver interface {
	ObservePrediction(labels []string, latencySeconds float64)
}

// PumpControlSummary describes the forwarding configuration in /health
type PumpControlSummary struct {
	Mode           string  `json:"mode"`
	HTTPURL        *string `json:"http_url"`
	MQTTHost       *string `json:"mqtt_host"`
	MQTTTopic      *string `json:"mqtt_topic"`
	APIKeyRequired bool    `json:"api_key_required"`
}

// Options holds the server dependencies. Recorder, Observer and
// MetricsHandler are optional.
type Options struct {
	Predictor   *ml.Predictor
	Dispatcher  PumpDispatcher
	State       CommandReader
	Guard       *services.Guard
	ModelPath   string
	PumpControl PumpControlSummary

	Recorder       PredictionRecorder
	Observer       PredictionObserver
	MetricsHandler http.Handler
}

// Server serves the gateway HTTP API
type Server struct {
	opts Options
}

func NewServer(opts Options) *Server {
	if opts.Guard == nil {
		opts.Guard = services.NewGuard("")
	}
	return &Server{opts: opts}
}

// Routes builds the router
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(accessLog)
	r.Use(cors)

	r.Get("/health", s.handleHealth)
	if s.opts.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", s.opts.MetricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/metadata", s.handleMetadata)
		r.Post("/predict", s.handlePredict)
		r.Post("/predict-batch", s.handlePredictBatch)
		r.Post("/pump/control", s.handlePumpControl)
		r.Get("/pump/last", s.handlePumpLast)
	})

	return r
}

// Package handler implements the HTTP handlers for the karte API.
// All handlers are methods on Server. Methods are split into files by
// concern (health.go, karte.go, export.go, live.go) but share the same
// Server struct so they can access its dependencies.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/pkordes/travel-karte/internal/domain"
	"github.com/pkordes/travel-karte/internal/grid"
)

// KarteServicer defines the business operations the karte handlers depend on.
// Defining the interface here, in the consumer package, lets handler tests
// inject a mock without touching the database or service layer.
type KarteServicer interface {
	Create(ctx context.Context, k domain.Karte) (domain.Karte, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Karte, error)
	ListRecent(ctx context.Context, q domain.ListQuery) ([]domain.KarteListItem, error)
	Save(ctx context.Context, k domain.Karte) (domain.Karte, error)
	SetEditors(ctx context.Context, id uuid.UUID, editors map[string]domain.Editor) (domain.Karte, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ImportLegacy(ctx context.Context, doc grid.LegacyDocument) (domain.Karte, error)
	Watch(ctx context.Context, id uuid.UUID) (<-chan domain.Change, error)
}

// Exporter renders a stored karte as a downloadable file.
type Exporter interface {
	Export(ctx context.Context, id uuid.UUID) (domain.ExportFile, error)
}

// Recorder receives the counters the handlers maintain.
// *metrics.Metrics satisfies it.
type Recorder interface {
	Write(op string)
	StreamOpened()
	StreamClosed()
}

type nopRecorder struct{}

func (nopRecorder) Write(string)  {}
func (nopRecorder) StreamOpened() {}
func (nopRecorder) StreamClosed() {}

// Server holds the dependencies of every handler.
type Server struct {
	kartes   KarteServicer
	export   Exporter
	rec      Recorder
	log      *slog.Logger
	upgrader websocket.Upgrader
	openAPI  []byte
	metrics  http.Handler
}

// Option configures optional Server dependencies.
type Option func(*Server)

// WithRecorder sets the metrics recorder. The default discards everything.
func WithRecorder(r Recorder) Option {
	return func(s *Server) { s.rec = r }
}

// WithOpenAPI serves doc at GET /openapi.yaml.
func WithOpenAPI(doc []byte) Option {
	return func(s *Server) { s.openAPI = doc }
}

// WithMetricsHandler serves h at GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithAllowedOrigins restricts live feed upgrades to the given origins.
// Without it the upgrader only accepts same-origin requests.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		allowed := make(map[string]bool, len(origins))
		for _, o := range origins {
			allowed[o] = true
		}
		s.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || allowed[origin]
		}
	}
}

// NewServer constructs the Server with all its dependencies.
func NewServer(kartes KarteServicer, export Exporter, log *slog.Logger, opts ...Option) *Server {
	s := &Server{
		kartes: kartes,
		export: export,
		rec:    nopRecorder{},
		log:    log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register mounts every route on r. Middleware is the caller's concern.
func (s *Server) Register(r chi.Router) {
	r.Get("/healthz", s.GetHealth)
	if s.openAPI != nil {
		r.Get("/openapi.yaml", s.GetOpenAPI)
	}
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/kartes", func(r chi.Router) {
		r.Get("/", s.ListKartes)
		r.Post("/", s.CreateKarte)
		r.Post("/import", s.ImportKarte)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.GetKarte)
			r.Put("/", s.UpdateKarte)
			r.Delete("/", s.DeleteKarte)
			r.Put("/editors", s.UpdateEditors)
			r.Get("/export", s.ExportKarte)
			r.Get("/live", s.WatchKarte)
		})
	})
}

// Routes returns a bare chi router with every route registered.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	s.Register(r)
	return r
}

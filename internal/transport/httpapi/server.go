// Package httpapi exposes the journal registry and review queue over HTTP.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"paper_recommender/internal/domain"
	"paper_recommender/internal/metrics"
)

// Service is the part of the recommender the handlers call.
type Service interface {
	ListJournals(ctx context.Context, activeOnly bool) ([]domain.Journal, error)
	AddJournal(ctx context.Context, in domain.NewJournal) (*domain.Journal, error)
	ToggleJournal(ctx context.Context, id int64, active bool) error
	UpdateJournalKeywords(ctx context.Context, id int64, keywords []string) error
	RemoveJournal(ctx context.Context, id int64) error
	Keywords(ctx context.Context) ([]string, error)
	Variations(keyword string) []string

	ListPapers(ctx context.Context, filter domain.PaperFilter) (*domain.PaperPage, error)
	GetRecommendations(ctx context.Context, filter domain.RecommendationFilter) ([]domain.Recommendation, error)
	UpdateStatus(ctx context.Context, id int64, status domain.Status) (*domain.Recommendation, error)
	DeleteRecommendation(ctx context.Context, id int64) error
	Explain(ctx context.Context, id int64, k int) (*domain.Explanation, error)
	Statistics(ctx context.Context) (*domain.Statistics, error)
	ClearOld(ctx context.Context, days int) (int, error)

	FetchAndRecommend(ctx context.Context, sel domain.JournalSelector, daysBack int, minScore float64) (*domain.RunStats, error)
	Refresh()
	ProfileStatus() domain.ProfileStatus
	LookupArticle(ctx context.Context, externalID string) (domain.Candidate, bool)
}

const (
	apiTimeout            = 60 * time.Second
	defaultRefreshTimeout = 10 * time.Minute
)

type Server struct {
	router         chi.Router
	svc            Service
	refreshTimeout time.Duration
	logger         *slog.Logger
}

// NewServer builds the router. refreshTimeout bounds a manual pipeline run;
// zero or less selects the default.
func NewServer(svc Service, logger *slog.Logger, refreshTimeout time.Duration) *Server {
	if refreshTimeout <= 0 {
		refreshTimeout = defaultRefreshTimeout
	}
	s := &Server{
		router:         chi.NewRouter(),
		svc:            svc,
		refreshTimeout: refreshTimeout,
		logger:         logger.With("component", "http"),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		// refresh runs the whole pipeline under its own deadline
		r.Post("/refresh", s.refresh)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(apiTimeout))

			r.Get("/journals", s.listJournals)
			r.Post("/journals", s.addJournal)
			r.Patch("/journals/{id}", s.updateJournal)
			r.Delete("/journals/{id}", s.removeJournal)

			r.Get("/keywords", s.listKeywords)
			r.Get("/keywords/{keyword}/variations", s.keywordVariations)

			r.Get("/papers", s.listPapers)
			r.Get("/papers/{id}/explain", s.explainPaper)
			r.Post("/papers/{id}/status", s.updatePaperStatus)
			r.Delete("/papers/{id}", s.deletePaper)

			r.Get("/recommendations", s.listRecommendations)
			r.Get("/articles/lookup", s.lookupArticle)

			r.Post("/cleanup", s.cleanup)
			r.Get("/stats", s.stats)
			r.Get("/profile", s.profileStatus)
		})
	})
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      s.refreshTimeout + 30*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.logger.Info("http server stopping")
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

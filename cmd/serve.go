package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pubgrove/scholar-cli/internal/aggregate"
	"github.com/pubgrove/scholar-cli/internal/model"
	"github.com/pubgrove/scholar-cli/internal/store"
	"github.com/pubgrove/scholar-cli/pkg/strapi"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for aggregation requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		scorer, err := initScorer()
		if err != nil {
			return err
		}
		registry, err := buildRegistry(scorer)
		if err != nil {
			return err
		}

		backend := newBackend()
		svc := aggregate.NewService(registry, backend, st)
		api := &apiServer{
			svc:      svc,
			backend:  backend,
			store:    st,
			baseCtx:  ctx,
			hasToken: cfg.Strapi.Token != "",
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: api.routes(),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

type apiServer struct {
	svc     *aggregate.Service
	backend strapi.Client
	store   store.Store
	// baseCtx outlives individual requests so async runs survive the
	// response being written.
	baseCtx context.Context
	// hasToken gates the scrape endpoints; health and run history stay
	// available without backend credentials.
	hasToken bool
}

func (s *apiServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Post("/api/scrape/member", s.handleScrapeAsync)
	r.Post("/api/scrape/member/sync", s.handleScrapeSync)
	r.Get("/api/runs", s.handleListRuns)
	r.Get("/api/runs/{id}", s.handleGetRun)

	return r
}

func (s *apiServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "scholar-cli",
		"status":  "running",
	})
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"status": "ok", "backend": "ok"}
	code := http.StatusOK
	if err := s.backend.Health(r.Context()); err != nil {
		resp["backend"] = "unreachable"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

// scrapeRequest is the subject payload for both scrape endpoints.
type scrapeRequest struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Institution  string `json:"institution"`
	FieldOfStudy string `json:"fieldOfStudy"`
	MemberID     string `json:"memberId"`
}

func (req scrapeRequest) subject() model.Subject {
	return model.Subject{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Institution:  req.Institution,
		FieldOfStudy: req.FieldOfStudy,
		MemberID:     req.MemberID,
	}
}

func (s *apiServer) decodeScrapeRequest(w http.ResponseWriter, r *http.Request) (scrapeRequest, bool) {
	var req scrapeRequest
	if !s.hasToken {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "backend API token is not configured"})
		return req, false
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return req, false
	}
	if req.FirstName == "" || req.LastName == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "firstName and lastName are required"})
		return req, false
	}
	return req, true
}

func (s *apiServer) handleScrapeAsync(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeScrapeRequest(w, r)
	if !ok {
		return
	}
	subject := req.subject()

	go func() {
		result, err := s.svc.Run(s.baseCtx, subject)
		if err != nil {
			zap.L().Error("async aggregation failed",
				zap.String("subject", subject.FullName()),
				zap.Error(err),
			)
			return
		}
		zap.L().Info("async aggregation complete",
			zap.String("subject", subject.FullName()),
			zap.Int("submitted", result.Submitted),
		)
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":  "accepted",
		"subject": subject.FullName(),
	})
}

func (s *apiServer) handleScrapeSync(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeScrapeRequest(w, r)
	if !ok {
		return
	}

	result, err := s.svc.Run(r.Context(), req.subject())
	if err != nil {
		zap.L().Error("sync aggregation failed", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *apiServer) handleListRuns(w http.ResponseWriter, r *http.Request) {
	filter := store.RunFilter{
		Status: r.URL.Query().Get("status"),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		filter.Limit = n
	}

	runs, err := s.store.ListRuns(r.Context(), filter)
	if err != nil {
		zap.L().Error("list runs failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not list runs"})
		return
	}
	if runs == nil {
		runs = []store.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *apiServer) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if eris.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "run not found"})
			return
		}
		zap.L().Error("get run failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not load run"})
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

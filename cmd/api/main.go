// Package main implements the motorgraph API server.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/motorgraph/motorgraph/engine/catalog"
	"github.com/motorgraph/motorgraph/engine/graphview"
	"github.com/motorgraph/motorgraph/engine/wiki"
	"github.com/motorgraph/motorgraph/pkg/fn"
	"github.com/motorgraph/motorgraph/pkg/metrics"
	"github.com/motorgraph/motorgraph/pkg/mid"
	"github.com/motorgraph/motorgraph/pkg/natsutil"
	"github.com/motorgraph/motorgraph/pkg/ttlcache"
)

// detailsSubject carries successfully fetched model details to interested
// collaborators when NATS is configured.
const detailsSubject = "motorgraph.details.fetched"

// Config holds all environment-based configuration.
type Config struct {
	Port        string
	DataPath    string
	PublicDir   string
	WikiAPIURL  string
	CacheTTL    time.Duration
	CacheSweep  time.Duration
	NATSURL     string
	CORSOrigin  string
	MetricsPort int
}

func loadConfig() Config {
	return Config{
		Port:        envOr("PORT", "3001"),
		DataPath:    envOr("DATA_PATH", "car_data.json"),
		PublicDir:   envOr("PUBLIC_DIR", "public"),
		WikiAPIURL:  envOr("WIKI_API_URL", wiki.DefaultAPIURL),
		CacheTTL:    envDurOr("CACHE_TTL", wiki.DefaultCacheTTL),
		CacheSweep:  envDurOr("CACHE_SWEEP", wiki.DefaultCacheSweep),
		NATSURL:     os.Getenv("NATS_URL"),
		CORSOrigin:  envOr("CORS_ORIGIN", "*"),
		MetricsPort: envIntOr("METRICS_PORT", 0),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDurOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := loadConfig()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	met := metrics.New()
	if cfg.MetricsPort > 0 {
		met.ServeAsync(cfg.MetricsPort)
	}

	// --- Catalog and filterable view ---
	graph, err := catalog.Load(cfg.DataPath, logger)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	view := graphview.NewView(graph, logger)

	// --- Detail pipeline ---
	cache := ttlcache.New[wiki.Details](cfg.CacheTTL, cfg.CacheSweep)
	defer cache.Stop()
	details := wiki.NewService(wiki.NewClient(cfg.WikiAPIURL, logger), cache, met, logger)

	// --- Optional NATS wiring ---
	var nc *nats.Conn
	if cfg.NATSURL != "" {
		res := fn.Retry(ctx, fn.DefaultRetry, func(context.Context) fn.Result[*nats.Conn] {
			return fn.FromPair(nats.Connect(cfg.NATSURL))
		})
		conn, err := res.Unwrap()
		if err != nil {
			return fmt.Errorf("nats connect: %w", err)
		}
		nc = conn
		defer nc.Drain()

		sub, sched, err := graphview.StartFilterWorker(nc, view,
			graphview.NewNATSRenderer(nc, ""), graphview.DefaultDebounce, logger)
		if err != nil {
			return fmt.Errorf("start filter worker: %w", err)
		}
		defer sched.Stop()
		defer sub.Unsubscribe()
		logger.Info("filter worker started", "subject", graphview.FilterSubject)
	}

	// --- Build HTTP server ---
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("GET /api/cars", handleCars(cfg.DataPath, met, logger))
	mux.HandleFunc("GET /api/cardetails", handleCarDetails(details, nc, met, logger))
	mux.HandleFunc("POST /api/filter", handleFilter(view, met))
	mux.Handle("/", http.FileServer(http.Dir(cfg.PublicDir)))

	handler := mid.Chain(mux,
		mid.Recover(logger),
		mid.Logger(logger),
		mid.RequestID(),
		mid.CORS(cfg.CORSOrigin),
		mid.OTel("motorgraph-api"),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// --- Graceful shutdown ---
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

// --- Handlers ---

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleCars serves the raw catalog file. The payload is passed through
// untouched so the response matches the file byte for byte.
func handleCars(path string, met *metrics.Registry, logger *slog.Logger) http.HandlerFunc {
	requests := met.Counter(metrics.WithLabels("http_requests_total", "route", "/api/cars"), "HTTP requests by route")
	return func(w http.ResponseWriter, r *http.Request) {
		requests.Inc()
		data, err := os.ReadFile(path)
		if err != nil || !json.Valid(data) {
			logger.Error("car data unreadable", "path", path, "err", err)
			http.Error(w, `{"error":"Failed to load car data"}`, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	}
}

func handleCarDetails(svc *wiki.Service, nc *nats.Conn, met *metrics.Registry, logger *slog.Logger) http.HandlerFunc {
	requests := met.Counter(metrics.WithLabels("http_requests_total", "route", "/api/cardetails"), "")
	return func(w http.ResponseWriter, r *http.Request) {
		requests.Inc()
		model := r.URL.Query().Get("model")
		brand := r.URL.Query().Get("brand")
		if model == "" {
			http.Error(w, `{"error":"Model parameter is required"}`, http.StatusBadRequest)
			return
		}

		d, err := svc.ModelDetails(r.Context(), model, brand)
		if err != nil {
			if errors.Is(err, wiki.ErrNotFound) {
				term := model
				if brand != "" {
					term = brand + " " + model
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusNotFound)
				json.NewEncoder(w).Encode(map[string]string{
					"error": "Could not find details for " + term,
				})
				return
			}
			logger.Error("car details failed", "model", model, "brand", brand, "err", err)
			http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
			return
		}

		if nc != nil {
			if err := natsutil.Publish(r.Context(), nc, detailsSubject, d); err != nil {
				logger.Warn("publish details event", "err", err)
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(d)
	}
}

// handleFilter recomputes visibility synchronously for the posted criteria.
// Debouncing belongs to the callers that burst; a direct request gets a
// direct answer.
func handleFilter(view *graphview.View, met *metrics.Registry) http.HandlerFunc {
	requests := met.Counter(metrics.WithLabels("http_requests_total", "route", "/api/filter"), "")
	return func(w http.ResponseWriter, r *http.Request) {
		requests.Inc()
		var c graphview.Criteria
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(view.Filter(c))
	}
}

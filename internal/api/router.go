package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/Harshitk-cp/factlearn/internal/api/handlers"
	mw "github.com/Harshitk-cp/factlearn/internal/api/middleware"
	"github.com/Harshitk-cp/factlearn/internal/buildconfig"
	"github.com/Harshitk-cp/factlearn/internal/config"
	"github.com/Harshitk-cp/factlearn/internal/detect"
	"github.com/Harshitk-cp/factlearn/internal/domain"
	"github.com/Harshitk-cp/factlearn/internal/evidence"
	"github.com/Harshitk-cp/factlearn/internal/lock"
	"github.com/Harshitk-cp/factlearn/internal/notify"
	"github.com/Harshitk-cp/factlearn/internal/service"
	"github.com/Harshitk-cp/factlearn/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const runLockKey = "factlearn:verify-run"

// App holds the router and background services for lifecycle management.
type App struct {
	Router    *chi.Mux
	Learner   *service.LearnerService
	Verifier  *service.VerifierService
	Scheduler *service.VerifierScheduler // nil when VERIFY_INTERVAL is 0

	backend   store.Backend
	pending   *store.PendingStore
	knowledge *store.KnowledgeStore
	metrics   *mw.MetricsCollector
	startTime time.Time
	stopCh    chan struct{}
	closers   []func() error
}

// NewApp wires stores, providers and services on top of backend. It fails if
// a persisted document cannot be loaded.
func NewApp(ctx context.Context, backend store.Backend, logger *zap.Logger) (*App, error) {
	// Stores
	pendingStore := store.NewPendingStore(backend)
	knowledgeStore := store.NewKnowledgeStore(backend)
	if err := pendingStore.Load(ctx); err != nil {
		return nil, fmt.Errorf("load pending facts: %w", err)
	}
	if err := knowledgeStore.Load(ctx); err != nil {
		return nil, fmt.Errorf("load knowledge: %w", err)
	}

	app := &App{
		backend:   backend,
		pending:   pendingStore,
		knowledge: knowledgeStore,
		metrics:   mw.NewMetricsCollector(),
		startTime: time.Now(),
		stopCh:    make(chan struct{}),
	}

	// External clients via provider factory
	provider := config.EvidenceProvider()
	evidenceClient, err := evidence.NewClient(provider, config.EvidenceAPIKey(), config.EvidenceModel(), config.EvidenceRPS())
	if err != nil {
		return nil, fmt.Errorf("evidence provider: %w", err)
	}
	logger.Info("evidence provider initialized", zap.String("provider", provider))

	runLock, err := app.runLock(ctx, logger)
	if err != nil {
		return nil, err
	}

	// Services
	learner := service.NewLearnerService(detect.New(), pendingStore, knowledgeStore, logger)
	learner.SetTimeout(config.DetectTimeout())
	learner.SetNotifier(app.notifier(logger))

	verifier := service.NewVerifierService(evidenceClient, pendingStore, knowledgeStore, runLock, logger)
	verifier.SetThreshold(config.VerifyThreshold())
	verifier.SetTimeout(config.VerifyTimeout())
	verifier.SetConcurrency(config.VerifyConcurrency())
	verifier.SetMinConfidence(config.PendingMinConfidence())
	if n, err := verifier.Replay(ctx); err != nil {
		logger.Warn("verdict replay failed", zap.Error(err))
	} else if n > 0 {
		logger.Info("verdicts replayed into knowledge", zap.Int("count", n))
	}

	augmenter := service.NewAugmenterService(knowledgeStore, logger)

	app.Learner = learner
	app.Verifier = verifier
	if interval := config.VerifyInterval(); interval > 0 {
		app.Scheduler = service.NewVerifierScheduler(verifier, logger)
		app.Scheduler.SetInterval(interval)
	} else {
		logger.Info("scheduled verification disabled")
	}

	// Handlers
	factHandler := handlers.NewFactHandler(learner, verifier, pendingStore)
	knowledgeHandler := handlers.NewKnowledgeHandler(knowledgeStore, augmenter)

	rateLimiter := mw.NewRateLimiter(config.RateLimitRPS(), config.RateLimitBurst())
	rateLimiter.StartCleanup(10*time.Minute, app.stopCh)

	apiKey := config.OpsAPIKey()
	if apiKey == "" {
		logger.Warn("OPS_API_KEY is not set, ops API is unauthenticated")
	}

	r := chi.NewRouter()
	app.Router = r

	// Global middleware (order matters)
	r.Use(mw.RequestID)           // Generate/extract request ID first
	r.Use(middleware.RealIP)      // Extract real IP
	r.Use(app.metrics.Middleware) // Collect metrics
	r.Use(mw.Logging(logger))     // Log all requests
	r.Use(middleware.Recoverer)   // Recover from panics
	r.Use(rateLimiter.Handler)    // Rate limiting

	// Health and metrics (no auth)
	r.Get("/health", app.healthHandler())
	r.Get("/metrics", app.metricsHandler())

	// Authenticated routes
	r.Route("/v1", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(apiKey))

		r.Post("/messages", factHandler.ProcessMessage)

		r.Route("/pending", func(r chi.Router) {
			r.Get("/", factHandler.ListPending)
			r.Get("/stats", factHandler.PendingStats)
		})

		r.Route("/verify", func(r chi.Router) {
			r.Post("/", factHandler.Verify)
			r.Post("/pending", factHandler.VerifyPending)
		})

		r.Route("/knowledge", func(r chi.Router) {
			r.Get("/", knowledgeHandler.List)
			r.Get("/search", knowledgeHandler.Search)
			r.Get("/stats", knowledgeHandler.Stats)
		})

		r.Post("/relevant", knowledgeHandler.Relevant)
	})

	return app, nil
}

// runLock returns a Redis lock when REDIS_ADDR is set, else an in-process one.
func (app *App) runLock(ctx context.Context, logger *zap.Logger) (lock.Locker, error) {
	addr := config.RedisAddr()
	if addr == "" {
		return lock.NewLocalLock(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: config.RedisPassword(),
		DB:       config.RedisDB(),
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	app.closers = append(app.closers, client.Close)
	logger.Info("using redis run lock", zap.String("addr", addr))

	// The TTL outlives the slowest possible run so a live run never loses its lock.
	return lock.NewRedisLock(client, runLockKey, 2*time.Hour, logger), nil
}

func (app *App) notifier(logger *zap.Logger) domain.CorrectionNotifier {
	notifiers := notify.Multi{notify.NewLogNotifier(logger)}
	if brokers := config.KafkaBrokers(); len(brokers) > 0 {
		kn := notify.NewKafkaNotifier(brokers, config.KafkaTopic(), logger)
		app.closers = append(app.closers, kn.Close)
		notifiers = append(notifiers, kn)
		logger.Info("publishing corrections to kafka", zap.Strings("brokers", brokers), zap.String("topic", config.KafkaTopic()))
	}
	return notifiers
}

// Start launches background services.
func (app *App) Start() {
	if app.Scheduler != nil {
		app.Scheduler.Start()
	}
}

// Close stops background work, waits for in-flight detections and closes
// external clients.
func (app *App) Close() error {
	close(app.stopCh)
	if app.Scheduler != nil {
		app.Scheduler.Stop()
	}
	app.Learner.Wait()

	var firstErr error
	for _, c := range app.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (app *App) healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := app.backend.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
			return
		}

		resp := map[string]any{"status": "ok"}
		for k, v := range buildconfig.VersionInfo() {
			resp[k] = v
		}
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)

		response := map[string]any{
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"http":           app.metrics.Snapshot(),
			"goroutines":     runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb": float64(memStats.Alloc) / 1024 / 1024,
				"sys_mb":   float64(memStats.Sys) / 1024 / 1024,
				"num_gc":   memStats.NumGC,
			},
		}

		if ps, err := app.pending.Stats(r.Context()); err == nil {
			response["pending"] = ps
		}
		if ks, err := app.knowledge.Stats(r.Context()); err == nil {
			response["knowledge"] = ks
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

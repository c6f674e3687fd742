// Package app wires the API server: configuration, storage, services,
// middleware, and graceful shutdown.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/gradmate/gradmate/internal/discovery"
	"github.com/gradmate/gradmate/internal/domain/auth"
	"github.com/gradmate/gradmate/internal/domain/email"
	"github.com/gradmate/gradmate/internal/handler"
	"github.com/gradmate/gradmate/internal/llm"
	"github.com/gradmate/gradmate/internal/queue"
	"github.com/gradmate/gradmate/internal/scrape"
	"github.com/gradmate/gradmate/internal/storage/postgres"
	"github.com/gradmate/gradmate/pkg/health"
	"github.com/gradmate/gradmate/pkg/httpmiddleware"
	"github.com/gradmate/gradmate/pkg/supabase"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Supabase gateway.
	supa, err := supabase.New(supabase.Config{
		ProjectURL: cfg.Supabase.URL,
		AnonKey:    cfg.Supabase.AnonKey,
		ServiceKey: cfg.Supabase.ServiceKey,
	})
	if err != nil {
		return errors.Wrap(err, "create supabase client")
	}
	if err := supa.Storage().CreateBucket(ctx, cfg.Supabase.ResumeBucket); err != nil {
		// A key without bucket admin rights still works for object ops.
		lg.Warn("Create resume bucket", zap.Error(err))
	}

	// Resume job queue.
	publisher, err := queue.NewPublisher(cfg.Queue.URL)
	if err != nil {
		return errors.Wrap(err, "connect rabbitmq")
	}
	defer func() { _ = publisher.Close() }()

	// Health probes.
	healthSvc := health.New()
	healthSvc.AddReadiness("postgres", 5*time.Second, health.PingCheck(pool))
	healthSvc.AddReadiness("supabase", 5*time.Second,
		health.HTTPCheck(nil, cfg.Supabase.URL+"/auth/v1/health"))
	healthSvc.AddLiveness("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Repositories.
	labRepo := postgres.NewLabRepository(pool)
	profileRepo := postgres.NewProfileRepository(pool)
	resumeRepo := postgres.NewResumeRepository(pool)
	practiceRepo := postgres.NewPracticeRepository(pool)
	applicationRepo := postgres.NewApplicationRepository(pool)
	apikeyRepo := postgres.NewAPIKeyRepository(pool)

	// LLM clients. OpenAI drives email drafting and study plans; Gemini
	// handles discovery suggestions and falls back to OpenAI when unset.
	if cfg.LLM.OpenAIKey == "" {
		return errors.New("OpenAI API key is required: set GRADMATE_LLM_OPENAI_KEY or OPENAI_API_KEY")
	}
	writer := llm.NewOpenAI(cfg.LLM.OpenAIKey, cfg.LLM.OpenAIModel)

	var suggester llm.Client
	if cfg.LLM.GeminiKey != "" {
		gemini, err := llm.NewGemini(ctx, cfg.LLM.GeminiKey, cfg.LLM.GeminiModel)
		if err != nil {
			return errors.Wrap(err, "create gemini client")
		}
		suggester = gemini
	} else {
		lg.Warn("Gemini key not set, using OpenAI for discovery suggestions")
		suggester = writer
	}

	// Domain services.
	fetcher := scrape.NewFetcher(&http.Client{Timeout: 20 * time.Second})
	emailSvc := email.NewService(labRepo, profileRepo, fetcher, writer)
	discoverySvc, err := discovery.NewService(fetcher, suggester, writer)
	if err != nil {
		return errors.Wrap(err, "create discovery service")
	}

	// HTTP handlers.
	h := &handler.Handler{
		Labs:         labRepo,
		Profiles:     profileRepo,
		Resumes:      resumeRepo,
		Practice:     practiceRepo,
		Applications: applicationRepo,
		Supabase:     supa,
		Bucket:       cfg.Supabase.ResumeBucket,
		Queue:        publisher,
		Emails:       emailSvc,
		Discovery:    discoverySvc,
		Planner:      writer,
		Debug:        cfg.Debug,
	}

	verifier := auth.NewTokenVerifier([]byte(cfg.Supabase.JWTSecret))
	api := h.Routes(
		httpmiddleware.UserAuth(verifier),
		httpmiddleware.APIKeyAuth(apikeyRepo, []byte(cfg.APIKeyPepper)),
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", api)

	wrapped := httpmiddleware.Chain(mux,
		httpmiddleware.Recovery(),
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			AllowOrigins: cfg.CORS.Origins,
			MaxAge:       86400,
		}),
		httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
			Max:    cfg.RateLimit.Max,
			Window: cfg.RateLimit.Window,
		}),
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(zctx.From(ctx)),
		httpmiddleware.LogRequests(),
	)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       30 * time.Second,
		// Discovery crawls and LLM drafting can take a while.
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: otelhttp.NewHandler(wrapped, "gradmate-api",
			otelhttp.WithTracerProvider(m.TracerProvider()),
			otelhttp.WithMeterProvider(m.MeterProvider()),
		),
	}

	// Graceful shutdown: drain readiness, wait, then stop the server.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

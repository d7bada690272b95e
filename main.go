package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Amund211/lana/internal/adapters/cache"
	"github.com/Amund211/lana/internal/adapters/database"
	"github.com/Amund211/lana/internal/adapters/generator"
	"github.com/Amund211/lana/internal/adapters/historyrepository"
	"github.com/Amund211/lana/internal/adapters/kvstore"
	"github.com/Amund211/lana/internal/adapters/speechprovider"
	"github.com/Amund211/lana/internal/app"
	"github.com/Amund211/lana/internal/config"
	"github.com/Amund211/lana/internal/domain"
	"github.com/Amund211/lana/internal/inflight"
	"github.com/Amund211/lana/internal/logging"
	"github.com/Amund211/lana/internal/normalize"
	"github.com/Amund211/lana/internal/ports"
	"github.com/Amund211/lana/internal/ratelimiting"
	"github.com/Amund211/lana/internal/reporting"
	"github.com/Amund211/lana/internal/telemetry"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/klauspost/compress/gzhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	_ "golang.org/x/crypto/x509roots/fallback"
)

const (
	speechTimeout       = 60 * time.Second
	purgeExpiredEvery   = 10 * time.Minute
	shutdownGracePeriod = 20 * time.Second
)

type pinger interface {
	PingContext(ctx context.Context) error
}

func main() {
	instanceID := uuid.New().String()
	logger := slog.New(logging.NewTraceLogHandler(slog.NewJSONHandler(os.Stdout, nil))).With("instanceID", instanceID)
	logging.SetFallback(logger)

	fail := func(msg string, args ...any) {
		logger.Error(msg, args...)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conf, err := config.ConfigFromEnv()
	if err != nil {
		fail("Failed to load config", "error", err.Error())
	}
	logger.Info("Loaded config", "config", conf.NonSensitiveString())

	shutdownOTel, err := telemetry.SetupOTelSDK(ctx, "lana", conf.MetricsExporter())
	if err != nil {
		fail("Failed to set up OpenTelemetry", "error", err.Error())
	}
	defer func() {
		if err := shutdownOTel(context.Background()); err != nil {
			logger.Error("Failed to shut down OpenTelemetry", "error", err.Error())
		}
	}()
	logger.Info("Initialized OpenTelemetry")

	sentryMiddleware, flush, err := reporting.NewSentryMiddlewareOrMock(conf)
	if err != nil {
		fail("Failed to initialize Sentry", "error", err.Error())
	}
	defer flush()
	logger.Info("Initialized Sentry middleware")

	var (
		db          *sqlx.DB
		dbPinger    pinger
		kv          *kvstore.Store
		historyRepo historyrepository.HistoryRepository
	)
	switch {
	case conf.DatabaseURL() != "":
		logger.Info("Initializing postgres connection")
		db, err = database.NewPostgresDatabaseFromConfig(conf)
		if err != nil {
			fail("Failed to initialize postgres", "error", err.Error())
		}

		schemaName := database.GetSchemaName(!conf.IsProduction())
		err = database.NewDatabaseMigrator(db, logger.With("component", "migrator")).Migrate(ctx, schemaName)
		if err != nil {
			fail("Failed to migrate database", "error", err.Error())
		}

		kv = kvstore.NewPostgres(db, schemaName, time.Now)
		historyRepo = historyrepository.NewPostgres(db, schemaName, time.Now)
	case conf.SQLitePath() != "":
		logger.Info("Initializing sqlite database", "path", conf.SQLitePath())
		db, err = database.NewSQLiteDatabase(ctx, conf.SQLitePath())
		if err != nil {
			fail("Failed to initialize sqlite", "error", err.Error())
		}

		err = database.NewDatabaseMigrator(db, logger.With("component", "migrator")).MigrateSQLite(ctx)
		if err != nil {
			fail("Failed to migrate database", "error", err.Error())
		}

		kv = kvstore.NewSQLite(db, time.Now)
		historyRepo = historyrepository.NewSQLite(db, time.Now)
	default:
		logger.Warn("No database configured, using process-local storage only")
		historyRepo = historyrepository.NewMemory(time.Now)
	}
	if db != nil {
		defer db.Close()
		dbPinger = db
	}

	storeOptions := []cache.StoreOption{}
	var counterStore ratelimiting.CounterStore
	if kv != nil {
		storeOptions = append(storeOptions, cache.WithBackend(kv))
		counterStore = kv

		go func() {
			ticker := time.NewTicker(purgeExpiredEvery)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					purged, err := kv.PurgeExpired(ctx)
					if err != nil {
						logger.Warn("Failed to purge expired entries", "error", err.Error())
						continue
					}
					logger.Info("Purged expired entries", "count", purged)
				}
			}
		}()
	}
	store := cache.NewStore(cache.NamespaceConfigsFromConfig(conf), storeOptions...)
	defer store.Close()
	logger.Info("Initialized cache store", "backend", store.BackendName())

	rateLimiter := ratelimiting.NewTieredLimiter(ratelimiting.LimitsFromConfig(conf), counterStore, time.Now)

	httpClient := &http.Client{
		Timeout:   speechTimeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	gen, err := generator.NewGeneratorOrMock(conf, httpClient)
	if err != nil {
		fail("Failed to initialize content generator", "error", err.Error())
	}
	generatorName := "groq"
	if conf.GroqAPIKey() == "" {
		generatorName = "mock"
	}

	speech, err := speechprovider.NewSpeechProviderOrMock(conf, httpClient)
	if err != nil {
		fail("Failed to initialize speech provider", "error", err.Error())
	}
	speechName := "gemini"
	if conf.GoogleAPIKey() == "" {
		speechName = "mock"
	}
	logger.Info("Initialized upstream providers", "generator", generatorName, "speech", speechName)

	popular, err := app.LoadPopularTopics(conf.PopularTopicsFile())
	if err != nil {
		fail("Failed to load popular topics", "error", err.Error())
	}

	allowedOrigins, err := ports.NewAllowedOrigins(conf.AllowedOrigins()...)
	if err != nil {
		fail("Failed to initialize allowed origins", "error", err.Error())
	}

	lessonGroup := inflight.NewGroup[domain.Lesson]("lessons", conf.GeneratorTimeout())
	mathGroup := inflight.NewGroup[domain.MathSolution]("math", conf.GeneratorTimeout())
	speechGroup := inflight.NewGroup[[]byte]("tts", speechTimeout)

	getLesson := app.BuildGetLesson(store, lessonGroup, gen, popular)
	warmPopularLessons := app.BuildWarmPopularLessons(store, gen, popular)
	solveMath := app.BuildSolveMath(store, mathGroup, gen)
	synthesizeSpeech := app.BuildSynthesizeSpeech(store, speechGroup, speech)
	getChatHistory := app.BuildGetChatHistory(store, historyRepo)
	appendChatMessage := app.BuildAppendChatMessage(store, historyRepo)
	getHealth := app.BuildGetHealth(store, dbPinger, generatorName, speechName, time.Now)
	getCacheStats := app.BuildGetCacheStats(store, lessonGroup, mathGroup, speechGroup)

	authenticate := ports.NewJWTAuthenticator([]byte(conf.JWTSecret()))
	if conf.JWTSecret() == "" {
		logger.Warn("JWT_SECRET is not set, history endpoints will reject every request")
	}

	endpointMiddleware := func(endpoint string, limited bool) func(http.HandlerFunc) http.HandlerFunc {
		var limiter *ratelimiting.TieredLimiter
		if limited {
			limiter = rateLimiter
		}
		return ports.BuildEndpointMiddleware(endpoint, logger.With("port", endpoint), sentryMiddleware, limiter)
	}

	mux := http.NewServeMux()

	mux.HandleFunc("OPTIONS /", ports.BuildCORSHandler(allowedOrigins))

	mux.HandleFunc(
		"POST /api/structured-lesson",
		ports.MakeStructuredLessonHandler(getLesson, endpointMiddleware("/api/structured-lesson", true)),
	)
	mux.HandleFunc(
		"POST /api/structured-lesson/stream",
		ports.MakeStructuredLessonStreamHandler(getLesson, endpointMiddleware("/api/structured-lesson/stream", true)),
	)
	mux.HandleFunc(
		"POST /api/solve-math",
		ports.MakeSolveMathHandler(solveMath, endpointMiddleware("/api/solve-math", true)),
	)
	mux.HandleFunc(
		"POST /api/tts",
		ports.MakeTTSHandler(synthesizeSpeech, endpointMiddleware("/api/tts", true)),
	)
	mux.HandleFunc(
		"POST /api/social",
		ports.MakeSocialHandler(normalize.SocialReply, endpointMiddleware("/api/social", true)),
	)

	historyHandler := ports.MakeHistoryHandler(authenticate, getChatHistory, appendChatMessage, endpointMiddleware("/history", true))
	mux.HandleFunc("GET /history", historyHandler)
	mux.HandleFunc("POST /history", historyHandler)

	healthHandler := ports.MakeHealthHandler(getHealth, endpointMiddleware("/health", false))
	mux.HandleFunc("GET /health", healthHandler)
	mux.HandleFunc("GET /api/health", healthHandler)
	mux.HandleFunc(
		"GET /api/cache/stats",
		ports.MakeCacheStatsHandler(getCacheStats, endpointMiddleware("/api/cache/stats", true)),
	)

	compress, err := gzhttp.NewWrapper(
		gzhttp.MinSize(500),
		gzhttp.ExceptContentTypes([]string{"text/event-stream", "audio/wav"}),
	)
	if err != nil {
		fail("Failed to initialize compression", "error", err.Error())
	}

	handler := otelhttp.NewHandler(
		compress(ports.BuildCORSMiddleware(allowedOrigins)(mux.ServeHTTP)),
		"lana",
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", conf.Port()),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		summary := warmPopularLessons(ctx)
		logger.Info("Startup warm-up complete", "precomputed", summary.Precomputed, "skipped", summary.Skipped, "fallbacks", summary.Fallbacks)
	}()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Init complete", "port", conf.Port())
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			fail("Server error", "error", err.Error())
		}
	case <-ctx.Done():
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Failed to shut down server", "error", err.Error())
		}
	}
	logger.Info("Server shutdown")
}

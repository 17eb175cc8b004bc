package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/pedroanisio/tracker-gg-api/internal/adapters/database"
	"github.com/pedroanisio/tracker-gg-api/internal/adapters/gateway"
	"github.com/pedroanisio/tracker-gg-api/internal/adapters/statsrepository"
	"github.com/pedroanisio/tracker-gg-api/internal/app"
	"github.com/pedroanisio/tracker-gg-api/internal/cache"
	"github.com/pedroanisio/tracker-gg-api/internal/config"
	"github.com/pedroanisio/tracker-gg-api/internal/ports"
	"github.com/pedroanisio/tracker-gg-api/internal/reconciler"
	"github.com/pedroanisio/tracker-gg-api/internal/reporting"
	"github.com/pedroanisio/tracker-gg-api/internal/scraper"
	"github.com/pedroanisio/tracker-gg-api/internal/telemetry"
)

const serviceName = "tracker-gg-api"

func main() {
	// Populate the environment from .env when present (local development)
	_ = godotenv.Load()

	instanceID := uuid.New().String()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("instanceID", instanceID)

	fail := func(msg string, args ...any) {
		logger.Error(msg, args...)
		os.Exit(1)
	}

	conf, err := config.ConfigFromEnv()
	if err != nil {
		fail("Failed to load config", "error", err.Error())
	}
	logger.Info("Loaded config", "config", conf.NonSensitiveString())

	ctx := context.Background()

	otelShutdown, err := telemetry.SetupOTelSDK(ctx, serviceName)
	if err != nil {
		fail("Failed to set up OTel SDK", "error", err.Error())
	}
	defer func() {
		if err := otelShutdown(context.Background()); err != nil {
			logger.Error("Failed to shut down OTel SDK", "error", err.Error())
		}
	}()

	sentryMiddleware, flush, err := reporting.NewSentryMiddlewareOrMock(conf)
	if err != nil {
		fail("Failed to initialize Sentry", "error", err.Error())
	}
	defer flush()
	logger.Info("Initialized Sentry middleware")

	var repo statsrepository.StatsRepository
	if conf.DatabaseURL() == "" && conf.IsDevelopment() {
		logger.Info("No DATABASE_URL set, using in-memory stats repository")
		repo = statsrepository.NewMemoryStatsRepository()
	} else {
		logger.Info("Initializing database connection")
		db, err := database.NewConfiguredPostgresDatabase(conf)
		if err != nil {
			fail("Failed to initialize database connection", "error", err.Error())
		}

		schemaName := database.GetSchemaName(!conf.IsProduction())
		err = database.NewDatabaseMigrator(db, logger.With("component", "migrator")).Migrate(ctx, schemaName)
		if err != nil {
			fail("Failed to migrate database", "error", err.Error())
		}

		repo = statsrepository.NewPostgresStatsRepository(db, schemaName)
		logger.Info("Initialized stats repository", "schema", schemaName)
	}

	// The gateway enforces its own 60s solve timeout per request; the
	// client timeout only guards against a hung FlareSolverr.
	httpClient := &http.Client{
		Timeout: 90 * time.Second,
	}
	solverrGateway, err := gateway.NewGatewayOrMock(conf, httpClient)
	if err != nil {
		fail("Failed to initialize FlareSolverr gateway", "error", err.Error())
	}
	logger.Info("Initialized FlareSolverr gateway")

	checkpoints := scraper.NewCheckpointStore()

	updateScheduler, err := scraper.NewScheduler(solverrGateway, checkpoints)
	if err != nil {
		fail("Failed to initialize update scheduler", "error", err.Error())
	}

	statsReconciler, err := reconciler.NewReconciler(repo)
	if err != nil {
		fail("Failed to initialize reconciler", "error", err.Error())
	}

	updatePlayer := app.BuildUpdatePlayer(updateScheduler, statsReconciler)
	orchestrator := scraper.NewBulkOrchestrator(app.AsUpdateScheduler(updatePlayer), checkpoints)
	bulkUpdatePlayers := app.BuildBulkUpdatePlayers(orchestrator)
	getPlayerStats := app.BuildGetPlayerStats(repo)

	statsCache := cache.NewStatsCache(1 * time.Minute)

	http.HandleFunc(
		"GET /v1/players/{riotID}/stats",
		ports.MakeGetPlayerStatsHandler(
			getPlayerStats,
			statsCache,
			logger.With("port", "getplayerstats"),
			sentryMiddleware,
		),
	)

	http.HandleFunc(
		"POST /v1/players/{riotID}/update",
		ports.MakeUpdatePlayerHandler(
			updatePlayer,
			logger.With("port", "updateplayer"),
			sentryMiddleware,
		),
	)

	http.HandleFunc(
		"POST /v1/update",
		ports.MakeBulkUpdateHandler(
			bulkUpdatePlayers,
			logger.With("port", "bulkupdate"),
			sentryMiddleware,
		),
	)

	logger.Info("Init complete")
	err = http.ListenAndServe(fmt.Sprintf(":%s", conf.Port()), nil)
	if errors.Is(err, http.ErrServerClosed) {
		logger.Info("Server shutdown")
	} else {
		fail("Server error", "error", err.Error())
	}
}

// Command update-players runs a bulk update for the given riot IDs
// from the command line, bypassing the HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/pedroanisio/tracker-gg-api/internal/adapters/database"
	"github.com/pedroanisio/tracker-gg-api/internal/adapters/gateway"
	"github.com/pedroanisio/tracker-gg-api/internal/adapters/statsrepository"
	"github.com/pedroanisio/tracker-gg-api/internal/app"
	"github.com/pedroanisio/tracker-gg-api/internal/config"
	"github.com/pedroanisio/tracker-gg-api/internal/reconciler"
	"github.com/pedroanisio/tracker-gg-api/internal/scraper"
	"github.com/pedroanisio/tracker-gg-api/internal/strutils"
)

func main() {
	full := flag.Bool("full", false, "run full updates instead of incremental ones")
	maxConcurrent := flag.Int("max-concurrent", 3, "maximum number of players updated concurrently")
	flag.Parse()

	riotIDs := flag.Args()
	if len(riotIDs) == 0 {
		fmt.Fprintln(os.Stderr, "usage: update-players [-full] [-max-concurrent N] <riotID>...")
		os.Exit(2)
	}

	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	fail := func(msg string, args ...any) {
		logger.Error(msg, args...)
		os.Exit(1)
	}

	for _, riotID := range riotIDs {
		if !strutils.RiotIDIsValid(riotID) {
			fail("Invalid riot id", "riotID", riotID)
		}
	}

	conf, err := config.ConfigFromEnv()
	if err != nil {
		fail("Failed to load config", "error", err.Error())
	}

	ctx := context.Background()

	var repo statsrepository.StatsRepository
	if conf.DatabaseURL() == "" && conf.IsDevelopment() {
		logger.Warn("No DATABASE_URL set, results will not be persisted")
		repo = statsrepository.NewMemoryStatsRepository()
	} else {
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
	}

	httpClient := &http.Client{
		Timeout: 90 * time.Second,
	}
	solverrGateway, err := gateway.NewGatewayOrMock(conf, httpClient)
	if err != nil {
		fail("Failed to initialize FlareSolverr gateway", "error", err.Error())
	}

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

	var outcomes []scraper.UpdateOutcome
	if *full {
		// Bulk runs are always incremental; full updates go one by one.
		for _, riotID := range riotIDs {
			outcome, stats, err := updatePlayer(ctx, riotID, false)
			if err != nil {
				logger.Error("Update failed", "riotID", riotID, "error", err.Error())
			} else {
				logger.Info("Reconciled stats",
					"riotID", riotID,
					"processed", stats.Processed,
					"inserted", stats.Inserted,
					"updated", stats.Updated,
				)
			}
			outcomes = append(outcomes, outcome)
		}
	} else {
		orchestrator := scraper.NewBulkOrchestrator(app.AsUpdateScheduler(updatePlayer), checkpoints)
		outcomes = orchestrator.BulkUpdate(ctx, riotIDs, *maxConcurrent)
	}

	exitCode := 0
	for _, outcome := range outcomes {
		if outcome.Err != nil {
			fmt.Printf("%s: failed: %v\n", outcome.RiotID, outcome.Err)
			exitCode = 1
			continue
		}
		fmt.Printf("%s: %d succeeded, %d failed, priority achieved: %t\n",
			outcome.RiotID, outcome.Successful, outcome.Failed, outcome.PriorityAchieved)
		for _, result := range outcome.Results {
			fmt.Printf("  %-28s %-12s attempts=%d\n", result.Endpoint.Name, result.Status, result.Attempts)
		}
	}
	os.Exit(exitCode)
}

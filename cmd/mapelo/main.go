// Command mapelo is the operator CLI for rating maintenance and forecasts.
//
//	mapelo migrate
//	mapelo process
//	mapelo season -year 2026
//	mapelo reset -confirm RESET
//	mapelo simulate -tournament major-2025 [-file major.yaml] [-trials 10000] [-seed 1]
//	mapelo backtest -id <simulation uuid>
//	mapelo analyze [-since 2025-01-01]
//	mapelo reconcile -match 42 [-first-mover 7]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mapelo/forecast-api/internal/app"
	"github.com/mapelo/forecast-api/internal/config"
	"github.com/mapelo/forecast-api/internal/logic"
	"github.com/mapelo/forecast-api/internal/models"
	"github.com/mapelo/forecast-api/internal/store"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Sugar().Fatalw("Failed to initialise", "error", err)
	}
	defer a.Close()

	out, err := run(ctx, a, os.Args[1], os.Args[2:])
	if err != nil {
		logger.Sugar().Errorw("Command failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
	if out != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(out)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: mapelo <migrate|process|season|reset|simulate|backtest|analyze|reconcile> [flags]")
}

func run(ctx context.Context, a *app.App, cmd string, args []string) (interface{}, error) {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)

	switch cmd {
	case "migrate":
		return nil, a.Migrate(ctx)

	case "process":
		return a.Ratings.ProcessPending(ctx)

	case "season":
		year := fs.Int("year", time.Now().UTC().Year(), "season year")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		season, written, err := a.Seasons.CreateSeason(ctx, *year)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"season": season, "baseline_records": written}, nil

	case "reset":
		confirm := fs.String("confirm", "", `must be "RESET"`)
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		return a.Seasons.ResetAll(ctx, *confirm)

	case "simulate":
		tournament := fs.String("tournament", "", "tournament id under TOURNAMENTS_DIR")
		file := fs.String("file", "", "tournament YAML file (overrides -tournament lookup)")
		trials := fs.Int("trials", a.Config.DefaultTrials, "number of trials")
		seed := fs.Uint64("seed", a.Config.SimSeed, "random seed")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		req := models.RunSimulationRequest{TournamentID: *tournament, Trials: *trials, Seed: seed}
		if *file != "" {
			raw, err := os.ReadFile(*file)
			if err != nil {
				return nil, err
			}
			if req.Config, err = store.ParseTournament(raw, *tournament); err != nil {
				return nil, err
			}
		}
		if req.Config == nil && req.TournamentID == "" {
			return nil, fmt.Errorf("simulate needs -tournament or -file")
		}
		return a.Simulations.RunSimulation(ctx, req)

	case "backtest":
		id := fs.String("id", "", "simulation id")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		parsed, err := uuid.Parse(*id)
		if err != nil {
			return nil, fmt.Errorf("invalid -id: %w", err)
		}
		return a.Simulations.Backtest(ctx, parsed)

	case "analyze":
		since := fs.String("since", "", "YYYY-MM-DD (default: start of current season)")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		from := models.SeasonStart(time.Now().UTC().Year())
		if *since != "" {
			t, err := time.Parse(time.DateOnly, *since)
			if err != nil {
				return nil, fmt.Errorf("invalid -since: %w", err)
			}
			from = t
		}
		return a.Analyzer.Analyze(ctx, from)

	case "reconcile":
		match := fs.Int64("match", 0, "match id")
		first := fs.Int64("first-mover", 0, "team that acted first (default: infer from recorded actions)")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		var resolver logic.FirstMoverResolver = logic.RecordedActorResolver{}
		if *first != 0 {
			resolver = logic.StaticFirstMover{*match: *first}
		}
		return logic.ReconcileMatch(ctx, a.Store, resolver, *match)

	default:
		usage()
		return nil, fmt.Errorf("unknown command %q", cmd)
	}
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/utakatalp/krach-ranker/internal/api"
	"github.com/utakatalp/krach-ranker/internal/cache"
	"github.com/utakatalp/krach-ranker/internal/config"
	"github.com/utakatalp/krach-ranker/internal/league"
	"github.com/utakatalp/krach-ranker/internal/logger"
	"github.com/utakatalp/krach-ranker/internal/ranking"
	"github.com/utakatalp/krach-ranker/internal/store"
)

const usage = `usage: krach <command> [flags]

commands:
  rank      rank teams from a results file or a stored division
  import    store a results file as a division
  simulate  write a synthetic season to a results file
  serve     serve rankings over HTTP`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading configuration: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	args := os.Args[2:]
	switch os.Args[1] {
	case "rank":
		err = runRank(ctx, cfg, log, args)
	case "import":
		err = runImport(ctx, cfg, log, args)
	case "simulate":
		err = runSimulate(log, args)
	case "serve":
		err = runServe(ctx, cfg, log, args)
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Error("command failed", "command", os.Args[1], "error", err)
		log.Sync()
		os.Exit(1)
	}
}

// solverFlags registers the solver parameters, defaulting to the configuration.
func solverFlags(fs *flag.FlagSet, p *league.Params) {
	fs.Float64Var(&p.Alpha, "alpha", p.Alpha, "damping constant added to every denominator")
	fs.Float64Var(&p.Scale, "scale", p.Scale, "display scale applied to the ratings")
	fs.IntVar(&p.MaxIterations, "iterations", p.MaxIterations, "maximum solver iterations")
	fs.Float64Var(&p.Tolerance, "tolerance", p.Tolerance, "convergence tolerance")
}

func openService(ctx context.Context, cfg *config.Config, log *logger.Logger, params league.Params, corrections []league.Correction) (*ranking.Service, func(), error) {
	if cfg.Database.URL == "" {
		return nil, nil, errors.New("DATABASE_URL is not set")
	}
	st, err := store.NewStore(ctx, cfg.Database.URL)
	if err != nil {
		return nil, nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, nil, err
	}

	deps := &ranking.ServiceDependencies{
		Repository:  st,
		Params:      params,
		Corrections: corrections,
		Logger:      log,
	}
	closers := []func() error{st.Close}
	if cfg.Redis.Addr != "" {
		client := cache.NewClient(cfg.Redis.Addr, cfg.Redis.Password)
		deps.Cache = cache.New(client, cfg.Redis.TTL)
		closers = append(closers, client.Close)
	}

	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				log.Warn("close failed", "error", err)
			}
		}
	}
	return ranking.NewService(deps), closeAll, nil
}

func runRank(ctx context.Context, cfg *config.Config, log *logger.Logger, args []string) error {
	fs := flag.NewFlagSet("rank", flag.ExitOnError)
	file := fs.String("file", cfg.ResultsFile, "results file to rank")
	division := fs.String("division", "", "rank a stored division instead of a file")
	all := fs.Bool("all", false, "rank every stored division")
	correctionsFile := fs.String("corrections", cfg.CorrectionsFile, "YAML corrections applied before ranking")
	params := cfg.Solver
	solverFlags(fs, &params)
	fs.Parse(args)

	if err := params.Validate(); err != nil {
		return err
	}
	var corrections []league.Correction
	if *correctionsFile != "" {
		var err error
		if corrections, err = league.LoadCorrections(*correctionsFile); err != nil {
			return err
		}
	}

	if *division == "" && !*all {
		schedules, err := store.NewFileStore(*file).Load()
		if errors.Is(err, store.ErrNoData) {
			return fmt.Errorf("no existing data found at %s, run simulate or import first: %w", *file, err)
		}
		if err != nil {
			return err
		}
		log.Info("team results loaded", "file", *file, "schedules", len(schedules))

		res, err := ranking.Evaluate(schedules, corrections, params, log)
		if err != nil {
			return err
		}
		league.PrintRankings(os.Stdout, "\nKRACH Rankings:", res.Standings, res.Records)
		return nil
	}

	svc, closeAll, err := openService(ctx, cfg, log, params, corrections)
	if err != nil {
		return err
	}
	defer closeAll()

	if *all {
		batch, err := svc.ComputeAll(ctx, nil)
		if err != nil {
			return err
		}
		names := make([]string, 0, len(batch.Results))
		for d := range batch.Results {
			names = append(names, d)
		}
		sort.Strings(names)
		for _, d := range names {
			c := batch.Results[d]
			league.PrintRankings(os.Stdout, "\nKRACH Rankings: "+d, c.Entry.Standings, c.Records)
		}
		return nil
	}

	c, err := svc.Compute(ctx, *division)
	if err != nil {
		return err
	}
	league.PrintRankings(os.Stdout, "\nKRACH Rankings: "+*division, c.Entry.Standings, c.Records)
	return nil
}

func runImport(ctx context.Context, cfg *config.Config, log *logger.Logger, args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	file := fs.String("file", cfg.ResultsFile, "results file to import")
	division := fs.String("division", "", "division name to store the results under")
	fs.Parse(args)

	if *division == "" {
		return errors.New("-division is required")
	}
	schedules, err := store.NewFileStore(*file).Load()
	if err != nil {
		return err
	}

	svc, closeAll, err := openService(ctx, cfg, log, cfg.Solver, nil)
	if err != nil {
		return err
	}
	defer closeAll()

	warnings, err := svc.Import(ctx, *division, schedules)
	for _, w := range warnings {
		log.Warn("imported malformed record", "warning", w.String())
	}
	return err
}

func runSimulate(log *logger.Logger, args []string) error {
	fs := flag.NewFlagSet("simulate", flag.ExitOnError)
	teams := fs.Int("teams", 8, "number of teams")
	seasons := fs.Int("seasons", 2, "round-robins to play")
	seed := fs.Int64("seed", time.Now().UnixNano(), "random seed")
	out := fs.String("out", "team_results.json", "results file to write")
	fs.Parse(args)

	if *teams < 2 || *seasons < 1 {
		return errors.New("need at least 2 teams and 1 season")
	}

	names := make([]string, *teams)
	strengths := make(map[string]float64, *teams)
	for i := range names {
		names[i] = fmt.Sprintf("TEAM %02d", i+1)
		strengths[names[i]] = float64(*teams - i)
	}

	schedules := league.Simulate(names, strengths, *seasons, rand.New(rand.NewSource(*seed)))
	if err := store.NewFileStore(*out).Save(schedules); err != nil {
		return err
	}
	log.Info("season simulated", "file", *out, "teams", *teams, "seasons", *seasons, "seed", *seed)
	return nil
}

func runServe(ctx context.Context, cfg *config.Config, log *logger.Logger, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", cfg.HTTPAddr, "listen address")
	correctionsFile := fs.String("corrections", cfg.CorrectionsFile, "YAML corrections applied before ranking")
	params := cfg.Solver
	solverFlags(fs, &params)
	fs.Parse(args)

	if err := params.Validate(); err != nil {
		return err
	}
	var corrections []league.Correction
	if *correctionsFile != "" {
		var err error
		if corrections, err = league.LoadCorrections(*correctionsFile); err != nil {
			return err
		}
	}

	svc, closeAll, err := openService(ctx, cfg, log, params, corrections)
	if err != nil {
		return err
	}
	defer closeAll()

	srv := &http.Server{
		Addr:              *addr,
		Handler:           api.NewHandler(svc, log).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", *addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

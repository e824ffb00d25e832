package ranking

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/utakatalp/krach-ranker/internal/cache"
	"github.com/utakatalp/krach-ranker/internal/league"
	"github.com/utakatalp/krach-ranker/internal/logger"
	"github.com/utakatalp/krach-ranker/internal/store"
)

// Repository is the persistence the service needs. *store.Store implements it.
type Repository interface {
	SaveSchedules(ctx context.Context, division string, schedules [][]league.GameRecord) error
	LoadSchedules(ctx context.Context, division string) ([][]league.GameRecord, error)
	Divisions(ctx context.Context) ([]string, error)
	SaveRankings(ctx context.Context, run *store.Run) (uuid.UUID, error)
	LatestRankings(ctx context.Context, division string) (*store.Run, error)
	DeleteDivision(ctx context.Context, division string) error
}

// Cache holds the latest standings per division. *cache.RankingCache implements it.
type Cache interface {
	Get(ctx context.Context, division string) (*cache.Entry, bool, error)
	Set(ctx context.Context, division string, e *cache.Entry) error
	Invalidate(ctx context.Context, division string) error
}

// Service runs and serves KRACH rankings per division.
type Service struct {
	repo        Repository
	cache       Cache
	params      league.Params
	corrections []league.Correction
	log         *logger.Logger
	parallelism int
}

type ServiceDependencies struct {
	Repository Repository
	// Cache is optional.
	Cache       Cache
	Params      league.Params
	Corrections []league.Correction
	Logger      *logger.Logger
	// Parallelism bounds ComputeAll; zero means 4.
	Parallelism int
}

// Create a new instance of the ranking service.
func NewService(deps *ServiceDependencies) *Service {
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}
	parallelism := deps.Parallelism
	if parallelism <= 0 {
		parallelism = 4
	}
	return &Service{
		repo:        deps.Repository,
		cache:       deps.Cache,
		params:      deps.Params,
		corrections: deps.Corrections,
		log:         log,
		parallelism: parallelism,
	}
}

// Computed is a persisted ranking run together with its warnings.
type Computed struct {
	Entry    *cache.Entry
	Warnings []league.Warning
	Records  []league.Record
}

// Compute ranks a division from its stored schedules and records the run.
func (s *Service) Compute(ctx context.Context, division string) (*Computed, error) {
	schedules, err := s.repo.LoadSchedules(ctx, division)
	if err != nil {
		return nil, fmt.Errorf("loading schedules: %w", err)
	}

	log := s.log.With("division", division)
	res, err := Evaluate(schedules, league.CorrectionsFor(s.corrections, division), s.params, log)
	if err != nil {
		return nil, err
	}

	run := &store.Run{
		Division:   division,
		Iterations: res.Ratings.Iterations,
		Converged:  res.Ratings.Converged,
		Params:     s.params,
		Standings:  res.Standings,
	}
	id, err := s.repo.SaveRankings(ctx, run)
	if err != nil {
		return nil, fmt.Errorf("saving rankings: %w", err)
	}
	log.Info("rankings saved", "run_id", id.String(), "teams", len(res.Standings))

	entry := &cache.Entry{
		RunID:      id.String(),
		Iterations: run.Iterations,
		Converged:  run.Converged,
		Standings:  run.Standings,
	}
	s.cacheSet(ctx, division, entry)

	return &Computed{Entry: entry, Warnings: res.Warnings, Records: res.Records}, nil
}

// Rankings returns the latest standings of a division, computing them when
// none were stored yet.
func (s *Service) Rankings(ctx context.Context, division string) (*cache.Entry, error) {
	if s.cache != nil {
		entry, ok, err := s.cache.Get(ctx, division)
		if err != nil {
			s.log.Warn("cache read failed", "division", division, "error", err)
		} else if ok {
			return entry, nil
		}
	}

	run, err := s.repo.LatestRankings(ctx, division)
	if errors.Is(err, store.ErrNoData) {
		c, err := s.Compute(ctx, division)
		if err != nil {
			return nil, err
		}
		return c.Entry, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading rankings: %w", err)
	}

	entry := &cache.Entry{
		RunID:      run.ID.String(),
		Iterations: run.Iterations,
		Converged:  run.Converged,
		Standings:  run.Standings,
	}
	s.cacheSet(ctx, division, entry)
	return entry, nil
}

// Batch is the outcome of ComputeAll. Divisions without usable games are
// listed in Skipped instead of failing the batch.
type Batch struct {
	Results map[string]*Computed
	Skipped map[string]error
}

// ComputeAll ranks several divisions concurrently; each solve works on its own
// matrix. With no divisions given every stored division is ranked. Storage
// failures cancel the batch.
func (s *Service) ComputeAll(ctx context.Context, divisions []string) (*Batch, error) {
	if len(divisions) == 0 {
		var err error
		if divisions, err = s.repo.Divisions(ctx); err != nil {
			return nil, fmt.Errorf("listing divisions: %w", err)
		}
	}

	batch := &Batch{
		Results: make(map[string]*Computed, len(divisions)),
		Skipped: make(map[string]error),
	}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for _, division := range divisions {
		division := division
		g.Go(func() error {
			c, err := s.Compute(gctx, division)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				batch.Results[division] = c
			case errors.Is(err, league.ErrEmptyInput), errors.Is(err, store.ErrNoData):
				s.log.Warn("division skipped", "division", division, "error", err)
				batch.Skipped[division] = err
			default:
				return fmt.Errorf("division %s: %w", division, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return batch, nil
}

// Import stores the schedules of a division after checking they hold at
// least one usable game, then ranks them so the stored run matches the new
// games. The malformed records found are returned.
func (s *Service) Import(ctx context.Context, division string, schedules [][]league.GameRecord) ([]league.Warning, error) {
	_, warnings, err := league.Build(schedules)
	if err != nil {
		return warnings, fmt.Errorf("importing %s: %w", division, err)
	}
	if err := s.repo.SaveSchedules(ctx, division, schedules); err != nil {
		return warnings, fmt.Errorf("saving schedules: %w", err)
	}
	s.log.Info("schedules imported", "division", division, "schedules", len(schedules), "warnings", len(warnings))
	s.cacheInvalidate(ctx, division)

	if _, err := s.Compute(ctx, division); err != nil {
		return warnings, fmt.Errorf("ranking imported schedules: %w", err)
	}
	return warnings, nil
}

// Schedules returns the stored raw schedules of a division.
func (s *Service) Schedules(ctx context.Context, division string) ([][]league.GameRecord, error) {
	return s.repo.LoadSchedules(ctx, division)
}

func (s *Service) Divisions(ctx context.Context) ([]string, error) {
	return s.repo.Divisions(ctx)
}

// Delete drops everything stored for a division.
func (s *Service) Delete(ctx context.Context, division string) error {
	if err := s.repo.DeleteDivision(ctx, division); err != nil {
		return err
	}
	s.cacheInvalidate(ctx, division)
	return nil
}

func (s *Service) cacheSet(ctx context.Context, division string, e *cache.Entry) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, division, e); err != nil {
		s.log.Warn("cache write failed", "division", division, "error", err)
	}
}

func (s *Service) cacheInvalidate(ctx context.Context, division string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, division); err != nil {
		s.log.Warn("cache invalidation failed", "division", division, "error", err)
	}
}

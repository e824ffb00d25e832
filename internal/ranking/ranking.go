package ranking

import (
	"fmt"

	"github.com/utakatalp/krach-ranker/internal/league"
	"github.com/utakatalp/krach-ranker/internal/logger"
)

// Result is one full pass through the pipeline for a set of schedules.
type Result struct {
	Ratings   *league.Ratings
	Standings []league.Standing
	Records   []league.Record
	// Warnings holds builder and solver warnings in that order.
	Warnings  []league.Warning
	Unmatched []league.Correction
}

// Evaluate patches the schedules, builds the matrix, solves it and ranks the
// teams. Every warning is logged and returned; only an empty input or an
// unusable parameter set fails.
func Evaluate(schedules [][]league.GameRecord, corrections []league.Correction, p league.Params, log *logger.Logger) (*Result, error) {
	res := &Result{}
	if len(corrections) > 0 {
		schedules, res.Unmatched = league.ApplyCorrections(schedules, corrections)
		for _, c := range res.Unmatched {
			log.Warn("correction matched no game",
				"action", c.Action, "team", c.Team, "opponent", c.Opponent, "result", c.Result)
		}
	}

	m, warnings, err := league.Build(schedules)
	for _, w := range warnings {
		log.Warn("skipped game record",
			"schedule", w.Schedule, "game", w.Game, "record", w.Record.String(), "reason", w.Reason)
	}
	res.Warnings = append(res.Warnings, warnings...)
	if err != nil {
		return nil, fmt.Errorf("building matrix: %w", err)
	}

	ratings, err := league.Solve(m, p)
	if err != nil {
		return nil, fmt.Errorf("solving ratings: %w", err)
	}
	if ratings.Converged {
		log.Info("ratings converged", "teams", m.Len(), "iterations", ratings.Iterations)
	} else {
		log.Warn("ratings did not converge, using last iteration",
			"teams", m.Len(), "iterations", ratings.Iterations, "tolerance", p.Tolerance)
	}
	res.Warnings = append(res.Warnings, ratings.Warnings...)

	res.Ratings = ratings
	res.Standings = ratings.Rank()
	res.Records = league.Records(schedules)
	return res, nil
}

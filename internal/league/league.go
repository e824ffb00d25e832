package league

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrEmptyInput is returned by Build when no usable game data was supplied.
	ErrEmptyInput = errors.New("no usable game records")
	// ErrEmptyMatrix is returned by Solve for a matrix without teams.
	ErrEmptyMatrix = errors.New("pairwise matrix has no teams")
	// ErrInvalidParams is returned by Solve when the solver parameters are unusable.
	ErrInvalidParams = errors.New("invalid solver parameters")
)

// GameRecord is one game from the point of view of Team.
// Result starts with W, L or T.
type GameRecord struct {
	Team     string
	Opponent string
	Result   string
}

// MarshalJSON encodes the record as a ["team","opponent","result"] triple.
func (g GameRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]string{g.Team, g.Opponent, g.Result})
}

// UnmarshalJSON decodes a triple. Short or long arrays are accepted and leave
// the record malformed instead of failing the whole document.
func (g *GameRecord) UnmarshalJSON(data []byte) error {
	var fields []string
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("decoding game record: %w", err)
	}
	*g = GameRecord{}
	if len(fields) > 0 {
		g.Team = fields[0]
	}
	if len(fields) > 1 {
		g.Opponent = fields[1]
	}
	if len(fields) == 3 {
		g.Result = fields[2]
	}
	return nil
}

func (g GameRecord) String() string {
	return fmt.Sprintf("%s vs %s: %s", g.Team, g.Opponent, g.Result)
}

// WarningKind classifies a non-fatal condition found while ranking.
type WarningKind string

const (
	WarnMalformedRecord WarningKind = "malformed_record"
	WarnNonConvergence  WarningKind = "non_convergence"
)

// Warning is a non-fatal diagnostic. Schedule and Game locate the record in the
// input for malformed records and are -1 otherwise.
type Warning struct {
	Kind     WarningKind
	Schedule int
	Game     int
	Record   GameRecord
	Reason   string
}

func (w Warning) String() string {
	if w.Kind == WarnMalformedRecord {
		return fmt.Sprintf("%s: schedule %d game %d (%v): %s", w.Kind, w.Schedule, w.Game, w.Record, w.Reason)
	}
	return fmt.Sprintf("%s: %s", w.Kind, w.Reason)
}

// Standing is one row of a ranking.
type Standing struct {
	Rank   int     `json:"rank"`
	Team   string  `json:"team"`
	Rating float64 `json:"rating"`
}

// Record holds the win/loss/tie tally of a team taken from its own schedule.
type Record struct {
	Team   string `json:"team"`
	Played int    `json:"played"`
	Wins   int    `json:"wins"`
	Losses int    `json:"losses"`
	Ties   int    `json:"ties"`
}

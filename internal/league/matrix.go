package league

import (
	"strings"
)

const (
	winCredit = 1.0
	tieCredit = 0.5
)

// Matrix is the pairwise comparison matrix. Row i, column j holds the win
// credit team i earned against team j. Teams are indexed in the order they
// first appear in the input. A Matrix is never modified after Build.
type Matrix struct {
	teams  []string
	index  map[string]int
	credit [][]float64
}

// Len returns the number of teams.
func (m *Matrix) Len() int {
	if m == nil {
		return 0
	}
	return len(m.teams)
}

// Teams returns a copy of the team list in index order.
func (m *Matrix) Teams() []string {
	out := make([]string, len(m.teams))
	copy(out, m.teams)
	return out
}

func (m *Matrix) Team(i int) string {
	return m.teams[i]
}

// Index returns the position of the named team.
func (m *Matrix) Index(team string) (int, bool) {
	i, ok := m.index[team]
	return i, ok
}

func (m *Matrix) At(i, j int) float64 {
	return m.credit[i][j]
}

// Credit returns the credit of team over opponent, 0 for unknown teams.
func (m *Matrix) Credit(team, opponent string) float64 {
	i, ok := m.index[team]
	if !ok {
		return 0
	}
	j, ok := m.index[opponent]
	if !ok {
		return 0
	}
	return m.credit[i][j]
}

// RowSum is the total credit team i earned.
func (m *Matrix) RowSum(i int) float64 {
	var sum float64
	for _, c := range m.credit[i] {
		sum += c
	}
	return sum
}

// ColSum is the total credit given up by team j to its opponents.
func (m *Matrix) ColSum(j int) float64 {
	var sum float64
	for i := range m.credit {
		sum += m.credit[i][j]
	}
	return sum
}

// Build turns per-team schedules into a pairwise matrix.
//
// Only W and T results add credit, and only to the row of the record's own
// team. A loss is expected to show up as a win in the opponent's schedule; if
// that schedule is missing the game is not counted from either side.
// Malformed records are skipped and reported as warnings. A record naming
// both teams still adds them to the team list, it only loses its credit.
func Build(schedules [][]GameRecord) (*Matrix, []Warning, error) {
	var warnings []Warning
	type accepted struct {
		team, opponent string
		credit         float64
	}
	var games []accepted

	m := &Matrix{index: make(map[string]int)}
	add := func(name string) {
		if _, ok := m.index[name]; !ok {
			m.index[name] = len(m.teams)
			m.teams = append(m.teams, name)
		}
	}

	for s, schedule := range schedules {
		for g, rec := range schedule {
			team, opponent := strings.TrimSpace(rec.Team), strings.TrimSpace(rec.Opponent)
			// every named team is rated, even when its result is unusable
			if team != "" && opponent != "" {
				add(team)
				add(opponent)
			}
			credit, reason := validate(rec)
			if reason != "" {
				warnings = append(warnings, Warning{
					Kind:     WarnMalformedRecord,
					Schedule: s,
					Game:     g,
					Record:   rec,
					Reason:   reason,
				})
				continue
			}
			if credit > 0 {
				games = append(games, accepted{team: team, opponent: opponent, credit: credit})
			}
		}
	}

	if len(m.teams) == 0 {
		return nil, warnings, ErrEmptyInput
	}

	n := len(m.teams)
	m.credit = make([][]float64, n)
	for i := range m.credit {
		m.credit[i] = make([]float64, n)
	}
	for _, g := range games {
		m.credit[m.index[g.team]][m.index[g.opponent]] += g.credit
	}

	return m, warnings, nil
}

// validate returns the credit a record carries or the reason it is malformed.
func validate(rec GameRecord) (float64, string) {
	team, opponent := strings.TrimSpace(rec.Team), strings.TrimSpace(rec.Opponent)
	result := strings.TrimSpace(rec.Result)
	switch {
	case team == "":
		return 0, "missing team"
	case opponent == "":
		return 0, "missing opponent"
	case result == "":
		return 0, "missing result"
	case team == opponent:
		return 0, "team plays itself"
	}

	switch leading(result) {
	case 'W':
		return winCredit, ""
	case 'T':
		return tieCredit, ""
	case 'L':
		return 0, ""
	}
	return 0, "unrecognized result " + result
}

// leading returns the upper-cased first byte of a result code, 0 if empty.
func leading(result string) byte {
	result = strings.TrimSpace(result)
	if result == "" {
		return 0
	}
	c := result[0]
	if c >= 'a' && c <= 'z' {
		c -= 'a' - 'A'
	}
	return c
}

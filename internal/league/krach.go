package league

import (
	"fmt"
	"math"
	"sort"
)

// Params tunes the KRACH solve.
type Params struct {
	// Alpha is added to every denominator. It must be positive.
	Alpha float64
	// Scale multiplies the converged values for display.
	Scale         float64
	MaxIterations int
	// Tolerance bounds the summed absolute change between two passes.
	Tolerance float64
}

func DefaultParams() Params {
	return Params{
		Alpha:         0.85,
		Scale:         1e8,
		MaxIterations: 200,
		Tolerance:     1e-5,
	}
}

// Validate reports whether the parameters can be used by Solve.
func (p Params) Validate() error {
	bad := func(v float64) bool { return math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 }
	switch {
	case bad(p.Alpha):
		return fmt.Errorf("%w: alpha must be positive, got %v", ErrInvalidParams, p.Alpha)
	case bad(p.Scale):
		return fmt.Errorf("%w: scale must be positive, got %v", ErrInvalidParams, p.Scale)
	case p.MaxIterations < 1:
		return fmt.Errorf("%w: max iterations must be at least 1, got %d", ErrInvalidParams, p.MaxIterations)
	case bad(p.Tolerance):
		return fmt.Errorf("%w: tolerance must be positive, got %v", ErrInvalidParams, p.Tolerance)
	}
	return nil
}

// Ratings is the result of a solve. It is not modified after Solve returns.
type Ratings struct {
	teams  []string
	values []float64

	Iterations int
	Converged  bool
	Warnings   []Warning
}

// Teams returns the rated teams in matrix index order.
func (r *Ratings) Teams() []string {
	out := make([]string, len(r.teams))
	copy(out, r.teams)
	return out
}

// Values returns the scaled ratings in matrix index order.
func (r *Ratings) Values() []float64 {
	out := make([]float64, len(r.values))
	copy(out, r.values)
	return out
}

// Get returns the rating of a team.
func (r *Ratings) Get(team string) (float64, bool) {
	for i, t := range r.teams {
		if t == team {
			return r.values[i], true
		}
	}
	return 0, false
}

// Probability is the Bradley-Terry chance that a beats b. It is 0.5 when both
// ratings are zero and false when either team is unknown.
func (r *Ratings) Probability(a, b string) (float64, bool) {
	ka, ok := r.Get(a)
	if !ok {
		return 0, false
	}
	kb, ok := r.Get(b)
	if !ok {
		return 0, false
	}
	if ka+kb == 0 {
		return 0.5, true
	}
	return ka / (ka + kb), true
}

// Rank orders the teams by rating, highest first. Equal ratings keep matrix
// index order.
func (r *Ratings) Rank() []Standing {
	standings := make([]Standing, len(r.teams))
	for i, t := range r.teams {
		standings[i] = Standing{Team: t, Rating: r.values[i]}
	}
	sort.SliceStable(standings, func(i, j int) bool {
		return standings[i].Rating > standings[j].Rating
	})
	for i := range standings {
		standings[i].Rank = i + 1
	}
	return standings
}

// Solve computes KRACH ratings for every team of m.
//
// Each pass recomputes every team from the previous pass only:
//
//	P'[i] = W[i] / (W[i] + L[i] + alpha)
//	W[i]  = sum_j M[i][j] * P[j]
//	L[i]  = sum_j M[j][i]
//
// Running out of iterations is not an error; the last pass is returned with
// Converged set to false and a warning attached.
func Solve(m *Matrix, p Params) (*Ratings, error) {
	if m.Len() == 0 {
		return nil, ErrEmptyMatrix
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	n := m.Len()
	against := make([]float64, n)
	for i := 0; i < n; i++ {
		against[i] = m.ColSum(i)
	}

	prev := make([]float64, n)
	next := make([]float64, n)
	for i := range prev {
		prev[i] = 1.0
	}

	r := &Ratings{teams: m.Teams()}
	for iter := 1; iter <= p.MaxIterations; iter++ {
		var change float64
		for i := 0; i < n; i++ {
			var wins float64
			for j, c := range m.credit[i] {
				wins += c * prev[j]
			}
			next[i] = wins / (wins + against[i] + p.Alpha)
			change += math.Abs(next[i] - prev[i])
		}
		prev, next = next, prev
		r.Iterations = iter
		if change < p.Tolerance {
			r.Converged = true
			break
		}
	}

	if !r.Converged {
		r.Warnings = append(r.Warnings, Warning{
			Kind:     WarnNonConvergence,
			Schedule: -1,
			Game:     -1,
			Reason:   fmt.Sprintf("not converged after %d iterations", r.Iterations),
		})
	}

	r.values = make([]float64, n)
	for i, v := range prev {
		r.values[i] = v * p.Scale
	}
	return r, nil
}

package league

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustBuild(t *testing.T, schedules [][]GameRecord) *Matrix {
	t.Helper()
	m, warnings, err := Build(schedules)
	require.NoError(t, err)
	require.Empty(t, warnings)
	return m
}

// each team beats one other team
func cycle(t *testing.T) *Matrix {
	return mustBuild(t, [][]GameRecord{
		{{"A", "B", "W"}, {"A", "C", "L"}},
		{{"B", "C", "W"}, {"B", "A", "L"}},
		{{"C", "A", "W"}, {"C", "B", "L"}},
	})
}

func assertUsable(t *testing.T, r *Ratings) {
	t.Helper()
	for i, v := range r.Values() {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), "rating of %s is %v", r.Teams()[i], v)
		assert.GreaterOrEqual(t, v, 0.0, "rating of %s", r.Teams()[i])
	}
}

func TestSolveRoundRobinConverges(t *testing.T) {
	p := DefaultParams()
	p.Scale = 1

	r, err := Solve(cycle(t), p)
	require.NoError(t, err)
	assert.True(t, r.Converged)
	assert.LessOrEqual(t, r.Iterations, p.MaxIterations)
	assert.Empty(t, r.Warnings)
	assertUsable(t, r)

	v := r.Values()
	assert.InDelta(t, v[0], v[1], p.Tolerance)
	assert.InDelta(t, v[1], v[2], p.Tolerance)
	assert.InDelta(t, v[0], v[2], p.Tolerance)
}

func TestSolveUsesPreviousPass(t *testing.T) {
	// A beats B and C, B beats C, C beats A
	m := mustBuild(t, [][]GameRecord{
		{{"A", "B", "W"}, {"A", "C", "W"}},
		{{"B", "C", "W"}},
		{{"C", "A", "W"}},
	})
	p := Params{Alpha: 0.85, Scale: 1, MaxIterations: 2, Tolerance: 1e-5}

	r, err := Solve(m, p)
	require.NoError(t, err)
	assert.False(t, r.Converged)
	assert.Equal(t, 2, r.Iterations)

	// first pass from all ones
	a1 := 2 / (2 + 1 + 0.85)
	b1 := 1 / (1 + 1 + 0.85)
	c1 := 1 / (1 + 2 + 0.85)
	// second pass only reads the first
	wa, wb, wc := b1+c1, c1, a1
	expected := []float64{
		wa / (wa + 1 + 0.85),
		wb / (wb + 1 + 0.85),
		wc / (wc + 2 + 0.85),
	}

	v := r.Values()
	for i := range expected {
		assert.InDelta(t, expected[i], v[i], 1e-12, r.Teams()[i])
	}
}

func TestSolveEmptyMatrix(t *testing.T) {
	_, err := Solve(nil, DefaultParams())
	assert.ErrorIs(t, err, ErrEmptyMatrix)

	_, err = Solve(&Matrix{}, DefaultParams())
	assert.ErrorIs(t, err, ErrEmptyMatrix)
}

func TestSolveInvalidParams(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Params)
	}{
		{"zero alpha", func(p *Params) { p.Alpha = 0 }},
		{"negative alpha", func(p *Params) { p.Alpha = -1 }},
		{"nan alpha", func(p *Params) { p.Alpha = math.NaN() }},
		{"zero scale", func(p *Params) { p.Scale = 0 }},
		{"no iterations", func(p *Params) { p.MaxIterations = 0 }},
		{"zero tolerance", func(p *Params) { p.Tolerance = 0 }},
		{"infinite tolerance", func(p *Params) { p.Tolerance = math.Inf(1) }},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			p := DefaultParams()
			test.modify(&p)
			_, err := Solve(cycle(t), p)
			assert.ErrorIs(t, err, ErrInvalidParams)
		})
	}
}

func TestSolveNonConvergence(t *testing.T) {
	p := DefaultParams()
	p.MaxIterations = 3

	r, err := Solve(cycle(t), p)
	require.NoError(t, err)
	assert.False(t, r.Converged)
	assert.Equal(t, 3, r.Iterations)
	require.Len(t, r.Warnings, 1)
	assert.Equal(t, WarnNonConvergence, r.Warnings[0].Kind)
	assertUsable(t, r)
}

func TestSolveIsRepeatable(t *testing.T) {
	m := mustBuild(t, Simulate([]string{"A", "B", "C", "D", "E"}, map[string]float64{
		"A": 5, "B": 4, "C": 3, "D": 2, "E": 1,
	}, 4, rand.New(rand.NewSource(3))))

	first, err := Solve(m, DefaultParams())
	require.NoError(t, err)
	second, err := Solve(m, DefaultParams())
	require.NoError(t, err)

	assert.Equal(t, first.Values(), second.Values())
	assert.Equal(t, first.Iterations, second.Iterations)
	assert.Equal(t, first.Rank(), second.Rank())
}

func TestSolveMoreWinsRankHigher(t *testing.T) {
	// A and B face the same opponents and never each other. A beat Y where B
	// lost to Y, everything else is equal.
	m := mustBuild(t, [][]GameRecord{
		{{"A", "X", "W"}, {"A", "Y", "W"}},
		{{"B", "X", "W"}, {"B", "Y", "L"}},
		{{"X", "Y", "W"}, {"X", "A", "L"}, {"X", "B", "L"}},
		{{"Y", "X", "W"}, {"Y", "B", "W"}, {"Y", "A", "L"}},
	})

	r, err := Solve(m, DefaultParams())
	require.NoError(t, err)
	assertUsable(t, r)

	a, _ := r.Get("A")
	b, _ := r.Get("B")
	assert.Greater(t, a, b)

	order := teamsOf(r.Rank())
	assert.Less(t, indexOf(order, "A"), indexOf(order, "B"))
}

func TestSolveScaleKeepsOrder(t *testing.T) {
	m := mustBuild(t, Simulate([]string{"A", "B", "C", "D", "E", "F"}, map[string]float64{
		"A": 9, "B": 7, "C": 5, "D": 4, "E": 2, "F": 1,
	}, 6, rand.New(rand.NewSource(7))))

	var orders [][]string
	for _, scale := range []float64{1, 1e8, 12345.678} {
		p := DefaultParams()
		p.Scale = scale
		r, err := Solve(m, p)
		require.NoError(t, err)
		assertUsable(t, r)
		orders = append(orders, teamsOf(r.Rank()))
	}
	assert.Equal(t, orders[0], orders[1])
	assert.Equal(t, orders[0], orders[2])
}

func TestSolveOneSidedSchedule(t *testing.T) {
	// A beats B and ties C. Nothing else was recorded.
	m := mustBuild(t, [][]GameRecord{{{"A", "B", "W"}, {"A", "C", "T"}}})
	p := Params{Alpha: 0.85, Scale: 1, MaxIterations: 200, Tolerance: 1e-5}

	r, err := Solve(m, p)
	require.NoError(t, err)
	assert.True(t, r.Converged)
	assertUsable(t, r)

	standings := r.Rank()
	assert.Equal(t, "A", standings[0].Team)
	a, _ := r.Get("A")
	for _, s := range standings[1:] {
		assert.GreaterOrEqual(t, a, s.Rating)
	}

	// after one pass only the damping separates the winless teams from zero
	p.MaxIterations = 1
	r, err = Solve(m, p)
	require.NoError(t, err)
	assert.False(t, r.Converged)
	a, _ = r.Get("A")
	b, _ := r.Get("B")
	c, _ := r.Get("C")
	assert.InDelta(t, 1.5/(1.5+0.85), a, 1e-12)
	assert.Zero(t, b)
	assert.Zero(t, c)
}

func TestRankKeepsIndexOrderOnTies(t *testing.T) {
	r := &Ratings{
		teams:  []string{"C", "A", "B", "D"},
		values: []float64{2, 5, 2, 2},
	}

	assert.Equal(t, []Standing{
		{Rank: 1, Team: "A", Rating: 5},
		{Rank: 2, Team: "C", Rating: 2},
		{Rank: 3, Team: "B", Rating: 2},
		{Rank: 4, Team: "D", Rating: 2},
	}, r.Rank())
}

func TestProbability(t *testing.T) {
	r := &Ratings{
		teams:  []string{"A", "B", "C", "D"},
		values: []float64{3, 1, 0, 0},
	}

	tests := []struct {
		name     string
		a, b     string
		expected float64
		ok       bool
	}{
		{"stronger team", "A", "B", 0.75, true},
		{"weaker team", "B", "A", 0.25, true},
		{"against zero", "A", "C", 1, true},
		{"both zero", "C", "D", 0.5, true},
		{"unknown team", "A", "Z", 0, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			p, ok := r.Probability(test.a, test.b)
			assert.Equal(t, test.ok, ok)
			assert.Equal(t, test.expected, p)
		})
	}
}

func teamsOf(standings []Standing) []string {
	out := make([]string, len(standings))
	for i, s := range standings {
		out[i] = s.Team
	}
	return out
}

func indexOf(list []string, team string) int {
	for i, t := range list {
		if t == team {
			return i
		}
	}
	return -1
}

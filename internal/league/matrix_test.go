package league

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	schedules := [][]GameRecord{
		{
			{"A", "B", "W 4-2"},
			{"A", "C", "T 1-1"},
			{"A", "D", "L 0-3"},
		},
		{
			{"B", "C", "w 3-1"},
		},
		{},
		{
			{"D", "A", "W 3-0"},
		},
	}

	m, warnings, err := Build(schedules)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, []string{"A", "B", "C", "D"}, m.Teams())
	assert.Equal(t, 4, m.Len())

	tests := []struct {
		team, opponent string
		expected       float64
	}{
		{"A", "B", 1},
		{"A", "C", 0.5},
		{"A", "D", 0},
		{"B", "A", 0},
		{"B", "C", 1},
		{"C", "A", 0},
		{"D", "A", 1},
		{"X", "A", 0},
	}
	for _, test := range tests {
		t.Run(test.team+" over "+test.opponent, func(t *testing.T) {
			assert.Equal(t, test.expected, m.Credit(test.team, test.opponent))
		})
	}

	for i := 0; i < m.Len(); i++ {
		assert.Zero(t, m.At(i, i), "diagonal of %s", m.Team(i))
	}
	assert.Equal(t, 1.5, m.RowSum(0))
	assert.Equal(t, 1.5, m.ColSum(2))
}

func TestBuildAccumulatesRepeatedGames(t *testing.T) {
	m, _, err := Build([][]GameRecord{{
		{"A", "B", "W"},
		{"A", "B", "W"},
		{"A", "B", "T"},
	}})
	require.NoError(t, err)
	assert.Equal(t, 2.5, m.Credit("A", "B"))
	assert.Zero(t, m.Credit("B", "A"))
}

func TestBuildKeepsLossOneSided(t *testing.T) {
	// B's schedule was never collected, so its win over A is lost
	m, warnings, err := Build([][]GameRecord{{{"A", "B", "L"}}})
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, []string{"A", "B"}, m.Teams())
	assert.Zero(t, m.Credit("B", "A"))
	assert.Zero(t, m.Credit("A", "B"))
}

func TestBuildSkipsMalformedRecords(t *testing.T) {
	var schedules [][]GameRecord
	require.NoError(t, json.Unmarshal([]byte(`[[["A","B","W"],["A","B"]]]`), &schedules))

	m, warnings, err := Build(schedules)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Equal(t, WarnMalformedRecord, warnings[0].Kind)
	assert.Equal(t, 0, warnings[0].Schedule)
	assert.Equal(t, 1, warnings[0].Game)
	assert.Equal(t, "missing result", warnings[0].Reason)

	assert.Equal(t, []string{"A", "B"}, m.Teams())
	assert.Equal(t, 1.0, m.Credit("A", "B"))
	assert.Zero(t, m.Credit("B", "A"))
}

func TestBuildMalformedReasons(t *testing.T) {
	tests := []struct {
		name   string
		record GameRecord
		reason string
		teams  []string
	}{
		{"missing team", GameRecord{"", "B", "W"}, "missing team", []string{"C", "D"}},
		{"missing opponent", GameRecord{"A", " ", "W"}, "missing opponent", []string{"C", "D"}},
		{"missing result", GameRecord{"A", "B", ""}, "missing result", []string{"C", "D", "A", "B"}},
		{"plays itself", GameRecord{"A", "A", "W"}, "team plays itself", []string{"C", "D", "A"}},
		{"unknown code", GameRecord{"A", "B", "OTL"}, "unrecognized result OTL", []string{"C", "D", "A", "B"}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			m, warnings, err := Build([][]GameRecord{{{"C", "D", "W"}, test.record}})
			require.NoError(t, err)
			require.Len(t, warnings, 1)
			assert.Equal(t, test.reason, warnings[0].Reason)
			assert.Equal(t, test.teams, m.Teams())
			assert.Equal(t, 1.0, m.RowSum(0))
			for i := 0; i < m.Len(); i++ {
				if m.Team(i) != "C" {
					assert.Zero(t, m.RowSum(i), "credit of %s", m.Team(i))
				}
			}
		})
	}
}

func TestBuildRatesTeamsOfUnusableResults(t *testing.T) {
	m, warnings, err := Build([][]GameRecord{{{"A", "B", "W"}, {"A", "D", "OTL"}}})
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Equal(t, []string{"A", "B", "D"}, m.Teams())
	assert.Zero(t, m.Credit("A", "D"))

	m, warnings, err = Build([][]GameRecord{{{"C", "D", "X"}}})
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Equal(t, []string{"C", "D"}, m.Teams())
	assert.Zero(t, m.RowSum(0))
	assert.Zero(t, m.RowSum(1))

	r, err := Solve(m, DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0}, r.Values())
}

func TestBuildEmptyInput(t *testing.T) {
	tests := []struct {
		name      string
		schedules [][]GameRecord
	}{
		{"nil", nil},
		{"no schedules", [][]GameRecord{}},
		{"only empty schedules", [][]GameRecord{{}, {}, nil}},
		{"only malformed records", [][]GameRecord{{{"A", "", "W"}}}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			m, _, err := Build(test.schedules)
			assert.ErrorIs(t, err, ErrEmptyInput)
			assert.Nil(t, m)
		})
	}
}

func TestGameRecordJSON(t *testing.T) {
	in := `[[["A","B","W 2-1"],["A","C","T"]],[]]`

	var schedules [][]GameRecord
	require.NoError(t, json.Unmarshal([]byte(in), &schedules))
	require.Len(t, schedules, 2)
	assert.Equal(t, GameRecord{"A", "C", "T"}, schedules[0][1])
	assert.Empty(t, schedules[1])

	out, err := json.Marshal(schedules)
	require.NoError(t, err)
	assert.JSONEq(t, in, string(out))
}

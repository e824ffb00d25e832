// internal/league/logic.go
package league

import (
	"fmt"
	"io"
	"math"
	"math/rand"
	"sort"
	"strings"
)

// Fixture pairs two teams for one game.
type Fixture struct {
	Home, Away string
}

// RoundRobin returns a single round-robin schedule for the provided teams:
// every team meets every other team once. With an odd number of teams one
// team sits out each round.
func RoundRobin(teams []string) [][]Fixture {
	slots := make([]string, len(teams))
	copy(slots, teams)
	// "" is the bye placeholder
	if len(slots)%2 != 0 {
		slots = append(slots, "")
	}
	n := len(slots)
	if n < 2 {
		return nil
	}

	rounds := make([][]Fixture, n-1)
	for i := 0; i < n-1; i++ {
		round := make([]Fixture, 0, n/2)
		for j := 0; j < n/2; j++ {
			home := slots[j]
			away := slots[n-1-j]
			if home != "" && away != "" {
				round = append(round, Fixture{Home: home, Away: away})
			}
		}
		rounds[i] = round

		// Rotate everyone except the first slot
		last := slots[n-1]
		copy(slots[2:], slots[1:n-1])
		slots[1] = last
	}
	return rounds
}

// Simulate plays seasons round-robins between the teams of strengths and
// returns one schedule per team, in the order of teams, the way a scraper
// would collect them from each team's page. Goals are drawn from Poisson
// distributions whose means split six goals by strength share.
func Simulate(teams []string, strengths map[string]float64, seasons int, rng *rand.Rand) [][]GameRecord {
	byTeam := make(map[string][]GameRecord, len(teams))
	for s := 0; s < seasons; s++ {
		for _, round := range RoundRobin(teams) {
			for _, f := range round {
				// swap home ice every other season
				if s%2 == 1 {
					f.Home, f.Away = f.Away, f.Home
				}
				hg, ag := simulateGame(strengths[f.Home], strengths[f.Away], rng)
				byTeam[f.Home] = append(byTeam[f.Home], GameRecord{Team: f.Home, Opponent: f.Away, Result: resultCode(hg, ag)})
				byTeam[f.Away] = append(byTeam[f.Away], GameRecord{Team: f.Away, Opponent: f.Home, Result: resultCode(ag, hg)})
			}
		}
	}

	schedules := make([][]GameRecord, 0, len(teams))
	for _, t := range teams {
		schedules = append(schedules, byTeam[t])
	}
	return schedules
}

func simulateGame(home, away float64, rng *rand.Rand) (homeGoals, awayGoals int) {
	total := home + away
	if total <= 0 {
		home, away, total = 1, 1, 2
	}
	homeGoals = samplePoisson(home/total*6.0, rng)
	awayGoals = samplePoisson(away/total*6.0, rng)
	return
}

func resultCode(goalsFor, goalsAgainst int) string {
	switch {
	case goalsFor > goalsAgainst:
		return fmt.Sprintf("W %d-%d", goalsFor, goalsAgainst)
	case goalsFor < goalsAgainst:
		return fmt.Sprintf("L %d-%d", goalsFor, goalsAgainst)
	default:
		return fmt.Sprintf("T %d-%d", goalsFor, goalsAgainst)
	}
}

// samplePoisson generates a random sample from a Poisson distribution with mean lambda
func samplePoisson(lambda float64, rng *rand.Rand) int {
	L := math.Exp(-lambda)
	p := 1.0
	k := 0
	for p > L {
		k++
		p *= rng.Float64()
	}
	return k - 1
}

// Records tallies wins, losses and ties per team from each team's own
// schedule entries. Malformed records are ignored. Teams are sorted by wins,
// then fewer losses, then name.
func Records(schedules [][]GameRecord) []Record {
	byTeam := make(map[string]*Record)
	for _, schedule := range schedules {
		for _, g := range schedule {
			if _, reason := validate(g); reason != "" {
				continue
			}
			team := strings.TrimSpace(g.Team)
			rec, ok := byTeam[team]
			if !ok {
				rec = &Record{Team: team}
				byTeam[team] = rec
			}
			rec.Played++
			switch leading(g.Result) {
			case 'W':
				rec.Wins++
			case 'L':
				rec.Losses++
			case 'T':
				rec.Ties++
			}
		}
	}

	records := make([]Record, 0, len(byTeam))
	for _, r := range byTeam {
		records = append(records, *r)
	}
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Wins != b.Wins {
			return a.Wins > b.Wins
		}
		if a.Losses != b.Losses {
			return a.Losses < b.Losses
		}
		return a.Team < b.Team
	})
	return records
}

// PrintRankings writes the ranking as a fixed width table. records may be nil;
// teams without a record show dashes.
func PrintRankings(w io.Writer, label string, standings []Standing, records []Record) {
	byTeam := make(map[string]Record, len(records))
	for _, r := range records {
		byTeam[r.Team] = r
	}

	fmt.Fprintln(w, label)
	fmt.Fprintln(w, "============================================================================")
	fmt.Fprintf(w, "%-4s %-40s %-16s %3s %3s %3s\n", "Rank", "Team", "Rating", "W", "L", "T")
	fmt.Fprintln(w, "----------------------------------------------------------------------------")
	for _, s := range standings {
		rec, ok := byTeam[s.Team]
		if !ok {
			fmt.Fprintf(w, "%-4d %-40s %-16.2f %3s %3s %3s\n", s.Rank, s.Team, s.Rating, "-", "-", "-")
			continue
		}
		fmt.Fprintf(w, "%-4d %-40s %-16.2f %3d %3d %3d\n", s.Rank, s.Team, s.Rating, rec.Wins, rec.Losses, rec.Ties)
	}
}

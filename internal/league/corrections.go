package league

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Correction patches the raw schedules before they reach Build, for games
// that are missing or wrong on the source site.
type Correction struct {
	// Division limits the correction to one division; empty applies everywhere.
	Division string `yaml:"division,omitempty"`
	Action   string `yaml:"action"`
	Team     string `yaml:"team"`
	Opponent string `yaml:"opponent"`
	Result   string `yaml:"result"`
	Note     string `yaml:"note,omitempty"`
}

const (
	CorrectionAdd    = "add"
	CorrectionRemove = "remove"
)

type correctionFile struct {
	Corrections []Correction `yaml:"corrections"`
}

// ParseCorrections decodes a YAML corrections document.
func ParseCorrections(data []byte) ([]Correction, error) {
	var f correctionFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decoding corrections: %w", err)
	}
	for i, c := range f.Corrections {
		action := strings.ToLower(strings.TrimSpace(c.Action))
		if action != CorrectionAdd && action != CorrectionRemove {
			return nil, fmt.Errorf("correction %d: unknown action %q", i, c.Action)
		}
		if strings.TrimSpace(c.Team) == "" || strings.TrimSpace(c.Opponent) == "" {
			return nil, fmt.Errorf("correction %d: team and opponent are required", i)
		}
		if action == CorrectionAdd && strings.TrimSpace(c.Result) == "" {
			return nil, fmt.Errorf("correction %d: result is required to add a game", i)
		}
		f.Corrections[i].Action = action
	}
	return f.Corrections, nil
}

// LoadCorrections reads a corrections file. A missing file means no corrections.
func LoadCorrections(path string) ([]Correction, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading corrections %s: %w", path, err)
	}
	return ParseCorrections(data)
}

// ApplyCorrections returns a patched copy of schedules; the input is left
// untouched. Added games go to the schedule that belongs to the correction's
// team, or to a new schedule if that team has none. A removal deletes the
// first record matching team, opponent and (when given) result. Corrections
// that match nothing are returned so the caller can report them.
func ApplyCorrections(schedules [][]GameRecord, corrections []Correction) ([][]GameRecord, []Correction) {
	out := make([][]GameRecord, len(schedules))
	for i, s := range schedules {
		out[i] = append([]GameRecord(nil), s...)
	}

	var unmatched []Correction
	for _, c := range corrections {
		rec := GameRecord{Team: c.Team, Opponent: c.Opponent, Result: c.Result}
		switch c.Action {
		case CorrectionAdd:
			if i := ownerOf(out, c.Team); i >= 0 {
				out[i] = append(out[i], rec)
			} else {
				out = append(out, []GameRecord{rec})
			}
		case CorrectionRemove:
			if !removeFirst(out, rec) {
				unmatched = append(unmatched, c)
			}
		default:
			unmatched = append(unmatched, c)
		}
	}
	return out, unmatched
}

// CorrectionsFor returns the corrections that apply to division.
func CorrectionsFor(corrections []Correction, division string) []Correction {
	var out []Correction
	for _, c := range corrections {
		if c.Division == "" || c.Division == division {
			out = append(out, c)
		}
	}
	return out
}

func ownerOf(schedules [][]GameRecord, team string) int {
	for i, s := range schedules {
		if len(s) > 0 && strings.EqualFold(strings.TrimSpace(s[0].Team), strings.TrimSpace(team)) {
			return i
		}
	}
	return -1
}

func removeFirst(schedules [][]GameRecord, rec GameRecord) bool {
	for i, s := range schedules {
		for j, g := range s {
			if !strings.EqualFold(strings.TrimSpace(g.Team), strings.TrimSpace(rec.Team)) ||
				!strings.EqualFold(strings.TrimSpace(g.Opponent), strings.TrimSpace(rec.Opponent)) {
				continue
			}
			if rec.Result != "" && leading(g.Result) != leading(rec.Result) {
				continue
			}
			schedules[i] = append(s[:j:j], s[j+1:]...)
			return true
		}
	}
	return false
}

// Package store persists schedules as JSON: match period number to arena to
// corners, with null for an empty corner.
package store

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"github.com/derekprior/leaguesched/internal/schedule"
)

type document map[int]map[string][]*string

// Encode renders out as indented JSON.
func Encode(out schedule.Output) ([]byte, error) {
	doc := make(document, len(out))
	for period, arenas := range out {
		games := make(map[string][]*string, len(arenas))
		for arena, corners := range arenas {
			slots := make([]*string, len(corners))
			for i, team := range corners {
				if team == schedule.NoEntrant {
					continue
				}
				slots[i] = &team
			}
			games[arena] = slots
		}
		doc[period] = games
	}
	return json.MarshalIndent(doc, "", "  ")
}

// Decode parses JSON written by Encode. null corners become NoEntrant.
func Decode(data []byte) (schedule.Output, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing schedule: %w", err)
	}
	out := make(schedule.Output, len(doc))
	for period, arenas := range doc {
		if period < 0 {
			return nil, fmt.Errorf("invalid match period %d", period)
		}
		games := make(map[string][]string, len(arenas))
		for arena, slots := range arenas {
			corners := make([]string, len(slots))
			for i, s := range slots {
				if s != nil {
					corners[i] = *s
				}
			}
			games[arena] = corners
		}
		out[period] = games
	}
	return out, nil
}

// Save writes out to path.
func Save(path string, out schedule.Output) error {
	data, err := Encode(out)
	if err != nil {
		return fmt.Errorf("encoding schedule: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing schedule: %w", err)
	}
	return nil
}

// Load reads a schedule written by Save.
func Load(path string) (schedule.Output, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schedule: %w", err)
	}
	return Decode(data)
}

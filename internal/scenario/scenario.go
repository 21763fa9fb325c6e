// Package scenario loads simulation scenario files for the cotext CLI.
// Scenarios describe a randomized multi-replica editing workload and may
// be written in TOML or YAML.
package scenario

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ErrUnsupportedFormat is returned for scenario files whose extension is
// neither TOML nor YAML.
var ErrUnsupportedFormat = errors.New("scenario: unsupported file format")

// Scenario describes one simulation run.
type Scenario struct {
	// Name labels the run in the report.
	Name string `toml:"name" yaml:"name"`

	// Seed drives all randomness; equal seeds reproduce equal runs.
	Seed int64 `toml:"seed" yaml:"seed"`

	// InitialText is the document every replica starts from.
	InitialText string `toml:"initial_text" yaml:"initial_text"`

	// Replicas is the number of simulated peers (at least 2).
	Replicas int `toml:"replicas" yaml:"replicas"`

	// Rounds is the number of edit-then-exchange cycles.
	Rounds int `toml:"rounds" yaml:"rounds"`

	// EditsPerRound is the number of random edits each replica makes
	// per round before operations are exchanged.
	EditsPerRound int `toml:"edits_per_round" yaml:"edits_per_round"`

	// UndosPerRound is the number of random undo/redo toggles each
	// replica attempts per round.
	UndosPerRound int `toml:"undos_per_round" yaml:"undos_per_round"`
}

// Load reads and validates a scenario file, choosing the parser from
// the file extension.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario %s: %w", path, err)
	}

	var s Scenario
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if err := toml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("parsing scenario %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("parsing scenario %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}

	s.applyDefaults()
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return &s, nil
}

func (s *Scenario) applyDefaults() {
	if s.Name == "" {
		s.Name = "unnamed"
	}
	if s.Replicas == 0 {
		s.Replicas = 3
	}
	if s.Rounds == 0 {
		s.Rounds = 10
	}
	if s.EditsPerRound == 0 {
		s.EditsPerRound = 5
	}
	if s.InitialText == "" {
		s.InitialText = "the quick brown fox\njumps over the lazy dog\n"
	}
}

func (s *Scenario) validate() error {
	if s.Replicas < 2 {
		return fmt.Errorf("replicas must be at least 2, got %d", s.Replicas)
	}
	if s.Rounds < 1 {
		return fmt.Errorf("rounds must be at least 1, got %d", s.Rounds)
	}
	if s.EditsPerRound < 0 || s.UndosPerRound < 0 {
		return errors.New("per-round counts must not be negative")
	}
	return nil
}

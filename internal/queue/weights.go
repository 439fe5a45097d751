package queue

import (
	"fmt"
	"os"

	"wyckoff/internal/signal"

	"gopkg.in/yaml.v3"
)

// WeightTable maps pattern classifications to their fixed tie-break weight.
// Rarer, higher-value patterns score higher; unknown patterns score zero.
type WeightTable struct {
	weights map[signal.PatternType]float64
}

func DefaultWeights() *WeightTable {
	return &WeightTable{weights: map[signal.PatternType]float64{
		signal.PatternSpring: 100,
		signal.PatternLPS:    70,
		signal.PatternSOS:    60,
		signal.PatternUTAD:   40,
	}}
}

// LoadWeights reads a pattern->weight map from a YAML file, falling back to
// the defaults for any pattern the file does not mention.
func LoadWeights(path string) (*WeightTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading weight table failed: %w", err)
	}
	var parsed map[string]float64
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parsing weight table failed: %w", err)
	}
	table := DefaultWeights()
	for k, v := range parsed {
		if v < 0 {
			return nil, fmt.Errorf("pattern %s has negative weight %v", k, v)
		}
		table.weights[signal.ParsePattern(k)] = v
	}
	return table, nil
}

func (t *WeightTable) Weight(p signal.PatternType) float64 {
	if t == nil {
		return 0
	}
	return t.weights[p]
}

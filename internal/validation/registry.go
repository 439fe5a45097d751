package validation

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Registry resolves stage validators by name. Stages are registered
// explicitly; there is no runtime type inspection.
type Registry struct {
	stages map[string]StageValidator
}

func NewRegistry() *Registry {
	return &Registry{stages: make(map[string]StageValidator)}
}

// Register adds a validator, replacing any prior registration of the name.
func (r *Registry) Register(v StageValidator) {
	if v == nil {
		return
	}
	r.stages[v.Name()] = v
}

func (r *Registry) Get(name string) (StageValidator, bool) {
	v, ok := r.stages[name]
	return v, ok
}

// RegisterCoreStages installs the built-in validators with their defaults.
func (r *Registry) RegisterCoreStages() {
	r.Register(&ConfidenceFloor{Min: 60})
	r.Register(&RewardRiskMinimum{Min: 2.0})
	r.Register(&PriceLevelCoherence{})
	r.Register(&VolumeConfirmation{MinRatio: 1.2})
	r.Register(&PhaseAlignment{})
}

type chainFile struct {
	Stages []string `yaml:"stages"`
}

// OrchestratorFromFile builds an orchestrator from a YAML stage list,
// resolving each name through the registry. Unknown names are an error so a
// typo cannot silently drop a check.
func (r *Registry) OrchestratorFromFile(path string) (*Orchestrator, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading chain config failed: %w", err)
	}
	var cf chainFile
	if err := yaml.Unmarshal(raw, &cf); err != nil {
		return nil, fmt.Errorf("parsing chain config failed: %w", err)
	}
	return r.OrchestratorFor(cf.Stages)
}

// OrchestratorFor resolves an ordered stage-name list into an orchestrator.
func (r *Registry) OrchestratorFor(names []string) (*Orchestrator, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("validation chain needs at least one stage")
	}
	stages := make([]StageValidator, 0, len(names))
	for _, name := range names {
		v, ok := r.Get(name)
		if !ok {
			return nil, fmt.Errorf("unknown validation stage: %s", name)
		}
		stages = append(stages, v)
	}
	return NewOrchestrator(stages...), nil
}

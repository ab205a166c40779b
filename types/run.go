package types

import "time"

// RunConfig describes the run to open against a tracking service.
// It is a free-form payload from the binder's point of view: providers read
// the fields they understand and ignore the rest.
type RunConfig struct {
	// Project is the tracking project (wandb project / mlflow experiment).
	Project string `json:"project" yaml:"project"`
	// Entity is the owning team or user, for services that scope projects.
	Entity string `json:"entity,omitempty" yaml:"entity,omitempty"`
	// Name is the human-readable run name. Empty lets the service pick one.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
	// Group collects related runs (e.g. all workers of one sweep).
	Group string `json:"group,omitempty" yaml:"group,omitempty"`
	// Tags are free-form labels attached to the run.
	Tags []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	// Notes is a free-form description.
	Notes string `json:"notes,omitempty" yaml:"notes,omitempty"`
	// Hyperparams is the flattened hyperparameter payload logged at open time.
	Hyperparams map[string]any `json:"hyperparams,omitempty" yaml:"hyperparams,omitempty"`
}

// Validate checks that the config identifies a project.
func (c *RunConfig) Validate() error {
	if c.Project == "" {
		return NewError(ErrInvalidConfig, "run config requires a project")
	}
	return nil
}

// Metrics is a set of scalar metrics logged at a single step.
type Metrics map[string]float64

// MetricPoint is the metrics of one step together with its wall-clock time.
// Sinks that persist history (the JSONL mirror) write one of these per line.
type MetricPoint struct {
	Step      int64     `json:"step"`
	Timestamp time.Time `json:"timestamp"`
	Metrics   Metrics   `json:"metrics"`
}

// Package config defines the orchestrator tunables ("Configuration
// defaults") as a plain struct with a defaults normalizer, plus an optional
// YAML loader for hosts that prefer a config file over constructing the
// struct in code.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// OrchestratorConfig holds the tunables shared by the adaptive loop and
// sequential plan orchestrators. A zero-valued field means "use the
// default"; call WithDefaults to resolve zero values before use.
type OrchestratorConfig struct {
	// MaxTurns bounds AdaptiveLoopState.TurnCount. Default 15.
	MaxTurns int `yaml:"maxTurns"`
	// StallThreshold is the consecutive-stall count that triggers a replan.
	// Default 3.
	StallThreshold int `yaml:"stallThreshold"`
	// MaxReplans bounds AdaptiveLoopState.ReplanCount. Default 2.
	MaxReplans int `yaml:"maxReplans"`
	// DefaultStepTimeout is a per-step deadline setting. Default 60s. The
	// orchestrators do not read it: the activity requests they issue carry
	// no timeout, so the engine's own activity timeout applies.
	DefaultStepTimeout time.Duration `yaml:"defaultStepTimeout"`
	// DefaultStepRetries is a per-step retry budget setting. Default 1. The
	// orchestrators do not read it: the activity requests they issue carry
	// no retry policy, so the engine's own retry policy applies.
	DefaultStepRetries int `yaml:"defaultStepRetries"`
	// MaxSteps bounds the sequential plan's remainingSteps length. Default 50.
	MaxSteps int `yaml:"maxSteps"`
}

// WithDefaults returns a copy of c with every zero-valued field replaced by
// its documented default. This mirrors the "zero means engine default"
// pattern the durable workflow substrate's own ActivityOptions/RetryPolicy
// types use.
func (c OrchestratorConfig) WithDefaults() OrchestratorConfig {
	out := c
	if out.MaxTurns == 0 {
		out.MaxTurns = 15
	}
	if out.StallThreshold == 0 {
		out.StallThreshold = 3
	}
	if out.MaxReplans == 0 {
		out.MaxReplans = 2
	}
	if out.DefaultStepTimeout == 0 {
		out.DefaultStepTimeout = 60 * time.Second
	}
	if out.DefaultStepRetries == 0 {
		out.DefaultStepRetries = 1
	}
	if out.MaxSteps == 0 {
		out.MaxSteps = 50
	}
	return out
}

// LoadOrchestratorConfig reads a YAML file at path into an OrchestratorConfig
// and applies WithDefaults to the result. Any field absent from the file
// keeps its spec default.
func LoadOrchestratorConfig(path string) (OrchestratorConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return OrchestratorConfig{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	var c OrchestratorConfig
	if err := yaml.Unmarshal(data, &c); err != nil {
		return OrchestratorConfig{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return c.WithDefaults(), nil
}

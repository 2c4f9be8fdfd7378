package manifest

import (
	"gopkg.in/yaml.v3"
)

// Manifest represents the full desired-state document.
type Manifest struct {
	Version      string        `yaml:"version" validate:"required"`
	Name         string        `yaml:"name,omitempty" validate:"omitempty,max=100"`
	Settings     Settings      `yaml:"settings,omitempty"`
	Integrations []Integration `yaml:"integrations" validate:"required,min=1,dive"`
}

// Settings holds global reconciliation parameters.
type Settings struct {
	Concurrency int    `yaml:"concurrency,omitempty" validate:"omitempty,min=1,max=64"`
	StatePath   string `yaml:"state_path,omitempty"`
	Endpoint    string `yaml:"endpoint,omitempty" validate:"omitempty,url"`
}

// Integration declares one connector instance the operator wants active.
type Integration struct {
	// Platform identifies the connector type handled by the stepper.
	Platform string `yaml:"platform" validate:"required,min=1"`
	// ID is the stable configuration identifier chosen by the operator.
	ID string `yaml:"id" validate:"required,config_id"`
	// Answers is the ordered input for the multi-step setup protocol,
	// one mapping per step. Step order is significant.
	Answers []map[string]any `yaml:"answers" validate:"required,min=1"`
	// Options are post-setup settings patched after creation. Ordering
	// semantics are connector-defined; the engine treats the sequence as
	// an opaque value when diffing.
	Options []map[string]any `yaml:"options,omitempty"`
	// RecreateOnOptionsChange forces delete-then-create instead of an
	// options patch when only the options changed.
	RecreateOnOptionsChange bool `yaml:"recreate_on_options_change,omitempty"`
}

// UnmarshalYAML decodes an integration and normalizes absent sequences so
// fingerprinting sees the same shape regardless of how the YAML was written.
func (i *Integration) UnmarshalYAML(value *yaml.Node) error {
	type rawIntegration Integration
	var temp rawIntegration
	if err := value.Decode(&temp); err != nil {
		return err
	}
	*i = Integration(temp)
	if i.Options == nil {
		i.Options = []map[string]any{}
	}
	return nil
}

// IntegrationMap builds a lookup table for integrations by ID.
func IntegrationMap(items []Integration) map[string]Integration {
	out := make(map[string]Integration, len(items))
	for _, item := range items {
		out[item.ID] = item
	}
	return out
}

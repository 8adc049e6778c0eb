// Package plan loads fs-update plan files: YAML documents listing file
// mutations to stage against a project root. Plans are the bulk-import
// producer for the transaction interop surface; code generators and
// migration tooling emit them, `stagefs plan` consumes them.
package plan

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/stagefs/stagefs/pkg/txn"
)

// Plan is one plan document.
//
// Example:
//
//	version: 1
//	updates:
//	  - path: package.json
//	    kind: modify
//	    content: |
//	      {"dependencies": {"left-pad": "1.3.0"}}
//	  - path: legacy.config.js
//	    kind: delete
type Plan struct {
	// Version is the plan schema version. Only version 1 exists.
	Version int `yaml:"version" validate:"omitempty,eq=1"`

	// Updates are applied in order.
	Updates []Update `yaml:"updates" validate:"required,min=1,dive"`
}

// Update is a single file mutation in a plan.
type Update struct {
	// Path is relative to the project root.
	Path string `yaml:"path" validate:"required"`

	// Kind is one of create, modify, delete, append, prepend.
	Kind string `yaml:"kind" validate:"required,oneof=create modify delete append prepend"`

	// Content is the payload. Must be empty for delete.
	Content string `yaml:"content" validate:"excluded_if=Kind delete"`
}

// Load reads and parses a plan file.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file %q: %w", path, err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("invalid plan file %q: %w", path, err)
	}
	return p, nil
}

// Parse parses and validates a YAML plan document.
func Parse(data []byte) (*Plan, error) {
	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse plan YAML: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(&p); err != nil {
		return nil, fmt.Errorf("plan validation failed: %w", err)
	}

	return &p, nil
}

// FsUpdates converts the plan into the transaction bulk-import shape,
// preserving order.
func (p *Plan) FsUpdates() []txn.FsUpdate {
	updates := make([]txn.FsUpdate, 0, len(p.Updates))
	for _, u := range p.Updates {
		updates = append(updates, txn.FsUpdate{
			Path:    u.Path,
			Content: []byte(u.Content),
			Kind:    txn.OperationKind(u.Kind),
		})
	}
	return updates
}

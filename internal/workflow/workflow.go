// Package workflow executes multi-step declarative scripts against aliased
// backing stores, reusing one connection per alias and giving each backend
// its own transaction when the workflow is transactional.
package workflow

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Step ops.
const (
	OpExec  = "exec"
	OpQuery = "query"
)

// Workflow is one declarative script: an ordered list of steps, optionally
// wrapped in per-backend transactions.
type Workflow struct {
	Name          string `yaml:"name"`
	Description   string `yaml:"description,omitempty"`
	Transactional bool   `yaml:"transactional"`
	Steps         []Step `yaml:"steps"`
}

// Step is one statement against one aliased backing store. String args of
// the form "${...}" are JavaScript expressions evaluated against earlier
// step results.
type Step struct {
	ID    string `yaml:"id"`
	Alias string `yaml:"alias"`
	Op    string `yaml:"op"`
	Stmt  string `yaml:"stmt"`
	Args  []any  `yaml:"args,omitempty"`
}

// LoadFile reads, parses, and validates a workflow file.
func LoadFile(path string) (*Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflow file: %w", err)
	}
	return Parse(data)
}

// Parse parses and validates workflow YAML.
func Parse(data []byte) (*Workflow, error) {
	var wf Workflow
	if err := yaml.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("parse workflow yaml: %w", err)
	}
	if err := wf.validate(); err != nil {
		return nil, err
	}
	return &wf, nil
}

func (wf *Workflow) validate() error {
	var errs []string

	if wf.Name == "" {
		errs = append(errs, "name is required")
	}
	if len(wf.Steps) == 0 {
		errs = append(errs, "at least one step is required")
	}

	ids := make(map[string]bool, len(wf.Steps))
	for i := range wf.Steps {
		step := &wf.Steps[i]
		if step.ID == "" {
			step.ID = fmt.Sprintf("step%d", i+1)
		}
		if ids[step.ID] {
			errs = append(errs, fmt.Sprintf("steps[%d]: duplicate id %q", i, step.ID))
		}
		ids[step.ID] = true
		if step.Alias == "" {
			errs = append(errs, fmt.Sprintf("steps[%d]: alias is required", i))
		}
		if step.Op != OpExec && step.Op != OpQuery {
			errs = append(errs, fmt.Sprintf("steps[%d]: invalid op %q (must be exec or query)", i, step.Op))
		}
		if step.Stmt == "" {
			errs = append(errs, fmt.Sprintf("steps[%d]: stmt is required", i))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("workflow validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Aliases returns the distinct aliases the workflow touches, in first-use
// order.
func (wf *Workflow) Aliases() []string {
	seen := make(map[string]bool, len(wf.Steps))
	var out []string
	for _, step := range wf.Steps {
		if !seen[step.Alias] {
			seen[step.Alias] = true
			out = append(out, step.Alias)
		}
	}
	return out
}

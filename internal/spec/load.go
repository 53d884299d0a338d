package spec

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
)

// Load reads and parses a pipeline spec from the given YAML file path, applies
// defaults and validates the result.
func Load(path string) (*Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pipeline spec: %w", err)
	}
	return Parse(data)
}

// Parse parses raw pipeline YAML, applies defaults and validates.
func Parse(data []byte) (*Pipeline, error) {
	p := new(Pipeline)
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parsing pipeline yaml: %w", err)
	}
	applyDefaults(p)
	if err := Validate(p); err != nil {
		return nil, err
	}
	return p, nil
}

// LoadDir loads every *.yml / *.yaml pipeline spec in dir.
func LoadDir(dir string) ([]*Pipeline, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading pipelines dir: %w", err)
	}

	pipelines := make([]*Pipeline, 0)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yml" && ext != ".yaml" {
			continue
		}
		p, err := Load(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", entry.Name(), err)
		}
		pipelines = append(pipelines, p)
	}
	return pipelines, nil
}

func applyDefaults(p *Pipeline) {
	if p.Env == nil {
		p.Env = make(map[string]string)
	}
	for i := range p.Stages {
		stage := &p.Stages[i]
		for j := range stage.Steps {
			step := &stage.Steps[j]
			if step.Policy == "" {
				step.Policy = FailFast
			}
			if step.Step == "" {
				step.Step = firstWord(step.Script)
			}
		}
	}
}

func firstWord(script string) string {
	fields := strings.Fields(script)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

package spec

import "time"

type FailurePolicy string

const (
	FailFast        FailurePolicy = "fail-fast"
	ContinueOnError FailurePolicy = "continue-on-error"
)

type Step struct {
	Step           string            `yaml:"step"`
	Script         string            `yaml:"script"`
	Workdir        string            `yaml:"workdir"`
	Policy         FailurePolicy     `yaml:"policy"`
	TimeoutSeconds int64             `yaml:"timeout_seconds"`
	Env            map[string]string `yaml:"env"`
	Credentials    []string          `yaml:"credentials"`
}

func (s Step) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

type Artifact struct {
	Label string `yaml:"label"`
	Path  string `yaml:"path"`
}

type Stage struct {
	Stage     string            `yaml:"stage"`
	Steps     []Step            `yaml:"steps"`
	Env       map[string]string `yaml:"env"`
	Artifacts []Artifact        `yaml:"artifacts"`
}

type PostStep struct {
	Script string `yaml:"script"`
}

type PostActions struct {
	Always    []PostStep `yaml:"always"`
	OnFailure []PostStep `yaml:"on_failure"`
}

type Agent struct {
	Hostname   string `yaml:"hostname"`
	Credential string `yaml:"credential"`
	Workspace  string `yaml:"workspace"`
}

// Pipeline is one parsed pipeline spec file. Stages run strictly in
// declaration order; each stage may depend on files the previous one produced.
type Pipeline struct {
	Name         string            `yaml:"name"`
	DashboardURL string            `yaml:"dashboard_url"`
	Schedule     string            `yaml:"schedule"`
	Env          map[string]string `yaml:"env"`
	RequireEnv   []string          `yaml:"require_env"`
	Agent        *Agent            `yaml:"agent"`
	Stages       []Stage           `yaml:"stages"`
	Post         PostActions       `yaml:"post"`
}

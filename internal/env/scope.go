package env

import (
	"fmt"
	"sort"
)

// ConfigError reports a required key missing after resolution. It is fatal
// and raised before any stage runs.
type ConfigError struct {
	Key string
}

func (ce ConfigError) Error() string {
	return fmt.Sprintf("required environment key '%s' is not set", ce.Key)
}

// Scope is an immutable resolved environment visible to one step. Later
// layers override earlier ones key-for-key; unspecified keys are inherited
// unchanged.
type Scope struct {
	values map[string]string
}

// Resolve layers pipeline, stage and step overrides into one Scope. No key is
// ever dropped; a key absent from every layer simply resolves to "".
func Resolve(layers ...map[string]string) Scope {
	values := make(map[string]string)
	for _, layer := range layers {
		for k, v := range layer {
			values[k] = v
		}
	}
	return Scope{values: values}
}

// With returns a copy of the scope with extra overrides applied. The receiver
// is not mutated.
func (s Scope) With(overrides map[string]string) Scope {
	return Resolve(s.values, overrides)
}

// Get returns the value for key, or "" if the key was never set.
func (s Scope) Get(key string) string {
	return s.values[key]
}

func (s Scope) Len() int {
	return len(s.values)
}

// Require checks that every listed key resolved to a non-empty value.
func (s Scope) Require(keys []string) error {
	for _, key := range keys {
		if s.values[key] == "" {
			return ConfigError{Key: key}
		}
	}
	return nil
}

// Environ renders the scope as KEY=VALUE pairs in stable key order, suitable
// for exec.Cmd.Env.
func (s Scope) Environ() []string {
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	environ := make([]string, 0, len(keys))
	for _, k := range keys {
		environ = append(environ, k+"="+s.values[k])
	}
	return environ
}

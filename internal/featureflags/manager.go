// Package featureflags evaluates the FEATURE_FLAGS setting.
package featureflags

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"strings"
)

// Known flags.
const (
	// DeferredImageProcessing moves image optimisation onto the background worker.
	// Percentage rollouts are bucketed by post ID.
	DeferredImageProcessing = "deferred_image_processing"
)

// Manager evaluates flags defined as a comma-separated key=value list, e.g.
// "deferred_image_processing=25%,other_flag=on".
type Manager struct {
	flags map[string]string
}

// NewManager parses raw. Malformed pairs are skipped.
func NewManager(raw string) *Manager {
	out := make(map[string]string)

	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key, value = normalize(key), normalize(value)
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}

	return &Manager{flags: out}
}

// Enabled reports whether a flag is on for subject (a post ID for per-post flags,
// 0 for global decisions).
// Supported values: on/true/1, off/false/0 and N% (deterministic rollout by subject).
// A percentage below 100 is off for subject 0.
func (m *Manager) Enabled(name string, subject uint) bool {
	if m == nil {
		return false
	}

	value, ok := m.flags[normalize(name)]
	if !ok {
		return false
	}

	switch value {
	case "on", "true", "1":
		return true
	case "off", "false", "0":
		return false
	}

	pctRaw, isPct := strings.CutSuffix(value, "%")
	if !isPct {
		return false
	}
	pct, err := strconv.Atoi(pctRaw)
	switch {
	case err != nil, pct <= 0:
		return false
	case pct >= 100:
		return true
	case subject == 0:
		return false
	}
	return rolloutBucket(name, subject) < pct
}

// Names returns the configured flag names in sorted order.
func (m *Manager) Names() []string {
	if m == nil {
		return nil
	}
	names := make([]string, 0, len(m.flags))
	for k := range m.flags {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Raw returns a copy of configured flags.
func (m *Manager) Raw() map[string]string {
	if m == nil {
		return map[string]string{}
	}
	out := make(map[string]string, len(m.flags))
	for k, v := range m.flags {
		out[k] = v
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name string, subject uint) int {
	h := fnv.New32a()
	_, _ = fmt.Fprintf(h, "%s:%d", normalize(name), subject)
	return int(h.Sum32() % 100)
}

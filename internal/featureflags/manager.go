// Package featureflags evaluates per-user feature rollouts configured
// through FEATURE_FLAGS.
package featureflags

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"strings"

	"crowdfund/internal/rules"
)

// OwnerPledges lets project owners pledge to their own projects.
const OwnerPledges = "owner_pledges"

// rollout is a parsed flag value: everyone, no one, or a percentage of
// signed-in users.
type rollout struct {
	raw     string
	percent int
}

// Manager evaluates feature flags defined in a simple key=value list.
// Example: "owner_pledges=25%"
type Manager struct {
	flags   map[string]rollout
	invalid []string
}

// NewManager creates a feature-flag manager from a comma-separated config
// string. Entries that cannot be parsed are skipped and reported by Invalid.
func NewManager(raw string) *Manager {
	m := &Manager{flags: make(map[string]rollout)}

	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, ok := strings.Cut(pair, "=")
		key, value = normalize(key), normalize(value)
		if !ok || key == "" {
			m.invalid = append(m.invalid, pair)
			continue
		}
		r, err := parseRollout(value)
		if err != nil {
			m.invalid = append(m.invalid, pair)
			continue
		}
		m.flags[key] = r
	}

	return m
}

func parseRollout(value string) (rollout, error) {
	switch value {
	case "on", "true", "1":
		return rollout{raw: value, percent: 100}, nil
	case "off", "false", "0":
		return rollout{raw: value, percent: 0}, nil
	}
	pctRaw, ok := strings.CutSuffix(value, "%")
	if !ok {
		return rollout{}, fmt.Errorf("unknown flag value %q", value)
	}
	pct, err := strconv.Atoi(pctRaw)
	if err != nil {
		return rollout{}, fmt.Errorf("bad percentage %q", value)
	}
	return rollout{raw: value, percent: min(max(pct, 0), 100)}, nil
}

// Enabled returns whether a flag is enabled for a given user.
// Supported values:
// - on/true/1
// - off/false/0
// - N% (deterministic user rollout, e.g. 25%; never for anonymous callers)
func (m *Manager) Enabled(name string, userID uint) bool {
	if m == nil {
		return false
	}
	name = normalize(name)
	r, ok := m.flags[name]
	if !ok {
		return false
	}
	switch {
	case r.percent <= 0:
		return false
	case r.percent >= 100:
		return true
	case userID == 0:
		return false
	}
	return rolloutBucket(name, userID) < r.percent
}

// PledgePolicy returns base with the per-user overrides applied.
func (m *Manager) PledgePolicy(base rules.PledgePolicy, userID uint) rules.PledgePolicy {
	if m.Enabled(OwnerPledges, userID) {
		base.AllowOwnerPledges = true
	}
	return base
}

// Invalid lists the configured entries that were ignored, sorted.
func (m *Manager) Invalid() []string {
	if m == nil {
		return nil
	}
	out := append([]string(nil), m.invalid...)
	sort.Strings(out)
	return out
}

// Raw returns the configured value of every flag.
func (m *Manager) Raw() map[string]string {
	if m == nil {
		return map[string]string{}
	}
	out := make(map[string]string, len(m.flags))
	for k, r := range m.flags {
		out[k] = r.raw
	}
	return out
}

// Snapshot returns evaluated flag status for one user.
func (m *Manager) Snapshot(userID uint) map[string]bool {
	if m == nil {
		return map[string]bool{}
	}
	out := make(map[string]bool, len(m.flags))
	for name := range m.flags {
		out[name] = m.Enabled(name, userID)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name string, userID uint) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name + ":" + strconv.FormatUint(uint64(userID), 10)))
	return int(h.Sum32() % 100)
}

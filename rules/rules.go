// rules/rules.go
package rules

import (
	"fmt"
	"io/ioutil"
	"strings"

	"gopkg.in/yaml.v2"
)

// Rule holds the risk limits for one platform group. Rules are immutable
// once loaded; the cache replaces the whole set on reload.
type Rule struct {
	Group                     string  `yaml:"-"`
	MaxDrawdownPercent        float64 `yaml:"max_drawdown_percent"`
	DailyDrawdownPercent      float64 `yaml:"daily_drawdown_percent"`
	ProfitTargetPercent       float64 `yaml:"profit_target_percent"`
	ProfitTargetPhase1Percent float64 `yaml:"profit_target_phase1_percent"`
	ProfitTargetPhase2Percent float64 `yaml:"profit_target_phase2_percent"`
	ResetHourGMT              int     `yaml:"reset_hour_gmt"`
}

// LoadFile reads a yaml rules file keyed by group name.
func LoadFile(path string) (map[string]Rule, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	raw := make(map[string]Rule)
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rules yaml: %w", err)
	}

	out := make(map[string]Rule, len(raw))
	for group, r := range raw {
		if r.MaxDrawdownPercent <= 0 || r.DailyDrawdownPercent <= 0 {
			return nil, fmt.Errorf("rule for group %q: drawdown percentages must be positive", group)
		}
		r.Group = group
		out[group] = r
	}
	return out, nil
}

// IsFunded reports whether an account type denotes a funded account.
// Funded accounts get fixed override limits and no profit target.
func IsFunded(accountType string) bool {
	return strings.Contains(strings.ToLower(accountType), "funded")
}

// IsPhase2 reports whether an account type denotes the second evaluation phase.
func IsPhase2(accountType string) bool {
	t := strings.ToLower(accountType)
	return strings.Contains(t, "phase_2") || strings.Contains(t, "phase 2")
}

// ProfitTargetFor resolves the effective profit target percentage for an
// account. A rule-level profit_target_percent wins when set; otherwise the
// phase-specific value is chosen from the account type. Funded accounts
// never have a target.
func ProfitTargetFor(r Rule, accountType string) float64 {
	if IsFunded(accountType) {
		return 0
	}
	if r.ProfitTargetPercent > 0 {
		return r.ProfitTargetPercent
	}
	if IsPhase2(accountType) {
		return r.ProfitTargetPhase2Percent
	}
	return r.ProfitTargetPhase1Percent
}

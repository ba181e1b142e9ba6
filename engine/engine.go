// engine/engine.go
package engine

import (
	"sync"
	"time"

	"riskguard/logs"
	"riskguard/platform"
	"riskguard/rules"
	"riskguard/store"
	"riskguard/utils"
)

// Funded accounts always use these fixed limits, regardless of any
// configured rule; they also serve as the fallback when the configuration
// supplies no defaults.
const (
	FundedMaxDrawdownPercent   = 10.0
	FundedDailyDrawdownPercent = 5.0
)

// Equity at or below this level is treated as a feed glitch, not a blown
// account, and the snapshot is ignored for the cycle.
const glitchEquityFloor = 0.1

// VerdictKind classifies the outcome of one evaluation.
type VerdictKind string

const (
	VerdictSafe            VerdictKind = "safe"
	VerdictOverallDrawdown VerdictKind = "overall_drawdown"
	VerdictDailyDrawdown   VerdictKind = "daily_drawdown"
	VerdictPassed          VerdictKind = "passed"
)

// Breached reports whether the verdict requires enforcement.
func (k VerdictKind) Breached() bool {
	return k == VerdictOverallDrawdown || k == VerdictDailyDrawdown
}

// Verdict is the result of evaluating one account snapshot. Limit and
// Reference are set for drawdown breaches (the violated equity floor and
// the balance it was derived from); Target is set for a passed evaluation.
type Verdict struct {
	Kind      VerdictKind
	Limit     float64
	Reference float64
	Target    float64
}

// dailyAnchor pins the start-of-day equity for one login on one GMT date.
type dailyAnchor struct {
	date        string
	startEquity float64
}

// Evaluator applies drawdown and profit-target checks to account snapshots.
// It owns the in-memory daily anchors; anchors for past dates are replaced
// lazily the first time a login is evaluated on a new GMT day.
type Evaluator struct {
	mu      sync.Mutex
	anchors map[int64]dailyAnchor
	now     func() time.Time

	defaultMaxDD   float64
	defaultDailyDD float64
}

// NewEvaluator creates an evaluator with no anchors. The defaults apply to
// accounts whose group has no rule; non-positive values fall back to the
// funded limits.
func NewEvaluator(defaultMaxDD, defaultDailyDD float64) *Evaluator {
	if defaultMaxDD <= 0 {
		defaultMaxDD = FundedMaxDrawdownPercent
	}
	if defaultDailyDD <= 0 {
		defaultDailyDD = FundedDailyDrawdownPercent
	}
	return &Evaluator{
		anchors:        make(map[int64]dailyAnchor),
		now:            time.Now,
		defaultMaxDD:   defaultMaxDD,
		defaultDailyDD: defaultDailyDD,
	}
}

func (e *Evaluator) today() string {
	return e.now().UTC().Format("2006-01-02")
}

// Evaluate runs the full check sequence for one account. The overall
// drawdown check runs before the daily one, so an account violating both
// reports the overall breach. rule may be nil when no group rule resolves.
func (e *Evaluator) Evaluate(snap *platform.Account, meta store.AccountMetadata, rule *rules.Rule) Verdict {
	// Accounts without a provisioned initial balance cannot be judged.
	if meta.InitialBalance <= 0 {
		return Verdict{Kind: VerdictSafe}
	}

	// Near-zero equity from the bridge is a transient feed glitch. Skip the
	// cycle without touching the daily anchor.
	if snap.Equity <= glitchEquityFloor {
		logs.Debugf("[Engine] Login %d: equity %.2f below glitch floor, skipping cycle", snap.Login, snap.Equity)
		return Verdict{Kind: VerdictSafe}
	}

	maxDD, dailyDD, target := e.resolveLimits(meta, rule)

	// Overall drawdown against the initial balance.
	overallLimit := utils.DrawdownFloor(meta.InitialBalance, maxDD)
	if snap.Equity <= overallLimit {
		return Verdict{
			Kind:      VerdictOverallDrawdown,
			Limit:     overallLimit,
			Reference: meta.InitialBalance,
		}
	}

	// Daily drawdown against the start-of-day equity.
	startEquity := e.startOfDayEquity(snap, meta)
	dailyLimit := utils.DrawdownFloor(startEquity, dailyDD)
	if snap.Equity <= dailyLimit {
		return Verdict{
			Kind:      VerdictDailyDrawdown,
			Limit:     dailyLimit,
			Reference: startEquity,
		}
	}

	// Profit target, when one applies to this account phase.
	if target > 0 {
		targetEquity := utils.ProfitCeiling(meta.InitialBalance, target)
		if snap.Equity >= targetEquity {
			return Verdict{
				Kind:   VerdictPassed,
				Target: targetEquity,
			}
		}
	}

	return Verdict{Kind: VerdictSafe}
}

// resolveLimits picks the effective drawdown percentages and profit target.
// Funded accounts get fixed override limits with no target; otherwise the
// group rule applies, falling back to conservative defaults.
func (e *Evaluator) resolveLimits(meta store.AccountMetadata, rule *rules.Rule) (maxDD, dailyDD, target float64) {
	if rules.IsFunded(meta.Type) {
		return FundedMaxDrawdownPercent, FundedDailyDrawdownPercent, 0
	}
	if rule == nil {
		return e.defaultMaxDD, e.defaultDailyDD, 0
	}
	return rule.MaxDrawdownPercent, rule.DailyDrawdownPercent, rules.ProfitTargetFor(*rule, meta.Type)
}

// startOfDayEquity resolves the daily reference equity for a login, creating
// today's anchor on first sight. Source priority: existing anchor, metadata
// start-of-day value, metadata equity hint, initial balance.
func (e *Evaluator) startOfDayEquity(snap *platform.Account, meta store.AccountMetadata) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	today := e.today()
	if anchor, ok := e.anchors[snap.Login]; ok && anchor.date == today {
		return anchor.startEquity
	}

	start := meta.InitialBalance
	switch {
	case meta.StartOfDayEquity > 0:
		start = meta.StartOfDayEquity
	case meta.CurrentEquity > 0:
		start = meta.CurrentEquity
	}

	e.anchors[snap.Login] = dailyAnchor{date: today, startEquity: start}
	logs.Debugf("[Engine] Login %d: anchored start-of-day equity %.2f for %s", snap.Login, start, today)
	return start
}

// ResetAnchors seeds today's anchors from live equity. The daily reset job
// calls this at the GMT day boundary so the first evaluation of the new day
// does not fall back to stale metadata.
func (e *Evaluator) ResetAnchors(equities map[int64]float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	today := e.today()
	for login, equity := range equities {
		if equity <= glitchEquityFloor {
			continue
		}
		e.anchors[login] = dailyAnchor{date: today, startEquity: equity}
	}
	logs.Infof("[Engine] Daily reset: anchored %d accounts for %s", len(equities), today)
}

// AnchorCount reports the number of logins with an anchor.
func (e *Evaluator) AnchorCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.anchors)
}

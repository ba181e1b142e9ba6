package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riskguard/platform"
	"riskguard/rules"
	"riskguard/store"
)

func newTestEvaluator() *Evaluator {
	e := NewEvaluator(10, 5)
	e.now = func() time.Time {
		return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	}
	return e
}

func phase1Rule() *rules.Rule {
	return &rules.Rule{
		Group:                     "demo\\phase_1",
		MaxDrawdownPercent:        8,
		DailyDrawdownPercent:      4,
		ProfitTargetPhase1Percent: 8,
		ProfitTargetPhase2Percent: 5,
	}
}

func TestEvaluateSkipsUnprovisionedAccount(t *testing.T) {
	e := newTestEvaluator()
	snap := &platform.Account{Login: 1, Equity: 50000}
	meta := store.AccountMetadata{Login: 1, InitialBalance: 0, Type: "phase_1"}

	v := e.Evaluate(snap, meta, phase1Rule())
	assert.Equal(t, VerdictSafe, v.Kind)
}

func TestEvaluateGlitchEquitySkipped(t *testing.T) {
	e := newTestEvaluator()
	snap := &platform.Account{Login: 1, Equity: 0.05}
	meta := store.AccountMetadata{Login: 1, InitialBalance: 100000, Type: "phase_1"}

	v := e.Evaluate(snap, meta, phase1Rule())
	assert.Equal(t, VerdictSafe, v.Kind)
	assert.Equal(t, 0, e.AnchorCount(), "glitch snapshot must not create an anchor")
}

func TestEvaluateOverallDrawdownBreach(t *testing.T) {
	e := newTestEvaluator()
	snap := &platform.Account{Login: 1, Equity: 91900}
	meta := store.AccountMetadata{Login: 1, InitialBalance: 100000, Type: "phase_1"}

	v := e.Evaluate(snap, meta, phase1Rule())
	require.Equal(t, VerdictOverallDrawdown, v.Kind)
	assert.InDelta(t, 92000, v.Limit, 1e-9)
	assert.InDelta(t, 100000, v.Reference, 1e-9)
}

func TestOverallBreachTakesPriorityOverDaily(t *testing.T) {
	e := newTestEvaluator()
	// Violates both the overall floor (92000) and the daily floor.
	snap := &platform.Account{Login: 1, Equity: 90000}
	meta := store.AccountMetadata{Login: 1, InitialBalance: 100000, Type: "phase_1", StartOfDayEquity: 99800}

	v := e.Evaluate(snap, meta, phase1Rule())
	assert.Equal(t, VerdictOverallDrawdown, v.Kind)
}

func TestEvaluateDailyDrawdownBreach(t *testing.T) {
	e := newTestEvaluator()
	snap := &platform.Account{Login: 1, Equity: 95800}
	meta := store.AccountMetadata{Login: 1, InitialBalance: 100000, Type: "phase_1", StartOfDayEquity: 99800}

	v := e.Evaluate(snap, meta, phase1Rule())
	require.Equal(t, VerdictDailyDrawdown, v.Kind)
	assert.InDelta(t, 99800*0.96, v.Limit, 1e-9)
	assert.InDelta(t, 99800, v.Reference, 1e-9)
}

func TestAnchorStableAcrossEvaluations(t *testing.T) {
	e := newTestEvaluator()
	snap := &platform.Account{Login: 1, Equity: 98000}
	meta := store.AccountMetadata{Login: 1, InitialBalance: 100000, Type: "phase_1", StartOfDayEquity: 99800}

	v := e.Evaluate(snap, meta, phase1Rule())
	require.Equal(t, VerdictSafe, v.Kind)
	require.Equal(t, 1, e.AnchorCount())

	// Metadata changing mid-day must not move the anchored baseline.
	meta.StartOfDayEquity = 120000
	snap.Equity = 95800
	v = e.Evaluate(snap, meta, phase1Rule())
	assert.Equal(t, VerdictDailyDrawdown, v.Kind)
	assert.InDelta(t, 99800, v.Reference, 1e-9)
}

func TestAnchorSourcePriority(t *testing.T) {
	e := newTestEvaluator()
	rule := phase1Rule()

	// No start-of-day value: the metadata equity hint wins over the
	// initial balance.
	snap := &platform.Account{Login: 2, Equity: 98000}
	meta := store.AccountMetadata{Login: 2, InitialBalance: 100000, Type: "phase_1", CurrentEquity: 101000}
	e.Evaluate(snap, meta, rule)

	snap.Equity = 96950 // below 101000*0.96 = 96960
	v := e.Evaluate(snap, meta, rule)
	require.Equal(t, VerdictDailyDrawdown, v.Kind)
	assert.InDelta(t, 101000, v.Reference, 1e-9)

	// Neither hint present: fall back to the initial balance.
	snap2 := &platform.Account{Login: 3, Equity: 95900}
	meta2 := store.AccountMetadata{Login: 3, InitialBalance: 100000, Type: "phase_1"}
	v = e.Evaluate(snap2, meta2, rule)
	require.Equal(t, VerdictDailyDrawdown, v.Kind)
	assert.InDelta(t, 100000, v.Reference, 1e-9)
}

func TestFundedOverrideIgnoresRuleAndTarget(t *testing.T) {
	e := newTestEvaluator()
	// Rule with generous limits and a target; funded accounts ignore it.
	rule := &rules.Rule{Group: "demo\\funded", MaxDrawdownPercent: 20, DailyDrawdownPercent: 15, ProfitTargetPercent: 5}

	meta := store.AccountMetadata{Login: 1, InitialBalance: 200000, Type: "funded"}
	snap := &platform.Account{Login: 1, Equity: 179000} // below 200000*0.90

	v := e.Evaluate(snap, meta, rule)
	assert.Equal(t, VerdictOverallDrawdown, v.Kind)

	// Well above any target: funded accounts never pass.
	snap2 := &platform.Account{Login: 2, Equity: 260000}
	meta2 := store.AccountMetadata{Login: 2, InitialBalance: 200000, Type: "funded"}
	v = e.Evaluate(snap2, meta2, rule)
	assert.Equal(t, VerdictSafe, v.Kind)
}

func TestProfitTargetPassed(t *testing.T) {
	e := newTestEvaluator()
	snap := &platform.Account{Login: 1, Equity: 108200}
	meta := store.AccountMetadata{Login: 1, InitialBalance: 100000, Type: "phase_1", StartOfDayEquity: 107000}

	v := e.Evaluate(snap, meta, phase1Rule())
	require.Equal(t, VerdictPassed, v.Kind)
	assert.InDelta(t, 108000, v.Target, 1e-9)
}

func TestMissingRuleUsesDefaults(t *testing.T) {
	e := newTestEvaluator() // defaults 10/5
	snap := &platform.Account{Login: 1, Equity: 89900}
	meta := store.AccountMetadata{Login: 1, InitialBalance: 100000, Type: "phase_1"}

	v := e.Evaluate(snap, meta, nil)
	require.Equal(t, VerdictOverallDrawdown, v.Kind)
	assert.InDelta(t, 90000, v.Limit, 1e-9)
}

func TestResetAnchorsSeedsBaseline(t *testing.T) {
	e := newTestEvaluator()
	e.ResetAnchors(map[int64]float64{
		1: 105000,
		2: 0.05, // glitch equity must not anchor
	})
	assert.Equal(t, 1, e.AnchorCount())

	snap := &platform.Account{Login: 1, Equity: 100700} // below 105000*0.96
	meta := store.AccountMetadata{Login: 1, InitialBalance: 100000, Type: "phase_1", StartOfDayEquity: 99000}
	v := e.Evaluate(snap, meta, phase1Rule())
	require.Equal(t, VerdictDailyDrawdown, v.Kind)
	assert.InDelta(t, 105000, v.Reference, 1e-9)
}

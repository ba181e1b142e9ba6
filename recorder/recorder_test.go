package recorder

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riskguard/enforce"
)

func TestSQLiteRecorderJournalsViolations(t *testing.T) {
	rec, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "violations.db"))
	require.NoError(t, err)
	defer rec.Close()

	ctx := context.Background()
	require.NoError(t, rec.RecordViolation(ctx, Violation{
		Login:     1001,
		Kind:      "overall_drawdown",
		Equity:    91900,
		Balance:   92500,
		Limit:     92000,
		Reference: 100000,
		EventID:   "evt-1",
		At:        time.Now().UTC(),
	}))

	n, err := rec.ViolationCount(ctx, 1001)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = rec.ViolationCount(ctx, 9999)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSQLiteRecorderJournalsEnforcements(t *testing.T) {
	rec, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "violations.db"))
	require.NoError(t, err)
	defer rec.Close()

	ctx := context.Background()
	attempts := []enforce.Attempt{
		{Target: 1, Strategy: "native_dealer_close", Outcome: enforce.OutcomeRejected, Detail: "retcode 10013"},
		{Target: 1, Strategy: "synthetic_close", Outcome: enforce.OutcomeSuccess},
	}
	require.NoError(t, rec.RecordEnforcement(ctx, 1001, attempts))
	require.NoError(t, rec.RecordEnforcement(ctx, 1001, nil)) // empty batch is a no-op
}

func TestNoopRecorder(t *testing.T) {
	var rec Recorder = Noop{}
	assert.NoError(t, rec.RecordViolation(context.Background(), Violation{Login: 1}))
	assert.NoError(t, rec.RecordEnforcement(context.Background(), 1, nil))
	assert.NoError(t, rec.Close())
}

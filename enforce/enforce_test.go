package enforce

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riskguard/platform"
)

func TestDisableAccount(t *testing.T) {
	mock := platform.NewMockClient()
	mock.SeedAccount(platform.Account{Login: 1001, Equity: 90000, Enabled: true, Rights: 7})

	ex := NewExecutor(mock, "")
	err := ex.DisableAccount(context.Background(), 1001)
	require.NoError(t, err)

	require.Len(t, mock.UpdatedAccounts, 1)
	assert.False(t, mock.UpdatedAccounts[0].Enabled)
	assert.Equal(t, 0, mock.UpdatedAccounts[0].Rights)

	acc, err := mock.GetAccount(context.Background(), 1001)
	require.NoError(t, err)
	assert.False(t, acc.Enabled)
}

func TestClosePositionsNativeSuccess(t *testing.T) {
	mock := platform.NewMockClient()
	mock.SeedAccount(platform.Account{Login: 1001, Enabled: true})
	mock.SeedPositions(1001, []platform.Position{
		{Ticket: 1, Symbol: "EURUSD", Volume: 1.0, Profit: -500},
		{Ticket: 2, Symbol: "XAUUSD", Volume: 0.5, Profit: 120},
	})

	ex := NewExecutor(mock, "")
	closed, total, attempts := ex.ClosePositions(context.Background(), 1001)

	assert.Equal(t, 2, closed)
	assert.Equal(t, 2, total)
	assert.Equal(t, 0, mock.OpenPositionCount(1001))
	require.Len(t, attempts, 2)
	for _, a := range attempts {
		assert.Equal(t, "native_dealer_close", a.Strategy)
		assert.Equal(t, OutcomeSuccess, a.Outcome)
	}
	assert.Empty(t, mock.DeletedPositions, "native close must not reach the synthetic tier")
}

func TestClosePositionsFallsBackToSynthetic(t *testing.T) {
	mock := platform.NewMockClient()
	mock.SeedAccount(platform.Account{Login: 1001, Balance: 96000, Enabled: true})
	mock.RejectTradeRequests = true
	mock.SeedPositions(1001, []platform.Position{
		{Ticket: 1, Symbol: "EURUSD", Volume: 1.0, Profit: -900, Swap: -12.5, Commission: -7},
	})

	ex := NewExecutor(mock, "")
	closed, total, attempts := ex.ClosePositions(context.Background(), 1001)

	assert.Equal(t, 1, closed)
	assert.Equal(t, 1, total)
	assert.Equal(t, []int64{1}, mock.DeletedPositions)

	require.Len(t, mock.Adjustments, 1)
	assert.Equal(t, int64(1001), mock.Adjustments[0].Login)
	assert.InDelta(t, -919.5, mock.Adjustments[0].Amount, 1e-9)

	// Both native tiers rejected before the synthetic tier succeeded.
	require.Len(t, attempts, 3)
	assert.Equal(t, OutcomeRejected, attempts[0].Outcome)
	assert.Equal(t, OutcomeRejected, attempts[1].Outcome)
	assert.Equal(t, "synthetic_close", attempts[2].Strategy)
	assert.Equal(t, OutcomeSuccess, attempts[2].Outcome)
}

func TestSyntheticCloseSkipsNegligibleCompensation(t *testing.T) {
	mock := platform.NewMockClient()
	mock.SeedAccount(platform.Account{Login: 1001, Enabled: true})
	mock.RejectTradeRequests = true
	mock.SeedPositions(1001, []platform.Position{
		{Ticket: 1, Symbol: "EURUSD", Volume: 0.01, Profit: 0.004},
	})

	ex := NewExecutor(mock, "")
	closed, _, _ := ex.ClosePositions(context.Background(), 1001)

	assert.Equal(t, 1, closed)
	assert.Empty(t, mock.Adjustments)
}

func TestClosePositionsPartialFailure(t *testing.T) {
	mock := platform.NewMockClient()
	mock.SeedAccount(platform.Account{Login: 1001, Enabled: true})
	mock.RejectTradeRequests = true
	mock.FailDeletePositions = true
	mock.SeedPositions(1001, []platform.Position{
		{Ticket: 1, Symbol: "EURUSD", Volume: 1.0},
	})

	ex := NewExecutor(mock, "")
	closed, total, attempts := ex.ClosePositions(context.Background(), 1001)

	assert.Equal(t, 0, closed)
	assert.Equal(t, 1, total)
	require.Len(t, attempts, 3)
	assert.Equal(t, OutcomeError, attempts[2].Outcome)
}

func TestCloseOrdersFallsBackToDelete(t *testing.T) {
	mock := platform.NewMockClient()
	mock.SeedAccount(platform.Account{Login: 1001, Enabled: true})
	mock.RejectTradeRequests = true
	mock.SeedOrders(1001, []platform.Order{{Ticket: 7}, {Ticket: 8}})

	ex := NewExecutor(mock, "")
	closed, total, attempts := ex.CloseOrders(context.Background(), 1001)

	assert.Equal(t, 2, closed)
	assert.Equal(t, 2, total)
	assert.ElementsMatch(t, []int64{7, 8}, mock.DeletedOrders)
	assert.Equal(t, 0, mock.OpenOrderCount(1001))
	require.Len(t, attempts, 4) // rejected stop-out plus delete, per order
}

func TestCloseOrdersNativeSuccess(t *testing.T) {
	mock := platform.NewMockClient()
	mock.SeedAccount(platform.Account{Login: 1001, Enabled: true})
	mock.SeedOrders(1001, []platform.Order{{Ticket: 7}})

	ex := NewExecutor(mock, "")
	closed, total, _ := ex.CloseOrders(context.Background(), 1001)

	assert.Equal(t, 1, closed)
	assert.Equal(t, 1, total)
	assert.Empty(t, mock.DeletedOrders)
	require.Len(t, mock.TradeRequests, 1)
	assert.Equal(t, platform.ActionStopOutOrder, mock.TradeRequests[0].Action)
	assert.NotEmpty(t, mock.TradeRequests[0].ClientID)
}

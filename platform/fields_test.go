package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAccountFieldVariants(t *testing.T) {
	acc := normalizeAccount(map[string]interface{}{
		"Login":  float64(1001),
		"Group":  "demo\\phase_1",
		"equity": "99500.5",
		"Enable": float64(0),
		"rights": float64(3),
	})
	assert.Equal(t, int64(1001), acc.Login)
	assert.Equal(t, "demo\\phase_1", acc.Group)
	assert.InDelta(t, 99500.5, acc.Equity, 1e-9)
	assert.False(t, acc.Enabled)
	assert.Equal(t, 3, acc.Rights)

	// Enable absent defaults to enabled.
	acc = normalizeAccount(map[string]interface{}{"login": float64(2)})
	assert.True(t, acc.Enabled)
}

func TestNormalizePositionTicketAndSwapVariants(t *testing.T) {
	p := normalizePosition(map[string]interface{}{
		"Position": float64(50001),
		"symbol":   "EURUSD",
		"profit":   float64(-900),
		"storage":  float64(-12.5), // older builds name swap "storage"
	})
	assert.Equal(t, int64(50001), p.Ticket)
	assert.InDelta(t, -12.5, p.Swap, 1e-9)
	assert.InDelta(t, -912.5, p.NetPL(), 1e-9)

	p = normalizePosition(map[string]interface{}{"ticket": "42"})
	assert.Equal(t, int64(42), p.Ticket)

	p = normalizePosition(map[string]interface{}{"symbol": "XAUUSD"})
	assert.Equal(t, int64(0), p.Ticket, "unresolvable ticket stays zero")
}

func TestNormalizeOrderTicketVariants(t *testing.T) {
	assert.Equal(t, int64(7), normalizeOrder(map[string]interface{}{"Order": float64(7)}).Ticket)
	assert.Equal(t, int64(8), normalizeOrder(map[string]interface{}{"Ticket": "8"}).Ticket)
}

func TestRetCodeSuccess(t *testing.T) {
	assert.True(t, RetOK.Success())
	assert.True(t, RetRequestDone.Success())
	assert.False(t, RetError.Success())
	assert.False(t, RetCode(10013).Success())
}

func TestMockTradeRequestRemovesTarget(t *testing.T) {
	m := NewMockClient()
	m.SeedPositions(1, []Position{{Ticket: 5}})
	m.SeedOrders(1, []Order{{Ticket: 6}})

	code, err := m.SendTradeRequest(nil, &TradeRequest{Action: ActionDealerClose, Login: 1, Position: 5})
	assert.NoError(t, err)
	assert.True(t, code.Success())
	assert.Equal(t, 0, m.OpenPositionCount(1))

	m.RejectTradeRequests = true
	code, err = m.SendTradeRequest(nil, &TradeRequest{Action: ActionStopOutOrder, Login: 1, Order: 6})
	assert.NoError(t, err)
	assert.False(t, code.Success())
	assert.Equal(t, 1, m.OpenOrderCount(1))
}

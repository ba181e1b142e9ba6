package platform

import (
	"context"
)

// TradeAction identifies the manager-side trade operation carried by a
// TradeRequest. Values follow the bridge protocol.
type TradeAction int

const (
	ActionDealerClose     TradeAction = 200
	ActionStopOutPosition TradeAction = 201
	ActionStopOutOrder    TradeAction = 202
)

// RetCode is the result code returned by the bridge for a trade request.
type RetCode int

const (
	RetOK          RetCode = 0
	RetRequestDone RetCode = 10007
	RetError       RetCode = 1
)

// Success reports whether a result code counts as an accepted request.
func (c RetCode) Success() bool {
	return c == RetOK || c == RetRequestDone
}

// Account is the normalized account record exposed to the engine.
type Account struct {
	Login   int64
	Group   string
	Equity  float64
	Balance float64
	Enabled bool
	Rights  int
}

// Position is the normalized open-position record.
type Position struct {
	Ticket     int64
	Symbol     string
	Volume     float64
	Profit     float64
	Swap       float64
	Commission float64
}

// NetPL returns the floating result a synthetic close must compensate.
func (p Position) NetPL() float64 {
	return p.Profit + p.Swap + p.Commission
}

// Order is the normalized pending-order record.
type Order struct {
	Ticket int64
}

// TradeRequest is the request/confirm primitive for closing positions and
// orders through the bridge.
type TradeRequest struct {
	Action   TradeAction
	Login    int64
	Position int64
	Order    int64
	Symbol   string
	Volume   float64
	Price    float64 // 0 means market
	Comment  string
	ClientID string
}

// Client is the capability contract the engine consumes. Implementations:
// BridgeClient (live HTTP bridge) and MockClient (deterministic double),
// selected by configuration.
type Client interface {
	// Ping verifies connectivity to the platform bridge.
	Ping(ctx context.Context) error

	// GetAccount returns the live account record for a login.
	GetAccount(ctx context.Context, login int64) (*Account, error)

	// GetPositions returns all open positions for a login.
	GetPositions(ctx context.Context, login int64) ([]Position, error)

	// GetOrders returns all pending orders for a login.
	GetOrders(ctx context.Context, login int64) ([]Order, error)

	// UpdateAccount submits a modified account record.
	UpdateAccount(ctx context.Context, acc *Account) error

	// SendTradeRequest submits a trade request and returns the confirm code.
	// A transport failure is an error; a non-success code is a rejection.
	SendTradeRequest(ctx context.Context, req *TradeRequest) (RetCode, error)

	// DeletePosition removes a position record directly.
	DeletePosition(ctx context.Context, login, ticket int64) error

	// DeleteOrder removes a pending order record directly.
	DeleteOrder(ctx context.Context, login, ticket int64) error

	// AdjustBalance applies a compensating balance operation to a login.
	AdjustBalance(ctx context.Context, login int64, amount float64, comment string) error
}

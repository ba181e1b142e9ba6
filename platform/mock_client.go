package platform

import (
	"context"
	"fmt"
	"sync"
)

//
// Deterministic in-memory double for running and testing the engine
// without a live bridge session.
//

// Ensure MockClient implements the Client interface.
var _ Client = (*MockClient)(nil)

// BalanceAdjustment records one AdjustBalance call for assertions.
type BalanceAdjustment struct {
	Login   int64
	Amount  float64
	Comment string
}

// MockClient is a mock implementation of the platform.Client interface.
// Failure injection flags let tests drive every tier of the enforcement
// strategy chain.
type MockClient struct {
	mu        sync.RWMutex
	accounts  map[int64]*Account
	positions map[int64][]Position
	orders    map[int64][]Order

	// Failure injection.
	RejectTradeRequests bool    // SendTradeRequest returns a rejection code
	TradeRetcode        RetCode // code to return when rejecting (default RetError)
	FailDeletePositions bool
	FailDeleteOrders    bool
	FailUpdates         bool
	FailAdjustments     bool
	FailAccountReads    bool

	// Call recording.
	TradeRequests    []TradeRequest
	DeletedPositions []int64
	DeletedOrders    []int64
	Adjustments      []BalanceAdjustment
	UpdatedAccounts  []Account
}

// NewMockClient creates an empty mock client.
func NewMockClient() *MockClient {
	return &MockClient{
		accounts:  make(map[int64]*Account),
		positions: make(map[int64][]Position),
		orders:    make(map[int64][]Order),
	}
}

// SeedAccount installs an account record.
func (c *MockClient) SeedAccount(acc Account) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := acc
	c.accounts[acc.Login] = &cp
}

// SeedPositions installs the open positions for a login.
func (c *MockClient) SeedPositions(login int64, positions []Position) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.positions[login] = append([]Position(nil), positions...)
}

// SeedOrders installs the pending orders for a login.
func (c *MockClient) SeedOrders(login int64, orders []Order) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.orders[login] = append([]Order(nil), orders...)
}

// SetEquity updates the live equity of a seeded account.
func (c *MockClient) SetEquity(login int64, equity float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if acc, ok := c.accounts[login]; ok {
		acc.Equity = equity
	}
}

func (c *MockClient) Ping(ctx context.Context) error {
	return nil
}

func (c *MockClient) GetAccount(ctx context.Context, login int64) (*Account, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.FailAccountReads {
		return nil, fmt.Errorf("mock: account read failure injected for %d", login)
	}
	acc, ok := c.accounts[login]
	if !ok {
		return nil, fmt.Errorf("mock: account %d not found", login)
	}
	cp := *acc
	return &cp, nil
}

func (c *MockClient) GetPositions(ctx context.Context, login int64) ([]Position, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Position(nil), c.positions[login]...), nil
}

func (c *MockClient) GetOrders(ctx context.Context, login int64) ([]Order, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Order(nil), c.orders[login]...), nil
}

func (c *MockClient) UpdateAccount(ctx context.Context, acc *Account) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.UpdatedAccounts = append(c.UpdatedAccounts, *acc)
	if c.FailUpdates {
		return fmt.Errorf("mock: update failure injected for %d", acc.Login)
	}
	if stored, ok := c.accounts[acc.Login]; ok {
		stored.Enabled = acc.Enabled
		stored.Rights = acc.Rights
	}
	return nil
}

func (c *MockClient) SendTradeRequest(ctx context.Context, req *TradeRequest) (RetCode, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.TradeRequests = append(c.TradeRequests, *req)
	if c.RejectTradeRequests {
		code := c.TradeRetcode
		if code == 0 {
			code = RetError
		}
		return code, nil
	}
	// An accepted close/stop-out removes the target record.
	switch req.Action {
	case ActionDealerClose, ActionStopOutPosition:
		c.removePositionLocked(req.Login, req.Position)
	case ActionStopOutOrder:
		c.removeOrderLocked(req.Login, req.Order)
	}
	return RetRequestDone, nil
}

func (c *MockClient) DeletePosition(ctx context.Context, login, ticket int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailDeletePositions {
		return fmt.Errorf("mock: position delete failure injected for #%d", ticket)
	}
	c.DeletedPositions = append(c.DeletedPositions, ticket)
	c.removePositionLocked(login, ticket)
	return nil
}

func (c *MockClient) DeleteOrder(ctx context.Context, login, ticket int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailDeleteOrders {
		return fmt.Errorf("mock: order delete failure injected for #%d", ticket)
	}
	c.DeletedOrders = append(c.DeletedOrders, ticket)
	c.removeOrderLocked(login, ticket)
	return nil
}

func (c *MockClient) AdjustBalance(ctx context.Context, login int64, amount float64, comment string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailAdjustments {
		return fmt.Errorf("mock: balance adjustment failure injected for %d", login)
	}
	c.Adjustments = append(c.Adjustments, BalanceAdjustment{Login: login, Amount: amount, Comment: comment})
	if acc, ok := c.accounts[login]; ok {
		acc.Balance += amount
	}
	return nil
}

func (c *MockClient) removePositionLocked(login, ticket int64) {
	kept := c.positions[login][:0]
	for _, p := range c.positions[login] {
		if p.Ticket != ticket {
			kept = append(kept, p)
		}
	}
	c.positions[login] = kept
}

func (c *MockClient) removeOrderLocked(login, ticket int64) {
	kept := c.orders[login][:0]
	for _, o := range c.orders[login] {
		if o.Ticket != ticket {
			kept = append(kept, o)
		}
	}
	c.orders[login] = kept
}

// OpenPositionCount reports the remaining open positions for a login.
func (c *MockClient) OpenPositionCount(login int64) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.positions[login])
}

// OpenOrderCount reports the remaining pending orders for a login.
func (c *MockClient) OpenOrderCount(login int64) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.orders[login])
}

// platform/client.go
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"riskguard/logs"
)

// Ensure BridgeClient implements the Client interface.
var _ Client = (*BridgeClient)(nil)

// BridgeClient talks to the trading platform manager bridge over HTTP.
// All raw session handling lives behind the bridge; this client only
// normalizes its loosely-shaped JSON responses.
type BridgeClient struct {
	BaseURL string
	Token   string
	Http    *http.Client
}

// bridgeError is the error envelope the bridge returns on failures.
type bridgeError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// NewBridgeClient creates a client for the manager bridge.
func NewBridgeClient(baseURL, token string, timeoutSeconds int) *BridgeClient {
	return &BridgeClient{
		BaseURL: baseURL,
		Token:   token,
		Http:    &http.Client{Timeout: time.Duration(timeoutSeconds) * time.Second},
	}
}

// sendRequest performs one bridge call and decodes the response into target.
// Bridge-level errors (HTTP >= 400) are returned as errors; callers treat
// them as transient and retry on the next cycle.
func (c *BridgeClient) sendRequest(ctx context.Context, method, endpoint string, params url.Values, body interface{}, target interface{}) error {
	fullURL := c.BaseURL + endpoint
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.Http.Do(req)
	if err != nil {
		return fmt.Errorf("bridge request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read bridge response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var be bridgeError
		if json.Unmarshal(respBody, &be) == nil && be.Msg != "" {
			return fmt.Errorf("bridge API error: HTTP %d, code %d: %s", resp.StatusCode, be.Code, be.Msg)
		}
		return fmt.Errorf("bridge API error: HTTP %d, body: %s", resp.StatusCode, string(respBody))
	}

	if target != nil {
		if err := json.Unmarshal(respBody, target); err != nil {
			return fmt.Errorf("failed to parse bridge response: %w, body: %s", err, string(respBody))
		}
	}
	return nil
}

// Ping verifies connectivity to the bridge.
func (c *BridgeClient) Ping(ctx context.Context) error {
	return c.sendRequest(ctx, http.MethodGet, "/ping", nil, nil, nil)
}

// GetAccount returns the live account record for a login.
func (c *BridgeClient) GetAccount(ctx context.Context, login int64) (*Account, error) {
	params := url.Values{}
	params.Set("login", strconv.FormatInt(login, 10))

	var raw map[string]interface{}
	if err := c.sendRequest(ctx, http.MethodGet, "/account", params, nil, &raw); err != nil {
		return nil, err
	}
	acc := normalizeAccount(raw)
	if acc.Login == 0 {
		acc.Login = login
	}
	return acc, nil
}

// GetPositions returns all open positions for a login.
func (c *BridgeClient) GetPositions(ctx context.Context, login int64) ([]Position, error) {
	params := url.Values{}
	params.Set("login", strconv.FormatInt(login, 10))

	var raw []map[string]interface{}
	if err := c.sendRequest(ctx, http.MethodGet, "/positions", params, nil, &raw); err != nil {
		return nil, err
	}

	positions := make([]Position, 0, len(raw))
	for _, m := range raw {
		p := normalizePosition(m)
		if p.Ticket == 0 {
			logs.Warnf("[Bridge] Dropping position with no resolvable ticket for login %d", login)
			continue
		}
		positions = append(positions, p)
	}
	return positions, nil
}

// GetOrders returns all pending orders for a login.
func (c *BridgeClient) GetOrders(ctx context.Context, login int64) ([]Order, error) {
	params := url.Values{}
	params.Set("login", strconv.FormatInt(login, 10))

	var raw []map[string]interface{}
	if err := c.sendRequest(ctx, http.MethodGet, "/orders", params, nil, &raw); err != nil {
		return nil, err
	}

	orders := make([]Order, 0, len(raw))
	for _, m := range raw {
		o := normalizeOrder(m)
		if o.Ticket == 0 {
			continue
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// UpdateAccount submits a modified account record.
func (c *BridgeClient) UpdateAccount(ctx context.Context, acc *Account) error {
	enable := 0
	if acc.Enabled {
		enable = 1
	}
	body := map[string]interface{}{
		"login":  acc.Login,
		"enable": enable,
		"rights": acc.Rights,
	}
	return c.sendRequest(ctx, http.MethodPost, "/account/update", nil, body, nil)
}

// tradeConfirm is the bridge response for a trade request.
type tradeConfirm struct {
	Retcode int `json:"retcode"`
}

// SendTradeRequest submits a trade request and returns the confirm code.
func (c *BridgeClient) SendTradeRequest(ctx context.Context, req *TradeRequest) (RetCode, error) {
	body := map[string]interface{}{
		"action":    int(req.Action),
		"login":     req.Login,
		"position":  req.Position,
		"order":     req.Order,
		"symbol":    req.Symbol,
		"volume":    req.Volume,
		"price":     req.Price,
		"comment":   req.Comment,
		"client_id": req.ClientID,
	}
	var confirm tradeConfirm
	if err := c.sendRequest(ctx, http.MethodPost, "/trade", nil, body, &confirm); err != nil {
		return RetError, err
	}
	return RetCode(confirm.Retcode), nil
}

// DeletePosition removes a position record directly.
func (c *BridgeClient) DeletePosition(ctx context.Context, login, ticket int64) error {
	body := map[string]interface{}{"login": login, "ticket": ticket}
	return c.sendRequest(ctx, http.MethodPost, "/position/delete", nil, body, nil)
}

// DeleteOrder removes a pending order record directly.
func (c *BridgeClient) DeleteOrder(ctx context.Context, login, ticket int64) error {
	body := map[string]interface{}{"login": login, "ticket": ticket}
	return c.sendRequest(ctx, http.MethodPost, "/order/delete", nil, body, nil)
}

// AdjustBalance applies a compensating balance operation to a login.
func (c *BridgeClient) AdjustBalance(ctx context.Context, login int64, amount float64, comment string) error {
	body := map[string]interface{}{
		"login":   login,
		"amount":  amount,
		"comment": comment,
	}
	return c.sendRequest(ctx, http.MethodPost, "/balance", nil, body, nil)
}

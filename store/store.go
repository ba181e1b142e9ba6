// store/store.go
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// AccountMetadata is one active account row from the CRM metadata store.
// StartOfDayEquity and CurrentEquity are optional; zero means unset.
type AccountMetadata struct {
	Login            int64   `json:"login"`
	InitialBalance   float64 `json:"initial_balance"`
	Type             string  `json:"type"`
	Status           string  `json:"status"`
	StartOfDayEquity float64 `json:"start_of_day_equity"`
	CurrentEquity    float64 `json:"current_equity"`
}

// AccountStore provides the active-account list the cache refreshes from.
type AccountStore interface {
	FetchActiveAccounts(ctx context.Context) ([]AccountMetadata, error)
}

// HTTPStore fetches active accounts from the CRM REST endpoint.
type HTTPStore struct {
	BaseURL string
	APIKey  string
	Http    *http.Client
}

var _ AccountStore = (*HTTPStore)(nil)

// NewHTTPStore creates a store client with a bounded timeout.
func NewHTTPStore(baseURL, apiKey string, timeoutSeconds int) *HTTPStore {
	return &HTTPStore{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Http:    &http.Client{Timeout: time.Duration(timeoutSeconds) * time.Second},
	}
}

// FetchActiveAccounts returns every account with active status.
func (s *HTTPStore) FetchActiveAccounts(ctx context.Context) ([]AccountMetadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+"/accounts?status=active", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build store request: %w", err)
	}
	if s.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.APIKey)
	}

	resp, err := s.Http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("store request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read store response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("store API error: HTTP %d, body: %s", resp.StatusCode, string(body))
	}

	var accounts []AccountMetadata
	if err := json.Unmarshal(body, &accounts); err != nil {
		return nil, fmt.Errorf("failed to parse store response: %w", err)
	}
	return accounts, nil
}

// StaticStore serves a fixed account list; used in simulation mode and tests.
type StaticStore struct {
	Accounts []AccountMetadata
	Err      error
}

var _ AccountStore = (*StaticStore)(nil)

func (s *StaticStore) FetchActiveAccounts(ctx context.Context) ([]AccountMetadata, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return append([]AccountMetadata(nil), s.Accounts...), nil
}

package dex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"
)

// Client talks to the DEX indexer HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// rawTransaction is the indexer wire format; timestamps arrive as ISO strings.
type rawTransaction struct {
	Timestamp string  `json:"timestamp"`
	PoolID    string  `json:"pool_id"`
	TokenA    string  `json:"token_a"`
	TokenB    string  `json:"token_b"`
	AmountA   float64 `json:"amount_a"`
	AmountB   float64 `json:"amount_b"`
	VolumeUSD float64 `json:"volume_usd"`
	UserID    string  `json:"user_id"`
}

// FetchTransactions fetches swap transactions for a pool within [from, to],
// most recent first.
func (c *Client) FetchTransactions(ctx context.Context, poolID string, from, to time.Time, limit int) ([]TransactionRecord, error) {
	params := url.Values{}
	params.Set("pool", poolID)
	params.Set("from", from.UTC().Format(time.RFC3339))
	params.Set("to", to.UTC().Format(time.RFC3339))
	params.Set("limit", strconv.Itoa(limit))

	endpoint := fmt.Sprintf("%s/v1/pools/transactions?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &APIError{Kind: ErrKindValidation, Message: "building request", Err: err}
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		kind := ErrKindNetwork
		var urlErr *url.Error
		if errors.As(err, &urlErr) && urlErr.Timeout() {
			kind = ErrKindTimeout
		}
		return nil, &APIError{Kind: kind, Message: "fetching transactions", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{Kind: ErrKindNetwork, Message: "reading response", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		kind := ErrKindNetwork
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			kind = ErrKindValidation
		}
		return nil, &APIError{Kind: kind, StatusCode: resp.StatusCode, Message: string(body)}
	}

	var raw []rawTransaction
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &APIError{Kind: ErrKindValidation, Message: "parsing transactions", Err: err}
	}

	records := make([]TransactionRecord, 0, len(raw))
	for _, r := range raw {
		if r.PoolID == "" {
			return nil, &APIError{Kind: ErrKindValidation, Message: "transaction missing pool id"}
		}
		ts, err := time.Parse(time.RFC3339, r.Timestamp)
		if err != nil || ts.Unix() <= 0 {
			return nil, &APIError{Kind: ErrKindValidation, Message: fmt.Sprintf("invalid transaction timestamp %q", r.Timestamp), Err: err}
		}
		records = append(records, TransactionRecord{
			Timestamp: ts,
			PoolID:    r.PoolID,
			TokenA:    r.TokenA,
			TokenB:    r.TokenB,
			AmountA:   r.AmountA,
			AmountB:   r.AmountB,
			VolumeUSD: r.VolumeUSD,
			UserID:    r.UserID,
		})
	}

	// Detectors rely on most-recent-first ordering; the indexer usually
	// returns it, but re-sorting here makes the guarantee local.
	sort.Slice(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})

	return records, nil
}

package dex

import (
	"context"
	"time"
)

// TransactionRecord is a single swap against a liquidity pool, as reported
// by the indexer. Records are immutable facts and are never mutated once
// returned.
type TransactionRecord struct {
	Timestamp time.Time `json:"timestamp"`
	PoolID    string    `json:"pool_id"`
	TokenA    string    `json:"token_a"`
	TokenB    string    `json:"token_b"`
	AmountA   float64   `json:"amount_a"` // Signed delta of token A
	AmountB   float64   `json:"amount_b"` // Signed delta of token B
	VolumeUSD float64   `json:"volume_usd"`
	UserID    string    `json:"user_id"`
}

// HistorySource supplies ordered transaction records for a pool over a
// requested time window. Implementations return records most-recent-first.
type HistorySource interface {
	FetchTransactions(ctx context.Context, poolID string, from, to time.Time, limit int) ([]TransactionRecord, error)
}

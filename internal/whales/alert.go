package whales

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"dex-analytics-bot/internal/dex"
)

// Urgency ranks how quickly a whale alert is expected to move volume
type Urgency string

const (
	UrgencyImmediate Urgency = "immediate"
	UrgencyHigh      Urgency = "high"
	UrgencyMedium    Urgency = "medium"
	UrgencyLow       Urgency = "low"
)

// Alert is a single oversized swap flagged by the whale tracker
type Alert struct {
	ID         string    `json:"id"`
	PoolID     string    `json:"pool_id"`
	UserID     string    `json:"user_id"`
	VolumeUSD  float64   `json:"volume_usd"`
	Confidence float64   `json:"confidence"` // 0.0 to 1.0
	Urgency    Urgency   `json:"urgency"`
	DetectedAt time.Time `json:"detected_at"`
}

// FromTransactions flags transactions whose volume exceeds the whale
// threshold. Urgency and confidence scale with how far past the threshold
// the trade lands.
func FromTransactions(txs []dex.TransactionRecord, thresholdUSD float64) []Alert {
	if thresholdUSD <= 0 {
		return nil
	}

	var alerts []Alert
	for _, tx := range txs {
		if tx.VolumeUSD < thresholdUSD {
			continue
		}

		multiple := tx.VolumeUSD / thresholdUSD
		urgency := UrgencyLow
		switch {
		case multiple >= 10:
			urgency = UrgencyImmediate
		case multiple >= 5:
			urgency = UrgencyHigh
		case multiple >= 2:
			urgency = UrgencyMedium
		}

		confidence := 0.5 + 0.05*multiple
		if confidence > 0.95 {
			confidence = 0.95
		}

		// Deterministic ID so the same swap re-derived on a later pass
		// dedupes instead of double counting.
		seed := fmt.Sprintf("%s|%s|%d|%.6f", tx.PoolID, tx.UserID, tx.Timestamp.UnixNano(), tx.VolumeUSD)
		alerts = append(alerts, Alert{
			ID:         uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed)).String(),
			PoolID:     tx.PoolID,
			UserID:     tx.UserID,
			VolumeUSD:  tx.VolumeUSD,
			Confidence: confidence,
			Urgency:    urgency,
			DetectedAt: tx.Timestamp,
		})
	}

	return alerts
}

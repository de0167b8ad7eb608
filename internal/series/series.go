// Package series derives volume time-series from raw swap transactions and
// provides the statistics the detectors and forecasters share.
//
// All series in this package are ordered most-recent-first: index 0 is the
// bucket containing "now". Every consumer relies on that invariant.
package series

import (
	"math"
	"time"

	"dex-analytics-bot/internal/dex"
)

// Bucket is one aggregation interval of swap volume.
type Bucket struct {
	Start   time.Time
	Volume  float64
	TxCount int
}

// FromTransactions buckets transactions into fixed intervals covering
// [now-span, now], most recent first. Buckets with no transactions are
// present with zero volume so gaps do not shift the series.
func FromTransactions(txs []dex.TransactionRecord, size time.Duration, now time.Time, span time.Duration) []Bucket {
	if size <= 0 {
		size = time.Hour
	}
	n := int(span / size)
	if n <= 0 {
		n = 1
	}

	buckets := make([]Bucket, n)
	for i := range buckets {
		buckets[i].Start = now.Add(-time.Duration(i+1) * size)
	}

	for _, tx := range txs {
		age := now.Sub(tx.Timestamp)
		if age < 0 || age >= span {
			continue
		}
		idx := int(age / size)
		if idx >= n {
			continue
		}
		buckets[idx].Volume += tx.VolumeUSD
		buckets[idx].TxCount++
	}

	return buckets
}

// Volumes extracts the volume values of a bucket series, preserving order.
func Volumes(buckets []Bucket) []float64 {
	out := make([]float64, len(buckets))
	for i, b := range buckets {
		out[i] = b.Volume
	}
	return out
}

// Mean returns the arithmetic mean, zero for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev returns the population standard deviation, zero for an empty slice.
func StdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := Mean(values)
	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}

// LinearSlope fits a least-squares line through a most-recent-first series
// and returns the per-bucket slope in chronological direction: positive
// means volume is rising toward the present.
func LinearSlope(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}

	// x runs in chronological order, so the oldest value gets x=0.
	sumX, sumY, sumXY, sumXX := 0.0, 0.0, 0.0, 0.0
	for i, v := range values {
		x := float64(n - 1 - i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}

	fn := float64(n)
	denom := fn*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (fn*sumXY - sumX*sumY) / denom
}

// CoefficientOfVariation returns stdev/mean, zero when the mean is zero.
func CoefficientOfVariation(values []float64) float64 {
	mean := Mean(values)
	if mean == 0 {
		return 0
	}
	return StdDev(values) / mean
}

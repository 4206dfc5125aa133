package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// GroupSummary is one aggregated row: the group key values plus outcome counts.
type GroupSummary struct {
	Keys                 []string        `json:"keys"`
	TotalTransactions    int             `json:"total_transactions"`
	MatchingTransactions int             `json:"matching_transactions"`
	Ratio                float64         `json:"ratio"`
	TotalAmountEUR       decimal.Decimal `json:"total_amount_eur"`
}

// TimePoint is one aggregated row of a time series.
type TimePoint struct {
	Time                 time.Time `json:"time"`
	TotalTransactions    int       `json:"total_transactions"`
	MatchingTransactions int       `json:"matching_transactions"`
	Ratio                float64   `json:"ratio"`
}

// Key returns the first key value, or "" for an empty summary.
func (g GroupSummary) Key() string {
	if len(g.Keys) == 0 {
		return ""
	}
	return g.Keys[0]
}

// Ratio divides matching by total; groups never have a zero total.
func Ratio(matching, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(matching) / float64(total)
}

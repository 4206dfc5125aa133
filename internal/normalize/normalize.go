// Package normalize turns a raw transaction table into the cleaned dataset the
// aggregator works on.
//
// Rows are dropped when their timestamp cannot be parsed (only if the source
// has a timestamp column at all) and, unconditionally, when the outcome status
// is missing. Every surviving row gets its derived attributes computed once:
// calendar date, minute and interval buckets, ISO3 country codes and the amount
// converted into the reference currency. Unknown currency or country codes
// leave the derived field undefined and keep the row.
package normalize

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"txdash/internal/core"
	"txdash/internal/refdata"
)

// DefaultIntervals are the time bucket widths derived for every row.
var DefaultIntervals = []time.Duration{10 * time.Minute, 30 * time.Minute}

// Options controls the derived time buckets.
type Options struct {
	Intervals []time.Duration
}

// Stats reports what a normalization pass did.
type Stats struct {
	Input                 int `json:"input"`
	DroppedTimestamp      int `json:"dropped_timestamp"`
	DroppedStatus         int `json:"dropped_status"`
	UndefinedAmount       int `json:"undefined_amount"`
	UnknownIssuerCountry  int `json:"unknown_issuer_country"`
	UnknownShopperCountry int `json:"unknown_shopper_country"`
	Output                int `json:"output"`
}

// Normalizer applies the cleaning pass. It holds no per-run state.
type Normalizer struct {
	intervals []time.Duration
}

// New creates a Normalizer. Non-positive intervals are ignored and duplicates collapse.
func New(opts Options) *Normalizer {
	intervals := opts.Intervals
	if len(intervals) == 0 {
		intervals = DefaultIntervals
	}
	seen := make(map[time.Duration]bool, len(intervals))
	clean := make([]time.Duration, 0, len(intervals))
	for _, iv := range intervals {
		if iv <= 0 || seen[iv] {
			continue
		}
		seen[iv] = true
		clean = append(clean, iv)
	}
	sort.Slice(clean, func(i, j int) bool { return clean[i] < clean[j] })
	return &Normalizer{intervals: clean}
}

// Intervals returns the bucket widths this normalizer derives.
func (n *Normalizer) Intervals() []time.Duration {
	return append([]time.Duration(nil), n.intervals...)
}

// Normalize builds the cleaned dataset from table. It never fails on row content.
func (n *Normalizer) Normalize(ctx context.Context, table core.RawTable) (core.Dataset, Stats) {
	stats := Stats{Input: len(table.Rows)}
	hasTimestamps := table.HasColumn(core.ColCreationDate)

	out := make([]core.Transaction, 0, len(table.Rows))
	for _, row := range table.Rows {
		var ts time.Time
		if hasTimestamps {
			raw, _ := row.Get(core.ColCreationDate)
			parsed, ok := ParseTimestamp(raw)
			if !ok {
				stats.DroppedTimestamp++
				continue
			}
			ts = parsed
		}

		status, ok := row.Get(core.ColAcquirerResponse)
		if !ok {
			stats.DroppedStatus++
			continue
		}

		tx := core.Transaction{
			Status:     status,
			Attributes: attributes(row),
		}
		if hasTimestamps {
			n.deriveTime(&tx, ts)
		}

		if iso3, ok := countryISO3(tx.Attributes[core.DimIssuerCountry]); ok {
			tx.IssuerCountryISO3 = iso3
		} else {
			stats.UnknownIssuerCountry++
		}
		if iso3, ok := countryISO3(tx.Attributes[core.DimShopperCountry]); ok {
			tx.ShopperCountryISO3 = iso3
		} else {
			stats.UnknownShopperCountry++
		}

		if raw, ok := row.Get(core.ColAmount); ok {
			if amount, err := core.ParseAmount(raw); err == nil {
				tx.Amount = decimal.NewNullDecimal(amount)
			}
		}
		if eur, ok := convert(tx.Amount, tx.Currency()); ok {
			tx.AmountEUR = decimal.NewNullDecimal(eur)
		} else {
			stats.UndefinedAmount++
		}

		out = append(out, tx)
	}
	stats.Output = len(out)

	slog.InfoContext(ctx, "Dataset normalized",
		"input_rows", stats.Input,
		"output_rows", stats.Output,
		"dropped_timestamp", stats.DroppedTimestamp,
		"dropped_status", stats.DroppedStatus,
		"undefined_amount", stats.UndefinedAmount,
		"unknown_issuer_country", stats.UnknownIssuerCountry,
		"unknown_shopper_country", stats.UnknownShopperCountry,
		"has_timestamps", hasTimestamps)

	return core.Dataset{
		Transactions:  out,
		HasTimestamps: hasTimestamps,
		Intervals:     n.Intervals(),
	}, stats
}

func (n *Normalizer) deriveTime(tx *core.Transaction, ts time.Time) {
	tx.Timestamp = ts
	tx.Date = core.DateOf(ts)
	tx.Minute = FloorTime(ts, time.Minute)
	tx.Buckets = make(map[time.Duration]time.Time, len(n.intervals))
	for _, iv := range n.intervals {
		tx.Buckets[iv] = FloorTime(ts, iv)
	}
}

// FloorTime truncates t (in UTC) down to a multiple of d.
func FloorTime(t time.Time, d time.Duration) time.Time {
	return t.UTC().Truncate(d)
}

func attributes(row core.RawRecord) map[core.Dimension]string {
	attrs := make(map[core.Dimension]string)
	for _, d := range core.CategoricalDimensions() {
		if v, ok := row.Get(string(d)); ok {
			attrs[d] = v
		}
	}
	return attrs
}

func countryISO3(alpha2 string) (string, bool) {
	if alpha2 == "" {
		return "", false
	}
	return refdata.CountryISO3(alpha2)
}

func convert(amount decimal.NullDecimal, currency string) (decimal.Decimal, bool) {
	if !amount.Valid {
		return decimal.Decimal{}, false
	}
	return refdata.ToReference(amount.Decimal, currency)
}

// timestampLayouts are tried in order. Layouts without a zone are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"01/02/2006",
}

// ParseTimestamp parses the dataset timestamp formats. Anything else is missing.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func (s Stats) String() string {
	return fmt.Sprintf("input=%d output=%d dropped_timestamp=%d dropped_status=%d",
		s.Input, s.Output, s.DroppedTimestamp, s.DroppedStatus)
}

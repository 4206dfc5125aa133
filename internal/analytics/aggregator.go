// Package analytics groups a normalized dataset and counts how many
// transactions in each group carry a target outcome label.
package analytics

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"txdash/internal/core"
)

// Policy holds the per-dashboard aggregation parameters.
type Policy struct {
	// TargetLabel is compared to the outcome status exactly, case included.
	TargetLabel string
	// AmountBucketWidth is the width in reference currency units of an amount bucket.
	AmountBucketWidth int64
}

// Validate reports policy values that would make aggregation meaningless.
func (p Policy) Validate() error {
	var errs []string
	if p.TargetLabel == "" {
		errs = append(errs, "target label is required")
	}
	if p.AmountBucketWidth <= 0 {
		errs = append(errs, fmt.Sprintf("amount bucket width must be positive, got %d", p.AmountBucketWidth))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid aggregation policy: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Aggregator computes summary rows for one policy. It is safe for concurrent use.
type Aggregator struct {
	policy Policy
	width  decimal.Decimal
}

// New returns an Aggregator for the given policy.
func New(p Policy) (*Aggregator, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Aggregator{policy: p, width: decimal.NewFromInt(p.AmountBucketWidth)}, nil
}

// Policy returns the aggregation parameters.
func (a *Aggregator) Policy() Policy {
	return a.policy
}

// ByDimension groups by one dimension. The amount dimension groups by bucket
// and skips rows without a converted amount; issuer name keeps only groups
// with a match and orders them by ascending ratio.
func (a *Aggregator) ByDimension(ds core.Dataset, dim core.Dimension) ([]core.GroupSummary, error) {
	if !dim.Valid() {
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownDimension, dim)
	}
	groups := a.group(ds, []core.Dimension{dim})
	if dim == core.DimIssuerName {
		return byRatio(groups), nil
	}
	return groups, nil
}

// ByPair groups by an ordered pair of distinct dimensions. Any other
// selection returns core.ErrInvalidSelection without computing anything.
func (a *Aggregator) ByPair(ds core.Dataset, dims []core.Dimension) ([]core.GroupSummary, error) {
	if len(dims) != 2 || dims[0] == dims[1] {
		return nil, fmt.Errorf("%w: got %d", core.ErrInvalidSelection, len(dims))
	}
	for _, d := range dims {
		if !d.Valid() {
			return nil, fmt.Errorf("%w: %q", core.ErrUnknownDimension, d)
		}
	}
	return a.group(ds, dims), nil
}

// ByCountry groups by one of the ISO3 country dimensions, keeping only rows
// where the code is defined.
func (a *Aggregator) ByCountry(ds core.Dataset, dim core.Dimension) ([]core.GroupSummary, error) {
	if !dim.IsCountryISO3() {
		return nil, fmt.Errorf("%w: %q is not a country dimension", core.ErrUnknownDimension, dim)
	}
	return a.group(ds, []core.Dimension{dim}), nil
}

// TimeSeries groups by time bucket in ascending order. time.Minute is always
// available; other intervals must have been derived during normalization.
func (a *Aggregator) TimeSeries(ds core.Dataset, interval time.Duration) ([]core.TimePoint, error) {
	if !ds.HasTimestamps {
		return nil, core.ErrNoTimestamps
	}
	if interval != time.Minute && !hasInterval(ds.Intervals, interval) {
		return nil, fmt.Errorf("%w: %s", core.ErrUnknownInterval, interval)
	}

	type counts struct{ total, matching int }
	byTime := make(map[time.Time]*counts)
	for _, tx := range ds.Transactions {
		var t time.Time
		if interval == time.Minute {
			t = tx.Minute
		} else {
			bucket, ok := tx.Buckets[interval]
			if !ok {
				continue
			}
			t = bucket
		}
		c, ok := byTime[t]
		if !ok {
			c = &counts{}
			byTime[t] = c
		}
		c.total++
		if a.matches(tx) {
			c.matching++
		}
	}

	points := make([]core.TimePoint, 0, len(byTime))
	for t, c := range byTime {
		points = append(points, core.TimePoint{
			Time:                 t,
			TotalTransactions:    c.total,
			MatchingTransactions: c.matching,
			Ratio:                core.Ratio(c.matching, c.total),
		})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Time.Before(points[j].Time) })
	return points, nil
}

func (a *Aggregator) matches(tx core.Transaction) bool {
	return tx.Status == a.policy.TargetLabel
}

// keyPart is one component of a group key. Amount buckets sort numerically.
type keyPart struct {
	text    string
	num     decimal.Decimal
	numeric bool
}

func (p keyPart) compare(o keyPart) int {
	if p.numeric && o.numeric {
		return p.num.Cmp(o.num)
	}
	return strings.Compare(p.text, o.text)
}

type accumulator struct {
	parts    []keyPart
	total    int
	matching int
	amount   decimal.Decimal
}

func (a *Aggregator) keyOf(tx core.Transaction, dim core.Dimension) (keyPart, bool) {
	if dim.IsAmount() {
		b, ok := tx.AmountBucket(a.width)
		if !ok {
			return keyPart{}, false
		}
		return keyPart{text: b.String(), num: b, numeric: true}, true
	}
	v, ok := tx.Value(dim)
	if !ok {
		return keyPart{}, false
	}
	return keyPart{text: v}, true
}

// group runs the shared aggregation. Rows missing any key value are skipped
// and the result is ordered by key.
func (a *Aggregator) group(ds core.Dataset, dims []core.Dimension) []core.GroupSummary {
	accs := make(map[string]*accumulator)
	parts := make([]keyPart, len(dims))
	var sb strings.Builder

rows:
	for _, tx := range ds.Transactions {
		sb.Reset()
		for i, d := range dims {
			p, ok := a.keyOf(tx, d)
			if !ok {
				continue rows
			}
			parts[i] = p
			if i > 0 {
				sb.WriteByte(0x1f)
			}
			sb.WriteString(p.text)
		}
		key := sb.String()
		acc, ok := accs[key]
		if !ok {
			acc = &accumulator{parts: append([]keyPart(nil), parts...)}
			accs[key] = acc
		}
		acc.total++
		if a.matches(tx) {
			acc.matching++
		}
		if tx.AmountEUR.Valid {
			acc.amount = acc.amount.Add(tx.AmountEUR.Decimal)
		}
	}

	ordered := make([]*accumulator, 0, len(accs))
	for _, acc := range accs {
		ordered = append(ordered, acc)
	}
	sort.Slice(ordered, func(i, j int) bool {
		for k := range ordered[i].parts {
			if c := ordered[i].parts[k].compare(ordered[j].parts[k]); c != 0 {
				return c < 0
			}
		}
		return false
	})

	out := make([]core.GroupSummary, 0, len(ordered))
	for _, acc := range ordered {
		keys := make([]string, len(acc.parts))
		for i, p := range acc.parts {
			keys[i] = p.text
		}
		out = append(out, core.GroupSummary{
			Keys:                 keys,
			TotalTransactions:    acc.total,
			MatchingTransactions: acc.matching,
			Ratio:                core.Ratio(acc.matching, acc.total),
			TotalAmountEUR:       acc.amount,
		})
	}
	return out
}

// byRatio drops groups without a match and stably sorts the rest by ratio.
func byRatio(groups []core.GroupSummary) []core.GroupSummary {
	out := make([]core.GroupSummary, 0, len(groups))
	for _, g := range groups {
		if g.MatchingTransactions > 0 {
			out = append(out, g)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Ratio < out[j].Ratio })
	return out
}

func hasInterval(intervals []time.Duration, d time.Duration) bool {
	for _, iv := range intervals {
		if iv == d {
			return true
		}
	}
	return false
}

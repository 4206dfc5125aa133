package analytics

import (
	"net/url"
	"sort"
	"strings"

	"txdash/internal/core"
)

// Filter narrows a dataset before aggregation. Zero dates disable the
// corresponding bound. A nil set disables that filter; a non-nil set keeps
// only rows whose value is in it, so rows missing the value are dropped.
type Filter struct {
	From           core.Date
	To             core.Date
	Currencies     []string
	PaymentMethods []string
}

// IsZero reports whether the filter keeps every row.
func (f Filter) IsZero() bool {
	return f.From.IsEmpty() && f.To.IsEmpty() && f.Currencies == nil && f.PaymentMethods == nil
}

// Apply returns a dataset view holding the matching transactions. The input
// is not modified. Date bounds are ignored for datasets without timestamps.
func (f Filter) Apply(ds core.Dataset) core.Dataset {
	if f.IsZero() {
		return ds
	}
	currencies := toSet(f.Currencies)
	methods := toSet(f.PaymentMethods)
	checkDates := ds.HasTimestamps && (!f.From.IsEmpty() || !f.To.IsEmpty())

	out := make([]core.Transaction, 0, len(ds.Transactions))
	for _, tx := range ds.Transactions {
		if checkDates {
			if !f.From.IsEmpty() && tx.Date.Before(f.From.Time) {
				continue
			}
			if !f.To.IsEmpty() && tx.Date.After(f.To.Time) {
				continue
			}
		}
		if currencies != nil && !inSet(currencies, tx, core.DimCurrency) {
			continue
		}
		if methods != nil && !inSet(methods, tx, core.DimPaymentMethod) {
			continue
		}
		out = append(out, tx)
	}
	return core.Dataset{
		Transactions:  out,
		HasTimestamps: ds.HasTimestamps,
		Intervals:     ds.Intervals,
	}
}

// Key is a canonical representation of the filter, stable across value order.
func (f Filter) Key() string {
	v := url.Values{}
	if !f.From.IsEmpty() {
		v.Set("from", f.From.String())
	}
	if !f.To.IsEmpty() {
		v.Set("to", f.To.String())
	}
	if f.Currencies != nil {
		v["currency"] = sortedCopy(f.Currencies)
	}
	if f.PaymentMethods != nil {
		v["payment_method"] = sortedCopy(f.PaymentMethods)
	}
	return v.Encode()
}

// Distinct returns the sorted distinct values of dim present in the dataset.
func Distinct(ds core.Dataset, dim core.Dimension) []string {
	seen := make(map[string]struct{})
	for _, tx := range ds.Transactions {
		if v, ok := tx.Value(dim); ok {
			seen[v] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// DateRange returns the first and last calendar day in the dataset.
func DateRange(ds core.Dataset) (from, to core.Date, ok bool) {
	if !ds.HasTimestamps {
		return core.Date{}, core.Date{}, false
	}
	for _, tx := range ds.Transactions {
		if !ok || tx.Date.Before(from.Time) {
			from = tx.Date
		}
		if !ok || tx.Date.After(to.Time) {
			to = tx.Date
		}
		ok = true
	}
	return from, to, ok
}

func toSet(values []string) map[string]struct{} {
	if values == nil {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[strings.TrimSpace(v)] = struct{}{}
	}
	return set
}

func inSet(set map[string]struct{}, tx core.Transaction, dim core.Dimension) bool {
	v, ok := tx.Value(dim)
	if !ok {
		return false
	}
	_, found := set[v]
	return found
}

// sortedCopy keeps an empty set distinguishable from no filter in Key.
func sortedCopy(values []string) []string {
	if len(values) == 0 {
		return []string{""}
	}
	out := append([]string{}, values...)
	sort.Strings(out)
	return out
}

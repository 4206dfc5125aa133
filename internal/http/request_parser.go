package http

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"txdash/internal/analytics"
	"txdash/internal/core"
	"txdash/internal/dashboard"
)

// errBadFilter marks malformed filter parameters.
var errBadFilter = errors.New("invalid filter")

// Query parameter names.
const (
	paramDimension     = "dim"
	paramCountry       = "country"
	paramInterval      = "interval"
	paramFrom          = "from"
	paramTo            = "to"
	paramCurrency      = "currency"
	paramPaymentMethod = "payment_method"
)

// ParseFilter reads the dataset filter from query parameters. A repeated
// currency or payment_method parameter selects a set; sending the parameter
// with only empty values selects the empty set.
func ParseFilter(q url.Values) (analytics.Filter, error) {
	var f analytics.Filter

	if v := strings.TrimSpace(q.Get(paramFrom)); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return analytics.Filter{}, fmt.Errorf("%w: from %q: %w", errBadFilter, v, err)
		}
		f.From = d
	}
	if v := strings.TrimSpace(q.Get(paramTo)); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return analytics.Filter{}, fmt.Errorf("%w: to %q: %w", errBadFilter, v, err)
		}
		f.To = d
	}
	if !f.From.IsEmpty() && !f.To.IsEmpty() && f.From.After(f.To.Time) {
		return analytics.Filter{}, fmt.Errorf("%w: from %s is after to %s", errBadFilter, f.From, f.To)
	}

	f.Currencies = parseSet(q, paramCurrency)
	f.PaymentMethods = parseSet(q, paramPaymentMethod)
	return f, nil
}

// parseSet returns nil when the parameter is absent and a non-nil slice otherwise.
func parseSet(q url.Values, key string) []string {
	raw, ok := q[key]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// ParseDimension reads the single grouping dimension, falling back to def.
func ParseDimension(q url.Values, def core.Dimension) (core.Dimension, error) {
	v := strings.TrimSpace(q.Get(paramDimension))
	if v == "" {
		return def, nil
	}
	return core.ParseDimension(v)
}

// ParsePair reads the repeated dim parameter. Without any, def is used.
// The count is checked by the aggregator.
func ParsePair(q url.Values, def []core.Dimension) ([]core.Dimension, error) {
	raw := q[paramDimension]
	if len(raw) == 0 {
		return append([]core.Dimension(nil), def...), nil
	}
	dims := make([]core.Dimension, 0, len(raw))
	for _, v := range raw {
		d, err := core.ParseDimension(strings.TrimSpace(v))
		if err != nil {
			return nil, err
		}
		dims = append(dims, d)
	}
	return dims, nil
}

// ParseCountry maps country=issuer|shopper (or the ISO3 column name) to a
// country dimension. Issuer is the default.
func ParseCountry(q url.Values) (core.Dimension, error) {
	switch v := strings.ToLower(strings.TrimSpace(q.Get(paramCountry))); v {
	case "", "issuer", string(core.DimIssuerCountryISO3):
		return core.DimIssuerCountryISO3, nil
	case "shopper", string(core.DimShopperCountryISO3):
		return core.DimShopperCountryISO3, nil
	default:
		return "", fmt.Errorf("%w: country %q", core.ErrUnknownDimension, v)
	}
}

// ParseInterval reads a Go duration such as 10m. Zero means the variant default.
func ParseInterval(q url.Values) (time.Duration, error) {
	v := strings.TrimSpace(q.Get(paramInterval))
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%w: %q", core.ErrUnknownInterval, v)
	}
	return d, nil
}

// panelKey identifies one panel request independent of parameter order.
func panelKey(generation uint64, v dashboard.Variant, kind string, selector string, f analytics.Filter) string {
	return fmt.Sprintf("%d|%s|%s|%s|%s", generation, v.Name, kind, selector, f.Key())
}

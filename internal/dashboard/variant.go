// Package dashboard holds the two presentation variants built on the shared
// normalization and aggregation core, and turns summary rows into Plotly figures.
package dashboard

import (
	"fmt"
	"time"

	"txdash/internal/analytics"
	"txdash/internal/core"
)

const (
	VariantFraud    = "fraud"
	VariantApproval = "approval"
)

// ColorScales picks the choropleth palettes for one country dimension.
// An empty Count means the variant renders only the ratio map.
type ColorScales struct {
	Ratio string
	Count string
}

// Variant describes one dashboard: which label it counts and how it renders.
type Variant struct {
	Name  string
	Title string
	// Heading is the page header shown above the panels.
	Heading string

	Policy analytics.Policy

	RatioLabel string
	CountLabel string
	// CountTitle prefixes the count chart titles, e.g. "Fraud Count".
	CountTitle string
	// IntervalTitle formats the time-series title suffix from a number of minutes.
	IntervalTitle string

	Interval        time.Duration
	TimeSeriesCount bool
	Filters         bool
	Pairs           bool
	Tables          bool

	DefaultDimension core.Dimension
	DefaultPair      []core.Dimension

	Geo map[core.Dimension]ColorScales
}

// FraudVariant counts FRAUD outcomes.
func FraudVariant(bucketWidth int64, interval time.Duration) Variant {
	return Variant{
		Name:          VariantFraud,
		Title:         "Fraud Detection Dashboard",
		Heading:       "Fraud Transaction Analysis Dashboard",
		Policy:        analytics.Policy{TargetLabel: core.LabelFraud, AmountBucketWidth: bucketWidth},
		RatioLabel:    "Fraud Ratio",
		CountLabel:    "Fraud Transactions",
		CountTitle:    "Fraud Count",
		IntervalTitle: "(%d-Minute Intervals)",
		Interval:      interval,

		DefaultDimension: core.DimPaymentMethod,
		DefaultPair:      []core.Dimension{core.DimPaymentMethod, core.DimCurrency},

		Geo: map[core.Dimension]ColorScales{
			core.DimIssuerCountryISO3:  {Ratio: "Reds"},
			core.DimShopperCountryISO3: {Ratio: "Reds"},
		},
	}
}

// ApprovalVariant counts APPROVED outcomes and exposes dataset filters.
func ApprovalVariant(bucketWidth int64, interval time.Duration) Variant {
	return Variant{
		Name:            VariantApproval,
		Title:           "Transaction Dashboard",
		Heading:         "Transaction Dashboard",
		Policy:          analytics.Policy{TargetLabel: core.LabelApproved, AmountBucketWidth: bucketWidth},
		RatioLabel:      "Approval Ratio",
		CountLabel:      "Approved Transactions",
		CountTitle:      "Approved Transactions Count",
		IntervalTitle:   "(Per %d Minutes)",
		Interval:        interval,
		TimeSeriesCount: true,
		Filters:         true,
		Pairs:           true,
		Tables:          true,

		DefaultDimension: core.DimPaymentMethod,
		DefaultPair:      []core.Dimension{core.DimPaymentMethod, core.DimCurrency},

		Geo: map[core.Dimension]ColorScales{
			core.DimIssuerCountryISO3:  {Ratio: "Blues", Count: "Purples"},
			core.DimShopperCountryISO3: {Ratio: "Greens", Count: "Oranges"},
		},
	}
}

func (v Variant) intervalSuffix(interval time.Duration) string {
	return fmt.Sprintf(v.IntervalTitle, int(interval/time.Minute))
}

// dimensionTitle is how a grouping dimension appears in chart titles.
func dimensionTitle(d core.Dimension) string {
	if d.IsAmount() {
		return "Amount Bucket (EUR)"
	}
	return string(d)
}

// countryTitle turns issuer_country_alpha3 into "Issuer Country".
func countryTitle(d core.Dimension) string {
	switch d {
	case core.DimIssuerCountryISO3:
		return "Issuer Country"
	case core.DimShopperCountryISO3:
		return "Shopper Country"
	}
	return string(d)
}

// FormatInterval renders whole-minute intervals as "10m" and anything else
// the way time.Duration does. Both forms parse with time.ParseDuration.
func FormatInterval(d time.Duration) string {
	if d > 0 && d%time.Minute == 0 {
		return fmt.Sprintf("%dm", int(d/time.Minute))
	}
	return d.String()
}

package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Dataset column names that are not grouping dimensions.
const (
	ColCreationDate     = "creation_date"
	ColAmount           = "amount"
	ColAcquirerResponse = "acquirer_response"
)

// Outcome labels used by the dashboards.
const (
	LabelFraud    = "FRAUD"
	LabelApproved = "APPROVED"
)

type (
	// Date is a calendar day in UTC.
	Date struct {
		time.Time
	}

	// RawRecord is one row of the source table keyed by column name.
	// Absent or blank cells are missing values.
	RawRecord map[string]string

	// RawTable is the tabular dataset as produced by a source.
	RawTable struct {
		Columns []string
		Rows    []RawRecord
	}

	// Transaction is a cleaned dataset row plus its derived attributes.
	Transaction struct {
		Timestamp time.Time
		Date      Date
		Minute    time.Time
		Buckets   map[time.Duration]time.Time

		Amount    decimal.NullDecimal
		AmountEUR decimal.NullDecimal

		IssuerCountryISO3  string
		ShopperCountryISO3 string

		// Status is the acquirer response, e.g. FRAUD or APPROVED.
		Status string

		// Attributes holds the categorical descriptor columns. Missing values are absent.
		Attributes map[Dimension]string
	}

	// Dataset is the normalized, read-only transaction table.
	Dataset struct {
		Transactions  []Transaction
		HasTimestamps bool
		Intervals     []time.Duration
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t in UTC.
func DateOf(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// IsEmpty returns true if the date is zero
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(time.DateOnly)
}

// Get returns the trimmed cell value and whether it is present.
func (r RawRecord) Get(col string) (string, bool) {
	v, ok := r[col]
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

// HasColumn reports whether the table header contains col.
func (t RawTable) HasColumn(col string) bool {
	for _, c := range t.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// Value returns the grouping value of the transaction for d.
// The amount dimension has no categorical value; use AmountBucket instead.
func (t Transaction) Value(d Dimension) (string, bool) {
	switch d {
	case DimAmountEUR:
		return "", false
	case DimIssuerCountryISO3:
		return t.IssuerCountryISO3, t.IssuerCountryISO3 != ""
	case DimShopperCountryISO3:
		return t.ShopperCountryISO3, t.ShopperCountryISO3 != ""
	}
	v, ok := t.Attributes[d]
	return v, ok && v != ""
}

// Currency returns the original ISO currency code of the amount.
func (t Transaction) Currency() string {
	return t.Attributes[DimCurrency]
}

// AmountBucket floors the converted amount to a multiple of width.
func (t Transaction) AmountBucket(width decimal.Decimal) (decimal.Decimal, bool) {
	if !t.AmountEUR.Valid || !width.IsPositive() {
		return decimal.Decimal{}, false
	}
	return t.AmountEUR.Decimal.Div(width).Floor().Mul(width), true
}

// ParseAmount parses a decimal amount accepting dot or comma separators.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	if !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	return d, nil
}

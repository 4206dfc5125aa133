package normalize

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"txdash/internal/core"
)

func table(withTimestamps bool, rows ...core.RawRecord) core.RawTable {
	cols := []string{"amount", "currency", "issuer_country", "shopper_country", "acquirer_response", "payment_method"}
	if withTimestamps {
		cols = append(cols, core.ColCreationDate)
	}
	return core.RawTable{Columns: cols, Rows: rows}
}

func TestNormalize_DropsRows(t *testing.T) {
	n := New(Options{})
	tbl := table(true,
		core.RawRecord{"creation_date": "2024-05-01 10:17:45", "acquirer_response": "FRAUD", "amount": "100", "currency": "USD"},
		core.RawRecord{"creation_date": "not a date", "acquirer_response": "FRAUD"},
		core.RawRecord{"creation_date": "", "acquirer_response": "APPROVED"},
		core.RawRecord{"creation_date": "2024-05-01 10:20:00", "acquirer_response": ""},
		core.RawRecord{"creation_date": "2024-05-01 10:21:00"},
	)

	ds, stats := n.Normalize(context.Background(), tbl)

	require.Len(t, ds.Transactions, 1)
	assert.True(t, ds.HasTimestamps)
	assert.Equal(t, 5, stats.Input)
	assert.Equal(t, 2, stats.DroppedTimestamp)
	assert.Equal(t, 2, stats.DroppedStatus)
	assert.Equal(t, 1, stats.Output)
}

func TestNormalize_NoTimestampColumn(t *testing.T) {
	n := New(Options{})
	tbl := table(false,
		core.RawRecord{"acquirer_response": "FRAUD", "payment_method": "card"},
		core.RawRecord{"acquirer_response": "APPROVED", "creation_date": "garbage"},
	)

	ds, stats := n.Normalize(context.Background(), tbl)

	assert.False(t, ds.HasTimestamps)
	assert.Len(t, ds.Transactions, 2)
	assert.Zero(t, stats.DroppedTimestamp)
	assert.True(t, ds.Transactions[0].Timestamp.IsZero())
	assert.Nil(t, ds.Transactions[0].Buckets)
}

func TestNormalize_DerivedAttributes(t *testing.T) {
	n := New(Options{Intervals: []time.Duration{30 * time.Minute, 10 * time.Minute, 10 * time.Minute}})
	tbl := table(true, core.RawRecord{
		"creation_date":     "2024-05-01T10:47:45Z",
		"acquirer_response": "APPROVED",
		"amount":            "100",
		"currency":          "USD",
		"issuer_country":    "NL",
		"shopper_country":   "ZZ",
		"payment_method":    "card",
	})

	ds, stats := n.Normalize(context.Background(), tbl)
	require.Len(t, ds.Transactions, 1)
	tx := ds.Transactions[0]

	assert.Equal(t, []time.Duration{10 * time.Minute, 30 * time.Minute}, ds.Intervals)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 47, 0, 0, time.UTC), tx.Minute)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 40, 0, 0, time.UTC), tx.Buckets[10*time.Minute])
	assert.Equal(t, time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC), tx.Buckets[30*time.Minute])
	assert.Equal(t, core.NewDate(2024, 5, 1), tx.Date)

	assert.Equal(t, "NLD", tx.IssuerCountryISO3)
	assert.Empty(t, tx.ShopperCountryISO3)
	assert.Equal(t, 1, stats.UnknownShopperCountry)

	require.True(t, tx.AmountEUR.Valid)
	assert.Equal(t, "91.60", tx.AmountEUR.Decimal.StringFixed(2))
	assert.Equal(t, "card", tx.Attributes[core.DimPaymentMethod])
}

func TestNormalize_UnknownCurrencyKeepsRow(t *testing.T) {
	n := New(Options{})
	tbl := table(false,
		core.RawRecord{"acquirer_response": "FRAUD", "amount": "100", "currency": "XYZ"},
		core.RawRecord{"acquirer_response": "FRAUD", "amount": "abc", "currency": "EUR"},
		core.RawRecord{"acquirer_response": "FRAUD", "amount": "42.5", "currency": "EUR"},
	)

	ds, stats := n.Normalize(context.Background(), tbl)

	require.Len(t, ds.Transactions, 3)
	assert.False(t, ds.Transactions[0].AmountEUR.Valid)
	assert.True(t, ds.Transactions[0].Amount.Valid)
	assert.False(t, ds.Transactions[1].AmountEUR.Valid)
	assert.True(t, ds.Transactions[2].AmountEUR.Valid)
	assert.Equal(t, "42.5", ds.Transactions[2].AmountEUR.Decimal.String())
	assert.Equal(t, 2, stats.UndefinedAmount)
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2024-05-01 10:17:45", time.Date(2024, 5, 1, 10, 17, 45, 0, time.UTC), true},
		{"2024-05-01 10:17:45.250", time.Date(2024, 5, 1, 10, 17, 45, 250e6, time.UTC), true},
		{"2024-05-01T10:17:45+02:00", time.Date(2024, 5, 1, 8, 17, 45, 0, time.UTC), true},
		{"2024-05-01", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), true},
		{"05/01/2024 10:17", time.Date(2024, 5, 1, 10, 17, 0, 0, time.UTC), true},
		{"yesterday", time.Time{}, false},
		{"2024-13-01", time.Time{}, false},
		{"", time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseTimestamp(tt.in)
			require.Equal(t, tt.ok, ok)
			assert.True(t, tt.want.Equal(got), "got %v", got)
		})
	}
}

func TestFloorTime(t *testing.T) {
	ts := time.Date(2024, 5, 1, 23, 59, 59, 999, time.UTC)
	assert.Equal(t, time.Date(2024, 5, 1, 23, 50, 0, 0, time.UTC), FloorTime(ts, 10*time.Minute))
	assert.Equal(t, time.Date(2024, 5, 1, 23, 30, 0, 0, time.UTC), FloorTime(ts, 30*time.Minute))
	assert.Equal(t, time.Date(2024, 5, 1, 23, 59, 0, 0, time.UTC), FloorTime(ts, time.Minute))
}

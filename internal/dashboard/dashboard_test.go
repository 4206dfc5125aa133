package dashboard

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"txdash/internal/analytics"
	"txdash/internal/core"
)

func registry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry(FraudVariant(50, 10*time.Minute), ApprovalVariant(20, 10*time.Minute))
	require.NoError(t, err)
	return r
}

func dataset() core.Dataset {
	at := time.Date(2024, 5, 1, 10, 12, 0, 0, time.UTC)
	mk := func(status, method, currency, issuer string, minutes int) core.Transaction {
		ts := at.Add(time.Duration(minutes) * time.Minute)
		return core.Transaction{
			Status:            status,
			Timestamp:         ts,
			Date:              core.DateOf(ts),
			Minute:            ts,
			Buckets:           map[time.Duration]time.Time{10 * time.Minute: ts.Truncate(10 * time.Minute)},
			IssuerCountryISO3: issuer,
			Attributes: map[core.Dimension]string{
				core.DimPaymentMethod: method,
				core.DimCurrency:      currency,
			},
		}
	}
	return core.Dataset{
		HasTimestamps: true,
		Intervals:     []time.Duration{10 * time.Minute},
		Transactions: []core.Transaction{
			mk("FRAUD", "card", "EUR", "NLD", 0),
			mk("APPROVED", "card", "USD", "NLD", 3),
			mk("FRAUD", "wallet", "EUR", "DEU", 15),
			mk("APPROVED", "wallet", "USD", "", 40),
		},
	}
}

func TestRegistry_Lookup(t *testing.T) {
	r := registry(t)

	d, err := r.Lookup(VariantFraud)
	require.NoError(t, err)
	assert.Equal(t, core.LabelFraud, d.Variant.Policy.TargetLabel)

	_, err = r.Lookup("nope")
	assert.True(t, errors.Is(err, core.ErrUnknownVariant))

	assert.Len(t, r.All(), 2)

	_, err = NewRegistry(FraudVariant(50, 0), FraudVariant(20, 0))
	assert.Error(t, err)

	_, err = NewRegistry(FraudVariant(0, 0))
	assert.Error(t, err)
}

func TestSingle_TitlesAndValues(t *testing.T) {
	r := registry(t)
	ds := dataset()

	fraud, _ := r.Lookup(VariantFraud)
	p, err := fraud.Single(ds, analytics.Filter{}, core.DimPaymentMethod)
	require.NoError(t, err)
	require.Len(t, p.Figures, 2)
	assert.Equal(t, "Fraud Ratio by payment_method", p.Figures[0].Layout.Title.Text)
	assert.Equal(t, "Fraud Count by payment_method", p.Figures[1].Layout.Title.Text)
	assert.Equal(t, ".0%", p.Figures[0].Layout.YAxis.TickFormat)
	assert.Equal(t, []any{"card", "wallet"}, p.Figures[0].Data[0].X)
	assert.Equal(t, []any{0.5, 0.5}, p.Figures[0].Data[0].Y)
	assert.Equal(t, []any{1, 1}, p.Figures[1].Data[0].Y)

	approval, _ := r.Lookup(VariantApproval)
	p, err = approval.Single(ds, analytics.Filter{}, core.DimAmountEUR)
	require.NoError(t, err)
	assert.Equal(t, "Approval Ratio by Amount Bucket (EUR)", p.Figures[0].Layout.Title.Text)
	assert.Equal(t, "Approved Transactions Count by Amount Bucket (EUR)", p.Figures[1].Layout.Title.Text)
	assert.Empty(t, p.Rows, "no converted amounts")
}

func TestSingle_Filtered(t *testing.T) {
	approval, _ := registry(t).Lookup(VariantApproval)

	p, err := approval.Single(dataset(), analytics.Filter{Currencies: []string{"USD"}}, core.DimPaymentMethod)
	require.NoError(t, err)
	require.Len(t, p.Rows, 2)
	for _, row := range p.Rows {
		assert.Equal(t, 1, row.TotalTransactions)
		assert.Equal(t, 1.0, row.Ratio)
	}
}

func TestPair_GroupedBars(t *testing.T) {
	approval, _ := registry(t).Lookup(VariantApproval)

	p, err := approval.Pair(dataset(), analytics.Filter{}, []core.Dimension{core.DimPaymentMethod, core.DimCurrency})
	require.NoError(t, err)
	require.Len(t, p.Figures, 2)
	assert.Equal(t, "group", p.Figures[0].Layout.BarMode)
	assert.Equal(t, "Approval Ratio by payment_method and currency", p.Figures[0].Layout.Title.Text)

	require.Len(t, p.Figures[0].Data, 2)
	assert.Equal(t, "EUR", p.Figures[0].Data[0].Name)
	assert.Equal(t, []any{"card", "wallet"}, p.Figures[0].Data[0].X)
	assert.Equal(t, "USD", p.Figures[0].Data[1].Name)

	_, err = approval.Pair(dataset(), analytics.Filter{}, []core.Dimension{core.DimCurrency})
	assert.True(t, errors.Is(err, core.ErrInvalidSelection))
}

func TestGeo_ColorScales(t *testing.T) {
	r := registry(t)
	ds := dataset()

	fraud, _ := r.Lookup(VariantFraud)
	p, err := fraud.Geo(ds, analytics.Filter{}, core.DimIssuerCountryISO3)
	require.NoError(t, err)
	require.Len(t, p.Figures, 1)
	assert.Equal(t, "Reds", p.Figures[0].Data[0].ColorScale)
	assert.Equal(t, "ISO-3", p.Figures[0].Data[0].LocationMode)
	assert.Equal(t, "Fraud Ratio by Issuer Country", p.Figures[0].Layout.Title.Text)
	assert.Equal(t, []string{"DEU", "NLD"}, p.Figures[0].Data[0].Locations)

	approval, _ := r.Lookup(VariantApproval)
	p, err = approval.Geo(ds, analytics.Filter{}, core.DimShopperCountryISO3)
	require.NoError(t, err)
	require.Len(t, p.Figures, 2)
	assert.Equal(t, "Greens", p.Figures[0].Data[0].ColorScale)
	assert.Equal(t, "Oranges", p.Figures[1].Data[0].ColorScale)
	assert.Equal(t, "Approved Transactions Count by Shopper Country", p.Figures[1].Layout.Title.Text)
}

func TestTimeSeries(t *testing.T) {
	r := registry(t)
	ds := dataset()

	fraud, _ := r.Lookup(VariantFraud)
	p, err := fraud.TimeSeries(ds, analytics.Filter{}, 0)
	require.NoError(t, err)
	require.Len(t, p.Figures, 1)
	assert.Equal(t, "Fraud Ratio Over Time (10-Minute Intervals)", p.Figures[0].Layout.Title.Text)
	assert.Equal(t, []any{"2024-05-01T10:10:00Z", "2024-05-01T10:20:00Z", "2024-05-01T10:50:00Z"}, p.Figures[0].Data[0].X)

	approval, _ := r.Lookup(VariantApproval)
	p, err = approval.TimeSeries(ds, analytics.Filter{}, 10*time.Minute)
	require.NoError(t, err)
	require.Len(t, p.Figures, 2)
	assert.Equal(t, "Approved Transactions Count Over Time (Per 10 Minutes)", p.Figures[1].Layout.Title.Text)

	_, err = approval.TimeSeries(ds, analytics.Filter{}, 30*time.Minute)
	assert.True(t, errors.Is(err, core.ErrUnknownInterval))
}

func TestOptions(t *testing.T) {
	r := registry(t)
	ds := dataset()

	approval, _ := r.Lookup(VariantApproval)
	opts := approval.Options(ds)
	assert.Len(t, opts.Dimensions, len(core.GroupingDimensions))
	assert.Equal(t, []string{"1m", "10m"}, opts.Intervals)
	assert.Equal(t, "10m", opts.DefaultInterval)
	assert.Equal(t, []string{"EUR", "USD"}, opts.Currencies)
	assert.Equal(t, "2024-05-01", opts.From)
	assert.Equal(t, "2024-05-01", opts.To)

	fraud, _ := r.Lookup(VariantFraud)
	assert.Nil(t, fraud.Options(ds).Currencies)
}

func TestFigureJSON(t *testing.T) {
	fraud, _ := registry(t).Lookup(VariantFraud)
	p, err := fraud.Geo(dataset(), analytics.Filter{}, core.DimIssuerCountryISO3)
	require.NoError(t, err)

	raw, err := json.Marshal(p.Figures[0])
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	data := decoded["data"].([]any)[0].(map[string]any)
	assert.Equal(t, "choropleth", data["type"])
	assert.Equal(t, "Reds", data["colorscale"])
	layout := decoded["layout"].(map[string]any)
	assert.Equal(t, false, layout["geo"].(map[string]any)["showframe"])
}

func TestFormatInterval(t *testing.T) {
	assert.Equal(t, "10m", FormatInterval(10*time.Minute))
	assert.Equal(t, "90m", FormatInterval(90*time.Minute))
	assert.Equal(t, "30s", FormatInterval(30*time.Second))
}

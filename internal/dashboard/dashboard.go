package dashboard

import (
	"fmt"
	"time"

	"txdash/internal/analytics"
	"txdash/internal/core"
)

// Panel is what one dashboard section renders: its figures and the rows behind them.
type Panel struct {
	Figures []Figure            `json:"figures"`
	Rows    []core.GroupSummary `json:"rows,omitempty"`
	Points  []core.TimePoint    `json:"points,omitempty"`
}

// Options lists the values the dashboard widgets can offer for a dataset.
type Options struct {
	Variant          string   `json:"variant"`
	Dimensions       []string `json:"dimensions"`
	DefaultDimension string   `json:"default_dimension"`
	DefaultPair      []string `json:"default_pair"`
	Countries        []string `json:"countries"`
	Intervals        []string `json:"intervals,omitempty"`
	DefaultInterval  string   `json:"default_interval,omitempty"`
	Currencies       []string `json:"currencies,omitempty"`
	PaymentMethods   []string `json:"payment_methods,omitempty"`
	From             string   `json:"from,omitempty"`
	To               string   `json:"to,omitempty"`
}

// Dashboard binds a variant to its aggregator.
type Dashboard struct {
	Variant Variant
	agg     *analytics.Aggregator
}

// New validates the variant policy and builds its aggregator.
func New(v Variant) (*Dashboard, error) {
	agg, err := analytics.New(v.Policy)
	if err != nil {
		return nil, fmt.Errorf("variant %s: %w", v.Name, err)
	}
	if v.Interval <= 0 {
		v.Interval = 10 * time.Minute
	}
	return &Dashboard{Variant: v, agg: agg}, nil
}

// Single renders the ratio and count bars for one grouping dimension.
func (d *Dashboard) Single(ds core.Dataset, f analytics.Filter, dim core.Dimension) (Panel, error) {
	groups, err := d.agg.ByDimension(f.Apply(ds), dim)
	if err != nil {
		return Panel{}, err
	}
	return Panel{Figures: barFigures(d.Variant, dim, groups), Rows: groups}, nil
}

// Pair renders grouped bars for an ordered pair of dimensions.
func (d *Dashboard) Pair(ds core.Dataset, f analytics.Filter, dims []core.Dimension) (Panel, error) {
	groups, err := d.agg.ByPair(f.Apply(ds), dims)
	if err != nil {
		return Panel{}, err
	}
	return Panel{Figures: groupedBarFigures(d.Variant, dims, groups), Rows: groups}, nil
}

// Geo renders the choropleths for the issuer or shopper country.
func (d *Dashboard) Geo(ds core.Dataset, f analytics.Filter, dim core.Dimension) (Panel, error) {
	groups, err := d.agg.ByCountry(f.Apply(ds), dim)
	if err != nil {
		return Panel{}, err
	}
	return Panel{Figures: choroplethFigures(d.Variant, dim, groups), Rows: groups}, nil
}

// TimeSeries renders the line charts. A zero interval uses the variant default.
func (d *Dashboard) TimeSeries(ds core.Dataset, f analytics.Filter, interval time.Duration) (Panel, error) {
	if interval == 0 {
		interval = d.Variant.Interval
	}
	points, err := d.agg.TimeSeries(f.Apply(ds), interval)
	if err != nil {
		return Panel{}, err
	}
	return Panel{Figures: lineFigures(d.Variant, interval, points), Points: points}, nil
}

// Options describes the widget choices for ds. Filter choices come from the
// unfiltered dataset so narrowing never hides an option.
func (d *Dashboard) Options(ds core.Dataset) Options {
	v := d.Variant
	opts := Options{
		Variant:          v.Name,
		DefaultDimension: v.DefaultDimension.String(),
		Countries:        []string{core.DimIssuerCountryISO3.String(), core.DimShopperCountryISO3.String()},
	}
	for _, dim := range core.GroupingDimensions {
		opts.Dimensions = append(opts.Dimensions, dim.String())
	}
	for _, dim := range v.DefaultPair {
		opts.DefaultPair = append(opts.DefaultPair, dim.String())
	}
	if ds.HasTimestamps {
		opts.DefaultInterval = FormatInterval(v.Interval)
		opts.Intervals = append(opts.Intervals, FormatInterval(time.Minute))
		for _, iv := range ds.Intervals {
			opts.Intervals = append(opts.Intervals, FormatInterval(iv))
		}
	}
	if v.Filters {
		opts.Currencies = analytics.Distinct(ds, core.DimCurrency)
		opts.PaymentMethods = analytics.Distinct(ds, core.DimPaymentMethod)
		if from, to, ok := analytics.DateRange(ds); ok {
			opts.From = from.String()
			opts.To = to.String()
		}
	}
	return opts
}

// Registry holds the configured dashboards by name.
type Registry struct {
	byName map[string]*Dashboard
	order  []*Dashboard
}

// NewRegistry builds a dashboard per variant. Names must be unique.
func NewRegistry(variants ...Variant) (*Registry, error) {
	r := &Registry{byName: make(map[string]*Dashboard, len(variants))}
	for _, v := range variants {
		if _, dup := r.byName[v.Name]; dup {
			return nil, fmt.Errorf("duplicate dashboard variant %q", v.Name)
		}
		d, err := New(v)
		if err != nil {
			return nil, err
		}
		r.byName[v.Name] = d
		r.order = append(r.order, d)
	}
	return r, nil
}

// Lookup returns the dashboard registered under name.
func (r *Registry) Lookup(name string) (*Dashboard, error) {
	d, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownVariant, name)
	}
	return d, nil
}

// All returns the dashboards in registration order.
func (r *Registry) All() []*Dashboard {
	return append([]*Dashboard(nil), r.order...)
}

package dashboard

import (
	"time"

	"txdash/internal/core"
)

// Figure is a Plotly figure serialized as {data, layout} and drawn client-side.
type Figure struct {
	Data   []Trace `json:"data"`
	Layout Layout  `json:"layout"`
}

type Trace struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
	Mode string `json:"mode,omitempty"`

	X []any `json:"x,omitempty"`
	Y []any `json:"y,omitempty"`

	Locations    []string  `json:"locations,omitempty"`
	LocationMode string    `json:"locationmode,omitempty"`
	Z            []float64 `json:"z,omitempty"`
	ColorScale   string    `json:"colorscale,omitempty"`
	ColorBar     *ColorBar `json:"colorbar,omitempty"`
}

type ColorBar struct {
	Title      *Title `json:"title,omitempty"`
	TickFormat string `json:"tickformat,omitempty"`
}

type Title struct {
	Text string `json:"text"`
}

type Axis struct {
	Title      *Title `json:"title,omitempty"`
	TickFormat string `json:"tickformat,omitempty"`
	Type       string `json:"type,omitempty"`
}

type Geo struct {
	ShowFrame      bool `json:"showframe"`
	ShowCoastlines bool `json:"showcoastlines"`
}

type Layout struct {
	Title   Title  `json:"title"`
	XAxis   *Axis  `json:"xaxis,omitempty"`
	YAxis   *Axis  `json:"yaxis,omitempty"`
	BarMode string `json:"barmode,omitempty"`
	Geo     *Geo   `json:"geo,omitempty"`
}

const percentFormat = ".0%"

func axis(label, format string) *Axis {
	return &Axis{Title: &Title{Text: label}, TickFormat: format}
}

// barFigures renders the ratio and count bar charts for a single grouping.
func barFigures(v Variant, dim core.Dimension, groups []core.GroupSummary) []Figure {
	xs := make([]any, len(groups))
	ratios := make([]any, len(groups))
	counts := make([]any, len(groups))
	for i, g := range groups {
		xs[i] = g.Key()
		ratios[i] = g.Ratio
		counts[i] = g.MatchingTransactions
	}

	xLabel := dimensionTitle(dim)
	xAxis := axis(xLabel, "")
	// keep buckets and issuer names in the order the aggregator produced
	xAxis.Type = "category"

	return []Figure{
		{
			Data: []Trace{{Type: "bar", X: xs, Y: ratios, Name: v.RatioLabel}},
			Layout: Layout{
				Title: Title{Text: v.RatioLabel + " by " + xLabel},
				XAxis: xAxis,
				YAxis: axis(v.RatioLabel, percentFormat),
			},
		},
		{
			Data: []Trace{{Type: "bar", X: xs, Y: counts, Name: v.CountLabel}},
			Layout: Layout{
				Title: Title{Text: v.CountTitle + " by " + xLabel},
				XAxis: xAxis,
				YAxis: axis(v.CountLabel, ""),
			},
		},
	}
}

// groupedBarFigures renders a pair grouping: the first dimension on the x
// axis and one trace per value of the second dimension.
func groupedBarFigures(v Variant, dims []core.Dimension, groups []core.GroupSummary) []Figure {
	var order []string
	ratioTraces := make(map[string]*Trace)
	countTraces := make(map[string]*Trace)
	for _, g := range groups {
		if len(g.Keys) != 2 {
			continue
		}
		series := g.Keys[1]
		rt, ok := ratioTraces[series]
		if !ok {
			order = append(order, series)
			rt = &Trace{Type: "bar", Name: series}
			ratioTraces[series] = rt
			countTraces[series] = &Trace{Type: "bar", Name: series}
		}
		ct := countTraces[series]
		rt.X = append(rt.X, g.Keys[0])
		rt.Y = append(rt.Y, g.Ratio)
		ct.X = append(ct.X, g.Keys[0])
		ct.Y = append(ct.Y, g.MatchingTransactions)
	}

	ratios := make([]Trace, 0, len(order))
	counts := make([]Trace, 0, len(order))
	for _, s := range order {
		ratios = append(ratios, *ratioTraces[s])
		counts = append(counts, *countTraces[s])
	}

	by := dimensionTitle(dims[0]) + " and " + dimensionTitle(dims[1])
	xAxis := axis(dimensionTitle(dims[0]), "")
	xAxis.Type = "category"
	return []Figure{
		{
			Data: ratios,
			Layout: Layout{
				Title:   Title{Text: v.RatioLabel + " by " + by},
				XAxis:   xAxis,
				YAxis:   axis(v.RatioLabel, percentFormat),
				BarMode: "group",
			},
		},
		{
			Data: counts,
			Layout: Layout{
				Title:   Title{Text: v.CountTitle + " by " + by},
				XAxis:   xAxis,
				YAxis:   axis(v.CountLabel, ""),
				BarMode: "group",
			},
		},
	}
}

// choroplethFigures renders ISO-3 keyed world maps for a country grouping.
func choroplethFigures(v Variant, dim core.Dimension, groups []core.GroupSummary) []Figure {
	scales := v.Geo[dim]
	locations := make([]string, len(groups))
	ratios := make([]float64, len(groups))
	counts := make([]float64, len(groups))
	for i, g := range groups {
		locations[i] = g.Key()
		ratios[i] = g.Ratio
		counts[i] = float64(g.MatchingTransactions)
	}

	geo := &Geo{ShowFrame: false, ShowCoastlines: false}
	figs := []Figure{{
		Data: []Trace{{
			Type:         "choropleth",
			Locations:    locations,
			LocationMode: "ISO-3",
			Z:            ratios,
			ColorScale:   scales.Ratio,
			ColorBar:     &ColorBar{Title: &Title{Text: v.RatioLabel}, TickFormat: percentFormat},
		}},
		Layout: Layout{Title: Title{Text: v.RatioLabel + " by " + countryTitle(dim)}, Geo: geo},
	}}
	if scales.Count != "" {
		figs = append(figs, Figure{
			Data: []Trace{{
				Type:         "choropleth",
				Locations:    locations,
				LocationMode: "ISO-3",
				Z:            counts,
				ColorScale:   scales.Count,
				ColorBar:     &ColorBar{Title: &Title{Text: v.CountLabel}},
			}},
			Layout: Layout{Title: Title{Text: v.CountTitle + " by " + countryTitle(dim)}, Geo: geo},
		})
	}
	return figs
}

// lineFigures renders the time series. Times are emitted in RFC 3339.
func lineFigures(v Variant, interval time.Duration, points []core.TimePoint) []Figure {
	xs := make([]any, len(points))
	ratios := make([]any, len(points))
	counts := make([]any, len(points))
	for i, p := range points {
		xs[i] = p.Time.UTC().Format(time.RFC3339)
		ratios[i] = p.Ratio
		counts[i] = p.MatchingTransactions
	}

	suffix := v.intervalSuffix(interval)
	figs := []Figure{{
		Data: []Trace{{Type: "scatter", Mode: "lines", X: xs, Y: ratios, Name: v.RatioLabel}},
		Layout: Layout{
			Title: Title{Text: v.RatioLabel + " Over Time " + suffix},
			XAxis: axis("Datetime", ""),
			YAxis: axis(v.RatioLabel, percentFormat),
		},
	}}
	if v.TimeSeriesCount {
		figs = append(figs, Figure{
			Data: []Trace{{Type: "scatter", Mode: "lines", X: xs, Y: counts, Name: v.CountLabel}},
			Layout: Layout{
				Title: Title{Text: v.CountTitle + " Over Time " + suffix},
				XAxis: axis("Datetime", ""),
				YAxis: axis(v.CountLabel, ""),
			},
		})
	}
	return figs
}

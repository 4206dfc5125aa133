package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"txdash/internal/dashboard"
	"txdash/internal/log"
	"txdash/internal/metrics"
	"txdash/internal/middleware/trace"
	"txdash/internal/normalize"
)

// Panel kinds served under /api/{variant}/.
const (
	kindSingle     = "single"
	kindPair       = "pair"
	kindGeo        = "geo"
	kindTimeSeries = "timeseries"
)

type indexData struct {
	Dashboards []dashboard.Variant
	Loaded     bool
	Source     string
	LoadedAt   time.Time
	Rows       int
}

type pageData struct {
	Variant    dashboard.Variant
	Dashboards []dashboard.Variant
}

func (s *Server) variants() []dashboard.Variant {
	all := s.dashboards.All()
	out := make([]dashboard.Variant, 0, len(all))
	for _, d := range all {
		out = append(out, d.Variant)
	}
	return out
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := indexData{Dashboards: s.variants()}
	if st := s.snapshot(); st != nil {
		data.Loaded = true
		data.Source = st.source
		data.LoadedAt = st.loadedAt
		data.Rows = st.stats.Output
	}
	s.render(w, r, "index.html", data)
}

func (s *Server) handleDashboardPage(w http.ResponseWriter, r *http.Request) {
	d, err := s.dashboards.Lookup(r.PathValue("variant"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	s.render(w, r, "dashboard.html", pageData{Variant: d.Variant, Dashboards: s.variants()})
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		http.Error(w, "templates unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template render failed",
			log.FieldOperation, log.OpRender, "template", name, log.FieldError, err)
	}
}

// handlePanel serves one aggregated panel as JSON. Responses are cached per
// dataset generation, variant, selection and filter.
func (s *Server) handlePanel(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := s.dashboards.Lookup(r.PathValue("variant"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		st := s.snapshot()
		if st == nil {
			writeError(w, r, errNotLoaded)
			return
		}

		q := r.URL.Query()
		f, err := ParseFilter(q)
		if err != nil {
			writeError(w, r, err)
			return
		}

		var (
			selector string
			compute  func() (dashboard.Panel, error)
		)
		switch kind {
		case kindSingle:
			dim, err := ParseDimension(q, d.Variant.DefaultDimension)
			if err != nil {
				writeError(w, r, err)
				return
			}
			selector = dim.String()
			compute = func() (dashboard.Panel, error) { return d.Single(st.dataset, f, dim) }
		case kindPair:
			dims, err := ParsePair(q, d.Variant.DefaultPair)
			if err != nil {
				writeError(w, r, err)
				return
			}
			for i, dim := range dims {
				if i > 0 {
					selector += ","
				}
				selector += dim.String()
			}
			compute = func() (dashboard.Panel, error) { return d.Pair(st.dataset, f, dims) }
		case kindGeo:
			dim, err := ParseCountry(q)
			if err != nil {
				writeError(w, r, err)
				return
			}
			selector = dim.String()
			compute = func() (dashboard.Panel, error) { return d.Geo(st.dataset, f, dim) }
		case kindTimeSeries:
			interval, err := ParseInterval(q)
			if err != nil {
				writeError(w, r, err)
				return
			}
			if interval == 0 {
				interval = d.Variant.Interval
			}
			selector = interval.String()
			compute = func() (dashboard.Panel, error) { return d.TimeSeries(st.dataset, f, interval) }
		}

		key := panelKey(st.generation, d.Variant, kind, selector, f)
		if body, ok := s.panels.Get(key); ok {
			metrics.CacheLookups.WithLabelValues("hit").Inc()
			w.Header().Set("X-Cache", "HIT")
			writeRawJSON(w, http.StatusOK, body)
			return
		}
		metrics.CacheLookups.WithLabelValues("miss").Inc()

		// Concurrent misses for one key share a single computation.
		v, err, _ := s.flight.Do("panel|"+key, func() (any, error) {
			start := time.Now()
			panel, err := compute()
			metrics.ObserveDuration(metrics.AggregationDuration, start, d.Variant.Name, kind)
			if err != nil {
				metrics.AggregationsTotal.WithLabelValues(d.Variant.Name, kind, "error").Inc()
				return nil, err
			}
			metrics.AggregationsTotal.WithLabelValues(d.Variant.Name, kind, "success").Inc()

			body, err := json.Marshal(panel)
			if err != nil {
				return nil, err
			}
			s.panels.Set(key, body)

			log.NewStructuredLogger(log.FromContext(r.Context())).
				LogAggregation(r.Context(), d.Variant.Name, kind, selector, time.Since(start).Milliseconds())
			return body, nil
		})
		if err != nil {
			writeError(w, r, err)
			return
		}

		w.Header().Set("X-Cache", "MISS")
		writeRawJSON(w, http.StatusOK, v.([]byte))
	}
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	d, err := s.dashboards.Lookup(r.PathValue("variant"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	st := s.snapshot()
	if st == nil {
		writeError(w, r, errNotLoaded)
		return
	}
	writeJSON(w, http.StatusOK, d.Options(st.dataset))
}

type reloadResponse struct {
	Status string          `json:"status"`
	Source string          `json:"source"`
	Stats  normalize.Stats `json:"stats"`
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	stats, err := s.Reload(ctx)
	if err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Reload failed",
			log.FieldOperation, log.OpReload, log.FieldError, err)
		writeJSON(w, http.StatusBadGateway, errorBody{
			Error:     "reload failed: " + err.Error(),
			RequestID: trace.GetRequestID(ctx),
		})
		return
	}
	writeJSON(w, http.StatusOK, reloadResponse{Status: "ok", Source: s.loader.SourceName(), Stats: stats})
}

type healthResponse struct {
	Status      string            `json:"status"`
	Timestamp   string            `json:"timestamp"`
	Uptime      string            `json:"uptime,omitempty"`
	Source      string            `json:"source,omitempty"`
	Rows        int               `json:"rows,omitempty"`
	LoadedAt    string            `json:"loaded_at,omitempty"`
	CacheSize   int               `json:"cache_size"`
	RateLimited int64             `json:"rate_limited,omitempty"`
	Clients     int               `json:"rate_limit_clients,omitempty"`
	Checks      map[string]string `json:"checks,omitempty"`
}

// handleHealth reports liveness only.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:      "ok",
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Uptime:      time.Since(s.startedAt).Round(time.Second).String(),
		CacheSize:   s.panels.Size(),
		RateLimited: s.limiter.Rejected(),
		Clients:     s.limiter.ActiveClients(),
	})
}

// handleReady checks templates, the loaded dataset and the backend.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "ready",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		CacheSize: s.panels.Size(),
		Checks:    map[string]string{},
	}
	fail := func(check string, err error) {
		resp.Status = "not_ready"
		resp.Checks[check] = "failed: " + err.Error()
	}

	if s.templates == nil {
		fail("templates", errors.New("templates not loaded"))
	} else {
		resp.Checks["templates"] = "ok"
	}

	if st := s.snapshot(); st == nil {
		fail("dataset", errNotLoaded)
	} else {
		resp.Checks["dataset"] = "ok"
		resp.Source = st.source
		resp.Rows = st.stats.Output
		resp.LoadedAt = st.loadedAt.Format(time.RFC3339)
	}

	if s.readyCheck != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.readyCheck(ctx); err != nil {
			fail("backend", err)
		} else {
			resp.Checks["backend"] = "ok"
		}
	}

	status := http.StatusOK
	if resp.Status != "ready" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

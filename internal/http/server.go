package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"txdash/internal/cache"
	"txdash/internal/core"
	"txdash/internal/dashboard"
	"txdash/internal/log"
	"txdash/internal/metrics"
	"txdash/internal/middleware/ratelimit"
	"txdash/internal/middleware/security"
	"txdash/internal/middleware/trace"
	"txdash/internal/normalize"
	appweb "txdash/web"
)

// DatasetLoader produces the normalized dataset the dashboards read.
type DatasetLoader interface {
	Load(ctx context.Context) (core.Dataset, normalize.Stats, error)
	SourceName() string
}

// Config configures the server. Zero values pick defaults.
type Config struct {
	Addr      string
	CacheSize int
	CacheTTL  time.Duration
	// ReadyCheck, if set, is consulted by /readyz (e.g. a database ping).
	ReadyCheck func(ctx context.Context) error
	Logger     *log.Logger
	// ReloadLimit caps POST requests per client per minute.
	ReloadLimit int
}

// datasetState is the loaded dataset plus what produced it. Generation
// increments on every successful load and prefixes cache keys.
type datasetState struct {
	dataset    core.Dataset
	stats      normalize.Stats
	source     string
	loadedAt   time.Time
	generation uint64
}

type Server struct {
	http.Server
	templates  *template.Template
	dashboards *dashboard.Registry
	loader     DatasetLoader
	readyCheck func(ctx context.Context) error
	logger     *log.Logger

	mu    sync.RWMutex
	state *datasetState

	panels       *cache.LRUCache[[]byte]
	cacheManager *cache.Manager
	flight       singleflight.Group
	limiter      *ratelimit.Limiter

	startedAt    time.Time
	stopReload   chan struct{}
	shutdownOnce sync.Once
}

// NewServer configures routes and templates. The dataset is loaded by
// Reload; until then the API answers 503.
func NewServer(cfg Config, dashboards *dashboard.Registry, loader DatasetLoader) *Server {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 200
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.ReloadLimit <= 0 {
		cfg.ReloadLimit = 6
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.FromContext(context.Background())
	}

	mux := http.NewServeMux()
	s := &Server{
		dashboards:   dashboards,
		loader:       loader,
		readyCheck:   cfg.ReadyCheck,
		logger:       logger.WithComponent(log.ComponentHTTP),
		panels:       cache.NewLRUCache[[]byte](cfg.CacheSize, cfg.CacheTTL),
		cacheManager: cache.NewManager(),
		limiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerWindow: cfg.ReloadLimit, Window: time.Minute}),
		startedAt:    time.Now(),
		stopReload:   make(chan struct{}),
	}
	s.panels.OnEvict(func(reason string, n int) {
		metrics.CacheEvictions.WithLabelValues(reason).Add(float64(n))
	})
	s.cacheManager.Register(s.panels)
	s.cacheManager.StartCleanup(time.Minute)

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates", log.FieldError, err)
	}
	s.templates = t

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /dash/{variant}", s.handleDashboardPage)
	mux.HandleFunc("GET /api/{variant}/single", s.handlePanel(kindSingle))
	mux.HandleFunc("GET /api/{variant}/pair", s.handlePanel(kindPair))
	mux.HandleFunc("GET /api/{variant}/geo", s.handlePanel(kindGeo))
	mux.HandleFunc("GET /api/{variant}/timeseries", s.handlePanel(kindTimeSeries))
	mux.HandleFunc("GET /api/{variant}/options", s.handleOptions)
	mux.HandleFunc("POST /reload", s.handleReload)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", metrics.Handler())

	// trace wraps the mux directly so it sees the matched pattern.
	var h http.Handler = trace.NewMiddleware(logger, security.ClientIP).Middleware(mux)
	h = s.limiter.Middleware(security.ClientIP, rateLimited, http.MethodPost)(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}
	return s
}

// Reload loads the dataset again and swaps it in. On failure the previous
// dataset stays in place. Concurrent calls share one load.
func (s *Server) Reload(ctx context.Context) (normalize.Stats, error) {
	v, err, _ := s.flight.Do("reload", func() (any, error) {
		ds, stats, err := s.loader.Load(ctx)
		if err != nil {
			return normalize.Stats{}, err
		}

		s.mu.Lock()
		gen := uint64(1)
		if s.state != nil {
			gen = s.state.generation + 1
		}
		s.state = &datasetState{
			dataset:    ds,
			stats:      stats,
			source:     s.loader.SourceName(),
			loadedAt:   time.Now().UTC(),
			generation: gen,
		}
		s.mu.Unlock()

		s.panels.Clear()
		s.logger.InfoContext(ctx, "Dataset swapped in",
			log.FieldOperation, log.OpReload,
			log.FieldSource, s.loader.SourceName(),
			log.FieldRows, stats.Output,
			"generation", gen)
		return stats, nil
	})
	if err != nil {
		return normalize.Stats{}, err
	}
	return v.(normalize.Stats), nil
}

// StartAutoReload reloads every interval until ctx is done or the server
// shuts down. Failed reloads are logged and keep the old dataset.
func (s *Server) StartAutoReload(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := s.Reload(ctx); err != nil {
					s.logger.ErrorContext(ctx, "Scheduled reload failed", log.FieldError, err)
				}
			case <-ctx.Done():
				return
			case <-s.stopReload:
				return
			}
		}
	}()
}

func rateLimited(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded"})
}

// snapshot returns the current dataset state, or nil before the first load.
func (s *Server) snapshot() *datasetState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		close(s.stopReload)
		s.cacheManager.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

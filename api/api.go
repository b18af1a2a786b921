// Package api serves substring search and statistics over the materialized
// IOC set.
package api

import (
	"context"
	"net/http"
	"time"

	"threatintel/config"

	"github.com/gorilla/mux"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	DefaultSearchLimit = 10
	MaxSearchLimit     = 100
)

// API holds the query service
type API struct {
	router      *mux.Router
	server      *http.Server
	store       *DataStore
	config      *config.Config
	logger      *zap.SugaredLogger
	searchCache *lru.Cache[string, []string]
}

// NewAPI creates the query service over store
func NewAPI(store *DataStore, config *config.Config, logger *zap.SugaredLogger) *API {
	api := &API{
		router: mux.NewRouter(),
		store:  store,
		config: config,
		logger: logger,
	}

	if size := config.API.SearchCacheSize; size > 0 {
		cache, err := lru.New[string, []string](size)
		if err != nil {
			logger.Warnf("Search cache disabled: %v", err)
		} else {
			api.searchCache = cache
		}
	}

	api.setupRoutes()
	api.server = &http.Server{
		Addr:              config.ListenAddr(),
		Handler:           api.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return api
}

// setupRoutes sets up the API routes
func (a *API) setupRoutes() {
	a.router.Use(a.requestMiddleware)
	a.router.Use(a.corsMiddleware)

	a.router.HandleFunc("/search", a.search).Methods("GET", "OPTIONS")
	a.router.HandleFunc("/stats", a.getStats).Methods("GET", "OPTIONS")
	a.router.HandleFunc("/health", a.healthCheck).Methods("GET", "OPTIONS")
	a.router.Handle("/metrics", promhttp.Handler())
}

// Handler returns the routed handler, used by tests and custom servers
func (a *API) Handler() http.Handler {
	return a.router
}

// Addr returns the listen address
func (a *API) Addr() string {
	return a.server.Addr
}

// Start starts the API server and blocks until it stops. After Stop it
// returns http.ErrServerClosed.
func (a *API) Start() error {
	a.logger.Infof("Query service listening on %s", a.server.Addr)
	return a.server.ListenAndServe()
}

// Stop gracefully shuts the server down. It is safe to call before Start.
func (a *API) Stop(ctx context.Context) error {
	return a.server.Shutdown(ctx)
}

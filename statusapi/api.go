// Package statusapi is the thin HTTP status surface spec.md §6 allows as a
// driver for a GUI backend, built the way the teacher module's api package
// builds its own JSON API: a chi router, the same CORS/Recoverer/Throttle/
// Timeout middleware stack, and JSON handlers that never render HTML or any
// other console/GUI output themselves (that remains explicitly out of
// scope, spec.md §1).
package statusapi

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/vocdoni/evote-verifier/log"
	"github.com/vocdoni/evote-verifier/runinfo"
	"github.com/vocdoni/evote-verifier/runinfo/store"
	"github.com/vocdoni/evote-verifier/trust"
)

// Config configures an API instance.
type Config struct {
	Host           string
	Port           int
	Trust          trust.Verifier
	MaxConcurrency int
	// Store, if non-nil, persists completed runs and backs GetRun lookups
	// that miss the in-memory cache (e.g. after a process restart).
	Store *store.Store
}

// API is the HTTP status surface: it exposes listVerifications and runAll
// (spec.md §6) as JSON endpoints, never rendering a report itself.
type API struct {
	router         *chi.Mux
	trust          trust.Verifier
	maxConcurrency int
	store          *store.Store

	mu      sync.Mutex
	running bool
	runs    map[string]*runinfo.RunInformation
}

// New builds an API from conf and starts listening in a background
// goroutine, mirroring the teacher's api.New.
func New(conf *Config) (*API, error) {
	if conf == nil {
		return nil, fmt.Errorf("missing API configuration")
	}
	if conf.Trust == nil {
		return nil, fmt.Errorf("missing trust verifier")
	}
	a := &API{
		trust:          conf.Trust,
		maxConcurrency: conf.MaxConcurrency,
		store:          conf.Store,
		runs:           make(map[string]*runinfo.RunInformation),
	}
	a.initRouter()
	go func() {
		log.Infow("starting status API server", "host", conf.Host, "port", conf.Port)
		addr := fmt.Sprintf("%s:%d", conf.Host, conf.Port)
		if err := http.ListenAndServe(addr, a.router); err != nil {
			log.Fatalf("failed to start the status API server: %v", err)
		}
	}()
	return a, nil
}

// Router returns the chi router, for tests.
func (a *API) Router() *chi.Mux {
	return a.router
}

func (a *API) initRouter() {
	a.router = chi.NewRouter()
	a.router.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Throttle(100))
	a.router.Use(middleware.Timeout(45 * time.Second))

	a.registerHandlers()
}

func (a *API) registerHandlers() {
	log.Infow("register handler", "endpoint", ListVerificationsEndpoint, "method", "GET")
	a.router.Get(ListVerificationsEndpoint, a.listVerifications)
	log.Infow("register handler", "endpoint", RunAllEndpoint, "method", "POST")
	a.router.Post(RunAllEndpoint, a.runAll)
	log.Infow("register handler", "endpoint", GetRunEndpoint, "method", "GET")
	a.router.Get(GetRunEndpoint, a.getRun)
}

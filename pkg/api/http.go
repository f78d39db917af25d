// Package api assembles the public router: operational endpoints first,
// then the realtime upgrade path, then the variable collection routes.
package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"copacabana/pkg/api/handlers"
	"copacabana/pkg/collection"
	"copacabana/pkg/config"
	"copacabana/pkg/realtime"
	"copacabana/pkg/telemetry"
)

// Options carries the router-level knobs derived from config.
type Options struct {
	Envelope       bool
	AllowedOrigins []string
	RateRPS        float64
	RateBurst      int
	WSPath         string
}

// OptionsFromConfig derives router options from the effective config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Envelope:       cfg.API.Envelope,
		AllowedOrigins: cfg.Security.CORS.AllowedOrigins,
		RateRPS:        cfg.Security.RateLimit.RPS,
		RateBurst:      cfg.Security.RateLimit.Burst,
		WSPath:         cfg.WSPath(),
	}
}

// NewRouter builds the full router. fixed maps extra fixed paths
// (metrics, health, docs) mounted before the collection routes. hub may
// be nil when realtime is disabled; the upgrade path is then absent.
func NewRouter(st *collection.Store, hub *realtime.Hub, opts Options, fixed map[string]http.Handler) *mux.Router {
	r := mux.NewRouter()
	r.Use(telemetry.Middleware)
	r.Use(CORS(opts.AllowedOrigins))
	r.Use(RateLimit(opts.RateRPS, opts.RateBurst))

	for path, h := range fixed {
		r.PathPrefix(path).Handler(h)
	}
	if hub != nil {
		wsPath := opts.WSPath
		if wsPath == "" {
			wsPath = "/ws"
		}
		r.Handle(wsPath, hub.Handler()).Methods(http.MethodGet)
	}
	handlers.Register(r, handlers.New(st, opts.Envelope))
	return r
}

package app

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"copacabana/pkg/api"
	"copacabana/pkg/logger"
	"copacabana/pkg/store"
)

// fixedHandlers returns the operational endpoints mounted ahead of the
// collection routes.
func (a *App) fixedHandlers() map[string]http.Handler {
	return map[string]http.Handler{
		"/healthz":      http.HandlerFunc(healthzHandler),
		"/readyz":       http.HandlerFunc(a.readyzHandler),
		"/metrics":      promhttp.Handler(),
		"/docs/":        httpSwagger.Handler(httpSwagger.URL("/openapi.yaml")),
		"/openapi.yaml": http.FileServer(http.Dir("./docs")),
	}
}

func healthzHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (a *App) readyzHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if !store.Ready() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"not ready"}`))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ready","version":"` + a.version + `"}`))
}

// startHTTP starts the HTTP server and returns a channel carrying its
// terminal error. Shutdown drains in-flight requests when ctx cancels.
func (a *App) startHTTP(ctx context.Context) <-chan error {
	router := api.NewRouter(a.collections, a.hub, api.OptionsFromConfig(a.eff.Config), a.fixedHandlers())
	srv := &http.Server{Addr: a.eff.Addr, Handler: router}

	errCh := make(chan error, 1)
	go func() {
		cert := a.eff.Config.Server.TLS.CertFile
		key := a.eff.Config.Server.TLS.KeyFile
		var err error
		logger.Info("http_listening", "addr", a.eff.Addr, "tls", cert != "" && key != "")
		if cert != "" && key != "" {
			err = srv.ListenAndServeTLS(cert, key)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutCtx); err != nil {
			logger.Error("http_shutdown_failed", "error", err)
		}
	}()
	return errCh
}

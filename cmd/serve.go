package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/chenBenjamin97/repcounter/pkg/api"
	"github.com/chenBenjamin97/repcounter/pkg/metrics"
	"github.com/chenBenjamin97/repcounter/pkg/tracking"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the web client",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) (err error) {
	a, err := newApp(true)
	if err != nil {
		return err
	}

	estimator := a.newEstimator()
	defer func() {
		err = multierr.Combine(err, estimator.Close(), a.store.Close())
	}()

	// sessions may start before the model is ready, camera sources then answer 503
	go func() {
		if loadErr := <-estimator.Load(); loadErr != nil {
			log.Errorf("serve: Error loading pose model, got '%v'", loadErr)
		}
	}()

	metricsManager := metrics.NewManager("repcounter", "server", prometheus.DefaultRegisterer)
	server := api.NewServer(api.Params{
		Config:   a.cfg,
		Catalog:  a.catalog,
		Store:    a.store,
		Metrics:  metricsManager,
		Gatherer: prometheus.DefaultGatherer,
		Sources:  a.sources(estimator),
		Model:    estimator,
	})

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpServer := &http.Server{
		Addr:              net.JoinHostPort(a.cfg.HTTP.Host, strconv.Itoa(a.cfg.HTTP.Port)),
		Handler:           server.SetRouter(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Infof("serving on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		log.Infoln("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	session, stopErr := server.StopSession(shutdownCtx)
	switch {
	case stopErr == nil:
		log.Infof("active session %s saved: %d reps", session.ID, session.Reps)
	case !errors.Is(stopErr, tracking.ErrNotRunning):
		log.Errorf("serve: Error saving active session, got '%v'", stopErr)
	}

	return httpServer.Shutdown(shutdownCtx)
}

package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ericogr/skirmish/internal/constants"
	"github.com/ericogr/skirmish/internal/logging"
	"github.com/ericogr/skirmish/internal/service"
)

const shutdownTimeout = 10 * time.Second

// serve runs the HTTP server and the battle janitor until ctx is cancelled,
// then shuts both down.
func serve(ctx context.Context, addr string, handler http.Handler, manager *service.Manager) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logging.Info("Server started", logging.Fields{constants.LogFieldAddr: addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		manager.RunJanitor(gctx, constants.JanitorInterval)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logging.Info("Shutting down", nil)
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(sctx)
		manager.Close()
		return err
	})
	return g.Wait()
}

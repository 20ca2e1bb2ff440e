package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	relay "github.com/coregx/brokerrelay"
	"github.com/coregx/brokerrelay/cmd/relay-server/internal/api"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the REST API (and the relay when MQTT_AUTO_START is set)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := bootstrap("serve")
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, a)
		},
	}
}

func runServe(ctx context.Context, a *app) error {
	var (
		handler *api.Handler
		engine  *relay.Relay
	)

	if a.cfg.MQTT.AutoStart {
		r, err := a.newRelay()
		if err != nil {
			return err
		}
		engine = r
		handler = api.NewHandler(r.Directory(), r.Messages(), r, a.logger, version)
	} else {
		repos := a.repositories()
		directory, err := relay.NewDirectory(repos.Topic, repos.User, repos.Subscription, repos.Message, a.logger)
		if err != nil {
			return err
		}
		messages, err := relay.NewMessageStore(repos.Message, a.logger)
		if err != nil {
			return err
		}
		handler = api.NewHandler(directory, messages, nil, a.logger, version)
	}

	addr := fmt.Sprintf("%s:%d", a.cfg.Server.Host, a.cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      api.NewRouter(handler, promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Infof("HTTP server listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if engine != nil {
		g.Go(func() error {
			a.logger.Infof("Relay started against %s", a.endpoint())
			return supervise(gctx, engine, a.endpoint(), a.credentials(), a.reconnectStrategy(), a.logger)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			a.logger.Errorf("Server forced to shutdown: %v", err)
		}
		if engine != nil {
			if err := engine.Close(shutdownCtx); err != nil {
				a.logger.Errorf("Relay did not drain cleanly: %v", err)
			}
		}
		return nil
	})

	err := g.Wait()
	a.logger.Info("Server stopped")
	return err
}

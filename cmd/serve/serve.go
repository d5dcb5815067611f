// Package serve implements the serve command, which runs the HTTP API
// server until interrupted.
package serve

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"

	"github.com/snappedai/snapsearch/internal/api"
	"github.com/snappedai/snapsearch/internal/conf"
	"github.com/snappedai/snapsearch/internal/datastore"
	"github.com/snappedai/snapsearch/internal/httpclient"
	"github.com/snappedai/snapsearch/internal/imaging"
	"github.com/snappedai/snapsearch/internal/logging"
	"github.com/snappedai/snapsearch/internal/observability"
	"github.com/snappedai/snapsearch/internal/provider"
	"github.com/snappedai/snapsearch/internal/resultcache"
)

const shutdownTimeout = 10 * time.Second

// Command returns the serve subcommand.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunServer(settings)
		},
	}

	cmd.Flags().IntVarP(&settings.Server.Port, "port", "p",
		settings.Server.Port, "Port to listen on")
	cmd.Flags().StringVar(&settings.Server.Host, "host",
		settings.Server.Host, "Address to bind to")

	return cmd
}

// RunServer wires the service components together, starts the HTTP server
// and blocks until a termination signal arrives.
func RunServer(settings *conf.Settings) error {
	level := slog.LevelInfo
	if settings.Debug {
		level = slog.LevelDebug
	}
	logging.Init(level)
	log := logging.Structured()

	metrics, err := observability.NewMetrics()
	if err != nil {
		return fmt.Errorf("initializing metrics: %w", err)
	}

	hc := httpclient.New(&httpclient.Config{
		DefaultTimeout: settings.Provider.Timeout,
		ForceHTTP2:     settings.Provider.ForceHTTP2,
	})
	defer hc.Close()

	searchClient := provider.NewClient(provider.Config{
		APIKey:        settings.Provider.APIKey,
		BaseURL:       settings.Provider.BaseURL,
		Engine:        settings.Provider.Engine,
		Language:      settings.Provider.Language,
		Country:       settings.Provider.Country,
		MaxResults:    settings.Provider.MaxResults,
		StoreRawData:  settings.Provider.StoreRawData,
		Timeout:       settings.Provider.Timeout,
		RetryDelay:    settings.Provider.RetryDelay,
		RateLimitWait: settings.Provider.RateLimitWait,
	}, hc, metrics)
	defer func() { _ = provider.CloseLogger() }()

	var searcher provider.Searcher = searchClient
	if settings.Cache.Enabled {
		store, err := newCacheStore(settings)
		if err != nil {
			return fmt.Errorf("initializing result cache: %w", err)
		}
		defer func() { _ = store.Close() }()
		searcher = resultcache.NewCachedSearcher(searchClient, store, metrics)
		log.Info("result cache enabled",
			"backend", store.Name(), "ttl", settings.Cache.TTL)
	}

	ds, err := datastore.New(settings)
	if err != nil {
		return err
	}
	if err := ds.Open(); err != nil {
		return fmt.Errorf("opening datastore: %w", err)
	}
	defer func() { _ = ds.Close() }()
	defer func() { _ = datastore.CloseLogger() }()

	images := imaging.NewStore(settings.Upload.Path, settings.Upload.MaxSize,
		settings.Upload.AllowedTypes)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	controller := api.New(e, ds, settings, images, searcher, metrics)
	defer controller.Shutdown()

	addr := fmt.Sprintf("%s:%d", settings.Server.Host, settings.Server.Port)
	errChan := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", addr, "name", settings.Main.Name)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-quit:
		log.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Error("server shutdown failed", "error", err)
		return err
	}
	return nil
}

func newCacheStore(settings *conf.Settings) (resultcache.Store, error) {
	switch settings.Cache.Backend {
	case "redis":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return resultcache.NewRedisStore(ctx, resultcache.RedisConfig{
			Address:  settings.Cache.Redis.Address,
			Password: settings.Cache.Redis.Password,
			DB:       settings.Cache.Redis.DB,
		}, settings.Cache.TTL)
	default:
		return resultcache.NewMemoryStore(settings.Cache.TTL), nil
	}
}

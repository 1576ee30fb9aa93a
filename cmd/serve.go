package cmd

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/net/netutil"

	"github.com/zoldy/traitsearch/pkg/api"
	"github.com/zoldy/traitsearch/pkg/config"
)

// ServeCommand creates the serve command
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the search HTTP server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "listen",
				Usage: "Address to listen on (overrides the config file)",
			},
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "Reload datasets when files in data_dir change",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			if l := c.String("listen"); l != "" {
				cfg.Listen = l
			}
			if c.Bool("watch") {
				cfg.Watch = true
			}
			return serve(ctx, cfg)
		},
	}
}

// serve builds every endpoint and runs the HTTP server until a signal or ctx
// cancellation asks it to stop.
func serve(ctx context.Context, cfg *config.Config) error {
	endpoints, err := buildEndpoints(cfg)
	if err != nil {
		return fmt.Errorf("loading datasets: %w", err)
	}
	defer closeEndpoints(endpoints)

	apiServer := api.NewServer(endpoints...)
	apiServer.SetRateLimit(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)

	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", cfg.Listen, err)
	}
	if cfg.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, cfg.MaxConnections)
	}

	server := &http.Server{
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Infof("Starting server on http://%s", ln.Addr())
		logger.Infof("Available endpoints:")
		for _, e := range endpoints {
			logger.Infof("  GET %s - %s search over %s", e.Path(), e.Config().Mode, e.Config().Dataset)
		}
		logger.Infof("  GET %s - Health check", config.HealthPath)

		if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	var watcher *datasetWatcher
	if cfg.Watch {
		watcher, err = newDatasetWatcher(cfg, endpoints)
		if err != nil {
			logger.Warnf("dataset watching disabled: %v", err)
		} else {
			defer watcher.Close()
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	for {
		select {
		case err := <-serveErr:
			return fmt.Errorf("server failed: %w", err)
		case sig := <-sigCh:
			logger.Infof("Received %s, shutting down...", sig)
			return shutdown(server, cfg.ShutdownTimeout.Duration)
		case <-ctx.Done():
			return shutdown(server, cfg.ShutdownTimeout.Duration)
		case event, ok := <-watcher.Events():
			if !ok {
				continue
			}
			watcher.handle(event)
		case err, ok := <-watcher.Errors():
			if !ok {
				continue
			}
			logger.Warnf("dataset watcher error: %v", err)
		}
	}
}

func shutdown(server *http.Server, timeout time.Duration) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	logger.Infof("Server stopped")
	return nil
}

package console

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jvcardoso/pro-team-care-console/internal/sandbox"
)

const defaultListenAddr = "127.0.0.1:8080"

func addrFromServerURL(serverURL string) string {
	raw := strings.TrimSpace(serverURL)
	if raw == "" {
		return defaultListenAddr
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return defaultListenAddr
	}

	host := u.Host
	if _, _, splitErr := net.SplitHostPort(host); splitErr == nil {
		return host
	}

	switch u.Scheme {
	case "https":
		return net.JoinHostPort(host, "443")
	case "http":
		return net.JoinHostPort(host, "80")
	default:
		return defaultListenAddr
	}
}

func newServeCommand(cfg *Config) *cobra.Command {
	addr := cfg.ListenAddr
	sqlitePath := cfg.SQLitePath

	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"sandbox"},
		Short:   "Start the sandbox backend API server.",
		Long:    "Runs a self-contained backend with SQLite storage that serves the same REST contract as the production system.",
		Example: strings.TrimSpace(`ptc serve
ptc serve --addr 127.0.0.1:8090
ptc serve --sqlite-path /tmp/ptc/sandbox.db`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			serveAddr := strings.TrimSpace(addr)
			serveSQLite := strings.TrimSpace(sqlitePath)

			if !cmd.Flags().Changed("addr") {
				serveAddr = strings.TrimSpace(cfg.ListenAddr)
				if serveAddr == "" {
					serveAddr = addrFromServerURL(cfg.ServerURL)
				}
			}
			if !cmd.Flags().Changed("sqlite-path") {
				serveSQLite = strings.TrimSpace(cfg.SQLitePath)
			}

			if serveAddr == "" {
				return errors.New("--addr cannot be empty")
			}
			if serveSQLite == "" {
				return errors.New("--sqlite-path cannot be empty")
			}

			return runServe(serveAddr, serveSQLite)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", addr, "server listen address")
	cmd.Flags().StringVar(&sqlitePath, "sqlite-path", sqlitePath, "sqlite database path")
	return cmd
}

func runServe(addr, sqlitePath string) error {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if err := os.MkdirAll(filepath.Dir(sqlitePath), 0o755); err != nil {
		return fmt.Errorf("create sqlite parent dir failed: %w", err)
	}

	app, err := sandbox.New(sandbox.Options{SQLitePath: sqlitePath, Logger: logger})
	if err != nil {
		return fmt.Errorf("init sandbox failed: %w", err)
	}
	defer func() {
		if closeErr := app.Close(); closeErr != nil {
			logger.Error("close sandbox failed", "error", closeErr)
		}
	}()

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           app.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info("starting sandbox backend", "addr", addr, "sqlite_path", sqlitePath)

	serverErrCh := make(chan error, 1)
	go func() {
		if listenErr := httpServer.ListenAndServe(); listenErr != nil && listenErr != http.ErrServerClosed {
			serverErrCh <- listenErr
			return
		}
		serverErrCh <- nil
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case listenErr := <-serverErrCh:
		if listenErr != nil {
			return fmt.Errorf("listen failed: %w", listenErr)
		}
		return nil
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	}

	if err := httpServer.Close(); err != nil {
		return fmt.Errorf("http server close failed: %w", err)
	}
	if listenErr := <-serverErrCh; listenErr != nil {
		return fmt.Errorf("listen failed after shutdown: %w", listenErr)
	}
	logger.Info("server stopped")
	return nil
}

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/floorsync/floorsync/internal/api"
	"github.com/floorsync/floorsync/internal/audit"
	"github.com/floorsync/floorsync/internal/auth"
	"github.com/floorsync/floorsync/internal/config"
	"github.com/floorsync/floorsync/internal/remote"
	"github.com/floorsync/floorsync/internal/store"
	"github.com/floorsync/floorsync/internal/syncer"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Start the FloorSync daemon",
	Long: `Starts the FloorSync daemon: the local record store, the background
sync poller, and the HTTP API that UI clients connect to.`,
	RunE: runDaemon,
}

func init() {
	daemonCmd.Flags().StringVar(&configPath, "config", "", "Path to config file (optional)")
	daemonCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error().Err(err).Str("config_path", configPath).Msg("failed to load configuration")
		return err
	}

	logger.Info().Str("db", cfg.DBPath).Str("remote", cfg.RemoteURL).Msg("starting FloorSync daemon")

	s, err := store.New(cfg.DBPath)
	if err != nil {
		return err
	}

	if cfg.SeedUsers {
		if err := s.SeedUsers(); err != nil {
			logger.Warn().Err(err).Msg("failed to seed user accounts")
		}
	}

	// The remote client is both the push capability and the
	// connectivity capability.
	client := remote.New(cfg.RemoteURL, cfg.PushTimeout)

	tracker := syncer.NewTracker()
	logbook := audit.NewLogbook(s)
	engine := syncer.NewEngine(s, client, client, tracker, logbook,
		logger.With().Str("component", "syncer").Logger(), cfg.PushTimeout)
	poller := syncer.NewPoller(engine, s, client, tracker,
		logger.With().Str("component", "poller").Logger(),
		cfg.StatusInterval, cfg.SyncInterval)

	authMgr := auth.NewManager(s)
	server := api.NewServer(s, engine, tracker, authMgr,
		logger.With().Str("component", "api").Logger(), cfg.ListenAddr)

	poller.Start()
	defer poller.Stop()

	// Set up signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		err := server.Start()
		if err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("initiating graceful shutdown")
	case err := <-serverErr:
		if err != nil {
			logger.Error().Err(err).Msg("server error")
			s.Close()
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("HTTP server shutdown error")
	}
	if err := s.Close(); err != nil {
		logger.Warn().Err(err).Msg("database close error")
	}

	logger.Info().Msg("shutdown complete")
	return nil
}

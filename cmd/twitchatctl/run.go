package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/SecareLupus/twitchat-bridge/internal/config"
	"github.com/SecareLupus/twitchat-bridge/internal/obs"
	"github.com/SecareLupus/twitchat-bridge/internal/twitchat"
	"github.com/SecareLupus/twitchat-bridge/internal/version"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the bridge until interrupted",
	Long: `Keeps a connection to OBS open, reloading the config file on
change and reconnecting when endpoint or credential settings differ.
The initial connection attempt runs in the background; a failure is
logged and retried lazily rather than aborting the bridge.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Info("starting twitchat bridge",
			"version", version.Version,
			"commit", version.Commit,
			"config", configPath,
		)

		cfg, err := config.LoadAndValidate(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			sig := <-sigCh
			logger.Info("received shutdown signal", "signal", sig)
			cancel()
		}()

		manager := obs.NewManager(cfg.OBSConfig(), logger)
		broadcaster := twitchat.NewBroadcaster(manager, cfg.Namespace, logger)
		defer manager.Disconnect()

		errCh := manager.ConnectBackground()
		go func() {
			if err := <-errCh; err != nil {
				logger.Error("initial obs connection failed, will retry on demand", "error", err)
			} else {
				logger.Info("connected to obs", "url", manager.Config().URL())
			}
		}()

		current := cfg
		watchErr := make(chan error, 1)
		go func() {
			watchErr <- config.Watch(ctx, configPath, logger, func(next *config.Config) {
				manager.UpdateConfig(next.Diff(current))
				if err := broadcaster.SetNamespace(next.Namespace); err != nil {
					logger.Error("rejected namespace change", "error", err)
				}
				current = next
				if !manager.IsConnected() {
					go func() {
						if err := manager.EnsureConnection(); err != nil {
							logger.Error("reconnect after config change failed", "error", err)
						}
					}()
				}
			})
		}()

		select {
		case <-ctx.Done():
		case err := <-watchErr:
			if err != nil {
				return fmt.Errorf("config watch: %w", err)
			}
		}

		logger.Info("shutting down")
		return nil
	},
}

package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/SecareLupus/twitchat-bridge/internal/config"
	"github.com/SecareLupus/twitchat-bridge/internal/obs"
	"github.com/SecareLupus/twitchat-bridge/internal/twitchat"
)

var (
	broadcastData    string
	broadcastTimeout time.Duration
)

var broadcastCmd = &cobra.Command{
	Use:   "broadcast <action>",
	Short: "Send one Twitchat custom event through OBS",
	Long: `Connects to OBS, broadcasts a single namespaced custom event, and
exits. The action is prefixed with the configured namespace unless it
already contains one (a ":" separator).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadAndValidate(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		var payload map[string]any
		if broadcastData != "" {
			if err := json.Unmarshal([]byte(broadcastData), &payload); err != nil {
				return fmt.Errorf("parse --data payload: %w", err)
			}
		}

		manager := obs.NewManager(cfg.OBSConfig(), logger)
		if err := manager.Connect(broadcastTimeout); err != nil {
			return fmt.Errorf("connect to obs: %w", err)
		}
		defer manager.Disconnect()

		broadcaster := twitchat.NewBroadcaster(manager, cfg.Namespace, logger)
		resp, err := broadcaster.Broadcast(args[0], payload, broadcastTimeout)
		if err != nil {
			return fmt.Errorf("broadcast %s: %w", args[0], err)
		}

		if len(resp) > 0 && string(resp) != "null" {
			fmt.Println(string(resp))
		}
		logger.Info("event broadcast", "action", args[0])
		return nil
	},
}

func init() {
	broadcastCmd.Flags().StringVar(&broadcastData, "data", "", "inline JSON event payload")
	broadcastCmd.Flags().DurationVar(&broadcastTimeout, "timeout", 0, "request timeout (default: config request_timeout)")
}

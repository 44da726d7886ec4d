package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang-oscnode/internal/adapter/node"
	"golang-oscnode/internal/pkg/config"
	"golang-oscnode/internal/pkg/logging"
	"golang-oscnode/internal/pkg/version"

	"github.com/spf13/cobra"
)

var (
	configFlag string
)

// loadConfig loads and validates the deployment profile
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}
	return cfg, nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the node: switch, configuration console, OSC router and link supervision",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			fmt.Println(err)
			return
		}

		defaults, err := cfg.NetworkDefaults()
		if err != nil {
			fmt.Printf("Config validation error: %v\n", err)
			return
		}

		// Keep stdout for the console when it is the control channel
		if cfg.Control.Driver == "stdio" {
			logging.InitLoggerWithOutput(cfg.Logging, os.Stderr)
		} else {
			logging.InitLogger(cfg.Logging)
		}

		logger := logging.GetLogger()
		logger.WithField("config_file", configFlag).WithField("version", version.Short()).Info("Starting node")

		// Create context for graceful shutdown
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Handle shutdown signals
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			sig := <-sigChan
			logger.WithField("signal", sig.String()).Info("Received shutdown signal")
			cancel()
		}()

		supervisor := node.NewSupervisor(newBuilder(cfg, defaults), cfg.Supervisor.MaxRestarts, cfg.Supervisor.RestartDelay)
		if err := supervisor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.WithError(err).WithField("restarts", supervisor.Restarts()).Error("Node failed")
			os.Exit(1)
		}

		logger.WithField("restarts", supervisor.Restarts()).Info("Node stopped")
	},
}

func init() {
	serveCmd.Flags().StringVarP(&configFlag, "config", "f", "", "Path to deployment profile (YAML)")
	if err := serveCmd.MarkFlagRequired("config"); err != nil {
		panic(err) // This should never happen during initialization
	}
	rootCmd.AddCommand(serveCmd)
}

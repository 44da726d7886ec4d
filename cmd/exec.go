package cmd

import (
	"fmt"
	"os"
	"strings"

	"golang-oscnode/internal/pkg/command"
	"golang-oscnode/internal/pkg/configstore"
	"golang-oscnode/internal/pkg/logging"
	"golang-oscnode/internal/port"

	"github.com/spf13/cobra"
)

var execCmd = &cobra.Command{
	Use:   "exec <command line>",
	Short: "Run one configuration command against the persisted state",
	Long: "Run one configuration console command (for example \"SET_ID 3\" or \"GET\") " +
		"against the persisted state without starting the node. Changes apply on the next start.",
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			fmt.Println(err)
			return
		}

		// Log to stderr so that stdout carries only the acknowledgement
		logging.InitLoggerWithOutput(cfg.Logging, os.Stderr)
		logger := logging.GetLogger()

		defaults, err := cfg.NetworkDefaults()
		if err != nil {
			fmt.Printf("Config validation error: %v\n", err)
			return
		}

		kvStore, err := openStore(cfg.Storage)
		if err != nil {
			logger.WithError(err).Error("Failed to open storage")
			os.Exit(1)
		}

		store := configstore.New(kvStore, defaults)
		state := store.LoadState()

		var info port.LinkInfo
		if cfg.Link.Manage {
			linkMgr, closeLink, err := openLink(cfg)
			if err != nil {
				logger.WithError(err).Debug("Live link information unavailable")
			} else {
				defer closeLink()
				info = linkMgr
			}
		}

		res := command.NewInterpreter(&state, store, info).ExecuteLine(strings.Join(args, " "))
		if err := kvStore.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close storage")
		}

		switch res.Status {
		case command.StatusIgnored:
			fmt.Fprintf(os.Stderr, "Unrecognized command. Try HELP.\n")
			os.Exit(2)
		case command.StatusRejected:
			fmt.Print(res.Message)
			os.Exit(1)
		default:
			fmt.Print(res.Message)
		}
	},
}

func init() {
	execCmd.Flags().StringVarP(&configFlag, "config", "f", "", "Path to deployment profile (YAML)")
	if err := execCmd.MarkFlagRequired("config"); err != nil {
		panic(err) // This should never happen during initialization
	}
	rootCmd.AddCommand(execCmd)
}

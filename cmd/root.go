package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "golang-oscnode",
	Short: "golang-oscnode runs an OSC trigger node with LED strips and a configuration console",
}

func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

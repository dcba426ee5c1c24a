// Package cli provides the command-line interface for fb-discord-watcher.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dioftwx-beep/fb-discord-watcher/internal/config"
)

// Version and Commit are set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:          "fb-discord-watcher",
	Short:        "Relay new Facebook page posts to a Discord webhook",
	Long:         "fb-discord-watcher polls a Facebook page feed through the Graph API, remembers the newest post it has announced, and relays anything newer to a Discord webhook as an embed.",
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("fb-discord-watcher %s (%s)\n", Version, Commit)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", config.DefaultConfigFile, "path to the YAML config file")
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

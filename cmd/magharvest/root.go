package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for magharvest.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "magharvest",
		Short: "Magnet link harvester for forum boards",
		Long: `magharvest crawls forum board index pages, follows topic pages, and
extracts magnet links into plain-text result files.

Crawls run on demand with the crawl command, or unattended on a recurring
schedule managed with the tasks command and executed by the schedule daemon.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .magharvest in current or home directory)")
	cmd.PersistentFlags().String("proxy", "",
		"Outbound proxy URL (http://host:port or socks5://host:port)")
	cmd.PersistentFlags().String("data-dir", "",
		"Data directory for results, schedules, and run history (default: XDG data dir)")

	// Add subcommands
	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewScheduleCmd())
	cmd.AddCommand(NewTasksCmd())
	cmd.AddCommand(NewThemesCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

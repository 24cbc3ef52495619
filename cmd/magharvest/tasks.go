package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/magharvest/magharvest/internal/config"
	"github.com/magharvest/magharvest/internal/database"
	"github.com/magharvest/magharvest/internal/model"
	"github.com/magharvest/magharvest/internal/scheduler"
)

// NewTasksCmd creates the tasks command and its subcommands.
func NewTasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Manage recurring crawl definitions",
		Long: `Tasks manages the recurring crawl definitions executed by the schedule
daemon. Definitions are persisted under the data directory; changes made here
are picked up when the daemon next loads the store.

Schedule types:
  daily     fires every day; value is "HH:MM"
  weekly    fires once a week; value is "D" or "D:HH:MM" with Sunday = 0
  interval  fires every N minutes; value is the minute count`,
	}

	cmd.AddCommand(newTasksAddCmd())
	cmd.AddCommand(newTasksListCmd())
	cmd.AddCommand(newTasksEnableCmd())
	cmd.AddCommand(newTasksDisableCmd())
	cmd.AddCommand(newTasksDeleteCmd())
	cmd.AddCommand(newTasksRunCmd())
	cmd.AddCommand(newTasksHistoryCmd())
	return cmd
}

// openScheduler loads the definition set for a management subcommand. The
// runner is nil because management commands never execute crawls.
func openScheduler(cfg *config.Config, run scheduler.RunFunc) *scheduler.Scheduler {
	return scheduler.New(
		scheduler.NewStore(cfg.ScheduleFilePath()),
		run,
		scheduler.WithMaxConcurrentRuns(cfg.MaxConcurrentRuns),
	)
}

// newTasksAddCmd creates the tasks add subcommand.
func newTasksAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a recurring crawl definition",
		Long: `Add registers a new enabled definition and computes its first fire time.

Examples:
  # Every day at 03:30, crawl pages 1 to 5 of theme 36
  magharvest tasks add --name nightly --theme 36 --end-page 5 --type daily --value 03:30

  # Every Monday at 09:00 (the default weekly time)
  magharvest tasks add --name weekly-hot --theme 103 --hot --type weekly --value 1

  # Every 90 minutes
  magharvest tasks add --name frequent --theme 2 --type interval --value 90`,
		Args: cobra.NoArgs,
		RunE: runTasksAddCmd,
	}

	cmd.Flags().StringP("name", "n", "", "Definition name")
	cmd.Flags().StringP("theme", "t", "", "Theme id to crawl")
	cmd.Flags().Bool("hot", false, "Crawl the heat-ordered listing")
	cmd.Flags().Int("start-page", 1, "First index page (inclusive)")
	cmd.Flags().Int("end-page", 1, "Last index page (inclusive)")
	cmd.Flags().String("type", "", "Schedule type: daily, weekly, or interval")
	cmd.Flags().String("value", "", "Schedule value (see 'magharvest tasks --help')")

	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("theme")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("value")
	return cmd
}

// runTasksAddCmd executes the tasks add subcommand.
func runTasksAddCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	setupLogger(cfg)

	name, err := cmd.Flags().GetString("name")
	if err != nil {
		return err
	}
	kindValue, err := cmd.Flags().GetString("type")
	if err != nil {
		return err
	}
	value, err := cmd.Flags().GetString("value")
	if err != nil {
		return err
	}
	params, err := crawlParamsFromFlags(cmd)
	if err != nil {
		return err
	}

	sched := openScheduler(cfg, nil)
	def, err := sched.Add(name, params, model.ScheduleKind(kindValue), value)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "added %s (%s), next run %s\n",
		def.Name, def.ID, formatTime(def.NextRunAt))
	return nil
}

// newTasksListCmd creates the tasks list subcommand.
func newTasksListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recurring crawl definitions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := buildConfig(cmd)
			if err != nil {
				return err
			}
			setupLogger(cfg)

			defs := openScheduler(cfg, nil).List()
			if len(defs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no scheduled tasks")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tTHEME\tMODE\tPAGES\tSCHEDULE\tENABLED\tRUNS\tLAST RUN\tNEXT RUN")
			for _, def := range defs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d-%d\t%s %s\t%t\t%d\t%s\t%s\n",
					def.ID, def.Name, def.ThemeID, def.Mode,
					def.StartPage, def.EndPage,
					def.Kind, def.Value,
					def.Enabled, def.RunCount,
					formatTime(def.LastRunAt), formatTime(def.NextRunAt))
			}
			return tw.Flush()
		},
	}
}

// newTasksEnableCmd creates the tasks enable subcommand.
func newTasksEnableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enable <id>",
		Short: "Enable a definition and recompute its next fire time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig(cmd)
			if err != nil {
				return err
			}
			setupLogger(cfg)

			def, err := openScheduler(cfg, nil).Enable(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enabled %s, next run %s\n", def.Name, formatTime(def.NextRunAt))
			return nil
		},
	}
}

// newTasksDisableCmd creates the tasks disable subcommand.
func newTasksDisableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disable <id>",
		Short: "Disable a definition without deleting it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig(cmd)
			if err != nil {
				return err
			}
			setupLogger(cfg)

			def, err := openScheduler(cfg, nil).Disable(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "disabled %s\n", def.Name)
			return nil
		},
	}
}

// newTasksDeleteCmd creates the tasks delete subcommand.
func newTasksDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig(cmd)
			if err != nil {
				return err
			}
			setupLogger(cfg)

			if err := openScheduler(cfg, nil).Delete(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}

// newTasksRunCmd creates the tasks run subcommand.
func newTasksRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <id>",
		Short: "Execute a definition immediately",
		Long: `Run executes one crawl for the definition right away, regardless of its
schedule or enabled state. Normal completion bookkeeping applies: the run is
recorded, the run count incremented, and the next fire time recomputed.`,
		Args: cobra.ExactArgs(1),
		RunE: runTasksRunCmd,
	}
}

// runTasksRunCmd executes the tasks run subcommand.
func runTasksRunCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(cfg)

	db, err := database.Open(cfg.DataDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open run history database: %w", err)
	}
	defer func() { _ = db.Close() }()

	sched := openScheduler(cfg, newDefinitionRunner(cfg, db, logger))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	if err := sched.RunNow(ctx, args[0]); err != nil {
		return err
	}
	return sched.Wait()
}

// newTasksHistoryCmd creates the tasks history subcommand.
func newTasksHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [id]",
		Short: "Show past crawl runs",
		Long: `History lists finished runs from the run-history database, newest first.
With a definition id, only that definition's runs are shown.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runTasksHistoryCmd,
	}

	cmd.Flags().Int("limit", 20, "Maximum number of runs to show")
	return cmd
}

// runTasksHistoryCmd executes the tasks history subcommand.
func runTasksHistoryCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	setupLogger(cfg)

	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	db, err := database.Open(cfg.DataDir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if err != nil {
		return fmt.Errorf("no run history yet: %w", err)
	}
	defer func() { _ = db.Close() }()

	ctx := context.Background()
	var runs []*database.RunRecord
	if len(args) == 1 {
		runs, err = db.ListRunsByDefinition(ctx, args[0], limit)
	} else {
		runs, err = db.ListRuns(ctx, limit)
	}
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no runs recorded")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TASK\tTHEME\tMODE\tPAGES\tSTATUS\tLINKS\tFINISHED\tERROR")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d-%d\t%s\t%d\t%s\t%s\n",
			r.TaskID, r.ThemeID, r.Mode,
			r.StartPage, r.EndPage,
			r.Status, r.LinkCount,
			r.FinishedAt.Local().Format("2006-01-02 15:04:05"),
			r.Error)
	}
	return tw.Flush()
}

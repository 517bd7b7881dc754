package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/letsbuild/letsbuild/internal/state"
	"github.com/letsbuild/letsbuild/pkg/config"
	"github.com/letsbuild/letsbuild/pkg/notifier"
	"github.com/letsbuild/letsbuild/pkg/types"
	"github.com/letsbuild/letsbuild/pkg/validation"
	"github.com/spf13/cobra"
)

func (c *CLI) newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the last build of each target",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runStatus()
		},
	}
}

func (c *CLI) newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default " + config.FileName,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.WriteDefault(c.projectRoot(), force)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.output, "%s Created %s\n", color.GreenString("✔"), path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}

func (c *CLI) newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and the tasks of every target",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runValidate()
		},
	}
}

func (c *CLI) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(c.output, "letsbuild v%s\n", c.config.Version)
		},
	}
}

func (c *CLI) runStatus() error {
	sm := state.NewStateManager(c.projectRoot(), c.logger)
	records, err := sm.ListStates()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(c.output, "No builds recorded yet")
		return nil
	}

	w := tabwriter.NewWriter(c.output, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TARGET\tSTATUS\tLAST BUILD\tDURATION\tBUILDS\tFAILURES")
	fmt.Fprintln(w, "------\t------\t----------\t--------\t------\t--------")

	for _, r := range records {
		lastBuild := "-"
		if !r.StartedAt.IsZero() {
			lastBuild = r.StartedAt.Local().Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\n",
			r.Mode.DisplayName(),
			statusColor(r.Status),
			lastBuild,
			notifier.FormatDuration(r.Duration.Round(time.Millisecond)),
			r.BuildCount,
			r.FailureCount,
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	for _, r := range records {
		if r.Status == state.BuildStatusSucceeded || r.LastError == "" {
			continue
		}
		fmt.Fprintf(c.output, "\n%s %s:\n%s\n", color.RedString("✖"), r.Mode.DisplayName(), r.LastError)
	}
	return nil
}

func statusColor(status state.BuildStatus) string {
	switch status {
	case state.BuildStatusSucceeded:
		return color.GreenString(string(status))
	case state.BuildStatusFailed:
		return color.RedString(string(status))
	case state.BuildStatusReported:
		return color.YellowString(string(status))
	default:
		return string(status)
	}
}

func (c *CLI) runValidate() error {
	file, err := c.loadFile()
	if err != nil {
		fmt.Fprintf(c.output, "%s Configuration is invalid: %v\n", color.RedString("✖"), err)
		return err
	}

	validator := validation.NewTaskValidator(c.projectRoot())
	errorCount := 0

	for _, mode := range types.Modes() {
		if mode == types.ModeClean {
			continue
		}
		result := validator.ValidateMultiple(file.ForMode(mode).Tasks)

		for _, e := range result.Errors {
			if e.Level == validation.ValidationLevelError {
				errorCount++
				fmt.Fprintf(c.output, "  %s %s: %s\n", color.RedString("✗"), mode, e.Error())
			} else {
				fmt.Fprintf(c.output, "  %s %s: %s\n", color.YellowString("⚠"), mode, e.Error())
			}
		}
	}

	if errorCount > 0 {
		return fmt.Errorf("%w: configuration has %d error(s)", validation.ErrInvalidTask, errorCount)
	}
	fmt.Fprintf(c.output, "%s Configuration is valid\n", color.GreenString("✔"))
	return nil
}

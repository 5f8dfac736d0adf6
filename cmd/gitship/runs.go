package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/deixis/gitship/internal/config"
	"github.com/deixis/gitship/internal/report"
	"github.com/spf13/cobra"
)

// historyStore opens the run history of the repository containing dir.
func historyStore(dir string) (*report.DiskStore, error) {
	workspace, err := resolveWorkspace([]string{dir})
	if err != nil {
		return nil, err
	}
	loaded, err := config.Load(workspace)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if !isRepo(loaded.RepoRoot) {
		return nil, fmt.Errorf("no run history: %s is not inside a git repository", workspace)
	}
	return report.NewDiskStore(report.RunsDir(loaded.RepoRoot)), nil
}

func newRunsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs [dir]",
		Short: "List recent runs recorded in a repository",
		Args:  usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			store, err := historyStore(dir)
			if err != nil {
				return err
			}
			runs, err := store.List(limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN\tSTARTED\tOUTCOME\tBRANCH")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.ID, r.Started.Format("2006-01-02 15:04:05"), r.Outcome, r.Branch)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum number of runs to list (0 lists all)")
	return cmd
}

func newShowCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "show <run-id> [step]",
		Short: "Show a recorded run, or the full output of one of its steps",
		Args:  usageArgs(cobra.RangeArgs(1, 2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := historyStore(dir)
			if err != nil {
				return err
			}
			result, err := store.Load(args[0])
			if err != nil {
				return err
			}
			if len(args) == 1 {
				fmt.Fprint(cmd.OutOrStdout(), report.FormatRun(result))
				return nil
			}
			step, err := result.Step(args[1])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), report.FormatStep(step))
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "C", ".", "repository whose history is read")
	return cmd
}

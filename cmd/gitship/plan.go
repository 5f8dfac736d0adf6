package main

import (
	"fmt"

	"github.com/deixis/gitship/internal/workflow"
	"github.com/spf13/cobra"
)

func newPlanCmd() *cobra.Command {
	f := &planFlags{}
	cmd := &cobra.Command{
		Use:   "plan [dir]",
		Short: "Print the steps run would execute, without running them",
		Args:  usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, err := loadEngine(cmd, args, f, 0)
			if err != nil {
				return err
			}
			steps, err := eng.Plan(workflow.CurrentBranch(eng.Settings.Workspace))
			if err != nil {
				return fmt.Errorf("building plan: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), workflow.FormatPlan(eng.Settings.Workspace, steps))
			return nil
		},
	}
	f.register(cmd.Flags())
	return cmd
}

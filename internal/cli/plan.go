package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shaiso/metamigrate/internal/plan"
)

// NewPlanCmd создаёт группу команд для миграции по YAML-плану.
func NewPlanCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Run migrations described in YAML plans",
	}

	cmd.AddCommand(
		newPlanValidateCmd(outputFn),
		newPlanApplyCmd(clientFn, outputFn),
	)

	return cmd
}

func newPlanValidateCmd(outputFn func() *Output) *cobra.Command {
	var vars []string

	cmd := &cobra.Command{
		Use:   "validate FILE",
		Short: "Validate a plan file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadPlan(args[0], vars)
			if err != nil {
				return err
			}
			outputFn().Status("Plan is valid: %s -> %s, types: %s",
				p.Source, p.Target, strings.Join(p.Types, ", "))
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&vars, "var", nil, "Template variable key=value (repeatable)")

	return cmd
}

func newPlanApplyCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var dryRun bool
	var keep bool
	var vars []string

	cmd := &cobra.Command{
		Use:   "apply FILE",
		Short: "Run a plan through a server-side wizard session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			p, err := loadPlan(args[0], vars)
			if err != nil {
				return err
			}

			driver := NewRemoteSession(clientFn(), out.Notification)
			if !keep && !dryRun {
				defer func() {
					if err := driver.Close(context.WithoutCancel(cmd.Context())); err != nil {
						out.Status("Error: close session: %v", err)
					}
				}()
			}

			res, err := plan.Run(cmd.Context(), driver, p, plan.Options{DryRun: dryRun})
			if err != nil {
				return err
			}

			if out.jsonMode {
				out.JSON(res)
				return nil
			}

			out.Selection(res.Selection)

			switch {
			case res.Record == nil:
				out.Status("Dry run: %d components ready in session %s",
					res.Selection.Count(), driver.ID())
			default:
				out.Status("Deployed %d components from %s to %s (job %s)",
					res.Selection.Count(), p.Source, p.Target, res.Record.JobID)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Stop before deploying and keep the session open")
	cmd.Flags().BoolVar(&keep, "keep-session", false, "Leave the session open afterwards")
	cmd.Flags().StringArrayVar(&vars, "var", nil, "Template variable key=value (repeatable)")

	return cmd
}

func loadPlan(path string, pairs []string) (*plan.Plan, error) {
	vars, err := plan.ParseVars(pairs)
	if err != nil {
		return nil, err
	}
	return plan.Load(path, vars)
}

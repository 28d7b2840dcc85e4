package cli

import (
	"github.com/spf13/cobra"
)

// NewDeploymentCmd создаёт группу команд для журнала деплоев.
func NewDeploymentCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deployment",
		Short: "Browse deployment history",
	}

	cmd.AddCommand(
		newDeploymentListCmd(clientFn, outputFn),
		newDeploymentShowCmd(clientFn, outputFn),
	)

	return cmd
}

func newDeploymentListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var opts ListDeploymentsOpts

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List deployments",
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := clientFn().ListDeployments(cmd.Context(), opts)
			if err != nil {
				return err
			}

			outputFn().Deployments(records)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.SessionID, "session-id", "", "Filter by session ID")
	cmd.Flags().StringVar(&opts.Target, "target", "", "Filter by target environment")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Maximum number of results")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "Number of results to skip")

	return cmd
}

func newDeploymentShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show DEPLOYMENT_ID",
		Short: "Show deployment details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := clientFn().GetDeployment(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			outputFn().Deployment(r)
			return nil
		},
	}
}

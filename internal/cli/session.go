package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shaiso/metamigrate/internal/domain"
)

// NewSessionCmd создаёт группу команд для пошагового ведения визарда.
func NewSessionCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Drive a migration wizard session step by step",
	}

	cmd.AddCommand(
		newSessionStartCmd(clientFn, outputFn),
		newSessionShowCmd(clientFn, outputFn),
		newSessionCloseCmd(clientFn, outputFn),
		newSessionOrgsCmd(clientFn, outputFn),
		newSessionNextCmd(clientFn, outputFn),
		newSessionPreviousCmd(clientFn, outputFn),
		newSessionTypesCmd(clientFn, outputFn),
		newSessionFetchCmd(clientFn, outputFn),
		newSessionRowsCmd(clientFn, outputFn),
		newSessionDeployCmd(clientFn, outputFn),
		newSessionWaitCmd(clientFn, outputFn),
	)

	return cmd
}

func newSessionStartCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Open a new wizard session",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := clientFn().CreateSession(cmd.Context())
			if err != nil {
				return err
			}
			outputFn().Session(s)
			return nil
		},
	}
}

func newSessionShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show SESSION_ID",
		Short: "Show session state and new notifications",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := clientFn().GetSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			outputFn().Session(s)
			return nil
		},
	}
}

func newSessionCloseCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "close SESSION_ID",
		Short: "Close a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := clientFn().CloseSession(cmd.Context(), args[0]); err != nil {
				return err
			}
			outputFn().Status("Session %s closed", args[0])
			return nil
		},
	}
}

func newSessionOrgsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var source, target string

	cmd := &cobra.Command{
		Use:   "orgs SESSION_ID",
		Short: "Select source and target environments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := clientFn().SelectOrgs(cmd.Context(), args[0], source, target)
			if err != nil {
				return err
			}
			outputFn().Session(s)
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "Source environment ID")
	cmd.Flags().StringVar(&target, "target", "", "Target environment ID (empty clears)")

	return cmd
}

func newSessionNextCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var wait bool

	cmd := &cobra.Command{
		Use:   "next SESSION_ID",
		Short: "Advance to the next step",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			s, err := client.Next(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if wait && s.Operation != nil {
				if s, err = client.WaitSession(cmd.Context(), args[0], out.Notification); err != nil {
					return err
				}
			}
			out.Session(s)
			return nil
		},
	}

	cmd.Flags().BoolVar(&wait, "wait", true, "Wait for a background transition to finish")

	return cmd
}

func newSessionPreviousCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "previous SESSION_ID",
		Short: "Go back to the previous step",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := clientFn().Previous(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			outputFn().Session(s)
			return nil
		},
	}
}

func newSessionTypesCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "types SESSION_ID TYPE...",
		Short: "Select metadata types",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := clientFn().SelectTypes(cmd.Context(), args[0], args[1:])
			if err != nil {
				return err
			}
			outputFn().Session(s)
			return nil
		},
	}
}

func newSessionFetchCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch SESSION_ID",
		Short: "Fetch components of the selected types",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := clientFn().FetchDescriptors(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			outputFn().Descriptors(rows)
			return nil
		},
	}
}

func newSessionRowsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "rows SESSION_ID TYPE:NAME...",
		Short: "Select components to migrate",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := ParseRowRefs(args[1:])
			if err != nil {
				return err
			}

			s, err := clientFn().SelectRows(cmd.Context(), args[0], rows)
			if err != nil {
				return err
			}
			outputFn().Session(s)
			return nil
		},
	}
}

func newSessionDeployCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var wait bool

	cmd := &cobra.Command{
		Use:   "deploy SESSION_ID",
		Short: "Deploy the selected components",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			s, err := client.Deploy(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !wait {
				out.Status("Deployment started in session %s", s.ID)
				return nil
			}

			if s, err = client.WaitSession(cmd.Context(), args[0], out.Notification); err != nil {
				return err
			}
			out.Session(s)
			if op := s.Operation; op != nil && op.Error != "" {
				return fmt.Errorf("deploy: %s", op.Error)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&wait, "wait", true, "Wait for the deployment to finish")

	return cmd
}

func newSessionWaitCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "wait SESSION_ID",
		Short: "Wait for the running operation to finish",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()
			s, err := clientFn().WaitSession(cmd.Context(), args[0], out.Notification)
			if err != nil {
				return err
			}
			out.Session(s)
			return nil
		},
	}
}

// ParseRowRefs разбирает ссылки на компоненты вида TYPE:NAME.
func ParseRowRefs(args []string) ([]domain.MetadataDescriptor, error) {
	rows := make([]domain.MetadataDescriptor, 0, len(args))
	for _, arg := range args {
		typ, name, ok := strings.Cut(arg, ":")
		if !ok || typ == "" || name == "" {
			return nil, fmt.Errorf("invalid component %q: expected TYPE:NAME", arg)
		}
		rows = append(rows, domain.MetadataDescriptor{Type: typ, FullName: name})
	}
	return rows, nil
}

package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/shaiso/metamigrate/internal/domain"
)

// NewEnvCmd создаёт группу команд для окружений.
func NewEnvCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Manage connected environments",
	}

	cmd.AddCommand(
		newEnvListCmd(clientFn, outputFn),
		newEnvRegisterCmd(clientFn, outputFn),
	)

	return cmd
}

func newEnvListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List connected environments",
		RunE: func(cmd *cobra.Command, args []string) error {
			envs, err := clientFn().ListEnvironments(cmd.Context())
			if err != nil {
				return err
			}
			outputFn().Environments(envs)
			return nil
		},
	}
}

func newEnvRegisterCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var creds domain.EnvironmentCredentials
	var file string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a new environment",
		Long: `Register a new environment with client credentials.

Credentials are taken from flags or from a YAML file:

  label: Staging
  base_url: https://staging.example.com
  client_id: abc
  client_secret: xyz`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("read credentials: %w", err)
				}
				if err := yaml.Unmarshal(data, &creds); err != nil {
					return fmt.Errorf("parse credentials: %w", err)
				}
			}
			if err := creds.Validate(); err != nil {
				return err
			}

			resp, err := client.RegisterEnvironment(cmd.Context(), creds)
			if err != nil {
				return err
			}

			if out.jsonMode {
				out.JSON(resp)
			} else {
				out.Status("Registration of %s submitted (job %s)", resp.Label, resp.JobID)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML file with credentials")
	cmd.Flags().StringVar(&creds.Label, "label", "", "Environment label")
	cmd.Flags().StringVar(&creds.BaseURL, "base-url", "", "Environment base URL")
	cmd.Flags().StringVar(&creds.ClientID, "client-id", "", "OAuth client ID")
	cmd.Flags().StringVar(&creds.ClientSecret, "client-secret", "", "OAuth client secret")

	return cmd
}

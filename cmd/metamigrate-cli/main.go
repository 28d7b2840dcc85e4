// metamigrate CLI — перенос метаданных между окружениями через HTTP API.
//
// Использование:
//
//	metamigrate [--api-url URL] [--json] <command> <subcommand> [flags]
//
// Команды:
//
//	env         Подключённые окружения
//	session     Пошаговое ведение визарда
//	deployment  Журнал деплоев
//	plan        Миграция по YAML-плану
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shaiso/metamigrate/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var apiURL string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "metamigrate",
		Short:         "metamigrate CLI — metadata migration between environments",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "http://localhost:8080", "API server URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *cli.Client { return cli.NewClient(apiURL) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewEnvCmd(clientFn, outputFn),
		cli.NewSessionCmd(clientFn, outputFn),
		cli.NewDeploymentCmd(clientFn, outputFn),
		cli.NewPlanCmd(clientFn, outputFn),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		cancel()
		os.Exit(1)
	}
}

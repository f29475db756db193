package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lfbraz/azureml-inference-spark/deployment"
)

func NewStatusCommand(cfg *Config) *cobra.Command {
	var serviceName string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current state of a deployed endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			ws, err := cfg.openWorkspace(ctx)
			if err != nil {
				return err
			}

			service, err := deployment.GetService(ctx, ws, serviceName)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Service %v: %v\n", service.Name, service.State)
			if service.ScoringURI != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Scoring uri: %v\n", service.ScoringURI)
			}
			if service.Error != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Error: %v\n", service.Error)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&serviceName, "service", "", "Name of the deployed endpoint")
	if err := cmd.MarkFlagRequired("service"); err != nil {
		panic(err)
	}

	return cmd
}

func NewLogsCommand(cfg *Config) *cobra.Command {
	var serviceName string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Fetch container logs for a deployed endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			ws, err := cfg.openWorkspace(ctx)
			if err != nil {
				return err
			}

			service, err := deployment.GetService(ctx, ws, serviceName)
			if err != nil {
				return err
			}

			lines, err := service.Logs(ctx)
			if err != nil {
				return err
			}

			for _, line := range lines {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&serviceName, "service", "", "Name of the deployed endpoint")
	if err := cmd.MarkFlagRequired("service"); err != nil {
		panic(err)
	}

	return cmd
}

func NewDeleteCommand(cfg *Config) *cobra.Command {
	var serviceName string

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Tear down a deployed endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			ws, err := cfg.openWorkspace(ctx)
			if err != nil {
				return err
			}

			if err := deployment.Delete(ctx, ws, serviceName); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Service %v deleted\n", serviceName)
			return nil
		},
	}

	cmd.Flags().StringVar(&serviceName, "service", "", "Name of the deployed endpoint")
	if err := cmd.MarkFlagRequired("service"); err != nil {
		panic(err)
	}

	return cmd
}

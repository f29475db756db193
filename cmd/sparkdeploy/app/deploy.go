package app

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lfbraz/azureml-inference-spark/deployment"
	"github.com/lfbraz/azureml-inference-spark/environment"
)

type deployOptions struct {
	ServiceName string
	Models      []string
	EntryScript string
	Environment string
	EnvVersion  int
	CpuCores    float64
	MemoryGb    float64
	Description string
	Overwrite   bool
	ShowOutput  bool
}

// parseModelReference accepts "name" or "name:version".
func parseModelReference(s string) (deployment.ModelReference, error) {
	name, version, found := strings.Cut(s, ":")
	if name == "" {
		return deployment.ModelReference{}, fmt.Errorf("invalid model reference '%v'", s)
	}
	if !found {
		return deployment.ModelReference{Name: name}, nil
	}
	v, err := strconv.Atoi(version)
	if err != nil || v < 1 {
		return deployment.ModelReference{}, fmt.Errorf("invalid model version in reference '%v'", s)
	}
	return deployment.ModelReference{Name: name, Version: v}, nil
}

func NewDeployCommand(cfg *Config) *cobra.Command {
	opts := deployOptions{}

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy a trained model as a hosted inference endpoint",
		Long: `Retrieves the registered environment, submits the deployment request to
the workspace's container instance target, and polls until the endpoint
is running or the rollout fails. On success the scoring URI is printed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			models := make([]deployment.ModelReference, 0, len(opts.Models))
			for _, m := range opts.Models {
				ref, err := parseModelReference(m)
				if err != nil {
					return err
				}
				models = append(models, ref)
			}

			ws, err := cfg.openWorkspace(ctx)
			if err != nil {
				return err
			}

			var registered *environment.RegisteredEnvironment
			if opts.EnvVersion > 0 {
				registered, err = environment.GetVersion(ctx, ws, opts.Environment, opts.EnvVersion)
			} else {
				registered, err = environment.Get(ctx, ws, opts.Environment)
			}
			if err != nil {
				return err
			}

			service, err := deployment.Deploy(ctx, ws, opts.ServiceName, models,
				deployment.InferenceConfig{
					EntryScript: opts.EntryScript,
					Environment: registered,
				},
				deployment.DeployConfig{
					CpuCores:    opts.CpuCores,
					MemoryGb:    opts.MemoryGb,
					Description: opts.Description,
				},
				opts.Overwrite,
			)
			if err != nil {
				return err
			}

			if err := service.WaitForDeployment(ctx, opts.ShowOutput); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Service %v is running, scoring uri: %v\n", service.Name, service.ScoringURI)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.ServiceName, "service", "", "Name for the deployed endpoint")
	cmd.Flags().StringSliceVar(&opts.Models, "model", nil, "Model reference name[:version], repeatable")
	cmd.Flags().StringVar(&opts.EntryScript, "entry", "score.py", "Scoring entry point interpreted by the deployment runtime")
	cmd.Flags().StringVar(&opts.Environment, "env", "", "Name of the registered environment to deploy with")
	cmd.Flags().IntVar(&opts.EnvVersion, "env-version", 0, "Environment version (defaults to latest)")
	cmd.Flags().Float64Var(&opts.CpuCores, "cpu", 1, "CPU cores for the container instance")
	cmd.Flags().Float64Var(&opts.MemoryGb, "memory-gb", 1, "Memory in GB for the container instance")
	cmd.Flags().StringVar(&opts.Description, "description", "", "Description recorded on the deployment")
	cmd.Flags().BoolVar(&opts.Overwrite, "overwrite", false, "Replace an existing service with the same name")
	cmd.Flags().BoolVar(&opts.ShowOutput, "show-output", true, "Echo deployment operation output while waiting")

	for _, flag := range []string{"service", "model", "env"} {
		if err := cmd.MarkFlagRequired(flag); err != nil {
			panic(err)
		}
	}

	return cmd
}

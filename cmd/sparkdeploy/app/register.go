package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lfbraz/azureml-inference-spark/environment"
)

type registerOptions struct {
	Name          string
	BaseImage     string
	SparkVersion  string
	HadoopVersion string
	CondaFile     string
	PipPackages   []string
}

func NewRegisterCommand(cfg *Config) *cobra.Command {
	opts := registerOptions{}

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a Spark container environment with the workspace",
		Long: `Builds the environment descriptor from the embedded Spark Dockerfile
and the given package dependencies, validates the rendered build script,
and submits it to the workspace's environment registry. The platform
builds the image and stores it as a new version under the environment
name; re-registering an existing name creates a new version.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			python := environment.PythonSection{PipPackages: opts.PipPackages}
			if opts.CondaFile != "" {
				loaded, err := environment.LoadCondaSpec(opts.CondaFile)
				if err != nil {
					return err
				}
				loaded.PipPackages = append(loaded.PipPackages, opts.PipPackages...)
				python = loaded
			}

			env, err := environment.NewSparkEnvironment(opts.Name, environment.SparkBuildSpec{
				BaseImage:     opts.BaseImage,
				SparkVersion:  opts.SparkVersion,
				HadoopVersion: opts.HadoopVersion,
			}, python)
			if err != nil {
				return err
			}

			if err := environment.ValidateBuildScript(env.Docker.BuildScript); err != nil {
				return fmt.Errorf("invalid build script: %w", err)
			}
			if err := environment.CheckSparkVersionConsistency(env); err != nil {
				return fmt.Errorf("inconsistent environment: %w", err)
			}

			ws, err := cfg.openWorkspace(ctx)
			if err != nil {
				return err
			}

			registered, err := environment.Register(ctx, ws, env)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Registered environment %v:%d (image %v)\n", registered.Name, registered.Version, registered.Image)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "Name to register the environment under")
	cmd.Flags().StringVar(&opts.BaseImage, "base-image", environment.DefaultBaseImage, "Base container image for the build script")
	cmd.Flags().StringVar(&opts.SparkVersion, "spark-version", environment.DefaultSparkVersion, "Spark runtime version installed by the build script")
	cmd.Flags().StringVar(&opts.HadoopVersion, "hadoop-version", environment.DefaultHadoopVersion, "Hadoop version of the Spark distribution")
	cmd.Flags().StringVar(&opts.CondaFile, "conda-file", "", "Conda environment YAML listing package dependencies")
	cmd.Flags().StringSliceVar(&opts.PipPackages, "pip", nil, "Additional pip packages to install")

	if err := cmd.MarkFlagRequired("name"); err != nil {
		panic(err)
	}

	return cmd
}

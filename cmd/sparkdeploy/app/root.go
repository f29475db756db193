// Package app implements the sparkdeploy CLI: it registers Spark container
// environments with a managed ML workspace and deploys trained models as
// hosted inference endpoints on its container instances.
package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/lfbraz/azureml-inference-spark/platform"
	"github.com/lfbraz/azureml-inference-spark/vault"
	"github.com/lfbraz/azureml-inference-spark/workspace"
)

/**
 * ==========================================================================
 * ==== All variables used by the CLI must be loaded here. This is to    ====
 * ==== make the data flow clear so that a user can see what variables   ====
 * ==== are exposed, and how the values are propagated through the tool. ====
 * ==========================================================================
 */
type Config struct {
	ApiEndpoint  string `env:"PLATFORM_API_ENDPOINT,required"`
	AuthEndpoint string `env:"PLATFORM_AUTH_ENDPOINT,required"`

	VaultEndpoint string `env:"VAULT_ENDPOINT,required"`
	VaultToken    string `env:"VAULT_TOKEN"`
	SecretScope   string `env:"SECRET_SCOPE" envDefault:"azureml"`

	WorkspaceName  string `env:"WORKSPACE_NAME,required"`
	ResourceGroup  string `env:"RESOURCE_GROUP,required"`
	SubscriptionId string `env:"SUBSCRIPTION_ID,required"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

func loadConfig(envFile string) (Config, error) {
	if envFile != "" {
		slog.Info(fmt.Sprintf("loading env from file %v", envFile))
		if err := godotenv.Load(envFile); err != nil {
			return Config{}, fmt.Errorf("error loading env file '%v': %w", envFile, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("error loading config from environment: %w", err)
	}
	return cfg, nil
}

func initLogging(level string) {
	logLevel := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))
	log.SetFlags(log.Lshortfile | log.Ltime | log.Ldate)
}

func (c *Config) vaultClient() *vault.Client {
	var tokens platform.TokenSource
	if c.VaultToken != "" {
		tokens = platform.StaticToken(c.VaultToken)
	}
	return vault.NewClient(c.VaultEndpoint, tokens)
}

// openWorkspace runs the credential resolution chain: secret store ->
// service principal -> token exchange -> workspace handle. Any failure
// terminates the command; there is no retry or fallback.
func (c *Config) openWorkspace(ctx context.Context) (*workspace.Workspace, error) {
	principal, err := c.vaultClient().ResolveServicePrincipal(ctx, c.SecretScope)
	if err != nil {
		return nil, fmt.Errorf("error resolving service principal: %w", err)
	}

	cred := workspace.NewCredential(c.AuthEndpoint, principal)

	ws, err := workspace.Get(ctx, c.ApiEndpoint, c.WorkspaceName, c.ResourceGroup, c.SubscriptionId, cred)
	if err != nil {
		return nil, err
	}
	return ws, nil
}

func NewSparkDeployCommand() *cobra.Command {
	var envFile string
	cfg := &Config{}

	cmd := &cobra.Command{
		Use:   "sparkdeploy",
		Short: "Register Spark inference environments and deploy model endpoints",
		Long: `sparkdeploy drives a managed ML workspace through the four steps of
hosting a Spark model: resolve service principal credentials from the
secret store, register a container environment built from a parameterized
Spark Dockerfile, and deploy a trained model as an inference endpoint,
waiting until it is ready to score.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := loadConfig(envFile)
			if err != nil {
				return err
			}
			*cfg = loaded
			initLogging(cfg.LogLevel)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&envFile, "env-file", "", "File to load env variables from. If not specified they are read from the environment directly.")

	cmd.AddCommand(NewRegisterCommand(cfg))
	cmd.AddCommand(NewDeployCommand(cfg))
	cmd.AddCommand(NewStatusCommand(cfg))
	cmd.AddCommand(NewLogsCommand(cfg))
	cmd.AddCommand(NewDeleteCommand(cfg))
	cmd.AddCommand(NewSecretsCommand(cfg))

	return cmd
}

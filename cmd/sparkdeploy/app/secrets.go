package app

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewSecretsCommand(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secrets",
		Short: "Inspect the secret store",
	}

	var scope, key string

	get := &cobra.Command{
		Use:   "get",
		Short: "Read a secret by scope and key",
		RunE: func(cmd *cobra.Command, args []string) error {
			if scope == "" {
				scope = cfg.SecretScope
			}

			value, err := cfg.vaultClient().GetSecret(cmd.Context(), scope, key)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	}

	get.Flags().StringVar(&scope, "scope", "", "Secret scope (defaults to the configured scope)")
	get.Flags().StringVar(&key, "key", "", "Secret key")
	if err := get.MarkFlagRequired("key"); err != nil {
		panic(err)
	}

	cmd.AddCommand(get)

	return cmd
}

package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/easyapply-cli/internal/config"
	"github.com/xkilldash9x/easyapply-cli/internal/secrets"
)

var providers = []string{string(config.ProviderGemini), string(config.ProviderOpenAI)}

func parseProvider(name string) (config.LLMProvider, error) {
	p := config.LLMProvider(strings.ToLower(strings.TrimSpace(name)))
	switch p {
	case config.ProviderGemini, config.ProviderOpenAI:
		return p, nil
	}
	return "", fmt.Errorf("unknown provider %q, expected one of %s", name, strings.Join(providers, ", "))
}

func newSecretsCmd() *cobra.Command {
	secretsCmd := &cobra.Command{
		Use:   "secrets",
		Short: "Manages LLM API keys in the OS keychain",
	}
	secretsCmd.AddCommand(newSecretsSetCmd(), newSecretsDeleteCmd())
	return secretsCmd
}

func newSecretsSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "set <provider>",
		Short:     "Stores the API key for a provider, read from stdin",
		Long:      "Stores the API key for a provider in the OS keychain. The key is read from the first line of stdin; the provider's environment variable (e.g. GEMINI_API_KEY) still takes precedence at run time.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: providers,
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, err := parseProvider(args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "API key for %s: ", provider)
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && strings.TrimSpace(line) == "" {
				return fmt.Errorf("failed to read API key: %w", err)
			}
			if err := secrets.SetAPIKey(provider, line); err != nil {
				return fmt.Errorf("failed to store API key: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nStored API key for %s.\n", provider)
			return nil
		},
	}
}

func newSecretsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "delete <provider>",
		Short:     "Removes the stored API key for a provider",
		Args:      cobra.ExactArgs(1),
		ValidArgs: providers,
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, err := parseProvider(args[0])
			if err != nil {
				return err
			}
			if err := secrets.DeleteAPIKey(provider); err != nil {
				return fmt.Errorf("failed to delete API key: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted API key for %s.\n", provider)
			return nil
		},
	}
}

// -- cmd/root.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xkilldash9x/easyapply-cli/internal/config"
	"github.com/xkilldash9x/easyapply-cli/internal/observability"
	"github.com/xkilldash9x/easyapply-cli/internal/secrets"
)

// rootOptions carries the state shared by every subcommand. cfg and logger
// are populated by the root PersistentPreRunE.
type rootOptions struct {
	cfgFile string
	v       *viper.Viper
	cfg     *config.Config
	logger  *zap.Logger
}

func newRootOptions() *rootOptions {
	return &rootOptions{v: viper.New()}
}

// NewRootCommand builds a fresh command tree with its own viper instance.
func NewRootCommand() *cobra.Command {
	return newRootCommand(newRootOptions())
}

func newRootCommand(opts *rootOptions) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "easyapply",
		Short: "easyapply fills LinkedIn Easy Apply forms from a learned answer store.",
		Long: `easyapply visits job postings, opens the Easy Apply form and answers every
question from the answer store, a few fixed defaults, or an LLM. New answers
are remembered for the next run.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// This runs before any subcommand, setting up config and logging.
			return opts.initialize(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	rootCmd.SetVersionTemplate(`{{printf "%s version %s\n" .Name .Version}}`)

	rootCmd.AddCommand(
		newApplyCmd(opts),
		newAnswersCmd(opts),
		newSecretsCmd(),
		newHistoryCmd(opts),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the command tree against ctx. Errors are logged here; the
// caller only decides the exit code.
func Execute(ctx context.Context) error {
	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		logger := observability.GetLogger()
		if errors.Is(err, context.Canceled) {
			logger.Warn("Interrupted, shutting down")
			return err
		}
		logger.Error("Command execution failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func (o *rootOptions) initialize(cmd *cobra.Command) error {
	if err := secrets.LoadDotEnv(".env"); err != nil {
		return err
	}
	if err := initializeConfig(o.v, o.cfgFile); err != nil {
		return err
	}

	console := zapcore.Lock(zapcore.AddSync(cmd.ErrOrStderr()))
	cfg, err := config.NewConfigFromViper(o.v)
	if err != nil {
		// Fall back to a console logger so the failure itself is reported.
		observability.Initialize(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "easyapply"}, console)
		return err
	}
	observability.Initialize(cfg.Logger(), console)

	o.cfg = cfg
	o.logger = observability.GetLogger()
	o.logger.Debug("Configuration loaded",
		zap.String("version", Version),
		zap.String("config_file", o.v.ConfigFileUsed()),
	)
	return nil
}

// initializeConfig reads the config file and EASYAPPLY_* environment
// variables into v. A missing default config file is not an error.
func initializeConfig(v *viper.Viper, cfgFile string) error {
	config.SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("EASYAPPLY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

// bindFlags maps config keys to command flags so that a flag set on the
// command line overrides the config file and environment.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("failed to bind flag --%s to %s: %v", name, key, err))
		}
	}
}

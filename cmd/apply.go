package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/easyapply-cli/api/schemas"
	"github.com/xkilldash9x/easyapply-cli/internal/answers"
	"github.com/xkilldash9x/easyapply-cli/internal/applier"
	"github.com/xkilldash9x/easyapply-cli/internal/browser"
	"github.com/xkilldash9x/easyapply-cli/internal/config"
	"github.com/xkilldash9x/easyapply-cli/internal/form"
	"github.com/xkilldash9x/easyapply-cli/internal/generator"
	"github.com/xkilldash9x/easyapply-cli/internal/humanoid"
	"github.com/xkilldash9x/easyapply-cli/internal/jobs"
	"github.com/xkilldash9x/easyapply-cli/internal/ledger"
	"github.com/xkilldash9x/easyapply-cli/internal/llmclient"
	"github.com/xkilldash9x/easyapply-cli/internal/profile"
	"github.com/xkilldash9x/easyapply-cli/internal/secrets"
)

var errNoJobs = errors.New("no jobs to apply to: pass job URLs or --jobs-file")

// runApplyFn is swapped out in tests.
var runApplyFn = runApply

// newApplyCmd creates and configures the `apply` command.
func newApplyCmd(opts *rootOptions) *cobra.Command {
	applyCmd := &cobra.Command{
		Use:   "apply [job-urls...]",
		Short: "Applies to the given job postings, or to every job in the jobs file",
		Example: `  easyapply apply https://www.linkedin.com/jobs/view/4012345678/
  easyapply apply --jobs-file jobs.yaml --limit 10`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApplyFn(cmd.Context(), opts.cfg, args, cmd.OutOrStdout(), opts.logger)
		},
	}

	flags := applyCmd.Flags()
	flags.String("jobs-file", "", "YAML or JSON file listing the jobs to apply to. (Overrides config/env)")
	flags.IntP("limit", "n", 0, "Maximum number of applications to attempt, 0 for no limit. (Overrides config/env)")
	flags.Bool("headless", false, "Run the browser without a window. (Overrides config/env)")

	bindFlags(opts.v, flags, map[string]string{
		"jobs.file":        "jobs-file",
		"jobs.limit":       "limit",
		"browser.headless": "headless",
	})
	return applyCmd
}

// applyComponents holds the services opened for a run.
type applyComponents struct {
	Browser *browser.Manager
	Ledger  ledger.Repository
	LLM     *llmclient.LLMRouter
	CallLog *llmclient.CallLog
	Answers *answers.Store
}

// Shutdown releases everything that was opened, flushing the answer store last.
func (c *applyComponents) Shutdown(logger *zap.Logger) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if c.Browser != nil {
		if err := c.Browser.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Error during browser shutdown", zap.Error(err))
		}
	}
	if c.LLM != nil {
		if err := c.LLM.Close(); err != nil {
			logger.Warn("Error closing LLM clients", zap.Error(err))
		}
	}
	if c.CallLog != nil {
		if err := c.CallLog.Close(); err != nil {
			logger.Warn("Error closing LLM call log", zap.Error(err))
		}
	}
	if c.Ledger != nil {
		if err := c.Ledger.Close(); err != nil {
			logger.Warn("Error closing ledger", zap.Error(err))
		}
	}
	if c.Answers != nil {
		if err := c.Answers.Flush(); err != nil {
			logger.Error("Failed to save answer store", zap.Error(err))
		}
	}
}

func runApply(ctx context.Context, cfg *config.Config, urls []string, out io.Writer, logger *zap.Logger) error {
	list, err := collectJobs(cfg.Jobs().File, urls)
	if err != nil {
		return err
	}
	blacklist, err := jobs.NewBlacklist(cfg.Jobs().CompanyBlacklist, cfg.Jobs().TitleBlacklist)
	if err != nil {
		return fmt.Errorf("invalid jobs blacklist: %w", err)
	}
	prof, err := loadProfile(cfg.Profile().Path, logger)
	if err != nil {
		return err
	}

	logger.Info("Starting application run",
		zap.Int("jobs", len(list)),
		zap.Int("limit", cfg.Jobs().Limit),
		zap.Bool("headless", cfg.Browser().Headless),
	)

	components := &applyComponents{}
	defer components.Shutdown(logger)

	components.Answers = answers.Load(cfg.Answers().Path, logger)

	components.Ledger, err = ledger.Open(ctx, cfg.Output().Ledger, logger)
	if err != nil {
		return fmt.Errorf("failed to open application ledger: %w", err)
	}

	components.LLM, err = llmclient.NewRouterFromConfig(ctx, cfg.Agent().LLM, secrets.APIKey, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize LLM clients: %w", err)
	}
	var llm schemas.LLMClient = components.LLM
	if path := cfg.Output().CallLog; path != "" {
		components.CallLog, err = llmclient.OpenCallLog(path)
		if err != nil {
			return err
		}
		llm = components.CallLog.Wrap(components.LLM)
	}
	gen := generator.New(llm, prof, logger)

	pacer := humanoid.New(cfg.Browser().Humanoid, nil, logger)
	components.Browser, err = browser.Launch(ctx, cfg.Browser(), logger)
	if err != nil {
		return err
	}
	page := components.Browser.NewSession(pacer)

	markup := form.MarkupFromConfig(cfg.Form().Markup)
	driver := form.NewDriver(
		page,
		form.NewClassifier(markup),
		form.NewResolver(components.Answers, gen, logger),
		components.Answers,
		pacer,
		markup,
		form.DriverOptions{MaxPages: cfg.Form().MaxPages, EntryAttempts: cfg.Form().EntryAttempts},
		logger,
	)
	controller := applier.NewController(page, driver, pacer, markup, gen, logger)
	runner := applier.NewRunner(controller, components.Ledger, components.Answers, blacklist, cfg.Jobs().Limit, logger)

	summary, runErr := runner.Run(ctx, list)
	fmt.Fprintf(out, "\nApplied: %d  Failed: %d  Skipped: %d\n", summary.Applied, summary.Failed, summary.Skipped)
	return runErr
}

// collectJobs merges the jobs file with URLs from the command line, dropping duplicates.
func collectJobs(file string, urls []string) ([]schemas.Job, error) {
	var list []schemas.Job
	if file != "" {
		loaded, err := jobs.Load(file)
		if err != nil {
			return nil, err
		}
		list = append(list, loaded...)
	}
	if len(urls) > 0 {
		fromArgs, err := jobs.FromURLs(urls)
		if err != nil {
			return nil, err
		}
		list = append(list, fromArgs...)
	}

	list = jobs.Dedupe(list)
	if len(list) == 0 {
		return nil, errNoJobs
	}
	return list, nil
}

// loadProfile reads the applicant profile. A missing file only means that
// no profile context reaches the generator.
func loadProfile(path string, logger *zap.Logger) (*profile.Profile, error) {
	if path == "" {
		return nil, nil
	}
	p, err := profile.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn("Profile not found, answers will be generated without it", zap.String("path", path))
		return nil, nil
	}
	return p, err
}

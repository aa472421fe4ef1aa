// File: internal/config/config.go
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Browser() BrowserConfig
	Form() FormConfig
	Answers() AnswersConfig
	Agent() AgentConfig
	Profile() ProfileConfig
	Jobs() JobsConfig
	Output() OutputConfig

	SetBrowserHeadless(bool)
	SetJobsLimit(int)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	BrowserCfg BrowserConfig `mapstructure:"browser" yaml:"browser"`
	FormCfg    FormConfig    `mapstructure:"form" yaml:"form"`
	AnswersCfg AnswersConfig `mapstructure:"answers" yaml:"answers"`
	AgentCfg   AgentConfig   `mapstructure:"agent" yaml:"agent"`
	ProfileCfg ProfileConfig `mapstructure:"profile" yaml:"profile"`
	JobsCfg    JobsConfig    `mapstructure:"jobs" yaml:"jobs"`
	OutputCfg  OutputConfig  `mapstructure:"output" yaml:"output"`
}

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig   { return c.LoggerCfg }
func (c *Config) Browser() BrowserConfig { return c.BrowserCfg }
func (c *Config) Form() FormConfig       { return c.FormCfg }
func (c *Config) Answers() AnswersConfig { return c.AnswersCfg }
func (c *Config) Agent() AgentConfig     { return c.AgentCfg }
func (c *Config) Profile() ProfileConfig { return c.ProfileCfg }
func (c *Config) Jobs() JobsConfig       { return c.JobsCfg }
func (c *Config) Output() OutputConfig   { return c.OutputCfg }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetBrowserHeadless(b bool) { c.BrowserCfg.Headless = b }
func (c *Config) SetJobsLimit(n int)        { c.JobsCfg.Limit = n }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig controls how the authenticated browser session is obtained.
// Either RemoteURL attaches to an already running Chrome, or a new process is
// launched on top of UserDataDir (a profile that is already signed in).
type BrowserConfig struct {
	Headless          bool           `mapstructure:"headless" yaml:"headless"`
	ExecPath          string         `mapstructure:"exec_path" yaml:"exec_path"`
	UserDataDir       string         `mapstructure:"user_data_dir" yaml:"user_data_dir"`
	RemoteURL         string         `mapstructure:"remote_url" yaml:"remote_url"`
	Args              []string       `mapstructure:"args" yaml:"args"`
	ElementTimeout    time.Duration  `mapstructure:"element_timeout" yaml:"element_timeout"`
	NavigationTimeout time.Duration  `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	Humanoid          HumanoidConfig `mapstructure:"humanoid" yaml:"humanoid"`
}

// FormConfig tunes the form driver.
type FormConfig struct {
	MaxPages      int          `mapstructure:"max_pages" yaml:"max_pages"`
	EntryAttempts int          `mapstructure:"entry_attempts" yaml:"entry_attempts"`
	Markup        MarkupConfig `mapstructure:"markup" yaml:"markup"`
}

// MarkupConfig overrides the selectors used to recognise page structure.
// Empty fields fall back to the built-in markup.
type MarkupConfig struct {
	EntryButton        string   `mapstructure:"entry_button" yaml:"entry_button"`
	SeeMoreDescription string   `mapstructure:"see_more_description" yaml:"see_more_description"`
	Description        string   `mapstructure:"description" yaml:"description"`
	RecruiterLink      string   `mapstructure:"recruiter_link" yaml:"recruiter_link"`
	Section            string   `mapstructure:"section" yaml:"section"`
	Label              string   `mapstructure:"label" yaml:"label"`
	Option             string   `mapstructure:"option" yaml:"option"`
	DateMarker         string   `mapstructure:"date_marker" yaml:"date_marker"`
	DateInput          string   `mapstructure:"date_input" yaml:"date_input"`
	TextInput          string   `mapstructure:"text_input" yaml:"text_input"`
	Select             string   `mapstructure:"select" yaml:"select"`
	PrimaryAction      string   `mapstructure:"primary_action" yaml:"primary_action"`
	SubmitLabel        string   `mapstructure:"submit_label" yaml:"submit_label"`
	FollowCompany      string   `mapstructure:"follow_company" yaml:"follow_company"`
	FollowChecked      string   `mapstructure:"follow_checked" yaml:"follow_checked"`
	ErrorFeedback      string   `mapstructure:"error_feedback" yaml:"error_feedback"`
	Dismiss            string   `mapstructure:"dismiss" yaml:"dismiss"`
	ConfirmDiscard     string   `mapstructure:"confirm_discard" yaml:"confirm_discard"`
	TermsPhrases       []string `mapstructure:"terms_phrases" yaml:"terms_phrases"`
}

// AnswersConfig locates the persisted answer store.
type AnswersConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// ProfileConfig locates the applicant profile.
type ProfileConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// JobsConfig holds the job source and filtering rules.
type JobsConfig struct {
	File             string   `mapstructure:"file" yaml:"file"`
	CompanyBlacklist []string `mapstructure:"company_blacklist" yaml:"company_blacklist"`
	TitleBlacklist   []string `mapstructure:"title_blacklist" yaml:"title_blacklist"`
	// Limit caps the number of applications per run. Zero means no limit.
	Limit int `mapstructure:"limit" yaml:"limit"`
}

// OutputConfig holds the locations of run artifacts.
type OutputConfig struct {
	Dir     string       `mapstructure:"dir" yaml:"dir"`
	CallLog string       `mapstructure:"call_log" yaml:"call_log"`
	Ledger  LedgerConfig `mapstructure:"ledger" yaml:"ledger"`
}

// LedgerConfig selects the application ledger backend.
type LedgerConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"`
	// DSN is a file path for sqlite or a connection string for postgres.
	DSN string `mapstructure:"dsn" yaml:"dsn"`
}

const (
	LedgerSQLite   = "sqlite"
	LedgerPostgres = "postgres"
)

// AgentConfig holds settings related to the answer generator.
type AgentConfig struct {
	LLM LLMRouterConfig `mapstructure:"llm" yaml:"llm"`
}

// LLMProvider defines the supported LLM providers.
type LLMProvider string

const (
	ProviderGemini LLMProvider = "gemini"
	ProviderOpenAI LLMProvider = "openai"
)

// LLMRouterConfig configures the model routing logic.
type LLMRouterConfig struct {
	DefaultFastModel     string                    `mapstructure:"default_fast_model" yaml:"default_fast_model"`
	DefaultPowerfulModel string                    `mapstructure:"default_powerful_model" yaml:"default_powerful_model"`
	RequestsPerMinute    int                       `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
	Models               map[string]LLMModelConfig `mapstructure:"models" yaml:"models"`
}

// LLMModelConfig defines the configuration for a single LLM.
type LLMModelConfig struct {
	Provider    LLMProvider   `mapstructure:"provider" yaml:"provider"`
	Model       string        `mapstructure:"model" yaml:"model"`
	APIKey      string        `mapstructure:"api_key" yaml:"-"`
	Endpoint    string        `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout  time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	Temperature float32       `mapstructure:"temperature" yaml:"temperature"`
	TopP        float32       `mapstructure:"top_p" yaml:"top_p"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "easyapply")
	v.SetDefault("logger.log_file", "easyapply.log")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Browser --
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.user_data_dir", "~/.config/easyapply/chrome-profile")
	v.SetDefault("browser.element_timeout", "10s")
	v.SetDefault("browser.navigation_timeout", "60s")
	setHumanoidDefaults(v)

	// -- Form --
	v.SetDefault("form.max_pages", 15)
	v.SetDefault("form.entry_attempts", 2)

	// -- Stores --
	v.SetDefault("answers.path", "answers.json")
	v.SetDefault("profile.path", "data/profile.yaml")
	v.SetDefault("jobs.file", "")
	v.SetDefault("jobs.limit", 0)
	v.SetDefault("output.dir", "data/output")
	v.SetDefault("output.call_log", "llm_calls.jsonl")
	v.SetDefault("output.ledger.driver", LedgerSQLite)
	v.SetDefault("output.ledger.dsn", "")

	// -- Agent --
	// Model keys must not contain dots; viper treats them as path separators.
	v.SetDefault("agent.llm.default_fast_model", "gemini-flash")
	v.SetDefault("agent.llm.default_powerful_model", "gemini-pro")
	v.SetDefault("agent.llm.requests_per_minute", 30)
	v.SetDefault("agent.llm.models", map[string]interface{}{
		"gemini-flash": map[string]interface{}{
			"provider":    string(ProviderGemini),
			"model":       "gemini-2.5-flash",
			"api_timeout": "60s",
			"temperature": 0.4,
		},
		"gemini-pro": map[string]interface{}{
			"provider":    string(ProviderGemini),
			"model":       "gemini-2.5-pro",
			"api_timeout": "120s",
			"temperature": 0.4,
		},
		"gpt-4o-mini": map[string]interface{}{
			"provider":    string(ProviderOpenAI),
			"model":       "gpt-4o-mini",
			"api_timeout": "60s",
			"temperature": 0.4,
		},
	})
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// expandPaths resolves "~" in every filesystem path and anchors output
// artifacts under the output directory.
func (c *Config) expandPaths() error {
	paths := []*string{
		&c.BrowserCfg.UserDataDir,
		&c.BrowserCfg.ExecPath,
		&c.AnswersCfg.Path,
		&c.ProfileCfg.Path,
		&c.JobsCfg.File,
		&c.OutputCfg.Dir,
		&c.LoggerCfg.LogFile,
	}
	if c.OutputCfg.Ledger.Driver != LedgerPostgres {
		paths = append(paths, &c.OutputCfg.Ledger.DSN)
	}
	for _, p := range paths {
		if *p == "" {
			continue
		}
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("failed to expand path %q: %w", *p, err)
		}
		*p = expanded
	}

	if c.OutputCfg.CallLog != "" && !filepath.IsAbs(c.OutputCfg.CallLog) {
		c.OutputCfg.CallLog = filepath.Join(c.OutputCfg.Dir, c.OutputCfg.CallLog)
	}
	if c.OutputCfg.Ledger.Driver == LedgerSQLite && c.OutputCfg.Ledger.DSN == "" {
		c.OutputCfg.Ledger.DSN = filepath.Join(c.OutputCfg.Dir, "applications.db")
	}
	return nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.BrowserCfg.ElementTimeout <= 0 {
		return fmt.Errorf("browser.element_timeout must be a positive duration")
	}
	if c.BrowserCfg.NavigationTimeout <= 0 {
		return fmt.Errorf("browser.navigation_timeout must be a positive duration")
	}
	if err := c.BrowserCfg.Humanoid.Validate(); err != nil {
		return fmt.Errorf("browser.humanoid configuration invalid: %w", err)
	}
	if c.FormCfg.MaxPages <= 0 {
		return fmt.Errorf("form.max_pages must be a positive integer")
	}
	if c.FormCfg.EntryAttempts <= 0 {
		return fmt.Errorf("form.entry_attempts must be a positive integer")
	}
	if c.AnswersCfg.Path == "" {
		return fmt.Errorf("answers.path is a required configuration field")
	}
	if c.JobsCfg.Limit < 0 {
		return fmt.Errorf("jobs.limit must not be negative")
	}
	if err := c.OutputCfg.Ledger.Validate(); err != nil {
		return fmt.Errorf("output.ledger configuration invalid: %w", err)
	}
	if err := c.AgentCfg.LLM.Validate(); err != nil {
		return fmt.Errorf("agent.llm configuration invalid: %w", err)
	}
	return nil
}

// Validate checks the ledger backend selection.
func (l *LedgerConfig) Validate() error {
	switch l.Driver {
	case LedgerSQLite:
		return nil
	case LedgerPostgres:
		if l.DSN == "" {
			return fmt.Errorf("dsn is required for the postgres driver")
		}
		return nil
	default:
		return fmt.Errorf("unsupported driver %q, expected %q or %q", l.Driver, LedgerSQLite, LedgerPostgres)
	}
}

// Validate checks that both default tiers point at a configured, supported model.
func (r *LLMRouterConfig) Validate() error {
	if r.RequestsPerMinute < 0 {
		return fmt.Errorf("requests_per_minute must not be negative")
	}
	for _, name := range []string{r.DefaultFastModel, r.DefaultPowerfulModel} {
		if name == "" {
			return fmt.Errorf("default_fast_model and default_powerful_model are required")
		}
		m, ok := r.Models[name]
		if !ok {
			return fmt.Errorf("model %q is not defined under models", name)
		}
		switch m.Provider {
		case ProviderGemini, ProviderOpenAI:
		default:
			return fmt.Errorf("model %q has unsupported provider %q", name, m.Provider)
		}
	}
	return nil
}

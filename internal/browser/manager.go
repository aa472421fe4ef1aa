// internal/browser/manager.go
package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/easyapply-cli/internal/browser/session"
	"github.com/xkilldash9x/easyapply-cli/internal/config"
)

const shutdownGracePeriod = 15 * time.Second

// Manager owns the browser process (or remote connection) and the single tab
// applications run in.
type Manager struct {
	cfg    config.BrowserConfig
	logger *zap.Logger

	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc
}

// DefaultAllocatorOptions builds the Chrome launch flags for cfg.
func DefaultAllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(1366, 900),
	)
	if !cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	if cfg.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(cfg.UserDataDir))
	}
	for _, arg := range cfg.Args {
		key, value, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if key == "" {
			continue
		}
		if hasValue {
			opts = append(opts, chromedp.Flag(key, value))
		} else {
			opts = append(opts, chromedp.Flag(key, true))
		}
	}
	return opts
}

// Launch starts Chrome, or attaches to cfg.RemoteURL when set, and opens the tab.
func Launch(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Manager, error) {
	m := &Manager{cfg: cfg, logger: logger.Named("browser_manager")}

	var allocCtx context.Context
	if cfg.RemoteURL != "" {
		m.logger.Info("Attaching to remote browser", zap.String("url", cfg.RemoteURL))
		allocCtx, m.allocCancel = chromedp.NewRemoteAllocator(ctx, cfg.RemoteURL)
	} else {
		m.logger.Info("Launching browser", zap.Bool("headless", cfg.Headless), zap.String("profile", cfg.UserDataDir))
		allocCtx, m.allocCancel = chromedp.NewExecAllocator(ctx, DefaultAllocatorOptions(cfg)...)
	}

	m.tabCtx, m.tabCancel = chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(func(format string, args ...interface{}) {
			m.logger.Debug("chromedp", zap.String("msg", fmt.Sprintf(format, args...)))
		}),
	)

	// The first Run starts the browser.
	if err := chromedp.Run(m.tabCtx); err != nil {
		m.tabCancel()
		m.allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	m.logger.Info("Browser ready")
	return m, nil
}

// NewSession returns a Session bound to the manager's tab.
func (m *Manager) NewSession(keys session.KeyPacer) *session.Session {
	return session.New(m.tabCtx, m.cfg, keys, m.logger)
}

// Shutdown closes the tab and the browser. A remote browser is only detached from.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("Shutting down browser")
	defer m.allocCancel()

	done := make(chan error, 1)
	go func() { done <- chromedp.Cancel(m.tabCtx) }()

	select {
	case err := <-done:
		if err != nil && err != context.Canceled {
			return fmt.Errorf("failed to close browser: %w", err)
		}
		return nil
	case <-ctx.Done():
		m.tabCancel()
		return fmt.Errorf("timed out closing browser: %w", ctx.Err())
	case <-time.After(shutdownGracePeriod):
		m.tabCancel()
		return fmt.Errorf("browser did not close within %v", shutdownGracePeriod)
	}
}

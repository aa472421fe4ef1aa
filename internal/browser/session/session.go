// internal/browser/session/session.go
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/easyapply-cli/internal/config"
	"github.com/xkilldash9x/easyapply-cli/internal/form"
)

// KeyPacer spaces out individual keystrokes. The humanoid pacer implements it.
type KeyPacer interface {
	KeyPause(ctx context.Context) error
}

// Session drives a single browser tab. Every operation runs against the
// long-lived tab context combined with the caller's context, so a caller
// deadline never tears down the tab itself.
//
// Session implements form.Page.
type Session struct {
	ctx    context.Context
	logger *zap.Logger
	cfg    config.BrowserConfig
	keys   KeyPacer

	// generation distinguishes section tags from one enumeration to the next.
	generation atomic.Int64
	targets    atomic.Int64
}

var _ form.Page = (*Session)(nil)

// New wraps a chromedp tab context. keys may be nil, in which case text is
// sent in one burst.
func New(tabCtx context.Context, cfg config.BrowserConfig, keys KeyPacer, logger *zap.Logger) *Session {
	return &Session{
		ctx:    tabCtx,
		logger: logger.Named("session"),
		cfg:    cfg,
		keys:   keys,
	}
}

// RunActions executes actions on the tab, bounded by ctx.
func (s *Session) RunActions(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := CombineContext(s.ctx, ctx)
	defer cancel()

	err := chromedp.Run(runCtx, actions...)
	if err != nil {
		// Prefer the caller's reason over chromedp's generic wrapper.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if s.ctx.Err() != nil {
			return s.ctx.Err()
		}
	}
	return err
}

// by picks the chromedp query strategy: XPath for selectors starting with
// "/" or "(", CSS otherwise.
func by(selector string) chromedp.QueryOption {
	if isXPath(selector) {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

func isXPath(selector string) bool {
	return strings.HasPrefix(selector, "/") || strings.HasPrefix(selector, "(")
}

func (s *Session) elementTimeout() time.Duration {
	if s.cfg.ElementTimeout > 0 {
		return s.cfg.ElementTimeout
	}
	return 10 * time.Second
}

func (s *Session) navigationTimeout() time.Duration {
	if s.cfg.NavigationTimeout > 0 {
		return s.cfg.NavigationTimeout
	}
	return 60 * time.Second
}

// Navigate loads url and waits for the document body.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.Info("Navigating", zap.String("url", url))
	navCtx, cancel := context.WithTimeout(ctx, s.navigationTimeout())
	defer cancel()

	err := s.RunActions(navCtx, chromedp.Navigate(url), chromedp.WaitReady("body", chromedp.ByQuery))
	if err != nil {
		if errors.Is(navCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return fmt.Errorf("navigation to %s timed out after %v: %w", url, s.navigationTimeout(), err)
		}
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

// Reload refreshes the current page.
func (s *Session) Reload(ctx context.Context) error {
	navCtx, cancel := context.WithTimeout(ctx, s.navigationTimeout())
	defer cancel()
	if err := s.RunActions(navCtx, chromedp.Reload(), chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		return fmt.Errorf("reload failed: %w", err)
	}
	return nil
}

// WaitFor waits up to the element timeout for selector to become visible.
// Running out of time is not an error.
func (s *Session) WaitFor(ctx context.Context, selector string) (bool, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.elementTimeout())
	defer cancel()

	err := s.RunActions(opCtx, chromedp.WaitVisible(selector, by(selector)))
	switch {
	case err == nil:
		return true, nil
	case ctx.Err() != nil:
		return false, ctx.Err()
	case errors.Is(err, context.DeadlineExceeded), opCtx.Err() != nil:
		s.logger.Debug("Element did not appear", zap.String("selector", selector), zap.Duration("timeout", s.elementTimeout()))
		return false, nil
	default:
		return false, fmt.Errorf("waiting for %q failed: %w", selector, err)
	}
}

// Exists reports whether selector currently matches anything.
func (s *Session) Exists(ctx context.Context, selector string) (bool, error) {
	var n int
	if err := s.evaluate(ctx, fmt.Sprintf(`%s; __ea.all(%s).length`, jsPrelude, jsonEncode(selector)), &n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// ScrollIntoView scrolls the first match into the viewport.
func (s *Session) ScrollIntoView(ctx context.Context, selector string) error {
	opCtx, cancel := context.WithTimeout(ctx, s.elementTimeout())
	defer cancel()
	if err := s.RunActions(opCtx, chromedp.ScrollIntoView(selector, by(selector))); err != nil {
		return fmt.Errorf("scroll to %q failed: %w", selector, err)
	}
	return nil
}

// Click scrolls to, waits for and clicks the first match.
func (s *Session) Click(ctx context.Context, selector string) error {
	s.logger.Debug("Clicking", zap.String("selector", selector))
	opCtx, cancel := context.WithTimeout(ctx, s.elementTimeout())
	defer cancel()

	err := s.RunActions(opCtx,
		chromedp.ScrollIntoView(selector, by(selector)),
		chromedp.WaitVisible(selector, by(selector)),
		chromedp.Click(selector, by(selector)),
	)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(opCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("click on %q timed out: %w", selector, opCtx.Err())
		}
		return fmt.Errorf("click on %q failed: %w", selector, err)
	}
	return nil
}

// Text returns the trimmed visible text of the first match.
func (s *Session) Text(ctx context.Context, selector string) (string, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.elementTimeout())
	defer cancel()

	var text string
	if err := s.RunActions(opCtx, chromedp.Text(selector, &text, by(selector))); err != nil {
		return "", fmt.Errorf("reading text of %q failed: %w", selector, err)
	}
	return strings.TrimSpace(text), nil
}

// Texts returns the trimmed text of every visible match in document order.
func (s *Session) Texts(ctx context.Context, selector string) ([]string, error) {
	var texts []string
	script := fmt.Sprintf(`%s; __ea.all(%s).filter(__ea.visible).map(__ea.text)`, jsPrelude, jsonEncode(selector))
	if err := s.evaluate(ctx, script, &texts); err != nil {
		return nil, err
	}
	return texts, nil
}

// HTML returns the inner HTML of the first match.
func (s *Session) HTML(ctx context.Context, selector string) (string, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.elementTimeout())
	defer cancel()

	var html string
	if err := s.RunActions(opCtx, chromedp.InnerHTML(selector, &html, by(selector))); err != nil {
		return "", fmt.Errorf("reading html of %q failed: %w", selector, err)
	}
	return html, nil
}

// Attribute returns an attribute of the first match, or "" when it is unset.
func (s *Session) Attribute(ctx context.Context, selector, name string) (string, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.elementTimeout())
	defer cancel()

	var value string
	var ok bool
	if err := s.RunActions(opCtx, chromedp.AttributeValue(selector, name, &value, &ok, by(selector))); err != nil {
		return "", fmt.Errorf("reading %s of %q failed: %w", name, selector, err)
	}
	return value, nil
}

// Sections tags every visible match of selector and returns a handle per
// match in document order. Handles from earlier calls become stale.
func (s *Session) Sections(ctx context.Context, selector string) ([]form.Section, error) {
	gen := s.generation.Add(1)
	script := fmt.Sprintf(`%s; (() => {
		const found = __ea.all(%s).filter(__ea.visible);
		found.forEach((el, i) => el.setAttribute(%s, %s + "-" + i));
		return found.length;
	})()`, jsPrelude, jsonEncode(selector), jsonEncode(sectionAttr), jsonEncode(fmt.Sprint(gen)))

	var n int
	if err := s.evaluate(ctx, script, &n); err != nil {
		return nil, fmt.Errorf("enumerating sections failed: %w", err)
	}

	out := make([]form.Section, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, &section{s: s, scope: fmt.Sprintf(`[%s="%d-%d"]`, sectionAttr, gen, i)})
	}
	s.logger.Debug("Enumerated form sections", zap.Int("count", n))
	return out, nil
}

// evaluate runs script and decodes its JSON result into res.
func (s *Session) evaluate(ctx context.Context, script string, res interface{}) error {
	opCtx, cancel := context.WithTimeout(ctx, s.elementTimeout())
	defer cancel()

	var raw json.RawMessage
	err := s.RunActions(opCtx, chromedp.Evaluate(script, &raw, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithReturnByValue(true).WithAwaitPromise(true)
	}))
	if err != nil {
		return fmt.Errorf("script evaluation failed: %w", err)
	}
	if res == nil {
		return nil
	}
	if err := json.Unmarshal(raw, res); err != nil {
		return fmt.Errorf("failed to decode script result %s: %w", truncate(string(raw), 120), err)
	}
	return nil
}

// typeText clears selector and types text one key at a time.
func (s *Session) typeText(ctx context.Context, selector, text string) error {
	var cleared bool
	clearScript := fmt.Sprintf(`(function(sel) {
		const el = document.querySelector(sel);
		if (!el || el.disabled || el.readOnly) return false;
		el.focus();
		el.value = "";
		el.dispatchEvent(new Event('input', { bubbles: true }));
		return true;
	})(%s)`, jsonEncode(selector))

	if err := s.evaluate(ctx, clearScript, &cleared); err != nil {
		return err
	}
	if !cleared {
		return fmt.Errorf("element %q is missing or not editable", selector)
	}

	if s.keys == nil {
		return s.sendKeys(ctx, selector, text)
	}
	for _, r := range text {
		if err := s.sendKeys(ctx, selector, string(r)); err != nil {
			return err
		}
		if err := s.keys.KeyPause(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) sendKeys(ctx context.Context, selector, keys string) error {
	opCtx, cancel := context.WithTimeout(ctx, s.elementTimeout())
	defer cancel()
	if err := s.RunActions(opCtx, chromedp.SendKeys(selector, keys, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("typing into %q failed: %w", selector, err)
	}
	return nil
}

// markTarget tags the nth match of rel inside scope and returns a selector
// for it. ok is false when there is no such element. Indexes line up with
// section Texts.
func (s *Session) markTarget(ctx context.Context, scope, rel string, n int) (string, bool, error) {
	id := fmt.Sprint(s.targets.Add(1))
	script := fmt.Sprintf(`(() => {
		const root = document.querySelector(%s);
		if (!root) return false;
		const el = root.querySelectorAll(%s)[%d];
		if (!el) return false;
		el.setAttribute(%s, %s);
		return true;
	})()`, jsonEncode(scope), jsonEncode(rel), n, jsonEncode(targetAttr), jsonEncode(id))

	var ok bool
	if err := s.evaluate(ctx, script, &ok); err != nil {
		return "", false, err
	}
	return fmt.Sprintf(`[%s="%s"]`, targetAttr, id), ok, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// jsonEncode encodes v as a JavaScript literal.
func jsonEncode(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `""`
	}
	return string(b)
}

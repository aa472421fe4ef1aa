// internal/browser/session/section.go
package session

import (
	"context"
	"fmt"

	"github.com/xkilldash9x/easyapply-cli/internal/form"
)

const (
	sectionAttr = "data-easyapply-section"
	targetAttr  = "data-easyapply-target"
)

// jsPrelude defines the query helpers shared by every page script.
const jsPrelude = `var __ea = window.__ea || (window.__ea = {
	all: (sel, root) => {
		root = root || document;
		if (sel.startsWith('/') || sel.startsWith('(')) {
			const r = document.evaluate(sel, root, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
			const out = [];
			for (let i = 0; i < r.snapshotLength; i++) out.push(r.snapshotItem(i));
			return out;
		}
		return Array.from(root.querySelectorAll(sel));
	},
	visible: (el) => !!(el.offsetWidth || el.offsetHeight || el.getClientRects().length),
	text: (el) => (el.innerText || el.textContent || "").trim(),
})`

// section is a form.Section backed by a tagged DOM element.
type section struct {
	s     *Session
	scope string
}

var _ form.Section = (*section)(nil)

func (sec *section) Text(ctx context.Context) (string, error) {
	var text string
	script := fmt.Sprintf(`%s; (() => {
		const el = document.querySelector(%s);
		return el ? __ea.text(el) : "";
	})()`, jsPrelude, jsonEncode(sec.scope))
	if err := sec.s.evaluate(ctx, script, &text); err != nil {
		return "", err
	}
	return text, nil
}

func (sec *section) Texts(ctx context.Context, selector string) ([]string, error) {
	var texts []string
	script := fmt.Sprintf(`%s; (() => {
		const el = document.querySelector(%s);
		if (!el) return [];
		return Array.from(el.querySelectorAll(%s)).map(__ea.text);
	})()`, jsPrelude, jsonEncode(sec.scope), jsonEncode(selector))
	if err := sec.s.evaluate(ctx, script, &texts); err != nil {
		return nil, err
	}
	return texts, nil
}

func (sec *section) Count(ctx context.Context, selector string) (int, error) {
	var n int
	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		return el ? el.querySelectorAll(%s).length : 0;
	})()`, jsonEncode(sec.scope), jsonEncode(selector))
	if err := sec.s.evaluate(ctx, script, &n); err != nil {
		return 0, err
	}
	return n, nil
}

func (sec *section) ClickNth(ctx context.Context, selector string, n int) error {
	target, ok, err := sec.s.markTarget(ctx, sec.scope, selector, n)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no element %d for %q in section", n, selector)
	}
	return sec.s.Click(ctx, target)
}

func (sec *section) Fill(ctx context.Context, selector, value string) error {
	target, ok, err := sec.s.markTarget(ctx, sec.scope, selector, 0)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no input %q in section", selector)
	}
	return sec.s.typeText(ctx, target, value)
}

func (sec *section) Choose(ctx context.Context, selector, label string) error {
	var chosen bool
	script := fmt.Sprintf(`(() => {
		const root = document.querySelector(%s);
		const sel = root && root.querySelector(%s);
		if (!sel) return false;
		const opt = Array.from(sel.options).find(o => o.text.trim() === %s);
		if (!opt) return false;
		sel.value = opt.value;
		sel.dispatchEvent(new Event('input', { bubbles: true }));
		sel.dispatchEvent(new Event('change', { bubbles: true }));
		return true;
	})()`, jsonEncode(sec.scope), jsonEncode(selector), jsonEncode(label))
	if err := sec.s.evaluate(ctx, script, &chosen); err != nil {
		return err
	}
	if !chosen {
		return fmt.Errorf("option %q not found in %q", label, selector)
	}
	return nil
}

// internal/browser/session/context_utils.go
package session

import (
	"context"
)

// CombineContext returns a context that carries the values of tab (the
// chromedp target) and is canceled as soon as either tab or op is done.
// chromedp needs the tab's values; the caller's op context supplies the
// deadline.
func CombineContext(tab, op context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(tab)
	if op.Done() == nil {
		return combined, cancel
	}
	stop := context.AfterFunc(op, cancel)
	return combined, func() {
		stop()
		cancel()
	}
}

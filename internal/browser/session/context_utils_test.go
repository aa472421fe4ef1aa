// internal/browser/session/context_utils_test.go
package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCombineContext(t *testing.T) {
	type ctxKey string
	const key ctxKey = "target"

	t.Run("InheritsTabValues", func(t *testing.T) {
		tab := context.WithValue(context.Background(), key, "tab-1")
		combined, cancel := CombineContext(tab, context.Background())
		defer cancel()

		assert.Equal(t, "tab-1", combined.Value(key))
		assert.NoError(t, combined.Err())
	})

	t.Run("CanceledByTab", func(t *testing.T) {
		tab, cancelTab := context.WithCancel(context.Background())
		combined, cancel := CombineContext(tab, context.Background())
		defer cancel()

		cancelTab()
		assert.ErrorIs(t, combined.Err(), context.Canceled)
	})

	t.Run("CanceledByOperation", func(t *testing.T) {
		op, cancelOp := context.WithCancel(context.Background())
		combined, cancel := CombineContext(context.Background(), op)
		defer cancel()

		cancelOp()
		assert.Eventually(t, func() bool { return combined.Err() != nil }, time.Second, 5*time.Millisecond)
	})

	t.Run("OperationDeadline", func(t *testing.T) {
		op, cancelOp := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancelOp()
		combined, cancel := CombineContext(context.Background(), op)
		defer cancel()

		select {
		case <-combined.Done():
		case <-time.After(time.Second):
			t.Fatal("combined context outlived the operation deadline")
		}
	})

	t.Run("CancelDoesNotAffectParents", func(t *testing.T) {
		tab, cancelTab := context.WithCancel(context.Background())
		defer cancelTab()
		op, cancelOp := context.WithCancel(context.Background())
		defer cancelOp()

		_, cancel := CombineContext(tab, op)
		cancel()

		assert.NoError(t, tab.Err())
		assert.NoError(t, op.Err())
	})
}

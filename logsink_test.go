package casegraph

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyAsyncDelivers(t *testing.T) {
	received := make(chan map[string]any, 1)
	sink := func(event map[string]any) error {
		received <- event
		return nil
	}

	NotifyAsync(sink, map[string]any{"run_id": "abc"})

	select {
	case event := <-received:
		assert.Equal(t, "abc", event["run_id"])
	case <-time.After(time.Second):
		t.Fatal("sink was never called")
	}
}

func TestNotifyAsyncNilSink(t *testing.T) {
	require.NotPanics(t, func() {
		NotifyAsync(nil, map[string]any{"run_id": "abc"})
	})
}

func TestNotifyAsyncSwallowsFailures(t *testing.T) {
	done := make(chan struct{}, 2)

	NotifyAsync(func(map[string]any) error {
		done <- struct{}{}
		return errors.New("dashboard unreachable")
	}, nil)
	NotifyAsync(func(map[string]any) error {
		done <- struct{}{}
		panic("broken sink")
	}, nil)

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("sink was never called")
		}
	}
}

package sender

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherRunsJobs(t *testing.T) {
	d := NewDispatcher(Options{Workers: 2, QueueSize: 8})
	var runs atomic.Int32
	for range 5 {
		require.NoError(t, d.Enqueue(context.Background(), "post.md", "sendMessage", func() error {
			runs.Add(1)
			return nil
		}))
	}
	d.Close()
	assert.Equal(t, int32(5), runs.Load())
	assert.Equal(t, Stats{Delivered: 5}, d.Stats())
}

func TestDispatcherDoesNotRetryPermanentErrors(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 3, RetryBackoff: time.Millisecond})
	var runs atomic.Int32
	require.NoError(t, d.Enqueue(context.Background(), "post.md", "sendMessage", func() error {
		runs.Add(1)
		return errors.New("telegram: chat not found (400)")
	}))
	d.Close()
	assert.Equal(t, int32(1), runs.Load())
	assert.Equal(t, uint64(1), d.Stats().Failed)
}

func TestDispatcherRetriesDialErrors(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 2, RetryBackoff: time.Millisecond})
	var runs atomic.Int32
	require.NoError(t, d.Enqueue(context.Background(), "post.md", "sendMessage", func() error {
		if runs.Add(1) < 3 {
			return &net.OpError{Op: "dial", Err: errors.New("connection refused")}
		}
		return nil
	}))
	d.Close()
	assert.Equal(t, int32(3), runs.Load())
	assert.Equal(t, Stats{Delivered: 1}, d.Stats())
}

func TestDispatcherRejects(t *testing.T) {
	d := NewDispatcher(Options{})
	assert.Error(t, d.Enqueue(context.Background(), "x", "", nil))
	d.Close()
	d.Close()
	err := d.Enqueue(context.Background(), "x", "", func() error { return nil })
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestDispatcherQueueFull(t *testing.T) {
	release := make(chan struct{})
	d := NewDispatcher(Options{Workers: 1, QueueSize: 1})
	started := make(chan struct{})
	require.NoError(t, d.Enqueue(context.Background(), "block", "", func() error {
		close(started)
		<-release
		return nil
	}))
	<-started
	require.NoError(t, d.Enqueue(context.Background(), "queued", "", func() error { return nil }))
	assert.ErrorIs(t, d.Enqueue(context.Background(), "overflow", "", func() error { return nil }), ErrQueueFull)
	assert.Equal(t, 1, d.Stats().Pending)
	close(release)
	d.Close()
}

func TestClassifyAndRedact(t *testing.T) {
	assert.Equal(t, "timeout", classifyError(context.DeadlineExceeded))
	assert.Equal(t, "dial", classifyError(&net.OpError{Op: "dial", Err: errors.New("refused")}))
	assert.Equal(t, "http_4xx", classifyError(errors.New("telegram: bad request (400)")))
	assert.Equal(t, "flood", classifyError(errors.New("telegram: too many requests (429)")))
	assert.Equal(t, "http_5xx", classifyError(errors.New("telegram: internal (502)")))
	assert.Equal(t, "unknown", classifyError(errors.New("weird")))
	assert.Equal(t, "post to bot<redacted>/sendMessage failed",
		redactToken(errors.New("post to bot123456:AAH-abc_def/sendMessage failed")))
}

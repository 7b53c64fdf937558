package engine

import (
	"context"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/ddx/internal/event"
	"github.com/bamsammich/ddx/internal/stats"
)

func TestNotifyStatus(t *testing.T) {
	flag := &StatusFlag{}
	stop := NotifyStatus(context.Background(), flag)
	defer stop()

	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGUSR1))
	assert.Eventually(t, func() bool { return flag.pending.Load() }, 2*time.Second, 10*time.Millisecond)
	assert.True(t, flag.take())
}

func TestServeStatus_FullChannelKeepsRequest(t *testing.T) {
	events := make(chan event.Event, 1)
	events <- event.Event{Type: event.CopyStarted}
	flag := &StatusFlag{}
	c := &copier{cfg: Config{Events: events, StatusFlag: flag}, stats: stats.NewCollector()}

	flag.Request()
	c.serveStatus()
	require.Len(t, events, 1)
	assert.Equal(t, event.CopyStarted, (<-events).Type)

	// No new request: the one that could not be delivered is still pending.
	c.serveStatus()
	require.Len(t, events, 1)
	assert.Equal(t, event.StatusRequested, (<-events).Type)
	assert.False(t, flag.take())
}

func TestWatchStatus(t *testing.T) {
	t.Run("serves requests", func(t *testing.T) {
		events := make(chan event.Event, 1)
		flag := &StatusFlag{}
		c := &copier{cfg: Config{Events: events, StatusFlag: flag}, stats: stats.NewCollector()}
		stop := c.watchStatus()
		defer stop()

		flag.Request()
		select {
		case ev := <-events:
			assert.Equal(t, event.StatusRequested, ev.Type)
			assert.False(t, ev.Timestamp.IsZero())
		case <-time.After(2 * time.Second):
			t.Fatal("status request was not served")
		}
	})

	t.Run("undelivered request stays pending after stop", func(t *testing.T) {
		events := make(chan event.Event, 1)
		events <- event.Event{Type: event.CopyStarted}
		flag := &StatusFlag{}
		c := &copier{cfg: Config{Events: events, StatusFlag: flag}, stats: stats.NewCollector()}
		stop := c.watchStatus()

		flag.Request()
		stop()
		assert.True(t, flag.take())
		assert.Len(t, events, 1)
	})

	t.Run("nil flag", func(t *testing.T) {
		c := &copier{cfg: Config{Events: make(chan event.Event, 1)}, stats: stats.NewCollector()}
		c.watchStatus()()
	})
}

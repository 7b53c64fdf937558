package engine

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
)

// StatusFlag records pending status requests. Requests made before the
// copy loop next looks are coalesced into one report.
type StatusFlag struct {
	pending atomic.Bool

	once  sync.Once
	ready chan struct{}
}

// Request marks a status report as pending and wakes the copy's status
// watcher. Safe to call from any goroutine.
func (f *StatusFlag) Request() {
	f.pending.Store(true)
	select {
	case f.wake() <- struct{}{}:
	default:
	}
}

// wake returns the channel signalled by Request.
func (f *StatusFlag) wake() chan struct{} {
	f.once.Do(func() { f.ready = make(chan struct{}, 1) })
	return f.ready
}

// requeue marks a report pending again without waking the watcher. The
// copy loop picks it up at its next record boundary.
func (f *StatusFlag) requeue() {
	f.pending.Store(true)
}

// take clears and returns the pending state.
func (f *StatusFlag) take() bool {
	if f == nil {
		return false
	}
	return f.pending.Swap(false)
}

// NotifyStatus sets flag whenever the process receives a status signal
// (SIGUSR1, plus SIGINFO where the platform has it). It stops when ctx is
// done or the returned function is called.
func NotifyStatus(ctx context.Context, flag *StatusFlag) (stop func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, statusSignals...)

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ch:
				flag.Request()
			}
		}
	}()

	return func() {
		signal.Stop(ch)
		cancel()
		<-done
	}
}

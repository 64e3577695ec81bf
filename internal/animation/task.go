package animation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mini-rodalies-3d/thetrains/internal/logging"
)

// Task is a running periodic job
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Schedule runs fn every interval until ctx is cancelled or the task is
// stopped. A panic in fn is logged and the loop keeps going.
func Schedule(ctx context.Context, interval time.Duration, fn func()) *Task {
	ctx, cancel := context.WithCancel(ctx)
	task := &Task{
		cancel: cancel,
		done:   make(chan struct{}),
	}
	logger := logging.FromContext(ctx)

	go func() {
		defer close(task.done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				runSafely(logger, fn)
			case <-ctx.Done():
				logger.Debug("animation loop stopped", slog.Duration("interval", interval))
				return
			}
		}
	}()

	return task
}

func runSafely(logger *slog.Logger, fn func()) {
	defer logging.RecoverWithLogging(logger, "animation_tick")
	fn()
}

// Stop cancels the task and waits for the loop to exit. It is safe to call
// more than once.
func (t *Task) Stop() {
	t.once.Do(t.cancel)
	<-t.done
}

// Done is closed once the loop has exited
func (t *Task) Done() <-chan struct{} {
	return t.done
}

package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/bodytap/internal/adapters/mq/queue"
	worker "github.com/okian/bodytap/internal/adapters/mq/worker"
	logging "github.com/okian/bodytap/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

// recordingSender collects sent messages and fails on a chosen type.
type recordingSender struct {
	mu     sync.Mutex
	sent   []string
	failOn string
}

func (s *recordingSender) Send(_ context.Context, m queue.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.Type == s.failOn {
		return errors.New("connection reset")
	}
	s.sent = append(s.sent, m.Type)
	return nil
}

func (s *recordingSender) types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent...)
}

func TestDispatcher(t *testing.T) {
	convey.Convey("Given a dispatcher over an outbox", t, func() {
		// Initialize logging for tests
		_ = logging.Init()

		q := queue.NewInMemoryQueue(queue.WithCapacity(16))
		sender := &recordingSender{}
		ctx := context.Background()

		convey.Convey("When the queue is filled and closed", func() {
			for _, typ := range []string{"session", "countdown", "scene", "hit", "end"} {
				q.Enqueue(ctx, queue.Message{Type: typ})
			}
			_ = q.Close()
			d := worker.NewDispatcher(q, sender, worker.WithName("test-dispatcher"))
			err := d.Run(ctx)

			convey.Convey("Then every message is sent in order and Run ends cleanly", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(sender.types(), convey.ShouldResemble, []string{"session", "countdown", "scene", "hit", "end"})
			})
		})

		convey.Convey("When a send fails", func() {
			sender.failOn = "hit"
			for _, typ := range []string{"scene", "hit", "end"} {
				q.Enqueue(ctx, queue.Message{Type: typ})
			}
			d := worker.NewDispatcher(q, sender)
			err := d.Run(ctx)

			convey.Convey("Then the dispatcher stops with the error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "send hit")
				convey.So(sender.types(), convey.ShouldResemble, []string{"scene"})
			})
		})

		convey.Convey("When shut down while idle", func() {
			d := worker.NewDispatcher(q, sender)
			go func() { _ = d.Run(ctx) }()
			time.Sleep(10 * time.Millisecond)

			shutdownCtx, cancel := context.WithTimeout(ctx, time.Second)
			defer cancel()
			err := d.Shutdown(shutdownCtx)

			convey.Convey("Then it stops promptly", func() {
				convey.So(err, convey.ShouldBeNil)
				select {
				case <-d.Done():
				default:
					convey.So("dispatcher still running", convey.ShouldBeEmpty)
				}
				convey.So(d.Shutdown(shutdownCtx), convey.ShouldBeNil)
			})
		})

		convey.Convey("When its context is cancelled", func() {
			runCtx, cancel := context.WithCancel(ctx)
			d := worker.NewDispatcher(q, worker.SenderFunc(func(context.Context, queue.Message) error { return nil }))
			result := make(chan error, 1)
			go func() { result <- d.Run(runCtx) }()
			cancel()

			convey.Convey("Then Run returns without error", func() {
				select {
				case err := <-result:
					convey.So(err, convey.ShouldBeNil)
				case <-time.After(time.Second):
					convey.So("run did not return", convey.ShouldBeEmpty)
				}
			})
		})
	})
}

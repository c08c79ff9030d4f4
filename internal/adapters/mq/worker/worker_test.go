package worker_test

import (
	"context"
	"sync"
	"testing"
	"time"

	worker "github.com/okian/salesbonus/internal/adapters/mq/worker"
	"github.com/okian/salesbonus/internal/domain/ingest"
	model "github.com/okian/salesbonus/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

type mockQueue struct {
	ch chan model.Message
}

func newMockQueue() *mockQueue {
	return &mockQueue{ch: make(chan model.Message, 10)}
}

func (mq *mockQueue) Dequeue(context.Context) <-chan model.Message {
	return mq.ch
}

type mockProcessor struct {
	mu   sync.Mutex
	seen []string
}

func (mp *mockProcessor) Process(_ context.Context, msg model.Message) ingest.Outcome {
	if msg.Content == "panic" {
		panic("processor exploded")
	}
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.seen = append(mp.seen, msg.ID)
	return ingest.OutcomeSale
}

func (mp *mockProcessor) ids() []string {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return append([]string(nil), mp.seen...)
}

func waitDone(w *worker.InMemoryWorker) bool {
	select {
	case <-w.Done():
		return true
	case <-time.After(time.Second):
		return false
	}
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a worker over a queue", t, func() {
		q := newMockQueue()
		proc := &mockProcessor{}
		w := worker.NewInMemoryWorker(q, proc, worker.WithName("ingest-worker"))

		convey.Convey("When messages are queued and the queue is closed", func() {
			q.ch <- model.Message{ID: "m1"}
			q.ch <- model.Message{ID: "m2"}
			q.ch <- model.Message{ID: "m3"}
			close(q.ch)
			go w.Run(context.Background())

			convey.Convey("Then they are processed in arrival order and the worker stops", func() {
				convey.So(waitDone(w), convey.ShouldBeTrue)
				convey.So(proc.ids(), convey.ShouldResemble, []string{"m1", "m2", "m3"})
				convey.So(w.Shutdown(context.Background()), convey.ShouldBeNil)
			})
		})

		convey.Convey("When a message panics", func() {
			q.ch <- model.Message{ID: "m1"}
			q.ch <- model.Message{ID: "boom", Content: "panic"}
			q.ch <- model.Message{ID: "m3"}
			close(q.ch)
			go w.Run(context.Background())

			convey.Convey("Then the next message still runs", func() {
				convey.So(waitDone(w), convey.ShouldBeTrue)
				convey.So(proc.ids(), convey.ShouldResemble, []string{"m1", "m3"})
			})
		})

		convey.Convey("When the context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			go w.Run(ctx)
			cancel()

			convey.Convey("Then Run returns", func() {
				convey.So(waitDone(w), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When shutdown times out on an idle open queue", func() {
			go w.Run(context.Background())
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
			defer cancel()
			err := w.Shutdown(ctx)

			convey.Convey("Then the loop is told to stop", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(waitDone(w), convey.ShouldBeTrue)
			})
		})
	})
}

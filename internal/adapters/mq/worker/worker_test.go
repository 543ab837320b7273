package worker_test

import (
	"context"
	"errors"
	"runtime"
	"strconv"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/expertgraph/internal/adapters/mq/queue"
	worker "github.com/okian/expertgraph/internal/adapters/mq/worker"
	model "github.com/okian/expertgraph/internal/domain/model"
	logging "github.com/okian/expertgraph/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

type mockQueue struct {
	jobs chan queue.Job
	once sync.Once
}

func newMockQueue() *mockQueue {
	return &mockQueue{jobs: make(chan queue.Job, 10)}
}

func (mq *mockQueue) Dequeue(ctx context.Context) <-chan queue.Job {
	return mq.jobs
}

func (mq *mockQueue) close() {
	mq.once.Do(func() { close(mq.jobs) })
}

func (mq *mockQueue) add(id string) {
	mq.jobs <- queue.Job{Article: model.Article{ID: id}, EnqueuedAt: time.Now()}
}

type mockIndexer struct {
	mu      sync.Mutex
	indexed map[string]bool
	errors  map[string]error
	delay   time.Duration
}

func newMockIndexer() *mockIndexer {
	return &mockIndexer{indexed: map[string]bool{}, errors: map[string]error{}}
}

func (mi *mockIndexer) Index(ctx context.Context, a model.Article) error {
	if mi.delay > 0 {
		select {
		case <-time.After(mi.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	mi.mu.Lock()
	defer mi.mu.Unlock()
	if err, ok := mi.errors[a.ID]; ok {
		return err
	}
	mi.indexed[a.ID] = true
	return nil
}

func (mi *mockIndexer) setError(id string, err error) {
	mi.mu.Lock()
	defer mi.mu.Unlock()
	mi.errors[id] = err
}

func (mi *mockIndexer) has(id string) bool {
	mi.mu.Lock()
	defer mi.mu.Unlock()
	return mi.indexed[id]
}

type failures struct {
	mu  sync.Mutex
	ids []string
}

func (f *failures) record(_ context.Context, j queue.Job, _ error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = append(f.ids, j.Article.ID)
}

func (f *failures) list() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ids...)
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a new InMemoryWorker", t, func() {
		_ = logging.Init()

		q := newMockQueue()
		indexer := newMockIndexer()
		failed := &failures{}

		convey.Convey("When running a worker", func() {
			w := worker.NewInMemoryWorker(q, indexer,
				worker.WithName("test-worker"),
				worker.WithFailureHandler(failed.record),
			)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go w.Run(ctx)

			convey.Convey("And a job arrives", func() {
				q.add("a1")

				convey.Convey("Then the article is indexed", func() {
					convey.So(waitFor(func() bool { return indexer.has("a1") }), convey.ShouldBeTrue)
					convey.So(failed.list(), convey.ShouldBeEmpty)
				})
			})

			convey.Convey("And indexing fails", func() {
				indexer.setError("a2", errors.New("index down"))
				q.add("a2")

				convey.Convey("Then the failure handler sees the job", func() {
					convey.So(waitFor(func() bool { return len(failed.list()) == 1 }), convey.ShouldBeTrue)
					convey.So(failed.list()[0], convey.ShouldEqual, "a2")
					convey.So(indexer.has("a2"), convey.ShouldBeFalse)
				})
			})

			convey.Convey("And shutting down", func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
				defer shutdownCancel()

				convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
				convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the job outlives its timeout", func() {
			indexer.delay = 200 * time.Millisecond
			w := worker.NewInMemoryWorker(q, indexer,
				worker.WithJobTimeout(10*time.Millisecond),
				worker.WithFailureHandler(failed.record),
			)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go w.Run(ctx)
			q.add("slow")

			convey.Convey("Then it is reported as failed", func() {
				convey.So(waitFor(func() bool { return len(failed.list()) == 1 }), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the queue closes", func() {
			w := worker.NewInMemoryWorker(q, indexer)
			done := make(chan struct{})
			go func() {
				w.Run(context.Background())
				close(done)
			}()
			q.close()

			convey.Convey("Then the worker returns", func() {
				select {
				case <-done:
					convey.So(true, convey.ShouldBeTrue)
				case <-time.After(time.Second):
					convey.So("worker still running", convey.ShouldBeEmpty)
				}
			})
		})

		convey.Convey("When shutdown waits on a worker that never started", func() {
			w := worker.NewInMemoryWorker(q, indexer)
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
			defer cancel()

			convey.Convey("Then it times out", func() {
				err := w.Shutdown(shutdownCtx)
				convey.So(errors.Is(err, context.DeadlineExceeded), convey.ShouldBeTrue)
			})
		})
	})
}

func TestWorkerPool(t *testing.T) {
	convey.Convey("Given a worker pool", t, func() {
		_ = logging.Init()

		q := newMockQueue()
		indexer := newMockIndexer()
		indexer.setError("bad", errors.New("rejected"))

		convey.Convey("When created with a non-positive count", func() {
			pool := worker.NewPool(0, q, indexer)
			convey.So(pool.Stats().Workers, convey.ShouldBeGreaterThan, 0)
		})

		convey.Convey("When processing several jobs", func() {
			pool := worker.NewPool(3, q, indexer, worker.WithLogger(logging.Get()))
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			pool.Start(ctx)

			for _, id := range []string{"a1", "a2", "a3", "bad"} {
				q.add(id)
			}

			convey.Convey("Then the counters add up across workers", func() {
				convey.So(waitFor(func() bool {
					s := pool.Stats()
					return s.Processed == 3 && s.Failed == 1 && s.Active == 0
				}), convey.ShouldBeTrue)
				convey.So(pool.Stats().Workers, convey.ShouldEqual, 3)
			})

			convey.Convey("Then shutdown is graceful", func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
				defer shutdownCancel()
				convey.So(pool.Shutdown(shutdownCtx), convey.ShouldBeNil)
			})
		})
	})
}

func TestWorkerWithRealQueue(t *testing.T) {
	convey.Convey("Given an in-memory queue feeding a pool", t, func() {
		_ = logging.Init()

		q := queue.NewInMemoryQueue(queue.WithCapacity(20))
		indexer := newMockIndexer()
		pool := worker.NewPool(2, q, indexer)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		pool.Start(ctx)

		for _, id := range []string{"a1", "a2", "a3", "a4", "a5"} {
			convey.So(q.Enqueue(ctx, queue.Job{Article: model.Article{ID: id}}), convey.ShouldBeNil)
		}

		convey.Convey("Then every job is indexed", func() {
			convey.So(waitFor(func() bool { return pool.Stats().Processed == 5 }), convey.ShouldBeTrue)
			convey.So(q.Len(), convey.ShouldEqual, 0)
		})
	})
}

func TestPoolShutdownReleasesDequeue(t *testing.T) {
	convey.Convey("Given a pool stopped while jobs are still queued", t, func() {
		_ = logging.Init()

		before := runtime.NumGoroutine()
		q := queue.NewInMemoryQueue(queue.WithCapacity(100))
		for i := 0; i < 100; i++ {
			convey.So(q.Enqueue(context.Background(), queue.Job{Article: model.Article{ID: "a" + strconv.Itoa(i)}}), convey.ShouldBeNil)
		}
		indexer := newMockIndexer()
		indexer.delay = 5 * time.Millisecond
		pool := worker.NewPool(4, q, indexer)
		pool.Start(context.WithoutCancel(context.Background()))
		time.Sleep(20 * time.Millisecond)

		convey.So(q.Close(), convey.ShouldBeNil)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		convey.So(pool.Shutdown(shutdownCtx), convey.ShouldBeNil)

		convey.Convey("Then no worker or dequeue goroutine outlives it", func() {
			convey.So(q.Len(), convey.ShouldBeGreaterThan, 0)
			convey.So(waitFor(func() bool { return runtime.NumGoroutine() <= before }), convey.ShouldBeTrue)
		})
	})

	convey.Convey("Given a single worker shut down with a job in flight", t, func() {
		_ = logging.Init()

		before := runtime.NumGoroutine()
		q := queue.NewInMemoryQueue(queue.WithCapacity(10))
		for _, id := range []string{"a1", "a2", "a3"} {
			convey.So(q.Enqueue(context.Background(), queue.Job{Article: model.Article{ID: id}}), convey.ShouldBeNil)
		}
		indexer := newMockIndexer()
		indexer.delay = 20 * time.Millisecond
		w := worker.NewInMemoryWorker(q, indexer)
		go w.Run(context.Background())
		time.Sleep(5 * time.Millisecond)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)

		convey.Convey("Then its dequeue goroutine exits too", func() {
			convey.So(waitFor(func() bool { return runtime.NumGoroutine() <= before }), convey.ShouldBeTrue)
		})
	})
}

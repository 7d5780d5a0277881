package worker_test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/payment-engine/internal"
	"github.com/frahmantamala/payment-engine/internal/core/cache"
	"github.com/frahmantamala/payment-engine/internal/core/events"
	"github.com/frahmantamala/payment-engine/internal/worker"
)

// recordingDeadLetters captures dead-letter callbacks.
type recordingDeadLetters struct {
	mu      sync.Mutex
	handled []worker.Decision
}

func (r *recordingDeadLetters) Handle(ctx context.Context, jobType worker.JobType, jc worker.JobContext, decision worker.Decision, cause error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handled = append(r.handled, decision)
}

func (r *recordingDeadLetters) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handled)
}

var _ = Describe("Scheduler", func() {
	var (
		scheduler   *worker.Scheduler
		shell       *worker.Shell
		store       *cache.MemoryStore
		deadLetters *recordingDeadLetters
		performed   *int64
		performFn   atomic.Value // func(worker.JobContext) *internal.AppError
	)

	newScheduler := func(cfg worker.SchedulerConfig) *worker.Scheduler {
		return worker.NewScheduler(shell, deadLetters, store, cfg, testLogger())
	}

	BeforeEach(func() {
		store = cache.NewMemoryStore()
		deadLetters = &recordingDeadLetters{}
		performed = new(int64)

		performFn.Store(func(jc worker.JobContext) *internal.AppError { return nil })

		router := worker.NewRouter(worker.RouterConfig{
			SystemBackoffBase:   10 * time.Millisecond,
			ExternalBackoffBase: 10 * time.Millisecond,
			FallbackBackoffBase: 10 * time.Millisecond,
		}, events.NopSink{}, testLogger())
		shell = worker.NewShell(router, events.NopSink{}, testLogger())
		shell.Register(&stubPerformer{
			jobType: worker.JobTypePaymentProcess,
			perform: func(ctx context.Context, jc worker.JobContext) *internal.AppError {
				atomic.AddInt64(performed, 1)
				fn := performFn.Load().(func(worker.JobContext) *internal.AppError)
				return fn(jc)
			},
		})

		scheduler = newScheduler(worker.SchedulerConfig{MaxWorkers: 2, JobQueueSize: 10})
		scheduler.Start()
	})

	AfterEach(func() {
		scheduler.Shutdown()
		store.Close()
	})

	Describe("Enqueue", func() {
		It("runs the job and reports success", func() {
			jobID, err := scheduler.Enqueue(worker.JobTypePaymentProcess, "pay-1", worker.Options{})

			Expect(err).ToNot(HaveOccurred())
			Eventually(func() worker.JobStatus {
				status, _ := scheduler.Status(jobID)
				return status
			}).Should(Equal(worker.StatusSucceeded))
			Expect(atomic.LoadInt64(performed)).To(Equal(int64(1)))
		})

		It("deduplicates within the uniqueness window", func() {
			opts := worker.Options{UniqueWindow: time.Minute}

			first, err := scheduler.Enqueue(worker.JobTypePaymentProcess, "pay-1", opts)
			Expect(err).ToNot(HaveOccurred())

			second, err := scheduler.Enqueue(worker.JobTypePaymentProcess, "pay-1", opts)
			Expect(err).ToNot(HaveOccurred())
			Expect(second).To(Equal(first))

			// a different domain id is not deduplicated
			third, err := scheduler.Enqueue(worker.JobTypePaymentProcess, "pay-2", opts)
			Expect(err).ToNot(HaveOccurred())
			Expect(third).ToNot(Equal(first))
		})

		It("enqueues again once the uniqueness window expires", func() {
			opts := worker.Options{UniqueWindow: 20 * time.Millisecond}

			first, err := scheduler.Enqueue(worker.JobTypePaymentProcess, "pay-1", opts)
			Expect(err).ToNot(HaveOccurred())

			Eventually(func() string {
				id, err := scheduler.Enqueue(worker.JobTypePaymentProcess, "pay-1", opts)
				Expect(err).ToNot(HaveOccurred())
				return id
			}).ShouldNot(Equal(first))
		})

		It("honors a delay before dispatch", func() {
			jobID, err := scheduler.Enqueue(worker.JobTypePaymentProcess, "pay-1", worker.Options{
				Delay: 30 * time.Millisecond,
			})
			Expect(err).ToNot(HaveOccurred())

			status, ok := scheduler.Status(jobID)
			Expect(ok).To(BeTrue())
			Expect(status).To(Equal(worker.StatusScheduled))

			Eventually(func() worker.JobStatus {
				s, _ := scheduler.Status(jobID)
				return s
			}).Should(Equal(worker.StatusSucceeded))
		})
	})

	Describe("Cancel", func() {
		It("cancels a scheduled job before it runs", func() {
			jobID, err := scheduler.Enqueue(worker.JobTypePaymentProcess, "pay-1", worker.Options{
				Delay: 50 * time.Millisecond,
			})
			Expect(err).ToNot(HaveOccurred())

			Expect(scheduler.Cancel(jobID)).To(BeTrue())

			status, _ := scheduler.Status(jobID)
			Expect(status).To(Equal(worker.StatusCancelled))

			Consistently(func() int64 {
				return atomic.LoadInt64(performed)
			}, 100*time.Millisecond).Should(Equal(int64(0)))
		})

		It("refuses to cancel a finished job", func() {
			jobID, err := scheduler.Enqueue(worker.JobTypePaymentProcess, "pay-1", worker.Options{})
			Expect(err).ToNot(HaveOccurred())

			Eventually(func() worker.JobStatus {
				status, _ := scheduler.Status(jobID)
				return status
			}).Should(Equal(worker.StatusSucceeded))

			Expect(scheduler.Cancel(jobID)).To(BeFalse())
		})

		It("reports false for an unknown job id", func() {
			Expect(scheduler.Cancel("no-such-job")).To(BeFalse())
		})
	})

	Describe("retry flow", func() {
		It("re-runs a retryable failure until it succeeds", func() {
			var calls int64
			performFn.Store(func(jc worker.JobContext) *internal.AppError {
				if atomic.AddInt64(&calls, 1) < 3 {
					return internal.NewSystemError(internal.ReasonStorageFailure, "transient", nil)
				}
				return nil
			})

			jobID, err := scheduler.Enqueue(worker.JobTypePaymentProcess, "pay-1", worker.Options{MaxAttempts: 5})
			Expect(err).ToNot(HaveOccurred())

			Eventually(func() worker.JobStatus {
				status, _ := scheduler.Status(jobID)
				return status
			}, 2*time.Second).Should(Equal(worker.StatusSucceeded))
			Expect(atomic.LoadInt64(&calls)).To(Equal(int64(3)))
		})

		It("dead-letters once the attempt budget is spent", func() {
			performFn.Store(func(jc worker.JobContext) *internal.AppError {
				return internal.NewSystemError(internal.ReasonStorageFailure, "permanent", nil)
			})

			jobID, err := scheduler.Enqueue(worker.JobTypePaymentProcess, "pay-1", worker.Options{MaxAttempts: 2})
			Expect(err).ToNot(HaveOccurred())

			Eventually(func() worker.JobStatus {
				status, _ := scheduler.Status(jobID)
				return status
			}, 2*time.Second).Should(Equal(worker.StatusDeadLetter))
			Expect(deadLetters.count()).To(Equal(1))
			Expect(deadLetters.handled[0].Reason).To(Equal(worker.DeadLetterMaxAttempts))
		})

		It("dead-letters a business rule failure without retrying", func() {
			performFn.Store(func(jc worker.JobContext) *internal.AppError {
				return internal.NewBusinessRuleError(internal.ReasonInsufficientFunds, "insufficient funds")
			})

			jobID, err := scheduler.Enqueue(worker.JobTypePaymentProcess, "pay-1", worker.Options{MaxAttempts: 5})
			Expect(err).ToNot(HaveOccurred())

			Eventually(func() worker.JobStatus {
				status, _ := scheduler.Status(jobID)
				return status
			}).Should(Equal(worker.StatusDeadLetter))
			Expect(atomic.LoadInt64(performed)).To(Equal(int64(1)))
			Expect(deadLetters.handled[0].Action).To(Equal(worker.ActionMarkPaymentFailed))
		})
	})

	Describe("queue capacity", func() {
		It("rejects a job when the queue is full", func() {
			blocked := newScheduler(worker.SchedulerConfig{MaxWorkers: 1, JobQueueSize: 1})
			// never started: the single queue slot fills and stays full

			_, err := blocked.Enqueue(worker.JobTypePaymentProcess, "pay-1", worker.Options{})
			Expect(err).ToNot(HaveOccurred())

			_, err = blocked.Enqueue(worker.JobTypePaymentProcess, "pay-2", worker.Options{})
			Expect(err).To(HaveOccurred())
		})
	})
})

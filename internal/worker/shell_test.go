package worker_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/payment-engine/internal"
	"github.com/frahmantamala/payment-engine/internal/core/events"
	"github.com/frahmantamala/payment-engine/internal/worker"
)

// stubPerformer lets each test script the performer's behaviour.
type stubPerformer struct {
	jobType worker.JobType
	timeout time.Duration
	perform func(ctx context.Context, jc worker.JobContext) *internal.AppError
}

func (p *stubPerformer) Type() worker.JobType { return p.jobType }

func (p *stubPerformer) Timeout() time.Duration {
	if p.timeout <= 0 {
		return time.Minute
	}
	return p.timeout
}

func (p *stubPerformer) Perform(ctx context.Context, jc worker.JobContext) *internal.AppError {
	return p.perform(ctx, jc)
}

var _ = Describe("Shell", func() {
	var (
		shell *worker.Shell
		sink  *recordingSink
	)

	BeforeEach(func() {
		sink = &recordingSink{}
		router := worker.NewRouter(worker.RouterConfig{}, events.NopSink{}, testLogger())
		shell = worker.NewShell(router, sink, testLogger())
	})

	Context("when the performer succeeds", func() {
		It("reports success and emits job.succeeded", func() {
			shell.Register(&stubPerformer{
				jobType: worker.JobTypePaymentProcess,
				perform: func(ctx context.Context, jc worker.JobContext) *internal.AppError {
					return nil
				},
			})

			outcome := shell.Run(context.Background(), worker.JobTypePaymentProcess, worker.JobContext{
				JobID:    "job-1",
				DomainID: "pay-1",
				Attempt:  1,
			})

			Expect(outcome.Err).To(BeNil())
			Expect(outcome.Decision).To(BeNil())
			Expect(sink.names()).To(ContainElement(events.EventTypeJobSucceeded))
		})
	})

	Context("when the performer fails", func() {
		It("stamps the correlation id and routes the failure", func() {
			shell.Register(&stubPerformer{
				jobType: worker.JobTypePaymentProcess,
				perform: func(ctx context.Context, jc worker.JobContext) *internal.AppError {
					return internal.NewSystemError(internal.ReasonStorageFailure, "db down", nil)
				},
			})

			outcome := shell.Run(context.Background(), worker.JobTypePaymentProcess, worker.JobContext{
				JobID:         "job-1",
				CorrelationID: "corr-42",
				DomainID:      "pay-1",
				Attempt:       1,
				MaxAttempts:   3,
			})

			Expect(outcome.Err).ToNot(BeNil())
			Expect(outcome.Err.CorrelationID).To(Equal("corr-42"))
			Expect(outcome.Decision).ToNot(BeNil())
			Expect(outcome.Decision.Retry).To(BeTrue())
			Expect(sink.names()).To(ContainElement(events.EventTypeJobFailed))
		})

		It("derives a correlation id when the job has none", func() {
			var seen string
			shell.Register(&stubPerformer{
				jobType: worker.JobTypePaymentProcess,
				perform: func(ctx context.Context, jc worker.JobContext) *internal.AppError {
					seen = jc.CorrelationID
					return nil
				},
			})

			shell.Run(context.Background(), worker.JobTypePaymentProcess, worker.JobContext{
				JobID:   "job-1",
				Attempt: 1,
			})

			Expect(seen).ToNot(BeEmpty())
		})
	})

	Context("when the performer panics", func() {
		It("contains the panic as a retryable system error", func() {
			shell.Register(&stubPerformer{
				jobType: worker.JobTypePaymentProcess,
				perform: func(ctx context.Context, jc worker.JobContext) *internal.AppError {
					panic("nil map write")
				},
			})

			var outcome worker.Outcome
			Expect(func() {
				outcome = shell.Run(context.Background(), worker.JobTypePaymentProcess, worker.JobContext{
					JobID:       "job-1",
					Attempt:     1,
					MaxAttempts: 3,
				})
			}).ToNot(Panic())

			Expect(outcome.Err).ToNot(BeNil())
			Expect(outcome.Err.Reason).To(Equal(internal.ReasonPanic))
			Expect(outcome.Err.Category).To(Equal(internal.CategorySystem))
			Expect(outcome.Decision.Retry).To(BeTrue())
		})
	})

	Context("when the performer overruns its budget", func() {
		It("converts the result into a job_timeout error", func() {
			shell.Register(&stubPerformer{
				jobType: worker.JobTypePaymentProcess,
				timeout: 10 * time.Millisecond,
				perform: func(ctx context.Context, jc worker.JobContext) *internal.AppError {
					<-ctx.Done()
					return nil
				},
			})

			outcome := shell.Run(context.Background(), worker.JobTypePaymentProcess, worker.JobContext{
				JobID:       "job-1",
				Attempt:     1,
				MaxAttempts: 3,
			})

			Expect(outcome.Err).ToNot(BeNil())
			Expect(outcome.Err.Reason).To(Equal(internal.ReasonJobTimeout))
			Expect(outcome.Decision.Retry).To(BeTrue())
		})
	})

	Context("when no performer is registered for the job type", func() {
		It("fails with a system error", func() {
			outcome := shell.Run(context.Background(), worker.JobTypeBankSync, worker.JobContext{
				JobID:   "job-1",
				Attempt: 1,
			})

			Expect(outcome.Err).ToNot(BeNil())
			Expect(outcome.Err.Category).To(Equal(internal.CategorySystem))
		})
	})
})

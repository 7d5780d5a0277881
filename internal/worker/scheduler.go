package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/frahmantamala/payment-engine/internal/core/cache"
)

type Priority int

const (
	PriorityDefault Priority = iota
	PriorityHigh
)

type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusScheduled  JobStatus = "scheduled"
	StatusRunning    JobStatus = "running"
	StatusSucceeded  JobStatus = "succeeded"
	StatusDeadLetter JobStatus = "dead_letter"
	StatusCancelled  JobStatus = "cancelled"
)

// Options controls enqueue behaviour.
type Options struct {
	Priority Priority
	// UniqueWindow deduplicates jobs sharing (type, domain id) at enqueue
	// time: within the window, Enqueue returns the existing job id.
	UniqueWindow time.Duration
	Delay        time.Duration
	MaxAttempts  int
}

type job struct {
	id            string
	typ           JobType
	domainID      string
	correlationID string
	attempt       int
	maxAttempts   int
	priority      Priority
}

type jobState struct {
	status JobStatus
	timer  *time.Timer
}

// DeadLetterHandler applies the router's terminal action. Dead-lettered jobs
// must surface somewhere; they are never silently dropped.
type DeadLetterHandler interface {
	Handle(ctx context.Context, jobType JobType, jc JobContext, decision Decision, cause error)
}

// SchedulerConfig sizes the pool.
type SchedulerConfig struct {
	MaxWorkers   int
	JobQueueSize int
}

// Scheduler is the in-process job queue façade: enqueue with priority,
// uniqueness and delay; cancel and status lookups; retry re-enqueueing
// driven by the shell's routing decisions.
type Scheduler struct {
	shell       *Shell
	deadLetters DeadLetterHandler
	store       cache.Store
	logger      *slog.Logger

	highQueue    chan *job
	defaultQueue chan *job
	maxWorkers   int

	mu     sync.Mutex
	states map[string]*jobState

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

func NewScheduler(shell *Shell, deadLetters DeadLetterHandler, store cache.Store, cfg SchedulerConfig, logger *slog.Logger) *Scheduler {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 10
	}
	if cfg.JobQueueSize <= 0 {
		cfg.JobQueueSize = 100
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		shell:        shell,
		deadLetters:  deadLetters,
		store:        store,
		logger:       logger,
		highQueue:    make(chan *job, cfg.JobQueueSize),
		defaultQueue: make(chan *job, cfg.JobQueueSize),
		maxWorkers:   cfg.MaxWorkers,
		states:       make(map[string]*jobState),
		ctx:          ctx,
		cancel:       cancel,
	}
}

func (s *Scheduler) Start() {
	s.once.Do(func() {
		for i := 0; i < s.maxWorkers; i++ {
			s.wg.Add(1)
			go s.worker(i)
		}
		s.logger.Info("scheduler started",
			"max_workers", s.maxWorkers,
			"queue_size", cap(s.defaultQueue))
	})
}

func (s *Scheduler) Shutdown() {
	s.logger.Info("shutting down scheduler")
	s.cancel()
	s.wg.Wait()
	s.logger.Info("scheduler shutdown complete")
}

// Enqueue registers a job. When a uniqueness window is set and a job with
// the same (type, domain id) was enqueued within it, the existing job id is
// returned instead of a new job.
func (s *Scheduler) Enqueue(jobType JobType, domainID string, opts Options) (string, error) {
	jobID := uuid.NewString()

	if opts.UniqueWindow > 0 {
		key := fmt.Sprintf("unique:%s:%s", jobType, domainID)
		if !s.store.SetNX(key, jobID, opts.UniqueWindow) {
			if existing, ok := s.store.Get(key); ok {
				s.logger.Info("enqueue deduplicated",
					"job_type", string(jobType),
					"domain_id", domainID,
					"existing_job_id", existing)
				return existing, nil
			}
		}
	}

	j := &job{
		id:          jobID,
		typ:         jobType,
		domainID:    domainID,
		attempt:     1,
		maxAttempts: opts.MaxAttempts,
		priority:    opts.Priority,
	}

	s.mu.Lock()
	state := &jobState{status: StatusQueued}
	s.states[jobID] = state
	s.mu.Unlock()

	if opts.Delay > 0 {
		s.mu.Lock()
		state.status = StatusScheduled
		state.timer = time.AfterFunc(opts.Delay, func() { s.push(j) })
		s.mu.Unlock()
		s.logger.Info("job scheduled",
			"job_id", jobID,
			"job_type", string(jobType),
			"domain_id", domainID,
			"delay_ms", opts.Delay.Milliseconds())
		return jobID, nil
	}

	if err := s.push(j); err != nil {
		s.mu.Lock()
		delete(s.states, jobID)
		s.mu.Unlock()
		return "", err
	}

	s.logger.Info("job enqueued",
		"job_id", jobID,
		"job_type", string(jobType),
		"domain_id", domainID,
		"priority", int(opts.Priority))
	return jobID, nil
}

// Cancel stops a job that has not been dispatched yet.
func (s *Scheduler) Cancel(jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[jobID]
	if !ok {
		return false
	}
	if state.status != StatusQueued && state.status != StatusScheduled {
		return false
	}
	if state.timer != nil {
		state.timer.Stop()
	}
	state.status = StatusCancelled
	s.logger.Info("job cancelled", "job_id", jobID)
	return true
}

func (s *Scheduler) Status(jobID string) (JobStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[jobID]
	if !ok {
		return "", false
	}
	return state.status, true
}

func (s *Scheduler) push(j *job) error {
	queue := s.defaultQueue
	if j.priority == PriorityHigh {
		queue = s.highQueue
	}

	select {
	case queue <- j:
		s.setStatus(j.id, StatusQueued)
		return nil
	default:
		s.logger.Warn("job queue full, rejecting job",
			"job_id", j.id,
			"job_type", string(j.typ),
			"queue_capacity", cap(queue))
		return fmt.Errorf("job queue full")
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		// Drain high priority first.
		select {
		case j := <-s.highQueue:
			s.process(j)
			continue
		default:
		}

		select {
		case j := <-s.highQueue:
			s.process(j)
		case j := <-s.defaultQueue:
			s.process(j)
		case <-s.ctx.Done():
			s.logger.Debug("worker shutting down", "worker_id", id)
			return
		}
	}
}

func (s *Scheduler) process(j *job) {
	s.mu.Lock()
	state, ok := s.states[j.id]
	if !ok || state.status == StatusCancelled {
		s.mu.Unlock()
		return
	}
	state.status = StatusRunning
	s.mu.Unlock()

	if j.correlationID == "" {
		j.correlationID = uuid.NewString()
	}

	jc := JobContext{
		JobID:         j.id,
		CorrelationID: j.correlationID,
		DomainID:      j.domainID,
		Attempt:       j.attempt,
		MaxAttempts:   j.maxAttempts,
	}

	outcome := s.shell.Run(s.ctx, j.typ, jc)

	switch {
	case outcome.Err == nil:
		s.setStatus(j.id, StatusSucceeded)

	case outcome.Decision != nil && outcome.Decision.Retry:
		j.attempt++
		delay := outcome.Decision.Delay
		s.mu.Lock()
		state.status = StatusScheduled
		state.timer = time.AfterFunc(delay, func() {
			if err := s.push(j); err != nil {
				s.logger.Error("failed to requeue job", "job_id", j.id, "error", err)
				s.setStatus(j.id, StatusDeadLetter)
			}
		})
		s.mu.Unlock()

	default:
		s.setStatus(j.id, StatusDeadLetter)
		if s.deadLetters != nil && outcome.Decision != nil {
			s.deadLetters.Handle(s.ctx, j.typ, jc, *outcome.Decision, outcome.Err)
		}
	}
}

func (s *Scheduler) setStatus(jobID string, status JobStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if state, ok := s.states[jobID]; ok {
		state.status = status
	}
}

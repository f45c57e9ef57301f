package queue

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// Handler processes one job. Returning an error requeues the job with
// backoff until the attempt limit is reached.
type Handler func(ctx context.Context, job Job) error

// Worker consumes the queue with a fixed goroutine pool.
type Worker struct {
	queue       *Queue
	handlers    map[JobType]Handler
	concurrency int
	maxAttempts int
	baseBackoff time.Duration
	maxBackoff  time.Duration
}

func NewWorker(q *Queue, concurrency, maxAttempts int) *Worker {
	if concurrency < 1 {
		concurrency = 1
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Worker{
		queue:       q,
		handlers:    map[JobType]Handler{},
		concurrency: concurrency,
		maxAttempts: maxAttempts,
		baseBackoff: 30 * time.Second,
		maxBackoff:  10 * time.Minute,
	}
}

// Handle registers the handler for a job type.
func (w *Worker) Handle(t JobType, h Handler) {
	w.handlers[t] = h
}

// Run consumes jobs until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	done := make(chan struct{})
	for i := 0; i < w.concurrency; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			w.loop(ctx)
		}()
	}
	for i := 0; i < w.concurrency; i++ {
		<-done
	}
}

func (w *Worker) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := w.queue.PromoteDue(ctx); err != nil && ctx.Err() == nil {
			log.WithFields(log.Fields{"error": err}).Warn("promoting delayed jobs failed")
		}

		job, ok, err := w.queue.Dequeue(ctx, time.Second)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.WithFields(log.Fields{"error": err}).Warn("dequeue failed")
			time.Sleep(time.Second)
			continue
		}
		if !ok {
			continue
		}

		w.process(ctx, *job)
	}
}

func (w *Worker) process(ctx context.Context, job Job) {
	fields := log.Fields{"jobType": job.Type, "alertId": job.AlertIdentifier, "attempt": job.Attempt}

	handler, ok := w.handlers[job.Type]
	if !ok {
		log.WithFields(fields).Error("no handler registered for job type, dropping")
		return
	}

	err := handler(ctx, job)
	if err == nil {
		log.WithFields(fields).Info("job completed")
		return
	}

	if job.Attempt+1 >= w.maxAttempts {
		log.WithFields(fields).WithFields(log.Fields{"error": err}).
			Error("job failed, attempt limit reached, giving up")
		return
	}

	delay := w.Backoff(job.Attempt)
	log.WithFields(fields).WithFields(log.Fields{"error": err, "retryIn": delay.String()}).
		Warn("job failed, scheduling retry")

	retry := job
	retry.Attempt++
	if qErr := w.queue.EnqueueIn(ctx, retry, delay); qErr != nil {
		log.WithFields(fields).WithFields(log.Fields{"error": qErr}).
			Error("failed to schedule retry, job lost")
	}
}

// Backoff returns the delay before retrying a job that has already run
// attempt+1 times: base doubled per attempt, capped.
func (w *Worker) Backoff(attempt int) time.Duration {
	delay := w.baseBackoff
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= w.maxBackoff {
			return w.maxBackoff
		}
	}
	if delay > w.maxBackoff {
		return w.maxBackoff
	}
	return delay
}

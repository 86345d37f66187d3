package notify

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/mvndaai/galaxy-sia/internal/config"
	"github.com/mvndaai/galaxy-sia/internal/logger"
	"github.com/mvndaai/galaxy-sia/internal/metrics"
)

// Sender delivers one formatted notification to its topic's endpoint.
// Implementations return a non-nil error for any non-2xx response or
// transport failure; Dispatcher treats both identically for retry purposes.
type Sender interface {
	Send(ctx context.Context, topic config.AccountConfig, title, body string, priority int) error
}

// newQueuePolicy builds the exponential-backoff shape the retry schedule
// follows: 1-minute base, doubling, capped at MaxRetryTimeMinutes. Holding
// it as a *backoff.ExponentialBackOff keeps the policy's knobs in one
// place even though retryDelay computes the schedule directly (see
// retryDelay) rather than driving NextBackOff, since jobs are re-enqueued
// and interleaved rather than retried in a single call stack.
func newQueuePolicy(maxRetryTimeMinutes int) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Minute
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = time.Duration(maxRetryTimeMinutes) * time.Minute
	b.MaxElapsedTime = 0
	return b
}

// retryDelay computes the delay before retryCount's attempt:
// min(60*2^(retryCount-1), maxRetryTimeMinutes*60) seconds.
func retryDelay(policy *backoff.ExponentialBackOff, retryCount int) time.Duration {
	d := time.Duration(float64(policy.InitialInterval) * math.Pow(policy.Multiplier, float64(retryCount-1)))
	if d > policy.MaxInterval {
		d = policy.MaxInterval
	}
	return d
}

// Dispatcher is the bounded FIFO dispatch queue (C7): one background worker
// consumes jobs enqueued by connection handlers, attempting HTTP delivery
// with exponential-backoff retries and a drop-oldest overflow policy.
type Dispatcher struct {
	cfg     *config.Config
	sender  Sender
	metrics *metrics.Metrics
	policy  *backoff.ExponentialBackOff

	mu    sync.Mutex
	queue []Job

	wake chan struct{}
}

// NewDispatcher builds a Dispatcher ready to Run. cfg supplies queue
// tuning (max size, retry limits) and the routing table each attempt
// consults before calling Send.
func NewDispatcher(cfg *config.Config, sender Sender, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		cfg:     cfg,
		sender:  sender,
		metrics: m,
		policy:  newQueuePolicy(cfg.Queue.MaxRetryTimeMinutes),
		wake:    make(chan struct{}, 1),
	}
}

// Enqueue adds job to the tail of the queue. It never blocks: when the
// queue is already at capacity, the oldest job is discarded and a warning
// logged before job is appended.
func (d *Dispatcher) Enqueue(job Job) {
	d.mu.Lock()
	var dropped *Job
	if len(d.queue) >= d.cfg.Queue.MaxSize {
		old := d.queue[0]
		dropped = &old
		d.queue = d.queue[1:]
	}
	d.queue = append(d.queue, job)
	depth := len(d.queue)
	d.mu.Unlock()

	if dropped != nil {
		logger.Warn("dispatch queue full, dropping oldest notification",
			logger.JobID(dropped.ID.String()))
		d.metrics.RecordDispatchDropped()
	}
	d.metrics.SetQueueDepth(depth)

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Len reports the current queue depth; used by tests.
func (d *Dispatcher) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

func (d *Dispatcher) dequeue() (Job, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.queue) == 0 {
		return Job{}, false
	}
	job := d.queue[0]
	d.queue = d.queue[1:]
	return job, true
}

func (d *Dispatcher) requeue(job Job) {
	d.mu.Lock()
	d.queue = append(d.queue, job)
	depth := len(d.queue)
	d.mu.Unlock()
	d.metrics.SetQueueDepth(depth)
}

// Run drives the worker loop until ctx is cancelled. On shutdown, any jobs
// still queued are discarded (discarding is the only shutdown behavior and
// is not configurable; there is no persistence, so a restart would lose
// them anyway).
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		job, ok := d.dequeue()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-d.wake:
				continue
			case <-time.After(time.Second):
				continue
			}
		}

		if time.Now().Before(job.NextAttempt) {
			d.requeue(job)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		d.attempt(ctx, job)

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

func (d *Dispatcher) attempt(ctx context.Context, job Job) {
	d.metrics.RecordDispatchAttempt()

	topic, ok := d.cfg.Topic(job.Event.Account)
	if !ok {
		logger.DebugCtx(ctx, "no topic configured, dropping notification",
			logger.Account(job.Event.Account))
		return
	}
	if job.Event.EventCode == "" {
		logger.DebugCtx(ctx, "event has no code, nothing to notify",
			logger.Account(job.Event.Account))
		return
	}

	title := FormatTitle(topic.Title, job.Event)
	body := FormatBody(job.Event)
	priority := Priority(d.cfg, job.Event)

	dispatchCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err := d.sender.Send(dispatchCtx, topic, title, body, priority)
	if err == nil {
		d.metrics.RecordDispatchSuccess()
		logger.InfoCtx(ctx, "notification dispatched", logger.Account(job.Event.Account))
		return
	}

	d.metrics.RecordDispatchFailure()
	job.RetryCount++
	if d.cfg.Queue.MaxRetries > 0 && job.RetryCount > d.cfg.Queue.MaxRetries {
		logger.ErrorCtx(ctx, "dispatch retries exhausted, dropping notification",
			logger.Account(job.Event.Account), logger.RetryCount(job.RetryCount))
		return
	}

	delay := retryDelay(d.policy, job.RetryCount)
	job.NextAttempt = time.Now().Add(delay)
	logger.WarnCtx(ctx, "dispatch failed, scheduling retry",
		logger.Account(job.Event.Account), logger.RetryCount(job.RetryCount), logger.Err(err))
	d.Enqueue(job)
}

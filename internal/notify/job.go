package notify

import (
	"time"

	"github.com/google/uuid"

	"github.com/mvndaai/galaxy-sia/internal/protocol/galaxy/event"
)

// Job is a single notification in flight: the event to deliver, its retry
// state, and the identity used to observe drop-oldest overflow in tests.
type Job struct {
	ID          uuid.UUID
	Event       event.Event
	RetryCount  int
	NextAttempt time.Time
}

// NewJob wraps e as a freshly enqueued Job: zero retries, immediately
// eligible for dispatch.
func NewJob(e event.Event) Job {
	return Job{ID: uuid.New(), Event: e}
}

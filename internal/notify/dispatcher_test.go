package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvndaai/galaxy-sia/internal/config"
	"github.com/mvndaai/galaxy-sia/internal/metrics"
	"github.com/mvndaai/galaxy-sia/internal/protocol/galaxy/event"
)

func testConfig() *config.Config {
	cfg := config.GetDefaultConfig()
	cfg.Queue.MaxSize = 3
	cfg.Accounts = map[string]config.AccountConfig{
		"1234": {SiteName: "Home", Enabled: true, TopicURL: "https://ntfy.sh/home", Title: "Alarm"},
	}
	return cfg
}

func jobFor(account string) Job {
	return NewJob(event.Event{Account: account, EventCode: "BA"})
}

func TestRetryDelaySequence(t *testing.T) {
	policy := newQueuePolicy(5)
	cases := []struct {
		retryCount int
		want       time.Duration
	}{
		{1, 60 * time.Second},
		{2, 120 * time.Second},
		{3, 240 * time.Second},
		{4, 300 * time.Second}, // capped at 5 minutes
		{10, 300 * time.Second},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, retryDelay(policy, c.retryCount), "retryCount=%d", c.retryCount)
	}
}

func TestNewQueuePolicyConfiguresBackoff(t *testing.T) {
	policy := newQueuePolicy(2)
	assert.Equal(t, time.Minute, policy.InitialInterval)
	assert.Equal(t, 2*time.Minute, policy.MaxInterval)
	assert.IsType(t, &backoff.ExponentialBackOff{}, policy)
}

func TestEnqueueDropsOldestWhenFull(t *testing.T) {
	cfg := testConfig()
	d := NewDispatcher(cfg, nil, metrics.NewDisabled())

	first := jobFor("1234")
	second := jobFor("1234")
	third := jobFor("1234")
	fourth := jobFor("1234")

	d.Enqueue(first)
	d.Enqueue(second)
	d.Enqueue(third)
	require.Equal(t, 3, d.Len())

	d.Enqueue(fourth)
	require.Equal(t, 3, d.Len())

	remaining := map[string]bool{}
	for {
		j, ok := d.dequeue()
		if !ok {
			break
		}
		remaining[j.ID.String()] = true
	}
	assert.False(t, remaining[first.ID.String()], "oldest job should have been dropped")
	assert.True(t, remaining[second.ID.String()])
	assert.True(t, remaining[third.ID.String()])
	assert.True(t, remaining[fourth.ID.String()])
}

type fakeSender struct {
	mu    sync.Mutex
	calls int
	fail  bool
}

func (f *fakeSender) Send(_ context.Context, _ config.AccountConfig, _, _ string, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail {
		return errors.New("delivery failed")
	}
	return nil
}

func (f *fakeSender) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestAttemptSuccessDoesNotRequeue(t *testing.T) {
	cfg := testConfig()
	sender := &fakeSender{}
	d := NewDispatcher(cfg, sender, metrics.NewDisabled())

	d.attempt(context.Background(), jobFor("1234"))

	assert.Equal(t, 1, sender.callCount())
	assert.Equal(t, 0, d.Len())
}

func TestAttemptFailureRequeuesWithBackoff(t *testing.T) {
	cfg := testConfig()
	cfg.Queue.MaxRetries = 5
	sender := &fakeSender{fail: true}
	d := NewDispatcher(cfg, sender, metrics.NewDisabled())

	before := time.Now()
	d.attempt(context.Background(), jobFor("1234"))

	require.Equal(t, 1, d.Len())
	job, ok := d.dequeue()
	require.True(t, ok)
	assert.Equal(t, 1, job.RetryCount)
	assert.True(t, job.NextAttempt.After(before))
}

func TestAttemptDropsAfterMaxRetries(t *testing.T) {
	cfg := testConfig()
	cfg.Queue.MaxRetries = 1
	sender := &fakeSender{fail: true}
	d := NewDispatcher(cfg, sender, metrics.NewDisabled())

	job := jobFor("1234")
	job.RetryCount = 1
	d.attempt(context.Background(), job)

	assert.Equal(t, 0, d.Len(), "job should be dropped once retries are exhausted")
}

func TestAttemptDropsUnconfiguredAccount(t *testing.T) {
	cfg := testConfig()
	sender := &fakeSender{}
	d := NewDispatcher(cfg, sender, metrics.NewDisabled())

	d.attempt(context.Background(), jobFor("9999"))

	assert.Equal(t, 0, sender.callCount())
	assert.Equal(t, 0, d.Len())
}

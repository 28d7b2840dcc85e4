package poll

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shaiso/metamigrate/internal/domain"
)

// scripted возвращает StatusFunc, отдающую статусы по порядку.
// После конца списка повторяется последний статус.
func scripted(statuses ...domain.JobStatus) (StatusFunc, *int) {
	calls := 0
	var mu sync.Mutex
	return func(_ context.Context, _ string) (domain.JobStatus, error) {
		mu.Lock()
		defer mu.Unlock()
		i := calls
		if i >= len(statuses) {
			i = len(statuses) - 1
		}
		calls++
		return statuses[i], nil
	}, &calls
}

func fastPolicy() Policy {
	return Policy{Interval: time.Millisecond, MaxAttempts: 50, Timeout: 5 * time.Second}
}

func TestPoller_ThreeCallsThenSuccess(t *testing.T) {
	fetch, calls := scripted(
		domain.JobStatus{Done: false},
		domain.JobStatus{Done: false},
		domain.JobStatus{Done: true, Success: true, Status: "Succeeded"},
	)

	p := New(fastPolicy(), nil)
	result, err := p.Wait(context.Background(), "job1", fetch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if *calls != 3 {
		t.Errorf("expected exactly 3 status calls, got %d", *calls)
	}
	if result.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", result.Attempts)
	}
	if !result.Succeeded() {
		t.Error("expected success")
	}
}

func TestPoller_ImmediateFailure(t *testing.T) {
	fetch, calls := scripted(domain.JobStatus{Done: true, Success: false, Status: "Failed"})

	p := New(fastPolicy(), nil)
	result, err := p.Wait(context.Background(), "job1", fetch)
	if err != nil {
		t.Fatalf("terminal failure is not an error of the loop: %v", err)
	}

	if *calls != 1 {
		t.Errorf("expected 1 status call, got %d", *calls)
	}
	if result.Succeeded() {
		t.Error("expected failure")
	}
	if result.Status.Status != "Failed" {
		t.Errorf("expected status Failed, got %s", result.Status.Status)
	}
}

func TestPoller_MaxAttemptsExhausted(t *testing.T) {
	fetch, calls := scripted(domain.JobStatus{Done: false, Status: "InProgress"})

	p := New(Policy{Interval: time.Millisecond, MaxAttempts: 4, Timeout: 5 * time.Second}, nil)
	result, err := p.Wait(context.Background(), "job1", fetch)

	if !errors.Is(err, domain.ErrDeploymentTimeout) {
		t.Fatalf("expected ErrDeploymentTimeout, got %v", err)
	}
	if *calls != 4 {
		t.Errorf("expected 4 status calls, got %d", *calls)
	}
	if result.Status.Status != "InProgress" {
		t.Errorf("last status should be kept, got %q", result.Status.Status)
	}
}

func TestPoller_OverallTimeout(t *testing.T) {
	fetch, _ := scripted(domain.JobStatus{Done: false})

	p := New(Policy{Interval: 20 * time.Millisecond, MaxAttempts: 1000, Timeout: 50 * time.Millisecond}, nil)
	_, err := p.Wait(context.Background(), "job1", fetch)

	if !errors.Is(err, domain.ErrDeploymentTimeout) {
		t.Fatalf("expected ErrDeploymentTimeout, got %v", err)
	}
}

func TestPoller_FetchError(t *testing.T) {
	fetchErr := errors.New("boom")
	fetch := func(_ context.Context, _ string) (domain.JobStatus, error) {
		return domain.JobStatus{}, fetchErr
	}

	p := New(fastPolicy(), nil)
	result, err := p.Wait(context.Background(), "job1", fetch)

	if !errors.Is(err, fetchErr) {
		t.Fatalf("expected fetch error, got %v", err)
	}
	if result.Attempts != 1 {
		t.Errorf("fetch error should stop the loop, got %d attempts", result.Attempts)
	}
}

func TestPoller_ContextCancelled(t *testing.T) {
	fetch, _ := scripted(domain.JobStatus{Done: false})

	ctx, cancel := context.WithCancel(context.Background())
	p := New(Policy{Interval: time.Hour, MaxAttempts: 10, Timeout: 2 * time.Hour}, nil)

	done := make(chan error, 1)
	go func() {
		_, err := p.Wait(ctx, "job1", fetch)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait should return promptly after cancel")
	}
}

func TestPoller_RejectsConcurrentPollOfSameJob(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	fetch := func(ctx context.Context, _ string) (domain.JobStatus, error) {
		once.Do(func() { close(started) })
		<-release
		return domain.JobStatus{Done: true, Success: true}, nil
	}

	p := New(fastPolicy(), nil)

	done := make(chan error, 1)
	go func() {
		_, err := p.Wait(context.Background(), "job1", fetch)
		done <- err
	}()
	<-started

	_, err := p.Wait(context.Background(), "job1", fetch)
	if !errors.Is(err, ErrAlreadyPolling) {
		t.Errorf("expected ErrAlreadyPolling, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Errorf("first poll should succeed: %v", err)
	}

	// После завершения jobID освобождается
	if _, err := p.Wait(context.Background(), "job1", fetch); err != nil {
		t.Errorf("job should be pollable again: %v", err)
	}
}

func TestNew_Defaults(t *testing.T) {
	p := New(Policy{}, nil)
	policy := p.Policy()

	if policy.Interval != DefaultInterval {
		t.Errorf("expected interval %s, got %s", DefaultInterval, policy.Interval)
	}
	if policy.MaxAttempts != DefaultMaxAttempts {
		t.Errorf("expected max attempts %d, got %d", DefaultMaxAttempts, policy.MaxAttempts)
	}
	if policy.Timeout != DefaultTimeout {
		t.Errorf("expected timeout %s, got %s", DefaultTimeout, policy.Timeout)
	}
}

package jobs_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	dbfs "github.com/garnizeh/taxi/db"
	"github.com/garnizeh/taxi/internal/db"
	"github.com/garnizeh/taxi/internal/jobs"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func setup(t *testing.T) *jobs.Repository {
	t.Helper()
	ctx := context.Background()
	d, err := db.New(ctx, filepath.Join(t.TempDir(), "jobs.db"), nil)
	if err != nil {
		t.Fatalf("db.New: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	if err := db.Migrate(ctx, d, dbfs.Migrations); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return jobs.NewRepository(d)
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestEnqueueAndProcess(t *testing.T) {
	ctx := context.Background()
	repo := setup(t)

	handled := make(chan string, 1)
	pool := jobs.NewWorkerPool(repo, nil, nil, 1).WithPollInterval(10 * time.Millisecond)
	pool.Register("test", func(ctx context.Context, j *jobs.Job) error {
		handled <- string(j.Payload)
		return nil
	})
	pool.Start(ctx)
	defer pool.Stop()

	id, err := pool.Enqueue(ctx, "test", map[string]string{"foo": "bar"}, 10, 3)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	select {
	case payload := <-handled:
		if payload != `{"foo":"bar"}` {
			t.Fatalf("unexpected payload %s", payload)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("handler was not called")
	}

	waitFor(t, "job marked done", func() bool {
		j, err := repo.Get(ctx, id)
		return err == nil && j != nil && j.Status == jobs.StatusDone
	})
}

func TestFetchNext_RespectsSchedule(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	repo := setup(t).WithClock(clock)

	if _, err := repo.Enqueue(ctx, &jobs.Job{Type: "later", ScheduledAt: now.Add(5 * time.Second)}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	j, err := repo.FetchNext(ctx)
	if err != nil || j != nil {
		t.Fatalf("expected no due job, got %#v, %v", j, err)
	}

	mu.Lock()
	now = now.Add(5 * time.Second)
	mu.Unlock()

	j, err = repo.FetchNext(ctx)
	if err != nil || j == nil {
		t.Fatalf("expected due job, got %#v, %v", j, err)
	}
	if j.Status != jobs.StatusRunning || j.MaxAttempts != 5 {
		t.Fatalf("unexpected claimed job %#v", j)
	}

	again, err := repo.FetchNext(ctx)
	if err != nil || again != nil {
		t.Fatalf("claimed job must not be fetched twice, got %#v, %v", again, err)
	}
}

func TestFetchNext_ReclaimsExpiredLease(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	advance := func(d time.Duration) {
		mu.Lock()
		now = now.Add(d)
		mu.Unlock()
	}
	repo := setup(t).WithClock(clock).WithLease(time.Minute)

	id, err := repo.Enqueue(ctx, &jobs.Job{Type: "export.cleanup"})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if j, err := repo.FetchNext(ctx); err != nil || j == nil || j.ID != id {
		t.Fatalf("expected to claim job %d, got %#v, %v", id, j, err)
	}

	// The claiming process dies without reporting back.
	advance(30 * time.Second)
	if j, err := repo.FetchNext(ctx); err != nil || j != nil {
		t.Fatalf("job within its lease must not be reclaimed, got %#v, %v", j, err)
	}

	advance(30 * time.Second)
	j, err := repo.FetchNext(ctx)
	if err != nil || j == nil || j.ID != id {
		t.Fatalf("expected expired job %d to be reclaimed, got %#v, %v", id, j, err)
	}
	if j.Status != jobs.StatusRunning || !j.Updated.Equal(now) {
		t.Fatalf("reclaimed job must be running with a fresh lease, got %#v", j)
	}

	if again, err := repo.FetchNext(ctx); err != nil || again != nil {
		t.Fatalf("renewed lease must not be reclaimed, got %#v, %v", again, err)
	}
}

func TestFailingJobRetriesThenDeadLetters(t *testing.T) {
	ctx := context.Background()
	repo := setup(t)

	var mu sync.Mutex
	calls := 0
	pool := jobs.NewWorkerPool(repo, map[string]jobs.Handler{
		"flaky": func(ctx context.Context, j *jobs.Job) error {
			mu.Lock()
			calls++
			mu.Unlock()
			return errors.New("disk busy")
		},
	}, nil, 1).WithPollInterval(10 * time.Millisecond)
	pool.Start(ctx)
	defer pool.Stop()

	id, err := pool.Enqueue(ctx, "flaky", nil, 1, 2)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	waitFor(t, "retry scheduled", func() bool {
		j, err := repo.Get(ctx, id)
		return err == nil && j != nil && j.Status == jobs.StatusRetry
	})
	j, _ := repo.Get(ctx, id)
	if j.Attempts != 1 || j.LastError != "disk busy" || j.NextTryAt == nil {
		t.Fatalf("unexpected retry state %#v", j)
	}

	// make the retry due now instead of after the backoff
	past := time.Now().Add(-time.Minute)
	j.NextTryAt = &past
	if err := repo.UpdateJob(ctx, j); err != nil {
		t.Fatalf("UpdateJob: %v", err)
	}

	waitFor(t, "dead letter", func() bool {
		dl, err := repo.DeadLetters(ctx)
		return err == nil && len(dl) == 1
	})
	dl, _ := repo.DeadLetters(ctx)
	if dl[0].JobID != id || dl[0].Attempts != 2 || dl[0].Type != "flaky" {
		t.Fatalf("unexpected dead letter %#v", dl[0])
	}
	if gone, _ := repo.Get(ctx, id); gone != nil {
		t.Fatalf("job should be removed from queue, got %#v", gone)
	}
}

func TestUnknownJobTypeIsDeadLettered(t *testing.T) {
	ctx := context.Background()
	repo := setup(t)

	pool := jobs.NewWorkerPool(repo, nil, nil, 1).WithPollInterval(10 * time.Millisecond)
	pool.Start(ctx)
	defer pool.Stop()

	if _, err := pool.Enqueue(ctx, "mystery", nil, 1, 3); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	waitFor(t, "dead letter", func() bool {
		dl, err := repo.DeadLetters(ctx)
		return err == nil && len(dl) == 1 && dl[0].LastError == "no handler"
	})
}

func TestStopIsIdempotent(t *testing.T) {
	pool := jobs.NewWorkerPool(setup(t), nil, nil, 2).WithPollInterval(10 * time.Millisecond)
	pool.Start(context.Background())
	pool.Stop()
	pool.Stop()
}

func TestBackoffDuration(t *testing.T) {
	cases := map[int]time.Duration{
		0:  time.Second,
		1:  2 * time.Second,
		3:  8 * time.Second,
		20: 5 * time.Minute,
	}
	for attempt, want := range cases {
		if got := jobs.BackoffDuration(attempt); got != want {
			t.Fatalf("BackoffDuration(%d) = %v, want %v", attempt, got, want)
		}
	}
}

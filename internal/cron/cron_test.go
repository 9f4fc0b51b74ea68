package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/jmcampos/minimart-backend/pkg/logger"
)

type stubMirror struct {
	cutoff  time.Time
	removed int64
	err     error
}

func (s *stubMirror) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	s.cutoff = cutoff
	return s.removed, s.err
}

type stubLockStore struct {
	values map[string]string
}

func newStubLockStore() *stubLockStore {
	return &stubLockStore{values: map[string]string{}}
}

func (s *stubLockStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := s.values[key]; ok {
		return false, nil
	}
	s.values[key] = value.(string)
	return true, nil
}

func (s *stubLockStore) Get(ctx context.Context, key string) (string, error) {
	value, ok := s.values[key]
	if !ok {
		return "", errors.New("redis: nil")
	}
	return value, nil
}

func (s *stubLockStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.values, key)
	}
	return nil
}

type recordedJob struct {
	name string
	runs int
	err  error
}

func (j *recordedJob) Name() string { return j.name }

func (j *recordedJob) Run(ctx context.Context) error {
	j.runs++
	return j.err
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
}

func TestCartMirrorJob_UsesMaxAgeCutoff(t *testing.T) {
	mirror := &stubMirror{removed: 3}
	job, err := NewCartMirrorJob(CartMirrorJobParams{
		Logger: testLogger(),
		Mirror: mirror,
		MaxAge: 720 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewCartMirrorJob: %v", err)
	}
	now := time.Date(2025, 8, 10, 12, 0, 0, 0, time.UTC)
	job.(*cartMirrorJob).now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := now.Add(-720 * time.Hour)
	if !mirror.cutoff.Equal(want) {
		t.Fatalf("cutoff = %v, want %v", mirror.cutoff, want)
	}
}

func TestCartMirrorJob_PropagatesError(t *testing.T) {
	mirror := &stubMirror{err: errors.New("db down")}
	job, err := NewCartMirrorJob(CartMirrorJobParams{Logger: testLogger(), Mirror: mirror})
	if err != nil {
		t.Fatalf("NewCartMirrorJob: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestRedisLock_AcquireAndRelease(t *testing.T) {
	store := newStubLockStore()
	lock, err := NewRedisLock(store, "mm:lock:cart-mirror-cleanup", time.Hour)
	if err != nil {
		t.Fatalf("NewRedisLock: %v", err)
	}

	ok, err := lock.Acquire(context.Background())
	if err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}

	other, err := NewRedisLock(store, "mm:lock:cart-mirror-cleanup", time.Hour)
	if err != nil {
		t.Fatalf("NewRedisLock: %v", err)
	}
	ok, err = other.Acquire(context.Background())
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if ok {
		t.Fatal("second acquire should fail while held")
	}

	if err := lock.Release(context.Background()); err != nil {
		t.Fatalf("release: %v", err)
	}
	ok, err = other.Acquire(context.Background())
	if err != nil || !ok {
		t.Fatalf("acquire after release: ok=%v err=%v", ok, err)
	}
}

func TestServiceRunCycle_SkipsWhenLockHeld(t *testing.T) {
	store := newStubLockStore()
	store.values["held"] = "someone-else"
	lock, err := NewRedisLock(store, "held", time.Hour)
	if err != nil {
		t.Fatalf("NewRedisLock: %v", err)
	}
	job := &recordedJob{name: "noop"}
	svc, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(job),
		Lock:     lock,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatalf("runCycle: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("job ran %d times while lock held", job.runs)
	}
}

func TestServiceRunCycle_RunsAllJobs(t *testing.T) {
	store := newStubLockStore()
	lock, err := NewRedisLock(store, "free", time.Hour)
	if err != nil {
		t.Fatalf("NewRedisLock: %v", err)
	}
	good := &recordedJob{name: "good"}
	bad := &recordedJob{name: "bad", err: errors.New("boom")}
	svc, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(good, bad),
		Lock:     lock,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatalf("runCycle: %v", err)
	}
	if good.runs != 1 || bad.runs != 1 {
		t.Fatalf("runs = %d/%d, want 1/1", good.runs, bad.runs)
	}
	if _, held := store.values["free"]; held {
		t.Fatal("lock not released after cycle")
	}
}

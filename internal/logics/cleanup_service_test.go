package logics_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"dopple-server/internal/logics"

	"github.com/stretchr/testify/assert"
)

// flakyDeleter fails on request and counts every attempt.
type flakyDeleter struct {
	mu       sync.Mutex
	deleted  []string
	failKeys map[string]bool
}

func newFlakyDeleter() *flakyDeleter {
	return &flakyDeleter{failKeys: map[string]bool{}}
}

func (d *flakyDeleter) Delete(ctx context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failKeys[key] {
		return errors.New("storage unavailable")
	}
	d.deleted = append(d.deleted, key)
	return nil
}

func (d *flakyDeleter) deletedKeys() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.deleted...)
}

func TestCleanupServiceDrainsQueue(t *testing.T) {
	deleter := newFlakyDeleter()
	cleanup := logics.NewCleanupService(deleter, 2, 64)
	cleanup.Start(context.Background())

	keys := make([]string, 0, 20)
	for i := 0; i < 20; i++ {
		key := fmt.Sprintf("owner/%d", i)
		keys = append(keys, key)
		cleanup.Enqueue(key)
	}

	cleanup.Stop()
	assert.ElementsMatch(t, keys, deleter.deletedKeys())
}

func TestCleanupServiceSwallowsFailures(t *testing.T) {
	deleter := newFlakyDeleter()
	deleter.failKeys["bad"] = true

	cleanup := logics.NewCleanupService(deleter, 1, 8)
	cleanup.Start(context.Background())

	cleanup.Enqueue("bad")
	cleanup.Enqueue("good")

	cleanup.Stop()
	assert.Equal(t, []string{"good"}, deleter.deletedKeys())
}

func TestCleanupServiceIgnoresLateEnqueues(t *testing.T) {
	deleter := newFlakyDeleter()
	cleanup := logics.NewCleanupService(deleter, 1, 8)
	cleanup.Start(context.Background())
	cleanup.Stop()

	// Must not panic or block after Stop.
	cleanup.Enqueue("late")
	assert.Empty(t, deleter.deletedKeys())
}

func TestCleanupServiceIgnoresEmptyKeys(t *testing.T) {
	deleter := newFlakyDeleter()
	cleanup := logics.NewCleanupService(deleter, 1, 8)
	cleanup.Start(context.Background())

	cleanup.Enqueue("")
	cleanup.Stop()
	assert.Empty(t, deleter.deletedKeys())
}

func TestCleanupServiceStopIsIdempotent(t *testing.T) {
	cleanup := logics.NewCleanupService(newFlakyDeleter(), 1, 8)
	cleanup.Start(context.Background())

	done := make(chan struct{})
	go func() {
		cleanup.Stop()
		cleanup.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
}

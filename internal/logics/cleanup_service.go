package logics

import (
	"context"
	"sync"
	"time"

	"dopple-server/configs"

	"go.uber.org/zap"
)

// BlobDeleter is the slice of BlobStore the cleanup pool needs.
type BlobDeleter interface {
	Delete(ctx context.Context, key string) error
}

// CleanupService deletes orphaned blobs in the background. Logical deletes
// succeed regardless of the blob store, so blob removal is best-effort and
// eventually consistent: keys are queued and drained by a bounded worker
// pool, and a failed delete is logged, not retried synchronously.
type CleanupService struct {
	deleter BlobDeleter
	queue   chan string
	workers int

	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

const cleanupDeleteTimeout = 10 * time.Second

func NewCleanupService(deleter BlobDeleter, workers, queueSize int) *CleanupService {
	if workers <= 0 {
		workers = 1
	}
	return &CleanupService{
		deleter: deleter,
		queue:   make(chan string, queueSize),
		workers: workers,
	}
}

// Start launches the worker pool. Workers exit when ctx is cancelled or
// the queue is closed by Stop.
func (cs *CleanupService) Start(ctx context.Context) {
	for i := 0; i < cs.workers; i++ {
		cs.wg.Add(1)
		go cs.run(ctx)
	}
}

func (cs *CleanupService) run(ctx context.Context) {
	defer cs.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case key, ok := <-cs.queue:
			if !ok {
				return
			}
			cs.deleteOne(key)
		}
	}
}

func (cs *CleanupService) deleteOne(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupDeleteTimeout)
	defer cancel()

	if err := cs.deleter.Delete(ctx, key); err != nil {
		// Swallowed: the row is already logically deleted and the blob can
		// be reaped by a later storage-side sweep.
		configs.Logger.Warn("blob cleanup failed",
			zap.String("key", key),
			zap.Error(err),
		)
		return
	}
	configs.Logger.Debug("blob cleaned up", zap.String("key", key))
}

// Enqueue schedules a blob key for deletion. Never blocks: when the pool
// is stopped or the queue is full the key is dropped and logged.
func (cs *CleanupService) Enqueue(key string) {
	if key == "" {
		return
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.closed {
		configs.Logger.Warn("blob cleanup pool stopped, dropping key", zap.String("key", key))
		return
	}

	select {
	case cs.queue <- key:
	default:
		configs.Logger.Warn("blob cleanup queue full, dropping key", zap.String("key", key))
	}
}

// Stop closes the queue and waits for the workers to drain it.
func (cs *CleanupService) Stop() {
	cs.mu.Lock()
	if cs.closed {
		cs.mu.Unlock()
		return
	}
	cs.closed = true
	close(cs.queue)
	cs.mu.Unlock()

	cs.wg.Wait()
}

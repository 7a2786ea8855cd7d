package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

var ErrDispatcherClosed = errors.New("dispatcher closed")

// LocalDispatcher runs ingestion jobs on in-process goroutines when no broker
// is configured. Jobs still queued at shutdown are dropped; their documents
// stay pending until the startup sweep requeues them.
type LocalDispatcher struct {
	jobs    chan string
	workers int
	log     zerolog.Logger

	mu     sync.RWMutex
	closed bool
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewLocalDispatcher(workers, queueSize int, log zerolog.Logger) *LocalDispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	return &LocalDispatcher{
		jobs:    make(chan string, queueSize),
		workers: workers,
		log:     log.With().Str("component", "dispatcher").Logger(),
	}
}

// PublishIngest queues a job. It blocks while the queue is full.
func (d *LocalDispatcher) PublishIngest(ctx context.Context, documentID string) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}
	select {
	case d.jobs <- documentID:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start launches the workers. Jobs published before Start wait in the queue.
func (d *LocalDispatcher) Start(ctx context.Context, p Processor) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil || d.closed {
		return
	}
	workerCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for {
				select {
				case <-workerCtx.Done():
					return
				case id := <-d.jobs:
					if err := p.Process(workerCtx, id); err != nil {
						d.log.Error().Err(err).Str("document_id", id).Msg("ingest job failed")
					}
				}
			}
		}()
	}
}

func (d *LocalDispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	cancel := d.cancel
	d.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	d.wg.Wait()
}

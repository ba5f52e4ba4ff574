package batch

import (
	"context"
	"sync"
	"time"
)

// Operation is one deferred write.
type Operation struct {
	Name string
	Fn   func(ctx context.Context) error
}

// ErrorHandler observes failed operations. Failed operations are not retried.
type ErrorHandler func(op string, err error)

// Batcher collects operations and runs them in the background, flushing when
// the batch is full, on every interval tick, and on Stop.
type Batcher struct {
	batchSize     int
	batchInterval time.Duration
	opTimeout     time.Duration
	onError       ErrorHandler

	mu      sync.Mutex
	pending []Operation
	stopped bool

	flushChan chan struct{}
	stopChan  chan struct{}
	done      chan struct{}
	running   sync.Mutex // serialises batches
}

func NewBatcher(batchSize int, batchInterval, opTimeout time.Duration, onError ErrorHandler) *Batcher {
	if batchSize <= 0 {
		batchSize = 1
	}
	if onError == nil {
		onError = func(string, error) {}
	}
	b := &Batcher{
		batchSize:     batchSize,
		batchInterval: batchInterval,
		opTimeout:     opTimeout,
		onError:       onError,
		pending:       make([]Operation, 0, batchSize),
		flushChan:     make(chan struct{}, 1),
		stopChan:      make(chan struct{}),
		done:          make(chan struct{}),
	}

	go b.run()

	return b
}

// Enqueue schedules fn. After Stop the operation runs inline so no write is
// lost during shutdown.
func (b *Batcher) Enqueue(op string, fn func(ctx context.Context) error) {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		b.execute(Operation{Name: op, Fn: fn})
		return
	}
	b.pending = append(b.pending, Operation{Name: op, Fn: fn})
	shouldFlush := len(b.pending) >= b.batchSize
	b.mu.Unlock()

	if shouldFlush {
		select {
		case b.flushChan <- struct{}{}:
		default:
		}
	}
}

// Flush runs every pending operation before returning.
func (b *Batcher) Flush() {
	b.running.Lock()
	defer b.running.Unlock()

	for {
		b.mu.Lock()
		if len(b.pending) == 0 {
			b.mu.Unlock()
			return
		}
		ops := b.pending
		b.pending = make([]Operation, 0, b.batchSize)
		b.mu.Unlock()

		for _, op := range ops {
			b.execute(op)
		}
	}
}

func (b *Batcher) execute(op Operation) {
	ctx := context.Background()
	if b.opTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.opTimeout)
		defer cancel()
	}
	if err := op.Fn(ctx); err != nil {
		b.onError(op.Name, err)
	}
}

func (b *Batcher) run() {
	defer close(b.done)
	ticker := time.NewTicker(b.batchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.Flush()
		case <-b.flushChan:
			b.Flush()
		case <-b.stopChan:
			b.Flush()
			return
		}
	}
}

// Stop drains the queue and waits for the background loop to exit.
func (b *Batcher) Stop() {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return
	}
	b.stopped = true
	b.mu.Unlock()

	close(b.stopChan)
	<-b.done
}

func (b *Batcher) PendingCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Inline runs every operation synchronously on the caller's goroutine.
type Inline struct {
	OnError ErrorHandler
}

func (i Inline) Enqueue(op string, fn func(ctx context.Context) error) {
	if err := fn(context.Background()); err != nil && i.OnError != nil {
		i.OnError(op, err)
	}
}

package seclog

import (
	"context"
	"sync"
	"sync/atomic"
)

// AsyncConfig controls buffering behavior of an [AsyncSink].
type AsyncConfig struct {
	// BufferSize is the channel capacity. Values <= 0 become 1.
	BufferSize int

	// DropIfFull makes Emit drop records instead of blocking when the
	// buffer is full. Drops are counted and visible via Dropped.
	DropIfFull bool
}

// AsyncSink forwards records to a wrapped sink on a dedicated goroutine so
// that logging never blocks the session hot path.
type AsyncSink struct {
	cfg       AsyncConfig
	sink      Sink
	ch        chan Record
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewAsyncSink wraps sink with a buffered dispatcher. A nil sink is
// replaced by [NoOpSink].
func NewAsyncSink(cfg AsyncConfig, sink Sink) *AsyncSink {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	s := &AsyncSink{
		cfg:  cfg,
		sink: sink,
		ch:   make(chan Record, cfg.BufferSize),
		done: make(chan struct{}),
	}

	s.wg.Add(1)
	go s.run()

	return s
}

func (s *AsyncSink) run() {
	defer s.wg.Done()

	for {
		select {
		case rec := <-s.ch:
			s.sink.Emit(context.Background(), rec)
		case <-s.done:
			for {
				select {
				case rec := <-s.ch:
					s.sink.Emit(context.Background(), rec)
				default:
					return
				}
			}
		}
	}
}

func (s *AsyncSink) Emit(ctx context.Context, rec Record) {
	if s == nil || s.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if s.cfg.DropIfFull {
		select {
		case s.ch <- rec:
		case <-s.done:
		default:
			s.dropped.Add(1)
		}
		return
	}

	select {
	case s.ch <- rec:
	case <-ctx.Done():
	case <-s.done:
	}
}

// Close stops accepting records, drains the buffer into the wrapped sink
// and waits for the worker to exit. Safe to call more than once.
func (s *AsyncSink) Close() {
	if s == nil {
		return
	}
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.done)
		s.wg.Wait()
	})
}

// Dropped reports how many records were discarded because the buffer was
// full while DropIfFull was set.
func (s *AsyncSink) Dropped() uint64 {
	if s == nil {
		return 0
	}
	return s.dropped.Load()
}

package service

import (
	"context"
	"errors"
	"sync"

	"github.com/iliyamo/storehouse/internal/logging"
	"github.com/iliyamo/storehouse/internal/queue"
)

var (
	ErrBufferFull       = errors.New("event buffer full")
	ErrDispatcherClosed = errors.New("event dispatcher closed")
)

// Sink delivers a single event, e.g. *Publisher.
type Sink interface {
	Publish(ctx context.Context, ev queue.ResourceEvent) error
}

// Dispatcher queues events in memory and hands them to a Sink from one
// background goroutine, so callers never wait on the broker. Events are
// dropped when the buffer is full.
type Dispatcher struct {
	next     Sink
	events   chan queue.ResourceEvent
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewDispatcher(next Sink, buffer int) *Dispatcher {
	if buffer <= 0 {
		buffer = 256
	}
	d := &Dispatcher{
		next:   next,
		events: make(chan queue.ResourceEvent, buffer),
		stop:   make(chan struct{}),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

// Publish enqueues ev without blocking.
func (d *Dispatcher) Publish(_ context.Context, ev queue.ResourceEvent) error {
	select {
	case <-d.stop:
		return ErrDispatcherClosed
	default:
	}
	select {
	case d.events <- ev:
		return nil
	default:
		return ErrBufferFull
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case <-d.stop:
			d.drain()
			return
		case ev := <-d.events:
			d.deliver(ev)
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case ev := <-d.events:
			d.deliver(ev)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ev queue.ResourceEvent) {
	if err := d.next.Publish(context.Background(), ev); err != nil {
		logging.Warn().Err(err).Str("kind", ev.Kind).Str("op", ev.Op).Uint64("id", ev.ID).Msg("deliver event failed")
	}
}

// Close stops accepting events and waits until the buffered ones are
// delivered or ctx is done.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.stopOnce.Do(func() { close(d.stop) })
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

package relay

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
)

// Delivery is one inbound broker message captured as an immutable value.
// The payload is copied out of the client's buffer on handoff.
type Delivery struct {
	Seq        uint64    // Handoff order, starting at 1
	Topic      string    // Broker topic the message arrived on
	Payload    []byte    // Raw payload bytes
	ReceivedAt time.Time // Handoff time
}

// DeliveryProcessor handles deliveries in two stages. Decode runs on the
// dispatcher goroutine strictly in delivery order; Process runs on a pool
// worker and may overlap with later deliveries.
type DeliveryProcessor interface {
	// Decode prepares a delivery. Returning false drops it.
	Decode(d Delivery) (InboundMessage, bool)

	// Process runs the blocking stages for one decoded delivery.
	Process(ctx context.Context, msg InboundMessage)
}

// Dispatcher bridges the broker client's single delivery loop to a bounded
// worker pool.
//
// OnDelivered is the client callback: it copies the payload, enqueues it and
// returns; it never waits for persistence or notification. A single
// dispatcher goroutine drains the queue in order and submits work to the pool.
// When the queue is full OnDelivered blocks, which applies backpressure to the
// client's delivery loop instead of dropping messages.
//
// Work already handed to the pool runs to completion; Close waits for it.
type Dispatcher struct {
	processor DeliveryProcessor
	pool      *ants.Pool
	queue     chan Delivery
	logger    Logger
	metrics   *Metrics

	seq      atomic.Uint64
	mu       sync.RWMutex
	closed   bool
	started  sync.Once
	done     chan struct{}
	inflight sync.WaitGroup
}

// NewDispatcher creates a dispatcher with a pool of workers goroutines and a
// handoff queue of queueSize deliveries.
func NewDispatcher(processor DeliveryProcessor, workers, queueSize int, logger Logger, metrics *Metrics) (*Dispatcher, error) {
	if processor == nil {
		return nil, NewError(ErrCodeConfiguration, "DeliveryProcessor is required")
	}
	if workers <= 0 {
		return nil, NewError(ErrCodeConfiguration, "worker count must be > 0")
	}
	if queueSize < 0 {
		return nil, NewError(ErrCodeConfiguration, "queue size must be >= 0")
	}
	if logger == nil {
		return nil, NewError(ErrCodeConfiguration, "Logger is required")
	}

	log := withComponent(logger, "dispatcher")
	pool, err := ants.NewPool(workers, ants.WithPanicHandler(func(v any) {
		log.Errorf("Pipeline worker panic: %v", v)
	}))
	if err != nil {
		return nil, NewErrorWithCause(ErrCodeConfiguration, "failed to create worker pool", err)
	}

	return &Dispatcher{
		processor: processor,
		pool:      pool,
		queue:     make(chan Delivery, queueSize),
		logger:    log,
		metrics:   metrics,
		done:      make(chan struct{}),
	}, nil
}

// Start launches the dispatcher goroutine. Calling it more than once is a no-op.
func (d *Dispatcher) Start() {
	d.started.Do(func() {
		go d.run()
		d.logger.Info("Dispatcher started")
	})
}

// OnDelivered is the broker client's message callback. It has the
// MessageHandler signature and never panics into the caller.
func (d *Dispatcher) OnDelivered(topic string, payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Errorf("Handoff panic for topic %s: %v", topic, r)
		}
	}()

	delivery := Delivery{
		Topic:      topic,
		Payload:    append([]byte(nil), payload...),
		ReceivedAt: time.Now(),
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.logger.Warnf("Dropping delivery on topic %s: dispatcher closed", topic)
		return
	}
	delivery.Seq = d.seq.Add(1)
	d.queue <- delivery
}

// run drains the queue in order until it is closed.
func (d *Dispatcher) run() {
	defer close(d.done)

	// Work is not cancelled when the broker session ends.
	workCtx := context.Background()

	for delivery := range d.queue {
		msg, ok := d.decode(delivery)
		if !ok {
			continue
		}

		d.inflight.Add(1)
		err := d.pool.Submit(func() {
			defer d.inflight.Done()
			d.processor.Process(workCtx, msg)
		})
		if err != nil {
			d.inflight.Done()
			d.metrics.pipelineFailed()
			d.logger.Errorf("Failed to submit delivery %d (topic=%s): %v", delivery.Seq, delivery.Topic, err)
		}
	}
}

func (d *Dispatcher) decode(delivery Delivery) (msg InboundMessage, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Errorf("Decode panic for delivery %d (topic=%s): %v", delivery.Seq, delivery.Topic, r)
			ok = false
		}
	}()
	return d.processor.Decode(delivery)
}

// Pending returns the number of deliveries waiting in the handoff queue.
func (d *Dispatcher) Pending() int {
	return len(d.queue)
}

// Close stops accepting deliveries, drains the queue and waits for in-flight
// work until ctx expires. The pool is released either way.
func (d *Dispatcher) Close(ctx context.Context) error {
	// Drain even if Start was never called.
	d.Start()

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		<-d.done
		d.inflight.Wait()
		close(drained)
	}()

	defer d.pool.Release()

	select {
	case <-drained:
		d.logger.Info("Dispatcher stopped")
		return nil
	case <-ctx.Done():
		d.logger.Warnf("Dispatcher stopped with work still in flight: %v", ctx.Err())
		return ctx.Err()
	}
}

package notify

import (
	"context"
	"sync"
	"time"

	"curequeue-server/internal/metrics"

	"github.com/rs/zerolog"
)

// Notification is one email to render and deliver.
type Notification struct {
	Kind   Kind
	To     string
	ToName string
	Data   interface{}
}

// DispatcherConfig sizes the worker pool.
type DispatcherConfig struct {
	Workers     int
	QueueSize   int
	SendTimeout time.Duration
}

// Dispatcher delivers notifications in the background. Callers never wait for
// delivery and delivery failures never reach them.
type Dispatcher struct {
	sender  EmailSender
	logger  zerolog.Logger
	metrics *metrics.Metrics
	timeout time.Duration

	queue  chan Notification
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

func NewDispatcher(sender EmailSender, cfg DispatcherConfig, logger zerolog.Logger, m *metrics.Metrics) *Dispatcher {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 2
	}
	size := cfg.QueueSize
	if size <= 0 {
		size = 256
	}
	timeout := cfg.SendTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	d := &Dispatcher{
		sender:  sender,
		logger:  logger,
		metrics: m,
		timeout: timeout,
		queue:   make(chan Notification, size),
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.run()
	}
	return d
}

// Dispatch enqueues n and reports whether it was accepted. A full queue or a
// closed dispatcher drops the notification.
func (d *Dispatcher) Dispatch(n Notification) bool {
	if n.To == "" {
		d.metrics.ObserveNotification(string(n.Kind), "skipped")
		return false
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.metrics.ObserveNotification(string(n.Kind), "dropped")
		return false
	}

	select {
	case d.queue <- n:
		return true
	default:
		d.logger.Warn().Str("kind", string(n.Kind)).Str("to", n.To).Msg("notification queue full, dropping email")
		d.metrics.ObserveNotification(string(n.Kind), "dropped")
		return false
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for n := range d.queue {
		d.deliver(n)
	}
}

func (d *Dispatcher) deliver(n Notification) {
	msg, err := Render(n)
	if err != nil {
		d.logger.Error().Err(err).Str("kind", string(n.Kind)).Msg("render notification")
		d.metrics.ObserveNotification(string(n.Kind), "failed")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.sender.Send(ctx, msg); err != nil {
		d.logger.Error().Err(err).Str("kind", string(n.Kind)).Str("to", n.To).Msg("send notification")
		d.metrics.ObserveNotification(string(n.Kind), "failed")
		return
	}
	d.metrics.ObserveNotification(string(n.Kind), "sent")
}

// Close stops accepting notifications and waits for queued ones to be
// delivered or for ctx to expire.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

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

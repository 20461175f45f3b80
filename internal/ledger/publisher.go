package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Sink receives journaled entries. Implementations: memory store (dev and
// tests) and Kafka (production).
type Sink interface {
	Append(ctx context.Context, entry Entry) error
}

// Publisher emits ledger entries to a sink, synchronously by default or via
// a buffered background goroutine with WithAsyncBuffer.
type Publisher struct {
	sink   Sink
	logger *slog.Logger

	inbox     chan Entry
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// Option configures a Publisher.
type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) { p.logger = logger }
}

// WithAsyncBuffer moves sink writes onto a background goroutine with the
// given buffer. When the buffer is full entries are dropped with a warning;
// the checkout itself must never block on the journal.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) { p.inbox = make(chan Entry, size) }
}

// NewPublisher constructs a publisher over the sink.
func NewPublisher(sink Sink, opts ...Option) (*Publisher, error) {
	if sink == nil {
		return nil, fmt.Errorf("ledger sink is required")
	}

	p := &Publisher{sink: sink, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}

	if p.inbox != nil {
		p.wg.Add(1)
		go p.drain()
	}
	return p, nil
}

// Emit journals one entry. In async mode a full buffer drops the entry
// rather than stalling checkout.
func (p *Publisher) Emit(ctx context.Context, entry Entry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	if p.inbox == nil {
		return p.sink.Append(ctx, entry)
	}

	select {
	case p.inbox <- entry:
		return nil
	default:
		p.logger.Warn("ledger buffer full, dropping entry",
			"order_id", entry.OrderID,
			"item_id", entry.ItemID,
		)
		return nil
	}
}

// Close drains buffered entries and stops the background goroutine.
func (p *Publisher) Close() {
	p.closeOnce.Do(func() {
		if p.inbox != nil {
			close(p.inbox)
			p.wg.Wait()
		}
	})
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for entry := range p.inbox {
		if err := p.sink.Append(context.Background(), entry); err != nil {
			p.logger.Error("failed to append ledger entry",
				"order_id", entry.OrderID,
				"item_id", entry.ItemID,
				"error", err,
			)
		}
	}
}

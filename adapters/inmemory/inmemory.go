package inmemory

import (
	"context"
	"sync"

	cmed "github.com/next-trace/scg-mediator/contract/mediator"
)

// Record is one notification received by a Sink.
type Record struct {
	Notification cmed.Notification
	Options      cmed.ForwardOptions
}

// Sink is a thread-safe in-memory implementation of cmed.NotificationSink.
// It records forwarded notifications for testing and examples.
type Sink struct {
	mu      sync.Mutex
	records []Record
}

// Ensure Sink implements the contract.
var _ cmed.NotificationSink = (*Sink)(nil)

// New creates a new in-memory sink.
func New() *Sink { return &Sink{} }

func (s *Sink) Forward(ctx context.Context, n cmed.Notification, opts cmed.ForwardOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.records = append(s.records, Record{Notification: n, Options: opts})
	s.mu.Unlock()

	return nil
}

// Records returns a copy of everything recorded so far, in arrival order.
func (s *Sink) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]Record(nil), s.records...)
}

// Len reports how many notifications were recorded.
func (s *Sink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.records)
}

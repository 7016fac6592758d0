package rabbitmq

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	berr "github.com/next-trace/scg-mediator/contract/errors"
	cmed "github.com/next-trace/scg-mediator/contract/mediator"
)

type fakeChannel struct {
	mu   sync.Mutex
	sent []amqp.Publishing
	keys []string
}

func (c *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sent = append(c.sent, msg)
	c.keys = append(c.keys, exchange+"/"+key)

	return nil
}

func (c *fakeChannel) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.sent)
}

type fakeSession struct {
	ch     *fakeChannel
	lost   chan *amqp.Error
	closed atomic.Int32
}

// fakeDialer fails the first `failures` dials; a negative value fails forever.
type fakeDialer struct {
	mu       sync.Mutex
	failures int
	calls    int
	sessions []*fakeSession
}

func (d *fakeDialer) dial(Config) (*session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.calls++
	if d.failures != 0 {
		if d.failures > 0 {
			d.failures--
		}

		return nil, errors.New("connection refused")
	}

	fs := &fakeSession{ch: &fakeChannel{}, lost: make(chan *amqp.Error)}
	d.sessions = append(d.sessions, fs)

	return &session{ch: fs.ch, lost: fs.lost, close: func() { fs.closed.Add(1) }}, nil
}

func (d *fakeDialer) session(i int) *fakeSession {
	d.mu.Lock()
	defer d.mu.Unlock()

	if i >= len(d.sessions) {
		return nil
	}

	return d.sessions[i]
}

func (d *fakeDialer) dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.calls
}

func testConfig() Config {
	return Config{URL: "amqp://test", ReconnectMin: time.Millisecond, ReconnectMax: 4 * time.Millisecond}.withDefaults()
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}

		time.Sleep(time.Millisecond)
	}
}

type orderPlaced struct {
	ID string `json:"id"`
}

func (orderPlaced) Subject() string { return "orders.placed" }

func TestReconnectingPublisher_WaitsForFirstConnection(t *testing.T) {
	d := &fakeDialer{failures: 2}
	rp := newReconnectingPublisher(testConfig(), d.dial)
	defer rp.close()

	ad := New(rp)
	ad.Exchange = "events"

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := ad.Forward(ctx, orderPlaced{ID: "o-1"}, cmed.ForwardOptions{Key: "o-1"}); err != nil {
		t.Fatalf("forward: %v", err)
	}

	if got := d.dials(); got != 3 {
		t.Fatalf("want 3 dials, got %d", got)
	}

	ch := d.session(0).ch
	if ch.count() != 1 {
		t.Fatalf("want 1 publishing, got %d", ch.count())
	}

	msg := ch.sent[0]
	if ch.keys[0] != "events/orders.placed" {
		t.Fatalf("unexpected exchange/key %q", ch.keys[0])
	}

	if msg.DeliveryMode != amqp.Persistent {
		t.Fatalf("want persistent delivery, got %d", msg.DeliveryMode)
	}

	if msg.ContentType != "application/json" {
		t.Fatalf("unexpected content type %q", msg.ContentType)
	}

	if msg.Type == "" || msg.Type != msg.Headers[notificationTypeHeader] {
		t.Fatalf("type %q should match header %v", msg.Type, msg.Headers[notificationTypeHeader])
	}

	if msg.Headers["key"] != "o-1" {
		t.Fatalf("key header missing: %v", msg.Headers)
	}

	if string(msg.Body) != `{"id":"o-1"}` {
		t.Fatalf("unexpected body %s", msg.Body)
	}
}

func TestReconnectingPublisher_ContextExpiresWhileWaiting(t *testing.T) {
	d := &fakeDialer{failures: -1}
	rp := newReconnectingPublisher(testConfig(), d.dial)
	defer rp.close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := rp.Publish(ctx, PubMsg{RoutingKey: "orders.placed"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want deadline exceeded, got %v", err)
	}

	if d.dials() < 2 {
		t.Fatalf("expected repeated dial attempts, got %d", d.dials())
	}
}

func TestReconnectingPublisher_ClosedBeforeConnect(t *testing.T) {
	d := &fakeDialer{failures: -1}
	rp := newReconnectingPublisher(testConfig(), d.dial)

	rp.close()
	rp.close()

	err := rp.Publish(context.Background(), PubMsg{RoutingKey: "orders.placed"})
	if !errors.Is(err, berr.ErrForwardFailed) {
		t.Fatalf("want ErrForwardFailed, got %v", err)
	}
}

func TestReconnectingPublisher_CloseReleasesSession(t *testing.T) {
	d := &fakeDialer{}
	rp := newReconnectingPublisher(testConfig(), d.dial)

	if err := rp.Publish(context.Background(), PubMsg{RoutingKey: "orders.placed"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	rp.close()

	if got := d.session(0).closed.Load(); got != 1 {
		t.Fatalf("want session closed once, got %d", got)
	}

	err := rp.Publish(context.Background(), PubMsg{RoutingKey: "orders.placed"})
	if !errors.Is(err, berr.ErrForwardFailed) {
		t.Fatalf("want ErrForwardFailed after close, got %v", err)
	}
}

func TestReconnectingPublisher_ReconnectsAfterLoss(t *testing.T) {
	d := &fakeDialer{}
	rp := newReconnectingPublisher(testConfig(), d.dial)
	defer rp.close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := rp.Publish(ctx, PubMsg{RoutingKey: "a"}); err != nil {
		t.Fatalf("first publish: %v", err)
	}

	first := d.session(0)
	first.lost <- amqp.ErrClosed

	waitFor(t, "second session", func() bool {
		second := d.session(1)
		if second == nil {
			return false
		}

		rp.mu.RLock()
		defer rp.mu.RUnlock()

		return rp.sess != nil && rp.sess.ch == second.ch
	})

	if err := rp.Publish(ctx, PubMsg{RoutingKey: "b"}); err != nil {
		t.Fatalf("second publish: %v", err)
	}

	if first.ch.count() != 1 || d.session(1).ch.count() != 1 {
		t.Fatalf("want one publishing per session, got %d and %d", first.ch.count(), d.session(1).ch.count())
	}

	if got := first.closed.Load(); got != 1 {
		t.Fatalf("lost session should be closed once, got %d", got)
	}
}

func TestConfig_Defaults(t *testing.T) {
	c := Config{URL: "amqp://x"}.withDefaults()

	if c.Exchange != defaultExchange || c.ConnTimeout != defaultConnTimeout {
		t.Fatalf("unexpected defaults %+v", c)
	}

	if c.ReconnectMin != defaultReconnectMin || c.ReconnectMax != defaultReconnectMax {
		t.Fatalf("unexpected backoff defaults %+v", c)
	}
}

func TestJitter_Bounds(t *testing.T) {
	d := 10 * time.Millisecond
	for range 100 {
		got := jitter(d)
		if got < d || got >= d+d/2 {
			t.Fatalf("jitter(%v) = %v out of range", d, got)
		}
	}
}

package rabbitmq

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	berr "github.com/next-trace/scg-mediator/contract/errors"
)

const (
	defaultExchange     = "notifications"
	exchangeKind        = "topic"
	defaultConnTimeout  = 30 * time.Second
	defaultReconnectMin = time.Second
	defaultReconnectMax = 30 * time.Second
)

type Config struct {
	URL         string
	ConnTimeout time.Duration // defaults to 30s
	// Exchange is declared as a durable topic exchange. Defaults to "notifications".
	Exchange string
	// ReconnectMin and ReconnectMax bound the jittered reconnect backoff. Defaults 1s and 30s.
	ReconnectMin time.Duration
	ReconnectMax time.Duration
}

func (c Config) withDefaults() Config {
	if c.Exchange == "" {
		c.Exchange = defaultExchange
	}

	if c.ConnTimeout <= 0 {
		c.ConnTimeout = defaultConnTimeout
	}

	if c.ReconnectMin <= 0 {
		c.ReconnectMin = defaultReconnectMin
	}

	if c.ReconnectMax < c.ReconnectMin {
		c.ReconnectMax = max(defaultReconnectMax, c.ReconnectMin)
	}

	return c
}

// channel is the part of *amqp.Channel the publisher needs.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// session is one live broker connection. lost fires when the broker drops it.
type session struct {
	ch    channel
	lost  <-chan *amqp.Error
	close func()
}

type dialFunc func(cfg Config) (*session, error)

// reconnectingPublisher keeps one session open in the background and
// redials with jittered exponential backoff whenever it is lost.
// Publish waits for a session while none is available.
type reconnectingPublisher struct {
	cfg  Config
	dial dialFunc

	mu    sync.RWMutex
	sess  *session
	ready chan struct{} // closed while sess is set; replaced when sess is lost

	closed    chan struct{}
	done      chan struct{} // closed when run returns
	closeOnce sync.Once
}

func newReconnectingPublisher(cfg Config, dial dialFunc) *reconnectingPublisher {
	rp := &reconnectingPublisher{
		cfg:    cfg,
		dial:   dial,
		ready:  make(chan struct{}),
		closed: make(chan struct{}),
		done:   make(chan struct{}),
	}
	go rp.run()

	return rp
}

func (rp *reconnectingPublisher) Publish(ctx context.Context, m PubMsg) error {
	rp.mu.RLock()
	sess, ready := rp.sess, rp.ready
	rp.mu.RUnlock()

	if sess == nil {
		select {
		case <-ready:
		case <-rp.closed:
			return fmt.Errorf("%w: rabbitmq publisher closed", berr.ErrForwardFailed)
		case <-ctx.Done():
			return ctx.Err()
		}

		rp.mu.RLock()
		sess = rp.sess
		rp.mu.RUnlock()

		if sess == nil {
			return fmt.Errorf("%w: rabbitmq not connected", berr.ErrForwardFailed)
		}
	}

	return sess.ch.PublishWithContext(
		ctx,
		m.Exchange,
		m.RoutingKey,
		false,
		false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			Headers:      toTable(m.Headers),
			ContentType:  "application/json",
			Type:         m.Headers[notificationTypeHeader],
			Timestamp:    time.Now(),
			Body:         m.Body,
		},
	)
}

func (rp *reconnectingPublisher) run() {
	defer close(rp.done)

	backoff := rp.cfg.ReconnectMin

	for {
		select {
		case <-rp.closed:
			return
		default:
		}

		sess, err := rp.dial(rp.cfg)
		if err != nil {
			if !rp.sleep(jitter(backoff)) {
				return
			}

			backoff = min(backoff*2, rp.cfg.ReconnectMax)

			continue
		}

		backoff = rp.cfg.ReconnectMin

		rp.mu.Lock()
		select {
		case <-rp.closed:
			rp.mu.Unlock()
			sess.close()

			return
		default:
		}

		rp.sess = sess
		close(rp.ready)
		rp.mu.Unlock()

		select {
		case <-rp.closed:
			return // close releases the session
		case <-sess.lost:
		}

		rp.mu.Lock()
		owned := rp.sess == sess
		if owned {
			rp.sess = nil
			rp.ready = make(chan struct{})
		}
		rp.mu.Unlock()

		if owned {
			sess.close()
		}
	}
}

func (rp *reconnectingPublisher) sleep(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-rp.closed:
		return false
	case <-t.C:
		return true
	}
}

// jitter adds up to half of d on top of d.
func jitter(d time.Duration) time.Duration {
	if d < 2 {
		return d
	}

	return d + rand.N(d/2) //nolint:gosec // non-crypto RNG is acceptable for backoff jitter
}

// close stops reconnecting, releases the current session and waits for the
// background loop to exit. It is idempotent.
func (rp *reconnectingPublisher) close() {
	rp.closeOnce.Do(func() {
		rp.mu.Lock()
		close(rp.closed)
		sess := rp.sess
		rp.sess = nil
		rp.mu.Unlock()

		if sess != nil {
			sess.close()
		}

		<-rp.done
	})
}

func amqpDial(cfg Config) (*session, error) {
	conn, err := amqp.DialConfig(cfg.URL, amqp.Config{
		Locale:     "en_US",
		Properties: amqp.Table{"product": "scg-mediator"},
		Dial:       amqp.DefaultDial(cfg.ConnTimeout),
	})
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	if err := ch.ExchangeDeclare(cfg.Exchange, exchangeKind, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()

		return nil, err
	}

	var once sync.Once

	return &session{
		ch:   ch,
		lost: conn.NotifyClose(make(chan *amqp.Error, 1)),
		close: func() {
			once.Do(func() {
				_ = ch.Close()
				_ = conn.Close()
			})
		},
	}, nil
}

// NewWithAMQPConn dials RabbitMQ in the background with auto-reconnect, declares the
// notification exchange on every connect, and returns the Adapter and a cleanup.
// Forward waits for the first connection, bounded by its context.
func NewWithAMQPConn(cfg Config) (*Adapter, func(), error) {
	if cfg.URL == "" {
		return nil, nil, fmt.Errorf("%w: rabbitmq url required", berr.ErrSinkNotConfigured)
	}

	cfg = cfg.withDefaults()
	pub := newReconnectingPublisher(cfg, amqpDial)

	ad := New(pub)
	ad.Exchange = cfg.Exchange

	return ad, pub.close, nil
}

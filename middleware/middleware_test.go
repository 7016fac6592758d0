package middleware_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	berr "github.com/next-trace/scg-mediator/contract/errors"
	cmed "github.com/next-trace/scg-mediator/contract/mediator"
	"github.com/next-trace/scg-mediator/mediator"
	mw "github.com/next-trace/scg-mediator/middleware"
)

type ping struct {
	cmed.Returns[string]
	Msg string
}

type pinged struct{ Msg string }

func newCall() mediator.Call {
	return mediator.Call{Kind: mediator.KindRequest, Type: "middleware_test.ping", Handler: "echo", Message: ping{Msg: "hi"}}
}

func ok(_ context.Context, _ mediator.Call) (any, error) { return "pong", nil }

func fail(_ context.Context, _ mediator.Call) (any, error) { return nil, errors.New("handler broke") }

func newBufferLogger() (*bytes.Buffer, *slog.Logger) {
	var buf bytes.Buffer
	return &buf, slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestLogging_Success(t *testing.T) {
	buf, logger := newBufferLogger()

	res, err := mw.Logging(logger)(ok)(t.Context(), newCall())
	if err != nil || res != "pong" {
		t.Fatalf("res=%v err=%v", res, err)
	}

	out := buf.String()
	if !strings.Contains(out, "handler started") || !strings.Contains(out, "handler completed") {
		t.Fatalf("missing log lines: %s", out)
	}

	if !strings.Contains(out, "handler=echo") {
		t.Fatalf("missing handler attribute: %s", out)
	}
}

func TestLogging_Failure(t *testing.T) {
	buf, logger := newBufferLogger()

	_, err := mw.Logging(logger)(fail)(t.Context(), newCall())
	if err == nil {
		t.Fatal("expected error to pass through")
	}

	if !strings.Contains(buf.String(), "handler failed") || !strings.Contains(buf.String(), "handler broke") {
		t.Fatalf("failure not logged: %s", buf.String())
	}
}

func TestRecover_ConvertsPanic(t *testing.T) {
	buf, logger := newBufferLogger()

	panicking := func(context.Context, mediator.Call) (any, error) { panic("kaboom") }

	res, err := mw.Recover(logger)(panicking)(t.Context(), newCall())
	if res != nil {
		t.Fatalf("res=%v", res)
	}

	if !errors.Is(err, berr.ErrHandlerPanicked) {
		t.Fatalf("want ErrHandlerPanicked, got %v", err)
	}

	var pe *berr.PanicError
	if !errors.As(err, &pe) || pe.Value != "kaboom" || pe.Stack == "" {
		t.Fatalf("unexpected panic error: %#v", err)
	}

	if !strings.Contains(buf.String(), "handler panicked") {
		t.Fatalf("panic not logged: %s", buf.String())
	}
}

func TestRecover_NoPanicPassThrough(t *testing.T) {
	_, logger := newBufferLogger()

	res, err := mw.Recover(logger)(ok)(t.Context(), newCall())
	if err != nil || res != "pong" {
		t.Fatalf("res=%v err=%v", res, err)
	}
}

func TestRecover_SendThroughMediator(t *testing.T) {
	reg := mediator.NewRegistry()
	_ = mediator.RegisterRequest[ping, string](reg, cmed.RequestHandlerFunc[ping, string](
		func(context.Context, ping) (string, error) { panic("boom") },
	))

	_, logger := newBufferLogger()
	m := mediator.New(reg, mediator.WithMiddleware(mw.Recover(logger)))

	_, err := mediator.Send[string](t.Context(), m, ping{Msg: "x"})
	if !errors.Is(err, berr.ErrHandlerPanicked) {
		t.Fatalf("want ErrHandlerPanicked, got %v", err)
	}
}

func TestMiddleware_PerHandlerDuringPublish(t *testing.T) {
	reg := mediator.NewRegistry()
	for _, name := range []string{"a", "b", "c"} {
		_ = mediator.RegisterNotification[pinged](reg, cmed.NotificationHandlerFunc[pinged](
			func(context.Context, pinged) error { return nil },
		), mediator.WithName(name))
	}

	buf, logger := newBufferLogger()
	m := mediator.New(reg, mediator.WithMiddleware(mw.Logging(logger)))

	if err := m.Publish(t.Context(), pinged{Msg: "x"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if got := strings.Count(buf.String(), "handler completed"); got != 3 {
		t.Fatalf("want 3 completions, got %d: %s", got, buf.String())
	}
}

package nats

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/textbook-tutor/internal/core/domain"
)

type observerFake struct {
	started  int
	finished int
	subject  string
	err      error
}

func (f *observerFake) StartRequest() { f.started++ }
func (f *observerFake) FinishRequest(subject string, _ time.Duration, err error) {
	f.finished++
	f.subject = subject
	f.err = err
}

func TestReplyWrapsResultInEnvelope(t *testing.T) {
	observer := &observerFake{}
	r := NewResponder("retrieval", Options{}).WithObserver(observer)

	raw := r.Reply(context.Background(), "tutor.search", func(_ context.Context, data []byte) (any, error) {
		return map[string]string{"echo": string(data)}, nil
	}, []byte("cells"))

	var envelope Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if !envelope.OK || envelope.Error != nil {
		t.Fatalf("unexpected envelope %s", raw)
	}
	var data map[string]string
	_ = json.Unmarshal(envelope.Data, &data)
	if data["echo"] != "cells" {
		t.Fatalf("unexpected data %s", envelope.Data)
	}
	if observer.started != 1 || observer.finished != 1 || observer.subject != "tutor.search" {
		t.Fatalf("unexpected observation %+v", observer)
	}
}

func TestReplyEncodesErrorKind(t *testing.T) {
	r := NewResponder("retrieval", Options{}).WithErrorEncoder(func(err error) string {
		if domain.IsKind(err, domain.ErrInvalidInput) {
			return "invalid_input"
		}
		return "internal"
	})

	raw := r.Reply(context.Background(), "tutor.search", func(context.Context, []byte) (any, error) {
		return nil, domain.WrapError(domain.ErrInvalidInput, "search", errors.New("query is required"))
	}, nil)

	var envelope Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if envelope.OK || envelope.Error == nil || envelope.Error.Kind != "invalid_input" {
		t.Fatalf("unexpected envelope %s", raw)
	}
}

func TestReplyAppliesHandlerTimeout(t *testing.T) {
	r := NewResponder("retrieval", Options{HandlerTimeout: 10 * time.Millisecond})
	var deadlineSet bool
	r.Reply(context.Background(), "tutor.search", func(ctx context.Context, _ []byte) (any, error) {
		_, deadlineSet = ctx.Deadline()
		return nil, nil
	}, nil)
	if !deadlineSet {
		t.Fatalf("expected handler context deadline")
	}
}

func TestServeRequiresConnection(t *testing.T) {
	r := NewResponder("retrieval", Options{})
	if err := r.Serve(context.Background()); err == nil {
		t.Fatalf("expected error without connection")
	}
}

func TestSubjectsSorted(t *testing.T) {
	r := NewResponder("retrieval", Options{})
	noop := func(context.Context, []byte) (any, error) { return nil, nil }
	r.Handle("tutor.search", noop)
	r.Handle("tutor.figures.list", noop)
	got := r.Subjects()
	if len(got) != 2 || got[0] != "tutor.figures.list" {
		t.Fatalf("unexpected subjects %v", got)
	}
}

func TestClassifyNATSError(t *testing.T) {
	if c := classifyNATSError(nats.ErrTimeout); !c.Retryable {
		t.Fatalf("timeout must be retryable")
	}
	if c := classifyNATSError(nats.ErrMsgNoReply); c.Retryable || c.RecordFailure {
		t.Fatalf("missing reply subject is a caller error, got %+v", c)
	}
	if err := wrapTemporaryIfNeeded(nats.ErrConnectionClosed); !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected ErrTemporary, got %v", err)
	}
}

func TestMessageHandlerRepliesAfterShutdown(t *testing.T) {
	r := NewResponder("retrieval", Options{})
	var sent []byte
	r.send = func(_ *nats.Msg, data []byte) error {
		sent = data
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var handlerErr error
	handle := r.messageHandler(ctx, func(ctx context.Context, _ []byte) (any, error) {
		handlerErr = ctx.Err()
		return map[string]int{"hits": 1}, nil
	})
	handle(&nats.Msg{Subject: "tutor.search", Reply: "_INBOX.1", Data: []byte(`{"query":"cell"}`)})

	if handlerErr != nil {
		t.Fatalf("drained message must run with a live context, got %v", handlerErr)
	}
	var envelope Envelope
	if err := json.Unmarshal(sent, &envelope); err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	if !envelope.OK || string(envelope.Data) != `{"hits":1}` {
		t.Fatalf("unexpected reply %s", sent)
	}
}

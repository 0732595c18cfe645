package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/textbook-tutor/internal/infrastructure/resilience"
)

// Handler serves one request subject. The returned value is sent back as the
// envelope data; a non-nil error becomes the envelope error.
type Handler func(ctx context.Context, data []byte) (any, error)

// ErrorEncoder maps a handler error to the kind reported to requesters.
type ErrorEncoder func(err error) string

// Observer receives per-request outcomes.
type Observer interface {
	StartRequest()
	FinishRequest(subject string, duration time.Duration, err error)
}

type Envelope struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error *EnvelopeError  `json:"error,omitempty"`
}

type EnvelopeError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type Options struct {
	Name                 string
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
	HandlerTimeout       time.Duration
}

// Responder answers request/reply traffic on a queue group so several
// workers can share the load.
type Responder struct {
	conn       *nats.Conn
	queueGroup string
	executor   *resilience.Executor
	timeout    time.Duration
	encodeErr  ErrorEncoder
	observer   Observer
	handlers   map[string]Handler
	send       func(msg *nats.Msg, data []byte) error
}

func Connect(url, queueGroup string, options Options) (*Responder, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	name := options.Name
	if name == "" {
		name = "textbook-tutor"
	}

	conn, err := nats.Connect(
		url,
		nats.Name(name),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	r := NewResponder(queueGroup, options)
	r.conn = conn
	return r, nil
}

// NewResponder builds an unconnected responder; Connect is the usual entry
// point.
func NewResponder(queueGroup string, options Options) *Responder {
	timeout := options.HandlerTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Responder{
		queueGroup: queueGroup,
		executor:   options.ResilienceExecutor,
		timeout:    timeout,
		encodeErr:  func(error) string { return "internal" },
		handlers:   make(map[string]Handler),
		send:       func(msg *nats.Msg, data []byte) error { return msg.Respond(data) },
	}
}

func (r *Responder) Handle(subject string, handler Handler) {
	r.handlers[subject] = handler
}

func (r *Responder) WithErrorEncoder(encode ErrorEncoder) *Responder {
	if encode != nil {
		r.encodeErr = encode
	}
	return r
}

func (r *Responder) WithObserver(observer Observer) *Responder {
	r.observer = observer
	return r
}

// Subjects lists registered subjects in order.
func (r *Responder) Subjects() []string {
	out := make([]string, 0, len(r.handlers))
	for subject := range r.handlers {
		out = append(out, subject)
	}
	sort.Strings(out)
	return out
}

func (r *Responder) Close() {
	if r.conn != nil {
		r.conn.Close()
	}
}

// Serve subscribes every registered subject and blocks until ctx is done,
// then drains the subscriptions. Messages already buffered when ctx ends are
// still answered.
func (r *Responder) Serve(ctx context.Context) error {
	if r.conn == nil {
		return errors.New("nats responder is not connected")
	}

	subs := make([]*nats.Subscription, 0, len(r.handlers))
	for _, subject := range r.Subjects() {
		handler := r.handlers[subject]
		sub, err := r.conn.QueueSubscribe(subject, r.queueGroup, r.messageHandler(ctx, handler))
		if err != nil {
			return fmt.Errorf("nats subscribe %s: %w", subject, err)
		}
		subs = append(subs, sub)
	}

	if err := r.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}
	slog.Info("nats_responder_ready", "subjects", r.Subjects(), "queue_group", r.queueGroup)

	<-ctx.Done()
	for _, sub := range subs {
		if err := sub.Drain(); err != nil {
			return fmt.Errorf("nats drain subscription: %w", err)
		}
	}
	if err := r.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

// Reply runs handler on data and encodes the envelope. It never fails: errors
// are reported inside the envelope.
func (r *Responder) Reply(ctx context.Context, subject string, handler Handler, data []byte) []byte {
	if r.observer != nil {
		r.observer.StartRequest()
	}
	started := time.Now()

	handlerCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	result, err := handler(handlerCtx, data)
	if r.observer != nil {
		r.observer.FinishRequest(subject, time.Since(started), err)
	}

	envelope := Envelope{OK: err == nil}
	if err != nil {
		envelope.Error = &EnvelopeError{Kind: r.encodeErr(err), Message: err.Error()}
	} else {
		raw, marshalErr := json.Marshal(result)
		if marshalErr != nil {
			envelope = Envelope{Error: &EnvelopeError{Kind: "internal", Message: marshalErr.Error()}}
		} else {
			envelope.Data = raw
		}
	}

	out, marshalErr := json.Marshal(envelope)
	if marshalErr != nil {
		return []byte(`{"ok":false,"error":{"kind":"internal","message":"encode reply"}}`)
	}
	if err != nil {
		slog.Warn("nats_request_failed", "subject", subject, "error", err)
	}
	return out
}

// messageHandler answers every message, including those delivered during the
// drain after ctx ends. Each reply stays bounded by the handler timeout.
func (r *Responder) messageHandler(ctx context.Context, handler Handler) nats.MsgHandler {
	serveCtx := context.WithoutCancel(ctx)
	return func(msg *nats.Msg) {
		reply := r.Reply(serveCtx, msg.Subject, handler, msg.Data)
		if err := r.respond(serveCtx, msg, reply); err != nil {
			slog.Error("nats_respond_failed", "subject", msg.Subject, "error", err)
		}
	}
}

func (r *Responder) respond(ctx context.Context, msg *nats.Msg, reply []byte) error {
	call := func(_ context.Context) error {
		if err := r.send(msg, reply); err != nil {
			return fmt.Errorf("nats respond: %w", err)
		}
		return nil
	}

	var err error
	if r.executor != nil {
		err = r.executor.Execute(ctx, "nats.respond", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	return wrapTemporaryIfNeeded(err)
}

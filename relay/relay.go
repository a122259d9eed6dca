package relay

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/initia-labs/corerpc/log"
	"github.com/initia-labs/corerpc/metrics"
	"github.com/initia-labs/corerpc/sentry_integration"
	"github.com/initia-labs/corerpc/types"
)

// Relay performs JSON-RPC requests against a single node endpoint.
// It is safe for concurrent use. Request ids come from a per-relay counter
// and are only correlation metadata.
type Relay struct {
	id     atomic.Uint64
	client *fiber.Client
	url    string
	user   string
	pass   string
	logger *slog.Logger
}

type Option func(*Relay)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		r.logger = logger.With("component", "relay")
	}
}

// WithClient replaces the underlying fiber client.
func WithClient(client *fiber.Client) Option {
	return func(r *Relay) {
		r.client = client
	}
}

// New creates a relay for url. Basic auth is only sent when both user and
// pass are non-empty.
func New(url, user, pass string, opts ...Option) *Relay {
	r := &Relay{
		client: fiber.AcquireClient(),
		url:    url,
		user:   user,
		pass:   pass,
		logger: log.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Clone returns a relay sharing the client, url and credentials, with its own
// id sequence starting from zero.
func (r *Relay) Clone() *Relay {
	return &Relay{
		client: r.client,
		url:    r.url,
		user:   r.user,
		pass:   r.pass,
		logger: r.logger,
	}
}

func (r *Relay) URL() string {
	return r.url
}

type reply struct {
	code int
	body []byte
	errs []error
}

// Request sends method with params and decodes the result into out. out may
// be nil when the result is not needed.
func (r *Relay) Request(ctx context.Context, method string, params any, out any) (err error) {
	id := r.id.Add(1)

	span, ctx := sentry_integration.StartSentrySpan(ctx, "rpc.request", method)
	defer span.Finish()

	m := metrics.GetMetrics().RPC
	start := time.Now()
	m.InFlight.Inc()
	defer func() {
		m.InFlight.Dec()
		m.Latency.WithLabelValues(method).Observe(time.Since(start).Seconds())
		outcome := "ok"
		if err != nil {
			outcome = string(types.ErrorTypeOf(err))
		}
		m.RequestsTotal.WithLabelValues(method, outcome).Inc()
	}()

	payload, err := json.Marshal(types.NewRequest(id, method, params))
	if err != nil {
		return types.NewEncodeError(method, err)
	}
	if err := ctx.Err(); err != nil {
		return types.NewTransportError(r.url, err)
	}

	agent := r.client.Post(r.url).
		ContentType(fiber.MIMEApplicationJSON).
		Body(payload)
	if r.user != "" && r.pass != "" {
		agent.BasicAuth(r.user, r.pass)
	}
	if timeout, ok := agentTimeout(ctx); ok {
		agent.Timeout(timeout)
	}

	// The agent has no context support; a cancelled caller abandons the
	// in-flight exchange, which still ends at the deadline when ctx has one.
	done := make(chan reply, 1)
	go func() {
		code, body, errs := agent.Bytes()
		done <- reply{code: code, body: body, errs: errs}
	}()

	var res reply
	select {
	case <-ctx.Done():
		return types.NewTransportError(r.url, ctx.Err())
	case res = <-done:
	}

	if len(res.errs) > 0 {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return types.NewTransportError(r.url, ctxErr)
		}
		if deadline, ok := ctx.Deadline(); ok && !time.Now().Before(deadline) {
			return types.NewTransportError(r.url, context.DeadlineExceeded)
		}
		return types.NewTransportError(r.url, errors.Join(res.errs...))
	}

	m.HTTPStatusTotal.WithLabelValues(strconv.Itoa(res.code)).Inc()
	m.ResponseBytes.WithLabelValues(method).Observe(float64(len(res.body)))

	text := string(res.body)
	if res.code < 200 || res.code > 299 {
		if res.code >= 400 && res.code <= 499 {
			return types.NewClientError(res.code, text)
		}
		return types.NewServerError(res.code, text)
	}

	resp, err := types.DecodeResponse(res.body)
	if err != nil {
		return types.NewDecodeError(err, text)
	}
	if respID, ok := resp.IDUint64(); !ok || respID != id {
		r.logger.Debug("response id does not match request",
			slog.String("method", method),
			slog.Uint64("request_id", id),
			slog.String("response_id", string(resp.ID)))
	}

	if err := resp.Into(out); err != nil {
		var rpcErr *types.RPCError
		if errors.As(err, &rpcErr) {
			return types.NewRPCError(method, rpcErr)
		}
		return types.NewDecodeError(err, text)
	}
	return nil
}

// agentTimeout bounds the exchange by the context deadline, so a request
// abandoned on cancellation still ends once the deadline passes.
func agentTimeout(ctx context.Context) (time.Duration, bool) {
	deadline, ok := ctx.Deadline()
	if !ok {
		return 0, false
	}
	timeout := time.Until(deadline)
	if timeout <= 0 {
		timeout = time.Millisecond
	}
	return timeout, true
}

// Do is Request with the result type as a type parameter.
func Do[R any](ctx context.Context, r *Relay, method string, params any) (R, error) {
	var out R
	err := r.Request(ctx, method, params, &out)
	return out, err
}

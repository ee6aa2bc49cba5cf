// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/scc-digitalhub/apkclient-sdk/sdk/config"
	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"
)

// MaxResponseBody caps the bytes kept from a response that is not consumed
// by the caller.
const MaxResponseBody = 1 << 20

var errExecutorClosed = errors.New("executor closed")

type OutcomeKind int

const (
	OutcomeNone OutcomeKind = iota
	OutcomeSuccess
	OutcomeServerRejected
	OutcomeTransportFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeServerRejected:
		return "server_rejected"
	case OutcomeTransportFailure:
		return "transport_failure"
	}
	return "none"
}

// Outcome is the single result of one network call.
type Outcome struct {
	Kind       OutcomeKind
	StatusCode int
	// Body holds up to MaxResponseBody bytes when the request had no Consume hook.
	Body   []byte
	Reason string
	Err    error
}

// AsError converts a failed outcome into a transfer error. It returns nil
// on success.
func (o Outcome) AsError(op Operation) error {
	switch o.Kind {
	case OutcomeSuccess:
		return nil
	case OutcomeServerRejected:
		return &Error{Kind: KindServerRejected, Op: op, StatusCode: o.StatusCode}
	}
	err := o.Err
	if err == nil {
		err = errors.New(o.Reason)
	}
	return &Error{Kind: KindTransport, Op: op, Err: err}
}

// Request describes one call. When Consume is set it receives the body of
// a 2xx response and the call only succeeds if Consume returns nil.
type Request struct {
	ID      string
	Method  string
	URL     string
	Body    *EncodedBody
	Consume func(r io.Reader) error
}

// Executor runs calls off the caller goroutine and reports exactly one
// Outcome per call.
type Executor struct {
	http    config.CoreHTTP
	log     zerolog.Logger
	metrics *Metrics

	mu      sync.Mutex
	closed  bool
	workers *pool.Pool
}

func NewExecutor(httpc config.CoreHTTP, log zerolog.Logger, metrics *Metrics) *Executor {
	return &Executor{
		http:    httpc,
		log:     log,
		metrics: metrics,
		workers: pool.New(),
	}
}

// Execute dispatches req and returns immediately. onComplete is invoked
// exactly once, from a worker goroutine, whatever happens to the call.
func (e *Executor) Execute(ctx context.Context, op Operation, req Request, policy config.TimeoutPolicy, onComplete func(Outcome)) {
	var once sync.Once
	start := time.Now()
	deliver := func(out Outcome) {
		once.Do(func() {
			e.metrics.observe(op, out.Kind, time.Since(start))
			e.logOutcome(op, req, out, time.Since(start))
			if onComplete != nil {
				onComplete(out)
			}
		})
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		closeBody(req.Body)
		go deliver(Outcome{Kind: OutcomeTransportFailure, Reason: errExecutorClosed.Error(), Err: errExecutorClosed})
		return
	}

	e.log.Debug().
		Str("id", req.ID).
		Str("op", string(op)).
		Str("method", req.Method).
		Str("url", req.URL).
		Stringer("policy", policy).
		Msg("dispatching request")

	e.workers.Go(func() {
		var out Outcome
		var pc panics.Catcher
		pc.Try(func() { out = e.run(ctx, req, policy) })
		if r := pc.Recovered(); r != nil {
			closeBody(req.Body)
			out = Outcome{Kind: OutcomeTransportFailure, Reason: "internal error", Err: r.AsError()}
		}
		deliver(out)
	})
}

// Close stops accepting calls and waits for the in-flight ones to complete.
func (e *Executor) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.mu.Unlock()
	e.workers.Wait()
}

func (e *Executor) run(ctx context.Context, req Request, policy config.TimeoutPolicy) Outcome {
	var (
		body        io.Reader
		contentType string
		length      int64 = -1
	)
	if req.Body != nil {
		body = req.Body.Body
		contentType = req.Body.ContentType
		length = req.Body.ContentLength
	}

	httpReq, err := e.http.NewRequest(ctx, req.Method, req.URL, body, contentType, length)
	if err != nil {
		closeBody(req.Body)
		return Outcome{Kind: OutcomeTransportFailure, Reason: fmt.Sprintf("invalid request: %v", err), Err: err}
	}

	// the transport closes the request body, on errors too
	resp, err := e.http.Do(httpReq, policy)
	if err != nil {
		return transportFailure(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, MaxResponseBody))
		return Outcome{Kind: OutcomeServerRejected, StatusCode: resp.StatusCode}
	}

	if req.Consume != nil {
		if err := req.Consume(resp.Body); err != nil {
			out := transportFailure(err)
			out.StatusCode = resp.StatusCode
			return out
		}
		return Outcome{Kind: OutcomeSuccess, StatusCode: resp.StatusCode}
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBody))
	if err != nil {
		out := transportFailure(err)
		out.StatusCode = resp.StatusCode
		return out
	}
	return Outcome{Kind: OutcomeSuccess, StatusCode: resp.StatusCode, Body: b}
}

func (e *Executor) logOutcome(op Operation, req Request, out Outcome, took time.Duration) {
	var ev *zerolog.Event
	switch out.Kind {
	case OutcomeSuccess:
		ev = e.log.Info()
	default:
		ev = e.log.Warn()
	}
	ev = ev.Str("id", req.ID).
		Str("op", string(op)).
		Str("outcome", out.Kind.String()).
		Dur("took", took)
	if out.StatusCode != 0 {
		ev = ev.Int("status", out.StatusCode)
	}
	if out.Err != nil {
		ev = ev.Err(out.Err)
	}
	ev.Msg("request completed")
}

func transportFailure(err error) Outcome {
	return Outcome{Kind: OutcomeTransportFailure, Reason: failureReason(err), Err: err}
}

// failureReason turns a transport error into the short text shown to users.
func failureReason(err error) string {
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return "timeout"
	}
	return err.Error()
}

func closeBody(b *EncodedBody) {
	if b != nil && b.Body != nil {
		_ = b.Body.Close()
	}
}

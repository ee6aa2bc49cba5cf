// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package transfer

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Transfer is the handle of one running operation. Its result is readable
// once Done is closed.
type Transfer struct {
	ID        string
	Operation Operation

	state atomic.Int32
	done  chan struct{}
	once  sync.Once

	outcome  Outcome
	err      error
	artifact *ReportArtifact
}

func newTransfer(op Operation) *Transfer {
	return &Transfer{
		ID:        uuid.NewString(),
		Operation: op,
		done:      make(chan struct{}),
	}
}

func (t *Transfer) State() State {
	return State(t.state.Load())
}

// advance moves the transfer to s unless it is already at or past s.
func (t *Transfer) advance(s State) {
	for {
		cur := t.state.Load()
		if cur >= int32(s) {
			return
		}
		if t.state.CompareAndSwap(cur, int32(s)) {
			return
		}
	}
}

// complete records the result and releases waiters. Later calls are ignored.
func (t *Transfer) complete(out Outcome, err error, artifact *ReportArtifact) {
	t.once.Do(func() {
		t.outcome = out
		t.err = err
		t.artifact = artifact
		t.advance(StateCompleted)
		close(t.done)
	})
}

func (t *Transfer) Done() <-chan struct{} {
	return t.done
}

func (t *Transfer) Outcome() Outcome {
	<-t.done
	return t.outcome
}

// Err blocks until completion and returns the transfer error, nil on success.
func (t *Transfer) Err() error {
	<-t.done
	return t.err
}

// Artifact is set only by a successful report fetch.
func (t *Transfer) Artifact() *ReportArtifact {
	<-t.done
	return t.artifact
}

// Wait blocks until the transfer completes or ctx is done.
func (t *Transfer) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Transfer) Result() Result {
	<-t.done
	r := Result{
		ID:         t.ID,
		Operation:  t.Operation,
		Outcome:    t.outcome.Kind.String(),
		StatusCode: t.outcome.StatusCode,
		Artifact:   t.artifact,
	}
	if t.err != nil {
		r.Error = t.err.Error()
		if k := KindOf(t.err); k != "" && t.outcome.Kind == OutcomeNone {
			r.Outcome = strings.ToLower(string(k))
		}
	}
	return r
}

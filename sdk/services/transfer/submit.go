// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package transfer

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// SubmitName posts the application name as form field app_name.
func (s *TransferService) SubmitName(ctx context.Context, name string) (*Transfer, error) {
	return s.submitField(ctx, OpSubmitName, FieldAppName, name, msgNameSent, msgEnterName)
}

// SubmitLink posts the application link as form field app_link.
func (s *TransferService) SubmitLink(ctx context.Context, link string) (*Transfer, error) {
	return s.submitField(ctx, OpSubmitLink, FieldAppLink, link, msgLinkSent, msgEnterLink)
}

// submitField validates on the caller goroutine: an empty value fails
// synchronously and never reaches the network.
func (s *TransferService) submitField(ctx context.Context, op Operation, key, value, okMsg, emptyMsg string) (*Transfer, error) {
	if s.isClosed() {
		return nil, ErrServiceClosed
	}
	t := newTransfer(op)

	t.advance(StateValidating)
	value = strings.TrimSpace(value)
	if value == "" {
		err := &Error{Kind: KindValidation, Op: op, Err: fmt.Errorf("%w: %s", ErrEmptyField, key)}
		s.reject(t, Outcome{}, err, emptyMsg)
		return nil, err
	}

	t.advance(StateEncoding)
	body, err := EncodeForm(FieldSubmission{Key: key, Value: value})
	if err != nil {
		verr := &Error{Kind: KindValidation, Op: op, Err: err}
		s.reject(t, Outcome{}, verr, emptyMsg)
		return nil, verr
	}

	s.execute(ctx, t, Request{
		Method: http.MethodPost,
		URL:    s.conf.Core.SubmitURL,
		Body:   body,
	}, s.conf.Timeouts.Submit, func(out Outcome) {
		s.finish(t, out, okMsg, nil, nil)
	})
	return t, nil
}

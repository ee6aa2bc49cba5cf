// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package transfer

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed transfer. Kinds are strings so they read
// well in logs and in rendered results.
type ErrorKind string

const (
	// KindValidation: required local input missing or empty. Never reaches the network.
	KindValidation ErrorKind = "VALIDATION_ERROR"

	// KindLocalIO: staging or persisting a local file failed.
	KindLocalIO ErrorKind = "LOCAL_IO_ERROR"

	// KindTransport: DNS, connect, timeout, cancellation or mid-transfer I/O failure.
	KindTransport ErrorKind = "TRANSPORT_FAILURE"

	// KindServerRejected: the server answered with a non-2xx status.
	KindServerRejected ErrorKind = "SERVER_REJECTED"

	// KindPresentation: no viewer could open the fetched document.
	KindPresentation ErrorKind = "PRESENTATION_ERROR"
)

var (
	ErrEmptyField     = errors.New("required field is empty")
	ErrNoFileSelected = errors.New("no file selected")
	ErrNoViewer       = errors.New("no document viewer available")
)

// Error is the error type returned for every failed transfer.
type Error struct {
	Kind       ErrorKind
	Op         Operation
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.Kind == KindServerRejected {
		return fmt.Sprintf("%s: %s: server responded with status %d", e.Op, e.Kind, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a transfer error, or "" when err is not one.
func KindOf(err error) ErrorKind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return ""
}

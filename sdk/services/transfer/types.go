// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package transfer

import (
	"io"
)

// Operation names one of the four transfer operations.
type Operation string

const (
	OpSubmitName  Operation = "submit-name"
	OpSubmitLink  Operation = "submit-link"
	OpUploadFile  Operation = "upload-file"
	OpFetchReport Operation = "fetch-report"
)

// Wire names expected by the submit endpoint.
const (
	FieldAppName = "app_name"
	FieldAppLink = "app_link"
	FieldAPKFile = "apk_file"
)

const (
	MimeForm        = "application/x-www-form-urlencoded"
	MimeAPK         = "application/vnd.android.package-archive"
	MimeOctetStream = "application/octet-stream"
	MimePDF         = "application/pdf"
)

// State is the lifecycle position of a transfer. A transfer only moves
// forward through these states.
type State int32

const (
	StateIdle State = iota
	StateValidating
	StateEncoding
	StateInFlight
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateEncoding:
		return "encoding"
	case StateInFlight:
		return "in-flight"
	case StateCompleted:
		return "completed"
	}
	return "unknown"
}

// FieldSubmission is one key/value pair of a URL-encoded form.
type FieldSubmission struct {
	Key   string
	Value string
}

// FilePayload is a byte source sent as one multipart section. Body is read
// once, start to end. Size is -1 when unknown.
type FilePayload struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// EncodedBody is a request body ready for the wire. ContentLength is -1
// when the body is streamed with unknown length.
type EncodedBody struct {
	ContentType   string
	ContentLength int64
	Body          io.ReadCloser
}

// ReportArtifact is the fetched document once persisted.
type ReportArtifact struct {
	Path     string `json:"path"     yaml:"path"`
	Size     int64  `json:"size"     yaml:"size"`
	MimeType string `json:"mimeType" yaml:"mimeType"`
}

type Level string

const (
	LevelSuccess Level = "success"
	LevelFailure Level = "failure"
)

// Notification is a short status line for the display collaborator.
type Notification struct {
	TransferID string
	Operation  Operation
	Level      Level
	Message    string
	Err        error
}

// ContentSource is a display-named byte source picked by the user, such as
// a file behind a content provider. Open may succeed only once.
type ContentSource interface {
	DisplayName() string
	// ContentType may be empty when the source does not declare one.
	ContentType() string
	Open() (io.ReadCloser, error)
}

// Notifier displays notifications. It is only ever called from the
// dispatcher goroutine.
type Notifier interface {
	Notify(n Notification)
}

// Viewer opens a local document. It is only ever called from the
// dispatcher goroutine.
type Viewer interface {
	Open(path, mimeType string) error
}

// Result summarizes a completed transfer for printing.
type Result struct {
	ID         string          `json:"id"                   yaml:"id"`
	Operation  Operation       `json:"operation"            yaml:"operation"`
	Outcome    string          `json:"outcome"              yaml:"outcome"`
	StatusCode int             `json:"statusCode,omitempty" yaml:"statusCode,omitempty"`
	Error      string          `json:"error,omitempty"      yaml:"error,omitempty"`
	Artifact   *ReportArtifact `json:"artifact,omitempty"   yaml:"artifact,omitempty"`
}

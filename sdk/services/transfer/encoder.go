// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package transfer

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"net/url"
	"strings"
	"sync"
)

// EncodeForm encodes fields as application/x-www-form-urlencoded, keeping
// the caller's order. Values are trimmed; an empty value is rejected before
// anything is built.
func EncodeForm(fields ...FieldSubmission) (*EncodedBody, error) {
	if len(fields) == 0 {
		return nil, ErrEmptyField
	}
	var sb strings.Builder
	for i, f := range fields {
		key := strings.TrimSpace(f.Key)
		value := strings.TrimSpace(f.Value)
		if key == "" || value == "" {
			return nil, fmt.Errorf("%w: %q", ErrEmptyField, f.Key)
		}
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(key))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(value))
	}
	data := sb.String()
	return &EncodedBody{
		ContentType:   MimeForm,
		ContentLength: int64(len(data)),
		Body:          io.NopCloser(strings.NewReader(data)),
	}, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// EncodeMultipart wraps payload into a single-part multipart/form-data body
// under the given field name. The payload is streamed, never buffered; the
// returned length is exact when payload.Size is known.
func EncodeMultipart(field string, payload FilePayload) (*EncodedBody, error) {
	if strings.TrimSpace(field) == "" {
		return nil, fmt.Errorf("%w: multipart field name", ErrEmptyField)
	}
	if payload.Body == nil {
		return nil, ErrNoFileSelected
	}
	contentType := payload.ContentType
	if contentType == "" {
		contentType = MimeOctetStream
	}

	var head bytes.Buffer
	mw := multipart.NewWriter(&head)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="%s"; filename="%s"`, quoteEscaper.Replace(field), quoteEscaper.Replace(payload.Name)))
	h.Set("Content-Type", contentType)
	if _, err := mw.CreatePart(h); err != nil {
		return nil, fmt.Errorf("multipart header: %w", err)
	}
	prefix := append([]byte(nil), head.Bytes()...)

	head.Reset()
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("multipart trailer: %w", err)
	}
	suffix := append([]byte(nil), head.Bytes()...)

	length := int64(-1)
	if payload.Size >= 0 {
		length = int64(len(prefix)) + payload.Size + int64(len(suffix))
	}

	return &EncodedBody{
		ContentType:   mw.FormDataContentType(),
		ContentLength: length,
		Body: &multipartBody{
			Reader: io.MultiReader(bytes.NewReader(prefix), payload.Body, bytes.NewReader(suffix)),
			src:    payload.Body,
		},
	}, nil
}

type multipartBody struct {
	io.Reader
	src  io.Reader
	once sync.Once
	err  error
}

func (b *multipartBody) Close() error {
	b.once.Do(func() {
		if c, ok := b.src.(io.Closer); ok {
			b.err = c.Close()
		}
	})
	return b.err
}

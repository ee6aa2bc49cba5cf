// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package transfer

import (
	"context"
	"io"
	"net/http"
	"reflect"

	"github.com/scc-digitalhub/apkclient-sdk/sdk/config"
	"github.com/scc-digitalhub/apkclient-sdk/sdk/utils"
)

// UploadFile stages src into the cache filesystem, then streams the staged
// copy as multipart field apk_file. Staging runs off the caller goroutine;
// a missing source fails synchronously.
func (s *TransferService) UploadFile(ctx context.Context, src ContentSource) (*Transfer, error) {
	if s.isClosed() {
		return nil, ErrServiceClosed
	}
	t := newTransfer(OpUploadFile)

	t.advance(StateValidating)
	if isNil(src) {
		err := &Error{Kind: KindValidation, Op: OpUploadFile, Err: ErrNoFileSelected}
		s.reject(t, Outcome{}, err, msgSelectFile)
		return nil, err
	}

	if !s.goStaging(func() { s.stageAndSend(ctx, t, src) }) {
		return nil, ErrServiceClosed
	}
	return t, nil
}

func (s *TransferService) stageAndSend(ctx context.Context, t *Transfer, src ContentSource) {
	staged, err := s.stager.stage(src)
	if err != nil {
		s.reject(t, Outcome{}, &Error{Kind: KindLocalIO, Op: t.Operation, Err: err}, msgReadFailed+err.Error())
		return
	}
	s.log.Debug().
		Str("id", t.ID).
		Str("path", staged.Path).
		Str("contentType", staged.ContentType).
		Int64("size", staged.Size).
		Msg("file staged")

	t.advance(StateEncoding)
	f, err := s.stager.open(staged)
	if err != nil {
		staged.release()
		s.reject(t, Outcome{}, &Error{Kind: KindLocalIO, Op: t.Operation, Err: err}, msgReadFailed+err.Error())
		return
	}

	tracker := config.NewProgressTracker(staged.Name, staged.Size, s.progress)
	var payload io.Reader = utils.NewThrottledReader(ctx, f, s.conf.Upload.RateLimitKBps)
	payload = io.TeeReader(payload, tracker)

	body, err := EncodeMultipart(FieldAPKFile, FilePayload{
		Name:        staged.Name,
		ContentType: staged.ContentType,
		Size:        staged.Size,
		Body:        struct {
			io.Reader
			io.Closer
		}{payload, f},
	})
	if err != nil {
		_ = f.Close()
		staged.release()
		s.reject(t, Outcome{}, &Error{Kind: KindLocalIO, Op: t.Operation, Err: err}, msgReadFailed+err.Error())
		return
	}

	s.execute(ctx, t, Request{
		Method: http.MethodPost,
		URL:    s.conf.Core.SubmitURL,
		Body:   body,
	}, s.conf.Timeouts.Upload, func(out Outcome) {
		tracker.Done()
		// the staged copy stays on disk, only the path is released
		staged.release()
		if out.Kind == OutcomeSuccess {
			s.metrics.addUploadBytes(staged.Size)
		}
		s.finish(t, out, msgUploaded, nil, nil)
	})
}

// isNil also catches a typed nil behind the interface.
func isNil(src ContentSource) bool {
	if src == nil {
		return true
	}
	v := reflect.ValueOf(src)
	return v.Kind() == reflect.Ptr && v.IsNil()
}

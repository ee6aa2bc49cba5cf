// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/go-git/go-billy/v5/util"
	"github.com/scc-digitalhub/apkclient-sdk/sdk/utils"
)

// FetchReport downloads the generated report into the report directory.
// The body lands in a temp file that replaces the report only once fully
// received; on any failure no partial report is left behind. After the
// success notification the viewer is asked to open the report.
func (s *TransferService) FetchReport(ctx context.Context) (*Transfer, error) {
	if s.isClosed() {
		return nil, ErrServiceClosed
	}
	t := newTransfer(OpFetchReport)
	t.advance(StateValidating)
	t.advance(StateEncoding)

	// scritti solo dal worker che esegue la richiesta
	var (
		tmpName  string
		size     int64
		localErr error
	)
	consume := func(r io.Reader) error {
		tmp, err := util.TempFile(s.reportFS, ".", "report-")
		if err != nil {
			localErr = fmt.Errorf("create temp file: %w", err)
			return localErr
		}
		tmpName = tmp.Name()

		src := &recordingReader{r: r}
		n, err := utils.CopyStream(tmp, src)
		size = n
		if err != nil {
			if src.err == nil {
				localErr = err
			}
			return err
		}
		return nil
	}

	s.execute(ctx, t, Request{
		Method:  http.MethodGet,
		URL:     s.conf.Core.ReportURL,
		Consume: consume,
	}, s.conf.Timeouts.Fetch, func(out Outcome) {
		if out.Kind != OutcomeSuccess || localErr != nil {
			s.discard(tmpName)
			if localErr != nil {
				err := &Error{Kind: KindLocalIO, Op: t.Operation, Err: localErr}
				s.reject(t, out, err, "Failed: "+localErr.Error())
				return
			}
			s.finish(t, out, "", nil, nil)
			return
		}

		artifact, err := s.publishReport(tmpName, size)
		if err != nil {
			s.discard(tmpName)
			s.reject(t, out, &Error{Kind: KindLocalIO, Op: t.Operation, Err: err}, "Failed: "+err.Error())
			return
		}
		s.finish(t, out, msgReportFetched, artifact, func() *Error {
			return s.present(artifact)
		})
		s.archive(ctx, t, artifact)
	})
	return t, nil
}

// publishReport moves the temp file over the report path while holding the
// report lock.
func (s *TransferService) publishReport(tmpName string, size int64) (*ReportArtifact, error) {
	name := s.conf.Storage.ReportName
	unlock := s.reports.lock(name)
	defer unlock()

	// on disk the rename replaces the old report in one step
	if err := s.reportFS.Rename(tmpName, name); err != nil {
		// some filesystems refuse an existing target: drop it and retry
		if !s.exists(tmpName) || !s.exists(name) {
			return nil, fmt.Errorf("save report: %w", err)
		}
		if err := s.reportFS.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("replace report: %w", err)
		}
		if err := s.reportFS.Rename(tmpName, name); err != nil {
			return nil, fmt.Errorf("save report: %w", err)
		}
	}
	return &ReportArtifact{
		Path:     s.reportFS.Join(s.reportFS.Root(), name),
		Size:     size,
		MimeType: MimePDF,
	}, nil
}

func (s *TransferService) exists(name string) bool {
	_, err := s.reportFS.Stat(name)
	return err == nil
}

func (s *TransferService) discard(tmpName string) {
	if tmpName == "" {
		return
	}
	if err := s.reportFS.Remove(tmpName); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.log.Warn().Err(err).Str("file", tmpName).Msg("failed to remove temp report")
	}
}

// present runs on the dispatcher goroutine.
func (s *TransferService) present(artifact *ReportArtifact) *Error {
	if s.viewer == nil {
		return &Error{Kind: KindPresentation, Op: OpFetchReport, Err: ErrNoViewer}
	}
	if err := s.viewer.Open(artifact.Path, artifact.MimeType); err != nil {
		return &Error{Kind: KindPresentation, Op: OpFetchReport, Err: fmt.Errorf("%w: %v", ErrNoViewer, err)}
	}
	return nil
}

// archive copies the report to the archiver, if any. Failures are only
// logged: the transfer already succeeded.
func (s *TransferService) archive(ctx context.Context, t *Transfer, artifact *ReportArtifact) {
	if s.archiver == nil {
		return
	}
	name := s.conf.Storage.ReportName
	unlock := s.reports.lock(name)
	defer unlock()

	f, err := s.reportFS.Open(name)
	if err != nil {
		s.log.Warn().Err(err).Str("id", t.ID).Msg("report archive skipped")
		return
	}
	defer f.Close()

	res, err := s.archiver.ArchiveReport(ctx, utils.ReportObjectKey(name), f, artifact.Size, artifact.MimeType)
	if err != nil {
		s.log.Warn().Err(err).Str("id", t.ID).Msg("report archive failed")
		return
	}
	s.log.Info().Str("id", t.ID).Interface("object", res).Msg("report archived")
}

// recordingReader remembers the first read error other than io.EOF, so a
// failed copy can be blamed on the network or on the local disk.
type recordingReader struct {
	r   io.Reader
	err error
}

func (rr *recordingReader) Read(p []byte) (int, error) {
	n, err := rr.r.Read(p)
	if err != nil && err != io.EOF && rr.err == nil {
		rr.err = err
	}
	return n, err
}

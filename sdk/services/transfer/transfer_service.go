// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/scc-digitalhub/apkclient-sdk/sdk/config"
	"github.com/sourcegraph/conc/pool"
)

var ErrServiceClosed = errors.New("transfer service closed")

// User-facing status lines.
const (
	msgNameSent      = "App name sent successfully"
	msgLinkSent      = "App link sent successfully"
	msgUploaded      = "APK uploaded successfully"
	msgReportFetched = "PDF downloaded successfully!"

	msgEnterName   = "Enter app name"
	msgEnterLink   = "Enter app link"
	msgSelectFile  = "Select APK first"
	msgReadFailed  = "Error reading file: "
	msgNoPDFViewer = "No PDF viewer found!"
)

// ReportArchiver keeps a copy of every fetched report. *config.S3Client
// implements it.
type ReportArchiver interface {
	ArchiveReport(ctx context.Context, key string, body io.Reader, size int64, contentType string) (map[string]interface{}, error)
}

type TransferService struct {
	conf     config.Config
	http     config.CoreHTTP
	exec     *Executor
	staging  *pool.Pool
	stager   *stager
	reportFS billy.Filesystem
	reports  *pathLocks
	archiver ReportArchiver
	metrics  *Metrics
	progress *config.ProgressHook
	log      zerolog.Logger

	ui       Dispatcher
	notifier Notifier
	viewer   Viewer

	mu     sync.Mutex
	closed bool
}

type options struct {
	log      zerolog.Logger
	http     config.CoreHTTP
	cacheFS  billy.Filesystem
	reportFS billy.Filesystem
	registry prometheus.Registerer
	archiver ReportArchiver
	progress *config.ProgressHook
}

type Option func(*options)

func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithHTTPCore replaces the HTTP layer built from the core config.
func WithHTTPCore(h config.CoreHTTP) Option {
	return func(o *options) { o.http = h }
}

// WithCacheFS sets where uploads are staged. Defaults to the cache dir on disk.
func WithCacheFS(fs billy.Filesystem) Option {
	return func(o *options) { o.cacheFS = fs }
}

// WithReportFS sets where fetched reports are written. Defaults to the report dir on disk.
func WithReportFS(fs billy.Filesystem) Option {
	return func(o *options) { o.reportFS = fs }
}

func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) { o.registry = reg }
}

// WithArchiver replaces the S3 archiver built from the S3 config.
func WithArchiver(a ReportArchiver) Option {
	return func(o *options) { o.archiver = a }
}

func WithProgress(hook *config.ProgressHook) Option {
	return func(o *options) { o.progress = hook }
}

// NewTransferService wires the transfer engine. ui runs every notifier and
// viewer call; notifier and viewer may be nil.
func NewTransferService(ctx context.Context, conf config.Config, ui Dispatcher, notifier Notifier, viewer Viewer, opts ...Option) (*TransferService, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	if ui == nil {
		return nil, errors.New("missing dispatcher")
	}
	if conf.Storage.ReportName == "" {
		conf.Storage.ReportName = config.DefaultReportName
	}

	o := options{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	if o.http == nil {
		o.http = config.NewHTTPCore(conf.Core)
	}
	if o.cacheFS == nil {
		if conf.Storage.CacheDir == "" {
			return nil, errors.New("missing cache dir")
		}
		o.cacheFS = osfs.New(conf.Storage.CacheDir)
	}
	if o.reportFS == nil {
		dir, err := filepath.Abs(conf.Storage.ReportDir)
		if err != nil {
			return nil, fmt.Errorf("report dir: %w", err)
		}
		o.reportFS = osfs.New(dir)
	}
	if o.archiver == nil && conf.S3.Bucket != "" {
		s3c, err := config.NewS3Client(ctx, conf.S3)
		if err != nil {
			return nil, fmt.Errorf("S3 init failed: %w", err)
		}
		o.archiver = s3c
	}

	metrics := NewMetrics(o.registry)
	return &TransferService{
		conf:    conf,
		http:    o.http,
		exec:    NewExecutor(o.http, o.log, metrics),
		staging: pool.New(),
		stager: &stager{
			fs:    o.cacheFS,
			locks: newPathLocks(),
			hook:  o.progress,
		},
		reportFS: o.reportFS,
		reports:  newPathLocks(),
		archiver: o.archiver,
		metrics:  metrics,
		progress: o.progress,
		log:      o.log,
		ui:       ui,
		notifier: notifier,
		viewer:   viewer,
	}, nil
}

// Close rejects new operations and waits for running ones to deliver
// their outcome to the dispatcher.
func (s *TransferService) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.staging.Wait()
	s.exec.Close()
	s.http.CloseIdleConnections()
}

// goStaging runs fn on the staging pool unless the service is closed.
func (s *TransferService) goStaging(fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.staging.Go(fn)
	return true
}

func (s *TransferService) execute(ctx context.Context, t *Transfer, req Request, policy config.TimeoutPolicy, onComplete func(Outcome)) {
	req.ID = t.ID
	t.advance(StateInFlight)
	s.exec.Execute(ctx, t.Operation, req, policy, onComplete)
}

func (s *TransferService) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// reject ends a transfer that failed on the local side: one failure
// notification, then completion. out is empty when the network was never
// reached.
func (s *TransferService) reject(t *Transfer, out Outcome, err *Error, msg string) {
	if out.Kind == OutcomeNone {
		// calls that reached the executor are already counted there
		s.metrics.countLocal(t.Operation, err.Kind)
	}
	s.log.Warn().
		Str("id", t.ID).
		Str("op", string(t.Operation)).
		Str("kind", string(err.Kind)).
		Err(err.Err).
		Msg("transfer rejected locally")
	s.ui.Post(func() {
		s.notify(t, LevelFailure, msg, err)
		t.complete(out, err, nil)
	})
}

// finish hands a network outcome to the dispatcher. On success present,
// when set, runs right after the success notification.
func (s *TransferService) finish(t *Transfer, out Outcome, okMsg string, artifact *ReportArtifact, present func() *Error) {
	err := out.AsError(t.Operation)
	s.ui.Post(func() {
		if err != nil {
			s.notify(t, LevelFailure, failureMessage(out), err)
			t.complete(out, err, nil)
			return
		}
		s.notify(t, LevelSuccess, okMsg, nil)
		var perr error
		if present != nil {
			if pe := present(); pe != nil {
				s.notify(t, LevelFailure, msgNoPDFViewer, pe)
				perr = pe
			}
		}
		t.complete(out, perr, artifact)
	})
}

func (s *TransferService) notify(t *Transfer, level Level, msg string, err error) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(Notification{
		TransferID: t.ID,
		Operation:  t.Operation,
		Level:      level,
		Message:    msg,
		Err:        err,
	})
}

func failureMessage(out Outcome) string {
	if out.Kind == OutcomeServerRejected {
		return fmt.Sprintf("Server error: %d", out.StatusCode)
	}
	return "Failed: " + out.Reason
}

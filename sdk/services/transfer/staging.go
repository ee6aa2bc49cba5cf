// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package transfer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-git/go-billy/v5"
	"github.com/scc-digitalhub/apkclient-sdk/sdk/config"
	"github.com/scc-digitalhub/apkclient-sdk/sdk/utils"
)

// DefaultDisplayName is used when a source cannot tell its own name.
const DefaultDisplayName = "file.apk"

// FileSource is a ContentSource over a local file.
type FileSource struct {
	Path string
	// Type overrides content type detection when set.
	Type string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

func (f *FileSource) DisplayName() string {
	return filepath.Base(f.Path)
}

func (f *FileSource) ContentType() string {
	return f.Type
}

func (f *FileSource) Open() (io.ReadCloser, error) {
	return os.Open(f.Path)
}

// pathLocks hands out one mutex per path. Entries are dropped when their
// last holder unlocks.
type pathLocks struct {
	mu    sync.Mutex
	locks map[string]*pathLock
}

type pathLock struct {
	mu   sync.Mutex
	refs int
}

func newPathLocks() *pathLocks {
	return &pathLocks{locks: map[string]*pathLock{}}
}

// lock blocks until path is free and returns the matching unlock.
func (p *pathLocks) lock(path string) func() {
	p.mu.Lock()
	l, ok := p.locks[path]
	if !ok {
		l = &pathLock{}
		p.locks[path] = l
	}
	l.refs++
	p.mu.Unlock()

	l.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Unlock()
			p.mu.Lock()
			l.refs--
			if l.refs == 0 {
				delete(p.locks, path)
			}
			p.mu.Unlock()
		})
	}
}

// stagedFile is a local copy of a content source, ready to be sent.
type stagedFile struct {
	Name        string
	Path        string
	ContentType string
	Size        int64
	release     func()
}

type stager struct {
	fs    billy.Filesystem
	locks *pathLocks
	hook  *config.ProgressHook
}

// stage copies src into the cache filesystem under its display name. The
// returned file keeps the path locked until release is called; on error
// nothing stays locked.
func (s *stager) stage(src ContentSource) (*stagedFile, error) {
	name := sanitizeName(src.DisplayName())

	unlock := s.locks.lock(name)
	staged, err := s.copyIn(src, name)
	if err != nil {
		unlock()
		return nil, err
	}
	staged.release = unlock
	return staged, nil
}

func (s *stager) copyIn(src ContentSource, name string) (*stagedFile, error) {
	in, err := src.Open()
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	// billy creates missing parent dirs
	out, err := s.fs.Create(name)
	if err != nil {
		return nil, fmt.Errorf("create staged file: %w", err)
	}

	tracker := config.NewProgressTracker("staging "+name, -1, s.hook)
	n, err := utils.CopyStream(out, io.TeeReader(in, tracker))
	tracker.Done()
	if err != nil {
		_ = s.fs.Remove(name)
		return nil, err
	}

	return &stagedFile{
		Name:        name,
		Path:        s.fs.Join(s.fs.Root(), name),
		ContentType: s.resolveContentType(src.ContentType(), name),
		Size:        n,
	}, nil
}

// resolveContentType prefers the declared type, then sniffs the staged
// bytes. An APK is a zip archive, so a zip with the .apk extension counts.
func (s *stager) resolveContentType(declared, name string) string {
	if declared = strings.TrimSpace(declared); declared != "" {
		return declared
	}
	f, err := s.fs.Open(name)
	if err != nil {
		return MimeOctetStream
	}
	defer f.Close()

	detected, err := mimetype.DetectReader(f)
	if err != nil {
		return MimeOctetStream
	}
	if detected.Is(MimeAPK) {
		return MimeAPK
	}
	for m := detected; m != nil; m = m.Parent() {
		if m.Is("application/zip") && strings.EqualFold(filepath.Ext(name), ".apk") {
			return MimeAPK
		}
	}
	return MimeOctetStream
}

func (s *stager) open(staged *stagedFile) (billy.File, error) {
	return s.fs.Open(staged.Name)
}

func sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultDisplayName
	}
	name = filepath.Base(filepath.Clean("/" + name))
	if name == "/" || name == "." || name == ".." {
		return DefaultDisplayName
	}
	return name
}

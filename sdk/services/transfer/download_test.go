// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package transfer

import (
	"errors"
	"os"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/scc-digitalhub/apkclient-sdk/sdk/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// renameFS counts removals and can refuse to rename over an existing file.
type renameFS struct {
	billy.Filesystem
	refuseExisting bool
	removes        int
}

func (fs *renameFS) Rename(from, to string) error {
	if fs.refuseExisting {
		if _, err := fs.Filesystem.Stat(to); err == nil {
			return os.ErrExist
		}
	}
	return fs.Filesystem.Rename(from, to)
}

func (fs *renameFS) Remove(name string) error {
	fs.removes++
	return fs.Filesystem.Remove(name)
}

func newPublisher(fs billy.Filesystem) *TransferService {
	return &TransferService{
		conf:     config.Config{Storage: config.StorageConfig{ReportName: "report.pdf"}},
		reportFS: fs,
		reports:  newPathLocks(),
	}
}

func TestPublishReportReplacesExisting(t *testing.T) {
	cases := []struct {
		name        string
		fs          *renameFS
		wantRemoves int
	}{
		{"disk", &renameFS{Filesystem: osfs.New(t.TempDir())}, 0},
		{"memory", &renameFS{Filesystem: memfs.New()}, 0},
		{"refuses existing target", &renameFS{Filesystem: memfs.New(), refuseExisting: true}, 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.NoError(t, util.WriteFile(tc.fs.Filesystem, "report.pdf", []byte("old"), 0o644))
			require.NoError(t, util.WriteFile(tc.fs.Filesystem, "report-1", []byte("%PDF-new"), 0o644))

			artifact, err := newPublisher(tc.fs).publishReport("report-1", 8)
			require.NoError(t, err)
			assert.Equal(t, int64(8), artifact.Size)
			assert.Equal(t, MimePDF, artifact.MimeType)

			got, err := util.ReadFile(tc.fs.Filesystem, "report.pdf")
			require.NoError(t, err)
			assert.Equal(t, "%PDF-new", string(got))

			_, err = tc.fs.Filesystem.Stat("report-1")
			assert.True(t, errors.Is(err, os.ErrNotExist))
			assert.Equal(t, tc.wantRemoves, tc.fs.removes)
		})
	}
}

func TestPublishReportMissingTemp(t *testing.T) {
	fs := &renameFS{Filesystem: memfs.New()}
	require.NoError(t, util.WriteFile(fs.Filesystem, "report.pdf", []byte("old"), 0o644))

	_, err := newPublisher(fs).publishReport("report-missing", 0)
	require.Error(t, err)

	got, err := util.ReadFile(fs.Filesystem, "report.pdf")
	require.NoError(t, err)
	assert.Equal(t, "old", string(got))
}

// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/scc-digitalhub/apkclient-sdk/sdk/services/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitCode(t *testing.T) {
	cases := map[transfer.ErrorKind]int{
		transfer.KindValidation:     exitInvalidInput,
		transfer.KindTransport:      exitTransport,
		transfer.KindServerRejected: exitRejected,
		transfer.KindLocalIO:        exitLocalIO,
		transfer.KindPresentation:   exitPresentation,
	}
	for kind, code := range cases {
		assert.Equal(t, code, exitCode(&transfer.Error{Kind: kind, Op: transfer.OpUploadFile}), kind)
	}
	assert.Equal(t, exitTransport, exitCode(transfer.ErrServiceClosed))
	assert.Equal(t, exitInvalidInput, exitCode(errors.New("bad flag")))
}

func TestNewLoggerLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, newLogger("DEBUG").GetLevel())
	assert.Equal(t, zerolog.InfoLevel, newLogger("").GetLevel())
	assert.Equal(t, zerolog.InfoLevel, newLogger("chatty").GetLevel())
}

func TestConsoleNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := consoleNotifier{log: zerolog.New(&buf)}
	n.Notify(transfer.Notification{
		TransferID: "t1",
		Operation:  transfer.OpSubmitName,
		Level:      transfer.LevelFailure,
		Message:    "Server error: 500",
		Err:        errors.New("rejected"),
	})
	assert.Contains(t, buf.String(), `"level":"error"`)
	assert.Contains(t, buf.String(), `"message":"Server error: 500"`)
	assert.Contains(t, buf.String(), `"op":"submit-name"`)
}

func TestExportMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	transfer.NewMetrics(reg)
	path := filepath.Join(t.TempDir(), "apkclient.prom")

	exportMetrics(path, reg, zerolog.Nop())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "apkclient_upload_bytes_total 0")
}

func TestExportMetricsDisabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apkclient.prom")

	exportMetrics("", prometheus.NewRegistry(), zerolog.Nop())
	exportMetrics(path, nil, zerolog.Nop())

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestOpenerCommand(t *testing.T) {
	cmd, err := openerCommand("darwin", "/tmp/report.pdf")
	require.NoError(t, err)
	assert.Equal(t, []string{"open", "/tmp/report.pdf"}, cmd.Args)

	cmd, err = openerCommand("windows", `C:\report.pdf`)
	require.NoError(t, err)
	assert.Equal(t, []string{"rundll32", "url.dll,FileProtocolHandler", `C:\report.pdf`}, cmd.Args)
}

func TestStartDetachedReapsProcess(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	exited, err := startDetached(exec.Command("sh", "-c", "exit 3"))
	require.NoError(t, err)

	select {
	case err := <-exited:
		var exitErr *exec.ExitError
		require.ErrorAs(t, err, &exitErr)
		assert.Equal(t, 3, exitErr.ExitCode())
	case <-time.After(5 * time.Second):
		t.Fatal("opener process was not reaped")
	}
}

func TestStartDetachedMissingBinary(t *testing.T) {
	_, err := startDetached(exec.Command(filepath.Join(t.TempDir(), "no-such-opener")))
	assert.Error(t, err)
}

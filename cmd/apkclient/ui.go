// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/rs/zerolog"
	"github.com/scc-digitalhub/apkclient-sdk/sdk/services/transfer"
)

// consoleNotifier prints status lines through the logger.
type consoleNotifier struct {
	log zerolog.Logger
}

func (n consoleNotifier) Notify(note transfer.Notification) {
	ev := n.log.Info()
	if note.Level == transfer.LevelFailure {
		ev = n.log.Error().Err(note.Err)
	}
	ev.Str("op", string(note.Operation)).Str("id", note.TransferID).Msg(note.Message)
}

// execViewer hands the document to the desktop opener.
type execViewer struct{}

// Open only checks that the opener started: whether a viewer for mimeType
// is actually installed is up to the desktop.
func (execViewer) Open(path, mimeType string) error {
	cmd, err := openerCommand(runtime.GOOS, path)
	if err != nil {
		return fmt.Errorf("no opener for %s: %w", mimeType, err)
	}
	_, err = startDetached(cmd)
	return err
}

func openerCommand(goos, path string) (*exec.Cmd, error) {
	switch goos {
	case "darwin":
		return exec.Command("open", path), nil
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", path), nil
	}
	if _, err := exec.LookPath("xdg-open"); err != nil {
		return nil, err
	}
	return exec.Command("xdg-open", path), nil
}

// startDetached starts cmd and reaps it in the background. The channel
// receives the exit error once the process is gone.
func startDetached(cmd *exec.Cmd) (<-chan error, error) {
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	exited := make(chan error, 1)
	go func() {
		exited <- cmd.Wait()
	}()
	return exited, nil
}

// printViewer only tells where the document is.
type printViewer struct{}

func (printViewer) Open(path, _ string) error {
	_, err := fmt.Fprintln(os.Stderr, path)
	return err
}

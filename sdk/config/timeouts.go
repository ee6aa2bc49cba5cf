// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"time"
)

// TimeoutPolicy bounds the phases of a single HTTP call. A zero field means no
// limit for that phase. TotalCall, when set, bounds the whole call, the other
// three phases included.
//
// Write and Read are idle timeouts: they expire only when no bytes move on the
// connection for that long, so a slow but steady upload is never cut short.
type TimeoutPolicy struct {
	Connect   time.Duration
	Write     time.Duration
	Read      time.Duration
	TotalCall time.Duration
}

// Preset values per operation class.
//   - Field submissions are small control-plane posts: one bounded call.
//   - Uploads carry the whole package: per-phase limits, no overall bound.
//   - Report fetches are a single moderate call.
const (
	SubmitCallTimeout = 30 * time.Second

	UploadConnectTimeout = 30 * time.Second
	UploadWriteTimeout   = 120 * time.Second
	UploadReadTimeout    = 120 * time.Second

	FetchCallTimeout = 60 * time.Second
)

func SubmitPolicy() TimeoutPolicy {
	return TimeoutPolicy{TotalCall: SubmitCallTimeout}
}

func UploadPolicy() TimeoutPolicy {
	return TimeoutPolicy{
		Connect: UploadConnectTimeout,
		Write:   UploadWriteTimeout,
		Read:    UploadReadTimeout,
	}
}

func FetchPolicy() TimeoutPolicy {
	return TimeoutPolicy{TotalCall: FetchCallTimeout}
}

// TimeoutConfig assigns a policy to each operation class.
type TimeoutConfig struct {
	Submit TimeoutPolicy
	Upload TimeoutPolicy
	Fetch  TimeoutPolicy
}

func DefaultTimeouts() TimeoutConfig {
	return TimeoutConfig{
		Submit: SubmitPolicy(),
		Upload: UploadPolicy(),
		Fetch:  FetchPolicy(),
	}
}

func (tc TimeoutConfig) Validate() error {
	for name, p := range map[string]TimeoutPolicy{"submit": tc.Submit, "upload": tc.Upload, "fetch": tc.Fetch} {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("%s timeouts: %w", name, err)
		}
	}
	return nil
}

func (p TimeoutPolicy) Validate() error {
	if p.Connect < 0 || p.Write < 0 || p.Read < 0 || p.TotalCall < 0 {
		return fmt.Errorf("negative duration in %s", p)
	}
	return nil
}

// Unbounded reports whether no phase has a limit.
func (p TimeoutPolicy) Unbounded() bool {
	return p == TimeoutPolicy{}
}

func (p TimeoutPolicy) String() string {
	return fmt.Sprintf("connect=%s write=%s read=%s call=%s",
		limit(p.Connect), limit(p.Write), limit(p.Read), limit(p.TotalCall))
}

func limit(d time.Duration) string {
	if d == 0 {
		return "none"
	}
	return d.String()
}

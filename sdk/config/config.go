// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Config complessiva passata all'SDK (niente viper/INI qui)
type Config struct {
	Core     CoreConfig
	Timeouts TimeoutConfig
	Storage  StorageConfig
	Upload   UploadConfig
	S3       S3Config
}

// CoreConfig points at the analysis server.
type CoreConfig struct {
	SubmitURL         string
	ReportURL         string
	AccessToken       string
	BasicAuthUsername string
	BasicAuthPassword string
}

// StorageConfig holds the local directories used for staging uploads and
// for the fetched report.
type StorageConfig struct {
	CacheDir   string
	ReportDir  string
	ReportName string
}

type UploadConfig struct {
	// 0 disables throttling
	RateLimitKBps int
}

// S3Config enables archival of fetched reports when Bucket is set.
type S3Config struct {
	AccessKey   string
	SecretKey   string
	AccessToken string
	Region      string
	EndpointURL string
	Bucket      string
	Prefix      string
}

const DefaultReportName = "report.pdf"

// Validate checks the fields the transfer service cannot work without.
func (c Config) Validate() error {
	if c.Core.SubmitURL == "" || c.Core.ReportURL == "" {
		return errors.New("invalid core config: submit and report endpoints are required")
	}
	for name, raw := range map[string]string{"submit": c.Core.SubmitURL, "report": c.Core.ReportURL} {
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid %s endpoint: %w", name, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("invalid %s endpoint: unsupported scheme %q", name, u.Scheme)
		}
	}
	if err := c.Timeouts.Validate(); err != nil {
		return err
	}
	if c.Upload.RateLimitKBps < 0 {
		return errors.New("upload rate limit must not be negative")
	}
	return nil
}

// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package config_test

import (
	"testing"
	"time"

	"github.com/scc-digitalhub/apkclient-sdk/sdk/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresets(t *testing.T) {
	assert.Equal(t, config.TimeoutPolicy{TotalCall: 30 * time.Second}, config.SubmitPolicy())
	assert.Equal(t, config.TimeoutPolicy{
		Connect: 30 * time.Second,
		Write:   120 * time.Second,
		Read:    120 * time.Second,
	}, config.UploadPolicy())
	assert.Equal(t, config.TimeoutPolicy{TotalCall: 60 * time.Second}, config.FetchPolicy())

	// upload has no overall bound
	assert.Zero(t, config.UploadPolicy().TotalCall)
}

func TestPolicyValidate(t *testing.T) {
	require.NoError(t, config.DefaultTimeouts().Validate())
	require.NoError(t, config.TimeoutPolicy{}.Validate())

	tc := config.DefaultTimeouts()
	tc.Upload.Read = -time.Second
	err := tc.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upload")
}

func TestPolicyString(t *testing.T) {
	assert.Equal(t, "connect=none write=none read=none call=30s", config.SubmitPolicy().String())
	assert.True(t, config.TimeoutPolicy{}.Unbounded())
	assert.False(t, config.FetchPolicy().Unbounded())
}

func TestConfigValidate(t *testing.T) {
	valid := config.Config{
		Core: config.CoreConfig{
			SubmitURL: "http://10.0.2.2:5000/submit",
			ReportURL: "http://10.0.2.2:5000/get_pdf",
		},
		Timeouts: config.DefaultTimeouts(),
	}
	require.NoError(t, valid.Validate())

	missing := valid
	missing.Core.ReportURL = ""
	assert.Error(t, missing.Validate())

	badScheme := valid
	badScheme.Core.SubmitURL = "ftp://10.0.2.2/submit"
	assert.Error(t, badScheme.Validate())

	badRate := valid
	badRate.Upload.RateLimitKBps = -1
	assert.Error(t, badRate.Validate())
}

// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package utils_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/scc-digitalhub/apkclient-sdk/sdk/config"
	"github.com/scc-digitalhub/apkclient-sdk/sdk/utils"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/ini.v1"
)

func withHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	viper.Reset()
	t.Cleanup(viper.Reset)
	return home
}

func TestLoadConfigDefaults(t *testing.T) {
	withHome(t)
	t.Setenv("SUBMIT_ENDPOINT", "http://localhost:5000/submit")
	t.Setenv("REPORT_ENDPOINT", "http://localhost:5000/get_pdf")

	env, err := utils.RegisterIniCfgWithViper()
	require.NoError(t, err)
	assert.Equal(t, "default", env)

	cfg, err := utils.LoadConfig()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "http://localhost:5000/submit", cfg.Core.SubmitURL)
	assert.Equal(t, config.DefaultTimeouts(), cfg.Timeouts)
	assert.Equal(t, config.DefaultReportName, cfg.Storage.ReportName)
	assert.Equal(t, ".", cfg.Storage.ReportDir)
	assert.Equal(t, filepath.Join(os.TempDir(), "apkclient"), cfg.Storage.CacheDir)
	assert.Zero(t, cfg.Upload.RateLimitKBps)
}

func TestLoadConfigFromIniSection(t *testing.T) {
	home := withHome(t)

	f := ini.Empty()
	f.Section("DEFAULT").Key(utils.CurrentEnvironment).SetValue("lab")
	sec := f.Section("lab")
	sec.Key(utils.SubmitEndpoint).SetValue("https://lab.example.org/submit")
	sec.Key(utils.ReportEndpoint).SetValue("https://lab.example.org/get_pdf")
	sec.Key(utils.FetchTimeout).SetValue("90s")
	sec.Key(utils.UploadRateLimitKBps).SetValue("512")
	require.NoError(t, f.SaveTo(filepath.Join(home, utils.IniName)))

	env, err := utils.RegisterIniCfgWithViper()
	require.NoError(t, err)
	assert.Equal(t, "lab", env)

	cfg, err := utils.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://lab.example.org/submit", cfg.Core.SubmitURL)
	assert.Equal(t, 90*time.Second, cfg.Timeouts.Fetch.TotalCall)
	assert.Equal(t, 512, cfg.Upload.RateLimitKBps)
	// untouched keys keep their defaults
	assert.Equal(t, config.SubmitCallTimeout, cfg.Timeouts.Submit.TotalCall)
}

func TestLoadConfigRejectsBadDuration(t *testing.T) {
	withHome(t)
	t.Setenv("SUBMIT_TIMEOUT", "soon")

	_, err := utils.RegisterIniCfgWithViper()
	require.NoError(t, err)

	_, err = utils.LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), utils.SubmitTimeout)
}

func TestWriteIniFromStructPersistsOnlyMarkedKeys(t *testing.T) {
	home := withHome(t)
	t.Setenv("SUBMIT_ENDPOINT", "http://localhost:5000/submit")
	t.Setenv("LOG_LEVEL", "debug")
	utils.BindEnvFromStruct(utils.EnvDumpPrefix)

	path := filepath.Join(home, utils.IniName)
	require.NoError(t, utils.WriteIniFromStruct(path, "default"))

	f, err := ini.Load(path)
	require.NoError(t, err)
	sec := f.Section("default")
	assert.Equal(t, "http://localhost:5000/submit", sec.Key(utils.SubmitEndpoint).String())
	assert.Equal(t, "30s", sec.Key(utils.SubmitTimeout).String())
	assert.False(t, sec.HasKey(utils.LogLevel))
}

func TestRenderYAML(t *testing.T) {
	out, err := utils.Render(map[string]interface{}{"outcome": "success", "statusCode": 200}, "yml")
	require.NoError(t, err)
	assert.Contains(t, string(out), "outcome: success")
	assert.Contains(t, string(out), "statusCode: 200")
}

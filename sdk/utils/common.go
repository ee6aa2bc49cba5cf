// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/scc-digitalhub/apkclient-sdk/sdk/config"
	"github.com/spf13/viper"
	"sigs.k8s.io/yaml"
)

func GetIniPath() string {
	iniPath, err := os.UserHomeDir()
	if err != nil {
		iniPath = "."
	}
	return iniPath + string(os.PathSeparator) + IniName
}

// LoadConfig builds the SDK config from the current Viper state.
func LoadConfig() (config.Config, error) {
	var err error
	duration := func(key string) time.Duration {
		if err != nil {
			return 0
		}
		raw := strings.TrimSpace(viper.GetString(key))
		if raw == "" {
			return 0
		}
		d, perr := time.ParseDuration(raw)
		if perr != nil {
			err = fmt.Errorf("invalid %s %q: %w", key, raw, perr)
		}
		return d
	}

	cfg := config.Config{
		Core: config.CoreConfig{
			SubmitURL:         viper.GetString(SubmitEndpoint),
			ReportURL:         viper.GetString(ReportEndpoint),
			AccessToken:       viper.GetString(AccessToken),
			BasicAuthUsername: viper.GetString(BasicAuthUser),
			BasicAuthPassword: viper.GetString(BasicAuthPassword),
		},
		Timeouts: config.TimeoutConfig{
			Submit: config.TimeoutPolicy{TotalCall: duration(SubmitTimeout)},
			Upload: config.TimeoutPolicy{
				Connect:   duration(UploadConnectTimeout),
				Write:     duration(UploadWriteTimeout),
				Read:      duration(UploadReadTimeout),
				TotalCall: duration(UploadTimeout),
			},
			Fetch: config.TimeoutPolicy{TotalCall: duration(FetchTimeout)},
		},
		Storage: config.StorageConfig{
			CacheDir:   viper.GetString(CacheDir),
			ReportDir:  viper.GetString(ReportDir),
			ReportName: viper.GetString(ReportName),
		},
		Upload: config.UploadConfig{
			RateLimitKBps: viper.GetInt(UploadRateLimitKBps),
		},
		S3: config.S3Config{
			AccessKey:   viper.GetString(AwsAccessKeyID),
			SecretKey:   viper.GetString(AwsSecretAccessKey),
			AccessToken: viper.GetString(AwsSessionToken),
			Region:      viper.GetString(AwsRegion),
			EndpointURL: viper.GetString(AwsEndpointURL),
			Bucket:      viper.GetString(S3Bucket),
			Prefix:      viper.GetString(S3Prefix),
		},
	}
	if err != nil {
		return config.Config{}, err
	}
	if cfg.Storage.CacheDir == "" {
		cfg.Storage.CacheDir = filepath.Join(os.TempDir(), "apkclient")
	}
	if cfg.Storage.ReportDir == "" {
		cfg.Storage.ReportDir = "."
	}
	if cfg.Storage.ReportName == "" {
		cfg.Storage.ReportName = config.DefaultReportName
	}
	return cfg, nil
}

func TranslateFormat(format string) string {
	switch strings.ToLower(format) {
	case "json":
		return "json"
	case "yaml", "yml":
		return "yaml"
	default:
		return "short"
	}
}

// Render serializes v as indented JSON or YAML. The short format is left to
// the caller and renders as JSON here.
func Render(v interface{}, format string) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal: %w", err)
	}
	if TranslateFormat(format) == "yaml" {
		out, err := yaml.JSONToYAML(b)
		if err != nil {
			return nil, fmt.Errorf("json to yaml failed: %w", err)
		}
		return out, nil
	}
	return []byte(PrettyJSON(b)), nil
}

func PrettyJSON(b []byte) string {
	var out bytes.Buffer
	if err := json.Indent(&out, b, "", "  "); err != nil {
		return string(b) // fallback non indentato
	}
	return out.String()
}

// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"bytes"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/ini.v1"
)

// EnvDumpPrefix: APKCLIENT_FOO is mirrored to FOO when FOO is unset
const EnvDumpPrefix = "APKCLIENT"

// Config holds all logical keys. Tags:
// - vkey: Viper key
// - env: canonical env name (UPPER_SNAKE). If empty, derived from vkey
// - persist: "true" to write the key into the INI
// - default: optional default to set if key is unset
// - secret: "true" if sensitive
// - bind: "false" to NOT bind from env (we still can set defaults)
type Config struct {
	SubmitEndpoint      string `vkey:"submit_endpoint"        env:"SUBMIT_ENDPOINT"        persist:"true"`
	ReportEndpoint      string `vkey:"report_endpoint"        env:"REPORT_ENDPOINT"        persist:"true"`
	AccessToken         string `vkey:"access_token"           env:"ACCESS_TOKEN"           persist:"true"  secret:"true"`
	BasicAuthUsername   string `vkey:"basic_auth_username"    env:"BASIC_AUTH_USERNAME"    persist:"true"`
	BasicAuthPassword   string `vkey:"basic_auth_password"    env:"BASIC_AUTH_PASSWORD"    persist:"true"  secret:"true"`
	SubmitTimeout       string `vkey:"submit_timeout"         env:"SUBMIT_TIMEOUT"         persist:"true"  default:"30s"`
	UploadConnect       string `vkey:"upload_connect_timeout" env:"UPLOAD_CONNECT_TIMEOUT" persist:"true"  default:"30s"`
	UploadWrite         string `vkey:"upload_write_timeout"   env:"UPLOAD_WRITE_TIMEOUT"   persist:"true"  default:"2m"`
	UploadRead          string `vkey:"upload_read_timeout"    env:"UPLOAD_READ_TIMEOUT"    persist:"true"  default:"2m"`
	UploadTimeout       string `vkey:"upload_timeout"         env:"UPLOAD_TIMEOUT"         persist:"true"  default:"0s"`
	FetchTimeout        string `vkey:"fetch_timeout"          env:"FETCH_TIMEOUT"          persist:"true"  default:"60s"`
	CacheDir            string `vkey:"cache_dir"              env:"CACHE_DIR"              persist:"true"`
	ReportDir           string `vkey:"report_dir"             env:"REPORT_DIR"             persist:"true"`
	ReportName          string `vkey:"report_name"            env:"REPORT_NAME"            persist:"true"  default:"report.pdf"`
	UploadRateLimitKBps string `vkey:"upload_rate_limit_kbps" env:"UPLOAD_RATE_LIMIT_KBPS" persist:"true"  default:"0"`
	AwsAccessKeyID      string `vkey:"aws_access_key_id"      env:"AWS_ACCESS_KEY_ID"      persist:"true"  secret:"true"`
	AwsSecretAccessKey  string `vkey:"aws_secret_access_key"  env:"AWS_SECRET_ACCESS_KEY"  persist:"true"  secret:"true"`
	AwsSessionToken     string `vkey:"aws_session_token"      env:"AWS_SESSION_TOKEN"      persist:"true"  secret:"true"`
	AwsRegion           string `vkey:"aws_region"             env:"AWS_REGION"             persist:"true"`
	AwsEndpointURL      string `vkey:"aws_endpoint_url"       env:"AWS_ENDPOINT_URL"       persist:"true"`
	S3Bucket            string `vkey:"s3_bucket"              env:"S3_BUCKET"              persist:"true"`
	S3Prefix            string `vkey:"s3_prefix"              env:"S3_PREFIX"              persist:"true"`
	LogLevel            string `vkey:"log_level"              env:"LOG_LEVEL"              persist:"false" default:"info"`
	UpdatedEnvironment  string `vkey:"updated_environment"    env:"UPDATED_ENVIRONMENT"    persist:"true"  bind:"false"`
	CurrentEnvironment  string `vkey:"current_environment"    env:"CURRENT_ENVIRONMENT"    persist:"false"`
}

// resolveEnvName: --env > "default"
func resolveEnvName(optionalEnv ...string) string {
	if len(optionalEnv) > 0 && optionalEnv[0] != "" && strings.ToLower(optionalEnv[0]) != "null" {
		return optionalEnv[0]
	}
	return "default"
}

// mirror PREFIX_FOO -> FOO (optional)
func mirrorPrefix(prefix string) {
	if prefix == "" {
		return
	}
	upPrefix := strings.ToUpper(prefix) + "_"
	for _, e := range os.Environ() {
		kv := strings.SplitN(e, "=", 2)
		if len(kv) != 2 {
			continue
		}
		name, val := kv[0], kv[1]
		if strings.HasPrefix(name, upPrefix) {
			unpref := strings.TrimPrefix(name, upPrefix)
			if os.Getenv(unpref) == "" {
				_ = os.Setenv(unpref, val)
			}
		}
	}
}

// Bind env for all fields of Config using struct tags.
func BindEnvFromStruct(prefix string) {
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	mirrorPrefix(prefix)

	rt := reflect.TypeOf(Config{})
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)

		key := f.Tag.Get("vkey")
		if key == "" {
			continue
		}

		if def := f.Tag.Get("default"); def != "" {
			viper.SetDefault(key, def)
		}

		// if false not to bind
		if f.Tag.Get("bind") == "false" {
			continue
		}

		env := f.Tag.Get("env")
		if env == "" {
			env = strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		}
		_ = viper.BindEnv(key, env)
	}
}

// Write a new INI with only fields marked persist:"true".
func WriteIniFromStruct(iniPath, envName string) error {
	cfg := ini.Empty()
	cfg.Section("DEFAULT").Key(CurrentEnvironment).SetValue(envName)
	fillSection(cfg.Section(envName))
	return cfg.SaveTo(iniPath)
}

// Update or create INI section from current Viper values (persist:"true" only).
func UpdateIniFromStruct(iniPath, envName string) error {
	cfg, err := ini.Load(iniPath)
	if err != nil {
		return WriteIniFromStruct(iniPath, envName)
	}
	sec := cfg.Section(envName)
	fillSection(sec)

	if !cfg.Section("DEFAULT").HasKey(CurrentEnvironment) {
		cfg.Section("DEFAULT").Key(CurrentEnvironment).SetValue(envName)
	}
	sec.Key(UpdatedEnvKey).SetValue(time.Now().UTC().Format(time.RFC3339))
	return cfg.SaveTo(iniPath)
}

func fillSection(sec *ini.Section) {
	rt := reflect.TypeOf(Config{})
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if f.Tag.Get("persist") != "true" {
			continue
		}
		key := f.Tag.Get("vkey")
		if key == "" {
			continue
		}
		val := viper.GetString(key)
		if val == "" {
			continue
		}
		sec.Key(key).SetValue(val)
	}
}

// Load [DEFAULT] + [env] into Viper (TOML in-memory). ENV can still override on Get().
func loadIniSectionIntoViper(cfg *ini.File, env string) error {
	def := cfg.Section("DEFAULT")
	selected := def
	if env != "" && cfg.HasSection(env) {
		selected = cfg.Section(env)
	}

	merged := make(map[string]string)
	for _, k := range def.Keys() {
		merged[k.Name()] = k.Value()
	}
	if selected != def {
		for _, k := range selected.Keys() {
			merged[k.Name()] = k.Value()
		}
	}

	var buf bytes.Buffer
	for k, v := range merged {
		vSafe := strings.ReplaceAll(strings.ReplaceAll(v, `\`, `\\`), `"`, `\"`)
		_, _ = fmt.Fprintf(&buf, "%s = \"%s\"\n", k, vSafe)
	}
	viper.SetConfigType("toml")
	return viper.ReadConfig(&buf)
}

// RegisterIniCfgWithViper:
// 1) bind ENV from struct (live)
// 2) load INI if present, otherwise run on ENV only
// 3) load active section into Viper and set current_environment
// It returns the active environment name.
func RegisterIniCfgWithViper(optionalEnv ...string) (string, error) {
	BindEnvFromStruct(EnvDumpPrefix)

	cfg, err := ini.Load(GetIniPath())
	if err != nil {
		env := resolveEnvName(optionalEnv...)
		viper.Set(CurrentEnvironment, env)
		return env, nil
	}

	// active env: --env > DEFAULT.current_environment > default
	env := resolveEnvName(optionalEnv...)
	if env == "default" {
		if v := cfg.Section("DEFAULT").Key(CurrentEnvironment).String(); v != "" {
			env = v
		}
	}

	if err := loadIniSectionIntoViper(cfg, env); err != nil {
		return env, fmt.Errorf("failed to load INI into viper: %w", err)
	}
	viper.Set(CurrentEnvironment, env)
	return env, nil
}

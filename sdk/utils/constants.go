// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package utils

const (
	IniName            = ".apkclient.ini"
	CurrentEnvironment = "current_environment"
	UpdatedEnvKey      = "updated_environment"

	SubmitEndpoint    = "submit_endpoint"
	ReportEndpoint    = "report_endpoint"
	AccessToken       = "access_token"
	BasicAuthUser     = "basic_auth_username"
	BasicAuthPassword = "basic_auth_password"

	SubmitTimeout        = "submit_timeout"
	UploadConnectTimeout = "upload_connect_timeout"
	UploadWriteTimeout   = "upload_write_timeout"
	UploadReadTimeout    = "upload_read_timeout"
	UploadTimeout        = "upload_timeout"
	FetchTimeout         = "fetch_timeout"

	CacheDir            = "cache_dir"
	ReportDir           = "report_dir"
	ReportName          = "report_name"
	UploadRateLimitKBps = "upload_rate_limit_kbps"

	AwsAccessKeyID     = "aws_access_key_id"
	AwsSecretAccessKey = "aws_secret_access_key"
	AwsSessionToken    = "aws_session_token"
	AwsRegion          = "aws_region"
	AwsEndpointURL     = "aws_endpoint_url"
	S3Bucket           = "s3_bucket"
	S3Prefix           = "s3_prefix"

	LogLevel = "log_level"
)

// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// oltre questa soglia si passa al multipart uploader
const multipartThreshold = 100 * 1024 * 1024

// S3Client archives fetched reports into a bucket.
type S3Client struct {
	s3     *s3.Client
	bucket string
	prefix string
}

func NewS3Client(ctx context.Context, cfgCreds S3Config) (*S3Client, error) {
	if cfgCreds.Bucket == "" {
		return nil, errors.New("missing S3 bucket")
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfgCreds.Region)}
	if cfgCreds.AccessKey != "" {
		creds := aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
			cfgCreds.AccessKey,
			cfgCreds.SecretKey,
			cfgCreds.AccessToken,
		))
		opts = append(opts, config.WithCredentialsProvider(creds))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Options := func(o *s3.Options) {
		if cfgCreds.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfgCreds.EndpointURL)
			o.UsePathStyle = true // necessario per molti S3-compat
		}
	}

	return &S3Client{
		s3:     s3.NewFromConfig(cfg, s3Options),
		bucket: cfgCreds.Bucket,
		prefix: strings.Trim(cfgCreds.Prefix, "/"),
	}, nil
}

// ObjectKey joins the configured prefix and key.
func (c *S3Client) ObjectKey(key string) string {
	if c.prefix == "" {
		return strings.TrimPrefix(key, "/")
	}
	return path.Join(c.prefix, key)
}

// ArchiveReport stores body under the prefixed key. Bodies larger than the
// multipart threshold go through the managed uploader.
func (c *S3Client) ArchiveReport(ctx context.Context, key string, body io.Reader, size int64, contentType string) (map[string]interface{}, error) {
	objectKey := c.ObjectKey(key)

	if size > multipartThreshold {
		out, err := manager.NewUploader(c.s3).Upload(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(c.bucket),
			Key:         aws.String(objectKey),
			Body:        body,
			ContentType: aws.String(contentType),
		})
		if err != nil {
			return nil, fmt.Errorf("multipart upload of s3://%s/%s failed: %w", c.bucket, objectKey, err)
		}
		return normalizeUploadResult(c.bucket, objectKey, out), nil
	}

	out, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(objectKey),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("upload of s3://%s/%s failed: %w", c.bucket, objectKey, err)
	}
	return normalizeUploadResult(c.bucket, objectKey, out), nil
}

func normalizeUploadResult(bucket, key string, output interface{}) map[string]interface{} {
	result := map[string]interface{}{
		"path": fmt.Sprintf("s3://%s/%s", bucket, key),
	}
	switch v := output.(type) {
	case *s3.PutObjectOutput:
		if v.ETag != nil {
			result["etag"] = *v.ETag
		}
		if v.VersionId != nil {
			result["version_id"] = *v.VersionId
		}
	case *manager.UploadOutput:
		result["location"] = v.Location
		result["upload_id"] = v.UploadID
	}
	return result
}

// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Options configures an S3 compatible store. An empty Endpoint targets AWS;
// anything else (MinIO, Spaces, R2) is addressed path style.
type S3Options struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

// S3 stores blobs in an S3 compatible bucket.
type S3 struct {
	client *s3.Client
	opts   S3Options
}

// NewS3 creates the S3 backend. Static credentials are used when both keys
// are set, otherwise the default AWS credential chain.
//
// Inputs:
//   - ctx: Used to load the AWS configuration.
//   - opts: Bucket, region, optional endpoint and keys.
//
// Outputs:
//   - *S3: The backend.
//   - error: When the AWS configuration cannot be loaded.
func NewS3(ctx context.Context, opts S3Options) (*S3, error) {
	loaders := []func(*config.LoadOptions) error{config.WithRegion(opts.Region)}
	if opts.AccessKey != "" {
		loaders = append(loaders, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3{client: client, opts: opts}, nil
}

// Download accepts s3://bucket/key or a key in the configured bucket.
func (s *S3) Download(ctx context.Context, sourceID string, dst string) error {
	bucket, key, ok := splitURI("s3", sourceID)
	if !ok {
		bucket, key = s.opts.Bucket, sourceID
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to get s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	written, err := copyToFile(dst, out.Body)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "downloaded source", "uri", "s3://"+bucket+"/"+key, "path", dst, "bytes", written)
	return nil
}

// Upload puts src under folder and reports the object URL.
func (s *S3) Upload(ctx context.Context, src string, folder string, mimeType string) (*Object, error) {
	f, err := os.Open(src)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", src, err)
	}
	defer f.Close()

	key := ObjectName(folder, src)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.opts.Bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(mimeType),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to put s3://%s/%s: %w", s.opts.Bucket, key, err)
	}
	return &Object{ID: key, URL: s.objectURL(key)}, nil
}

func (s *S3) objectURL(key string) string {
	if s.opts.Endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimRight(s.opts.Endpoint, "/"), s.opts.Bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.opts.Bucket, s.opts.Region, key)
}

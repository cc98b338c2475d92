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
	"io"
	"log/slog"
	"os"

	"cloud.google.com/go/storage"
)

// GCSPublicURLFormat builds the public address of an object.
const GCSPublicURLFormat = "https://storage.googleapis.com/%s/%s"

// GCS reads sources from Cloud Storage and writes clips to the output bucket.
// A source is either a gs://bucket/object URI or an object in the input bucket.
type GCS struct {
	client       *storage.Client
	inputBucket  string
	outputBucket string
}

// NewGCS creates the Cloud Storage backend.
//
// Inputs:
//   - client: The storage client.
//   - inputBucket: Bucket searched for source ids that are bare object names.
//   - outputBucket: Bucket that receives the clips.
//
// Outputs:
//   - *GCS: The backend.
func NewGCS(client *storage.Client, inputBucket, outputBucket string) *GCS {
	return &GCS{client: client, inputBucket: inputBucket, outputBucket: outputBucket}
}

// Download copies gs://bucket/object, or an object of the input bucket, to dst.
func (g *GCS) Download(ctx context.Context, sourceID string, dst string) error {
	bucket, name, ok := splitURI("gs", sourceID)
	if !ok {
		bucket, name = g.inputBucket, sourceID
	}
	reader, err := g.client.Bucket(bucket).Object(name).NewReader(ctx)
	if err != nil {
		return fmt.Errorf("failed to create GCS reader for gs://%s/%s: %w", bucket, name, err)
	}
	defer func(reader *storage.Reader) {
		if err := reader.Close(); err != nil {
			slog.Warn("failed to close GCS reader", "error", err)
		}
	}(reader)

	written, err := copyToFile(dst, reader)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "downloaded source", "uri", fmt.Sprintf("gs://%s/%s", bucket, name), "path", dst, "bytes", written)
	return nil
}

// Upload writes src under folder in the output bucket with the given content type.
func (g *GCS) Upload(ctx context.Context, src string, folder string, mimeType string) (*Object, error) {
	dat, err := os.Open(src)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", src, err)
	}
	defer dat.Close()

	name := ObjectName(folder, src)
	writer := g.client.Bucket(g.outputBucket).Object(name).NewWriter(ctx)
	writer.ContentType = mimeType
	if written, err := io.Copy(writer, dat); err != nil {
		_ = writer.Close()
		return nil, fmt.Errorf("failed to copy to GCS or partial write: %d total bytes: %w", written, err)
	}
	// The object only exists once the writer is closed.
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize gs://%s/%s: %w", g.outputBucket, name, err)
	}
	return &Object{ID: name, URL: fmt.Sprintf(GCSPublicURLFormat, g.outputBucket, name)}, nil
}

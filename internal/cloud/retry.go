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

package cloud

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	retryInitialBackoff = 750 * time.Millisecond
	retryMaxBackoff     = 10 * time.Second
)

// Retryable reports whether a gRPC error is transient.
func Retryable(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.ResourceExhausted, codes.DeadlineExceeded:
		return true
	}
	return false
}

// RetryRPC calls fn until it succeeds, fails with a non transient error, or
// attempts are exhausted. The backoff doubles up to retryMaxBackoff.
func RetryRPC[T any](ctx context.Context, attempts int, fn func() (T, error)) (T, error) {
	var zero T
	var last error
	backoff := retryInitialBackoff
	for attempt := 0; attempt < max(1, attempts); attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, retryMaxBackoff)
		}
		out, err := fn()
		if err == nil {
			return out, nil
		}
		last = err
		if !Retryable(err) {
			return zero, err
		}
	}
	return zero, last
}

// StageObject copies a local file into bucket under prefix so that services
// reading gs:// URIs can see it. The returned cleanup deletes the copy.
func StageObject(ctx context.Context, client *storage.Client, bucket, prefix, local string) (uri string, cleanup func(), err error) {
	f, err := os.Open(local)
	if err != nil {
		return "", nil, fmt.Errorf("failed to open %s: %w", local, err)
	}
	defer f.Close()

	name := fmt.Sprintf("%s/%s%s", prefix, uuid.NewString(), filepath.Ext(local))
	obj := client.Bucket(bucket).Object(name)
	w := obj.NewWriter(ctx)
	if _, err = io.Copy(w, f); err != nil {
		_ = w.Close()
		return "", nil, fmt.Errorf("failed to stage %s: %w", local, err)
	}
	if err = w.Close(); err != nil {
		return "", nil, fmt.Errorf("failed to stage %s: %w", local, err)
	}
	cleanup = func() {
		if err := obj.Delete(context.Background()); err != nil {
			slog.Warn("failed to delete staged object", "object", name, "error", err)
		}
	}
	return fmt.Sprintf("gs://%s/%s", bucket, name), cleanup, nil
}

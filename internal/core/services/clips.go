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

package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/iam/credentials/apiv1/credentialspb"
	"cloud.google.com/go/storage"
)

// GCSHost serves the public form of object URLs returned by the GCS backend.
const GCSHost = "storage.googleapis.com"

// DefaultSignedURLTTL applies when no lifetime is configured.
const DefaultSignedURLTTL = 60 * time.Minute

var ErrNotGCSObject = errors.New("not a Cloud Storage object URL")

// ClipService hands out signed GET URLs for clips stored in Cloud Storage.
// URLs are signed by SignerEmail through the IAM Credentials API, so the
// server needs no private key.
type ClipService struct {
	StorageClient *storage.Client
	IAMClient     *credentials.IamCredentialsClient
	SignerEmail   string
	TTL           time.Duration
}

// SignedURL signs the object behind objectURL, which is either
// https://storage.googleapis.com/<bucket>/<object> or gs://<bucket>/<object>.
func (s *ClipService) SignedURL(ctx context.Context, objectURL string) (string, error) {
	bucket, object, err := ParseObjectURL(objectURL)
	if err != nil {
		return "", err
	}
	ttl := s.TTL
	if ttl <= 0 {
		ttl = DefaultSignedURLTTL
	}
	opts := &storage.SignedURLOptions{
		Scheme:         storage.SigningSchemeV4,
		Method:         "GET",
		Expires:        time.Now().Add(ttl),
		GoogleAccessID: s.SignerEmail,
		SignBytes: func(b []byte) ([]byte, error) {
			resp, err := s.IAMClient.SignBlob(ctx, &credentialspb.SignBlobRequest{
				Name:    fmt.Sprintf("projects/-/serviceAccounts/%s", s.SignerEmail),
				Payload: b,
			})
			if err != nil {
				return nil, fmt.Errorf("IAMClient.SignBlob: %w", err)
			}
			return resp.SignedBlob, nil
		},
	}
	u, err := s.StorageClient.Bucket(bucket).SignedURL(object, opts)
	if err != nil {
		return "", fmt.Errorf("Bucket(%q).SignedURL(%q): %w", bucket, object, err)
	}
	return u, nil
}

// ParseObjectURL splits a Cloud Storage URL into bucket and object name.
func ParseObjectURL(in string) (bucket string, object string, err error) {
	u, err := url.Parse(in)
	if err != nil {
		return "", "", fmt.Errorf("%w: %s", ErrNotGCSObject, in)
	}
	var path string
	switch {
	case u.Scheme == "gs":
		path = u.Host + u.Path
	case u.Scheme == "https" && u.Host == GCSHost:
		path = strings.TrimPrefix(u.Path, "/")
	default:
		return "", "", fmt.Errorf("%w: %s", ErrNotGCSObject, in)
	}
	bucket, object, ok := strings.Cut(path, "/")
	if !ok || bucket == "" || object == "" {
		return "", "", fmt.Errorf("%w: %s", ErrNotGCSObject, in)
	}
	return bucket, object, nil
}

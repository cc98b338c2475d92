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

// Package storage provides the blob backends a job downloads its source from
// and uploads finished clips to. Every backend satisfies ports.StorageBackend.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/h2non/filetype"
	"github.com/jaycherian/gcp-go-smart-clips/internal/cloud"
	"github.com/jaycherian/gcp-go-smart-clips/internal/core/model"
	"github.com/jaycherian/gcp-go-smart-clips/internal/core/ports"
)

// ErrUnknownBackend is returned for backend names the registry cannot build.
var ErrUnknownBackend = model.ErrUnknownBackend

// Object is the handle returned by every backend's Upload.
type Object = ports.Object

// DefaultMIMEType is reported for files whose header is not recognised.
const DefaultMIMEType = "application/octet-stream"

// Factory lazily builds a backend the first time a job asks for it.
type Factory func(ctx context.Context) (ports.StorageBackend, error)

// Registry hands out one backend instance per backend name.
type Registry struct {
	mu        sync.Mutex
	backends  map[model.Backend]ports.StorageBackend
	factories map[model.Backend]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		backends:  make(map[model.Backend]ports.StorageBackend),
		factories: make(map[model.Backend]Factory),
	}
}

// NewConfiguredRegistry registers every backend the configuration can serve.
// GCS shares the process storage client; S3 and Drive connect on first use.
func NewConfiguredRegistry(config *cloud.Config, clients *cloud.ServiceClients) *Registry {
	r := NewRegistry()
	r.Register(model.BackendLocal, NewLocal(config.Storage.LocalRoot))
	if clients != nil && clients.StorageClient != nil {
		r.Register(model.BackendGCS, NewGCS(clients.StorageClient, config.Storage.InputBucket, config.Storage.OutputBucket))
	}
	if config.Storage.S3Bucket != "" {
		r.RegisterFactory(model.BackendS3, func(ctx context.Context) (ports.StorageBackend, error) {
			return NewS3(ctx, S3Options{
				Endpoint:  config.Storage.S3Endpoint,
				Region:    config.Storage.S3Region,
				Bucket:    config.Storage.S3Bucket,
				AccessKey: config.Storage.S3AccessKey,
				SecretKey: config.Storage.S3SecretKey,
			})
		})
	}
	r.RegisterFactory(model.BackendDrive, func(ctx context.Context) (ports.StorageBackend, error) {
		return NewDrive(ctx, config.Storage.DriveCredentialsFile)
	})
	return r
}

// Register adds a ready backend.
func (r *Registry) Register(name model.Backend, backend ports.StorageBackend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[name] = backend
}

// RegisterFactory adds a backend built on first use. A failed build is
// retried by the next Get.
func (r *Registry) RegisterFactory(name model.Backend, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns the backend registered under name, building it if needed.
// A factory that fails is kept so the next job retries the connection.
func (r *Registry) Get(ctx context.Context, name model.Backend) (ports.StorageBackend, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.backends[name]; ok {
		return b, nil
	}
	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
	b, err := factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s storage: %w", name, err)
	}
	r.backends[name] = b
	return b, nil
}

// DetectMIME sniffs the file header. Unknown content reports DefaultMIMEType.
func DetectMIME(path string) (string, error) {
	head, err := readHead(path)
	if err != nil {
		return "", err
	}
	kind, err := filetype.Match(head)
	if err != nil || kind.MIME.Value == "" {
		return DefaultMIMEType, nil
	}
	return kind.MIME.Value, nil
}

// IsVideo reports whether the file header matches a known video container.
func IsVideo(path string) (bool, error) {
	head, err := readHead(path)
	if err != nil {
		return false, err
	}
	return filetype.IsVideo(head), nil
}

func readHead(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	head := make([]byte, 261)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}
	return head[:n], nil
}

// ObjectName places a uniquely prefixed copy of the local file name in folder.
func ObjectName(folder, src string) string {
	name := uuid.NewString() + "-" + filepath.Base(src)
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return name
	}
	return folder + "/" + name
}

// splitURI parses "<scheme>://bucket/key". ok is false for bare keys.
func splitURI(scheme, uri string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(uri, scheme+"://")
	if !found {
		return "", "", false
	}
	bucket, key, found = strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}

func copyToFile(dst string, r io.Reader) (int64, error) {
	f, err := os.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("could not create %s: %w", dst, err)
	}
	written, err := io.Copy(f, r)
	if err != nil {
		_ = f.Close()
		return written, fmt.Errorf("failed to copy into %s after %d bytes: %w", dst, written, err)
	}
	return written, f.Close()
}

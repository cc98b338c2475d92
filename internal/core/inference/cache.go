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

// Package inference holds the process-wide registry of loaded detection and
// transcription models. The registry is built once at startup and passed to
// the workflows; a model is loaded the first time a job asks for it and then
// shared, read-only, by every later job.
package inference

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jaycherian/gcp-go-smart-clips/internal/core/ports"
)

// ModelKey identifies one model configuration.
type ModelKey struct {
	Backend string
	Size    string // e.g. "base" for whisper.
	Compute string // Quantization, e.g. "int8".
}

// String formats the key as backend/size/compute.
func (k ModelKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.Backend, k.Size, k.Compute)
}

// Loader creates a model. It is called at most once per key unless it fails.
type Loader[V any] func(ctx context.Context, key ModelKey) (V, error)

type entry[V any] struct {
	ready chan struct{}
	value V
	err   error
}

// Cache loads values lazily and keeps them for the life of the process.
// Concurrent requests for the same key wait for a single load. Failed loads
// are not kept, so a later request tries again.
type Cache[V any] struct {
	name    string
	load    Loader[V]
	mu      sync.Mutex
	entries map[ModelKey]*entry[V]
}

// NewCache creates a cache that calls load at most once per key at a time.
func NewCache[V any](name string, load Loader[V]) *Cache[V] {
	return &Cache[V]{name: name, load: load, entries: make(map[ModelKey]*entry[V])}
}

// Get returns the value for key, loading it on first use.
func (c *Cache[V]) Get(ctx context.Context, key ModelKey) (V, error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		e = &entry[V]{ready: make(chan struct{})}
		c.entries[key] = e
		c.mu.Unlock()

		slog.InfoContext(ctx, "loading model", "cache", c.name, "key", key.String())
		e.value, e.err = c.load(ctx, key)
		if e.err != nil {
			c.mu.Lock()
			delete(c.entries, key)
			c.mu.Unlock()
			slog.ErrorContext(ctx, "failed to load model", "cache", c.name, "key", key.String(), "error", e.err)
		}
		close(e.ready)
		return e.value, e.err
	}
	c.mu.Unlock()

	select {
	case <-e.ready:
		return e.value, e.err
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

// Len returns the number of loaded or loading entries.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Models is the registry of the two model families the pipeline uses.
type Models struct {
	transcribers *Cache[ports.TranscriptProvider]
	detectors    *Cache[ports.SubjectDetector]
}

// NewModels creates the registry from one loader per model kind.
func NewModels(transcribers Loader[ports.TranscriptProvider], detectors Loader[ports.SubjectDetector]) *Models {
	return &Models{
		transcribers: NewCache("transcribers", transcribers),
		detectors:    NewCache("detectors", detectors),
	}
}

// Transcriber returns the shared transcript provider for key.
func (m *Models) Transcriber(ctx context.Context, key ModelKey) (ports.TranscriptProvider, error) {
	return m.transcribers.Get(ctx, key)
}

// Detector returns the shared subject detector for key. A nil detector with
// a nil error means detection is disabled for that key.
func (m *Models) Detector(ctx context.Context, key ModelKey) (ports.SubjectDetector, error) {
	return m.detectors.Get(ctx, key)
}

// Static returns a registry that always hands out the given instances.
func Static(transcriber ports.TranscriptProvider, detector ports.SubjectDetector) *Models {
	return NewModels(
		func(context.Context, ModelKey) (ports.TranscriptProvider, error) { return transcriber, nil },
		func(context.Context, ModelKey) (ports.SubjectDetector, error) { return detector, nil },
	)
}

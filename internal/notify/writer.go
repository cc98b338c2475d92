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

package notify

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"

	"github.com/jaycherian/gcp-go-smart-clips/internal/core/ports"
)

// Writer prints each payload as indented JSON. The CLI uses it in place of
// a webhook; the endpoint is only logged.
type Writer struct {
	mu  sync.Mutex
	out io.Writer
}

// NewWriter creates a notifier that writes to out.
func NewWriter(out io.Writer) *Writer {
	return &Writer{out: out}
}

// Notify writes one indented JSON document.
func (w *Writer) Notify(ctx context.Context, endpoint string, payload any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	enc := json.NewEncoder(w.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		slog.ErrorContext(ctx, "failed to write result", "error", err)
		return
	}
	slog.DebugContext(ctx, "result written", "endpoint", endpoint)
}

// Fanout delivers every payload to each notifier in turn.
type Fanout []ports.ResultNotifier

// Notify delivers payload to every notifier in order.
func (f Fanout) Notify(ctx context.Context, endpoint string, payload any) {
	for _, n := range f {
		n.Notify(ctx, endpoint, payload)
	}
}

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

// Package notify delivers job results. Delivery never fails a job: the
// notifiers log what they could not deliver and return.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/jaycherian/gcp-go-smart-clips/internal/cloud"
	"github.com/jaycherian/gcp-go-smart-clips/internal/core/ports"
)

var _ ports.ResultNotifier = (*Webhook)(nil)

const (
	DefaultAttempts = 3
	DefaultTimeout  = 30 * time.Second
)

// DefaultDelays are waited before the first, second and third attempt.
var DefaultDelays = []time.Duration{0, 2 * time.Second, 4 * time.Second}

// Webhook POSTs the payload as JSON. Any 2xx response counts as delivered.
type Webhook struct {
	client   *http.Client
	attempts int
	delays   []time.Duration
	timeout  time.Duration
}

// NewWebhook creates a webhook notifier.
//
// Inputs:
//   - attempts: Deliveries tried before giving up.
//   - delays: Wait before each attempt; the last value repeats.
//   - timeout: Limit for a single POST.
//
// Outputs:
//   - *Webhook: The notifier.
func NewWebhook(attempts int, delays []time.Duration, timeout time.Duration) *Webhook {
	if attempts < 1 {
		attempts = DefaultAttempts
	}
	if len(delays) == 0 {
		delays = DefaultDelays
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Webhook{client: &http.Client{}, attempts: attempts, delays: delays, timeout: timeout}
}

// NewWebhookFromConfig creates the notifier from the [webhook] section.
func NewWebhookFromConfig(config cloud.Webhook) *Webhook {
	var delays []time.Duration
	for _, d := range config.DelaysInSeconds {
		delays = append(delays, time.Duration(d)*time.Second)
	}
	return NewWebhook(config.Attempts, delays, time.Duration(config.TimeoutInSeconds)*time.Second)
}

// Notify posts payload as JSON, retrying as configured. Without an endpoint
// the payload is dropped with a warning.
func (w *Webhook) Notify(ctx context.Context, endpoint string, payload any) {
	if endpoint == "" {
		slog.WarnContext(ctx, "no webhook callback configured, dropping result")
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		slog.ErrorContext(ctx, "failed to encode webhook payload", "error", err)
		return
	}

	var last error
	for attempt := 0; attempt < w.attempts; attempt++ {
		if err := sleep(ctx, w.delay(attempt)); err != nil {
			last = err
			break
		}
		if last = w.post(ctx, endpoint, body); last == nil {
			slog.InfoContext(ctx, "webhook delivered", "endpoint", endpoint, "attempt", attempt+1)
			return
		}
		slog.WarnContext(ctx, "webhook attempt failed", "endpoint", endpoint, "attempt", attempt+1, "error", last)
	}
	slog.ErrorContext(ctx, "webhook delivery failed", "endpoint", endpoint, "attempts", w.attempts, "error", last)
}

func (w *Webhook) delay(attempt int) time.Duration {
	if attempt < len(w.delays) {
		return w.delays[attempt]
	}
	return w.delays[len(w.delays)-1]
}

func (w *Webhook) post(ctx context.Context, endpoint string, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

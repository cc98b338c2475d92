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

package notify_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jaycherian/gcp-go-smart-clips/internal/cloud"
	"github.com/jaycherian/gcp-go-smart-clips/internal/core/model"
	"github.com/jaycherian/gcp-go-smart-clips/internal/notify"
	test "github.com/jaycherian/gcp-go-smart-clips/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var noDelay = []time.Duration{0}

func TestWebhookDelivers(t *testing.T) {
	var got model.ErrorPayload
	var contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	w := notify.NewWebhook(3, noDelay, time.Second)
	w.Notify(context.Background(), srv.URL, model.NewErrorPayload("job-1", test.ErrFake))

	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, model.StatusError, got.Status)
	assert.Equal(t, "job-1", got.JobID)
	assert.Equal(t, test.ErrFake.Error(), got.ErrorMessage)
}

func TestWebhookRetriesUntilSuccess(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	notify.NewWebhook(3, noDelay, time.Second).Notify(context.Background(), srv.URL, map[string]string{"status": "success"})
	assert.Equal(t, int32(3), calls.Load())
}

func TestWebhookGivesUpAfterAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	notify.NewWebhook(2, noDelay, time.Second).Notify(context.Background(), srv.URL, map[string]string{})
	assert.Equal(t, int32(2), calls.Load())
}

func TestWebhookTimeoutCountsAsFailure(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			select {
			case <-release:
			case <-r.Context().Done():
			}
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()
	defer close(release)

	notify.NewWebhook(2, noDelay, 50*time.Millisecond).Notify(context.Background(), srv.URL, map[string]string{})
	assert.Equal(t, int32(2), calls.Load())
}

func TestWebhookStopsOnCanceledContext(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	notify.NewWebhook(3, []time.Duration{time.Hour}, time.Second).Notify(ctx, srv.URL, map[string]string{})
	assert.Equal(t, int32(0), calls.Load())
}

func TestWebhookWithoutEndpoint(t *testing.T) {
	assert.NotPanics(t, func() {
		notify.NewWebhook(0, nil, 0).Notify(context.Background(), "", map[string]string{})
	})
}

func TestWebhookFromConfig(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	w := notify.NewWebhookFromConfig(cloud.Webhook{Attempts: 1, DelaysInSeconds: []int{0}, TimeoutInSeconds: 1})
	w.Notify(context.Background(), srv.URL, map[string]string{})
	assert.Equal(t, int32(1), calls.Load())
}

func TestWriterAndFanout(t *testing.T) {
	var buf bytes.Buffer
	recorder := &test.FakeNotifier{}
	fan := notify.Fanout{notify.NewWriter(&buf), recorder}

	fan.Notify(context.Background(), "https://example.com/hook", model.NewAcceptedResponse("job-9"))

	var got model.AcceptedResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "job-9", got.JobID)
	assert.Equal(t, []string{"https://example.com/hook"}, recorder.Endpoints)
	assert.Len(t, recorder.Delivered(), 1)
}

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

package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-smart-clips/internal/api"
	"github.com/jaycherian/gcp-go-smart-clips/internal/core/model"
	"github.com/jaycherian/gcp-go-smart-clips/internal/core/services"
)

type submitter struct {
	requests []*model.SmartClipsRequest
}

func (s *submitter) Submit(req *model.SmartClipsRequest) string {
	s.requests = append(s.requests, req)
	return fmt.Sprintf("job-%d", len(s.requests))
}

type jobs map[string]*model.JobRecord

func (j jobs) Get(_ context.Context, id string) (*model.JobRecord, error) {
	if r, ok := j[id]; ok {
		return r, nil
	}
	return nil, fmt.Errorf("%w: %s", services.ErrJobNotFound, id)
}

type signer struct{}

func (signer) SignedURL(_ context.Context, objectURL string) (string, error) {
	if _, _, err := services.ParseObjectURL(objectURL); err != nil {
		return "", err
	}
	return objectURL + "?X-Goog-Signature=abc", nil
}

func newEngine() (*gin.Engine, *submitter) {
	gin.SetMode(gin.TestMode)
	s := &submitter{}
	h := &api.Handlers{
		Defaults:       model.DefaultSettings(),
		DefaultBackend: model.BackendGCS,
		Runner:         s,
		Jobs: jobs{"job-1": {
			Id:     "job-1",
			Status: model.StatusSuccess,
			Clips: []*model.ClipRecord{
				{Number: 1, Url: "https://storage.googleapis.com/out/clips/one.mp4"},
				{Number: 2, Url: "file:///var/lib/smart-clips/two.mp4"},
			},
		}},
		Clips: signer{},
	}
	return api.NewEngine("smart-clips-test", h), s
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r, _ := newEngine()
	w := do(r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok": true}`, w.Body.String())
}

func TestSubmitAcceptsValidRequests(t *testing.T) {
	r, s := newEngine()
	w := do(r, http.MethodPost, "/api/v1/smart-clips", `{
		"storage": {"source_id": "gs://in/video.mp4", "target_folder": "clips"},
		"settings": {"mode": "analyze_only"},
		"webhook_callback": "https://hooks.example.com/done"
	}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	var out model.AcceptedResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, model.StatusAccepted, out.Status)
	assert.Equal(t, "job-1", out.JobID)

	require.Len(t, s.requests, 1)
	req := s.requests[0]
	assert.Equal(t, model.BackendGCS, req.Storage.Backend)
	assert.Equal(t, model.ModeAnalyzeOnly, req.Settings.Mode)
	assert.Equal(t, 30, req.Settings.TargetDuration)
}

func TestSubmitRejectsInvalidRequests(t *testing.T) {
	r, s := newEngine()
	for _, body := range []string{
		`not json`,
		`{"storage": {"source_id": "a.mp4"}, "settings": {"mode": "everything"}}`,
		`{"storage": {"source_id": "a.mp4"}, "settings": {"mode": "manual_generate"}}`,
		`{"storage": {"source_id": "a.mp4"}, "settings": {"aspect_ratio": "square"}}`,
		`{"storage": {"source_id": ""}}`,
		`{"storage": {"source_id": "a.mp4"}, "webhook_callback": "ftp://example.com"}`,
	} {
		w := do(r, http.MethodPost, "/api/v1/smart-clips", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
	assert.Empty(t, s.requests)
}

func TestGetJob(t *testing.T) {
	r, _ := newEngine()
	w := do(r, http.MethodGet, "/api/v1/jobs/job-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var out model.JobRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, "job-1", out.Id)
	assert.Len(t, out.Clips, 2)

	w = do(r, http.MethodGet, "/api/v1/jobs/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStreamClip(t *testing.T) {
	r, _ := newEngine()
	w := do(r, http.MethodGet, "/api/v1/jobs/job-1/clips/1/stream", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"url": "https://storage.googleapis.com/out/clips/one.mp4?X-Goog-Signature=abc"}`, w.Body.String())

	tests := map[string]int{
		"/api/v1/jobs/job-1/clips/2/stream":   http.StatusBadRequest,
		"/api/v1/jobs/job-1/clips/3/stream":   http.StatusNotFound,
		"/api/v1/jobs/job-1/clips/x/stream":   http.StatusBadRequest,
		"/api/v1/jobs/missing/clips/1/stream": http.StatusNotFound,
	}
	for path, code := range tests {
		assert.Equal(t, code, do(r, http.MethodGet, path, "").Code, path)
	}
}

func TestJobRoutesWithoutStore(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := api.NewEngine("smart-clips-test", &api.Handlers{Runner: &submitter{}})
	assert.Equal(t, http.StatusServiceUnavailable, do(r, http.MethodGet, "/api/v1/jobs/job-1", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(r, http.MethodGet, "/api/v1/jobs/job-1/clips/1/stream", "").Code)
}

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

// Package api defines the HTTP routes of the smart clips server.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/jaycherian/gcp-go-smart-clips/internal/core/model"
	"github.com/jaycherian/gcp-go-smart-clips/internal/core/services"
)

// Submitter starts a job for a validated request and returns its id.
type Submitter interface {
	Submit(req *model.SmartClipsRequest) string
}

// JobReader looks up persisted job records.
type JobReader interface {
	Get(ctx context.Context, id string) (*model.JobRecord, error)
}

// URLSigner turns a stored clip URL into a time-limited one.
type URLSigner interface {
	SignedURL(ctx context.Context, objectURL string) (string, error)
}

// Handlers carries what the routes need. Jobs and Clips may be nil when no
// job store is configured; the job routes then answer 503.
type Handlers struct {
	Defaults       model.Settings
	DefaultBackend model.Backend
	Runner         Submitter
	Jobs           JobReader
	Clips          URLSigner
}

// NewEngine returns a gin engine with tracing, CORS and every route.
func NewEngine(serviceName string, h *Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(cors.Default())

	Health(r)
	apiV1 := r.Group("/api/v1")
	{
		SmartClipsRouter(apiV1, h)
		JobsRouter(apiV1, h)
	}
	return r
}

// Health registers the liveness route.
func Health(r gin.IRoutes) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
}

// SmartClipsRouter registers job submission. Requests are validated before
// they are accepted; processing happens in the background.
func SmartClipsRouter(r *gin.RouterGroup, h *Handlers) {
	r.POST("/smart-clips", func(c *gin.Context) {
		req := model.NewSmartClipsRequest(h.Defaults, h.DefaultBackend)
		if err := c.ShouldBindJSON(req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		id := h.Runner.Submit(req)
		slog.InfoContext(c.Request.Context(), "accepted smart clips job", "job_id", id, "mode", req.Settings.Mode)
		c.JSON(http.StatusAccepted, model.NewAcceptedResponse(id))
	})
}

// JobsRouter registers the job record and clip streaming routes.
func JobsRouter(r *gin.RouterGroup, h *Handlers) {
	jobs := r.Group("/jobs")
	{
		jobs.GET("/:id", func(c *gin.Context) {
			record, ok := getJob(c, h)
			if !ok {
				return
			}
			c.JSON(http.StatusOK, record)
		})

		jobs.GET("/:id/clips/:n/stream", func(c *gin.Context) {
			n, err := strconv.Atoi(c.Param("n"))
			if err != nil || n < 1 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "clip number must be a positive integer"})
				return
			}
			if h.Clips == nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": "clip streaming is not configured"})
				return
			}
			record, ok := getJob(c, h)
			if !ok {
				return
			}
			clip, err := services.ClipByNumber(record, n)
			if err != nil {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			u, err := h.Clips.SignedURL(c.Request.Context(), clip.Url)
			switch {
			case errors.Is(err, services.ErrNotGCSObject):
				c.JSON(http.StatusBadRequest, gin.H{"error": "clip is not stored in Cloud Storage"})
				return
			case err != nil:
				slog.ErrorContext(c.Request.Context(), "failed to sign clip url", "job_id", record.Id, "clip", n, "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "could not generate streaming URL"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"url": u})
		})
	}
}

func getJob(c *gin.Context, h *Handlers) (*model.JobRecord, bool) {
	if h.Jobs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "job store is not configured"})
		return nil, false
	}
	id := c.Param("id")
	record, err := h.Jobs.Get(c.Request.Context(), id)
	switch {
	case errors.Is(err, services.ErrJobNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return nil, false
	case err != nil:
		slog.ErrorContext(c.Request.Context(), "failed to read job", "job_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read job"})
		return nil, false
	}
	return record, true
}

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

package storage_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jaycherian/gcp-go-smart-clips/internal/core/model"
	"github.com/jaycherian/gcp-go-smart-clips/internal/core/ports"
	"github.com/jaycherian/gcp-go-smart-clips/internal/storage"
	test "github.com/jaycherian/gcp-go-smart-clips/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalRoundTrip(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "source.mp4"), test.MP4Header, 0o644))

	backend := storage.NewLocal(root)
	scratch := t.TempDir()
	dst := filepath.Join(scratch, "source.mp4")
	require.NoError(t, backend.Download(context.Background(), "source.mp4", dst))

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, test.MP4Header, got)

	obj, err := backend.Upload(context.Background(), dst, "/clips/episode/", "video/mp4")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(obj.ID, "clips/episode/"))
	assert.True(t, strings.HasSuffix(obj.ID, "-source.mp4"))
	assert.True(t, strings.HasPrefix(obj.URL, "file://"))

	uploaded, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(obj.ID)))
	require.NoError(t, err)
	assert.Equal(t, test.MP4Header, uploaded)
}

func TestLocalDownloadMissing(t *testing.T) {
	backend := storage.NewLocal(t.TempDir())
	err := backend.Download(context.Background(), "missing.mp4", filepath.Join(t.TempDir(), "out.mp4"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestObjectNameIsUnique(t *testing.T) {
	a := storage.ObjectName("", "/tmp/job/clip_1.mp4")
	b := storage.ObjectName("", "/tmp/job/clip_1.mp4")
	assert.NotEqual(t, a, b)
	assert.False(t, strings.Contains(a, "/"))
	assert.True(t, strings.HasSuffix(a, "-clip_1.mp4"))
}

func TestDetectMIME(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "a.bin")
	text := filepath.Join(dir, "b.bin")
	require.NoError(t, os.WriteFile(video, test.MP4Header, 0o644))
	require.NoError(t, os.WriteFile(text, []byte("hello"), 0o644))

	mime, err := storage.DetectMIME(video)
	require.NoError(t, err)
	assert.Equal(t, "video/mp4", mime)

	ok, err := storage.IsVideo(video)
	require.NoError(t, err)
	assert.True(t, ok)

	mime, err = storage.DetectMIME(text)
	require.NoError(t, err)
	assert.Equal(t, storage.DefaultMIMEType, mime)

	ok, err = storage.IsVideo(text)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = storage.IsVideo(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestRegistry(t *testing.T) {
	r := storage.NewRegistry()
	local := storage.NewLocal(t.TempDir())
	r.Register(model.BackendLocal, local)

	got, err := r.Get(context.Background(), model.BackendLocal)
	require.NoError(t, err)
	assert.Same(t, local, got)

	_, err = r.Get(context.Background(), model.BackendS3)
	assert.ErrorIs(t, err, storage.ErrUnknownBackend)
}

func TestRegistryRetriesFailedFactory(t *testing.T) {
	r := storage.NewRegistry()
	calls := 0
	fake := &test.FakeStorage{}
	r.RegisterFactory(model.BackendDrive, func(context.Context) (ports.StorageBackend, error) {
		calls++
		if calls == 1 {
			return nil, test.ErrFake
		}
		return fake, nil
	})

	_, err := r.Get(context.Background(), model.BackendDrive)
	assert.True(t, errors.Is(err, test.ErrFake))

	got, err := r.Get(context.Background(), model.BackendDrive)
	require.NoError(t, err)
	assert.Same(t, fake, got)

	_, err = r.Get(context.Background(), model.BackendDrive)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

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

package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// Drive stores clips in Google Drive. Sources are file ids; the upload
// folder is the id of the parent folder, and clips are shared through their
// web view link.
type Drive struct {
	service *drive.Service
}

// NewDrive authenticates with the service account key in credentialsFile,
// or with application default credentials when it is empty.
func NewDrive(ctx context.Context, credentialsFile string) (*Drive, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	opts = append(opts, option.WithScopes(drive.DriveScope))
	service, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}
	return &Drive{service: service}, nil
}

// Download streams the file with the given id to dst.
func (d *Drive) Download(ctx context.Context, sourceID string, dst string) error {
	resp, err := d.service.Files.Get(sourceID).SupportsAllDrives(true).Context(ctx).Download()
	if err != nil {
		return fmt.Errorf("failed to download drive file %s: %w", sourceID, err)
	}
	defer resp.Body.Close()

	written, err := copyToFile(dst, resp.Body)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "downloaded source", "drive_file", sourceID, "path", dst, "bytes", written)
	return nil
}

// Upload creates the file in the folder with the given id and reports its
// web view link.
func (d *Drive) Upload(ctx context.Context, src string, folder string, mimeType string) (*Object, error) {
	f, err := os.Open(src)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", src, err)
	}
	defer f.Close()

	meta := &drive.File{Name: filepath.Base(src), MimeType: mimeType}
	if folder = strings.TrimSpace(folder); folder != "" {
		meta.Parents = []string{folder}
	}
	created, err := d.service.Files.Create(meta).
		Media(f).
		SupportsAllDrives(true).
		Fields("id", "webViewLink").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s to drive: %w", meta.Name, err)
	}
	return &Object{ID: created.Id, URL: created.WebViewLink}, nil
}

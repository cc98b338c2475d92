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
	"os"
	"path/filepath"
)

// Local is a filesystem backend rooted at a directory. It serves the CLI and
// tests. Relative source ids resolve against the root.
type Local struct {
	root string
}

// NewLocal creates a backend rooted at root.
func NewLocal(root string) *Local {
	if root == "" {
		root = "."
	}
	return &Local{root: root}
}

// Download copies a file below root, or an absolute path, to dst.
func (l *Local) Download(_ context.Context, sourceID string, dst string) error {
	path := sourceID
	if !filepath.IsAbs(path) {
		path = filepath.Join(l.root, sourceID)
	}
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open source %s: %w", path, err)
	}
	defer src.Close()
	_, err = copyToFile(dst, src)
	return err
}

// Upload copies src into root/folder and reports a file:// URL.
func (l *Local) Upload(_ context.Context, src string, folder string, _ string) (*Object, error) {
	in, err := os.Open(src)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", src, err)
	}
	defer in.Close()

	id := ObjectName(folder, src)
	dst := filepath.Join(l.root, filepath.FromSlash(id))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create folder for %s: %w", id, err)
	}
	if _, err := copyToFile(dst, in); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(dst)
	if err != nil {
		return nil, err
	}
	return &Object{ID: id, URL: "file://" + filepath.ToSlash(abs)}, nil
}

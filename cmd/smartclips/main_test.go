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

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-smart-clips/internal/core/model"
)

func TestParseTimestamps(t *testing.T) {
	got, err := parseTimestamps("10-25, 60.5-90")
	require.NoError(t, err)
	assert.Equal(t, []model.ManualTimestamp{{Start: 10, End: 25}, {Start: 60.5, End: 90}}, got)

	for _, in := range []string{"10", "a-5", "5-b", ""} {
		_, err := parseTimestamps(in)
		assert.ErrorIs(t, err, model.ErrInvalidManualTimestamp, in)
	}
}

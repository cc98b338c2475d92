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

// Package model defines the data structures for the application. This file,
// `examples.go`, provides hardcoded example instances of the data models.
//
// The examples are embedded into generative AI prompts as "few-shot" samples
// so that the model answers with JSON that decodes straight into our types.
package model

// GetExampleTranscript returns a short transcript in the exact shape the
// transcription prompt asks the model to produce.
func GetExampleTranscript() []TranscriptSegment {
	return []TranscriptSegment{
		{Start: 0.0, End: 3.2, Text: "okay so you will not believe what happened next"},
		{Start: 3.2, End: 6.9, Text: "we opened the box and it was completely empty"},
		{Start: 7.4, End: 9.1, Text: "why would anyone do that"},
	}
}

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

// Package highlights finds the parts of a long video most likely to work as
// short clips: it proposes candidate ranges, scores them on four signals and
// keeps the best.
package highlights

import "strings"

// Category groups related attention-grabbing words.
type Category struct {
	Name  string
	Words []string
}

// Taxonomy is the curated keyword list, in match order.
var Taxonomy = []Category{
	{Name: "high_energy", Words: []string{"wow", "amazing", "incredible", "unbelievable", "insane", "crazy", "shocking"}},
	{Name: "emotional", Words: []string{"love", "hate", "fear", "surprised", "excited", "angry", "happy", "sad"}},
	{Name: "call_to_action", Words: []string{"watch", "look", "check", "listen", "see", "wait", "stop"}},
	{Name: "controversy", Words: []string{"wrong", "right", "worst", "best", "never", "always", "secret", "truth"}},
	{Name: "questions", Words: []string{"why", "how", "what", "when", "where", "who"}},
}

// MatchKeywords returns every taxonomy word that occurs as a substring of
// text, ignoring case. Words are returned once each, in taxonomy order.
func MatchKeywords(text string) []string {
	text = strings.ToLower(text)
	var found []string
	seen := make(map[string]bool)
	for _, c := range Taxonomy {
		for _, w := range c.Words {
			if !seen[w] && strings.Contains(text, w) {
				seen[w] = true
				found = append(found, w)
			}
		}
	}
	return found
}

// Copyright 2025 Agentic World, LLC (Sherin Thomas)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package linkwalk

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// invisibleElements never contribute rendered text.
const invisibleElements = "script, style, noscript, template"

// visibleText returns the text a reader would see inside sel, with
// whitespace collapsed. sel itself is left untouched.
func visibleText(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	clone := sel.Clone()
	clone.Find(invisibleElements).Remove()
	return strings.TrimSpace(normalizeWhitespace(clone.Text()))
}

// Text returns the visible text of the page body.
func (s *PageSnapshot) Text() string {
	doc := s.Document()
	body := doc.Find("body")
	if body.Length() == 0 {
		return visibleText(doc.Selection)
	}
	return visibleText(body)
}

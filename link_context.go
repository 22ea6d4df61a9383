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

const (
	// contextTags are the elements whose text describes the links inside them.
	contextTags = "p, li, td, th, h1, h2, h3, h4, h5, h6, blockquote, figcaption"
	headingTags = "h1, h2, h3, h4, h5, h6"
	// blockRoots end the search for a download block heading.
	blockRoots = "body, main, article"
)

var inlineTags = map[string]bool{
	"a": true, "abbr": true, "b": true, "bdi": true, "bdo": true,
	"br": true, "cite": true, "code": true, "data": true, "dfn": true,
	"em": true, "i": true, "kbd": true, "mark": true, "q": true,
	"s": true, "samp": true, "small": true, "span": true, "strong": true,
	"sub": true, "sup": true, "time": true, "u": true, "var": true,
	"wbr": true, "#text": true,
}

var blockTags = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"details": true, "dialog": true, "dd": true, "div": true, "dl": true,
	"dt": true, "fieldset": true, "figcaption": true, "figure": true,
	"footer": true, "form": true, "h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true, "header": true, "hgroup": true,
	"hr": true, "li": true, "main": true, "nav": true, "ol": true,
	"p": true, "pre": true, "section": true, "table": true, "ul": true,
}

// linkContext returns the text describing a link. Quality labels such as
// "720p" usually live there rather than in the anchor. The closest
// paragraph, list item, cell or heading around the link wins. Failing that,
// an inline-only parent that adds text beyond the link is used, then the
// heading that opens the link's download block.
func linkContext(selection *goquery.Selection) string {
	if parent := selection.ParentsFiltered(contextTags).First(); parent.Length() > 0 {
		return textOf(parent)
	}
	if parent := selection.Parent(); parent.Length() > 0 && inlineOnly(parent) {
		if text := textOf(parent); text != textOf(selection) {
			return text
		}
	}
	return blockHeading(selection)
}

// blockHeading returns the nearest heading before the link within its
// download block. File hosts list mirrors as a heading ("1080p x264
// [2.1GB]") followed by bare buttons.
func blockHeading(selection *goquery.Selection) string {
	for cur := selection; cur.Length() > 0 && !cur.Is(blockRoots); cur = cur.Parent() {
		if h := cur.PrevAllFiltered(headingTags).First(); h.Length() > 0 {
			return textOf(h)
		}
	}
	return ""
}

// controlLabel returns the human-readable label of an anchor or button:
// its text, then value, title, aria-label and image alt text.
func controlLabel(selection *goquery.Selection) string {
	if text := textOf(selection); text != "" {
		return text
	}
	for _, attr := range []string{"value", "title", "aria-label"} {
		if v, ok := selection.Attr(attr); ok {
			if v = normalizeWhitespace(v); v != "" {
				return v
			}
		}
	}
	if alt, ok := selection.Find("img[alt]").First().Attr("alt"); ok {
		return normalizeWhitespace(alt)
	}
	return ""
}

func inlineOnly(selection *goquery.Selection) bool {
	ok := true
	selection.Contents().EachWithBreak(func(_ int, child *goquery.Selection) bool {
		ok = inlineTags[goquery.NodeName(child)]
		return ok
	})
	return ok
}

// textOf returns the visible text of selection with block elements kept
// apart, leaving out scripts and page chrome.
func textOf(selection *goquery.Selection) string {
	var parts []string
	var walk func(*goquery.Selection)
	walk = func(sel *goquery.Selection) {
		sel.Contents().Each(func(_ int, child *goquery.Selection) {
			name := goquery.NodeName(child)
			switch {
			case name == "#text":
				if s := strings.TrimSpace(child.Text()); s != "" {
					parts = append(parts, s)
				}
			case name == "script" || name == "style":
			default:
				walk(child)
				if blockTags[name] {
					parts = append(parts, " ")
				}
			}
		})
	}
	cloned := selection.Clone()
	cloned.Find("script, style, nav, header, footer").Remove()
	walk(cloned)
	return normalizeWhitespace(strings.Join(parts, " "))
}

// normalizeWhitespace collapses runs of whitespace into a single space.
func normalizeWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

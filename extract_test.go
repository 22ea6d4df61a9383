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
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

const downloadPage = `<html><body>
<nav><a href="https://mega.nz/file/nav">Download</a></nav>
<main>
<p>Episode 1 <a href="https://store1.gofile.io/d/abc">Download 1080p</a></p>
<p><a href="https://store1.gofile.io/d/abc#again">Download 1080p mirror</a></p>
<a href="https://t.me/share">Download via Telegram</a>
<a href="/about">About us</a>
<a href="https://pixeldrain.com/u/1"><img src="/px.png"></a>
<a href="mailto:dl@hub.test">Download by mail</a>
<a href="/local.mkv">Direct Link 720p</a>
</main>
</body></html>`

func TestExtractDefaultRule(t *testing.T) {
	s := mustSnapshot(t, "https://hubcloud.lol/file/1", downloadPage)
	got := Extract(s, nil)
	want := []Link{
		{Label: "Download 1080p", URL: "https://store1.gofile.io/d/abc", Context: "Episode 1 Download 1080p", Position: PositionContent},
		{Label: "Link", URL: "https://pixeldrain.com/u/1", Position: PositionContent},
		{Label: "Direct Link 720p", URL: "https://hubcloud.lol/local.mkv", Position: PositionContent},
	}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(Link{}, "Context")); diff != "" {
		t.Errorf("Unexpected links (-want +got):\n%s", diff)
	}
	if len(got) > 0 && got[0].Context != want[0].Context {
		t.Errorf("Expected context %q, got %q", want[0].Context, got[0].Context)
	}
}

func TestExtractRuleOptions(t *testing.T) {
	s := mustSnapshot(t, "https://hubcloud.lol/file/1", downloadPage)

	t.Run("keep boilerplate", func(t *testing.T) {
		rule := DefaultExtractionRule()
		rule.SkipBoilerplate = false
		got := Extract(s, rule)
		if len(got) == 0 || got[0].URL != "https://mega.nz/file/nav" || got[0].Position != PositionNavigation {
			t.Errorf("Expected the navigation link first, got %+v", got)
		}
	})

	t.Run("hosts only", func(t *testing.T) {
		rule := &ExtractionRule{Hosts: []string{"pixeldrain.com"}}
		got := Extract(s, rule)
		want := []Link{{Label: "Link", URL: "https://pixeldrain.com/u/1", Position: PositionContent}}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Unexpected links (-want +got):\n%s", diff)
		}
	})

	t.Run("exclusion wins", func(t *testing.T) {
		rule := DefaultExtractionRule()
		rule.Exclude = append(rule.Exclude, "gofile.io")
		for _, l := range Extract(s, rule) {
			if hostOf(l.URL) == "store1.gofile.io" {
				t.Errorf("Expected excluded host to be dropped, got %+v", l)
			}
		}
	})

	t.Run("domain exclusion is not a substring match", func(t *testing.T) {
		page := mustSnapshot(t, "https://hubcloud.lol/file/2", `<html><body>
<a href="https://www.dropbox.com/s/1">Download</a>
<a href="https://x.com/share">Download</a>
<a href="https://cdn.test/telegram/join">Download</a>
</body></html>`)
		rule := &ExtractionRule{Keywords: []string{"download"}, Exclude: []string{"x.com", "telegram"}}
		var urls []string
		for _, l := range Extract(page, rule) {
			urls = append(urls, l.URL)
		}
		if diff := cmp.Diff([]string{"https://www.dropbox.com/s/1"}, urls); diff != "" {
			t.Errorf("Unexpected links (-want +got):\n%s", diff)
		}
	})

	t.Run("external", func(t *testing.T) {
		rule := &ExtractionRule{IncludeExternal: true, Exclude: []string{"t.me"}}
		var urls []string
		for _, l := range Extract(s, rule) {
			urls = append(urls, l.URL)
		}
		want := []string{"https://mega.nz/file/nav", "https://store1.gofile.io/d/abc", "https://pixeldrain.com/u/1"}
		if diff := cmp.Diff(want, urls); diff != "" {
			t.Errorf("Unexpected links (-want +got):\n%s", diff)
		}
	})

	t.Run("selector", func(t *testing.T) {
		rule := &ExtractionRule{Selector: "p > a", IncludeExternal: true}
		if got := Extract(s, rule); len(got) != 1 {
			t.Errorf("Expected one link under the selector, got %+v", got)
		}
	})
}

func TestExtractNoMatch(t *testing.T) {
	s := mustSnapshot(t, "https://hubcloud.lol/file/1", `<html><body><a href="/about">About</a></body></html>`)
	got := Extract(s, nil)
	if got == nil || len(got) != 0 {
		t.Errorf("Expected an empty non-nil list, got %#v", got)
	}
}

func TestExtractSkipsBadHostEntry(t *testing.T) {
	s := mustSnapshot(t, "https://hubcloud.lol/file/1", `<html><body><main>
<a href="https://pixeldrain.com/u/1">Mirror</a>
<a href="https://unlisted.example/x">Mirror</a>
</main></body></html>`)
	rule := &ExtractionRule{Hosts: []string{"[pixel", "pixeldrain", " "}}

	if err := rule.Validate(); err == nil {
		t.Error("Expected Validate to report the bad entry")
	}
	got := Extract(s, rule)
	if len(got) != 1 || got[0].URL != "https://pixeldrain.com/u/1" {
		t.Errorf("Expected the valid entry to keep matching, got %+v", got)
	}
}

func TestExtractDownloadBlockContext(t *testing.T) {
	s := mustSnapshot(t, "https://hubcloud.lol/file/2", `<html><body><main>
<div class="download-block"><h3>1080p x264 [2.1GB]</h3><div class="btns"><a href="https://gofile.io/d/a">Download</a></div></div>
<div class="download-block"><h3>720p x264 [1.1GB]</h3><div class="btns"><a href="https://pixeldrain.com/u/b">Download</a></div></div>
</main></body></html>`)

	got := Extract(s, nil)
	want := []Link{
		{Label: "Download", URL: "https://gofile.io/d/a", Context: "1080p x264 [2.1GB]", Position: PositionContent},
		{Label: "Download", URL: "https://pixeldrain.com/u/b", Context: "720p x264 [1.1GB]", Position: PositionContent},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Unexpected links (-want +got):\n%s", diff)
	}
}

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
	"context"
	"net/http"
)

// Renderer opens interactive browser pages. One renderer serves many runs;
// every run gets its own page.
type Renderer interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Page is a live browser tab.
type Page interface {
	// Navigate loads rawURL and waits for the document to be ready.
	Navigate(ctx context.Context, rawURL string) error
	// Location returns the current document URL.
	Location(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)
	// HTML returns the serialised DOM.
	HTML(ctx context.Context) (string, error)
	Has(ctx context.Context, selector string) (bool, error)
	// Click simulates a pointer click on the first element matching selector.
	Click(ctx context.Context, selector string) error
	// Frames lists the embedded frames of the document.
	Frames(ctx context.Context) ([]Frame, error)
	Cookies(ctx context.Context) ([]*http.Cookie, error)
	SetCookies(ctx context.Context, cookies []*http.Cookie) error
	Close() error
}

// Frame is an embedded document inside a Page.
type Frame interface {
	URL() string
	Has(ctx context.Context, selector string) (bool, error)
	Click(ctx context.Context, selector string) error
}

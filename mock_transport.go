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
	"bytes"
	"io"
	"net/http"
	"regexp"
	"sync"
	"time"
)

// MockResponse is a canned response served by MockTransport.
type MockResponse struct {
	// StatusCode defaults to 200
	StatusCode int
	Body       string
	// BodyFunc builds the body from the request and takes precedence over Body
	BodyFunc func(*http.Request) string
	Headers  http.Header
	// Delay is waited before responding, or until the request context ends
	Delay time.Duration
	// Error simulates a network failure
	Error error
}

// RecordedRequest is a request seen by MockTransport.
type RecordedRequest struct {
	Method string
	URL    string
	Header http.Header
	Body   string
}

type mockPattern struct {
	pattern  *regexp.Regexp
	response *MockResponse
}

// MockTransport is an http.RoundTripper serving registered responses, so
// chains can be resolved in tests without a network. Unregistered URLs get
// a 404 unless a fallback is set.
type MockTransport struct {
	responses map[string]*MockResponse
	sequences map[string][]*MockResponse
	patterns  []mockPattern
	fallback  http.RoundTripper
	requests  []RecordedRequest
	mutex     sync.Mutex
}

func NewMockTransport() *MockTransport {
	return &MockTransport{
		responses: make(map[string]*MockResponse),
		sequences: make(map[string][]*MockResponse),
	}
}

// RegisterResponse serves response for an exact URL.
func (m *MockTransport) RegisterResponse(url string, response *MockResponse) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.responses[url] = withDefaults(response)
}

// RegisterHTML serves html with status 200 for url.
func (m *MockTransport) RegisterHTML(url, html string) {
	headers := make(http.Header)
	headers.Set("Content-Type", "text/html; charset=utf-8")
	m.RegisterResponse(url, &MockResponse{Body: html, Headers: headers})
}

// RegisterJSON serves body as application/json for url.
func (m *MockTransport) RegisterJSON(url, body string) {
	headers := make(http.Header)
	headers.Set("Content-Type", "application/json; charset=utf-8")
	m.RegisterResponse(url, &MockResponse{Body: body, Headers: headers})
}

// RegisterRedirect answers url with an HTTP redirect to location.
func (m *MockTransport) RegisterRedirect(url, location string, status int) {
	if status == 0 {
		status = http.StatusFound
	}
	headers := make(http.Header)
	headers.Set("Location", location)
	m.RegisterResponse(url, &MockResponse{StatusCode: status, Headers: headers})
}

// RegisterError makes requests to url fail with err.
func (m *MockTransport) RegisterError(url string, err error) {
	m.RegisterResponse(url, &MockResponse{Error: err})
}

// RegisterSequence serves responses for url in order, one per request. The
// last response repeats once the sequence is used up.
func (m *MockTransport) RegisterSequence(url string, responses ...*MockResponse) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	seq := make([]*MockResponse, 0, len(responses))
	for _, r := range responses {
		seq = append(seq, withDefaults(r))
	}
	m.sequences[url] = seq
}

// RegisterPattern serves response for URLs matching the regular expression.
func (m *MockTransport) RegisterPattern(pattern string, response *MockResponse) error {
	regex, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.patterns = append(m.patterns, mockPattern{pattern: regex, response: withDefaults(response)})
	return nil
}

// SetFallback sets the RoundTripper used for unregistered URLs.
func (m *MockTransport) SetFallback(fallback http.RoundTripper) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.fallback = fallback
}

// Requests returns the requests served so far, in order.
func (m *MockTransport) Requests() []RecordedRequest {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return append([]RecordedRequest(nil), m.requests...)
}

// Count returns how many requests were made for url.
func (m *MockTransport) Count(url string) int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	n := 0
	for _, r := range m.requests {
		if r.URL == url {
			n++
		}
	}
	return n
}

// Reset clears registered responses and recorded requests.
func (m *MockTransport) Reset() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.responses = make(map[string]*MockResponse)
	m.sequences = make(map[string][]*MockResponse)
	m.patterns = nil
	m.requests = nil
}

func (m *MockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var body string
	if req.Body != nil {
		b, _ := io.ReadAll(req.Body)
		req.Body.Close()
		body = string(b)
	}
	url := req.URL.String()

	m.mutex.Lock()
	m.requests = append(m.requests, RecordedRequest{
		Method: req.Method,
		URL:    url,
		Header: req.Header.Clone(),
		Body:   body,
	})
	mockResp, found := m.lookup(url)
	fallback := m.fallback
	m.mutex.Unlock()

	if !found {
		if fallback != nil {
			return fallback.RoundTrip(req)
		}
		return &http.Response{
			StatusCode: http.StatusNotFound,
			Body:       io.NopCloser(bytes.NewBufferString("Not Found")),
			Header:     make(http.Header),
			Request:    req,
		}, nil
	}

	if mockResp.Delay > 0 {
		t := time.NewTimer(mockResp.Delay)
		select {
		case <-t.C:
		case <-req.Context().Done():
			t.Stop()
			return nil, req.Context().Err()
		}
	}
	if mockResp.Error != nil {
		return nil, mockResp.Error
	}

	content := mockResp.Body
	if mockResp.BodyFunc != nil {
		content = mockResp.BodyFunc(req)
	}
	return &http.Response{
		StatusCode:    mockResp.StatusCode,
		Body:          io.NopCloser(bytes.NewBufferString(content)),
		Header:        mockResp.Headers.Clone(),
		Request:       req,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		ContentLength: int64(len(content)),
	}, nil
}

// lookup must be called with the mutex held.
func (m *MockTransport) lookup(url string) (*MockResponse, bool) {
	if seq := m.sequences[url]; len(seq) > 0 {
		resp := seq[0]
		if len(seq) > 1 {
			m.sequences[url] = seq[1:]
		}
		return resp, true
	}
	if resp, ok := m.responses[url]; ok {
		return resp, true
	}
	for _, p := range m.patterns {
		if p.pattern.MatchString(url) {
			return p.response, true
		}
	}
	return nil, false
}

func withDefaults(r *MockResponse) *MockResponse {
	if r.StatusCode == 0 {
		r.StatusCode = http.StatusOK
	}
	if r.Headers == nil {
		r.Headers = make(http.Header)
	}
	return r
}

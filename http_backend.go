// Copyright 2025 Agentic World, LLC (Sherin Thomas)
//
// This file includes modifications to code originally developed by Adam Tauber,
// licensed under the Apache License, Version 2.0.
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
	"compress/gzip"
	"context"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/gobwas/glob"
	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"
)

const maxRedirects = 10

type httpBackend struct {
	LimitRules []*LimitRule
	Client     *http.Client
	limiter    *rate.Limiter
	lock       *sync.RWMutex
}

// fetchResult is the raw outcome of one fetch, redirects included.
type fetchResult struct {
	StatusCode    int
	Body          []byte
	Headers       http.Header
	FinalURL      *url.URL
	RedirectChain []*RedirectResponse
	// Trace holds the timings of the final hop
	Trace *HTTPTrace
}

// LimitRule provides connection restrictions for domains.
// Both DomainRegexp and DomainGlob can be used to specify
// the included domains patterns, but at least one is required.
// There can be two kind of limitations:
//   - Parallelism: Set limit for the number of concurrent requests to matching domains
//   - Delay: Wait specified amount of time between requests (parallelism is 1 in this case)
type LimitRule struct {
	// DomainRegexp is a regular expression to match against domains
	DomainRegexp string `yaml:"domain_regexp"`
	// DomainGlob is a glob pattern to match against domains
	DomainGlob string `yaml:"domain_glob"`
	// Delay is the duration to wait before creating a new request to the matching domains
	Delay time.Duration `yaml:"delay"`
	// RandomDelay is the extra randomized duration to wait added to Delay before creating a new request
	RandomDelay time.Duration `yaml:"random_delay"`
	// Parallelism is the number of the maximum allowed concurrent requests of the matching domains
	Parallelism    int `yaml:"parallelism"`
	waitChan       chan bool
	compiledRegexp *regexp.Regexp
	compiledGlob   glob.Glob
}

// Init initializes the private members of LimitRule
func (r *LimitRule) Init() error {
	waitChanSize := 1
	if r.Parallelism > 1 {
		waitChanSize = r.Parallelism
	}
	r.waitChan = make(chan bool, waitChanSize)
	hasPattern := false
	if r.DomainRegexp != "" {
		c, err := regexp.Compile(r.DomainRegexp)
		if err != nil {
			return err
		}
		r.compiledRegexp = c
		hasPattern = true
	}
	if r.DomainGlob != "" {
		c, err := glob.Compile(r.DomainGlob)
		if err != nil {
			return err
		}
		r.compiledGlob = c
		hasPattern = true
	}
	if !hasPattern {
		return ErrNoPattern
	}
	return nil
}

// Match checks that the domain parameter triggers the rule
func (r *LimitRule) Match(domain string) bool {
	match := false
	if r.compiledRegexp != nil && r.compiledRegexp.MatchString(domain) {
		match = true
	}
	if r.compiledGlob != nil && r.compiledGlob.Match(domain) {
		match = true
	}
	return match
}

// defaultTransport returns a transport with a browser-like TLS fingerprint.
func defaultTransport() http.RoundTripper {
	return cloudflarebp.AddCloudFlareByPass(http.DefaultTransport.(*http.Transport).Clone())
}

func (h *httpBackend) Init(jar http.CookieJar, transport http.RoundTripper, timeout time.Duration) {
	if transport == nil {
		transport = defaultTransport()
	}
	h.Client = &http.Client{
		Jar:       jar,
		Transport: transport,
		Timeout:   timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	h.lock = &sync.RWMutex{}
}

func (h *httpBackend) GetMatchingRule(domain string) *LimitRule {
	if h.LimitRules == nil {
		return nil
	}
	h.lock.RLock()
	defer h.lock.RUnlock()
	for _, r := range h.LimitRules {
		if r.Match(domain) {
			return r
		}
	}
	return nil
}

// Do performs request, following redirects by hand so every hop is
// recorded. The shared limiter and any matching LimitRule are honoured
// before the first hop.
func (h *httpBackend) Do(ctx context.Context, request *http.Request, bodySize int, detectCharset bool) (*fetchResult, error) {
	if h.limiter != nil {
		if err := h.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	if r := h.GetMatchingRule(request.URL.Host); r != nil {
		select {
		case r.waitChan <- true:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		defer func(r *LimitRule) {
			randomDelay := time.Duration(0)
			if r.RandomDelay != 0 {
				randomDelay = time.Duration(rand.Int63n(int64(r.RandomDelay)))
			}
			t := time.NewTimer(r.Delay + randomDelay)
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
			}
			<-r.waitChan
		}(r)
	}

	var redirectChain []*RedirectResponse
	currentRequest := request.WithContext(ctx)

	for redirectCount := 0; redirectCount <= maxRedirects; redirectCount++ {
		trace := &HTTPTrace{}
		res, err := h.Client.Do(trace.WithTrace(currentRequest))
		if err != nil {
			return nil, err
		}

		location := res.Header.Get("Location")
		if res.StatusCode >= 300 && res.StatusCode < 400 && location != "" {
			res.Body.Close()
			redirectURL, err := currentRequest.URL.Parse(location)
			if err != nil {
				return nil, err
			}
			redirectChain = append(redirectChain, &RedirectResponse{
				URL:        currentRequest.URL.String(),
				StatusCode: res.StatusCode,
				Location:   redirectURL.String(),
			})

			// 307/308 keep method and body, the rest turn into a bodiless GET
			newMethod := http.MethodGet
			var newBody io.Reader
			if res.StatusCode == http.StatusTemporaryRedirect || res.StatusCode == http.StatusPermanentRedirect {
				newMethod = currentRequest.Method
				if currentRequest.GetBody != nil {
					if newBody, err = currentRequest.GetBody(); err != nil {
						return nil, err
					}
				}
			}

			newRequest, err := http.NewRequestWithContext(ctx, newMethod, redirectURL.String(), newBody)
			if err != nil {
				return nil, err
			}
			for key, values := range currentRequest.Header {
				for _, value := range values {
					newRequest.Header.Add(key, value)
				}
			}
			if newMethod == http.MethodGet {
				newRequest.Header.Del("Content-Type")
			}
			newRequest.Header.Set("Referer", currentRequest.URL.String())
			if newRequest.URL.Host != currentRequest.URL.Host {
				newRequest.Header.Del("Authorization")
			}
			currentRequest = newRequest
			continue
		}

		defer res.Body.Close()

		var bodyReader io.Reader = res.Body
		if bodySize > 0 {
			bodyReader = io.LimitReader(bodyReader, int64(bodySize))
		}
		contentEncoding := strings.ToLower(res.Header.Get("Content-Encoding"))
		if !res.Uncompressed && strings.Contains(contentEncoding, "gzip") {
			gz, err := gzip.NewReader(bodyReader)
			if err != nil {
				return nil, err
			}
			defer gz.Close()
			bodyReader = gz
		}
		body, err := io.ReadAll(bodyReader)
		if err != nil {
			return nil, err
		}
		if fixed, err := fixCharset(body, res.Header.Get("Content-Type"), detectCharset); err == nil {
			body = fixed
		}
		return &fetchResult{
			StatusCode:    res.StatusCode,
			Body:          body,
			Headers:       res.Header,
			FinalURL:      currentRequest.URL,
			RedirectChain: redirectChain,
			Trace:         trace,
		}, nil
	}

	return nil, ErrTooManyRedirects
}

func (h *httpBackend) Limit(rule *LimitRule) error {
	h.lock.Lock()
	if h.LimitRules == nil {
		h.LimitRules = make([]*LimitRule, 0, 8)
	}
	h.LimitRules = append(h.LimitRules, rule)
	h.lock.Unlock()
	return rule.Init()
}

// fixCharset converts body to UTF-8 using the declared charset or, when
// none is declared and detection is on, the one chardet reports.
func fixCharset(body []byte, contentType string, detect bool) ([]byte, error) {
	if len(body) == 0 {
		return body, nil
	}
	contentType = strings.ToLower(contentType)
	if strings.Contains(contentType, "image/") || strings.Contains(contentType, "application/json") {
		return body, nil
	}
	if !strings.Contains(contentType, "charset") {
		if !detect {
			return body, nil
		}
		r, err := chardet.NewTextDetector().DetectBest(body)
		if err != nil {
			return body, err
		}
		contentType = "text/plain; charset=" + strings.ToLower(r.Charset)
	}
	if strings.Contains(contentType, "utf-8") || strings.Contains(contentType, "utf8") {
		return body, nil
	}
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return body, err
	}
	return io.ReadAll(r)
}

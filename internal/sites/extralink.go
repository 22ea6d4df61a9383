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

package sites

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"time"

	"github.com/agentberlin/linkwalk"
	"github.com/go-resty/resty/v2"
)

// ErrNoToken is returned for extralink URLs without a /s/<token> path
var ErrNoToken = errors.New("no share token in URL")

var extralinkTokenPattern = regexp.MustCompile(`/s/([a-zA-Z0-9]+)`)

// extralinkKeys are the link fields of the share API, in display order.
var extralinkKeys = []struct{ key, label string }{
	{"filepressLink", "FilePress"},
	{"streamhgLink", "StreamHG"},
	{"vidhideLink", "VidHide"},
	{"r2Link", "R2 Direct"},
	{"vikingLink", "VikingFile"},
	{"photoLink", "Photo"},
	{"gdtotLink", "GDTOT"},
	{"hubcloudLink", "HubCloud"},
	{"pixeldrainLink", "PixelDrain"},
	{"gofileLink", "GoFile"},
	{"abyssPlayerLink", "AbyssPlayer"},
}

func newAPIClient(userAgent string) *resty.Client {
	if userAgent == "" {
		userAgent = linkwalk.DefaultUserAgent
	}
	client := resty.New()
	client.SetHeader("user-agent", userAgent)
	client.SetHeader("accept", "application/json")
	client.SetTimeout(15 * time.Second)
	return client
}

// ExtralinkClient reads share links through the site's JSON API.
type ExtralinkClient struct {
	client *resty.Client
}

// NewExtralinkClient returns a client using c.
func NewExtralinkClient(c *resty.Client) *ExtralinkClient {
	return &ExtralinkClient{client: c}
}

// APIURL returns the API address serving the share at entry.
func APIURL(entry string) (string, error) {
	u, err := url.Parse(entry)
	if err != nil {
		return "", err
	}
	m := extralinkTokenPattern.FindStringSubmatch(u.Path)
	if m == nil {
		return "", fmt.Errorf("%w: %s", ErrNoToken, entry)
	}
	return fmt.Sprintf("%s://%s/api/s/%s/", u.Scheme, u.Host, m[1]), nil
}

// Links fetches the share at entry and returns its links in display order.
func (c *ExtralinkClient) Links(ctx context.Context, entry string) ([]linkwalk.Link, int, error) {
	apiURL, err := APIURL(entry)
	if err != nil {
		return nil, 0, err
	}
	var data map[string]any
	res, err := c.client.R().
		SetContext(ctx).
		SetResult(&data).
		Get(apiURL)
	if err != nil {
		return nil, 0, err
	}
	if res.IsError() {
		return nil, res.StatusCode(), fmt.Errorf("share API returned %s", res.Status())
	}
	links := make([]linkwalk.Link, 0)
	for _, k := range extralinkKeys {
		v, ok := data[k.key].(string)
		if !ok || v == "" {
			continue
		}
		links = append(links, linkwalk.Link{Label: k.label, URL: v, Position: linkwalk.PositionContent})
	}
	return links, res.StatusCode(), nil
}

// Resolve turns a share fetch into a run result.
func (c *ExtralinkClient) Resolve(ctx context.Context, entry string) *linkwalk.Result {
	start := time.Now()
	apiURL, _ := APIURL(entry)
	links, status, err := c.Links(ctx, entry)
	res := &linkwalk.Result{
		URL:     apiURL,
		Elapsed: time.Since(start),
	}
	if status > 0 {
		res.Trail = []linkwalk.Step{{URL: apiURL, Status: status, At: start}}
	}
	switch {
	case err == nil:
		res.Outcome = linkwalk.Resolved
		res.Links = links
	case errors.Is(err, ErrNoToken):
		res.Outcome = linkwalk.Failed
		res.Reason = linkwalk.FailureNoActionFound
		res.Err = err
		res.URL = entry
	case ctx.Err() != nil:
		res.Outcome = linkwalk.Failed
		res.Reason = linkwalk.FailureCancelled
		res.Err = ctx.Err()
	default:
		res.Outcome = linkwalk.Failed
		res.Reason = linkwalk.FailureNetwork
		res.Err = err
	}
	return res
}

func extralinkSite(c *ExtralinkClient) *Site {
	return &Site{
		Name:        "extralink",
		Description: "ExtraLink shares, read through the share API",
		Match:       hostContains("extralink."),
		Resolve:     c.Resolve,
	}
}

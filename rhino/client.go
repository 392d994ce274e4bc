/*
Copyright 2026 The rhino-pack Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/


// Package rhino implements a read-only client of the Rhino REST API that
// serves article records, asset records and asset file bytes.
package rhino

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/ambraproject/rhino-pack/config"
	"github.com/ambraproject/rhino-pack/fault"
	"github.com/ambraproject/rhino-pack/logger"
)

// Client performs idempotent reads against the Rhino API. It never
// retries on its own, callers decide whether a Transport failure is worth
// another attempt.
type Client struct {
	httpClient *retryablehttp.Client
	baseURL    *url.URL
	prefix     string
	timeout    time.Duration
	limiter    *rate.Limiter
	log        logr.Logger
}

// ListOptions narrows the result of ListArticles.
type ListOptions struct {
	// Filter, when set, must match a DOI for it to be listed.
	Filter *regexp.Regexp
}

// NewClient returns a Client for the server, API version, TLS and rate
// settings of the given options.
func NewClient(opts config.Options, log logr.Logger) (*Client, error) {
	baseURL, err := opts.BaseURL()
	if err != nil {
		return nil, err
	}

	transport := cleanhttp.DefaultPooledTransport()
	if !opts.TLSVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	httpClient := retryablehttp.NewClient()
	httpClient.HTTPClient = &http.Client{Transport: transport}
	httpClient.RetryMax = 0
	httpClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	httpClient.Logger = newLeveledLogger(log)

	c := &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		prefix:     opts.Prefix,
		timeout:    opts.Timeout,
		log:        log,
	}
	if opts.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return c, nil
}

// ListArticles returns the DOIs of all articles under the configured
// prefix, sorted. The listing is decoded as a stream so that large
// responses are never held in memory as a whole.
func (c *Client) ListArticles(ctx context.Context, opts ListOptions) ([]string, error) {
	resp, cancel, err := c.get(ctx, c.endpoint("articles"))
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer resp.Body.Close()

	dec := json.NewDecoder(resp.Body)
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil, c.decodeError(ctx, err, "article listing is not a JSON object")
	}

	var dois []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, c.decodeError(ctx, err, "failed to read article listing")
		}
		doi, ok := tok.(string)
		if !ok {
			return nil, fault.New(fault.Protocol, "unexpected token %v in article listing", tok)
		}
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, c.decodeError(ctx, err, "failed to read article listing")
		}
		if !strings.HasPrefix(doi, c.prefix+"/") {
			continue
		}
		if opts.Filter != nil && !opts.Filter.MatchString(doi) {
			continue
		}
		dois = append(dois, doi)
	}
	sort.Strings(dois)
	return dois, nil
}

// GetArticle fetches the article record including its asset graph.
func (c *Client) GetArticle(ctx context.Context, doi string) (*Article, error) {
	var a Article
	if err := c.getJSON(ctx, c.endpoint("articles", doi), &a); err != nil {
		return nil, fault.Scope(err, doi, "")
	}
	if a.DOI == "" {
		a.DOI = doi
	}
	if a.DOI != doi {
		return nil, fault.New(fault.Protocol, "record describes article '%s'", a.DOI).WithDOI(doi)
	}
	for _, files := range a.Assets {
		files.setIDs()
	}
	return &a, nil
}

// GetAsset fetches the per-AFID metadata of one asset.
func (c *Client) GetAsset(ctx context.Context, assetDOI string) (*Asset, error) {
	files := AssetFiles{}
	if err := c.getJSON(ctx, c.endpoint("assets", assetDOI), &files); err != nil {
		return nil, fault.Scope(err, assetDOI, "")
	}
	files.setIDs()
	return &Asset{DOI: assetDOI, Files: files}, nil
}

// FetchAssetFile opens the byte stream of an asset file. The returned
// Download must be closed by the caller; it hashes the bytes as they are
// read.
func (c *Client) FetchAssetFile(ctx context.Context, afid string) (*Download, error) {
	resp, cancel, err := c.get(ctx, c.endpoint("assetfiles", afid))
	if err != nil {
		return nil, fault.Scope(err, "", afid)
	}
	return newDownload(ctx, afid, resp, cancel), nil
}

func (c *Client) endpoint(elem ...string) string {
	return c.baseURL.JoinPath(elem...).String()
}

func (c *Client) getJSON(ctx context.Context, target string, v any) error {
	resp, cancel, err := c.get(ctx, target)
	if err != nil {
		return err
	}
	defer cancel()
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return c.decodeError(ctx, err, fmt.Sprintf("failed to decode response from %s", target))
	}
	return nil
}

// get performs a GET request bounded by the per-call timeout. On success
// the caller owns the response body and the cancel func.
func (c *Client) get(ctx context.Context, target string) (*http.Response, context.CancelFunc, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, nil, fault.Wrap(fault.Cancelled, err, "request to %s cancelled", target)
			}
			return nil, nil, fault.Wrap(fault.Transport, err, "rate limit wait for %s", target)
		}
	}

	callCtx, cancel := ctx, context.CancelFunc(func() {})
	if c.timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, c.timeout)
	}

	req, err := retryablehttp.NewRequestWithContext(callCtx, http.MethodGet, target, nil)
	if err != nil {
		cancel()
		return nil, nil, fault.Wrap(fault.Configuration, err, "failed to create a new request")
	}

	c.log.V(logger.DebugLevel).Info("request", "url", target)
	resp, err := c.httpClient.Do(req)
	if err := classify(ctx, target, resp, err); err != nil {
		if resp != nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}
		cancel()
		return nil, nil, err
	}
	return resp, cancel, nil
}

// classify maps the outcome of a request to a fault kind. Cancellation by
// the caller wins over anything else and an expired per-call timeout is a
// Transport failure. A response, when present, is classified by status.
func classify(ctx context.Context, target string, resp *http.Response, err error) error {
	if ctx.Err() != nil {
		return fault.Wrap(fault.Cancelled, ctx.Err(), "request to %s cancelled", target)
	}
	if resp == nil {
		if retry, _ := retryablehttp.DefaultRetryPolicy(context.Background(), nil, err); retry {
			return fault.Wrap(fault.Transport, err, "request to %s failed", target)
		}
		return fault.Wrap(fault.Configuration, err, "request to %s failed", target)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	if resp.StatusCode == http.StatusNotFound {
		return fault.New(fault.NotFound, "%s not found", target)
	}
	if retry, _ := retryablehttp.DefaultRetryPolicy(context.Background(), resp, nil); retry {
		return fault.New(fault.Transport, "request to %s failed, status: %s", target, resp.Status)
	}
	return fault.New(fault.Protocol, "unexpected response from %s, status: %s", target, resp.Status)
}

// decodeError classifies a failure to decode a response body. Read errors
// caused by the network are Transport failures, anything else means the
// body is malformed.
func (c *Client) decodeError(ctx context.Context, err error, msg string) error {
	if ctx.Err() != nil {
		return fault.Wrap(fault.Cancelled, ctx.Err(), "%s", msg)
	}
	if err == nil {
		return fault.New(fault.Protocol, "%s", msg)
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return fault.Wrap(fault.Protocol, err, "%s", msg)
	}
	return fault.Wrap(fault.Transport, err, "%s", msg)
}

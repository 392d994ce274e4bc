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

package config

import (
	_ "crypto/sha256"
	_ "crypto/sha512"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/opencontainers/go-digest"

	"github.com/ambraproject/rhino-pack/doi"
	"github.com/ambraproject/rhino-pack/fault"
	"github.com/ambraproject/rhino-pack/version"
)

// Options contains the configuration settings of a packaging run. Once
// validated, the record is passed by value to every component and never
// modified.
type Options struct {
	// Server is the base URL of the Rhino API server.
	Server string `json:"server"`

	// Prefix is the DOI registrant prefix articles are published under.
	Prefix string `json:"prefix"`

	// APIVersion is the Rhino API version path segment, e.g. 'v1'.
	APIVersion string `json:"apiVersion"`

	// TLSVerify enables the verification of the server certificate.
	TLSVerify bool `json:"tlsVerify"`

	// OutDir is the directory archives are written to.
	OutDir string `json:"outDir"`

	// Timeout is the total timeout of a single network call.
	Timeout time.Duration `json:"timeout"`

	// MaxRetries is the number of times a failed network call is retried.
	MaxRetries int `json:"maxRetries"`

	// RetryWaitMin is the base of the exponential backoff between retries.
	RetryWaitMin time.Duration `json:"retryWaitMin"`

	// RetryWaitMax caps the backoff between retries.
	RetryWaitMax time.Duration `json:"retryWaitMax"`

	// Parallelism is the number of packaging jobs run concurrently in
	// batch mode.
	Parallelism int `json:"parallelism"`

	// RequestsPerSecond limits the request rate against the server.
	// Zero disables the limit.
	RequestsPerSecond float64 `json:"requestsPerSecond"`

	// RequirePDF fails articles whose root asset has no PDF representation.
	RequirePDF bool `json:"requirePDF"`

	// DigestAlgorithm is the hashing algorithm used to calculate the digest
	// of produced archives.
	DigestAlgorithm string `json:"digestAlgorithm"`
}

// Default returns the Options used when no flags are given.
func Default() Options {
	return Options{
		Server:          defaultServer,
		Prefix:          defaultPrefix,
		APIVersion:      defaultAPIVersion,
		TLSVerify:       true,
		OutDir:          ".",
		Timeout:         defaultTimeout,
		MaxRetries:      defaultMaxRetries,
		RetryWaitMin:    defaultRetryWaitMin,
		RetryWaitMax:    defaultRetryWaitMax,
		Parallelism:     1,
		DigestAlgorithm: defaultDigestAlgorithm,
	}
}

// Validate checks the options and returns a Configuration error describing
// the first invalid setting.
func (o Options) Validate() error {
	u, err := url.Parse(o.Server)
	if err != nil {
		return fault.Wrap(fault.Configuration, err, "invalid server URL '%s'", o.Server)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fault.New(fault.Configuration, "server URL '%s' must use the http or https scheme", o.Server)
	}
	if u.Host == "" {
		return fault.New(fault.Configuration, "server URL '%s' has no host", o.Server)
	}
	if !doi.ValidPrefix(o.Prefix) {
		return fault.New(fault.Configuration, "invalid DOI prefix '%s'", o.Prefix)
	}
	if o.APIVersion != "" {
		if _, err := version.ParseAPIVersion(o.APIVersion); err != nil {
			return fault.Wrap(fault.Configuration, err, "invalid API version '%s'", o.APIVersion)
		}
	}
	if o.Timeout < 0 {
		return fault.New(fault.Configuration, "timeout must not be negative")
	}
	if o.MaxRetries < 0 {
		return fault.New(fault.Configuration, "retries must not be negative")
	}
	if o.RetryWaitMax < o.RetryWaitMin {
		return fault.New(fault.Configuration, "maximum retry wait %s is lower than the minimum %s",
			o.RetryWaitMax, o.RetryWaitMin)
	}
	if o.Parallelism < 1 {
		return fault.New(fault.Configuration, "parallelism must be at least 1")
	}
	if o.RequestsPerSecond < 0 {
		return fault.New(fault.Configuration, "rate limit must not be negative")
	}
	if !digest.Algorithm(o.DigestAlgorithm).Available() {
		return fault.New(fault.Configuration, "unsupported digest algorithm '%s'", o.DigestAlgorithm)
	}
	if f, err := os.Stat(o.OutDir); err != nil || !f.IsDir() {
		return fault.New(fault.Configuration, "invalid output dir path: %s", o.OutDir)
	}
	return nil
}

// BaseURL returns the server URL joined with the API version. Servers
// given with or without a trailing separator yield the same result.
func (o Options) BaseURL() (*url.URL, error) {
	u, err := url.Parse(strings.TrimRight(o.Server, "/"))
	if err != nil {
		return nil, fault.Wrap(fault.Configuration, err, "invalid server URL '%s'", o.Server)
	}
	if o.APIVersion != "" {
		v, err := version.ParseAPIVersion(o.APIVersion)
		if err != nil {
			return nil, fault.Wrap(fault.Configuration, err, "invalid API version '%s'", o.APIVersion)
		}
		u = u.JoinPath(v.PathSegment())
	}
	return u, nil
}

// DigestAlgo returns the configured archive digest algorithm.
func (o Options) DigestAlgo() digest.Algorithm {
	return digest.Algorithm(o.DigestAlgorithm)
}

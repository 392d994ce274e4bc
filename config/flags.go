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
	"os"
	"time"

	"github.com/spf13/pflag"
)

const (
	flagServer    = "server"
	envServer     = "RHINO_SERVER"
	defaultServer = "http://api.plosjournals.org"

	flagPrefix    = "prefix"
	envPrefix     = "RHINO_PREFIX"
	defaultPrefix = "10.1371"

	flagAPIVersion    = "rver"
	envAPIVersion     = "RHINO_API_VERSION"
	defaultAPIVersion = "v1"

	flagVerify   = "verify"
	flagNoVerify = "no-verify"

	flagOutDir = "out"

	flagTimeout    = "timeout"
	defaultTimeout = 60 * time.Second

	flagMaxRetries    = "retries"
	defaultMaxRetries = 3

	flagRetryWaitMin    = "retry-wait"
	defaultRetryWaitMin = 2 * time.Second

	flagRetryWaitMax    = "retry-wait-max"
	defaultRetryWaitMax = 30 * time.Second

	flagParallelism = "parallel"

	flagRequestsPerSecond = "rate-limit"

	flagRequirePDF = "require-pdf"

	flagDigestAlgorithm    = "digest-algo"
	defaultDigestAlgorithm = "sha256"
)

// BindFlags will parse the given pflag.FlagSet and set the Options
// accordingly. The negated TLS flag is resolved by ApplyFlags once the
// flag set has been parsed.
func (o *Options) BindFlags(fs *pflag.FlagSet) {
	d := Default()

	fs.StringVar(&o.Server, flagServer,
		envOrDefault(envServer, d.Server),
		"The Rhino server URL, e.g. 'https://webprod.plosjournals.org/api'.")

	fs.StringVar(&o.Prefix, flagPrefix,
		envOrDefault(envPrefix, d.Prefix),
		"The DOI prefix used to expand article stems.")

	fs.StringVar(&o.APIVersion, flagAPIVersion,
		envOrDefault(envAPIVersion, d.APIVersion),
		"The Rhino API version path segment.")

	fs.BoolVar(&o.TLSVerify, flagVerify, d.TLSVerify,
		"Verify the TLS certificate of the server.")
	fs.Bool(flagNoVerify, false,
		"Skip the verification of the TLS certificate of the server.")

	fs.StringVar(&o.OutDir, flagOutDir, d.OutDir,
		"The directory archives are written to.")

	fs.DurationVar(&o.Timeout, flagTimeout, d.Timeout,
		"The total timeout of a single network call.")

	fs.IntVar(&o.MaxRetries, flagMaxRetries, d.MaxRetries,
		"The number of times a failed network call is retried.")

	fs.DurationVar(&o.RetryWaitMin, flagRetryWaitMin, d.RetryWaitMin,
		"The base of the exponential backoff between retries.")

	fs.DurationVar(&o.RetryWaitMax, flagRetryWaitMax, d.RetryWaitMax,
		"The maximum backoff between retries.")

	fs.IntVar(&o.Parallelism, flagParallelism, d.Parallelism,
		"The number of articles packaged concurrently.")

	fs.Float64Var(&o.RequestsPerSecond, flagRequestsPerSecond, d.RequestsPerSecond,
		"The maximum number of requests per second sent to the server, 0 disables the limit.")

	fs.BoolVar(&o.RequirePDF, flagRequirePDF, d.RequirePDF,
		"Fail articles without a PDF representation.")

	fs.StringVar(&o.DigestAlgorithm, flagDigestAlgorithm, d.DigestAlgorithm,
		"The hashing algorithm used to calculate the digest of archives.")
}

// ApplyFlags resolves flags whose effect depends on other flags. It must be
// called after the flag set has been parsed.
func (o *Options) ApplyFlags(fs *pflag.FlagSet) error {
	noVerify, err := fs.GetBool(flagNoVerify)
	if err != nil {
		return err
	}
	if noVerify {
		o.TLSVerify = false
	}
	return nil
}

// envOrDefault returns the value of the environment variable named by the key.
// If the variable is empty or not present, it returns the defaultValue instead.
func envOrDefault(envName, defaultValue string) string {
	ret := os.Getenv(envName)
	if ret != "" {
		return ret
	}

	return defaultValue
}

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

// Package fault defines the closed set of failure kinds reported by the
// packager and the error type carrying them.
package fault

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure. A Kind is itself an error, which allows
// callers to test an error chain with errors.Is(err, fault.NotFound).
type Kind int

const (
	// Configuration is returned for bad command line input or settings.
	Configuration Kind = iota + 1
	// NotFound is returned when the remote reports an unknown DOI or AFID.
	NotFound
	// Transport is returned for network level failures. It is the only
	// retryable kind.
	Transport
	// Protocol is returned when the remote answered with a malformed body
	// or an identifier could not be parsed.
	Protocol
	// IncompleteArticle is returned when the article lacks a required
	// representation of its root asset.
	IncompleteArticle
	// Integrity is returned when fetched bytes disagree with the advertised
	// size or content hash.
	Integrity
	// Archive is returned for archive sink failures and duplicate entries.
	Archive
	// Cancelled is returned when the caller cancelled the operation.
	Cancelled
	// Fatal is returned when retries of a Transport failure are exhausted.
	Fatal
)

var kindNames = map[Kind]string{
	Configuration:     "ConfigurationError",
	NotFound:          "NotFound",
	Transport:         "Transport",
	Protocol:          "Protocol",
	IncompleteArticle: "IncompleteArticle",
	Integrity:         "IntegrityError",
	Archive:           "ArchiveError",
	Cancelled:         "Cancelled",
	Fatal:             "Fatal",
}

// String returns the name of the kind as printed in batch status lines.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error implements the error interface.
func (k Kind) Error() string {
	return k.String()
}

// Error is a failure of one kind, optionally scoped to the DOI and AFID
// being processed.
type Error struct {
	Kind Kind
	DOI  string
	AFID string
	Err  error
}

// New returns an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Wrap returns an Error of the given kind wrapping err with a message.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	msg := fmt.Sprintf(format, args...)
	return &Error{Kind: kind, Err: fmt.Errorf("%s: %w", msg, err)}
}

func (e *Error) Error() string {
	var scope []string
	if e.DOI != "" {
		scope = append(scope, fmt.Sprintf("doi '%s'", e.DOI))
	}
	if e.AFID != "" {
		scope = append(scope, fmt.Sprintf("afid '%s'", e.AFID))
	}
	msg := strings.ToLower(e.Kind.String())
	if e.Err != nil {
		msg = e.Err.Error()
	}
	if len(scope) == 0 {
		return msg
	}
	return strings.Join(scope, " ") + ": " + msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the Kind of this error.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// WithDOI returns a copy of the error scoped to the given DOI, unless it
// already names one.
func (e *Error) WithDOI(doi string) *Error {
	c := *e
	if c.DOI == "" {
		c.DOI = doi
	}
	return &c
}

// WithAFID returns a copy of the error scoped to the given AFID, unless it
// already names one.
func (e *Error) WithAFID(afid string) *Error {
	c := *e
	if c.AFID == "" {
		c.AFID = afid
	}
	return &c
}

// KindOf returns the kind of the outermost Error in the chain of err.
// Context errors map to Cancelled and anything else unclassified to Fatal.
// A nil error has no kind and yields zero.
func KindOf(err error) Kind {
	if err == nil {
		return 0
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	var k Kind
	if errors.As(err, &k) {
		return k
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Cancelled
	}
	return Fatal
}

// IsRetryable reports whether err is worth another attempt.
func IsRetryable(err error) bool {
	return KindOf(err) == Transport
}

// Scope attaches the DOI and AFID to err, converting it into an Error when
// needed. Errors that already name a DOI or AFID keep their values.
func Scope(err error, doi, afid string) error {
	if err == nil {
		return nil
	}
	var fe *Error
	if !errors.As(err, &fe) {
		fe = &Error{Kind: KindOf(err), Err: err}
	}
	return fe.WithDOI(doi).WithAFID(afid)
}

// Detail returns the message of err without the DOI scope, for use in
// status lines that already print the DOI.
func Detail(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		scoped := *fe
		scoped.DOI = ""
		return scoped.Error()
	}
	return err.Error()
}

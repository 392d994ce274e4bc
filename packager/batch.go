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


package packager

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
	"sigs.k8s.io/yaml"

	"github.com/ambraproject/rhino-pack/doi"
	"github.com/ambraproject/rhino-pack/fault"
)

// Exit codes of a batch run.
const (
	ExitOK            = 0
	ExitConfiguration = 1
	ExitPartial       = 2
	ExitFailed        = 3
)

// Outcome is the result of one job of a batch.
type Outcome struct {
	DOI    string
	Result *Result
	Err    error
}

// OK reports whether the job succeeded.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Status returns 'OK' or 'FAILED: <kind>: <detail>'.
func (o Outcome) Status() string {
	if o.OK() {
		return "OK"
	}
	return fmt.Sprintf("FAILED: %s: %s", fault.KindOf(o.Err), fault.Detail(o.Err))
}

// String returns the status line of the outcome.
func (o Outcome) String() string {
	return o.DOI + " " + o.Status()
}

// Batch packages every input. A failing job never aborts the others.
// Up to Options.Parallelism jobs run at once; the outcomes are returned
// in input order.
func (p *Packager) Batch(ctx context.Context, inputs []string) []Outcome {
	outcomes := make([]Outcome, len(inputs))

	var g errgroup.Group
	g.SetLimit(max(p.opts.Parallelism, 1))
	for i, input := range inputs {
		i, input := i, input
		g.Go(func() error {
			res, err := p.Package(ctx, input)
			outcomes[i] = Outcome{
				DOI:    doi.Normalize(input, p.opts.Prefix),
				Result: res,
				Err:    err,
			}
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// ExitCode returns the aggregate exit code of a batch: ExitOK when every
// job succeeded, ExitFailed when none did and ExitPartial otherwise.
func ExitCode(outcomes []Outcome) int {
	failed := 0
	for _, o := range outcomes {
		if !o.OK() {
			failed++
		}
	}
	switch {
	case failed == 0:
		return ExitOK
	case failed == len(outcomes):
		return ExitFailed
	default:
		return ExitPartial
	}
}

// ReportEntry is the serialized form of an Outcome.
type ReportEntry struct {
	DOI     string   `json:"doi"`
	Status  string   `json:"status"`
	Kind    string   `json:"kind,omitempty"`
	Detail  string   `json:"detail,omitempty"`
	Path    string   `json:"path,omitempty"`
	Digest  string   `json:"digest,omitempty"`
	Size    int64    `json:"size,omitempty"`
	Entries []string `json:"entries,omitempty"`
	Retries int      `json:"retries,omitempty"`
}

// Report is the serialized form of a batch.
type Report struct {
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Articles  []ReportEntry `json:"articles"`
}

// NewReport summarizes the outcomes of a batch.
func NewReport(outcomes []Outcome) Report {
	r := Report{Articles: make([]ReportEntry, 0, len(outcomes))}
	for _, o := range outcomes {
		e := ReportEntry{DOI: o.DOI, Status: "OK"}
		if o.OK() {
			r.Succeeded++
			if o.Result != nil {
				e.Path = o.Result.Path
				e.Digest = o.Result.Digest
				e.Size = o.Result.Size
				e.Entries = o.Result.Entries
				e.Retries = o.Result.Retries
			}
		} else {
			r.Failed++
			e.Status = "FAILED"
			e.Kind = fault.KindOf(o.Err).String()
			e.Detail = fault.Detail(o.Err)
		}
		r.Articles = append(r.Articles, e)
	}
	return r
}

// WriteReport writes the report of a batch to path, as JSON when the path
// ends with '.json' and as YAML otherwise.
func WriteReport(path string, outcomes []Outcome) error {
	report := NewReport(outcomes)

	var (
		b   []byte
		err error
	)
	if strings.EqualFold(filepath.Ext(path), ".json") {
		b, err = json.MarshalIndent(report, "", "  ")
		b = append(b, '\n')
	} else {
		b, err = yaml.Marshal(report)
	}
	if err != nil {
		return fault.Wrap(fault.Configuration, err, "failed to encode report")
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fault.Wrap(fault.Configuration, err, "failed to write report '%s'", path)
	}
	return nil
}

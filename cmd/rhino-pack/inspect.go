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


package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/ambraproject/rhino-pack/doi"
	"github.com/ambraproject/rhino-pack/fault"
	"github.com/ambraproject/rhino-pack/packager"
	"github.com/ambraproject/rhino-pack/rhino"
)

const (
	outputYAML = "yaml"
	outputJSON = "json"
)

// fetchFunc returns the record printed for one DOI.
type fetchFunc func(ctx context.Context, client *rhino.Client, d string) (any, error)

func newMetaCmd(flags *rootFlags) *cobra.Command {
	return newInspectCmd(flags, "meta <stem|doi>...",
		"Print the metadata records of articles", true,
		func(ctx context.Context, client *rhino.Client, d string) (any, error) {
			return client.GetArticle(ctx, d)
		})
}

func newAssetMetaCmd(flags *rootFlags) *cobra.Command {
	return newInspectCmd(flags, "asset-meta <asset-doi>...",
		"Print the asset file records of assets", false,
		func(ctx context.Context, client *rhino.Client, d string) (any, error) {
			asset, err := client.GetAsset(ctx, d)
			if err != nil {
				return nil, err
			}
			return asset.Files, nil
		})
}

func newAssetFilesCmd(flags *rootFlags) *cobra.Command {
	return newInspectCmd(flags, "asset-files <stem|doi>...",
		"Print the asset file identifiers of articles, grouped by asset", true,
		func(ctx context.Context, client *rhino.Client, d string) (any, error) {
			article, err := client.GetArticle(ctx, d)
			if err != nil {
				return nil, err
			}
			files := make(map[string][]string, len(article.Assets))
			for _, assetDOI := range article.AssetDOIs() {
				files[assetDOI] = article.Assets[assetDOI].AFIDs()
			}
			return files, nil
		})
}

// newInspectCmd returns a read-only command printing one record per DOI
// argument, keyed by DOI. Failures are reported on stderr and reflected in
// the exit code the same way as packaging failures.
func newInspectCmd(flags *rootFlags, use, short string, articleOnly bool, fetch fetchFunc) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != outputYAML && output != outputJSON {
				return fault.New(fault.Configuration, "invalid output format '%s'", output)
			}
			log, err := flags.setup(cmd)
			if err != nil {
				return err
			}
			dois, err := parseArgs(args, flags.opts.Prefix, articleOnly)
			if err != nil {
				return err
			}

			client, err := rhino.NewClient(flags.opts, log)
			if err != nil {
				return err
			}

			records := map[string]any{}
			outcomes := make([]packager.Outcome, 0, len(dois))
			for _, d := range dois {
				record, err := fetch(cmd.Context(), client, d)
				if err != nil {
					err = fault.Scope(err, d, "")
					fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err)
				} else {
					records[d] = record
				}
				outcomes = append(outcomes, packager.Outcome{DOI: d, Err: err})
			}

			if len(records) > 0 {
				if err := printRecords(cmd.OutOrStdout(), output, records); err != nil {
					return err
				}
			}
			if code := packager.ExitCode(outcomes); code != packager.ExitOK {
				return &exitError{code: code}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", outputYAML,
		"The output format, 'yaml' or 'json'.")
	return cmd
}

// parseArgs normalizes the arguments into DOIs. With articleOnly set,
// asset DOIs are rejected.
func parseArgs(args []string, prefix string, articleOnly bool) ([]string, error) {
	dois := make([]string, 0, len(args))
	for _, arg := range args {
		input := doi.Normalize(arg, prefix)
		id, err := doi.ParseDOI(input)
		if err != nil {
			return nil, fault.Wrap(fault.Configuration, err, "invalid argument '%s'", arg)
		}
		if articleOnly && !id.IsRoot() {
			return nil, fault.New(fault.Configuration, "argument '%s' is not an article DOI", arg)
		}
		dois = append(dois, input)
	}
	return dois, nil
}

func printRecords(w io.Writer, output string, records map[string]any) error {
	var (
		b   []byte
		err error
	)
	if output == outputJSON {
		b, err = json.MarshalIndent(records, "", "  ")
		b = append(b, '\n')
	} else {
		b, err = yaml.Marshal(records)
	}
	if err != nil {
		return fault.Wrap(fault.Protocol, err, "failed to encode records")
	}
	_, err = w.Write(b)
	return err
}

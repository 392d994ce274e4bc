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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ambraproject/rhino-pack/packager"
	"github.com/ambraproject/rhino-pack/rhino"
)

func addPackageFlags(cmd *cobra.Command, flags *rootFlags) {
	var report string
	cmd.Flags().StringVar(&report, "report", "",
		"Write a report of the run to the given path, as JSON when it ends with '.json' and YAML otherwise.")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runPackage(cmd, flags, report, args)
	}
}

func runPackage(cmd *cobra.Command, flags *rootFlags, report string, args []string) error {
	log, err := flags.setup(cmd)
	if err != nil {
		return err
	}

	inputs, err := parseArgs(args, flags.opts.Prefix, true)
	if err != nil {
		return err
	}

	client, err := rhino.NewClient(flags.opts, log)
	if err != nil {
		return err
	}
	outcomes := packager.New(client, flags.opts, log).Batch(cmd.Context(), inputs)
	for _, o := range outcomes {
		fmt.Fprintln(cmd.OutOrStdout(), o)
	}

	if report != "" {
		if err := packager.WriteReport(report, outcomes); err != nil {
			log.Error(err, "failed to write report", "path", report)
		}
	}

	if code := packager.ExitCode(outcomes); code != packager.ExitOK {
		return &exitError{code: code}
	}
	return nil
}

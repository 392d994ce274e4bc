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
)

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <archive>...",
		Short: "Check that archives carry a valid manifest listing exactly their entries",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outcomes := make([]packager.Outcome, 0, len(args))
			for _, path := range args {
				_, err := packager.Verify(path)
				outcomes = append(outcomes, packager.Outcome{DOI: path, Err: err})
			}
			for _, o := range outcomes {
				fmt.Fprintln(cmd.OutOrStdout(), o)
			}
			if code := packager.ExitCode(outcomes); code != packager.ExitOK {
				return &exitError{code: code}
			}
			return nil
		},
	}
}

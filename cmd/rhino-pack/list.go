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
	"regexp"

	"github.com/spf13/cobra"

	"github.com/ambraproject/rhino-pack/fault"
	"github.com/ambraproject/rhino-pack/packager"
	"github.com/ambraproject/rhino-pack/rhino"
)

func newListCmd(flags *rootFlags) *cobra.Command {
	var filter string

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the article DOIs published on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := flags.setup(cmd)
			if err != nil {
				return err
			}

			var opts rhino.ListOptions
			if filter != "" {
				re, err := regexp.Compile(filter)
				if err != nil {
					return fault.Wrap(fault.Configuration, err, "invalid filter '%s'", filter)
				}
				opts.Filter = re
			}

			client, err := rhino.NewClient(flags.opts, log)
			if err != nil {
				return err
			}
			dois, err := client.ListArticles(cmd.Context(), opts)
			if err != nil {
				if fault.KindOf(err) == fault.Configuration {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err)
				return &exitError{code: packager.ExitFailed}
			}
			for _, d := range dois {
				fmt.Fprintln(cmd.OutOrStdout(), d)
			}
			return nil
		},
	}
	listCmd.Flags().StringVar(&filter, "filter", "",
		"Only list DOIs matching the given regular expression.")
	return listCmd
}

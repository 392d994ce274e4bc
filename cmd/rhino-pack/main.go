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
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/ambraproject/rhino-pack/config"
	"github.com/ambraproject/rhino-pack/fault"
	"github.com/ambraproject/rhino-pack/logger"
	"github.com/ambraproject/rhino-pack/packager"
)

// rootFlags holds the flags shared by every command.
type rootFlags struct {
	opts    config.Options
	logOpts logger.Options
}

// exitError carries the exit code of a run whose outcome has already been
// reported on stdout.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:   "rhino-pack [flags] <stem|doi>...",
		Short: "Package Rhino articles into ingestible archives",
		Long: `Fetch the metadata and asset files of articles from a Rhino server and
write one reproducible ingestible archive per article.

Articles are given as full DOIs, 'info:doi/' URIs or stems such as
'pone.0038869', which are expanded with the DOI prefix. Exit code is 0 when
every article was packaged, 2 when some failed, 3 when all failed and 1 on
invalid configuration.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags.opts.BindFlags(rootCmd.PersistentFlags())
	flags.logOpts.BindFlags(rootCmd.PersistentFlags())

	addPackageFlags(rootCmd, flags)
	rootCmd.AddCommand(
		newListCmd(flags),
		newMetaCmd(flags),
		newAssetMetaCmd(flags),
		newAssetFilesCmd(flags),
		newVerifyCmd(),
	)
	return rootCmd
}

// setup validates the shared flags and builds the logger. Every error it
// returns is a Configuration error.
func (f *rootFlags) setup(cmd *cobra.Command) (logr.Logger, error) {
	if err := f.opts.ApplyFlags(cmd.Flags()); err != nil {
		return logr.Discard(), fault.Wrap(fault.Configuration, err, "invalid flags")
	}
	log, err := logger.NewLogger(f.logOpts, cmd.ErrOrStderr())
	if err != nil {
		return logr.Discard(), fault.Wrap(fault.Configuration, err, "invalid logger options")
	}
	if err := f.opts.Validate(); err != nil {
		return logr.Discard(), err
	}
	return log, nil
}

func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return packager.ExitConfiguration
}

func setupSignalHandler() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func main() {
	ctx, cancel := setupSignalHandler()

	err := newRootCmd().ExecuteContext(ctx)
	cancel()
	if err != nil {
		var ee *exitError
		if !errors.As(err, &ee) {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(exitCode(err))
	}
}

// Package cmds builds the regiondump command tree
package cmds

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"regiondump/config"
	"regiondump/process"
	"regiondump/process_platform"

	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X regiondump/cmd/regiondump/cmds.Version=..."
var Version = "dev"

const regiondumpLongDesc = `regiondump copies the readable memory regions of a running process into a
dump file, one record per region with its base address, size, protection and
hex encoded contents.

Defaults for the dump command are read from $HOME/.regiondump/config.yml when
that file exists.`

// Exit codes
const (
	exitOK      = 0
	exitFatal   = 1
	exitPartial = 2
)

// partialError reports a run whose output was written but is incomplete
type partialError struct {
	err error
}

func (e *partialError) Error() string {
	return e.err.Error()
}

func (e *partialError) Unwrap() error {
	return e.err
}

// newBackend is replaced in tests
var newBackend = process_platform.New

type app struct {
	configPath string
	conf       *config.Config

	// backendErr is ErrUnsupportedPlatform when this build has no native
	// backend. Commands that only read dump files still work then.
	backend    process.Backend
	backendErr error
}

// liveBackend returns the native backend resolved at startup
func (a *app) liveBackend() (process.Backend, error) {
	return a.backend, a.backendErr
}

// New returns the root command
func New() *cobra.Command {
	a := &app{}

	rootCommand := &cobra.Command{
		Use:           "regiondump",
		Short:         "Dump the readable memory of a process.",
		Long:          regiondumpLongDesc,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			conf, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			a.conf = conf
			a.backend, a.backendErr = newBackend()
			return nil
		},
	}
	rootCommand.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (default $HOME/.regiondump/config.yml).")

	rootCommand.AddCommand(
		a.dumpCommand(),
		a.regionsCommand(),
		a.inspectCommand(),
		versionCommand(),
	)

	return rootCommand
}

// Execute runs the command line and returns the process exit code
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := New()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}

	fmt.Fprintln(stderr, "Error:", err)

	var partial *partialError
	if errors.As(err, &partial) {
		return exitPartial
	}
	return exitFatal
}

func parsePID(s string) (process.ProcessID, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid pid %q", s)
	}
	pid := process.ProcessID(n)
	if !pid.Valid() {
		return 0, fmt.Errorf("%w: invalid pid %d", process.ErrNoSuchProcess, n)
	}
	return pid, nil
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Prints version.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "regiondump version: %s\n", Version)
		},
	}
}

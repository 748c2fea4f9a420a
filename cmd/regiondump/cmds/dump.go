package cmds

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"regiondump/dump"
	"regiondump/format"
	"regiondump/persist"
	"regiondump/process"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

type dumpFlags struct {
	output        string
	format        string
	maxRegionSize sizeValue
	parallel      int
	compress      bool
	name          string
}

func (a *app) dumpCommand() *cobra.Command {
	var f dumpFlags

	cmd := &cobra.Command{
		Use:   "dump [pid]",
		Short: "Dump the readable memory regions of a process.",
		Long: `Lists the readable memory regions of the process, copies each one and writes
them to a single dump file. Regions that cannot be read are kept in the file
with the error instead of data.

The process is given by pid or with --name. The output format follows -f, or
the extension of the output file. A .zst suffix compresses the file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDump(cmd, args, &f)
		},
	}

	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Output file, {pid} is replaced with the pid (default from config).")
	cmd.Flags().StringVarP(&f.format, "format", "f", "", "Output format: "+strings.Join(format.Names(), ", ")+".")
	cmd.Flags().Var(&f.maxRegionSize, "max-region-size", "Skip regions larger than this, e.g. 100MB.")
	cmd.Flags().IntVar(&f.parallel, "parallel", 0, "Number of concurrent region readers (default from config).")
	cmd.Flags().BoolVar(&f.compress, "compress", false, "Compress the output with zstd.")
	cmd.Flags().StringVar(&f.name, "name", "", "Dump the single process with this name instead of a pid.")

	return cmd
}

func (a *app) targetPID(args []string, name string) (process.ProcessID, error) {
	switch {
	case len(args) == 1 && name != "":
		return 0, errors.New("give either a pid or --name, not both")
	case len(args) == 1:
		return parsePID(args[0])
	case name != "":
		return dump.FindByName(name)
	default:
		return 0, errors.New("a pid or --name is required")
	}
}

// codecFor picks the format from the flag, then the file extension, then
// the configuration.
func codecFor(flag, path, configured string) (format.Codec, error) {
	if flag != "" {
		return format.Lookup(flag)
	}
	if c, err := format.ForPath(path); err == nil {
		return c, nil
	}
	return format.Lookup(configured)
}

func (a *app) runDump(cmd *cobra.Command, args []string, f *dumpFlags) error {
	backend, err := a.liveBackend()
	if err != nil {
		return err
	}

	pid, err := a.targetPID(args, f.name)
	if err != nil {
		return err
	}

	opts := dump.Options{Parallel: a.conf.Parallel}
	if opts.MaxRegionSize, err = a.conf.MaxRegionBytes(); err != nil {
		return err
	}
	if cmd.Flags().Changed("max-region-size") {
		opts.MaxRegionSize = uint64(f.maxRegionSize)
	}
	if cmd.Flags().Changed("parallel") {
		opts.Parallel = f.parallel
	}

	output := f.output
	if output == "" {
		output = a.conf.Output
	}
	output = strings.ReplaceAll(output, "{pid}", strconv.Itoa(int(pid)))

	codec, err := codecFor(f.format, output, a.conf.Format)
	if err != nil {
		return err
	}
	compress := f.compress || a.conf.Compress || persist.Compressed(output)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	res, runErr := dump.Run(ctx, backend, pid, opts)
	if res == nil {
		return runErr
	}

	doc := res.Document(dump.Describe(pid), backend.Name())
	err = persist.WriteFile(output, compress, func(w io.Writer) error {
		return codec.Encode(w, doc)
	})
	if err != nil {
		return fmt.Errorf("writing %s: %w", output, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Wrote %d regions (%s) of process %d to %s\n", len(res.Regions), humanize.Bytes(res.Stats.Bytes), pid, output)
	fmt.Fprintln(out, res.Stats)
	for _, failed := range res.Failed {
		fmt.Fprintf(out, "  unreadable: %v\n", &failed)
	}

	switch {
	case runErr != nil:
		return &partialError{runErr}
	case res.EnumerationErr != nil:
		return &partialError{res.EnumerationErr}
	}
	return nil
}

package cmds

import (
	"fmt"

	"regiondump/format"
	"regiondump/hexdump"
	"regiondump/process"
	"regiondump/process_blob"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func (a *app) inspectCommand() *cobra.Command {
	var (
		addr  string
		size  = sizeValue(256)
		lines int
	)

	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Summarize a dump file or hexdump a range of it.",
		Long: `Without --addr, prints the process and the regions recorded in the dump.
With --addr, prints a hex view of --size bytes starting at that address, cut
short at the end of the bytes captured for its region.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snapshot, err := process_blob.Load(args[0])
			if err != nil {
				return err
			}

			if addr == "" {
				return summarize(cmd, snapshot)
			}

			start, err := format.ParseAddress(addr)
			if err != nil {
				return err
			}
			at := process.ProcessMemoryAddress(start)
			n := uint64(size)
			if captured := snapshot.Captured(at); captured > 0 && captured < n {
				n = captured
			}

			data, err := snapshot.ReadMemory(at, n)
			if err != nil {
				return err
			}

			options := hexdump.DefaultOptions()
			options.StartOffset = start
			options.MaxLines = lines
			return hexdump.DumpToWriter(cmd.OutOrStdout(), data, options)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Address to hexdump, hex with or without 0x.")
	cmd.Flags().Var(&size, "size", "Number of bytes to hexdump.")
	cmd.Flags().IntVar(&lines, "lines", 0, "Stop the hex view after this many lines, 0 for no limit.")

	return cmd
}

func summarize(cmd *cobra.Command, snapshot *process_blob.ProcessDump) error {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "PID: %d\n", snapshot.PID)
	if snapshot.ProcessName != "" {
		fmt.Fprintf(out, "Name: %s\n", snapshot.ProcessName)
	}
	fmt.Fprintf(out, "Platform: %s\n", snapshot.Platform)
	if msg := snapshot.EnumerationError(); msg != "" {
		fmt.Fprintf(out, "Enumeration stopped early: %s\n", msg)
	}

	regions := snapshot.Regions()
	fmt.Fprintf(out, "Regions: %d\n", len(regions))

	for _, r := range regions {
		fmt.Fprintf(out, "  %016x-%016x %-5s %10s", r.Address, r.End(), r.Protection, humanize.IBytes(r.Size))
		switch blob, ok := snapshot.Blob(r.Address); {
		case ok && uint64(len(blob.Data())) < r.Size:
			fmt.Fprintf(out, "  short read, %s captured\n", humanize.IBytes(uint64(len(blob.Data()))))
		case ok:
			fmt.Fprintln(out)
		default:
			msg, _ := snapshot.ReadError(r.Address)
			fmt.Fprintf(out, "  unreadable: %s\n", msg)
		}
	}

	return nil
}

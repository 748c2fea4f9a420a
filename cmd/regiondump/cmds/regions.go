package cmds

import (
	"fmt"

	"regiondump/process"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func (a *app) regionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "regions <pid>",
		Short: "List the readable memory regions of a process.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := a.liveBackend()
			if err != nil {
				return err
			}

			pid, err := parsePID(args[0])
			if err != nil {
				return err
			}

			regions, err := process.ListRegions(backend, pid)
			if err != nil && len(regions) == 0 {
				return err
			}
			out := cmd.OutOrStdout()

			var total uint64
			for _, r := range regions {
				fmt.Fprintf(out, "%016x-%016x %-5s %10s\n", r.Address, r.End(), r.Protection, humanize.IBytes(r.Size))
				total += r.Size
			}
			fmt.Fprintf(out, "%d readable regions, %s\n", len(regions), humanize.IBytes(total))

			if err != nil {
				return &partialError{err}
			}
			return nil
		},
	}
}

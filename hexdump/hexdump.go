// Package hexdump renders memory as offset | hex | ascii lines
package hexdump

import (
	"bytes"
	"fmt"
	"io"
	"strings"
)

// HexDumpOptions defines options for customizing the hexdump output
type HexDumpOptions struct {
	// BytesPerLine defines the number of bytes to display per line
	BytesPerLine int

	// StartOffset is the address of the first byte
	StartOffset uint64

	// OffsetWidth is the width of the offset column in hex digits
	OffsetWidth int

	// MaxLines is the maximum number of lines to show (0 for no limit)
	MaxLines int

	// Collapse replaces runs of identical lines with a single "*"
	Collapse bool
}

// DefaultOptions returns the default hexdump options
func DefaultOptions() HexDumpOptions {
	return HexDumpOptions{
		BytesPerLine: 16,
		OffsetWidth:  16,
		Collapse:     true,
	}
}

// DumpToWriter writes a hex dump of the given data to the specified writer
func DumpToWriter(writer io.Writer, data []byte, options HexDumpOptions) error {
	if options.BytesPerLine <= 0 {
		options.BytesPerLine = 16
	}
	if options.OffsetWidth <= 0 {
		options.OffsetWidth = 8
	}

	var (
		previous  []byte
		collapsed bool
		lineCount int
	)
	for offset := 0; offset < len(data); offset += options.BytesPerLine {
		end := min(offset+options.BytesPerLine, len(data))
		line := data[offset:end]

		// The last line is always printed so the dump shows where it ends.
		if options.Collapse && end < len(data) && bytes.Equal(line, previous) {
			if !collapsed {
				if _, err := fmt.Fprintln(writer, "*"); err != nil {
					return err
				}
				collapsed = true
			}
			continue
		}
		previous = line
		collapsed = false

		if options.MaxLines > 0 && lineCount >= options.MaxLines {
			_, err := fmt.Fprintf(writer, "... %d more bytes\n", len(data)-offset)
			return err
		}

		if _, err := io.WriteString(writer, formatLine(line, options.StartOffset+uint64(offset), options)); err != nil {
			return err
		}
		lineCount++
	}

	return nil
}

// formatLine formats a single line of the hex dump
func formatLine(data []byte, offset uint64, options HexDumpOptions) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%0*x  ", options.OffsetWidth, offset)

	half := options.BytesPerLine / 2
	for i := 0; i < options.BytesPerLine; i++ {
		if i > 0 {
			if i == half && options.BytesPerLine >= 8 {
				sb.WriteString(" | ")
			} else {
				sb.WriteByte(' ')
			}
		}
		if i < len(data) {
			fmt.Fprintf(&sb, "%02x", data[i])
		} else {
			sb.WriteString("  ")
		}
	}

	sb.WriteString(" |")
	for _, b := range data {
		if b >= 0x20 && b < 0x7f {
			sb.WriteByte(b)
		} else {
			sb.WriteByte('.')
		}
	}
	sb.WriteString("|\n")

	return sb.String()
}

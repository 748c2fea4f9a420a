package hexdump

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dump(t *testing.T, data []byte, options HexDumpOptions) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, DumpToWriter(&buf, data, options))
	return buf.String()
}

func dumpAt(t *testing.T, data []byte, start uint64) string {
	t.Helper()
	options := DefaultOptions()
	options.StartOffset = start
	return dump(t, data, options)
}

func TestDumpLine(t *testing.T) {
	out := dumpAt(t, []byte("Hello, World!\x00\x01\x02"), 0x7f00)

	want := "0000000000007f00  48 65 6c 6c 6f 2c 20 57 | 6f 72 6c 64 21 00 01 02 |Hello, World!...|\n"
	assert.Equal(t, want, out)
}

func TestDumpShortLinePadding(t *testing.T) {
	out := dump(t, []byte("ab"), HexDumpOptions{BytesPerLine: 8, OffsetWidth: 4})

	assert.Equal(t, "0000  61 62       |             |ab|\n", out)
}

func TestDumpCollapsesRepeatedLines(t *testing.T) {
	data := append(make([]byte, 64), 'x')
	lines := strings.Split(strings.TrimSuffix(dumpAt(t, data, 0x1000), "\n"), "\n")

	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "0000000000001000"))
	assert.Equal(t, "*", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "0000000000001040"))
}

func TestDumpKeepsLastRepeatedLine(t *testing.T) {
	lines := strings.Split(strings.TrimSuffix(dumpAt(t, make([]byte, 48), 0), "\n"), "\n")

	require.Len(t, lines, 3)
	assert.Equal(t, "*", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "0000000000000020"))
}

func TestDumpMaxLines(t *testing.T) {
	var buf bytes.Buffer
	data := bytes.Repeat([]byte("0123456789abcdef"), 2)
	data = append(data, []byte("tail")...)

	err := DumpToWriter(&buf, data, HexDumpOptions{BytesPerLine: 16, MaxLines: 1})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(buf.String(), "... 20 more bytes\n"))
}

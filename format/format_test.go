package format

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"regiondump/process/memory_map"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDocument() *Document {
	ro := memory_map.MemoryRegion{Address: 0x7f0000000000, Size: 8, Protection: memory_map.ProtRead | memory_map.ProtPrivate}
	rw := memory_map.MemoryRegion{Address: 0x7f0000001000, Size: 4096, Protection: memory_map.ProtRead | memory_map.ProtWrite | memory_map.ProtPrivate}

	return &Document{
		PID:      4242,
		Name:     "target",
		Platform: "linux",
		Regions: []Record{
			NewRecord(ro, []byte{0xde, 0xad, 0xbe, 0xef}),
			FailedRecord(rw, errors.New("region read failed: bad address")),
		},
	}
}

func TestLookup(t *testing.T) {
	c, err := Lookup("")
	require.NoError(t, err)
	assert.Equal(t, "json", c.Name())

	c, err = Lookup("YAML")
	require.NoError(t, err)
	assert.Equal(t, "yaml", c.Name())

	_, err = Lookup("xml")
	require.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.Contains(t, err.Error(), "json, yaml")
}

func TestForPath(t *testing.T) {
	for path, want := range map[string]string{
		"dump.json":     "json",
		"dump.json.zst": "json",
		"out/dump.yml":  "yaml",
		"DUMP.YAML":     "yaml",
	} {
		c, err := ForPath(path)
		require.NoError(t, err, path)
		assert.Equal(t, want, c.Name(), path)
	}

	_, err := ForPath("dump.bin")
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestJSONLayout(t *testing.T) {
	c, err := Lookup("json")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, c.Encode(&buf, testDocument()))

	out := buf.String()
	assert.Contains(t, out, `"base_address": "0x7f0000000000"`)
	assert.Contains(t, out, `"data": "deadbeef"`)
	assert.Contains(t, out, `"error": "region read failed: bad address"`)
	// an unreadable record carries no data key at all
	assert.Equal(t, 1, strings.Count(out, `"data"`))
}

func TestCodecsDecodeWhatTheyEncode(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			c, err := Lookup(name)
			require.NoError(t, err)

			var buf bytes.Buffer
			require.NoError(t, c.Encode(&buf, testDocument()))

			doc, err := c.Decode(&buf)
			require.NoError(t, err)
			assert.Equal(t, testDocument(), doc)
		})
	}
}

func TestRecordDecode(t *testing.T) {
	rec := testDocument().Regions[0]

	region, err := rec.Region()
	require.NoError(t, err)
	assert.Equal(t, uint64(0x7f0000000000), region.Address)
	assert.Equal(t, "r--p", region.Protection.String())

	data, err := rec.Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, data)
	assert.False(t, rec.Unreadable())
	assert.True(t, testDocument().Regions[1].Unreadable())

	rec.Data = "zz"
	_, err = rec.Bytes()
	require.Error(t, err)

	rec.Data = strings.Repeat("00", 9)
	_, err = rec.Bytes()
	require.Error(t, err, "more data than the region holds")

	rec.Size = 0
	_, err = rec.Region()
	require.Error(t, err)
}

func TestParseAddress(t *testing.T) {
	for in, want := range map[string]uint64{
		"0x1000":           0x1000,
		"7ffd0000":         0x7ffd0000,
		"0XFFFFFFFFFFFFF0": 0xFFFFFFFFFFFFF0,
	} {
		got, err := ParseAddress(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseAddress("0xnope")
	require.Error(t, err)
}

package process_blob

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"regiondump/dump"
	"regiondump/format"
	"regiondump/persist"
	"regiondump/process"
	"regiondump/process/memory_map"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDocument() *format.Document {
	rw := memory_map.ProtRead | memory_map.ProtWrite | memory_map.ProtPrivate
	rx := memory_map.ProtRead | memory_map.ProtExecute | memory_map.ProtPrivate

	return &format.Document{
		PID:      1234,
		Name:     "target",
		Platform: "linux",
		Regions: []format.Record{
			format.NewRecord(memory_map.MemoryRegion{Address: 0x400000, Size: 8, Protection: rx}, []byte("\x7fELF\x02\x01\x01\x00")),
			format.FailedRecord(memory_map.MemoryRegion{Address: 0x600000, Size: 0x1000, Protection: rw}, process.ErrReadFailed),
			format.NewRecord(memory_map.MemoryRegion{Address: 0x7ff000, Size: 16, Protection: rw}, []byte("0123456789")),
		},
	}
}

func TestFromDocument(t *testing.T) {
	p, err := FromDocument(testDocument())
	require.NoError(t, err)

	assert.Equal(t, process.ProcessID(1234), p.PID)
	assert.Equal(t, "target", p.ProcessName)
	assert.Len(t, p.Regions(), 3)

	msg, ok := p.ReadError(0x600000)
	require.True(t, ok)
	assert.Equal(t, process.ErrReadFailed.Error(), msg)

	blob, ok := p.Blob(0x400000)
	require.True(t, ok)
	assert.Equal(t, []byte("\x7fELF\x02\x01\x01\x00"), blob.Data())
}

func TestFromDocumentRejectsOverlap(t *testing.T) {
	doc := testDocument()
	doc.Regions[0].Size = 0x300000

	_, err := FromDocument(doc)
	assert.ErrorContains(t, err, "overlap")
}

func TestReadMemory(t *testing.T) {
	p, err := FromDocument(testDocument())
	require.NoError(t, err)

	data, err := p.ReadMemory(0x400001, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte("ELF"), data)

	data, err = p.ReadMemory(0x7ff000, 10)
	require.NoError(t, err)
	assert.Equal(t, []byte("0123456789"), data)

	// Only ten of the sixteen bytes were captured.
	_, err = p.ReadMemory(0x7ff008, 4)
	assert.Error(t, err)

	_, err = p.ReadMemory(0x600010, 4)
	assert.ErrorIs(t, err, process.ErrReadFailed)

	_, err = p.ReadMemory(0x500000, 1)
	assert.ErrorContains(t, err, "not in any region")
}

func TestCaptured(t *testing.T) {
	p, err := FromDocument(testDocument())
	require.NoError(t, err)

	assert.Equal(t, uint64(8), p.Captured(0x400000))
	assert.Equal(t, uint64(3), p.Captured(0x7ff007))
	// Past the ten captured bytes but still inside the region.
	assert.Zero(t, p.Captured(0x7ff00a))
	assert.Zero(t, p.Captured(0x600000))
	assert.Zero(t, p.Captured(0x500000))
}

func TestOpen(t *testing.T) {
	p, err := FromDocument(testDocument())
	require.NoError(t, err)

	_, err = p.Open(1)
	assert.ErrorIs(t, err, process.ErrNoSuchProcess)

	h, err := p.Open(1234)
	require.NoError(t, err)
	require.NoError(t, h.Close())
	assert.ErrorIs(t, h.Close(), process.ErrProcessNotOpen)

	_, err = p.ListRegions(h)
	assert.ErrorIs(t, err, process.ErrProcessNotOpen)
}

func TestListRegionsReplaysEnumerationError(t *testing.T) {
	doc := testDocument()
	doc.EnumerationError = "region enumeration failed at 0x800000: boom"
	p, err := FromDocument(doc)
	require.NoError(t, err)

	regions, err := process.ListRegions(p, 1234)
	assert.ErrorIs(t, err, process.ErrEnumerationFailed)
	assert.Len(t, regions, 3)
}

// A dump of a dump is the same dump.
func TestDumpRoundTrip(t *testing.T) {
	p, err := FromDocument(testDocument())
	require.NoError(t, err)

	res, err := dump.Run(context.Background(), p, p.PID, dump.Options{Parallel: 2})
	require.NoError(t, err)
	require.Len(t, res.Regions, 2)
	require.Len(t, res.Failed, 1)

	doc := res.Document(p.ProcessName, p.Platform)
	if diff := cmp.Diff(testDocument(), doc, cmp.FilterPath(func(path cmp.Path) bool {
		return path.Last().String() == ".Error"
	}, cmp.Ignore())); diff != "" {
		t.Errorf("document mismatch (-want +got):\n%s", diff)
	}

	for _, name := range []string{"dump.json.zst", "dump.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			codec, err := format.ForPath(path)
			require.NoError(t, err)

			require.NoError(t, persist.WriteFile(path, persist.Compressed(path), func(w io.Writer) error {
				return codec.Encode(w, doc)
			}))

			loaded, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, p.Regions(), loaded.Regions())
			assert.Equal(t, "target", loaded.ProcessName)

			data, err := loaded.ReadMemory(0x7ff002, 3)
			require.NoError(t, err)
			assert.Equal(t, []byte("234"), data)
		})
	}
}

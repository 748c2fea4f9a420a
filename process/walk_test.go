package process

import (
	"errors"
	"testing"

	"regiondump/process/memory_map"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	r  = memory_map.ProtRead | memory_map.ProtPrivate
	rw = memory_map.ProtRead | memory_map.ProtWrite | memory_map.ProtPrivate
	x  = memory_map.ProtExecute | memory_map.ProtPrivate
)

func region(addr, size uint64, prot memory_map.Protection) memory_map.MemoryRegion {
	return memory_map.MemoryRegion{Address: addr, Size: size, Protection: prot}
}

func TestWalkRegionsKeepsReadableInOrder(t *testing.T) {
	snapshot := []memory_map.MemoryRegion{
		region(0x1000, 0x1000, r),
		region(0x2000, 0x1000, x),
		region(0x8000, 0x4000, rw),
	}

	regions, err := WalkRegions(SnapshotQuery(snapshot, nil))
	require.NoError(t, err)

	want := []memory_map.MemoryRegion{snapshot[0], snapshot[2]}
	if diff := cmp.Diff(want, regions); diff != "" {
		t.Errorf("WalkRegions mismatch (-want +got):\n%s", diff)
	}
}

func TestWalkRegionsEmpty(t *testing.T) {
	regions, err := WalkRegions(SnapshotQuery(nil, nil))
	require.NoError(t, err)
	assert.Empty(t, regions)
}

func TestWalkRegionsQueryFailure(t *testing.T) {
	boom := errors.New("query failed")
	snapshot := []memory_map.MemoryRegion{region(0x1000, 0x1000, r)}

	regions, err := WalkRegions(SnapshotQuery(snapshot, boom))
	require.ErrorIs(t, err, ErrEnumerationFailed)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, snapshot, regions)
}

func TestWalkRegionsRejectsBackwardsRegion(t *testing.T) {
	calls := 0
	query := func(addr uint64) (memory_map.MemoryRegion, bool, error) {
		calls++
		if calls == 1 {
			return region(0x4000, 0x1000, r), true, nil
		}
		return region(0x1000, 0x1000, r), true, nil
	}

	regions, err := WalkRegions(query)
	require.ErrorIs(t, err, ErrEnumerationFailed)
	assert.Len(t, regions, 1)
}

func TestWalkRegionsRejectsEmptyRegion(t *testing.T) {
	query := func(addr uint64) (memory_map.MemoryRegion, bool, error) {
		return region(addr, 0, r), true, nil
	}

	_, err := WalkRegions(query)
	assert.ErrorIs(t, err, ErrEnumerationFailed)
}

type fakeHandle struct {
	closes int
}

func (h *fakeHandle) PID() ProcessID { return 1 }

func (h *fakeHandle) Close() error {
	h.closes++
	return nil
}

type fakeBackend struct {
	handle  *fakeHandle
	regions []memory_map.MemoryRegion
	err     error
}

func (b *fakeBackend) Name() string      { return "fake" }
func (b *fakeBackend) SharedReads() bool { return true }
func (b *fakeBackend) Open(ProcessID) (Handle, error) {
	b.handle = &fakeHandle{}
	return b.handle, nil
}

func (b *fakeBackend) ListRegions(Handle) ([]memory_map.MemoryRegion, error) {
	return b.regions, b.err
}

func (b *fakeBackend) ReadRegion(Handle, memory_map.MemoryRegion) (RegionContent, error) {
	return RegionContent{}, ErrReadFailed
}

func TestListRegionsClosesHandle(t *testing.T) {
	b := &fakeBackend{regions: []memory_map.MemoryRegion{region(0x1000, 0x1000, r)}}

	regions, err := ListRegions(b, 1)
	require.NoError(t, err)
	assert.Len(t, regions, 1)
	assert.Equal(t, 1, b.handle.closes)

	b.err = ErrEnumerationFailed
	_, err = ListRegions(b, 1)
	assert.ErrorIs(t, err, ErrEnumerationFailed)
	assert.Equal(t, 1, b.handle.closes)
}

func TestCheckRegion(t *testing.T) {
	assert.NoError(t, CheckRegion(region(0x1000, 0x1000, r)))
	assert.ErrorIs(t, CheckRegion(region(0x1000, 0, r)), ErrReadFailed)
}

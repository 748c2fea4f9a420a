package memory_map

import (
	"fmt"
	"sort"
	"strings"
)

// Protection is the decoded access rights of a memory region. Every platform
// backend translates its native flags into this set, nothing outside the
// backends looks at raw protection integers.
type Protection uint8

const (
	ProtRead Protection = 1 << iota
	ProtWrite
	ProtExecute
	ProtShared
	ProtPrivate
	// ProtGuard marks a guard page: mapped, but touching it faults.
	ProtGuard
)

// Has reports whether all flags in f are set
func (p Protection) Has(f Protection) bool {
	return p&f == f
}

// IsReadable reports whether the region can be copied out of the process
func (p Protection) IsReadable() bool {
	return p.Has(ProtRead) && !p.Has(ProtGuard)
}

// String renders the protection the way /proc/<pid>/maps does ("r-xp"),
// with a trailing "g" for guard pages.
func (p Protection) String() string {
	b := []byte("---")
	if p.Has(ProtRead) {
		b[0] = 'r'
	}
	if p.Has(ProtWrite) {
		b[1] = 'w'
	}
	if p.Has(ProtExecute) {
		b[2] = 'x'
	}
	switch {
	case p.Has(ProtShared):
		b = append(b, 's')
	case p.Has(ProtPrivate):
		b = append(b, 'p')
	default:
		b = append(b, '-')
	}
	if p.Has(ProtGuard) {
		b = append(b, 'g')
	}
	return string(b)
}

// ParseProtection is the inverse of Protection.String. It accepts the
// permission column of /proc/<pid>/maps.
func ParseProtection(perms string) (Protection, error) {
	if len(perms) < 3 {
		return 0, fmt.Errorf("permissions %q too short", perms)
	}

	var p Protection
	for i, want := range "rwx" {
		switch perms[i] {
		case byte(want):
			p |= Protection(1 << i)
		case '-':
		default:
			return 0, fmt.Errorf("permissions %q: unexpected %q at column %d", perms, perms[i], i)
		}
	}

	rest := perms[3:]
	if len(rest) > 0 {
		switch rest[0] {
		case 's':
			p |= ProtShared
		case 'p':
			p |= ProtPrivate
		case '-':
		default:
			return 0, fmt.Errorf("permissions %q: unexpected sharing flag %q", perms, rest[0])
		}
		rest = rest[1:]
	}
	if strings.HasPrefix(rest, "g") {
		p |= ProtGuard
	}

	return p, nil
}

// MemoryRegion represents a memory region in a process's address space
type MemoryRegion struct {
	Address    uint64     // The starting address of the memory region
	Size       uint64     // The size of the memory region in bytes
	Protection Protection // Access rights reported by the OS
}

// End returns the first address past the region
func (r MemoryRegion) End() uint64 {
	return r.Address + r.Size
}

// Valid reports whether the region is non-empty and does not wrap around the
// 64-bit address space.
func (r MemoryRegion) Valid() bool {
	return r.Size > 0 && r.Address+r.Size > r.Address
}

func (r MemoryRegion) Contains(addr uint64) bool {
	return addr >= r.Address && addr-r.Address < r.Size
}

func (r MemoryRegion) IsReadable() bool {
	return r.Protection.IsReadable()
}

// String returns a string representation of the memory region
func (r MemoryRegion) String() string {
	return fmt.Sprintf("%016x-%016x %s %d", r.Address, r.End(), r.Protection, r.Size)
}

// Find returns the region containing addr. regions must be sorted by
// address and must not overlap.
func Find(addr uint64, regions []MemoryRegion) (MemoryRegion, bool) {
	i := sort.Search(len(regions), func(i int) bool {
		return regions[i].End() > addr
	})
	if i < len(regions) && regions[i].Contains(addr) {
		return regions[i], true
	}
	return MemoryRegion{}, false
}

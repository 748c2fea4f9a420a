package memory_map

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ParseMaps parses the /proc/[pid]/maps format. On a malformed line it
// returns the regions parsed so far together with the error.
func ParseMaps(r io.Reader) ([]MemoryRegion, error) {
	var regions []MemoryRegion

	scanner := bufio.NewScanner(r)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		region, err := parseMapsLine(lineno, line)
		if err != nil {
			return regions, err
		}
		regions = append(regions, region)
	}

	if err := scanner.Err(); err != nil {
		return regions, err
	}

	return regions, nil
}

func parseMapsLine(lineno int, line string) (MemoryRegion, error) {
	// 00400000-0040b000 r-xp 00000000 08:02 173521      /usr/bin/dbus-daemon
	fields := strings.Fields(line)
	if len(fields) < 5 {
		return MemoryRegion{}, fmt.Errorf("malformed maps line %d: %q (wrong number of fields)", lineno, line)
	}

	addrRange := strings.Split(fields[0], "-")
	if len(addrRange) != 2 {
		return MemoryRegion{}, fmt.Errorf("malformed maps line %d: %q (bad address range)", lineno, line)
	}

	start, err := strconv.ParseUint(addrRange[0], 16, 64)
	if err != nil {
		return MemoryRegion{}, fmt.Errorf("malformed maps line %d: %q (%v)", lineno, line, err)
	}
	end, err := strconv.ParseUint(addrRange[1], 16, 64)
	if err != nil {
		return MemoryRegion{}, fmt.Errorf("malformed maps line %d: %q (%v)", lineno, line, err)
	}
	if end <= start {
		return MemoryRegion{}, fmt.Errorf("malformed maps line %d: %q (end before start)", lineno, line)
	}

	prot, err := ParseProtection(fields[1])
	if err != nil {
		return MemoryRegion{}, fmt.Errorf("malformed maps line %d: %w", lineno, err)
	}

	return MemoryRegion{
		Address:    start,
		Size:       end - start,
		Protection: prot,
	}, nil
}

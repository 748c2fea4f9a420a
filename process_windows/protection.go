package process_windows

import "regiondump/process/memory_map"

// MEMORY_BASIC_INFORMATION State, Protect and Type values
const (
	memCommit  = 0x1000
	memReserve = 0x2000
	memFree    = 0x10000

	memPrivate = 0x20000
	memMapped  = 0x40000
	memImage   = 0x1000000

	pageNoAccess         = 0x01
	pageReadOnly         = 0x02
	pageReadWrite        = 0x04
	pageWriteCopy        = 0x08
	pageExecute          = 0x10
	pageExecuteRead      = 0x20
	pageExecuteReadWrite = 0x40
	pageExecuteWriteCopy = 0x80

	pageGuard = 0x100
)

// decodeProtection translates the State, Protect and Type fields of a
// MEMORY_BASIC_INFORMATION. Free and reserved ranges carry no rights.
func decodeProtection(state, protect, typ uint32) memory_map.Protection {
	if state != memCommit {
		return 0
	}

	var p memory_map.Protection
	copyOnWrite := false

	switch protect & 0xff {
	case pageReadOnly:
		p = memory_map.ProtRead
	case pageReadWrite:
		p = memory_map.ProtRead | memory_map.ProtWrite
	case pageWriteCopy:
		p = memory_map.ProtRead | memory_map.ProtWrite
		copyOnWrite = true
	case pageExecute:
		p = memory_map.ProtExecute
	case pageExecuteRead:
		p = memory_map.ProtRead | memory_map.ProtExecute
	case pageExecuteReadWrite:
		p = memory_map.ProtRead | memory_map.ProtWrite | memory_map.ProtExecute
	case pageExecuteWriteCopy:
		p = memory_map.ProtRead | memory_map.ProtWrite | memory_map.ProtExecute
		copyOnWrite = true
	case pageNoAccess:
	}

	if protect&pageGuard != 0 {
		p |= memory_map.ProtGuard
	}

	switch {
	case typ == memPrivate || copyOnWrite:
		p |= memory_map.ProtPrivate
	case typ == memMapped || typ == memImage:
		p |= memory_map.ProtShared
	}

	return p
}

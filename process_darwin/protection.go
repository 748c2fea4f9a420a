package process_darwin

import "regiondump/process/memory_map"

// vm_prot_t bits
const (
	vmProtRead    = 0x1
	vmProtWrite   = 0x2
	vmProtExecute = 0x4
)

// vm_region_submap_info_64 share_mode values
const (
	smCOW            = 1
	smPrivate        = 2
	smEmpty          = 3
	smShared         = 4
	smTrueShared     = 5
	smPrivateAliased = 6
	smSharedAliased  = 7
	smLargePage      = 8
)

// decodeProtection translates the protection and share_mode fields of a
// vm_region_submap_info_64.
func decodeProtection(prot int32, shareMode uint8) memory_map.Protection {
	var p memory_map.Protection
	if prot&vmProtRead != 0 {
		p |= memory_map.ProtRead
	}
	if prot&vmProtWrite != 0 {
		p |= memory_map.ProtWrite
	}
	if prot&vmProtExecute != 0 {
		p |= memory_map.ProtExecute
	}

	switch shareMode {
	case smCOW, smPrivate, smPrivateAliased, smLargePage:
		p |= memory_map.ProtPrivate
	case smShared, smTrueShared, smSharedAliased:
		p |= memory_map.ProtShared
	}

	return p
}

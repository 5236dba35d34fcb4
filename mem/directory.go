package mem

// Directory is the per-address-space mapping structure the MMU walks: a
// two-level radix of page tables keyed by (chunk index, page-table index
// within chunk), each page table leaf-indexed by page index. It follows
// the same multi-level radix shape common to address-presence trackers
// generally, generalized from a single presence bit per leaf to a
// host-pointer-bearing *PageTable per leaf and sized by a mem.Profile
// instead of fixed-width levels.
type Directory struct {
	profile Profile
	alloc   PageTableAllocator

	numChunks      uint32
	tablesPerChunk uint32
	chunks         [][]*PageTable // chunks[chunkIndex][tableIndex]
}

// NewDirectory constructs an empty directory for the given profile. alloc
// is used to lazily vend page tables as chunks are first touched by
// InstallPage/InstallRegion; it is never consulted by Lookup.
func NewDirectory(p Profile, alloc PageTableAllocator) *Directory {
	numChunks := uint32(1)
	if p.ChunkShift < 32 {
		numChunks = uint32(1) << (32 - p.ChunkShift)
	}
	return &Directory{
		profile:        p,
		alloc:          alloc,
		numChunks:      numChunks,
		tablesPerChunk: uint32(1) << p.TablesPerChunkShift,
		chunks:         make([][]*PageTable, numChunks),
	}
}

// Lookup walks the directory for addr and returns the host pointer backing
// its page, plus the page offset that still needs to be added to it. A nil
// result (zero HostPtr) means the page is unmapped.
func (d *Directory) Lookup(addr VAddress) (HostPtr, uint32) {
	chunk, table, page, offset := d.profile.Decompose(addr)
	if chunk >= d.numChunks {
		return 0, offset
	}
	tables := d.chunks[chunk]
	if tables == nil || table >= uint32(len(tables)) || tables[table] == nil {
		return 0, offset
	}
	return tables[table].Get(page), offset
}

// tableFor returns the page table backing addr's (chunk, table) pair,
// allocating one on first touch when create is true. It returns nil if the
// table doesn't exist and create is false.
func (d *Directory) tableFor(chunk, table uint32, create bool) *PageTable {
	if chunk >= d.numChunks {
		return nil
	}
	if d.chunks[chunk] == nil {
		if !create {
			return nil
		}
		d.chunks[chunk] = make([]*PageTable, d.tablesPerChunk)
	}
	tables := d.chunks[chunk]
	if table >= uint32(len(tables)) {
		return nil
	}
	if tables[table] == nil {
		if !create {
			return nil
		}
		tables[table] = d.alloc.NewPageTable(d.profile)
	}
	return tables[table]
}

// InstallPage installs a single guest page -> host pointer mapping,
// allocating any page table needed to hold it.
func (d *Directory) InstallPage(addr VAddress, host HostPtr) {
	chunk, table, page, _ := d.profile.Decompose(addr)
	pt := d.tableFor(chunk, table, true)
	if pt == nil {
		return
	}
	pt.Set(page, host)
}

// InstallRegion installs a contiguous run of host-backed pages covering
// [addr, addr+size), assuming host is the host pointer for addr itself and
// the region is physically contiguous in host memory.
func (d *Directory) InstallRegion(addr VAddress, size uint32, host HostPtr) {
	pageSize := uint32(1) << d.profile.PageSizeBits
	for off := uint32(0); off < size; off += pageSize {
		d.InstallPage(addr+off, host+HostPtr(off))
	}
}

// UnmapRegion clears every page mapping covering [addr, addr+size). Page
// tables that become fully unused are left in place; UnmapRegion never
// frees them, mirroring the original MMU which never shrinks its directory
// since page tables are cheap relative to the lookups that would be needed
// to prove one is wholly empty.
func (d *Directory) UnmapRegion(addr VAddress, size uint32) {
	pageSize := uint32(1) << d.profile.PageSizeBits
	for off := uint32(0); off < size; off += pageSize {
		chunk, table, page, _ := d.profile.Decompose(addr + off)
		pt := d.tableFor(chunk, table, false)
		if pt != nil {
			pt.Set(page, 0)
		}
	}
}

// Teardown releases every page table this directory owns back to its
// allocator. The directory must not be used afterward.
func (d *Directory) Teardown() {
	for _, tables := range d.chunks {
		for _, pt := range tables {
			if pt != nil {
				d.alloc.Release(pt)
			}
		}
	}
	d.chunks = nil
}

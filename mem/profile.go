package mem

// Profile is a pre-computed constant set describing how a guest virtual
// address decomposes into (chunk index, page-table index within chunk,
// page index within table, page offset) for one page-size exponent.
//
// A Profile never changes after construction: different address spaces in
// the same process must share one page-size exponent, and there is no
// runtime switch between profiles.
type Profile struct {
	PageSizeBits uint

	OffsetMask uint32

	PageIndexShift uint
	PageIndexMask  uint32

	PageTableIndexShift uint
	PageTableIndexMask  uint32

	ChunkShift uint
	ChunkMask  uint32
	ChunkSize  uint64

	PagesPerTableShift uint
	TablesPerChunkShift uint
}

// profileFor derives a Profile from a page-size exponent, the number of
// pages a single page table covers (as a shift), and the number of page
// tables a single chunk covers (as a shift). ChunkSize = 1<<ChunkShift and
// OffsetMask = (1<<pageSizeBits)-1 hold by construction.
func profileFor(pageSizeBits, pagesPerTableShift, tablesPerChunkShift uint) Profile {
	pageTableIndexShift := pageSizeBits + pagesPerTableShift
	chunkShift := pageTableIndexShift + tablesPerChunkShift

	return Profile{
		PageSizeBits: pageSizeBits,

		OffsetMask: uint32(1<<pageSizeBits - 1),

		PageIndexShift: pageSizeBits,
		PageIndexMask:  uint32(1<<pagesPerTableShift - 1),

		PageTableIndexShift: pageTableIndexShift,
		PageTableIndexMask:  uint32(1<<tablesPerChunkShift - 1),

		ChunkShift: chunkShift,
		ChunkMask:  uint32(1<<chunkShift - 1),
		ChunkSize:  uint64(1) << chunkShift,

		PagesPerTableShift:  pagesPerTableShift,
		TablesPerChunkShift: tablesPerChunkShift,
	}
}

// Profile12 is the small-page (4 KiB) profile: 1024 pages per table, 16
// tables per chunk (a 64 MiB chunk).
var Profile12 = profileFor(12, 10, 4)

// Profile20 is the large-page (1 MiB) profile: 16 pages per table, 16
// tables per chunk (a 256 MiB chunk).
var Profile20 = profileFor(20, 4, 4)

// ProfileFor selects Profile20 for a 20-bit page size, and Profile12 for
// anything else (including the canonical 12-bit page size). §6 of the
// specification allows implementers to pick one fallback for unsupported
// exponents and document it; this implementation documents 12 bits as the
// fallback.
func ProfileFor(pageSizeBits uint) Profile {
	if pageSizeBits == 20 {
		return Profile20
	}
	return Profile12
}

// Decompose splits a guest virtual address into its chunk index,
// page-table index within that chunk, page index within that table, and
// page offset, according to p.
func (p Profile) Decompose(addr VAddress) (chunk, table, page uint32, offset uint32) {
	chunk = addr >> p.ChunkShift
	table = (addr >> p.PageTableIndexShift) & p.PageTableIndexMask
	page = (addr >> p.PageIndexShift) & p.PageIndexMask
	offset = addr & p.OffsetMask
	return
}

package flexible

import "github.com/avalonos/coreemu/mem"

// MemoryObject is a page-granular, lazily-committed block of host memory
// that can be mapped into more than one address space at once. Modeled
// after the original's memory_object: pages are reserved up front but only
// become resident (and visible to any mapping) once Commit is called on
// them, and Decommit releases them again without destroying the object.
type MemoryObject struct {
	pages     uint32
	host      mem.HostPtr
	backing   []byte // non-nil only when this object owns its own memory
	committed []bool
	clearByte byte
	external  bool
	mappings  []*Mapping
}

// NewMemoryObject reserves host memory for pageCount pages backed by host.
// If host is zero, the object allocates and owns its own backing memory,
// sized by pageSizeBits (external is false); otherwise it wraps memory
// owned by the caller.
func NewMemoryObject(host mem.HostPtr, pageCount uint32, clearByte byte, pageSizeBits uint) *MemoryObject {
	obj := &MemoryObject{
		pages:     pageCount,
		host:      host,
		committed: make([]bool, pageCount),
		clearByte: clearByte,
		external:  host != 0,
	}
	if host == 0 && pageCount > 0 {
		obj.backing = make([]byte, uint64(pageCount)<<pageSizeBits)
		for i := range obj.backing {
			obj.backing[i] = clearByte
		}
		obj.host = hostPointer(obj.backing)
	}
	return obj
}

// PageCount returns how many pages this object reserves.
func (m *MemoryObject) PageCount() uint32 { return m.pages }

// HostBase returns the host address backing page 0 of this object.
func (m *MemoryObject) HostBase() mem.HostPtr { return m.host }

// Commit marks [pageOffset, pageOffset+totalPages) resident and pushes the
// range into every attached mapping, installing it into the CPU fast path
// for mappings belonging to the currently active address space.
func (m *MemoryObject) Commit(pageOffset, totalPages uint32, prot mem.Prot) bool {
	if uint64(pageOffset)+uint64(totalPages) > uint64(m.pages) {
		return false
	}
	for i := pageOffset; i < pageOffset+totalPages; i++ {
		m.committed[i] = true
	}
	ok := true
	for _, mp := range m.mappings {
		if !mp.mapRange(m, pageOffset, totalPages, prot) {
			ok = false
		}
	}
	return ok
}

// Decommit marks [pageOffset, pageOffset+totalPages) no longer resident and
// removes the range from every attached mapping.
func (m *MemoryObject) Decommit(pageOffset, totalPages uint32) bool {
	if uint64(pageOffset)+uint64(totalPages) > uint64(m.pages) {
		return false
	}
	for i := pageOffset; i < pageOffset+totalPages; i++ {
		m.committed[i] = false
	}
	ok := true
	for _, mp := range m.mappings {
		if !mp.unmapRange(pageOffset, totalPages) {
			ok = false
		}
	}
	return ok
}

// attach registers layout as an observer of future commit/decommit calls.
// Returns false if layout is already attached.
func (m *MemoryObject) attach(layout *Mapping) bool {
	for _, mp := range m.mappings {
		if mp == layout {
			return false
		}
	}
	m.mappings = append(m.mappings, layout)
	return true
}

// detach removes layout from the object's observer list. Returns false if
// layout was never attached.
func (m *MemoryObject) detach(layout *Mapping) bool {
	for i, mp := range m.mappings {
		if mp == layout {
			m.mappings = append(m.mappings[:i], m.mappings[i+1:]...)
			return true
		}
	}
	return false
}

// Mapping ties a MemoryObject to a base guest virtual address inside one
// address space's directory. A single object may have many mappings, one
// per address space it has been shared into.
type Mapping struct {
	owner  *addressSpace
	base   mem.VAddress
	mmu    *MMU
	object *MemoryObject
}

func newMapping(owner *addressSpace, base mem.VAddress, mmu *MMU) *Mapping {
	return &Mapping{owner: owner, base: base, mmu: mmu}
}

func (mp *Mapping) mapRange(obj *MemoryObject, pageOffset, totalPages uint32, prot mem.Prot) bool {
	shift := mp.mmu.profile.PageSizeBits
	start := pageOffset << shift
	size := totalPages << shift
	host := obj.host + mem.HostPtr(start)

	mp.owner.dir.InstallRegion(mp.base+mem.VAddress(start), size, host)
	if mp.owner.asid == mp.mmu.current {
		mp.mmu.MapToCPU(mp.base+mem.VAddress(start), size, host, prot)
	}
	return true
}

func (mp *Mapping) unmapRange(pageOffset, totalPages uint32) bool {
	shift := mp.mmu.profile.PageSizeBits
	start := pageOffset << shift
	size := totalPages << shift

	mp.owner.dir.UnmapRegion(mp.base+mem.VAddress(start), size)
	if mp.owner.asid == mp.mmu.current {
		mp.mmu.UnmapFromCPU(mp.base+mem.VAddress(start), size)
	}
	return true
}

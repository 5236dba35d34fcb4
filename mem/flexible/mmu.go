// Package flexible implements the flexible-model MMU: each process owns
// its own page-table directory, and memory is shared between processes by
// attaching one MemoryObject's pages to a Mapping in more than one
// directory at once, rather than by aliasing a single global directory.
package flexible

import (
	"fmt"
	"sync"

	"github.com/avalonos/coreemu/mem"
)

// addressSpace is one process's view: its own directory, plus the set of
// mappings currently installed into it.
type addressSpace struct {
	asid     mem.ASID
	dir      *mem.Directory
	mappings []*Mapping
}

// MMU is the flexible-model implementation of mem.MMU.
type MMU struct {
	*mem.Base

	mu      sync.Mutex
	profile mem.Profile
	alloc   mem.PageTableAllocator
	spaces  map[mem.ASID]*addressSpace
	current mem.ASID

	objects  []*MemoryObject
	switches uint64
}

// New constructs a flexible-model MMU. It is normally reached through
// system.NewMMU(..., mem.Flexible); exported for tests and tools that
// want to bypass the factory.
func New(base *mem.Base, profile mem.Profile, alloc mem.PageTableAllocator) (*MMU, error) {
	m := &MMU{
		Base:    base,
		profile: profile,
		alloc:   alloc,
		spaces:  make(map[mem.ASID]*addressSpace),
		current: 0,
	}
	m.spaces[0] = &addressSpace{asid: 0, dir: mem.NewDirectory(profile, alloc)}
	base.Bind(m)
	return m, nil
}

// AddProcess registers a fresh, empty address space for asid.
func (m *MMU) AddProcess(asid mem.ASID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.spaces[asid]; ok {
		return fmt.Errorf("flexible: address space %d already exists", asid)
	}
	m.spaces[asid] = &addressSpace{asid: asid, dir: mem.NewDirectory(m.profile, m.alloc)}
	return nil
}

// SwitchProcess selects which address space mem.CurrentASID resolves
// against.
func (m *MMU) SwitchProcess(asid mem.ASID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.spaces[asid]; !ok {
		return fmt.Errorf("flexible: no such address space %d", asid)
	}
	m.current = asid
	m.switches++
	return nil
}

func (m *MMU) spaceFor(asid mem.ASID) *addressSpace {
	m.mu.Lock()
	defer m.mu.Unlock()
	if asid == mem.CurrentASID {
		asid = m.current
	}
	return m.spaces[asid]
}

// GetHostPointer resolves a host pointer for vaddr in the selected address
// space. Returns zero if the address space doesn't exist or the page is not
// currently committed into it.
func (m *MMU) GetHostPointer(asid mem.ASID, vaddr mem.VAddress) mem.HostPtr {
	as := m.spaceFor(asid)
	if as == nil {
		return 0
	}
	ptr, offset := as.dir.Lookup(vaddr)
	if ptr == 0 {
		return 0
	}
	return ptr + mem.HostPtr(offset)
}

// NewObject reserves a fresh MemoryObject of pageCount pages. When host is
// zero the object owns its memory, filled with clearByte at construction;
// caller-supplied memory is left as it is. The object is not mapped into
// any address space until Map attaches it.
func (m *MMU) NewObject(pageCount uint32, clearByte byte, host mem.HostPtr) *MemoryObject {
	obj := NewMemoryObject(host, pageCount, clearByte, m.profile.PageSizeBits)
	m.mu.Lock()
	m.objects = append(m.objects, obj)
	m.mu.Unlock()
	return obj
}

// Map attaches obj to asid's address space at guest address base, without
// committing any pages yet. The returned Mapping is what Commit/Decommit
// calls on obj act through for this address space.
func (m *MMU) Map(asid mem.ASID, base mem.VAddress, obj *MemoryObject) (*Mapping, error) {
	as := m.spaceFor(asid)
	if as == nil {
		return nil, fmt.Errorf("flexible: no such address space %d", asid)
	}
	mp := newMapping(as, base, m)
	if !obj.attach(mp) {
		return nil, fmt.Errorf("flexible: object already mapped into this address space")
	}
	mp.object = obj
	as.mappings = append(as.mappings, mp)
	return mp, nil
}

// Unmap detaches mp from its object and address space, decommitting
// whatever pages of the object were resident through it.
func (m *MMU) Unmap(mp *Mapping) {
	mp.unmapRange(0, mp.object.PageCount())
	mp.object.detach(mp)

	as := mp.owner
	m.mu.Lock()
	for i, cand := range as.mappings {
		if cand == mp {
			as.mappings = append(as.mappings[:i], as.mappings[i+1:]...)
			break
		}
	}
	m.mu.Unlock()
}

// MapRegion satisfies mem.Model by wrapping a convenience path: it creates
// a single-mapping MemoryObject over an already-resident host region and
// commits it wholesale. Callers that need sharing or partial commit should
// use NewObject/Map/Commit directly instead.
func (m *MMU) MapRegion(asid mem.ASID, addr mem.VAddress, size uint32, host mem.HostPtr, prot mem.Prot) error {
	pageSize := uint32(1) << m.profile.PageSizeBits
	pageCount := (size + pageSize - 1) / pageSize

	obj := m.NewObject(pageCount, 0, host)
	mp, err := m.Map(asid, addr, obj)
	if err != nil {
		return err
	}
	if !obj.Commit(0, pageCount, prot) {
		return fmt.Errorf("flexible: commit failed for region at 0x%x", addr)
	}
	_ = mp
	return nil
}

// UnmapRegion decommits and detaches whatever mapping starts at addr in
// asid's address space. It is a no-op if no such mapping exists.
func (m *MMU) UnmapRegion(asid mem.ASID, addr mem.VAddress, size uint32) {
	as := m.spaceFor(asid)
	if as == nil {
		return
	}
	m.mu.Lock()
	var mp *Mapping
	for _, cand := range as.mappings {
		if cand.base == addr {
			mp = cand
			break
		}
	}
	m.mu.Unlock()
	if mp != nil {
		m.Unmap(mp)
	}
}

// CreatePageTable is provided for symmetry with mem.Model; flexible tables
// are normally vended lazily by mem.Directory itself via the allocator.
func (m *MMU) CreatePageTable() *mem.PageTable {
	return m.Base.CreatePageTable()
}

// RegisterStats registers the flexible-model-specific counters (address
// spaces, live memory objects, context switches) alongside mem.Base's own.
func (m *MMU) RegisterStats(s *mem.Stats) {
	m.Base.RegisterStats(s)
	s.RegisterOther("flexible.address_spaces")
	s.RegisterOther("flexible.objects")
	s.RegisterOther("flexible.switches")

	m.mu.Lock()
	spaces := uint64(len(m.spaces))
	objects := uint64(len(m.objects))
	switches := m.switches
	m.mu.Unlock()

	s.AddOther("flexible.address_spaces", spaces)
	s.AddOther("flexible.objects", objects)
	s.AddOther("flexible.switches", switches)
}

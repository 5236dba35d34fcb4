// Package multiple implements the multiple-model MMU: one set of global
// page directories shared across processes, with an explicit
// per-process address-space switch selecting which directory sized I/O
// resolves against when the caller passes mem.CurrentASID.
package multiple

import (
	"fmt"
	"sync"

	"github.com/avalonos/coreemu/mem"
)

// MMU is the multiple-model implementation of mem.MMU.
type MMU struct {
	*mem.Base

	mu      sync.Mutex
	profile mem.Profile
	alloc   mem.PageTableAllocator
	dirs    map[mem.ASID]*mem.Directory
	current mem.ASID

	switches uint64
}

// New constructs a multiple-model MMU. It is normally reached through
// system.NewMMU(..., mem.Multiple); exported for tests and tools that
// want to bypass the factory.
func New(base *mem.Base, profile mem.Profile, alloc mem.PageTableAllocator) (*MMU, error) {
	m := &MMU{
		Base:    base,
		profile: profile,
		alloc:   alloc,
		dirs:    make(map[mem.ASID]*mem.Directory),
		current: 0,
	}
	m.dirs[0] = mem.NewDirectory(profile, alloc)
	base.Bind(m)
	return m, nil
}

// AddProcess registers a fresh global directory for asid, failing if one
// already exists.
func (m *MMU) AddProcess(asid mem.ASID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.dirs[asid]; ok {
		return fmt.Errorf("multiple: address space %d already exists", asid)
	}
	m.dirs[asid] = mem.NewDirectory(m.profile, m.alloc)
	return nil
}

// SwitchProcess selects which address space mem.CurrentASID resolves
// against, mirroring a hardware translation-table-base switch.
func (m *MMU) SwitchProcess(asid mem.ASID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.dirs[asid]; !ok {
		return fmt.Errorf("multiple: no such address space %d", asid)
	}
	m.current = asid
	m.switches++
	return nil
}

func (m *MMU) dirFor(asid mem.ASID) *mem.Directory {
	m.mu.Lock()
	defer m.mu.Unlock()
	if asid == mem.CurrentASID {
		asid = m.current
	}
	return m.dirs[asid]
}

// GetHostPointer resolves a host pointer for vaddr in the selected address
// space. Returns zero if the address space doesn't exist or the page is
// unmapped.
func (m *MMU) GetHostPointer(asid mem.ASID, vaddr mem.VAddress) mem.HostPtr {
	d := m.dirFor(asid)
	if d == nil {
		return 0
	}
	ptr, offset := d.Lookup(vaddr)
	if ptr == 0 {
		return 0
	}
	return ptr + mem.HostPtr(offset)
}

// MapRegion installs a host-backed region into the named address space's
// directory and arranges the CPU fast path for it.
func (m *MMU) MapRegion(asid mem.ASID, addr mem.VAddress, size uint32, host mem.HostPtr, prot mem.Prot) error {
	d := m.dirFor(asid)
	if d == nil {
		return fmt.Errorf("multiple: no such address space %d", asid)
	}
	d.InstallRegion(addr, size, host)
	m.MapToCPU(addr, size, host, prot)
	return nil
}

// UnmapRegion removes a region previously installed by MapRegion.
func (m *MMU) UnmapRegion(asid mem.ASID, addr mem.VAddress, size uint32) {
	d := m.dirFor(asid)
	if d == nil {
		return
	}
	d.UnmapRegion(addr, size)
	m.UnmapFromCPU(addr, size)
}

// RegisterStats registers the multiple-model-specific counters (address
// spaces and context switches) alongside mem.Base's own.
func (m *MMU) RegisterStats(s *mem.Stats) {
	m.Base.RegisterStats(s)
	s.RegisterOther("multiple.address_spaces")
	s.RegisterOther("multiple.switches")

	m.mu.Lock()
	spaces := uint64(len(m.dirs))
	switches := m.switches
	m.mu.Unlock()

	s.AddOther("multiple.address_spaces", spaces)
	s.AddOther("multiple.switches", switches)
}

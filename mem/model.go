package mem

import "fmt"

// ModelType selects which concrete MMU model system.NewMMU should
// construct.
type ModelType int

const (
	// Multiple is one set of global page directories shared across
	// processes, with per-process address-space switching.
	Multiple ModelType = iota
	// Flexible is per-process chunked mapping: each process owns its
	// own Directory.
	Flexible
)

func (t ModelType) String() string {
	switch t {
	case Multiple:
		return "multiple"
	case Flexible:
		return "flexible"
	default:
		return fmt.Sprintf("ModelType(%d)", int(t))
	}
}

// Model is the address-space-specific strategy an MMU delegates to for
// everything mem.Base cannot do generically: resolving a host pointer for
// a (asid, vaddr) pair, creating and tearing down page tables, and mapping
// or unmapping a region with protection. The specification does not
// mandate internal structure beyond this contract — mem/multiple and
// mem/flexible satisfy it very differently.
type Model interface {
	Simulation

	// GetHostPointer resolves a host pointer for a guest virtual
	// address in the given address space. A zero result means
	// unmapped/fault. asid == CurrentASID means "whatever address
	// space is currently active".
	GetHostPointer(asid ASID, vaddr VAddress) HostPtr

	// CreatePageTable vends a fresh page table sized for the model's
	// profile. Ownership passes to the caller, which is expected to be
	// the model's own region-mapping code in the common case. Both
	// models satisfy it through mem.Base.CreatePageTable, which
	// delegates to the allocator.
	CreatePageTable() *PageTable

	// MapRegion installs size bytes of host memory at host, starting at
	// guest address addr, in the given address space, with the given
	// protection. It also arranges the CPU fast path via MapToCPU.
	MapRegion(asid ASID, addr VAddress, size uint32, host HostPtr, prot Prot) error

	// UnmapRegion removes the mapping installed by a prior MapRegion
	// and tears down the CPU fast path via UnmapFromCPU.
	UnmapRegion(asid ASID, addr VAddress, size uint32)
}

// Simulation is satisfied by anything that can register model-specific
// statistics into a shared mem.Stats. Kept as its own interface (rather
// than folded into Model) so test doubles for Model don't have to
// implement instrumentation they don't care about.
type Simulation interface {
	RegisterStats(*Stats)
}

// MMU is the full, user-facing handle: sized guest I/O plus the page-table
// and region-mapping operations a model contributes.
type MMU interface {
	Model

	// ReadN/WriteN perform a sized guest memory access. They return
	// false (and, for reads, leave out untouched) if the address does
	// not resolve to a mapped host pointer.
	Read8(addr VAddress, out *uint8) bool
	Read16(addr VAddress, out *uint16) bool
	Read32(addr VAddress, out *uint32) bool
	Read64(addr VAddress, out *uint64) bool
	Write8(addr VAddress, in *uint8) bool
	Write16(addr VAddress, in *uint16) bool
	Write32(addr VAddress, in *uint32) bool
	Write64(addr VAddress, in *uint64) bool
}

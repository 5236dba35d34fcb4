package mem

import (
	"log/slog"
	"unsafe"

	"github.com/avalonos/coreemu/cpu"
)

// resolver is satisfied by whatever embeds Base: it supplies the one
// virtual operation mem.Base needs from the concrete model to do sized
// I/O, keeping Base itself address-space-agnostic.
type resolver interface {
	GetHostPointer(asid ASID, vaddr VAddress) HostPtr
}

// Base provides address-space-agnostic translation: it installs the CPU
// I/O callbacks, performs sized guest read/write by delegating to a
// host-pointer resolver, and maps host-backed regions into the CPU for the
// fast path. Concrete address translation is deferred to whichever model
// embeds Base via the resolver interface.
type Base struct {
	alloc    PageTableAllocator
	core     cpu.Core
	conf     Config
	profile  Profile
	resolver resolver

	stats *Stats
}

// NewBase constructs a Base for a concrete model to embed. The model must
// call Bind once it can satisfy the resolver interface, before the MMU is
// used for any sized I/O.
func NewBase(alloc PageTableAllocator, core cpu.Core, conf Config, profile Profile) *Base {
	b := &Base{
		alloc:   alloc,
		core:    core,
		conf:    conf,
		profile: profile,
		stats:   NewStats(),
	}
	return b
}

// Bind installs this Base's sized I/O methods as the CPU's hook slots and
// remembers which resolver to delegate translation to. Called once by each
// model's constructor, after the model itself (which implements resolver)
// exists.
func (b *Base) Bind(r resolver) {
	b.resolver = r
	b.core.Install(cpu.Hooks{
		Read8:   b.Read8,
		Read16:  b.Read16,
		Read32:  b.Read32,
		Read64:  b.Read64,
		Write8:  b.Write8,
		Write16: b.Write16,
		Write32: b.Write32,
		Write64: b.Write64,
	})
}

// CreatePageTable delegates to the allocator with the MMU's page-size
// exponent.
func (b *Base) CreatePageTable() *PageTable {
	return b.alloc.NewPageTable(b.profile)
}

// MapToCPU forwards to the CPU's backing-memory mapping hook, enabling the
// CPU's own fast translation cache. The sized I/O path is the slow
// fallback for anything the CPU's cache hasn't captured.
func (b *Base) MapToCPU(addr VAddress, size uint32, host HostPtr, prot Prot) {
	b.core.MapBackingMem(addr, size, uintptr(host), cpu.Prot(prot))
}

// RegisterStats registers mem.Base's own counters. Called once per model
// via Simulation.RegisterStats; safe to call more than once.
func (b *Base) RegisterStats(s *Stats) {
	b.stats = s
}

func (b *Base) resolve(addr VAddress) unsafe.Pointer {
	ptr := b.resolver.GetHostPointer(CurrentASID, addr)
	if ptr == 0 {
		return nil
	}
	return unsafe.Pointer(ptr)
}

func (b *Base) traceRead(width int, addr VAddress) {
	if b.conf.LogRead {
		slog.Debug("mem: read", "bytes", width, "addr", addr)
	}
}

func (b *Base) traceWrite(width int, addr VAddress) {
	if b.conf.LogWrite {
		slog.Debug("mem: write", "bytes", width, "addr", addr)
	}
}

// Read8 reads one byte at addr. It returns false, leaving out untouched,
// if addr does not resolve to a mapped host pointer.
func (b *Base) Read8(addr VAddress, out *uint8) bool {
	p := b.resolve(addr)
	if p == nil {
		b.stats.ReadFaults++
		return false
	}
	*out = *(*uint8)(p)
	b.stats.Reads++
	b.traceRead(1, addr)
	return true
}

// Read16 reads two bytes at addr, natively aligned at the resolved host
// pointer. See Read8 for the failure contract.
func (b *Base) Read16(addr VAddress, out *uint16) bool {
	p := b.resolve(addr)
	if p == nil {
		b.stats.ReadFaults++
		return false
	}
	*out = *(*uint16)(p)
	b.stats.Reads++
	b.traceRead(2, addr)
	return true
}

// Read32 reads four bytes at addr. See Read8 for the failure contract.
func (b *Base) Read32(addr VAddress, out *uint32) bool {
	p := b.resolve(addr)
	if p == nil {
		b.stats.ReadFaults++
		return false
	}
	*out = *(*uint32)(p)
	b.stats.Reads++
	b.traceRead(4, addr)
	return true
}

// Read64 reads eight bytes at addr. See Read8 for the failure contract.
func (b *Base) Read64(addr VAddress, out *uint64) bool {
	p := b.resolve(addr)
	if p == nil {
		b.stats.ReadFaults++
		return false
	}
	*out = *(*uint64)(p)
	b.stats.Reads++
	b.traceRead(8, addr)
	return true
}

// Write8 writes one byte at addr. It returns false if addr does not
// resolve to a mapped host pointer; the guest memory is left untouched.
func (b *Base) Write8(addr VAddress, in *uint8) bool {
	p := b.resolve(addr)
	if p == nil {
		b.stats.WriteFaults++
		return false
	}
	*(*uint8)(p) = *in
	b.stats.Writes++
	b.traceWrite(1, addr)
	return true
}

// Write16 writes two bytes at addr. See Write8 for the failure contract.
func (b *Base) Write16(addr VAddress, in *uint16) bool {
	p := b.resolve(addr)
	if p == nil {
		b.stats.WriteFaults++
		return false
	}
	*(*uint16)(p) = *in
	b.stats.Writes++
	b.traceWrite(2, addr)
	return true
}

// Write32 writes four bytes at addr. See Write8 for the failure contract.
func (b *Base) Write32(addr VAddress, in *uint32) bool {
	p := b.resolve(addr)
	if p == nil {
		b.stats.WriteFaults++
		return false
	}
	*(*uint32)(p) = *in
	b.stats.Writes++
	b.traceWrite(4, addr)
	return true
}

// Write64 writes eight bytes at addr. See Write8 for the failure contract.
func (b *Base) Write64(addr VAddress, in *uint64) bool {
	p := b.resolve(addr)
	if p == nil {
		b.stats.WriteFaults++
		return false
	}
	*(*uint64)(p) = *in
	b.stats.Writes++
	b.traceWrite(8, addr)
	return true
}

// UnmapFromCPU forwards to the CPU's UnmapMemory hook.
func (b *Base) UnmapFromCPU(addr VAddress, size uint32) {
	b.core.UnmapMemory(addr, size)
}

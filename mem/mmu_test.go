package mem

import (
	"testing"
	"unsafe"

	"github.com/avalonos/coreemu/cpu"
)

// fakeCore is a cpu.Core that records its Install call and ignores
// MapBackingMem/UnmapMemory; mem.Base never calls back into the CPU for
// sized I/O, only for fast-path region (un)mapping.
type fakeCore struct {
	hooks cpu.Hooks
}

func (c *fakeCore) Install(h cpu.Hooks) { c.hooks = h }

func (c *fakeCore) MapBackingMem(cpu.VAddr, uint32, uintptr, cpu.Prot) {}
func (c *fakeCore) UnmapMemory(cpu.VAddr, uint32)                      {}

// fixedResolver resolves every address to the same backing byte slice's
// base, for exercising Base's sized read/write paths without a full
// Directory.
type fixedResolver struct {
	buf []byte
}

func (r *fixedResolver) GetHostPointer(asid ASID, vaddr VAddress) HostPtr {
	if vaddr >= uint32(len(r.buf)) {
		return 0
	}
	return HostPtr(uintptr(unsafe.Pointer(&r.buf[0])) + uintptr(vaddr))
}

func newBoundBase(t *testing.T, buf []byte) *Base {
	t.Helper()
	b := NewBase(NewAllocator(1), &fakeCore{}, Config{}, Profile12)
	b.Bind(&fixedResolver{buf: buf})
	return b
}

func TestBaseWrite32ThenRead32RoundTrips(t *testing.T) {
	buf := make([]byte, 16)
	b := newBoundBase(t, buf)

	var in uint32 = 0xcafef00d
	if ok := b.Write32(4, &in); !ok {
		t.Fatal("Write32 returned false for a mapped address")
	}

	var out uint32
	if ok := b.Read32(4, &out); !ok {
		t.Fatal("Read32 returned false for a mapped address")
	}
	if out != in {
		t.Fatalf("Read32 = %#x, want %#x", out, in)
	}
}

func TestBaseReadFaultsOnUnmapped(t *testing.T) {
	buf := make([]byte, 4)
	b := newBoundBase(t, buf)

	var out uint8
	if ok := b.Read8(100, &out); ok {
		t.Fatal("Read8 past the resolver's range returned true")
	}
	if b.stats.ReadFaults != 1 {
		t.Fatalf("ReadFaults = %d, want 1", b.stats.ReadFaults)
	}
}

func TestBaseCountsReadsAndWrites(t *testing.T) {
	buf := make([]byte, 8)
	b := newBoundBase(t, buf)

	var v8 uint8
	var v16 uint16
	b.Write8(0, &v8)
	b.Write16(0, &v16)
	b.Read8(0, &v8)
	b.Read16(0, &v16)

	if b.stats.Writes != 2 {
		t.Fatalf("Writes = %d, want 2", b.stats.Writes)
	}
	if b.stats.Reads != 2 {
		t.Fatalf("Reads = %d, want 2", b.stats.Reads)
	}
}

func TestBaseBindInstallsAllEightHooks(t *testing.T) {
	core := &fakeCore{}
	b := NewBase(NewAllocator(1), core, Config{}, Profile12)
	b.Bind(&fixedResolver{buf: make([]byte, 4)})

	switch {
	case core.hooks.Read8 == nil, core.hooks.Read16 == nil, core.hooks.Read32 == nil, core.hooks.Read64 == nil,
		core.hooks.Write8 == nil, core.hooks.Write16 == nil, core.hooks.Write32 == nil, core.hooks.Write64 == nil:
		t.Fatal("Bind left one or more hook slots nil")
	}
}

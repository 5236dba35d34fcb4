package multiple

import (
	"testing"
	"unsafe"

	"github.com/avalonos/coreemu/cpu"
	"github.com/avalonos/coreemu/mem"
)

type fakeCore struct{}

func (fakeCore) Install(cpu.Hooks)                                  {}
func (fakeCore) MapBackingMem(cpu.VAddr, uint32, uintptr, cpu.Prot) {}
func (fakeCore) UnmapMemory(cpu.VAddr, uint32)                      {}

func newTestMMU(t *testing.T) *MMU {
	t.Helper()
	alloc := mem.NewAllocator(2)
	base := mem.NewBase(alloc, fakeCore{}, mem.Config{}, mem.Profile12)
	m, err := New(base, mem.Profile12, alloc)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m
}

func TestMapRegionThenSizedIORoundTrips(t *testing.T) {
	m := newTestMMU(t)
	buf := make([]byte, 4096)
	host := mem.HostPtr(uintptr(unsafe.Pointer(&buf[0])))

	if err := m.MapRegion(mem.CurrentASID, 0x1000, uint32(len(buf)), host, mem.Read|mem.Write); err != nil {
		t.Fatalf("MapRegion: %v", err)
	}

	var in uint32 = 0x11223344
	if !m.Write32(0x1000, &in) {
		t.Fatal("Write32 on a mapped region returned false")
	}
	var out uint32
	if !m.Read32(0x1000, &out) {
		t.Fatal("Read32 on a mapped region returned false")
	}
	if out != in {
		t.Fatalf("Read32 = %#x, want %#x", out, in)
	}
}

func TestUnmapRegionFaults(t *testing.T) {
	m := newTestMMU(t)
	buf := make([]byte, 4096)
	host := mem.HostPtr(uintptr(unsafe.Pointer(&buf[0])))
	m.MapRegion(mem.CurrentASID, 0x2000, uint32(len(buf)), host, mem.Read|mem.Write)
	m.UnmapRegion(mem.CurrentASID, 0x2000, uint32(len(buf)))

	var out uint32
	if m.Read32(0x2000, &out) {
		t.Fatal("Read32 succeeded after UnmapRegion")
	}
}

func TestSwitchProcessIsolatesAddressSpaces(t *testing.T) {
	m := newTestMMU(t)
	if err := m.AddProcess(1); err != nil {
		t.Fatalf("AddProcess: %v", err)
	}

	bufA := make([]byte, 4096)
	bufB := make([]byte, 4096)
	hostA := mem.HostPtr(uintptr(unsafe.Pointer(&bufA[0])))
	hostB := mem.HostPtr(uintptr(unsafe.Pointer(&bufB[0])))

	m.MapRegion(0, 0x3000, uint32(len(bufA)), hostA, mem.Read|mem.Write)
	m.MapRegion(1, 0x3000, uint32(len(bufB)), hostB, mem.Read|mem.Write)

	var vA uint32 = 1
	var vB uint32 = 2
	m.SwitchProcess(0)
	m.Write32(0x3000, &vA)
	m.SwitchProcess(1)
	m.Write32(0x3000, &vB)

	var got uint32
	m.SwitchProcess(0)
	m.Read32(0x3000, &got)
	if got != 1 {
		t.Fatalf("address space 0 read back %d, want 1", got)
	}

	m.SwitchProcess(1)
	m.Read32(0x3000, &got)
	if got != 2 {
		t.Fatalf("address space 1 read back %d, want 2", got)
	}
}

func TestAddProcessDuplicateFails(t *testing.T) {
	m := newTestMMU(t)
	if err := m.AddProcess(5); err != nil {
		t.Fatalf("first AddProcess: %v", err)
	}
	if err := m.AddProcess(5); err == nil {
		t.Fatal("second AddProcess for the same asid succeeded")
	}
}

func TestSwitchProcessUnknownFails(t *testing.T) {
	m := newTestMMU(t)
	if err := m.SwitchProcess(99); err == nil {
		t.Fatal("SwitchProcess to an unregistered asid succeeded")
	}
}

func TestRegisterStatsReportsAddressSpacesAndSwitches(t *testing.T) {
	m := newTestMMU(t)
	m.AddProcess(1)
	m.SwitchProcess(1)

	stats := mem.NewStats()
	m.RegisterStats(stats)

	if got := stats.GetOther("multiple.address_spaces"); got != 2 {
		t.Fatalf("multiple.address_spaces = %d, want 2", got)
	}
	if got := stats.GetOther("multiple.switches"); got != 1 {
		t.Fatalf("multiple.switches = %d, want 1", got)
	}
}

package flexible

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

	var in uint32 = 0xa5a5a5a5
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

func TestUnmapRegionDecommits(t *testing.T) {
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

func TestObjectOwnsItsOwnMemoryWhenHostIsZero(t *testing.T) {
	m := newTestMMU(t)
	obj := m.NewObject(1, 0xAB, 0)
	if obj.HostBase() == 0 {
		t.Fatal("NewObject(host=0) left the object with no backing memory")
	}
	mp, err := m.Map(mem.CurrentASID, 0x5000, obj)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if !obj.Commit(0, 1, mem.Read|mem.Write) {
		t.Fatal("Commit failed")
	}

	var got uint8
	if !m.Read8(0x5000, &got) {
		t.Fatal("Read8 on a committed self-owned object returned false")
	}
	if got != 0xAB {
		t.Fatalf("Read8 = %#x, want the clear byte 0xAB", got)
	}
	m.Unmap(mp)
}

func TestCommitExposesPagesOnlyAfterCommit(t *testing.T) {
	m := newTestMMU(t)
	host := mem.HostPtr(0x1000) // external, never dereferenced in this test
	obj := m.NewObject(2, 0, host)
	_, err := m.Map(mem.CurrentASID, 0x6000, obj)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}

	ptr, _ := m.spaceFor(mem.CurrentASID).dir.Lookup(0x6000)
	if ptr != 0 {
		t.Fatal("page resolved before Commit")
	}

	obj.Commit(0, 1, mem.Read)
	ptr, _ = m.spaceFor(mem.CurrentASID).dir.Lookup(0x6000)
	if ptr == 0 {
		t.Fatal("page still unresolved after Commit")
	}

	obj.Decommit(0, 1)
	ptr, _ = m.spaceFor(mem.CurrentASID).dir.Lookup(0x6000)
	if ptr != 0 {
		t.Fatal("page still resolved after Decommit")
	}
}

func TestRegisterStatsReportsObjectsAndAddressSpaces(t *testing.T) {
	m := newTestMMU(t)
	m.NewObject(1, 0, 0)
	m.AddProcess(1)

	stats := mem.NewStats()
	m.RegisterStats(stats)

	if got := stats.GetOther("flexible.objects"); got != 1 {
		t.Fatalf("flexible.objects = %d, want 1", got)
	}
	if got := stats.GetOther("flexible.address_spaces"); got != 2 {
		t.Fatalf("flexible.address_spaces = %d, want 2", got)
	}
}

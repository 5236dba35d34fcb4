package flexible

import (
	"unsafe"

	"github.com/avalonos/coreemu/mem"
)

// hostPointer returns buf's address in the host process's own address
// space, for MemoryObjects that own their backing memory rather than
// wrapping a caller-supplied host pointer.
func hostPointer(buf []byte) mem.HostPtr {
	if len(buf) == 0 {
		return 0
	}
	return mem.HostPtr(uintptr(unsafe.Pointer(&buf[0])))
}

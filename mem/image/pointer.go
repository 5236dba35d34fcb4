package image

import "unsafe"

// hostPointer returns the host address of buf's backing array, the same
// unsafe.Pointer conversion mem.Base uses on its sized read/write path.
// buf must not be resliced or reallocated after this call: Load never
// does, it only ever stores whole page buffers into Image.pages.
func hostPointer(buf []byte) uintptr {
	return uintptr(unsafe.Pointer(&buf[0]))
}

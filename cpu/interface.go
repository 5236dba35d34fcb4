// Package cpu describes the narrow interface the memory management unit
// needs from the emulated CPU core. The CPU core itself — instruction
// decode, the ARM/Thumb execution pipeline, interrupt delivery — is out of
// scope for this repository and lives entirely behind this interface.
package cpu

// Prot is a tri-state set of protection bits used by MapBackingMem.
type Prot uint8

const (
	Read Prot = 1 << iota
	Write
	Execute
)

// VAddr is a 32-bit guest virtual address.
type VAddr = uint32

// Hooks is the set of sized read/write function values an MMU installs
// into a Core at construction time. The CPU calls these as its slow-path
// fallback whenever a guest access misses its own fast translation cache.
type Hooks struct {
	Read8  func(addr VAddr, out *uint8) bool
	Read16 func(addr VAddr, out *uint16) bool
	Read32 func(addr VAddr, out *uint32) bool
	Read64 func(addr VAddr, out *uint64) bool

	Write8  func(addr VAddr, in *uint8) bool
	Write16 func(addr VAddr, in *uint16) bool
	Write32 func(addr VAddr, in *uint32) bool
	Write64 func(addr VAddr, in *uint64) bool
}

// Core is the CPU-side half of the MMU/CPU boundary. An MMU installs its
// sized read/write hooks once at construction via Install, then calls
// MapBackingMem/UnmapMemory whenever it wants to hand the CPU a host
// memory region to use directly, bypassing the sized-I/O hooks entirely
// for that range.
type Core interface {
	// Install binds the eight sized read/write hook slots in Hooks.
	// Called exactly once, at MMU construction.
	Install(hooks Hooks)

	// MapBackingMem hands the CPU host memory to back a guest virtual
	// address range directly, enabling its fast translation cache.
	MapBackingMem(addr VAddr, size uint32, host uintptr, prot Prot)

	// UnmapMemory tears down a mapping previously installed by
	// MapBackingMem.
	UnmapMemory(addr VAddr, size uint32)
}

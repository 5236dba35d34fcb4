// Package mem implements the guest memory management unit and the host
// memory translation layer that bridges guest virtual addresses to host
// memory for the emulated CPU. It sits on the hot path of every guest
// instruction: sized reads and writes must be correct and fast, and the
// choice of MMU model (multiple vs. flexible) must stay pluggable behind a
// single interface.
package mem

// VAddress is an unsigned 32-bit guest virtual address.
type VAddress = uint32

// HostPtr is a raw byte address in the emulator process's own address
// space. A zero value denotes unmapped or faulting.
type HostPtr uintptr

// ASID is a signed address-space id. CurrentASID means "current/global
// context" rather than naming a specific address space.
type ASID int32

// CurrentASID is the ASID value meaning "whatever address space the MMU is
// currently resolving for", used by the sized-I/O fast path.
const CurrentASID ASID = -1

// Prot is the tri-state protection bitset used by region mapping.
type Prot uint8

const (
	Read Prot = 1 << iota
	Write
	Execute
)

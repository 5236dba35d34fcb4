// Package domain implements the domain hierarchy transition engine: a
// rooted tree of domains per hierarchy that coordinates staged,
// acknowledgement-gated state changes across attached sessions, with
// timeout, deferral, cancellation and observer semantics layered on top.
//
// Domains never hold pointers to each other. A Hierarchy owns an arena
// (a plain slice of Domain values) and every parent/child/peer reference
// is a NodeID indexing into it, the same index-not-pointer discipline
// garbage-collected object graphs use to stay safe to walk concurrently.
package domain

import "fmt"

// NodeID indexes a Domain inside its owning Hierarchy's arena. Zero means
// "no node"; the root of every hierarchy is allocated at NodeID(1).
type NodeID uint32

// SessionID identifies a guest session across JoinDomain/Acknowledge/
// observer calls. The IPC transport that actually owns session identity
// is out of scope; callers just need a stable comparable value.
type SessionID uint32

// Dir is a tree traversal direction.
type Dir int

const (
	ParentFirst Dir = iota
	ChildrenFirst
)

func (d Dir) String() string {
	if d == ChildrenFirst {
		return "ChildrenFirst"
	}
	return "ParentFirst"
}

// FailPolicy controls whether a single member's failed acknowledgement
// stops the whole transition or lets the remaining tree continue.
type FailPolicy int

const (
	Stop FailPolicy = iota
	Continue
)

// ObserveFlags is a bitset of the event classes an observer wants
// delivered.
type ObserveFlags uint8

const (
	Pass         ObserveFlags = 1 << 0
	Fail         ObserveFlags = 1 << 1
	TransRequest ObserveFlags = 1 << 2
)

// Err enumerates the completion codes surfaced on the IPC boundary. It is
// deliberately not a Go error: every handler below returns it as a plain
// value so AckErr(Success) reads as success without an error-wrapping
// indirection at each call site, mirroring the IPC completion-code
// contract it stands in for.
type Err int32

const (
	Success Err = iota
	NotFound
	InUse
	NotReady
	Cancel
	TimedOut
	BadHierarchyID
	BadDomainID
	BadSequence
	NotJoined

	// Outstanding is not a surfaced completion code; it tags a transition
	// log entry appended while a member's acknowledgement is still
	// pending, for observers subscribed to TransRequest events.
	Outstanding Err = -1
)

func (e Err) String() string {
	switch e {
	case Success:
		return "Success"
	case NotFound:
		return "NotFound"
	case InUse:
		return "InUse"
	case NotReady:
		return "NotReady"
	case Cancel:
		return "Cancel"
	case TimedOut:
		return "TimedOut"
	case BadHierarchyID:
		return "BadHierarchyID"
	case BadDomainID:
		return "BadDomainID"
	case BadSequence:
		return "BadSequence"
	case NotJoined:
		return "NotJoined"
	case Outstanding:
		return "Outstanding"
	default:
		return fmt.Sprintf("Err(%d)", int32(e))
	}
}

// sessionAttachment records one session's membership in a domain and
// whether it currently wants transition notifications.
type sessionAttachment struct {
	session    SessionID
	nofEnabled bool
}

// Domain is one node of a hierarchy's tree. Parent/Child/Peer are NodeIDs
// into the owning Hierarchy's arena rather than pointers.
type Domain struct {
	ID     uint16
	Parent NodeID
	Child  NodeID
	Peer   NodeID

	ChildCount      uint32
	TransitionCount uint32
	State           int32
	PrevState       int32 // State just before the in-flight transition overwrote it

	Attached []sessionAttachment

	TimeoutScheduled bool
	Observed         bool

	StatePropKey int32
}

// childCountInvariant walks the sibling chain rooted at Child and counts
// it; Hierarchy.ChildCount exposes it for tests asserting invariant 4
// without reaching into package-private fields.
func (d *Domain) childCountInvariant(nodes []Domain) uint32 {
	var n uint32
	for c := d.Child; c != 0; c = nodes[c].Peer {
		n++
	}
	return n
}

// TransitionLogEntry is one record of a (node, previous-state, outcome)
// event delivered to an observer.
type TransitionLogEntry struct {
	TransitionID uint32
	DomainID     uint16
	PrevState    int32
	Err          Err
}

// FailureLogEntry is one record appended to a hierarchy's failure log
// whenever a node's transition does not complete with Success.
type FailureLogEntry struct {
	DomainID uint16
	Err      Err
}

// StatePropertyKey derives the property key a domain's state is published
// under, per the hierarchy/domain id packing formula.
func StatePropertyKey(hierID uint8, domID uint16) int32 {
	return int32((uint32(hierID) << 8) | ((uint32(domID) << 8) & 0x00FF0000) | (uint32(domID) & 0xFF))
}

// StatePropertyValue derives the value published at a domain's state
// property: the owning transition id in the high byte, the state in the
// low three bytes.
func StatePropertyValue(transitionID uint32, state int32) int32 {
	return int32(transitionID<<24) | (state & 0x00FFFFFF)
}

// Category is the single well-known property category the domain engine
// publishes under.
const Category int32 = 0x646D // "dm"

// InitKeyProperty is the property key the manager defines once at
// startup, holding the constant value 1 to signal the domain manager is
// present.
const InitKeyProperty int32 = 1

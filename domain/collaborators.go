package domain

// EventHandle names a timer event a Hierarchy has registered with a
// Timing service. It is opaque to domain: the service decides how to
// represent it internally.
type EventHandle int

// Timing is the external scheduler the domain engine parks its
// per-domain transition timeouts on. A real implementation sits on top
// of the emulator's tick-based timing queue; domain never spawns a
// goroutine of its own, so the callback registered here always runs on
// whatever goroutine the Timing service's own event loop calls it from.
type Timing interface {
	// RegisterEvent names an event and binds the callback invoked when
	// any scheduled instance of it fires. Called once per Hierarchy.
	RegisterEvent(name string, callback func(payload NodeID)) EventHandle

	// ScheduleEvent arranges for h's callback to run with payload after
	// delayTicks ticks. Scheduling the same (h, payload) pair again
	// before it fires reschedules it rather than stacking a second
	// firing, mirroring "one timer per domain".
	ScheduleEvent(h EventHandle, payload NodeID, delayTicks uint64)

	// UnscheduleEvent cancels a pending (h, payload) firing. A no-op if
	// none is pending.
	UnscheduleEvent(h EventHandle, payload NodeID)
}

// PropertyStore is the external key/value registry the domain engine
// publishes its per-node state into and reads back from on
// acknowledgement. Keys are scoped by an integer category; domain always
// uses domain.Category.
type PropertyStore interface {
	Define(category, key int32, value int32)
	SetInt(category, key int32, value int32)
	GetInt(category, key int32) (int32, bool)
}

// StatusCell is a guest-side completion handle: a transit status, an
// observer notify, or a deferred acknowledgement. Resolve completes it
// exactly once with the given code. Modeled as an interface rather than
// a concrete type because the guest process the cell lives in is out of
// scope for this repository.
type StatusCell interface {
	Resolve(err Err)
}

// Context stands in for the IPC transport underneath ctx.Complete(status)
// in the original: the minimal shape domain.Server/domain.ManagerServer
// need from a request to reply to it and know who sent it.
type Context interface {
	Complete(status Err)
	Session() SessionID
}

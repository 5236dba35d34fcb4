package domain

// fakeTiming is a synchronous stand-in for domain.Timing: schedule/
// unschedule just track pending (handle, payload) pairs, and tests fire
// them explicitly by calling fire instead of waiting on a real clock.
type fakeTiming struct {
	callbacks map[EventHandle]func(NodeID)
	pending   map[NodeID]bool
	next      EventHandle
}

func newFakeTiming() *fakeTiming {
	return &fakeTiming{
		callbacks: make(map[EventHandle]func(NodeID)),
		pending:   make(map[NodeID]bool),
	}
}

func (t *fakeTiming) RegisterEvent(name string, cb func(payload NodeID)) EventHandle {
	t.next++
	t.callbacks[t.next] = cb
	return t.next
}

func (t *fakeTiming) ScheduleEvent(h EventHandle, payload NodeID, delayTicks uint64) {
	t.pending[payload] = true
}

func (t *fakeTiming) UnscheduleEvent(h EventHandle, payload NodeID) {
	delete(t.pending, payload)
}

// fire invokes h's callback for payload as if the real clock had elapsed,
// regardless of whether ScheduleEvent was actually called for it.
func (t *fakeTiming) fire(h EventHandle, payload NodeID) {
	if cb, ok := t.callbacks[h]; ok {
		cb(payload)
	}
}

// fakeProps is an in-memory domain.PropertyStore.
type fakeProps struct {
	values map[[2]int32]int32
}

func newFakeProps() *fakeProps {
	return &fakeProps{values: make(map[[2]int32]int32)}
}

func (p *fakeProps) Define(category, key int32, value int32) {
	p.values[[2]int32{category, key}] = value
}

func (p *fakeProps) SetInt(category, key int32, value int32) {
	p.values[[2]int32{category, key}] = value
}

func (p *fakeProps) GetInt(category, key int32) (int32, bool) {
	v, ok := p.values[[2]int32{category, key}]
	return v, ok
}

// fakeStatus records the last Err it was resolved with, and how many
// times Resolve was called.
type fakeStatus struct {
	resolved bool
	calls    int
	err      Err
}

func (s *fakeStatus) Resolve(err Err) {
	s.calls++
	s.resolved = true
	s.err = err
}

// fakeContext is a Context whose Complete just records the last status,
// for handler tests that don't need a real transport.
type fakeContext struct {
	session SessionID
	status  Err
	done    bool
}

func (c *fakeContext) Complete(status Err) {
	c.status = status
	c.done = true
}

func (c *fakeContext) Session() SessionID { return c.session }

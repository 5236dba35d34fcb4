package domain

import (
	"testing"
)

func singleNodeHierarchy(t *testing.T, policy FailPolicy) (*Hierarchy, *fakeTiming) {
	t.Helper()
	timing := newFakeTiming()
	props := newFakeProps()
	rec := HierarchyRecord{
		ID:           1,
		PositiveDir:  ParentFirst,
		NegDir:       ChildrenFirst,
		FailPolicy:   policy,
		TransTimeout: 5,
		Domains: []DomainRecord{
			{ID: 1, InitState: 0},
		},
	}
	return newHierarchyFromRecord(rec, timing, props, nil), timing
}

func twoLevelHierarchy(t *testing.T) (*Hierarchy, *fakeTiming) {
	t.Helper()
	timing := newFakeTiming()
	props := newFakeProps()
	rec := HierarchyRecord{
		ID:           2,
		PositiveDir:  ParentFirst,
		NegDir:       ChildrenFirst,
		FailPolicy:   Continue,
		TransTimeout: 5,
		Domains: []DomainRecord{
			{ID: 0, InitState: 0},
			{ID: 0xA, ParentID: 0, InitState: 0},
			{ID: 0xB, ParentID: 0, InitState: 0},
		},
	}
	return newHierarchyFromRecord(rec, timing, props, nil), timing
}

// S2: single-node hierarchy, one session, synchronous Success ack.
func TestTransitionSynchronousSuccess(t *testing.T) {
	h, _ := singleNodeHierarchy(t, Stop)
	session := SessionID(7)
	if err := h.JoinDomain(session, 1); err != Success {
		t.Fatalf("JoinDomain: %v", err)
	}
	if err := h.RequestTransitionNotification(session); err != Success {
		t.Fatalf("RequestTransitionNotification: %v", err)
	}

	status := &fakeStatus{}
	if err := h.RequestDomainTransition(status, 1, 3, ParentFirst); err != Success {
		t.Fatalf("RequestDomainTransition: %v", err)
	}

	n, _ := h.LookupDomain(1)
	key := h.node(n).StatePropKey
	propVal, ok := h.props.GetInt(Category, key)
	if !ok {
		t.Fatal("state property not published")
	}
	if err := h.AcknowledgeLastState(session, propVal, Success); err != Success {
		t.Fatalf("AcknowledgeLastState: %v", err)
	}

	if !status.resolved || status.err != Success {
		t.Fatalf("transit status = %+v, want resolved Success", status)
	}
	if h.State(n) != 3 {
		t.Fatalf("state = %d, want 3", h.State(n))
	}
	if h.GetTransitionFailureCount() != 0 {
		t.Fatalf("failure count = %d, want 0", h.GetTransitionFailureCount())
	}
}

// S3: session never acknowledges; a timeout elapses under Stop policy.
func TestTransitionTimeoutStopPolicy(t *testing.T) {
	h, timing := singleNodeHierarchy(t, Stop)
	session := SessionID(9)
	h.JoinDomain(session, 1)
	h.RequestTransitionNotification(session)

	status := &fakeStatus{}
	h.RequestDomainTransition(status, 1, 3, ParentFirst)

	n, _ := h.LookupDomain(1)
	timing.fire(h.timingEvent, n)

	if !status.resolved || status.err != TimedOut {
		t.Fatalf("transit status = %+v, want resolved TimedOut", status)
	}
	if got := h.GetTransitionFailureCount(); got != 1 {
		t.Fatalf("failure count = %d, want 1", got)
	}
	if h.TransitionsFail[0].Err != TimedOut {
		t.Fatalf("failure = %v, want TimedOut", h.TransitionsFail[0].Err)
	}
}

// Continue policy: a timeout on one domain still lets the transition
// advance instead of aborting.
func TestTransitionTimeoutContinuePolicy(t *testing.T) {
	h, timing := singleNodeHierarchy(t, Continue)
	session := SessionID(9)
	h.JoinDomain(session, 1)
	h.RequestTransitionNotification(session)

	status := &fakeStatus{}
	h.RequestDomainTransition(status, 1, 3, ParentFirst)

	n, _ := h.LookupDomain(1)
	timing.fire(h.timingEvent, n)

	if !status.resolved || status.err != TimedOut {
		t.Fatalf("transit status = %+v, want resolved TimedOut (first failure)", status)
	}
	if h.node(n).TransitionCount != 0 {
		t.Fatalf("transition count = %d, want 0 after advancing past timeout", h.node(n).TransitionCount)
	}
}

// S4: two-level hierarchy, ChildrenFirst visits members bottom-up.
func TestSystemTransitionChildrenFirstOrder(t *testing.T) {
	h, _ := twoLevelHierarchy(t)

	root, _ := h.LookupDomain(0)
	domA, _ := h.LookupDomain(0xA)
	domB, _ := h.LookupDomain(0xB)

	if got := h.ChildCount(root); got != 2 {
		t.Fatalf("root child count = %d, want 2", got)
	}

	status := &fakeStatus{}
	if err := h.RequestSystemTransition(status, 5, ChildrenFirst); err != Success {
		t.Fatalf("RequestSystemTransition: %v", err)
	}

	if !status.resolved || status.err != Success {
		t.Fatalf("transit status = %+v, want resolved Success (no members attached)", status)
	}
	for _, n := range []NodeID{root, domA, domB} {
		if h.State(n) != 5 {
			t.Fatalf("domain %d state = %d, want 5", h.node(n).ID, h.State(n))
		}
	}
}

// S5: observer with observe_type=Fail sees exactly the failing ack.
func TestObserverSeesFilteredFailure(t *testing.T) {
	h, _ := singleNodeHierarchy(t, Continue)
	observer := SessionID(1)
	member := SessionID(2)

	h.JoinDomain(member, 1)
	h.RequestTransitionNotification(member)

	if err := h.ObserverJoin(observer, 1, Fail); err != Success {
		t.Fatalf("ObserverJoin: %v", err)
	}
	if err := h.ObserverStart(observer); err != Success {
		t.Fatalf("ObserverStart: %v", err)
	}
	notifyStatus := &fakeStatus{}
	if err := h.ObserverNotify(observer, notifyStatus); err != Success {
		t.Fatalf("ObserverNotify: %v", err)
	}

	status := &fakeStatus{}
	h.RequestDomainTransition(status, 1, 3, ParentFirst)

	n, _ := h.LookupDomain(1)
	key := h.node(n).StatePropKey
	propVal, _ := h.props.GetInt(Category, key)
	h.AcknowledgeLastState(member, propVal, NotReady)

	if !notifyStatus.resolved {
		t.Fatal("observer notify never resolved")
	}
	if len(h.Transitions) != 1 {
		t.Fatalf("transitions log = %v, want exactly one entry", h.Transitions)
	}
	got := h.Transitions[0]
	if got.DomainID != 1 || got.Err != NotReady {
		t.Fatalf("transitions[0] = %+v, want {DomainID:1 Err:NotReady ...}", got)
	}
	if got.PrevState != 0 {
		t.Fatalf("transitions[0].PrevState = %d, want 0 (the domain's state before this transition)", got.PrevState)
	}
}

// S6: Defer then a timeout resolves the deferral with Success; the
// session then acknowledges and the transit completes.
func TestDeferThenTimeoutThenAcknowledge(t *testing.T) {
	h, timing := singleNodeHierarchy(t, Stop)
	session := SessionID(3)
	h.JoinDomain(session, 1)
	h.RequestTransitionNotification(session)

	status := &fakeStatus{}
	h.RequestDomainTransition(status, 1, 3, ParentFirst)

	deferStatus := &fakeStatus{}
	if err := h.DeferAcknowledge(session, deferStatus); err != Success {
		t.Fatalf("DeferAcknowledge: %v", err)
	}

	n, _ := h.LookupDomain(1)
	timing.fire(h.timingEvent, n)

	if !deferStatus.resolved || deferStatus.err != Success {
		t.Fatalf("deferral status = %+v, want resolved Success", deferStatus)
	}
	if status.resolved {
		t.Fatal("transit status resolved too early; deferral should only buy one quantum")
	}

	key := h.node(n).StatePropKey
	propVal, _ := h.props.GetInt(Category, key)
	if err := h.AcknowledgeLastState(session, propVal, Success); err != Success {
		t.Fatalf("AcknowledgeLastState: %v", err)
	}
	if !status.resolved || status.err != Success {
		t.Fatalf("transit status = %+v, want resolved Success", status)
	}
}

// Invariant 6: with fail_policy=Stop, a failing ack propagates as the
// transit's completion error.
func TestStopPolicyPropagatesFirstFailure(t *testing.T) {
	h, _ := singleNodeHierarchy(t, Stop)
	session := SessionID(4)
	h.JoinDomain(session, 1)
	h.RequestTransitionNotification(session)

	status := &fakeStatus{}
	h.RequestDomainTransition(status, 1, 3, ParentFirst)

	n, _ := h.LookupDomain(1)
	key := h.node(n).StatePropKey
	propVal, _ := h.props.GetInt(Category, key)
	h.AcknowledgeLastState(session, propVal, NotReady)

	if !status.resolved || status.err != NotReady {
		t.Fatalf("transit status = %+v, want resolved NotReady", status)
	}
}

// Invariant 5: the transition id component of a domain's state property
// is strictly monotone across successive transitions on the same
// hierarchy.
func TestTransitionIDMonotone(t *testing.T) {
	h, _ := singleNodeHierarchy(t, Stop)
	session := SessionID(5)
	h.JoinDomain(session, 1)

	n, _ := h.LookupDomain(1)
	key := h.node(n).StatePropKey

	var lastID uint32
	for i, target := range []int32{1, 2, 3} {
		h.RequestTransitionNotification(session)
		status := &fakeStatus{}
		h.RequestDomainTransition(status, 1, target, ParentFirst)

		propVal, _ := h.props.GetInt(Category, key)
		gotID := uint32(int32(propVal)>>24) & 0x00FFFFFF
		if i > 0 && gotID <= lastID {
			t.Fatalf("transition id %d did not increase past %d", gotID, lastID)
		}
		lastID = gotID
		h.AcknowledgeLastState(session, propVal, Success)
	}
}

// CancelTransition resolves the transit status and any parked deferral
// with Cancel.
func TestCancelTransitionResolvesParkedCells(t *testing.T) {
	h, _ := singleNodeHierarchy(t, Stop)
	session := SessionID(6)
	h.JoinDomain(session, 1)
	h.RequestTransitionNotification(session)

	status := &fakeStatus{}
	h.RequestDomainTransition(status, 1, 3, ParentFirst)

	deferStatus := &fakeStatus{}
	h.DeferAcknowledge(session, deferStatus)

	if err := h.CancelTransition(); err != Success {
		t.Fatalf("CancelTransition: %v", err)
	}
	if !status.resolved || status.err != Cancel {
		t.Fatalf("transit status = %+v, want resolved Cancel", status)
	}
	if !deferStatus.resolved || deferStatus.err != Cancel {
		t.Fatalf("deferral status = %+v, want resolved Cancel", deferStatus)
	}
}

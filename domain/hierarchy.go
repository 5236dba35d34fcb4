package domain

import "log/slog"

// Hierarchy is a rooted tree of domains with a single in-flight
// transition at a time. Its arena holds every Domain the tree owns;
// NodeID(0) is never a valid index, and RootDomain is always NodeID(1).
type Hierarchy struct {
	ID         uint8
	nodes      []Domain
	RootDomain NodeID

	TransitionID uint32 // monotone, masked to 24 bits
	TransDomain  NodeID
	TransState   int32
	TraverseDir  Dir
	PositiveDir  Dir
	NegDir       Dir
	FailPolicy   FailPolicy
	TransTimeout uint64

	TransStatus   StatusCell
	ObserveStatus StatusCell

	ObservedDomain   NodeID
	ObserveType      ObserveFlags
	ObserverStarted  bool
	ObservedChildren uint32
	ObserveSession   SessionID

	AcknowledgePending map[SessionID]bool
	DeferralStatuses   map[SessionID]StatusCell
	sessionDomain      map[SessionID]NodeID

	Transitions     []TransitionLogEntry
	TransitionsFail []FailureLogEntry

	ControlSession SessionID

	timing      Timing
	timingEvent EventHandle
	props       PropertyStore
	log         *slog.Logger
}

// newHierarchy allocates an empty hierarchy bound to its collaborators.
// Callers populate the arena (newHierarchyFromRecord in manager.go) before
// using it.
func newHierarchy(id uint8, positive, neg Dir, policy FailPolicy, timeout uint64, timing Timing, props PropertyStore, log *slog.Logger) *Hierarchy {
	if log == nil {
		log = slog.Default()
	}
	h := &Hierarchy{
		ID:                 id,
		PositiveDir:        positive,
		NegDir:             neg,
		FailPolicy:         policy,
		TransTimeout:       timeout,
		AcknowledgePending: make(map[SessionID]bool),
		DeferralStatuses:   make(map[SessionID]StatusCell),
		sessionDomain:      make(map[SessionID]NodeID),
		timing:             timing,
		props:              props,
		log:                log,
	}
	h.timingEvent = timing.RegisterEvent("domain_transition_timeout", h.onTimeout)
	return h
}

func (h *Hierarchy) node(n NodeID) *Domain { return &h.nodes[n] }

// findByDomainID searches the arena for a domain by its external id.
func (h *Hierarchy) findByDomainID(id uint16) (NodeID, bool) {
	for i := 1; i < len(h.nodes); i++ {
		if h.nodes[i].ID == id {
			return NodeID(i), true
		}
	}
	return 0, false
}

// LookupDomain is the read-only counterpart findByDomainID exposes to
// domain.Manager.
func (h *Hierarchy) LookupDomain(id uint16) (NodeID, bool) {
	return h.findByDomainID(id)
}

// ChildCount returns the live sibling-chain length rooted at n's Child,
// for asserting invariant 4 from outside the package.
func (h *Hierarchy) ChildCount(n NodeID) uint32 {
	return h.nodes[n].childCountInvariant(h.nodes)
}

// State returns n's current committed state.
func (h *Hierarchy) State(n NodeID) int32 { return h.nodes[n].State }

// Transition is the entry point for driving domainID toward targetState.
// It returns false (caller reports BadDomainID) if domainID does not
// resolve in this hierarchy.
func (h *Hierarchy) Transition(status StatusCell, domainID uint16, targetState int32, direction Dir) bool {
	n, ok := h.findByDomainID(domainID)
	if !ok {
		return false
	}
	h.TransStatus = status
	h.TransDomain = n
	h.setState(targetState, direction)
	h.TransitionID = (h.TransitionID + 1) & 0x00FFFFFF

	h.log.Debug("domain: transition started", "hierarchy", h.ID, "domain", domainID, "target", targetState, "dir", h.TraverseDir)
	h.doDomainTransition(n)
	return true
}

// setState resolves the traversal direction for this transition. When
// the caller asked for ParentFirst it is interpreted as "auto": ascend
// via PositiveDir when the target is at or above the subroot's current
// state, descend via NegDir otherwise. Any other requested direction is
// used verbatim.
func (h *Hierarchy) setState(targetState int32, direction Dir) {
	h.TransState = targetState
	if direction == ParentFirst {
		if targetState >= h.nodes[h.TransDomain].State {
			h.TraverseDir = h.PositiveDir
		} else {
			h.TraverseDir = h.NegDir
		}
		return
	}
	h.TraverseDir = direction
}

func (h *Hierarchy) doDomainTransition(n NodeID) {
	switch h.TraverseDir {
	case ChildrenFirst:
		h.doChildrenTransition(n)
	default:
		h.doMembersTransition(n)
	}
}

func (h *Hierarchy) doChildrenTransition(n NodeID) {
	node := h.node(n)
	if node.Child == 0 {
		h.completeChildrenTransition(n)
		return
	}
	node.TransitionCount = node.ChildCount
	for c := node.Child; c != 0; {
		next := h.nodes[c].Peer
		h.doDomainTransition(c)
		c = next
	}
}

func (h *Hierarchy) doMembersTransition(n NodeID) {
	node := h.node(n)
	node.PrevState = node.State
	node.State = h.TransState

	for i := range node.Attached {
		a := &node.Attached[i]
		if !a.nofEnabled {
			continue
		}
		node.TransitionCount++
		a.nofEnabled = false
		h.AcknowledgePending[a.session] = true

		if node.Observed && h.ObserveType&TransRequest != 0 {
			h.Transitions = append(h.Transitions, TransitionLogEntry{
				TransitionID: h.TransitionID,
				DomainID:     node.ID,
				PrevState:    node.PrevState,
				Err:          Outstanding,
			})
			h.completeObserverNotify()
		}
	}

	h.props.SetInt(Category, node.StatePropKey, StatePropertyValue(h.TransitionID, node.State))

	if node.TransitionCount > 0 {
		h.timing.ScheduleEvent(h.timingEvent, n, h.TransTimeout)
		node.TimeoutScheduled = true
		return
	}
	h.completeMembersTransition(n)
}

func (h *Hierarchy) completeMembersTransition(n NodeID) {
	if h.TraverseDir == ChildrenFirst {
		h.completeDomainTransition(n)
		return
	}
	h.doChildrenTransition(n)
}

func (h *Hierarchy) completeChildrenTransition(n NodeID) {
	if h.TraverseDir == ChildrenFirst {
		h.doMembersTransition(n)
		return
	}
	h.completeDomainTransition(n)
}

func (h *Hierarchy) completeDomainTransition(n NodeID) {
	if n == h.TransDomain {
		err := Success
		if len(h.TransitionsFail) > 0 {
			err = h.TransitionsFail[0].Err
		}
		h.finishTransit(err)
		return
	}
	parent := h.node(n).Parent
	pnode := h.node(parent)
	if pnode.TransitionCount > 0 {
		pnode.TransitionCount--
	}
	if pnode.TransitionCount == 0 {
		h.completeChildrenTransition(parent)
	}
}

func (h *Hierarchy) finishTransit(err Err) {
	h.log.Info("domain: transition finished", "hierarchy", h.ID, "err", err)
	if h.TransStatus != nil {
		h.TransStatus.Resolve(err)
		h.TransStatus = nil
	}
}

// completeAcknowledgeWithErr folds a member's acknowledgement result into
// its domain's outstanding count, recording failures and waking any
// observer interested in this outcome class.
func (h *Hierarchy) completeAcknowledgeWithErr(n NodeID, err Err) {
	node := h.node(n)

	if err != Success {
		h.TransitionsFail = append(h.TransitionsFail, FailureLogEntry{DomainID: node.ID, Err: err})
		if node.Observed && h.ObserveType&Fail != 0 {
			h.Transitions = append(h.Transitions, TransitionLogEntry{
				TransitionID: h.TransitionID,
				DomainID:     node.ID,
				PrevState:    node.PrevState,
				Err:          err,
			})
			h.completeObserverNotify()
		}
		if h.FailPolicy == Stop {
			h.finishTransit(err)
			return
		}
	} else if node.Observed && h.ObserveType&Pass != 0 {
		h.Transitions = append(h.Transitions, TransitionLogEntry{
			TransitionID: h.TransitionID,
			DomainID:     node.ID,
			PrevState:    node.PrevState,
			Err:          Success,
		})
		h.completeObserverNotify()
	}

	if node.TransitionCount > 0 {
		node.TransitionCount--
	}
	if node.TransitionCount == 0 {
		if node.TimeoutScheduled {
			h.timing.UnscheduleEvent(h.timingEvent, n)
			node.TimeoutScheduled = false
		}
		h.completeMembersTransition(n)
	}
}

func (h *Hierarchy) completeObserverNotify() {
	if h.ObserveStatus != nil {
		h.ObserveStatus.Resolve(Success)
		h.ObserveStatus = nil
	}
}

// AcknowledgeLastState resolves a member's outstanding acknowledgement.
// The caller must present the state-property value it last observed;
// a mismatch (a stale read) is reported as NotFound rather than acted
// on.
func (h *Hierarchy) AcknowledgeLastState(session SessionID, propVal int32, err Err) Err {
	n, ok := h.sessionDomain[session]
	if !ok {
		return NotJoined
	}
	node := h.node(n)
	cur, _ := h.props.GetInt(Category, node.StatePropKey)
	if propVal != cur || !h.AcknowledgePending[session] {
		return NotFound
	}

	if cell, ok := h.DeferralStatuses[session]; ok {
		cell.Resolve(Success)
		delete(h.DeferralStatuses, session)
	}
	delete(h.AcknowledgePending, session)
	h.completeAcknowledgeWithErr(n, err)
	return Success
}

// onTimeout is the callback bound to h.timingEvent; it is only ever
// invoked by the Timing service, never called directly.
func (h *Hierarchy) onTimeout(n NodeID) {
	node := h.node(n)

	var live []SessionID
	for session, cell := range h.DeferralStatuses {
		if h.sessionDomain[session] == n {
			live = append(live, session)
			_ = cell
		}
	}
	if len(live) > 0 {
		h.timing.ScheduleEvent(h.timingEvent, n, h.TransTimeout)
		for _, session := range live {
			h.DeferralStatuses[session].Resolve(Success)
			delete(h.DeferralStatuses, session)
		}
		return
	}

	h.TransitionsFail = append(h.TransitionsFail, FailureLogEntry{DomainID: node.ID, Err: TimedOut})
	node.TimeoutScheduled = false

	if h.FailPolicy == Stop {
		h.finishTransit(TimedOut)
		return
	}

	if node.TransitionCount > 0 {
		for session := range h.AcknowledgePending {
			if h.sessionDomain[session] == n {
				delete(h.AcknowledgePending, session)
			}
		}
		node.TransitionCount = 0
		h.completeMembersTransition(n)
	}
}

// subtree collects n and every descendant NodeID, used by CancelTransition
// to resolve deferrals scoped to the in-flight subtree.
func (h *Hierarchy) subtree(n NodeID, out []NodeID) []NodeID {
	out = append(out, n)
	for c := h.node(n).Child; c != 0; c = h.node(c).Peer {
		out = h.subtree(c, out)
	}
	return out
}

// CancelTransition aborts whatever transition is in flight on this
// hierarchy: every parked deferral and both status cells resolve with
// Cancel, and bookkeeping on the in-flight subtree is cleared.
func (h *Hierarchy) CancelTransition() Err {
	if h.TransDomain != 0 {
		in := make(map[NodeID]bool)
		for _, n := range h.subtree(h.TransDomain, nil) {
			in[n] = true
			node := h.node(n)
			node.TransitionCount = 0
			node.TimeoutScheduled = false
			h.timing.UnscheduleEvent(h.timingEvent, n)
		}
		for session, cell := range h.DeferralStatuses {
			if in[h.sessionDomain[session]] {
				cell.Resolve(Cancel)
				delete(h.DeferralStatuses, session)
			}
		}
	}
	if h.TransStatus != nil {
		h.TransStatus.Resolve(Cancel)
		h.TransStatus = nil
	}
	if h.ObserveStatus != nil {
		h.ObserveStatus.Resolve(Cancel)
		h.ObserveStatus = nil
	}
	h.TransDomain = 0
	return Success
}

// setObserve toggles observation for n and every descendant, adjusting
// ObservedChildren by exactly the number of nodes whose flag actually
// flipped.
func (h *Hierarchy) setObserve(n NodeID, on bool) {
	node := h.node(n)
	if node.Observed != on {
		node.Observed = on
		if on {
			h.ObservedChildren++
		} else if h.ObservedChildren > 0 {
			h.ObservedChildren--
		}
	}
	for c := node.Child; c != 0; c = h.node(c).Peer {
		h.setObserve(c, on)
	}
}

// GetTransitionFailureCount reports how many failures this hierarchy has
// ever recorded.
func (h *Hierarchy) GetTransitionFailureCount() int {
	return len(h.TransitionsFail)
}

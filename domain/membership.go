package domain

// JoinDomain attaches session to the domain identified by domainID.
func (h *Hierarchy) JoinDomain(session SessionID, domainID uint16) Err {
	n, ok := h.findByDomainID(domainID)
	if !ok {
		return BadDomainID
	}
	node := h.node(n)
	node.Attached = append(node.Attached, sessionAttachment{session: session})
	h.sessionDomain[session] = n
	return Success
}

func (h *Hierarchy) attachmentFor(session SessionID) (*sessionAttachment, bool) {
	n, ok := h.sessionDomain[session]
	if !ok {
		return nil, false
	}
	node := h.node(n)
	for i := range node.Attached {
		if node.Attached[i].session == session {
			return &node.Attached[i], true
		}
	}
	return nil, false
}

// RequestTransitionNotification enables transition notifications for a
// joined session.
func (h *Hierarchy) RequestTransitionNotification(session SessionID) Err {
	a, ok := h.attachmentFor(session)
	if !ok {
		return NotJoined
	}
	a.nofEnabled = true
	return Success
}

// CancelTransitionNotification disables transition notifications for a
// joined session.
func (h *Hierarchy) CancelTransitionNotification(session SessionID) Err {
	a, ok := h.attachmentFor(session)
	if !ok {
		return NotJoined
	}
	a.nofEnabled = false
	return Success
}

// DeferAcknowledge parks status as session's deferral cell, buying one
// extra timeout quantum the next time this domain's timer fires.
// Requires an outstanding acknowledgement and no existing deferral.
func (h *Hierarchy) DeferAcknowledge(session SessionID, status StatusCell) Err {
	if !h.AcknowledgePending[session] {
		return NotReady
	}
	if _, exists := h.DeferralStatuses[session]; exists {
		return InUse
	}
	h.DeferralStatuses[session] = status
	return Success
}

// CancelDeferAcknowledge withdraws a previously parked deferral, resolving
// it with InUse (the original promise is voided, not satisfied).
func (h *Hierarchy) CancelDeferAcknowledge(session SessionID) Err {
	cell, ok := h.DeferralStatuses[session]
	if !ok {
		return NotFound
	}
	cell.Resolve(InUse)
	delete(h.DeferralStatuses, session)
	return Success
}

// RequestDomainTransition drives domainID toward targetState and parks
// status to be resolved when the transition concludes.
func (h *Hierarchy) RequestDomainTransition(status StatusCell, domainID uint16, targetState int32, direction Dir) Err {
	if h.TransStatus != nil {
		return NotReady
	}
	if !h.Transition(status, domainID, targetState, direction) {
		h.TransStatus = nil
		return BadDomainID
	}
	return Success
}

// RequestSystemTransition drives the whole hierarchy, starting from the
// root domain, toward targetState.
func (h *Hierarchy) RequestSystemTransition(status StatusCell, targetState int32, direction Dir) Err {
	return h.RequestDomainTransition(status, h.node(h.RootDomain).ID, targetState, direction)
}

// ObserverJoin attaches session as this hierarchy's single observer,
// watching domainID's subtree for the event classes in observeType.
func (h *Hierarchy) ObserverJoin(session SessionID, domainID uint16, observeType ObserveFlags) Err {
	if h.ObserveSession != 0 {
		return BadSequence
	}
	n, ok := h.findByDomainID(domainID)
	if !ok {
		return BadDomainID
	}
	h.ObserveSession = session
	h.ObservedDomain = n
	h.ObserveType = observeType
	h.setObserve(n, true)
	return Success
}

// ObserverStart marks the joined observer ready to receive notifications.
func (h *Hierarchy) ObserverStart(session SessionID) Err {
	if session != h.ObserveSession || h.ObserveSession == 0 {
		return BadSequence
	}
	if h.ObserverStarted {
		return BadSequence
	}
	h.ObserverStarted = true
	return Success
}

// ObserverNotify parks status to be resolved the next time a matching
// transition event is recorded against the observed subtree.
func (h *Hierarchy) ObserverNotify(session SessionID, status StatusCell) Err {
	if session != h.ObserveSession || !h.ObserverStarted {
		return BadSequence
	}
	h.ObserveStatus = status
	return Success
}

// ObserverCancel withdraws the joined observer, clearing observed flags on
// its subtree and resolving any parked notify with Cancel.
func (h *Hierarchy) ObserverCancel(session SessionID) Err {
	if session != h.ObserveSession || h.ObserveSession == 0 {
		return BadSequence
	}
	h.setObserve(h.ObservedDomain, false)
	if h.ObserveStatus != nil {
		h.ObserveStatus.Resolve(Cancel)
		h.ObserveStatus = nil
	}
	h.ObserveSession = 0
	h.ObserverStarted = false
	h.ObservedDomain = 0
	h.ObserveType = 0
	return Success
}

// ObservedCount reports how many nodes in this hierarchy currently have
// their Observed flag set.
func (h *Hierarchy) ObservedCount(session SessionID) (int, Err) {
	if session != h.ObserveSession || h.ObserveSession == 0 {
		return 0, BadSequence
	}
	return int(h.ObservedChildren), Success
}

package domain

// Server dispatches the domain-side IPC operation codes (§6) onto one
// hierarchy's methods. It is a thin façade: every real decision lives on
// Hierarchy; Server exists so a transport adapter has one place to route
// an incoming request by (hierarchy id, domain id) instead of reaching
// into domain.Manager on every call.
type Server struct {
	manager *Manager
}

// NewServer constructs a Server routing through manager.
func NewServer(manager *Manager) *Server {
	return &Server{manager: manager}
}

func (s *Server) resolve(hierID uint8, domID uint16) (*Hierarchy, Err) {
	h := s.manager.LookupHierarchy(hierID)
	if h == nil {
		return nil, BadHierarchyID
	}
	if _, ok := h.LookupDomain(domID); !ok {
		return nil, BadDomainID
	}
	return h, Success
}

// JoinDomain handles the JoinDomain operation code.
func (s *Server) JoinDomain(ctx Context, hierID uint8, domID uint16) {
	h, err := s.resolve(hierID, domID)
	if err != Success {
		ctx.Complete(err)
		return
	}
	ctx.Complete(h.JoinDomain(ctx.Session(), domID))
}

// RequestTransitionNotification handles the ReqTransNof operation code.
func (s *Server) RequestTransitionNotification(ctx Context, hierID uint8) {
	h := s.manager.LookupHierarchy(hierID)
	if h == nil {
		ctx.Complete(BadHierarchyID)
		return
	}
	ctx.Complete(h.RequestTransitionNotification(ctx.Session()))
}

// CancelTransitionNotification handles the CancelTransNof operation code.
func (s *Server) CancelTransitionNotification(ctx Context, hierID uint8) {
	h := s.manager.LookupHierarchy(hierID)
	if h == nil {
		ctx.Complete(BadHierarchyID)
		return
	}
	ctx.Complete(h.CancelTransitionNotification(ctx.Session()))
}

// Acknowledge handles the Acknowledge operation code.
func (s *Server) Acknowledge(ctx Context, hierID uint8, propVal int32, ackErr Err) {
	h := s.manager.LookupHierarchy(hierID)
	if h == nil {
		ctx.Complete(BadHierarchyID)
		return
	}
	ctx.Complete(h.AcknowledgeLastState(ctx.Session(), propVal, ackErr))
}

// DeferAcknowledge handles the DeferAcknowledge operation code.
func (s *Server) DeferAcknowledge(ctx Context, hierID uint8, status StatusCell) {
	h := s.manager.LookupHierarchy(hierID)
	if h == nil {
		ctx.Complete(BadHierarchyID)
		return
	}
	ctx.Complete(h.DeferAcknowledge(ctx.Session(), status))
}

// CancelDeferAcknowledge handles the CancelDeferAcknowledge operation
// code.
func (s *Server) CancelDeferAcknowledge(ctx Context, hierID uint8) {
	h := s.manager.LookupHierarchy(hierID)
	if h == nil {
		ctx.Complete(BadHierarchyID)
		return
	}
	ctx.Complete(h.CancelDeferAcknowledge(ctx.Session()))
}

// ManagerServer dispatches the manager-side IPC operation codes (§6) onto
// domain.Manager and the hierarchies it owns.
type ManagerServer struct {
	manager *Manager
}

// NewManagerServer constructs a ManagerServer routing through manager.
func NewManagerServer(manager *Manager) *ManagerServer {
	return &ManagerServer{manager: manager}
}

// AddHierarchy handles the AddHierarchy operation code.
func (s *ManagerServer) AddHierarchy(ctx Context, hierID uint8) {
	if s.manager.AddHierarchyFromDatabase(hierID) {
		ctx.Complete(Success)
		return
	}
	ctx.Complete(BadHierarchyID)
}

// JoinHierarchy handles the JoinHierarchy operation code: the calling
// session becomes the hierarchy's one control session.
func (s *ManagerServer) JoinHierarchy(ctx Context, hierID uint8) {
	h := s.manager.LookupHierarchy(hierID)
	if h == nil {
		ctx.Complete(BadHierarchyID)
		return
	}
	if h.ControlSession != 0 && h.ControlSession != ctx.Session() {
		ctx.Complete(InUse)
		return
	}
	h.ControlSession = ctx.Session()
	ctx.Complete(Success)
}

// RequestDomainTransition handles the ReqDomainTrans operation code.
func (s *ManagerServer) RequestDomainTransition(ctx Context, hierID uint8, domID uint16, targetState int32, direction Dir, status StatusCell) {
	h := s.manager.LookupHierarchy(hierID)
	if h == nil {
		ctx.Complete(BadHierarchyID)
		return
	}
	if h.ControlSession != ctx.Session() {
		ctx.Complete(NotJoined)
		return
	}
	ctx.Complete(h.RequestDomainTransition(status, domID, targetState, direction))
}

// RequestSystemTransition handles the ReqSystemTrans operation code.
func (s *ManagerServer) RequestSystemTransition(ctx Context, hierID uint8, targetState int32, direction Dir, status StatusCell) {
	h := s.manager.LookupHierarchy(hierID)
	if h == nil {
		ctx.Complete(BadHierarchyID)
		return
	}
	if h.ControlSession != ctx.Session() {
		ctx.Complete(NotJoined)
		return
	}
	ctx.Complete(h.RequestSystemTransition(status, targetState, direction))
}

// CancelTransition handles the CancelTrans operation code.
func (s *ManagerServer) CancelTransition(ctx Context, hierID uint8) {
	h := s.manager.LookupHierarchy(hierID)
	if h == nil {
		ctx.Complete(BadHierarchyID)
		return
	}
	ctx.Complete(h.CancelTransition())
}

// GetTransitionFailureCount handles the GetTransitionFailureCount
// operation code.
func (s *ManagerServer) GetTransitionFailureCount(ctx Context, hierID uint8) (int, Err) {
	h := s.manager.LookupHierarchy(hierID)
	if h == nil {
		return 0, BadHierarchyID
	}
	return h.GetTransitionFailureCount(), Success
}

// ObserverJoin handles the ObserverJoin operation code.
func (s *ManagerServer) ObserverJoin(ctx Context, hierID uint8, domID uint16, observeType ObserveFlags) {
	h := s.manager.LookupHierarchy(hierID)
	if h == nil {
		ctx.Complete(BadHierarchyID)
		return
	}
	ctx.Complete(h.ObserverJoin(ctx.Session(), domID, observeType))
}

// ObserverStart handles the ObserverStart operation code.
func (s *ManagerServer) ObserverStart(ctx Context, hierID uint8) {
	h := s.manager.LookupHierarchy(hierID)
	if h == nil {
		ctx.Complete(BadHierarchyID)
		return
	}
	ctx.Complete(h.ObserverStart(ctx.Session()))
}

// ObserverCancel handles the ObserverCancel operation code.
func (s *ManagerServer) ObserverCancel(ctx Context, hierID uint8) {
	h := s.manager.LookupHierarchy(hierID)
	if h == nil {
		ctx.Complete(BadHierarchyID)
		return
	}
	ctx.Complete(h.ObserverCancel(ctx.Session()))
}

// ObserverNotify handles the ObserverNotify operation code.
func (s *ManagerServer) ObserverNotify(ctx Context, hierID uint8, status StatusCell) {
	h := s.manager.LookupHierarchy(hierID)
	if h == nil {
		ctx.Complete(BadHierarchyID)
		return
	}
	ctx.Complete(h.ObserverNotify(ctx.Session(), status))
}

// ObservedCount handles the ObservedCount operation code.
func (s *ManagerServer) ObservedCount(ctx Context, hierID uint8) (int, Err) {
	h := s.manager.LookupHierarchy(hierID)
	if h == nil {
		return 0, BadHierarchyID
	}
	return h.ObservedCount(ctx.Session())
}

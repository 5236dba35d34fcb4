package domain

import "log/slog"

// Manager maps hierarchy ids to live Hierarchy instances, instantiating
// them from the static Database on request. It owns every hierarchy it
// constructs until the process tears down; there is no explicit shutdown
// operation because the arena backing each Hierarchy is ordinary Go
// memory collected once the Manager itself is no longer reachable.
type Manager struct {
	timing Timing
	props  PropertyStore
	log    *slog.Logger

	hierarchies map[uint8]*Hierarchy
}

// NewManager constructs a Manager bound to its collaborators and defines
// the well-known dm_init_key property.
func NewManager(timing Timing, props PropertyStore, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	props.Define(Category, InitKeyProperty, 1)
	return &Manager{
		timing:      timing,
		props:       props,
		log:         log,
		hierarchies: make(map[uint8]*Hierarchy),
	}
}

// AddHierarchyFromDatabase constructs the hierarchy named id from the
// static Database and registers it. It returns false only if id is not
// already registered and names no known record; if id is already
// registered it returns true without rebuilding it (idempotent add), per
// the AddHierarchy contract in §4.6.
func (m *Manager) AddHierarchyFromDatabase(id uint8) bool {
	if _, ok := m.hierarchies[id]; ok {
		return true
	}
	rec, ok := findRecord(id)
	if !ok {
		return false
	}
	m.hierarchies[id] = newHierarchyFromRecord(rec, m.timing, m.props, m.log)
	return true
}

// LookupHierarchy returns the hierarchy named id, or nil if it was never
// added. A nil result is not itself an error condition.
func (m *Manager) LookupHierarchy(id uint8) *Hierarchy {
	return m.hierarchies[id]
}

// LookupDomain resolves a (hierarchy id, domain id) pair to a node handle.
// A nil hierarchy or a missing domain both report ok == false.
func (m *Manager) LookupDomain(hierID uint8, domID uint16) (h *Hierarchy, n NodeID, ok bool) {
	h = m.hierarchies[hierID]
	if h == nil {
		return nil, 0, false
	}
	n, ok = h.LookupDomain(domID)
	return h, n, ok
}

// newHierarchyFromRecord builds a Hierarchy's arena field-by-field from a
// static HierarchyRecord, never copying the record itself by value into
// live Domain storage.
func newHierarchyFromRecord(rec HierarchyRecord, timing Timing, props PropertyStore, log *slog.Logger) *Hierarchy {
	h := newHierarchy(rec.ID, rec.PositiveDir, rec.NegDir, rec.FailPolicy, rec.TransTimeout, timing, props, log)

	h.nodes = make([]Domain, 1, len(rec.Domains)+1) // index 0 unused
	idToNode := make(map[uint16]NodeID, len(rec.Domains))

	for i, dr := range rec.Domains {
		node := Domain{
			ID:           dr.ID,
			State:        dr.InitState,
			StatePropKey: StatePropertyKey(rec.ID, dr.ID),
		}
		h.nodes = append(h.nodes, node)
		n := NodeID(len(h.nodes) - 1)
		idToNode[dr.ID] = n

		if i == 0 {
			h.RootDomain = n
			continue
		}
		parent, ok := idToNode[dr.ParentID]
		if !ok {
			parent = h.RootDomain
		}
		pnode := h.node(parent)
		h.node(n).Parent = parent
		h.node(n).Peer = pnode.Child
		pnode.Child = n
		pnode.ChildCount++
	}

	for i := 1; i < len(h.nodes); i++ {
		props.SetInt(Category, h.nodes[i].StatePropKey, StatePropertyValue(0, h.nodes[i].State))
	}

	return h
}

package domain

// DomainRecord is one static row describing a domain to construct.
// ParentID is ignored for a hierarchy's first record (the root); every
// other record's ParentID must name a domain appearing earlier in the
// same HierarchyRecord's Domains slice.
type DomainRecord struct {
	ID        uint16
	ParentID  uint16
	InitState int32
}

// HierarchyRecord is one static row in domain.Database describing a
// hierarchy to construct on demand.
type HierarchyRecord struct {
	ID           uint8
	PositiveDir  Dir
	NegDir       Dir
	FailPolicy   FailPolicy
	TransTimeout uint64
	Domains      []DomainRecord
}

// Database is the read-only set of hierarchies the manager knows how to
// build. It is package-level data, never mutated at runtime: construction
// always copies field-by-field into a fresh Hierarchy/Domain, never a
// byte-wise struct copy of a record.
var Database = []HierarchyRecord{
	{
		ID:           1,
		PositiveDir:  ParentFirst,
		NegDir:       ChildrenFirst,
		FailPolicy:   Stop,
		TransTimeout: 50,
		Domains: []DomainRecord{
			{ID: 0, InitState: 0},
		},
	},
	{
		ID:           2,
		PositiveDir:  ParentFirst,
		NegDir:       ChildrenFirst,
		FailPolicy:   Continue,
		TransTimeout: 50,
		Domains: []DomainRecord{
			{ID: 0, InitState: 0},
			{ID: 0xA, ParentID: 0, InitState: 0},
			{ID: 0xB, ParentID: 0, InitState: 0},
		},
	},
}

// findRecord locates a HierarchyRecord by id.
func findRecord(id uint8) (HierarchyRecord, bool) {
	for _, rec := range Database {
		if rec.ID == id {
			return rec, true
		}
	}
	return HierarchyRecord{}, false
}

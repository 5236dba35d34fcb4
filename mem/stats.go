package mem

import "sort"

// Stats is a sample of MMU-level counters, shared between the model
// implementation and whatever is driving it (typically a cmd/ tool).
// Common counters are named fields; model-specific ones are registered
// by name so mem.Base stays ignorant of per-model bookkeeping.
type Stats struct {
	Reads       uint64
	Writes      uint64
	ReadFaults  uint64
	WriteFaults uint64

	PageTablesLive uint64

	other map[string]uint64
}

// NewStats creates a valid, empty Stats.
func NewStats() *Stats {
	return &Stats{other: make(map[string]uint64)}
}

// OtherStats lists the model-specific statistic names that have been
// registered so far, sorted for stable output.
func (s *Stats) OtherStats() []string {
	names := make([]string, 0, len(s.other))
	for name := range s.other {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetOther returns a model-specific statistic's value, or 0 if it was
// never registered.
func (s *Stats) GetOther(name string) uint64 {
	return s.other[name]
}

// RegisterOther registers a model-specific statistic. Idempotent: calling
// it again for an already-registered name is a no-op, so a model can call
// it unconditionally from its constructor.
func (s *Stats) RegisterOther(name string) {
	if _, ok := s.other[name]; !ok {
		s.other[name] = 0
	}
}

// AddOther adds an amount to a registered model-specific statistic. Panics
// if the statistic was never registered, to catch typos in the stat name
// early instead of silently dropping counts.
func (s *Stats) AddOther(name string, amount uint64) {
	if _, ok := s.other[name]; !ok {
		panic("mem: AddOther on unregistered statistic " + name)
	}
	s.other[name] += amount
}

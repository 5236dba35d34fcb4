// Package system wires the concrete MMU models into mem.MMU. It exists
// because the models live in mem/multiple and mem/flexible, both of which
// import mem for mem.Base and friends — a factory living inside mem itself
// could never call back into either without a cyclic import.
package system

import (
	"fmt"

	"github.com/avalonos/coreemu/cpu"
	"github.com/avalonos/coreemu/mem"
	"github.com/avalonos/coreemu/mem/flexible"
	"github.com/avalonos/coreemu/mem/multiple"
)

// NewMMU constructs an MMU of the requested model, bound to core and sized
// for pageSizeBits. conf.LegacyMemoryMap is passed along inside conf;
// neither model reads it.
func NewMMU(alloc mem.PageTableAllocator, core cpu.Core, conf mem.Config, pageSizeBits uint, model mem.ModelType) (mem.MMU, error) {
	profile := mem.ProfileFor(pageSizeBits)
	base := mem.NewBase(alloc, core, conf, profile)

	switch model {
	case mem.Multiple:
		return multiple.New(base, profile, alloc)
	case mem.Flexible:
		return flexible.New(base, profile, alloc)
	default:
		return nil, fmt.Errorf("system: unknown MMU model %v", model)
	}
}

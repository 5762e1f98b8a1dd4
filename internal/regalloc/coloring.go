package regalloc

import "github.com/snake-lang/snakec-backend/internal/ir"

// PhysReg is an opaque physical register identity. The regalloc package
// never interprets its value; internal/isa/amd64 owns the mapping between
// PhysReg and its own Reg enum.
type PhysReg int

// AllocKind discriminates an Allocation.
type AllocKind int

const (
	InReg AllocKind = iota
	InSpill
)

// Allocation is where a Var ends up living: a physical register or a stack
// spill slot.
type Allocation struct {
	Kind AllocKind
	Reg  PhysReg // meaningful when Kind == InReg
	Slot int     // meaningful when Kind == InSpill; 0-based spill slot index
}

// InRegister builds a register Allocation.
func InRegister(r PhysReg) Allocation { return Allocation{Kind: InReg, Reg: r} }

// InSpillSlot builds a spill-slot Allocation.
func InSpillSlot(slot int) Allocation { return Allocation{Kind: InSpill, Slot: slot} }

// IsReg reports whether the allocation lives in a physical register.
func (a Allocation) IsReg() bool { return a.Kind == InReg }

// IsSpill reports whether the allocation lives on the spill stack.
func (a Allocation) IsSpill() bool { return a.Kind == InSpill }

// Coloring is the result of running Color: every graph node's Allocation,
// plus how many distinct spill slots were handed out.
type Coloring struct {
	Assign    map[ir.Var]Allocation
	NumSpills int
}

// Lookup returns v's allocation. Panics if v was never colored — every Var
// appearing anywhere in the source program must have been pushed through
// Analyze first.
func (c *Coloring) Lookup(v ir.Var) Allocation {
	a, ok := c.Assign[v]
	if !ok {
		panic("regalloc: BUG: Var has no allocation: " + v.String())
	}
	return a
}

// Color runs Chaitin's algorithm over g, assigning each Var in order a
// register absent from every already-assigned neighbor, or a fresh spill
// slot when none remains.
//
// The teacher's own coloringFor sorts by current degree each round and
// repeatedly peels the lowest-degree frontier (or force-spills when none is
// simplifiable), because its interference graphs aren't known to be
// chordal. Here order is already a perfect elimination order (see Analyze),
// so the classical recursive formulation — pop the last-pushed node, color
// the rest first, then color it from its already-colored neighbors —
// reduces to a single greedy forward pass with no possibility of needing to
// backtrack or force a spill choice: a pass only ever "spills" a node
// because every allocatable register is genuinely taken by one of its
// already-colored neighbors, never as a heuristic tie-break. Walking order
// directly instead of simulating the recursion with an explicit stack also
// sidesteps any recursion-depth concern on large programs.
func Color(g *Graph, order []ir.Var, allocatable []PhysReg) *Coloring {
	assign := make(map[ir.Var]Allocation, len(order))
	numSpills := 0

	for _, v := range order {
		used := map[PhysReg]struct{}{}
		for _, n := range g.Neighbors(v) {
			if a, ok := assign[n]; ok && a.IsReg() {
				used[a.Reg] = struct{}{}
			}
		}

		assigned := false
		for _, r := range allocatable {
			if _, taken := used[r]; !taken {
				assign[v] = InRegister(r)
				assigned = true
				break
			}
		}
		if !assigned {
			assign[v] = InSpillSlot(numSpills)
			numSpills++
		}
	}

	return &Coloring{Assign: assign, NumSpills: numSpills}
}

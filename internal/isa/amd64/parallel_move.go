package amd64

// Move is one leg of a simultaneous move: dst receives either a literal
// constant or the current contents of another location (Src). A batch of
// Moves is resolved as a unit by emitParallelMove so that, e.g., swapping
// two block parameters' registers never clobbers one before the other is
// read.
type Move struct {
	Dst      Operand
	SrcConst bool
	Const    int64
	Src      Operand // meaningful when !SrcConst
}

// emitParallelMove emits moves as a simultaneous assignment: every
// destination ends up holding the value its source held *before* any of the
// batch's moves ran, regardless of how registers and spill slots alias
// across sources and destinations.
//
// A constant leg reads no location, but its destination may still be the
// source of another leg, so constant legs are written last, once every
// location-to-location leg has read its source. Those location legs form a
// move graph: at most
// one writer per destination, so it decomposes into chains (a destination
// nobody else still needs to read from — a "final" — can be written
// immediately) and cycles (resolved via register Xchg when every location
// involved is a register, or via the r10 scratch register otherwise).
func (e *Emitter) emitParallelMove(moves []Move) {
	pending := make([]Move, 0, len(moves))
	for _, m := range moves {
		if !m.SrcConst && m.Src == m.Dst {
			continue
		}
		pending = append(pending, m)
	}
	if len(pending) == 0 {
		return
	}

	remaining := map[Operand]Operand{} // dst -> src, for location-to-location legs
	var consts []Move
	for _, m := range pending {
		if m.SrcConst {
			consts = append(consts, m)
			continue
		}
		remaining[m.Dst] = m.Src
	}

	readers := map[Operand]int{} // src -> how many pending legs still read it
	for _, src := range remaining {
		readers[src]++
	}

	// Peel finals: a destination whose own location nobody else still needs
	// to read from can be written immediately, which may free up its
	// source to become a final in turn.
	for {
		progressed := false
		for dst, src := range remaining {
			if readers[dst] > 0 {
				continue // something else still needs dst's current value
			}
			e.movOperand(dst, src)
			delete(remaining, dst)
			readers[src]--
			progressed = true
		}
		if !progressed {
			break
		}
	}

	// Everything left decomposes into disjoint cycles (every remaining
	// destination is read by exactly the one leg ahead of it in its cycle).
	visited := map[Operand]bool{}
	for start := range remaining {
		if visited[start] {
			continue
		}
		cycle := []Operand{start}
		visited[start] = true
		for cur := remaining[start]; cur != start; cur = remaining[cur] {
			cycle = append(cycle, cur)
			visited[cur] = true
		}
		e.emitMoveCycle(cycle)
	}

	for _, m := range consts {
		e.movImmToOperand(m.Dst, m.Const)
	}
}

// emitMoveCycle resolves one cycle cycle[i] <- cycle[i+1] (cyclically, with
// cycle[n-1] <- cycle[0]) in place.
func (e *Emitter) emitMoveCycle(cycle []Operand) {
	n := len(cycle)
	if n == 1 {
		return // a self-cycle is an identity move, already filtered out
	}

	allRegs := true
	for _, loc := range cycle {
		if loc.Kind != OpKindReg {
			allRegs = false
			break
		}
	}

	if allRegs {
		for i := 0; i < n-1; i++ {
			e.push(Xchg(cycle[i], cycle[i+1]))
		}
		return
	}

	// At least one location is a spill slot: rotate through the r10 scratch
	// register instead. cycle[k] must end up with cycle[k+1]'s original
	// value (wrapping cycle[n-1] back to cycle[0]), so cycle[0] is saved
	// first (it's about to be overwritten, and only the final, wraparound
	// write still needs it), then each location is overwritten in order
	// from its still-original successor, and the cycle is closed from the
	// saved value.
	e.push(Mov(RegOperand(ScratchB), cycle[0]))
	for i := 0; i < n-1; i++ {
		e.movOperand(cycle[i], cycle[i+1])
	}
	e.movOperand(cycle[n-1], RegOperand(ScratchB))
}

// movImmToOperand moves a raw 64-bit constant into dst, routing through rax
// when dst is memory (mov to memory only accepts a 32-bit immediate).
func (e *Emitter) movImmToOperand(dst Operand, imm int64) {
	if dst.Kind == OpKindReg {
		e.push(Mov(dst, ImmOperand(imm)))
		return
	}
	e.push(Mov(RegOperand(ScratchA), ImmOperand(imm)))
	e.push(Mov(dst, RegOperand(ScratchA)))
}

// movOperand moves src into dst, routing through rax when both sides
// are memory (x86 has no memory-to-memory mov). A no-op when dst == src.
func (e *Emitter) movOperand(dst, src Operand) {
	if dst == src {
		return
	}
	if dst.Kind != OpKindReg && src.Kind != OpKindReg {
		e.push(Mov(RegOperand(ScratchA), src))
		e.push(Mov(dst, RegOperand(ScratchA)))
		return
	}
	e.push(Mov(dst, src))
}

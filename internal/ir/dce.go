package ir

import "sort"

// Progress reports what a single RemoveUnused pass actually removed, so the
// optimization driver loop (see pipeline.go) knows whether another round of
// liveness + DCE could still make progress.
type Progress struct {
	// DeadParams maps a block label to the sorted positional indices of the
	// params it had dropped, for every block that lost at least one.
	DeadParams map[BlockName][]int
	// DeadVars is the set of operation destinations spliced out because
	// nothing read them.
	DeadVars map[Var]struct{}
}

// Any reports whether this pass changed the program at all.
func (p *Progress) Any() bool {
	return len(p.DeadVars) > 0 || len(p.DeadParams) > 0
}

// RemoveUnused takes a liveness-annotated Program (as produced by
// AnalyzeLiveness) and returns a new Program with every dead operation
// spliced out and every dead block parameter (and the corresponding branch
// argument / call argument at every call site) dropped.
//
// A destination is dead when it does not appear in its operation's
// live-after set, i.e. node.Next.Ana. Call and AllocateArray operations are
// kept even when dead, since they may have externally visible side effects
// (the call itself, or the allocation's effect on the heap); only their
// liveness-irrelevance is noted, the operation form is preserved verbatim.
//
// A block parameter is dead when it does not appear in the block's own
// live-in set (BasicBlock.Ana). Every site that feeds that block a
// positional argument — a FunBlock's branch, a Branch terminator, or an
// internal Call — has the corresponding argument position dropped in
// lock-step, keeping arity consistent everywhere.
func RemoveUnused(prog *Program) (*Program, *Progress) {
	r := &remover{
		deadParams: map[BlockName]map[int]struct{}{},
		deadVars:   map[Var]struct{}{},
		funToBlock: map[FunName]BlockName{},
	}
	r.collectBlocks(prog.Blocks)

	newFuns := make([]FunBlock, len(prog.Funs))
	for i, f := range prog.Funs {
		newFuns[i] = r.rewriteFun(f)
	}
	newBlocks := make([]*BasicBlock, len(prog.Blocks))
	for i, b := range prog.Blocks {
		newBlocks[i] = r.rewriteBlock(b)
	}

	progress := &Progress{DeadParams: map[BlockName][]int{}, DeadVars: r.deadVars}
	for label, set := range r.deadParams {
		if len(set) == 0 {
			continue
		}
		idxs := make([]int, 0, len(set))
		for i := range set {
			idxs = append(idxs, i)
		}
		sort.Ints(idxs)
		progress.DeadParams[label] = idxs
	}

	return &Program{Externs: prog.Externs, Funs: newFuns, Blocks: newBlocks}, progress
}

type remover struct {
	deadParams map[BlockName]map[int]struct{}
	deadVars   map[Var]struct{}
	funToBlock map[FunName]BlockName
}

// collectBlocks walks every (possibly nested) block once, recording which
// of its param positions are absent from the block's own live-in set. Runs
// in full before any rewriting, so filterArgsForTarget can answer for any
// target regardless of traversal order.
func (r *remover) collectBlocks(blocks []*BasicBlock) {
	for _, b := range blocks {
		dead := map[int]struct{}{}
		for i, p := range b.Params {
			if !b.Ana.Contains(p) {
				dead[i] = struct{}{}
			}
		}
		r.deadParams[b.Label] = dead
		r.collectBody(b.Body)
	}
}

func (r *remover) collectBody(b *BlockBody) {
	for cur := b; cur != nil; cur = cur.Successor() {
		if cur.Kind == BodySubBlocks {
			r.collectBlocks(cur.SubBlocks)
		}
	}
}

func (r *remover) filterArgsForTarget(target BlockName, args []Immediate) []Immediate {
	dead := r.deadParams[target]
	if len(dead) == 0 {
		return args
	}
	out := make([]Immediate, 0, len(args))
	for i, a := range args {
		if _, isDead := dead[i]; !isDead {
			out = append(out, a)
		}
	}
	return out
}

// rewriteFun drops dead argument positions from a FunBlock's entry branch.
// The function's own Params are never dropped: arity with external callers
// is fixed by the calling convention, independent of which of the values it
// receives end up used.
func (r *remover) rewriteFun(f FunBlock) FunBlock {
	r.funToBlock[f.Name] = f.Target
	return FunBlock{
		Name:   f.Name,
		Params: f.Params,
		Target: f.Target,
		Args:   r.filterArgsForTarget(f.Target, f.Args),
	}
}

func (r *remover) rewriteBlock(b *BasicBlock) *BasicBlock {
	dead := r.deadParams[b.Label]
	params := make([]Var, 0, len(b.Params))
	for i, p := range b.Params {
		if _, isDead := dead[i]; !isDead {
			params = append(params, p)
		}
	}
	return &BasicBlock{Label: b.Label, Params: params, Body: r.rewriteBody(b.Body)}
}

func (r *remover) rewriteBody(b *BlockBody) *BlockBody {
	switch b.Kind {
	case BodyTerminator:
		return TerminatorBody(r.rewriteTerminator(b.Term))

	case BodyOperation:
		live := b.Next.Ana
		if !live.Contains(b.Dest) && !b.Op.IsCall() {
			r.deadVars[b.Dest] = struct{}{}
			return r.rewriteBody(b.Next)
		}
		return OperationBody(b.Dest, r.rewriteOp(b.Op), r.rewriteBody(b.Next))

	case BodyAssertType:
		return AssertTypeBody(b.AssertTy, b.AssertArg, r.rewriteBody(b.Next))

	case BodyAssertLength:
		return AssertLengthBody(b.LenArg, r.rewriteBody(b.Next))

	case BodyAssertInBounds:
		return AssertInBoundsBody(b.BoundArg, b.IndexArg, r.rewriteBody(b.Next))

	case BodyStore:
		return StoreBody(b.StoreAddr, b.StoreOffset, b.StoreVal, r.rewriteBody(b.Next))

	case BodySubBlocks:
		newSubs := make([]*BasicBlock, len(b.SubBlocks))
		for i, sb := range b.SubBlocks {
			newSubs[i] = r.rewriteBlock(sb)
		}
		return SubBlocksBody(newSubs, r.rewriteBody(b.Next))

	default:
		panic("ir: BUG: unknown BodyKind in dead code elimination")
	}
}

// rewriteOp filters a Call's argument list when it targets an internal
// function whose entry block just lost params. Calls to externs (absent
// from funToBlock) pass through untouched: extern arity is fixed by the
// platform ABI, not subject to this program's own DCE.
func (r *remover) rewriteOp(op Op) Op {
	if op.Kind != OpCall {
		return op
	}
	target, ok := r.funToBlock[op.Fun]
	if !ok {
		return op
	}
	return CallOp(op.Fun, r.filterArgsForTarget(target, op.Args))
}

func (r *remover) rewriteTerminator(t Terminator) Terminator {
	switch t.Kind {
	case TermReturn:
		return t
	case TermBranch:
		return BranchTerm(t.BranchTarget, r.filterArgsForTarget(t.BranchTarget, t.BranchArgs))
	case TermCondBranch:
		// then/else targets are arity-0 lexical siblings: nothing to filter.
		return t
	default:
		panic("ir: BUG: unknown TermKind in dead code elimination")
	}
}

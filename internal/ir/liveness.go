package ir

// AnalyzeLiveness computes, for every node of every (possibly nested) basic
// block body, the set of Vars live immediately before that node executes,
// and stores it in the node's Ana field. BasicBlock.Ana receives the same
// set computed for its body's first node — the block's live-in set: those
// of its own Params the body needs, plus any enclosing-scope Vars the body
// reads directly.
//
// The analysis is a backward fixpoint: a block's live-in set depends on the
// live-in sets of every block it branches to, which may not have been
// computed yet (forward references, loops via SubBlocks re-entry). Each
// round recomputes every block's live-in set using the *previous* round's
// results for branch targets; the loop stops once a round reproduces the
// previous round's sets exactly, following the same previous/current
// double-buffering shape as the teacher's own dataflow passes.
func AnalyzeLiveness(prog *Program) *Program {
	previous := map[BlockName]*LiveSet{}
	paramsOf := map[BlockName][]Var{}
	collectBlocks(prog.Blocks, previous, paramsOf)

	var out *Program
	for round := 0; ; round++ {
		a := &analyzer{previous: previous, paramsOf: paramsOf, current: map[BlockName]*LiveSet{}}
		out = a.runProgram(prog)
		if liveMapsEqual(previous, a.current) {
			return out
		}
		previous = a.current
		if round > 1_000_000 {
			panic("ir: BUG: liveness analysis failed to converge")
		}
	}
}

func collectBlocks(blocks []*BasicBlock, live map[BlockName]*LiveSet, params map[BlockName][]Var) {
	for _, b := range blocks {
		live[b.Label] = NewLiveSet()
		params[b.Label] = b.Params
		collectBody(b.Body, live, params)
	}
}

func collectBody(b *BlockBody, live map[BlockName]*LiveSet, params map[BlockName][]Var) {
	for cur := b; cur != nil; cur = cur.Successor() {
		if cur.Kind == BodySubBlocks {
			collectBlocks(cur.SubBlocks, live, params)
		}
	}
}

func liveMapsEqual(a, b map[BlockName]*LiveSet) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		o, ok := b[k]
		if !ok || !v.Equal(o) {
			return false
		}
	}
	return true
}

type analyzer struct {
	previous map[BlockName]*LiveSet // prior round's live-in sets, used for branch targets
	paramsOf map[BlockName][]Var
	current  map[BlockName]*LiveSet // this round's live-in sets, filled in as blocks are visited
}

func (a *analyzer) runProgram(prog *Program) *Program {
	newBlocks := make([]*BasicBlock, len(prog.Blocks))
	for i, b := range prog.Blocks {
		newBlocks[i] = a.analyzeBasicBlock(b)
	}
	return &Program{Externs: prog.Externs, Funs: prog.Funs, Blocks: newBlocks}
}

func (a *analyzer) analyzeBasicBlock(b *BasicBlock) *BasicBlock {
	body := a.analyzeSpine(b.Body)
	ls := body.Ana.Clone()
	a.current[b.Label] = ls
	return &BasicBlock{Label: b.Label, Params: b.Params, Body: body, Ana: ls}
}

// analyzeSpine walks the cons-list spine forward to find its end (the
// Terminator), then folds backward, since each node's live-in set depends
// on its successor's. Collecting the spine first avoids recursion depth
// proportional to straight-line body length.
func (a *analyzer) analyzeSpine(b *BlockBody) *BlockBody {
	var spine []*BlockBody
	for cur := b; ; cur = cur.Next {
		spine = append(spine, cur)
		if cur.Kind == BodyTerminator {
			break
		}
	}
	var next *BlockBody
	for i := len(spine) - 1; i >= 0; i-- {
		next = a.analyzeNode(spine[i], next)
	}
	return next
}

func (a *analyzer) analyzeNode(node *BlockBody, next *BlockBody) *BlockBody {
	switch node.Kind {
	case BodyTerminator:
		return &BlockBody{Kind: BodyTerminator, Term: node.Term, Ana: a.analyzeTerminator(node.Term)}

	case BodyOperation:
		ls := next.Ana.Clone()
		ls.Remove(node.Dest)
		for _, r := range node.Op.Reads() {
			ls.InsertImmediate(r)
		}
		return &BlockBody{Kind: BodyOperation, Dest: node.Dest, Op: node.Op, Next: next, Ana: ls}

	case BodyAssertType:
		ls := next.Ana.Clone()
		ls.InsertImmediate(node.AssertArg)
		return &BlockBody{Kind: BodyAssertType, AssertTy: node.AssertTy, AssertArg: node.AssertArg, Next: next, Ana: ls}

	case BodyAssertLength:
		ls := next.Ana.Clone()
		ls.InsertImmediate(node.LenArg)
		return &BlockBody{Kind: BodyAssertLength, LenArg: node.LenArg, Next: next, Ana: ls}

	case BodyAssertInBounds:
		ls := next.Ana.Clone()
		ls.InsertImmediate(node.BoundArg)
		ls.InsertImmediate(node.IndexArg)
		return &BlockBody{Kind: BodyAssertInBounds, BoundArg: node.BoundArg, IndexArg: node.IndexArg, Next: next, Ana: ls}

	case BodyStore:
		ls := next.Ana.Clone()
		ls.InsertImmediate(node.StoreAddr)
		ls.InsertImmediate(node.StoreOffset)
		ls.InsertImmediate(node.StoreVal)
		return &BlockBody{Kind: BodyStore, StoreAddr: node.StoreAddr, StoreOffset: node.StoreOffset, StoreVal: node.StoreVal, Next: next, Ana: ls}

	case BodySubBlocks:
		newSubs := make([]*BasicBlock, len(node.SubBlocks))
		for i, sb := range node.SubBlocks {
			newSubs[i] = a.analyzeBasicBlock(sb)
		}
		ls := next.Ana.Clone()
		return &BlockBody{Kind: BodySubBlocks, SubBlocks: newSubs, Next: next, Ana: ls}

	default:
		panic("ir: BUG: unknown BodyKind in liveness analysis")
	}
}

func (a *analyzer) analyzeTerminator(t Terminator) *LiveSet {
	ls := NewLiveSet()
	switch t.Kind {
	case TermReturn:
		ls.InsertImmediate(t.ReturnImm)
	case TermBranch:
		a.foldBranch(ls, t.BranchTarget, t.BranchArgs)
	case TermCondBranch:
		ls.InsertImmediate(t.CondImm)
		a.foldBranch(ls, t.ThenTarget, nil)
		a.foldBranch(ls, t.ElseTarget, nil)
	default:
		panic("ir: BUG: unknown TermKind in liveness analysis")
	}
	return ls
}

// foldBranch adds to ls the liveness contribution of a jump to target.
//
// Branch passes args positionally into target's own Params, renaming as it
// goes, so only live params translate back to the corresponding arg
// immediate at the call site. ConditionalBranch targets are the (arity-0)
// sibling blocks introduced by the immediately enclosing SubBlocks: they
// reference enclosing Vars directly by identity, with no renaming, so the
// target's whole live-in set is unioned in as-is.
func (a *analyzer) foldBranch(ls *LiveSet, target BlockName, args []Immediate) {
	targetLive := a.previous[target]
	if args == nil {
		ls.Union(targetLive)
		return
	}
	for i, p := range a.paramsOf[target] {
		if targetLive.Contains(p) {
			ls.InsertImmediate(args[i])
		}
	}
}

package regalloc

import "github.com/snake-lang/snakec-backend/internal/ir"

// Result is the output of interference-graph construction: the graph
// itself, plus the order Color must assign registers in.
type Result struct {
	Graph *Graph
	// Order is a perfect elimination order for Graph: coloring its variables
	// greedily in this order, using only already-assigned neighbors to rule
	// out registers, always succeeds without backtracking. It falls directly
	// out of the IR's nesting structure (outer defs before the inner defs
	// that can only ever interfere with already-colored outer state) rather
	// than from any degree-based heuristic.
	Order []ir.Var
}

// Analyze walks a liveness-annotated Program (as produced by
// ir.AnalyzeLiveness, or the fixpoint returned by ir.Optimize) and builds
// its interference graph and elimination order.
//
// The traversal visits each BasicBlock's own live-in set (which clique-ifies
// its params together with whatever free variables flow in from an
// enclosing scope), then walks its body: each Operation's destination
// conflicts with everything live immediately after it, and each SubBlocks
// node visits its continuation before descending into the nested blocks it
// introduces — mirroring the order the backend's own conflict analyzer
// uses, for a traversal whose only contribution from continuations here is
// relative position in Order (continuations are always Terminators, which
// define nothing, so this ordering choice is otherwise inert).
//
// FunBlocks are not visited: their Params are bound directly to calling
// convention registers at the prologue and never enter the graph.
func Analyze(prog *ir.Program) *Result {
	c := &conflictAnalyzer{graph: NewGraph()}
	for _, b := range prog.Blocks {
		c.block(b)
	}
	return &Result{Graph: c.graph, Order: c.order}
}

type conflictAnalyzer struct {
	graph *Graph
	order []ir.Var
}

func (c *conflictAnalyzer) block(b *ir.BasicBlock) {
	c.cliqueLiveSet(b.Ana)
	c.order = append(c.order, b.Params...)
	c.body(b.Body)
}

// cliqueLiveSet inserts an edge between every pair of variables in ls: they
// are, by definition, simultaneously live at whatever point ls annotates.
func (c *conflictAnalyzer) cliqueLiveSet(ls *ir.LiveSet) {
	vars := ls.Slice()
	for _, v := range vars {
		c.graph.Ensure(v)
	}
	for i := 0; i < len(vars); i++ {
		for j := i + 1; j < len(vars); j++ {
			c.graph.AddEdge(vars[i], vars[j])
		}
	}
}

func (c *conflictAnalyzer) body(b *ir.BlockBody) {
	switch b.Kind {
	case ir.BodyTerminator:
		return

	case ir.BodyOperation:
		c.graph.Ensure(b.Dest)
		c.order = append(c.order, b.Dest)
		after := b.Next.Ana.Clone()
		after.Insert(b.Dest)
		c.cliqueLiveSet(after)
		c.body(b.Next)

	case ir.BodyAssertType, ir.BodyAssertLength, ir.BodyAssertInBounds, ir.BodyStore:
		c.body(b.Next)

	case ir.BodySubBlocks:
		c.body(b.Next)
		for _, sb := range b.SubBlocks {
			c.block(sb)
		}

	default:
		panic("regalloc: BUG: unknown BlockBody kind in conflict analysis")
	}
}

package x64debug

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/snake-lang/snakec-backend/internal/ir"
	"github.com/snake-lang/snakec-backend/internal/isa/amd64"
	"github.com/snake-lang/snakec-backend/internal/regalloc"
)

// compile runs the same whole-program pipeline cmd/snakec-dump's Compile
// does (liveness/DCE to a fixpoint, interference coloring, callee-save
// bookkeeping, amd64 emission), so these tests assemble real EmitProgram
// output rather than hand-written, pipeline-unconnected snippets.
func compile(prog *ir.Program) []amd64.Instr {
	optimized := ir.Optimize(prog)
	result := regalloc.Analyze(optimized)
	coloring := regalloc.Color(result.Graph, result.Order, amd64.AllocatablePhysRegs())
	calleeSaves := regalloc.ComputeCalleeSaves(coloring, amd64.NonVolatilePhysRegs(), coloring.NumSpills)
	return amd64.EmitProgram(optimized, coloring, calleeSaves)
}

// TestEncodeParallelMoveSwap wires a real swap-via-branch-args program (the
// §8 S3 scenario shape) through the full pipeline and golang-asm, exercising
// testable property 6 (parallel-move equivalence) end to end: if the
// emitted Xchg/scratch-register sequence encoded anything malformed,
// golang-asm's assembler would reject it.
func TestEncodeParallelMoveSwap(t *testing.T) {
	x, y := ir.NewVar("x"), ir.NewVar("y")
	a, b := ir.NewVar("a"), ir.NewVar("b")
	p, q := ir.NewVar("p"), ir.NewVar("q")
	lEntry, lSwap := ir.NewBlockName("Lentry"), ir.NewBlockName("Lswap")
	main := ir.NewFunName("main")

	swapBlock := &ir.BasicBlock{
		Label:  lSwap,
		Params: []ir.Var{p, q},
		Body:   ir.TerminatorBody(ir.ReturnTerm(ir.VarImm(p))),
	}
	entryBlock := &ir.BasicBlock{
		Label:  lEntry,
		Params: []ir.Var{a, b},
		Body:   ir.TerminatorBody(ir.BranchTerm(lSwap, []ir.Immediate{ir.VarImm(b), ir.VarImm(a)})),
	}
	fun := ir.FunBlock{
		Name: main, Params: []ir.Var{x, y}, Target: lEntry,
		Args: []ir.Immediate{ir.VarImm(x), ir.VarImm(y)},
	}
	prog := &ir.Program{Funs: []ir.FunBlock{fun}, Blocks: []*ir.BasicBlock{entryBlock, swapBlock}}

	instrs := compile(prog)
	code, err := Assemble(instrs)
	require.NoError(t, err)
	require.NotEmpty(t, code)
}

// TestEncodeCallWithLiveVolatile wires a real call-with-a-live-volatile
// program (the §8 S4 scenario shape) through the full pipeline and
// golang-asm, exercising testable property 7 (frame/call-site alignment)
// end to end: golang-asm encodes push/sub/add/call exactly as x86
// instructions, so a misaligned or miscounted stack-adjustment sequence
// from emitRuntimeCall would still assemble (alignment isn't an encoding
// concern) — this oracle confirms the *encoding* is well-formed; the actual
// 16-byte alignment arithmetic is checked directly in
// ../call_test.go's callSiteIsAligned.
func TestEncodeCallWithLiveVolatile(t *testing.T) {
	x, y, z := ir.NewVar("x"), ir.NewVar("y"), ir.NewVar("z")
	l0 := ir.NewBlockName("L0")
	main := ir.NewFunName("main")
	f := ir.NewFunName("f")

	body := ir.OperationBody(y, ir.CallOp(f, []ir.Immediate{ir.VarImm(x)}),
		ir.OperationBody(z, ir.Prim2Op(ir.Prim2{Kind: ir.Add, A: ir.VarImm(y), B: ir.VarImm(x)}),
			ir.TerminatorBody(ir.ReturnTerm(ir.VarImm(z)))))
	block := &ir.BasicBlock{Label: l0, Params: []ir.Var{x}, Body: body}
	fun := ir.FunBlock{Name: main, Params: []ir.Var{x}, Target: l0, Args: []ir.Immediate{ir.VarImm(x)}}
	prog := &ir.Program{
		Externs: []ir.Extern{{Name: f, NumParams: 1}},
		Funs:    []ir.FunBlock{fun},
		Blocks:  []*ir.BasicBlock{block},
	}

	instrs := compile(prog)
	code, err := Assemble(instrs)
	require.NoError(t, err)
	require.NotEmpty(t, code)
}

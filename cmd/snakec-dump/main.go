// Command snakec-dump compiles a handful of hand-built ir.Program literals
// through the full pipeline (liveness/DCE, interference coloring, callee-save
// bookkeeping, amd64 emission) and prints each one's colorized listing. It
// exists to exercise and demonstrate the backend end to end without a
// front end: every Program here is assembled exactly as a real upstream
// lowering pass would build it, just authored by hand.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/snake-lang/snakec-backend/internal/ir"
	"github.com/snake-lang/snakec-backend/internal/isa/amd64"
	"github.com/snake-lang/snakec-backend/internal/isa/amd64/listing"
	"github.com/snake-lang/snakec-backend/internal/isa/amd64/x64debug"
	"github.com/snake-lang/snakec-backend/internal/regalloc"
)

func main() {
	os.Exit(doMain(os.Stdout, os.Stderr))
}

// doMain is separated out for the purpose of unit testing.
func doMain(stdOut, stdErr io.Writer) int {
	flag.CommandLine.SetOutput(stdErr)
	var verify bool
	flag.BoolVar(&verify, "verify", false, "additionally assemble each listing with the golang-asm oracle")
	flag.Parse()

	for _, sc := range scenarios() {
		fmt.Fprintf(stdOut, "=== %s: %s ===\n", sc.name, sc.desc)
		instrs := Compile(sc.prog)
		listing.Print(stdOut, instrs)
		if verify {
			if _, err := x64debug.Assemble(instrs); err != nil {
				fmt.Fprintf(stdErr, "%s: golang-asm rejected the listing: %v\n", sc.name, err)
				return 1
			}
			fmt.Fprintf(stdOut, "(assembled cleanly under the golang-asm oracle)\n")
		}
		fmt.Fprintln(stdOut)
	}
	return 0
}

// Compile runs the whole-program pipeline: liveness/DCE to a fixpoint,
// interference analysis, coloring, callee-save bookkeeping, and amd64
// emission, all as one driver — the canonical wiring any caller of this
// backend should follow.
func Compile(prog *ir.Program) []amd64.Instr {
	optimized := ir.Optimize(prog)
	result := regalloc.Analyze(optimized)
	coloring := regalloc.Color(result.Graph, result.Order, amd64.AllocatablePhysRegs())
	calleeSaves := regalloc.ComputeCalleeSaves(coloring, amd64.NonVolatilePhysRegs(), coloring.NumSpills)
	return amd64.EmitProgram(optimized, coloring, calleeSaves)
}

// tagInt tags a literal integer the way an upstream lowering pass would
// before handing it to this backend: Int's tag is a left shift by one.
func tagInt(n int64) ir.Immediate { return ir.ConstImm(n << 1) }

type scenario struct {
	name, desc string
	prog       *ir.Program
}

func scenarios() []scenario {
	return []scenario{
		{"S1", "identity function", identityProgram()},
		{"S2", "arithmetic with overflow check", arithOverflowProgram()},
		{"S3", "swap via parallel move", swapProgram()},
		{"S4", "call with a live volatile across it", callLiveVolatileProgram()},
		{"S5", "dead binding elimination", deadBindingProgram()},
		{"S6", "array bounds check", arrayBoundsProgram()},
	}
}

// identityProgram: fun main(x): br L0(x); block L0(p): ret p
func identityProgram() *ir.Program {
	x := ir.NewVar("x")
	p := ir.NewVar("p")
	l0 := ir.NewBlockName("L0")
	main := ir.NewFunName("main")

	block := &ir.BasicBlock{
		Label:  l0,
		Params: []ir.Var{p},
		Body:   ir.TerminatorBody(ir.ReturnTerm(ir.VarImm(p))),
	}
	fun := ir.FunBlock{Name: main, Params: []ir.Var{x}, Target: l0, Args: []ir.Immediate{ir.VarImm(x)}}
	return &ir.Program{Funs: []ir.FunBlock{fun}, Blocks: []*ir.BasicBlock{block}}
}

// arithOverflowProgram: fun main(x): br L0(x); block L0(x): y = x + 1; ret y
func arithOverflowProgram() *ir.Program {
	x := ir.NewVar("x")
	y := ir.NewVar("y")
	l0 := ir.NewBlockName("L0")
	main := ir.NewFunName("main")

	body := ir.OperationBody(y, ir.Prim2Op(ir.Prim2{Kind: ir.Add, A: ir.VarImm(x), B: tagInt(1)}),
		ir.TerminatorBody(ir.ReturnTerm(ir.VarImm(y))))
	block := &ir.BasicBlock{Label: l0, Params: []ir.Var{x}, Body: body}
	fun := ir.FunBlock{Name: main, Params: []ir.Var{x}, Target: l0, Args: []ir.Immediate{ir.VarImm(x)}}
	return &ir.Program{Funs: []ir.FunBlock{fun}, Blocks: []*ir.BasicBlock{block}}
}

// swapProgram: fun main(x, y): br Lentry(x, y);
// block Lentry(a, b): br Lswap(b, a); block Lswap(p, q): ret p
func swapProgram() *ir.Program {
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
	return &ir.Program{Funs: []ir.FunBlock{fun}, Blocks: []*ir.BasicBlock{entryBlock, swapBlock}}
}

// callLiveVolatileProgram: let y = f(x) in y + x, with x live across the call.
func callLiveVolatileProgram() *ir.Program {
	x, y, z := ir.NewVar("x"), ir.NewVar("y"), ir.NewVar("z")
	l0 := ir.NewBlockName("L0")
	main := ir.NewFunName("main")
	f := ir.NewFunName("f")

	body := ir.OperationBody(y, ir.CallOp(f, []ir.Immediate{ir.VarImm(x)}),
		ir.OperationBody(z, ir.Prim2Op(ir.Prim2{Kind: ir.Add, A: ir.VarImm(y), B: ir.VarImm(x)}),
			ir.TerminatorBody(ir.ReturnTerm(ir.VarImm(z)))))
	block := &ir.BasicBlock{Label: l0, Params: []ir.Var{x}, Body: body}
	fun := ir.FunBlock{Name: main, Params: []ir.Var{x}, Target: l0, Args: []ir.Immediate{ir.VarImm(x)}}
	return &ir.Program{
		Externs: []ir.Extern{{Name: f, NumParams: 1}},
		Funs:    []ir.FunBlock{fun},
		Blocks:  []*ir.BasicBlock{block},
	}
}

// deadBindingProgram: let y = x + 1 in x — y is never read, so Optimize
// must remove its defining operation entirely.
func deadBindingProgram() *ir.Program {
	x, y := ir.NewVar("x"), ir.NewVar("y")
	l0 := ir.NewBlockName("L0")
	main := ir.NewFunName("main")

	body := ir.OperationBody(y, ir.Prim2Op(ir.Prim2{Kind: ir.Add, A: ir.VarImm(x), B: tagInt(1)}),
		ir.TerminatorBody(ir.ReturnTerm(ir.VarImm(x))))
	block := &ir.BasicBlock{Label: l0, Params: []ir.Var{x}, Body: body}
	fun := ir.FunBlock{Name: main, Params: []ir.Var{x}, Target: l0, Args: []ir.Immediate{ir.VarImm(x)}}
	return &ir.Program{Funs: []ir.FunBlock{fun}, Blocks: []*ir.BasicBlock{block}}
}

// arrayBoundsProgram: arr[i], lowering to AssertType(Array, arr),
// a length load from the array's header word, AssertInBounds(length, i),
// and finally the element Load.
func arrayBoundsProgram() *ir.Program {
	arr, i := ir.NewVar("arr"), ir.NewVar("i")
	length, elem := ir.NewVar("length"), ir.NewVar("elem")
	l0 := ir.NewBlockName("L0")
	main := ir.NewFunName("main")

	// The header word sits right before element 0; emitLoad's IndexedMemOperand
	// scales the tagged offset by 4 and adds a fixed +8 displacement, so
	// offset -2 (tagged -1) lands exactly on it: (-1)*8 + 8 == 0.
	body := ir.AssertTypeBody(ir.TypeArray, ir.VarImm(arr),
		ir.OperationBody(length, ir.LoadOp(ir.VarImm(arr), ir.ConstImm(-2)),
			ir.AssertInBoundsBody(ir.VarImm(length), ir.VarImm(i),
				ir.OperationBody(elem, ir.LoadOp(ir.VarImm(arr), ir.VarImm(i)),
					ir.TerminatorBody(ir.ReturnTerm(ir.VarImm(elem)))))))
	block := &ir.BasicBlock{Label: l0, Params: []ir.Var{arr, i}, Body: body}
	fun := ir.FunBlock{
		Name: main, Params: []ir.Var{arr, i}, Target: l0,
		Args: []ir.Immediate{ir.VarImm(arr), ir.VarImm(i)},
	}
	return &ir.Program{Funs: []ir.FunBlock{fun}, Blocks: []*ir.BasicBlock{block}}
}

package amd64

import (
	"github.com/snake-lang/snakec-backend/internal/ir"
	"github.com/snake-lang/snakec-backend/internal/regalloc"
)

// EmitComments gates the Comment pseudo-instructions the emitter narrates
// its own lowering with, the same boolean-flag-gated convention used by
// ir.DebugLogging (and, in the teacher codebase, wazevoapi's logging
// flags) rather than a logging library for developer-facing trace output.
var EmitComments = false

// Emitter lowers a liveness-annotated, colored ir.Program into a flat
// instruction list. It holds no per-call state beyond the coloring and
// callee-save bookkeeping handed to it: every method either appends to the
// accumulated instruction list or recurses into a nested block/body.
type Emitter struct {
	instrs      []Instr
	coloring    *regalloc.Coloring
	calleeSaves *regalloc.CalleeSaves
	blocks      map[ir.BlockName]*ir.BasicBlock
	frameSize   int64
	// stackDepth is how many bytes rsp currently sits below the frame
	// pointer a function's prologue established (0 outside of a call
	// sequence). Every push/explicit rsp adjustment call.go emits around a
	// runtime call updates this so slot and incoming-stack-argument
	// addressing keeps resolving to the right bytes even while rsp is
	// transiently lower than usual.
	stackDepth int64
}

// EmitProgram lowers prog into x86-64 / System V AMD64 assembly. coloring
// and calleeSaves are the output of a single, whole-program
// regalloc.Analyze + regalloc.Color + regalloc.ComputeCalleeSaves pass:
// register allocation runs once over every block the program contains, not
// once per function, since Vars are globally unique and no two functions'
// blocks are ever simultaneously live.
func EmitProgram(prog *ir.Program, coloring *regalloc.Coloring, calleeSaves *regalloc.CalleeSaves) []Instr {
	e := &Emitter{coloring: coloring, calleeSaves: calleeSaves, blocks: map[ir.BlockName]*ir.BasicBlock{}}
	e.frameSize = frameSizeFor(coloring.NumSpills, calleeSaves.NumSlots())
	e.indexBlocks(prog.Blocks)

	e.push(Section("text"))
	e.push(Global("entry"))
	for _, ext := range prog.Externs {
		e.push(Extern(ext.Name.String()))
	}
	e.emitErrorStubs()

	for _, f := range prog.Funs {
		e.emitFunBlock(f)
	}
	for _, b := range prog.Blocks {
		e.emitBasicBlock(b)
	}
	return e.instrs
}

func (e *Emitter) push(i Instr) { e.instrs = append(e.instrs, i) }

func (e *Emitter) comment(text string) {
	if EmitComments {
		e.push(Comment(text))
	}
}

func (e *Emitter) indexBlocks(bs []*ir.BasicBlock) {
	for _, b := range bs {
		e.blocks[b.Label] = b
		e.indexBody(b.Body)
	}
}

func (e *Emitter) indexBody(b *ir.BlockBody) {
	for cur := b; cur != nil; cur = cur.Successor() {
		if cur.Kind == ir.BodySubBlocks {
			e.indexBlocks(cur.SubBlocks)
		}
	}
}

// frameSizeFor computes how many bytes a function's prologue reserves for
// spill and callee-save slots, rounded up to a multiple of 16 so that
// subtracting it from rsp preserves the ABI's "rsp ≡ 8 (mod 16) before a
// call" invariant: every function enters with that invariant already true
// (the caller's call instruction just pushed an 8-byte return address onto
// a 16-aligned rsp), and a 16-byte-aligned adjustment keeps it true for any
// calls this function in turn makes.
func frameSizeFor(numSpills, numCalleeSaves int) int64 {
	bytes := int64(8 * (numSpills + numCalleeSaves))
	return (bytes + 15) &^ 15
}

// slotOperand addresses spill slot n at 8*n(%rsp), within the frame this
// function's prologue reserved via `sub rsp, frameSize`. Spill slots and
// callee-save slots share this same numbering space (regalloc.Color and
// regalloc.ComputeCalleeSaves are wired with non-overlapping slot ranges by
// the driver that calls them — see cmd/snakec-dump for the canonical
// wiring), so a single addressing scheme covers both.
func (e *Emitter) slotOperand(slot int) Operand {
	return MemOperand(Rsp, int32(8*slot)+int32(e.stackDepth))
}

// pushOperand emits a push and tracks the resulting rsp displacement.
func (e *Emitter) pushOperand(o Operand) {
	e.push(Push(o))
	e.stackDepth += 8
}

// popOperand emits a pop and tracks the resulting rsp displacement.
func (e *Emitter) popOperand(o Operand) {
	e.push(Pop(o))
	e.stackDepth -= 8
}

// adjustRsp emits `sub rsp, n` (n > 0) or `add rsp, -n` (n < 0) and tracks
// the resulting rsp displacement.
func (e *Emitter) adjustRsp(n int64) {
	switch {
	case n > 0:
		e.push(Sub(RegOperand(Rsp), ImmOperand(n)))
		e.stackDepth += n
	case n < 0:
		e.push(Add(RegOperand(Rsp), ImmOperand(-n)))
		e.stackDepth += n
	}
}

func (e *Emitter) operandOf(a regalloc.Allocation) Operand {
	if a.IsReg() {
		return RegOperand(RegOf(a.Reg))
	}
	return e.slotOperand(a.Slot)
}

func (e *Emitter) allocOperand(v ir.Var) Operand { return e.operandOf(e.coloring.Lookup(v)) }

// moveToReg loads imm (a constant or a Var's current allocation) into dst,
// using a full 64-bit immediate move when needed so constants are never
// truncated to the 32-bit sign-extended immediate forms most other x86
// instructions are limited to.
func (e *Emitter) moveToReg(dst Reg, imm ir.Immediate) {
	if imm.IsVar() {
		src := e.allocOperand(imm.Var())
		if src.IsReg(dst) {
			return
		}
		e.push(Mov(RegOperand(dst), src))
		return
	}
	e.push(Mov(RegOperand(dst), ImmOperand(imm.Const())))
}

// emitAllocToAlloc moves src into dst, routing through the rax scratch
// register when both sides would otherwise be memory operands (x86 has no
// memory-to-memory mov). A no-op when dst is already exactly src.
func (e *Emitter) emitAllocToAlloc(dst regalloc.Allocation, src Operand) {
	if dst.IsReg() {
		if src.IsReg(RegOf(dst.Reg)) {
			return
		}
		e.push(Mov(RegOperand(RegOf(dst.Reg)), src))
		return
	}
	if src.Kind == OpKindMem {
		e.push(Mov(RegOperand(ScratchA), src))
		e.push(Mov(e.slotOperand(dst.Slot), RegOperand(ScratchA)))
		return
	}
	e.push(Mov(e.slotOperand(dst.Slot), src))
}

// emitImmToAlloc moves a raw 64-bit constant into dst, routing through rax
// when dst is a spill slot (mov to memory only accepts a 32-bit immediate).
func (e *Emitter) emitImmToAlloc(dst regalloc.Allocation, imm int64) {
	if dst.IsReg() {
		e.push(Mov(RegOperand(RegOf(dst.Reg)), ImmOperand(imm)))
		return
	}
	e.push(Mov(RegOperand(ScratchA), ImmOperand(imm)))
	e.push(Mov(e.slotOperand(dst.Slot), RegOperand(ScratchA)))
}

// emitFunBlock emits a function's entry point: save whichever callee-saved
// registers the whole program's coloring touches, move the incoming SysV
// argument registers (and any stack-passed overflow args) into the target
// block's param allocations via a single simultaneous move, then fall into
// it.
func (e *Emitter) emitFunBlock(f ir.FunBlock) {
	e.push(Label(f.Name.String()))
	// The frame reservation is not counted in stackDepth: slotOperand and
	// abiArgMove already address relative to the reserved frame.
	if e.frameSize > 0 {
		e.push(Sub(RegOperand(Rsp), ImmOperand(e.frameSize)))
	}
	e.comment("save callee-saved registers")
	for _, r := range e.calleeSaves.UsedRegs() {
		e.push(Mov(e.slotOperand(e.calleeSaves.SlotOf(r)), RegOperand(RegOf(r))))
	}

	paramABIIndex := make(map[ir.Var]int, len(f.Params))
	for i, p := range f.Params {
		paramABIIndex[p] = i
	}

	target := e.blocks[f.Target]
	moves := make([]Move, 0, len(target.Params))
	for i, p := range target.Params {
		dst := e.operandOf(e.coloring.Lookup(p))
		moves = append(moves, e.abiArgMove(dst, f.Args[i], paramABIIndex))
	}
	e.emitParallelMove(moves)
	e.push(Jmp(f.Target.String()))
}

// abiArgMove resolves one of a FunBlock's (already dead-argument-filtered)
// branch arguments back to where its value actually lives on entry: either
// an incoming SysV argument register/stack slot (when the argument is one
// of the function's own params) or a literal constant.
func (e *Emitter) abiArgMove(dst Operand, arg ir.Immediate, paramABIIndex map[ir.Var]int) Move {
	if !arg.IsVar() {
		return Move{Dst: dst, SrcConst: true, Const: arg.Const()}
	}
	idx, ok := paramABIIndex[arg.Var()]
	if !ok {
		panic("amd64: BUG: FunBlock arg is neither a constant nor one of the function's own params")
	}
	if idx < len(Args) {
		return Move{Dst: dst, Src: RegOperand(Args[idx])}
	}
	stackIdx := idx - len(Args)
	// On entry (before this prologue's `sub rsp, frameSize`), [rsp] held the
	// return address with stack args following above it; the frame
	// reservation has since pushed rsp down by frameSize, so that much must
	// be added back to reach them.
	return Move{Dst: dst, Src: MemOperand(Rsp, int32(e.frameSize+e.stackDepth)+int32(8*(stackIdx+1)))}
}

func (e *Emitter) emitBasicBlock(b *ir.BasicBlock) {
	e.push(Label(b.Label.String()))
	e.emitBlockBody(b.Body)
}

func (e *Emitter) emitBlockBody(b *ir.BlockBody) {
	for cur := b; ; cur = cur.Next {
		switch cur.Kind {
		case ir.BodyTerminator:
			e.emitTerminator(cur.Term)
			return
		case ir.BodyOperation:
			e.emitOperationNode(cur)
		case ir.BodyAssertType:
			e.emitAssertType(cur)
		case ir.BodyAssertLength:
			e.emitAssertLength(cur)
		case ir.BodyAssertInBounds:
			e.emitAssertInBounds(cur)
		case ir.BodyStore:
			e.emitStore(cur)
		case ir.BodySubBlocks:
			for _, sb := range cur.SubBlocks {
				e.emitBasicBlock(sb)
			}
		default:
			panic("amd64: BUG: unknown BlockBody kind in emission")
		}
	}
}

func (e *Emitter) emitTerminator(t ir.Terminator) {
	switch t.Kind {
	case ir.TermReturn:
		e.comment("return")
		e.moveToReg(Rax, t.ReturnImm)
		for _, r := range e.calleeSaves.UsedRegs() {
			e.push(Mov(RegOperand(RegOf(r)), e.slotOperand(e.calleeSaves.SlotOf(r))))
		}
		if e.frameSize > 0 {
			e.push(Add(RegOperand(Rsp), ImmOperand(e.frameSize)))
		}
		e.push(Ret())

	case ir.TermBranch:
		target := e.blocks[t.BranchTarget]
		moves := make([]Move, len(target.Params))
		for i, p := range target.Params {
			dst := e.operandOf(e.coloring.Lookup(p))
			moves[i] = e.immMove(dst, t.BranchArgs[i])
		}
		e.emitParallelMove(moves)
		e.push(Jmp(t.BranchTarget.String()))

	case ir.TermCondBranch:
		e.moveToReg(Rax, t.CondImm)
		e.push(Test(RegOperand(Rax), ImmOperand(boolPayloadBit)))
		e.push(Jcc(CondNE, t.ThenTarget.String()))
		e.push(Jmp(t.ElseTarget.String()))

	default:
		panic("amd64: BUG: unknown TermKind in emission")
	}
}

// immMove builds a Move carrying dst as destination and imm (a constant or a
// Var's current allocation) as source, for use with emitParallelMove.
func (e *Emitter) immMove(dst Operand, imm ir.Immediate) Move {
	if imm.IsVar() {
		return Move{Dst: dst, Src: e.allocOperand(imm.Var())}
	}
	return Move{Dst: dst, SrcConst: true, Const: imm.Const()}
}

// boolPayloadBit is the bit that distinguishes the tagged encoding of true
// (15, 0b1111) from false (7, 0b0111): both share the 0b111 Bool tag in
// their low three bits, differing only in bit 3, the single bit of payload a
// Bool's one-bit value occupies above the tag.
const boolPayloadBit = 0b1000

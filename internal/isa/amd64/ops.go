package amd64

import "github.com/snake-lang/snakec-backend/internal/ir"

// emitOperationNode lowers one BlockBody Operation node, given its Dest and
// Op. Call and AllocateArray are lowered by call.go, since both need the
// node's live-after set to decide what to spill around the runtime call.
func (e *Emitter) emitOperationNode(node *ir.BlockBody) {
	switch node.Op.Kind {
	case ir.OpImmediate:
		e.emitImmediateOp(node.Dest, node.Op.Imm)
	case ir.OpPrim1:
		e.emitPrim1(node.Dest, node.Op.P1)
	case ir.OpPrim2:
		e.emitPrim2(node.Dest, node.Op.P2)
	case ir.OpLoad:
		e.emitLoad(node.Dest, node.Op)
	case ir.OpCall:
		e.emitCall(node.Dest, node.Op.Fun, node.Op.Args, node.Next.Ana)
	case ir.OpAllocateArray:
		e.emitAllocateArray(node.Dest, node.Op.Len, node.Next.Ana)
	default:
		panic("amd64: BUG: unknown OpKind in emission")
	}
}

func (e *Emitter) emitImmediateOp(dest ir.Var, imm ir.Immediate) {
	destAlloc := e.coloring.Lookup(dest)
	if imm.IsVar() {
		e.emitAllocToAlloc(destAlloc, e.allocOperand(imm.Var()))
		return
	}
	e.emitImmToAlloc(destAlloc, imm.Const())
}

// emitPrim1 lowers a unary bitwise op in place in a single working register:
// dest's own register when it has one, rax otherwise (mirroring the
// original backend's "dst.as_reg().unwrap_or(Reg::Rax)" scratch choice).
//
// BitNot operates on the full tagged word, which flips the Int tag bit along
// with the payload, so it clears that bit back to 0 afterward. The shifts
// work directly on the tagged (2x) representation: a left shift needs no
// adjustment (doubling commutes with a left shift), while a right shift
// must first drop down past the tag bit before shifting, then re-tag by
// shifting back up by one.
func (e *Emitter) emitPrim1(dest ir.Var, p ir.Prim1) {
	destAlloc := e.coloring.Lookup(dest)
	work := ScratchA
	if destAlloc.IsReg() {
		work = RegOf(destAlloc.Reg)
	}
	e.moveToReg(work, p.Imm)

	switch p.Kind {
	case ir.BitNot:
		e.push(Not(RegOperand(work)))
		e.push(And(RegOperand(work), ImmOperand(^int64(1))))
	case ir.BitSal, ir.BitShl:
		e.push(Shl(RegOperand(work), p.By))
	case ir.BitSar:
		e.push(Sar(RegOperand(work), p.By+1))
		e.push(Shl(RegOperand(work), 1))
	case ir.BitShr:
		e.push(Shr(RegOperand(work), p.By+1))
		e.push(Shl(RegOperand(work), 1))
	default:
		panic("amd64: BUG: unknown Prim1Kind in emission")
	}

	e.emitAllocToAlloc(destAlloc, RegOperand(work))
}

// emitPrim2 lowers a binary op. B is always materialized into rax first and
// A into r10 second, since B may alias dest's eventual location (e.g. `x = y
// + x`) and loading it first avoids reading a value this op has already
// overwritten.
func (e *Emitter) emitPrim2(dest ir.Var, p ir.Prim2) {
	e.moveToReg(Rax, p.B)
	e.moveToReg(ScratchB, p.A)
	destAlloc := e.coloring.Lookup(dest)

	switch {
	case p.Kind.IsCompare():
		e.emitCompare(p.Kind)
	case p.Kind == ir.Mul:
		// Both operands carry the Int tag as a *2 factor; naive imul would
		// produce a *4 result. Untag one side first so the product comes
		// back correctly tagged.
		e.push(Sar(RegOperand(Rax), 1))
		e.push(IMul(RegOperand(ScratchB), RegOperand(Rax)))
		e.push(Jcc(CondO, ErrArithmeticOverflow.errLabel()))
	case p.Kind == ir.Add:
		e.push(Add(RegOperand(ScratchB), RegOperand(Rax)))
		e.push(Jcc(CondO, ErrArithmeticOverflow.errLabel()))
	case p.Kind == ir.Sub:
		e.push(Sub(RegOperand(ScratchB), RegOperand(Rax)))
		e.push(Jcc(CondO, ErrArithmeticOverflow.errLabel()))
	case p.Kind == ir.BitAnd:
		e.push(And(RegOperand(ScratchB), RegOperand(Rax)))
	case p.Kind == ir.BitOr:
		e.push(Or(RegOperand(ScratchB), RegOperand(Rax)))
	case p.Kind == ir.BitXor:
		e.push(Xor(RegOperand(ScratchB), RegOperand(Rax)))
	default:
		panic("amd64: BUG: unknown Prim2Kind in emission")
	}

	e.emitAllocToAlloc(destAlloc, RegOperand(ScratchB))
}

// emitCompare lowers A<cond>B (already loaded into r10 and rax respectively)
// to r10: cmp sets flags from r10-rax, setcc captures the one-bit result
// into al, movzbq widens it to a full word, then it's shifted into place and
// or'd with the Bool tag (0b111) to produce a validly tagged Bool.
func (e *Emitter) emitCompare(kind ir.Prim2Kind) {
	e.push(Cmp(RegOperand(ScratchB), RegOperand(Rax)))
	e.push(Setcc(CondForCompare(kind.String()), RegOperand(Rax)))
	e.push(Movzx(RegOperand(ScratchB), RegOperand(Rax)))
	e.push(Shl(RegOperand(ScratchB), 3))
	e.push(Or(RegOperand(ScratchB), ImmOperand(ir.TypeBool.Tag())))
}

// emitLoad reads one array element. Array pointers are tagged in their low
// 3 bits (see ir.Type.Mask/Tag for TypeArray), so the pointer is masked
// clean before use as a base address. The element index arrives already
// tagged (value*2); scaling the indexed-memory access by 4 instead of 8
// folds the untagging right into the addressing mode, so the index register
// never needs an explicit shift. Element 0 sits 8 bytes past the base, past
// a one-word length header.
func (e *Emitter) emitLoad(dest ir.Var, op ir.Op) {
	e.moveToReg(Rax, op.Addr)
	e.push(And(RegOperand(Rax), ImmOperand(^int64(0b111))))
	e.moveToReg(ScratchB, op.Offset)
	e.push(Mov(RegOperand(Rax), IndexedMemOperand(Rax, ScratchB, 4, 8)))
	e.emitAllocToAlloc(e.coloring.Lookup(dest), RegOperand(Rax))
}

// emitStore writes one array element, using the same masked-base,
// scale-4 addressing as emitLoad. The effective address is folded into rax
// via lea before the value is loaded, freeing r10 to hold the value itself.
func (e *Emitter) emitStore(node *ir.BlockBody) {
	e.moveToReg(Rax, node.StoreAddr)
	e.push(And(RegOperand(Rax), ImmOperand(^int64(0b111))))
	e.moveToReg(ScratchB, node.StoreOffset)
	e.push(Lea(RegOperand(Rax), IndexedMemOperand(Rax, ScratchB, 4, 8)))
	e.moveToReg(ScratchB, node.StoreVal)
	e.push(Mov(MemOperand(Rax, 0), RegOperand(ScratchB)))
}

// emitAssertType checks (arg & mask) == tag, jumping to the matching error
// stub otherwise. The offending value is left in rax, already tagged, which
// is exactly what the expected_{num,bool,array}_err stubs want (see
// ErrCode.retagsDatum).
func (e *Emitter) emitAssertType(node *ir.BlockBody) {
	e.moveToReg(Rax, node.AssertArg)
	e.push(Mov(RegOperand(ScratchB), RegOperand(Rax)))
	e.push(And(RegOperand(ScratchB), ImmOperand(node.AssertTy.Mask())))
	e.push(Cmp(RegOperand(ScratchB), ImmOperand(node.AssertTy.Tag())))
	e.push(Jcc(CondNE, typeErrLabel(node.AssertTy)))
}

func typeErrLabel(ty ir.Type) string {
	switch ty {
	case ir.TypeInt:
		return ErrExpectedNum.errLabel()
	case ir.TypeBool:
		return ErrExpectedBool.errLabel()
	case ir.TypeArray:
		return ErrExpectedArray.errLabel()
	default:
		panic("amd64: BUG: unknown Type in AssertType emission")
	}
}

// emitAssertLength checks a tagged length is non-negative, leaving the raw,
// untagged length in rax on both the success and failure paths (on failure
// that's the datum negative_length_err expects; on success it's exactly
// what an immediately following AllocateArray/length use needs).
func (e *Emitter) emitAssertLength(node *ir.BlockBody) {
	e.moveToReg(Rax, node.LenArg)
	e.push(Sar(RegOperand(Rax), 1))
	e.push(Cmp(RegOperand(Rax), ImmOperand(0)))
	e.push(Jcc(CondL, ErrNegativeLength.errLabel()))
}

// emitAssertInBounds checks 0 <= index < length, leaving the raw, untagged
// index in rax at both failure points, matching index_out_of_bounds_err's
// expected datum.
func (e *Emitter) emitAssertInBounds(node *ir.BlockBody) {
	e.moveToReg(Rax, node.IndexArg)
	e.push(Sar(RegOperand(Rax), 1))
	e.push(Cmp(RegOperand(Rax), ImmOperand(0)))
	e.push(Jcc(CondL, ErrIndexOutOfBounds.errLabel()))

	e.moveToReg(ScratchB, node.BoundArg)
	e.push(Sar(RegOperand(ScratchB), 1))
	e.push(Cmp(RegOperand(Rax), RegOperand(ScratchB)))
	e.push(Jcc(CondGE, ErrIndexOutOfBounds.errLabel()))
}

package amd64

import "github.com/snake-lang/snakec-backend/internal/ir"

// snakeNewArraySymbol is the runtime allocator AllocateArray lowers to: a
// single-argument call taking a tagged Int length and returning a tagged
// Array pointer in rax, exactly like any other call.
const snakeNewArraySymbol = "snake_new_array"

func (e *Emitter) emitCall(dest ir.Var, fun ir.FunName, args []ir.Immediate, liveAfter *ir.LiveSet) {
	e.emitRuntimeCall(dest, fun.String(), args, liveAfter)
}

func (e *Emitter) emitAllocateArray(dest ir.Var, length ir.Immediate, liveAfter *ir.LiveSet) {
	e.emitRuntimeCall(dest, snakeNewArraySymbol, []ir.Immediate{length}, liveAfter)
}

// emitRuntimeCall lowers a call to target (an internal function's entry
// label or an extern/runtime symbol) under the SysV AMD64 convention:
//
//  1. Every Var in liveAfter allocated to a volatile (caller-saved) register
//     is pushed, since the callee is free to clobber it.
//  2. The first six arguments are placed into the Args registers via a
//     simultaneous move (args may already sit in each other's target
//     registers); any further arguments are pushed, right to left, as
//     required by the calling convention.
//  3. rsp is known ≡ 8 (mod 16) on entry to this function and stays that way
//     across straight-line code (the frame reserved in the prologue is a
//     multiple of 16 bytes). call requires rsp ≡ 0 (mod 16) at the call site,
//     which an 8-byte push flips each time, so an even number of pushes
//     emitted above leaves it unaligned and needs one pad word; an odd count
//     is already aligned.
//  4. After the call returns, the stack pushes are unwound in reverse, and
//     finally rax (the callee's return value) is moved into dest's
//     allocation — after the volatile-register restores, so a restore can
//     never clobber a dest that happens to share a register.
func (e *Emitter) emitRuntimeCall(dest ir.Var, target string, args []ir.Immediate, liveAfter *ir.LiveSet) {
	saves := e.volatileSaveList(dest, liveAfter)
	for _, r := range saves {
		e.pushOperand(RegOperand(r))
	}

	regArgs, stackArgs := args, []ir.Immediate(nil)
	if len(args) > len(Args) {
		regArgs, stackArgs = args[:len(Args)], args[len(Args):]
	}

	moves := make([]Move, len(regArgs))
	for i, a := range regArgs {
		moves[i] = e.immMove(RegOperand(Args[i]), a)
	}
	e.emitParallelMove(moves)

	pushCount := len(saves) + len(stackArgs)
	padded := pushCount%2 == 0
	if padded {
		e.adjustRsp(8)
	}
	for i := len(stackArgs) - 1; i >= 0; i-- {
		e.pushOperand(e.stackArgOperand(stackArgs[i]))
	}

	e.push(CallLabel(target))

	cleanup := int64(8 * len(stackArgs))
	if padded {
		cleanup += 8
	}
	if cleanup > 0 {
		e.adjustRsp(-cleanup)
	}

	for i := len(saves) - 1; i >= 0; i-- {
		e.popOperand(RegOperand(saves[i]))
	}

	e.emitAllocToAlloc(e.coloring.Lookup(dest), RegOperand(Rax))
}

// volatileSaveList returns, in a deterministic order, every register the
// coloring has assigned to a Var that is both volatile (call-clobbered) and
// still needed after this call — excluding dest itself, which has no
// meaningful value yet to protect.
func (e *Emitter) volatileSaveList(dest ir.Var, liveAfter *ir.LiveSet) []Reg {
	var saves []Reg
	for _, v := range liveAfter.Slice() {
		if v == dest {
			continue
		}
		a := e.coloring.Lookup(v)
		if !a.IsReg() {
			continue
		}
		r := RegOf(a.Reg)
		if IsVolatile(r) {
			saves = append(saves, r)
		}
	}
	return saves
}

// stackArgOperand materializes a stack-passed argument for push, which
// cannot take a full 64-bit immediate directly.
func (e *Emitter) stackArgOperand(arg ir.Immediate) Operand {
	if arg.IsVar() {
		return e.allocOperand(arg.Var())
	}
	e.push(Mov(RegOperand(ScratchA), ImmOperand(arg.Const())))
	return RegOperand(ScratchA)
}

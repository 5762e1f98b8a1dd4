// Package amd64 lowers a liveness-annotated, register-allocated ir.Program
// into a straight-line list of x86-64 / System V AMD64 instructions.
package amd64

import (
	"fmt"

	"github.com/snake-lang/snakec-backend/internal/regalloc"
)

// Reg is a general-purpose x86-64 register.
type Reg int

const (
	Rax Reg = iota
	Rcx
	Rdx
	Rbx
	Rsp
	Rbp
	Rsi
	Rdi
	R8
	R9
	R10
	R11
	R12
	R13
	R14
	R15
)

var regNames = [...]string{
	Rax: "rax", Rcx: "rcx", Rdx: "rdx", Rbx: "rbx", Rsp: "rsp", Rbp: "rbp", Rsi: "rsi", Rdi: "rdi",
	R8: "r8", R9: "r9", R10: "r10", R11: "r11", R12: "r12", R13: "r13", R14: "r14", R15: "r15",
}

func (r Reg) String() string { return "%" + regNames[r] }

var regNames8 = [...]string{
	Rax: "al", Rcx: "cl", Rdx: "dl", Rbx: "bl", Rsp: "spl", Rbp: "bpl", Rsi: "sil", Rdi: "dil",
	R8: "r8b", R9: "r9b", R10: "r10b", R11: "r11b", R12: "r12b", R13: "r13b", R14: "r14b", R15: "r15b",
}

// Low8 is r's 8-bit sub-register name, used only for setcc's byte-sized
// destination.
func (r Reg) Low8() string { return "%" + regNames8[r] }

// PhysReg converts r to the opaque identity regalloc works with.
func (r Reg) PhysReg() regalloc.PhysReg { return regalloc.PhysReg(r) }

// RegOf converts a regalloc.PhysReg produced by this package's own tables
// back into a Reg.
func RegOf(p regalloc.PhysReg) Reg { return Reg(p) }

func regsToPhys(rs []Reg) []regalloc.PhysReg {
	out := make([]regalloc.PhysReg, len(rs))
	for i, r := range rs {
		out[i] = r.PhysReg()
	}
	return out
}

// ScratchA and ScratchB are never handed to the allocator: ScratchA (rax)
// is used throughout the emitter as a transit register for spill-to-spill
// moves and operand materialization, and ScratchB (r10) is the emitter's
// second scratch register (binary-op operands, array offsets and stored
// values, type-check masks, bounds) and holds the saved value during
// simultaneous-move cycle resolution. Rsp is the stack pointer and is
// never a candidate for holding a Var either.
const (
	ScratchA = Rax
	ScratchB = R10
)

// All lists every general-purpose register, rsp included.
var All = []Reg{Rax, Rcx, Rdx, Rbx, Rsp, Rbp, Rsi, Rdi, R8, R9, R10, R11, R12, R13, R14, R15}

// Volatile lists the SysV caller-saved registers (rsp excluded: it is
// neither caller- nor callee-saved, it's the stack pointer).
var Volatile = []Reg{Rax, Rcx, Rdx, Rsi, Rdi, R8, R9, R10, R11}

// NonVolatile lists the SysV callee-saved general-purpose registers.
var NonVolatile = []Reg{Rbx, Rbp, R12, R13, R14, R15}

// Allocatable lists every register the register allocator may hand a Var,
// in the order Color should prefer them. Rax and R10 are reserved as
// scratch registers (see ScratchA/ScratchB) and rsp is the stack pointer;
// none of the three are ever allocatable.
var Allocatable = []Reg{Rdi, Rsi, Rdx, Rcx, R8, R9, R11, Rbx, Rbp, R12, R13, R14, R15}

// AllocatableVolatile is Allocatable ∩ Volatile: registers a call clobbers
// that the allocator may still have assigned to a live Var, and which the
// stack-aligned call emitter must therefore spill around the call.
var AllocatableVolatile = []Reg{Rdi, Rsi, Rdx, Rcx, R8, R9, R11}

// AllocatableNonVolatile is Allocatable ∩ NonVolatile: registers the
// function prologue/epilogue must save and restore if the allocator uses
// them at all.
var AllocatableNonVolatile = []Reg{Rbx, Rbp, R12, R13, R14, R15}

// Args lists the SysV integer/pointer argument registers in order.
var Args = []Reg{Rdi, Rsi, Rdx, Rcx, R8, R9}

// AllocatablePhysRegs is Allocatable converted for regalloc.Color.
func AllocatablePhysRegs() []regalloc.PhysReg { return regsToPhys(Allocatable) }

// NonVolatilePhysRegs is AllocatableNonVolatile converted for
// regalloc.ComputeCalleeSaves.
func NonVolatilePhysRegs() []regalloc.PhysReg { return regsToPhys(AllocatableNonVolatile) }

// IsVolatile reports whether r is caller-saved.
func IsVolatile(r Reg) bool {
	for _, v := range Volatile {
		if v == r {
			return true
		}
	}
	return false
}

func mustReg(a regalloc.Allocation) Reg {
	if !a.IsReg() {
		panic(fmt.Sprintf("amd64: BUG: expected a register allocation, got %#v", a))
	}
	return RegOf(a.Reg)
}

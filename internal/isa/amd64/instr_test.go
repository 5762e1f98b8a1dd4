package amd64

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOperandStringForms(t *testing.T) {
	require.Equal(t, "%rax", RegOperand(Rax).String())
	require.Equal(t, "$42", ImmOperand(42).String())
	require.Equal(t, "$-1", ImmOperand(-1).String())
	require.Equal(t, "8(%rsp)", MemOperand(Rsp, 8).String())
	require.Equal(t, "-16(%rbp)", MemOperand(Rbp, -16).String())
	require.Equal(t, "8(%rax,%rcx,4)", IndexedMemOperand(Rax, Rcx, 4, 8).String())
	require.Equal(t, "snake_error", LabelOperand("snake_error").String())
}

func TestOperandIsReg(t *testing.T) {
	require.True(t, RegOperand(Rdi).IsReg(Rdi))
	require.False(t, RegOperand(Rdi).IsReg(Rsi))
	require.False(t, ImmOperand(0).IsReg(Rax))
}

// AT&T order puts the source operand first, so two-operand instructions
// print Src then Dst even though the struct stores them as Dst/Src (matching
// how the emitter reads "a cond b" semantics into From/To for golang-asm).
func TestInstrStringTwoOperandForms(t *testing.T) {
	cases := []struct {
		name string
		ins  Instr
		want string
	}{
		{"mov", Mov(RegOperand(Rax), ImmOperand(6)), "mov $6, %rax"},
		{"add", Add(RegOperand(Rax), RegOperand(Rcx)), "add %rcx, %rax"},
		{"sub", Sub(RegOperand(Rax), ImmOperand(1)), "sub $1, %rax"},
		{"imul", IMul(RegOperand(Rbx), RegOperand(Rax)), "imul %rax, %rbx"},
		{"and", And(RegOperand(Rax), ImmOperand(0b111)), "and $7, %rax"},
		{"or", Or(RegOperand(Rax), ImmOperand(0b111)), "or $7, %rax"},
		{"xor", Xor(RegOperand(Rax), RegOperand(Rax)), "xor %rax, %rax"},
		{"cmp", Cmp(RegOperand(Rax), RegOperand(Rcx)), "cmp %rcx, %rax"},
		{"test", Test(RegOperand(Rax), RegOperand(Rax)), "test %rax, %rax"},
		{"xchg", Xchg(RegOperand(Rax), RegOperand(Rcx)), "xchg %rcx, %rax"},
		{"lea", Lea(RegOperand(Rax), MemOperand(Rsp, 8)), "lea 8(%rsp), %rax"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			require.Equal(t, c.want, c.ins.String())
		})
	}
}

func TestInstrStringShiftForms(t *testing.T) {
	require.Equal(t, "shl $1, %rax", Shl(RegOperand(Rax), 1).String())
	require.Equal(t, "shr $3, %rax", Shr(RegOperand(Rax), 3).String())
	require.Equal(t, "sar $2, %rbx", Sar(RegOperand(Rbx), 2).String())
	require.Equal(t, "not %rax", Not(RegOperand(Rax)).String())
}

func TestInstrStringSingleOperandForms(t *testing.T) {
	require.Equal(t, "push %rax", Push(RegOperand(Rax)).String())
	require.Equal(t, "pop %rbx", Pop(RegOperand(Rbx)).String())
	require.Equal(t, "call snake_error", CallLabel("snake_error").String())
	require.Equal(t, "ret", Ret().String())
	require.Equal(t, "jmp L0", Jmp("L0").String())
}

func TestInstrStringConditionalForms(t *testing.T) {
	require.Equal(t, "je L0", Jcc(CondE, "L0").String())
	require.Equal(t, "jne L0", Jcc(CondNE, "L0").String())
	require.Equal(t, "jo arithmetic_overflow_err", Jcc(CondO, "arithmetic_overflow_err").String())

	// Setcc's destination always prints as an 8-bit sub-register, even
	// though it's constructed from the same full-width Reg used elsewhere.
	require.Equal(t, "sete %al", Setcc(CondE, RegOperand(Rax)).String())
	require.Equal(t, "setl %r10b", Setcc(CondL, RegOperand(R10)).String())
}

func TestInstrStringMovzxUsesLow8SourceRegister(t *testing.T) {
	// Movzx's source is the byte Setcc just wrote, so it must read the
	// same 8-bit sub-register name Setcc's destination printed.
	ins := Movzx(RegOperand(R10), RegOperand(Rax))
	require.Equal(t, "movzbq %al, %r10", ins.String())
}

func TestInstrStringMovzxMemorySourceIsUnaffected(t *testing.T) {
	// Low8 substitution only applies to register sources; a memory operand
	// prints as-is.
	ins := Movzx(RegOperand(Rax), MemOperand(Rsp, 0))
	require.Equal(t, "movzbq 0(%rsp), %rax", ins.String())
}

func TestInstrStringPseudoOps(t *testing.T) {
	require.Equal(t, "L0:", Label("L0").String())
	require.Equal(t, ".globl main", Global("main").String())
	require.Equal(t, "extern f", Extern("f").String())
	require.Equal(t, "section .text", Section("text").String())
	require.Equal(t, "# return value", Comment("return value").String())
}

func TestCondForCompareMapping(t *testing.T) {
	cases := map[string]CondCode{
		"<":  CondL,
		">":  CondG,
		"<=": CondLE,
		">=": CondGE,
		"==": CondE,
		"!=": CondNE,
	}
	for spelling, want := range cases {
		require.Equal(t, want, CondForCompare(spelling))
	}
}

func TestCondForComparePanicsOnUnknownSpelling(t *testing.T) {
	require.Panics(t, func() { CondForCompare("<=>") })
}

func TestRegLow8Table(t *testing.T) {
	require.Equal(t, "%al", Rax.Low8())
	require.Equal(t, "%dil", Rdi.Low8())
	require.Equal(t, "%r15b", R15.Low8())
}

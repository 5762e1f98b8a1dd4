package amd64

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// machine is a toy machine model covering exactly the operand shapes
// emitParallelMove produces (register and rsp-relative memory operands
// carrying plain integers); run applies instrs to it, so the
// cycle-resolution algorithm's correctness can be checked without an
// assembler.
type machine struct {
	regs map[Reg]int64
	mem  map[int32]int64 // keyed by MemOperand.Disp; this package only ever uses disp(%rsp)
}

func newMachine() *machine {
	return &machine{regs: map[Reg]int64{}, mem: map[int32]int64{}}
}

func (m *machine) read(o Operand) int64 {
	if o.Kind == OpKindReg {
		return m.regs[o.Reg]
	}
	return m.mem[o.Disp]
}

func (m *machine) write(o Operand, v int64) {
	if o.Kind == OpKindReg {
		m.regs[o.Reg] = v
		return
	}
	m.mem[o.Disp] = v
}

func (m *machine) run(instrs []Instr) {
	for _, ins := range instrs {
		switch ins.Op {
		case OpMov:
			m.write(ins.Dst, m.read(ins.Src))
		case OpXchg:
			a, b := m.read(ins.Dst), m.read(ins.Src)
			m.write(ins.Dst, b)
			m.write(ins.Src, a)
		default:
			panic("parallel_move_test: unexpected instruction in simultaneous move output")
		}
	}
}

func slot(n int) Operand { return MemOperand(Rsp, int32(8*n)) }

func TestEmitParallelMoveTwoRegisterSwap(t *testing.T) {
	e := &Emitter{}
	m := newMachine()
	m.regs[Rdi] = 1
	m.regs[Rsi] = 2

	e.emitParallelMove([]Move{
		{Dst: RegOperand(Rdi), Src: RegOperand(Rsi)},
		{Dst: RegOperand(Rsi), Src: RegOperand(Rdi)},
	})
	m.run(e.instrs)

	require.Equal(t, int64(2), m.regs[Rdi])
	require.Equal(t, int64(1), m.regs[Rsi])
}

func TestEmitParallelMoveThreeCycleAllRegisters(t *testing.T) {
	e := &Emitter{}
	m := newMachine()
	m.regs[Rdi], m.regs[Rsi], m.regs[Rdx] = 1, 2, 3

	// a<-b, b<-c, c<-a: a rotating three-way cycle.
	e.emitParallelMove([]Move{
		{Dst: RegOperand(Rdi), Src: RegOperand(Rsi)},
		{Dst: RegOperand(Rsi), Src: RegOperand(Rdx)},
		{Dst: RegOperand(Rdx), Src: RegOperand(Rdi)},
	})
	m.run(e.instrs)

	require.Equal(t, int64(2), m.regs[Rdi])
	require.Equal(t, int64(3), m.regs[Rsi])
	require.Equal(t, int64(1), m.regs[Rdx])
}

func TestEmitParallelMoveThreeCycleWithSpillSlot(t *testing.T) {
	e := &Emitter{}
	m := newMachine()
	m.regs[Rdi], m.regs[Rsi] = 1, 2
	m.mem[0] = 3 // slot(0)

	// a<-b, b<-slot0, slot0<-a: same rotation, one leg spilled.
	e.emitParallelMove([]Move{
		{Dst: RegOperand(Rdi), Src: RegOperand(Rsi)},
		{Dst: RegOperand(Rsi), Src: slot(0)},
		{Dst: slot(0), Src: RegOperand(Rdi)},
	})
	m.run(e.instrs)

	require.Equal(t, int64(2), m.regs[Rdi])
	require.Equal(t, int64(3), m.regs[Rsi])
	require.Equal(t, int64(1), m.mem[0])
}

func TestEmitParallelMoveFourCycleWithSpillSlot(t *testing.T) {
	e := &Emitter{}
	m := newMachine()
	m.regs[Rdi], m.regs[Rsi], m.regs[Rdx] = 1, 2, 3
	m.mem[0] = 4

	// a<-b, b<-c, c<-slot0, slot0<-a.
	e.emitParallelMove([]Move{
		{Dst: RegOperand(Rdi), Src: RegOperand(Rsi)},
		{Dst: RegOperand(Rsi), Src: RegOperand(Rdx)},
		{Dst: RegOperand(Rdx), Src: slot(0)},
		{Dst: slot(0), Src: RegOperand(Rdi)},
	})
	m.run(e.instrs)

	require.Equal(t, int64(2), m.regs[Rdi])
	require.Equal(t, int64(3), m.regs[Rsi])
	require.Equal(t, int64(4), m.regs[Rdx])
	require.Equal(t, int64(1), m.mem[0])
}

func TestEmitParallelMoveFinalsChainNoCycle(t *testing.T) {
	e := &Emitter{}
	m := newMachine()
	m.regs[Rdi] = 1
	m.regs[Rsi] = 2

	// b<-a, c<-b: a plain chain, not a cycle — both dests peel as finals.
	e.emitParallelMove([]Move{
		{Dst: RegOperand(Rsi), Src: RegOperand(Rdi)},
		{Dst: RegOperand(Rdx), Src: RegOperand(Rsi)},
	})
	m.run(e.instrs)

	require.Equal(t, int64(1), m.regs[Rsi])
	require.Equal(t, int64(2), m.regs[Rdx])
}

func TestEmitParallelMoveConstantAndIdentity(t *testing.T) {
	e := &Emitter{}
	m := newMachine()
	m.regs[Rdi] = 42

	e.emitParallelMove([]Move{
		{Dst: RegOperand(Rdi), Src: RegOperand(Rdi)}, // identity, dropped
		{Dst: RegOperand(Rsi), SrcConst: true, Const: 99},
	})
	m.run(e.instrs)

	require.Equal(t, int64(42), m.regs[Rdi])
	require.Equal(t, int64(99), m.regs[Rsi])
}

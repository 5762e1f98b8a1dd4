package x64debug

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/snake-lang/snakec-backend/internal/isa/amd64"
)

func TestAssembleStraightLine(t *testing.T) {
	instrs := []amd64.Instr{
		amd64.Mov(amd64.RegOperand(amd64.Rax), amd64.ImmOperand(6)),
		amd64.Add(amd64.RegOperand(amd64.Rax), amd64.RegOperand(amd64.R10)),
		amd64.Sub(amd64.RegOperand(amd64.Rax), amd64.ImmOperand(2)),
		amd64.Ret(),
	}
	code, err := Assemble(instrs)
	require.NoError(t, err)
	require.NotEmpty(t, code)
}

func TestAssembleLocalBranch(t *testing.T) {
	instrs := []amd64.Instr{
		amd64.Mov(amd64.RegOperand(amd64.Rax), amd64.ImmOperand(0)),
		amd64.Test(amd64.RegOperand(amd64.Rax), amd64.ImmOperand(8)),
		amd64.Jcc(amd64.CondNE, "then"),
		amd64.Jmp("els"),
		amd64.Label("then"),
		amd64.Mov(amd64.RegOperand(amd64.Rax), amd64.ImmOperand(1)),
		amd64.Ret(),
		amd64.Label("els"),
		amd64.Mov(amd64.RegOperand(amd64.Rax), amd64.ImmOperand(0)),
		amd64.Ret(),
	}
	code, err := Assemble(instrs)
	require.NoError(t, err)
	require.NotEmpty(t, code)
}

func TestAssembleCallAndStackOps(t *testing.T) {
	instrs := []amd64.Instr{
		amd64.Push(amd64.RegOperand(amd64.Rdi)),
		amd64.Mov(amd64.RegOperand(amd64.Rdi), amd64.ImmOperand(10)),
		amd64.CallLabel("snake_new_array"),
		amd64.Pop(amd64.RegOperand(amd64.Rdi)),
		amd64.Ret(),
	}
	code, err := Assemble(instrs)
	require.NoError(t, err)
	require.NotEmpty(t, code)
}

func TestAssembleMemoryOperands(t *testing.T) {
	instrs := []amd64.Instr{
		amd64.Mov(amd64.RegOperand(amd64.Rax), amd64.MemOperand(amd64.Rsp, 8)),
		amd64.Mov(amd64.RegOperand(amd64.Rax), amd64.IndexedMemOperand(amd64.Rax, amd64.R10, 4, 8)),
		amd64.Ret(),
	}
	code, err := Assemble(instrs)
	require.NoError(t, err)
	require.NotEmpty(t, code)
}

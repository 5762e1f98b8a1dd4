package ir_test

import (
	"testing"

	"github.com/snake-lang/snakec-backend/internal/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImmediateConstAndVar(t *testing.T) {
	c := ir.ConstImm(42)
	require.False(t, c.IsVar())
	assert.Equal(t, int64(42), c.Const())
	assert.Panics(t, func() { c.Var() })

	v := ir.NewVar("x")
	vi := ir.VarImm(v)
	require.True(t, vi.IsVar())
	assert.Equal(t, v, vi.Var())
	assert.Panics(t, func() { vi.Const() })
}

func TestVarIdentityDistinguishesSameHint(t *testing.T) {
	a := ir.NewVar("x")
	b := ir.NewVar("x")
	assert.NotEqual(t, a, b, "two freshly minted vars sharing a hint must stay distinguishable")
	assert.Equal(t, a, a)
}

func TestTypeMaskTag(t *testing.T) {
	for _, ty := range []ir.Type{ir.TypeInt, ir.TypeBool, ir.TypeArray} {
		mask := ty.Mask()
		tag := ty.Tag()
		assert.Equal(t, tag, tag&mask, "tag must fit within its own mask for %s", ty)
	}
	assert.NotEqual(t, ir.TypeInt.Tag()&ir.TypeBool.Mask(), ir.TypeBool.Tag(),
		"an int-tagged value must not satisfy the bool mask/tag check")
}

func TestOpReads(t *testing.T) {
	a, b := ir.NewVar("a"), ir.NewVar("b")
	op := ir.Prim2Op(ir.Prim2{Kind: ir.Add, A: ir.VarImm(a), B: ir.VarImm(b)})
	reads := op.Reads()
	require.Len(t, reads, 2)
	assert.Equal(t, a, reads[0].Var())
	assert.Equal(t, b, reads[1].Var())
}

func TestOpIsCall(t *testing.T) {
	assert.True(t, ir.CallOp(ir.NewFunName("f"), nil).IsCall())
	assert.True(t, ir.AllocateArrayOp(ir.ConstImm(3)).IsCall())
	assert.False(t, ir.ImmediateOp(ir.ConstImm(1)).IsCall())
}

func TestBlockNameStringIsAsmSafe(t *testing.T) {
	b := ir.NewBlockName("loop body!")
	s := b.String()
	for _, r := range s {
		ok := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_'
		require.True(t, ok, "label %q contains non-assembler-safe rune %q", s, r)
	}
}

func TestUnmangledFunNameKeepsSymbolVerbatim(t *testing.T) {
	f := ir.UnmangledFunName("snake_error")
	assert.Equal(t, "snake_error", f.String())
}

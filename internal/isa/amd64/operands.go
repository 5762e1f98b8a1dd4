package amd64

import "fmt"

// OperandKind discriminates Operand.
type OperandKind int

const (
	OpKindReg OperandKind = iota
	OpKindImm
	OpKindMem
	OpKindLabel
)

// Operand is an instruction operand: a register, a signed immediate, a
// memory reference (optionally scaled-indexed), or a symbolic label.
type Operand struct {
	Kind OperandKind

	Reg Reg // OpKindReg

	Imm int64 // OpKindImm

	Base     Reg  // OpKindMem
	HasIndex bool // OpKindMem
	Index    Reg  // OpKindMem, when HasIndex
	Scale    int8 // OpKindMem, when HasIndex: 1, 2, 4, or 8
	Disp     int32

	Label string // OpKindLabel
}

// RegOperand builds a register operand.
func RegOperand(r Reg) Operand { return Operand{Kind: OpKindReg, Reg: r} }

// ImmOperand builds a signed-immediate operand.
func ImmOperand(v int64) Operand { return Operand{Kind: OpKindImm, Imm: v} }

// MemOperand builds a base+displacement memory operand: disp(base).
func MemOperand(base Reg, disp int32) Operand { return Operand{Kind: OpKindMem, Base: base, Disp: disp} }

// IndexedMemOperand builds a base+scaled-index+displacement memory operand:
// disp(base,index,scale).
func IndexedMemOperand(base, index Reg, scale int8, disp int32) Operand {
	return Operand{Kind: OpKindMem, Base: base, HasIndex: true, Index: index, Scale: scale, Disp: disp}
}

// LabelOperand builds a symbolic operand, used for direct jump/call targets
// and RIP-relative address loads.
func LabelOperand(name string) Operand { return Operand{Kind: OpKindLabel, Label: name} }

// IsReg reports whether o is a register operand naming r.
func (o Operand) IsReg(r Reg) bool { return o.Kind == OpKindReg && o.Reg == r }

func (o Operand) String() string {
	switch o.Kind {
	case OpKindReg:
		return o.Reg.String()
	case OpKindImm:
		return fmt.Sprintf("$%d", o.Imm)
	case OpKindMem:
		if o.HasIndex {
			return fmt.Sprintf("%d(%s,%s,%d)", o.Disp, o.Base, o.Index, o.Scale)
		}
		return fmt.Sprintf("%d(%s)", o.Disp, o.Base)
	case OpKindLabel:
		return o.Label
	default:
		return "<bad operand>"
	}
}

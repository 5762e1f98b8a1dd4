package amd64

import "fmt"

// Op is an x86-64 mnemonic.
type Op int

const (
	OpMov Op = iota
	OpAdd
	OpSub
	OpIMul
	OpAnd
	OpOr
	OpXor
	OpShl // logical left, literal count
	OpShr // logical right, literal count
	OpSar // arithmetic right, literal count
	OpNot
	OpCmp
	OpTest
	OpMovzx
	OpXchg
	OpLea
	OpPush
	OpPop
	OpCall
	OpRet
	OpJmp
	OpJcc
	OpSetcc
	OpLabel   // pseudo: defines a symbol at this point
	OpGlobal  // pseudo: .globl directive
	OpExtern  // pseudo: extern declaration
	OpSection // pseudo: section directive
	OpComment // pseudo: narration, emitted only when EmitComments is set
)

// CondCode is an x86 condition code, used by OpJcc and OpSetcc.
type CondCode int

const (
	CondE CondCode = iota
	CondNE
	CondL
	CondLE
	CondG
	CondGE
	CondO // overflow — used after arithmetic ops, never after Cmp
)

var condNames = [...]string{"e", "ne", "l", "le", "g", "ge", "o"}

func (c CondCode) String() string { return condNames[c] }

// CondForCompare maps an ir comparison kind's spelling to its x86 condition
// code. Kept independent of package ir to avoid a needless import cycle
// risk; the emitter is the only caller and it already knows the mapping.
func CondForCompare(ltOrGt string) CondCode {
	switch ltOrGt {
	case "<":
		return CondL
	case ">":
		return CondG
	case "<=":
		return CondLE
	case ">=":
		return CondGE
	case "==":
		return CondE
	case "!=":
		return CondNE
	default:
		panic("amd64: BUG: unknown comparison spelling " + ltOrGt)
	}
}

// Instr is a single emitted x86-64 instruction or assembler pseudo-op.
type Instr struct {
	Op       Op
	Dst, Src Operand
	Shift    uint8 // literal shift count, for OpShl/OpShr/OpSar
	Cond     CondCode
	Text     string // OpLabel/OpGlobal/OpExtern/OpSection/OpComment payload
}

func Mov(dst, src Operand) Instr  { return Instr{Op: OpMov, Dst: dst, Src: src} }
func Add(dst, src Operand) Instr  { return Instr{Op: OpAdd, Dst: dst, Src: src} }
func Sub(dst, src Operand) Instr  { return Instr{Op: OpSub, Dst: dst, Src: src} }
func IMul(dst, src Operand) Instr { return Instr{Op: OpIMul, Dst: dst, Src: src} }
func And(dst, src Operand) Instr  { return Instr{Op: OpAnd, Dst: dst, Src: src} }
func Or(dst, src Operand) Instr   { return Instr{Op: OpOr, Dst: dst, Src: src} }
func Xor(dst, src Operand) Instr  { return Instr{Op: OpXor, Dst: dst, Src: src} }
func Not(dst Operand) Instr       { return Instr{Op: OpNot, Dst: dst} }
func Cmp(a, b Operand) Instr      { return Instr{Op: OpCmp, Dst: a, Src: b} }
func Test(a, b Operand) Instr     { return Instr{Op: OpTest, Dst: a, Src: b} }
func Movzx(dst, src Operand) Instr { return Instr{Op: OpMovzx, Dst: dst, Src: src} }
func Xchg(a, b Operand) Instr     { return Instr{Op: OpXchg, Dst: a, Src: b} }
func Lea(dst, src Operand) Instr  { return Instr{Op: OpLea, Dst: dst, Src: src} }

func Shl(dst Operand, count uint8) Instr { return Instr{Op: OpShl, Dst: dst, Shift: count} }
func Shr(dst Operand, count uint8) Instr { return Instr{Op: OpShr, Dst: dst, Shift: count} }
func Sar(dst Operand, count uint8) Instr { return Instr{Op: OpSar, Dst: dst, Shift: count} }

func Push(src Operand) Instr { return Instr{Op: OpPush, Src: src} }
func Pop(dst Operand) Instr  { return Instr{Op: OpPop, Dst: dst} }

func CallLabel(target string) Instr { return Instr{Op: OpCall, Src: LabelOperand(target)} }
func Ret() Instr                    { return Instr{Op: OpRet} }
func Jmp(target string) Instr       { return Instr{Op: OpJmp, Src: LabelOperand(target)} }
func Jcc(cond CondCode, target string) Instr {
	return Instr{Op: OpJcc, Cond: cond, Src: LabelOperand(target)}
}
func Setcc(cond CondCode, dst Operand) Instr { return Instr{Op: OpSetcc, Cond: cond, Dst: dst} }

func Label(name string) Instr   { return Instr{Op: OpLabel, Text: name} }
func Global(name string) Instr  { return Instr{Op: OpGlobal, Text: name} }
func Extern(name string) Instr  { return Instr{Op: OpExtern, Text: name} }
func Section(name string) Instr { return Instr{Op: OpSection, Text: name} }
func Comment(text string) Instr { return Instr{Op: OpComment, Text: text} }

func (i Instr) String() string {
	switch i.Op {
	case OpMov:
		return fmt.Sprintf("mov %s, %s", i.Src, i.Dst)
	case OpAdd:
		return fmt.Sprintf("add %s, %s", i.Src, i.Dst)
	case OpSub:
		return fmt.Sprintf("sub %s, %s", i.Src, i.Dst)
	case OpIMul:
		return fmt.Sprintf("imul %s, %s", i.Src, i.Dst)
	case OpAnd:
		return fmt.Sprintf("and %s, %s", i.Src, i.Dst)
	case OpOr:
		return fmt.Sprintf("or %s, %s", i.Src, i.Dst)
	case OpXor:
		return fmt.Sprintf("xor %s, %s", i.Src, i.Dst)
	case OpShl:
		return fmt.Sprintf("shl $%d, %s", i.Shift, i.Dst)
	case OpShr:
		return fmt.Sprintf("shr $%d, %s", i.Shift, i.Dst)
	case OpSar:
		return fmt.Sprintf("sar $%d, %s", i.Shift, i.Dst)
	case OpNot:
		return fmt.Sprintf("not %s", i.Dst)
	case OpCmp:
		return fmt.Sprintf("cmp %s, %s", i.Src, i.Dst)
	case OpTest:
		return fmt.Sprintf("test %s, %s", i.Src, i.Dst)
	case OpMovzx:
		src := i.Src.String()
		if i.Src.Kind == OpKindReg {
			src = i.Src.Reg.Low8()
		}
		return fmt.Sprintf("movzbq %s, %s", src, i.Dst)
	case OpXchg:
		return fmt.Sprintf("xchg %s, %s", i.Src, i.Dst)
	case OpLea:
		return fmt.Sprintf("lea %s, %s", i.Src, i.Dst)
	case OpPush:
		return fmt.Sprintf("push %s", i.Src)
	case OpPop:
		return fmt.Sprintf("pop %s", i.Dst)
	case OpCall:
		return fmt.Sprintf("call %s", i.Src)
	case OpRet:
		return "ret"
	case OpJmp:
		return fmt.Sprintf("jmp %s", i.Src)
	case OpJcc:
		return fmt.Sprintf("j%s %s", i.Cond, i.Src)
	case OpSetcc:
		if i.Dst.Kind == OpKindReg {
			return fmt.Sprintf("set%s %s", i.Cond, i.Dst.Reg.Low8())
		}
		return fmt.Sprintf("set%s %s", i.Cond, i.Dst)
	case OpLabel:
		return i.Text + ":"
	case OpGlobal:
		return ".globl " + i.Text
	case OpExtern:
		return "extern " + i.Text
	case OpSection:
		return "section ." + i.Text
	case OpComment:
		return "# " + i.Text
	default:
		return "<bad instr>"
	}
}

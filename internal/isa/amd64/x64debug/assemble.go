// Package x64debug assembles an emitted instruction stream with a real
// x86-64 assembler, the same way the teacher codebase's own
// amd64_debug.golang_asm package uses golang-asm as a test oracle alongside
// its own hand-rolled encoder. Nothing here ships: package amd64's Instr
// slice, printed through its own String(), is what snakec-dump writes out.
// This package exists so tests can additionally confirm a real assembler
// accepts the instruction stream without objection.
package x64debug

import (
	"fmt"

	goasm "github.com/twitchyliquid64/golang-asm"
	"github.com/twitchyliquid64/golang-asm/obj"
	"github.com/twitchyliquid64/golang-asm/obj/x86"

	"github.com/snake-lang/snakec-backend/internal/isa/amd64"
)

// regOf maps an amd64.Reg to golang-asm's register constant for the same
// physical register.
var regOf = [...]int16{
	amd64.Rax: x86.REG_AX, amd64.Rcx: x86.REG_CX, amd64.Rdx: x86.REG_DX, amd64.Rbx: x86.REG_BX,
	amd64.Rsp: x86.REG_SP, amd64.Rbp: x86.REG_BP, amd64.Rsi: x86.REG_SI, amd64.Rdi: x86.REG_DI,
	amd64.R8: x86.REG_R8, amd64.R9: x86.REG_R9, amd64.R10: x86.REG_R10, amd64.R11: x86.REG_R11,
	amd64.R12: x86.REG_R12, amd64.R13: x86.REG_R13, amd64.R14: x86.REG_R14, amd64.R15: x86.REG_R15,
}

// pendingBranch records a not-yet-resolved jump/call target: label names are
// only known to refer to a real position once every Instr has been walked.
type pendingBranch struct {
	prog  *obj.Prog
	label string
}

// Assemble feeds instrs through golang-asm's amd64 backend, returning the
// encoded machine code. External symbols (runtime calls, Extern
// declarations) have no address in this isolated stream, so a call/jump
// targeting one resolves to a self-branch stub instead of a real address:
// good enough to validate that the instruction encodes, not to link or run.
func Assemble(instrs []amd64.Instr) ([]byte, error) {
	b, err := goasm.NewBuilder("amd64", len(instrs)*8+64)
	if err != nil {
		return nil, fmt.Errorf("x64debug: new builder: %w", err)
	}

	labels := map[string]*obj.Prog{}
	var pending []pendingBranch

	for _, ins := range instrs {
		if isPseudoOp(ins.Op) {
			continue
		}
		p := b.NewProg()
		label, isBranch := fill(p, ins)
		if ins.Op == amd64.OpLabel {
			labels[ins.Text] = p
		}
		b.AddInstruction(p)
		if isBranch {
			pending = append(pending, pendingBranch{prog: p, label: label})
		}
	}

	for _, pb := range pending {
		target, ok := labels[pb.label]
		if !ok {
			target = pb.prog
		}
		pb.prog.To.SetTarget(target)
	}

	return b.Assemble(), nil
}

func isPseudoOp(op amd64.Op) bool {
	switch op {
	case amd64.OpGlobal, amd64.OpExtern, amd64.OpSection, amd64.OpComment:
		return true
	default:
		return false
	}
}

// fill populates p from ins, returning the branch label name and whether ins
// is a label-targeting instruction whose target must be resolved in a
// second pass.
func fill(p *obj.Prog, ins amd64.Instr) (label string, isBranch bool) {
	switch ins.Op {
	case amd64.OpMov:
		p.As = x86.AMOVQ
		setOperand(&p.From, ins.Src)
		setOperand(&p.To, ins.Dst)
	case amd64.OpAdd:
		p.As = x86.AADDQ
		setOperand(&p.From, ins.Src)
		setOperand(&p.To, ins.Dst)
	case amd64.OpSub:
		p.As = x86.ASUBQ
		setOperand(&p.From, ins.Src)
		setOperand(&p.To, ins.Dst)
	case amd64.OpIMul:
		p.As = x86.AIMULQ
		setOperand(&p.From, ins.Src)
		setOperand(&p.To, ins.Dst)
	case amd64.OpAnd:
		p.As = x86.AANDQ
		setOperand(&p.From, ins.Src)
		setOperand(&p.To, ins.Dst)
	case amd64.OpOr:
		p.As = x86.AORQ
		setOperand(&p.From, ins.Src)
		setOperand(&p.To, ins.Dst)
	case amd64.OpXor:
		p.As = x86.AXORQ
		setOperand(&p.From, ins.Src)
		setOperand(&p.To, ins.Dst)
	case amd64.OpShl:
		p.As = x86.ASHLQ
		p.From.Type = obj.TYPE_CONST
		p.From.Offset = int64(ins.Shift)
		setOperand(&p.To, ins.Dst)
	case amd64.OpShr:
		p.As = x86.ASHRQ
		p.From.Type = obj.TYPE_CONST
		p.From.Offset = int64(ins.Shift)
		setOperand(&p.To, ins.Dst)
	case amd64.OpSar:
		p.As = x86.ASARQ
		p.From.Type = obj.TYPE_CONST
		p.From.Offset = int64(ins.Shift)
		setOperand(&p.To, ins.Dst)
	case amd64.OpNot:
		p.As = x86.ANOTQ
		p.From.Type = obj.TYPE_NONE
		setOperand(&p.To, ins.Dst)
	case amd64.OpCmp:
		p.As = x86.ACMPQ
		setOperand(&p.From, ins.Dst)
		setOperand(&p.To, ins.Src)
	case amd64.OpTest:
		p.As = x86.ATESTQ
		setOperand(&p.From, ins.Dst)
		setOperand(&p.To, ins.Src)
	case amd64.OpMovzx:
		p.As = x86.AMOVBQZX
		setOperand(&p.From, ins.Src)
		setOperand(&p.To, ins.Dst)
	case amd64.OpXchg:
		p.As = x86.AXCHGQ
		setOperand(&p.From, ins.Dst)
		setOperand(&p.To, ins.Src)
	case amd64.OpLea:
		p.As = x86.ALEAQ
		setOperand(&p.From, ins.Src)
		setOperand(&p.To, ins.Dst)
	case amd64.OpPush:
		p.As = x86.APUSHQ
		p.From.Type = obj.TYPE_NONE
		setOperand(&p.To, ins.Src)
	case amd64.OpPop:
		p.As = x86.APOPQ
		p.From.Type = obj.TYPE_NONE
		setOperand(&p.To, ins.Dst)
	case amd64.OpCall:
		p.As = obj.ACALL
		p.To.Type = obj.TYPE_BRANCH
		return ins.Src.Label, true
	case amd64.OpRet:
		p.As = obj.ARET
	case amd64.OpJmp:
		p.As = obj.AJMP
		p.To.Type = obj.TYPE_BRANCH
		return ins.Src.Label, true
	case amd64.OpJcc:
		p.As = jccFor(ins.Cond)
		p.To.Type = obj.TYPE_BRANCH
		return ins.Src.Label, true
	case amd64.OpSetcc:
		p.As = setccFor(ins.Cond)
		p.From.Type = obj.TYPE_NONE
		setOperand(&p.To, ins.Dst)
	case amd64.OpLabel:
		p.As = obj.ANOP
	default:
		panic(fmt.Sprintf("x64debug: BUG: unhandled Op %d", ins.Op))
	}
	return "", false
}

func setOperand(addr *obj.Addr, o amd64.Operand) {
	switch o.Kind {
	case amd64.OpKindReg:
		addr.Type = obj.TYPE_REG
		addr.Reg = regOf[o.Reg]
	case amd64.OpKindImm:
		addr.Type = obj.TYPE_CONST
		addr.Offset = o.Imm
	case amd64.OpKindMem:
		addr.Type = obj.TYPE_MEM
		addr.Reg = regOf[o.Base]
		addr.Offset = int64(o.Disp)
		if o.HasIndex {
			addr.Index = regOf[o.Index]
			addr.Scale = int16(o.Scale)
		}
	default:
		panic(fmt.Sprintf("x64debug: BUG: unhandled operand kind %d", o.Kind))
	}
}

func jccFor(c amd64.CondCode) obj.As {
	switch c {
	case amd64.CondE:
		return x86.AJEQ
	case amd64.CondNE:
		return x86.AJNE
	case amd64.CondL:
		return x86.AJLT
	case amd64.CondLE:
		return x86.AJLE
	case amd64.CondG:
		return x86.AJGT
	case amd64.CondGE:
		return x86.AJGE
	case amd64.CondO:
		return x86.AJOS
	default:
		panic(fmt.Sprintf("x64debug: BUG: unhandled CondCode %d", c))
	}
}

func setccFor(c amd64.CondCode) obj.As {
	switch c {
	case amd64.CondE:
		return x86.ASETEQ
	case amd64.CondNE:
		return x86.ASETNE
	case amd64.CondL:
		return x86.ASETLT
	case amd64.CondLE:
		return x86.ASETLE
	case amd64.CondG:
		return x86.ASETGT
	case amd64.CondGE:
		return x86.ASETGE
	case amd64.CondO:
		return x86.ASETOS
	default:
		panic(fmt.Sprintf("x64debug: BUG: unhandled CondCode %d", c))
	}
}

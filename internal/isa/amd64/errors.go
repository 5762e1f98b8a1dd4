package amd64

// ErrCode is the runtime error code passed as snake_error's first argument.
type ErrCode int64

const (
	ErrArithmeticOverflow ErrCode = iota
	ErrExpectedNum
	ErrExpectedBool
	ErrExpectedArray
	ErrNegativeLength
	ErrIndexOutOfBounds
)

// errLabel is the program-wide symbol jumped to when the corresponding
// runtime check fails.
func (c ErrCode) errLabel() string {
	switch c {
	case ErrArithmeticOverflow:
		return "arithmetic_overflow_err"
	case ErrExpectedNum:
		return "expected_num_err"
	case ErrExpectedBool:
		return "expected_bool_err"
	case ErrExpectedArray:
		return "expected_array_err"
	case ErrNegativeLength:
		return "negative_length_err"
	case ErrIndexOutOfBounds:
		return "index_out_of_bounds_err"
	default:
		panic("amd64: BUG: unknown ErrCode")
	}
}

// snakeErrorSymbol is the runtime entry point every error stub calls with
// (code, datum) in rdi/rsi. It is not modeled as an ir.Extern: these stubs
// are backend-internal scaffolding the emitter always produces, the same
// way the original backend's Emitter::emit_prog unconditionally writes them
// ahead of user code.
const snakeErrorSymbol = "snake_error"

// retagsDatum reports whether this error's datum arrives at the failed
// check as a raw, untagged machine integer that must be re-tagged as a
// snake Int (shifted left by Int's tag width) before being handed to
// snake_error, versus a value that was already a validly tagged snake value
// at the point of failure.
func (c ErrCode) retagsDatum() bool {
	return c == ErrNegativeLength || c == ErrIndexOutOfBounds
}

// emitErrorStubs appends the six runtime error entry points. Each moves its
// error code into rdi, prepares the offending datum (already in rax at the
// point control reaches the stub) into rsi, and calls snake_error, which
// never returns.
func (e *Emitter) emitErrorStubs() {
	for _, code := range []ErrCode{
		ErrArithmeticOverflow, ErrExpectedNum, ErrExpectedBool,
		ErrExpectedArray, ErrNegativeLength, ErrIndexOutOfBounds,
	} {
		e.push(Label(code.errLabel()))
		e.push(Mov(RegOperand(Rdi), ImmOperand(int64(code))))
		if code.retagsDatum() {
			e.push(Shl(RegOperand(Rax), 1))
		}
		e.push(Mov(RegOperand(Rsi), RegOperand(Rax)))
		e.push(CallLabel(snakeErrorSymbol))
	}
}

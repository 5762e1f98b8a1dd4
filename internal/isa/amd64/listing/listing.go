// Package listing prints a colorized assembly listing of an emitted
// instruction stream, in the same color.New(...).SprintFunc() composition
// style the teacher pack's kanso-lang error reporter uses for structured
// terminal output.
package listing

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/snake-lang/snakec-backend/internal/isa/amd64"
)

var (
	labelColor     = color.New(color.FgCyan, color.Bold).SprintFunc()
	mnemonicColor  = color.New(color.FgYellow).SprintFunc()
	commentColor   = color.New(color.Faint).SprintFunc()
	directiveColor = color.New(color.FgMagenta).SprintFunc()
)

// Print writes a colorized listing of instrs to w: labels flush left and
// bold cyan, directives magenta, comments dim, and every real instruction
// indented with its mnemonic picked out in yellow.
func Print(w io.Writer, instrs []amd64.Instr) {
	for _, ins := range instrs {
		switch ins.Op {
		case amd64.OpLabel:
			fmt.Fprintf(w, "%s:\n", labelColor(ins.Text))
		case amd64.OpComment:
			fmt.Fprintf(w, "        %s\n", commentColor("# "+ins.Text))
		case amd64.OpGlobal, amd64.OpExtern, amd64.OpSection:
			fmt.Fprintf(w, "%s\n", directiveColor(ins.String()))
		default:
			mnem, rest, hasRest := strings.Cut(ins.String(), " ")
			if hasRest {
				fmt.Fprintf(w, "    %s %s\n", mnemonicColor(mnem), rest)
			} else {
				fmt.Fprintf(w, "    %s\n", mnemonicColor(mnem))
			}
		}
	}
}

// String renders Print's output to a string, for tests and callers that
// want the listing rather than a stream.
func String(instrs []amd64.Instr) string {
	var b strings.Builder
	Print(&b, instrs)
	return b.String()
}

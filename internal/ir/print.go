package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// Print renders the module in the textual form accepted by Parse. The
// output is deterministic: program order for functions, blocks and
// instructions, declaration order for globals.
func Print(m *Module) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "module %s\n", m.Name)

	for _, g := range m.Globals {
		fmt.Fprintf(&sb, "\nglobal @%s = %s\n", g.Name, strconv.Quote(string(g.Data)))
	}

	for _, f := range m.Funcs {
		sb.WriteString("\n")
		sb.WriteString(printFunc(f))
	}
	return sb.String()
}

// PrintFunc renders a single function body.
func PrintFunc(f *Function) string {
	return printFunc(f)
}

func printFunc(f *Function) string {
	var sb strings.Builder

	if f.IsDeclaration() {
		fmt.Fprintf(&sb, "declare @%s\n", f.Name)
		return sb.String()
	}

	params := make([]string, len(f.Params))
	for n, p := range f.Params {
		params[n] = p.Ref()
	}
	fmt.Fprintf(&sb, "func @%s(%s)", f.Name, strings.Join(params, ", "))
	for _, a := range attrOrder {
		if f.Attrs[a] {
			sb.WriteString(" " + a)
		}
	}
	sb.WriteString(" {\n")

	for _, b := range f.Blocks {
		fmt.Fprintf(&sb, "%s:\n", b.Name)
		for _, i := range b.Instrs {
			fmt.Fprintf(&sb, "  %s\n", printInstr(i))
		}
		fmt.Fprintf(&sb, "  %s\n", printTerm(&b.Term))
	}
	sb.WriteString("}\n")
	return sb.String()
}

// attrOrder keeps attribute printing stable.
var attrOrder = []string{AttrNoObfuscate, AttrIntrinsic, AttrAlwaysInline, AttrNoInline}

func printInstr(i *Instr) string {
	ops := make([]string, len(i.Operands))
	for n, op := range i.Operands {
		ops[n] = op.Ref()
	}
	if i.Op == OpCall {
		call := fmt.Sprintf("call @%s(%s)", i.Callee, strings.Join(ops, ", "))
		return i.Ref() + " = " + call
	}
	if !i.HasResult() {
		return i.Op.String() + " " + strings.Join(ops, ", ")
	}
	if len(ops) == 0 {
		return i.Ref() + " = " + i.Op.String()
	}
	return i.Ref() + " = " + i.Op.String() + " " + strings.Join(ops, ", ")
}

func printTerm(t *Terminator) string {
	switch t.Kind {
	case TermReturn:
		if t.Value == nil {
			return "ret"
		}
		return "ret " + t.Value.Ref()
	case TermJump:
		return "br " + t.Targets[0].Name
	case TermCondBr:
		return fmt.Sprintf("condbr %s, %s, %s", t.Value.Ref(), t.Targets[0].Name, t.Targets[1].Name)
	case TermSwitch:
		cases := make([]string, len(t.Cases))
		for n, c := range t.Cases {
			cases[n] = fmt.Sprintf("%d: %s", c.Value, c.Target.Name)
		}
		return fmt.Sprintf("switch %s, default %s [%s]", t.Value.Ref(), t.Default.Name, strings.Join(cases, ", "))
	case TermUnreachable:
		return "unreachable"
	default:
		return "<unterminated>"
	}
}

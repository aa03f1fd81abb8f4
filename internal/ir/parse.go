package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseError reports a syntax or reference error with its source line.
type ParseError struct {
	Line int
	Msg  string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("ir: line %d: %s", e.Line, e.Msg)
}

// Parse reads a module from the textual form produced by Print.
//
// Block references may be forward; value references must be defined
// earlier in program order (the passes never build graphs that need
// textual forward value references, so neither does the format).
func Parse(src string) (*Module, error) {
	p := &parser{lines: strings.Split(src, "\n")}
	return p.parse()
}

type parser struct {
	lines []string
	pos   int
}

func (p *parser) errf(line int, format string, args ...any) error {
	return &ParseError{Line: line, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) next() (string, int, bool) {
	for p.pos < len(p.lines) {
		p.pos++
		line := strings.TrimSpace(p.lines[p.pos-1])
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return line, p.pos, true
	}
	return "", p.pos, false
}

func (p *parser) parse() (*Module, error) {
	line, n, ok := p.next()
	if !ok || !strings.HasPrefix(line, "module ") {
		return nil, p.errf(n, "expected module header")
	}
	m := NewModule(strings.TrimSpace(strings.TrimPrefix(line, "module ")))

	for {
		line, n, ok = p.next()
		if !ok {
			return m, nil
		}
		switch {
		case strings.HasPrefix(line, "global @"):
			if err := p.parseGlobal(m, line, n); err != nil {
				return nil, err
			}
		case strings.HasPrefix(line, "declare @"):
			name := strings.TrimSpace(strings.TrimPrefix(line, "declare @"))
			if name == "" {
				return nil, p.errf(n, "declare needs a function name")
			}
			m.AddFunc(NewFunction(name))
		case strings.HasPrefix(line, "func @"):
			f, err := p.parseFunc(m, line, n)
			if err != nil {
				return nil, err
			}
			m.AddFunc(f)
		default:
			return nil, p.errf(n, "unexpected top-level line %q", line)
		}
	}
}

func (p *parser) parseGlobal(m *Module, line string, n int) error {
	rest := strings.TrimPrefix(line, "global @")
	name, lit, found := strings.Cut(rest, "=")
	if !found {
		return p.errf(n, "global needs an initializer")
	}
	name = strings.TrimSpace(name)
	data, err := strconv.Unquote(strings.TrimSpace(lit))
	if err != nil {
		return p.errf(n, "bad global initializer: %v", err)
	}
	if m.Global(name) != nil {
		return p.errf(n, "duplicate global @%s", name)
	}
	m.NewGlobal(name, []byte(data))
	return nil
}

func (p *parser) parseFunc(m *Module, header string, headerLine int) (*Function, error) {
	rest := strings.TrimPrefix(header, "func @")
	lparen := strings.Index(rest, "(")
	rparen := strings.Index(rest, ")")
	if lparen < 0 || rparen < lparen || !strings.HasSuffix(rest, "{") {
		return nil, p.errf(headerLine, "malformed function header")
	}
	name := strings.TrimSpace(rest[:lparen])

	var params []string
	for _, raw := range strings.Split(rest[lparen+1:rparen], ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if !strings.HasPrefix(raw, "%") {
			return nil, p.errf(headerLine, "parameter %q must start with %%", raw)
		}
		params = append(params, raw[1:])
	}
	f := NewFunction(name, params...)

	for _, attr := range strings.Fields(strings.TrimSuffix(strings.TrimSpace(rest[rparen+1:]), "{")) {
		f.Attrs[attr] = true
	}

	// Collect body lines, then resolve in two steps so block references
	// can point forward.
	type bodyLine struct {
		text string
		n    int
	}
	var body []bodyLine
	for {
		line, n, ok := p.next()
		if !ok {
			return nil, p.errf(n, "unterminated function @%s", name)
		}
		if line == "}" {
			break
		}
		body = append(body, bodyLine{line, n})
	}

	for _, bl := range body {
		if label, ok := strings.CutSuffix(bl.text, ":"); ok && !strings.ContainsAny(label, " \t") {
			if f.Block(label) != nil {
				return nil, p.errf(bl.n, "duplicate block label %s", label)
			}
			f.NewBlock(label)
		}
	}
	if len(f.Blocks) == 0 {
		return nil, p.errf(headerLine, "function @%s has no blocks", name)
	}

	values := make(map[string]Value)
	for _, prm := range f.Params {
		values[prm.Name] = prm
	}

	resolve := func(tok string, n int) (Value, error) {
		switch {
		case strings.HasPrefix(tok, "%"):
			v, ok := values[tok[1:]]
			if !ok {
				return nil, p.errf(n, "use of undefined value %s", tok)
			}
			return v, nil
		case strings.HasPrefix(tok, "@"):
			g := m.Global(tok[1:])
			if g == nil {
				return nil, p.errf(n, "use of undefined global %s", tok)
			}
			return g, nil
		default:
			i, err := strconv.ParseInt(tok, 10, 64)
			if err != nil {
				return nil, p.errf(n, "bad operand %q", tok)
			}
			return ConstOf(i), nil
		}
	}
	target := func(label string, n int) (*BasicBlock, error) {
		b := f.Block(label)
		if b == nil {
			return nil, p.errf(n, "branch to undefined block %s", label)
		}
		return b, nil
	}

	var cur *BasicBlock
	for _, bl := range body {
		if label, ok := strings.CutSuffix(bl.text, ":"); ok && !strings.ContainsAny(label, " \t") {
			cur = f.Block(label)
			continue
		}
		if cur == nil {
			return nil, p.errf(bl.n, "instruction before first block label")
		}
		if cur.Terminated() {
			return nil, p.errf(bl.n, "instruction after terminator in block %s", cur.Name)
		}
		if err := p.parseBodyLine(f, cur, bl.text, bl.n, values, resolve, target); err != nil {
			return nil, err
		}
	}
	for _, b := range f.Blocks {
		if !b.Terminated() {
			return nil, p.errf(headerLine, "block %s of @%s lacks a terminator", b.Name, name)
		}
	}

	// Continue fresh register numbering past any parsed %tN names.
	for reg := range values {
		if num, ok := strings.CutPrefix(reg, "t"); ok {
			if v, err := strconv.Atoi(num); err == nil && v >= f.nextReg {
				f.nextReg = v + 1
			}
		}
	}
	return f, nil
}

func (p *parser) parseBodyLine(
	f *Function,
	b *BasicBlock,
	line string,
	n int,
	values map[string]Value,
	resolve func(string, int) (Value, error),
	target func(string, int) (*BasicBlock, error),
) error {
	head, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	operands := func(list string) ([]Value, error) {
		var out []Value
		for _, tok := range strings.Split(list, ",") {
			tok = strings.TrimSpace(tok)
			if tok == "" {
				continue
			}
			v, err := resolve(tok, n)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}

	switch head {
	case "ret":
		if rest == "" {
			b.SetReturn(nil)
			return nil
		}
		v, err := resolve(rest, n)
		if err != nil {
			return err
		}
		b.SetReturn(v)
		return nil
	case "br":
		t, err := target(rest, n)
		if err != nil {
			return err
		}
		b.SetJump(t)
		return nil
	case "condbr":
		parts := strings.Split(rest, ",")
		if len(parts) != 3 {
			return p.errf(n, "condbr wants cond, true, false")
		}
		cond, err := resolve(strings.TrimSpace(parts[0]), n)
		if err != nil {
			return err
		}
		tt, err := target(strings.TrimSpace(parts[1]), n)
		if err != nil {
			return err
		}
		ff, err := target(strings.TrimSpace(parts[2]), n)
		if err != nil {
			return err
		}
		b.SetCondBr(cond, tt, ff)
		return nil
	case "switch":
		return p.parseSwitch(b, rest, n, resolve, target)
	case "unreachable":
		b.SetUnreachable()
		return nil
	case "store":
		ops, err := operands(rest)
		if err != nil {
			return err
		}
		if len(ops) != 2 {
			return p.errf(n, "store wants value, cell")
		}
		b.Append(&Instr{Op: OpStore, Operands: ops})
		return nil
	}

	// Result-producing instruction: %name = op operands...
	if !strings.HasPrefix(head, "%") {
		return p.errf(n, "unknown instruction %q", line)
	}
	resName := head[1:]
	if _, dup := values[resName]; dup {
		return p.errf(n, "redefinition of %s", head)
	}
	eq, rhs, found := strings.Cut(rest, " ")
	if eq != "=" {
		rhs = ""
	}
	if !found || rhs == "" {
		return p.errf(n, "malformed instruction %q", line)
	}
	rhs = strings.TrimSpace(rhs)

	instr := &Instr{Name: resName}
	if callRest, ok := strings.CutPrefix(rhs, "call @"); ok {
		open := strings.Index(callRest, "(")
		if open < 0 || !strings.HasSuffix(callRest, ")") {
			return p.errf(n, "malformed call %q", rhs)
		}
		instr.Op = OpCall
		instr.Callee = strings.TrimSpace(callRest[:open])
		ops, err := operands(callRest[open+1 : len(callRest)-1])
		if err != nil {
			return err
		}
		instr.Operands = ops
	} else {
		mnemonic, opsText, _ := strings.Cut(rhs, " ")
		op, ok := opcodeByName[mnemonic]
		if !ok || op == OpStore || op == OpCall {
			return p.errf(n, "unknown opcode %q", mnemonic)
		}
		instr.Op = op
		ops, err := operands(opsText)
		if err != nil {
			return err
		}
		instr.Operands = ops
	}
	b.Append(instr)
	values[resName] = instr
	return nil
}

func (p *parser) parseSwitch(
	b *BasicBlock,
	rest string,
	n int,
	resolve func(string, int) (Value, error),
	target func(string, int) (*BasicBlock, error),
) error {
	// switch %s, default trap [1: bb1, 2: bb2]
	open := strings.Index(rest, "[")
	if open < 0 || !strings.HasSuffix(rest, "]") {
		return p.errf(n, "switch wants a case list")
	}
	headParts := strings.Split(strings.TrimSuffix(strings.TrimSpace(rest[:open]), ","), ",")
	if len(headParts) != 2 {
		return p.errf(n, "switch wants value, default")
	}
	scrut, err := resolve(strings.TrimSpace(headParts[0]), n)
	if err != nil {
		return err
	}
	defTok := strings.TrimSpace(headParts[1])
	if !strings.HasPrefix(defTok, "default ") {
		return p.errf(n, "switch wants a default target")
	}
	def, err := target(strings.TrimSpace(strings.TrimPrefix(defTok, "default ")), n)
	if err != nil {
		return err
	}

	var cases []SwitchCase
	caseList := rest[open+1 : len(rest)-1]
	if strings.TrimSpace(caseList) != "" {
		for _, c := range strings.Split(caseList, ",") {
			valTok, labelTok, found := strings.Cut(c, ":")
			if !found {
				return p.errf(n, "malformed switch case %q", c)
			}
			v, err := strconv.ParseInt(strings.TrimSpace(valTok), 10, 64)
			if err != nil {
				return p.errf(n, "bad switch case value %q", valTok)
			}
			t, err := target(strings.TrimSpace(labelTok), n)
			if err != nil {
				return err
			}
			cases = append(cases, SwitchCase{Value: v, Target: t})
		}
	}
	b.SetSwitch(scrut, def, cases)
	return nil
}

package pass

import (
	"sync"

	"golang.org/x/text/transform"

	"github.com/cloakforge/cloak/internal/config"
	"github.com/cloakforge/cloak/internal/ir"
)

// textCallees are the call targets whose global operands are known to be
// string data. Only operands of these calls are encrypted; a global
// reached any other way might be binary data with different semantics.
var textCallees = map[string]bool{
	"printf": true,
	"puts":   true,
	"strlen": true,
	"strcpy": true,
	"strcmp": true,
}

// stringEncryption XORs the bytes of string globals with a fixed key and,
// when emit-decode is set, inserts a call to the decode intrinsic before
// each rewritten call site so runtime behavior is preserved.
//
// Globals are module-level resources shared across functions; seen guards
// against double encryption when the pipeline runs functions in parallel.
type stringEncryption struct {
	key        byte
	emitDecode bool

	mu   sync.Mutex
	seen map[*ir.Global]bool
}

func newStringEncryption(cfg config.PassConfig) (Pass, error) {
	return &stringEncryption{
		key:        ir.DecodeKey,
		emitDecode: cfg.Bool("emit-decode", true),
		seen:       make(map[*ir.Global]bool),
	}, nil
}

func (*stringEncryption) Name() string { return NameStringEncryption }

func (p *stringEncryption) Run(fn *ir.Function, _ Source) (bool, error) {
	if fn.IsDeclaration() {
		return false, nil
	}
	modified := false
	for _, b := range fn.Blocks {
		for _, call := range append([]*ir.Instr(nil), b.Instrs...) {
			if call.Op != ir.OpCall || !textCallees[call.Callee] {
				continue
			}
			for k, op := range call.Operands {
				g, ok := op.(*ir.Global)
				if !ok || len(g.Data) == 0 {
					continue
				}
				p.encryptOnce(g)
				if p.emitDecode {
					dec := fn.NewCall(ir.DecodeCallee, g)
					b.InsertBefore(dec, b.Index(call))
					call.Operands[k] = dec
				}
				modified = true
			}
		}
	}
	return modified, nil
}

// encryptOnce XORs the global's bytes exactly once per run, no matter
// how many call sites or functions reference it.
func (p *stringEncryption) encryptOnce(g *ir.Global) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.seen[g] {
		return
	}
	p.seen[g] = true
	out, _, err := transform.Bytes(xorKey(p.key), g.Data)
	if err == nil {
		g.Data = out
	}
}

// xorKey is a transform.Transformer applying a single-byte XOR. The
// transform is its own inverse, which is what the decode intrinsic
// relies on.
type xorKey byte

func (k xorKey) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	n := len(src)
	if n > len(dst) {
		n = len(dst)
		err = transform.ErrShortDst
	}
	for i := 0; i < n; i++ {
		dst[i] = src[i] ^ byte(k)
	}
	return n, n, err
}

func (xorKey) Reset() {}

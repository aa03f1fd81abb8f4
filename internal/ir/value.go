package ir

import "strconv"

// Value is anything an instruction can consume as an operand: a constant,
// a function parameter, a global byte array, or the result of another
// instruction.
type Value interface {
	// Ref returns the textual reference used by the printer,
	// e.g. "7", "%a", "%t3", "@fmt".
	Ref() string
}

// Const is an immutable int64 literal.
type Const struct {
	Int int64
}

// ConstOf returns a constant value for n.
func ConstOf(n int64) *Const {
	return &Const{Int: n}
}

// Ref implements Value.
func (c *Const) Ref() string {
	return strconv.FormatInt(c.Int, 10)
}

// Param is a function parameter. Parameters are defined at entry and
// therefore dominate every use in the function.
type Param struct {
	Name  string
	Index int
}

// Ref implements Value.
func (p *Param) Ref() string {
	return "%" + p.Name
}

// Global is a named module-level constant byte array, typically a string
// literal referenced by a text-handling call. Data is the stored
// initializer; the string-encryption pass rewrites it in place.
type Global struct {
	Name string
	Data []byte
}

// Ref implements Value.
func (g *Global) Ref() string {
	return "@" + g.Name
}

package cpu

import "fmt"

// Shape describes which fields of an Operands a Descriptor's handler
// expects resolved before it runs.
type Shape int

const (
	ShapeNone Shape = iota
	ShapeSSDD
	ShapeDD
	ShapeRNN
)

// Descriptor is one entry in the ordered decode table: a mask/opcode pair,
// the mnemonic it names, the operand shape it resolves, and the handler
// that executes it. Table is scanned front-to-back and the first entry
// whose mask selects bits equal to its opcode wins — an exact map lookup
// can't work here because PDP-11 opcodes vary in width and their masked
// ranges overlap.
type Descriptor struct {
	Mask     uint16
	Opcode   uint16
	Mnemonic string
	Shape    Shape
	Handler  func(*Machine, *Operands) error
}

// Table is the ordered instruction set, in declaration order: HALT first
// (the single all-zero opcode), then MOV/ADD/CLR/SOB. None of these five
// masked ranges overlap, so this particular order doesn't shadow anything
// today, but the scan is a genuine first-match, not a map lookup, so adding
// a narrower entry later only has to be placed before the wider one it
// should take precedence over.
var Table = []Descriptor{
	{Mask: 0o177777, Opcode: 0o000000, Mnemonic: "HALT", Shape: ShapeNone, Handler: execHALT},
	{Mask: 0o170000, Opcode: 0o010000, Mnemonic: "MOV", Shape: ShapeSSDD, Handler: execMOV},
	{Mask: 0o170000, Opcode: 0o060000, Mnemonic: "ADD", Shape: ShapeSSDD, Handler: execADD},
	{Mask: 0o177000, Opcode: 0o005000, Mnemonic: "CLR", Shape: ShapeDD, Handler: execCLR},
	{Mask: 0o177000, Opcode: 0o077000, Mnemonic: "SOB", Shape: ShapeRNN, Handler: execSOB},
}

// unknown is the sentinel descriptor returned by lookup when no Table entry
// matches. Its handler never executes the actual instruction; it records
// the diagnostic and leaves the machine running, per the decided
// unknown-instruction policy: continue, not fatal.
var unknown = &Descriptor{
	Mask: 0o177777, Opcode: 0o177777, Mnemonic: "???", Shape: ShapeNone,
	Handler: execUnknown,
}

// lookup scans Table in order and returns the first Descriptor whose mask
// selects bits equal to its opcode in word, or unknown if none match.
func lookup(word uint16) *Descriptor {
	for i := range Table {
		d := &Table[i]
		if word&d.Mask == d.Opcode {
			return d
		}
	}
	return unknown
}

func execHALT(m *Machine, _ *Operands) error {
	m.Halted = true
	return nil
}

func execMOV(m *Machine, ops *Operands) error {
	return m.Write(ops.DD, ops.SS.Value, Word)
}

func execADD(m *Machine, ops *Operands) error {
	sum := ops.DD.Value + ops.SS.Value // wraps mod 2^16 by uint16 arithmetic
	return m.Write(ops.DD, sum, Word)
}

func execCLR(m *Machine, ops *Operands) error {
	return m.Write(ops.DD, 0, Word)
}

func execSOB(m *Machine, ops *Operands) error {
	v := m.Reg[ops.R] - 1
	m.Reg[ops.R] = v
	if v != 0 {
		m.Reg[7] -= 2 * uint16(ops.NN)
	}
	return nil
}

func execUnknown(m *Machine, ops *Operands) error {
	fmt.Printf("unknown instruction %06o at %06o, continuing\n", ops.Word, m.Reg[7]-2)
	return nil
}

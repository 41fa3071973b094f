// Package cpu implements the core of a PDP-11 subset emulator: the operand
// resolver, the ordered opcode decoder, and the fetch-decode-execute loop.
package cpu

import (
	"fmt"

	"pdp11/mask"
	"pdp11/mem"
)

// DefaultStartAddress is where the program counter starts when no loader
// directive overrides it.
const DefaultStartAddress uint16 = 0o1000

// Machine is the PDP-11 subset aggregate: memory, the eight general
// registers, and the halted flag. A fresh Machine is created per run (or per
// test); there is no global or package-level state.
type Machine struct {
	Mem    *mem.Memory
	Reg    [8]uint16 // R0-R7; R6 is SP by convention, R7 is PC
	Halted bool
}

// NewMachine returns a Machine with zeroed registers and memory, PC set to
// DefaultStartAddress.
func NewMachine() *Machine {
	m := &Machine{Mem: mem.New()}
	m.Reg[7] = DefaultStartAddress
	return m
}

// Width selects whether a write-back through a resolved Operand stores a
// full word or a single byte.
type Width int

const (
	Word Width = iota
	Byte
)

// Location tags where a resolved Operand lives.
type Location int

const (
	LocRegister Location = iota
	LocMemory
)

// Operand is the resolver's output for one 6-bit mode/register field: a
// tagged location, the value read there at resolution time, and (for modes
// that consume an instruction-stream extension word) that word, kept around
// so the disassembler can render immediate/indexed syntax without
// re-reading memory after the PC has already moved past it.
type Operand struct {
	Mode  uint8
	Reg   uint8
	Loc   Location
	Index uint8  // valid when Loc == LocRegister
	Addr  uint16 // valid when Loc == LocMemory
	Value uint16

	HasExt bool
	Ext    uint16 // the extension word of an immediate (mode 2, R7) or indexed (mode 6/7) operand
}

// Immediate reports whether this operand is mode 2 with register 7 — the
// resolver still performs an ordinary autoincrement-on-PC read, but the
// disassembler prints it as "#value" rather than "(R7)+".
func (o Operand) Immediate() bool {
	return o.Mode == 2 && o.Reg == 7
}

// resolve decodes a 6-bit mode/register field and applies the PDP-11
// addressing-mode side effects as it goes: the value is read as part of
// resolution, and any register or PC updates happen before resolve returns.
// Handlers observe already-advanced state.
func (m *Machine) resolve(field uint8) (Operand, error) {
	mode := uint8(mask.Last(uint16(field)>>3, mask.I3))
	r := uint8(mask.Last(uint16(field), mask.I3))

	op := Operand{Mode: mode, Reg: r}

	switch mode {
	case 0: // Rn
		op.Loc = LocRegister
		op.Index = r
		op.Value = m.Reg[r]

	case 1: // (Rn)
		addr := m.Reg[r]
		v, err := m.Mem.ReadWord(addr)
		if err != nil {
			return Operand{}, err
		}
		op.Loc = LocMemory
		op.Addr = addr
		op.Value = v

	case 2: // (Rn)+ / immediate when r==7
		addr := m.Reg[r]
		v, err := m.Mem.ReadWord(addr)
		if err != nil {
			return Operand{}, err
		}
		op.Loc = LocMemory
		op.Addr = addr
		op.Value = v
		if r == 7 {
			op.HasExt = true
			op.Ext = v
		}
		m.Reg[r] += 2

	case 3: // @(Rn)+
		addr := m.Reg[r]
		ptr, err := m.Mem.ReadWord(addr)
		if err != nil {
			return Operand{}, err
		}
		v, err := m.Mem.ReadWord(ptr)
		if err != nil {
			return Operand{}, err
		}
		m.Reg[r] += 2
		op.Loc = LocMemory
		op.Addr = ptr
		op.Value = v

	case 4: // -(Rn)
		m.Reg[r] -= 2
		addr := m.Reg[r]
		v, err := m.Mem.ReadWord(addr)
		if err != nil {
			return Operand{}, err
		}
		op.Loc = LocMemory
		op.Addr = addr
		op.Value = v

	case 5: // @-(Rn)
		m.Reg[r] -= 2
		addr := m.Reg[r]
		ptr, err := m.Mem.ReadWord(addr)
		if err != nil {
			return Operand{}, err
		}
		v, err := m.Mem.ReadWord(ptr)
		if err != nil {
			return Operand{}, err
		}
		op.Loc = LocMemory
		op.Addr = ptr
		op.Value = v

	case 6: // X(Rn)
		offset, err := m.Mem.ReadWord(m.Reg[7])
		if err != nil {
			return Operand{}, err
		}
		m.Reg[7] += 2
		addr := m.Reg[r] + offset
		v, err := m.Mem.ReadWord(addr)
		if err != nil {
			return Operand{}, err
		}
		op.HasExt = true
		op.Ext = offset
		op.Loc = LocMemory
		op.Addr = addr
		op.Value = v

	case 7: // @X(Rn)
		offset, err := m.Mem.ReadWord(m.Reg[7])
		if err != nil {
			return Operand{}, err
		}
		m.Reg[7] += 2
		ptr := m.Reg[r] + offset
		addr, err := m.Mem.ReadWord(ptr)
		if err != nil {
			return Operand{}, err
		}
		v, err := m.Mem.ReadWord(addr)
		if err != nil {
			return Operand{}, err
		}
		op.HasExt = true
		op.Ext = offset
		op.Loc = LocMemory
		op.Addr = addr
		op.Value = v
	}

	return op, nil
}

// Write stores value through a resolved Operand's tag: register writes mask
// to 16 bits, memory writes honor width.
func (m *Machine) Write(op Operand, value uint16, width Width) error {
	if op.Loc == LocRegister {
		m.Reg[op.Index] = value & 0xffff
		return nil
	}
	if width == Byte {
		m.Mem.WriteByte(op.Addr, byte(value&0xff))
		return nil
	}
	return m.Mem.WriteWord(op.Addr, value)
}

// Operands holds the resolved fields for one decoded instruction, shaped
// according to the matched Descriptor's Shape.
type Operands struct {
	Word uint16 // the raw fetched instruction word, for trace/diagnostics

	SS, DD       Operand
	HasSS, HasDD bool

	R  uint8 // SOB's 3-bit register field
	NN uint8 // SOB's 6-bit unsigned displacement
}

// StepResult describes one executed instruction, for callers that want to
// trace execution (the CLI's -trace flag, the debugger).
type StepResult struct {
	PC         uint16 // PC of the fetched instruction, before advancing
	Descriptor *Descriptor
	Operands   Operands
	Halted     bool
}

// Step fetches the word at PC, advances PC by 2, decodes it against Table,
// resolves operands per the matched Descriptor's Shape, and invokes its
// handler. Because modes 2/3/6/7 consume extension words through PC, the
// fetch of the instruction word itself must happen before any operand
// resolution touches PC again.
func (m *Machine) Step() (StepResult, error) {
	word, err := m.Mem.ReadWord(m.Reg[7])
	if err != nil {
		return StepResult{}, err
	}
	pc := m.Reg[7]
	m.Reg[7] += 2

	desc := lookup(word)
	ops := Operands{Word: word}

	switch desc.Shape {
	case ShapeSSDD:
		ss, err := m.resolve(uint8(mask.Range(word, mask.I5, mask.I10)))
		if err != nil {
			return StepResult{}, err
		}
		ops.SS, ops.HasSS = ss, true
		dd, err := m.resolve(uint8(mask.Last(word, mask.I6)))
		if err != nil {
			return StepResult{}, err
		}
		ops.DD, ops.HasDD = dd, true

	case ShapeDD:
		dd, err := m.resolve(uint8(mask.Last(word, mask.I6)))
		if err != nil {
			return StepResult{}, err
		}
		ops.DD, ops.HasDD = dd, true

	case ShapeRNN:
		ops.R = uint8(mask.Range(word, mask.I8, mask.I10))
		ops.NN = uint8(mask.Last(word, mask.I6))

	case ShapeNone:
		// nothing to resolve
	}

	if err := desc.Handler(m, &ops); err != nil {
		return StepResult{}, fmt.Errorf("%s at %06o: %w", desc.Mnemonic, pc, err)
	}

	return StepResult{PC: pc, Descriptor: desc, Operands: ops, Halted: m.Halted}, nil
}

// Run executes Step in a loop until the machine halts or Step returns an
// error. onStep, if non-nil, is called after every successfully executed
// instruction — this is how tracing and the debugger observe execution
// without the core loop depending on any formatting package.
func (m *Machine) Run(onStep func(StepResult)) error {
	for {
		res, err := m.Step()
		if err != nil {
			return err
		}
		if onStep != nil {
			onStep(res)
		}
		if res.Halted {
			return nil
		}
	}
}

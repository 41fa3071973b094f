// Package disassemble renders decoded instructions and register state as
// text. It reads already-resolved cpu.Operand values; it never drives
// decoding or execution itself.
package disassemble

import (
	"fmt"

	"pdp11/cpu"
)

var mnemonics = map[string]bool{
	"HALT": true, "MOV": true, "ADD": true, "CLR": true, "SOB": true,
}

// regName renders a register index as the PDP-11 convention: r6 is "sp",
// r7 is "pc", everything else is "rN".
func regName(n uint8) string {
	switch n {
	case 6:
		return "sp"
	case 7:
		return "pc"
	default:
		return fmt.Sprintf("r%d", n)
	}
}

// operandText renders one resolved operand in the assembler dialect's
// syntax: "#NNNNNN" for immediate, "(rN)+"/"-(rN)"/"@..." for the
// indirect/autoincrement forms, "X(rN)" for indexed, bare "rN" for register
// direct.
func operandText(op cpu.Operand) string {
	if op.Immediate() {
		return fmt.Sprintf("#%06o", op.Ext)
	}
	r := regName(op.Reg)
	switch op.Mode {
	case 0:
		return r
	case 1:
		return fmt.Sprintf("(%s)", r)
	case 2:
		return fmt.Sprintf("(%s)+", r)
	case 3:
		return fmt.Sprintf("@(%s)+", r)
	case 4:
		return fmt.Sprintf("-(%s)", r)
	case 5:
		return fmt.Sprintf("@-(%s)", r)
	case 6:
		return fmt.Sprintf("%06o(%s)", op.Ext, r)
	case 7:
		return fmt.Sprintf("@%06o(%s)", op.Ext, r)
	default:
		return r
	}
}

// Format renders the mnemonic and operand text for one executed
// instruction, given its StepResult. An unknown word is rendered as the
// sentinel mnemonic followed by the raw word in six-digit octal.
func Format(res cpu.StepResult) string {
	d := res.Descriptor
	ops := res.Operands

	switch d.Shape {
	case cpu.ShapeSSDD:
		return fmt.Sprintf("%-5s%s, %s", d.Mnemonic, operandText(ops.SS), operandText(ops.DD))
	case cpu.ShapeDD:
		return fmt.Sprintf("%-5s%s", d.Mnemonic, operandText(ops.DD))
	case cpu.ShapeRNN:
		return fmt.Sprintf("%-5s%s, %d", d.Mnemonic, regName(ops.R), ops.NN)
	default:
		if !mnemonics[d.Mnemonic] {
			return fmt.Sprintf("%-5s%06o", d.Mnemonic, ops.Word)
		}
		return d.Mnemonic
	}
}

// TraceLine renders one executed instruction as a trace line: the
// instruction's own PC in six-digit octal, a colon, and the disassembled
// text. Trace output is informational only; nothing parses it.
func TraceLine(res cpu.StepResult) string {
	return fmt.Sprintf("%06o: %s", res.PC, Format(res))
}

// RegisterDump renders the two-line octal register dump printed on HALT:
// r0/r2/r4/sp on the first line, r1/r3/r5/pc on the second.
func RegisterDump(reg [8]uint16) string {
	line1 := fmt.Sprintf("r0=%06o r2=%06o r4=%06o sp=%06o", reg[0], reg[2], reg[4], reg[6])
	line2 := fmt.Sprintf("r1=%06o r3=%06o r5=%06o pc=%06o", reg[1], reg[3], reg[5], reg[7])
	return line1 + "\n" + line2
}

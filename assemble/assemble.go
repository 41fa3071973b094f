// Package assemble implements a tiny two-pass assembler for a minimal
// dialect: optional "label:", a mnemonic, register/immediate/label
// operands, a ". = <octal>" origin directive, and ";" comments. Nothing in
// cpu or loader depends on it. It emits the same "ADDR COUNT" object
// format loader.Load reads.
package assemble

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// ErrSyntax is wrapped into the error returned for any input that doesn't
// fit the dialect: an unrecognized mnemonic, a malformed operand, or an
// undefined label reference. Only a bad origin directive reports its line
// number.
var ErrSyntax = errors.New("assembler syntax error")

var (
	labelLine    = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\s*:\s*(.*)$`)
	originLine   = regexp.MustCompile(`^\.\s*=\s*(\S+)$`)
	registerOpnd = regexp.MustCompile(`^[rR]([0-7])$`)
)

type operand struct {
	mode   uint8
	reg    uint8
	hasExt bool
	ext    uint16
}

type statement struct {
	label    string
	mnemonic string
	args     []string
	addr     uint16
	size     int // words this statement occupies, filled in by pass 1
}

// Assemble reads assembly source from r, resolves labels, and writes the
// object-file encoding to w. Pass 1 assigns every statement an address and
// word count; pass 2 encodes operands (now that every label has a known
// address) and emits one object-file block per contiguous run of bytes.
func Assemble(r io.Reader, w io.Writer) error {
	stmts, origin, err := parse(r)
	if err != nil {
		return err
	}

	symtab, err := layout(stmts, origin)
	if err != nil {
		return err
	}

	words, err := encode(stmts, symtab)
	if err != nil {
		return err
	}

	return emit(w, words)
}

// parse splits the source into statements and the declared origin (the
// last "." directive anywhere in the source sets the single base address
// of every statement; 0 if none is given).
func parse(r io.Reader) ([]statement, uint16, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, 0, err
	}

	var stmts []statement
	origin := uint16(0)

	for lineNo, raw := range strings.Split(string(data), "\n") {
		line := strings.TrimSpace(stripComment(raw))
		if line == "" {
			continue
		}

		if m := originLine.FindStringSubmatch(line); m != nil {
			v, err := strconv.ParseUint(m[1], 8, 16)
			if err != nil {
				return nil, 0, fmt.Errorf("line %d: %w: bad origin %q", lineNo+1, ErrSyntax, m[1])
			}
			origin = uint16(v)
			continue
		}

		var label string
		if m := labelLine.FindStringSubmatch(line); m != nil {
			label = m[1]
			line = strings.TrimSpace(m[2])
		}

		var mnemonic string
		var args []string
		if line != "" {
			rest := ""
			if i := strings.IndexAny(line, " \t"); i >= 0 {
				line, rest = line[:i], strings.TrimSpace(line[i+1:])
			}
			mnemonic = strings.ToLower(line)
			if rest != "" {
				for _, a := range strings.Split(rest, ",") {
					args = append(args, strings.TrimSpace(a))
				}
			}
		}

		if label == "" && mnemonic == "" {
			continue
		}

		stmts = append(stmts, statement{label: label, mnemonic: mnemonic, args: args})
	}

	return stmts, origin, nil
}

func stripComment(line string) string {
	if i := strings.IndexByte(line, ';'); i >= 0 {
		return line[:i]
	}
	return line
}

// layout assigns every statement its address and word count (pass 1), and
// returns the label -> address symbol table.
func layout(stmts []statement, origin uint16) (map[string]uint16, error) {
	symtab := map[string]uint16{}
	addr := origin

	for i := range stmts {
		s := &stmts[i]
		s.addr = addr
		if s.label != "" {
			symtab[s.label] = addr
		}

		size, err := wordSize(s)
		if err != nil {
			return nil, err
		}
		s.size = size
		addr += uint16(size * 2)
	}
	return symtab, nil
}

func wordSize(s *statement) (int, error) {
	switch s.mnemonic {
	case "":
		return 0, nil
	case "halt":
		return 1, nil
	case "sob":
		return 1, nil
	case "clr":
		if len(s.args) != 1 {
			return 0, fmt.Errorf("%w: clr takes one operand", ErrSyntax)
		}
		if isImmediateOrLabel(s.args[0]) {
			return 2, nil
		}
		return 1, nil
	case "mov", "add":
		if len(s.args) != 2 {
			return 0, fmt.Errorf("%w: %s takes two operands", ErrSyntax, s.mnemonic)
		}
		n := 1
		if isImmediateOrLabel(s.args[0]) {
			n++
		}
		if isImmediateOrLabel(s.args[1]) {
			n++
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%w: unknown mnemonic %q", ErrSyntax, s.mnemonic)
	}
}

func isImmediateOrLabel(arg string) bool {
	if strings.HasPrefix(arg, "#") {
		return true
	}
	return !registerOpnd.MatchString(arg)
}

// resolveOperand encodes one SS/DD operand. Register operands are mode 0.
// Immediates (#NNN, decimal) and bare identifiers (treated as "load this
// label's address as a literal") are mode 2, r7, with an extension word.
func resolveOperand(arg string, symtab map[string]uint16) (operand, error) {
	if m := registerOpnd.FindStringSubmatch(arg); m != nil {
		n, _ := strconv.Atoi(m[1])
		return operand{mode: 0, reg: uint8(n)}, nil
	}
	if strings.HasPrefix(arg, "#") {
		v, err := strconv.ParseUint(arg[1:], 10, 16)
		if err != nil {
			return operand{}, fmt.Errorf("%w: bad immediate %q", ErrSyntax, arg)
		}
		return operand{mode: 2, reg: 7, hasExt: true, ext: uint16(v)}, nil
	}
	addr, ok := symtab[arg]
	if !ok {
		return operand{}, fmt.Errorf("%w: undefined label %q", ErrSyntax, arg)
	}
	return operand{mode: 2, reg: 7, hasExt: true, ext: addr}, nil
}

type word struct {
	addr uint16
	val  uint16
}

func encode(stmts []statement, symtab map[string]uint16) ([]word, error) {
	var out []word

	for _, s := range stmts {
		if s.mnemonic == "" {
			continue
		}
		addr := s.addr

		switch s.mnemonic {
		case "halt":
			out = append(out, word{addr, 0o000000})

		case "clr":
			dd, err := resolveOperand(s.args[0], symtab)
			if err != nil {
				return nil, err
			}
			ddField := uint16(dd.mode)<<3 | uint16(dd.reg)
			out = append(out, word{addr, 0o005000 | ddField})
			addr += 2
			if dd.hasExt {
				out = append(out, word{addr, dd.ext})
			}

		case "mov", "add":
			ss, err := resolveOperand(s.args[0], symtab)
			if err != nil {
				return nil, err
			}
			dd, err := resolveOperand(s.args[1], symtab)
			if err != nil {
				return nil, err
			}
			base := uint16(0o010000)
			if s.mnemonic == "add" {
				base = 0o060000
			}
			ssField := uint16(ss.mode)<<3 | uint16(ss.reg)
			ddField := uint16(dd.mode)<<3 | uint16(dd.reg)
			out = append(out, word{addr, base | ssField<<6 | ddField})
			addr += 2
			if ss.hasExt {
				out = append(out, word{addr, ss.ext})
				addr += 2
			}
			if dd.hasExt {
				out = append(out, word{addr, dd.ext})
			}

		case "sob":
			if len(s.args) != 2 {
				return nil, fmt.Errorf("%w: sob takes two operands", ErrSyntax)
			}
			r, err := resolveOperand(s.args[0], symtab)
			if err != nil || r.mode != 0 {
				return nil, fmt.Errorf("%w: sob's first operand must be a register", ErrSyntax)
			}
			nn, err := sobDisplacement(s.args[1], addr, symtab)
			if err != nil {
				return nil, err
			}
			out = append(out, word{addr, 0o077000 | uint16(r.reg)<<6 | nn})
		}
	}
	return out, nil
}

// sobDisplacement resolves SOB's second operand either as a literal
// decimal count or as a label, in which case the backward word-count is
// computed from the address immediately following this instruction.
func sobDisplacement(arg string, instrAddr uint16, symtab map[string]uint16) (uint16, error) {
	if n, err := strconv.ParseUint(arg, 10, 6); err == nil {
		return uint16(n), nil
	}
	target, ok := symtab[arg]
	if !ok {
		return 0, fmt.Errorf("%w: undefined label %q", ErrSyntax, arg)
	}
	nextPC := instrAddr + 2
	if target > nextPC {
		return 0, fmt.Errorf("%w: sob target %q is not behind the branch", ErrSyntax, arg)
	}
	return (nextPC - target) / 2, nil
}

// emit writes words as the simplest valid object file: one block per
// maximal run of consecutive addresses, low byte then high byte per word.
func emit(w io.Writer, words []word) error {
	i := 0
	for i < len(words) {
		j := i
		for j+1 < len(words) && words[j+1].addr == words[j].addr+2 {
			j++
		}
		block := words[i : j+1]
		if _, err := fmt.Fprintf(w, "%x %x\n", block[0].addr, len(block)*2); err != nil {
			return err
		}
		for _, bw := range block {
			if _, err := fmt.Fprintf(w, "%02x\n%02x\n", bw.val&0xff, (bw.val>>8)&0xff); err != nil {
				return err
			}
		}
		i = j + 1
	}
	return nil
}

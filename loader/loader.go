// Package loader reads the object-file format that places byte runs into a
// Machine's memory before execution: a sequence of blocks, each a header
// line "ADDR COUNT" (hexadecimal, no prefix) followed by COUNT lines of one
// hexadecimal byte each. A blank line, or end of file, terminates the load.
package loader

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"pdp11/mem"
)

// ErrFormat is wrapped with line context and returned for any malformed
// header or byte line: missing fields, non-hex digits, or a truncated
// block (fewer byte lines than COUNT declared before EOF).
var ErrFormat = errors.New("malformed object file")

// Load reads blocks from r into m, starting addresses and counts given in
// hex. It returns the number of bytes written. The object format carries no
// start-address directive of its own; callers that need one fall back to a
// configured or default start address.
func Load(r io.Reader, m *mem.Memory) (int, error) {
	scanner := bufio.NewScanner(r)
	written := 0
	lineNo := 0

	nextLine := func() (string, bool) {
		if !scanner.Scan() {
			return "", false
		}
		lineNo++
		return strings.TrimSpace(scanner.Text()), true
	}

	for {
		header, ok := nextLine()
		if !ok || header == "" {
			break
		}

		fields := strings.Fields(header)
		if len(fields) != 2 {
			return written, fmt.Errorf("line %d: %w: expected \"ADDR COUNT\", got %q", lineNo, ErrFormat, header)
		}
		addr64, err := strconv.ParseUint(fields[0], 16, 16)
		if err != nil {
			return written, fmt.Errorf("line %d: %w: bad address %q", lineNo, ErrFormat, fields[0])
		}
		count, err := strconv.ParseUint(fields[1], 16, 32)
		if err != nil {
			return written, fmt.Errorf("line %d: %w: bad count %q", lineNo, ErrFormat, fields[1])
		}

		addr := uint16(addr64)
		for i := uint64(0); i < count; i++ {
			line, ok := nextLine()
			if !ok {
				return written, fmt.Errorf("line %d: %w: truncated block, expected %d more byte(s)", lineNo, ErrFormat, count-i)
			}
			b, err := strconv.ParseUint(line, 16, 8)
			if err != nil {
				return written, fmt.Errorf("line %d: %w: bad byte %q", lineNo, ErrFormat, line)
			}
			m.WriteByte(addr+uint16(i), byte(b))
			written++
		}
	}

	if err := scanner.Err(); err != nil {
		return written, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	return written, nil
}

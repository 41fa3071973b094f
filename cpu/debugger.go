package cpu

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/davecgh/go-spew/spew"
)

type debugModel struct {
	machine *Machine

	prevPC uint16
	last   StepResult
	error  error
}

// Init is the first function that will be called. The machine is expected
// to already have a program loaded and PC set; Init performs no loading
// itself (unlike the loose script-and-loop shape of a straight-line run,
// the debugger only ever steps a machine someone else prepared).
func (m debugModel) Init() tea.Cmd {
	return nil
}

// Update is called when a message is received. Use it to inspect messages
// and, in response, update the model and/or send a command.
func (m debugModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q":
			return m, tea.Quit

		case " ", "j":
			if m.machine.Halted {
				return m, nil
			}
			m.prevPC = m.machine.Reg[7]
			res, err := m.machine.Step()
			if err != nil {
				m.error = err
				return m, tea.Quit
			}
			m.last = res
		}
	}
	return m, nil
}

// renderPage renders one 16-byte page as a line. The byte at PC is
// bracketed.
func (m debugModel) renderPage(start uint16) string {
	s := fmt.Sprintf("%06o | ", start)
	for i := uint16(0); i < 16; i++ {
		addr := start + i
		b := m.machine.Mem.ReadByte(addr)
		if addr == m.machine.Reg[7] {
			s += fmt.Sprintf("[%02x] ", b)
		} else {
			s += fmt.Sprintf(" %02x  ", b)
		}
	}
	return s
}

func (m debugModel) pageTable() string {
	header := "page   | "
	for b := 0; b < 16; b++ {
		header += fmt.Sprintf("  %01x  ", b)
	}

	pc := m.machine.Reg[7]
	base := pc - pc%16
	offsets := []uint16{0, base, base + 16, base + 32, base + 48}
	rows := []string{header}
	for _, o := range offsets {
		rows = append(rows, m.renderPage(o))
	}
	return strings.Join(rows, "\n")
}

func (m debugModel) status() string {
	r := m.machine.Reg
	return fmt.Sprintf(`
PC: %06o (prev %06o)
R0: %06o  R1: %06o
R2: %06o  R3: %06o
R4: %06o  R5: %06o
SP: %06o
halted: %v
`,
		r[7], m.prevPC,
		r[0], r[1],
		r[2], r[3],
		r[4], r[5],
		r[6],
		m.machine.Halted,
	)
}

// View renders the program's UI, which is just a string. The view is
// rendered after every Update.
func (m debugModel) View() string {
	dump := "(no instruction stepped yet)"
	if m.last.Descriptor != nil {
		dump = spew.Sdump(m.last)
	}
	return lipgloss.JoinVertical(
		lipgloss.Left,
		lipgloss.JoinHorizontal(
			lipgloss.Top,
			m.pageTable(),
			m.status(),
		),
		"",
		dump,
	)
}

// Debug starts an interactive TUI over an already-loaded machine, one
// instruction per "space"/"j" keypress.
func Debug(m *Machine) error {
	finalModel, err := tea.NewProgram(debugModel{machine: m}).Run()
	if err != nil {
		return err
	}
	if dm, ok := finalModel.(debugModel); ok && dm.error != nil {
		return dm.error
	}
	return nil
}

package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func loadWords(m *Machine, addr uint16, words ...uint16) {
	for _, w := range words {
		m.Mem.WriteWord(addr, w) //nolint:errcheck
		addr += 2
	}
}

func TestResolveMode0DoesNotMutateRegisters(t *testing.T) {
	m := NewMachine()
	m.Reg[3] = 0o123
	before := m.Reg
	op, err := m.resolve(0o03) // mode 0, r 3
	assert.NoError(t, err)
	assert.Equal(t, LocRegister, op.Loc)
	assert.Equal(t, uint16(0o123), op.Value)
	assert.Equal(t, before, m.Reg)
}

func TestResolveMode2IncrementsRegisterByTwo(t *testing.T) {
	m := NewMachine()
	m.Reg[2] = 0o2000
	m.Mem.WriteWord(0o2000, 0o4242) //nolint:errcheck
	op, err := m.resolve(0o22) // mode 2, r 2
	assert.NoError(t, err)
	assert.Equal(t, uint16(0o4242), op.Value)
	assert.Equal(t, uint16(0o2002), m.Reg[2])
}

func TestResolveMode4DecrementsBeforeRead(t *testing.T) {
	m := NewMachine()
	m.Reg[1] = 0o2002
	m.Mem.WriteWord(0o2000, 0o1111) //nolint:errcheck
	op, err := m.resolve(0o41) // mode 4, r 1
	assert.NoError(t, err)
	assert.Equal(t, uint16(0o2000), m.Reg[1])
	assert.Equal(t, uint16(0o1111), op.Value)
}

func TestResolveMode6ConsumesOneExtensionWord(t *testing.T) {
	m := NewMachine()
	m.Reg[7] = 0o1000
	m.Reg[4] = 0o2000
	m.Mem.WriteWord(0o1000, 6)      //nolint:errcheck // the offset
	m.Mem.WriteWord(0o2006, 0o7777) //nolint:errcheck
	op, err := m.resolve(0o64) // mode 6, r 4
	assert.NoError(t, err)
	assert.Equal(t, uint16(0o1002), m.Reg[7])
	assert.Equal(t, uint16(0o7777), op.Value)
	assert.True(t, op.HasExt)
	assert.Equal(t, uint16(6), op.Ext)
}

func TestResolveImmediateIsMode2R7(t *testing.T) {
	m := NewMachine()
	m.Reg[7] = 0o1000
	m.Mem.WriteWord(0o1000, 0o777) //nolint:errcheck
	op, err := m.resolve(0o27) // mode 2, r 7
	assert.NoError(t, err)
	assert.True(t, op.Immediate())
	assert.Equal(t, uint16(0o777), op.Value)
	assert.Equal(t, uint16(0o1002), m.Reg[7])
}

func TestDecoderFirstMatch(t *testing.T) {
	assert.Equal(t, "HALT", lookup(0).Mnemonic)
	assert.Equal(t, "MOV", lookup(0o012701).Mnemonic)
	assert.Equal(t, "ADD", lookup(0o060201).Mnemonic)
	assert.Equal(t, "CLR", lookup(0o005003).Mnemonic)
	assert.Equal(t, "SOB", lookup(0o077002).Mnemonic)
	assert.Equal(t, "???", lookup(0o177776).Mnemonic)
}

// Immediate-to-register MOV: MOV #5, R1 then HALT.
func TestRunImmediateMOV(t *testing.T) {
	m := NewMachine()
	m.Reg[7] = 0o1000
	loadWords(m, 0o1000, 0o012701, 0o000005, 0o000000)

	err := m.Run(nil)
	assert.NoError(t, err)
	assert.Equal(t, uint16(5), m.Reg[1])
	assert.Equal(t, uint16(0o1006), m.Reg[7])
	assert.True(t, m.Halted)
}

// Register-to-register arithmetic: two immediate loads, then ADD R2, R1.
func TestRunMovAndAdd(t *testing.T) {
	m := NewMachine()
	m.Reg[7] = 0o1000
	loadWords(m, 0o1000,
		0o012702, 0o000003, // MOV #3, R2
		0o012701, 0o000004, // MOV #4, R1
		0o060201,           // ADD R2, R1
		0o000000,           // HALT
	)

	err := m.Run(nil)
	assert.NoError(t, err)
	assert.Equal(t, uint16(7), m.Reg[1])
	assert.Equal(t, uint16(3), m.Reg[2])
}

// CLR zeroes a register that starts at all ones.
func TestRunClr(t *testing.T) {
	m := NewMachine()
	m.Reg[7] = 0o1000
	m.Reg[3] = 0o177777
	loadWords(m, 0o1000, 0o005003, 0o000000)

	err := m.Run(nil)
	assert.NoError(t, err)
	assert.Equal(t, uint16(0), m.Reg[3])
}

// SOB loop. The body counts iterations into R1 via ADD so the test
// observes exactly 3 executions without depending on an INC instruction
// outside the implemented subset.
func TestRunSobLoop(t *testing.T) {
	m := NewMachine()
	m.Reg[7] = 0o1000
	loadWords(m, 0o1000,
		0o012700, 0o000003, // MOV #3, R0   (loop counter)
		0o012702, 0o000001, // MOV #1, R2   (increment constant)
		0o060201,           // 0o1010: ADD R2, R1  (loop body: R1 += 1)
		0o077002,           // 0o1012: SOB R0, 2  -> branches back to 0o1010 while R0 != 0
		0o000000,           // HALT
	)

	err := m.Run(nil)
	assert.NoError(t, err)
	assert.Equal(t, uint16(0), m.Reg[0])
	assert.Equal(t, uint16(3), m.Reg[1])
}

func TestUnknownInstructionContinuesExecution(t *testing.T) {
	m := NewMachine()
	m.Reg[7] = 0o1000
	loadWords(m, 0o1000, 0o177776, 0o000000) // unmapped word, then HALT

	err := m.Run(nil)
	assert.NoError(t, err)
	assert.True(t, m.Halted)
}

func TestRunStopsOnMemoryError(t *testing.T) {
	m := NewMachine()
	m.Reg[7] = 0o1001 // odd PC: the first fetch itself is unaligned
	err := m.Run(nil)
	assert.Error(t, err)
}

func TestRunInvokesOnStepPerInstruction(t *testing.T) {
	m := NewMachine()
	m.Reg[7] = 0o1000
	loadWords(m, 0o1000, 0o012701, 0o000005, 0o000000)

	var steps []string
	err := m.Run(func(r StepResult) {
		steps = append(steps, r.Descriptor.Mnemonic)
	})
	assert.NoError(t, err)
	assert.Equal(t, []string{"MOV", "HALT"}, steps)
}

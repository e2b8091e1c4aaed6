package isa

// Reg is a register selector as encoded in an operand byte.
type Reg uint8

//go:generate go tool stringer -linecomment -type=Reg,Opcode -output=isa_string.go
const (
	REG_IP    = Reg(0) // ip
	REG_SP    = Reg(1) // sp
	REG_BP    = Reg(2) // bp
	REG_AC    = Reg(3) // ac
	REG_GP1   = Reg(4) // gp1
	REG_GP2   = Reg(5) // gp2
	REG_GP3   = Reg(6) // gp3
	REG_GP4   = Reg(7) // gp4
	REG_FLAGS = Reg(8) // flags
)

// REG_COUNT is the number of registers in a register file.
const REG_COUNT = int(REG_FLAGS) + 1

// Valid returns true if the selector names a register.
func (r Reg) Valid() bool {
	return r <= REG_FLAGS
}

// Registers returns all register selectors in encoding order.
func Registers() []Reg {
	regs := make([]Reg, REG_COUNT)
	for n := range regs {
		regs[n] = Reg(n)
	}
	return regs
}

// Flags register bits.
const (
	FLAG_CARRY = Word(0b0_0001) // Arithmetic result did not fit a word.
	FLAG_EQUAL = Word(0b0_0010) // Last CMP found its operands equal.
	FLAG_ZERO  = Word(0b0_0100) // Last arithmetic result was zero.
	FLAG_HALT  = Word(0b0_1000) // Processing unit has halted.
	FLAG_SIGN  = Word(0b1_0000) // Reserved.
)

var flagNames = []struct {
	Flag Word
	Name string
}{
	{FLAG_SIGN, "S"},
	{FLAG_HALT, "H"},
	{FLAG_ZERO, "Z"},
	{FLAG_EQUAL, "E"},
	{FLAG_CARRY, "C"},
}

// FlagString returns the set flags as letters, most significant first.
// Clear flags are shown as '-'.
func FlagString(flags Word) (out string) {
	for _, fn := range flagNames {
		if flags&fn.Flag != 0 {
			out += fn.Name
		} else {
			out += "-"
		}
	}
	return
}

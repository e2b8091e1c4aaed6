package cpu

import (
	"fmt"

	"github.com/ezrec/vcpu/isa"
)

// Registers is a processing unit's register file, indexed by isa.Reg.
type Registers [isa.REG_COUNT]isa.Word

// Get returns the value of a register. Invalid selectors read as zero.
func (regs *Registers) Get(reg isa.Reg) isa.Word {
	if !reg.Valid() {
		return 0
	}
	return regs[reg]
}

// Set stores a value in a register. Invalid selectors are ignored.
func (regs *Registers) Set(reg isa.Reg, value isa.Word) {
	if !reg.Valid() {
		return
	}
	regs[reg] = value
}

func (regs *Registers) IP() isa.Word    { return regs[isa.REG_IP] }
func (regs *Registers) Flags() isa.Word { return regs[isa.REG_FLAGS] }

// Test returns true if all of the given flag bits are set.
func (regs *Registers) Test(flag isa.Word) bool {
	return regs[isa.REG_FLAGS]&flag == flag
}

// setFlag sets or clears flag bits.
func (regs *Registers) setFlag(flag isa.Word, on bool) {
	if on {
		regs[isa.REG_FLAGS] |= flag
	} else {
		regs[isa.REG_FLAGS] &^= flag
	}
}

// String returns the register file in name=value form.
func (regs Registers) String() (text string) {
	for n, reg := range isa.Registers() {
		if n > 0 {
			text += " "
		}
		text += fmt.Sprintf("%v=%04x", reg, regs[reg])
	}
	return
}

// Snapshot is an immutable copy of a processing unit's state.
type Snapshot struct {
	Id        int       // Processing unit id.
	Ticks     int       // Retired instruction count.
	Registers Registers // Register file.
}

// Halted returns true if the snapshot has the HALT flag set.
func (snap Snapshot) Halted() bool {
	return snap.Registers.Test(isa.FLAG_HALT)
}

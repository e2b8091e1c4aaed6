// Package dump formats machine state for humans.
package dump

import (
	"bufio"
	"fmt"
	"io"

	"github.com/ezrec/vcpu/cpu"
	"github.com/ezrec/vcpu/isa"
	"github.com/ezrec/vcpu/machine"
)

const (
	LINE_BYTES  = 64 // Bytes per memory dump line.
	GROUP_BYTES = 8  // Bytes per group within a line.
)

// Registers writes the register file of one processing unit.
func Registers(w io.Writer, snap cpu.Snapshot) (err error) {
	bw := bufio.NewWriter(w)
	writeRegisters(bw, snap)
	return bw.Flush()
}

func writeRegisters(bw *bufio.Writer, snap cpu.Snapshot) {
	regs := &snap.Registers
	fmt.Fprintf(bw, "CPU %d\n", snap.Id)
	fmt.Fprintf(bw, "CPU Registers:\n")
	fmt.Fprintf(bw, "IP: %d\tSP: %d\tBP: %d\tAC: %d\n",
		regs.Get(isa.REG_IP), regs.Get(isa.REG_SP), regs.Get(isa.REG_BP), regs.Get(isa.REG_AC))
	fmt.Fprintf(bw, "GP1: %d\tGP2: %d\tGP3: %d\tGP4: %d\n",
		regs.Get(isa.REG_GP1), regs.Get(isa.REG_GP2), regs.Get(isa.REG_GP3), regs.Get(isa.REG_GP4))
	fmt.Fprintf(bw, "Flags: %b (%s)\n", regs.Flags(), isa.FlagString(regs.Flags()))
	fmt.Fprintf(bw, "Ticks: %d\n", snap.Ticks)
}

// Memory writes memory statistics and a hex dump, 64 bytes per line in
// groups of 8. Runs of all-zero lines after the first are shown as a
// single '*'.
func Memory(w io.Writer, data []byte) (err error) {
	bw := bufio.NewWriter(w)
	writeMemory(bw, data)
	return bw.Flush()
}

func isZero(line []byte) bool {
	for _, b := range line {
		if b != 0 {
			return false
		}
	}
	return true
}

func writeMemory(bw *bufio.Writer, data []byte) {
	used := 0
	for n := len(data); n > 0; n-- {
		if data[n-1] != 0 {
			used = n
			break
		}
	}

	fmt.Fprintf(bw, "Memory Statistics\n")
	fmt.Fprintf(bw, "size: %d\n", len(data))
	fmt.Fprintf(bw, "used: %d\n", used)
	fmt.Fprintf(bw, "Memory Dump\n")

	prev_zero := false
	starred := false
	for off := 0; off < len(data); off += LINE_BYTES {
		line := data[off:min(off+LINE_BYTES, len(data))]

		zero := isZero(line)
		if zero && prev_zero {
			if !starred {
				fmt.Fprintf(bw, "*\n")
				starred = true
			}
			continue
		}
		prev_zero = zero
		starred = false

		fmt.Fprintf(bw, "%04X:", off)
		for g := 0; g < len(line); g += GROUP_BYTES {
			fmt.Fprintf(bw, " %X", line[g:min(g+GROUP_BYTES, len(line))])
		}
		fmt.Fprintf(bw, "\n")
	}
}

// Machine writes every processing unit followed by memory.
func Machine(w io.Writer, snap machine.Snapshot) (err error) {
	bw := bufio.NewWriter(w)
	for _, cs := range snap.Cpus {
		writeRegisters(bw, cs)
	}
	writeMemory(bw, snap.Memory)
	return bw.Flush()
}

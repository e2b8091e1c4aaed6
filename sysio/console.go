// Package sysio provides SYS instruction handlers for the vcpu machine.
package sysio

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"maps"
	"sync"

	"github.com/ezrec/vcpu/cpu"
	"github.com/ezrec/vcpu/isa"
	"github.com/ezrec/vcpu/translate"
)

var f = translate.From

var (
	ErrSyscallUnknown = errors.New(f("unknown system call"))
	ErrNoOutput       = errors.New(f("console has no output"))
)

// Console call numbers, passed in ac.
const (
	SYS_NOP  = isa.Word(0) // Do nothing.
	SYS_PUTC = isa.Word(1) // Write the low byte of gp1.
	SYS_GETC = isa.Word(2) // Read a byte into gp1, 0xffff at end of input.
	SYS_PUTW = isa.Word(3) // Write gp1 as a decimal line.
)

// EOF is the value GETC leaves in gp1 when the input is exhausted.
const EOF = isa.WordMax

var _sysio_defines = map[string]string{
	"SYS_NOP":  fmt.Sprintf("%v", SYS_NOP),
	"SYS_PUTC": fmt.Sprintf("%v", SYS_PUTC),
	"SYS_GETC": fmt.Sprintf("%v", SYS_GETC),
	"SYS_PUTW": fmt.Sprintf("%v", SYS_PUTW),
	"SYS_EOF":  fmt.Sprintf("%#x", EOF),
}

// Defines returns the console call numbers.
func Defines() iter.Seq2[string, string] {
	return maps.All(_sysio_defines)
}

// Console provides byte-oriented I/O to programs through SYS. It wraps an
// io.Reader for input and an io.Writer for output. Calls from concurrent
// processing units are serialized.
type Console struct {
	Input  io.Reader
	Output io.Writer

	mutex sync.Mutex
}

var _ cpu.Syscaller = (*Console)(nil)

// Syscall services a single SYS instruction.
func (con *Console) Syscall(cp *cpu.Cpu, call isa.Word) (err error) {
	con.mutex.Lock()
	defer con.mutex.Unlock()

	switch call {
	case SYS_NOP:
	case SYS_PUTC:
		if con.Output == nil {
			return ErrNoOutput
		}
		_, err = con.Output.Write([]byte{byte(cp.Get(isa.REG_GP1))})
	case SYS_GETC:
		var value isa.Word
		value, err = con.getc()
		if err != nil {
			return
		}
		cp.Set(isa.REG_GP1, value)
	case SYS_PUTW:
		if con.Output == nil {
			return ErrNoOutput
		}
		_, err = fmt.Fprintf(con.Output, "%d\n", cp.Get(isa.REG_GP1))
	default:
		err = ErrSyscallUnknown
	}

	return
}

// getc reads one byte of input.
func (con *Console) getc() (value isa.Word, err error) {
	if con.Input == nil {
		value = EOF
		return
	}

	var one [1]byte
	_, err = io.ReadFull(con.Input, one[:])
	if errors.Is(err, io.EOF) {
		value = EOF
		err = nil
		return
	}
	if err != nil {
		return
	}

	value = isa.Word(one[0])
	return
}

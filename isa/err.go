package isa

import (
	"errors"

	"github.com/ezrec/vcpu/translate"
)

var f = translate.From

var (
	ErrNoSyscall = errors.New(f("no system call handler"))
)

// ErrUnknownOpcode is raised when a fetched opcode byte names no instruction.
type ErrUnknownOpcode struct {
	Opcode byte // Offending opcode byte.
	Addr   Word // Address of the instruction.
}

func (err ErrUnknownOpcode) Error() string {
	return f("unknown opcode 0x%02x at 0x%04x", err.Opcode, err.Addr)
}

func (err ErrUnknownOpcode) Is(target error) (ok bool) {
	_, ok = target.(ErrUnknownOpcode)
	return
}

// ErrOutOfBounds is raised when an address resolves outside of memory.
type ErrOutOfBounds struct {
	Addr Word // Offending address.
}

func (err ErrOutOfBounds) Error() string {
	return f("address 0x%04x out of bounds", err.Addr)
}

func (err ErrOutOfBounds) Is(target error) (ok bool) {
	_, ok = target.(ErrOutOfBounds)
	return
}

// ErrDivisionByZero is raised by a DIV instruction with a zero divisor.
type ErrDivisionByZero struct {
	Addr Word // Address of the DIV instruction.
}

func (err ErrDivisionByZero) Error() string {
	return f("division by zero at 0x%04x", err.Addr)
}

func (err ErrDivisionByZero) Is(target error) (ok bool) {
	_, ok = target.(ErrDivisionByZero)
	return
}

// ErrProgramTooLarge is raised when a program image exceeds memory capacity.
type ErrProgramTooLarge struct {
	Size     int // Requested bytes.
	Capacity int // Available bytes.
}

func (err ErrProgramTooLarge) Error() string {
	return f("program of %d bytes exceeds capacity of %d bytes", err.Size, err.Capacity)
}

func (err ErrProgramTooLarge) Is(target error) (ok bool) {
	_, ok = target.(ErrProgramTooLarge)
	return
}

// ErrIllegalOperand is raised when a known opcode carries an operand byte
// its shape does not allow.
type ErrIllegalOperand struct {
	Addr    Word // Address of the instruction.
	Operand byte // Offending operand byte.
}

func (err ErrIllegalOperand) Error() string {
	return f("illegal operand 0x%02x at 0x%04x", err.Operand, err.Addr)
}

func (err ErrIllegalOperand) Is(target error) (ok bool) {
	_, ok = target.(ErrIllegalOperand)
	return
}

// ErrSyscall wraps a failure reported by the system call hook.
type ErrSyscall struct {
	Addr Word  // Address of the SYS instruction.
	Call Word  // Call number.
	Err  error // Hook error.
}

func (err ErrSyscall) Error() string {
	return f("sys %d at 0x%04x: %v", err.Call, err.Addr, err.Err)
}

func (err ErrSyscall) Is(target error) (ok bool) {
	_, ok = target.(ErrSyscall)
	return
}

func (err ErrSyscall) Unwrap() error {
	return err.Err
}

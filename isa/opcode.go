package isa

import (
	"iter"
)

// Opcode is the one-byte operation selector of an instruction.
type Opcode uint8

const (
	OP_LRM = Opcode(0x01) // lrm
	OP_LRA = Opcode(0x02) // lra
	OP_SRM = Opcode(0x03) // srm
	OP_MVR = Opcode(0x04) // mvr
	OP_ADD = Opcode(0x05) // add
	OP_SUB = Opcode(0x06) // sub
	OP_MUL = Opcode(0x07) // mul
	OP_DIV = Opcode(0x08) // div
	OP_CMP = Opcode(0x09) // cmp
	OP_JMP = Opcode(0x0a) // jmp
	OP_JE  = Opcode(0x0b) // je
	OP_JNE = Opcode(0x0c) // jne
	OP_SYS = Opcode(0x0d) // sys
	OP_HLT = Opcode(0x0e) // hlt
)

// Shape is the operand layout of an opcode.
type Shape int

const (
	SHAPE_NONE     = Shape(iota) // No operands; operand byte must be zero.
	SHAPE_REG_ADDR               // Register in operand byte, address word.
	SHAPE_REG_IMM                // Register in operand byte, immediate word.
	SHAPE_REG_REG                // Register pair in operand byte.
	SHAPE_ADDR                   // Address word; operand byte must be zero.
)

// Width returns the number of words occupied by an instruction of this shape.
func (s Shape) Width() Word {
	switch s {
	case SHAPE_REG_ADDR, SHAPE_REG_IMM, SHAPE_ADDR:
		return 2
	default:
		return 1
	}
}

// Info is the immutable descriptor of an opcode.
type Info struct {
	Name  string // Mnemonic.
	Desc  string // Short human readable description.
	Code  Opcode // Byte code.
	Shape Shape  // Operand layout.
}

var infoTable = [...]Info{
	{"lrm", "load a register from a memory location", OP_LRM, SHAPE_REG_ADDR},
	{"lra", "load a register with an absolute value", OP_LRA, SHAPE_REG_IMM},
	{"srm", "store a register value to a memory location", OP_SRM, SHAPE_REG_ADDR},
	{"mvr", "move a value from one register to another", OP_MVR, SHAPE_REG_REG},
	{"add", "add two registers", OP_ADD, SHAPE_REG_REG},
	{"sub", "subtract two registers", OP_SUB, SHAPE_REG_REG},
	{"mul", "multiply two registers", OP_MUL, SHAPE_REG_REG},
	{"div", "divide two registers", OP_DIV, SHAPE_REG_REG},
	{"cmp", "compare two registers, setting E in flags if equal", OP_CMP, SHAPE_REG_REG},
	{"jmp", "unconditional jump to memory address", OP_JMP, SHAPE_ADDR},
	{"je", "jump to memory address if E in flags is set", OP_JE, SHAPE_ADDR},
	{"jne", "jump to memory address if E in flags is clear", OP_JNE, SHAPE_ADDR},
	{"sys", "make system call, call number in ac", OP_SYS, SHAPE_NONE},
	{"hlt", "halt execution", OP_HLT, SHAPE_NONE},
}

// Lookup returns the descriptor for an opcode byte.
func Lookup(op Opcode) (info Info, ok bool) {
	if op < OP_LRM || op > OP_HLT {
		return
	}

	return infoTable[op-OP_LRM], true
}

// LookupName returns the descriptor for a mnemonic.
func LookupName(name string) (info Info, ok bool) {
	for _, info = range infoTable {
		if info.Name == name {
			return info, true
		}
	}

	return Info{}, false
}

// Opcodes iterates over all defined opcode descriptors in opcode order.
func Opcodes() iter.Seq[Info] {
	return func(yield func(Info) bool) {
		for _, info := range infoTable {
			if !yield(info) {
				return
			}
		}
	}
}

// Info returns the descriptor of a defined opcode, or a zero Info.
func (op Opcode) Info() (info Info) {
	info, _ = Lookup(op)
	return
}

package isa

import (
	"fmt"
)

// Instruction is a decoded instruction: one of Lrm, Lra, Srm, Mvr, Add,
// Sub, Mul, Div, Cmp, Jmp, Je, Jne, Sys or Hlt. The set is closed.
type Instruction interface {
	// Opcode returns the instruction's opcode.
	Opcode() Opcode
	// Words returns the binary encoding of the instruction.
	Words() []Word
	// String returns the assembly language form of the instruction.
	String() string

	instruction()
}

// Load register from memory.
type Lrm struct {
	Dst  Reg
	Addr Word
}

// Load register with an absolute value.
type Lra struct {
	Dst Reg
	Imm Word
}

// Store register to memory.
type Srm struct {
	Src  Reg
	Addr Word
}

// Move register to register.
type Mvr struct {
	Src, Dst Reg
}

// A = A + B
type Add struct {
	A, B Reg
}

// A = A - B
type Sub struct {
	A, B Reg
}

// A = A * B
type Mul struct {
	A, B Reg
}

// A = A / B
type Div struct {
	A, B Reg
}

// Compare A and B into the EQUAL flag.
type Cmp struct {
	A, B Reg
}

// Unconditional jump.
type Jmp struct {
	Addr Word
}

// Jump if equal.
type Je struct {
	Addr Word
}

// Jump if not equal.
type Jne struct {
	Addr Word
}

// System call; the call number is taken from ac.
type Sys struct{}

// Halt.
type Hlt struct{}

func (Lrm) Opcode() Opcode { return OP_LRM }
func (Lra) Opcode() Opcode { return OP_LRA }
func (Srm) Opcode() Opcode { return OP_SRM }
func (Mvr) Opcode() Opcode { return OP_MVR }
func (Add) Opcode() Opcode { return OP_ADD }
func (Sub) Opcode() Opcode { return OP_SUB }
func (Mul) Opcode() Opcode { return OP_MUL }
func (Div) Opcode() Opcode { return OP_DIV }
func (Cmp) Opcode() Opcode { return OP_CMP }
func (Jmp) Opcode() Opcode { return OP_JMP }
func (Je) Opcode() Opcode  { return OP_JE }
func (Jne) Opcode() Opcode { return OP_JNE }
func (Sys) Opcode() Opcode { return OP_SYS }
func (Hlt) Opcode() Opcode { return OP_HLT }

func (Lrm) instruction() {}
func (Lra) instruction() {}
func (Srm) instruction() {}
func (Mvr) instruction() {}
func (Add) instruction() {}
func (Sub) instruction() {}
func (Mul) instruction() {}
func (Div) instruction() {}
func (Cmp) instruction() {}
func (Jmp) instruction() {}
func (Je) instruction()  {}
func (Jne) instruction() {}
func (Sys) instruction() {}
func (Hlt) instruction() {}

// makeWord builds the first word of an instruction.
func makeWord(op Opcode, operand byte) Word {
	return Join(operand, byte(op))
}

// pair packs two register selectors into an operand byte.
func pair(a, b Reg) byte {
	return (byte(a&0xf) << 4) | byte(b&0xf)
}

func (in Lrm) Words() []Word { return []Word{makeWord(OP_LRM, byte(in.Dst)), in.Addr} }
func (in Lra) Words() []Word { return []Word{makeWord(OP_LRA, byte(in.Dst)), in.Imm} }
func (in Srm) Words() []Word { return []Word{makeWord(OP_SRM, byte(in.Src)), in.Addr} }
func (in Mvr) Words() []Word { return []Word{makeWord(OP_MVR, pair(in.Src, in.Dst))} }
func (in Add) Words() []Word { return []Word{makeWord(OP_ADD, pair(in.A, in.B))} }
func (in Sub) Words() []Word { return []Word{makeWord(OP_SUB, pair(in.A, in.B))} }
func (in Mul) Words() []Word { return []Word{makeWord(OP_MUL, pair(in.A, in.B))} }
func (in Div) Words() []Word { return []Word{makeWord(OP_DIV, pair(in.A, in.B))} }
func (in Cmp) Words() []Word { return []Word{makeWord(OP_CMP, pair(in.A, in.B))} }
func (in Jmp) Words() []Word { return []Word{makeWord(OP_JMP, 0), in.Addr} }
func (in Je) Words() []Word  { return []Word{makeWord(OP_JE, 0), in.Addr} }
func (in Jne) Words() []Word { return []Word{makeWord(OP_JNE, 0), in.Addr} }
func (in Sys) Words() []Word { return []Word{makeWord(OP_SYS, 0)} }
func (in Hlt) Words() []Word { return []Word{makeWord(OP_HLT, 0)} }

func (in Lrm) String() string { return fmt.Sprintf("lrm %v 0x%04x", in.Dst, in.Addr) }
func (in Lra) String() string { return fmt.Sprintf("lra %v 0x%04x", in.Dst, in.Imm) }
func (in Srm) String() string { return fmt.Sprintf("srm %v 0x%04x", in.Src, in.Addr) }
func (in Mvr) String() string { return fmt.Sprintf("mvr %v %v", in.Src, in.Dst) }
func (in Add) String() string { return fmt.Sprintf("add %v %v", in.A, in.B) }
func (in Sub) String() string { return fmt.Sprintf("sub %v %v", in.A, in.B) }
func (in Mul) String() string { return fmt.Sprintf("mul %v %v", in.A, in.B) }
func (in Div) String() string { return fmt.Sprintf("div %v %v", in.A, in.B) }
func (in Cmp) String() string { return fmt.Sprintf("cmp %v %v", in.A, in.B) }
func (in Jmp) String() string { return fmt.Sprintf("jmp 0x%04x", in.Addr) }
func (in Je) String() string  { return fmt.Sprintf("je 0x%04x", in.Addr) }
func (in Jne) String() string { return fmt.Sprintf("jne 0x%04x", in.Addr) }
func (in Sys) String() string { return "sys" }
func (in Hlt) String() string { return "hlt" }

// Width returns the number of words the instruction occupies.
func Width(in Instruction) Word {
	return in.Opcode().Info().Shape.Width()
}

// Encode returns the big-endian byte image of a sequence of instructions.
func Encode(ins ...Instruction) (image []byte) {
	for _, in := range ins {
		for _, w := range in.Words() {
			hi, lo := Split(w)
			image = append(image, hi, lo)
		}
	}
	return
}

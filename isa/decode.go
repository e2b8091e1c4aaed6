package isa

// regOf decodes a single register selector from an operand byte.
// The high nibble is reserved and must be zero.
func regOf(operand byte) (r Reg, ok bool) {
	if operand>>4 != 0 {
		return
	}
	r = Reg(operand)
	ok = r.Valid()
	return
}

// regPair decodes a register pair from an operand byte.
func regPair(operand byte) (a, b Reg, ok bool) {
	a = Reg(operand >> 4)
	b = Reg(operand & 0xf)
	ok = a.Valid() && b.Valid()
	return
}

// Decode fetches and decodes the instruction at addr.
//
// The opcode alone determines how many words are consumed. Any failure to
// read a word is returned unchanged, so an address outside of memory
// surfaces as the fetcher's error.
func Decode(mem Fetcher, addr Word) (in Instruction, err error) {
	word, err := mem.Read(addr)
	if err != nil {
		return
	}

	operand, code := Split(word)
	op := Opcode(code)

	info, ok := Lookup(op)
	if !ok {
		err = ErrUnknownOpcode{Opcode: code, Addr: addr}
		return
	}

	var ext Word
	if info.Shape.Width() > 1 {
		ext, err = mem.Read(addr + 1)
		if err != nil {
			return
		}
	}

	illegal := ErrIllegalOperand{Addr: addr, Operand: operand}

	switch info.Shape {
	case SHAPE_NONE, SHAPE_ADDR:
		if operand != 0 {
			err = illegal
			return
		}
	case SHAPE_REG_ADDR, SHAPE_REG_IMM:
		if _, ok = regOf(operand); !ok {
			err = illegal
			return
		}
	case SHAPE_REG_REG:
		if _, _, ok = regPair(operand); !ok {
			err = illegal
			return
		}
	}

	r, _ := regOf(operand)
	a, b, _ := regPair(operand)

	switch op {
	case OP_LRM:
		in = Lrm{Dst: r, Addr: ext}
	case OP_LRA:
		in = Lra{Dst: r, Imm: ext}
	case OP_SRM:
		in = Srm{Src: r, Addr: ext}
	case OP_MVR:
		in = Mvr{Src: a, Dst: b}
	case OP_ADD:
		in = Add{A: a, B: b}
	case OP_SUB:
		in = Sub{A: a, B: b}
	case OP_MUL:
		in = Mul{A: a, B: b}
	case OP_DIV:
		in = Div{A: a, B: b}
	case OP_CMP:
		in = Cmp{A: a, B: b}
	case OP_JMP:
		in = Jmp{Addr: ext}
	case OP_JE:
		in = Je{Addr: ext}
	case OP_JNE:
		in = Jne{Addr: ext}
	case OP_SYS:
		in = Sys{}
	case OP_HLT:
		in = Hlt{}
	default:
		err = ErrUnknownOpcode{Opcode: code, Addr: addr}
	}

	return
}

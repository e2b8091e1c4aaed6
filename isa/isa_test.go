package isa

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// words is a Fetcher over a slice of words.
type words []Word

func (w words) Read(addr Word) (value Word, err error) {
	if int(addr) >= len(w) {
		err = ErrOutOfBounds{Addr: addr}
		return
	}
	return w[addr], nil
}

func TestDecodeKnown(t *testing.T) {
	assert := assert.New(t)

	table := []struct {
		in    Instruction
		name  string
		width Word
	}{
		{Lrm{Dst: REG_GP1, Addr: 0x0123}, "lrm", 2},
		{Lra{Dst: REG_AC, Imm: 0xffff}, "lra", 2},
		{Srm{Src: REG_FLAGS, Addr: 0x0fff}, "srm", 2},
		{Mvr{Src: REG_GP2, Dst: REG_SP}, "mvr", 1},
		{Add{A: REG_GP1, B: REG_GP2}, "add", 1},
		{Sub{A: REG_GP3, B: REG_GP4}, "sub", 1},
		{Mul{A: REG_BP, B: REG_IP}, "mul", 1},
		{Div{A: REG_GP4, B: REG_GP1}, "div", 1},
		{Cmp{A: REG_GP1, B: REG_GP1}, "cmp", 1},
		{Jmp{Addr: 0x0010}, "jmp", 2},
		{Je{Addr: 0x0020}, "je", 2},
		{Jne{Addr: 0x0030}, "jne", 2},
		{Sys{}, "sys", 1},
		{Hlt{}, "hlt", 1},
	}

	assert.Equal(14, len(table))

	for _, entry := range table {
		encoded := words(entry.in.Words())
		assert.Equal(int(entry.width), len(encoded), entry.name)
		assert.Equal(entry.width, Width(entry.in), entry.name)

		decoded, err := Decode(encoded, 0)
		assert.NoError(err, entry.name)
		assert.Equal(entry.in, decoded, entry.name)
		assert.Equal(entry.name, decoded.Opcode().String(), entry.name)
		assert.Equal(entry.name, decoded.Opcode().Info().Name, entry.name)
	}
}

func TestDecodeTotal(t *testing.T) {
	assert := assert.New(t)

	for code := range 0x100 {
		mem := words{Word(code), 0}
		in, err := Decode(mem, 0)
		_, known := Lookup(Opcode(code))
		if known {
			assert.NoError(err, "0x%02x", code)
			assert.Equal(Opcode(code), in.Opcode())
		} else {
			assert.Nil(in, "0x%02x", code)
			assert.ErrorIs(err, ErrUnknownOpcode{})
			var eu ErrUnknownOpcode
			require.True(t, errors.As(err, &eu))
			assert.Equal(byte(code), eu.Opcode)
			assert.Equal(Word(0), eu.Addr)
		}
	}
}

func TestDecodeIllegalOperand(t *testing.T) {
	assert := assert.New(t)

	table := []struct {
		name string
		mem  words
	}{
		{"hlt operand", words{0x010e}},
		{"jmp operand", words{0x020a, 0}},
		{"lra register", words{0x0902, 0}},
		{"lrm reserved nibble", words{0x1101, 0}},
		{"add register", words{0x4905}},
		{"cmp register", words{0xf009}},
	}

	for _, entry := range table {
		_, err := Decode(entry.mem, 0)
		assert.ErrorIs(err, ErrIllegalOperand{}, entry.name)
	}
}

func TestDecodeTruncated(t *testing.T) {
	assert := assert.New(t)

	// A two word instruction whose operand word lies outside memory.
	_, err := Decode(words{0x0402}, 0)
	assert.ErrorIs(err, ErrOutOfBounds{})
	assert.Equal(ErrOutOfBounds{Addr: 1}, err)
}

func TestEncode(t *testing.T) {
	assert := assert.New(t)

	image := Encode(Lra{Dst: REG_GP1, Imm: 5}, Add{A: REG_GP1, B: REG_GP2}, Hlt{})
	assert.Equal([]byte{0x04, 0x02, 0x00, 0x05, 0x45, 0x05, 0x00, 0x0e}, image)
}

func TestStrings(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("lra gp1 0x0005", Lra{Dst: REG_GP1, Imm: 5}.String())
	assert.Equal("mvr ac flags", Mvr{Src: REG_AC, Dst: REG_FLAGS}.String())
	assert.Equal("Reg(12)", Reg(12).String())
	assert.Equal("Opcode(0)", Opcode(0).String())
	assert.Equal("Opcode(255)", Opcode(255).String())
	assert.Equal("-H-EC", FlagString(FLAG_HALT|FLAG_EQUAL|FLAG_CARRY))
}

func TestLookupName(t *testing.T) {
	assert := assert.New(t)

	count := 0
	for info := range Opcodes() {
		count++
		found, ok := LookupName(info.Name)
		assert.True(ok)
		assert.Equal(info, found)
	}
	assert.Equal(14, count)

	_, ok := LookupName("nop")
	assert.False(ok)
}

func FuzzDecode(f *testing.F) {
	f.Add(uint16(0x000e), uint16(0))
	f.Add(uint16(0xffff), uint16(0xffff))
	f.Add(uint16(0x4502), uint16(0x1234))

	f.Fuzz(func(t *testing.T, first uint16, second uint16) {
		in, err := Decode(words{first, second}, 0)
		if err != nil {
			assert.Nil(t, in)
			return
		}
		// Any decoded instruction must re-encode to the same words.
		encoded := in.Words()
		assert.Equal(t, first, encoded[0])
		if len(encoded) > 1 {
			assert.Equal(t, second, encoded[1])
		}
	})
}

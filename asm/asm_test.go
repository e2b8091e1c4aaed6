package asm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ezrec/vcpu/isa"
	"github.com/ezrec/vcpu/machine"
	"github.com/ezrec/vcpu/memory"
)

func parse(t *testing.T, asm *Assembler, program ...string) *Program {
	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	require.NoError(t, err)
	return prog
}

func codesOf(prog *Program) (codes [][]isa.Word) {
	for _, st := range prog.Statements {
		codes = append(codes, st.Codes)
	}
	return
}

func TestAssembler(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	prog, err := asm.Parse(strings.NewReader(""))
	assert.NoError(err)
	assert.Equal(0, len(prog.Statements))
	assert.Equal(0, len(prog.Image()))
	assert.Equal("0", asm.Equate["LINENO"])
}

func TestAssemblerInstructions(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	prog := parse(t, asm,
		"lrm gp1 0x10",
		"lra gp2, 5",
		"srm ac, 0xfff",
		"mvr gp1, gp3",
		"add gp1 gp2",
		"sub gp3 gp4",
		"mul sp bp",
		"div ac ip",
		"cmp gp1 flags",
		"jmp 0x20",
		"je 0x22",
		"jne 0x24",
		"sys",
		"HLT",
	)

	expected := [][]isa.Word{
		{0x0401, 0x0010},
		{0x0502, 0x0005},
		{0x0303, 0x0fff},
		{0x4604},
		{0x4505},
		{0x6706},
		{0x1207},
		{0x3008},
		{0x4809},
		{0x000a, 0x0020},
		{0x000b, 0x0022},
		{0x000c, 0x0024},
		{0x000d},
		{0x000e},
	}
	assert.Equal(expected, codesOf(prog))

	addr := isa.Word(0)
	for n, st := range prog.Statements {
		assert.Equal(n+1, st.LineNo)
		assert.Equal(addr, st.Addr)
		addr += isa.Word(len(st.Codes))
	}
	assert.Equal([]string{"mvr", "gp1", "gp3"}, prog.Statements[3].Words)

	// Every assembled word decodes back to the same instruction text.
	mem := memory.New()
	_, err := mem.Load(prog.Image())
	require.NoError(t, err)
	for _, st := range prog.Statements {
		in, err := isa.Decode(mem, st.Addr)
		require.NoError(t, err)
		assert.Equal(st.Codes, in.Words())
	}
}

func TestAssemblerEqu(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	prog := parse(t, asm,
		".equ BASE 0x10",
		"lra gp1, $(BASE * 2 + 1)",
		".equ NEXT $(BASE + 1)",
		"lra gp2, NEXT",
		"lra gp3, $(LINENO * 8)",
		"lra gp4, $(0 - 1)",
		"lra ac, $(~BASE)",
		".equ COUNTER gp1",
		"mvr COUNTER gp2",
	)

	expected := [][]isa.Word{
		{0x0402, 0x0021},
		{0x0502, 0x0011},
		{0x0602, 0x0028},
		{0x0702, 0xffff},
		{0x0302, 0xffef},
		{0x4504},
	}
	assert.Equal(expected, codesOf(prog))
}

func TestAssemblerPredefine(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	asm.PredefineAll(memory.Defines())
	asm.Predefine("SCALE", "3")
	asm.Predefine("SCALE", "4")

	prog := parse(t, asm,
		"lra gp1, ADDR_MAX",
		"lra gp2, $(MEMORY_WORDS // SCALE)",
	)

	expected := [][]isa.Word{
		{0x0402, 0x0fff},
		{0x0502, 0x0400},
	}
	assert.Equal(expected, codesOf(prog))

	// Predefines survive a second parse.
	prog = parse(t, asm, "lra gp1, SCALE")
	assert.Equal([][]isa.Word{{0x0402, 0x0004}}, codesOf(prog))
}

func TestAssemblerLabel(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	prog := parse(t, asm,
		"        jmp start        ; forward reference",
		".org 0x10",
		"start:  lrm gp1, data",
		"back:   hlt",
		"        jmp back",
		"        lra gp2, $(back + 1)",
		".org 0x20",
		"data:   .word 'A', ~0, -1, '\\n', end",
		"end: also_end:",
	)

	assert.Equal(map[string]isa.Word{
		"start":    0x10,
		"back":     0x12,
		"data":     0x20,
		"end":      0x25,
		"also_end": 0x25,
	}, prog.Labels)

	expected := [][]isa.Word{
		{0x000a, 0x0010},
		{0x0401, 0x0020},
		{0x000e},
		{0x000a, 0x0012},
		{0x0502, 0x0013},
		{0x0041, 0xffff, 0xffff, 0x000a, 0x0025},
	}
	assert.Equal(expected, codesOf(prog))
	assert.Equal(map[int]string{1: "start"}, prog.Statements[0].Links)
	assert.Nil(prog.Statements[2].Links)
	assert.Equal(map[int]string{1: "data"}, prog.Statements[1].Links)
	assert.Equal(map[int]string{4: "end"}, prog.Statements[5].Links)

	image := prog.Image()
	require.Len(t, image, 0x25*2)
	assert.Equal([]byte{0x00, 0x0a, 0x00, 0x10}, image[0:4])
	assert.Equal(make([]byte, 0x20-4), image[4:0x20])
	assert.Equal([]byte{0x04, 0x01, 0x00, 0x20, 0x00, 0x0e}, image[0x20:0x26])
	assert.Equal([]byte{0x00, 0x41, 0xff, 0xff, 0xff, 0xff, 0x00, 0x0a, 0x00, 0x25}, image[0x40:])
}

func TestAssemblerDebug(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	prog := parse(t, asm,
		"lra gp1 1",
		".org 8",
		"; comment",
		"hlt",
	)

	st, ok := prog.Debug(1)
	assert.True(ok)
	assert.Equal(1, st.LineNo)

	st, ok = prog.Debug(8)
	assert.True(ok)
	assert.Equal(4, st.LineNo)

	_, ok = prog.Debug(4)
	assert.False(ok)
	_, ok = prog.Debug(9)
	assert.False(ok)
}

func TestAssemblerMacro(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	prog := parse(t, asm,
		".macro COUNTDOWN reg",
		"@top: sub reg, gp4",
		"      cmp reg, gp3",
		"      jne @top",
		".endm",
		"lra gp4, 1",
		"lra gp3, 0",
		"lra gp1, 3",
		"lra gp2, 2",
		"COUNTDOWN gp1",
		"COUNTDOWN gp2",
		"hlt",
	)

	assert.Equal(isa.Word(8), prog.Labels["COUNTDOWN_1_top"])
	assert.Equal(isa.Word(12), prog.Labels["COUNTDOWN_2_top"])
	assert.Equal([]isa.Word{0x000c, 0x0008}, prog.Statements[6].Codes)
	assert.Equal([]isa.Word{0x000c, 0x000c}, prog.Statements[9].Codes)

	// Macro arguments do not leak out of the expansion.
	_, ok := asm.Equate["reg"]
	assert.False(ok)

	m, err := machine.Start(1)
	require.NoError(t, err)
	defer m.Close()
	require.NoError(t, m.LoadProgram(prog.Image()))
	require.NoError(t, m.Run(context.Background()))

	cp := m.Cpus[0]
	assert.True(cp.IsHalted())
	assert.Equal(isa.Word(0), cp.Get(isa.REG_GP1))
	assert.Equal(isa.Word(0), cp.Get(isa.REG_GP2))
	assert.Equal(20, cp.Ticks)
}

func TestAssemblerRun(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	prog := parse(t, asm,
		".equ LIMIT 5",
		"        lra gp1, 0",
		"        lra gp2, 1",
		"        lra gp3, LIMIT",
		"loop:   add gp1, gp2",
		"        cmp gp1, gp3",
		"        jne loop",
		"        srm gp1, result",
		"        hlt",
		"result: .word 0",
	)

	m, err := machine.Start(1)
	require.NoError(t, err)
	defer m.Close()
	require.NoError(t, m.LoadProgram(prog.Image()))
	require.NoError(t, m.Run(context.Background()))

	value, err := m.Memory.Read(prog.Labels["result"])
	assert.NoError(err)
	assert.Equal(isa.Word(5), value)
}

func TestAssemblerLogger(t *testing.T) {
	assert := assert.New(t)

	core, logs := observer.New(zapcore.DebugLevel)
	asm := &Assembler{Logger: zap.New(core)}
	parse(t, asm, "lra gp1 1", "", "hlt")

	entries := logs.FilterMessage("asm").All()
	require.Len(t, entries, 3)
	assert.Equal(int64(3), entries[2].ContextMap()["line"])
	assert.Equal("hlt", entries[2].ContextMap()["text"])
}

func TestAssemblerErrSyntax(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	table := [](struct {
		prog string
		line int
		err  error
	}){
		{"DUP:\nDUP:\n", 2, ErrLabelDuplicate},
		{"ip: hlt", 1, ErrLabelInvalid},
		{"9lives: hlt", 1, ErrLabelInvalid},
		{"lra gp1 nowhere", 1, ErrLabelMissing("nowhere")},
		{"lra gp1 $(\"aaa\")", 1, ErrParseExpression("\"aaa\"")},
		{"lra gp1 $(more(\"aaa\"))", 1, ErrParseExpression("more(\"aaa\")")},
		{"lra gp1 $(0x10000)", 1, ErrParseExpression("0x10000")},
		{"lra gp1 0x10000", 1, ErrParseNumber("0x10000")},
		{"lra gp1 -0x8001", 1, ErrParseNumber("-0x8001")},
		{"hlt\nhlt\nlra gp1 'ab'", 3, ErrParseCharacter("'ab'")},
		{"lra", 1, ErrOpcodeValueMissing},
		{"lra gp1", 1, ErrOpcodeValueMissing},
		{"lra gp1 gp2", 1, ErrOpcodeValueMissing},
		{"lra gp1 1 2", 1, ErrOpcodeExtraArgs},
		{"lra gp9 1", 1, ErrRegisterInvalid},
		{"add gp1", 1, ErrOpcodeValueMissing},
		{"add gp1 7", 1, ErrRegisterInvalid},
		{"jmp", 1, ErrOpcodeValueMissing},
		{"jmp 1 2", 1, ErrOpcodeExtraArgs},
		{"hlt 1", 1, ErrOpcodeExtraArgs},
		{"bogus", 1, ErrInstructionInvalid},
		{".equ", 1, ErrEquateSyntax},
		{".equ A", 1, ErrEquateSyntax},
		{".equ A 1\n.equ A 2\n", 2, ErrEquateDuplicate},
		{".equ LINENO 2\n", 1, ErrEquateDuplicate},
		{".org", 1, ErrOrgSyntax},
		{".org here", 1, ErrOrgSyntax},
		{".org 0x10\n.org 0x8\n", 2, ErrOrgBackwards},
		{".org 0xffff\nlra gp1 0", 2, ErrAddressOverflow},
		{".word", 1, ErrOpcodeValueMissing},
		{".macro\n", 1, ErrMacroSyntax},
		{".macro A B C\n.endm\nA 1\n", 3, ErrMacroSyntax},
		{".macro A B\nlra B 1\n.endm\nA gp1\nA bogus\n", 5, ErrRegisterInvalid},
		{".macro A\n.macro C\n.endm\n.endm", 2, ErrMacroNesting},
		{".macro A\n.endm\n.macro A\n.endm\n", 3, ErrMacroDuplicate},
		{".endm\n", 1, ErrMacroLonelyEndm},
		{".macro loop\nloop\n.endm\nloop\n", 4, ErrMacroRecursion},
		{".macro A\nB\n.endm\n.macro B\nA\n.endm\nhlt\nA\n", 8, ErrMacroRecursion},
		{".macro A\nhlt\n", 2, ErrMacroLonely},
	}

	for _, entry := range table {
		_, err := asm.Parse(strings.NewReader(entry.prog))
		var se *ErrSyntax
		assert.Error(err, entry.prog)
		if err != nil {
			assert.True(errors.As(err, &se), entry.prog)
			assert.Equal(entry.line, se.LineNo, entry.prog)
			assert.ErrorIs(err, entry.err, entry.prog)
		}
	}
}

func TestAssemblerErrMacro(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	_, err := asm.Parse(strings.NewReader(".macro BAD\nhlt\nlra\n.endm\nBAD\n"))
	var em *ErrMacro
	require.True(t, errors.As(err, &em))
	assert.Equal("BAD", em.Macro)
	assert.Equal(3, em.Line)
	assert.ErrorIs(err, ErrOpcodeValueMissing)
}

func TestAssemblerMacroNested(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	prog := parse(t, asm,
		".macro ONE reg",
		"lra reg, 1",
		".endm",
		".macro TWO",
		"ONE gp1",
		"ONE gp2",
		".endm",
		"TWO",
		"TWO",
	)

	expected := [][]isa.Word{
		{0x0402, 0x0001},
		{0x0502, 0x0001},
		{0x0402, 0x0001},
		{0x0502, 0x0001},
	}
	assert.Equal(expected, codesOf(prog))
	assert.Empty(asm.expanding)
}

func TestAssemblerMacroRecursion(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	_, err := asm.Parse(strings.NewReader(".macro loop\nloop\n.endm\nloop\n"))
	assert.ErrorIs(err, ErrMacroRecursion)

	var em *ErrMacro
	require.True(t, errors.As(err, &em))
	assert.Equal("loop", em.Macro)

	// The assembler is usable again after a recursion error.
	prog := parse(t, asm, ".macro loop\nhlt\n.endm\nloop\n")
	assert.Equal([][]isa.Word{{0x000e}}, codesOf(prog))
}

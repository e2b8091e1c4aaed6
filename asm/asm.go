// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package asm implements a single pass macro assembler for the vcpu
// instruction set.
//
// Each line holds an optional list of labels, then a directive, a macro
// invocation or an instruction. Operands are separated by spaces or
// commas, and ';' starts a comment.
//
//	.equ COUNT 5
//	start:  lra gp1, COUNT
//	        lra gp2, $(COUNT * 2 + 1)
//	        add gp1, gp2
//	        jne start
//	        hlt
//	data:   .word 0x1234 'A' ~0
//
// Directives are .equ, .word, .org, .macro and .endm. Inside a macro body
// '@' expands to a prefix unique to each expansion, for local labels.
// $(...) is evaluated at assembly time as a Starlark expression over the
// equates and the labels defined so far.
package asm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"maps"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
	"go.uber.org/zap"

	"github.com/ezrec/vcpu/isa"
)

// Macro represents a macro definition in the assembly language.
type Macro struct {
	LineNo int      // Line number of the macro definition.
	Args   []string // Arguments for the macro.
	Lines  []string // Lines of macro text to expand.
}

// Predefined system equates
var sysEquate = map[string]string{
	"LINENO": "0",
}

// Assembler is a single pass macro assembler for the vcpu system.
type Assembler struct {
	Logger     *zap.Logger // If set, logs each source line at debug level.
	Statements []Statement // List of generated statements.

	predefine map[string]string   // Predefines
	Label     map[string]isa.Word // Map of labels to addresses.
	Equate    map[string]string   // Map of equates.
	Macro     map[string](*Macro) // Map of macros.

	here       int             // Address of the next generated word.
	expansions int             // Macro expansion counter, for '@' labels.
	expanding  map[string]bool // Macros currently being expanded.
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// PredefineAll predefines every equate in a sequence.
func (asm *Assembler) PredefineAll(defines iter.Seq2[string, string]) {
	for equ, value := range defines {
		asm.Predefine(equ, value)
	}
}

// regMap is a map of register names to selectors.
var regMap = func() map[string]isa.Reg {
	regs := map[string]isa.Reg{}
	for _, reg := range isa.Registers() {
		regs[reg.String()] = reg
	}
	return regs
}()

var (
	identRe   = regexp.MustCompile(`^[A-Za-z_.][A-Za-z0-9_.]*$`)
	charRe    = regexp.MustCompile(`'\\?[^']'`)
	parenRe   = regexp.MustCompile(`\$\([^\$]*\)`)
	valueLow  = int64(-0x8000)
	valueHigh = int64(0xffff)
)

// valueOf returns the value of a simple word.
func (asm *Assembler) valueOf(word string) (value isa.Word, err error) {
	invert := false
	if strings.HasPrefix(word, "~") {
		invert = true
		word = word[1:]
	}
	if strings.HasPrefix(word, "'") {
		// Character quotes should have been expanded into
		// values in parseLine()
		err = ErrParseCharacter(word)
		return
	}
	v64, err := strconv.ParseInt(word, 0, 32)
	if err != nil || v64 < valueLow || v64 > valueHigh {
		err = ErrParseNumber(word)
		return
	}

	value = isa.Word(v64)
	if invert {
		value = ^value
	}

	return
}

// operand returns the value of an address or immediate operand. An
// identifier that is not yet a label is returned for linking.
func (asm *Assembler) operand(word string) (value isa.Word, label string, err error) {
	addr, ok := asm.Label[word]
	if ok {
		value = addr
		return
	}

	if _, is_reg := regMap[word]; is_reg {
		err = ErrOpcodeValueMissing
		return
	}

	if identRe.MatchString(word) {
		label = word
		return
	}

	value, err = asm.valueOf(word)
	return
}

// register returns the selector of a register name.
func (asm *Assembler) register(word string) (reg isa.Reg, err error) {
	reg, ok := regMap[strings.ToLower(word)]
	if !ok {
		err = ErrRegisterInvalid
	}
	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value isa.Word, err error) {
	thread := starlark.Thread{Name: "asm"}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		value, err := asm.valueOf(str)
		if err != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			continue
		}
		pred[key] = starlark.MakeInt(int(value))
	}
	for key, addr := range asm.Label {
		pred[key] = starlark.MakeInt(int(addr))
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		err = errors.Join(ErrParseExpression(expr), err)
		return
	}
	st_int, ok := dict["rc"].(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int64, ok := st_int.Int64()
	if !ok || st_int64 < valueLow || st_int64 > valueHigh {
		err = ErrParseExpression(expr)
		return
	}
	value = isa.Word(st_int64)
	return
}

// expandChar replaces a 'x' character literal with its decimal value.
func expandChar(word string) string {
	str := word[1 : len(word)-1]
	if str[0] == '\\' {
		switch str[1:] {
		case "\\":
			str = "\\"
		case "n":
			str = "\n"
		case "r":
			str = "\r"
		case "t":
			str = "\t"
		case "0":
			str = "\x00"
		case "e":
			str = "\033"
		default:
			return word
		}
	} else if len(str) != 1 {
		return word
	}
	return fmt.Sprintf("%v", str[0])
}

// split breaks a line into words at spaces and commas.
func split(line string) []string {
	return strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
}

// parseLine parses a single line, expanding equates, expressions, labels
// and macros. The remaining words are returned for parseWords.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	// Set line number.
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

	// Do 'x' evaluations
	line = charRe.ReplaceAllStringFunc(line, expandChar)

	// Do $() evaluations
	line = parenRe.ReplaceAllStringFunc(line, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil {
			err = _err
		}
		return fmt.Sprintf("%#v", value)
	})
	if err != nil {
		return
	}

	words = split(line)
	if len(words) == 0 {
		return
	}

	// .equ CONST VALUE
	if words[0] == ".equ" {
		if len(words) != 3 {
			err = ErrEquateSyntax
			return
		}
		_, ok := asm.Equate[words[1]]
		if ok {
			err = ErrEquateDuplicate
			return
		}
		asm.Equate[words[1]] = words[2]
		words = nil
		return
	}

	for n, word := range words {
		// Check for equate next
		equate, ok := asm.Equate[word]
		if ok {
			words[n] = equate
		}
	}

	for strings.HasSuffix(words[0], ":") {
		label := words[0][:len(words[0])-1]
		if !identRe.MatchString(label) {
			err = ErrLabelInvalid
			return
		}
		if _, is_reg := regMap[label]; is_reg {
			err = ErrLabelInvalid
			return
		}
		_, ok := asm.Label[label]
		if ok {
			err = ErrLabelDuplicate
			return
		}
		asm.Label[label] = isa.Word(asm.here)
		words = words[1:]
		if len(words) == 0 {
			return
		}
	}

	// .macro processing
	macro, ok := asm.Macro[words[0]]
	if ok {
		name := words[0]

		if asm.expanding[name] {
			err = &ErrMacro{Macro: name, Line: lineno, Err: ErrMacroRecursion}
			return
		}

		args := words[1:]
		if len(args) != len(macro.Args) {
			err = ErrMacroSyntax
			return
		}
		// Turn args into equs
		old_equate := maps.Clone(asm.Equate)
		for n, arg := range macro.Args {
			asm.Equate[arg] = args[n]
		}
		asm.expanding[name] = true
		defer func() {
			asm.Equate = old_equate
			delete(asm.expanding, name)
		}()

		asm.expansions++
		local := fmt.Sprintf("%v_%v_", name, asm.expansions)

		for n, line := range macro.Lines {
			lineno := macro.LineNo + n

			line = strings.ReplaceAll(line, "@", local)
			var expanded []string
			expanded, err = asm.parseLine(line, lineno)
			if err == nil {
				err = asm.parseWords(expanded, lineno)
			}
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				return
			}
		}
		words = nil
		return
	}

	return
}

// Parse parses an input stream into a Program.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	scanner := bufio.NewScanner(input)

	var line string
	var lineno int
	var macro *Macro

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	asm.Label = make(map[string]isa.Word, 16)
	asm.Statements = asm.Statements[:0]
	asm.Macro = make(map[string](*Macro))
	asm.Equate = maps.Clone(sysEquate)
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}
	asm.here = 0
	asm.expansions = 0
	asm.expanding = map[string]bool{}

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.Logger != nil {
			asm.Logger.Debug("asm", zap.Int("line", lineno), zap.String("text", text))
		}

		text_comment := strings.Split(text, ";")
		line = strings.TrimSpace(text_comment[0])
		words := split(line)

		// .macro NAME arg...
		if len(words) > 0 && words[0] == ".macro" {
			if macro != nil {
				err = ErrMacroNesting
				return
			}
			if len(words) < 2 {
				err = ErrMacroSyntax
				return
			}
			_, ok := asm.Macro[words[1]]
			if ok {
				err = ErrMacroDuplicate
				return
			}
			macro = &Macro{
				LineNo: lineno + 1,
				Args:   words[2:],
			}
			asm.Macro[words[1]] = macro
			continue
		}

		if len(words) > 0 && words[0] == ".endm" {
			if macro == nil {
				err = ErrMacroLonelyEndm
				return
			}
			macro = nil
			continue
		}

		if macro != nil {
			macro.Lines = append(macro.Lines, line)
			continue
		}

		words, err = asm.parseLine(line, lineno)
		if err != nil {
			return
		}

		err = asm.parseWords(words, lineno)
		if err != nil {
			return
		}
	}

	err = scanner.Err()
	if err != nil {
		return
	}

	if macro != nil {
		err = ErrMacroLonely
		return
	}

	// Final linking of labels.
	for n := range asm.Statements {
		st := &asm.Statements[n]
		for index, label := range st.Links {
			addr, ok := asm.Label[label]
			if !ok {
				lineno = st.LineNo
				line = strings.Join(st.Words, " ")
				err = ErrLabelMissing(label)
				return
			}
			st.Codes[index] = addr
		}
	}

	prog = &Program{
		Statements: append([]Statement(nil), asm.Statements...),
		Labels:     maps.Clone(asm.Label),
	}

	return
}

// operandCount maps an opcode shape to its operand count.
var operandCount = map[isa.Shape]int{
	isa.SHAPE_NONE:     0,
	isa.SHAPE_ADDR:     1,
	isa.SHAPE_REG_ADDR: 2,
	isa.SHAPE_REG_IMM:  2,
	isa.SHAPE_REG_REG:  2,
}

// instruction assembles a single instruction. The returned links map code
// indexes to labels still to be resolved.
func (asm *Assembler) instruction(words []string) (codes []isa.Word, links map[int]string, err error) {
	info, ok := isa.LookupName(strings.ToLower(words[0]))
	if !ok {
		err = ErrInstructionInvalid
		return
	}

	args := words[1:]
	need := operandCount[info.Shape]
	if len(args) < need {
		err = ErrOpcodeValueMissing
		return
	}
	if len(args) > need {
		err = ErrOpcodeExtraArgs
		return
	}

	var in isa.Instruction
	var label string

	switch info.Shape {
	case isa.SHAPE_REG_ADDR, isa.SHAPE_REG_IMM:
		var reg isa.Reg
		var value isa.Word
		reg, err = asm.register(args[0])
		if err != nil {
			return
		}
		value, label, err = asm.operand(args[1])
		if err != nil {
			return
		}
		switch info.Code {
		case isa.OP_LRM:
			in = isa.Lrm{Dst: reg, Addr: value}
		case isa.OP_LRA:
			in = isa.Lra{Dst: reg, Imm: value}
		case isa.OP_SRM:
			in = isa.Srm{Src: reg, Addr: value}
		}
	case isa.SHAPE_REG_REG:
		var a, b isa.Reg
		a, err = asm.register(args[0])
		if err != nil {
			return
		}
		b, err = asm.register(args[1])
		if err != nil {
			return
		}
		switch info.Code {
		case isa.OP_MVR:
			in = isa.Mvr{Src: a, Dst: b}
		case isa.OP_ADD:
			in = isa.Add{A: a, B: b}
		case isa.OP_SUB:
			in = isa.Sub{A: a, B: b}
		case isa.OP_MUL:
			in = isa.Mul{A: a, B: b}
		case isa.OP_DIV:
			in = isa.Div{A: a, B: b}
		case isa.OP_CMP:
			in = isa.Cmp{A: a, B: b}
		}
	case isa.SHAPE_ADDR:
		var value isa.Word
		value, label, err = asm.operand(args[0])
		if err != nil {
			return
		}
		switch info.Code {
		case isa.OP_JMP:
			in = isa.Jmp{Addr: value}
		case isa.OP_JE:
			in = isa.Je{Addr: value}
		case isa.OP_JNE:
			in = isa.Jne{Addr: value}
		}
	case isa.SHAPE_NONE:
		switch info.Code {
		case isa.OP_SYS:
			in = isa.Sys{}
		case isa.OP_HLT:
			in = isa.Hlt{}
		}
	}

	if in == nil {
		err = ErrInstructionInvalid
		return
	}

	codes = in.Words()
	if len(label) != 0 {
		links = map[int]string{1: label}
	}

	return
}

// parseWords evaluates the words in a line of assembly text.
func (asm *Assembler) parseWords(words []string, lineno int) (err error) {
	var codes []isa.Word
	var links map[int]string

	// no-op
	if len(words) == 0 {
		return
	}

	switch words[0] {
	case ".org":
		if len(words) != 2 {
			err = ErrOrgSyntax
			return
		}
		var addr isa.Word
		addr, err = asm.valueOf(words[1])
		if err != nil {
			err = errors.Join(ErrOrgSyntax, err)
			return
		}
		if int(addr) < asm.here {
			err = ErrOrgBackwards
			return
		}
		asm.here = int(addr)
		return
	case ".word":
		if len(words) < 2 {
			err = ErrOpcodeValueMissing
			return
		}
		for n, word := range words[1:] {
			var value isa.Word
			var label string
			value, label, err = asm.operand(word)
			if err != nil {
				return
			}
			if len(label) != 0 {
				if links == nil {
					links = map[int]string{}
				}
				links[n] = label
			}
			codes = append(codes, value)
		}
	default:
		codes, links, err = asm.instruction(words)
		if err != nil {
			return
		}
	}

	if asm.here+len(codes) > int(isa.WordMax)+1 {
		err = ErrAddressOverflow
		return
	}

	asm.Statements = append(asm.Statements, Statement{
		LineNo: lineno,
		Addr:   isa.Word(asm.here),
		Words:  words,
		Codes:  codes,
		Links:  links,
	})
	asm.here += len(codes)

	return
}

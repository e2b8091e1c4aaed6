package asm

import (
	"github.com/ezrec/vcpu/isa"
)

// Statement is a line of assembled code with its source location and
// generated words.
type Statement struct {
	LineNo int            // Source line.
	Addr   isa.Word       // Address of the first word.
	Words  []string       // Source words after expansion.
	Codes  []isa.Word     // Generated words.
	Links  map[int]string // Code index to label, resolved at link time.
}

// Program is an assembled program.
type Program struct {
	Statements []Statement
	Labels     map[string]isa.Word
}

// Debug returns the statement whose generated words cover addr.
func (prog *Program) Debug(addr isa.Word) (stmt *Statement, ok bool) {
	for n := range prog.Statements {
		st := &prog.Statements[n]
		if addr >= st.Addr && int(addr) < int(st.Addr)+len(st.Codes) {
			return st, true
		}
	}

	return
}

// Image returns the big-endian memory image of the program, starting at
// address 0. Gaps left by .org are zero filled.
func (prog *Program) Image() (image []byte) {
	var size int
	for _, st := range prog.Statements {
		end := (int(st.Addr) + len(st.Codes)) * isa.WordBytes
		size = max(size, end)
	}

	image = make([]byte, size)
	for _, st := range prog.Statements {
		for n, code := range st.Codes {
			off := (int(st.Addr) + n) * isa.WordBytes
			image[off], image[off+1] = isa.Split(code)
		}
	}

	return
}

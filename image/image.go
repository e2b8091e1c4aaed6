// Package image loads program images for the vcpu machine.
//
// An image is either raw bytes, copied to memory as-is, or assembly source
// which is assembled first.
package image

import (
	"bytes"
	"io"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/ezrec/vcpu/asm"
	"github.com/ezrec/vcpu/isa"
)

// Format of an image source.
type Format int

const (
	FORMAT_RAW = Format(iota) // Raw big-endian memory bytes.
	FORMAT_ASM                // Assembly source.
)

func (format Format) String() string {
	switch format {
	case FORMAT_RAW:
		return "raw"
	case FORMAT_ASM:
		return "asm"
	default:
		return "unknown"
	}
}

// FormatOf guesses the format of a file from its extension.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".asm", ".s":
		return FORMAT_ASM
	default:
		return FORMAT_RAW
	}
}

// Image is a loaded program.
type Image struct {
	Format  Format       // Source format.
	Data    []byte       // Memory bytes, starting at address 0.
	Program *asm.Program // Assembled program, nil for raw images.
}

// Load reads an image in the given format. Assembly sources see every
// define as a predefined equate.
func Load(r io.Reader, format Format, defines ...iter.Seq2[string, string]) (img *Image, err error) {
	switch format {
	case FORMAT_RAW:
		var buf bytes.Buffer
		_, err = buf.ReadFrom(r)
		if err != nil {
			err = errors.Wrap(err, "Load")
			return
		}
		img = &Image{Format: format, Data: buf.Bytes()}
	case FORMAT_ASM:
		assembler := &asm.Assembler{}
		for _, seq := range defines {
			assembler.PredefineAll(seq)
		}
		var prog *asm.Program
		prog, err = assembler.Parse(r)
		if err != nil {
			err = errors.Wrap(err, "Load")
			return
		}
		img = &Image{Format: format, Data: prog.Image(), Program: prog}
	default:
		err = errors.Errorf("Load: unknown format %v", format)
	}

	return
}

// LoadFile reads an image from a file, choosing the format by extension.
func LoadFile(path string, defines ...iter.Seq2[string, string]) (img *Image, err error) {
	inf, err := os.Open(path)
	if err != nil {
		err = errors.Wrap(err, "LoadFile")
		return
	}
	defer inf.Close()

	img, err = Load(inf, FormatOf(path), defines...)
	if err != nil {
		err = errors.Wrapf(err, "LoadFile %v", path)
		return
	}

	return
}

// Source returns a description of the source line that generated addr,
// or the empty string when none is known.
func (img *Image) Source(addr isa.Word) string {
	if img.Program == nil {
		return ""
	}

	st, ok := img.Program.Debug(addr)
	if !ok {
		return ""
	}

	return strings.Join(st.Words, " ")
}

// Line returns the source line number that generated addr, or 0.
func (img *Image) Line(addr isa.Word) int {
	if img.Program == nil {
		return 0
	}

	st, ok := img.Program.Debug(addr)
	if !ok {
		return 0
	}

	return st.LineNo
}

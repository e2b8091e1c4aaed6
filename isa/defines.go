package isa

import (
	"fmt"
	"iter"
	"maps"
)

var _isa_defines = map[string]string{
	"FLAG_CARRY": fmt.Sprintf("%#x", FLAG_CARRY),
	"FLAG_EQUAL": fmt.Sprintf("%#x", FLAG_EQUAL),
	"FLAG_ZERO":  fmt.Sprintf("%#x", FLAG_ZERO),
	"FLAG_HALT":  fmt.Sprintf("%#x", FLAG_HALT),
	"FLAG_SIGN":  fmt.Sprintf("%#x", FLAG_SIGN),
	"WORD_MAX":   fmt.Sprintf("%#x", WordMax),
}

// Defines returns the instruction set's named constants.
func Defines() iter.Seq2[string, string] {
	return maps.All(_isa_defines)
}

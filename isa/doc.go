// Package isa defines the vcpu instruction set architecture.
//
// The machine word is a 16-bit unsigned integer. Memory is addressed by
// word, and every instruction occupies one or two consecutive words. The
// low byte of the first word is the opcode and the high byte is an operand
// byte whose meaning depends on the opcode's shape. Two-word instructions
// carry an address or immediate in their second word.
//
// Decoding is total: every opcode byte either names one of the fourteen
// instructions or yields ErrUnknownOpcode.
package isa

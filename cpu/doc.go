// Package cpu implements the vcpu processing unit.
//
// A Cpu owns a register file of nine words: the instruction pointer (ip),
// stack pointer (sp), base pointer (bp), accumulator (ac), four general
// purpose registers (gp1-gp4) and the flags register. Each Step fetches the
// instruction at ip from memory, decodes it, executes it, and advances or
// redirects ip. A faulting step leaves registers and memory unchanged.
//
// Memory is shared with the other processing units of a machine; register
// files never are.
package cpu

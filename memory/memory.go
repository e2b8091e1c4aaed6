// Package memory implements the word-addressed memory of the vcpu machine.
//
// Memory is a fixed byte array of MEMORY_WORDS words. Address a names the
// word at byte offset a*2, stored high byte first. Code and data share the
// same address space.
//
// Every access takes the memory's lock, so concurrent processing units
// never observe a half written word, and Load and Bytes see the memory
// as a whole.
package memory

import (
	"fmt"
	"iter"
	"maps"
	"sync"

	"github.com/ezrec/vcpu/isa"
)

const (
	MEMORY_WORDS = 4096                         // Addressable words.
	MEMORY_SIZE  = MEMORY_WORDS * isa.WordBytes // Size in bytes.
	ADDR_MAX     = isa.Word(MEMORY_WORDS - 1)   // Highest valid address.
)

// Word is the unit of memory access.
type Word = isa.Word

// Memory is a fixed size, zero initialized, word addressed memory.
type Memory struct {
	mutex sync.RWMutex
	data  [MEMORY_SIZE]byte
}

var _ isa.Fetcher = (*Memory)(nil)

// New returns a zeroed memory.
func New() *Memory {
	return &Memory{}
}

// offset resolves an address to a byte offset.
func offset(addr Word) (off int, err error) {
	off = int(addr) * isa.WordBytes
	if off+isa.WordBytes > MEMORY_SIZE {
		err = isa.ErrOutOfBounds{Addr: addr}
	}
	return
}

// Size returns the memory size in bytes.
func (mem *Memory) Size() int {
	return MEMORY_SIZE
}

// Words returns the number of addressable words.
func (mem *Memory) Words() int {
	return MEMORY_WORDS
}

// Read returns the word at addr.
func (mem *Memory) Read(addr Word) (value Word, err error) {
	off, err := offset(addr)
	if err != nil {
		return
	}

	mem.mutex.RLock()
	value = isa.Join(mem.data[off], mem.data[off+1])
	mem.mutex.RUnlock()

	return
}

// Write stores value at addr.
func (mem *Memory) Write(addr Word, value Word) (err error) {
	off, err := offset(addr)
	if err != nil {
		return
	}

	hi, lo := isa.Split(value)

	mem.mutex.Lock()
	mem.data[off] = hi
	mem.data[off+1] = lo
	mem.mutex.Unlock()

	return
}

// Load copies image into memory at offset 0 and returns the number of
// bytes copied. An image larger than memory is rejected and memory is
// left unmodified.
func (mem *Memory) Load(image []byte) (count int, err error) {
	if len(image) > MEMORY_SIZE {
		err = isa.ErrProgramTooLarge{Size: len(image), Capacity: MEMORY_SIZE}
		return
	}

	mem.mutex.Lock()
	count = copy(mem.data[:], image)
	mem.mutex.Unlock()

	return
}

// Bytes returns a copy of the memory contents.
func (mem *Memory) Bytes() (data []byte) {
	data = make([]byte, MEMORY_SIZE)

	mem.mutex.RLock()
	copy(data, mem.data[:])
	mem.mutex.RUnlock()

	return
}

// Reset zeroes the memory.
func (mem *Memory) Reset() {
	mem.mutex.Lock()
	clear(mem.data[:])
	mem.mutex.Unlock()
}

var _memory_defines = map[string]string{
	"MEMORY_WORDS": fmt.Sprintf("%v", MEMORY_WORDS),
	"MEMORY_SIZE":  fmt.Sprintf("%v", MEMORY_SIZE),
	"ADDR_MAX":     fmt.Sprintf("%#x", ADDR_MAX),
}

// Defines returns the memory layout's named constants.
func Defines() iter.Seq2[string, string] {
	return maps.All(_memory_defines)
}

package isa

// Word is the native data and address unit of the machine.
type Word = uint16

const (
	WordBits  = 16           // Bits per word.
	WordBytes = WordBits / 8 // Bytes per word.
	WordMax   = Word(0xffff) // Largest word value.
)

// Fetcher reads words from an address space.
type Fetcher interface {
	Read(addr Word) (value Word, err error)
}

// Split returns the high and low bytes of a word.
func Split(w Word) (hi, lo byte) {
	return byte(w >> 8), byte(w)
}

// Join composes a word from its high and low bytes.
func Join(hi, lo byte) Word {
	return (Word(hi) << 8) | Word(lo)
}

package cpu

import (
	"go.uber.org/zap"

	"github.com/ezrec/vcpu/isa"
)

// Memory is the address space a Cpu executes against.
type Memory interface {
	isa.Fetcher
	Write(addr isa.Word, value isa.Word) (err error)
}

// Syscaller services SYS instructions. The call number is the value of
// the accumulator when SYS executes. When Syscall is invoked the Cpu's ip
// already points at the next instruction; the handler may read and write
// the Cpu's registers. Returning an error faults the Cpu and discards any
// register changes the handler made.
type Syscaller interface {
	Syscall(cpu *Cpu, call isa.Word) (err error)
}

// SyscallFunc adapts a function to a Syscaller.
type SyscallFunc func(cpu *Cpu, call isa.Word) error

func (fn SyscallFunc) Syscall(cpu *Cpu, call isa.Word) error {
	return fn(cpu, call)
}

// Result is the outcome of a non-faulting step.
type Result int

const (
	RESULT_CONTINUE = Result(0) // Cpu is ready for another step.
	RESULT_HALTED   = Result(1) // Cpu has halted.
)

func (r Result) String() string {
	if r == RESULT_HALTED {
		return "halted"
	}
	return "continue"
}

// Cpu is a single processing unit.
type Cpu struct {
	Logger *zap.Logger // Instruction trace, at debug level.

	Id       int       // Processing unit id.
	Register Registers // Register file.
	Ticks    int       // Retired instruction count.
}

// New creates a processing unit with a zeroed register file.
func New(id int) (cpu *Cpu) {
	cpu = &Cpu{
		Logger: zap.NewNop(),
		Id:     id,
	}

	return
}

// Reset zeroes the register file and counters.
func (cpu *Cpu) Reset() {
	clear(cpu.Register[:])
	cpu.Ticks = 0
}

// IsHalted returns true if the HALT flag is set.
func (cpu *Cpu) IsHalted() bool {
	return cpu.Register.Test(isa.FLAG_HALT)
}

// Get returns the value of a register.
func (cpu *Cpu) Get(reg isa.Reg) isa.Word {
	return cpu.Register.Get(reg)
}

// Set stores a value in a register.
func (cpu *Cpu) Set(reg isa.Reg, value isa.Word) {
	cpu.Register.Set(reg, value)
}

// Snapshot returns a copy of the Cpu state.
func (cpu *Cpu) Snapshot() Snapshot {
	return Snapshot{
		Id:        cpu.Id,
		Ticks:     cpu.Ticks,
		Registers: cpu.Register,
	}
}

// String returns the current Cpu state as a string.
func (cpu *Cpu) String() string {
	return cpu.Register.String()
}

// Step performs one fetch-decode-execute cycle.
//
// A halted Cpu does not fetch; Step returns RESULT_HALTED without touching
// any state.
func (cpu *Cpu) Step(mem Memory, sys Syscaller) (result Result, err error) {
	if cpu.IsHalted() {
		result = RESULT_HALTED
		return
	}

	addr := cpu.Register[isa.REG_IP]

	in, err := isa.Decode(mem, addr)
	if err != nil {
		return
	}

	err = cpu.Execute(mem, sys, in, addr)
	if err != nil {
		return
	}

	if cpu.IsHalted() {
		result = RESULT_HALTED
	}

	return
}

// Execute applies a decoded instruction located at addr.
func (cpu *Cpu) Execute(mem Memory, sys Syscaller, in isa.Instruction, addr isa.Word) (err error) {
	if in == nil {
		err = isa.ErrUnknownOpcode{Addr: addr}
		return
	}

	if cpu.Logger != nil {
		if ce := cpu.Logger.Check(zap.DebugLevel, "exec"); ce != nil {
			ce.Write(zap.Int("cpu", cpu.Id), zap.Uint16("ip", addr), zap.Stringer("op", in))
		}
	}

	if !registersValid(in) {
		operand, _ := isa.Split(in.Words()[0])
		err = isa.ErrIllegalOperand{Addr: addr, Operand: operand}
		return
	}

	regs := cpu.Register
	next := addr + isa.Width(in)
	regs[isa.REG_IP] = next

	switch in := in.(type) {
	case isa.Lrm:
		var value isa.Word
		value, err = mem.Read(in.Addr)
		if err != nil {
			return
		}
		regs[in.Dst] = value
	case isa.Lra:
		regs[in.Dst] = in.Imm
	case isa.Srm:
		err = mem.Write(in.Addr, regs[in.Src])
		if err != nil {
			return
		}
	case isa.Mvr:
		regs[in.Dst] = regs[in.Src]
	case isa.Add:
		a, b := uint32(regs[in.A]), uint32(regs[in.B])
		regs.arith(in.A, a+b)
	case isa.Sub:
		a, b := regs[in.A], regs[in.B]
		regs.setFlag(isa.FLAG_CARRY, b > a)
		regs.setFlag(isa.FLAG_ZERO, a == b)
		regs[in.A] = a - b
	case isa.Mul:
		a, b := uint32(regs[in.A]), uint32(regs[in.B])
		regs.arith(in.A, a*b)
	case isa.Div:
		a, b := regs[in.A], regs[in.B]
		if b == 0 {
			err = isa.ErrDivisionByZero{Addr: addr}
			return
		}
		regs.setFlag(isa.FLAG_CARRY, false)
		regs.setFlag(isa.FLAG_ZERO, a/b == 0)
		regs[in.A] = a / b
	case isa.Cmp:
		regs.setFlag(isa.FLAG_EQUAL, regs[in.A] == regs[in.B])
	case isa.Jmp:
		regs[isa.REG_IP] = in.Addr
	case isa.Je:
		if regs.Test(isa.FLAG_EQUAL) {
			regs[isa.REG_IP] = in.Addr
		}
	case isa.Jne:
		if !regs.Test(isa.FLAG_EQUAL) {
			regs[isa.REG_IP] = in.Addr
		}
	case isa.Sys:
		return cpu.syscall(sys, addr, next)
	case isa.Hlt:
		regs[isa.REG_IP] = addr
		regs[isa.REG_FLAGS] |= isa.FLAG_HALT
	default:
		err = isa.ErrUnknownOpcode{Opcode: byte(in.Opcode()), Addr: addr}
		return
	}

	cpu.Register = regs
	cpu.Ticks++

	return
}

// registersValid returns true if every register selector of in names a
// register.
func registersValid(in isa.Instruction) bool {
	switch in := in.(type) {
	case isa.Lrm:
		return in.Dst.Valid()
	case isa.Lra:
		return in.Dst.Valid()
	case isa.Srm:
		return in.Src.Valid()
	case isa.Mvr:
		return in.Src.Valid() && in.Dst.Valid()
	case isa.Add:
		return in.A.Valid() && in.B.Valid()
	case isa.Sub:
		return in.A.Valid() && in.B.Valid()
	case isa.Mul:
		return in.A.Valid() && in.B.Valid()
	case isa.Div:
		return in.A.Valid() && in.B.Valid()
	case isa.Cmp:
		return in.A.Valid() && in.B.Valid()
	}
	return true
}

// arith stores a wide arithmetic result in dst, updating CARRY and ZERO.
// Flags are updated first so that a flags destination keeps the result.
func (regs *Registers) arith(dst isa.Reg, wide uint32) {
	result := isa.Word(wide)
	regs.setFlag(isa.FLAG_CARRY, wide > uint32(isa.WordMax))
	regs.setFlag(isa.FLAG_ZERO, result == 0)
	regs[dst] = result
}

// syscall runs the SYS hook with ip already advanced past the instruction.
func (cpu *Cpu) syscall(sys Syscaller, addr, next isa.Word) (err error) {
	call := cpu.Register[isa.REG_AC]

	if sys == nil {
		err = isa.ErrSyscall{Addr: addr, Call: call, Err: isa.ErrNoSyscall}
		return
	}

	saved := cpu.Register
	cpu.Register[isa.REG_IP] = next

	err = sys.Syscall(cpu, call)
	if err != nil {
		cpu.Register = saved
		err = isa.ErrSyscall{Addr: addr, Call: call, Err: err}
		return
	}

	cpu.Ticks++

	return
}

// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package machine assembles memory and processing units into a runnable
// vcpu machine, and drives the fetch-decode-execute loop.
package machine

import (
	"context"
	"fmt"
	"iter"
	"maps"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ezrec/vcpu/cpu"
	"github.com/ezrec/vcpu/internal"
	"github.com/ezrec/vcpu/isa"
	"github.com/ezrec/vcpu/memory"
)

const (
	CPU_MAX = 16 // Maximum number of processing units.
)

var _machine_defines = map[string]string{
	"CPU_MAX": fmt.Sprintf("%v", CPU_MAX),
}

// Option configures a Machine at Start.
type Option func(m *Machine)

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Machine) { m.Logger = logger }
}

// WithSyscall sets the SYS instruction handler.
func WithSyscall(sys cpu.Syscaller) Option {
	return func(m *Machine) { m.Syscall = sys }
}

// WithStepLimit bounds the total number of steps a run may take.
// Zero means unlimited.
func WithStepLimit(limit int) Option {
	return func(m *Machine) { m.StepLimit = limit }
}

// Machine state. Memory + processing units + SYS hook.
type Machine struct {
	Logger    *zap.Logger    // Lifecycle and trace logging.
	Memory    *memory.Memory // Shared memory image.
	Cpus      []*cpu.Cpu     // Processing units, ids 1..n.
	Syscall   cpu.Syscaller  // SYS handler; nil faults on SYS.
	StepLimit int            // Total step limit for a run, 0 for none.
}

// Snapshot is a consistent copy of machine state taken between
// instructions.
type Snapshot struct {
	Cpus   []cpu.Snapshot // Processing units in id order.
	Memory []byte         // Memory contents.
}

// Start creates a machine with zeroed memory and count processing units.
func Start(count int, opts ...Option) (m *Machine, err error) {
	if count < 1 || count > CPU_MAX {
		err = fmt.Errorf("%w: %d", ErrNoCpu, count)
		return
	}

	m = &Machine{
		Logger: zap.NewNop(),
		Memory: memory.New(),
	}

	for _, opt := range opts {
		opt(m)
	}

	for n := range count {
		cp := cpu.New(n + 1)
		cp.Logger = m.Logger
		m.Cpus = append(m.Cpus, cp)
	}

	m.Logger.Info("bootstrapping",
		zap.Int("cpus", count),
		zap.Int("memory", m.Memory.Size()),
	)

	return
}

// Defines returns an iterator over all of the machine's named constants.
func (m *Machine) Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Concat(maps.All(_machine_defines),
		isa.Defines(),
		memory.Defines(),
	)
}

// Close logs the machine shutdown.
func (m *Machine) Close() (err error) {
	m.Logger.Info("shutting down")
	_ = m.Logger.Sync()
	return
}

// Reset zeroes memory and every processing unit.
func (m *Machine) Reset() {
	m.Memory.Reset()
	for _, cp := range m.Cpus {
		cp.Reset()
	}
}

// LoadProgram copies a program image into memory at address 0.
func (m *Machine) LoadProgram(image []byte) (err error) {
	count, err := m.Memory.Load(image)
	if err != nil {
		m.Logger.Error("loading program", zap.Error(err))
		return
	}

	m.Logger.Info("loaded program", zap.Int("bytes", count))

	return
}

// Halted returns true if every processing unit has halted.
func (m *Machine) Halted() bool {
	for _, cp := range m.Cpus {
		if !cp.IsHalted() {
			return false
		}
	}
	return true
}

// step advances one processing unit by one instruction.
func (m *Machine) step(cp *cpu.Cpu) (halted bool, err error) {
	ip := cp.Register.IP()

	result, err := cp.Step(m.Memory, m.Syscall)
	if err != nil {
		err = &FaultError{Cpu: cp.Id, Ip: ip, Err: err}
		m.Logger.Error("fault", zap.Int("cpu", cp.Id), zap.Error(err))
		return
	}

	if result == cpu.RESULT_HALTED {
		halted = true
		m.Logger.Info("cpu halting", zap.Int("cpu", cp.Id), zap.Int("ticks", cp.Ticks))
	}

	return
}

// Run drives every processing unit round-robin, one instruction per unit
// per round, until all have halted or one faults. A fault is returned as
// a *FaultError. The context is checked between rounds.
func (m *Machine) Run(ctx context.Context) (err error) {
	var steps int

	for {
		err = ctx.Err()
		if err != nil {
			return
		}

		active := 0
		for _, cp := range m.Cpus {
			if cp.IsHalted() {
				continue
			}

			if m.StepLimit > 0 && steps >= m.StepLimit {
				err = ErrStepLimit
				return
			}
			steps++

			var halted bool
			halted, err = m.step(cp)
			if err != nil {
				return
			}
			if !halted {
				active++
			}
		}

		if active == 0 {
			return
		}
	}
}

// RunConcurrent runs each processing unit on its own goroutine. Memory
// serializes word accesses, but the instruction set has no
// synchronization primitives, so programs sharing memory locations race.
// The first fault stops the other units.
func (m *Machine) RunConcurrent(ctx context.Context) (err error) {
	group, ctx := errgroup.WithContext(ctx)

	var steps atomic.Int64

	for _, cp := range m.Cpus {
		group.Go(func() error {
			for !cp.IsHalted() {
				if err := ctx.Err(); err != nil {
					return err
				}
				if m.StepLimit > 0 && steps.Add(1) > int64(m.StepLimit) {
					return ErrStepLimit
				}
				if _, err := m.step(cp); err != nil {
					return err
				}
			}
			return nil
		})
	}

	err = group.Wait()

	return
}

// Snapshot copies the state of every processing unit and memory. It must
// not be called while a run is in progress.
func (m *Machine) Snapshot() (snap Snapshot) {
	for _, cp := range m.Cpus {
		snap.Cpus = append(snap.Cpus, cp.Snapshot())
	}
	snap.Memory = m.Memory.Bytes()

	return
}

package machine

import (
	"errors"

	"github.com/ezrec/vcpu/isa"
	"github.com/ezrec/vcpu/translate"
)

var f = translate.From

var (
	ErrStepLimit = errors.New(f("step limit reached"))
	ErrNoCpu     = errors.New(f("machine has no processing units"))
)

// FaultError identifies the processing unit whose step faulted.
type FaultError struct {
	Cpu int      // Processing unit id.
	Ip  isa.Word // Instruction pointer at the fault.
	Err error    // Fault.
}

func (err *FaultError) Error() string {
	return f("cpu %d ip 0x%04x: %v", err.Cpu, err.Ip, err.Err)
}

func (err *FaultError) Unwrap() error {
	return err.Err
}

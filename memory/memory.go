package memory

import (
	"github.com/next-trace/scg-mediator/mediator"
)

// New builds a registry from regs, freezes it and returns the bound Mediator.
// Every registration failure is reported, joined, and no Mediator is returned.
func New(regs []mediator.Registration, opts ...mediator.Option) (*mediator.Mediator, error) {
	reg := mediator.NewRegistry()
	if err := reg.Register(regs...); err != nil {
		return nil, err
	}

	return mediator.New(reg, opts...), nil
}

package util

import "context"

// CmdRunner abstracts subprocess execution so services can substitute a
// fake in tests.
type CmdRunner interface {
	Run(ctx context.Context, spec CmdSpec) (CmdResult, error)
}

type defaultRunner struct{}

func (defaultRunner) Run(ctx context.Context, spec CmdSpec) (CmdResult, error) {
	return Run(ctx, spec)
}

// NewDefaultRunner returns a CmdRunner backed by Run.
func NewDefaultRunner() CmdRunner {
	return defaultRunner{}
}

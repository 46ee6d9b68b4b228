package flow

import "errors"

var (
	ErrMissingID          = errors.New("flow: id is required")
	ErrNoSteps            = errors.New("flow: must have at least one step")
	ErrStepMissingID      = errors.New("flow: step id is required")
	ErrDuplicateStep      = errors.New("flow: duplicate step id")
	ErrUnknownDependency  = errors.New("flow: unknown dependency")
	ErrCycle              = errors.New("flow: cyclic dependencies")
)

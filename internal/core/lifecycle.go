package core

import "context"

// Component is a long-running part of the process, such as the scheduler
// or the HTTP gateway.
type Component interface {
	// Name identifies the component in logs.
	Name() string
}

// Validator is implemented by components that can check their
// configuration before anything starts. Validate must not have side
// effects.
type Validator interface {
	Validate() error
}

// Starter is implemented by components that start background work
// (goroutines, listeners).
type Starter interface {
	Start() error
}

// Stopper is implemented by components that need to release resources.
// Called during shutdown in reverse order of Start().
type Stopper interface {
	Stop(ctx context.Context) error
}

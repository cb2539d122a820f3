package container

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotRegistered is matched by every NotRegisteredError.
	ErrNotRegistered = errors.New("service not registered")

	// ErrCircularDependency is matched by every CircularDependencyError.
	ErrCircularDependency = errors.New("circular dependency")
)

// NotRegisteredError is returned by Resolve for a name with no registration.
type NotRegisteredError struct {
	Name string
}

func (e *NotRegisteredError) Error() string {
	return fmt.Sprintf("container: service not registered: %q", e.Name)
}

func (e *NotRegisteredError) Is(target error) bool { return target == ErrNotRegistered }

// CircularDependencyError is returned by Resolve when the dependency graph
// reachable from the requested service loops back on itself. Name is the
// service that was re-entered, Path the chain that led to it.
type CircularDependencyError struct {
	Name string
	Path []string
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("container: circular dependency detected for service %q (%s)",
		e.Name, strings.Join(e.Path, " -> "))
}

func (e *CircularDependencyError) Is(target error) bool { return target == ErrCircularDependency }

// PanicError wraps a value recovered from a panicking factory.
type PanicError struct {
	Name  string
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("container: factory for %q panicked: %v", e.Name, e.Value)
}

// TypeError is returned by the generic Resolve helper when the instance does
// not have the requested type.
type TypeError struct {
	Name string
	Want string
	Got  string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("container: Resolve[%s]: %q resolved to %s", e.Want, e.Name, e.Got)
}

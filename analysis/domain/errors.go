// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package domain

import (
	"errors"
	"fmt"

	"github.com/awslabs/ar-go-absint/analysis/program"
)

// ErrUnsupportedTransition is the error wrapped by all UnsupportedTransitionError
var ErrUnsupportedTransition = errors.New("unsupported transition")

// ErrInvalidArgument is returned by constructors given invalid parameters
var ErrInvalidArgument = errors.New("invalid argument")

// ErrInconsistentScope is returned when the components of a composite state do not share the same variables
var ErrInconsistentScope = errors.New("inconsistent scope")

// UnsupportedTransitionError is raised when a post-operator cannot handle a transition: its kind is unknown, or the
// procedure it calls does not have exactly one implementation. It aborts the analysis run.
type UnsupportedTransitionError struct {
	Transition *program.Transition
	Reason     string
}

func (e *UnsupportedTransitionError) Error() string {
	return fmt.Sprintf("unsupported transition %s: %s", e.Transition, e.Reason)
}

// Unwrap returns ErrUnsupportedTransition
func (e *UnsupportedTransitionError) Unwrap() error {
	return ErrUnsupportedTransition
}

func unsupported(t *program.Transition, format string, args ...any) error {
	return &UnsupportedTransitionError{Transition: t, Reason: fmt.Sprintf(format, args...)}
}

// MustBeOfType returns s as a T, and panics if s has another type. Domains use it to check that the states they
// receive were created by themselves.
func MustBeOfType[T State](d Domain, s State) T {
	x, ok := s.(T)
	if !ok {
		panic(fmt.Sprintf("domain %s received a state of type %T", d.Name(), s))
	}
	return x
}

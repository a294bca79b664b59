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

// Package domains builds the abstract domains named in a configuration.
package domains

import (
	"fmt"

	"github.com/awslabs/ar-go-absint/analysis/config"
	"github.com/awslabs/ar-go-absint/analysis/domain"
	"github.com/awslabs/ar-go-absint/analysis/domain/nonrel"
	"github.com/awslabs/ar-go-absint/analysis/domain/octagon"
)

// New returns the domain identified by name
func New(name string, maxParallel int) (domain.Domain, error) {
	var d domain.Domain
	var err error
	switch name {
	case config.DomainOctagon:
		d, err = octagon.New(maxParallel)
	case config.DomainInterval:
		d, err = nonrel.NewInterval(maxParallel)
	case config.DomainSign:
		d, err = nonrel.NewSign(maxParallel)
	case config.DomainParity:
		d, err = nonrel.NewParity(maxParallel)
	default:
		return nil, fmt.Errorf("%w: unknown domain %q", domain.ErrInvalidArgument, name)
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Build returns the domain for the list of names. A single name yields that domain, several names yield the
// composite of the domains in the order of the list.
func Build(names []string, maxParallel int) (domain.Domain, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no domain", domain.ErrInvalidArgument)
	}
	components := make([]domain.Domain, 0, len(names))
	for _, name := range names {
		d, err := New(name, maxParallel)
		if err != nil {
			return nil, err
		}
		components = append(components, d)
	}
	if len(components) == 1 {
		return components[0], nil
	}
	return domain.NewComposite(maxParallel, components...)
}

// FromConfig returns the domain described by the options of c
func FromConfig(c *config.Config) (domain.Domain, error) {
	return Build(c.Domains, c.MaxParallelStates)
}

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

package absint

import (
	"context"
	"errors"
	"fmt"

	"github.com/awslabs/ar-go-absint/analysis/config"
	"github.com/awslabs/ar-go-absint/analysis/domain"
	"github.com/awslabs/ar-go-absint/analysis/program"
	"golang.org/x/sync/errgroup"
)

// Job is an independent analysis run
type Job struct {
	Name        string
	Entrypoints []*program.Location
}

// EntrypointJobs returns one job per initial location of prog whose procedure is selected by the entrypoints of c
func EntrypointJobs(prog *program.Program, c *config.Config) []Job {
	var jobs []Job
	for _, l := range prog.InitialLocations() {
		if c.MatchEntrypoint(l.Procedure.Name) {
			jobs = append(jobs, Job{Name: l.Procedure.Name, Entrypoints: []*program.Location{l}})
		}
	}
	return jobs
}

// RunAll runs the jobs, at most maxConcurrent at the same time. Runs are independent: the failure of one run does
// not stop the others. The results are in the order of the jobs, and the returned error joins the errors of all the
// failed runs.
func (e *Engine) RunAll(ctx context.Context, jobs []Job, maxConcurrent int) ([]*Result, error) {
	if maxConcurrent < 1 {
		return nil, fmt.Errorf("%w: invalid number of concurrent runs %d", domain.ErrInvalidArgument, maxConcurrent)
	}
	results := make([]*Result, len(jobs))
	errs := make([]error, len(jobs))
	g := new(errgroup.Group)
	g.SetLimit(maxConcurrent)
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			res, err := e.Run(ctx, job.Entrypoints)
			res.Name = job.Name
			results[i] = res
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", job.Name, err)
			}
			// errors stay local to their run
			return nil
		})
	}
	_ = g.Wait()
	return results, errors.Join(errs...)
}

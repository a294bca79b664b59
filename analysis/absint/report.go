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
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/awslabs/ar-go-absint/internal/formatutil"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"
)

// LocationInvariant is the invariant of a location in a report
type LocationInvariant struct {
	Location  string `yaml:"location"`
	LoopHead  bool   `yaml:"loop-head,omitempty"`
	Disjuncts int    `yaml:"disjuncts"`
	Invariant string `yaml:"invariant"`
}

// CounterexampleReport is a candidate counterexample in a report
type CounterexampleReport struct {
	Location string   `yaml:"location"`
	Path     []string `yaml:"path"`
}

// Report is the serializable summary of a result
type Report struct {
	RunID           string                 `yaml:"run-id"`
	Name            string                 `yaml:"name,omitempty"`
	Domain          string                 `yaml:"domain"`
	Verdict         string                 `yaml:"verdict"`
	Complete        bool                   `yaml:"complete"`
	Error           string                 `yaml:"error,omitempty"`
	Stats           string                 `yaml:"stats"`
	Invariants      []LocationInvariant    `yaml:"invariants,omitempty"`
	Counterexamples []CounterexampleReport `yaml:"counterexamples,omitempty"`
}

// NewReport returns the report of r. Invariants are included only if withInvariants is true.
func NewReport(r *Result, withInvariants bool) Report {
	rep := Report{
		RunID:    r.RunID.String(),
		Name:     r.Name,
		Domain:   r.Domain.Name(),
		Verdict:  r.Verdict().String(),
		Complete: r.Complete,
		Stats:    r.Stats.String(),
	}
	if r.Err != nil {
		rep.Error = r.Err.Error()
	}
	if withInvariants {
		for _, l := range r.Locations() {
			rep.Invariants = append(rep.Invariants, LocationInvariant{
				Location:  l.String(),
				LoopHead:  l.IsLoopHead(),
				Disjuncts: len(r.States[l]),
				Invariant: r.Invariant(l).String(),
			})
		}
	}
	for _, c := range r.Counterexamples {
		cr := CounterexampleReport{Location: c.Location.String()}
		for _, t := range c.Path {
			cr.Path = append(cr.Path, t.String())
		}
		rep.Counterexamples = append(rep.Counterexamples, cr)
	}
	return rep
}

// WriteYaml writes the reports in yaml format to w
func WriteYaml(w io.Writer, reports []Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(reports); err != nil {
		return fmt.Errorf("could not encode report: %w", err)
	}
	return enc.Close()
}

// SaveReports writes the reports of the results to a new file in dir, and returns the name of the file
func SaveReports(dir string, results []*Result, withInvariants bool) (string, error) {
	f, err := os.CreateTemp(dir, "invariants-*.yaml")
	if err != nil {
		return "", fmt.Errorf("could not create report file in %s: %w", dir, err)
	}
	defer f.Close()
	reports := make([]Report, 0, len(results))
	for _, r := range results {
		reports = append(reports, NewReport(r, withInvariants))
	}
	if err := WriteYaml(f, reports); err != nil {
		return "", err
	}
	return filepath.Clean(f.Name()), nil
}

// WriteSummaryTable writes one row per result to w
func WriteSummaryTable(w io.Writer, results []*Result) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Run", "Domain", "Verdict", "Locations", "Candidates", "Widenings", "Time"})
	for _, r := range results {
		name := formatutil.Sanitize(r.Name)
		if name == "" {
			name = r.RunID.String()
		}
		t.AppendRow(table.Row{
			name,
			r.Domain.Name(),
			verdictString(r.Verdict()),
			len(r.States),
			len(r.Counterexamples),
			r.Stats.Widenings,
			r.Stats.Duration.Round(time.Microsecond),
		})
	}
	t.Render()
}

// WriteInvariantTable writes the invariant of every reached location of r to w
func WriteInvariantTable(w io.Writer, r *Result) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Location", "Loop head", "Invariant"})
	for _, l := range r.Locations() {
		head := ""
		if l.IsLoopHead() {
			head = "yes"
		}
		t.AppendRow(table.Row{l.String(), head, r.Invariant(l).String()})
	}
	t.Render()
}

func verdictString(v Verdict) string {
	switch v {
	case Safe:
		return formatutil.Green(v.String())
	case PossiblyUnsafe:
		return formatutil.Red(v.String())
	default:
		return formatutil.Yellow(v.String())
	}
}

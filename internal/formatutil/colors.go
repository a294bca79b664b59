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

// Package formatutil colors the text printed on terminals.
package formatutil

import (
	"fmt"
	"os"
	"sync/atomic"

	"golang.org/x/term"
)

var colors atomic.Bool

func init() {
	colors.Store(term.IsTerminal(int(os.Stdout.Fd())))
}

// SetColors enables or disables the colors. They are enabled by default when the standard output is a terminal.
func SetColors(enabled bool) {
	colors.Store(enabled)
}

var (
	Bold   = Color("\033[1m%s\033[0m")
	Faint  = Color("\033[2m%s\033[0m")
	Red    = Color("\033[1;31m%s\033[0m")
	Green  = Color("\033[1;32m%s\033[0m")
	Yellow = Color("\033[1;33m%s\033[0m")
)

// Color returns a function printing its arguments in the format colorString when colors are enabled
func Color(colorString string) func(...interface{}) string {
	return func(args ...interface{}) string {
		if colors.Load() {
			return fmt.Sprintf(colorString, fmt.Sprint(args...))
		}
		return fmt.Sprint(args...)
	}
}

// Sanitize escapes the control characters of s, so that names read from the analyzed code cannot inject escape
// sequences in the terminal.
func Sanitize(s string) string {
	r := fmt.Sprintf("%q", s)
	return r[1 : len(r)-1]
}

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

package funcutil

import "golang.org/x/exp/constraints"

// Min returns the smallest of x and y
func Min[T constraints.Ordered](x T, y T) T {
	if x < y {
		return x
	}
	return y
}

// Max returns the largest of x and y
func Max[T constraints.Ordered](x T, y T) T {
	if x > y {
		return x
	}
	return y
}

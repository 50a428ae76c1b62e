// Copyright 2026 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package importjob defines import job descriptors and the catalogs they are
// read from.
package importjob

import (
	"cmp"
	"context"
	"slices"
)

// Status is the state of an import job as recorded by the job store.
type Status int

const (
	// StatusSuccess means the last run finished without error.
	StatusSuccess Status = 1
	// StatusError means the last run failed.
	StatusError Status = 2
	// StatusProcessing means a run is in progress.
	StatusProcessing Status = 3
	// StatusScheduled means a run has been requested but not started.
	StatusScheduled Status = 4
	// StatusPending means the job has never run.
	StatusPending Status = 5
)

// String returns the lower-case status name.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	case StatusProcessing:
		return "processing"
	case StatusScheduled:
		return "scheduled"
	case StatusPending:
		return "pending"
	default:
		return "unknown"
	}
}

// Descriptor describes one import job. Code is the unique identifier users
// pass on the command line.
type Descriptor struct {
	Code     string   `yaml:"code" toml:"code"`
	Name     string   `yaml:"name,omitempty" toml:"name,omitempty"`
	Position int      `yaml:"position,omitempty" toml:"position,omitempty"`
	Command  []string `yaml:"command,omitempty" toml:"command,omitempty"`
	Status   Status   `yaml:"-" toml:"-"`
}

// Repository enumerates the known import jobs in execution order.
type Repository interface {
	List(ctx context.Context) ([]Descriptor, error)
}

// Defaults returns the connector's built-in jobs in the order they must run:
// every job depends only on jobs listed before it.
func Defaults() []Descriptor {
	return []Descriptor{
		{Code: "category", Name: "Categories", Position: 1},
		{Code: "family", Name: "Families", Position: 2},
		{Code: "attribute", Name: "Attributes", Position: 3},
		{Code: "option", Name: "Options", Position: 4},
		{Code: "product_model", Name: "Product Models", Position: 5},
		{Code: "family_variant", Name: "Family Variants", Position: 6},
		{Code: "product", Name: "Products", Position: 7},
	}
}

// Sort orders jobs by position, then by code.
func Sort(jobs []Descriptor) {
	slices.SortStableFunc(jobs, func(a, b Descriptor) int {
		if c := cmp.Compare(a.Position, b.Position); c != 0 {
			return c
		}
		return cmp.Compare(a.Code, b.Code)
	})
}

// Codes returns the code of every job, in order.
func Codes(jobs []Descriptor) []string {
	codes := make([]string, 0, len(jobs))
	for _, j := range jobs {
		codes = append(codes, j.Code)
	}
	return codes
}

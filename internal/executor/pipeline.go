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

package executor

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jbclaudio/magento2-connector-community/internal/command"
	"github.com/jbclaudio/magento2-connector-community/internal/importjob"
)

// Environment variables set for the program of a [CommandPipeline].
const (
	EnvJobCode = "AKENEO_CONNECTOR_JOB_CODE"
	EnvRunID   = "AKENEO_CONNECTOR_RUN_ID"
)

// ErrNoPipeline is returned for a job that declares no command.
var ErrNoPipeline = errors.New("no import command configured")

// CommandPipeline runs the program a job declares in its Command field.
type CommandPipeline struct {
	// Dir is the working directory of the program.
	Dir string
	// Stdout and Stderr receive the program output.
	Stdout io.Writer
	Stderr io.Writer
}

// Run starts the job's program and waits for it to exit.
func (p *CommandPipeline) Run(ctx context.Context, job importjob.Descriptor, runID string) error {
	if len(job.Command) == 0 {
		return fmt.Errorf("%w for job %q", ErrNoPipeline, job.Code)
	}
	opts := command.Options{
		Dir: p.Dir,
		Env: map[string]string{
			EnvJobCode: job.Code,
			EnvRunID:   runID,
		},
		Stdout: p.Stdout,
		Stderr: p.Stderr,
	}
	return command.RunWithOptions(ctx, opts, job.Command[0], job.Command[1:]...)
}

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

// Package importcmd implements the akeneo_connector:import command, which
// runs one or more import jobs by code.
package importcmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/jbclaudio/magento2-connector-community/internal/appstate"
	"github.com/jbclaudio/magento2-connector-community/internal/console"
	"github.com/jbclaudio/magento2-connector-community/internal/importjob"
	"github.com/urfave/cli/v3"
)

const (
	// Name is the command name.
	Name = "akeneo_connector:import"
	// CodeFlag is the option holding the job code or codes.
	CodeFlag = "code"

	description = "Import Akeneo data to Magento"
	codeUsage   = "Code of import job to run. To run multiple jobs consecutively, use comma-separated import job codes"
)

// JobExecutor runs a single import job.
type JobExecutor interface {
	Execute(ctx context.Context, code string) error
}

// AreaSetter switches the application run context.
type AreaSetter interface {
	SetAreaCode(area appstate.Area) error
}

// Definition returns the command name, description and options. The caller
// supplies the Action.
func Definition() *cli.Command {
	return &cli.Command{
		Name:      Name,
		Usage:     description,
		UsageText: Name + " [--code=<code>[,<code>...]]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  CodeFlag,
				Usage: codeUsage,
			},
		},
	}
}

// Command dispatches import codes to a JobExecutor.
type Command struct {
	repository importjob.Repository
	state      AreaSetter
	executor   JobExecutor
	area       appstate.Area
}

// New returns a Command that lists jobs from repository, switches state to
// the admin area and runs jobs with executor.
func New(repository importjob.Repository, state AreaSetter, executor JobExecutor) *Command {
	return &Command{
		repository: repository,
		state:      state,
		executor:   executor,
		area:       appstate.AreaAdminhtml,
	}
}

// WithArea overrides the area the command switches into.
func (c *Command) WithArea(area appstate.Area) *Command {
	c.area = area
	return c
}

// Execute runs the jobs named by code, or prints usage when code is empty.
func (c *Command) Execute(ctx context.Context, w io.Writer, code string) error {
	out := console.New(w)
	if err := c.state.SetAreaCode(c.area); err != nil {
		if !errors.Is(err, appstate.ErrAreaCodeAlreadySet) {
			return err
		}
		slog.Debug("area code already set", "err", err)
		if err := out.Writeln("Area code already set"); err != nil {
			return err
		}
	}
	if code == "" {
		return c.usage(ctx, out)
	}
	return c.checkEntities(ctx, code)
}

// checkEntities runs every code in a comma-separated list.
func (c *Command) checkEntities(ctx context.Context, code string) error {
	entities := strings.Split(code, ",")
	if len(entities) > 1 {
		return c.multiImport(ctx, entities)
	}
	return c.runImport(ctx, code)
}

// multiImport runs entities in order and stops at the first failure.
func (c *Command) multiImport(ctx context.Context, entities []string) error {
	for _, entity := range entities {
		if err := c.runImport(ctx, entity); err != nil {
			return err
		}
	}
	return nil
}

func (c *Command) runImport(ctx context.Context, code string) error {
	return c.executor.Execute(ctx, code)
}

func (c *Command) usage(ctx context.Context, out *console.Output) error {
	imports, err := c.repository.List(ctx)
	if err != nil {
		return fmt.Errorf("listing import jobs: %w", err)
	}
	codes := importjob.Codes(imports)

	p := &printer{}
	p.print(out.Comment, "Options:")
	p.print(out.Info, "--"+CodeFlag)
	p.print(out.Writeln, "")

	p.print(out.Comment, "Available codes:")
	for _, code := range codes {
		p.print(out.Info, code)
	}
	p.print(out.Writeln, "")

	if len(codes) > 0 && codes[0] != "" {
		p.print(out.Comment, "Example:")
		p.print(out.Info, fmt.Sprintf("%s --%s=%s", Name, CodeFlag, codes[0]))
	}
	return p.err
}

// printer keeps the first write error and skips later writes.
type printer struct {
	err error
}

func (p *printer) print(write func(string) error, msg string) {
	if p.err != nil {
		return
	}
	p.err = write(msg)
}

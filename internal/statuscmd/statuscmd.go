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

// Package statuscmd implements the akeneo_connector:status command, which
// shows the status of import jobs and the run history of one job.
package statuscmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jbclaudio/magento2-connector-community/internal/console"
	"github.com/jbclaudio/magento2-connector-community/internal/importjob"
	"github.com/jbclaudio/magento2-connector-community/internal/jobstore"
	"github.com/urfave/cli/v3"
)

const (
	// Name is the command name.
	Name = "akeneo_connector:status"
	// CodeFlag selects the job whose run history is shown.
	CodeFlag = "code"
)

// Store is the part of the job store the command reads.
type Store interface {
	List(ctx context.Context) ([]importjob.Descriptor, error)
	Get(ctx context.Context, code string) (importjob.Descriptor, error)
	Runs(ctx context.Context, code string) ([]jobstore.Run, error)
}

// Definition returns the command name, description and options. The caller
// supplies the Action.
func Definition() *cli.Command {
	return &cli.Command{
		Name:      Name,
		Usage:     "Show Akeneo import job status",
		UsageText: Name + " [--code=<code>]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  CodeFlag,
				Usage: "Code of the import job whose run history is shown",
			},
		},
	}
}

// Execute prints every job with its status, or the runs of the job named by
// code, newest first.
func Execute(ctx context.Context, w io.Writer, store Store, code string) error {
	out := console.New(w)
	if code == "" {
		return jobs(ctx, out, store)
	}
	return runs(ctx, out, store, code)
}

func jobs(ctx context.Context, out *console.Output, store Store) error {
	list, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("listing import jobs: %w", err)
	}
	if err := out.Comment("Jobs:"); err != nil {
		return err
	}
	for _, j := range list {
		if err := out.Info(fmt.Sprintf("%-16s %s", j.Code, j.Status)); err != nil {
			return err
		}
	}
	return nil
}

func runs(ctx context.Context, out *console.Output, store Store, code string) error {
	job, err := store.Get(ctx, code)
	if err != nil {
		return err
	}
	history, err := store.Runs(ctx, code)
	if err != nil {
		return fmt.Errorf("listing runs of %q: %w", code, err)
	}
	if err := out.Comment(fmt.Sprintf("Runs of %s (%s):", job.Code, job.Status)); err != nil {
		return err
	}
	for _, r := range history {
		line := fmt.Sprintf("%s %-10s %s %s", r.ID, r.Status, formatTime(r.StartedAt), formatTime(r.FinishedAt))
		if r.Message != "" {
			line += " " + r.Message
		}
		if err := out.Info(line); err != nil {
			return err
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

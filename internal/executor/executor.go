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

// Package executor runs import jobs by code and records their outcome.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jbclaudio/magento2-connector-community/internal/importjob"
	"github.com/jbclaudio/magento2-connector-community/internal/jobstore"
)

// Errors reported by [JobExecutor.Execute].
var (
	// ErrUnknownImport is returned for a code that no job has.
	ErrUnknownImport = errors.New("unknown import code")
	// ErrJobAlreadyRunning is returned when the job is processing in another
	// invocation.
	ErrJobAlreadyRunning = errors.New("import job is already running")
)

// Store is the part of the job store the executor needs.
type Store interface {
	Get(ctx context.Context, code string) (importjob.Descriptor, error)
	StartRun(ctx context.Context, code, runID string, at, staleBefore time.Time) ([]string, error)
	FinishRun(ctx context.Context, runID string, status importjob.Status, message string, at time.Time) error
}

// Pipeline performs the import work of one job.
type Pipeline interface {
	Run(ctx context.Context, job importjob.Descriptor, runID string) error
}

// JobExecutor executes import jobs one at a time.
type JobExecutor struct {
	store      Store
	pipeline   Pipeline
	staleAfter time.Duration
	now        func() time.Time
	newID      func() string
}

// New returns an executor that reads and records jobs in store and runs them
// with pipeline.
func New(store Store, pipeline Pipeline) *JobExecutor {
	return &JobExecutor{
		store:    store,
		pipeline: pipeline,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// WithStaleAfter lets a job that has been processing for longer than d be
// started again. Its unfinished runs are recorded as failed. Zero, the
// default, never restarts a processing job.
func (e *JobExecutor) WithStaleAfter(d time.Duration) *JobExecutor {
	e.staleAfter = d
	return e
}

// Execute runs the job identified by code and waits for it to finish.
func (e *JobExecutor) Execute(ctx context.Context, code string) error {
	if strings.TrimSpace(code) == "" {
		return fmt.Errorf("%w: %q", ErrUnknownImport, code)
	}
	job, err := e.store.Get(ctx, code)
	if errors.Is(err, jobstore.ErrJobNotFound) {
		return fmt.Errorf("%w: %q", ErrUnknownImport, code)
	}
	if err != nil {
		return fmt.Errorf("loading job %q: %w", code, err)
	}

	runID := e.newID()
	now := e.now()
	var staleBefore time.Time
	if e.staleAfter > 0 {
		staleBefore = now.Add(-e.staleAfter)
	}
	interrupted, err := e.store.StartRun(ctx, code, runID, now, staleBefore)
	if err != nil {
		if errors.Is(err, jobstore.ErrJobRunning) {
			return fmt.Errorf("%w: %q", ErrJobAlreadyRunning, code)
		}
		return fmt.Errorf("starting job %q: %w", code, err)
	}
	for _, id := range interrupted {
		slog.Warn("recorded stale run as failed", "code", code, "run_id", id)
	}
	slog.Info("import started", "code", code, "run_id", runID)

	start := e.now()
	runErr := e.pipeline.Run(ctx, job, runID)
	status, message := importjob.StatusSuccess, ""
	if runErr != nil {
		status, message = importjob.StatusError, runErr.Error()
	}
	// Record the run even when ctx has been cancelled.
	if err := e.store.FinishRun(context.WithoutCancel(ctx), runID, status, message, e.now()); err != nil {
		return errors.Join(runErr, fmt.Errorf("recording run %s: %w", runID, err))
	}
	if runErr != nil {
		slog.Error("import failed", "code", code, "run_id", runID, "err", runErr)
		return fmt.Errorf("import %q: %w", code, runErr)
	}
	slog.Info("import finished", "code", code, "run_id", runID, "duration", e.now().Sub(start))
	return nil
}

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
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/jbclaudio/magento2-connector-community/internal/command"
	"github.com/jbclaudio/magento2-connector-community/internal/config"
	"github.com/jbclaudio/magento2-connector-community/internal/importjob"
	"github.com/jbclaudio/magento2-connector-community/internal/jobstore"
	"github.com/jbclaudio/magento2-connector-community/internal/testhelper"
)

type fakePipeline struct {
	ran  []string
	errs map[string]error
}

func (p *fakePipeline) Run(ctx context.Context, job importjob.Descriptor, runID string) error {
	p.ran = append(p.ran, job.Code)
	return p.errs[job.Code]
}

func newTestExecutor(t *testing.T, pipeline Pipeline) (*JobExecutor, *jobstore.Store) {
	t.Helper()
	store, err := jobstore.Open(t.Context(), config.Database{
		Driver: config.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "connector.db"),
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if err := store.Seed(t.Context(), importjob.Defaults()); err != nil {
		t.Fatal(err)
	}
	e := New(store, pipeline)
	n := 0
	e.newID = func() string {
		n++
		return fmt.Sprintf("run-%d", n)
	}
	e.now = func() time.Time { return time.Unix(1700000000, 0) }
	return e, store
}

func TestExecute(t *testing.T) {
	pipeline := &fakePipeline{}
	e, store := newTestExecutor(t, pipeline)
	if err := e.Execute(t.Context(), "category"); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"category"}, pipeline.ran); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	job, err := store.Get(t.Context(), "category")
	if err != nil {
		t.Fatal(err)
	}
	if job.Status != importjob.StatusSuccess {
		t.Errorf("status = %s, want %s", job.Status, importjob.StatusSuccess)
	}
	runs, err := store.Runs(t.Context(), "category")
	if err != nil {
		t.Fatal(err)
	}
	want := []jobstore.Run{{ID: "run-1", Code: "category", Status: importjob.StatusSuccess}}
	if diff := cmp.Diff(want, runs, cmpopts.IgnoreFields(jobstore.Run{}, "StartedAt", "FinishedAt")); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestExecute_UnknownCode(t *testing.T) {
	pipeline := &fakePipeline{}
	e, _ := newTestExecutor(t, pipeline)
	for _, code := range []string{"", "  ", "customer", "category,product"} {
		t.Run(code, func(t *testing.T) {
			if err := e.Execute(t.Context(), code); !errors.Is(err, ErrUnknownImport) {
				t.Errorf("Execute(%q) error = %v, want %v", code, err, ErrUnknownImport)
			}
		})
	}
	if len(pipeline.ran) != 0 {
		t.Errorf("pipeline ran for unknown codes: %v", pipeline.ran)
	}
}

func TestExecute_PipelineError(t *testing.T) {
	pipelineErr := errors.New("remote API unavailable")
	pipeline := &fakePipeline{errs: map[string]error{"product": pipelineErr}}
	e, store := newTestExecutor(t, pipeline)
	err := e.Execute(t.Context(), "product")
	if !errors.Is(err, pipelineErr) {
		t.Fatalf("Execute() error = %v, want %v", err, pipelineErr)
	}
	job, err := store.Get(t.Context(), "product")
	if err != nil {
		t.Fatal(err)
	}
	if job.Status != importjob.StatusError {
		t.Errorf("status = %s, want %s", job.Status, importjob.StatusError)
	}
	runs, err := store.Runs(t.Context(), "product")
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Message != pipelineErr.Error() {
		t.Errorf("runs = %+v, want one run with message %q", runs, pipelineErr.Error())
	}
	// A failed job can run again.
	pipeline.errs = nil
	if err := e.Execute(t.Context(), "product"); err != nil {
		t.Errorf("rerun after failure: %v", err)
	}
}

func TestExecute_AlreadyRunning(t *testing.T) {
	pipeline := &fakePipeline{}
	e, store := newTestExecutor(t, pipeline)
	if _, err := store.StartRun(t.Context(), "family", "other-process", time.Unix(1700000000, 0), time.Time{}); err != nil {
		t.Fatal(err)
	}
	if err := e.Execute(t.Context(), "family"); !errors.Is(err, ErrJobAlreadyRunning) {
		t.Errorf("Execute() error = %v, want %v", err, ErrJobAlreadyRunning)
	}
	if len(pipeline.ran) != 0 {
		t.Errorf("pipeline ran for a processing job: %v", pipeline.ran)
	}
}

func TestCommandPipeline(t *testing.T) {
	mock := &command.MockCommander{}
	ctx := mock.InjectContext(t.Context())
	p := &CommandPipeline{}
	job := importjob.Descriptor{Code: "product", Command: []string{"pim-import", "--entity=product"}}
	if err := p.Run(ctx, job, "run-1"); err != nil {
		t.Fatal(err)
	}
	want := [][]string{{"pim-import", "--entity=product"}}
	if diff := cmp.Diff(want, mock.Commands()); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestCommandPipeline_Environment(t *testing.T) {
	testhelper.RequireCommand(t, "sh")
	var stdout bytes.Buffer
	p := &CommandPipeline{Stdout: &stdout}
	job := importjob.Descriptor{
		Code:    "family",
		Command: []string{"sh", "-c", "echo $" + EnvJobCode + " $" + EnvRunID},
	}
	if err := p.Run(t.Context(), job, "run-42"); err != nil {
		t.Fatal(err)
	}
	if got, want := strings.TrimSpace(stdout.String()), "family run-42"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestCommandPipeline_NoCommand(t *testing.T) {
	p := &CommandPipeline{}
	err := p.Run(t.Context(), importjob.Descriptor{Code: "category"}, "run-1")
	if !errors.Is(err, ErrNoPipeline) {
		t.Errorf("Run() error = %v, want %v", err, ErrNoPipeline)
	}
}

func TestExecute_CommandPipelineFailure(t *testing.T) {
	testhelper.RequireCommand(t, "sh")
	mock := &command.MockCommander{DefaultErr: errors.New("exit 1")}
	ctx := mock.InjectContext(t.Context())
	store, err := jobstore.Open(ctx, config.Database{Driver: config.DriverSQLite, Path: filepath.Join(t.TempDir(), "c.db")})
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	if err := store.Seed(ctx, []importjob.Descriptor{{Code: "category", Command: []string{"pim-import"}}}); err != nil {
		t.Fatal(err)
	}
	e := New(store, &CommandPipeline{})
	if err := e.Execute(ctx, "category"); err == nil {
		t.Fatal("expected error, got nil")
	}
	job, err := store.Get(ctx, "category")
	if err != nil {
		t.Fatal(err)
	}
	if job.Status != importjob.StatusError {
		t.Errorf("status = %s, want %s", job.Status, importjob.StatusError)
	}
}

func TestExecute_StaleRunAfterRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "connector.db")
	cfg := config.Database{Driver: config.DriverSQLite, Path: path}
	store, err := jobstore.Open(t.Context(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Seed(t.Context(), importjob.Defaults()); err != nil {
		t.Fatal(err)
	}
	// A process that was killed after starting the run never finishes it.
	if _, err := store.StartRun(t.Context(), "product", "killed-run", time.Unix(1700000000, 0), time.Time{}); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	store, err = jobstore.Open(t.Context(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	if err := store.Seed(t.Context(), importjob.Defaults()); err != nil {
		t.Fatal(err)
	}
	for _, test := range []struct {
		name       string
		staleAfter time.Duration
		elapsed    time.Duration
		wantErr    error
	}{
		{
			name:    "no stale limit",
			elapsed: 48 * time.Hour,
			wantErr: ErrJobAlreadyRunning,
		},
		{
			name:       "within the stale limit",
			staleAfter: 12 * time.Hour,
			elapsed:    time.Hour,
			wantErr:    ErrJobAlreadyRunning,
		},
		{
			name:       "past the stale limit",
			staleAfter: 12 * time.Hour,
			elapsed:    13 * time.Hour,
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			pipeline := &fakePipeline{}
			e := New(store, pipeline).WithStaleAfter(test.staleAfter)
			e.now = func() time.Time { return time.Unix(1700000000, 0).Add(test.elapsed) }
			e.newID = func() string { return "run-" + test.name }
			if err := e.Execute(t.Context(), "product"); !errors.Is(err, test.wantErr) {
				t.Fatalf("Execute() error = %v, want %v", err, test.wantErr)
			}
		})
	}

	runs, err := store.Runs(t.Context(), "product")
	if err != nil {
		t.Fatal(err)
	}
	want := []jobstore.Run{
		{ID: "run-past the stale limit", Code: "product", Status: importjob.StatusSuccess},
		{ID: "killed-run", Code: "product", Status: importjob.StatusError, Message: jobstore.InterruptedMessage},
	}
	if diff := cmp.Diff(want, runs, cmpopts.IgnoreFields(jobstore.Run{}, "StartedAt", "FinishedAt")); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

type cancelingPipeline struct {
	cancel context.CancelFunc
}

func (p *cancelingPipeline) Run(ctx context.Context, job importjob.Descriptor, runID string) error {
	p.cancel()
	<-ctx.Done()
	return ctx.Err()
}

func TestExecute_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	e, store := newTestExecutor(t, &cancelingPipeline{cancel: cancel})
	if err := e.Execute(ctx, "family"); !errors.Is(err, context.Canceled) {
		t.Fatalf("Execute() error = %v, want %v", err, context.Canceled)
	}
	job, err := store.Get(t.Context(), "family")
	if err != nil {
		t.Fatal(err)
	}
	if job.Status != importjob.StatusError {
		t.Errorf("status = %s, want %s", job.Status, importjob.StatusError)
	}
	// The job is not left processing, so the next invocation can run it.
	e.pipeline = &fakePipeline{}
	if err := e.Execute(t.Context(), "family"); err != nil {
		t.Errorf("rerun after cancellation: %v", err)
	}
}

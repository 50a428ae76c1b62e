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

// Package command runs external programs.
package command

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"strings"
)

// execCommand is replaced by [MockCommander] in tests.
var execCommand = exec.CommandContext

// Options control how a program is started.
type Options struct {
	// Dir is the working directory. Empty means the current directory.
	Dir string
	// Env is added to the environment of the current process.
	Env map[string]string
	// Stdout and Stderr receive the program output as it is produced. Stderr
	// is also captured and included in the returned error.
	Stdout io.Writer
	Stderr io.Writer
}

// RunWithOptions runs the program as described by opts.
func RunWithOptions(ctx context.Context, opts Options, name string, arg ...string) error {
	cmd := execCommand(ctx, name, arg...)
	cmd.Dir = opts.Dir
	if len(opts.Env) > 0 {
		cmd.Env = append(os.Environ(), formatEnv(opts.Env)...)
	}
	var stderr bytes.Buffer
	cmd.Stdout = opts.Stdout
	cmd.Stderr = &stderr
	if opts.Stderr != nil {
		cmd.Stderr = io.MultiWriter(&stderr, opts.Stderr)
	}
	slog.Debug("running command", "command", FormatCmd(name, arg...), "dir", opts.Dir)
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return fmt.Errorf("%s: %w", FormatCmd(name, arg...), err)
		}
		return fmt.Errorf("%s: %w\n%s", FormatCmd(name, arg...), err, msg)
	}
	return nil
}

func formatEnv(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

// FormatCmd returns the command line as a single string.
func FormatCmd(name string, arg ...string) string {
	return strings.Join(append([]string{name}, arg...), " ")
}

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

package command

import (
	"context"
	"os/exec"
	"sync"
)

// MockCommander records the programs started through this package and
// replaces them with a shell that succeeds or fails on demand. It is safe
// for parallel tests: each test injects its own instance into its context.
type MockCommander struct {
	mu sync.Mutex
	// GotCommands are the command lines that were run, in order.
	GotCommands [][]string
	// Errors maps a [FormatCmd] string to the error the program reports.
	Errors map[string]error
	// DefaultErr is reported by programs that have no entry in Errors.
	DefaultErr error
}

type contextKey struct{}

var (
	installOnce sync.Once
	realExec    = exec.CommandContext
)

// InjectContext returns a context that routes every program started with it
// to m.
func (m *MockCommander) InjectContext(ctx context.Context) context.Context {
	installOnce.Do(func() {
		execCommand = func(ctx context.Context, name string, arg ...string) *exec.Cmd {
			if mock, ok := ctx.Value(contextKey{}).(*MockCommander); ok {
				return mock.command(ctx, name, arg...)
			}
			return realExec(ctx, name, arg...)
		}
	})
	return context.WithValue(ctx, contextKey{}, m)
}

// Commands returns a copy of GotCommands.
func (m *MockCommander) Commands() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]string(nil), m.GotCommands...)
}

func (m *MockCommander) command(ctx context.Context, name string, arg ...string) *exec.Cmd {
	m.mu.Lock()
	m.GotCommands = append(m.GotCommands, append([]string{name}, arg...))
	err, ok := m.Errors[FormatCmd(name, arg...)]
	if !ok {
		err = m.DefaultErr
	}
	m.mu.Unlock()

	if err != nil {
		return realExec(ctx, "sh", "-c", `printf '%s\n' "$1" >&2; exit 1`, "sh", err.Error())
	}
	return realExec(ctx, "true")
}

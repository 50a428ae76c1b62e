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

// Package testhelper provides helper functions for tests.
// These are used across packages
package testhelper

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/jbclaudio/magento2-connector-community/internal/importjob"
	"github.com/jbclaudio/magento2-connector-community/internal/yaml"
)

// RequireCommand skips the test if the specified command is not found in PATH.
// Use this to skip tests that run import job commands through a shell, so
// that `go test ./...` will always pass on a minimal machine.
func RequireCommand(t *testing.T, cmd string) {
	t.Helper()
	if _, err := exec.LookPath(cmd); err != nil {
		t.Skipf("skipping test because %s is not installed", cmd)
	}
}

// WriteCatalog writes jobs as a YAML catalog named jobs.yaml in dir and
// returns its path.
func WriteCatalog(t *testing.T, dir string, jobs []importjob.Descriptor) string {
	t.Helper()
	path := filepath.Join(dir, "jobs.yaml")
	if err := yaml.Write(path, &importjob.Catalog{Jobs: jobs}); err != nil {
		t.Fatal(err)
	}
	return path
}

// WriteFile writes content to name under dir, creating parent directories,
// and returns the full path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

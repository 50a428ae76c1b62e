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

package importjob

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jbclaudio/magento2-connector-community/internal/yaml"
	"github.com/pelletier/go-toml/v2"
)

var (
	errUnsupportedCatalog = errors.New("unsupported catalog format")
	errEmptyCode          = errors.New("job code must not be empty")
	errDuplicateCode      = errors.New("duplicate job code")
	errCodeHasComma       = errors.New("job code must not contain a comma")
)

// Catalog is the on-disk list of import jobs.
type Catalog struct {
	Jobs []Descriptor `yaml:"jobs" toml:"jobs"`
}

// ReadCatalog loads the catalog at path. The format is chosen from the file
// extension: .yaml, .yml or .toml. Jobs without a position are placed after
// the previous job in file order. The returned jobs are sorted.
func ReadCatalog(path string) ([]Descriptor, error) {
	var (
		catalog *Catalog
		err     error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		catalog, err = yaml.Read[Catalog](path)
	case ".toml":
		catalog, err = readTOML(path)
	default:
		return nil, fmt.Errorf("%w: %q", errUnsupportedCatalog, path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	if err := Validate(catalog.Jobs); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	jobs := catalog.Jobs
	last := 0
	for i := range jobs {
		if jobs[i].Position == 0 {
			jobs[i].Position = last + 1
		}
		last = jobs[i].Position
	}
	Sort(jobs)
	return jobs, nil
}

func readTOML(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Catalog
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &c, nil
}

// Validate reports an error for an empty code, a code containing a comma or a
// code that appears twice.
func Validate(jobs []Descriptor) error {
	seen := make(map[string]bool, len(jobs))
	for i, j := range jobs {
		switch {
		case strings.TrimSpace(j.Code) == "":
			return fmt.Errorf("job %d: %w", i, errEmptyCode)
		case strings.Contains(j.Code, ","):
			return fmt.Errorf("job %q: %w", j.Code, errCodeHasComma)
		case seen[j.Code]:
			return fmt.Errorf("%w: %q", errDuplicateCode, j.Code)
		}
		seen[j.Code] = true
	}
	return nil
}

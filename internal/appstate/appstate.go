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

// Package appstate holds the application run context (the "area") that a
// command executes in.
package appstate

import (
	"errors"
	"fmt"
	"sync"
)

// Area identifies the permission and configuration scope of the current
// execution.
type Area string

const (
	// AreaGlobal is the scope shared by every other area.
	AreaGlobal Area = "global"
	// AreaAdminhtml is the administrative scope import jobs run in.
	AreaAdminhtml Area = "adminhtml"
	// AreaFrontend is the storefront scope.
	AreaFrontend Area = "frontend"
	// AreaCrontab is the scope of scheduled tasks.
	AreaCrontab Area = "crontab"
)

// Errors reported by [State].
var (
	// ErrAreaCodeAlreadySet is returned by [State.SetAreaCode] when the area
	// was set earlier in the process.
	ErrAreaCodeAlreadySet = errors.New("area code is already set")
	// ErrInvalidArea is returned for an area that is not one of the known
	// constants.
	ErrInvalidArea = errors.New("invalid area code")
)

// ParseArea converts s into a known Area.
func ParseArea(s string) (Area, error) {
	switch a := Area(s); a {
	case AreaGlobal, AreaAdminhtml, AreaFrontend, AreaCrontab:
		return a, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidArea, s)
	}
}

// State is the process-wide run context. The area can be set once; the zero
// value is ready to use.
type State struct {
	mu   sync.Mutex
	area Area
}

// SetAreaCode sets the area for the rest of the process lifetime.
func (s *State) SetAreaCode(area Area) error {
	if _, err := ParseArea(string(area)); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.area != "" {
		return fmt.Errorf("%w: %s", ErrAreaCodeAlreadySet, s.area)
	}
	s.area = area
	return nil
}

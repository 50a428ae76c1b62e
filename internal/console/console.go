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

// Package console writes styled lines to a command's output.
package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Output writes lines with semantic styles. Styles are only applied when the
// writer is a terminal.
type Output struct {
	w        io.Writer
	info     lipgloss.Style
	comment  lipgloss.Style
	errStyle lipgloss.Style
	styled   bool
}

// New returns an Output writing to w.
func New(w io.Writer) *Output {
	r := lipgloss.NewRenderer(w)
	return &Output{
		w:        w,
		info:     r.NewStyle().Foreground(lipgloss.Color("2")),
		comment:  r.NewStyle().Foreground(lipgloss.Color("3")),
		errStyle: r.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("1")),
		styled:   isTerminal(w),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Writeln writes msg followed by a newline, without styling. An empty msg
// writes a blank line.
func (o *Output) Writeln(msg string) error {
	_, err := fmt.Fprintln(o.w, msg)
	return err
}

// Info writes msg in the info style. Blank messages are ignored.
func (o *Output) Info(msg string) error {
	return o.display(o.info, msg)
}

// Comment writes msg in the comment style. Blank messages are ignored.
func (o *Output) Comment(msg string) error {
	return o.display(o.comment, msg)
}

// Error writes msg in the error style. Blank messages are ignored.
func (o *Output) Error(msg string) error {
	return o.display(o.errStyle, msg)
}

func (o *Output) display(style lipgloss.Style, msg string) error {
	if strings.TrimSpace(msg) == "" {
		return nil
	}
	if o.styled {
		msg = style.Render(msg)
	}
	return o.Writeln(msg)
}

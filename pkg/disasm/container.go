// Copyright © 2019 mg
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package disasm

import (
	"fmt"
	"strings"

	"github.com/mg6502/gilgamesh/pkg/errgm"
	"github.com/mg6502/gilgamesh/pkg/log"
)

// SubroutineDisassembly is the per-subroutine textual view: one
// subroutine's rendering and edit pipeline.
type SubroutineDisassembly struct {
	SubroutinePC uint32
	Log          *log.Log
}

// Render returns the canonical text for this subroutine.
func (d SubroutineDisassembly) Render() (string, error) {
	sub, ok := d.Log.Subroutine(d.SubroutinePC)
	if !ok {
		return "", fmt.Errorf("disasm: no subroutine at $%06X", d.SubroutinePC)
	}
	return RenderSubroutine(sub, d.Log), nil
}

// ApplyEdits diffs editedText against the current rendering and commits
// the resulting Edit to the Log in one step.
func (d SubroutineDisassembly) ApplyEdits(editedText string) error {
	sub, ok := d.Log.Subroutine(d.SubroutinePC)
	if !ok {
		return fmt.Errorf("disasm: no subroutine at $%06X", d.SubroutinePC)
	}
	edit, err := ApplyEdits(sub, d.Log, editedText)
	if err != nil {
		return err
	}
	return edit.Commit(sub, d.Log)
}

// ROMDisassembly is the whole-ROM textual view: every subroutine in pc
// order, separated by separatorLine.
type ROMDisassembly struct {
	Log *log.Log
}

// Render returns the canonical text for the whole ROM.
func (d ROMDisassembly) Render() string {
	return RenderROM(d.Log)
}

// ApplyEdits splits editedText back into one segment per subroutine (by
// separatorLine) and runs each segment through the per-subroutine edit
// pipeline, lifting every discovered rename to the global Log rather than
// treating it as scoped to whichever subroutine's segment it appeared in.
func (d ROMDisassembly) ApplyEdits(editedText string) error {
	subs := d.Log.Subroutines()
	segments := strings.Split(editedText, separatorLine+"\n")
	if len(segments) != len(subs) {
		return errgm.NewParserError(
			fmt.Sprintf("expected %d subroutine segments, got %d", len(subs), len(segments)), 0)
	}

	var allEdits []*Edit
	for i, sub := range subs {
		edit, err := ApplyEdits(sub, d.Log, segments[i])
		if err != nil {
			return err
		}
		allEdits = append(allEdits, edit)
	}

	for i, sub := range subs {
		if err := allEdits[i].Commit(sub, d.Log); err != nil {
			return err
		}
	}
	return nil
}

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
	"github.com/mg6502/gilgamesh/pkg/ir"
	"github.com/mg6502/gilgamesh/pkg/log"
	"github.com/mg6502/gilgamesh/pkg/state"
)

// Rename is one proposed label rename discovered from a LABEL or
// OPERAND_LABEL token edit, not yet validated for global uniqueness.
type Rename struct {
	Old, New     string
	SubroutinePC uint32
}

// Edit collects every change ApplyEdits found between the original
// rendering of a subroutine and an edited copy of its text, not yet
// written back to the Log.
type Edit struct {
	Comments              map[uint32]string
	Renames               []Rename
	InstructionAssertions map[uint32]state.StateChange
	InstructionDeasserts  map[uint32]bool
	SubroutineAsserted    bool
	SubroutineChange      state.StateChange
	SubroutineDeassert    bool
}

func newEdit() *Edit {
	return &Edit{
		Comments:              map[uint32]string{},
		InstructionAssertions: map[uint32]state.StateChange{},
		InstructionDeasserts:  map[uint32]bool{},
	}
}

// ApplyEdits diffs editedText against sub's canonical rendering and
// returns the Edit it implies, or a *errgm.ParserError pinned to the
// first line that doesn't round-trip.
func ApplyEdits(sub *ir.Subroutine, l *log.Log, editedText string) (*Edit, error) {
	original := SubroutineTokens(sub, l)
	edited, err := Parse(editedText)
	if err != nil {
		return nil, err
	}
	if len(original) != len(edited) {
		return nil, errgm.NewParserError(
			fmt.Sprintf("expected %d lines, got %d", len(original), len(edited)), 0)
	}

	edit := newEdit()
	for i := range original {
		if err := diffLine(original[i], edited[i], sub.PC, edit); err != nil {
			return nil, err
		}
	}
	return edit, nil
}

func diffLine(orig, got []Token, subroutinePC uint32, edit *Edit) error {
	if len(orig) != len(got) {
		ln := 0
		if len(got) > 0 {
			ln = got[len(got)-1].Line
		}
		return errgm.NewParserError("token count mismatch", ln)
	}
	for i := range orig {
		o, g := orig[i], got[i]
		if o.Type != g.Type {
			return errgm.NewParserError(
				fmt.Sprintf("expected %s, found %s", o.Type, g.Type), g.Line)
		}
		switch o.Type {
		case NEWLINE:
			continue
		case COMMENT:
			if o.Val != g.Val {
				edit.Comments[o.PC] = strings.TrimSpace(strings.TrimPrefix(g.Val, ";"))
			}
		case LABEL:
			oldName := strings.TrimSuffix(o.Val, ":")
			newName := strings.TrimSuffix(g.Val, ":")
			if oldName != newName {
				edit.Renames = append(edit.Renames, Rename{Old: oldName, New: newName, SubroutinePC: subroutinePC})
			}
		case OPERAND_LABEL:
			if o.Val != g.Val {
				edit.Renames = append(edit.Renames, Rename{Old: o.Val, New: g.Val, SubroutinePC: subroutinePC})
			}
		case ASSERTION_TYPE:
			// Paired with the following ASSERTION token; handled there.
			// A change of type alone, with the assertion text left as it
			// was, records no edit.
			if o.Val != g.Val && i+1 >= len(orig) {
				return errgm.NewParserError("assertion type with no assertion value", g.Line)
			}
		case ASSERTION:
			assertionType := got[i-1].Val
			if err := applyAssertionEdit(edit, assertionType, o.Val, g.Val, o.PC, subroutinePC); err != nil {
				return &errgm.ParserError{Message: err.Error(), Line: g.Line, HasLine: true}
			}
		default:
			if o.Val != g.Val {
				return errgm.NewParserError(
					fmt.Sprintf("%s is read-only", o.Type), g.Line)
			}
		}
	}
	return nil
}

func applyAssertionEdit(edit *Edit, assertionType, oldExpr, newExpr string, pc, subroutinePC uint32) error {
	if oldExpr == newExpr {
		return nil
	}
	if newExpr == "none" || newExpr == "unknown" {
		switch assertionType {
		case "instruction":
			edit.InstructionDeasserts[pc] = true
		case "subroutine":
			edit.SubroutineDeassert = true
		}
		return nil
	}
	change, err := state.Parse(newExpr, false)
	if err != nil {
		return fmt.Errorf("%w: %v", errgm.ErrInvalidAssertion, err)
	}
	change.Asserted = true
	switch assertionType {
	case "instruction":
		edit.InstructionAssertions[pc] = change
	case "subroutine":
		edit.SubroutineAsserted = true
		edit.SubroutineChange = change
	default:
		return fmt.Errorf("%w: assertion present under type %q", errgm.ErrInvalidAssertion, assertionType)
	}
	return nil
}

// Commit writes edit back into l: comments unconditionally, assertions
// immediately, and renames via the bulk two-phase pipeline (so a single
// subroutine's edit that swaps two label names still round-trips).
func (e *Edit) Commit(sub *ir.Subroutine, l *log.Log) error {
	for pc, comment := range e.Comments {
		l.Comments[pc] = comment
	}
	for pc, change := range e.InstructionAssertions {
		l.AssertInstructionStateChange(pc, change)
	}
	for pc := range e.InstructionDeasserts {
		l.DeassertInstructionStateChange(pc)
	}
	if e.SubroutineAsserted {
		for returnPC := range sub.StateChanges {
			l.AssertSubroutineStateChange(sub.PC, returnPC, e.SubroutineChange)
		}
	}
	if e.SubroutineDeassert {
		for returnPC := range sub.StateChanges {
			l.DeassertSubroutineStateChange(sub.PC, returnPC)
		}
	}
	return ApplyRenames(l, e.Renames)
}

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

package log

import (
	"errors"
	"testing"

	"github.com/mg6502/gilgamesh/pkg/errgm"
	"github.com/mg6502/gilgamesh/pkg/ir"
	"github.com/mg6502/gilgamesh/pkg/state"
)

func TestGenerateLabels_ScopesLocalLabelsPerSubroutine(t *testing.T) {
	l := New(nil)
	l.AddSubroutine(0x8000, 0, "main", true)
	instr := &ir.Instruction{ID: ir.InstructionID{PC: 0x8000, SubroutinePC: 0x8000}, SubroutinePC: 0x8000}
	l.AddReference(instr, 0x8010)

	l.GenerateLabels()

	if got := l.GetLabel(0x8010, 0x8000); got != ".loc_008010" {
		t.Errorf("GetLabel($8010) = %q, want %q", got, ".loc_008010")
	}
	if got := l.GetLabel(0x8010, 0x9000); got != "" {
		t.Errorf("GetLabel($8010) scoped to an unrelated subroutine = %q, want empty", got)
	}
}

func TestGenerateLabels_SkipsSubroutineEntryPoints(t *testing.T) {
	l := New(nil)
	l.AddSubroutine(0x8000, 0, "main", true)
	l.AddSubroutine(0x9000, 0, "helper", true)
	instr := &ir.Instruction{ID: ir.InstructionID{PC: 0x8000, SubroutinePC: 0x8000}, SubroutinePC: 0x8000}
	l.AddReference(instr, 0x9000)

	l.GenerateLabels()

	if got := l.GetLabel(0x9000, 0x8000); got != "helper" {
		t.Errorf("GetLabel($9000) = %q, want the subroutine's own label %q", got, "helper")
	}
}

func TestRenameLabel_GlobalForSubroutinesScopedForLocals(t *testing.T) {
	l := New(nil)
	l.AddSubroutine(0x8000, 0, "main", true)
	if err := l.RenameLabel("main", "entry_point", 0); err != nil {
		t.Fatalf("RenameLabel(subroutine) error: %v", err)
	}
	if _, ok := l.SubroutinesByLabel["entry_point"]; !ok {
		t.Errorf("SubroutinesByLabel missing %q after rename", "entry_point")
	}

	instr := &ir.Instruction{ID: ir.InstructionID{PC: 0x8000, SubroutinePC: 0x8000}, SubroutinePC: 0x8000}
	l.AddReference(instr, 0x8010)
	l.GenerateLabels()
	if err := l.RenameLabel("loc_008010", "loop_top", 0x8000); err != nil {
		t.Fatalf("RenameLabel(local) error: %v", err)
	}
	if got := l.GetLabel(0x8010, 0x8000); got != ".loop_top" {
		t.Errorf("GetLabel($8010) after rename = %q, want %q", got, ".loop_top")
	}
}

func TestRenameLabel_UnknownNameIsAnError(t *testing.T) {
	l := New(nil)
	if err := l.RenameLabel("nope", "whatever", 0); err == nil {
		t.Errorf("RenameLabel(unknown) = nil error, want an error")
	}
}

func TestRenameLabel_AutoNamePrefixIsRejected(t *testing.T) {
	l := New(nil)
	l.AddSubroutine(0x8000, 0, "main", true)
	if err := l.RenameLabel("main", "sub_001234", 0); !errors.Is(err, errgm.ErrInvalidLabel) {
		t.Errorf("RenameLabel(to sub_-prefixed) = %v, want errgm.ErrInvalidLabel", err)
	}
	if err := l.RenameLabel("main", "loc_001234", 0); !errors.Is(err, errgm.ErrInvalidLabel) {
		t.Errorf("RenameLabel(to loc_-prefixed) = %v, want errgm.ErrInvalidLabel", err)
	}
}

func TestRenameLabel_ReservedRegisterAliasIsRejected(t *testing.T) {
	l := New(nil)
	l.AddSubroutine(0x8000, 0, "main", true)
	if err := l.RenameLabel("main", "x", 0); !errors.Is(err, errgm.ErrInvalidLabel) {
		t.Errorf("RenameLabel(to reserved register alias) = %v, want errgm.ErrInvalidLabel", err)
	}
}

func TestRenameLabel_SameScopeCollisionIsRejected(t *testing.T) {
	l := New(nil)
	l.AddSubroutine(0x8000, 0, "main", true)
	instr := &ir.Instruction{ID: ir.InstructionID{PC: 0x8000, SubroutinePC: 0x8000}, SubroutinePC: 0x8000}
	l.AddReference(instr, 0x8010)
	l.AddReference(instr, 0x8020)
	l.GenerateLabels()

	if err := l.RenameLabel("loc_008010", "shared_name", 0x8000); err != nil {
		t.Fatalf("RenameLabel(first) error: %v", err)
	}
	if err := l.RenameLabel("loc_008020", "shared_name", 0x8000); !errors.Is(err, errgm.ErrInvalidLabel) {
		t.Errorf("RenameLabel(colliding local name) = %v, want errgm.ErrInvalidLabel", err)
	}
	if got, _ := l.GetLabelValue("shared_name", 0x8000, true); got != 0x8010 {
		t.Errorf("shared_name still resolves to %#x, want the first rename's $8010 untouched by the rejected second rename", got)
	}
}

func TestReset_PreservesLabelsAcrossReanalysis(t *testing.T) {
	l := New(nil)
	l.AddSubroutine(0x8000, 0, "main", true)
	if err := l.RenameLabel("main", "boot", 0); err != nil {
		t.Fatalf("RenameLabel() error: %v", err)
	}

	l.Reset()
	sub := l.AddSubroutine(0x8000, 0, "main", true)
	if sub.Label != "boot" {
		t.Errorf("Subroutine label after Reset()+AddSubroutine() = %q, want preserved %q", sub.Label, "boot")
	}
}

func TestAssertInstructionStateChange_MarksDirty(t *testing.T) {
	l := New(nil)
	l.Dirty = false
	l.AssertInstructionStateChange(0x8000, state.NoneChange)
	if !l.Dirty {
		t.Errorf("Dirty = false after AssertInstructionStateChange, want true")
	}
}

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
	"strings"
	"testing"

	"github.com/mg6502/gilgamesh/pkg/ir"
	"github.com/mg6502/gilgamesh/pkg/log"
	"github.com/mg6502/gilgamesh/pkg/opcode"
	"github.com/mg6502/gilgamesh/pkg/state"
)

func buildTestSubroutine(t *testing.T) (*log.Log, *ir.Subroutine) {
	t.Helper()
	l := log.New(nil)
	sub := l.AddSubroutine(0x8000, 0, "main", true)

	entry := ir.State{P: state.NewMX(true, false)}
	lda := &ir.Instruction{
		ID:           ir.InstructionID{PC: 0x8000, P: entry.P.P, SubroutinePC: 0x8000},
		Opcode:       0xA9,
		Op:           opcode.LDA,
		Mode:         opcode.ImmediateM,
		Size:         2,
		Argument:     0x42,
		EntryState:   entry,
		SubroutinePC: 0x8000,
	}
	l.AddInstruction(lda)

	rts := &ir.Instruction{
		ID:           ir.InstructionID{PC: 0x8002, P: entry.P.P, SubroutinePC: 0x8000},
		Opcode:       0x60,
		Op:           opcode.RTS,
		Mode:         opcode.Implied,
		Size:         1,
		EntryState:   entry,
		SubroutinePC: 0x8000,
	}
	l.AddInstruction(rts)

	l.AddSubroutineState(0x8000, 0x8002, state.NoneChange)
	return l, sub
}

func TestRenderSubroutine_RoundTripsWithNoEdits(t *testing.T) {
	l, sub := buildTestSubroutine(t)
	text := RenderSubroutine(sub, l)

	edit, err := ApplyEdits(sub, l, text)
	if err != nil {
		t.Fatalf("ApplyEdits() on unedited text = %v, want no error", err)
	}
	if len(edit.Comments) != 0 || len(edit.Renames) != 0 || len(edit.InstructionAssertions) != 0 ||
		len(edit.InstructionDeasserts) != 0 || edit.SubroutineAsserted || edit.SubroutineDeassert {
		t.Errorf("ApplyEdits() on unedited text = %+v, want a no-op edit", edit)
	}
}

func TestRenderSubroutine_StateLineCarriesLiteralPrefix(t *testing.T) {
	l, sub := buildTestSubroutine(t)
	text := RenderSubroutine(sub, l)
	if !strings.Contains(text, "; state: none none") {
		t.Errorf("rendered text = %q, want a line containing %q", text, "; state: none none")
	}
}

func TestApplyEdits_DetectsCommentTextChange(t *testing.T) {
	l, sub := buildTestSubroutine(t)
	l.Comments[0x8000] = "old note"
	text := RenderSubroutine(sub, l)
	edited := strings.Replace(text, "; old note", "; new note", 1)

	edit, err := ApplyEdits(sub, l, edited)
	if err != nil {
		t.Fatalf("ApplyEdits() error: %v", err)
	}
	if got := edit.Comments[0x8000]; got != "new note" {
		t.Errorf("edit.Comments[$8000] = %q, want %q", got, "new note")
	}
}

func TestApplyEdits_DetectsSubroutineStateAssertion(t *testing.T) {
	l, sub := buildTestSubroutine(t)
	text := RenderSubroutine(sub, l)
	edited := strings.Replace(text, "; state: none none\n", "; state: subroutine m=0\n", 1)

	edit, err := ApplyEdits(sub, l, edited)
	if err != nil {
		t.Fatalf("ApplyEdits() error: %v", err)
	}
	if !edit.SubroutineAsserted {
		t.Errorf("edit.SubroutineAsserted = false, want true")
	}
	if edit.SubroutineChange.Render() != "m=0" {
		t.Errorf("edit.SubroutineChange = %s, want m=0", edit.SubroutineChange.Render())
	}
}

func TestApplyEdits_RejectsLineCountMismatch(t *testing.T) {
	l, sub := buildTestSubroutine(t)
	text := RenderSubroutine(sub, l)
	edited := text + "$008004 NOP\n"

	if _, err := ApplyEdits(sub, l, edited); err == nil {
		t.Errorf("ApplyEdits() with an extra line = nil error, want a parser error")
	}
}

func TestApplyRenames_SwapsTwoNamesAtomically(t *testing.T) {
	l := log.New(nil)
	l.AddSubroutine(0x8000, 0, "alpha", true)
	l.AddSubroutine(0x9000, 0, "beta", true)

	renames := []Rename{
		{Old: "alpha", New: "beta"},
		{Old: "beta", New: "alpha"},
	}
	if err := ApplyRenames(l, renames); err != nil {
		t.Fatalf("ApplyRenames() error: %v", err)
	}
	if _, ok := l.Subroutine(0x8000); !ok {
		t.Fatalf("subroutine at $8000 vanished after swap")
	}
	alphaSub, ok := l.SubroutinesByLabel["alpha"]
	if !ok || alphaSub.PC != 0x9000 {
		t.Errorf("label %q = %v, want the subroutine originally at $9000", "alpha", alphaSub)
	}
	betaSub, ok := l.SubroutinesByLabel["beta"]
	if !ok || betaSub.PC != 0x8000 {
		t.Errorf("label %q = %v, want the subroutine originally at $8000", "beta", betaSub)
	}
}

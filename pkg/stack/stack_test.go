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

package stack

import (
	"testing"

	"github.com/mg6502/gilgamesh/pkg/ir"
	"github.com/mg6502/gilgamesh/pkg/state"
)

func TestStack_PushPopTopmostFirst(t *testing.T) {
	s := New()
	writer := ir.InstructionID{PC: 0x8000}
	s.Push(writer, Literal{Value: 0x11}, 1)
	s.Push(writer, Literal{Value: 0x22}, 1)

	if got := s.Len(); got != 2 {
		t.Fatalf("Len() = %d, want 2", got)
	}
	cells := s.Pop(2)
	if lit, ok := cells[0].Payload.(Literal); !ok || lit.Value != 0x22 {
		t.Errorf("Pop()[0] = %v, want Literal{0x22} (topmost-first)", cells[0])
	}
	if lit, ok := cells[1].Payload.(Literal); !ok || lit.Value != 0x11 {
		t.Errorf("Pop()[1] = %v, want Literal{0x11}", cells[1])
	}
	if got := s.Len(); got != 0 {
		t.Errorf("Len() after popping everything = %d, want 0", got)
	}
}

func TestStack_CopyIsIndependent(t *testing.T) {
	s := New()
	writer := ir.InstructionID{PC: 0x8000}
	s.Push(writer, Empty, 2)

	cp := s.Copy()
	cp.Push(writer, Empty, 1)

	if got := s.Len(); got != 2 {
		t.Errorf("original Len() after mutating the copy = %d, want unchanged 2", got)
	}
	if got := cp.Len(); got != 3 {
		t.Errorf("copy Len() = %d, want 3", got)
	}
}

func TestStack_SavedStatePayloadRoundTrips(t *testing.T) {
	s := New()
	writer := ir.InstructionID{PC: 0x8000}
	saved := SavedState{State: state.NewMX(true, false), Change: state.Known(state.True, nil)}
	s.Push(writer, saved, 1)

	cell := s.PopOne()
	got, ok := cell.Payload.(SavedState)
	if !ok {
		t.Fatalf("Payload type = %T, want SavedState", cell.Payload)
	}
	if got.State != saved.State {
		t.Errorf("State = %v, want %v", got.State, saved.State)
	}
	if !got.Change.Equal(saved.Change) {
		t.Errorf("Change = %s, want %s", got.Change.Render(), saved.Change.Render())
	}
}

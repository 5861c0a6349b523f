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

package ir

import (
	"testing"

	"github.com/mg6502/gilgamesh/pkg/opcode"
	"github.com/mg6502/gilgamesh/pkg/state"
)

func TestSubroutine_InstructionsOrderedByPC(t *testing.T) {
	sub := NewSubroutine(0x8000, "main")
	sub.AddInstruction(&Instruction{ID: InstructionID{PC: 0x8005}})
	sub.AddInstruction(&Instruction{ID: InstructionID{PC: 0x8000}})
	sub.AddInstruction(&Instruction{ID: InstructionID{PC: 0x8002}})

	got := sub.Instructions()
	want := []uint32{0x8000, 0x8002, 0x8005}
	for i, pc := range want {
		if got[i].ID.PC != pc {
			t.Errorf("Instructions()[%d].ID.PC = $%06X, want $%06X", i, got[i].ID.PC, pc)
		}
	}
}

func TestUnifiedStateChange_AgreeingReturnsUnify(t *testing.T) {
	sub := NewSubroutine(0x8000, "main")
	sub.StateChanges[0x8010] = state.Known(state.True, nil)
	sub.StateChanges[0x8020] = state.Known(state.True, nil)

	unified, ok := sub.UnifiedStateChange()
	if !ok {
		t.Fatalf("UnifiedStateChange() ok = false, want true for two agreeing returns")
	}
	if unified.M == nil || !*unified.M {
		t.Errorf("UnifiedStateChange() = %s, want m=1", unified.Render())
	}
}

func TestUnifiedStateChange_ConflictingReturnsFail(t *testing.T) {
	sub := NewSubroutine(0x8000, "main")
	sub.StateChanges[0x8010] = state.Known(state.True, nil)
	sub.StateChanges[0x8020] = state.Known(state.False, nil)

	if _, ok := sub.UnifiedStateChange(); ok {
		t.Errorf("UnifiedStateChange() ok = true, want false for conflicting returns")
	}
}

func TestUnifiedStateChange_MoreThanOneUnknownFails(t *testing.T) {
	sub := NewSubroutine(0x8000, "main")
	sub.StateChanges[0x8010] = state.Unknown(state.ReasonStackManipulation)
	sub.StateChanges[0x8020] = state.Unknown(state.ReasonIndirectJump)

	if _, ok := sub.UnifiedStateChange(); ok {
		t.Errorf("UnifiedStateChange() ok = true, want false for two distinct unknowns")
	}
}

func TestSimplifyReturnStates_NoReturnsMeansRecursive(t *testing.T) {
	sub := NewSubroutine(0x8000, "main")

	out, recursive := sub.SimplifyReturnStates(state.State{})
	if !recursive {
		t.Errorf("recursive = false, want true for a subroutine with no observed returns")
	}
	if !sub.IsRecursive {
		t.Errorf("sub.IsRecursive = false, want true")
	}
	if len(out) != 1 || !out[0].IsUnknown || out[0].Reason != state.ReasonRecursion {
		t.Errorf("SimplifyReturnStates() = %v, want a single Unknown(ReasonRecursion)", out)
	}
}

func TestSimplifyReturnStates_SimplifiesAgainstCallerState(t *testing.T) {
	sub := NewSubroutine(0x8000, "main")
	sub.StateChanges[0x8010] = state.Known(state.True, nil)

	out, recursive := sub.SimplifyReturnStates(state.NewMX(true, false))
	if recursive {
		t.Errorf("recursive = true, want false: the subroutine did return")
	}
	if len(out) != 1 || out[0].M != nil {
		t.Errorf("SimplifyReturnStates() = %v, want m dropped since caller state already has m=1", out)
	}
}

func TestDoesSaveStateInIncipit_TrueWhenPHPLeadsBeforeControlFlow(t *testing.T) {
	sub := NewSubroutine(0x8000, "main")
	sub.AddInstruction(&Instruction{ID: InstructionID{PC: 0x8000}, Op: opcode.PHP})
	sub.AddInstruction(&Instruction{ID: InstructionID{PC: 0x8001}, Op: opcode.LDA})

	if !sub.DoesSaveStateInIncipit() {
		t.Errorf("DoesSaveStateInIncipit() = false, want true")
	}
}

func TestDoesSaveStateInIncipit_FalseWhenControlFlowPrecedesPHP(t *testing.T) {
	sub := NewSubroutine(0x8000, "main")
	sub.AddInstruction(&Instruction{ID: InstructionID{PC: 0x8000}, Op: opcode.JSR})
	sub.AddInstruction(&Instruction{ID: InstructionID{PC: 0x8003}, Op: opcode.PHP})

	if sub.DoesSaveStateInIncipit() {
		t.Errorf("DoesSaveStateInIncipit() = true, want false: JSR precedes the PHP")
	}
}

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

// Package ir holds the decoded-instruction and subroutine data model: the
// context-sensitive InstructionID, the Instruction record the symbolic CPU
// fills in as it walks a subroutine, and the Subroutine aggregate with its
// derived predicates.
package ir

import (
	"sort"

	"github.com/mg6502/gilgamesh/pkg/opcode"
	"github.com/mg6502/gilgamesh/pkg/state"
)

// InstructionID identifies an instruction in context: the same byte at the
// same pc can decode and behave differently depending on the processor
// state it's reached in, and which subroutine it's reached from.
type InstructionID struct {
	PC           uint32
	P            uint8
	SubroutinePC uint32
}

// StackManipulation categorizes how an instruction interacts with the
// symbolic stack model beyond ordinary push/pop bookkeeping.
type StackManipulation uint8

const (
	StackManipulationNone StackManipulation = iota
	StackManipulationHarmless
	StackManipulationCausesUnknownState
)

// Instruction is the fully decoded, context-snapshotted form of one
// instruction occurrence.
type Instruction struct {
	ID InstructionID

	Opcode      uint8
	Op          opcode.Op
	Mode        opcode.AddressMode
	Size        int
	Argument    uint32
	HasTarget   bool
	Target      uint32

	EntryState State
	StateChangeBefore state.StateChange
	StateChangeAfter  state.StateChange

	SubroutinePC uint32

	IsJumpTable       bool
	StackManipulation StackManipulation
	StoppedExecution  bool
}

// State is a lightweight register/process-status snapshot taken at the
// point an instruction executed; the accumulator value is tracked
// symbolically only when the CPU could prove it (see pkg/cpu).
type State struct {
	P        state.State
	A        *int
	HasA     bool
}

func (i Instruction) IsBranch() bool     { return opcode.IsBranch(i.Op) }
func (i Instruction) IsCall() bool       { return opcode.IsCall(i.Op) }
func (i Instruction) IsJump() bool       { return opcode.IsJump(i.Op) }
func (i Instruction) IsReturn() bool     { return opcode.IsReturn(i.Op) }
func (i Instruction) IsInterrupt() bool  { return opcode.IsInterrupt(i.Op) }
func (i Instruction) IsSepRep() bool     { return opcode.IsSepRep(i.Op) }
func (i Instruction) IsControl() bool    { return opcode.IsControl(i.Op) }

func (i Instruction) DoesManipulateStack() bool {
	return i.StackManipulation != StackManipulationNone
}

// NextPC is the address immediately following this instruction.
func (i Instruction) NextPC() uint32 { return i.ID.PC + uint32(i.Size) }

// Subroutine is a maximal code region entered through a call or an entry
// point, with its ordered instructions and every StateChange observed
// returning from it.
type Subroutine struct {
	PC    uint32
	Label string

	// instructions is keyed by pc and has no order of its own;
	// Instructions() returns them as a slice sorted by pc.
	instructions map[uint32]*Instruction

	// StateChanges is keyed by the pc of the returning instruction that
	// produced it -- one subroutine can have several return sites, each
	// with its own observed change.
	StateChanges map[uint32]state.StateChange

	StackTraces [][]uint32

	AssertedStateChange bool

	HasStackManipulation    bool
	IsRecursive              bool
	HasSuspectInstructions   bool
	IndirectJumps            map[uint32]bool
	HasIncompleteJumpTable   bool
	HasUnknownReturnState    bool
}

// NewSubroutine creates an empty Subroutine rooted at pc.
func NewSubroutine(pc uint32, label string) *Subroutine {
	return &Subroutine{
		PC:            pc,
		Label:         label,
		instructions:  make(map[uint32]*Instruction),
		StateChanges:  make(map[uint32]state.StateChange),
		IndirectJumps: make(map[uint32]bool),
	}
}

// AddInstruction inserts i into the subroutine's ordered instruction map.
func (s *Subroutine) AddInstruction(i *Instruction) {
	s.instructions[i.ID.PC] = i
}

// Instruction returns the instruction at pc, if the subroutine owns one.
func (s *Subroutine) Instruction(pc uint32) (*Instruction, bool) {
	i, ok := s.instructions[pc]
	return i, ok
}

// Instructions returns every owned instruction ordered by pc.
func (s *Subroutine) Instructions() []*Instruction {
	out := make([]*Instruction, 0, len(s.instructions))
	for _, i := range s.instructions {
		out = append(out, i)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID.PC < out[b].ID.PC })
	return out
}

// A Subroutine never stores labels itself: local label storage, the
// bidirectional pc<->name maps, lives in pkg/log.

// StateChange returns the subroutine's state change when exactly one
// return site has been observed, and ok=false otherwise; callers should
// prefer UnifiedStateChange when multiple return sites exist.
func (s *Subroutine) StateChange() (state.StateChange, bool) {
	if len(s.StateChanges) != 1 {
		return state.StateChange{}, false
	}
	for _, c := range s.StateChanges {
		return c, true
	}
	return state.StateChange{}, false
}

// UnifiedStateChange merges every observed StateChange if they all agree on
// every component; returns ok=false if they conflict or more than one
// unknown variant is present.
func (s *Subroutine) UnifiedStateChange() (state.StateChange, bool) {
	var unified state.StateChange
	first := true
	unknownSeen := 0
	for _, c := range s.StateChanges {
		if c.IsUnknown {
			unknownSeen++
			if unknownSeen > 1 {
				return state.StateChange{}, false
			}
			continue
		}
		if first {
			unified = c
			first = false
			continue
		}
		if !unified.Equal(c) {
			return state.StateChange{}, false
		}
	}
	if first {
		return state.StateChange{}, false
	}
	return unified, true
}

// SimplifyReturnStates implements the spec'd simplify_return_states: if the
// subroutine never returned observably (it only recurses into itself), it
// is flagged recursive and a single unknown{recursion} is produced;
// otherwise every observed change is simplified against callerState.
func (s *Subroutine) SimplifyReturnStates(callerState state.State) ([]state.StateChange, bool) {
	if len(s.StateChanges) == 0 {
		s.IsRecursive = true
		return []state.StateChange{state.Unknown(state.ReasonRecursion)}, true
	}
	out := make([]state.StateChange, 0, len(s.StateChanges))
	for _, c := range s.StateChanges {
		out = append(out, c.Simplify(callerState))
	}
	return out, false
}

// HasAsserted reports the has_asserted_state_change derived boolean.
func (s *Subroutine) HasAsserted() bool { return s.AssertedStateChange }

// DoesSaveStateInIncipit reports whether a PHP occurs before any SEP/REP or
// control-flow instruction, used to suggest a trivial "returns none"
// assertion because the subroutine restores P before it exits.
func (s *Subroutine) DoesSaveStateInIncipit() bool {
	for _, i := range s.Instructions() {
		if i.Op == opcode.PHP {
			return true
		}
		if i.IsSepRep() || i.IsControl() {
			return false
		}
	}
	return false
}

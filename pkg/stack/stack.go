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

// Package stack models the symbolic operand stack the CPU pushes/pops
// against while walking a subroutine. Each cell remembers the instruction
// that wrote it and an optional typed payload, so RTS/RTL/PLP can check
// structurally whether the bytes on top were placed by the matching
// call/PHP rather than trusting a numeric return address.
package stack

import (
	"github.com/mg6502/gilgamesh/pkg/ir"
	"github.com/mg6502/gilgamesh/pkg/state"
)

// Payload is the closed sum of what a stack cell can carry: nothing, a
// literal byte (e.g. one byte of an immediate PHA), or a saved
// (State, StateChange) pair (PHP).
type Payload interface {
	isPayload()
}

type emptyPayload struct{}

func (emptyPayload) isPayload() {}

// Empty is the payload for cells with no tracked value.
var Empty Payload = emptyPayload{}

// Literal is the payload for a cell carrying one known byte.
type Literal struct {
	Value byte
}

func (Literal) isPayload() {}

// SavedState is the payload PHP pushes: a snapshot of the processor state
// and the StateChange accumulated so far, restored verbatim by a matching PLP.
type SavedState struct {
	State  state.State
	Change state.StateChange
}

func (SavedState) isPayload() {}

// Cell is one byte-wide stack slot.
type Cell struct {
	Writer  ir.InstructionID
	Payload Payload
}

// Stack is an ordered list of cells, growing at the tail (top of stack).
type Stack struct {
	cells []Cell
}

// New returns an empty Stack.
func New() *Stack { return &Stack{} }

// Copy returns a deep-enough copy for a forked CPU cursor: the cell slice
// is copied, the cells themselves are value types so no further copying
// is needed.
func (s *Stack) Copy() *Stack {
	cells := make([]Cell, len(s.cells))
	copy(cells, s.cells)
	return &Stack{cells: cells}
}

// Push appends size identical cells all written by writer, each carrying
// payload. A payload richer than Empty only makes sense for size == 1
// (e.g. one accumulator byte, or a PHP's (State, StateChange) pair).
func (s *Stack) Push(writer ir.InstructionID, payload Payload, size int) {
	for n := 0; n < size; n++ {
		s.cells = append(s.cells, Cell{Writer: writer, Payload: payload})
	}
}

// PopOne removes and returns the top cell. Calling PopOne on an empty
// Stack is a programmer error -- callers must check Len first.
func (s *Stack) PopOne() Cell {
	n := len(s.cells) - 1
	c := s.cells[n]
	s.cells = s.cells[:n]
	return c
}

// Pop removes and returns the top size cells, topmost first.
func (s *Stack) Pop(size int) []Cell {
	out := make([]Cell, size)
	for i := 0; i < size; i++ {
		out[i] = s.PopOne()
	}
	return out
}

// Len reports how many cells are currently on the stack.
func (s *Stack) Len() int { return len(s.cells) }

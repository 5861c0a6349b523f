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

// Package state models the 65C816 M/X processor status bits and the
// StateChange summaries the symbolic CPU accumulates while walking a
// subroutine.
package state

import (
	"fmt"
	"strings"
)

// Bit positions of the M (accumulator width) and X (index width) flags
// within the processor status byte, matching hardware layout.
const (
	MBit = 5
	XBit = 4
)

// State is the pair (m, x) the decoder and symbolic CPU need to resolve
// operand widths. It is carried as the raw status byte so it round-trips
// through InstructionID without lossy repacking.
type State struct {
	P uint8
}

// New builds a State directly from a processor status byte.
func New(p uint8) State { return State{P: p} }

// NewMX builds a State from explicit m/x bits, leaving every other bit clear.
func NewMX(m, x bool) State {
	var p uint8
	if m {
		p |= 1 << MBit
	}
	if x {
		p |= 1 << XBit
	}
	return State{P: p}
}

// M reports the accumulator-width flag (true = 8-bit).
func (s State) M() bool { return s.P&(1<<MBit) != 0 }

// X reports the index-register-width flag (true = 8-bit).
func (s State) X() bool { return s.P&(1<<XBit) != 0 }

// ASize returns the accumulator operand width in bytes.
func (s State) ASize() int {
	if s.M() {
		return 1
	}
	return 2
}

// XSize returns the index-register operand width in bytes.
func (s State) XSize() int {
	if s.X() {
		return 1
	}
	return 2
}

// Set raises the m/x bits named in mask (any other bits in mask are ignored).
func (s State) Set(mask uint8) State {
	mask &= (1 << MBit) | (1 << XBit)
	return State{P: s.P | mask}
}

// Reset clears the m/x bits named in mask.
func (s State) Reset(mask uint8) State {
	mask &= (1 << MBit) | (1 << XBit)
	return State{P: s.P &^ mask}
}

func (s State) String() string {
	m, x := 0, 0
	if s.M() {
		m = 1
	}
	if s.X() {
		x = 1
	}
	return fmt.Sprintf("<State: M=%d, X=%d>", m, x)
}

// Reason names why a StateChange could not be reduced to a known (m, x)
// delta. Mirrors the taxonomy spec'd for AnalysisIncomplete.
type Reason uint8

const (
	ReasonNone Reason = iota
	ReasonRecursion
	ReasonRecursionDepthExceeded
	ReasonIndirectJump
	ReasonStackManipulation
	ReasonSuspectInstruction
	ReasonMultipleReturnStates
	ReasonUnknown
)

func (r Reason) String() string {
	switch r {
	case ReasonRecursion:
		return "recursion"
	case ReasonRecursionDepthExceeded:
		return "recursion_depth_exceeded"
	case ReasonIndirectJump:
		return "indirect_jump"
	case ReasonStackManipulation:
		return "stack_manipulation"
	case ReasonSuspectInstruction:
		return "suspect_instruction"
	case ReasonMultipleReturnStates:
		return "multiple_return_states"
	case ReasonUnknown:
		return "unknown"
	default:
		return "none"
	}
}

// Bit is a tri-state flag delta: nil means "unchanged", otherwise it names
// the bit's new value.
type Bit = *bool

func bit(v bool) Bit { return &v }

// True and False are convenience constructors for StateChange's M/X fields.
var (
	True  = bit(true)
	False = bit(false)
)

// StateChange is the sum spec'd in the data model: either a known (m?, x?)
// delta, or an unknown variant carrying a reason. Asserted marks a change
// that came from a user assertion rather than analyzer inference.
type StateChange struct {
	M, X     Bit
	IsUnknown bool
	Reason    Reason
	Asserted  bool
}

// Unknown builds the distinguished unknown StateChange for reason.
func Unknown(reason Reason) StateChange {
	return StateChange{IsUnknown: true, Reason: reason}
}

// Known builds a known StateChange with optional m/x deltas (nil = no change).
func Known(m, x Bit) StateChange {
	return StateChange{M: m, X: x}
}

// NoneChange is the StateChange that leaves both flags untouched.
var NoneChange = StateChange{}

// Equal implements the spec'd equality: ignores Asserted; two unknowns are
// equal iff their reasons match; two knowns are equal iff m/x match.
func (c StateChange) Equal(o StateChange) bool {
	if c.IsUnknown || o.IsUnknown {
		return c.IsUnknown && o.IsUnknown && c.Reason == o.Reason
	}
	return bitEqual(c.M, o.M) && bitEqual(c.X, o.X)
}

func bitEqual(a, b Bit) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (c StateChange) String() string {
	if c.IsUnknown {
		return "<StateChange: UNKNOWN:" + c.Reason.String() + ">"
	}
	var parts []string
	if c.M != nil {
		parts = append(parts, fmt.Sprintf("M=%v", boolInt(*c.M)))
	}
	if c.X != nil {
		parts = append(parts, fmt.Sprintf("X=%v", boolInt(*c.X)))
	}
	if len(parts) == 0 {
		return "<StateChange: None>"
	}
	return "<StateChange: " + strings.Join(parts, ", ") + ">"
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Set raises the bits named by a processor-status change mask, the way
// SEP records its effect.
func (c StateChange) Set(pChange uint8) StateChange {
	s := New(pChange)
	if s.M() {
		c.M = True
	}
	if s.X() {
		c.X = True
	}
	return c
}

// Reset clears the bits named by a processor-status change mask, the way
// REP records its effect.
func (c StateChange) Reset(pChange uint8) StateChange {
	s := New(pChange)
	if s.M() {
		c.M = False
	}
	if s.X() {
		c.X = False
	}
	return c
}

// Simplify drops m/x components that equal the corresponding bit of state,
// since a flag that ends up where it already was is not a net change from
// the caller's point of view.
func (c StateChange) Simplify(s State) StateChange {
	if c.IsUnknown {
		return c
	}
	out := c
	if out.M != nil && *out.M == s.M() {
		out.M = nil
	}
	if out.X != nil && *out.X == s.X() {
		out.X = nil
	}
	return out
}

// ApplyInference drops a component that the inferred entry state already
// guarantees: if inference already says m=1 and the proposed change is
// also m=1, it is not a net change and is dropped.
func (c StateChange) ApplyInference(inferredM, inferredX Bit) StateChange {
	if c.IsUnknown {
		return c
	}
	out := c
	if out.M != nil && inferredM != nil && *out.M == *inferredM {
		out.M = nil
	}
	if out.X != nil && inferredX != nil && *out.X == *inferredX {
		out.X = nil
	}
	return out
}

// ApplyAssertion removes components of c that the user has separately
// asserted to already hold, mirroring the original's apply_assertion.
func (c StateChange) ApplyAssertion(assertion StateChange) StateChange {
	out := c
	if assertion.M != nil && out.M != nil && *assertion.M == *out.M {
		out.M = nil
	}
	if assertion.X != nil && out.X != nil && *assertion.X == *out.X {
		out.X = nil
	}
	return out
}

// Render formats c using the textual grammar the disassembly view emits
// and re-parses: "none", "m=0", "x=1", "m=0,x=1", "unknown".
func (c StateChange) Render() string {
	if c.IsUnknown {
		return "unknown"
	}
	var parts []string
	if c.M != nil {
		parts = append(parts, fmt.Sprintf("m=%d", boolInt(*c.M)))
	}
	if c.X != nil {
		parts = append(parts, fmt.Sprintf("x=%d", boolInt(*c.X)))
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ",")
}

// Parse reads the textual grammar Render produces, returning InvalidAssertion
// semantics (a non-nil error) on anything else. "unknown" is accepted only
// when allowUnknown is true, since an assertion of "unknown" is semantically
// invalid as a positive assertion.
func Parse(expr string, allowUnknown bool) (StateChange, error) {
	expr = strings.TrimSpace(expr)
	if expr == "unknown" {
		if !allowUnknown {
			return StateChange{}, fmt.Errorf("state: %q is not a valid assertion expression", expr)
		}
		return Unknown(ReasonUnknown), nil
	}
	if expr == "none" {
		return NoneChange, nil
	}
	var out StateChange
	for _, term := range strings.Split(expr, ",") {
		term = strings.TrimSpace(term)
		kv := strings.SplitN(term, "=", 2)
		if len(kv) != 2 {
			return StateChange{}, fmt.Errorf("state: malformed term %q in expression %q", term, expr)
		}
		var bitVal bool
		switch kv[1] {
		case "0":
			bitVal = false
		case "1":
			bitVal = true
		default:
			return StateChange{}, fmt.Errorf("state: malformed bit value %q in expression %q", kv[1], expr)
		}
		switch kv[0] {
		case "m":
			out.M = bit(bitVal)
		case "x":
			out.X = bit(bitVal)
		default:
			return StateChange{}, fmt.Errorf("state: unknown component %q in expression %q", kv[0], expr)
		}
	}
	return out, nil
}

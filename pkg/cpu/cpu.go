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

// Package cpu implements the symbolic CPU: a single-stepping interpreter
// that walks decoded instructions, forking a recursive cursor at every
// branch, call and jump, tracking processor state and a symbolic stack,
// and recording everything it discovers into a log.Log.
//
// It never executes the ROM's actual behavior -- only what can be proven
// from the instruction stream and the state-tracking rules the spec lays
// out -- so a forked cursor always "runs to completion" in a bounded
// number of steps (the log's visited-instruction set cuts every loop).
package cpu

import (
	"github.com/golang/glog"

	"github.com/mg6502/gilgamesh/pkg/decode"
	"github.com/mg6502/gilgamesh/pkg/ir"
	"github.com/mg6502/gilgamesh/pkg/log"
	"github.com/mg6502/gilgamesh/pkg/opcode"
	"github.com/mg6502/gilgamesh/pkg/rom"
	"github.com/mg6502/gilgamesh/pkg/stack"
	"github.com/mg6502/gilgamesh/pkg/state"
)

// maxForkDepth bounds recursion defensively against pathological inputs;
// the spec doesn't name an exact bound (5. "may bound recursion depth
// defensively"), and no real 65816 call graph is anywhere near this deep.
const maxForkDepth = 4096

// Cursor is one in-flight symbolic execution path: the current pc/state,
// the StateChange accumulated since subroutine entry, what's been
// inferred about the entry state, the symbolic register file and stack,
// and the call chain that produced this cursor.
type Cursor struct {
	log *log.Log
	rom rom.Provider

	pc           uint32
	subroutinePC uint32
	p            state.State

	change state.StateChange
	inferM state.Bit
	inferX state.Bit

	a     int
	hasA  bool

	stack     *stack.Stack
	callStack []uint32

	hasCallWriter bool
	callWriter    ir.InstructionID

	depth int
}

// Run drives a fresh top-level cursor for an entry point to completion.
func Run(l *log.Log, r rom.Provider, pc uint32, p uint8, subroutinePC uint32) {
	c := &Cursor{
		log:          l,
		rom:          r,
		pc:           pc,
		subroutinePC: subroutinePC,
		p:            state.New(p),
		stack:        stack.New(),
	}
	c.run()
}

// fork produces a new cursor that is a deep-enough copy of this one: state,
// accumulated change, inference, register file and stack are copied by
// value/Copy(); the log and rom are shared since they are the analysis's
// single mutable resource and read-only byte source respectively.
func (c *Cursor) fork() *Cursor {
	f := *c
	f.stack = c.stack.Copy()
	f.callStack = append([]uint32(nil), c.callStack...)
	f.depth = c.depth + 1
	return &f
}

func (c *Cursor) run() {
	if c.depth > maxForkDepth {
		glog.Warningf("cpu: recursion depth exceeded at $%06X, aborting path", c.pc)
		c.terminate(state.Unknown(state.ReasonRecursionDepthExceeded))
		return
	}
	for {
		if !c.step() {
			return
		}
	}
}

// step executes one instruction and reports whether this cursor should
// continue stepping (false means the path has terminated: a return, an
// unresolved jump, an already-visited instruction, or an unknown-state dead
// end).
func (c *Cursor) step() bool {
	if c.rom.IsRAM(c.pc) {
		return false
	}

	opByte, err := c.rom.ReadByte(c.pc)
	if err != nil {
		return false
	}
	entry := opcode.Table[opByte]
	argSize := decode.ArgumentSize(entry.Mode, c.p)
	arg, err := c.readArg(c.pc+1, argSize)
	if err != nil {
		return false
	}

	d := decode.Decode(opByte, arg, c.p, c.pc)
	id := ir.InstructionID{PC: c.pc, P: c.p.P, SubroutinePC: c.subroutinePC}
	if c.log.IsVisited(id) {
		return false
	}

	a := c.a
	instr := &ir.Instruction{
		ID:                id,
		Opcode:            opByte,
		Op:                d.Op,
		Mode:              d.Mode,
		Size:              d.Size,
		Argument:          d.Argument,
		HasTarget:         d.HasTarget,
		Target:            d.Target,
		EntryState:        ir.State{P: c.p, A: &a, HasA: c.hasA},
		StateChangeBefore: c.change,
		SubroutinePC:      c.subroutinePC,
	}
	c.log.AddInstruction(instr)

	nextPC := c.pc + uint32(d.Size)

	c.applyInferenceFromArgumentWidth(d)

	cont := c.dispatch(instr, nextPC)

	if assertion, ok := c.log.InstructionAssertions[instr.ID.PC]; ok {
		c.change = assertion
		instr.StateChangeAfter = assertion
	} else {
		instr.StateChangeAfter = c.change
	}

	return cont
}

// readArg reads size little-endian bytes starting at pc, masked to that
// width (the decoder never reads memory itself, so this boundary owns the
// masking rule the spec assigns to "read time").
func (c *Cursor) readArg(pc uint32, size int) (uint32, error) {
	var v uint32
	for i := 0; i < size; i++ {
		b, err := c.rom.ReadByte(pc + uint32(i))
		if err != nil {
			return 0, err
		}
		v |= uint32(b) << (8 * uint(i))
	}
	return v, nil
}

// applyInferenceFromArgumentWidth records the inference rule: observing an
// IMMEDIATE_M-mode instruction while no StateChange has touched m tells us
// the entry m must equal the current State.m (same for x, IMMEDIATE_X).
func (c *Cursor) applyInferenceFromArgumentWidth(d decode.Decoded) {
	m := d.State.M()
	x := d.State.X()
	switch d.Mode {
	case opcode.ImmediateM:
		if c.change.M == nil && c.inferM == nil {
			c.inferM = boolPtr(m)
		}
	case opcode.ImmediateX:
		if c.change.X == nil && c.inferX == nil {
			c.inferX = boolPtr(x)
		}
	}
}

func boolPtr(b bool) *bool { return &b }

// terminate records change as this subroutine's outcome at the current pc
// and ends the path.
func (c *Cursor) terminate(change state.StateChange) {
	c.log.AddSubroutineState(c.subroutinePC, c.pc, change)
	if sub, ok := c.log.Subroutine(c.subroutinePC); ok {
		sub.StackTraces = append(sub.StackTraces, c.callStack)
	}
}

// dispatch executes instr by category and reports whether this cursor
// should keep stepping afterward.
func (c *Cursor) dispatch(instr *ir.Instruction, nextPC uint32) bool {
	switch {
	case instr.IsReturn():
		c.dispatchReturn(instr)
		return false
	case instr.IsInterrupt():
		instr.StoppedExecution = true
		instr.StackManipulation = ir.StackManipulationCausesUnknownState
		c.terminate(state.Unknown(state.ReasonSuspectInstruction))
		return false
	case instr.IsCall():
		c.dispatchCall(instr, nextPC)
		c.pc = nextPC
		return true
	case instr.IsJump():
		c.dispatchJump(instr)
		return false
	case instr.Op == opcode.BRA || instr.Op == opcode.BRL:
		c.dispatchJump(instr)
		return false
	case opcode.IsBranch(instr.Op):
		c.dispatchConditionalBranch(instr, nextPC)
		return false
	case instr.IsSepRep():
		c.dispatchSepRep(instr)
		c.pc = nextPC
		return true
	case instr.Op == opcode.TCS || instr.Op == opcode.TXS:
		c.dispatchStackPointerChange(instr)
		c.pc = nextPC
		return true
	case isPush(instr.Op):
		c.dispatchPush(instr)
		c.pc = nextPC
		return true
	case isPop(instr.Op):
		c.dispatchPop(instr)
		c.pc = nextPC
		return true
	default:
		c.dispatchRegisterTracking(instr)
		c.pc = nextPC
		return true
	}
}

func isPush(op opcode.Op) bool {
	switch op {
	case opcode.PHA, opcode.PHX, opcode.PHY, opcode.PHB, opcode.PHK, opcode.PHD, opcode.PHP, opcode.PEA, opcode.PER, opcode.PEI:
		return true
	default:
		return false
	}
}

func isPop(op opcode.Op) bool {
	switch op {
	case opcode.PLA, opcode.PLX, opcode.PLY, opcode.PLB, opcode.PLD, opcode.PLP:
		return true
	default:
		return false
	}
}

// dispatchReturn pops the expected call width off the stack and checks
// structurally whether those cells were placed by the matching call, per
// the RTS/RTL/RTI dispatch rule: any popped byte not written by that call
// instruction -- whether missing entirely or shadowed by an unbalanced
// push in between -- is stack manipulation, and the offending writer (not
// the return itself) is what gets marked.
func (c *Cursor) dispatchReturn(instr *ir.Instruction) {
	if instr.Op == opcode.RTI {
		c.terminate(c.change)
		return
	}

	width := 2
	if instr.Op == opcode.RTL {
		width = 3
	}

	if targets, ok := c.log.JumpAssertions[instr.ID.PC]; ok {
		c.followJumpAssertions(instr, targets)
		return
	}

	if c.stack.Len() < width {
		c.markStackManipulation(instr.ID)
		return
	}
	cells := c.stack.Pop(width)
	for _, cell := range cells {
		if !c.hasCallWriter || cell.Writer != c.callWriter {
			c.markStackManipulation(cell.Writer)
			return
		}
	}

	c.terminate(c.change)
}

// markStackManipulation records writer (the return or PLP itself, when the
// stack holds fewer cells than it pops, or the cell's actual writer when
// it mismatches the matching call or PHP) as the instruction responsible
// for the manipulation.
func (c *Cursor) markStackManipulation(writer ir.InstructionID) {
	if sub, ok := c.log.Subroutine(writer.SubroutinePC); ok {
		if wi, ok := sub.Instruction(writer.PC); ok {
			wi.StackManipulation = ir.StackManipulationCausesUnknownState
		}
	}
	if sub, ok := c.log.Subroutine(c.subroutinePC); ok {
		sub.HasStackManipulation = true
	}
	c.terminate(state.Unknown(state.ReasonStackManipulation))
}

// followJumpAssertions handles a return whose pc was separately asserted
// to be an indirect jump table or tail call: each asserted target is
// treated as a call when at least two cells are on the stack, and as a
// jump otherwise. Whether those cells would return to pc+size is not
// checked.
func (c *Cursor) followJumpAssertions(instr *ir.Instruction, targets []log.JumpTarget) {
	treatAsCall := c.stack.Len() >= 2
	for _, t := range targets {
		fork := c.fork()
		fork.pc = t.Target
		if treatAsCall {
			fork.callStack = append(fork.callStack, c.subroutinePC)
			fork.subroutinePC = t.Target
			fork.log.AddSubroutine(t.Target, fork.p.P, "", false)
			fork.change = state.StateChange{}
			fork.run()
		} else {
			fork.run()
		}
	}
}

// dispatchCall forks a parallel cursor per resolved target, runs it to
// completion, then re-converges: the callee's return changes are
// simplified against the caller's state and applied if they agree.
func (c *Cursor) dispatchCall(instr *ir.Instruction, nextPC uint32) {
	width := 2
	if instr.Op == opcode.JSL {
		width = 3
	}

	targets, resolved := c.resolveTargets(instr)
	if !resolved {
		instr.StoppedExecution = true
		if sub, ok := c.log.Subroutine(c.subroutinePC); ok {
			sub.IndirectJumps[instr.ID.PC] = true
			sub.HasIncompleteJumpTable = true
		}
		if _, hasAssertion := c.log.InstructionAssertions[instr.ID.PC]; !hasAssertion {
			c.change = state.Unknown(state.ReasonIndirectJump)
		}
		return
	}

	writer := instr.ID
	for _, target := range targets {
		fork := c.fork()
		fork.stack.Push(writer, stack.Empty, width)
		fork.callStack = append(fork.callStack, c.subroutinePC)
		fork.subroutinePC = target
		fork.pc = target
		fork.change = state.StateChange{}
		fork.inferM, fork.inferX = nil, nil
		fork.hasCallWriter = true
		fork.callWriter = writer
		fork.log.AddSubroutine(target, fork.p.P, "", false)
		fork.log.AddReference(instr, target)
		fork.run()
	}

	c.convergeCall(instr, targets)
}

func (c *Cursor) convergeCall(instr *ir.Instruction, targets []uint32) {
	if _, hasAssertion := c.log.InstructionAssertions[instr.ID.PC]; hasAssertion {
		return
	}

	var results []state.StateChange
	anyUnknown := false
	for _, target := range targets {
		sub, ok := c.log.Subroutine(target)
		if !ok {
			anyUnknown = true
			continue
		}
		simplified, recursive := sub.SimplifyReturnStates(c.p)
		if recursive {
			anyUnknown = true
		}
		results = append(results, simplified...)
	}

	known := dedupeKnown(results)
	switch {
	case anyUnknown || len(known) == 0:
		c.change = state.Unknown(state.ReasonMultipleReturnStates)
	case len(known) == 1:
		applied := known[0]
		if applied.M != nil {
			c.p = c.p.Set(boolMask(*applied.M, 1<<state.MBit))
			if !*applied.M {
				c.p = c.p.Reset(1 << state.MBit)
			}
		}
		if applied.X != nil {
			if *applied.X {
				c.p = c.p.Set(1 << state.XBit)
			} else {
				c.p = c.p.Reset(1 << state.XBit)
			}
		}
		c.change = mergeChange(c.change, applied)
	default:
		c.change = state.Unknown(state.ReasonMultipleReturnStates)
	}
}

func boolMask(b bool, mask uint8) uint8 {
	if b {
		return mask
	}
	return 0
}

func mergeChange(base, delta state.StateChange) state.StateChange {
	if delta.M != nil {
		base.M = delta.M
	}
	if delta.X != nil {
		base.X = delta.X
	}
	return base
}

func dedupeKnown(changes []state.StateChange) []state.StateChange {
	var out []state.StateChange
	for _, c := range changes {
		if c.IsUnknown {
			continue
		}
		dup := false
		for _, o := range out {
			if o.Equal(c) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, c)
		}
	}
	return out
}

// dispatchJump forks a cursor per resolved target and terminates the
// current path, matching call's target resolution rules.
func (c *Cursor) dispatchJump(instr *ir.Instruction) {
	targets, resolved := c.resolveTargets(instr)
	if !resolved {
		instr.StoppedExecution = true
		if sub, ok := c.log.Subroutine(c.subroutinePC); ok {
			sub.IndirectJumps[instr.ID.PC] = true
			sub.HasIncompleteJumpTable = true
		}
		c.terminate(state.Unknown(state.ReasonIndirectJump))
		return
	}
	for _, target := range targets {
		fork := c.fork()
		fork.pc = target
		fork.log.AddReference(instr, target)
		fork.run()
	}
}

// resolveTargets returns the direct target if derivable, else the
// asserted jump-table targets for this pc, else unresolved.
func (c *Cursor) resolveTargets(instr *ir.Instruction) ([]uint32, bool) {
	if instr.HasTarget {
		return []uint32{instr.Target}, true
	}
	if targets, ok := c.log.JumpAssertions[instr.ID.PC]; ok && len(targets) > 0 {
		out := make([]uint32, len(targets))
		for i, t := range targets {
			out[i] = t.Target
		}
		return out, true
	}
	return nil, false
}

// dispatchConditionalBranch forks a copy that does not take the branch
// (continuing at pc+size) before the current path takes it, matching the
// spec'd non-taken-first exploration order.
func (c *Cursor) dispatchConditionalBranch(instr *ir.Instruction, nextPC uint32) {
	notTaken := c.fork()
	notTaken.pc = nextPC
	notTaken.run()

	if instr.HasTarget {
		taken := c.fork()
		taken.pc = instr.Target
		taken.log.AddReference(instr, instr.Target)
		taken.run()
	}
}

// dispatchSepRep adjusts State and the accumulated StateChange, then
// collapses any component the inference already covers.
func (c *Cursor) dispatchSepRep(instr *ir.Instruction) {
	mask := uint8(instr.Argument)
	if instr.Op == opcode.SEP {
		c.p = c.p.Set(mask)
		c.change = c.change.Set(mask)
	} else {
		c.p = c.p.Reset(mask)
		c.change = c.change.Reset(mask)
	}
	c.change = c.change.ApplyInference(c.inferM, c.inferX)
}

// dispatchStackPointerChange marks TCS/TXS as harmless stack manipulation
// when the source register's value isn't symbolically known; the stack
// model degrades but analysis continues.
func (c *Cursor) dispatchStackPointerChange(instr *ir.Instruction) {
	if instr.Op == opcode.TCS && c.hasA {
		return
	}
	instr.StackManipulation = ir.StackManipulationHarmless
	if sub, ok := c.log.Subroutine(c.subroutinePC); ok {
		sub.HasStackManipulation = true
	}
}

// dispatchPush models PHA/PHX/PHY/PHB/PHK/PHD/PEA/PER/PEI/PHP width and
// payload per the spec'd push table; PHP is the one push that carries a
// structural payload (the saved State+StateChange) a matching PLP restores.
func (c *Cursor) dispatchPush(instr *ir.Instruction) {
	switch instr.Op {
	case opcode.PHP:
		c.stack.Push(instr.ID, stack.SavedState{State: c.p, Change: c.change}, 1)
	case opcode.PHA:
		c.pushValue(instr, c.p.ASize())
	case opcode.PHX, opcode.PHY:
		c.pushValue(instr, c.p.XSize())
	case opcode.PHB, opcode.PHK:
		c.stack.Push(instr.ID, stack.Empty, 1)
	case opcode.PHD, opcode.PEA, opcode.PER:
		c.stack.Push(instr.ID, stack.Empty, 2)
	case opcode.PEI:
		c.stack.Push(instr.ID, stack.Empty, 2)
	}
}

func (c *Cursor) pushValue(instr *ir.Instruction, size int) {
	if c.hasA && size == 1 {
		c.stack.Push(instr.ID, stack.Literal{Value: byte(c.a)}, 1)
		return
	}
	c.stack.Push(instr.ID, stack.Empty, size)
}

// dispatchPop models PLA/PLX/PLY/PLB/PLD/PLP; PLP is the structural check:
// it only restores (State, StateChange) if the popped cell was produced
// by a matching PHP, otherwise this is stack manipulation.
func (c *Cursor) dispatchPop(instr *ir.Instruction) {
	switch instr.Op {
	case opcode.PLP:
		if c.stack.Len() == 0 {
			c.markStackManipulation(instr.ID)
			return
		}
		cell := c.stack.PopOne()
		saved, ok := cell.Payload.(stack.SavedState)
		if !ok {
			c.markStackManipulation(cell.Writer)
			return
		}
		c.p = saved.State
		c.change = saved.Change
	case opcode.PLA:
		if c.stack.Len() == 0 {
			c.hasA = false
			return
		}
		cell := c.stack.PopOne()
		if lit, ok := cell.Payload.(stack.Literal); ok {
			c.a = int(lit.Value)
			c.hasA = true
		} else {
			c.hasA = false
		}
	case opcode.PLX, opcode.PLY:
		if c.stack.Len() >= c.p.XSize() {
			c.stack.Pop(c.p.XSize())
		}
	case opcode.PLB, opcode.PLD:
		if c.stack.Len() >= 2 {
			c.stack.Pop(2)
		}
	}
}

// dispatchRegisterTracking models the subset of instructions whose
// accumulator effect is provable from immediate operands alone: LDA/ADC/
// SBC of known values. The stack pointer is not modeled, so TSC, like
// anything else that touches A, invalidates the tracked value.
func (c *Cursor) dispatchRegisterTracking(instr *ir.Instruction) {
	switch instr.Op {
	case opcode.LDA:
		if instr.Mode == opcode.ImmediateM {
			c.a = int(instr.Argument)
			c.hasA = true
		} else {
			c.hasA = false
		}
	case opcode.ADC:
		if c.hasA && instr.Mode == opcode.ImmediateM {
			c.a += int(instr.Argument)
			c.a &= mask(c.p.ASize())
		} else {
			c.hasA = false
		}
	case opcode.SBC:
		if c.hasA && instr.Mode == opcode.ImmediateM {
			c.a -= int(instr.Argument)
			c.a &= mask(c.p.ASize())
		} else {
			c.hasA = false
		}
	case opcode.TSC:
		c.hasA = false
	case opcode.STA, opcode.INC, opcode.DEC, opcode.ASL, opcode.LSR, opcode.ROL, opcode.ROR, opcode.EOR, opcode.AND, opcode.ORA:
		c.hasA = false
	}
}

func mask(size int) int {
	if size == 1 {
		return 0xFF
	}
	return 0xFFFF
}

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

// Package decode implements the pure instruction decoder: given an opcode
// byte, an argument word, the processor State and the pc it lives at, it
// produces a fully decoded instruction with mnemonic, addressing mode,
// size, and absolute/relative target where one is derivable. It never
// touches a ROM or the analysis log.
package decode

import (
	"fmt"

	"github.com/mg6502/gilgamesh/pkg/opcode"
	"github.com/mg6502/gilgamesh/pkg/state"
)

// Decoded is the decoder's pure output: everything that can be known about
// one instruction occurrence from (opcode, argument, state, pc) alone.
type Decoded struct {
	PC       uint32
	Opcode   uint8
	Op       opcode.Op
	Mode     opcode.AddressMode
	Size     int
	Argument uint32
	State    state.State

	HasTarget bool
	Target    uint32
}

// ArgumentSize returns the number of argument bytes this decode needs to
// consume, not counting the opcode byte itself.
func ArgumentSize(mode opcode.AddressMode, s state.State) int {
	switch mode {
	case opcode.ImmediateM:
		return opcode.ArgumentSize(mode, s.M())
	case opcode.ImmediateX:
		return opcode.ArgumentSize(mode, s.X())
	default:
		return opcode.ArgumentSize(mode, false)
	}
}

// Decode maps a raw opcode byte plus its argument word to a Decoded
// instruction. Bits of arg beyond the instruction's argument size are
// masked off; Decode does not read memory.
func Decode(op uint8, arg uint32, s state.State, pc uint32) Decoded {
	entry := opcode.Table[op]
	argSize := ArgumentSize(entry.Mode, s)
	size := 1 + argSize

	mask := uint32(1)<<(8*uint(argSize)) - 1
	if argSize == 0 {
		mask = 0
	}
	arg &= mask

	d := Decoded{
		PC:       pc,
		Opcode:   op,
		Op:       entry.Op,
		Mode:     entry.Mode,
		Size:     size,
		Argument: arg,
		State:    s,
	}
	d.Target, d.HasTarget = absoluteTarget(entry.Op, entry.Mode, arg, pc, size)
	return d
}

// absoluteTarget implements the spec'd target-derivation rules:
//   - IMMEDIATE_* and ABSOLUTE_LONG: the raw argument.
//   - ABSOLUTE on a control-flow instruction: (pc & 0xFF0000) | arg16.
//   - RELATIVE: pc + size + sign_extend_8(arg).
//   - RELATIVE_LONG: pc + size + sign_extend_16(arg).
//   - anything else: no derivable target (depends on runtime data).
func absoluteTarget(op opcode.Op, mode opcode.AddressMode, arg uint32, pc uint32, size int) (uint32, bool) {
	switch mode {
	case opcode.ImmediateM, opcode.ImmediateX, opcode.Immediate8, opcode.AbsoluteLong:
		return arg, true
	case opcode.Absolute:
		if opcode.IsControl(op) {
			return (pc & 0xFF0000) | arg, true
		}
		return 0, false
	case opcode.Relative:
		return uint32(int64(pc) + int64(size) + int64(int8(arg))), true
	case opcode.RelativeLong:
		return uint32(int64(pc) + int64(size) + int64(int16(arg))), true
	default:
		return 0, false
	}
}

// ArgumentString renders the operand syntax for d's addressing mode, the
// way the disassembly view displays a plain (non-aliased) operand.
func (d Decoded) ArgumentString() string {
	switch d.Mode {
	case opcode.Implied:
		return ""
	case opcode.ImpliedAccumulator:
		return "a"
	case opcode.ImmediateM, opcode.ImmediateX, opcode.Immediate8:
		return fmt.Sprintf("#$%0*X", 2*argWidth(d.Mode, d.State), d.Argument)
	case opcode.Relative, opcode.RelativeLong:
		return fmt.Sprintf("$%0*X", 2*(d.Size-1), d.Argument)
	case opcode.DirectPage, opcode.Absolute, opcode.AbsoluteLong, opcode.StackAbsolute:
		return fmt.Sprintf("$%0*X", 2*(d.Size-1), d.Argument)
	case opcode.DirectPageIndexedX, opcode.AbsoluteIndexedX:
		return fmt.Sprintf("$%0*X,x", 2*(d.Size-1), d.Argument)
	case opcode.DirectPageIndexedY, opcode.AbsoluteIndexedY:
		return fmt.Sprintf("$%0*X,y", 2*(d.Size-1), d.Argument)
	case opcode.AbsoluteIndexedLong:
		return fmt.Sprintf("$%0*X,x", 2*(d.Size-1), d.Argument)
	case opcode.DirectPageIndirect, opcode.AbsoluteIndirect, opcode.PEIDirectPageIndirect:
		return fmt.Sprintf("($%0*X)", 2*(d.Size-1), d.Argument)
	case opcode.DirectPageIndirectLong:
		return fmt.Sprintf("[$%0*X]", 2*(d.Size-1), d.Argument)
	case opcode.AbsoluteIndirectLong:
		return fmt.Sprintf("[$%0*X]", 2*(d.Size-1), d.Argument)
	case opcode.DirectPageIndexedIndirect, opcode.AbsoluteIndexedIndirect:
		return fmt.Sprintf("($%0*X,x)", 2*(d.Size-1), d.Argument)
	case opcode.DirectPageIndirectIndexed:
		return fmt.Sprintf("($%0*X),y", 2*(d.Size-1), d.Argument)
	case opcode.DirectPageIndirectIndexedLong:
		return fmt.Sprintf("[$%0*X],y", 2*(d.Size-1), d.Argument)
	case opcode.StackRelative:
		return fmt.Sprintf("$%0*X,s", 2*(d.Size-1), d.Argument)
	case opcode.StackRelativeIndirectIndexed:
		return fmt.Sprintf("($%0*X,s),y", 2*(d.Size-1), d.Argument)
	case opcode.Move:
		dst := (d.Argument >> 8) & 0xFF
		src := d.Argument & 0xFF
		return fmt.Sprintf("$%02X,$%02X", src, dst)
	default:
		return fmt.Sprintf("$%X", d.Argument)
	}
}

func argWidth(mode opcode.AddressMode, s state.State) int {
	switch mode {
	case opcode.ImmediateM:
		return s.ASize()
	case opcode.ImmediateX:
		return s.XSize()
	default:
		return 1
	}
}

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

package decode

import (
	"testing"

	"github.com/mg6502/gilgamesh/pkg/opcode"
	"github.com/mg6502/gilgamesh/pkg/state"
)

func TestDecode_ImmediateSizeFollowsMFlag(t *testing.T) {
	lda8 := Decode(0xA9, 0x1234, state.NewMX(true, false), 0x8000)
	if lda8.Size != 2 {
		t.Errorf("Size() with M=1 = %v, want 2", lda8.Size)
	}
	if lda8.Argument != 0x34 {
		t.Errorf("Argument with M=1 = $%X, want $34 (masked to one byte)", lda8.Argument)
	}

	lda16 := Decode(0xA9, 0x1234, state.NewMX(false, false), 0x8000)
	if lda16.Size != 3 {
		t.Errorf("Size() with M=0 = %v, want 3", lda16.Size)
	}
	if lda16.Argument != 0x1234 {
		t.Errorf("Argument with M=0 = $%X, want $1234", lda16.Argument)
	}
}

func TestDecode_RelativeTargetSignExtends(t *testing.T) {
	// BRA with a negative displacement must land before pc, not after it.
	d := Decode(0x80, 0xFE, state.State{}, 0x8010)
	if !d.HasTarget {
		t.Fatalf("HasTarget = false, want true for a relative branch")
	}
	want := uint32(0x8010 + 2 - 2)
	if d.Target != want {
		t.Errorf("Target = $%06X, want $%06X", d.Target, want)
	}
}

func TestDecode_AbsoluteControlTargetStaysInBank(t *testing.T) {
	d := Decode(0x4C, 0x1234, state.State{}, 0x028000) // JMP absolute
	if !d.HasTarget {
		t.Fatalf("HasTarget = false, want true for JMP absolute")
	}
	if d.Target != 0x021234 {
		t.Errorf("Target = $%06X, want $021234 (bank carried from pc)", d.Target)
	}
}

func TestDecode_NonControlAbsoluteHasNoTarget(t *testing.T) {
	d := Decode(0xAD, 0x1234, state.State{}, 0x8000) // LDA absolute
	if d.HasTarget {
		t.Errorf("HasTarget = true, want false: absolute LDA depends on runtime data")
	}
}

func TestDecoded_ArgumentString(t *testing.T) {
	d := Decode(0xA9, 0x42, state.NewMX(true, false), 0x8000)
	if got, want := d.ArgumentString(), "#$42"; got != want {
		t.Errorf("ArgumentString() = %q, want %q", got, want)
	}
}

func TestArgumentSize_TracksStateByMode(t *testing.T) {
	if got := ArgumentSize(opcode.ImmediateM, state.NewMX(false, false)); got != 2 {
		t.Errorf("ArgumentSize(ImmediateM, M=0) = %v, want 2", got)
	}
	if got := ArgumentSize(opcode.ImmediateX, state.NewMX(false, true)); got != 1 {
		t.Errorf("ArgumentSize(ImmediateX, X=1) = %v, want 1", got)
	}
}
